package metrosteps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-planner/internal/network"
	"transit-planner/internal/timetable"
)

func setup(t *testing.T) (*network.Graph, *Generator) {
	t.Helper()
	d, err := network.Embedded()
	require.NoError(t, err)
	g, err := network.Build(d)
	require.NoError(t, err)
	return g, New(g, timetable.New(g, d.Schedule, nil))
}

func kinds(steps []Step) []Kind {
	out := make([]Kind, len(steps))
	for i, s := range steps {
		out[i] = s.Kind
	}
	return out
}

func station(t *testing.T, g *network.Graph, id string) *network.Station {
	t.Helper()
	s, ok := g.Station(id)
	require.True(t, ok, id)
	return s
}

func TestSameLine(t *testing.T) {
	g, gen := setup(t)
	trip := gen.Trip(station(t, g, "syntagma"), station(t, g, "omonia"))

	require.Equal(t, []Kind{Enter, Ride, Exit, Arrive}, kinds(trip.Steps))
	ride := trip.Steps[1]
	assert.Equal(t, "M2", ride.Line)
	assert.Equal(t, "Anthoupoli", ride.Toward)
	assert.Equal(t, 2, ride.Stops)
	require.NotNil(t, ride.Minutes)
	assert.Equal(t, 4, *ride.Minutes)
	assert.Equal(t, "Take Line 2 toward Anthoupoli, 2 stops to Omonia", ride.Instruction)
	assert.Equal(t, "Exit at Omonia", trip.Steps[2].Instruction)
	assert.Equal(t, "Arrive at Omonia", trip.Steps[3].Instruction)
	assert.Equal(t, 4*time.Minute, trip.Duration)
	assert.True(t, trip.Scheduled)
	assert.Empty(t, trip.Interchange)
}

func TestEverySameLinePairHasFourSteps(t *testing.T) {
	g, gen := setup(t)
	for _, l := range g.Lines() {
		for _, a := range l.Stations {
			for _, b := range l.Stations {
				if a == b {
					continue
				}
				assert.Equal(t, []Kind{Enter, Ride, Exit, Arrive}, kinds(gen.Generate(a, b)), "%s -> %s", a.ID, b.ID)
			}
		}
	}
}

func TestCrossLine(t *testing.T) {
	g, gen := setup(t)
	trip := gen.Trip(station(t, g, "syntagma"), station(t, g, "kifissia"))

	require.Equal(t, []Kind{Enter, Ride, ChangeAt, Ride, Exit, Arrive}, kinds(trip.Steps))
	assert.Equal(t, "monastiraki", trip.Interchange)

	first, change, second := trip.Steps[1], trip.Steps[2], trip.Steps[3]
	assert.Equal(t, "M3", first.Line)
	assert.Equal(t, "Dimotiko Theatro", first.Toward)
	assert.Equal(t, 1, first.Stops)
	assert.Equal(t, "Take Line 3 toward Dimotiko Theatro, 1 stop to Monastiraki", first.Instruction)

	assert.Equal(t, "Change at Monastiraki to Line 1", change.Instruction)
	assert.Equal(t, "#00A651", change.LineColor)

	assert.Equal(t, "M1", second.Line)
	assert.Equal(t, "Kifissia", second.Toward)
	assert.Equal(t, 16, second.Stops)

	// 2 + 35 + interchange penalty
	assert.Equal(t, 41*time.Minute, trip.Duration)
	assert.True(t, trip.Scheduled)
}

func TestNoRoute(t *testing.T) {
	d := &network.Data{
		Stations: []network.StationData{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"}, {ID: "d", Name: "D"}},
		Lines: []network.LineData{
			{ID: "L1", Stations: []string{"a", "b"}},
			{ID: "L2", Stations: []string{"c", "d"}},
		},
	}
	g, err := network.Build(d)
	require.NoError(t, err)
	gen := New(g, nil)

	a, _ := g.Station("a")
	c, _ := g.Station("c")
	trip := gen.Trip(a, c)
	assert.Equal(t, []Kind{Enter, NoRoute}, kinds(trip.Steps))
	assert.False(t, trip.Found)
	assert.Equal(t, "No direct metro route from A to C", trip.Steps[1].Instruction)
}

func TestUnscheduledRide(t *testing.T) {
	d, err := network.Embedded()
	require.NoError(t, err)
	g, err := network.Build(d)
	require.NoError(t, err)
	gen := New(g, timetable.New(g, nil, nil))

	trip := gen.Trip(station(t, g, "syntagma"), station(t, g, "omonia"))
	require.Len(t, trip.Steps, 4)
	assert.Nil(t, trip.Steps[1].Minutes)
	assert.False(t, trip.Scheduled)
}

func TestSameStation(t *testing.T) {
	g, gen := setup(t)
	s := station(t, g, "attiki")
	steps := gen.Generate(s, s)
	assert.Equal(t, []Kind{Arrive}, kinds(steps))
}

func TestDropRepeatedExits(t *testing.T) {
	steps := []Step{
		{Kind: Enter, StationID: "a"},
		{Kind: Arrive, StationID: "b"},
		{Kind: Exit, StationID: "b"},
		{Kind: Exit, StationID: "c"},
		{Kind: Arrive, StationID: "c"},
	}
	got := dropRepeatedExits(steps)
	assert.Equal(t, []Kind{Enter, Arrive, Exit, Arrive}, kinds(got))
	assert.Equal(t, "c", got[2].StationID)
}
