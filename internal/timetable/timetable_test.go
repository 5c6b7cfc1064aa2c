package timetable

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-planner/internal/logging"
	"transit-planner/internal/network"
)

func athens(t *testing.T) (*network.Graph, *network.Data) {
	t.Helper()
	d, err := network.Embedded()
	require.NoError(t, err)
	g, err := network.Build(d)
	require.NoError(t, err)
	return g, d
}

func st(t *testing.T, g *network.Graph, id string) *network.Station {
	t.Helper()
	s, ok := g.Station(id)
	require.True(t, ok, id)
	return s
}

func TestTravelTime(t *testing.T) {
	g, d := athens(t)
	tt := New(g, d.Schedule, nil)

	tests := []struct {
		name     string
		from, to string
		want     time.Duration
	}{
		{"line 2 forward", "syntagma", "omonia", 4 * time.Minute},
		{"line 2 backward", "omonia", "syntagma", 4 * time.Minute},
		{"line 1 full length", "piraeus", "kifissia", 50 * time.Minute},
		{"line 3 to airport", "syntagma", "airport", 45 * time.Minute},
		{"same station", "attiki", "attiki", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tt.TravelTime(st(t, g, tc.from), st(t, g, tc.to))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTravelTimeWithInterchange(t *testing.T) {
	g, d := athens(t)
	tt := New(g, d.Schedule, nil)

	syntagma := st(t, g, "syntagma")
	kifissia := st(t, g, "kifissia")
	ic := g.FindInterchange(syntagma, kifissia)
	require.NotNil(t, ic)

	// syntagma -> monastiraki on M3 (2) + monastiraki -> kifissia on M1 (35) + 4
	got, err := tt.TravelTimeWithInterchange(syntagma, kifissia, ic)
	require.NoError(t, err)
	assert.Equal(t, 41*time.Minute, got)

	_, err = tt.TravelTime(syntagma, kifissia)
	assert.ErrorIs(t, err, ErrNoCommonLine)
}

func TestScheduleUnavailable(t *testing.T) {
	g, d := athens(t)

	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, logging.ParseLevel("warn"), "text")

	rows := []network.ScheduleData{d.Schedule[1]}
	rows[0].Forward = append([]int(nil), rows[0].Forward...)
	rows[0].Forward[7] = -1 // omonia

	tt := New(g, rows, logger)

	_, err := tt.TravelTime(st(t, g, "syntagma"), st(t, g, "omonia"))
	require.NoError(t, err, "backward direction is still scheduled")

	_, err = tt.TravelTime(st(t, g, "omonia"), st(t, g, "syntagma"))
	assert.ErrorIs(t, err, ErrScheduleUnavailable)
	assert.Contains(t, buf.String(), "schedule unavailable")

	// no row at all for M1
	_, err = tt.TravelTime(st(t, g, "piraeus"), st(t, g, "omonia"))
	assert.ErrorIs(t, err, ErrScheduleUnavailable)
}

func TestNewSkipsBadRows(t *testing.T) {
	g, _ := athens(t)
	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, logging.ParseLevel("debug"), "text")

	tt := New(g, []network.ScheduleData{
		{Line: "M7", Forward: []int{0, 1}},
		{Line: "M2", Forward: []int{0, 2, 4}},
	}, logger)

	assert.Contains(t, buf.String(), "schedule row for unknown line")
	assert.Contains(t, buf.String(), "schedule row length mismatch")
	_, err := tt.TravelTime(st(t, g, "anthoupoli"), st(t, g, "peristeri"))
	assert.ErrorIs(t, err, ErrScheduleUnavailable)
}

func TestDirectionOf(t *testing.T) {
	assert.Equal(t, Forward, DirectionOf(2, 5))
	assert.Equal(t, Forward, DirectionOf(3, 3))
	assert.Equal(t, Backward, DirectionOf(5, 2))
	assert.Equal(t, "backward", Backward.String())
}
