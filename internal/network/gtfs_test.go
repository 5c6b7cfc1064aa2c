package network

import (
	"testing"
	"time"

	"github.com/jamespfennell/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestFromGTFS(t *testing.T) {
	a := &gtfs.Stop{Id: "A", Name: "Alpha", Latitude: ptr(37.90), Longitude: ptr(23.70)}
	b := &gtfs.Stop{Id: "B", Name: "Beta", Latitude: ptr(37.91), Longitude: ptr(23.71)}
	c := &gtfs.Stop{Id: "C", Name: "Gamma", Latitude: ptr(37.92), Longitude: ptr(23.72)}
	// platform folded into its parent station
	cPlatform := &gtfs.Stop{Id: "C1", Name: "Gamma platform 1", Parent: c}
	d := &gtfs.Stop{Id: "D", Name: "Delta", Latitude: ptr(37.93), Longitude: ptr(23.73)}

	red := &gtfs.Route{Id: "R", ShortName: "Red", Color: "FF0000"}
	blue := &gtfs.Route{Id: "X", LongName: "Blue Line"}

	at := func(stop *gtfs.Stop, seq int, min int) gtfs.ScheduledStopTime {
		return gtfs.ScheduledStopTime{
			Stop:          stop,
			StopSequence:  seq,
			ArrivalTime:   8*time.Hour + time.Duration(min)*time.Minute,
			DepartureTime: 8*time.Hour + time.Duration(min)*time.Minute,
		}
	}

	static := &gtfs.Static{
		Trips: []gtfs.ScheduledTrip{
			{ID: "short", Route: red, DirectionId: gtfs.DirectionID_False, StopTimes: []gtfs.ScheduledStopTime{
				at(a, 1, 0), at(b, 2, 2),
			}},
			{ID: "full", Route: red, DirectionId: gtfs.DirectionID_False, StopTimes: []gtfs.ScheduledStopTime{
				at(b, 2, 3), at(a, 1, 0), at(cPlatform, 3, 7),
			}},
			{ID: "back", Route: red, DirectionId: gtfs.DirectionID_True, StopTimes: []gtfs.ScheduledStopTime{
				at(c, 1, 0), at(a, 2, 8),
			}},
			{ID: "other", Route: blue, StopTimes: []gtfs.ScheduledStopTime{
				at(c, 1, 0), at(d, 2, 5),
			}},
		},
	}

	data, err := FromGTFS(static, nil)
	require.NoError(t, err)

	require.Len(t, data.Lines, 2)
	assert.Equal(t, "R", data.Lines[0].ID)
	assert.Equal(t, "Red", data.Lines[0].Name)
	assert.Equal(t, "#FF0000", data.Lines[0].Color)
	assert.Equal(t, []string{"A", "B", "C"}, data.Lines[0].Stations)
	assert.Equal(t, "Blue Line", data.Lines[1].Name)
	assert.Empty(t, data.Lines[1].Color)

	require.Len(t, data.Stations, 4)
	assert.Equal(t, "Gamma", data.Stations[2].Name)
	assert.InDelta(t, 37.92, data.Stations[2].Lat, 1e-9)

	require.Len(t, data.Schedule, 2)
	assert.Equal(t, []int{0, 3, 7}, data.Schedule[0].Forward)
	assert.Equal(t, []int{8, -1, 0}, data.Schedule[0].Backward)

	g, err := Build(data)
	require.NoError(t, err)
	gamma, _ := g.Station("C")
	assert.True(t, gamma.IsInterchange)

	t.Run("route filter", func(t *testing.T) {
		data, err := FromGTFS(static, []string{"X"})
		require.NoError(t, err)
		require.Len(t, data.Lines, 1)
		assert.Equal(t, "X", data.Lines[0].ID)
	})

	t.Run("no matching routes", func(t *testing.T) {
		_, err := FromGTFS(static, []string{"nope"})
		assert.Error(t, err)
	})
}
