package network

import (
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/jamespfennell/gtfs"
)

// LoadGTFS builds network data from a static GTFS zip on disk. Only the
// listed routes become lines; an empty list takes every route.
func LoadGTFS(path string, routeIDs []string) (*Data, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading local GTFS file: %w", err)
	}
	static, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}
	return FromGTFS(static, routeIDs)
}

// FromGTFS derives one line per route. The longest trip in the route's
// primary direction fixes the station order and supplies forward offsets;
// the longest trip in the opposite direction supplies backward offsets.
// Platforms are folded into their parent station.
func FromGTFS(static *gtfs.Static, routeIDs []string) (*Data, error) {
	wanted := make(map[string]bool, len(routeIDs))
	for _, id := range routeIDs {
		wanted[id] = true
	}

	type routeTrips struct {
		route    *gtfs.Route
		forward  *gtfs.ScheduledTrip
		backward *gtfs.ScheduledTrip
	}
	var order []string
	byRoute := map[string]*routeTrips{}
	for i := range static.Trips {
		trip := &static.Trips[i]
		if trip.Route == nil || len(trip.StopTimes) < 2 {
			continue
		}
		if len(wanted) > 0 && !wanted[trip.Route.Id] {
			continue
		}
		rt, ok := byRoute[trip.Route.Id]
		if !ok {
			rt = &routeTrips{route: trip.Route}
			byRoute[trip.Route.Id] = rt
			order = append(order, trip.Route.Id)
		}
		if trip.DirectionId == gtfs.DirectionID_True {
			if rt.backward == nil || len(trip.StopTimes) > len(rt.backward.StopTimes) {
				rt.backward = trip
			}
		} else if rt.forward == nil || len(trip.StopTimes) > len(rt.forward.StopTimes) {
			rt.forward = trip
		}
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("no usable trips for routes %v", routeIDs)
	}

	d := &Data{Name: "GTFS import"}
	seen := map[string]bool{}
	for _, routeID := range order {
		rt := byRoute[routeID]
		main := rt.forward
		if main == nil {
			main = rt.backward
		}
		stopTimes := sortedStopTimes(main)

		line := LineData{
			ID:      routeID,
			Name:    rt.route.ShortName,
			Vehicle: "metro",
		}
		if line.Name == "" {
			line.Name = rt.route.LongName
		}
		if rt.route.Color != "" {
			line.Color = "#" + rt.route.Color
		}

		onLine := map[string]bool{}
		for _, st := range stopTimes {
			s := stationOf(st.Stop)
			if s == nil || onLine[s.Id] {
				continue
			}
			onLine[s.Id] = true
			line.Stations = append(line.Stations, s.Id)
			if !seen[s.Id] {
				seen[s.Id] = true
				sd := StationData{ID: s.Id, Name: s.Name}
				if s.Latitude != nil && s.Longitude != nil {
					sd.Lat, sd.Lon = *s.Latitude, *s.Longitude
				}
				d.Stations = append(d.Stations, sd)
			}
		}
		if len(line.Stations) < 2 {
			continue
		}
		d.Lines = append(d.Lines, line)

		sched := ScheduleData{Line: routeID}
		if main == rt.forward {
			sched.Forward = offsetsAlong(line.Stations, stopTimes)
			if rt.backward != nil {
				sched.Backward = offsetsAlong(line.Stations, sortedStopTimes(rt.backward))
			}
		} else {
			sched.Backward = offsetsAlong(line.Stations, stopTimes)
		}
		d.Schedule = append(d.Schedule, sched)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func stationOf(stop *gtfs.Stop) *gtfs.Stop {
	if stop == nil {
		return nil
	}
	if stop.Parent != nil {
		return stop.Parent
	}
	return stop
}

func sortedStopTimes(trip *gtfs.ScheduledTrip) []gtfs.ScheduledStopTime {
	sts := make([]gtfs.ScheduledStopTime, len(trip.StopTimes))
	copy(sts, trip.StopTimes)
	sort.SliceStable(sts, func(i, j int) bool { return sts[i].StopSequence < sts[j].StopSequence })
	return sts
}

// offsetsAlong returns whole minutes since the trip's first departure for
// each station in order; stations the trip skips get -1.
func offsetsAlong(order []string, sts []gtfs.ScheduledStopTime) []int {
	if len(sts) == 0 {
		return nil
	}
	start := sts[0].DepartureTime
	if start == 0 {
		start = sts[0].ArrivalTime
	}
	at := map[string]time.Duration{}
	for _, st := range sts {
		s := stationOf(st.Stop)
		if s == nil {
			continue
		}
		if _, ok := at[s.Id]; ok {
			continue
		}
		t := st.ArrivalTime
		if t == 0 {
			t = st.DepartureTime
		}
		at[s.Id] = t
	}
	out := make([]int, len(order))
	for i, id := range order {
		t, ok := at[id]
		if !ok {
			out[i] = -1
			continue
		}
		out[i] = int(math.Round((t - start).Minutes()))
		if out[i] < 0 {
			out[i] = 0
		}
	}
	return out
}
