// Package sim is the simulation boundary of the planner: a departure board
// and live vehicle positions generated from the static timetable. Nothing in
// here reflects real-time data. Random attributes are seeded so that the
// same seed and instant always produce the same output.
package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"sort"
	"time"

	"transit-planner/internal/clock"
	"transit-planner/internal/enrich"
	"transit-planner/internal/geo"
	"transit-planner/internal/itinerary"
	"transit-planner/internal/network"
	"transit-planner/internal/timetable"
)

const (
	highFrequencyHeadway = 5 * time.Minute
	defaultHeadway       = 12 * time.Minute
	fallbackHop          = 2 * time.Minute
	accessibleShare      = 0.9
)

type Departure struct {
	Line        string          `json:"line"`
	LineColor   string          `json:"lineColor"`
	Toward      string          `json:"toward"`
	VehicleID   string          `json:"vehicleId"`
	Time        time.Time       `json:"time"`
	MinutesAway int             `json:"minutesAway"`
	Crowd       itinerary.Crowd `json:"crowd"`
	Accessible  bool            `json:"accessible"`
}

// Board generates departures and vehicle positions. Trains leave each
// terminus every headway from local midnight and follow the timetable.
type Board struct {
	graph  *network.Graph
	times  *timetable.Lookup
	tables enrich.Tables
	clock  clock.Clock
	loc    *time.Location
	seed   uint64
}

func NewBoard(g *network.Graph, times *timetable.Lookup, tables enrich.Tables, c clock.Clock, loc *time.Location, seed uint64) *Board {
	if c == nil {
		c = clock.RealClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Board{graph: g, times: times, tables: tables, clock: c, loc: loc, seed: seed}
}

// Headway is the interval between trains on a line.
func (b *Board) Headway(line *network.Line) time.Duration {
	if b.tables.IsHighFrequency(line.ID) {
		return highFrequencyHeadway
	}
	return defaultHeadway
}

// run is one direction of a line: stations in travel order with the
// scheduled offset of each from the origin terminus.
type run struct {
	line     *network.Line
	dir      timetable.Direction
	stations []*network.Station
	offsets  []time.Duration
}

func (b *Board) runs(line *network.Line) [2]run {
	var out [2]run
	for _, dir := range []timetable.Direction{timetable.Forward, timetable.Backward} {
		r := run{line: line, dir: dir}
		n := len(line.Stations)
		for i := 0; i < n; i++ {
			st := line.Stations[i]
			if dir == timetable.Backward {
				st = line.Stations[n-1-i]
			}
			r.stations = append(r.stations, st)
			r.offsets = append(r.offsets, b.offset(line, r.stations[0], st, i))
		}
		// keep offsets monotonic when schedule and fallback mix
		for i := 1; i < len(r.offsets); i++ {
			if r.offsets[i] < r.offsets[i-1] {
				r.offsets[i] = r.offsets[i-1]
			}
		}
		out[dir] = r
	}
	return out
}

func (b *Board) offset(line *network.Line, origin, st *network.Station, hops int) time.Duration {
	if b.times != nil {
		if d, err := b.times.OnLine(line, origin, st); err == nil {
			return d
		}
	}
	return time.Duration(hops) * fallbackHop
}

func (r run) toward() *network.Station { return r.stations[len(r.stations)-1] }

func (r run) total() time.Duration { return r.offsets[len(r.offsets)-1] }

func (r run) vehicleID(day time.Time, k int64) string {
	return fmt.Sprintf("%s-%s-%s-%03d", r.line.ID, r.dir, day.Format("20060102"), k)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (b *Board) rng(parts ...any) *rand.Rand {
	h := fnv.New64a()
	fmt.Fprint(h, parts...)
	return rand.New(rand.NewPCG(b.seed, h.Sum64()))
}

func (b *Board) crowd(rng *rand.Rand, at time.Time) itinerary.Crowd {
	r := rng.Float64()
	if enrich.IsRushHour(at) {
		switch {
		case r < 0.6:
			return itinerary.CrowdHigh
		case r < 0.9:
			return itinerary.CrowdMedium
		}
		return itinerary.CrowdLow
	}
	switch {
	case r < 0.15:
		return itinerary.CrowdHigh
	case r < 0.55:
		return itinerary.CrowdMedium
	}
	return itinerary.CrowdLow
}

// Departures returns the next n departures from st over every line and
// direction serving it, soonest first.
func (b *Board) Departures(st *network.Station, n int) []Departure {
	if n <= 0 {
		return nil
	}
	now := b.clock.Now().In(b.loc)
	day := midnight(now)
	var out []Departure
	for _, line := range b.graph.LinesOf(st) {
		hw := b.Headway(line)
		for _, r := range b.runs(line) {
			pos := -1
			for i, s := range r.stations {
				if s == st {
					pos = i
				}
			}
			if pos < 0 || pos == len(r.stations)-1 {
				continue
			}
			off := r.offsets[pos]
			// first train index k with day + k*hw + off >= now
			k := int64((now.Sub(day) - off + hw - 1) / hw)
			if k < 0 {
				k = 0
			}
			for i := 0; i < n; i++ {
				at := day.Add(time.Duration(k)*hw + off)
				rng := b.rng(r.line.ID, r.dir, day.Unix(), k)
				out = append(out, Departure{
					Line:        line.ID,
					LineColor:   line.Color,
					Toward:      r.toward().Name,
					VehicleID:   r.vehicleID(day, k),
					Time:        at,
					MinutesAway: int(at.Sub(now) / time.Minute),
					Crowd:       b.crowd(rng, at),
					Accessible:  rng.Float64() < accessibleShare,
				})
				k++
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

type Vehicle struct {
	ID        string    `json:"id"`
	Line      string    `json:"line"`
	Toward    string    `json:"toward"`
	Timestamp time.Time `json:"timestamp"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Bearing   float64   `json:"bearing"`
	Progress  float64   `json:"progress"`
	// Next is the next station the vehicle calls at.
	Next string `json:"next"`
}

// Positions returns every vehicle running on line at the clock's current
// time.
func (b *Board) Positions(line *network.Line) []Vehicle {
	return b.PositionsAt(line, b.clock.Now())
}

// PositionsAt places each train between the two stations whose scheduled
// offsets bracket its elapsed time and interpolates linearly.
func (b *Board) PositionsAt(line *network.Line, at time.Time) []Vehicle {
	at = at.In(b.loc)
	day := midnight(at)
	hw := b.Headway(line)
	var out []Vehicle
	for _, r := range b.runs(line) {
		total := r.total()
		if total <= 0 {
			continue
		}
		sinceMidnight := at.Sub(day)
		// trains that left the origin within the last run time
		first := int64((sinceMidnight - total) / hw)
		if first < 0 {
			first = 0
		}
		for k := first; time.Duration(k)*hw <= sinceMidnight; k++ {
			elapsed := sinceMidnight - time.Duration(k)*hw
			if elapsed < 0 || elapsed > total {
				continue
			}
			p, bearing, next := r.locate(elapsed)
			out = append(out, Vehicle{
				ID:        r.vehicleID(day, k),
				Line:      line.ID,
				Toward:    r.toward().Name,
				Timestamp: at,
				Lat:       p.Lat,
				Lon:       p.Lon,
				Bearing:   bearing,
				Progress:  float64(elapsed) / float64(total),
				Next:      next.Name,
			})
		}
	}
	return out
}

func (r run) locate(elapsed time.Duration) (geo.Point, float64, *network.Station) {
	n := len(r.stations)
	i := 0
	for i+1 < n-1 && elapsed >= r.offsets[i+1] {
		i++
	}
	a, c := r.stations[i], r.stations[i+1]
	span := r.offsets[i+1] - r.offsets[i]
	frac := 1.0
	if span > 0 {
		frac = float64(elapsed-r.offsets[i]) / float64(span)
	}
	return geo.Lerp(a.Point(), c.Point(), frac), geo.Bearing(a.Point(), c.Point()), c
}
