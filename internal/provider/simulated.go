package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"time"

	"transit-planner/internal/clock"
	"transit-planner/internal/geo"
	"transit-planner/internal/itinerary"
	"transit-planner/internal/network"
	"transit-planner/internal/timetable"
)

const (
	walkSpeedMPS      = 1.3
	walkDetourFactor  = 1.25
	maxWalkOnlyMeters = 2500.0
	minutesPerStop    = 2
	maxHeadwayMinutes = 6
)

// Simulated answers directions queries from the station graph and timetable.
// Waits are drawn from a generator seeded by the configured seed and the
// query endpoints, so the same query always gets the same answer.
type Simulated struct {
	graph *network.Graph
	times *timetable.Lookup
	clock clock.Clock
	seed  uint64
}

func NewSimulated(g *network.Graph, times *timetable.Lookup, c clock.Clock, seed uint64) *Simulated {
	if c == nil {
		c = clock.RealClock{}
	}
	return &Simulated{graph: g, times: times, clock: c, seed: seed}
}

func (s *Simulated) Directions(ctx context.Context, q Query) ([]itinerary.RawItinerary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	from, ok1 := s.resolve(q.Origin)
	to, ok2 := s.resolve(q.Destination)
	if !ok1 || !ok2 {
		return nil, nil
	}
	depart := q.DepartAt
	if depart.IsZero() {
		depart = s.clock.Now()
	}
	rng := rand.New(rand.NewPCG(s.seed, queryHash(from, to)))

	stations := s.graph.Stations()
	var out []itinerary.RawItinerary
	board, err := network.NearestStation(from, stations)
	if err != nil {
		return nil, nil
	}
	alight, _ := network.NearestStation(to, stations)

	if raw, ok := s.metroTrip(rng, from, to, board, alight, depart); ok {
		out = append(out, raw)
	}
	if q.Alternatives {
		if second := secondNearest(from, stations, board); second != nil {
			if raw, ok := s.metroTrip(rng, from, to, second, alight, depart); ok {
				out = append(out, raw)
			}
		}
	}
	if d := geo.Distance(from, to); d <= maxWalkOnlyMeters || len(out) == 0 {
		out = append(out, s.walkTrip(from, to, depart))
	}
	return out, nil
}

func (s *Simulated) resolve(l Location) (geo.Point, bool) {
	if l.Point != nil {
		return *l.Point, true
	}
	if p, ok := ParsePoint(l.Text); ok {
		return p, true
	}
	if st, ok := s.graph.StationByName(l.Text); ok {
		return st.Point(), true
	}
	return geo.Point{}, false
}

func queryHash(a, b geo.Point) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s", a, b)
	return h.Sum64()
}

func secondNearest(p geo.Point, stations []*network.Station, exclude *network.Station) *network.Station {
	rest := make([]*network.Station, 0, len(stations))
	for _, st := range stations {
		if st != exclude {
			rest = append(rest, st)
		}
	}
	st, err := network.NearestStation(p, rest)
	if err != nil {
		return nil
	}
	return st
}

type builder struct {
	raw    itinerary.RawItinerary
	cursor time.Time
	start  time.Time
	meters float64
	lines  []string
}

func (b *builder) walk(from, to geo.Point, dest string) {
	meters := geo.Distance(from, to) * walkDetourFactor
	if meters < 1 {
		return
	}
	secs := int(meters/walkSpeedMPS + 0.5)
	html := "Walk to destination"
	if dest != "" {
		html = "Walk to <b>" + dest + "</b>"
	}
	b.raw.Legs = append(b.raw.Legs, itinerary.RawLeg{
		TravelMode:       "WALKING",
		HTMLInstructions: html,
		Duration:         &itinerary.TextValue{Text: FormatMinutes(secs), Value: float64(secs)},
		Distance:         &itinerary.TextValue{Text: FormatMeters(meters), Value: meters},
		StartLocation:    &itinerary.LatLng{Lat: from.Lat, Lng: from.Lon},
		EndLocation:      &itinerary.LatLng{Lat: to.Lat, Lng: to.Lon},
	})
	b.cursor = b.cursor.Add(time.Duration(secs) * time.Second)
	b.meters += meters
}

func (s *Simulated) ride(rng *rand.Rand, b *builder, line *network.Line, from, to *network.Station) {
	fi, _ := line.IndexOf(from)
	ti, _ := line.IndexOf(to)
	stops := ti - fi
	if stops < 0 {
		stops = -stops
	}
	d := time.Duration(stops*minutesPerStop) * time.Minute
	if s.times != nil {
		if scheduled, err := s.times.OnLine(line, from, to); err == nil {
			d = scheduled
		}
	}
	dep := b.cursor.Add(time.Duration(rng.IntN(maxHeadwayMinutes)) * time.Minute).Truncate(time.Minute)
	if dep.Before(b.cursor) {
		dep = dep.Add(time.Minute)
	}
	arr := dep.Add(d)
	toward := line.TerminusToward(fi, ti)
	meters := geo.Distance(from.Point(), to.Point())
	b.raw.Legs = append(b.raw.Legs, itinerary.RawLeg{
		TravelMode:       "TRANSIT",
		HTMLInstructions: "Metro towards " + toward.Name,
		Duration:         &itinerary.TextValue{Text: FormatMinutes(int(d.Seconds())), Value: d.Seconds()},
		Distance:         &itinerary.TextValue{Text: FormatMeters(meters), Value: meters},
		StartLocation:    &itinerary.LatLng{Lat: from.Lat, Lng: from.Lon},
		EndLocation:      &itinerary.LatLng{Lat: to.Lat, Lng: to.Lon},
		Transit: &itinerary.RawTransit{
			Line: itinerary.RawLine{
				Name:      line.Name,
				ShortName: line.ID,
				Color:     line.Color,
				Vehicle:   itinerary.RawVehicle{Type: "SUBWAY", Name: "Metro"},
			},
			DepartureStop: itinerary.RawStop{Name: from.Name, Location: &itinerary.LatLng{Lat: from.Lat, Lng: from.Lon}},
			ArrivalStop:   itinerary.RawStop{Name: to.Name, Location: &itinerary.LatLng{Lat: to.Lat, Lng: to.Lon}},
			DepartureTime: timeValue(dep),
			ArrivalTime:   timeValue(arr),
			NumStops:      stops,
			Headsign:      toward.Name,
		},
	})
	b.cursor = arr
	b.meters += meters
	b.lines = append(b.lines, line.ID)
}

func (s *Simulated) metroTrip(rng *rand.Rand, from, to geo.Point, board, alight *network.Station, depart time.Time) (itinerary.RawItinerary, bool) {
	if board == alight {
		return itinerary.RawItinerary{}, false
	}
	b := &builder{cursor: depart, start: depart}
	b.walk(from, board.Point(), board.Name)
	if line, ok := s.graph.SharedLine(board, alight); ok {
		s.ride(rng, b, line, board, alight)
	} else {
		ic := s.graph.FindInterchange(board, alight)
		if ic == nil {
			return itinerary.RawItinerary{}, false
		}
		first, _ := s.graph.SharedLine(board, ic)
		second, _ := s.graph.SharedLine(ic, alight)
		s.ride(rng, b, first, board, ic)
		b.cursor = b.cursor.Add(timetable.InterchangePenalty)
		s.ride(rng, b, second, ic, alight)
	}
	b.walk(alight.Point(), to, "")
	b.raw.Summary = strings.Join(b.lines, ", ")
	return b.finish(), true
}

func (s *Simulated) walkTrip(from, to geo.Point, depart time.Time) itinerary.RawItinerary {
	b := &builder{cursor: depart, start: depart}
	b.walk(from, to, "")
	b.raw.Summary = "Walk"
	return b.finish()
}

func (b *builder) finish() itinerary.RawItinerary {
	secs := int(b.cursor.Sub(b.start).Seconds())
	b.raw.Duration = &itinerary.TextValue{Text: FormatMinutes(secs), Value: float64(secs)}
	b.raw.Distance = &itinerary.TextValue{Text: FormatMeters(b.meters), Value: b.meters}
	b.raw.DepartureTime = timeValue(b.start)
	b.raw.ArrivalTime = timeValue(b.cursor)
	return b.raw
}

func timeValue(t time.Time) *itinerary.TimeValue {
	return &itinerary.TimeValue{Text: t.Format("15:04"), Value: t.Unix(), TimeZone: t.Location().String()}
}

// FormatMinutes renders seconds the way directions providers do:
// "1 min", "12 mins", "1 hour 5 mins".
func FormatMinutes(secs int) string {
	mins := (secs + 30) / 60
	if mins < 1 {
		mins = 1
	}
	h, m := mins/60, mins%60
	unit := func(n int, one, many string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s", one)
		}
		return fmt.Sprintf("%d %s", n, many)
	}
	switch {
	case h == 0:
		return unit(m, "min", "mins")
	case m == 0:
		return unit(h, "hour", "hours")
	}
	return unit(h, "hour", "hours") + " " + unit(m, "min", "mins")
}

// FormatMeters renders "350 m" below a kilometre and "1.2 km" above.
func FormatMeters(m float64) string {
	if m < 1000 {
		return fmt.Sprintf("%d m", int(m+0.5))
	}
	return fmt.Sprintf("%.1f km", m/1000)
}
