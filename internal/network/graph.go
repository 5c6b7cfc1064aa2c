package network

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"transit-planner/internal/geo"
	"transit-planner/internal/textnorm"
)

// DefaultColor is the tag for stations that sit on no known line.
const DefaultColor = "#888888"

var (
	ErrNoStations     = errors.New("no candidate stations")
	ErrUnknownStation = errors.New("unknown station")
)

// Station is immutable once the graph is built. The same *Station is shared
// by every line that serves it.
type Station struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	NameLocal     string  `json:"nameLocal,omitempty"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	IsInterchange bool    `json:"isInterchange"`
}

func (s *Station) Point() geo.Point { return geo.Point{Lat: s.Lat, Lon: s.Lon} }

// Line is an ordered station sequence; index order encodes direction.
type Line struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Color    string     `json:"color"`
	Vehicle  string     `json:"vehicle"`
	Stations []*Station `json:"stations"`

	index map[*Station]int
}

// IndexOf returns the station's position on the line.
func (l *Line) IndexOf(s *Station) (int, bool) {
	i, ok := l.index[s]
	return i, ok
}

func (l *Line) Contains(s *Station) bool {
	_, ok := l.index[s]
	return ok
}

func (l *Line) First() *Station { return l.Stations[0] }
func (l *Line) Last() *Station  { return l.Stations[len(l.Stations)-1] }

// TerminusToward names the terminus a train from index from must be heading
// to in order to reach index to.
func (l *Line) TerminusToward(from, to int) *Station {
	if to >= from {
		return l.Last()
	}
	return l.First()
}

// HalfTerminus picks the terminus by which half of the line idx falls in:
// boarding in the first half heads for the last station, boarding in the
// second half heads back for the first.
func (l *Line) HalfTerminus(idx int) *Station {
	if idx < len(l.Stations)/2 {
		return l.Last()
	}
	return l.First()
}

// Graph is the immutable station graph shared by all requests.
type Graph struct {
	name       string
	stations   []*Station
	byID       map[string]*Station
	byName     map[string]*Station
	lines      []*Line
	lineByKey  map[string]*Line
	linesOf    map[*Station][]*Line
	lineColors map[string]string
}

// Build validates data and assembles the graph. Stations served by two or
// more lines are flagged as interchanges; a station flagged as an
// interchange that sits on fewer than two lines is rejected.
func Build(d *Data) (*Graph, error) {
	if d == nil {
		return nil, errors.New("nil network data")
	}
	g := &Graph{
		name:       d.Name,
		byID:       make(map[string]*Station, len(d.Stations)),
		byName:     make(map[string]*Station, 2*len(d.Stations)),
		lineByKey:  make(map[string]*Line),
		linesOf:    make(map[*Station][]*Line),
		lineColors: make(map[string]string),
	}
	for _, sd := range d.Stations {
		if _, dup := g.byID[sd.ID]; dup {
			return nil, fmt.Errorf("duplicate station id %q", sd.ID)
		}
		s := &Station{
			ID:            sd.ID,
			Name:          sd.Name,
			NameLocal:     sd.NameLocal,
			Lat:           sd.Lat,
			Lon:           sd.Lon,
			IsInterchange: sd.Interchange,
		}
		g.stations = append(g.stations, s)
		g.byID[s.ID] = s
		for _, n := range []string{s.Name, s.NameLocal, s.ID} {
			if k := textnorm.Name(n); k != "" {
				if _, taken := g.byName[k]; !taken {
					g.byName[k] = s
				}
			}
		}
	}

	for _, ld := range d.Lines {
		if _, dup := g.lineByKey[textnorm.Code(ld.ID)]; dup {
			return nil, fmt.Errorf("duplicate line id %q", ld.ID)
		}
		l := &Line{
			ID:      ld.ID,
			Name:    ld.Name,
			Color:   ld.Color,
			Vehicle: ld.Vehicle,
			index:   make(map[*Station]int, len(ld.Stations)),
		}
		if l.Name == "" {
			l.Name = ld.ID
		}
		if l.Vehicle == "" {
			l.Vehicle = "metro"
		}
		if l.Color == "" {
			l.Color = DefaultColor
		}
		for i, id := range ld.Stations {
			s, ok := g.byID[id]
			if !ok {
				return nil, fmt.Errorf("line %s: %w %q", ld.ID, ErrUnknownStation, id)
			}
			if _, dup := l.index[s]; dup {
				return nil, fmt.Errorf("line %s: duplicate station %q", ld.ID, id)
			}
			l.index[s] = i
			l.Stations = append(l.Stations, s)
			g.linesOf[s] = append(g.linesOf[s], l)
		}
		g.lines = append(g.lines, l)
		g.lineColors[l.ID] = l.Color
		g.registerLineKeys(l)
	}

	for _, s := range g.stations {
		n := len(g.linesOf[s])
		if n >= 2 {
			s.IsInterchange = true
		} else if s.IsInterchange {
			return nil, fmt.Errorf("station %q flagged as interchange but served by %d line(s)", s.ID, n)
		}
	}
	return g, nil
}

func (g *Graph) registerLineKeys(l *Line) {
	keys := []string{textnorm.Code(l.ID), textnorm.Code(l.Name)}
	// "M1" is also reachable as "1"
	if digits := strings.TrimLeftFunc(l.ID, func(r rune) bool { return r < '0' || r > '9' }); digits != "" && digits != l.ID {
		keys = append(keys, textnorm.Code(digits))
	}
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, taken := g.lineByKey[k]; !taken {
			g.lineByKey[k] = l
		}
	}
}

// Name returns the network's display name.
func (g *Graph) Name() string { return g.name }

// Stations returns every station in declaration order.
func (g *Graph) Stations() []*Station { return g.stations }

// Lines returns every line in declaration order.
func (g *Graph) Lines() []*Line { return g.lines }

// Station looks a station up by ID.
func (g *Graph) Station(id string) (*Station, bool) {
	s, ok := g.byID[id]
	return s, ok
}

var stationSuffixes = []string{"metro station", "station", "metro", "σταθμοσ μετρο", "σταθμοσ"}

// StationByName resolves a provider supplied stop name (any case, with or
// without accents, Latin or Greek) to a station.
func (g *Graph) StationByName(name string) (*Station, bool) {
	k := textnorm.Name(name)
	if k == "" {
		return nil, false
	}
	if s, ok := g.byName[k]; ok {
		return s, true
	}
	for _, suffix := range stationSuffixes {
		if trimmed := strings.TrimSpace(strings.TrimSuffix(k, " "+suffix)); trimmed != k {
			if s, ok := g.byName[trimmed]; ok {
				return s, true
			}
		}
	}
	return nil, false
}

var linePrefixes = []string{"METROLINE", "METRO", "LINE", "ΓΡΑΜΜΗ"}

// LineByName resolves a line by ID, display name or provider short name
// ("M1", "Line 1", "1").
func (g *Graph) LineByName(name string) (*Line, bool) {
	k := textnorm.Code(name)
	if k == "" {
		return nil, false
	}
	if l, ok := g.lineByKey[k]; ok {
		return l, true
	}
	for _, p := range linePrefixes {
		if rest := strings.TrimPrefix(k, p); rest != k && rest != "" {
			if l, ok := g.lineByKey[rest]; ok {
				return l, true
			}
		}
	}
	return nil, false
}

// LineOf returns the first line in network order serving s.
func (g *Graph) LineOf(s *Station) (*Line, bool) {
	ls := g.linesOf[s]
	if len(ls) == 0 {
		return nil, false
	}
	return ls[0], true
}

// LinesOf returns every line serving s, in network order.
func (g *Graph) LinesOf(s *Station) []*Line { return g.linesOf[s] }

// SharedLine returns the first line in network order serving both a and b.
func (g *Graph) SharedLine(a, b *Station) (*Line, bool) {
	for _, l := range g.linesOf[a] {
		if l.Contains(b) {
			return l, true
		}
	}
	return nil, false
}

// NearestStation returns the candidate closest to p by great-circle
// distance. The first minimal candidate wins ties.
func (g *Graph) NearestStation(p geo.Point, candidates []*Station) (*Station, error) {
	return NearestStation(p, candidates)
}

// NearestStation is the graph independent form of Graph.NearestStation.
func NearestStation(p geo.Point, candidates []*Station) (*Station, error) {
	var best *Station
	bestDist := math.MaxFloat64
	for _, s := range candidates {
		if s == nil {
			continue
		}
		d := geo.Haversine(p.Lat, p.Lon, s.Lat, s.Lon)
		if d < bestDist {
			best, bestDist = s, d
		}
	}
	if best == nil {
		return nil, ErrNoStations
	}
	return best, nil
}

// IsOnRoute reports whether station lies between start and end (inclusive)
// on a line serving both. It is false when start and end share no line.
func (g *Graph) IsOnRoute(station, start, end *Station) bool {
	l, ok := g.SharedLine(start, end)
	if !ok {
		return false
	}
	idx, ok := l.IndexOf(station)
	if !ok {
		return false
	}
	si, _ := l.IndexOf(start)
	ei, _ := l.IndexOf(end)
	lo, hi := si, ei
	if lo > hi {
		lo, hi = hi, lo
	}
	return idx >= lo && idx <= hi
}

// FindInterchange picks the transfer station for a trip between stations on
// different lines. It returns nil when start and end already share a line or
// when no interchange connects their lines. Among candidates the one with the
// fewest combined hops wins; ties go to the first candidate in station
// declaration order.
func (g *Graph) FindInterchange(start, end *Station) *Station {
	if start == nil || end == nil {
		return nil
	}
	if _, shared := g.SharedLine(start, end); shared {
		return nil
	}
	var best *Station
	bestCost := math.MaxInt
	for _, c := range g.stations {
		if !c.IsInterchange {
			continue
		}
		for _, ls := range g.linesOf[start] {
			ci, ok := ls.IndexOf(c)
			if !ok {
				continue
			}
			si, _ := ls.IndexOf(start)
			for _, le := range g.linesOf[end] {
				cj, ok := le.IndexOf(c)
				if !ok {
					continue
				}
				ej, _ := le.IndexOf(end)
				cost := absInt(si-ci) + absInt(ej-cj)
				if cost < bestCost {
					best, bestCost = c, cost
				}
			}
		}
	}
	return best
}

// StationColor returns the colour of the station's first line, or
// DefaultColor when it is on none.
func (g *Graph) StationColor(s *Station) string {
	if l, ok := g.LineOf(s); ok {
		return l.Color
	}
	return DefaultColor
}

// LineColor returns the colour tag for a line ID.
func (g *Graph) LineColor(lineID string) string {
	if c, ok := g.lineColors[lineID]; ok {
		return c
	}
	return DefaultColor
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
