// Package metrosteps produces turn-by-turn metro instructions between two
// stations from the station graph and timetable alone.
package metrosteps

import (
	"fmt"
	"time"

	"transit-planner/internal/network"
	"transit-planner/internal/timetable"
)

type Kind string

const (
	Enter    Kind = "enter"
	Ride     Kind = "ride"
	ChangeAt Kind = "change"
	Exit     Kind = "exit"
	Arrive   Kind = "arrive"
	NoRoute  Kind = "no_route"
)

type Step struct {
	Kind        Kind   `json:"kind"`
	Instruction string `json:"instruction"`
	StationID   string `json:"stationId,omitempty"`
	Station     string `json:"station,omitempty"`
	Line        string `json:"line,omitempty"`
	LineColor   string `json:"lineColor,omitempty"`
	Toward      string `json:"toward,omitempty"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Stops       int    `json:"stops,omitempty"`
	// Minutes is nil when the schedule has no time for the ride.
	Minutes *int `json:"minutes,omitempty"`
}

// Trip is a generated step list with its scheduled total.
type Trip struct {
	Steps       []Step        `json:"steps"`
	Interchange string        `json:"interchange,omitempty"`
	Duration    time.Duration `json:"-"`
	// Scheduled is false when any ride lacks schedule data; Duration then
	// covers only the known rides.
	Scheduled bool `json:"scheduled"`
	Found     bool `json:"found"`
}

type Generator struct {
	graph *network.Graph
	times *timetable.Lookup
}

func New(g *network.Graph, times *timetable.Lookup) *Generator {
	return &Generator{graph: g, times: times}
}

// Generate returns the instruction steps for a metro trip from start to end.
func (g *Generator) Generate(start, end *network.Station) []Step {
	return g.Trip(start, end).Steps
}

// Trip returns the steps together with the scheduled duration. Steps run
// Enter, Ride, Exit, Arrive on one line, and Enter, Ride, ChangeAt, Ride,
// Exit, Arrive across two. Without a usable interchange the list ends with a
// NoRoute step after Enter.
func (g *Generator) Trip(start, end *network.Station) Trip {
	t := Trip{Scheduled: true, Found: true}
	if start == end {
		t.Steps = []Step{arriveStep(end)}
		return t
	}
	t.Steps = append(t.Steps, Step{
		Kind:        Enter,
		Instruction: fmt.Sprintf("Enter %s station", start.Name),
		StationID:   start.ID,
		Station:     start.Name,
		LineColor:   g.graph.StationColor(start),
	})

	if line, ok := g.graph.SharedLine(start, end); ok {
		g.ride(&t, line, start, end)
	} else {
		ic := g.graph.FindInterchange(start, end)
		if ic == nil {
			t.Found, t.Scheduled = false, false
			t.Steps = append(t.Steps, Step{
				Kind:        NoRoute,
				Instruction: fmt.Sprintf("No direct metro route from %s to %s", start.Name, end.Name),
				From:        start.Name,
				To:          end.Name,
			})
			return t
		}
		t.Interchange = ic.ID
		first, _ := g.graph.SharedLine(start, ic)
		second, _ := g.graph.SharedLine(ic, end)
		g.ride(&t, first, start, ic)
		t.Steps = append(t.Steps, Step{
			Kind:        ChangeAt,
			Instruction: fmt.Sprintf("Change at %s to %s", ic.Name, second.Name),
			StationID:   ic.ID,
			Station:     ic.Name,
			Line:        second.ID,
			LineColor:   second.Color,
		})
		t.Duration += timetable.InterchangePenalty
		g.ride(&t, second, ic, end)
	}

	t.Steps = append(t.Steps,
		Step{
			Kind:        Exit,
			Instruction: fmt.Sprintf("Exit at %s", end.Name),
			StationID:   end.ID,
			Station:     end.Name,
		},
		arriveStep(end),
	)
	t.Steps = dropRepeatedExits(t.Steps)
	return t
}

func (g *Generator) ride(t *Trip, line *network.Line, from, to *network.Station) {
	fi, _ := line.IndexOf(from)
	ti, _ := line.IndexOf(to)
	toward := line.TerminusToward(fi, ti)
	stops := ti - fi
	if stops < 0 {
		stops = -stops
	}
	s := Step{
		Kind:        Ride,
		Instruction: fmt.Sprintf("Take %s toward %s, %d %s to %s", line.Name, toward.Name, stops, plural(stops, "stop", "stops"), to.Name),
		Line:        line.ID,
		LineColor:   line.Color,
		Toward:      toward.Name,
		From:        from.Name,
		To:          to.Name,
		Stops:       stops,
	}
	if g.times != nil {
		if d, err := g.times.OnLine(line, from, to); err == nil {
			m := int(d / time.Minute)
			s.Minutes = &m
			t.Duration += d
		} else {
			t.Scheduled = false
		}
	} else {
		t.Scheduled = false
	}
	t.Steps = append(t.Steps, s)
}

func arriveStep(s *network.Station) Step {
	return Step{
		Kind:        Arrive,
		Instruction: fmt.Sprintf("Arrive at %s", s.Name),
		StationID:   s.ID,
		Station:     s.Name,
	}
}

// dropRepeatedExits removes an Exit at a station that an earlier Arrive
// step already named.
func dropRepeatedExits(steps []Step) []Step {
	arrived := map[string]bool{}
	out := steps[:0]
	for _, s := range steps {
		if s.Kind == Exit && arrived[s.StationID] {
			continue
		}
		if s.Kind == Arrive {
			arrived[s.StationID] = true
		}
		out = append(out, s)
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
