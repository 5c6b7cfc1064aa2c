// Package itinerary holds the normalized trip model shared by the planning
// pipeline, and the Normalizer that builds it from provider payloads.
package itinerary

import "transit-planner/internal/geo"

type Mode string

const (
	ModeWalk    Mode = "walk"
	ModeTransit Mode = "transit"
)

// Kind distinguishes the steps a single transit leg is split into.
type Kind string

const (
	KindWalk    Kind = "walk"
	KindBoard   Kind = "board"
	KindRide    Kind = "ride"
	KindTransit Kind = "transit"
)

type Step struct {
	Kind            Kind       `json:"kind"`
	Mode            Mode       `json:"mode"`
	Instruction     string     `json:"instruction"`
	Duration        string     `json:"duration,omitempty"`
	DurationSeconds int        `json:"durationSeconds,omitempty"`
	Distance        string     `json:"distance,omitempty"`
	DistanceMeters  float64    `json:"distanceMeters,omitempty"`
	Line            string     `json:"line,omitempty"`
	LineColor       string     `json:"lineColor,omitempty"`
	Vehicle         string     `json:"vehicle,omitempty"`
	DepartureStop   string     `json:"departureStop,omitempty"`
	ArrivalStop     string     `json:"arrivalStop,omitempty"`
	Direction       string     `json:"direction,omitempty"`
	DepartureText   string     `json:"departureText,omitempty"`
	DepartureEpoch  int64      `json:"departureEpoch,omitempty"`
	NumStops        int        `json:"numStops,omitempty"`
	Start           *geo.Point `json:"start,omitempty"`
	End             *geo.Point `json:"end,omitempty"`
	WaitSeconds     int        `json:"waitSeconds,omitempty"`

	Extras *StepExtras `json:"extras,omitempty"`
}

// IsTransit reports whether the step is part of a vehicle leg.
func (s Step) IsTransit() bool { return s.Mode == ModeTransit }

type Itinerary struct {
	ID              string   `json:"id,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	Steps           []Step   `json:"steps"`
	Duration        string   `json:"duration,omitempty"`
	DurationSeconds int      `json:"durationSeconds,omitempty"`
	Distance        string   `json:"distance,omitempty"`
	DistanceMeters  float64  `json:"distanceMeters,omitempty"`
	DepartureEpoch  int64    `json:"departureEpoch,omitempty"`
	ArrivalEpoch    int64    `json:"arrivalEpoch,omitempty"`
	WaitSeconds     int      `json:"waitSeconds"`
	Lines           []string `json:"lines"`
	DroppedLegs     int      `json:"droppedLegs,omitempty"`

	Extras *Extras `json:"extras,omitempty"`
}

// Transitions counts adjacent step pairs whose mode differs.
func (it Itinerary) Transitions() int {
	n := 0
	for i := 1; i < len(it.Steps); i++ {
		if it.Steps[i].Mode != it.Steps[i-1].Mode {
			n++
		}
	}
	return n
}

// TransitLegs counts vehicle legs. A board step and its ride step are one leg.
func (it Itinerary) TransitLegs() int {
	n := 0
	for _, s := range it.Steps {
		if s.Kind == KindBoard || s.Kind == KindTransit {
			n++
		}
	}
	return n
}

// WalkSteps counts walking steps.
func (it Itinerary) WalkSteps() int {
	n := 0
	for _, s := range it.Steps {
		if s.Mode == ModeWalk {
			n++
		}
	}
	return n
}
