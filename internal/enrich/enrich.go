// Package enrich derives rider-facing classifications for normalized
// itineraries: reliability, frequency, crowding, fare, accessibility,
// alternative lines and environmental impact.
//
// Enrich is a pure function of the itinerary and the injected clock.
package enrich

import (
	"time"

	"transit-planner/internal/clock"
	"transit-planner/internal/itinerary"
)

// Thresholds. Wait values are minutes.
const (
	veryHighMaxTransitions = 1
	veryHighMaxWait        = 5
	highMaxTransitions     = 2
	highMaxWait            = 10
	mediumMaxTransitions   = 4
	mediumMaxWait          = 15

	frequencyHighRatio   = 0.7
	frequencyMediumRatio = 0.4

	crowdHighMaxWait   = 5
	crowdMediumMaxWait = 10
)

type FareConfig struct {
	Amount   float64
	Currency string
}

// DefaultFare is the single integrated ticket price.
var DefaultFare = FareConfig{Amount: 1.20, Currency: "EUR"}

type Enricher struct {
	clock  clock.Clock
	loc    *time.Location
	tables Tables
	fare   FareConfig
}

// New builds an Enricher. A nil clock reads the system clock and a nil
// location uses time.Local.
func New(c clock.Clock, loc *time.Location, tables Tables, fare FareConfig) *Enricher {
	if c == nil {
		c = clock.RealClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Enricher{clock: c, loc: loc, tables: tables, fare: fare}
}

// EnrichAll enriches every itinerary against a single clock reading.
func (e *Enricher) EnrichAll(its []itinerary.Itinerary) []itinerary.Itinerary {
	now := e.clock.Now().In(e.loc)
	out := make([]itinerary.Itinerary, len(its))
	for i, it := range its {
		out[i] = e.at(it, now)
	}
	return out
}

// Enrich returns a copy of it with step and itinerary extras filled in.
func (e *Enricher) Enrich(it itinerary.Itinerary) itinerary.Itinerary {
	return e.at(it, e.clock.Now().In(e.loc))
}

func (e *Enricher) at(it itinerary.Itinerary, now time.Time) itinerary.Itinerary {
	steps := make([]itinerary.Step, len(it.Steps))
	copy(steps, it.Steps)
	it.Steps = steps

	for i := range it.Steps {
		it.Steps[i].Extras = e.stepExtras(it.Steps[i], now)
	}

	legs := it.TransitLegs()
	avgWait := 0
	if legs > 0 {
		avgWait = it.WaitSeconds / 60 / legs
	}
	x := &itinerary.Extras{
		Reliability:      e.reliability(it.Transitions(), avgWait, legs, it.Lines),
		Frequency:        e.frequency(it.Lines),
		ExpectedCrowding: ExpectedCrowding(now),
		Fare:             e.itineraryFare(it),
		Impact:           Impact(it.WalkSteps(), legs),
	}
	if legs == 0 {
		x.Crowd = itinerary.CrowdLow
	} else {
		x.Crowd = CrowdLevel(now, avgWait)
	}
	for _, s := range it.Steps {
		if s.Extras != nil && s.Extras.Accessible {
			x.Accessible = true
			break
		}
	}
	it.Extras = x
	return it
}

func (e *Enricher) stepExtras(s itinerary.Step, now time.Time) *itinerary.StepExtras {
	x := &itinerary.StepExtras{WaitMinutes: s.WaitSeconds / 60}
	if !s.IsTransit() {
		x.Accessible = s.Mode == itinerary.ModeWalk
		return x
	}
	x.Accessible = e.tables.AccessibleKinds[s.Vehicle]
	x.Alternatives = e.tables.alternatives(s.Line)
	if e.tables.IsHighFrequency(s.Line) {
		x.Frequency = itinerary.FrequencyHigh
	} else {
		x.Frequency = itinerary.FrequencyLow
	}
	// ride steps share the wait and fare of their board step
	if s.Kind != itinerary.KindRide {
		x.Crowd = CrowdLevel(now, x.WaitMinutes)
		f := e.fareFor([]string{s.Vehicle})
		x.Fare = &f
	}
	return x
}

func (e *Enricher) reliability(transitions, avgWait, legs int, lines []string) itinerary.Reliability {
	if legs == 0 {
		return itinerary.ReliabilityVeryHigh
	}
	hf := false
	for _, l := range lines {
		if e.tables.IsHighFrequency(l) {
			hf = true
			break
		}
	}
	switch {
	case transitions <= veryHighMaxTransitions && avgWait <= veryHighMaxWait && hf:
		return itinerary.ReliabilityVeryHigh
	case transitions <= highMaxTransitions && avgWait <= highMaxWait:
		return itinerary.ReliabilityHigh
	case transitions <= mediumMaxTransitions && avgWait <= mediumMaxWait:
		return itinerary.ReliabilityMedium
	}
	return itinerary.ReliabilityLow
}

func (e *Enricher) frequency(lines []string) itinerary.Frequency {
	if len(lines) == 0 {
		return itinerary.FrequencyNone
	}
	hf := 0
	for _, l := range lines {
		if e.tables.IsHighFrequency(l) {
			hf++
		}
	}
	ratio := float64(hf) / float64(len(lines))
	switch {
	case ratio >= frequencyHighRatio:
		return itinerary.FrequencyHigh
	case ratio >= frequencyMediumRatio:
		return itinerary.FrequencyMedium
	}
	return itinerary.FrequencyLow
}

// IsRushHour reports whether t falls in 07:00-09:59 or 17:00-19:59.
func IsRushHour(t time.Time) bool {
	h := t.Hour()
	return (h >= 7 && h < 10) || (h >= 17 && h < 20)
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// CrowdLevel classifies expected crowding from the time of day and the wait
// in minutes. A short wait in the rush hour means a busy vehicle.
func CrowdLevel(now time.Time, waitMinutes int) itinerary.Crowd {
	switch {
	case IsRushHour(now) && waitMinutes <= crowdHighMaxWait:
		return itinerary.CrowdHigh
	case waitMinutes <= crowdMediumMaxWait:
		return itinerary.CrowdMedium
	}
	return itinerary.CrowdLow
}

// ExpectedCrowding is the day-of-week crowding text.
func ExpectedCrowding(now time.Time) string {
	switch {
	case isWeekend(now):
		return "Light: weekend service"
	case IsRushHour(now):
		return "Heavy: weekday rush hour"
	}
	return "Normal: weekday off-peak"
}

// Impact grades environmental impact from walking steps against vehicle legs.
func Impact(walkSteps, transitLegs int) itinerary.Impact {
	switch {
	case transitLegs == 0:
		return itinerary.ImpactVeryLow
	case transitLegs <= 1 && walkSteps >= transitLegs:
		return itinerary.ImpactLow
	case transitLegs <= 2:
		return itinerary.ImpactMedium
	}
	return itinerary.ImpactHigh
}

func (e *Enricher) itineraryFare(it itinerary.Itinerary) itinerary.Fare {
	var kinds []string
	for _, s := range it.Steps {
		if s.Kind == itinerary.KindBoard || s.Kind == itinerary.KindTransit {
			kinds = append(kinds, s.Vehicle)
		}
	}
	if len(kinds) == 0 {
		return itinerary.Fare{Label: "Free", Free: true, Currency: e.fare.Currency}
	}
	return e.fareFor(kinds)
}

// fareFor prices a trip with one flat ticket; only the label depends on the
// vehicle kinds used.
func (e *Enricher) fareFor(kinds []string) itinerary.Fare {
	label := ""
	for _, k := range kinds {
		l := ticketLabel(k)
		if label == "" {
			label = l
		} else if label != l {
			label = "Integrated ticket"
			break
		}
	}
	return itinerary.Fare{Label: label, Amount: e.fare.Amount, Currency: e.fare.Currency}
}

func ticketLabel(kind string) string {
	switch kind {
	case "metro":
		return "Metro ticket"
	case "bus":
		return "Bus ticket"
	case "tram":
		return "Tram ticket"
	}
	return "Transit ticket"
}
