// Package selector ranks candidate itineraries: it computes per-itinerary
// metrics, removes duplicates and unrealistic candidates, and applies a
// selection policy.
package selector

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"transit-planner/internal/itinerary"
)

// MinRealisticMinutes is the shortest trip kept by FilterUnrealistic.
const MinRealisticMinutes = 5.0

var ErrNoRoutes = errors.New("no routes found")

type Policy string

const (
	Fastest   Policy = "fastest"
	Easiest   Policy = "easiest"
	AllRoutes Policy = "all"
)

// ParsePolicy accepts the policy names case-insensitively. An empty string
// selects Fastest.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fastest", "fast":
		return Fastest, nil
	case "easiest", "easy":
		return Easiest, nil
	case "all", "all_routes", "allroutes":
		return AllRoutes, nil
	}
	return "", fmt.Errorf("unknown policy %q", s)
}

// Metrics are recomputed per request and never stored.
type Metrics struct {
	TotalMinutes  float64 `json:"totalMinutes"`
	Transitions   int     `json:"transitions"`
	WalkingMeters float64 `json:"walkingMeters"`
}

// Candidate pairs an itinerary with its metrics.
type Candidate struct {
	Itinerary itinerary.Itinerary `json:"itinerary"`
	Metrics   Metrics             `json:"metrics"`
}

// Compute derives metrics from the step list: step durations plus the
// aggregate wait, mode changes, and walking distance from the distance text.
func Compute(it itinerary.Itinerary) Metrics {
	var m Metrics
	for _, s := range it.Steps {
		m.TotalMinutes += stepMinutes(s)
		if s.Mode == itinerary.ModeWalk {
			m.WalkingMeters += ParseDistanceMeters(s.Distance)
		}
	}
	m.TotalMinutes += float64(it.WaitSeconds) / 60
	m.Transitions = it.Transitions()
	return m
}

func stepMinutes(s itinerary.Step) float64 {
	if s.Duration != "" {
		if m, ok := ParseDurationMinutes(s.Duration); ok {
			return m
		}
	}
	return float64(s.DurationSeconds) / 60
}

var (
	hoursRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h)\b`)
	minutesRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:minutes?|mins?|m)\b`)
	metersRe  = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*(km|m)\b`)
)

// ParseDurationMinutes reads provider duration text such as "12 mins",
// "1 hour 5 mins" or "1 h 5 min". A bare number is taken as minutes.
func ParseDurationMinutes(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	var total float64
	found := false
	for _, match := range hoursRe.FindAllStringSubmatch(s, -1) {
		v, _ := strconv.ParseFloat(match[1], 64)
		total += v * 60
		found = true
	}
	for _, match := range minutesRe.FindAllStringSubmatch(s, -1) {
		v, _ := strconv.ParseFloat(match[1], 64)
		total += v
		found = true
	}
	return total, found
}

// ParseDistanceMeters reads "350 m" or "1.2 km". Anything else counts as 0.
func ParseDistanceMeters(s string) float64 {
	match := metersRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if match == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64)
	if err != nil {
		return 0
	}
	if match[2] == "km" {
		v *= 1000
	}
	return v
}

// Signature identifies itineraries that look the same to a rider.
func Signature(c Candidate) string {
	var b strings.Builder
	for _, s := range c.Itinerary.Steps {
		fmt.Fprintf(&b, "%s|%s|%s|%s;", s.Mode, s.Duration, s.Line, s.Vehicle)
	}
	fmt.Fprintf(&b, "%.2f|%d", c.Metrics.TotalMinutes, c.Metrics.Transitions)
	return b.String()
}

// Candidates computes metrics for each itinerary in order.
func Candidates(its []itinerary.Itinerary) []Candidate {
	out := make([]Candidate, len(its))
	for i, it := range its {
		out[i] = Candidate{Itinerary: it, Metrics: Compute(it)}
	}
	return out
}

// Dedupe keeps the first candidate of each signature.
func Dedupe(cs []Candidate) []Candidate {
	seen := make(map[string]bool, len(cs))
	out := make([]Candidate, 0, len(cs))
	for _, c := range cs {
		sig := Signature(c)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, c)
	}
	return out
}

// FilterUnrealistic drops candidates shorter than MinRealisticMinutes. When
// that would leave nothing the input is returned unchanged.
func FilterUnrealistic(cs []Candidate) []Candidate {
	out := make([]Candidate, 0, len(cs))
	for _, c := range cs {
		if c.Metrics.TotalMinutes >= MinRealisticMinutes {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return cs
	}
	return out
}

// Select runs the whole ranking pipeline. Fastest and Easiest return exactly
// one candidate; AllRoutes returns every surviving candidate in input order.
func Select(its []itinerary.Itinerary, policy Policy) ([]Candidate, error) {
	if len(its) == 0 {
		return nil, ErrNoRoutes
	}
	cs := FilterUnrealistic(Dedupe(Candidates(its)))

	switch policy {
	case Fastest:
		best := 0
		for i := 1; i < len(cs); i++ {
			if cs[i].Metrics.TotalMinutes < cs[best].Metrics.TotalMinutes {
				best = i
			}
		}
		return cs[best : best+1], nil
	case Easiest:
		best := 0
		for i := 1; i < len(cs); i++ {
			if easier(cs[i].Metrics, cs[best].Metrics) {
				best = i
			}
		}
		return cs[best : best+1], nil
	case AllRoutes:
		return cs, nil
	}
	return nil, fmt.Errorf("unknown policy %q", policy)
}

func easier(a, b Metrics) bool {
	if a.Transitions != b.Transitions {
		return a.Transitions < b.Transitions
	}
	if a.WalkingMeters != b.WalkingMeters {
		return a.WalkingMeters < b.WalkingMeters
	}
	return a.TotalMinutes < b.TotalMinutes
}

// Rank orders candidates by policy without dropping any. AllRoutes keeps
// input order.
func Rank(cs []Candidate, policy Policy) []Candidate {
	out := append([]Candidate(nil), cs...)
	switch policy {
	case Fastest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Metrics.TotalMinutes < out[j].Metrics.TotalMinutes })
	case Easiest:
		sort.SliceStable(out, func(i, j int) bool { return easier(out[i].Metrics, out[j].Metrics) })
	}
	return out
}
