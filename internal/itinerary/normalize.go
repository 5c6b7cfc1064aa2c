package itinerary

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"transit-planner/internal/logging"
	"transit-planner/internal/network"
)

// Normalizer turns provider itineraries into step sequences. The graph is
// optional; without it board steps fall back to the provider headsign.
type Normalizer struct {
	graph  *network.Graph
	logger *slog.Logger
}

func NewNormalizer(g *network.Graph, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Normalizer{graph: g, logger: logger}
}

// NormalizeAll normalizes every raw itinerary in order.
func (n *Normalizer) NormalizeAll(raws []RawItinerary) []Itinerary {
	out := make([]Itinerary, 0, len(raws))
	for _, r := range raws {
		out = append(out, n.Normalize(r))
	}
	return out
}

// Normalize never fails: legs without a usable travel mode are dropped and
// counted, everything else is carried through.
func (n *Normalizer) Normalize(raw RawItinerary) Itinerary {
	it := Itinerary{
		Summary: raw.Summary,
		Steps:   make([]Step, 0, len(raw.Legs)+2),
		Lines:   []string{},
	}
	if raw.Duration != nil {
		it.Duration = raw.Duration.Text
		it.DurationSeconds = int(raw.Duration.Value)
	}
	if raw.Distance != nil {
		it.Distance = raw.Distance.Text
		it.DistanceMeters = raw.Distance.Value
	}

	legs := make([]RawLeg, 0, len(raw.Legs))
	for i, leg := range raw.Legs {
		if _, ok := parseMode(leg.TravelMode); !ok {
			it.DroppedLegs++
			n.logger.Warn("dropping leg without usable travel mode",
				slog.Int("leg", i),
				slog.String("travel_mode", leg.TravelMode),
				slog.String("summary", raw.Summary))
			continue
		}
		legs = append(legs, leg)
	}

	cursor := departureEpoch(raw, legs)
	it.DepartureEpoch = cursor
	seenLine := map[string]bool{}
	for _, leg := range legs {
		mode, _ := parseMode(leg.TravelMode)
		secs := legSeconds(leg)

		if mode == ModeWalk {
			it.Steps = append(it.Steps, n.walkStep(leg))
			if cursor > 0 {
				cursor += int64(secs)
			}
			continue
		}

		steps := n.transitSteps(leg)
		if td := leg.Transit; td != nil && td.DepartureTime != nil && td.DepartureTime.Value > 0 && cursor > 0 {
			if wait := td.DepartureTime.Value - cursor; wait > 0 {
				steps[0].WaitSeconds = int(wait)
				it.WaitSeconds += int(wait)
			}
			cursor = td.DepartureTime.Value
		}
		if cursor > 0 {
			cursor += int64(secs)
		}
		if name := steps[0].Line; name != "" && !seenLine[name] {
			seenLine[name] = true
			it.Lines = append(it.Lines, name)
		}
		it.Steps = append(it.Steps, steps...)
	}

	switch {
	case raw.ArrivalTime != nil && raw.ArrivalTime.Value > 0:
		it.ArrivalEpoch = raw.ArrivalTime.Value
	case cursor > 0:
		it.ArrivalEpoch = cursor
	}
	return it
}

// departureEpoch is the provider's departure time, or the first scheduled
// vehicle departure minus the legs before it.
func departureEpoch(raw RawItinerary, legs []RawLeg) int64 {
	if raw.DepartureTime != nil && raw.DepartureTime.Value > 0 {
		return raw.DepartureTime.Value
	}
	var before int64
	for _, leg := range legs {
		if td := leg.Transit; td != nil && td.DepartureTime != nil && td.DepartureTime.Value > 0 {
			return td.DepartureTime.Value - before
		}
		before += int64(legSeconds(leg))
	}
	return 0
}

func parseMode(s string) (Mode, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WALKING", "WALK":
		return ModeWalk, true
	case "TRANSIT":
		return ModeTransit, true
	}
	return "", false
}

func legSeconds(leg RawLeg) int {
	if leg.Duration == nil {
		return 0
	}
	return int(leg.Duration.Value)
}

func baseStep(leg RawLeg) Step {
	s := Step{
		Start: leg.StartLocation.Point(),
		End:   leg.EndLocation.Point(),
	}
	if leg.Duration != nil {
		s.Duration = leg.Duration.Text
		s.DurationSeconds = int(leg.Duration.Value)
	}
	if leg.Distance != nil {
		s.Distance = leg.Distance.Text
		s.DistanceMeters = leg.Distance.Value
	}
	return s
}

func (n *Normalizer) walkStep(leg RawLeg) Step {
	s := baseStep(leg)
	s.Kind, s.Mode = KindWalk, ModeWalk
	text := StripMarkup(leg.HTMLInstructions)
	switch dest := Destination(text); {
	case dest != "":
		s.Instruction = "Walk to " + dest
	case text != "":
		s.Instruction = text
	default:
		s.Instruction = "Walk"
	}
	return s
}

// transitSteps returns a board and a ride step when the leg names both stops
// and a stop count, otherwise one transit step.
func (n *Normalizer) transitSteps(leg RawLeg) []Step {
	s := baseStep(leg)
	s.Mode = ModeTransit
	td := leg.Transit
	if td == nil {
		s.Kind = KindTransit
		s.Instruction = StripMarkup(leg.HTMLInstructions)
		if s.Instruction == "" {
			s.Instruction = "Take transit"
		}
		return []Step{s}
	}

	s.Line = firstNonEmpty(td.Line.ShortName, td.Line.Name)
	s.Vehicle = VehicleKind(td.Line.Vehicle.Type)
	s.DepartureStop = td.DepartureStop.Name
	s.ArrivalStop = td.ArrivalStop.Name
	s.NumStops = td.NumStops
	if td.DepartureTime != nil {
		s.DepartureText = td.DepartureTime.Text
		s.DepartureEpoch = td.DepartureTime.Value
	}
	if td.Line.Color != "" {
		s.LineColor = td.Line.Color
	} else if n.graph != nil {
		if l, ok := n.graph.LineByName(s.Line); ok {
			s.LineColor = l.Color
		}
	}
	s.Direction = n.directionLabel(td)

	if td.NumStops <= 0 || td.DepartureStop.Name == "" || td.ArrivalStop.Name == "" {
		s.Kind = KindTransit
		s.Instruction = fmt.Sprintf("Take %s", lineLabel(s.Line, s.Vehicle))
		if s.Direction != "" {
			s.Instruction += " toward " + s.Direction
		}
		return []Step{s}
	}

	board := s
	board.Kind = KindBoard
	board.Duration, board.DurationSeconds = "", 0
	board.Distance, board.DistanceMeters = "", 0
	board.End = nil
	if td.DepartureStop.Location != nil {
		board.End = td.DepartureStop.Location.Point()
	}
	board.Instruction = fmt.Sprintf("Board %s at %s", lineLabel(s.Line, s.Vehicle), td.DepartureStop.Name)
	if board.Direction != "" {
		board.Instruction += " toward " + board.Direction
	}

	ride := s
	ride.Kind = KindRide
	ride.DepartureText, ride.DepartureEpoch = "", 0
	stops := "stops"
	if td.NumStops == 1 {
		stops = "stop"
	}
	ride.Instruction = fmt.Sprintf("Ride %d %s to %s", td.NumStops, stops, td.ArrivalStop.Name)
	return []Step{board, ride}
}

// directionLabel names the terminus the vehicle is heading to. Departing from
// the first half of the line heads for its last station; departing from the
// second half heads back for its first.
func (n *Normalizer) directionLabel(td *RawTransit) string {
	if n.graph != nil {
		line, ok := n.graph.LineByName(firstNonEmpty(td.Line.ShortName, td.Line.Name))
		if ok {
			if st, ok := n.graph.StationByName(td.DepartureStop.Name); ok {
				if idx, ok := line.IndexOf(st); ok {
					return line.HalfTerminus(idx).Name
				}
			}
		}
	}
	return td.Headsign
}

func lineLabel(line, vehicle string) string {
	switch {
	case line != "" && vehicle != "":
		return vehicle + " " + line
	case line != "":
		return line
	case vehicle != "":
		return vehicle
	}
	return "transit"
}

// VehicleKind folds provider vehicle types into the kinds the planner
// distinguishes: metro, bus, tram, rail, ferry.
func VehicleKind(t string) string {
	switch strings.ToUpper(strings.TrimSpace(t)) {
	case "SUBWAY", "METRO_RAIL", "METRO":
		return "metro"
	case "BUS", "INTERCITY_BUS", "TROLLEYBUS", "SHARE_TAXI":
		return "bus"
	case "TRAM", "LIGHT_RAIL", "MONORAIL":
		return "tram"
	case "RAIL", "HEAVY_RAIL", "COMMUTER_TRAIN", "HIGH_SPEED_TRAIN", "LONG_DISTANCE_TRAIN":
		return "rail"
	case "FERRY":
		return "ferry"
	case "":
		return ""
	}
	return strings.ToLower(strings.TrimSpace(t))
}

// StripMarkup returns the visible text of an instruction fragment. Nested
// block elements hold side notes ("Destination will be on the right") and
// are dropped.
func StripMarkup(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	body := doc.Find("body")
	body.Find("div").Remove()
	return strings.Join(strings.Fields(body.Text()), " ")
}

var connectors = []string{"towards", "toward", "to"}

// Destination extracts the phrase after the first connector word:
// "Walk to Syntagma" -> "Syntagma". It returns "" when there is none.
func Destination(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		lw := strings.ToLower(w)
		for _, c := range connectors {
			if lw == c && i+1 < len(words) {
				return strings.Join(words[i+1:], " ")
			}
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
