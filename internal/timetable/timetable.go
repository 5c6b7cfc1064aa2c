// Package timetable answers scheduled travel-time questions between stations
// of the network from a static per-line, per-direction offset table.
package timetable

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"transit-planner/internal/logging"
	"transit-planner/internal/network"
)

// InterchangePenalty is added once for every change of line.
const InterchangePenalty = 4 * time.Minute

var (
	// ErrScheduleUnavailable means a station has no scheduled offset for the
	// line and direction in question. It is distinct from a zero minute trip.
	ErrScheduleUnavailable = errors.New("schedule unavailable")
	ErrNoCommonLine        = errors.New("stations share no line")
)

type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// DirectionOf gives the direction of travel from index from to index to.
func DirectionOf(from, to int) Direction {
	if to < from {
		return Backward
	}
	return Forward
}

type offsets [2]map[*network.Station]int

// Lookup is immutable after New and safe for concurrent use.
type Lookup struct {
	graph  *network.Graph
	lines  map[*network.Line]offsets
	logger *slog.Logger
}

// New indexes the schedule rows against the graph. Rows for unknown lines
// and rows whose length does not match the line are skipped with a warning;
// the affected stations then report ErrScheduleUnavailable.
func New(g *network.Graph, rows []network.ScheduleData, logger *slog.Logger) *Lookup {
	if logger == nil {
		logger = logging.Discard()
	}
	t := &Lookup{
		graph:  g,
		lines:  make(map[*network.Line]offsets, len(rows)),
		logger: logger,
	}
	for _, row := range rows {
		line, ok := g.LineByName(row.Line)
		if !ok {
			logger.Warn("schedule row for unknown line", slog.String("line", row.Line))
			continue
		}
		o := t.lines[line]
		for dir, mins := range [2][]int{row.Forward, row.Backward} {
			if len(mins) == 0 {
				continue
			}
			if len(mins) != len(line.Stations) {
				logger.Warn("schedule row length mismatch",
					slog.String("line", line.ID),
					slog.String("direction", Direction(dir).String()),
					slog.Int("stations", len(line.Stations)),
					slog.Int("offsets", len(mins)))
				continue
			}
			m := make(map[*network.Station]int, len(mins))
			for i, v := range mins {
				if v >= 0 {
					m[line.Stations[i]] = v
				}
			}
			o[dir] = m
		}
		t.lines[line] = o
	}
	return t
}

// Graph returns the graph the table was built against.
func (t *Lookup) Graph() *network.Graph { return t.graph }

// TravelTime returns the scheduled ride time between two stations on a
// common line. The line is the first one in network order serving both.
func (t *Lookup) TravelTime(start, end *network.Station) (time.Duration, error) {
	line, ok := t.graph.SharedLine(start, end)
	if !ok {
		return 0, fmt.Errorf("%s to %s: %w", start.ID, end.ID, ErrNoCommonLine)
	}
	return t.OnLine(line, start, end)
}

// OnLine is TravelTime with the line fixed by the caller.
func (t *Lookup) OnLine(line *network.Line, start, end *network.Station) (time.Duration, error) {
	si, ok1 := line.IndexOf(start)
	ei, ok2 := line.IndexOf(end)
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("%s to %s on %s: %w", start.ID, end.ID, line.ID, ErrNoCommonLine)
	}
	dir := DirectionOf(si, ei)
	table := t.lines[line][dir]
	from, ok1 := table[start]
	to, ok2 := table[end]
	if !ok1 || !ok2 {
		t.logger.Warn("schedule unavailable",
			slog.String("line", line.ID),
			slog.String("direction", dir.String()),
			slog.String("from", start.ID),
			slog.String("to", end.ID))
		return 0, fmt.Errorf("%s to %s on %s %s: %w", start.ID, end.ID, line.ID, dir, ErrScheduleUnavailable)
	}
	d := to - from
	if d < 0 {
		d = -d
	}
	return time.Duration(d) * time.Minute, nil
}

// TravelTimeWithInterchange sums both legs through interchange plus the
// fixed InterchangePenalty.
func (t *Lookup) TravelTimeWithInterchange(start, end, interchange *network.Station) (time.Duration, error) {
	first, err := t.TravelTime(start, interchange)
	if err != nil {
		return 0, err
	}
	second, err := t.TravelTime(interchange, end)
	if err != nil {
		return 0, err
	}
	return first + second + InterchangePenalty, nil
}
