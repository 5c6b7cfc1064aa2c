// Package planner orchestrates a trip plan: it resolves the endpoints, asks
// the directions provider for alternatives, and runs the results through
// normalization, enrichment and selection.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"transit-planner/internal/clock"
	"transit-planner/internal/enrich"
	"transit-planner/internal/geo"
	"transit-planner/internal/itinerary"
	"transit-planner/internal/logging"
	"transit-planner/internal/metrosteps"
	"transit-planner/internal/network"
	"transit-planner/internal/provider"
	"transit-planner/internal/publisher"
	"transit-planner/internal/selector"
	"transit-planner/internal/timetable"
)

const DefaultCallTimeout = 10 * time.Second

var (
	ErrInvalidRequest = errors.New("invalid plan request")
	ErrUnresolved     = errors.New("location could not be resolved")
)

// Metrics receives plan and provider observations. *metrics.Collector
// satisfies it.
type Metrics interface {
	ObservePlan(policy, outcome string, d time.Duration, candidates, droppedLegs int)
	ObserveProviderCall(call, outcome string, d time.Duration)
	ObserveMetroTrip(outcome string)
}

type EventPublisher interface {
	PublishPlan(evt publisher.PlanEvent) error
}

type Request struct {
	Origin      provider.Location `json:"origin"`
	Destination provider.Location `json:"destination"`
	Policy      selector.Policy   `json:"policy"`
	// DepartAt defaults to now.
	DepartAt time.Time `json:"departAt,omitzero"`
}

type Result struct {
	PlanID      string               `json:"planId"`
	Policy      selector.Policy      `json:"policy"`
	Origin      provider.Location    `json:"origin"`
	Destination provider.Location    `json:"destination"`
	GeneratedAt time.Time            `json:"generatedAt"`
	Candidates  int                  `json:"candidates"`
	Routes      []selector.Candidate `json:"routes"`
}

type Options struct {
	// CallTimeout bounds each provider call independently.
	CallTimeout time.Duration
	// Bias is the point the primary call is biased toward. Defaults to the
	// centre of the network.
	Bias    *geo.Point
	Clock   clock.Clock
	Metrics Metrics
	Events  EventPublisher
	Logger  *slog.Logger
}

type Planner struct {
	graph    *network.Graph
	dirs     provider.Directions
	geocoder provider.Geocoder
	norm     *itinerary.Normalizer
	enricher *enrich.Enricher
	steps    *metrosteps.Generator

	timeout time.Duration
	bias    *geo.Point
	clock   clock.Clock
	metrics Metrics
	events  EventPublisher
	logger  *slog.Logger
}

// New wires a planner. geocoder may be nil, in which case text endpoints are
// passed to the directions provider unchanged.
func New(g *network.Graph, times *timetable.Lookup, dirs provider.Directions, geocoder provider.Geocoder, enricher *enrich.Enricher, opts Options) *Planner {
	p := &Planner{
		graph:    g,
		dirs:     dirs,
		geocoder: geocoder,
		enricher: enricher,
		steps:    metrosteps.New(g, times),
		timeout:  opts.CallTimeout,
		bias:     opts.Bias,
		clock:    opts.Clock,
		metrics:  opts.Metrics,
		events:   opts.Events,
		logger:   opts.Logger,
	}
	if p.timeout <= 0 {
		p.timeout = DefaultCallTimeout
	}
	if p.clock == nil {
		p.clock = clock.RealClock{}
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.bias == nil {
		p.bias = center(g)
	}
	p.norm = itinerary.NewNormalizer(g, p.logger)
	return p
}

func center(g *network.Graph) *geo.Point {
	if g == nil || len(g.Stations()) == 0 {
		return nil
	}
	var c geo.Point
	for _, s := range g.Stations() {
		c.Lat += s.Lat
		c.Lon += s.Lon
	}
	n := float64(len(g.Stations()))
	c.Lat /= n
	c.Lon /= n
	return &c
}

// Plan runs one trip plan. Provider failures degrade to an empty answer for
// that call; ErrNoRoutes is returned only when every call came back empty.
func (p *Planner) Plan(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	policy := req.Policy
	if policy == "" {
		policy = selector.Fastest
	}
	res, dropped, err := p.plan(ctx, req, policy)

	outcome := "ok"
	switch {
	case errors.Is(err, selector.ErrNoRoutes):
		outcome = "no_routes"
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrUnresolved):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	candidates := 0
	if res != nil {
		candidates = res.Candidates
	}
	if p.metrics != nil {
		p.metrics.ObservePlan(string(policy), outcome, time.Since(start), candidates, dropped)
	}
	p.publish(req, policy, res, err)

	if err != nil {
		p.logger.Info("plan failed",
			slog.String("origin", req.Origin.String()),
			slog.String("destination", req.Destination.String()),
			slog.String("policy", string(policy)),
			slog.String("error", err.Error()))
		return nil, err
	}
	logging.LogOperation(p.logger, "plan_served",
		slog.String("plan_id", res.PlanID),
		slog.String("policy", string(policy)),
		slog.Int("candidates", res.Candidates),
		slog.Int("returned", len(res.Routes)),
		slog.Duration("took", time.Since(start)))
	return res, nil
}

func (p *Planner) plan(ctx context.Context, req Request, policy selector.Policy) (*Result, int, error) {
	if req.Origin.IsZero() || req.Destination.IsZero() {
		return nil, 0, fmt.Errorf("%w: origin and destination are required", ErrInvalidRequest)
	}
	origin, err := p.resolve(ctx, req.Origin)
	if err != nil {
		return nil, 0, fmt.Errorf("origin: %w", err)
	}
	dest, err := p.resolve(ctx, req.Destination)
	if err != nil {
		return nil, 0, fmt.Errorf("destination: %w", err)
	}

	now := p.clock.Now()
	departAt := req.DepartAt
	if departAt.IsZero() {
		departAt = now
	}
	q := provider.Query{Origin: origin, Destination: dest, DepartAt: departAt, Alternatives: true}
	raws := p.fetch(ctx, q)

	its := p.norm.NormalizeAll(raws)
	dropped := 0
	for i := range its {
		its[i].ID = uuid.NewString()
		dropped += its[i].DroppedLegs
	}
	its = p.enricher.EnrichAll(its)

	routes, err := selector.Select(its, policy)
	if err != nil {
		return nil, dropped, err
	}
	return &Result{
		PlanID:      uuid.NewString(),
		Policy:      policy,
		Origin:      origin,
		Destination: dest,
		GeneratedAt: now,
		Candidates:  len(its),
		Routes:      routes,
	}, dropped, nil
}

func (p *Planner) resolve(ctx context.Context, l provider.Location) (provider.Location, error) {
	if l.Point != nil || p.geocoder == nil {
		return l, nil
	}
	pts, err := p.geocoder.Geocode(ctx, l.Text)
	if err != nil || len(pts) == 0 {
		if err == nil {
			err = provider.ErrNoResults
		}
		return l, fmt.Errorf("%w: %q: %w", ErrUnresolved, l.Text, err)
	}
	pt := pts[0]
	return provider.Location{Text: l.Text, Point: &pt}, nil
}

type call struct {
	name  string
	query provider.Query
}

// fetch issues the primary (biased) and fallback (unbiased) calls
// concurrently and merges their results, primary first.
func (p *Planner) fetch(ctx context.Context, q provider.Query) []itinerary.RawItinerary {
	primary := q
	primary.Bias = p.bias
	calls := []call{{name: "primary", query: primary}}
	if p.bias != nil {
		calls = append(calls, call{name: "fallback", query: q})
	}

	results := make([][]itinerary.RawItinerary, len(calls))
	var wg sync.WaitGroup
	for i, c := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.directions(ctx, c)
		}()
	}
	wg.Wait()

	var out []itinerary.RawItinerary
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func (p *Planner) directions(ctx context.Context, c call) []itinerary.RawItinerary {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	raws, err := p.dirs.Directions(ctx, c.query)
	outcome := "ok"
	switch {
	case err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	case len(raws) == 0:
		outcome = "empty"
	}
	if p.metrics != nil {
		p.metrics.ObserveProviderCall("directions_"+c.name, outcome, time.Since(start))
	}
	if err != nil {
		logging.LogError(p.logger, "directions call failed", err,
			slog.String("call", c.name),
			slog.String("outcome", outcome))
		return nil
	}
	return raws
}

func (p *Planner) publish(req Request, policy selector.Policy, res *Result, err error) {
	if p.events == nil {
		return
	}
	evt := publisher.PlanEvent{
		Timestamp:   p.clock.Now(),
		Origin:      req.Origin.String(),
		Destination: req.Destination.String(),
		Policy:      string(policy),
	}
	if err != nil {
		evt.PlanID = uuid.NewString()
		evt.Error = err.Error()
	} else {
		evt.PlanID = res.PlanID
		evt.Candidates = res.Candidates
		evt.Returned = len(res.Routes)
		if len(res.Routes) > 0 {
			evt.TotalMinutes = res.Routes[0].Metrics.TotalMinutes
			evt.Lines = res.Routes[0].Itinerary.Lines
		}
	}
	if perr := p.events.PublishPlan(evt); perr != nil {
		p.logger.Warn("publish plan event failed", slog.String("plan_id", evt.PlanID), slog.String("error", perr.Error()))
	}
}

// MetroTrip answers a station-to-station metro request from the graph and
// timetable alone. Stations are looked up by ID, then by name.
func (p *Planner) MetroTrip(from, to string) (metrosteps.Trip, error) {
	a, err := p.Station(from)
	if err != nil {
		p.observeMetro("unknown_station")
		return metrosteps.Trip{}, err
	}
	b, err := p.Station(to)
	if err != nil {
		p.observeMetro("unknown_station")
		return metrosteps.Trip{}, err
	}
	t := p.steps.Trip(a, b)
	switch {
	case !t.Found:
		p.observeMetro("no_route")
	case !t.Scheduled:
		p.observeMetro("unscheduled")
	default:
		p.observeMetro("ok")
	}
	return t, nil
}

func (p *Planner) observeMetro(outcome string) {
	if p.metrics != nil {
		p.metrics.ObserveMetroTrip(outcome)
	}
}

// Station resolves a station reference by ID or display name.
func (p *Planner) Station(ref string) (*network.Station, error) {
	ref = strings.TrimSpace(ref)
	if s, ok := p.graph.Station(ref); ok {
		return s, nil
	}
	if s, ok := p.graph.StationByName(ref); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", network.ErrUnknownStation, ref)
}

func (p *Planner) Graph() *network.Graph { return p.graph }
