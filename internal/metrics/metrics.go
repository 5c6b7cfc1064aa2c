package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	PlanRequests *prometheus.CounterVec // policy, outcome: ok|no_routes|invalid|error
	PlanDuration prometheus.Histogram
	Candidates   prometheus.Histogram
	DroppedLegs  prometheus.Counter

	ProviderCalls   *prometheus.CounterVec // call: directions_primary|directions_fallback, outcome: ok|empty|error|timeout
	ProviderLatency *prometheus.HistogramVec

	MetroTrips *prometheus.CounterVec // outcome: ok|unscheduled|no_route|unknown_station

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	FeedVehicles     prometheus.Gauge
	FeedTickDuration prometheus.Histogram

	NetworkStations prometheus.Gauge
	NetworkLines    prometheus.Gauge
}

func NewCollector(stations, lines int) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		PlanRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_plan_requests_total",
			Help: "Trip plan requests by policy and outcome.",
		}, []string{"policy", "outcome"}),
		PlanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "planner_plan_duration_seconds",
			Help:    "End to end duration of trip planning.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		Candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "planner_candidates",
			Help:    "Candidate itineraries per plan after merging provider calls.",
			Buckets: prometheus.LinearBuckets(0, 1, 10),
		}),
		DroppedLegs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_dropped_legs_total",
			Help: "Provider legs dropped during normalization.",
		}),
		ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_provider_calls_total",
			Help: "Directions provider calls by call and outcome.",
		}, []string{"call", "outcome"}),
		ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "planner_provider_latency_seconds",
			Help:    "Directions provider call latency.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"call"}),
		MetroTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_metro_trips_total",
			Help: "Metro step generations by outcome.",
		}, []string{"outcome"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planner_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "planner_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "planner_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		FeedVehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "planner_feed_vehicles",
			Help: "Simulated vehicles published on the last feed tick.",
		}),
		FeedTickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "planner_feed_tick_duration_seconds",
			Help:    "Duration of simulated feed ticks.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		NetworkStations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "planner_network_stations",
			Help: "Stations in the loaded network.",
		}),
		NetworkLines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "planner_network_lines",
			Help: "Lines in the loaded network.",
		}),
	}

	reg.MustRegister(
		c.PlanRequests, c.PlanDuration, c.Candidates, c.DroppedLegs,
		c.ProviderCalls, c.ProviderLatency, c.MetroTrips,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.FeedVehicles, c.FeedTickDuration,
		c.NetworkStations, c.NetworkLines,
	)

	c.NetworkStations.Set(float64(stations))
	c.NetworkLines.Set(float64(lines))

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()
	logger.Info("metrics listening", slog.String("addr", addr))
	return srv
}

// The methods below let the collector stand in for the narrow metrics
// interfaces of the planner, publisher and feed. All are nil-safe.

func (c *Collector) NATSPublishedInc() {
	if c != nil {
		c.NATSPublished.Inc()
	}
}

func (c *Collector) NATSPublishErrInc() {
	if c != nil {
		c.NATSPublishErrs.Inc()
	}
}

func (c *Collector) PublishObserve(d time.Duration) {
	if c != nil {
		c.PublishDuration.Observe(d.Seconds())
	}
}

func (c *Collector) NATSSetConnected(connected bool) {
	if c == nil {
		return
	}
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func (c *Collector) ObservePlan(policy, outcome string, d time.Duration, candidates, droppedLegs int) {
	if c == nil {
		return
	}
	c.PlanRequests.WithLabelValues(policy, outcome).Inc()
	c.PlanDuration.Observe(d.Seconds())
	c.Candidates.Observe(float64(candidates))
	c.DroppedLegs.Add(float64(droppedLegs))
}

func (c *Collector) ObserveProviderCall(call, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.ProviderCalls.WithLabelValues(call, outcome).Inc()
	c.ProviderLatency.WithLabelValues(call).Observe(d.Seconds())
}

func (c *Collector) ObserveMetroTrip(outcome string) {
	if c != nil {
		c.MetroTrips.WithLabelValues(outcome).Inc()
	}
}

func (c *Collector) ObserveFeedTick(vehicles int, d time.Duration) {
	if c == nil {
		return
	}
	c.FeedVehicles.Set(float64(vehicles))
	c.FeedTickDuration.Observe(d.Seconds())
}
