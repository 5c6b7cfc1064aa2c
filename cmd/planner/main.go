package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transit-planner/internal/clock"
	"transit-planner/internal/config"
	"transit-planner/internal/db"
	"transit-planner/internal/enrich"
	"transit-planner/internal/httpapi"
	"transit-planner/internal/logging"
	"transit-planner/internal/metrics"
	"transit-planner/internal/network"
	"transit-planner/internal/planner"
	"transit-planner/internal/provider"
	"transit-planner/internal/publisher"
	"transit-planner/internal/sim"
	"transit-planner/internal/timetable"
)

func main() {
	importVersion := flag.String("import", "", "store the configured network in DATABASE_URL under this version and exit")
	flag.Parse()

	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	slog.SetDefault(logger)

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *importVersion != "" {
		if err := importNetwork(ctx, cfg, *importVersion, logger); err != nil {
			logging.LogError(logger, "network import failed", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, logger); err != nil {
		logging.LogError(logger, "planner stopped", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	data, err := loadNetwork(ctx, cfg, logger)
	if err != nil {
		return err
	}
	g, err := network.Build(data)
	if err != nil {
		return err
	}
	times := timetable.New(g, data.Schedule, logger)
	logger.Info("network loaded",
		slog.String("network", g.Name()),
		slog.String("source", cfg.NetworkSource),
		slog.Int("stations", len(g.Stations())),
		slog.Int("lines", len(g.Lines())))

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(len(g.Stations()), len(g.Lines()))
		srv := mcol.Serve(cfg.MetricsAddr, logger)
		defer shutdown(srv)
	}

	var pub *publisher.NATSPublisher
	if cfg.NATSURL != "" {
		pub, err = publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, mcol, logger)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer pub.Close()
	}

	clk := clock.RealClock{}
	tables := enrich.DefaultTables()
	enricher := enrich.New(clk, cfg.Location, tables, enrich.FareConfig{Amount: cfg.FareAmount, Currency: cfg.FareCurrency})

	var dirs provider.Directions
	var geocoder provider.Geocoder = provider.NewStaticGeocoder(g)
	switch cfg.DirectionsProvider {
	case "http":
		client := provider.NewHTTPClient(cfg.DirectionsURL, cfg.GeocodeURL, cfg.DirectionsAPIKey, cfg.ProviderTimeout, logger)
		dirs = client
		if cfg.GeocodeURL != "" {
			geocoder = client
		}
	default:
		dirs = provider.NewSimulated(g, times, clk, cfg.SimSeed)
	}

	opts := planner.Options{CallTimeout: cfg.ProviderTimeout, Clock: clk, Metrics: mcol, Logger: logger}
	if pub != nil {
		opts.Events = pub
	}
	p := planner.New(g, times, dirs, geocoder, enricher, opts)
	board := sim.NewBoard(g, times, tables, clk, cfg.Location, cfg.SimSeed)

	if pub != nil {
		if _, err := pub.Serve("plan", planResponder(ctx, p)); err != nil {
			return err
		}
		feed := sim.NewFeed(board, pub, cfg.FeedInterval, mcol, logger)
		feed.Start(ctx)
		defer feed.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewServer(p, board, logger).Router(cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// Block until context cancelled or the server fails
	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	shutdown(srv)
	return nil
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func loadNetwork(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*network.Data, error) {
	switch cfg.NetworkSource {
	case "file":
		return network.LoadFile(cfg.NetworkFile)
	case "gtfs":
		return network.LoadGTFS(cfg.GTFSPath, cfg.GTFSRoutes)
	case "sql":
		store, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		defer store.Close()
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("db ping: %w", err)
		}
		version, err := store.ResolveLatestNetworkVersion(ctx, cfg.City)
		if err != nil {
			return nil, err
		}
		logger.Info("using stored network", slog.String("version", version), slog.String("city", cfg.City))
		return store.FetchNetwork(ctx, version)
	}
	return network.Embedded()
}

func importNetwork(ctx context.Context, cfg *config.Config, version string, logger *slog.Logger) error {
	if cfg.NetworkSource == "sql" {
		return errors.New("import reads from NETWORK_SOURCE, which must not be sql")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for import")
	}
	data, err := loadNetwork(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if _, err := network.Build(data); err != nil {
		return err
	}
	store, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	if err := store.SaveNetwork(ctx, version, cfg.City, data, time.Now()); err != nil {
		return err
	}
	logging.LogOperation(logger, "network_imported",
		slog.String("version", version),
		slog.String("city", cfg.City),
		slog.Int("stations", len(data.Stations)))
	return nil
}

// planResponder answers NATS plan requests with the same JSON the HTTP API
// returns.
func planResponder(ctx context.Context, p *planner.Planner) publisher.RequestHandler {
	return func(payload []byte) ([]byte, error) {
		var req planner.Request
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("decode plan request: %w", err)
		}
		res, err := p.Plan(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	}
}
