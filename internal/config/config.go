package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string `validate:"required"`
	MetricsAddr string
	CORSOrigins []string

	// NATSURL empty disables plan events, the vehicle feed and the NATS
	// plan responder.
	NATSURL           string `validate:"omitempty,url"`
	NATSSubjectPrefix string `validate:"required"`
	LogNATSSubjects   bool
	FeedInterval      time.Duration `validate:"gte=0"`

	NetworkSource string `validate:"oneof=embedded file gtfs sql"`
	NetworkFile   string `validate:"required_if=NetworkSource file"`
	GTFSPath      string `validate:"required_if=NetworkSource gtfs"`
	GTFSRoutes    []string
	DatabaseURL   string `validate:"required_if=NetworkSource sql"`
	City          string

	DirectionsProvider string `validate:"oneof=simulated http"`
	DirectionsURL      string `validate:"required_if=DirectionsProvider http"`
	GeocodeURL         string `validate:"omitempty,url"`
	DirectionsAPIKey   string
	ProviderTimeout    time.Duration `validate:"gt=0"`

	Location     *time.Location
	FareAmount   float64 `validate:"gte=0"`
	FareCurrency string  `validate:"len=3"`
	SimSeed      uint64

	LogLevel  string `validate:"oneof=debug info warn warning error"`
	LogFormat string `validate:"oneof=text json"`
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:           getenvDefault("HTTP_ADDR", ":8080"),
		MetricsAddr:        os.Getenv("METRICS_ADDR"),
		CORSOrigins:        splitList(getenvDefault("CORS_ORIGINS", "*")),
		NATSURL:            os.Getenv("NATS_URL"),
		NATSSubjectPrefix:  strings.TrimSpace(getenvDefault("NATS_SUBJECT_PREFIX", "transit")),
		LogNATSSubjects:    parseBool(os.Getenv("LOG_NATS_SUBJECTS")),
		NetworkSource:      strings.ToLower(getenvDefault("NETWORK_SOURCE", "embedded")),
		NetworkFile:        os.Getenv("NETWORK_FILE"),
		GTFSPath:           os.Getenv("GTFS_PATH"),
		GTFSRoutes:         splitList(os.Getenv("GTFS_ROUTES")),
		City:               firstNonEmpty(os.Getenv("NETWORK_CITY"), os.Getenv("CITY"), "athens"),
		DirectionsProvider: strings.ToLower(getenvDefault("DIRECTIONS_PROVIDER", "simulated")),
		DirectionsURL:      os.Getenv("DIRECTIONS_URL"),
		GeocodeURL:         os.Getenv("GEOCODE_URL"),
		DirectionsAPIKey:   os.Getenv("DIRECTIONS_API_KEY"),
		FareCurrency:       strings.ToUpper(getenvDefault("FARE_CURRENCY", "EUR")),
		LogLevel:           strings.ToLower(getenvDefault("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getenvDefault("LOG_FORMAT", "text")),
	}
	cfg.DatabaseURL = databaseURL()

	var err error
	if cfg.ProviderTimeout, err = millis("PROVIDER_TIMEOUT_MS", 10*time.Second); err != nil {
		return nil, err
	}
	// Vehicle feed interval; 0 disables the feed.
	if cfg.FeedInterval, err = millis("FEED_INTERVAL_MS", 5*time.Second); err != nil {
		return nil, err
	}

	cfg.FareAmount = 1.20
	if v := os.Getenv("FARE_AMOUNT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid FARE_AMOUNT: %q", v)
		}
		cfg.FareAmount = f
	}

	cfg.SimSeed = 1
	if v := os.Getenv("SIM_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SIM_SEED: %q", v)
		}
		cfg.SimSeed = n
	}

	// Time zone
	tzName := getenvDefault("TZ", "Europe/Athens")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ: %v", err)
	}
	cfg.Location = loc

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// databaseURL prefers DATABASE_URL / PG_DSN, else builds a DSN from the PG*
// variables when PGDATABASE is set.
func databaseURL() string {
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")); dsn != "" {
		return dsn
	}
	db := os.Getenv("PGDATABASE")
	if db == "" {
		return ""
	}
	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
}

func millis(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
