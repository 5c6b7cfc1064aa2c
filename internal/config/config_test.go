package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"HTTP_ADDR", "METRICS_ADDR", "CORS_ORIGINS", "NATS_URL", "NATS_SUBJECT_PREFIX", "LOG_NATS_SUBJECTS",
	"FEED_INTERVAL_MS", "NETWORK_SOURCE", "NETWORK_FILE", "GTFS_PATH", "GTFS_ROUTES", "DATABASE_URL",
	"PG_DSN", "PGHOST", "PGPORT", "PGUSER", "PGPASSWORD", "PGDATABASE", "PGSSLMODE", "NETWORK_CITY", "CITY",
	"DIRECTIONS_PROVIDER", "DIRECTIONS_URL", "GEOCODE_URL", "DIRECTIONS_API_KEY", "PROVIDER_TIMEOUT_MS",
	"TZ", "FARE_AMOUNT", "FARE_CURRENCY", "SIM_SEED", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.NATSURL)
	assert.Equal(t, "transit", cfg.NATSSubjectPrefix)
	assert.Equal(t, 5*time.Second, cfg.FeedInterval)
	assert.Equal(t, "embedded", cfg.NetworkSource)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "athens", cfg.City)
	assert.Equal(t, "simulated", cfg.DirectionsProvider)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, "Europe/Athens", cfg.Location.String())
	assert.InDelta(t, 1.20, cfg.FareAmount, 1e-9)
	assert.Equal(t, "EUR", cfg.FareCurrency)
	assert.Equal(t, uint64(1), cfg.SimSeed)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("NATS_URL", "nats://127.0.0.1:4222")
	t.Setenv("LOG_NATS_SUBJECTS", "yes")
	t.Setenv("FEED_INTERVAL_MS", "0")
	t.Setenv("NETWORK_SOURCE", "GTFS")
	t.Setenv("GTFS_PATH", "/data/athens.zip")
	t.Setenv("GTFS_ROUTES", "M1,M2")
	t.Setenv("DIRECTIONS_PROVIDER", "http")
	t.Setenv("DIRECTIONS_URL", "https://maps.example/directions/json")
	t.Setenv("PROVIDER_TIMEOUT_MS", "2500")
	t.Setenv("TZ", "UTC")
	t.Setenv("FARE_AMOUNT", "2.5")
	t.Setenv("FARE_CURRENCY", "usd")
	t.Setenv("SIM_SEED", "42")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("CITY", "athens")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.LogNATSSubjects)
	assert.Zero(t, cfg.FeedInterval)
	assert.Equal(t, "gtfs", cfg.NetworkSource)
	assert.Equal(t, []string{"M1", "M2"}, cfg.GTFSRoutes)
	assert.Equal(t, "http", cfg.DirectionsProvider)
	assert.Equal(t, 2500*time.Millisecond, cfg.ProviderTimeout)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.InDelta(t, 2.5, cfg.FareAmount, 1e-9)
	assert.Equal(t, "USD", cfg.FareCurrency)
	assert.Equal(t, uint64(42), cfg.SimSeed)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "athens", cfg.City)
}

func TestLoadDatabaseURLFromPGVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("NETWORK_SOURCE", "sql")
	t.Setenv("PGHOST", "db")
	t.Setenv("PGUSER", "planner")
	t.Setenv("PGPASSWORD", "p@ss:word")
	t.Setenv("PGDATABASE", "transit")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://planner:p%40ss%3Aword@db:5432/transit?sslmode=disable", cfg.DatabaseURL)

	t.Setenv("DATABASE_URL", "file:network.db")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "file:network.db", cfg.DatabaseURL)
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown source":        {"NETWORK_SOURCE": "csv"},
		"file without path":     {"NETWORK_SOURCE": "file"},
		"gtfs without path":     {"NETWORK_SOURCE": "gtfs"},
		"sql without dsn":       {"NETWORK_SOURCE": "sql"},
		"http without url":      {"DIRECTIONS_PROVIDER": "http"},
		"unknown provider":      {"DIRECTIONS_PROVIDER": "carrier-pigeon"},
		"bad timeout":           {"PROVIDER_TIMEOUT_MS": "soon"},
		"zero timeout":          {"PROVIDER_TIMEOUT_MS": "0"},
		"negative feed":         {"FEED_INTERVAL_MS": "-5"},
		"bad fare":              {"FARE_AMOUNT": "free"},
		"negative fare":         {"FARE_AMOUNT": "-1"},
		"bad currency":          {"FARE_CURRENCY": "EURO"},
		"bad seed":              {"SIM_SEED": "-1"},
		"bad tz":                {"TZ": "Mars/Olympus"},
		"bad log format":        {"LOG_FORMAT": "xml"},
		"bad log level":         {"LOG_LEVEL": "loud"},
		"bad nats url":          {"NATS_URL": "not a url"},
		"bad geocode url":       {"GEOCODE_URL": "::"},
		"empty subject prefix":  {"NATS_SUBJECT_PREFIX": " "},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "  ", "b", "c"))
	assert.Empty(t, firstNonEmpty())
}
