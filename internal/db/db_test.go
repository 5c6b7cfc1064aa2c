package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-planner/internal/network"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.Ping(context.Background()))
	require.NoError(t, d.Migrate(context.Background()))
	return d
}

func TestDriverFor(t *testing.T) {
	assert.Equal(t, DriverPostgres, DriverFor("postgres://u@h:5432/db"))
	assert.Equal(t, DriverPostgres, DriverFor("postgresql://u@h/db"))
	assert.Equal(t, DriverPostgres, DriverFor("host=localhost dbname=transit"))
	assert.Equal(t, DriverSQLite, DriverFor(":memory:"))
	assert.Equal(t, DriverSQLite, DriverFor("file:network.db?cache=shared"))
	assert.Equal(t, DriverSQLite, DriverFor("sqlite://network.db"))

	_, err := Open("  ")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &DB{Driver: DriverPostgres}
	lite := &DB{Driver: DriverSQLite}
	q := `SELECT a FROM t WHERE b = $1 AND c = $12`
	assert.Equal(t, q, pg.rebind(q))
	assert.Equal(t, `SELECT a FROM t WHERE b = ? AND c = ?`, lite.rebind(q))
}

func TestNetworkRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := openMemory(t)
	want, err := network.Embedded()
	require.NoError(t, err)

	require.NoError(t, d.SaveNetwork(ctx, "athens-2024-01", "Athens", want, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	// migrating twice is harmless
	require.NoError(t, d.Migrate(ctx))

	got, err := d.FetchNetwork(ctx, "athens-2024-01")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	g, err := network.Build(got)
	require.NoError(t, err)
	assert.Len(t, g.Lines(), 3)

	_, err = d.FetchNetwork(ctx, "missing")
	assert.ErrorContains(t, err, "not found")

	err = d.SaveNetwork(ctx, "athens-2024-01", "Athens", want, time.Now())
	assert.Error(t, err, "versions are unique")
}

func TestScheduleGaps(t *testing.T) {
	ctx := context.Background()
	d := openMemory(t)
	data := &network.Data{
		Name: "Tiny",
		Stations: []network.StationData{
			{ID: "a", Name: "A", Lat: 37.9, Lon: 23.7},
			{ID: "b", Name: "B", Lat: 37.91, Lon: 23.71},
			{ID: "c", Name: "C", Lat: 37.92, Lon: 23.72},
		},
		Lines: []network.LineData{{ID: "L1", Name: "Line 1", Color: "#123456", Stations: []string{"a", "b", "c"}}},
		Schedule: []network.ScheduleData{
			{Line: "L1", Forward: []int{0, -1, 6}},
		},
	}
	require.NoError(t, d.SaveNetwork(ctx, "tiny-1", "tiny", data, time.Now()))

	got, err := d.FetchNetwork(ctx, "tiny-1")
	require.NoError(t, err)
	require.Len(t, got.Schedule, 1)
	assert.Equal(t, []int{0, -1, 6}, got.Schedule[0].Forward)
	assert.Nil(t, got.Schedule[0].Backward)
}

func TestResolveLatestNetworkVersion(t *testing.T) {
	ctx := context.Background()
	d := openMemory(t)
	data, err := network.Embedded()
	require.NoError(t, err)

	require.NoError(t, d.SaveNetwork(ctx, "athens-old", "Athens", data, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, d.SaveNetwork(ctx, "athens-new", "Athens", data, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, d.SaveNetwork(ctx, "thessaloniki-1", "Thessaloniki", data, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	v, err := d.ResolveLatestNetworkVersion(ctx, "athens")
	require.NoError(t, err)
	assert.Equal(t, "athens-new", v)

	v, err = d.ResolveLatestNetworkVersion(ctx, "THESS")
	require.NoError(t, err)
	assert.Equal(t, "thessaloniki-1", v)

	_, err = d.ResolveLatestNetworkVersion(ctx, "patras")
	assert.ErrorContains(t, err, "no network found")

	_, err = d.ResolveLatestNetworkVersion(ctx, " ")
	assert.Error(t, err)
}
