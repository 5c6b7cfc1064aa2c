package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"transit-planner/internal/network"
)

// ResolveLatestNetworkVersion returns the most recently imported version
// whose city matches city (case-insensitive substring).
func (d *DB) ResolveLatestNetworkVersion(ctx context.Context, city string) (string, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return "", fmt.Errorf("city is required")
	}
	q := d.rebind(`
SELECT version
FROM network_versions
WHERE LOWER(city) LIKE '%' || LOWER($1) || '%'
ORDER BY imported_at DESC
LIMIT 1`)
	var version sql.NullString
	if err := d.QueryRowContext(ctx, q, city).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("no network found for city like %q", city)
		}
		return "", err
	}
	if !version.Valid || version.String == "" {
		return "", fmt.Errorf("empty version for city like %q", city)
	}
	return version.String, nil
}

// FetchNetwork reads one network version back into Data. The result is
// validated the same way packaged data is.
func (d *DB) FetchNetwork(ctx context.Context, version string) (*network.Data, error) {
	data := &network.Data{}
	err := d.QueryRowContext(ctx, d.rebind(`SELECT name FROM network_versions WHERE version = $1`), version).Scan(&data.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("network version %q not found", version)
		}
		return nil, fmt.Errorf("query version: %w", err)
	}

	if data.Stations, err = d.fetchStations(ctx, version); err != nil {
		return nil, err
	}
	if data.Lines, err = d.fetchLines(ctx, version); err != nil {
		return nil, err
	}
	if data.Schedule, err = d.fetchSchedule(ctx, version); err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return data, nil
}

func (d *DB) fetchStations(ctx context.Context, version string) ([]network.StationData, error) {
	rows, err := d.QueryContext(ctx, d.rebind(`
SELECT station_id, name, name_local, lat, lon, is_interchange
FROM stations WHERE version = $1 ORDER BY sort_order`), version)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer rows.Close()
	var out []network.StationData
	for rows.Next() {
		var s network.StationData
		if err := rows.Scan(&s.ID, &s.Name, &s.NameLocal, &s.Lat, &s.Lon, &s.Interchange); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *DB) fetchLines(ctx context.Context, version string) ([]network.LineData, error) {
	rows, err := d.QueryContext(ctx, d.rebind(`
SELECT l.line_id, l.name, l.color, l.vehicle, ls.station_id
FROM lines l
JOIN line_stations ls ON ls.version = l.version AND ls.line_id = l.line_id
WHERE l.version = $1
ORDER BY l.sort_order, ls.seq`), version)
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()
	var out []network.LineData
	for rows.Next() {
		var l network.LineData
		var station string
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &l.Vehicle, &station); err != nil {
			return nil, err
		}
		if n := len(out); n > 0 && out[n-1].ID == l.ID {
			out[n-1].Stations = append(out[n-1].Stations, station)
			continue
		}
		l.Stations = []string{station}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (d *DB) fetchSchedule(ctx context.Context, version string) ([]network.ScheduleData, error) {
	rows, err := d.QueryContext(ctx, d.rebind(`
SELECT s.line_id, s.forward_min, s.backward_min
FROM line_schedule s
JOIN lines l ON l.version = s.version AND l.line_id = s.line_id
WHERE s.version = $1
ORDER BY l.sort_order, s.seq`), version)
	if err != nil {
		return nil, fmt.Errorf("query schedule: %w", err)
	}
	defer rows.Close()
	var out []network.ScheduleData
	var fwdKnown, bwdKnown []bool
	for rows.Next() {
		var line string
		var fwd, bwd sql.NullInt64
		if err := rows.Scan(&line, &fwd, &bwd); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].Line != line {
			out = append(out, network.ScheduleData{Line: line})
			fwdKnown = append(fwdKnown, false)
			bwdKnown = append(bwdKnown, false)
		}
		i := len(out) - 1
		out[i].Forward = append(out[i].Forward, nullOffset(fwd))
		out[i].Backward = append(out[i].Backward, nullOffset(bwd))
		fwdKnown[i] = fwdKnown[i] || fwd.Valid
		bwdKnown[i] = bwdKnown[i] || bwd.Valid
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// a direction that was never stored comes back as absent, not all -1
	for i := range out {
		if !fwdKnown[i] {
			out[i].Forward = nil
		}
		if !bwdKnown[i] {
			out[i].Backward = nil
		}
	}
	return out, nil
}

func nullOffset(v sql.NullInt64) int {
	if !v.Valid {
		return -1
	}
	return int(v.Int64)
}
