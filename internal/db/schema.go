package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"transit-planner/internal/network"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS network_versions (
		version     TEXT PRIMARY KEY,
		city        TEXT NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		imported_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stations (
		version        TEXT NOT NULL,
		station_id     TEXT NOT NULL,
		name           TEXT NOT NULL,
		name_local     TEXT NOT NULL DEFAULT '',
		lat            DOUBLE PRECISION NOT NULL,
		lon            DOUBLE PRECISION NOT NULL,
		is_interchange BOOLEAN NOT NULL DEFAULT FALSE,
		sort_order     INTEGER NOT NULL,
		PRIMARY KEY (version, station_id)
	)`,
	`CREATE TABLE IF NOT EXISTS lines (
		version    TEXT NOT NULL,
		line_id    TEXT NOT NULL,
		name       TEXT NOT NULL DEFAULT '',
		color      TEXT NOT NULL DEFAULT '',
		vehicle    TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL,
		PRIMARY KEY (version, line_id)
	)`,
	`CREATE TABLE IF NOT EXISTS line_stations (
		version    TEXT NOT NULL,
		line_id    TEXT NOT NULL,
		seq        INTEGER NOT NULL,
		station_id TEXT NOT NULL,
		PRIMARY KEY (version, line_id, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS line_schedule (
		version      TEXT NOT NULL,
		line_id      TEXT NOT NULL,
		seq          INTEGER NOT NULL,
		forward_min  INTEGER,
		backward_min INTEGER,
		PRIMARY KEY (version, line_id, seq)
	)`,
}

// Migrate creates the network tables when missing.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveNetwork imports data as a new version in one transaction.
func (d *DB) SaveNetwork(ctx context.Context, version, city string, data *network.Data, importedAt time.Time) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	exec := func(q string, args ...any) error {
		_, err := tx.ExecContext(ctx, d.rebind(q), args...)
		return err
	}

	if err := exec(`INSERT INTO network_versions (version, city, name, imported_at) VALUES ($1, $2, $3, $4)`,
		version, city, data.Name, importedAt.UTC()); err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	for i, s := range data.Stations {
		if err := exec(`INSERT INTO stations (version, station_id, name, name_local, lat, lon, is_interchange, sort_order) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			version, s.ID, s.Name, s.NameLocal, s.Lat, s.Lon, s.Interchange, i); err != nil {
			return fmt.Errorf("insert station %s: %w", s.ID, err)
		}
	}
	for i, l := range data.Lines {
		if err := exec(`INSERT INTO lines (version, line_id, name, color, vehicle, sort_order) VALUES ($1, $2, $3, $4, $5, $6)`,
			version, l.ID, l.Name, l.Color, l.Vehicle, i); err != nil {
			return fmt.Errorf("insert line %s: %w", l.ID, err)
		}
		for seq, st := range l.Stations {
			if err := exec(`INSERT INTO line_stations (version, line_id, seq, station_id) VALUES ($1, $2, $3, $4)`,
				version, l.ID, seq, st); err != nil {
				return fmt.Errorf("insert line station %s/%d: %w", l.ID, seq, err)
			}
		}
	}
	for _, row := range data.Schedule {
		n := max(len(row.Forward), len(row.Backward))
		for seq := 0; seq < n; seq++ {
			if err := exec(`INSERT INTO line_schedule (version, line_id, seq, forward_min, backward_min) VALUES ($1, $2, $3, $4, $5)`,
				version, row.Line, seq, offsetAt(row.Forward, seq), offsetAt(row.Backward, seq)); err != nil {
				return fmt.Errorf("insert schedule %s/%d: %w", row.Line, seq, err)
			}
		}
	}
	return tx.Commit()
}

func offsetAt(offsets []int, i int) sql.NullInt64 {
	if i >= len(offsets) || offsets[i] < 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(offsets[i]), Valid: true}
}
