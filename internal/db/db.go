// Package db stores network data in a SQL database. Postgres is reached
// through pgx, SQLite files and in-memory databases through modernc sqlite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

type DB struct {
	*sql.DB
	Driver string
}

// DriverFor picks the database/sql driver for a DSN.
func DriverFor(dsn string) string {
	d := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(d, "postgres://"), strings.HasPrefix(d, "postgresql://"), strings.Contains(d, "host="):
		return DriverPostgres
	}
	return DriverSQLite
}

func Open(dsn string) (*DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty DSN")
	}
	driver := DriverFor(dsn)
	if driver == DriverSQLite {
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	return &DB{DB: db, Driver: driver}, nil
}

func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return d.PingContext(ctx)
}

var placeholderRe = regexp.MustCompile(`\$\d+`)

// rebind rewrites $n placeholders for drivers that only take '?'.
func (d *DB) rebind(q string) string {
	if d.Driver == DriverPostgres {
		return q
	}
	return placeholderRe.ReplaceAllString(q, "?")
}
