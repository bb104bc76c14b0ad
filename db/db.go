// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/dv-appraisal/cliparse"
)

// Open connects to the configured database, verifies it and creates the schema
func Open(cfg cliparse.Config) (*sql.DB, error) {
	conn, err := OpenDSN(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if err := CreateSchema(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// OpenDSN opens a pool for dbType ("postgres" or "sqlite") without touching the schema
func OpenDSN(dbType, dsn string) (*sql.DB, error) {
	switch dbType {
	case "postgres":
		conn, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		conn.SetMaxOpenConns(20)
		conn.SetConnMaxIdleTime(5 * time.Minute)
		return conn, nil

	case "sqlite":
		conn, err := sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		// One writer at a time; also keeps ":memory:" databases on a single connection
		conn.SetMaxOpenConns(1)
		return conn, nil
	}
	return nil, fmt.Errorf("unsupported database type %q", dbType)
}

// sqliteDSN turns on foreign keys and a busy timeout unless the DSN already sets pragmas
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
