// Package sqlite opens the ledgerbot database and applies its schema.
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite" // database/sql driver
)

//go:embed migrations/001_initial.sql
var schema string

// DB wraps *sql.DB so callers get a migrated, pragma-configured handle.
type DB struct {
	*sql.DB
}

// Open opens the database at dsn, sets the pragmas the scheduler relies on,
// and applies the schema. Pass ":memory:" for an ephemeral database in tests.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dsn == ":memory:" {
		// each connection to :memory: is its own empty database; a single
		// connection keeps the schema and the queries together
		db.SetMaxOpenConns(1)
	}

	// WAL lets the poll loop read job rows while a handler commits, and the
	// busy timeout covers the scheduler and the admin CLI sharing one file.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &DB{db}, nil
}
