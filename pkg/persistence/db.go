// Package persistence provides SQLite-backed storage for sessions, turns,
// and plans. One Store serves both the discovery and plan contracts; the
// conditional writes that close the turn-count race live here.
package persistence

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"intake/pkg/logx"
)

// Store is a SQLite-backed implementation of discovery.SessionStore and
// plan.Store.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (creating if needed) the database at dbPath and ensures the
// schema is current.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// SQLite supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger := logx.NewLogger("persistence")
	logger.Info("database initialized: %s", dbPath)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
