package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// currentSchemaVersion tracks the schema for migration support.
const currentSchemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	turn_count INTEGER NOT NULL DEFAULT 0,
	extracted_requirements TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
	session_id TEXT NOT NULL REFERENCES sessions(id),
	turn_number INTEGER NOT NULL,
	user_message TEXT NOT NULL DEFAULT '',
	assistant_message TEXT NOT NULL,
	interaction_mode TEXT NOT NULL DEFAULT 'text',
	turn_context TEXT NOT NULL,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	PRIMARY KEY (session_id, turn_number)
);

CREATE TABLE IF NOT EXISTS plans (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	status TEXT NOT NULL,
	raw_conversation TEXT NOT NULL,
	structured_requirements TEXT,
	user_summary TEXT,
	technical_plan TEXT,
	failure_stage TEXT NOT NULL DEFAULT '',
	failure_reason TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, turn_number);
CREATE INDEX IF NOT EXISTS idx_plans_session ON plans(session_id);
`

// initializeSchema brings an empty or current database to the current schema
// version. Idempotent.
func initializeSchema(db *sql.DB) error {
	version, err := schemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	switch {
	case version == 0:
		if _, err := db.Exec(schemaSQL); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	case version == currentSchemaVersion:
		return nil
	case version > currentSchemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	default:
		// No migrations yet below the current version.
		return fmt.Errorf("no migration path from schema version %d", version)
	}
}

// schemaVersion returns 0 for an empty database.
func schemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMissingTable(err) {
			return 0, nil
		}
		return 0, err
	}
	return version, nil
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
