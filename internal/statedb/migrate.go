package statedb

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// SchemaVersion tracks the current database schema version.
// Bump this when adding migrations.
const SchemaVersion = 2

// migrations[i] upgrades a database from version i to i+1.
var migrations = []func(tx *sql.Tx) error{
	// 0 -> 1: exchanges table.
	func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			CREATE TABLE IF NOT EXISTS exchanges (
				id          TEXT PRIMARY KEY,
				session     TEXT NOT NULL DEFAULT '',
				message     TEXT NOT NULL,
				response    TEXT NOT NULL DEFAULT '',
				reason      TEXT NOT NULL DEFAULT '',
				error       TEXT NOT NULL DEFAULT '',
				started_at  INTEGER NOT NULL,
				duration_ms INTEGER NOT NULL DEFAULT 0
			)
		`)
		return err
	},
	// 1 -> 2: profile and anchor tracking, newest-first index.
	func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`ALTER TABLE exchanges ADD COLUMN profile TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE exchanges ADD COLUMN anchored INTEGER NOT NULL DEFAULT 1`,
			`CREATE INDEX IF NOT EXISTS idx_exchanges_started ON exchanges(started_at)`,
		} {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	},
}

// Migrate creates the schema if needed and applies pending migrations in a
// single transaction.
func (s *StateDB) Migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("statedb: begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("statedb: create metadata: %w", err)
	}

	current, err := schemaVersion(tx)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("statedb: schema version %d is newer than this binary (%d)", current, SchemaVersion)
	}
	for v := current; v < len(migrations); v++ {
		if err := migrations[v](tx); err != nil {
			return fmt.Errorf("statedb: migrate to v%d: %w", v+1, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)
	`, strconv.Itoa(len(migrations))); err != nil {
		return fmt.Errorf("statedb: set schema version: %w", err)
	}
	return tx.Commit()
}

// SchemaVersionInDB reads the stored schema version, 0 for a fresh database.
func (s *StateDB) SchemaVersionInDB() (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	return schemaVersion(tx)
}

func schemaVersion(tx *sql.Tx) (int, error) {
	var value string
	err := tx.QueryRow(`SELECT value FROM metadata WHERE key = 'schema_version'`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("statedb: read schema version: %w", err)
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("statedb: bad schema version %q: %w", value, err)
	}
	return v, nil
}
