package statedb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when no exchange matches an id.
	ErrNotFound = errors.New("exchange not found")
	// ErrAmbiguousID is returned when an id prefix matches more than one exchange.
	ErrAmbiguousID = errors.New("id prefix matches more than one exchange")
)

// StateDB wraps the SQLite history of exchanges.
// Several claude-pipe processes (one per session) may write concurrently;
// WAL mode plus a busy timeout keeps that safe.
type StateDB struct {
	db *sql.DB
}

// ExchangeRow is one recorded prompt/response pair.
type ExchangeRow struct {
	ID       string
	Session  string
	Profile  string
	Message  string
	Response string
	// Reason is the completion reason, empty when the run failed before waiting.
	Reason string
	// Anchored is false when the response is a whole-transcript fallback.
	Anchored  bool
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// Open creates or opens a SQLite database at dbPath with WAL mode and busy timeout.
func Open(dbPath string) (*StateDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("statedb: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("statedb: open: %w", err)
	}
	// Pragmas below are per connection; one connection keeps them in force.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("statedb: %s: %w", strings.TrimPrefix(pragma, "PRAGMA "), err)
		}
	}

	return &StateDB{db: db}, nil
}

// Close checkpoints WAL and closes the database.
func (s *StateDB) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// SaveExchange inserts row, assigning a new id when row.ID is empty.
func (s *StateDB) SaveExchange(row *ExchangeRow) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO exchanges (
			id, session, profile, message, response, reason,
			anchored, error, started_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		row.ID, row.Session, row.Profile, row.Message, row.Response, row.Reason,
		boolToInt(row.Anchored), row.Error, row.StartedAt.UnixMilli(), row.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("statedb: save exchange: %w", err)
	}
	return nil
}

const selectExchange = `
	SELECT id, session, profile, message, response, reason,
		anchored, error, started_at, duration_ms
	FROM exchanges`

// ListExchanges returns up to limit exchanges, newest first. limit <= 0 means all.
func (s *StateDB) ListExchanges(limit int) ([]*ExchangeRow, error) {
	query := selectExchange + " ORDER BY started_at DESC, rowid DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("statedb: list exchanges: %w", err)
	}
	defer rows.Close()

	var result []*ExchangeRow
	for rows.Next() {
		r, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetExchange returns the exchange whose id equals or starts with id.
func (s *StateDB) GetExchange(id string) (*ExchangeRow, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	rows, err := s.db.Query(selectExchange+
		" WHERE id = ? OR substr(id, 1, ?) = ? ORDER BY id = ? DESC LIMIT 2",
		id, len(id), id, id)
	if err != nil {
		return nil, fmt.Errorf("statedb: get exchange: %w", err)
	}
	defer rows.Close()

	var found []*ExchangeRow
	for rows.Next() {
		r, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		if r.ID == id {
			return r, nil
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

// PruneExchanges deletes all but the newest keep exchanges and returns how
// many rows were removed.
func (s *StateDB) PruneExchanges(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(`
		DELETE FROM exchanges WHERE id NOT IN (
			SELECT id FROM exchanges ORDER BY started_at DESC, rowid DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("statedb: prune: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExchange(sc scanner) (*ExchangeRow, error) {
	r := &ExchangeRow{}
	var anchored int
	var startedMs, durationMs int64
	if err := sc.Scan(
		&r.ID, &r.Session, &r.Profile, &r.Message, &r.Response, &r.Reason,
		&anchored, &r.Error, &startedMs, &durationMs,
	); err != nil {
		return nil, fmt.Errorf("statedb: scan exchange: %w", err)
	}
	r.Anchored = anchored != 0
	r.StartedAt = time.UnixMilli(startedMs)
	r.Duration = time.Duration(durationMs) * time.Millisecond
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
