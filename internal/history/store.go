// Package history persists analytics snapshots in SQLite so trends survive
// restarts. The workspace API stays the source of truth for records.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
	id       TEXT PRIMARY KEY,
	run_id   TEXT NOT NULL,
	kind     TEXT NOT NULL,
	taken_at DATETIME NOT NULL,
	headline INTEGER NOT NULL DEFAULT 0,
	payload  TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_snapshots_kind_taken ON snapshots(kind, taken_at);
`

// Snapshot kinds.
const (
	KindHealth   = "health"
	KindStrategy = "strategy"
)

// DefaultListLimit applies when List is called with limit <= 0.
const DefaultListLimit = 50

// Snapshot is one stored analysis result. Headline is the number a trend
// chart would plot: issues needing attention for health, focus score for
// strategy.
type Snapshot struct {
	ID       string          `json:"id"`
	RunID    string          `json:"run_id"`
	Kind     string          `json:"kind"`
	TakenAt  time.Time       `json:"taken_at"`
	Headline int             `json:"headline"`
	Payload  json.RawMessage `json:"payload"`
}

// Store wraps a sql.DB holding the snapshots table.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping() error {
	return s.conn.Ping()
}

// Record stores the snapshots of one run in a single transaction. Missing
// ids are generated; all rows share one run id.
func (s *Store) Record(snaps ...Snapshot) ([]Snapshot, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(`
		INSERT INTO snapshots (id, run_id, kind, taken_at, headline, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("history: prepare insert: %w", err)
	}
	defer stmt.Close()

	runID := uuid.NewString()
	out := make([]Snapshot, len(snaps))
	for i, snap := range snaps {
		if snap.ID == "" {
			snap.ID = uuid.NewString()
		}
		snap.RunID = runID
		if snap.TakenAt.IsZero() {
			snap.TakenAt = time.Now()
		}
		snap.TakenAt = snap.TakenAt.UTC()
		if len(snap.Payload) == 0 {
			snap.Payload = json.RawMessage(`{}`)
		}
		if _, err := stmt.Exec(snap.ID, snap.RunID, snap.Kind, snap.TakenAt, snap.Headline, string(snap.Payload)); err != nil {
			return nil, fmt.Errorf("history: insert %s: %w", snap.Kind, err)
		}
		out[i] = snap
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("history: commit: %w", err)
	}
	return out, nil
}

// List returns snapshots newest first, optionally filtered by kind.
func (s *Store) List(kind string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `SELECT id, run_id, kind, taken_at, headline, payload FROM snapshots`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY taken_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	out := []Snapshot{}
	for rows.Next() {
		var (
			snap    Snapshot
			payload string
		)
		if err := rows.Scan(&snap.ID, &snap.RunID, &snap.Kind, &snap.TakenAt, &snap.Headline, &payload); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		snap.Payload = json.RawMessage(payload)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Prune deletes snapshots taken before cutoff and reports how many went.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	res, err := s.conn.Exec(`DELETE FROM snapshots WHERE taken_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	return res.RowsAffected()
}
