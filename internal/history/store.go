// Package history keeps a per-session log of query attempts in an in-memory
// SQLite database. Nothing is written to disk.
package history

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	_ "modernc.org/sqlite"
)

// Entry is one recorded attempt.
type Entry struct {
	ID        int64
	SessionID string
	Query     string
	Took      time.Duration
	Rows      int
	Error     string
	CreatedAt time.Time
}

// Failed reports whether the attempt ended in an error display.
func (e *Entry) Failed() bool {
	return e.Error != ""
}

// Summary renders the outcome, duration and age of the attempt.
func (e *Entry) Summary() string {
	outcome := fmt.Sprintf("%s rows", humanize.Comma(int64(e.Rows)))
	if e.Rows == 1 {
		outcome = "1 row"
	}
	if e.Failed() {
		outcome = "failed"
	}
	return fmt.Sprintf("%s · %s · %s", outcome, e.Took.Round(time.Millisecond), humanize.Time(e.CreatedAt))
}

// Title returns the first non-blank line of the query.
func (e *Entry) Title() string {
	for _, line := range strings.Split(e.Query, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// Store manages the attempt log for one session.
type Store struct {
	db        *sql.DB
	sessionID string
	now       func() time.Time
}

// NewStore opens an empty in-memory log for the session.
func NewStore(sessionID string) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{
		db:        db,
		sessionID: sessionID,
		now:       time.Now,
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	return store, nil
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		query TEXT NOT NULL,
		took_ms INTEGER NOT NULL,
		row_count INTEGER NOT NULL,
		error TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_session_id ON attempts(session_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SessionID returns the session the store records for.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Close closes the store and discards its contents.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordAttempt appends one completed attempt.
func (s *Store) RecordAttempt(query string, took time.Duration, rows int, failure string) error {
	_, err := s.db.Exec(`
		INSERT INTO attempts (session_id, query, took_ms, row_count, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.sessionID, query, took.Milliseconds(), rows, nullString(failure), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// Recent lists attempts newest first. A limit of zero or less lists all.
func (s *Store) Recent(limit int) ([]*Entry, error) {
	query := `
		SELECT id, session_id, query, took_ms, row_count, error, created_at
		FROM attempts WHERE session_id = ?
		ORDER BY id DESC
	`
	args := []any{s.sessionID}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var tookMs, created int64
		var errStr sql.NullString

		err := rows.Scan(&entry.ID, &entry.SessionID, &entry.Query, &tookMs,
			&entry.Rows, &errStr, &created)
		if err != nil {
			return nil, err
		}

		entry.Took = time.Duration(tookMs) * time.Millisecond
		entry.Error = errStr.String
		entry.CreatedAt = time.Unix(0, created)
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// Queries lists distinct query texts, most recently used first.
func (s *Store) Queries(limit int) ([]string, error) {
	query := `
		SELECT query FROM attempts WHERE session_id = ?
		GROUP BY query
		ORDER BY MAX(id) DESC
	`
	args := []any{s.sessionID}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}

	return queries, rows.Err()
}

// Count returns the number of recorded attempts.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM attempts WHERE session_id = ?`, s.sessionID).Scan(&n)
	return n, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
