// Package journal keeps a local SQLite record of every submission attempt
// so failed or partial submissions can be followed up.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Outcome values stored in the journal.
const (
	OutcomeSuccess    = "success"
	OutcomeError      = "error"
	OutcomeRejected   = "rejected"    // stopped before any network call
	OutcomeUploadFail = "upload_fail" // photo upload failed
)

// Entry is one submission attempt.
type Entry struct {
	ID        string
	At        time.Time
	Outcome   string
	Email     string
	FileCount int
	Uploaded  int
	Error     string
}

// Store manages the journal database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the journal at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		at DATETIME NOT NULL,
		outcome TEXT NOT NULL,
		email TEXT NOT NULL,
		file_count INTEGER NOT NULL DEFAULT 0,
		uploaded INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_submissions_at ON submissions(at);
	CREATE INDEX IF NOT EXISTS idx_submissions_outcome ON submissions(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores one attempt.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, at, outcome, email, file_count, uploaded, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.At.UTC(), e.Outcome, e.Email, e.FileCount, e.Uploaded, nullable(e.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record submission %s: %w", e.ID, err)
	}
	return nil
}

// List returns up to limit entries, newest first. A limit of zero or less
// returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, at, outcome, email, file_count, uploaded, error FROM submissions ORDER BY at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var errText sql.NullString
		if err := rows.Scan(&e.ID, &e.At, &e.Outcome, &e.Email, &e.FileCount, &e.Uploaded, &errText); err != nil {
			return nil, err
		}
		e.Error = errText.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Counts returns the number of entries per outcome.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM submissions GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
