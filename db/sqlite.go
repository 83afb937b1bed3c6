package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS artifact_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    kind VARCHAR(32) NOT NULL,
    path TEXT NOT NULL,
    sha256 CHAR(64) NOT NULL,
    loaded_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS prediction_outcomes (
    day CHAR(10) NOT NULL,
    label VARCHAR(8) NOT NULL,
    count INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (day, label)
);
`

// Store keeps an audit trail of the artifacts the service loaded and daily
// outcome counts. Applicant records are never written.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the SQLite database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway
	database.SetMaxOpenConns(1)

	store := NewStore(database)
	if err := store.Migrate(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return store, nil
}

func NewStore(database *sql.DB) *Store {
	return &Store{
		db:  database,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) RecordArtifact(ctx context.Context, kind, path, sha256 string, loadedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifact_log (kind, path, sha256, loaded_at) VALUES (?, ?, ?, ?)`,
		kind, path, sha256, loadedAt.UTC(),
	)
	return err
}

// RecordOutcome increments today's counter for label.
func (s *Store) RecordOutcome(ctx context.Context, label string) error {
	day := s.now().Format("2006-01-02")
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prediction_outcomes (day, label, count) VALUES (?, ?, 1)
         ON CONFLICT(day, label) DO UPDATE SET count = count + 1`,
		day, label,
	)
	return err
}

func (s *Store) OutcomeCounts(ctx context.Context, day string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, count FROM prediction_outcomes WHERE day = ? ORDER BY label`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var label string
		var count int64
		if err := rows.Scan(&label, &count); err != nil {
			return nil, err
		}
		counts[label] = count
	}
	return counts, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
