// Package history keeps an audit log of pipeline outcomes in SQLite.
// It is read by the history command and never consulted for deduplication.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one recorded pipeline run.
type Entry struct {
	ID          string
	RunID       string
	Path        string
	Skill       string
	DocID       string
	Outcome     string
	Kind        string
	Error       string
	Bytes       int
	ContentHash string
	ArchivePath string
	Duration    time.Duration
	ProcessedAt time.Time
}

// Store persists entries.
type Store interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
	Close() error
}

// SQLiteStore is the SQLite implementation of Store.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the database at dbPath if needed and applies migrations.
func Open(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory; %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database; %w", err)
	}

	// Pragmas are per connection; one connection keeps them applied.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// The dispatcher writes while the CLI may read.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode; %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout; %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations; %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record inserts e, assigning an ID and timestamp when unset.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, run_id, path, skill, doc_id, outcome, kind, error,
			bytes, content_hash, archive_path, duration_ms, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RunID, e.Path, e.Skill, e.DocID, e.Outcome, e.Kind, e.Error,
		e.Bytes, e.ContentHash, e.ArchivePath, e.Duration.Milliseconds(), e.ProcessedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s; %w", e.RunID, err)
	}

	return nil
}

// Recent returns up to limit entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, path, skill, doc_id, outcome, kind, error,
			bytes, content_hash, archive_path, duration_ms, processed_at
		FROM runs
		ORDER BY processed_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs; %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var durationMs, processedAt int64
		if err := rows.Scan(
			&e.ID, &e.RunID, &e.Path, &e.Skill, &e.DocID, &e.Outcome, &e.Kind, &e.Error,
			&e.Bytes, &e.ContentHash, &e.ArchivePath, &durationMs, &processedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run; %w", err)
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.ProcessedAt = time.UnixMilli(processedAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs; %w", err)
	}

	return entries, nil
}

// Prune deletes entries processed before olderThan and returns the count removed.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE processed_at < ?", olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs; %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned runs; %w", err)
	}

	return n, nil
}
