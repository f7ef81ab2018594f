// Package storage provides SQLite usage storage.
//
// Information Hiding:
// - SQLite connection management hidden behind UsageSink
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteStorage implements UsageSink using SQLite.
// Stores one row per model request in a single append-only table.
type SqliteStorage struct {
	db  *sql.DB
	now Clock
}

// SqliteOption configures a SqliteStorage.
type SqliteOption func(*SqliteStorage)

// WithClock replaces the time source used for default timestamps and
// window cutoffs.
func WithClock(now Clock) SqliteOption {
	return func(s *SqliteStorage) { s.now = now }
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string, opts ...SqliteOption) (*SqliteStorage, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newSqliteStorage(db, opts)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory(opts ...SqliteOption) (*SqliteStorage, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	return newSqliteStorage(db, opts)
}

func newSqliteStorage(db *sql.DB, opts []SqliteOption) (*SqliteStorage, error) {
	// Each pooled connection to ":memory:" would be a separate database.
	db.SetMaxOpenConns(1)

	storage := &SqliteStorage{db: db, now: time.Now}
	for _, opt := range opts {
		opt(storage)
	}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return storage, nil
}

// Close closes the database connection.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS stats (
			ts                TEXT    NOT NULL,
			conversation_id   TEXT,
			tokens_prompt     INTEGER NOT NULL,
			tokens_candidates INTEGER NOT NULL,
			tokens_total      INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_stats_ts ON stats(ts);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record appends one usage row.
func (s *SqliteStorage) Record(ctx context.Context, rec UsageRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	var conversationID sql.NullString
	if rec.ConversationID != "" {
		conversationID = sql.NullString{String: rec.ConversationID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stats (ts, conversation_id, tokens_prompt, tokens_candidates, tokens_total)
		 VALUES (?, ?, ?, ?, ?)`,
		formatTimestamp(ts), conversationID, rec.PromptTokens, rec.ResponseTokens, rec.TotalTokens,
	)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// Count returns the number of rows within the trailing window.
func (s *SqliteStorage) Count(ctx context.Context, window time.Duration) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stats WHERE ts >= ?`, s.cutoff(window),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return n, nil
}

// TokenSum returns the total tokens within the trailing window. An empty
// window sums to zero.
func (s *SqliteStorage) TokenSum(ctx context.Context, window time.Duration) (int64, error) {
	var sum sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(tokens_total) FROM stats WHERE ts >= ?`, s.cutoff(window),
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum usage: %w", err)
	}
	return sum.Int64, nil
}

func (s *SqliteStorage) cutoff(window time.Duration) string {
	return formatTimestamp(s.now().Add(-window))
}

// Verify SqliteStorage implements UsageSink
var _ UsageSink = (*SqliteStorage)(nil)
