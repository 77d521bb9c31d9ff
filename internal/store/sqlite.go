// Package store persists notes, tombstones, conflict markers, the sync
// journal and scheduler metadata in SQLite. It also provides the storage of
// the reference note service.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/migrations"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the client-side note database shared by all accounts.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock overrides the time source used for note and marker timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		s.now = now
	}
}

// NewSQLiteStore opens (or creates) the client database at dbPath.
// It applies pragmas and runs the client migrations.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(db, migrations.ClientDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// openSQLite opens dbPath with pragmas applied and a single connection.
// One connection keeps ":memory:" databases coherent and serializes writers.
func openSQLite(dbPath string) (*sql.DB, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}
	return db, nil
}

// enablePragmas sets SQLite pragmas for performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Account returns a handle bound to one account's notes.
func (s *SQLiteStore) Account(accountID string) *AccountStore {
	return &AccountStore{
		store:     s,
		q:         s.db,
		accountID: accountID,
	}
}

// Stats holds per-account row counts.
type Stats struct {
	Notes      int `json:"notes"`
	Unsynced   int `json:"unsynced"`
	Tombstones int `json:"tombstones"`
	Conflicts  int `json:"conflicts"`
	Journal    int `json:"journal"`
}

// Stats returns row counts for accountID.
func (s *SQLiteStore) Stats(ctx context.Context, accountID string) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM notes WHERE account_id = ?1 AND deleted = 0),
			(SELECT COUNT(*) FROM notes WHERE account_id = ?1 AND deleted = 0 AND sync_id IS NULL),
			(SELECT COUNT(*) FROM deletions WHERE account_id = ?1),
			(SELECT COUNT(*) FROM conflicts WHERE account_id = ?1),
			(SELECT COUNT(*) FROM journal WHERE account_id = ?1)
	`, accountID).Scan(&st.Notes, &st.Unsynced, &st.Tombstones, &st.Conflicts, &st.Journal)
	if err != nil {
		return nil, storageErr("get stats", err)
	}
	return &st, nil
}

func (s *SQLiteStore) stamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// formatStamp renders a stored timestamp.
func formatStamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseStamp parses a stored timestamp, returning the zero time on malformed input.
func parseStamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		slog.Warn("store: failed to parse timestamp", "value", s, "error", err)
		return time.Time{}
	}
	return t.UTC()
}
