package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/migrations"
	_ "modernc.org/sqlite"
)

func openRawDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunMigrations_ClientSchema(t *testing.T) {
	// Given: A fresh database with no tables
	db := openRawDB(t)

	// When: The client migrations run
	if err := RunMigrations(db, migrations.ClientDir); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}

	// Then: Every client table exists with its columns
	queries := []string{
		`SELECT local_id, account_id, sync_id, title, description, color, image_url, created, edited, viewed, manual_order, deleted FROM notes LIMIT 0`,
		`SELECT account_id, sync_id, deleted_at FROM deletions LIMIT 0`,
		`SELECT account_id, sync_id, detected_at FROM conflicts LIMIT 0`,
		`SELECT id, account_id, finished, action, status, amount FROM journal LIMIT 0`,
		`SELECT key, value FROM sync_meta LIMIT 0`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			t.Errorf("schema check failed for %q: %v", q, err)
		}
	}
}

func TestRunMigrations_ServerSchema(t *testing.T) {
	db := openRawDB(t)

	if err := RunMigrations(db, migrations.ServerDir); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}

	if _, err := db.Exec(`SELECT account_id, sync_id, title, description, color, image_url, created, edited, viewed, seq FROM remote_notes LIMIT 0`); err != nil {
		t.Fatalf("remote_notes missing required columns: %v", err)
	}
	if _, err := db.Exec(`SELECT 1 FROM notes LIMIT 0`); err == nil {
		t.Error("server schema should not contain the client notes table")
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	// Given: A database that has already been migrated
	db := openRawDB(t)
	if err := RunMigrations(db, migrations.ClientDir); err != nil {
		t.Fatalf("first migration failed: %v", err)
	}

	// When: RunMigrations is called again
	err := RunMigrations(db, migrations.ClientDir)

	// Then: No error occurs (idempotent)
	if err != nil {
		t.Fatalf("second migration should be idempotent, got error: %v", err)
	}
}
