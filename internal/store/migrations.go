package store

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/migrations"
	"github.com/pressly/goose/v3"
)

// goose keeps its base FS and dialect in package globals.
var migrateMu sync.Mutex

// RunMigrations applies all pending migrations from the given directory of
// the embedded migrations FS (migrations.ClientDir or migrations.ServerDir).
func RunMigrations(db *sql.DB, dir string) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	// Disable goose's default logging to avoid stdout noise
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
