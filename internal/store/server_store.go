package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/migrations"
	"github.com/google/uuid"
)

// ServerStore holds the notes of the reference note service, keyed by
// account and server-assigned syncId.
type ServerStore struct {
	db *sql.DB
}

// NewServerStore opens (or creates) the note service database at dbPath.
func NewServerStore(dbPath string) (*ServerStore, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(db, migrations.ServerDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &ServerStore{db: db}, nil
}

// Close closes the database connection.
func (s *ServerStore) Close() error {
	return s.db.Close()
}

const remoteColumns = `sync_id, title, description, color, image_url, created, edited, viewed`

func scanRemote(scanner interface{ Scan(...any) error }) (notes.RemoteEntry, error) {
	var e notes.RemoteEntry
	var color int64
	var created, edited, viewed string
	if err := scanner.Scan(&e.SyncID, &e.Title, &e.Description, &color, &e.ImageURL,
		&created, &edited, &viewed); err != nil {
		return notes.RemoteEntry{}, err
	}
	e.Color = notes.Color(color)
	e.Created = parseStamp(created)
	e.Edited = parseStamp(edited)
	e.Viewed = parseStamp(viewed)
	return e, nil
}

// ListNotes returns every note of accountID in insertion order.
func (s *ServerStore) ListNotes(ctx context.Context, accountID string) ([]notes.RemoteEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+remoteColumns+` FROM remote_notes
		WHERE account_id = ?
		ORDER BY seq ASC
	`, accountID)
	if err != nil {
		return nil, storageErr("list notes", err)
	}
	defer rows.Close()

	out := make([]notes.RemoteEntry, 0)
	for rows.Next() {
		e, err := scanRemote(rows)
		if err != nil {
			return nil, storageErr("scan note", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list notes", err)
	}
	return out, nil
}

// GetNote returns one note.
func (s *ServerStore) GetNote(ctx context.Context, accountID, syncID string) (*notes.RemoteEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+remoteColumns+` FROM remote_notes
		WHERE account_id = ? AND sync_id = ?
	`, accountID, syncID)

	e, err := scanRemote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %q: %w", syncID, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get note", err)
	}
	return &e, nil
}

// AddNote stores a new note and returns its generated syncId.
func (s *ServerStore) AddNote(ctx context.Context, accountID string, e notes.RemoteEntry) (string, error) {
	syncID := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO remote_notes (account_id, sync_id, title, description, color, image_url, created, edited, viewed, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM remote_notes WHERE account_id = ?))
	`, accountID, syncID, e.Title, e.Description, int64(e.Color), e.ImageURL,
		formatStamp(e.Created), formatStamp(e.Edited), formatStamp(e.Viewed), accountID)
	if err != nil {
		return "", storageErr("add note", err)
	}
	return syncID, nil
}

// UpdateNote replaces the fields of an existing note.
func (s *ServerStore) UpdateNote(ctx context.Context, accountID, syncID string, e notes.RemoteEntry) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE remote_notes
		SET title = ?, description = ?, color = ?, image_url = ?, created = ?, edited = ?, viewed = ?
		WHERE account_id = ? AND sync_id = ?
	`, e.Title, e.Description, int64(e.Color), e.ImageURL,
		formatStamp(e.Created), formatStamp(e.Edited), formatStamp(e.Viewed), accountID, syncID)
	if err != nil {
		return storageErr("update note", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("note %q: %w", syncID, ErrNotFound)
	}
	return nil
}

// DeleteNote removes a note.
func (s *ServerStore) DeleteNote(ctx context.Context, accountID, syncID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM remote_notes WHERE account_id = ? AND sync_id = ?
	`, accountID, syncID)
	if err != nil {
		return storageErr("delete note", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("note %q: %w", syncID, ErrNotFound)
	}
	return nil
}

// CountNotes returns the number of notes across all accounts.
func (s *ServerStore) CountNotes(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM remote_notes`).Scan(&n); err != nil {
		return 0, storageErr("count notes", err)
	}
	return n, nil
}
