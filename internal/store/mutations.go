package store

import (
	"context"
	"fmt"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
	"github.com/oklog/ulid/v2"
)

// NoteInput carries the user-editable fields of a note.
type NoteInput struct {
	Title       string
	Description string
	Color       notes.Color
	ImageURL    string
}

// CreateNote stores a new unsynced note.
func (a *AccountStore) CreateNote(ctx context.Context, in NoteInput) (*notes.NoteEntry, error) {
	now := a.store.stamp()
	n := notes.NoteEntry{
		LocalID:     ulid.Make().String(),
		Title:       in.Title,
		Description: in.Description,
		Color:       in.Color,
		ImageURL:    in.ImageURL,
		Created:     now,
		Edited:      now,
		Viewed:      now,
	}

	_, err := a.q.ExecContext(ctx, `
		INSERT INTO notes (local_id, account_id, title, description, color, image_url, created, edited, viewed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.LocalID, a.accountID, n.Title, n.Description, int64(n.Color), n.ImageURL,
		formatStamp(n.Created), formatStamp(n.Edited), formatStamp(n.Viewed))
	if err != nil {
		return nil, storageErr("create note", err)
	}
	return &n, nil
}

// UpdateNote replaces the editable fields of a note and advances its edited
// stamp. The stamp never moves backward.
func (a *AccountStore) UpdateNote(ctx context.Context, localID string, in NoteInput) (*notes.NoteEntry, error) {
	var updated *notes.NoteEntry
	err := a.WithTx(ctx, func(tx *AccountStore) error {
		current, err := tx.GetByLocalID(ctx, localID)
		if err != nil {
			return err
		}

		n := *current
		n.Title = in.Title
		n.Description = in.Description
		n.Color = in.Color
		n.ImageURL = in.ImageURL
		n.Edited = nextEdited(current.Edited, tx.store.now())
		n.Viewed = n.Edited

		if _, err := tx.q.ExecContext(ctx, `
			UPDATE notes
			SET title = ?, description = ?, color = ?, image_url = ?, edited = ?, viewed = ?
			WHERE account_id = ? AND local_id = ?
		`, n.Title, n.Description, int64(n.Color), n.ImageURL,
			formatStamp(n.Edited), formatStamp(n.Viewed), tx.accountID, localID); err != nil {
			return storageErr("update note", err)
		}
		updated = &n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteNote deletes a note locally. An unsynced note is removed outright; a
// synced note is hidden and tombstoned until the remote deletion is confirmed.
func (a *AccountStore) DeleteNote(ctx context.Context, localID string) error {
	return a.WithTx(ctx, func(tx *AccountStore) error {
		current, err := tx.GetByLocalID(ctx, localID)
		if err != nil {
			return err
		}

		if !current.Synced() {
			if _, err := tx.q.ExecContext(ctx, `
				DELETE FROM notes WHERE account_id = ? AND local_id = ?
			`, tx.accountID, localID); err != nil {
				return storageErr("delete note", err)
			}
			return nil
		}

		if _, err := tx.q.ExecContext(ctx, `
			UPDATE notes SET deleted = 1 WHERE account_id = ? AND local_id = ?
		`, tx.accountID, localID); err != nil {
			return storageErr("delete note", err)
		}
		if _, err := tx.q.ExecContext(ctx, `
			INSERT OR REPLACE INTO deletions (account_id, sync_id, deleted_at) VALUES (?, ?, ?)
		`, tx.accountID, current.SyncID, formatStamp(tx.store.now())); err != nil {
			return storageErr("delete note", err)
		}
		return nil
	})
}

// SetManualOrder stores the local-only ordering position of a note. It is
// never synchronized and does not touch the edited stamp.
func (a *AccountStore) SetManualOrder(ctx context.Context, localID string, order int) error {
	res, err := a.q.ExecContext(ctx, `
		UPDATE notes SET manual_order = ? WHERE account_id = ? AND local_id = ? AND deleted = 0
	`, order, a.accountID, localID)
	if err != nil {
		return storageErr("set manual order", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("local id %q: %w", localID, ErrNotFound)
	}
	return nil
}

// List returns the account's non-deleted notes in display order: manually
// ordered notes first, then by creation time.
func (a *AccountStore) List(ctx context.Context) ([]notes.NoteEntry, error) {
	out, _, err := a.queryNotes(ctx, "list notes", `
		SELECT `+noteColumns+` FROM notes
		WHERE account_id = ? AND deleted = 0
		ORDER BY manual_order IS NULL, manual_order ASC, created ASC, local_id ASC
	`, func(n notes.NoteEntry) string { return n.LocalID }, a.accountID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []notes.NoteEntry{}
	}
	return out, nil
}

// Count returns the number of non-deleted notes of the account.
func (a *AccountStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := a.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notes WHERE account_id = ? AND deleted = 0
	`, a.accountID).Scan(&n); err != nil {
		return 0, storageErr("count notes", err)
	}
	return n, nil
}
