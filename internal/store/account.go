package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
	"github.com/oklog/ulid/v2"
)

// pageSize bounds how many rows a lazy sequence materializes per query.
const pageSize = 100

const noteColumns = `local_id, sync_id, title, description, color, image_url, created, edited, viewed`

// AccountStore is the local store of one account. The zero value is not usable;
// obtain one from SQLiteStore.Account.
type AccountStore struct {
	store     *SQLiteStore
	q         dbtx
	accountID string
	inTx      bool
}

// AccountID returns the account this handle is bound to.
func (a *AccountStore) AccountID() string {
	return a.accountID
}

// scanNote scans a row selected with noteColumns.
func scanNote(scanner interface{ Scan(...any) error }) (notes.NoteEntry, error) {
	var n notes.NoteEntry
	var syncID sql.NullString
	var color int64
	var created, edited, viewed string

	if err := scanner.Scan(&n.LocalID, &syncID, &n.Title, &n.Description,
		&color, &n.ImageURL, &created, &edited, &viewed); err != nil {
		return notes.NoteEntry{}, err
	}

	n.SyncID = syncID.String
	n.Color = notes.Color(color)
	n.Created = parseStamp(created)
	n.Edited = parseStamp(edited)
	n.Viewed = parseStamp(viewed)
	return n, nil
}

// paginate turns a keyset page fetcher into a finite, restartable sequence.
// Each page is fully read before it is yielded, so no cursor stays open while
// the caller runs and the caller may write to the store inside the loop.
func paginate[T any](ctx context.Context, fetch func(ctx context.Context, after string) ([]T, string, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		after := ""
		for {
			page, last, err := fetch(ctx, after)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range page {
				if !yield(item, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			after = last
		}
	}
}

// queryNotes runs a note query and returns the rows and the last key column.
func (a *AccountStore) queryNotes(ctx context.Context, op, query string, key func(notes.NoteEntry) string, args ...any) ([]notes.NoteEntry, string, error) {
	rows, err := a.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", storageErr(op, err)
	}
	defer rows.Close()

	var out []notes.NoteEntry
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, "", storageErr(op, err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, "", storageErr(op, err)
	}

	last := ""
	if len(out) > 0 {
		last = key(out[len(out)-1])
	}
	return out, last, nil
}

// Unsynced yields non-deleted notes that have no syncId yet, oldest first.
func (a *AccountStore) Unsynced(ctx context.Context) iter.Seq2[notes.NoteEntry, error] {
	return paginate(ctx, func(ctx context.Context, after string) ([]notes.NoteEntry, string, error) {
		return a.queryNotes(ctx, "list unsynced", `
			SELECT `+noteColumns+` FROM notes
			WHERE account_id = ? AND sync_id IS NULL AND deleted = 0 AND local_id > ?
			ORDER BY local_id ASC
			LIMIT ?
		`, func(n notes.NoteEntry) string { return n.LocalID }, a.accountID, after, pageSize)
	})
}

// Active yields non-deleted notes that carry a syncId, ordered by syncId.
func (a *AccountStore) Active(ctx context.Context) iter.Seq2[notes.NoteEntry, error] {
	return paginate(ctx, func(ctx context.Context, after string) ([]notes.NoteEntry, string, error) {
		return a.queryNotes(ctx, "list active", `
			SELECT `+noteColumns+` FROM notes
			WHERE account_id = ? AND sync_id IS NOT NULL AND deleted = 0 AND sync_id > ?
			ORDER BY sync_id ASC
			LIMIT ?
		`, func(n notes.NoteEntry) string { return n.SyncID }, a.accountID, after, pageSize)
	})
}

// PendingDeletions yields all tombstones of the account, ordered by syncId.
func (a *AccountStore) PendingDeletions(ctx context.Context) iter.Seq2[notes.DeletionRecord, error] {
	return paginate(ctx, func(ctx context.Context, after string) ([]notes.DeletionRecord, string, error) {
		rows, err := a.q.QueryContext(ctx, `
			SELECT sync_id, deleted_at FROM deletions
			WHERE account_id = ? AND sync_id > ?
			ORDER BY sync_id ASC
			LIMIT ?
		`, a.accountID, after, pageSize)
		if err != nil {
			return nil, "", storageErr("list deletions", err)
		}
		defer rows.Close()

		var out []notes.DeletionRecord
		for rows.Next() {
			var d notes.DeletionRecord
			var deletedAt string
			if err := rows.Scan(&d.SyncID, &deletedAt); err != nil {
				return nil, "", storageErr("list deletions", err)
			}
			d.DeletedAt = parseStamp(deletedAt)
			out = append(out, d)
		}
		if err := rows.Err(); err != nil {
			return nil, "", storageErr("list deletions", err)
		}

		last := ""
		if len(out) > 0 {
			last = out[len(out)-1].SyncID
		}
		return out, last, nil
	})
}

// GetBySyncID returns the non-deleted note carrying syncID.
func (a *AccountStore) GetBySyncID(ctx context.Context, syncID string) (*notes.NoteEntry, error) {
	row := a.q.QueryRowContext(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE account_id = ? AND sync_id = ? AND deleted = 0
	`, a.accountID, syncID)

	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync id %q: %w", syncID, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get by sync id", err)
	}
	return &n, nil
}

// GetByLocalID returns the non-deleted note with localID.
func (a *AccountStore) GetByLocalID(ctx context.Context, localID string) (*notes.NoteEntry, error) {
	row := a.q.QueryRowContext(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE account_id = ? AND local_id = ? AND deleted = 0
	`, a.accountID, localID)

	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("local id %q: %w", localID, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get by local id", err)
	}
	return &n, nil
}

// InsertFromRemote stores a note pulled from the remote service.
func (a *AccountStore) InsertFromRemote(ctx context.Context, entry notes.RemoteEntry) (*notes.NoteEntry, error) {
	if entry.SyncID == "" {
		return nil, fmt.Errorf("insert from remote: empty sync id: %w", notes.ErrDataCorruption)
	}

	n := entry.Local()
	n.LocalID = ulid.Make().String()

	_, err := a.q.ExecContext(ctx, `
		INSERT INTO notes (local_id, account_id, sync_id, title, description, color, image_url, created, edited, viewed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.LocalID, a.accountID, n.SyncID, n.Title, n.Description, int64(n.Color), n.ImageURL,
		formatStamp(n.Created), formatStamp(n.Edited), formatStamp(n.Viewed))
	if err != nil {
		return nil, storageErr("insert from remote", err)
	}
	return &n, nil
}

// AssignSyncID records the remote id returned for a pushed note. If another
// local row already holds syncID, the remote id is authoritative: that stale
// row is dropped and the id moves to localID.
func (a *AccountStore) AssignSyncID(ctx context.Context, localID, syncID string) error {
	return a.WithTx(ctx, func(tx *AccountStore) error {
		var holder string
		err := tx.q.QueryRowContext(ctx, `
			SELECT local_id FROM notes WHERE account_id = ? AND sync_id = ?
		`, tx.accountID, syncID).Scan(&holder)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return storageErr("assign sync id", err)
		case holder != localID:
			if _, err := tx.q.ExecContext(ctx, `
				DELETE FROM notes WHERE account_id = ? AND local_id = ?
			`, tx.accountID, holder); err != nil {
				return storageErr("assign sync id", err)
			}
		}

		res, err := tx.q.ExecContext(ctx, `
			UPDATE notes SET sync_id = ?
			WHERE account_id = ? AND local_id = ? AND sync_id IS NULL
		`, syncID, tx.accountID, localID)
		if err != nil {
			return storageErr("assign sync id", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return nil
		}

		var existing sql.NullString
		err = tx.q.QueryRowContext(ctx, `
			SELECT sync_id FROM notes WHERE account_id = ? AND local_id = ?
		`, tx.accountID, localID).Scan(&existing)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("local id %q: %w", localID, ErrNotFound)
		}
		if err != nil {
			return storageErr("assign sync id", err)
		}
		if existing.String == syncID {
			return nil
		}
		return fmt.Errorf("local id %q has %q: %w", localID, existing.String, ErrSyncIDAssigned)
	})
}

// HardDeleteAndClearTombstone removes the note carrying syncID together with
// its tombstone and conflict marker. Missing rows are not an error.
func (a *AccountStore) HardDeleteAndClearTombstone(ctx context.Context, syncID string) error {
	return a.WithTx(ctx, func(tx *AccountStore) error {
		statements := []string{
			`DELETE FROM notes WHERE account_id = ? AND sync_id = ?`,
			`DELETE FROM deletions WHERE account_id = ? AND sync_id = ?`,
			`DELETE FROM conflicts WHERE account_id = ? AND sync_id = ?`,
		}
		for _, stmt := range statements {
			if _, err := tx.q.ExecContext(ctx, stmt, tx.accountID, syncID); err != nil {
				return storageErr("hard delete", err)
			}
		}
		return nil
	})
}

// HasTombstone reports whether a deletion of syncID awaits remote confirmation.
func (a *AccountStore) HasTombstone(ctx context.Context, syncID string) (bool, error) {
	var n int
	err := a.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM deletions WHERE account_id = ? AND sync_id = ?
	`, a.accountID, syncID).Scan(&n)
	if err != nil {
		return false, storageErr("check tombstone", err)
	}
	return n > 0, nil
}

// MarkConflict flags syncID as conflicted. It is idempotent and reports
// whether a new marker was created.
func (a *AccountStore) MarkConflict(ctx context.Context, syncID string) (bool, error) {
	res, err := a.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO conflicts (account_id, sync_id, detected_at) VALUES (?, ?, ?)
	`, a.accountID, syncID, formatStamp(a.store.now()))
	if err != nil {
		return false, storageErr("mark conflict", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("mark conflict", err)
	}
	return n == 1, nil
}

// ClearConflict removes the conflict marker of syncID.
func (a *AccountStore) ClearConflict(ctx context.Context, syncID string) error {
	if _, err := a.q.ExecContext(ctx, `
		DELETE FROM conflicts WHERE account_id = ? AND sync_id = ?
	`, a.accountID, syncID); err != nil {
		return storageErr("clear conflict", err)
	}
	return nil
}

// HasConflict reports whether syncID carries a conflict marker.
func (a *AccountStore) HasConflict(ctx context.Context, syncID string) (bool, error) {
	var n int
	err := a.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM conflicts WHERE account_id = ? AND sync_id = ?
	`, a.accountID, syncID).Scan(&n)
	if err != nil {
		return false, storageErr("check conflict", err)
	}
	return n > 0, nil
}

// Conflicts lists the conflict markers of the account, oldest first.
func (a *AccountStore) Conflicts(ctx context.Context) ([]notes.ConflictRecord, error) {
	rows, err := a.q.QueryContext(ctx, `
		SELECT sync_id, detected_at FROM conflicts
		WHERE account_id = ?
		ORDER BY detected_at ASC, sync_id ASC
	`, a.accountID)
	if err != nil {
		return nil, storageErr("list conflicts", err)
	}
	defer rows.Close()

	out := make([]notes.ConflictRecord, 0)
	for rows.Next() {
		var c notes.ConflictRecord
		var detectedAt string
		if err := rows.Scan(&c.SyncID, &detectedAt); err != nil {
			return nil, storageErr("list conflicts", err)
		}
		c.DetectedAt = parseStamp(detectedAt)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list conflicts", err)
	}
	return out, nil
}

// OverwriteFromRemote replaces the synchronized fields of the note carrying
// syncID with the remote copy.
func (a *AccountStore) OverwriteFromRemote(ctx context.Context, syncID string, entry notes.RemoteEntry) error {
	res, err := a.q.ExecContext(ctx, `
		UPDATE notes
		SET title = ?, description = ?, color = ?, image_url = ?, created = ?, edited = ?, viewed = ?
		WHERE account_id = ? AND sync_id = ? AND deleted = 0
	`, entry.Title, entry.Description, int64(entry.Color), entry.ImageURL,
		formatStamp(entry.Created.UTC()), formatStamp(entry.Edited.UTC()), formatStamp(entry.Viewed.UTC()),
		a.accountID, syncID)
	if err != nil {
		return storageErr("overwrite from remote", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sync id %q: %w", syncID, ErrNotFound)
	}
	return nil
}

// AcceptRemote overwrites the local copy of syncID with entry and clears its
// conflict marker in one transaction.
func (a *AccountStore) AcceptRemote(ctx context.Context, syncID string, entry notes.RemoteEntry) error {
	return a.WithTx(ctx, func(tx *AccountStore) error {
		if err := tx.OverwriteFromRemote(ctx, syncID, entry); err != nil {
			return err
		}
		return tx.ClearConflict(ctx, syncID)
	})
}

// nextEdited returns the edited stamp for a mutation at now, never moving
// backward from prev at one-second granularity.
func nextEdited(prev, now time.Time) time.Time {
	now = now.UTC().Truncate(time.Second)
	if !now.After(prev) {
		return prev.UTC().Truncate(time.Second).Add(time.Second)
	}
	return now
}
