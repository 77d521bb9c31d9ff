package store

import (
	"context"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/journal"
)

const insertJournalSQL = `
	INSERT INTO journal (account_id, finished, action, status, amount)
	VALUES (?, ?, ?, ?, ?)`

// AppendJournal appends one entry. Returns the assigned id.
func (s *SQLiteStore) AppendJournal(ctx context.Context, e journal.Entry) (int64, error) {
	result, err := s.db.ExecContext(ctx, insertJournalSQL,
		e.AccountID, formatStamp(e.Finished), int(e.Action), int(e.Status), e.Amount)
	if err != nil {
		return 0, storageErr("append journal", err)
	}
	return result.LastInsertId()
}

// ListJournal returns the newest entries of accountID, newest first.
// An empty accountID lists all accounts.
func (s *SQLiteStore) ListJournal(ctx context.Context, accountID string, limit int) ([]journal.Entry, error) {
	return s.queryJournal(ctx, `
		SELECT id, account_id, finished, action, status, amount FROM journal
		WHERE (?1 = '' OR account_id = ?1)
		ORDER BY id DESC
		LIMIT ?2
	`, accountID, limit)
}

// JournalAfter returns entries with id > afterID in id order, up to limit.
func (s *SQLiteStore) JournalAfter(ctx context.Context, afterID int64, limit int) ([]journal.Entry, error) {
	return s.queryJournal(ctx, `
		SELECT id, account_id, finished, action, status, amount FROM journal
		WHERE id > ?
		ORDER BY id ASC
		LIMIT ?
	`, afterID, limit)
}

// ClearJournal deletes the history of accountID. Returns the number of rows removed.
func (s *SQLiteStore) ClearJournal(ctx context.Context, accountID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM journal WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, storageErr("clear journal", err)
	}
	return result.RowsAffected()
}

func (s *SQLiteStore) queryJournal(ctx context.Context, query string, args ...any) ([]journal.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query journal", err)
	}
	defer rows.Close()

	entries := make([]journal.Entry, 0)
	for rows.Next() {
		var e journal.Entry
		var finished string
		var action, status int
		if err := rows.Scan(&e.ID, &e.AccountID, &finished, &action, &status, &e.Amount); err != nil {
			return nil, storageErr("scan journal entry", err)
		}
		e.Finished = parseStamp(finished)
		e.Action = journal.Action(action)
		e.Status = journal.Status(status)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query journal", err)
	}
	return entries, nil
}
