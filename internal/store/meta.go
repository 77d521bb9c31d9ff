package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// pendingKey is the sync_meta key of an account's deferred-sync flag.
func pendingKey(accountID string) string {
	return "pending:" + accountID
}

// GetSyncMeta retrieves a sync metadata value by key.
func (s *SQLiteStore) GetSyncMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM sync_meta WHERE key = ?
	`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("sync meta key %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", storageErr("get sync meta", err)
	}
	return value, nil
}

// SetSyncMeta sets a sync metadata value.
func (s *SQLiteStore) SetSyncMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sync_meta (key, value) VALUES (?, ?)
	`, key, value)
	if err != nil {
		return storageErr("set sync meta", err)
	}
	return nil
}

// Pending reports the persisted deferred-sync flag of accountID.
func (s *SQLiteStore) Pending(ctx context.Context, accountID string) (bool, error) {
	v, err := s.GetSyncMeta(ctx, pendingKey(accountID))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	pending, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse pending flag %q: %w", v, err)
	}
	return pending, nil
}

// SetPending persists the deferred-sync flag of accountID.
func (s *SQLiteStore) SetPending(ctx context.Context, accountID string, pending bool) error {
	return s.SetSyncMeta(ctx, pendingKey(accountID), strconv.FormatBool(pending))
}
