package store

import (
	"context"
	"database/sql"
	"fmt"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn against a handle bound to a single transaction. The
// transaction commits when fn returns nil and rolls back when fn returns an
// error or panics; a panic is re-raised after rollback. Nested calls reuse
// the enclosing transaction.
func (a *AccountStore) WithTx(ctx context.Context, fn func(tx *AccountStore) error) (err error) {
	if a.inTx {
		return fn(a)
	}

	tx, err := a.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = storageErr("commit transaction", cerr)
		}
	}()

	bound := &AccountStore{
		store:     a.store,
		q:         tx,
		accountID: a.accountID,
		inTx:      true,
	}
	if err := fn(bound); err != nil {
		return fmt.Errorf("transaction: %w", err)
	}
	return nil
}
