// Package conflict settles notes flagged as conflicted by a reconciliation.
package conflict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/journal"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
)

var (
	// ErrEntryVanished is returned when either copy of a conflicted note no
	// longer exists. The marker is kept for the next reconciliation.
	ErrEntryVanished = fmt.Errorf("entry vanished: %w", notes.ErrNotFound)

	// ErrNoConflict is returned when the syncId carries no conflict marker.
	ErrNoConflict = errors.New("no conflict recorded")
)

// LocalStore is the part of the account store resolution needs.
type LocalStore interface {
	GetBySyncID(ctx context.Context, syncID string) (*notes.NoteEntry, error)
	HasConflict(ctx context.Context, syncID string) (bool, error)
	ClearConflict(ctx context.Context, syncID string) error
	// AcceptRemote overwrites the local copy and clears the marker atomically.
	AcceptRemote(ctx context.Context, syncID string, entry notes.RemoteEntry) error
}

// LocalStoreFactory returns the store of one account.
type LocalStoreFactory func(accountID string) LocalStore

// RemoteClient is the note service as seen by the resolver.
type RemoteClient interface {
	Get(ctx context.Context, accountID, syncID string) (*notes.RemoteEntry, error)
	Update(ctx context.Context, accountID, syncID string, entry notes.RemoteEntry) error
}

// Journal records resolution outcomes.
type Journal interface {
	Append(ctx context.Context, accountID string, action journal.Action, status journal.Status, amount int) error
}

// Resolver applies a user's choice of winning side.
type Resolver struct {
	locals  LocalStoreFactory
	remote  RemoteClient
	journal Journal
}

// New creates a Resolver.
func New(locals LocalStoreFactory, remote RemoteClient, j Journal) *Resolver {
	return &Resolver{
		locals:  locals,
		remote:  remote,
		journal: j,
	}
}

// Resolve keeps the winner's copy of syncID on both sides and clears the
// conflict marker. On failure the marker is left untouched so the call can
// be retried.
func (r *Resolver) Resolve(ctx context.Context, accountID, syncID string, winner notes.Winner) error {
	if winner != notes.WinnerLocal && winner != notes.WinnerRemote {
		return fmt.Errorf("resolve %q: invalid winner %v", syncID, winner)
	}
	local := r.locals(accountID)

	has, err := local.HasConflict(ctx, syncID)
	if err != nil {
		return fmt.Errorf("check conflict %q: %w", syncID, err)
	}
	if !has {
		return fmt.Errorf("sync id %q: %w", syncID, ErrNoConflict)
	}

	localCopy, err := local.GetBySyncID(ctx, syncID)
	if err != nil {
		if errors.Is(err, notes.ErrNotFound) {
			return fmt.Errorf("local copy of %q: %w", syncID, ErrEntryVanished)
		}
		return fmt.Errorf("load local copy of %q: %w", syncID, err)
	}
	remoteCopy, err := r.remote.Get(ctx, accountID, syncID)
	if err != nil {
		if errors.Is(err, notes.ErrNotFound) {
			return fmt.Errorf("remote copy of %q: %w", syncID, ErrEntryVanished)
		}
		return fmt.Errorf("load remote copy of %q: %w", syncID, err)
	}

	action := journal.ActionConflictResolvedLocal
	if winner == notes.WinnerLocal {
		err = r.keepLocal(ctx, local, accountID, *localCopy)
	} else {
		action = journal.ActionConflictResolvedRemote
		err = local.AcceptRemote(ctx, syncID, *remoteCopy)
	}

	if err != nil {
		r.record(ctx, accountID, action, journal.StatusError, 0)
		slog.Warn("conflict resolution failed",
			"component", "conflict",
			"account_id", accountID,
			"id", syncID,
			"winner", winner.String(),
			"error", err,
		)
		return fmt.Errorf("resolve %q: %w: %w", syncID, notes.ErrConflictResolutionFailed, err)
	}

	r.record(ctx, accountID, action, journal.StatusOK, 1)
	slog.Info("conflict resolved",
		"component", "conflict",
		"account_id", accountID,
		"id", syncID,
		"winner", winner.String(),
	)
	return nil
}

// keepLocal pushes the local copy over the remote one, then clears the marker.
func (r *Resolver) keepLocal(ctx context.Context, local LocalStore, accountID string, n notes.NoteEntry) error {
	if err := r.remote.Update(ctx, accountID, n.SyncID, n.Remote()); err != nil {
		return fmt.Errorf("update remote: %w", err)
	}
	if err := local.ClearConflict(ctx, n.SyncID); err != nil {
		return fmt.Errorf("clear marker: %w", err)
	}
	return nil
}

func (r *Resolver) record(ctx context.Context, accountID string, action journal.Action, status journal.Status, amount int) {
	if err := r.journal.Append(ctx, accountID, action, status, amount); err != nil {
		slog.Warn("journal append failed",
			"component", "conflict",
			"account_id", accountID,
			"error", err,
		)
	}
}
