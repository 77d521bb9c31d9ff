// Package reconcile implements one two-way synchronization run of an account:
// push new notes, push deletions, pull the remote snapshot and diff it
// against the local store.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/journal"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
)

// LocalStore is the part of the account store a run needs.
type LocalStore interface {
	Unsynced(ctx context.Context) iter.Seq2[notes.NoteEntry, error]
	PendingDeletions(ctx context.Context) iter.Seq2[notes.DeletionRecord, error]
	Active(ctx context.Context) iter.Seq2[notes.NoteEntry, error]
	InsertFromRemote(ctx context.Context, entry notes.RemoteEntry) (*notes.NoteEntry, error)
	AssignSyncID(ctx context.Context, localID, syncID string) error
	HardDeleteAndClearTombstone(ctx context.Context, syncID string) error
	HasTombstone(ctx context.Context, syncID string) (bool, error)
	MarkConflict(ctx context.Context, syncID string) (bool, error)
}

// LocalStoreFactory returns the store of one account.
type LocalStoreFactory func(accountID string) LocalStore

// RemoteClient is the note service as seen by a run.
type RemoteClient interface {
	GetAll(ctx context.Context, accountID string) ([]notes.RemoteEntry, error)
	Add(ctx context.Context, accountID string, entry notes.RemoteEntry) (string, error)
	Delete(ctx context.Context, accountID, syncID string) error
}

// Journal records the outcome of each step.
type Journal interface {
	Append(ctx context.Context, accountID string, action journal.Action, status journal.Status, amount int) error
}

// Summary describes what a run did.
type Summary struct {
	AccountID string `json:"account_id"`

	Pushed     int `json:"pushed"`
	PushErrors int `json:"push_errors"`

	DeletesPushed int `json:"deletes_pushed"`
	DeleteErrors  int `json:"delete_errors"`

	Pulled     int `json:"pulled"`
	PullErrors int `json:"pull_errors"`

	RemoteDeleted      int `json:"remote_deleted"`
	RemoteDeleteErrors int `json:"remote_delete_errors"`

	ConflictsDetected int `json:"conflicts_detected"`
	ConflictErrors    int `json:"conflict_errors"`

	// Corrupt counts duplicate or id-less entries skipped in the snapshot.
	Corrupt int `json:"corrupt"`

	// Aborted is set when the remote snapshot could not be fetched.
	Aborted bool `json:"aborted"`

	Duration time.Duration `json:"duration"`
}

// Changed reports whether the run applied any change on either side.
func (s *Summary) Changed() bool {
	return s.Pushed+s.DeletesPushed+s.Pulled+s.RemoteDeleted+s.ConflictsDetected > 0
}

// Failed reports whether any step recorded an error.
func (s *Summary) Failed() bool {
	return s.Aborted || s.PushErrors+s.DeleteErrors+s.PullErrors+
		s.RemoteDeleteErrors+s.ConflictErrors+s.Corrupt > 0
}

// Reconciler runs synchronizations. Callers must not run two reconciliations
// of the same account concurrently; the scheduler guarantees this.
type Reconciler struct {
	locals  LocalStoreFactory
	remote  RemoteClient
	journal Journal
	now     func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source used to measure run duration.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// New creates a Reconciler.
func New(locals LocalStoreFactory, remote RemoteClient, j Journal, opts ...Option) *Reconciler {
	r := &Reconciler{
		locals:  locals,
		remote:  remote,
		journal: j,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run carries the state of one reconciliation.
type run struct {
	*Reconciler
	accountID string
	local     LocalStore
	sum       *Summary
	journaled bool
}

// Run reconciles accountID. The returned error is non-nil only when the run
// was aborted because the remote snapshot could not be fetched; per-entry
// failures are reported in the Summary and the journal.
func (r *Reconciler) Run(ctx context.Context, accountID string) (*Summary, error) {
	start := r.now()
	rn := &run{
		Reconciler: r,
		accountID:  accountID,
		local:      r.locals(accountID),
		sum:        &Summary{AccountID: accountID},
	}

	slog.Info("sync run started",
		"component", "reconcile",
		"account_id", accountID,
		"action", "run_started",
	)

	rn.pushNew(ctx)
	rn.pushDeletions(ctx)

	snapshot, err := r.remote.GetAll(ctx, accountID)
	if err != nil {
		rn.sum.Aborted = true
		rn.record(ctx, journal.ActionPulledNew, true, 0)
		rn.sum.Duration = r.now().Sub(start)
		slog.Error("sync run aborted",
			"component", "reconcile",
			"account_id", accountID,
			"action", "run_aborted",
			"error", err,
		)
		return rn.sum, fmt.Errorf("pull snapshot: %w", err)
	}

	rn.diff(ctx, snapshot)

	if !rn.journaled {
		rn.record(ctx, journal.ActionNoOp, false, 0)
	}

	rn.sum.Duration = r.now().Sub(start)
	slog.Info("sync run completed",
		"component", "reconcile",
		"account_id", accountID,
		"action", "run_completed",
		"pushed", rn.sum.Pushed,
		"deletes_pushed", rn.sum.DeletesPushed,
		"pulled", rn.sum.Pulled,
		"remote_deleted", rn.sum.RemoteDeleted,
		"conflicts", rn.sum.ConflictsDetected,
		"failed", rn.sum.Failed(),
		"duration_ms", rn.sum.Duration.Milliseconds(),
	)
	return rn.sum, nil
}

// pushNew sends every unsynced note and stores the assigned syncId.
func (rn *run) pushNew(ctx context.Context) {
	for n, err := range rn.local.Unsynced(ctx) {
		if err != nil {
			rn.sum.PushErrors++
			rn.warn("list unsynced failed", "", err)
			break
		}
		syncID, err := rn.remote.Add(ctx, rn.accountID, n.Remote())
		if err != nil {
			rn.sum.PushErrors++
			rn.warn("push note failed", n.LocalID, err)
			continue
		}
		if err := rn.local.AssignSyncID(ctx, n.LocalID, syncID); err != nil {
			rn.sum.PushErrors++
			rn.warn("assign sync id failed", n.LocalID, err)
			continue
		}
		rn.sum.Pushed++
	}
	rn.step(ctx, journal.ActionPushedNew, rn.sum.Pushed, rn.sum.PushErrors)
}

// pushDeletions confirms local deletions remotely. A remote NotFound means
// the note is already gone and confirms the deletion too.
func (rn *run) pushDeletions(ctx context.Context) {
	for d, err := range rn.local.PendingDeletions(ctx) {
		if err != nil {
			rn.sum.DeleteErrors++
			rn.warn("list deletions failed", "", err)
			break
		}
		if err := rn.remote.Delete(ctx, rn.accountID, d.SyncID); err != nil && !errors.Is(err, notes.ErrNotFound) {
			rn.sum.DeleteErrors++
			rn.warn("push deletion failed", d.SyncID, err)
			continue
		}
		if err := rn.local.HardDeleteAndClearTombstone(ctx, d.SyncID); err != nil {
			rn.sum.DeleteErrors++
			rn.warn("clear tombstone failed", d.SyncID, err)
			continue
		}
		rn.sum.DeletesPushed++
	}
	rn.step(ctx, journal.ActionPushedDelete, rn.sum.DeletesPushed, rn.sum.DeleteErrors)
}

// diff applies the remote snapshot to the local store by syncId.
func (rn *run) diff(ctx context.Context, snapshot []notes.RemoteEntry) {
	remote := make(map[string]notes.RemoteEntry, len(snapshot))
	order := make([]string, 0, len(snapshot))
	for _, e := range snapshot {
		if e.SyncID == "" {
			rn.sum.Corrupt++
			rn.warn("remote entry without sync id", "", notes.ErrDataCorruption)
			continue
		}
		if _, dup := remote[e.SyncID]; dup {
			rn.sum.Corrupt++
			rn.warn("duplicate sync id in snapshot", e.SyncID, notes.ErrDataCorruption)
			continue
		}
		remote[e.SyncID] = e
		order = append(order, e.SyncID)
	}

	seen := make(map[string]bool, len(remote))
	for n, err := range rn.local.Active(ctx) {
		if err != nil {
			rn.sum.RemoteDeleteErrors++
			rn.warn("list active failed", "", err)
			// Without the full local set, remote-only entries may already exist locally.
			seen = nil
			break
		}
		seen[n.SyncID] = true

		r, ok := remote[n.SyncID]
		if !ok {
			rn.applyRemoteDeletion(ctx, n.SyncID)
			continue
		}
		if notes.EditedEqual(n.Edited, r.Edited) {
			continue
		}
		created, err := rn.local.MarkConflict(ctx, n.SyncID)
		if err != nil {
			rn.sum.ConflictErrors++
			rn.warn("mark conflict failed", n.SyncID, err)
			continue
		}
		if created {
			rn.sum.ConflictsDetected++
		}
	}

	if seen != nil {
		for _, id := range order {
			if seen[id] {
				continue
			}
			rn.applyRemoteAddition(ctx, remote[id])
		}
	}

	rn.step(ctx, journal.ActionPulledNew, rn.sum.Pulled, rn.sum.PullErrors)
	if rn.sum.Corrupt > 0 {
		rn.record(ctx, journal.ActionPulledNew, true, rn.sum.Corrupt)
	}
	rn.step(ctx, journal.ActionPulledDelete, rn.sum.RemoteDeleted, rn.sum.RemoteDeleteErrors)
	rn.step(ctx, journal.ActionConflictDetected, rn.sum.ConflictsDetected, rn.sum.ConflictErrors)
}

// applyRemoteDeletion hard-deletes a local note missing from the snapshot,
// unless its local deletion is still awaiting confirmation.
func (rn *run) applyRemoteDeletion(ctx context.Context, syncID string) {
	tomb, err := rn.local.HasTombstone(ctx, syncID)
	if err != nil {
		rn.sum.RemoteDeleteErrors++
		rn.warn("check tombstone failed", syncID, err)
		return
	}
	if tomb {
		return
	}
	if err := rn.local.HardDeleteAndClearTombstone(ctx, syncID); err != nil {
		rn.sum.RemoteDeleteErrors++
		rn.warn("apply remote deletion failed", syncID, err)
		return
	}
	rn.sum.RemoteDeleted++
}

// applyRemoteAddition inserts a remote-only entry, skipping syncIds whose
// local deletion has not been confirmed yet.
func (rn *run) applyRemoteAddition(ctx context.Context, e notes.RemoteEntry) {
	tomb, err := rn.local.HasTombstone(ctx, e.SyncID)
	if err != nil {
		rn.sum.PullErrors++
		rn.warn("check tombstone failed", e.SyncID, err)
		return
	}
	if tomb {
		return
	}
	if _, err := rn.local.InsertFromRemote(ctx, e); err != nil {
		rn.sum.PullErrors++
		rn.warn("insert pulled note failed", e.SyncID, err)
		return
	}
	rn.sum.Pulled++
}

// step journals a step that affected entries or failed. Quiet steps are not
// journaled so that an unchanged account yields a single no-op entry.
func (rn *run) step(ctx context.Context, action journal.Action, amount, failures int) {
	if amount == 0 && failures == 0 {
		return
	}
	rn.record(ctx, action, failures > 0, amount)
}

func (rn *run) record(ctx context.Context, action journal.Action, failed bool, amount int) {
	rn.journaled = true
	if err := rn.journal.Append(ctx, rn.accountID, action, journal.StatusOf(failed), amount); err != nil {
		rn.warn("journal append failed", "", err)
	}
}

func (rn *run) warn(msg, id string, err error) {
	attrs := []any{
		"component", "reconcile",
		"account_id", rn.accountID,
		"error", err,
	}
	if id != "" {
		attrs = append(attrs, "id", id)
	}
	slog.Warn(msg, attrs...)
}
