package conflict

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/journal"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/store"
)

const account = "acct"

type mockRemote struct {
	mu        sync.Mutex
	notes     map[string]notes.RemoteEntry
	getErr    error
	updateErr error
	updates   []notes.RemoteEntry
}

func (m *mockRemote) Get(ctx context.Context, accountID, syncID string) (*notes.RemoteEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	e, ok := m.notes[syncID]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", syncID, notes.ErrNotFound)
	}
	return &e, nil
}

func (m *mockRemote) Update(ctx context.Context, accountID, syncID string, e notes.RemoteEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	e.SyncID = syncID
	m.notes[syncID] = e
	m.updates = append(m.updates, e)
	return nil
}

type journalCall struct {
	Action journal.Action
	Status journal.Status
	Amount int
}

type mockJournal struct {
	mu    sync.Mutex
	calls []journalCall
}

func (j *mockJournal) Append(ctx context.Context, accountID string, action journal.Action, status journal.Status, amount int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, journalCall{action, status, amount})
	return nil
}

var base = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

// setup creates a note "C1" that is conflicted between local and remote.
func setup(t *testing.T) (*store.AccountStore, *mockRemote, *mockJournal, *Resolver) {
	t.Helper()
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "client.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	local := db.Account(account)
	if _, err := local.InsertFromRemote(ctx, notes.RemoteEntry{
		SyncID: "C1", Title: "local", Created: base, Edited: base.Add(time.Minute), Viewed: base,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := local.MarkConflict(ctx, "C1"); err != nil {
		t.Fatal(err)
	}

	remote := &mockRemote{notes: map[string]notes.RemoteEntry{
		"C1": {SyncID: "C1", Title: "remote", Description: "from server", Created: base, Edited: base.Add(time.Hour), Viewed: base},
	}}
	jr := &mockJournal{}
	r := New(func(id string) LocalStore { return db.Account(id) }, remote, jr)
	return local, remote, jr, r
}

func hasMarker(t *testing.T, local *store.AccountStore) bool {
	t.Helper()
	has, err := local.HasConflict(context.Background(), "C1")
	if err != nil {
		t.Fatal(err)
	}
	return has
}

func TestResolve_LocalWins(t *testing.T) {
	local, remote, jr, r := setup(t)

	if err := r.Resolve(context.Background(), account, "C1", notes.WinnerLocal); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if hasMarker(t, local) {
		t.Error("marker should be cleared")
	}
	if len(remote.updates) != 1 || remote.updates[0].Title != "local" {
		t.Fatalf("remote updates = %+v", remote.updates)
	}
	if !notes.EditedEqual(remote.updates[0].Edited, base.Add(time.Minute)) {
		t.Errorf("remote edited = %v, want local edited", remote.updates[0].Edited)
	}
	want := journalCall{journal.ActionConflictResolvedLocal, journal.StatusOK, 1}
	if len(jr.calls) != 1 || jr.calls[0] != want {
		t.Errorf("journal = %+v, want %+v", jr.calls, want)
	}
}

func TestResolve_RemoteWins(t *testing.T) {
	local, remote, jr, r := setup(t)
	ctx := context.Background()

	if err := r.Resolve(ctx, account, "C1", notes.WinnerRemote); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if hasMarker(t, local) {
		t.Error("marker should be cleared")
	}
	got, err := local.GetBySyncID(ctx, "C1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "remote" || got.Description != "from server" || !got.Edited.Equal(base.Add(time.Hour)) {
		t.Errorf("local copy not overwritten: %+v", got)
	}
	if len(remote.updates) != 0 {
		t.Errorf("remote-wins must not update the server, got %+v", remote.updates)
	}
	want := journalCall{journal.ActionConflictResolvedRemote, journal.StatusOK, 1}
	if len(jr.calls) != 1 || jr.calls[0] != want {
		t.Errorf("journal = %+v, want %+v", jr.calls, want)
	}
}

func TestResolve_RemoteVanished(t *testing.T) {
	local, remote, jr, r := setup(t)
	delete(remote.notes, "C1")

	err := r.Resolve(context.Background(), account, "C1", notes.WinnerLocal)
	if !errors.Is(err, ErrEntryVanished) || !errors.Is(err, notes.ErrNotFound) {
		t.Fatalf("expected ErrEntryVanished, got %v", err)
	}
	if !hasMarker(t, local) {
		t.Error("marker must be kept when an entry vanished")
	}
	if len(jr.calls) != 0 {
		t.Errorf("fetch failures are not journaled, got %+v", jr.calls)
	}
}

func TestResolve_LocalVanished(t *testing.T) {
	local, _, _, r := setup(t)
	ctx := context.Background()
	if err := local.HardDeleteAndClearTombstone(ctx, "C1"); err != nil {
		t.Fatal(err)
	}
	// Recreate only the marker to simulate the local copy disappearing.
	if _, err := local.MarkConflict(ctx, "C1"); err != nil {
		t.Fatal(err)
	}

	err := r.Resolve(ctx, account, "C1", notes.WinnerRemote)
	if !errors.Is(err, ErrEntryVanished) {
		t.Fatalf("expected ErrEntryVanished, got %v", err)
	}
	if !hasMarker(t, local) {
		t.Error("marker must be kept")
	}
}

func TestResolve_UpdateFailureKeepsMarker(t *testing.T) {
	local, remote, jr, r := setup(t)
	remote.updateErr = fmt.Errorf("update: %w", notes.ErrTransport)

	err := r.Resolve(context.Background(), account, "C1", notes.WinnerLocal)
	if !errors.Is(err, notes.ErrConflictResolutionFailed) {
		t.Fatalf("expected ErrConflictResolutionFailed, got %v", err)
	}
	if !errors.Is(err, notes.ErrTransport) {
		t.Errorf("cause should be preserved, got %v", err)
	}
	if !hasMarker(t, local) {
		t.Error("marker must be kept after a failed resolution")
	}
	want := journalCall{journal.ActionConflictResolvedLocal, journal.StatusError, 0}
	if len(jr.calls) != 1 || jr.calls[0] != want {
		t.Errorf("journal = %+v, want %+v", jr.calls, want)
	}

	remote.updateErr = nil
	if err := r.Resolve(context.Background(), account, "C1", notes.WinnerLocal); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if hasMarker(t, local) {
		t.Error("retry should clear the marker")
	}
}

func TestResolve_RemoteFetchErrorIsNotVanished(t *testing.T) {
	local, remote, _, r := setup(t)
	remote.getErr = fmt.Errorf("get: %w", notes.ErrServer)

	err := r.Resolve(context.Background(), account, "C1", notes.WinnerRemote)
	if err == nil || errors.Is(err, ErrEntryVanished) {
		t.Fatalf("expected a non-vanished error, got %v", err)
	}
	if !errors.Is(err, notes.ErrServer) {
		t.Errorf("expected ErrServer in chain, got %v", err)
	}
	if !hasMarker(t, local) {
		t.Error("marker must be kept")
	}
}

func TestResolve_NoConflict(t *testing.T) {
	_, _, _, r := setup(t)
	err := r.Resolve(context.Background(), account, "unknown", notes.WinnerLocal)
	if !errors.Is(err, ErrNoConflict) {
		t.Fatalf("expected ErrNoConflict, got %v", err)
	}
}

func TestResolve_InvalidWinner(t *testing.T) {
	local, _, _, r := setup(t)
	if err := r.Resolve(context.Background(), account, "C1", notes.Winner(7)); err == nil {
		t.Fatal("expected error for invalid winner")
	}
	if !hasMarker(t, local) {
		t.Error("marker must be kept")
	}
}
