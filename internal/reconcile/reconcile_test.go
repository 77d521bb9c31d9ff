package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/journal"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/store"
)

const account = "acct"

// fakeRemote is an in-memory note service with error injection.
type fakeRemote struct {
	mu     sync.Mutex
	notes  map[string]notes.RemoteEntry
	order  []string
	nextID int

	addErr    func(notes.RemoteEntry) error
	deleteErr error
	getAllErr error
	extra     []notes.RemoteEntry

	adds    int
	deletes int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{notes: make(map[string]notes.RemoteEntry)}
}

func (f *fakeRemote) GetAll(ctx context.Context, accountID string) ([]notes.RemoteEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getAllErr != nil {
		return nil, f.getAllErr
	}
	out := make([]notes.RemoteEntry, 0, len(f.order)+len(f.extra))
	for _, id := range f.order {
		out = append(out, f.notes[id])
	}
	return append(out, f.extra...), nil
}

func (f *fakeRemote) Add(ctx context.Context, accountID string, e notes.RemoteEntry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds++
	if f.addErr != nil {
		if err := f.addErr(e); err != nil {
			return "", err
		}
	}
	f.nextID++
	e.SyncID = fmt.Sprintf("S%03d", f.nextID)
	f.notes[e.SyncID] = e
	f.order = append(f.order, e.SyncID)
	return e.SyncID, nil
}

func (f *fakeRemote) Delete(ctx context.Context, accountID, syncID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.notes[syncID]; !ok {
		return fmt.Errorf("delete %s: %w", syncID, notes.ErrNotFound)
	}
	f.drop(syncID)
	return nil
}

// put creates or replaces an entry as another client would.
func (f *fakeRemote) put(e notes.RemoteEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.notes[e.SyncID]; !ok {
		f.order = append(f.order, e.SyncID)
	}
	f.notes[e.SyncID] = e
}

func (f *fakeRemote) remove(syncID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drop(syncID)
}

func (f *fakeRemote) drop(syncID string) {
	delete(f.notes, syncID)
	for i, id := range f.order {
		if id == syncID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

func (f *fakeRemote) get(syncID string) (notes.RemoteEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.notes[syncID]
	return e, ok
}

func (f *fakeRemote) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notes)
}

type journalCall struct {
	Action journal.Action
	Status journal.Status
	Amount int
}

type fakeJournal struct {
	mu    sync.Mutex
	calls []journalCall
}

func (j *fakeJournal) Append(ctx context.Context, accountID string, action journal.Action, status journal.Status, amount int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, journalCall{action, status, amount})
	return nil
}

func (j *fakeJournal) take() []journalCall {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := j.calls
	j.calls = nil
	return out
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	db     *store.SQLiteStore
	local  *store.AccountStore
	remote *fakeRemote
	jr     *fakeJournal
	clock  *clock
	rec    *Reconciler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "client.db"), store.WithClock(c.Now))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := &harness{
		db:     db,
		local:  db.Account(account),
		remote: newFakeRemote(),
		jr:     &fakeJournal{},
		clock:  c,
	}
	h.rec = New(func(id string) LocalStore { return db.Account(id) }, h.remote, h.jr)
	return h
}

func (h *harness) run(t *testing.T) *Summary {
	t.Helper()
	sum, err := h.rec.Run(context.Background(), account)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return sum
}

func (h *harness) create(t *testing.T, title string) *notes.NoteEntry {
	t.Helper()
	n, err := h.local.CreateNote(context.Background(), store.NoteInput{Title: title, Color: notes.DefaultColor})
	if err != nil {
		t.Fatalf("CreateNote() error = %v", err)
	}
	h.clock.Advance(time.Second)
	return n
}

func (h *harness) activeCount(t *testing.T) int {
	t.Helper()
	n, err := h.local.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestRun_EmptyAccountJournalsNoOp(t *testing.T) {
	h := newHarness(t)
	sum := h.run(t)

	if sum.Changed() || sum.Failed() {
		t.Errorf("unexpected summary %+v", sum)
	}
	want := []journalCall{{journal.ActionNoOp, journal.StatusOK, 0}}
	if diff := cmp.Diff(want, h.jr.take()); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_PushesNewNotes(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 5; i++ {
		h.create(t, fmt.Sprintf("note %d", i))
	}

	sum := h.run(t)
	if sum.Pushed != 5 || sum.PushErrors != 0 {
		t.Fatalf("Pushed = %d, PushErrors = %d", sum.Pushed, sum.PushErrors)
	}
	if h.remote.count() != 5 {
		t.Errorf("remote has %d notes, want 5", h.remote.count())
	}
	for n, err := range h.local.Unsynced(context.Background()) {
		t.Fatalf("unexpected unsynced note %+v (err %v)", n, err)
	}
	want := []journalCall{{journal.ActionPushedNew, journal.StatusOK, 5}}
	if diff := cmp.Diff(want, h.jr.take()); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		h.create(t, fmt.Sprintf("note %d", i))
	}
	h.run(t)
	h.jr.take()
	adds := h.remote.adds

	sum := h.run(t)
	if diff := cmp.Diff(&Summary{AccountID: account}, sum, cmpIgnoreDuration); diff != "" {
		t.Errorf("second run summary mismatch (-want +got):\n%s", diff)
	}
	if h.remote.adds != adds {
		t.Errorf("second run pushed again")
	}
	want := []journalCall{{journal.ActionNoOp, journal.StatusOK, 0}}
	if diff := cmp.Diff(want, h.jr.take()); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
}

var cmpIgnoreDuration = cmp.FilterPath(func(p cmp.Path) bool {
	return p.Last().String() == ".Duration"
}, cmp.Ignore())

func TestRun_RoundTripPreservesFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n, err := h.local.CreateNote(ctx, store.NoteInput{
		Title:       "groceries",
		Description: "milk, eggs",
		Color:       notes.RGB(0x12, 0x34, 0x56),
		ImageURL:    "https://example.com/a.png",
	})
	if err != nil {
		t.Fatal(err)
	}

	h.run(t)

	got, err := h.local.GetByLocalID(ctx, n.LocalID)
	if err != nil {
		t.Fatal(err)
	}
	remote, ok := h.remote.get(got.SyncID)
	if !ok {
		t.Fatalf("remote entry %q missing", got.SyncID)
	}
	if !remote.SameContent(n.Remote()) {
		t.Errorf("remote %+v differs from pushed %+v", remote, n.Remote())
	}
}

func TestRun_PushFailureDoesNotAbort(t *testing.T) {
	h := newHarness(t)
	h.create(t, "good 1")
	h.create(t, "bad")
	h.create(t, "good 2")
	h.remote.put(notes.RemoteEntry{SyncID: "R1", Title: "from elsewhere"})
	h.remote.addErr = func(e notes.RemoteEntry) error {
		if e.Title == "bad" {
			return fmt.Errorf("add: %w", notes.ErrServer)
		}
		return nil
	}

	sum := h.run(t)
	if sum.Pushed != 2 || sum.PushErrors != 1 {
		t.Errorf("Pushed = %d, PushErrors = %d; want 2, 1", sum.Pushed, sum.PushErrors)
	}
	if sum.Pulled != 1 {
		t.Errorf("Pulled = %d; the run should continue past push failures", sum.Pulled)
	}

	var unsynced []string
	for n, err := range h.local.Unsynced(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		unsynced = append(unsynced, n.Title)
	}
	if diff := cmp.Diff([]string{"bad"}, unsynced); diff != "" {
		t.Errorf("unsynced mismatch (-want +got):\n%s", diff)
	}

	calls := h.jr.take()
	if len(calls) == 0 || calls[0] != (journalCall{journal.ActionPushedNew, journal.StatusError, 2}) {
		t.Errorf("first journal entry = %+v", calls)
	}
}

type failingAssign struct {
	LocalStore
}

func (f failingAssign) AssignSyncID(ctx context.Context, localID, syncID string) error {
	return fmt.Errorf("assign: %w", notes.ErrLocalStorage)
}

func TestRun_AssignFailureCountsAsPushError(t *testing.T) {
	h := newHarness(t)
	h.create(t, "a")
	rec := New(func(id string) LocalStore { return failingAssign{h.db.Account(id)} }, h.remote, h.jr)

	sum, err := rec.Run(context.Background(), account)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Pushed != 0 || sum.PushErrors != 1 {
		t.Errorf("Pushed = %d, PushErrors = %d; want 0, 1", sum.Pushed, sum.PushErrors)
	}
}

func TestRun_PushesDeletions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n := h.create(t, "doomed")
	h.create(t, "kept")
	h.run(t)
	h.jr.take()

	if err := h.local.DeleteNote(ctx, n.LocalID); err != nil {
		t.Fatal(err)
	}
	sum := h.run(t)
	if sum.DeletesPushed != 1 {
		t.Errorf("DeletesPushed = %d, want 1", sum.DeletesPushed)
	}
	if h.remote.count() != 1 {
		t.Errorf("remote count = %d, want 1", h.remote.count())
	}
	for d, err := range h.local.PendingDeletions(ctx) {
		t.Errorf("tombstone left behind: %+v (err %v)", d, err)
	}
	want := []journalCall{{journal.ActionPushedDelete, journal.StatusOK, 1}}
	if diff := cmp.Diff(want, h.jr.take()); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_DeleteNotFoundConfirmsDeletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n := h.create(t, "x")
	h.run(t)
	synced, _ := h.local.GetByLocalID(ctx, n.LocalID)

	h.remote.remove(synced.SyncID)
	if err := h.local.DeleteNote(ctx, n.LocalID); err != nil {
		t.Fatal(err)
	}

	sum := h.run(t)
	if sum.DeletesPushed != 1 || sum.DeleteErrors != 0 {
		t.Errorf("DeletesPushed = %d, DeleteErrors = %d", sum.DeletesPushed, sum.DeleteErrors)
	}
	if has, _ := h.local.HasTombstone(ctx, synced.SyncID); has {
		t.Error("tombstone should be cleared after NotFound")
	}
}

func TestRun_DeleteFailureKeepsTombstoneAndSkipsReinsert(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n := h.create(t, "x")
	h.run(t)
	synced, _ := h.local.GetByLocalID(ctx, n.LocalID)

	if err := h.local.DeleteNote(ctx, n.LocalID); err != nil {
		t.Fatal(err)
	}
	h.remote.deleteErr = fmt.Errorf("delete: %w", notes.ErrServer)

	sum := h.run(t)
	if sum.DeleteErrors != 1 || sum.Pulled != 0 {
		t.Errorf("DeleteErrors = %d, Pulled = %d; want 1, 0", sum.DeleteErrors, sum.Pulled)
	}
	if has, _ := h.local.HasTombstone(ctx, synced.SyncID); !has {
		t.Error("tombstone must survive a failed remote delete")
	}
	if h.activeCount(t) != 0 {
		t.Error("tombstoned note must not be pulled back in")
	}

	h.remote.deleteErr = nil
	sum = h.run(t)
	if sum.DeletesPushed != 1 || h.remote.count() != 0 {
		t.Errorf("next run should confirm the deletion: %+v", sum)
	}
}

func TestRun_TransportFailureAbortsRun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n := h.create(t, "x")
	h.run(t)
	h.jr.take()
	synced, _ := h.local.GetByLocalID(ctx, n.LocalID)

	h.remote.remove(synced.SyncID)
	h.remote.getAllErr = fmt.Errorf("get all: %w", notes.ErrTransport)

	sum, err := h.rec.Run(ctx, account)
	if !errors.Is(err, notes.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !sum.Aborted {
		t.Error("summary should be marked aborted")
	}
	if h.activeCount(t) != 1 {
		t.Error("diff must not run without a snapshot")
	}
	want := []journalCall{{journal.ActionPulledNew, journal.StatusError, 0}}
	if diff := cmp.Diff(want, h.jr.take()); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ServerErrorOnSnapshotAborts(t *testing.T) {
	h := newHarness(t)
	h.remote.getAllErr = fmt.Errorf("get all: %w", notes.ErrServer)

	sum, err := h.rec.Run(context.Background(), account)
	if !errors.Is(err, notes.ErrServer) || !sum.Aborted {
		t.Fatalf("expected aborted run with ErrServer, got %v (%+v)", err, sum)
	}
}

func TestRun_AppliesRemoteDeletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n := h.create(t, "x")
	h.create(t, "y")
	h.run(t)
	h.jr.take()
	synced, _ := h.local.GetByLocalID(ctx, n.LocalID)

	h.remote.remove(synced.SyncID)
	sum := h.run(t)

	if sum.RemoteDeleted != 1 || sum.ConflictsDetected != 0 {
		t.Errorf("RemoteDeleted = %d, ConflictsDetected = %d", sum.RemoteDeleted, sum.ConflictsDetected)
	}
	if h.activeCount(t) != 1 {
		t.Errorf("active count = %d, want 1", h.activeCount(t))
	}
	if has, _ := h.local.HasConflict(ctx, synced.SyncID); has {
		t.Error("remote deletion must not create a conflict")
	}
	want := []journalCall{{journal.ActionPulledDelete, journal.StatusOK, 1}}
	if diff := cmp.Diff(want, h.jr.take()); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_PullsRemoteAdditions(t *testing.T) {
	h := newHarness(t)
	ts := time.Date(2024, 4, 4, 4, 4, 4, 0, time.UTC)
	h.remote.put(notes.RemoteEntry{SyncID: "R7", Title: "remote", Color: notes.RGB(9, 9, 9), Created: ts, Edited: ts, Viewed: ts})

	sum := h.run(t)
	if sum.Pulled != 1 {
		t.Fatalf("Pulled = %d, want 1", sum.Pulled)
	}
	got, err := h.local.GetBySyncID(context.Background(), "R7")
	if err != nil {
		t.Fatalf("GetBySyncID() error = %v", err)
	}
	if got.Title != "remote" || !got.Edited.Equal(ts) {
		t.Errorf("pulled note = %+v", got)
	}
	want := []journalCall{{journal.ActionPulledNew, journal.StatusOK, 1}}
	if diff := cmp.Diff(want, h.jr.take()); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_DetectsConflictWithoutOverwriting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n := h.create(t, "shared")
	h.run(t)
	h.jr.take()
	synced, _ := h.local.GetByLocalID(ctx, n.LocalID)

	h.clock.Advance(time.Minute)
	if _, err := h.local.UpdateNote(ctx, n.LocalID, store.NoteInput{Title: "local edit", Color: notes.DefaultColor}); err != nil {
		t.Fatal(err)
	}
	r, _ := h.remote.get(synced.SyncID)
	r.Title = "remote edit"
	r.Edited = r.Edited.Add(2 * time.Hour)
	h.remote.put(r)

	sum := h.run(t)
	if sum.ConflictsDetected != 1 {
		t.Fatalf("ConflictsDetected = %d, want 1", sum.ConflictsDetected)
	}
	conflicts, err := h.local.Conflicts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(conflicts) != 1 || conflicts[0].SyncID != synced.SyncID {
		t.Errorf("conflicts = %+v", conflicts)
	}
	local, _ := h.local.GetBySyncID(ctx, synced.SyncID)
	if local.Title != "local edit" {
		t.Errorf("local copy overwritten: %q", local.Title)
	}
	if rr, _ := h.remote.get(synced.SyncID); rr.Title != "remote edit" {
		t.Errorf("remote copy overwritten: %q", rr.Title)
	}
	want := []journalCall{{journal.ActionConflictDetected, journal.StatusOK, 1}}
	if diff := cmp.Diff(want, h.jr.take()); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}

	sum = h.run(t)
	if sum.ConflictsDetected != 0 {
		t.Errorf("existing marker counted again: %d", sum.ConflictsDetected)
	}
	if conflicts, _ := h.local.Conflicts(ctx); len(conflicts) != 1 {
		t.Errorf("expected marker to remain, got %+v", conflicts)
	}
}

func TestRun_SameEditedDifferentContentIsNotAConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n := h.create(t, "shared")
	h.run(t)
	synced, _ := h.local.GetByLocalID(ctx, n.LocalID)

	r, _ := h.remote.get(synced.SyncID)
	r.Title = "silently different"
	h.remote.put(r)

	sum := h.run(t)
	if sum.ConflictsDetected != 0 {
		t.Errorf("conflict detection compares edited stamps only, got %d", sum.ConflictsDetected)
	}
}

func TestRun_DuplicateSyncIDIsDataCorruption(t *testing.T) {
	h := newHarness(t)
	ts := time.Date(2024, 4, 4, 0, 0, 0, 0, time.UTC)
	e := notes.RemoteEntry{SyncID: "D1", Title: "first", Created: ts, Edited: ts, Viewed: ts}
	h.remote.put(e)
	dup := e
	dup.Title = "second"
	h.remote.extra = []notes.RemoteEntry{dup, {Title: "no id"}}

	sum := h.run(t)
	if sum.Corrupt != 2 || sum.Pulled != 1 {
		t.Errorf("Corrupt = %d, Pulled = %d; want 2, 1", sum.Corrupt, sum.Pulled)
	}
	got, err := h.local.GetBySyncID(context.Background(), "D1")
	if err != nil || got.Title != "first" {
		t.Errorf("expected first occurrence to win, got %+v (%v)", got, err)
	}
	want := []journalCall{
		{journal.ActionPulledNew, journal.StatusOK, 1},
		{journal.ActionPulledNew, journal.StatusError, 2},
	}
	if diff := cmp.Diff(want, h.jr.take()); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_CoverageInvariant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		h.create(t, fmt.Sprintf("n%d", i))
	}
	h.run(t)
	h.remote.put(notes.RemoteEntry{SyncID: "R1", Title: "r"})
	h.create(t, "late")

	h.run(t)

	list, err := h.local.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range list {
		if _, ok := h.remote.get(n.SyncID); ok {
			continue
		}
		if has, _ := h.local.HasConflict(ctx, n.SyncID); has {
			continue
		}
		if has, _ := h.local.HasTombstone(ctx, n.SyncID); has {
			continue
		}
		t.Errorf("note %+v is neither synced, conflicted nor tombstoned", n)
	}
	if len(list) != 6 {
		t.Errorf("local count = %d, want 6", len(list))
	}
}

func TestSummary_ChangedAndFailed(t *testing.T) {
	s := &Summary{}
	if s.Changed() || s.Failed() {
		t.Error("zero summary should be unchanged and not failed")
	}
	s.Pulled = 1
	if !s.Changed() {
		t.Error("Pulled should count as a change")
	}
	s = &Summary{Corrupt: 1}
	if !s.Failed() {
		t.Error("corrupt entries should mark the run failed")
	}
}
