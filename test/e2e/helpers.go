package e2e

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/api"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/conflict"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/journal"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/reconcile"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/remote"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/store"
)

const testAPIKey = "e2e-test-api-key"

// --- Sync Test Environment Setup ---

// service is an in-process note service.
type service struct {
	store *store.ServerStore
	url   string
}

func startService(t *testing.T) *service {
	t.Helper()
	ss, err := store.NewServerStore(filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatalf("NewServerStore() error = %v", err)
	}
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(ss, testAPIKey, "e2e")))
	t.Cleanup(func() {
		srv.Close()
		ss.Close()
	})
	return &service{store: ss, url: srv.URL}
}

// device is one client database synchronizing an account with a service.
type device struct {
	t          *testing.T
	accountID  string
	db         *store.SQLiteStore
	reconciler *reconcile.Reconciler
	resolver   *conflict.Resolver
}

func newDevice(t *testing.T, svc *service, accountID string) *device {
	t.Helper()
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "client.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	rc := remote.New(svc.url, remote.WithAPIKey(testAPIKey))
	rec := journal.NewRecorder(db)
	reconcileLocals := func(id string) reconcile.LocalStore { return db.Account(id) }
	conflictLocals := func(id string) conflict.LocalStore { return db.Account(id) }

	return &device{
		t:          t,
		accountID:  accountID,
		db:         db,
		reconciler: reconcile.New(reconcileLocals, rc, rec),
		resolver:   conflict.New(conflictLocals, rc, rec),
	}
}

func (d *device) account() *store.AccountStore {
	return d.db.Account(d.accountID)
}

func (d *device) sync() *reconcile.Summary {
	d.t.Helper()
	s, err := d.reconciler.Run(context.Background(), d.accountID)
	if err != nil {
		d.t.Fatalf("sync: %v", err)
	}
	if s.Failed() {
		d.t.Fatalf("sync reported failures: %+v", s)
	}
	return s
}

func (d *device) create(title string) *notes.NoteEntry {
	d.t.Helper()
	n, err := d.account().CreateNote(context.Background(), store.NoteInput{
		Title: title,
		Color: notes.DefaultColor,
	})
	if err != nil {
		d.t.Fatalf("CreateNote(%q): %v", title, err)
	}
	return n
}

func (d *device) list() []notes.NoteEntry {
	d.t.Helper()
	list, err := d.account().List(context.Background())
	if err != nil {
		d.t.Fatalf("List: %v", err)
	}
	return list
}

func (d *device) stats() *store.Stats {
	d.t.Helper()
	st, err := d.db.Stats(context.Background(), d.accountID)
	if err != nil {
		d.t.Fatalf("Stats: %v", err)
	}
	return st
}

func (d *device) conflicts() []notes.ConflictRecord {
	d.t.Helper()
	c, err := d.account().Conflicts(context.Background())
	if err != nil {
		d.t.Fatalf("Conflicts: %v", err)
	}
	return c
}

func (svc *service) entries(t *testing.T, accountID string) []notes.RemoteEntry {
	t.Helper()
	list, err := svc.store.ListNotes(context.Background(), accountID)
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	return list
}

// add stores a note directly on the service, bypassing every client.
func (svc *service) add(t *testing.T, accountID, title string) string {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	id, err := svc.store.AddNote(context.Background(), accountID, notes.RemoteEntry{
		Title:   title,
		Color:   notes.DefaultColor,
		Created: now,
		Edited:  now,
		Viewed:  now,
	})
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	return id
}

func titles[T any](items []T, title func(T) string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[title(it)] = true
	}
	return out
}
