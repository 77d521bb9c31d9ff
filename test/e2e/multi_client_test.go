package e2e

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
)

func syncIDs(list []notes.NoteEntry) []string {
	ids := make([]string, 0, len(list))
	for _, n := range list {
		ids = append(ids, n.SyncID)
	}
	sort.Strings(ids)
	return ids
}

// TestMulti_TwoDevices_Convergence verifies two devices of one account
// converge on the same set of notes through the service.
func TestMulti_TwoDevices_Convergence(t *testing.T) {
	svc := startService(t)
	phone := newDevice(t, svc, "alice")
	tablet := newDevice(t, svc, "alice")

	phone.create("from phone 1")
	phone.create("from phone 2")
	phone.sync()

	if s := tablet.sync(); s.Pulled != 2 {
		t.Errorf("tablet pulled %d, want 2", s.Pulled)
	}

	tablet.create("from tablet")
	tablet.sync()
	if s := phone.sync(); s.Pulled != 1 {
		t.Errorf("phone pulled %d, want 1", s.Pulled)
	}

	if diff := cmp.Diff(syncIDs(phone.list()), syncIDs(tablet.list())); diff != "" {
		t.Fatalf("devices diverged (-phone +tablet):\n%s", diff)
	}

	// A deletion on one device propagates to the other.
	victim := phone.list()[0]
	if err := phone.account().DeleteNote(context.Background(), victim.LocalID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	phone.sync()
	if s := tablet.sync(); s.RemoteDeleted != 1 {
		t.Errorf("tablet removed %d, want 1", s.RemoteDeleted)
	}

	phoneIDs, tabletIDs := syncIDs(phone.list()), syncIDs(tablet.list())
	if len(phoneIDs) != 2 {
		t.Errorf("phone has %d notes, want 2", len(phoneIDs))
	}
	if diff := cmp.Diff(phoneIDs, tabletIDs); diff != "" {
		t.Errorf("devices diverged after deletion (-phone +tablet):\n%s", diff)
	}
	if got := len(svc.entries(t, "alice")); got != 2 {
		t.Errorf("service has %d notes, want 2", got)
	}
}
