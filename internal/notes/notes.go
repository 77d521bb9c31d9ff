// Package notes defines the note model shared by the local store, the remote
// client and the synchronization engine, together with its JSON wire format.
package notes

import (
	"fmt"
	"strings"
	"time"
)

// NoteEntry is a locally stored note.
//
// LocalID is owned by the local store. SyncID is empty until the first
// successful push and immutable afterwards. All timestamps are UTC.
type NoteEntry struct {
	LocalID     string
	SyncID      string
	Title       string
	Description string
	Color       Color
	ImageURL    string
	Created     time.Time
	Edited      time.Time
	Viewed      time.Time
}

// Synced reports whether the note has been assigned a remote id.
func (n NoteEntry) Synced() bool {
	return n.SyncID != ""
}

// Remote returns the synchronized fields of n in wire form.
func (n NoteEntry) Remote() RemoteEntry {
	return RemoteEntry{
		SyncID:      n.SyncID,
		Title:       n.Title,
		Description: n.Description,
		Color:       n.Color,
		ImageURL:    n.ImageURL,
		Created:     n.Created,
		Edited:      n.Edited,
		Viewed:      n.Viewed,
	}
}

// DeletionRecord is the tombstone of a synced note deleted locally whose
// remote deletion has not been confirmed yet.
type DeletionRecord struct {
	SyncID    string
	DeletedAt time.Time
}

// ConflictRecord flags a syncId whose local and remote edited timestamps
// diverged during a reconciliation.
type ConflictRecord struct {
	SyncID     string
	DetectedAt time.Time
}

// EditedEqual compares two edited stamps at wire precision (whole seconds).
func EditedEqual(a, b time.Time) bool {
	return a.Truncate(time.Second).Equal(b.Truncate(time.Second))
}

// Winner selects the side that survives a manual conflict resolution.
type Winner int

const (
	WinnerLocal Winner = iota
	WinnerRemote
)

func (w Winner) String() string {
	switch w {
	case WinnerLocal:
		return "local"
	case WinnerRemote:
		return "remote"
	default:
		return fmt.Sprintf("winner(%d)", int(w))
	}
}

// ParseWinner accepts "local" or "remote".
func ParseWinner(s string) (Winner, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local":
		return WinnerLocal, nil
	case "remote":
		return WinnerRemote, nil
	default:
		return 0, fmt.Errorf("invalid winner %q: must be local or remote", s)
	}
}
