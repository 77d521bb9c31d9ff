package store

import (
	"context"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
)

// NoteService defines the storage contract of the reference note service.
type NoteService interface {
	ListNotes(ctx context.Context, accountID string) ([]notes.RemoteEntry, error)
	GetNote(ctx context.Context, accountID, syncID string) (*notes.RemoteEntry, error)
	AddNote(ctx context.Context, accountID string, e notes.RemoteEntry) (string, error)
	UpdateNote(ctx context.Context, accountID, syncID string, e notes.RemoteEntry) error
	DeleteNote(ctx context.Context, accountID, syncID string) error
	CountNotes(ctx context.Context) (int64, error)
}

var _ NoteService = (*ServerStore)(nil)
