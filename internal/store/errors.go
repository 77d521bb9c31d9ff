package store

import (
	"errors"
	"fmt"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
)

var (
	// ErrNotFound is returned when a note or key does not exist.
	ErrNotFound = notes.ErrNotFound
	// ErrSyncIDAssigned is returned when assigning a syncId to a note that already has one.
	ErrSyncIDAssigned = errors.New("sync id already assigned")
)

// storageErr tags a database failure with notes.ErrLocalStorage.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, notes.ErrLocalStorage, err)
}
