// Package worker runs the background loops of the sync daemon.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/archive"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/journal"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
)

// ArchiveCursorKey is the sync_meta key holding the id of the last archived
// journal entry.
const ArchiveCursorKey = "archive:last_id"

// DefaultArchiveBatchSize is used when NewArchiveCoordinator gets batchSize <= 0.
const DefaultArchiveBatchSize = 500

// JournalSource provides journal entries and the archive cursor.
// This interface allows testing with mock implementations.
type JournalSource interface {
	JournalAfter(ctx context.Context, afterID int64, limit int) ([]journal.Entry, error)
	GetSyncMeta(ctx context.Context, key string) (string, error)
	SetSyncMeta(ctx context.Context, key, value string) error
}

// ArchiveCoordinator periodically exports new journal entries.
type ArchiveCoordinator struct {
	source    JournalSource
	uploader  archive.Uploader
	interval  time.Duration
	batchSize int
}

// NewArchiveCoordinator creates a coordinator exporting the journal of source
// through uploader every interval.
func NewArchiveCoordinator(
	source JournalSource,
	uploader archive.Uploader,
	interval time.Duration,
	batchSize int,
) *ArchiveCoordinator {
	if batchSize <= 0 {
		batchSize = DefaultArchiveBatchSize
	}
	return &ArchiveCoordinator{
		source:    source,
		uploader:  uploader,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run starts the coordinator loop. It returns immediately when the uploader
// is not configured.
func (c *ArchiveCoordinator) Run(ctx context.Context) {
	if !c.uploader.Configured() {
		slog.Info("archive disabled",
			"component", "worker",
			"worker", "archive-coordinator",
			"action", "worker_skipped",
		)
		return
	}

	slog.Info("worker started",
		"component", "worker",
		"worker", "archive-coordinator",
		"action", "worker_started",
		"interval", c.interval.String(),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Export immediately on start
	c.exportCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "archive-coordinator",
				"action", "worker_stopped",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			c.exportCycle(ctx)
		}
	}
}

func (c *ArchiveCoordinator) exportCycle(ctx context.Context) {
	n, err := c.ExportOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return // Graceful shutdown, don't log as error
		}
		slog.Warn("journal archive failed",
			"component", "worker",
			"worker", "archive-coordinator",
			"action", "archive_failed",
			"archived", n,
			"error", err,
		)
		return
	}
	if n > 0 {
		slog.Info("journal archive cycle completed",
			"component", "worker",
			"worker", "archive-coordinator",
			"action", "cycle_complete",
			"archived", n,
		)
	}
}

// ExportOnce uploads every entry after the cursor in batches and advances the
// cursor after each successful upload. Returns the number of entries archived.
// A failed upload leaves the cursor on the last archived batch, so the failed
// batch is retried next cycle.
func (c *ArchiveCoordinator) ExportOnce(ctx context.Context) (int, error) {
	cursor, err := c.cursor(ctx)
	if err != nil {
		return 0, err
	}

	archived := 0
	for {
		if err := ctx.Err(); err != nil {
			return archived, err
		}

		batch, err := c.source.JournalAfter(ctx, cursor, c.batchSize)
		if err != nil {
			return archived, fmt.Errorf("read journal after %d: %w", cursor, err)
		}
		if len(batch) == 0 {
			return archived, nil
		}

		if err := c.uploader.Upload(ctx, batch); err != nil {
			return archived, err
		}

		last := batch[len(batch)-1].ID
		if err := c.source.SetSyncMeta(ctx, ArchiveCursorKey, strconv.FormatInt(last, 10)); err != nil {
			return archived, fmt.Errorf("advance archive cursor: %w", err)
		}
		cursor = last
		archived += len(batch)

		if len(batch) < c.batchSize {
			return archived, nil
		}
	}
}

func (c *ArchiveCoordinator) cursor(ctx context.Context) (int64, error) {
	v, err := c.source.GetSyncMeta(ctx, ArchiveCursorKey)
	if errors.Is(err, notes.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read archive cursor: %w", err)
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse archive cursor %q: %w", v, err)
	}
	return id, nil
}
