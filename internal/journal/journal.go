// Package journal records the append-only audit trail of sync actions.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Action identifies what a journal entry records. Values are persisted and
// must not be renumbered.
type Action int

const (
	ActionPushedNew Action = iota
	ActionPulledNew
	ActionPushedDelete
	ActionPulledDelete
	ActionConflictDetected
	ActionConflictResolvedLocal
	ActionConflictResolvedRemote
	ActionNoOp
)

var actionNames = map[Action]string{
	ActionPushedNew:              "pushed-new",
	ActionPulledNew:              "pulled-new",
	ActionPushedDelete:           "pushed-delete",
	ActionPulledDelete:           "pulled-delete",
	ActionConflictDetected:       "conflict-detected",
	ActionConflictResolvedLocal:  "conflict-resolved-local",
	ActionConflictResolvedRemote: "conflict-resolved-remote",
	ActionNoOp:                   "no-op",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Status is the outcome of a journaled action. Values are persisted.
type Status int

const (
	StatusOK Status = iota
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// StatusOf maps a failure flag to a Status.
func StatusOf(failed bool) Status {
	if failed {
		return StatusError
	}
	return StatusOK
}

// Entry is one journal row.
type Entry struct {
	ID        int64     `json:"id"`
	AccountID string    `json:"account_id"`
	Finished  time.Time `json:"finished"`
	Action    Action    `json:"action"`
	Status    Status    `json:"status"`
	Amount    int       `json:"amount"`
}

// Sink persists journal entries and returns the assigned id.
type Sink interface {
	AppendJournal(ctx context.Context, entry Entry) (int64, error)
}

// Recorder appends entries to a Sink. Entries are never rolled back.
type Recorder struct {
	sink Sink
	now  func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the time source used for the finished stamp.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder creates a Recorder writing to sink.
func NewRecorder(sink Sink, opts ...Option) *Recorder {
	r := &Recorder{
		sink: sink,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Append writes one entry for accountID.
func (r *Recorder) Append(ctx context.Context, accountID string, action Action, status Status, amount int) error {
	entry := Entry{
		AccountID: accountID,
		Finished:  r.now().UTC(),
		Action:    action,
		Status:    status,
		Amount:    amount,
	}

	id, err := r.sink.AppendJournal(ctx, entry)
	if err != nil {
		slog.Error("journal append failed",
			"component", "journal",
			"account_id", accountID,
			"action", action.String(),
			"error", err,
		)
		return fmt.Errorf("append journal entry: %w", err)
	}

	slog.Info("journal entry appended",
		"component", "journal",
		"account_id", accountID,
		"id", id,
		"action", action.String(),
		"status", status.String(),
		"amount", amount,
	)
	return nil
}
