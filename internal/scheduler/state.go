package scheduler

import (
	"context"
	"fmt"
	"sync"
)

// Phase is the externally visible scheduler state of an account.
type Phase int

const (
	Idle Phase = iota
	Running
	IdlePending
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case IdlePending:
		return "idle+pending"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// PendingStore persists the pending flag so deferred syncs survive restarts.
type PendingStore interface {
	Pending(ctx context.Context, accountID string) (bool, error)
	SetPending(ctx context.Context, accountID string, pending bool) error
}

// State couples the in-memory running flag with the persisted pending flag.
// Running is process-scoped; pending is mirrored in memory and written
// through to the PendingStore on every change. Both flags change together
// under mu, and the write-through happens under mu as well so the store
// sees changes in the same order as memory.
type State struct {
	accountID string
	store     PendingStore

	mu      sync.Mutex
	running bool
	pending bool
}

// NewState creates an idle state for accountID.
func NewState(accountID string, store PendingStore) *State {
	return &State{accountID: accountID, store: store}
}

// Phase returns the current phase.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.running:
		return Running
	case s.pending:
		return IdlePending
	default:
		return Idle
	}
}

// Load reads the persisted pending flag into memory.
func (s *State) Load(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, err := s.store.Pending(ctx, s.accountID)
	if err != nil {
		return false, fmt.Errorf("load pending flag: %w", err)
	}
	s.pending = pending
	return pending, nil
}

// RequestOrDefer moves Idle or IdlePending to Running and reports true, or,
// when a run is already in progress, marks a re-run as pending and reports
// false. A successful start consumes any pending request since the new run
// serves it.
func (s *State) RequestOrDefer(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false, s.setPending(ctx, true)
	}
	s.running = true
	if !s.pending {
		return true, nil
	}
	return true, s.setPending(ctx, false)
}

// Defer records that a sync was requested but could not start now.
func (s *State) Defer(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setPending(ctx, true)
}

// Abort returns a started state to idle with the request kept pending, for
// runs that were started but never reached the worker.
func (s *State) Abort(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return s.setPending(ctx, true)
}

// Finish marks the run complete. It reports whether a request arrived while
// running, in which case the pending flag is cleared and the caller owes
// exactly one re-run.
func (s *State) Finish(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if !s.pending {
		return false, nil
	}
	return true, s.setPending(ctx, false)
}

// setPending updates the in-memory flag and writes it through. The caller
// holds mu. The in-memory flag changes even when the write fails.
func (s *State) setPending(ctx context.Context, pending bool) error {
	s.pending = pending
	if err := s.store.SetPending(ctx, s.accountID, pending); err != nil {
		if pending {
			return fmt.Errorf("persist pending flag: %w", err)
		}
		return fmt.Errorf("clear pending flag: %w", err)
	}
	return nil
}
