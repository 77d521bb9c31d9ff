// Package scheduler runs reconciliations single-flight per account on a
// dedicated serial worker, deferring requests that arrive while a run is in
// progress or while connectivity policy forbids syncing.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/netstate"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/reconcile"
)

// Outcome is the immediate result of a sync request.
type Outcome int

const (
	Started Outcome = iota
	Deferred
)

func (o Outcome) String() string {
	if o == Started {
		return "started"
	}
	return "deferred"
}

var (
	// ErrDeferred is returned by SyncNow when the run could not start.
	ErrDeferred = errors.New("sync deferred")
	// ErrRunInProgress is the deferral reason when another run holds the worker.
	ErrRunInProgress = errors.New("a run is already in progress")
	// ErrStopped is returned when the worker is no longer running.
	ErrStopped = errors.New("scheduler stopped")
)

// defaultQueueSize bounds queued jobs; at most one of them is a reconciliation.
const defaultQueueSize = 16

// Runner performs one reconciliation.
type Runner interface {
	Run(ctx context.Context, accountID string) (*reconcile.Summary, error)
}

// Resolver settles one conflict.
type Resolver interface {
	Resolve(ctx context.Context, accountID, syncID string, winner notes.Winner) error
}

// Config configures a Scheduler.
type Config struct {
	AccountID    string
	WifiOnly     bool
	Runner       Runner
	Resolver     Resolver
	Connectivity netstate.Checker
	Pending      PendingStore

	// OnRunComplete, if set, is called on the worker after every run.
	OnRunComplete func(*reconcile.Summary, error)

	QueueSize int
}

type runResult struct {
	summary *reconcile.Summary
	err     error
}

type job struct {
	// reconcile jobs carry done; resolution jobs carry syncID and result.
	done chan runResult

	syncID string
	winner notes.Winner
	result chan error
}

func (j job) isRun() bool {
	return j.result == nil
}

// Scheduler serializes every reconciliation and conflict resolution of one
// account on a single worker goroutine.
type Scheduler struct {
	cfg     Config
	state   *State
	jobs    chan job
	ready   chan struct{}
	stopped chan struct{}

	// mu orders every send on jobs against the close of stopped; senders
	// counts sends still in flight when stopped closes.
	mu      sync.Mutex
	senders sync.WaitGroup
}

// New creates a Scheduler. Run must be called to start its worker.
func New(cfg Config) (*Scheduler, error) {
	if cfg.AccountID == "" {
		return nil, errors.New("scheduler: account id is required")
	}
	if cfg.Runner == nil || cfg.Pending == nil || cfg.Connectivity == nil {
		return nil, errors.New("scheduler: runner, pending store and connectivity are required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	return &Scheduler{
		cfg:     cfg,
		state:   NewState(cfg.AccountID, cfg.Pending),
		jobs:    make(chan job, cfg.QueueSize),
		ready:   make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

// AccountID returns the account this scheduler serves.
func (s *Scheduler) AccountID() string {
	return s.cfg.AccountID
}

// Ready is closed once Run has started and retried any pending sync left
// by a previous process.
func (s *Scheduler) Ready() <-chan struct{} {
	return s.ready
}

// Phase returns the current scheduler phase.
func (s *Scheduler) Phase() Phase {
	return s.state.Phase()
}

// RequestSync starts a reconciliation on the worker or defers it. Policy
// failures and concurrent runs both yield Deferred with a nil error; the
// error only reports a failure to persist the pending flag.
func (s *Scheduler) RequestSync(ctx context.Context) (Outcome, error) {
	outcome, _, err := s.request(ctx, nil)
	return outcome, err
}

// SyncNow requests a reconciliation and waits for it. A deferred request
// returns an error matching ErrDeferred and the policy reason, if any.
func (s *Scheduler) SyncNow(ctx context.Context) (*reconcile.Summary, error) {
	done := make(chan runResult, 1)
	outcome, reason, err := s.request(ctx, done)
	if err != nil {
		return nil, err
	}
	if outcome == Deferred {
		if reason != nil {
			return nil, fmt.Errorf("%w: %w", ErrDeferred, reason)
		}
		return nil, fmt.Errorf("%w: %w", ErrDeferred, ErrRunInProgress)
	}
	select {
	case res := <-done:
		return res.summary, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// request implements RequestSync. reason is the policy violation that caused
// a deferral, nil when deferred because a run is in progress.
func (s *Scheduler) request(ctx context.Context, done chan runResult) (outcome Outcome, reason, err error) {
	if reason = s.checkPolicy(ctx); reason != nil {
		slog.Info("sync deferred",
			"component", "scheduler",
			"account_id", s.cfg.AccountID,
			"action", "sync_deferred",
			"reason", reason.Error(),
		)
		return Deferred, reason, s.state.Defer(ctx)
	}

	started, serr := s.state.RequestOrDefer(ctx)
	if !started {
		slog.Debug("sync coalesced into pending re-run",
			"component", "scheduler",
			"account_id", s.cfg.AccountID,
			"action", "sync_coalesced",
		)
		return Deferred, nil, serr
	}
	if serr != nil {
		slog.Warn("failed to clear pending flag",
			"component", "scheduler",
			"account_id", s.cfg.AccountID,
			"error", serr,
		)
	}

	if !s.enqueue(job{done: done}) {
		return Deferred, ErrStopped, s.state.Abort(ctx)
	}
	return Started, nil, nil
}

// checkPolicy returns nil when a sync may start now.
func (s *Scheduler) checkPolicy(ctx context.Context) error {
	st := s.cfg.Connectivity.Status(ctx)
	if !st.Online {
		return notes.ErrNetworkUnavailable
	}
	if s.cfg.WifiOnly && st.Metered {
		return notes.ErrWifiPolicyViolation
	}
	return nil
}

// acquire registers a sender. It reports false once Run has begun shutting
// down; otherwise the caller must call s.senders.Done after its send.
func (s *Scheduler) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.stopped:
		return false
	default:
	}
	s.senders.Add(1)
	return true
}

// enqueue hands j to the worker without blocking.
func (s *Scheduler) enqueue(j job) bool {
	if !s.acquire() {
		return false
	}
	defer s.senders.Done()
	select {
	case s.jobs <- j:
		return true
	default:
		return false
	}
}

// ResolveConflict schedules a resolution on the worker. The returned channel
// receives exactly one value.
func (s *Scheduler) ResolveConflict(ctx context.Context, syncID string, winner notes.Winner) <-chan error {
	result := make(chan error, 1)
	if s.cfg.Resolver == nil {
		result <- errors.New("scheduler: no conflict resolver configured")
		return result
	}
	j := job{syncID: syncID, winner: winner, result: result}
	if !s.acquire() {
		result <- ErrStopped
		return result
	}
	defer s.senders.Done()
	select {
	case s.jobs <- j:
	case <-s.stopped:
		result <- ErrStopped
	case <-ctx.Done():
		result <- ctx.Err()
	}
	return result
}

// Run executes queued jobs until ctx is cancelled. A persisted pending flag
// from a previous process is retried once on start. In-flight jobs are not
// cancelled; Run returns after the current job completes.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "sync-scheduler",
		"account_id", s.cfg.AccountID,
		"action", "worker_started",
	)

	s.recoverPending(ctx)
	close(s.ready)

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			close(s.stopped)
			s.mu.Unlock()
			// Blocked senders see stopped and return; anything they managed
			// to queue is drained below.
			s.senders.Wait()
			s.drain()
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "sync-scheduler",
				"account_id", s.cfg.AccountID,
				"action", "worker_stopped",
				"reason", "context_cancelled",
			)
			return
		case j := <-s.jobs:
			s.execute(context.WithoutCancel(ctx), j)
		}
	}
}

func (s *Scheduler) recoverPending(ctx context.Context) {
	pending, err := s.state.Load(ctx)
	if err != nil {
		slog.Error("failed to load pending flag",
			"component", "scheduler",
			"account_id", s.cfg.AccountID,
			"error", err,
		)
		return
	}
	if !pending {
		return
	}
	slog.Info("retrying sync deferred before restart",
		"component", "scheduler",
		"account_id", s.cfg.AccountID,
		"action", "pending_recovered",
	)
	if _, err := s.RequestSync(ctx); err != nil {
		slog.Warn("failed to persist pending flag",
			"component", "scheduler",
			"account_id", s.cfg.AccountID,
			"error", err,
		)
	}
}

func (s *Scheduler) execute(ctx context.Context, j job) {
	if !j.isRun() {
		j.result <- s.cfg.Resolver.Resolve(ctx, s.cfg.AccountID, j.syncID, j.winner)
		return
	}

	summary, err := s.cfg.Runner.Run(ctx, s.cfg.AccountID)
	if err != nil {
		slog.Error("sync run failed",
			"component", "scheduler",
			"account_id", s.cfg.AccountID,
			"error", err,
		)
	}

	// Finish before notifying so a caller woken by done can start the next run.
	rerun, ferr := s.state.Finish(ctx)
	if ferr != nil {
		slog.Warn("failed to clear pending flag",
			"component", "scheduler",
			"account_id", s.cfg.AccountID,
			"error", ferr,
		)
	}
	if s.cfg.OnRunComplete != nil {
		s.cfg.OnRunComplete(summary, err)
	}
	if j.done != nil {
		j.done <- runResult{summary: summary, err: err}
	}
	if rerun {
		if _, err := s.RequestSync(ctx); err != nil {
			slog.Warn("failed to persist pending flag",
				"component", "scheduler",
				"account_id", s.cfg.AccountID,
				"error", err,
			)
		}
	}
}

// drain fails queued resolutions and keeps queued reconciliations pending
// so the next process picks them up.
func (s *Scheduler) drain() {
	ctx := context.Background()
	for {
		select {
		case j := <-s.jobs:
			if !j.isRun() {
				j.result <- ErrStopped
				continue
			}
			if err := s.state.Abort(ctx); err != nil {
				slog.Warn("failed to persist pending flag",
					"component", "scheduler",
					"account_id", s.cfg.AccountID,
					"error", err,
				)
			}
			if j.done != nil {
				j.done <- runResult{err: ErrStopped}
			}
		default:
			return
		}
	}
}
