package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Requester is anything that accepts sync requests.
type Requester interface {
	AccountID() string
	RequestSync(ctx context.Context) (Outcome, error)
}

// Trigger fires RequestSync on every target according to a cron spec such
// as "@every 15m" or "*/5 * * * *".
type Trigger struct {
	spec    string
	targets []Requester
	cron    *cron.Cron
}

// NewTrigger parses spec and registers targets.
func NewTrigger(spec string, targets ...Requester) (*Trigger, error) {
	t := &Trigger{
		spec:    spec,
		targets: targets,
		cron:    cron.New(),
	}
	if _, err := t.cron.AddFunc(spec, t.fire); err != nil {
		return nil, fmt.Errorf("parse sync schedule %q: %w", spec, err)
	}
	return t, nil
}

// Run starts the cron loop and blocks until ctx is cancelled.
func (t *Trigger) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "sync-trigger",
		"action", "worker_started",
		"schedule", t.spec,
		"accounts", len(t.targets),
	)
	t.cron.Start()
	<-ctx.Done()
	<-t.cron.Stop().Done()
	slog.Info("worker stopped",
		"component", "worker",
		"worker", "sync-trigger",
		"action", "worker_stopped",
		"reason", "context_cancelled",
	)
}

func (t *Trigger) fire() {
	ctx := context.Background()
	for _, target := range t.targets {
		outcome, err := target.RequestSync(ctx)
		if err != nil {
			slog.Warn("scheduled sync request failed",
				"component", "scheduler",
				"account_id", target.AccountID(),
				"error", err,
			)
			continue
		}
		slog.Debug("scheduled sync requested",
			"component", "scheduler",
			"account_id", target.AccountID(),
			"outcome", outcome.String(),
		)
	}
}
