package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/config"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/reconcile"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/scheduler"
)

var syncAll bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation now",
	Long:  "Synchronizes the selected account (or every account with --all) and prints what each run did. Connectivity policy still applies.",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncAll, "all", false,
		"Synchronize every configured account")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogger(cfg.Log)

	accounts := cfg.Accounts
	if !syncAll {
		acct, err := resolveAccount(cfg)
		if err != nil {
			return err
		}
		accounts = []config.AccountConfig{acct}
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	eng := newEngine(cfg, db)
	summaries := make([]*reconcile.Summary, 0, len(accounts))
	var errs []error
	for _, acct := range accounts {
		s, err := syncAccount(ctx, eng, acct)
		if s != nil {
			summaries = append(summaries, s)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("sync %s: %w", acct.ID, err))
		}
	}

	if err := writeSummaries(cmd.OutOrStdout(), summaries); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// syncAccount starts the account's worker, runs one reconciliation and stops
// the worker once it is idle.
func syncAccount(ctx context.Context, eng *engine, acct config.AccountConfig) (*reconcile.Summary, error) {
	type result struct {
		summary *reconcile.Summary
		err     error
	}
	completed := make(chan result, 4)
	eng.onRun = func(s *reconcile.Summary, err error) {
		logRun(s, err)
		select {
		case completed <- result{s, err}:
		default:
		}
	}

	sched, err := eng.scheduler(acct)
	if err != nil {
		return nil, err
	}

	var summary *reconcile.Summary
	err = withWorker(ctx, sched, func() error {
		var err error
		summary, err = sched.SyncNow(ctx)
		if !errors.Is(err, scheduler.ErrRunInProgress) {
			return err
		}
		// A sync deferred by an earlier process was recovered first.
		select {
		case r := <-completed:
			summary = r.summary
			return r.err
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	return summary, err
}

// withWorker runs sched's worker for the duration of fn. The worker is
// stopped after fn returns and its in-flight job has completed.
func withWorker(ctx context.Context, sched *scheduler.Scheduler, fn func() error) error {
	workerCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(workerCtx)
	}()
	defer func() {
		stop()
		<-done
	}()

	select {
	case <-sched.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	return fn()
}
