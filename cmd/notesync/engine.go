package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/config"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/conflict"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/journal"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/netstate"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/reconcile"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/remote"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/scheduler"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/store"
)

// engine wires the sync components of every account onto one local store.
type engine struct {
	cfg      *config.Config
	db       *store.SQLiteStore
	recorder *journal.Recorder
	// onRun observes every completed run of schedulers built afterwards.
	onRun func(*reconcile.Summary, error)
}

func newEngine(cfg *config.Config, db *store.SQLiteStore) *engine {
	return &engine{
		cfg:      cfg,
		db:       db,
		recorder: journal.NewRecorder(db),
		onRun:    logRun,
	}
}

func (e *engine) reconcileLocals(id string) reconcile.LocalStore { return e.db.Account(id) }
func (e *engine) conflictLocals(id string) conflict.LocalStore   { return e.db.Account(id) }

// scheduler builds the scheduler of one configured account.
func (e *engine) scheduler(acct config.AccountConfig) (*scheduler.Scheduler, error) {
	client := remote.New(acct.RemoteURL,
		remote.WithAPIKey(acct.APIKey),
		remote.WithHTTPClient(&http.Client{Timeout: time.Duration(e.cfg.Sync.RequestTimeout)}),
	)
	rc := client.Alias(acct.RemoteID())

	prober, err := netstate.NewProber(acct.RemoteURL,
		netstate.WithTimeout(time.Duration(e.cfg.Sync.ProbeTimeout)),
		netstate.WithMetered(e.cfg.Sync.Metered),
	)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", acct.ID, err)
	}

	return scheduler.New(scheduler.Config{
		AccountID:     acct.ID,
		WifiOnly:      acct.WifiOnly,
		Runner:        reconcile.New(e.reconcileLocals, rc, e.recorder),
		Resolver:      conflict.New(e.conflictLocals, rc, e.recorder),
		Connectivity:  prober,
		Pending:       e.db,
		OnRunComplete: e.onRun,
	})
}

// manager builds schedulers for every configured account.
func (e *engine) manager() (*scheduler.Manager, error) {
	schedulers := make([]*scheduler.Scheduler, 0, len(e.cfg.Accounts))
	for _, acct := range e.cfg.Accounts {
		s, err := e.scheduler(acct)
		if err != nil {
			return nil, err
		}
		schedulers = append(schedulers, s)
	}
	return scheduler.NewManager(schedulers...)
}

// logRun reports the outcome of every reconciliation.
func logRun(s *reconcile.Summary, err error) {
	if s == nil {
		return
	}
	attrs := []any{
		"component", "daemon",
		"account_id", s.AccountID,
		"pushed", s.Pushed,
		"pulled", s.Pulled,
		"deletes_pushed", s.DeletesPushed,
		"remote_deleted", s.RemoteDeleted,
		"conflicts", s.ConflictsDetected,
		"duration_ms", s.Duration.Milliseconds(),
	}
	switch {
	case err != nil:
		slog.Warn("sync aborted", append(attrs, "error", err)...)
	case s.Failed():
		slog.Warn("sync completed with errors", attrs...)
	default:
		slog.Info("sync completed", attrs...)
	}
}

// openStore opens the local store named by cfg.
func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Database.Path, err)
	}
	return db, nil
}

var errNoAccount = errors.New("no account selected: pass --account or configure exactly one account")

// resolveAccountID picks the account for a subcommand: --account wins,
// otherwise the only configured account.
func resolveAccountID(cfg *config.Config) (string, error) {
	if accountFlag != "" {
		return accountFlag, nil
	}
	if len(cfg.Accounts) == 1 {
		return cfg.Accounts[0].ID, nil
	}
	return "", errNoAccount
}

// resolveAccount returns the configured account for a subcommand that talks
// to the remote service.
func resolveAccount(cfg *config.Config) (config.AccountConfig, error) {
	id, err := resolveAccountID(cfg)
	if err != nil {
		return config.AccountConfig{}, err
	}
	acct, ok := cfg.Account(id)
	if !ok {
		return config.AccountConfig{}, fmt.Errorf("account %q is not configured", id)
	}
	return acct, nil
}
