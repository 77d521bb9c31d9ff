package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/archive"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/config"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/scheduler"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/worker"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var (
	jsonOutput  bool
	accountFlag string
)

var rootCmd = &cobra.Command{
	Use:           "notesync",
	Short:         "notesync - two-way note synchronization",
	Long:          "Runs the sync daemon for every configured account. Subcommands edit notes, inspect the journal and resolve conflicts offline.",
	SilenceUsage:  true,
	RunE:          run,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&accountFlag, "account", "",
		"Account id (defaults to the only configured account)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(conflictCmd)
	rootCmd.AddCommand(journalCmd)
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogger(cfg.Log)
	slog.Info("configuration loaded", "accounts", len(cfg.Accounts))

	if len(cfg.Accounts) == 0 {
		return fmt.Errorf("no accounts configured")
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)

	mgr, err := newEngine(cfg, db).manager()
	if err != nil {
		db.Close()
		return err
	}

	trigger, err := scheduler.NewTrigger(cfg.Sync.Schedule, mgr.Requesters()...)
	if err != nil {
		db.Close()
		return err
	}

	uploader, err := archive.NewUploader(cfg.Archive)
	if err != nil {
		db.Close()
		return err
	}
	archiver := worker.NewArchiveCoordinator(db, uploader,
		time.Duration(cfg.Archive.Interval), cfg.Archive.BatchSize)

	var wg sync.WaitGroup
	startWorker(ctx, &wg, "schedulers", mgr.Run)
	startWorker(ctx, &wg, "sync-trigger", trigger.Run)
	startWorker(ctx, &wg, "archive", archiver.Run)

	// Initial sync on startup; policy failures simply defer.
	for _, r := range mgr.Requesters() {
		if _, err := r.RequestSync(ctx); err != nil {
			slog.Error("initial sync request failed",
				"component", "daemon",
				"account_id", r.AccountID(),
				"error", err,
			)
		}
	}

	<-ctx.Done()
	slog.Info("shutdown initiated")

	// Workers finish their in-flight job before returning.
	wg.Wait()

	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// setupLogger installs the process-wide slog handler.
func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
