package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/api"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/config"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference note service",
	Long:  "Serves the note REST API backed by a local SQLite database, for development and testing of the sync engine.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogger(cfg.Log)

	ss, err := store.NewServerStore(cfg.Database.ServerPath)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", cfg.Database.ServerPath)

	srv := newHTTPServer(cfg.Server, api.NewRouter(api.NewHandler(ss, cfg.Server.APIKey, Version)))
	if cfg.Server.APIKey == "" {
		slog.Warn("authentication disabled", "component", "api")
	}

	return serve(ctx, cancel, srv, time.Duration(cfg.Server.ShutdownTimeout), ss.Close)
}

func newHTTPServer(cfg config.ServerConfig, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  time.Duration(cfg.ReadTimeout),
		WriteTimeout: time.Duration(cfg.WriteTimeout),
	}
}

// serve runs srv until ctx is cancelled, then drains in-flight requests
// within timeout and closes the store last.
func serve(ctx context.Context, cancel context.CancelFunc, srv *http.Server, timeout time.Duration, closeStore func() error) error {
	go func() {
		slog.Info("server starting", "address", srv.Addr)
		// ErrServerClosed is the expected error when Shutdown() is called gracefully.
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	if err := closeStore(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
