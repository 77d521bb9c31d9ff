package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/config"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
)

var conflictWinner string

var conflictCmd = &cobra.Command{
	Use:   "conflict",
	Short: "Inspect and resolve sync conflicts",
}

var conflictListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes edited on both sides since the last sync",
	Args:  cobra.NoArgs,
	RunE:  runConflictList,
}

var conflictResolveCmd = &cobra.Command{
	Use:   "resolve <sync-id>",
	Short: "Settle a conflict by keeping one side",
	Long:  "Keeps the local or remote version of a conflicted note and writes it to the other side. Requires the note service to be reachable.",
	Args:  cobra.ExactArgs(1),
	RunE:  runConflictResolve,
}

func init() {
	conflictResolveCmd.Flags().StringVar(&conflictWinner, "winner", "",
		"Side to keep: local or remote")
	_ = conflictResolveCmd.MarkFlagRequired("winner")

	conflictCmd.AddCommand(conflictListCmd)
	conflictCmd.AddCommand(conflictResolveCmd)
}

func runConflictList(cmd *cobra.Command, args []string) error {
	db, acct, err := openAccount()
	if err != nil {
		return err
	}
	defer db.Close()

	conflicts, err := acct.Conflicts(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		items := make([]map[string]any, len(conflicts))
		for i, c := range conflicts {
			items[i] = map[string]any{
				"sync_id":     c.SyncID,
				"detected_at": c.DetectedAt,
			}
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"account_id": acct.AccountID(),
			"conflicts":  items,
			"total":      len(items),
		})
	}

	if len(conflicts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No conflicts.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "SYNC ID\tDETECTED")
	for _, c := range conflicts {
		fmt.Fprintf(w, "%s\t%s\n", c.SyncID, c.DetectedAt.Local().Format(timeFormat))
	}
	return w.Flush()
}

func runConflictResolve(cmd *cobra.Command, args []string) error {
	syncID := args[0]
	winner, err := notes.ParseWinner(conflictWinner)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogger(cfg.Log)

	acct, err := resolveAccount(cfg)
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sched, err := newEngine(cfg, db).scheduler(acct)
	if err != nil {
		return err
	}

	err = withWorker(ctx, sched, func() error {
		select {
		case err := <-sched.ResolveConflict(ctx, syncID, winner):
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		return fmt.Errorf("resolve %s: %w", syncID, err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"sync_id":  syncID,
			"winner":   winner.String(),
			"resolved": true,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Resolved %s, kept %s version\n", syncID, winner)
	return nil
}
