package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/config"
)

var (
	journalLimit int
	clearForce   bool
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show or clear the sync journal",
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries, newest first",
	Long:  "Lists journal entries of the account given by --account, or of every account when none is given.",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the journal of an account",
	Long:  "Permanently deletes every journal entry of an account. Requires --force or interactive confirmation.",
	Args:  cobra.NoArgs,
	RunE:  runJournalClear,
}

func init() {
	journalListCmd.Flags().IntVar(&journalLimit, "limit", 50,
		"Maximum number of entries to show (0 for all)")
	journalClearCmd.Flags().BoolVar(&clearForce, "force", false,
		"Skip confirmation prompt")

	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalClearCmd)
}

func runJournalList(cmd *cobra.Command, args []string) error {
	if journalLimit < 0 {
		return fmt.Errorf("invalid limit %d: must not be negative", journalLimit)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	limit := journalLimit
	if limit == 0 {
		limit = -1
	}
	entries, err := db.ListJournal(context.Background(), accountFlag, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		items := make([]map[string]any, len(entries))
		for i, e := range entries {
			items[i] = journalJSON(e)
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"entries": items,
			"total":   len(items),
		})
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Journal is empty.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tACCOUNT\tFINISHED\tACTION\tSTATUS\tAMOUNT")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\n",
			e.ID,
			e.AccountID,
			e.Finished.Local().Format(timeFormat),
			e.Action,
			e.Status,
			e.Amount,
		)
	}
	return w.Flush()
}

func runJournalClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	accountID, err := resolveAccountID(cfg)
	if err != nil {
		return err
	}

	if !clearForce {
		errOut := cmd.ErrOrStderr()
		fmt.Fprintf(errOut, "WARNING: This will permanently delete the journal of account %q.\n", accountID)
		fmt.Fprint(errOut, "Type the account ID to confirm: ")

		reader := bufio.NewReader(cmd.InOrStdin())
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if strings.TrimSpace(input) != accountID {
			fmt.Fprintln(errOut, "Aborted. Account ID did not match.")
			return nil
		}
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.ClearJournal(context.Background(), accountID)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"account_id": accountID,
			"deleted":    n,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d journal entries of %q\n", n, accountID)
	return nil
}
