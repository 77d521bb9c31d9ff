package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/config"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/remote"
)

var statusCheck bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local sync state per account",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusCheck, "check", false,
		"Also check that each account's note service is reachable")
}

// reachability pings the account's note service. It returns "-" when the
// account is not configured.
func reachability(ctx context.Context, cfg *config.Config, id string) string {
	acct, ok := cfg.Account(id)
	if !ok {
		return "-"
	}
	client := remote.New(acct.RemoteURL,
		remote.WithAPIKey(acct.APIKey),
		remote.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Sync.ProbeTimeout)}),
	)
	if err := client.Ping(ctx); err != nil {
		return "unreachable"
	}
	return "ok"
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(cfg.Accounts))
	if accountFlag != "" {
		ids = append(ids, accountFlag)
	} else {
		for _, a := range cfg.Accounts {
			ids = append(ids, a.ID)
		}
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	type row struct {
		account string
		remote  string
		pending bool
		notes   int
		unsync  int
		tombs   int
		confl   int
		journal int
		reach   string
	}
	rows := make([]row, 0, len(ids))
	for _, id := range ids {
		st, err := db.Stats(ctx, id)
		if err != nil {
			return err
		}
		pending, err := db.Pending(ctx, id)
		if err != nil {
			return err
		}
		remoteURL := "-"
		if a, ok := cfg.Account(id); ok {
			remoteURL = a.RemoteURL
		}
		reach := ""
		if statusCheck {
			reach = reachability(ctx, cfg, id)
		}
		rows = append(rows, row{id, remoteURL, pending, st.Notes, st.Unsynced, st.Tombstones, st.Conflicts, st.Journal, reach})
	}

	if jsonOutput {
		items := make([]map[string]any, len(rows))
		for i, r := range rows {
			item := map[string]any{
				"account_id": r.account,
				"remote_url": r.remote,
				"pending":    r.pending,
				"notes":      r.notes,
				"unsynced":   r.unsync,
				"tombstones": r.tombs,
				"conflicts":  r.confl,
				"journal":    r.journal,
			}
			if statusCheck {
				item["remote"] = r.reach
			}
			items[i] = item
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{"accounts": items})
	}

	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No accounts configured.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	header := "ACCOUNT\tREMOTE\tPENDING\tNOTES\tUNSYNCED\tTOMBSTONES\tCONFLICTS\tJOURNAL"
	if statusCheck {
		header += "\tREACHABLE"
	}
	fmt.Fprintln(w, header)
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%d\t%d\t%d\t%d",
			r.account, r.remote, r.pending, r.notes, r.unsync, r.tombs, r.confl, r.journal)
		if statusCheck {
			fmt.Fprintf(w, "\t%s", r.reach)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}
