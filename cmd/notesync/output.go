package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/journal"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/reconcile"
)

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

const timeFormat = "2006-01-02 15:04:05"

func noteJSON(n notes.NoteEntry) map[string]any {
	return map[string]any{
		"local_id":    n.LocalID,
		"sync_id":     n.SyncID,
		"title":       n.Title,
		"description": n.Description,
		"color":       n.Color.String(),
		"image_url":   n.ImageURL,
		"created":     n.Created,
		"edited":      n.Edited,
		"viewed":      n.Viewed,
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate shortens s to at most n runes for table output.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func writeSummaries(w io.Writer, summaries []*reconcile.Summary) error {
	if jsonOutput {
		return printJSON(w, map[string]any{"runs": summaries})
	}
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ACCOUNT\tPUSHED\tDELETES\tPULLED\tREMOTE DELETED\tCONFLICTS\tERRORS\tDURATION")
	for _, s := range summaries {
		errs := fmt.Sprint(s.PushErrors + s.DeleteErrors + s.PullErrors + s.RemoteDeleteErrors + s.ConflictErrors + s.Corrupt)
		if s.Aborted {
			errs = "aborted"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			s.AccountID,
			s.Pushed,
			s.DeletesPushed,
			s.Pulled,
			s.RemoteDeleted,
			s.ConflictsDetected,
			errs,
			s.Duration.Round(time.Millisecond),
		)
	}
	return tw.Flush()
}

func journalJSON(e journal.Entry) map[string]any {
	return map[string]any{
		"id":         e.ID,
		"account_id": e.AccountID,
		"finished":   e.Finished,
		"action":     e.Action.String(),
		"status":     e.Status.String(),
		"amount":     e.Amount,
	}
}
