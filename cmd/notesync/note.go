package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/config"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/store"
	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/validation"
)

var (
	noteTitle       string
	noteDescription string
	noteColor       string
	noteImageURL    string
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Edit notes in the local store",
	Long:  "Create, list, edit and delete notes locally. Changes reach the note service on the next sync.",
}

var noteAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a note",
	Args:  cobra.NoArgs,
	RunE:  runNoteAdd,
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes in display order",
	Args:  cobra.NoArgs,
	RunE:  runNoteList,
}

var noteEditCmd = &cobra.Command{
	Use:   "edit <local-id>",
	Short: "Change fields of a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteEdit,
}

var noteDeleteCmd = &cobra.Command{
	Use:   "delete <local-id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteDelete,
}

var noteOrderCmd = &cobra.Command{
	Use:   "order <local-id> <position>",
	Short: "Set the local display position of a note",
	Long:  "Sets the manual ordering position. Ordering is local only and never synchronized.",
	Args:  cobra.ExactArgs(2),
	RunE:  runNoteOrder,
}

func init() {
	for _, c := range []*cobra.Command{noteAddCmd, noteEditCmd} {
		c.Flags().StringVar(&noteTitle, "title", "", "Note title")
		c.Flags().StringVar(&noteDescription, "description", "", "Note body")
		c.Flags().StringVar(&noteColor, "color", notes.DefaultColor.String(), "Color as #RRGGBB")
		c.Flags().StringVar(&noteImageURL, "image-url", "", "Absolute http(s) image URL")
	}

	noteCmd.AddCommand(noteAddCmd)
	noteCmd.AddCommand(noteListCmd)
	noteCmd.AddCommand(noteEditCmd)
	noteCmd.AddCommand(noteDeleteCmd)
	noteCmd.AddCommand(noteOrderCmd)
}

// openAccount loads config and opens the selected account's local store.
// The caller closes the returned store.
func openAccount() (*store.SQLiteStore, *store.AccountStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	id, err := resolveAccountID(cfg)
	if err != nil {
		return nil, nil, err
	}
	db, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, db.Account(id), nil
}

// noteInput validates flag input with the same rules the note service applies.
func noteInput(title, description, color, imageURL string) (store.NoteInput, error) {
	c, err := notes.ParseColor(color)
	if err != nil {
		return store.NoteInput{}, err
	}
	now := time.Now()
	entry := notes.RemoteEntry{
		Title:       title,
		Description: description,
		Color:       c,
		ImageURL:    imageURL,
		Created:     now,
		Edited:      now,
		Viewed:      now,
	}
	if errs := validation.ValidateEntry(entry); len(errs) > 0 {
		var col validation.Collector
		for i := range errs {
			col.Add(&errs[i])
		}
		return store.NoteInput{}, fmt.Errorf("invalid note: %s", col.Summary())
	}
	return store.NoteInput{
		Title:       title,
		Description: description,
		Color:       c,
		ImageURL:    imageURL,
	}, nil
}

func runNoteAdd(cmd *cobra.Command, args []string) error {
	in, err := noteInput(noteTitle, noteDescription, noteColor, noteImageURL)
	if err != nil {
		return err
	}

	db, acct, err := openAccount()
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := acct.CreateNote(context.Background(), in)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), noteJSON(*n))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created note %s\n", n.LocalID)
	return nil
}

func runNoteList(cmd *cobra.Command, args []string) error {
	db, acct, err := openAccount()
	if err != nil {
		return err
	}
	defer db.Close()

	list, err := acct.List(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		items := make([]map[string]any, len(list))
		for i, n := range list {
			items[i] = noteJSON(n)
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"notes": items,
			"total": len(items),
		})
	}

	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No notes found.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "LOCAL ID\tSYNC ID\tTITLE\tCOLOR\tEDITED")
	for _, n := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			n.LocalID,
			orDash(n.SyncID),
			orDash(truncate(n.Title, 40)),
			n.Color,
			n.Edited.Local().Format(timeFormat),
		)
	}
	return w.Flush()
}

func runNoteEdit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	db, acct, err := openAccount()
	if err != nil {
		return err
	}
	defer db.Close()

	current, err := acct.GetByLocalID(ctx, args[0])
	if err != nil {
		return err
	}

	title, description, color, imageURL := current.Title, current.Description, current.Color.String(), current.ImageURL
	flags := cmd.Flags()
	if flags.Changed("title") {
		title = noteTitle
	}
	if flags.Changed("description") {
		description = noteDescription
	}
	if flags.Changed("color") {
		color = noteColor
	}
	if flags.Changed("image-url") {
		imageURL = noteImageURL
	}

	in, err := noteInput(title, description, color, imageURL)
	if err != nil {
		return err
	}
	n, err := acct.UpdateNote(ctx, args[0], in)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), noteJSON(*n))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated note %s\n", n.LocalID)
	return nil
}

func runNoteDelete(cmd *cobra.Command, args []string) error {
	db, acct, err := openAccount()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := acct.DeleteNote(context.Background(), args[0]); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"local_id": args[0],
			"deleted":  true,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted note %s\n", args[0])
	return nil
}

func runNoteOrder(cmd *cobra.Command, args []string) error {
	position, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid position %q: %w", args[1], err)
	}

	db, acct, err := openAccount()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := acct.SetManualOrder(context.Background(), args[0], position); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Moved note %s to position %d\n", args[0], position)
	return nil
}
