package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cbir/internal/app"
	"cbir/internal/journal"
)

type historyEntry struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	Subject   string `json:"subject"`
	Detail    string `json:"detail,omitempty"`
	Outcome   string `json:"outcome"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
	CreatedAt string `json:"created_at"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent searches, uploads, and feedback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				entries, err := a.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					out := make([]historyEntry, 0, len(entries))
					for _, e := range entries {
						out = append(out, toHistoryEntry(e))
					}
					return writeJSON(cmd, out)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No activity recorded yet.")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						strconv.FormatInt(e.ID, 10),
						e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						string(e.Kind),
						e.Subject,
						string(e.Outcome),
						historyNote(e),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "When", "Kind", "Subject", "Outcome", "Note"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}

func historyNote(e journal.Entry) string {
	if e.Message != "" {
		return e.Message
	}
	return e.Detail
}

func toHistoryEntry(e journal.Entry) historyEntry {
	return historyEntry{
		ID:        e.ID,
		Kind:      string(e.Kind),
		Subject:   e.Subject,
		Detail:    e.Detail,
		Outcome:   string(e.Outcome),
		ErrorKind: e.ErrorKind,
		Message:   e.Message,
		CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
