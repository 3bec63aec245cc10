package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shuttle/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and manage import history",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))

	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent imports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := fetchHistoryEntries(ctx, limit)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "History is empty")
				return nil
			}
			table := renderTable(
				[]string{"Name", "Type", "Imported", "Path"},
				buildHistoryRows(entries),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprint(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum entries to show (0 shows all)")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all history entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if client, err := ctx.dialClient(); err == nil {
				defer client.Close()
				if _, err := client.HistoryClear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
				return nil
			}

			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	}
}

// fetchHistoryEntries prefers the daemon view and falls back to reading the
// history file directly when no daemon is listening.
func fetchHistoryEntries(ctx *commandContext, limit int) ([]ipc.HistoryEntry, error) {
	if client, err := ctx.dialClient(); err == nil {
		defer client.Close()
		resp, err := client.HistoryList(limit)
		if err != nil {
			return nil, err
		}
		return resp.Entries, nil
	}

	store, err := ctx.openHistory()
	if err != nil {
		return nil, err
	}
	entries := store.Entries()
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return ipc.FromHistoryEntries(entries), nil
}
