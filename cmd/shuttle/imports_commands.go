package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shuttle/internal/catalogaccess"
)

func newImportsCommand(ctx *commandContext) *cobra.Command {
	importsCmd := &cobra.Command{
		Use:   "imports",
		Short: "Inspect and manage catalog entries",
	}

	importsCmd.AddCommand(newImportsStatusCommand(ctx))
	importsCmd.AddCommand(newImportsListCommand(ctx))
	importsCmd.AddCommand(newImportsClearCommand(ctx))

	return importsCmd
}

func newImportsStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(access catalogaccess.Access) error {
				stats, err := access.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, stats)
				}
				rows := buildCatalogStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newImportsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(access catalogaccess.Access) error {
				items, err := access.List(cmd.Context(), listStatuses)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Name", "Type", "Status", "Created", "Detail"},
					buildImportsRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by catalog status (repeatable)")
	return cmd
}

func newImportsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all catalog entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(access catalogaccess.Access) error {
				removed, err := access.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d catalog entries\n", removed)
				return nil
			})
		},
	}
}
