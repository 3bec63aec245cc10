package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"shuttle/internal/ipc"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>",
		Short: "Import an asset file or folder into the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			if _, err := os.Stat(absPath); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("path does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect path: %w", err)
			}

			// Imports always go through the daemon: extraction, dedup,
			// and history recording happen in-process there.
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Import(absPath)
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("empty response from daemon")
				}

				stdout := cmd.OutOrStdout()
				if ctx.JSONMode() {
					return writeJSON(cmd, resp.Item)
				}

				item := resp.Item
				name := item.AssetName
				if name == "" {
					name = filepath.Base(absPath)
				}
				if item.AlreadyExisted {
					fmt.Fprintf(stdout, "Already imported: %s (entry #%d)\n", name, item.ID)
					return nil
				}
				fmt.Fprintf(stdout, "Imported %s as entry #%d (%s)\n", name, item.ID, formatStatusLabel(item.Status))
				return nil
			})
		},
	}
}
