// ABOUTME: Sync commands for moving reading history between devices as JSON
// ABOUTME: Merging keeps the latest change per article, so files can be merged in any order

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/harper/inkreader/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Move reading history between devices",
	Long: `Export this device's reading history for a sync key and merge
histories exported elsewhere. For each article the most recent change wins,
so merging the same file twice, or files in any order, gives the same result.

Examples:
  inkreader sync export -o history.json
  inkreader sync merge history.json
  ssh laptop inkreader sync export | inkreader sync merge -`,
}

var syncExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export reading history as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		key, err := syncKey()
		if err != nil {
			return err
		}
		history, err := core.ExportHistory(cmd.Context(), key)
		if err != nil {
			return fmt.Errorf("failed to export history: %w", err)
		}

		if output == "" {
			return sync.WriteHistory(cmd.OutOrStdout(), history)
		}
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		if err := sync.WriteHistory(f, history); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d state(s) for %s to %s\n", len(history.States), history.Key, output)
		return nil
	},
}

var syncMergeCmd = &cobra.Command{
	Use:   "merge <file|->",
	Short: "Merge reading history exported on another device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open history file: %w", err)
			}
			defer f.Close()
			r = f
		}

		history, err := sync.ReadHistory(r)
		if err != nil {
			return err
		}

		key := optionalSyncKey()
		if key != "" {
			if key, err = sync.NormalizeKey(key); err != nil {
				return err
			}
		}
		switch {
		case key == "" && history.Key == "":
			return fmt.Errorf("history file names no sync key and none is configured: pass --key")
		case key == "":
			key = history.Key
		case history.Key != "" && history.Key != key:
			return fmt.Errorf("history belongs to key %s but this device uses %s", history.Key, key)
		}

		res, err := core.MergeHistory(cmd.Context(), key, history.States)
		if err != nil {
			return fmt.Errorf("failed to merge history: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Merged history for %s\n", key)
		fmt.Fprintf(out, "  Applied: %s\n", green(res.Applied))
		fmt.Fprintf(out, "  Kept newer local: %d\n", res.Ignored)
		if res.Missing > 0 {
			fmt.Fprintf(out, "  Unknown articles: %s\n", faint(res.Missing))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.AddCommand(syncExportCmd)
	syncCmd.AddCommand(syncMergeCmd)

	syncExportCmd.Flags().StringP("output", "o", "", "write to this file instead of standard output")
}
