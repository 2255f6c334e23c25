// ABOUTME: OPML commands for importing and exporting subscriptions
// ABOUTME: Labels travel as OPML folders on import and as categories on export

package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var opmlCmd = &cobra.Command{
	Use:   "opml",
	Short: "Import or export subscriptions as OPML",
}

var opmlImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Subscribe to every feed in an OPML file",
	Long: `Subscribe to every feed in an OPML file. Use - to read from standard input.

Each feed is fetched as it is added. Feeds you already follow are skipped,
and a feed that fails does not stop the rest.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open OPML file: %w", err)
			}
			defer f.Close()
			r = f
		}

		res, err := core.ImportOPML(cmd.Context(), r)
		if err != nil {
			return fmt.Errorf("failed to import OPML: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, url := range res.Added {
			fmt.Fprintf(out, "%s %s\n", green("+"), url)
		}
		for _, url := range res.Existed {
			fmt.Fprintf(out, "%s %s %s\n", faint("="), url, faint("(already subscribed)"))
		}
		failed := make([]string, 0, len(res.Failed))
		for url := range res.Failed {
			failed = append(failed, url)
		}
		sort.Strings(failed)
		for _, url := range failed {
			fmt.Fprintf(out, "%s %s: %v\n", red("✗"), url, res.Failed[url])
		}

		fmt.Fprintf(out, "\nImported %d, skipped %d, failed %d\n", len(res.Added), len(res.Existed), len(res.Failed))
		return nil
	},
}

var opmlExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export subscriptions as OPML",
	Long:  "Write every subscription with its labels as OPML to standard output or to --output",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		title, _ := cmd.Flags().GetString("title")

		if output == "" {
			return core.ExportOPML(cmd.Context(), cmd.OutOrStdout(), title)
		}

		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		if err := core.ExportOPML(cmd.Context(), f, title); err != nil {
			f.Close()
			return fmt.Errorf("failed to export OPML: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported subscriptions to %s\n", output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(opmlCmd)
	opmlCmd.AddCommand(opmlImportCmd)
	opmlCmd.AddCommand(opmlExportCmd)

	opmlExportCmd.Flags().StringP("output", "o", "", "write to this file instead of standard output")
	opmlExportCmd.Flags().String("title", "inkreader subscriptions", "OPML document title")
}
