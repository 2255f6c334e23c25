// ABOUTME: Cleanup command that deletes articles older than the retention window
// ABOUTME: Read state for deleted articles goes with them

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete articles past the retention window",
	Long:  "Delete articles published more than retention_days ago, along with their read state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := core.CleanupOldArticles(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clean up articles: %w", err)
		}
		out := cmd.OutOrStdout()
		if n == 0 {
			fmt.Fprintf(out, "Nothing older than %d days\n", core.RetentionDays())
			return nil
		}
		fmt.Fprintf(out, "Deleted %d article(s) older than %d days\n", n, core.RetentionDays())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
