// ABOUTME: Stats command summarizing subscriptions, articles, and unread counts
// ABOUTME: Unread counts are shown only when a sync key is configured

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show reader statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		key := optionalSyncKey()
		stats, err := core.Stats(cmd.Context(), key)
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Feeds:     %d\n", stats.TotalFeeds)
		fmt.Fprintf(out, "Articles:  %d\n", stats.TotalArticles)
		if key != "" {
			fmt.Fprintf(out, "Unread:    %d %s\n", stats.UnreadCount, faint("for "+key))
		}
		fmt.Fprintf(out, "Sync keys: %d\n", stats.TotalSyncKeys)
		fmt.Fprintf(out, "Retention: %d days\n", core.RetentionDays())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
