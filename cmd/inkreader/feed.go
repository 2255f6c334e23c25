// ABOUTME: Feed management commands for adding, listing, labelling, and removing RSS/Atom feeds
// ABOUTME: Every change goes through the reader core, which fetches new feeds before storing them

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/inkreader/internal/models"
)

var feedCmd = &cobra.Command{
	Use:     "feed",
	Aliases: []string{"f"},
	Short:   "Manage RSS/Atom feeds",
	Long:    "Add, list, label, and remove RSS/Atom feeds from your subscriptions",
}

var feedAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a new RSS/Atom feed",
	Long: `Add a new feed to your subscriptions.

The URL may be the feed itself or a web page that links to one. The feed is
fetched right away; if that fails nothing is stored and the reason is shown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		labels, _ := cmd.Flags().GetString("labels")
		out := cmd.OutOrStdout()

		feed, err := core.AddFeed(cmd.Context(), args[0], models.ParseLabelList(labels))
		if err != nil {
			return fmt.Errorf("failed to add feed: %w", err)
		}

		fmt.Fprintf(out, "Added feed: %s\n", feed.DisplayName())
		if feed.URL != args[0] {
			fmt.Fprintf(out, "  Discovered: %s\n", feed.URL)
		}
		if len(feed.Labels) > 0 {
			fmt.Fprintf(out, "  Labels: %s\n", formatLabels(feed.Labels))
		}
		fmt.Fprintf(out, "Feed ID: %s\n", feed.ID)
		return nil
	},
}

var feedListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all feeds",
	Long:    "List all subscribed feeds with labels, article counts, and unread counts for your sync key",
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("label")
		out := cmd.OutOrStdout()
		key := optionalSyncKey()

		rows, err := core.FeedStats(cmd.Context(), key)
		if err != nil {
			return fmt.Errorf("failed to list feeds: %w", err)
		}

		filter := models.ParseLabelList(label)
		shown := 0
		for _, row := range rows {
			feed := row.Feed
			if len(filter) > 0 && !feed.HasLabel(filter[0]) {
				continue
			}
			shown++

			fmt.Fprint(out, faint(shortID(feed.ID)))
			fmt.Fprintf(out, " %s", bold(feed.DisplayName()))
			if len(feed.Labels) > 0 {
				fmt.Fprintf(out, " %s", cyan(formatLabels(feed.Labels)))
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  URL: %s\n", feed.URL)
			if key != "" {
				fmt.Fprintf(out, "  Articles: %d (%d unread)\n", row.ArticleCount, row.UnreadCount)
			} else {
				fmt.Fprintf(out, "  Articles: %d\n", row.ArticleCount)
			}
			printFeedStatus(out, feed)
			fmt.Fprintln(out)
		}

		if shown == 0 {
			fmt.Fprintln(out, "No feeds found. Add a feed with 'inkreader feed add <url>'")
			return nil
		}
		fmt.Fprintf(out, "%d feed(s)\n", shown)
		return nil
	},
}

var feedRemoveCmd = &cobra.Command{
	Use:     "remove <feed>",
	Aliases: []string{"rm"},
	Short:   "Remove a feed",
	Long:    "Remove a feed by ID, ID prefix, or URL. Its articles and their read state are deleted.",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		feed, err := core.RemoveFeed(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to remove feed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed feed: %s\n", feed.DisplayName())
		return nil
	},
}

var feedLabelCmd = &cobra.Command{
	Use:   "label <feed> [labels...]",
	Short: "Replace a feed's labels",
	Long: `Replace the labels on a feed. Labels may be given as separate arguments or
comma-separated. Give no labels to clear them.

Examples:
  inkreader feed label 1a2b3c4d tech go
  inkreader feed label https://example.com/feed.xml news,world`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		feed, err := core.SetFeedLabels(cmd.Context(), args[0], labelArgs(args[1:]))
		if err != nil {
			return fmt.Errorf("failed to set labels: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(feed.Labels) == 0 {
			fmt.Fprintf(out, "Cleared labels on %s\n", feed.DisplayName())
			return nil
		}
		fmt.Fprintf(out, "Labelled %s %s\n", feed.DisplayName(), formatLabels(feed.Labels))
		return nil
	},
}

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List labels in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		labels, err := core.ListLabels(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list labels: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(labels) == 0 {
			fmt.Fprintln(out, "No labels yet. Label a feed with 'inkreader feed label <feed> <label>'")
			return nil
		}
		for _, l := range labels {
			fmt.Fprintln(out, l)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(labelsCmd)
	feedCmd.AddCommand(feedAddCmd)
	feedCmd.AddCommand(feedListCmd)
	feedCmd.AddCommand(feedRemoveCmd)
	feedCmd.AddCommand(feedLabelCmd)

	feedAddCmd.Flags().StringP("labels", "l", "", "comma-separated labels, e.g. tech,go")
	feedListCmd.Flags().String("label", "", "only show feeds carrying this label")
}
