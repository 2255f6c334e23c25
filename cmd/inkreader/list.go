// ABOUTME: List command for paging through the merged article stream
// ABOUTME: Filters by labels, feed, cutoff, and read state for the configured sync key

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/inkreader/internal/models"
	"github.com/harper/inkreader/internal/reader"
	"github.com/harper/inkreader/internal/timeutil"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "List articles",
	Long: `List articles newest first, one page at a time.

With a sync key only unread articles are shown unless --all is given.
Without a key every article is listed and no read marks are shown.

Examples:
  inkreader list
  inkreader list --labels tech,go --page 2
  inkreader list --feed 1a2b3c4d --before week`,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		labels, _ := cmd.Flags().GetString("labels")
		feedRef, _ := cmd.Flags().GetString("feed")
		before, _ := cmd.Flags().GetString("before")
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")

		if page < 1 {
			return fmt.Errorf("page must be 1 or greater, got %d", page)
		}

		key := optionalSyncKey()
		q := reader.ListQuery{
			Labels:     models.ParseLabelList(labels),
			FeedRef:    feedRef,
			SyncKey:    key,
			UnreadOnly: key != "" && !all,
			Page:       page - 1,
			PageSize:   pageSize,
		}
		if before != "" {
			cutoff, err := timeutil.ParseCutoff(before, core.Now())
			if err != nil {
				return err
			}
			q.Before = &cutoff
		}

		result, err := core.ListArticles(cmd.Context(), q)
		if err != nil {
			return fmt.Errorf("failed to list articles: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(result.Items) == 0 {
			if page > 1 {
				fmt.Fprintf(out, "No articles on page %d\n", page)
			} else {
				fmt.Fprintln(out, "No articles found")
			}
			return nil
		}

		for _, a := range result.Items {
			printArticleLine(out, a, key != "")
		}

		fmt.Fprintln(out)
		footer := fmt.Sprintf("Page %d", page)
		if result.HasMore {
			footer += fmt.Sprintf(" · more with --page %d", page+1)
		}
		fmt.Fprintln(out, faint(footer))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolP("all", "a", false, "show all articles including read")
	listCmd.Flags().StringP("labels", "l", "", "comma-separated labels; articles from feeds with any of them")
	listCmd.Flags().StringP("feed", "f", "", "filter by feed ID, ID prefix, or URL")
	listCmd.Flags().StringP("before", "b", "", "only articles published before: today, yesterday, week, month, or a date")
	listCmd.Flags().IntP("page", "p", 1, "page number, starting at 1")
	listCmd.Flags().IntP("page-size", "n", 0, "articles per page (default from config)")
}
