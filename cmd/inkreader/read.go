// ABOUTME: Read command for viewing article content
// ABOUTME: Displays full article details with markdown rendering and marks as read

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/harper/inkreader/internal/config"
	"github.com/harper/inkreader/internal/content"
	"github.com/harper/inkreader/internal/reader"
)

var readCmd = &cobra.Command{
	Use:   "read <article-id>",
	Short: "Read an article",
	Long:  "Display the full content of an article and mark it as read for your sync key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noMark, _ := cmd.Flags().GetBool("no-mark")
		raw, _ := cmd.Flags().GetBool("raw")
		out := cmd.OutOrStdout()
		key := optionalSyncKey()

		article, err := core.GetArticle(cmd.Context(), args[0], key)
		if err != nil {
			return fmt.Errorf("failed to get article: %w", err)
		}

		separator := strings.Repeat("─", config.SeparatorWidth)
		fmt.Fprintln(out, separator)

		title := article.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(out, "%s\n\n", bold(title))
		if article.FeedTitle != "" {
			fmt.Fprintf(out, "%s %s\n", faint("Feed:"), article.FeedTitle)
		}
		published := article.PublishedAt.Format(config.DateFormatLong)
		if article.PublishedEstimated {
			published += " (estimated)"
		}
		fmt.Fprintf(out, "%s %s\n", faint("Published:"), published)
		if article.Link != "" {
			fmt.Fprintf(out, "%s %s\n", faint("Link:"), cyan(article.Link))
		}
		fmt.Fprintln(out, separator)

		body := article.Content
		if body == "" {
			body = article.Summary
		}
		if body == "" {
			fmt.Fprintln(out, "\n(No content available)")
		} else {
			markdown := content.ToMarkdown(body)
			rendered, err := glamour.Render(markdown, "dark")
			if raw || err != nil {
				if err != nil {
					fmt.Fprintln(out, faint("(markdown rendering unavailable, showing plain text)"))
				}
				fmt.Fprintf(out, "\n%s\n", markdown)
			} else {
				fmt.Fprint(out, rendered)
			}
		}
		fmt.Fprintln(out)

		if noMark || key == "" || article.Read {
			return nil
		}
		_, err = core.SetRead(cmd.Context(), key, article.ID, true)
		switch {
		case errors.Is(err, reader.ErrConflictIgnored):
			fmt.Fprintln(out, faint("Kept the newer unread mark from another device"))
		case err != nil:
			return fmt.Errorf("failed to mark article as read: %w", err)
		default:
			fmt.Fprintln(out, faint("Marked as read"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(readCmd)

	readCmd.Flags().Bool("no-mark", false, "don't mark the article as read")
	readCmd.Flags().Bool("raw", false, "print markdown without terminal rendering")
}
