// ABOUTME: Mark-read command for marking articles as read under the sync key
// ABOUTME: Supports a single article by ID or bulk marking by labels and cutoff

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/inkreader/internal/models"
	"github.com/harper/inkreader/internal/reader"
	"github.com/harper/inkreader/internal/timeutil"
)

var markReadCmd = &cobra.Command{
	Use:   "mark-read [article-id]",
	Short: "Mark articles as read",
	Long: `Mark a single article as read by ID, or mark many at once.

Bulk mode needs --before or --all and can be narrowed with --labels.

Examples:
  inkreader mark-read 1a2b3c4d
  inkreader mark-read --before week
  inkreader mark-read --all --labels news`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		before, _ := cmd.Flags().GetString("before")
		all, _ := cmd.Flags().GetBool("all")
		labels, _ := cmd.Flags().GetString("labels")
		out := cmd.OutOrStdout()

		key, err := syncKey()
		if err != nil {
			return err
		}

		if len(args) == 1 {
			if before != "" || all || labels != "" {
				return fmt.Errorf("cannot combine an article ID with --before, --all, or --labels")
			}
			return setReadState(cmd, key, args[0], true)
		}

		if before == "" && !all {
			return fmt.Errorf("provide an article ID, or use --before or --all for bulk marking")
		}

		var cutoff *time.Time
		if before != "" {
			t, err := timeutil.ParseCutoff(before, core.Now())
			if err != nil {
				return err
			}
			cutoff = &t
		}

		count, err := core.MarkAllRead(cmd.Context(), key, models.ParseLabelList(labels), cutoff)
		if err != nil {
			return fmt.Errorf("failed to mark articles as read: %w", err)
		}
		if count == 0 {
			fmt.Fprintln(out, "No articles to mark as read")
		} else {
			fmt.Fprintf(out, "Marked %d article(s) as read\n", count)
		}
		return nil
	},
}

// setReadState marks one article and reports the outcome, including the
// case where a newer change from another device was kept.
func setReadState(cmd *cobra.Command, key, ref string, read bool) error {
	out := cmd.OutOrStdout()
	verb := "unread"
	if read {
		verb = "read"
	}

	article, err := core.GetArticle(cmd.Context(), ref, key)
	if err != nil {
		return fmt.Errorf("failed to get article: %w", err)
	}
	if article.Read == read {
		fmt.Fprintf(out, "Article is already marked as %s\n", verb)
		return nil
	}

	_, err = core.SetRead(cmd.Context(), key, article.ID, read)
	switch {
	case errors.Is(err, reader.ErrConflictIgnored):
		fmt.Fprintf(out, "Not marked as %s: a newer change from another device was kept\n", verb)
		return nil
	case err != nil:
		return fmt.Errorf("failed to mark article as %s: %w", verb, err)
	}

	title := article.Title
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(out, "Marked as %s: %s\n", verb, title)
	return nil
}

func init() {
	rootCmd.AddCommand(markReadCmd)

	markReadCmd.Flags().StringP("before", "b", "", "mark articles published before: today, yesterday, week, month, or YYYY-MM-DD")
	markReadCmd.Flags().Bool("all", false, "mark every matching article regardless of date")
	markReadCmd.Flags().StringP("labels", "l", "", "only articles from feeds with these comma-separated labels")
}
