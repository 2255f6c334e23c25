// ABOUTME: Refresh command to fetch new articles from RSS/Atom feeds with HTTP caching support
// ABOUTME: Refreshes every feed concurrently or a single feed, with colored per-feed output

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/inkreader/internal/models"
	"github.com/harper/inkreader/internal/reader"
)

var refreshCmd = &cobra.Command{
	Use:     "refresh [feed]",
	Aliases: []string{"fetch"},
	Short:   "Fetch new articles from feeds",
	Long: `Fetch new articles from all subscribed feeds, or from one feed by ID, ID prefix, or URL.

Uses HTTP caching headers (ETag, Last-Modified) to avoid re-fetching unchanged
content. A feed that fails is recorded and skipped; the others still refresh.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			outcome, err := core.RefreshFeed(cmd.Context(), args[0])
			if outcome.FeedID == "" && err != nil {
				return fmt.Errorf("failed to refresh feed: %w", err)
			}
			printOutcome(out, outcome)
			if err != nil {
				return fmt.Errorf("failed to refresh feed: %w", err)
			}
			return nil
		}

		report, err := core.RefreshAllFeeds(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to refresh feeds: %w", err)
		}
		if report.Feeds == 0 {
			fmt.Fprintln(out, "No feeds found. Add a feed with 'inkreader feed add <url>'")
			return nil
		}

		for _, o := range report.Outcomes {
			printOutcome(out, o)
		}

		fmt.Fprintln(out)
		fmt.Fprintf(out, "Summary: %d feed(s) refreshed in %s\n", report.Feeds, report.Duration.Round(time.Millisecond))
		if report.Inserted > 0 {
			fmt.Fprintf(out, "  %s %d new articles\n", green("v"), report.Inserted)
		}
		if report.NotModified > 0 {
			fmt.Fprintf(out, "  %s %d cached (not modified)\n", faint("-"), report.NotModified)
		}
		if report.InFlight > 0 {
			fmt.Fprintf(out, "  %s %d already refreshing elsewhere\n", faint("-"), report.InFlight)
		}
		if report.Failed > 0 {
			fmt.Fprintf(out, "  %s %d errors\n", red("x"), report.Failed)
		}
		return nil
	},
}

func printOutcome(w io.Writer, o reader.FeedOutcome) {
	fmt.Fprintf(w, "Refreshing %s... ", o.URL)
	switch {
	case o.InFlight:
		fmt.Fprintf(w, "%s (already in progress)\n", faint("-"))
	case o.Err != nil:
		fmt.Fprintf(w, "%s %s\n", red("x"), o.Err.Error())
	case o.Status == models.StatusNotModified:
		fmt.Fprintf(w, "%s (cached)\n", faint("-"))
	case o.Inserted > 0:
		fmt.Fprintf(w, "%s %d new", green("v"), o.Inserted)
		if o.Skipped > 0 {
			fmt.Fprintf(w, " %s", faint(fmt.Sprintf("(%d malformed skipped)", o.Skipped)))
		}
		fmt.Fprintln(w)
	default:
		fmt.Fprintf(w, "%s no new articles\n", green("v"))
	}
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
