// ABOUTME: Shared terminal formatting helpers for inkreader commands
// ABOUTME: Short IDs, dates, label lists, and colored article and feed lines

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/harper/inkreader/internal/config"
	"github.com/harper/inkreader/internal/models"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
)

// shortID trims an ID to its display prefix.
func shortID(id string) string {
	if len(id) > config.DisplayIDLength {
		return id[:config.DisplayIDLength]
	}
	return id
}

func formatLabels(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return "[" + strings.Join(labels, ", ") + "]"
}

// labelArgs joins positional arguments and comma lists into one normalized set.
func labelArgs(args []string) []string {
	return models.ParseLabelList(strings.Join(args, ","))
}

func printArticleLine(w io.Writer, a *models.ArticleView, showRead bool) {
	fmt.Fprint(w, faint(shortID(a.ID)))
	fmt.Fprint(w, " ")
	if showRead {
		if a.Read {
			fmt.Fprint(w, "✓ ")
		} else {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprint(w, a.Title)

	date := a.PublishedAt.Format(config.DateFormatShort)
	if a.PublishedEstimated {
		date = "~" + date
	}
	fmt.Fprint(w, " ")
	fmt.Fprint(w, faint(date))
	if a.FeedTitle != "" {
		fmt.Fprint(w, " ")
		fmt.Fprint(w, faint("· "+a.FeedTitle))
	}
	fmt.Fprintln(w)
}

func printFeedStatus(w io.Writer, f *models.Feed) {
	switch f.LastStatus {
	case models.StatusError:
		msg := "error"
		if f.LastError != nil {
			msg = *f.LastError
		}
		fmt.Fprintf(w, "  Status: %s (%d consecutive)\n", red(msg), f.ErrorCount)
	case models.StatusPending:
		fmt.Fprintf(w, "  Status: %s\n", faint("never fetched"))
	default:
		fetched := "never"
		if f.LastFetchedAt != nil {
			fetched = f.LastFetchedAt.Format(config.DateFormatShort)
		}
		fmt.Fprintf(w, "  Status: %s %s\n", green(string(f.LastStatus)), faint("at "+fetched))
	}
}
