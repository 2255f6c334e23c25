// ABOUTME: Subscription import and export through OPML
// ABOUTME: Import adds each feed independently so one bad URL does not stop the rest

package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/harper/inkreader/internal/opml"
)

// ImportResult reports what happened to each outline of an OPML import.
type ImportResult struct {
	Added   []string
	Existed []string
	Failed  map[string]error
}

// ImportOPML subscribes to every feed in r, keeping the labels carried by
// folders and categories. Feeds already subscribed are left alone.
func (c *Core) ImportOPML(ctx context.Context, r io.Reader) (*ImportResult, error) {
	doc, err := opml.Parse(r)
	if err != nil {
		return nil, invalid("opml", err.Error())
	}

	res := &ImportResult{Failed: make(map[string]error)}
	for _, f := range doc.AllFeeds() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		_, err := c.AddFeed(ctx, f.URL, f.Labels)
		switch {
		case err == nil:
			res.Added = append(res.Added, f.URL)
		case errors.Is(err, ErrFeedExists):
			res.Existed = append(res.Existed, f.URL)
		default:
			res.Failed[f.URL] = err
		}
	}

	c.logger(ctx).Info("opml imported",
		slog.String("op", "reader.ImportOPML"),
		slog.Int("added", len(res.Added)),
		slog.Int("existed", len(res.Existed)),
		slog.Int("failed", len(res.Failed)))
	return res, nil
}

// ExportOPML writes every subscription with its labels to w.
func (c *Core) ExportOPML(ctx context.Context, w io.Writer, title string) error {
	feeds, err := c.store.ListFeeds(ctx)
	if err != nil {
		return fmt.Errorf("list feeds: %w", err)
	}
	return opml.FromFeeds(title, feeds).Write(w)
}
