// ABOUTME: Subscription management for the reader core
// ABOUTME: Adds feeds (with discovery and an immediate first fetch), removes and relabels them

package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harper/inkreader/internal/discover"
	"github.com/harper/inkreader/internal/models"
	"github.com/harper/inkreader/internal/storage"
)

// MaxLabelLength bounds a single label after normalization.
const MaxLabelLength = 64

// AddFeed subscribes to url. The URL may point at a feed or at a page that
// advertises one. The feed is fetched before anything is stored; a fetch
// failure is returned as the *FetchError and leaves no trace.
func (c *Core) AddFeed(ctx context.Context, url string, labels []string) (*models.Feed, error) {
	const op = "reader.AddFeed"
	log := c.logger(ctx).With(slog.String("op", op), slog.String("url", url))

	if _, err := discover.ValidateURL(url); err != nil {
		return nil, translate(err)
	}
	labels, err := ValidateLabels(labels)
	if err != nil {
		return nil, err
	}
	url = strings.TrimSpace(url)
	if err := c.ensureNotSubscribed(ctx, url); err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	now := c.now()
	found, err := discover.Discover(fetchCtx, c.fetcher, url, now)
	if err != nil {
		log.Warn("feed not added", slog.Any("error", err))
		return nil, translate(err)
	}
	if found.URL != url {
		if err := c.ensureNotSubscribed(ctx, found.URL); err != nil {
			return nil, err
		}
		log.Info("discovered feed", slog.String("feed_url", found.URL))
	}

	feed := models.NewFeed(found.URL, labels, now)
	if usableTitle(found.Title) {
		title := found.Title
		feed.Title = &title
	}
	if err := c.store.CreateFeed(ctx, feed); err != nil {
		return nil, fmt.Errorf("create feed: %w", err)
	}

	var out FeedOutcome
	if err := c.storeFetched(ctx, feed, found.Result, now, &out); err != nil {
		return nil, err
	}
	log.Info("feed added", slog.String("feed_id", feed.ID), slog.Int("inserted", out.Inserted))

	return c.store.GetFeed(ctx, feed.ID)
}

func (c *Core) ensureNotSubscribed(ctx context.Context, url string) error {
	_, err := c.store.GetFeedByURL(ctx, url)
	switch {
	case err == nil:
		return &ValidationError{Field: "url", Reason: "already subscribed to " + url, cause: ErrFeedExists}
	case errors.Is(err, storage.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check existing feed: %w", err)
	}
}

// RemoveFeed unsubscribes from a feed and deletes its articles and their
// read states.
func (c *Core) RemoveFeed(ctx context.Context, ref string) (*models.Feed, error) {
	feed, err := c.store.GetFeedByURLOrPrefix(ctx, ref)
	if err != nil {
		return nil, translate(err)
	}
	if err := c.store.DeleteFeed(ctx, feed.ID); err != nil {
		return nil, translate(err)
	}
	c.logger(ctx).Info("feed removed", slog.String("op", "reader.RemoveFeed"), slog.String("feed_id", feed.ID))
	return feed, nil
}

// SetFeedLabels replaces a feed's labels and returns the updated feed.
func (c *Core) SetFeedLabels(ctx context.Context, ref string, labels []string) (*models.Feed, error) {
	labels, err := ValidateLabels(labels)
	if err != nil {
		return nil, err
	}
	feed, err := c.store.GetFeedByURLOrPrefix(ctx, ref)
	if err != nil {
		return nil, translate(err)
	}
	if err := c.store.SetFeedLabels(ctx, feed.ID, labels); err != nil {
		return nil, translate(err)
	}
	return c.store.GetFeed(ctx, feed.ID)
}

// GetFeed resolves a feed by id, URL, or id prefix.
func (c *Core) GetFeed(ctx context.Context, ref string) (*models.Feed, error) {
	feed, err := c.store.GetFeedByURLOrPrefix(ctx, ref)
	return feed, translate(err)
}

// ListFeeds returns every subscription, oldest first.
func (c *Core) ListFeeds(ctx context.Context) ([]*models.Feed, error) {
	return c.store.ListFeeds(ctx)
}

// ListLabels returns every label in use.
func (c *Core) ListLabels(ctx context.Context) ([]string, error) {
	return c.store.ListLabels(ctx)
}

// FeedStats returns per-feed article counts, with unread counts for key when
// key is non-empty.
func (c *Core) FeedStats(ctx context.Context, key string) ([]storage.FeedStatsRow, error) {
	key, err := optionalKey(key)
	if err != nil {
		return nil, err
	}
	return c.store.GetFeedStats(ctx, key)
}

// Stats returns totals across all feeds.
func (c *Core) Stats(ctx context.Context, key string) (*storage.OverallStats, error) {
	key, err := optionalKey(key)
	if err != nil {
		return nil, err
	}
	return c.store.GetOverallStats(ctx, key)
}

// ValidateLabels normalizes labels and rejects ones that cannot round-trip
// through comma-separated lists.
func ValidateLabels(labels []string) ([]string, error) {
	normalized := models.NormalizeLabels(labels)
	for _, l := range normalized {
		if strings.ContainsAny(l, ",\n\t") {
			return nil, invalid("labels", fmt.Sprintf("%q must not contain commas or control whitespace", l))
		}
		if len([]rune(l)) > MaxLabelLength {
			return nil, invalid("labels", fmt.Sprintf("%q is longer than %d characters", l, MaxLabelLength))
		}
	}
	return normalized, nil
}
