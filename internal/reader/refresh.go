// ABOUTME: Feed refresh and retention cleanup
// ABOUTME: Fans out fetches with a bounded errgroup; one failing feed never stops the others

package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harper/inkreader/internal/fetch"
	"github.com/harper/inkreader/internal/metrics"
	"github.com/harper/inkreader/internal/models"
	"github.com/harper/inkreader/internal/parse"
	"github.com/harper/inkreader/internal/timeutil"
)

// FeedOutcome is the result of refreshing one feed.
type FeedOutcome struct {
	FeedID    string
	URL       string
	Status    models.FetchStatus
	Inserted  int
	Duplicate int
	Skipped   int  // malformed items
	InFlight  bool // another refresh of this feed was already running
	Err       error
}

// RefreshReport summarizes a refresh of every feed.
type RefreshReport struct {
	Feeds       int
	Refreshed   int
	NotModified int
	Failed      int
	InFlight    int
	Inserted    int
	Outcomes    []FeedOutcome
	Duration    time.Duration
}

// RefreshAllFeeds fetches every feed concurrently and ingests new items.
// Fetch failures are recorded on the feed and in the report. The returned
// error is non-nil only when feeds could not be listed or the store failed.
func (c *Core) RefreshAllFeeds(ctx context.Context) (*RefreshReport, error) {
	const op = "reader.RefreshAllFeeds"
	log := c.logger(ctx).With(slog.String("op", op))
	start := time.Now()

	feeds, err := c.store.ListFeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}

	fetchedAt := c.now()
	outcomes := make([]FeedOutcome, len(feeds))
	storeErrs := make([]error, len(feeds))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, feed := range feeds {
		g.Go(func() error {
			outcomes[i], storeErrs[i] = c.refreshOne(ctx, feed, fetchedAt)
			return nil
		})
	}
	_ = g.Wait()

	report := &RefreshReport{Feeds: len(feeds), Outcomes: outcomes, Duration: time.Since(start)}
	for _, o := range outcomes {
		switch {
		case o.InFlight:
			report.InFlight++
		case o.Status == models.StatusError:
			report.Failed++
		case o.Status == models.StatusNotModified:
			report.NotModified++
		case o.Status == models.StatusOK:
			report.Refreshed++
		}
		report.Inserted += o.Inserted
	}

	log.Info("refresh finished",
		slog.Int("feeds", report.Feeds),
		slog.Int("refreshed", report.Refreshed),
		slog.Int("not_modified", report.NotModified),
		slog.Int("failed", report.Failed),
		slog.Int("in_flight", report.InFlight),
		slog.Int("inserted", report.Inserted),
		slog.Duration("took", report.Duration))

	if err := errors.Join(storeErrs...); err != nil {
		return report, err
	}
	return report, ctx.Err()
}

// RefreshFeed refreshes one feed given its id, URL, or id prefix. A fetch
// failure is recorded on the feed and also returned as the *FetchError.
func (c *Core) RefreshFeed(ctx context.Context, ref string) (FeedOutcome, error) {
	feed, err := c.store.GetFeedByURLOrPrefix(ctx, ref)
	if err != nil {
		return FeedOutcome{}, translate(err)
	}
	outcome, err := c.refreshOne(ctx, feed, c.now())
	if err != nil {
		return outcome, err
	}
	if outcome.InFlight {
		return outcome, fmt.Errorf("feed %s is already being refreshed", feed.ID)
	}
	return outcome, outcome.Err
}

// refreshOne fetches and ingests a single feed. The error return is reserved
// for store failures; fetch failures land in FeedOutcome.Err.
func (c *Core) refreshOne(ctx context.Context, feed *models.Feed, fetchedAt time.Time) (FeedOutcome, error) {
	log := c.logger(ctx).With(slog.String("op", "reader.refreshFeed"), slog.String("feed_id", feed.ID), slog.String("url", feed.URL))
	out := FeedOutcome{FeedID: feed.ID, URL: feed.URL}

	if !c.claim(feed.ID) {
		out.InFlight = true
		log.Debug("refresh already running, skipped")
		return out, nil
	}
	defer c.release(feed.ID)

	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	start := time.Now()
	result, err := c.fetcher.FetchFeed(fetchCtx, feed.URL, feed.ETag, feed.LastModified, fetchedAt)
	if err != nil {
		var fe *fetch.FetchError
		kind := "unknown"
		if errors.As(err, &fe) {
			kind = string(fe.Kind)
		}
		c.metrics.RecordFetch(metrics.OutcomeError, kind, time.Since(start))
		log.Warn("fetch failed", slog.String("kind", kind), slog.Any("error", err))

		out.Status = models.StatusError
		out.Err = err
		if recErr := c.store.RecordFetchFailure(ctx, feed.ID, err.Error(), fetchedAt); recErr != nil {
			return out, fmt.Errorf("record fetch failure for %s: %w", feed.ID, recErr)
		}
		return out, nil
	}

	if result.NotModified {
		c.metrics.RecordFetch(metrics.OutcomeNotModified, "", time.Since(start))
		out.Status = models.StatusNotModified
		if err := c.store.RecordFetchNotModified(ctx, feed.ID, fetchedAt); err != nil {
			return out, fmt.Errorf("record not modified for %s: %w", feed.ID, err)
		}
		return out, nil
	}
	c.metrics.RecordFetch(metrics.OutcomeOK, "", time.Since(start))

	if err := c.storeFetched(ctx, feed, result, fetchedAt, &out); err != nil {
		if errors.Is(err, ErrNotFound) {
			// removed while the fetch was running
			log.Info("feed removed during refresh")
			out.Err = err
			return out, nil
		}
		return out, err
	}
	log.Debug("feed refreshed", slog.Int("inserted", out.Inserted), slog.Int("duplicate", out.Duplicate))
	return out, nil
}

// storeFetched ingests a parsed fetch result and records the new cache headers.
func (c *Core) storeFetched(ctx context.Context, feed *models.Feed, result *fetch.Result, fetchedAt time.Time, out *FeedOutcome) error {
	res, err := c.store.Ingest(ctx, feed.ID, result.Feed.Items, fetchedAt)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", feed.ID, err)
	}
	c.metrics.RecordIngest(res.Inserted, res.Duplicate, res.Skipped)
	out.Status = models.StatusOK
	out.Inserted, out.Duplicate, out.Skipped = res.Inserted, res.Duplicate, res.Skipped

	if (feed.Title == nil || *feed.Title == "") && usableTitle(result.Feed.Title) {
		if err := c.store.SetFeedTitle(ctx, feed.ID, result.Feed.Title); err != nil {
			return fmt.Errorf("set title for %s: %w", feed.ID, err)
		}
		title := result.Feed.Title
		feed.Title = &title
	}

	if err := c.store.RecordFetchSuccess(ctx, feed.ID, nonEmpty(result.ETag), nonEmpty(result.LastModified), fetchedAt); err != nil {
		return fmt.Errorf("record fetch for %s: %w", feed.ID, err)
	}
	return nil
}

// CleanupOldArticles deletes articles published before now minus the
// retention window. Read states for them go with them.
func (c *Core) CleanupOldArticles(ctx context.Context) (int64, error) {
	const op = "reader.CleanupOldArticles"

	cutoff, err := timeutil.RetentionCutoff(c.now(), c.retentionDays)
	if err != nil {
		return 0, err
	}
	n, err := c.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old articles: %w", err)
	}
	c.metrics.RecordDeleted(int(n))
	c.logger(ctx).Info("retention cleanup finished",
		slog.String("op", op),
		slog.Time("cutoff", cutoff),
		slog.Int64("deleted", n))
	return n, nil
}

func usableTitle(title string) bool {
	return title != "" && title != parse.DefaultTitle
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
