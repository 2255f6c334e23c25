// ABOUTME: Storage interface and types for inkreader data persistence
// ABOUTME: Defines the contract for feeds, labels, articles, ingestion and retention

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harper/inkreader/internal/models"
	"github.com/harper/inkreader/internal/parse"
)

// ErrNotFound is returned when a feed or article does not exist.
var ErrNotFound = errors.New("not found")

// ErrAmbiguousPrefix is returned when an id prefix matches more than one row.
var ErrAmbiguousPrefix = errors.New("ambiguous prefix")

// MinPrefixLength is the shortest id prefix accepted for lookups.
const MinPrefixLength = 6

// FilterError reports an ArticleFilter that cannot be executed.
type FilterError struct {
	Field  string
	Reason string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid filter %s: %s", e.Field, e.Reason)
}

// ArticleFilter selects a window of the article stream.
type ArticleFilter struct {
	Labels     []string // any-of; empty means all feeds
	FeedID     string
	UnreadOnly bool   // requires SyncKey
	SyncKey    string // joins read state for Read and UnreadOnly
	Before     *time.Time
	Limit      int // <= 0 means no limit
	Offset     int
}

// Validate rejects filters the store cannot answer.
func (f ArticleFilter) Validate() error {
	if f.UnreadOnly && f.SyncKey == "" {
		return &FilterError{Field: "sync_key", Reason: "required when filtering unread articles"}
	}
	if f.Offset < 0 {
		return &FilterError{Field: "offset", Reason: "must not be negative"}
	}
	return nil
}

// IngestResult summarizes one Ingest call.
type IngestResult struct {
	Inserted  int
	Duplicate int
	Skipped   int // malformed items
}

// FeedStatsRow represents statistics for a single feed.
type FeedStatsRow struct {
	Feed         *models.Feed
	ArticleCount int
	UnreadCount  int // only meaningful when a sync key was given
}

// OverallStats represents overall statistics.
type OverallStats struct {
	TotalFeeds    int
	TotalArticles int
	TotalSyncKeys int
	UnreadCount   int
}

// Store defines the storage interface for inkreader data.
type Store interface {
	// Close closes the store and releases resources.
	Close() error

	// Feed Operations

	// CreateFeed stores a new feed with its labels.
	CreateFeed(ctx context.Context, feed *models.Feed) error

	// GetFeed retrieves a feed by ID.
	GetFeed(ctx context.Context, id string) (*models.Feed, error)

	// GetFeedByURL finds a feed by its URL.
	GetFeedByURL(ctx context.Context, url string) (*models.Feed, error)

	// GetFeedByPrefix finds a feed by ID prefix (min 6 chars).
	GetFeedByPrefix(ctx context.Context, prefix string) (*models.Feed, error)

	// ListFeeds returns all feeds, oldest first.
	ListFeeds(ctx context.Context) ([]*models.Feed, error)

	// DeleteFeed removes a feed, its labels and its articles (cascade).
	DeleteFeed(ctx context.Context, id string) error

	// SetFeedTitle stores the title learned from the feed document.
	SetFeedTitle(ctx context.Context, id, title string) error

	// SetFeedLabels replaces a feed's labels.
	SetFeedLabels(ctx context.Context, id string, labels []string) error

	// ListLabels returns every label in use, sorted.
	ListLabels(ctx context.Context) ([]string, error)

	// RecordFetchSuccess stores cache headers and clears the error state.
	RecordFetchSuccess(ctx context.Context, id string, etag, lastModified *string, at time.Time) error

	// RecordFetchNotModified notes a 304 response.
	RecordFetchNotModified(ctx context.Context, id string, at time.Time) error

	// RecordFetchFailure stores the error and bumps the error count.
	RecordFetchFailure(ctx context.Context, id string, errMsg string, at time.Time) error

	// Article Operations

	// Ingest inserts items not already stored for the feed.
	Ingest(ctx context.Context, feedID string, items []parse.Item, fetchedAt time.Time) (IngestResult, error)

	// ListByLabels returns a window of articles, newest first.
	ListByLabels(ctx context.Context, filter ArticleFilter) ([]*models.ArticleView, error)

	// CountArticles counts articles matching the filter, ignoring Limit/Offset.
	CountArticles(ctx context.Context, filter ArticleFilter) (int, error)

	// DeleteOlderThan removes articles published strictly before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// GetArticle retrieves an article by ID.
	GetArticle(ctx context.Context, id string) (*models.Article, error)

	// GetArticleByPrefix finds an article by ID prefix (min 6 chars).
	GetArticleByPrefix(ctx context.Context, prefix string) (*models.Article, error)

	// ArticleExists checks for (feed_id, dedup_key).
	ArticleExists(ctx context.Context, feedID, dedupKey string) (bool, error)

	// Statistics

	// GetFeedStats retrieves per-feed counts; unread counts use syncKey when set.
	GetFeedStats(ctx context.Context, syncKey string) ([]FeedStatsRow, error)

	// GetOverallStats retrieves overall statistics.
	GetOverallStats(ctx context.Context, syncKey string) (*OverallStats, error)

	// Maintenance

	// Compact performs database maintenance (VACUUM).
	Compact(ctx context.Context) error
}
