// ABOUTME: Core wires the fetcher, article store, paginator and synchronizer together
// ABOUTME: Every surface (CLI, MCP, scheduler) drives the reader through this type

package reader

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/harper/inkreader/internal/fetch"
	"github.com/harper/inkreader/internal/logctx"
	"github.com/harper/inkreader/internal/metrics"
	"github.com/harper/inkreader/internal/models"
	"github.com/harper/inkreader/internal/storage"
	"github.com/harper/inkreader/internal/sync"
	"github.com/harper/inkreader/internal/timeutil"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultPageSize      = 5
	DefaultRetentionDays = 90
	DefaultFetchTimeout  = 30 * time.Second
	DefaultConcurrency   = 4
)

// Store is the persistence the core needs: the article store plus id/prefix
// lookups and the raw handle the synchronizer shares.
type Store interface {
	storage.Store
	DB() *sql.DB
	GetFeedByURLOrPrefix(ctx context.Context, ref string) (*models.Feed, error)
	GetArticleByIDOrPrefix(ctx context.Context, ref string) (*models.Article, error)
}

// Options are the core's startup parameters.
type Options struct {
	PageSize      int
	RetentionDays int
	FetchTimeout  time.Duration
	Concurrency   int

	Fetcher *fetch.Fetcher
	Metrics *metrics.Metrics
	Now     timeutil.Clock
	Logger  *slog.Logger
}

// Core implements the reader's operations.
type Core struct {
	store   Store
	syncer  *sync.Synchronizer
	fetcher *fetch.Fetcher
	metrics *metrics.Metrics
	now     timeutil.Clock
	log     *slog.Logger

	pageSize      int
	retentionDays int
	fetchTimeout  time.Duration
	concurrency   int

	mu       gosync.Mutex
	inFlight map[string]struct{}
}

// New builds a Core over store. Zero options take the package defaults;
// negative ones are rejected.
func New(store Store, opts Options) (*Core, error) {
	if opts.PageSize < 0 || opts.RetentionDays < 0 || opts.FetchTimeout < 0 || opts.Concurrency < 0 {
		return nil, fmt.Errorf("reader options must not be negative: %+v", opts)
	}
	if opts.PageSize == 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.RetentionDays == 0 {
		opts.RetentionDays = DefaultRetentionDays
	}
	if opts.FetchTimeout == 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Fetcher == nil {
		opts.Fetcher = fetch.New(fetch.Options{Timeout: opts.FetchTimeout})
	}
	if opts.Now == nil {
		opts.Now = timeutil.System
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Core{
		store:         store,
		syncer:        sync.New(store, opts.Now),
		fetcher:       opts.Fetcher,
		metrics:       opts.Metrics,
		now:           opts.Now,
		log:           opts.Logger,
		pageSize:      opts.PageSize,
		retentionDays: opts.RetentionDays,
		fetchTimeout:  opts.FetchTimeout,
		concurrency:   opts.Concurrency,
		inFlight:      make(map[string]struct{}),
	}, nil
}

// PageSize is the configured default page size.
func (c *Core) PageSize() int {
	return c.pageSize
}

// RetentionDays is the configured retention window.
func (c *Core) RetentionDays() int {
	return c.retentionDays
}

// Now reports the core's clock.
func (c *Core) Now() time.Time {
	return c.now()
}

// Store exposes the underlying store for maintenance commands.
func (c *Core) Store() Store {
	return c.store
}

// logger prefers a logger carried in ctx over the one given at construction.
func (c *Core) logger(ctx context.Context) *slog.Logger {
	if l := logctx.From(ctx); l != slog.Default() {
		return l
	}
	return c.log
}

// claim marks feedID as being refreshed. It fails if a refresh is already running.
func (c *Core) claim(feedID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[feedID]; busy {
		return false
	}
	c.inFlight[feedID] = struct{}{}
	return true
}

func (c *Core) release(feedID string) {
	c.mu.Lock()
	delete(c.inFlight, feedID)
	c.mu.Unlock()
}
