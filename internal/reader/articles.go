// ABOUTME: Paged article listing and single-article lookup
// ABOUTME: Pages are computed fresh per request from the newest-first stream

package reader

import (
	"context"
	"time"

	"github.com/harper/inkreader/internal/models"
	"github.com/harper/inkreader/internal/paginate"
	"github.com/harper/inkreader/internal/storage"
	"github.com/harper/inkreader/internal/sync"
)

// ListQuery selects one page of the article stream.
type ListQuery struct {
	Labels     []string
	FeedRef    string // optional feed id, URL, or id prefix
	UnreadOnly bool   // requires SyncKey
	SyncKey    string
	Before     *time.Time
	Page       int // zero-based
	PageSize   int // zero means the configured default
}

// ArticlePage is one page of articles with the read flag for the query's key.
type ArticlePage = paginate.Page[*models.ArticleView]

// ListArticles returns the requested page, newest first, with HasMore set
// when at least one further article exists.
func (c *Core) ListArticles(ctx context.Context, q ListQuery) (*ArticlePage, error) {
	key, err := optionalKey(q.SyncKey)
	if err != nil {
		return nil, err
	}
	if q.UnreadOnly && key == "" {
		return nil, invalid("sync_key", "required when listing unread articles")
	}
	labels, err := ValidateLabels(q.Labels)
	if err != nil {
		return nil, err
	}

	filter := storage.ArticleFilter{
		Labels:     labels,
		UnreadOnly: q.UnreadOnly,
		SyncKey:    key,
		Before:     q.Before,
	}
	if q.FeedRef != "" {
		feed, err := c.store.GetFeedByURLOrPrefix(ctx, q.FeedRef)
		if err != nil {
			return nil, translate(err)
		}
		filter.FeedID = feed.ID
	}

	req := paginate.Request{Page: q.Page, Size: q.PageSize}.WithDefaultSize(c.pageSize)
	page, err := paginate.Fetch(req, func(limit, offset int) ([]*models.ArticleView, error) {
		f := filter
		f.Limit, f.Offset = limit, offset
		return c.store.ListByLabels(ctx, f)
	})
	return page, translate(err)
}

// GetArticle resolves an article by id or id prefix. When key is set the
// Read flag reflects that key's history.
func (c *Core) GetArticle(ctx context.Context, ref, key string) (*models.ArticleView, error) {
	key, err := optionalKey(key)
	if err != nil {
		return nil, err
	}
	article, err := c.store.GetArticleByIDOrPrefix(ctx, ref)
	if err != nil {
		return nil, translate(err)
	}

	view := &models.ArticleView{Article: *article}
	if feed, err := c.store.GetFeed(ctx, article.FeedID); err == nil {
		view.FeedTitle = feed.DisplayName()
	}
	if key != "" {
		state, ok, err := c.syncer.State(ctx, key, article.ID)
		if err != nil {
			return nil, translate(err)
		}
		view.Read = ok && state.Read
	}
	return view, nil
}

// optionalKey normalizes key when present.
func optionalKey(key string) (string, error) {
	if key == "" {
		return "", nil
	}
	k, err := sync.NormalizeKey(key)
	return k, translate(err)
}
