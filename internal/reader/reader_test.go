// ABOUTME: Tests for the reader core against httptest feed servers and a temp SQLite store
// ABOUTME: Covers adding feeds, refresh isolation, paging, read state, and retention

package reader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/inkreader/internal/fetch"
	"github.com/harper/inkreader/internal/logctx"
	"github.com/harper/inkreader/internal/models"
	"github.com/harper/inkreader/internal/storage"
	"github.com/harper/inkreader/internal/sync"
)

const testKey = "abcd1234"

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type testItem struct {
	guid string
	age  time.Duration
}

func rssFeed(title string, items ...testItem) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel>`)
	fmt.Fprintf(&b, "<title>%s</title><link>https://example.com</link>", title)
	for _, it := range items {
		fmt.Fprintf(&b, "<item><title>%s</title><guid>%s</guid><link>https://example.com/%s</link>"+
			"<description>about %s</description><pubDate>%s</pubDate></item>",
			it.guid, it.guid, it.guid, it.guid, base.Add(-it.age).Format(time.RFC1123Z))
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	core  *Core
	store *storage.SQLiteStore
	now   time.Time
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	store, err := storage.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := &harness{store: store, now: base}
	if opts.Fetcher == nil {
		opts.Fetcher = fetch.New(fetch.Options{HostInterval: -1})
	}
	opts.Now = func() time.Time { return h.now }
	opts.Logger = logctx.Discard()

	h.core, err = New(store, opts)
	require.NoError(t, err)
	return h
}

func (h *harness) count(t *testing.T) int {
	t.Helper()
	n, err := h.store.CountArticles(context.Background(), storage.ArticleFilter{})
	require.NoError(t, err)
	return n
}

func TestNew_RejectsNegativeOptions(t *testing.T) {
	_, err := New(nil, Options{PageSize: -1})
	assert.Error(t, err)
}

func TestAddFeed_StoresAndIngests(t *testing.T) {
	h := newHarness(t, Options{})
	srv := feedServer(t, rssFeed("Example", testItem{"a", time.Hour}, testItem{"b", 2 * time.Hour}, testItem{"c", 3 * time.Hour}))

	feed, err := h.core.AddFeed(context.Background(), srv.URL, []string{" News ", "tech", "news"})
	require.NoError(t, err)

	assert.Equal(t, srv.URL, feed.URL)
	require.NotNil(t, feed.Title)
	assert.Equal(t, "Example", *feed.Title)
	assert.Equal(t, []string{"news", "tech"}, feed.Labels)
	assert.Equal(t, models.StatusOK, feed.LastStatus)
	assert.Equal(t, 3, h.count(t))
}

func TestAddFeed_FetchErrorPersistsNothing(t *testing.T) {
	h := newHarness(t, Options{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := h.core.AddFeed(context.Background(), srv.URL, nil)
	var fe *FetchError
	require.True(t, errors.As(err, &fe), "want FetchError, got %v", err)
	assert.Equal(t, fetch.KindStatus, fe.Kind)

	feeds, err := h.core.ListFeeds(context.Background())
	require.NoError(t, err)
	assert.Empty(t, feeds)
}

func TestAddFeed_MalformedDocument(t *testing.T) {
	h := newHarness(t, Options{})
	srv := feedServer(t, "<html><body>nothing to see</body></html>")

	_, err := h.core.AddFeed(context.Background(), srv.URL, nil)
	var fe *FetchError
	require.True(t, errors.As(err, &fe), "want FetchError, got %v", err)
	assert.Equal(t, fetch.KindParse, fe.Kind)
}

func TestAddFeed_Validation(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	_, err := h.core.AddFeed(ctx, "not a url", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.core.AddFeed(ctx, "ftp://example.com/feed", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.core.AddFeed(ctx, "https://example.com/feed", []string{"a,b"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "labels", ve.Field)
}

func TestAddFeed_Duplicate(t *testing.T) {
	h := newHarness(t, Options{})
	srv := feedServer(t, rssFeed("Example", testItem{"a", time.Hour}))
	ctx := context.Background()

	_, err := h.core.AddFeed(ctx, srv.URL, nil)
	require.NoError(t, err)
	_, err = h.core.AddFeed(ctx, srv.URL, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddFeed_DiscoversFromPage(t *testing.T) {
	h := newHarness(t, Options{})
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><link rel="alternate" type="application/rss+xml" href="/feed.xml"></head></html>`))
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssFeed("Blog", testItem{"a", time.Hour})))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	feed, err := h.core.AddFeed(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/feed.xml", feed.URL)
	assert.Equal(t, 1, h.count(t))
}

func TestRefreshAllFeeds_Idempotent(t *testing.T) {
	h := newHarness(t, Options{})
	srv := feedServer(t, rssFeed("Example", testItem{"a", time.Hour}, testItem{"b", 2 * time.Hour}))
	ctx := context.Background()

	_, err := h.core.AddFeed(ctx, srv.URL, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		report, err := h.core.RefreshAllFeeds(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Refreshed)
		assert.Equal(t, 0, report.Inserted)
	}
	assert.Equal(t, 2, h.count(t))
}

func TestRefreshAllFeeds_NewItemsAppear(t *testing.T) {
	h := newHarness(t, Options{})
	var body atomic.Value
	body.Store(rssFeed("Example", testItem{"a", 2 * time.Hour}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body.Load().(string)))
	}))
	defer srv.Close()
	ctx := context.Background()

	_, err := h.core.AddFeed(ctx, srv.URL, nil)
	require.NoError(t, err)

	body.Store(rssFeed("Example", testItem{"b", time.Hour}, testItem{"a", 2 * time.Hour}))
	report, err := h.core.RefreshAllFeeds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 2, h.count(t))
}

func TestRefreshAllFeeds_NotModified(t *testing.T) {
	h := newHarness(t, Options{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(rssFeed("Example", testItem{"a", time.Hour})))
	}))
	defer srv.Close()
	ctx := context.Background()

	feed, err := h.core.AddFeed(ctx, srv.URL, nil)
	require.NoError(t, err)
	require.NotNil(t, feed.ETag)

	report, err := h.core.RefreshAllFeeds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.NotModified)

	got, err := h.core.GetFeed(ctx, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotModified, got.LastStatus)
}

func TestRefreshAllFeeds_SlowFeedDoesNotBlockOthers(t *testing.T) {
	h := newHarness(t, Options{FetchTimeout: 300 * time.Millisecond, Concurrency: 1})
	ctx := context.Background()

	var hang atomic.Bool
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hang.Load() {
			<-r.Context().Done()
			return
		}
		w.Write([]byte(rssFeed("F", testItem{"f1", time.Hour})))
	}))
	defer slow.Close()
	g := feedServer(t, rssFeed("G", testItem{"g1", time.Hour}))
	hSrv := feedServer(t, rssFeed("H", testItem{"h1", time.Hour}))

	f, err := h.core.AddFeed(ctx, slow.URL, nil)
	require.NoError(t, err)
	_, err = h.core.AddFeed(ctx, g.URL, nil)
	require.NoError(t, err)
	_, err = h.core.AddFeed(ctx, hSrv.URL, nil)
	require.NoError(t, err)

	hang.Store(true)
	report, err := h.core.RefreshAllFeeds(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Feeds)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Refreshed)
	assert.Less(t, report.Duration, 10*time.Second)

	for _, o := range report.Outcomes {
		if o.FeedID == f.ID {
			var fe *FetchError
			require.True(t, errors.As(o.Err, &fe))
			assert.Equal(t, fetch.KindNetwork, fe.Kind)
		} else {
			assert.NoError(t, o.Err)
		}
	}

	got, err := h.core.GetFeed(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, got.LastStatus)
	assert.Equal(t, 1, got.ErrorCount)
	require.NotNil(t, got.LastFetchedAt)
}

func TestRefreshAllFeeds_SkipsFeedInFlight(t *testing.T) {
	h := newHarness(t, Options{})
	srv := feedServer(t, rssFeed("Example", testItem{"a", time.Hour}))
	ctx := context.Background()

	feed, err := h.core.AddFeed(ctx, srv.URL, nil)
	require.NoError(t, err)

	require.True(t, h.core.claim(feed.ID))
	report, err := h.core.RefreshAllFeeds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.InFlight)
	assert.Equal(t, 0, report.Refreshed)

	_, err = h.core.RefreshFeed(ctx, feed.ID)
	assert.Error(t, err)

	h.core.release(feed.ID)
	outcome, err := h.core.RefreshFeed(ctx, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, outcome.Status)
}

func TestRefreshFeed_NotFound(t *testing.T) {
	h := newHarness(t, Options{})
	_, err := h.core.RefreshFeed(context.Background(), "https://missing.example.com/feed")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveFeed(t *testing.T) {
	h := newHarness(t, Options{})
	srv := feedServer(t, rssFeed("Example", testItem{"a", time.Hour}))
	ctx := context.Background()

	feed, err := h.core.AddFeed(ctx, srv.URL, nil)
	require.NoError(t, err)

	_, err = h.core.RemoveFeed(ctx, feed.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, 0, h.count(t))

	_, err = h.core.RemoveFeed(ctx, feed.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetFeedLabels(t *testing.T) {
	h := newHarness(t, Options{})
	srv := feedServer(t, rssFeed("Example", testItem{"a", time.Hour}))
	ctx := context.Background()

	feed, err := h.core.AddFeed(ctx, srv.URL, []string{"old"})
	require.NoError(t, err)

	updated, err := h.core.SetFeedLabels(ctx, feed.URL, []string{"Tech", "news"})
	require.NoError(t, err)
	assert.Equal(t, []string{"news", "tech"}, updated.Labels)

	labels, err := h.core.ListLabels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"news", "tech"}, labels)
}

func TestListArticles_ThreeItemsPageSizeTwo(t *testing.T) {
	h := newHarness(t, Options{PageSize: 2})
	srv := feedServer(t, rssFeed("Example", testItem{"a", time.Hour}, testItem{"b", 2 * time.Hour}, testItem{"c", 3 * time.Hour}))
	ctx := context.Background()

	_, err := h.core.AddFeed(ctx, srv.URL, nil)
	require.NoError(t, err)

	first, err := h.core.ListArticles(ctx, ListQuery{Page: 0})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "a", first.Items[0].Title)
	assert.Equal(t, "b", first.Items[1].Title)
	assert.Equal(t, "Example", first.Items[0].FeedTitle)

	second, err := h.core.ListArticles(ctx, ListQuery{Page: 1})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "c", second.Items[0].Title)

	past, err := h.core.ListArticles(ctx, ListQuery{Page: 5})
	require.NoError(t, err)
	assert.Empty(t, past.Items)
	assert.False(t, past.HasMore)
}

func TestListArticles_Filters(t *testing.T) {
	h := newHarness(t, Options{})
	news := feedServer(t, rssFeed("News", testItem{"n1", time.Hour}, testItem{"n2", 3 * time.Hour}))
	other := feedServer(t, rssFeed("Other", testItem{"o1", 2 * time.Hour}))
	ctx := context.Background()

	_, err := h.core.AddFeed(ctx, news.URL, []string{"news"})
	require.NoError(t, err)
	_, err = h.core.AddFeed(ctx, other.URL, nil)
	require.NoError(t, err)

	page, err := h.core.ListArticles(ctx, ListQuery{Labels: []string{"NEWS"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	first := page.Items[0]
	_, err = h.core.SetRead(ctx, testKey, first.ID, true)
	require.NoError(t, err)

	unread, err := h.core.ListArticles(ctx, ListQuery{UnreadOnly: true, SyncKey: "ABCD1234"})
	require.NoError(t, err)
	assert.Len(t, unread.Items, 2)
	for _, a := range unread.Items {
		assert.NotEqual(t, first.ID, a.ID)
	}

	withKey, err := h.core.ListArticles(ctx, ListQuery{SyncKey: testKey, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, withKey.Items, 3)
	assert.True(t, withKey.Items[0].Read)

	byFeed, err := h.core.ListArticles(ctx, ListQuery{FeedRef: other.URL})
	require.NoError(t, err)
	require.Len(t, byFeed.Items, 1)
	assert.Equal(t, "o1", byFeed.Items[0].Title)
}

func TestListArticles_Validation(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	tests := []struct {
		name  string
		q     ListQuery
		field string
	}{
		{"unread without key", ListQuery{UnreadOnly: true}, "sync_key"},
		{"bad key", ListQuery{SyncKey: "short"}, "sync_key"},
		{"negative page", ListQuery{Page: -1}, "page"},
		{"huge page size", ListQuery{PageSize: 1000}, "page_size"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.core.ListArticles(ctx, tc.q)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSetRead_LastWriterWins(t *testing.T) {
	h := newHarness(t, Options{})
	srv := feedServer(t, rssFeed("Example", testItem{"a", time.Hour}))
	ctx := context.Background()

	_, err := h.core.AddFeed(ctx, srv.URL, nil)
	require.NoError(t, err)
	page, err := h.core.ListArticles(ctx, ListQuery{})
	require.NoError(t, err)
	id := page.Items[0].ID

	h.now = base.Add(10 * time.Second)
	_, err = h.core.SetRead(ctx, testKey, id, false)
	require.NoError(t, err)

	h.now = base.Add(5 * time.Second)
	out, err := h.core.SetRead(ctx, testKey, id, true)
	assert.ErrorIs(t, err, ErrConflictIgnored)
	assert.False(t, out.Applied)
	assert.False(t, out.State.Read)

	view, err := h.core.GetArticle(ctx, id[:8], testKey)
	require.NoError(t, err)
	assert.False(t, view.Read)
	assert.Equal(t, "Example", view.FeedTitle)
}

func TestSetRead_Errors(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	_, err := h.core.SetRead(ctx, testKey, "00000000-0000-0000-0000-000000000000", true)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.core.SetRead(ctx, "bad!", "whatever", true)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMergeAndExportHistory(t *testing.T) {
	h := newHarness(t, Options{})
	srv := feedServer(t, rssFeed("Example", testItem{"a", time.Hour}, testItem{"b", 2 * time.Hour}))
	ctx := context.Background()

	_, err := h.core.AddFeed(ctx, srv.URL, nil)
	require.NoError(t, err)
	page, err := h.core.ListArticles(ctx, ListQuery{})
	require.NoError(t, err)

	states := []sync.RemoteState{
		{ArticleID: page.Items[0].ID, Read: true, UpdatedAt: base.Add(time.Minute)},
		{ArticleID: page.Items[1].ID, Read: true, UpdatedAt: base.Add(time.Minute)},
		{ArticleID: "gone-by-retention", Read: true, UpdatedAt: base},
	}
	res, err := h.core.MergeHistory(ctx, testKey, states)
	require.NoError(t, err)
	assert.Equal(t, sync.MergeResult{Applied: 2, Missing: 1}, res)

	history, err := h.core.ExportHistory(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, testKey, history.Key)
	assert.Len(t, history.States, 2)

	// identical states re-apply without changing anything
	again, err := h.core.MergeHistory(ctx, testKey, states)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Missing)
	after, err := h.core.ExportHistory(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, history, after)

	n, err := h.core.UnreadCount(ctx, testKey, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = h.core.MergeHistory(ctx, testKey, []sync.RemoteState{{ArticleID: "x"}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMarkAllRead(t *testing.T) {
	h := newHarness(t, Options{})
	news := feedServer(t, rssFeed("News", testItem{"n1", time.Hour}, testItem{"n2", 48 * time.Hour}))
	other := feedServer(t, rssFeed("Other", testItem{"o1", 2 * time.Hour}))
	ctx := context.Background()

	_, err := h.core.AddFeed(ctx, news.URL, []string{"news"})
	require.NoError(t, err)
	_, err = h.core.AddFeed(ctx, other.URL, nil)
	require.NoError(t, err)

	before := base.Add(-24 * time.Hour)
	n, err := h.core.MarkAllRead(ctx, testKey, []string{"news"}, &before)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	unreadNews, err := h.core.UnreadCount(ctx, testKey, []string{"news"})
	require.NoError(t, err)
	assert.Equal(t, 1, unreadNews)

	n, err = h.core.MarkAllRead(ctx, testKey, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	total, err := h.core.UnreadCount(ctx, testKey, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestCleanupOldArticles(t *testing.T) {
	h := newHarness(t, Options{RetentionDays: 90})
	srv := feedServer(t, rssFeed("Example", testItem{"fresh", time.Hour}, testItem{"stale", 100 * 24 * time.Hour}))
	ctx := context.Background()

	_, err := h.core.AddFeed(ctx, srv.URL, nil)
	require.NoError(t, err)
	require.Equal(t, 2, h.count(t))

	_, err = h.core.MarkAllRead(ctx, testKey, nil, nil)
	require.NoError(t, err)

	deleted, err := h.core.CleanupOldArticles(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, h.count(t))

	history, err := h.core.ExportHistory(ctx, testKey)
	require.NoError(t, err)
	assert.Len(t, history.States, 1, "read state of the deleted article goes with it")

	deleted, err = h.core.CleanupOldArticles(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestSyncKeys(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	key, err := h.core.CreateSyncKey(ctx)
	require.NoError(t, err)
	assert.Len(t, key, sync.KeyLength)
	assert.True(t, h.core.ValidateSyncKey(key))
	assert.True(t, h.core.ValidateSyncKey(strings.ToUpper(key)))
	assert.False(t, h.core.ValidateSyncKey("nope"))

	known, err := h.core.SyncKeyKnown(ctx, key)
	require.NoError(t, err)
	assert.True(t, known)

	known, err = h.core.SyncKeyKnown(ctx, "zzzz9999")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestStats(t *testing.T) {
	h := newHarness(t, Options{})
	srv := feedServer(t, rssFeed("Example", testItem{"a", time.Hour}, testItem{"b", 2 * time.Hour}))
	ctx := context.Background()

	feed, err := h.core.AddFeed(ctx, srv.URL, nil)
	require.NoError(t, err)
	page, err := h.core.ListArticles(ctx, ListQuery{})
	require.NoError(t, err)
	_, err = h.core.SetRead(ctx, testKey, page.Items[0].ID, true)
	require.NoError(t, err)

	rows, err := h.core.FeedStats(ctx, testKey)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, feed.ID, rows[0].Feed.ID)
	assert.Equal(t, 2, rows[0].ArticleCount)
	assert.Equal(t, 1, rows[0].UnreadCount)

	stats, err := h.core.Stats(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalFeeds)
	assert.Equal(t, 2, stats.TotalArticles)
	assert.Equal(t, 1, stats.UnreadCount)
}

func TestOPMLImportExport(t *testing.T) {
	h := newHarness(t, Options{})
	a := feedServer(t, rssFeed("A", testItem{"a1", time.Hour}))
	b := feedServer(t, rssFeed("B", testItem{"b1", time.Hour}))
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer broken.Close()
	ctx := context.Background()

	_, err := h.core.AddFeed(ctx, b.URL, nil)
	require.NoError(t, err)

	doc := fmt.Sprintf(`<opml version="2.0"><head><title>subs</title></head><body>
  <outline text="Tech"><outline type="rss" text="A" xmlUrl="%s" /></outline>
  <outline type="rss" text="B" xmlUrl="%s" />
  <outline type="rss" text="Broken" xmlUrl="%s" />
</body></opml>`, a.URL, b.URL, broken.URL)

	res, err := h.core.ImportOPML(ctx, strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{a.URL}, res.Added)
	assert.Equal(t, []string{b.URL}, res.Existed)
	require.Contains(t, res.Failed, broken.URL)

	imported, err := h.core.GetFeed(ctx, a.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"tech"}, imported.Labels)

	var out strings.Builder
	require.NoError(t, h.core.ExportOPML(ctx, &out, "inkreader"))
	assert.Contains(t, out.String(), `category="tech"`)
	assert.Contains(t, out.String(), b.URL)

	_, err = h.core.ImportOPML(ctx, strings.NewReader("not xml"))
	assert.ErrorIs(t, err, ErrValidation)
}
