// ABOUTME: Tests for read-state synchronization
// ABOUTME: Covers last-writer-wins, merge idempotence, unknown articles, and unread counts

package sync

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/inkreader/internal/models"
	"github.com/harper/inkreader/internal/parse"
	"github.com/harper/inkreader/internal/storage"
)

const testKey = "abcd1234"

var base = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func ts(sec int) time.Time {
	return base.Add(time.Duration(sec) * time.Second)
}

type fixture struct {
	store    *storage.SQLiteStore
	syncer   *Synchronizer
	articles []string // newest first
	news     string   // feed id labelled "news"
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	news := models.NewFeed("https://news.example.com/feed", []string{"news"}, base)
	other := models.NewFeed("https://other.example.com/feed", nil, base)
	require.NoError(t, store.CreateFeed(ctx, news))
	require.NoError(t, store.CreateFeed(ctx, other))

	_, err = store.Ingest(ctx, news.ID, []parse.Item{
		{GUID: "n1", Title: "n1", Published: parse.KnownTime(ts(300))},
		{GUID: "n2", Title: "n2", Published: parse.KnownTime(ts(200))},
	}, base)
	require.NoError(t, err)
	_, err = store.Ingest(ctx, other.ID, []parse.Item{
		{GUID: "o1", Title: "o1", Published: parse.KnownTime(ts(100))},
	}, base)
	require.NoError(t, err)

	list, err := store.ListByLabels(ctx, storage.ArticleFilter{})
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
	}

	return &fixture{
		store:    store,
		syncer:   New(store, func() time.Time { return base }),
		articles: ids,
		news:     news.ID,
	}
}

func (f *fixture) readState(t *testing.T, articleID string) (bool, time.Time) {
	t.Helper()
	history, err := f.syncer.History(context.Background(), testKey)
	require.NoError(t, err)
	for _, s := range history {
		if s.ArticleID == articleID {
			return s.Read, s.UpdatedAt
		}
	}
	t.Fatalf("no read state for %s", articleID)
	return false, time.Time{}
}

func TestMarkRead_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.articles[0]

	out, err := f.syncer.MarkRead(ctx, testKey, a, false, ts(10))
	require.NoError(t, err)
	assert.True(t, out.Applied)

	out, err = f.syncer.MarkRead(ctx, testKey, a, true, ts(5))
	assert.ErrorIs(t, err, ErrConflictIgnored)
	assert.False(t, out.Applied)
	assert.False(t, out.State.Read)
	assert.True(t, out.State.UpdatedAt.Equal(ts(10)))

	read, at := f.readState(t, a)
	assert.False(t, read)
	assert.True(t, at.Equal(ts(10)))
}

func TestMarkRead_NewerWins(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.articles[0]

	_, err := f.syncer.MarkRead(ctx, testKey, a, true, ts(5))
	require.NoError(t, err)
	_, err = f.syncer.MarkRead(ctx, testKey, a, false, ts(10))
	require.NoError(t, err)

	read, _ := f.readState(t, a)
	assert.False(t, read)
}

func TestMarkRead_EqualTimestampApplies(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.articles[0]

	_, err := f.syncer.MarkRead(ctx, testKey, a, true, ts(7))
	require.NoError(t, err)
	out, err := f.syncer.MarkRead(ctx, testKey, a, true, ts(7))
	require.NoError(t, err)
	assert.True(t, out.Applied)
}

func TestMarkRead_UnknownArticle(t *testing.T) {
	f := setup(t)
	_, err := f.syncer.MarkRead(context.Background(), testKey, "missing", true, ts(1))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMarkRead_BadKey(t *testing.T) {
	f := setup(t)
	_, err := f.syncer.MarkRead(context.Background(), "nope", f.articles[0], true, ts(1))
	var ke *KeyError
	assert.ErrorAs(t, err, &ke)
}

func TestMarkRead_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.syncer.MarkRead(ctx, testKey, f.articles[0], true, ts(1))
	require.NoError(t, err)

	n, err := f.syncer.UnreadCount(ctx, "zzzz9999", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = f.syncer.UnreadCount(ctx, testKey, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestBulkMerge_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	remote := []RemoteState{
		{ArticleID: f.articles[0], Read: true, UpdatedAt: ts(20)},
		{ArticleID: f.articles[1], Read: true, UpdatedAt: ts(21)},
		{ArticleID: "gone-by-retention", Read: true, UpdatedAt: ts(22)},
	}

	res, err := f.syncer.BulkMerge(ctx, testKey, remote)
	require.NoError(t, err)
	assert.Equal(t, MergeResult{Applied: 2, Missing: 1}, res)

	first, err := f.syncer.History(ctx, testKey)
	require.NoError(t, err)

	_, err = f.syncer.BulkMerge(ctx, testKey, remote)
	require.NoError(t, err)

	second, err := f.syncer.History(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	res, err = f.syncer.BulkMerge(ctx, testKey, nil)
	require.NoError(t, err)
	assert.Equal(t, MergeResult{}, res)
}

func TestBulkMerge_RespectsNewerLocalState(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.articles[0]

	_, err := f.syncer.MarkRead(ctx, testKey, a, false, ts(50))
	require.NoError(t, err)

	res, err := f.syncer.BulkMerge(ctx, testKey, []RemoteState{{ArticleID: a, Read: true, UpdatedAt: ts(40)}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Ignored)

	read, _ := f.readState(t, a)
	assert.False(t, read)
}

func TestBulkMerge_ThreeDevices(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.articles[0]

	phone := []RemoteState{{ArticleID: a, Read: true, UpdatedAt: ts(10)}}
	tablet := []RemoteState{{ArticleID: a, Read: false, UpdatedAt: ts(30)}}
	laptop := []RemoteState{{ArticleID: a, Read: true, UpdatedAt: ts(20)}}

	// the latest timestamp wins whatever order the devices arrive in
	for _, batch := range [][]RemoteState{laptop, tablet, phone} {
		_, err := f.syncer.BulkMerge(ctx, testKey, batch)
		require.NoError(t, err)
	}

	read, at := f.readState(t, a)
	assert.False(t, read)
	assert.True(t, at.Equal(ts(30)))
}

func TestUnreadCount_Labels(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	n, err := f.syncer.UnreadCount(ctx, testKey, []string{"news"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.syncer.MarkRead(ctx, testKey, f.articles[0], true, ts(1))
	require.NoError(t, err)
	_, err = f.syncer.MarkRead(ctx, testKey, f.articles[1], false, ts(1))
	require.NoError(t, err)

	n, err = f.syncer.UnreadCount(ctx, testKey, []string{"news"})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "read=false rows still count as unread")
}

func TestMarkAllRead(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	before := ts(250)
	n, err := f.syncer.MarkAllRead(ctx, testKey, storage.ArticleFilter{Before: &before}, ts(1000))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	unread, err := f.syncer.UnreadCount(ctx, testKey, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestTouchAndKeyExists(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	ok, err := f.syncer.KeyExists(ctx, testKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.syncer.Touch(ctx, "ABCD1234"))

	ok, err = f.syncer.KeyExists(ctx, testKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHistory_TransfersBetweenDevices(t *testing.T) {
	ctx := context.Background()
	src := setup(t)

	_, err := src.syncer.MarkRead(ctx, testKey, src.articles[0], true, ts(5))
	require.NoError(t, err)
	states, err := src.syncer.History(ctx, testKey)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteHistory(&buf, History{Key: testKey, States: states}))

	doc, err := ReadHistory(&buf)
	require.NoError(t, err)
	assert.Equal(t, testKey, doc.Key)

	// same store stands in for a second device sharing the article ids
	res, err := src.syncer.BulkMerge(ctx, doc.Key, doc.States)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
}

func TestReadHistory_Rejects(t *testing.T) {
	_, err := ReadHistory(bytes.NewBufferString(`{"key":"bad","states":[]}`))
	assert.Error(t, err)

	_, err = ReadHistory(bytes.NewBufferString(`{"key":"abcd1234","states":[{"read":true,"updated_at":"2024-01-01T00:00:00Z"}]}`))
	assert.Error(t, err)

	_, err = ReadHistory(bytes.NewBufferString(`{"key":"abcd1234","extra":1}`))
	assert.Error(t, err)
}

func TestState(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	id := f.articles[0]

	_, ok, err := f.syncer.State(ctx, testKey, id)
	require.NoError(t, err)
	assert.False(t, ok, "never-marked article has no state")

	_, err = f.syncer.MarkRead(ctx, testKey, id, true, ts(10))
	require.NoError(t, err)

	state, ok, err := f.syncer.State(ctx, "ABCD1234", id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, state.Read)
	assert.True(t, state.UpdatedAt.Equal(ts(10)))
	assert.Equal(t, testKey, state.SyncKey)
}
