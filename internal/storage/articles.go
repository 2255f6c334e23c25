// ABOUTME: Article persistence: deduplicating ingest, windowed listing, and retention deletion
// ABOUTME: Same-feed ingests are serialized with a keyed mutex; different feeds proceed concurrently

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/harper/inkreader/internal/logctx"
	"github.com/harper/inkreader/internal/models"
	"github.com/harper/inkreader/internal/parse"
)

const articleColumns = `a.id, a.feed_id, a.dedup_key, a.title, a.link, a.summary, a.content,
	a.published_at, a.published_estimated, a.fetched_at`

// Ingest inserts items whose (feed, dedup key) pair is not stored yet. The
// batch is one transaction; malformed items are logged and skipped.
func (s *SQLiteStore) Ingest(ctx context.Context, feedID string, items []parse.Item, fetchedAt time.Time) (IngestResult, error) {
	const op = "storage.Ingest"
	log := logctx.From(ctx).With(slog.String("op", op), slog.String("feed_id", feedID))

	var res IngestResult

	unlock := s.feedLocks.Lock(feedID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin ingest: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var feedURL string
	err = tx.QueryRowContext(ctx, `SELECT url FROM feeds WHERE id = ?`, feedID).Scan(&feedURL)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return res, fmt.Errorf("feed %s: %w", feedID, ErrNotFound)
	case err != nil:
		return res, fmt.Errorf("check feed: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles (id, feed_id, dedup_key, title, link, summary, content,
			published_at, published_estimated, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(feed_id, dedup_key) DO NOTHING`)
	if err != nil {
		return res, fmt.Errorf("prepare insert article: %w", err)
	}
	defer stmt.Close()

	fetchedAt = fetchedAt.UTC()
	for i, item := range items {
		key := item.DedupKey()
		if err := validateItem(item, key); err != nil {
			res.Skipped++
			log.Warn("skipping malformed item", slog.Int("index", i), slog.String("reason", err.Error()))
			continue
		}

		article := models.NewArticle(feedID, feedURL, key)
		result, err := stmt.ExecContext(ctx,
			article.ID, feedID, key, item.Title, item.Link, item.Summary, item.Content,
			item.Published.At.UTC(), boolToInt(!item.Published.Known), fetchedAt,
		)
		if err != nil {
			return IngestResult{}, fmt.Errorf("insert article: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return IngestResult{}, fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			res.Duplicate++
		} else {
			res.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return IngestResult{}, fmt.Errorf("commit ingest: %w", err)
	}

	log.Debug("ingested items",
		slog.Int("inserted", res.Inserted),
		slog.Int("duplicate", res.Duplicate),
		slog.Int("skipped", res.Skipped))
	return res, nil
}

func validateItem(item parse.Item, key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return errors.New("empty dedup key")
	case item.Published.At.IsZero():
		return errors.New("missing publish time")
	case strings.TrimSpace(item.Title) == "":
		return errors.New("empty title")
	}
	for name, v := range map[string]string{
		"title": item.Title, "link": item.Link, "summary": item.Summary, "content": item.Content, "key": key,
	} {
		if !utf8.ValidString(v) {
			return fmt.Errorf("invalid UTF-8 in %s", name)
		}
	}
	return nil
}

// ListByLabels returns a window of articles ordered by publish time
// descending, ties broken by id descending.
func (s *SQLiteStore) ListByLabels(ctx context.Context, filter ArticleFilter) ([]*models.ArticleView, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	where, args := filter.where()
	query := `
		SELECT ` + articleColumns + `, COALESCE(NULLIF(f.title, ''), f.url), COALESCE(rs.read, 0)
		FROM articles a
		JOIN feeds f ON f.id = a.feed_id
		LEFT JOIN read_states rs ON rs.article_id = a.id AND rs.sync_key = ?` +
		where + `
		ORDER BY a.published_at DESC, a.id DESC`
	args = append([]any{filter.SyncKey}, args...)

	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	views := []*models.ArticleView{}
	for rows.Next() {
		var view models.ArticleView
		var estimated, read int
		if err := rows.Scan(
			&view.ID, &view.FeedID, &view.DedupKey, &view.Title, &view.Link, &view.Summary, &view.Content,
			&view.PublishedAt, &estimated, &view.FetchedAt, &view.FeedTitle, &read,
		); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		normalizeArticle(&view.Article, estimated)
		view.Read = read == 1
		views = append(views, &view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return views, nil
}

// CountArticles counts articles matching the filter, ignoring Limit/Offset.
func (s *SQLiteStore) CountArticles(ctx context.Context, filter ArticleFilter) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	where, args := filter.where()
	query := `
		SELECT COUNT(*)
		FROM articles a
		LEFT JOIN read_states rs ON rs.article_id = a.id AND rs.sync_key = ?` + where
	args = append([]any{filter.SyncKey}, args...)

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return count, nil
}

// where renders the filter's conditions. The read_states join is expected to
// be aliased rs and bound to the filter's sync key.
func (f ArticleFilter) where() (string, []any) {
	var conditions []string
	var args []any

	if labels := models.NormalizeLabels(f.Labels); len(labels) > 0 {
		placeholders := make([]string, len(labels))
		for i, l := range labels {
			placeholders[i] = "?"
			args = append(args, l)
		}
		conditions = append(conditions,
			"a.feed_id IN (SELECT feed_id FROM feed_labels WHERE label IN ("+strings.Join(placeholders, ",")+"))")
	}

	if f.FeedID != "" {
		conditions = append(conditions, "a.feed_id = ?")
		args = append(args, f.FeedID)
	}

	if f.UnreadOnly {
		conditions = append(conditions, "COALESCE(rs.read, 0) = 0")
	}

	if f.Before != nil {
		conditions = append(conditions, "a.published_at < ?")
		args = append(args, f.Before.UTC())
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// DeleteOlderThan removes articles published strictly before cutoff. Their
// read-state rows go with them through the foreign key cascade.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE published_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete old articles: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// GetArticle retrieves an article by ID.
func (s *SQLiteStore) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles a WHERE a.id = ?`, id)
	article, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("article %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("scan article: %w", err)
	}
	return article, nil
}

// GetArticleByPrefix finds an article by ID prefix (min 6 chars).
func (s *SQLiteStore) GetArticleByPrefix(ctx context.Context, prefix string) (*models.Article, error) {
	if len(prefix) < MinPrefixLength {
		return nil, fmt.Errorf("prefix must be at least %d characters", MinPrefixLength)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles a WHERE a.id LIKE ? ESCAPE '\' LIMIT 2`, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var matches []*models.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		matches = append(matches, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("article with prefix %s: %w", prefix, ErrNotFound)
	}
	if len(matches) > 1 {
		return nil, fmt.Errorf("%w %s matches several articles", ErrAmbiguousPrefix, prefix)
	}
	return matches[0], nil
}

// GetArticleByIDOrPrefix tries an exact id first, then a prefix match.
func (s *SQLiteStore) GetArticleByIDOrPrefix(ctx context.Context, ref string) (*models.Article, error) {
	article, err := s.GetArticle(ctx, ref)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return article, err
	}
	if len(ref) < MinPrefixLength {
		return nil, err
	}
	return s.GetArticleByPrefix(ctx, ref)
}

// ArticleExists checks for (feed_id, dedup_key).
func (s *SQLiteStore) ArticleExists(ctx context.Context, feedID, dedupKey string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE feed_id = ? AND dedup_key = ?`, feedID, dedupKey).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check article exists: %w", err)
	}
	return count > 0, nil
}

func scanArticle(row rowScanner) (*models.Article, error) {
	var article models.Article
	var estimated int
	if err := row.Scan(
		&article.ID, &article.FeedID, &article.DedupKey, &article.Title, &article.Link,
		&article.Summary, &article.Content, &article.PublishedAt, &estimated, &article.FetchedAt,
	); err != nil {
		return nil, err
	}
	normalizeArticle(&article, estimated)
	return &article, nil
}

func normalizeArticle(a *models.Article, estimated int) {
	a.PublishedAt = a.PublishedAt.UTC()
	a.FetchedAt = a.FetchedAt.UTC()
	a.PublishedEstimated = estimated == 1
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
