// ABOUTME: SQLite storage implementation using modernc.org/sqlite (pure Go)
// ABOUTME: Provides feed, label and fetch-status persistence plus statistics and maintenance

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harper/inkreader/internal/db"
	"github.com/harper/inkreader/internal/models"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	feedLocks *KeyedMutex
}

// NewSQLiteStore opens the database at dbPath, migrating it if needed.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	conn, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStoreFromDB(conn), nil
}

// NewSQLiteStoreFromDB wraps an already migrated connection.
func NewSQLiteStoreFromDB(conn *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: conn, feedLocks: NewKeyedMutex()}
}

// DB exposes the connection for packages that own their own tables.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const feedColumns = `id, url, title, etag, last_modified, last_fetched_at, last_status, last_error, error_count, created_at`

// Feed Operations

// CreateFeed stores a new feed with its labels.
func (s *SQLiteStore) CreateFeed(ctx context.Context, feed *models.Feed) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create feed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO feeds (`+feedColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		feed.ID, feed.URL, feed.Title, feed.ETag, feed.LastModified,
		timeToSQL(feed.LastFetchedAt), string(feed.LastStatus), feed.LastError,
		feed.ErrorCount, feed.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert feed: %w", err)
	}

	if err := replaceLabels(ctx, tx, feed.ID, feed.Labels); err != nil {
		return err
	}
	return tx.Commit()
}

// GetFeed retrieves a feed by ID.
func (s *SQLiteStore) GetFeed(ctx context.Context, id string) (*models.Feed, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE id = ?`, id)
	return s.loadFeed(ctx, row, id)
}

// GetFeedByURL finds a feed by its URL.
func (s *SQLiteStore) GetFeedByURL(ctx context.Context, url string) (*models.Feed, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE url = ?`, url)
	return s.loadFeed(ctx, row, url)
}

// GetFeedByPrefix finds a feed by ID prefix (min 6 chars).
func (s *SQLiteStore) GetFeedByPrefix(ctx context.Context, prefix string) (*models.Feed, error) {
	if len(prefix) < MinPrefixLength {
		return nil, fmt.Errorf("prefix must be at least %d characters", MinPrefixLength)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+feedColumns+` FROM feeds WHERE id LIKE ? ESCAPE '\'`, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}
	defer rows.Close()

	var matches []*models.Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feeds: %w", err)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("feed with prefix %s: %w", prefix, ErrNotFound)
	}
	if len(matches) > 1 {
		return nil, fmt.Errorf("%w %s matches %d feeds", ErrAmbiguousPrefix, prefix, len(matches))
	}
	if err := s.attachLabels(ctx, matches); err != nil {
		return nil, err
	}
	return matches[0], nil
}

// GetFeedByURLOrPrefix tries the exact URL first, then an id prefix.
func (s *SQLiteStore) GetFeedByURLOrPrefix(ctx context.Context, ref string) (*models.Feed, error) {
	feed, err := s.GetFeed(ctx, ref)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return feed, err
	}
	feed, err = s.GetFeedByURL(ctx, ref)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return feed, err
	}
	if len(ref) < MinPrefixLength {
		return nil, fmt.Errorf("feed %s: %w", ref, ErrNotFound)
	}
	return s.GetFeedByPrefix(ctx, ref)
}

// ListFeeds returns all feeds, oldest first.
func (s *SQLiteStore) ListFeeds(ctx context.Context) ([]*models.Feed, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+feedColumns+` FROM feeds ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}
	defer rows.Close()

	var feeds []*models.Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feeds: %w", err)
	}

	if err := s.attachLabels(ctx, feeds); err != nil {
		return nil, err
	}
	return feeds, nil
}

// DeleteFeed removes a feed, its labels and its articles (cascade).
func (s *SQLiteStore) DeleteFeed(ctx context.Context, id string) error {
	unlock := s.feedLocks.Lock(id)
	defer unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM feeds WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}
	return requireRow(result, "feed", id)
}

// SetFeedTitle stores the title learned from the feed document.
func (s *SQLiteStore) SetFeedTitle(ctx context.Context, id, title string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE feeds SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("update feed title: %w", err)
	}
	return requireRow(result, "feed", id)
}

// SetFeedLabels replaces a feed's labels.
func (s *SQLiteStore) SetFeedLabels(ctx context.Context, id string, labels []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set labels: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM feeds WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check feed: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("feed %s: %w", id, ErrNotFound)
	}

	if err := replaceLabels(ctx, tx, id, labels); err != nil {
		return err
	}
	return tx.Commit()
}

// ListLabels returns every label in use, sorted.
func (s *SQLiteStore) ListLabels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT label FROM feed_labels ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// RecordFetchSuccess stores cache headers and clears the error state.
func (s *SQLiteStore) RecordFetchSuccess(ctx context.Context, id string, etag, lastModified *string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE feeds SET
			etag = ?, last_modified = ?, last_fetched_at = ?,
			last_status = ?, last_error = NULL, error_count = 0
		WHERE id = ?`,
		etag, lastModified, at.UTC(), string(models.StatusOK), id,
	)
	if err != nil {
		return fmt.Errorf("update feed fetch state: %w", err)
	}
	return requireRow(result, "feed", id)
}

// RecordFetchNotModified notes a 304 response.
func (s *SQLiteStore) RecordFetchNotModified(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE feeds SET
			last_fetched_at = ?, last_status = ?, last_error = NULL, error_count = 0
		WHERE id = ?`,
		at.UTC(), string(models.StatusNotModified), id,
	)
	if err != nil {
		return fmt.Errorf("update feed fetch state: %w", err)
	}
	return requireRow(result, "feed", id)
}

// RecordFetchFailure stores the error and bumps the error count. The fetch
// time is updated too, so a failing feed still shows when it was last tried.
func (s *SQLiteStore) RecordFetchFailure(ctx context.Context, id string, errMsg string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE feeds SET
			last_fetched_at = ?, last_status = ?, last_error = ?, error_count = error_count + 1
		WHERE id = ?`,
		at.UTC(), string(models.StatusError), errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("update feed error: %w", err)
	}
	return requireRow(result, "feed", id)
}

// Statistics

// GetFeedStats retrieves per-feed counts; unread counts use syncKey when set.
func (s *SQLiteStore) GetFeedStats(ctx context.Context, syncKey string) ([]FeedStatsRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.url, f.title, f.etag, f.last_modified, f.last_fetched_at,
			   f.last_status, f.last_error, f.error_count, f.created_at,
			   COUNT(a.id) AS article_count,
			   SUM(CASE WHEN a.id IS NOT NULL AND COALESCE(rs.read, 0) = 0 THEN 1 ELSE 0 END) AS unread_count
		FROM feeds f
		LEFT JOIN articles a ON a.feed_id = f.id
		LEFT JOIN read_states rs ON rs.article_id = a.id AND rs.sync_key = ?
		GROUP BY f.id
		ORDER BY f.created_at ASC, f.id ASC`, syncKey)
	if err != nil {
		return nil, fmt.Errorf("query feed stats: %w", err)
	}
	defer rows.Close()

	var stats []FeedStatsRow
	var feeds []*models.Feed
	for rows.Next() {
		var (
			row         FeedStatsRow
			lastFetched sql.NullTime
			status      string
			unread      sql.NullInt64
			feed        models.Feed
		)
		if err := rows.Scan(
			&feed.ID, &feed.URL, &feed.Title, &feed.ETag, &feed.LastModified, &lastFetched,
			&status, &feed.LastError, &feed.ErrorCount, &feed.CreatedAt,
			&row.ArticleCount, &unread,
		); err != nil {
			return nil, fmt.Errorf("scan feed stats: %w", err)
		}
		finishFeed(&feed, lastFetched, status)
		if unread.Valid {
			row.UnreadCount = int(unread.Int64)
		}
		row.Feed = &feed
		stats = append(stats, row)
		feeds = append(feeds, &feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed stats: %w", err)
	}

	if err := s.attachLabels(ctx, feeds); err != nil {
		return nil, err
	}
	return stats, nil
}

// GetOverallStats retrieves overall statistics.
func (s *SQLiteStore) GetOverallStats(ctx context.Context, syncKey string) (*OverallStats, error) {
	var stats OverallStats

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feeds`).Scan(&stats.TotalFeeds); err != nil {
		return nil, fmt.Errorf("count feeds: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&stats.TotalArticles); err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_keys`).Scan(&stats.TotalSyncKeys); err != nil {
		return nil, fmt.Errorf("count sync keys: %w", err)
	}

	unread, err := s.CountArticles(ctx, ArticleFilter{SyncKey: syncKey, UnreadOnly: syncKey != ""})
	if err != nil {
		return nil, err
	}
	stats.UnreadCount = unread
	return &stats, nil
}

// Maintenance

// Compact performs database maintenance (VACUUM).
func (s *SQLiteStore) Compact(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// Helper functions

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*models.Feed, error) {
	var feed models.Feed
	var lastFetched sql.NullTime
	var status string
	if err := row.Scan(
		&feed.ID, &feed.URL, &feed.Title, &feed.ETag, &feed.LastModified, &lastFetched,
		&status, &feed.LastError, &feed.ErrorCount, &feed.CreatedAt,
	); err != nil {
		return nil, err
	}
	finishFeed(&feed, lastFetched, status)
	return &feed, nil
}

func finishFeed(feed *models.Feed, lastFetched sql.NullTime, status string) {
	if lastFetched.Valid {
		t := lastFetched.Time.UTC()
		feed.LastFetchedAt = &t
	}
	feed.LastStatus = models.FetchStatus(status)
	feed.CreatedAt = feed.CreatedAt.UTC()
	feed.Labels = []string{}
}

func (s *SQLiteStore) loadFeed(ctx context.Context, row *sql.Row, ref string) (*models.Feed, error) {
	feed, err := scanFeed(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("feed %s: %w", ref, ErrNotFound)
		}
		return nil, fmt.Errorf("scan feed: %w", err)
	}
	if err := s.attachLabels(ctx, []*models.Feed{feed}); err != nil {
		return nil, err
	}
	return feed, nil
}

// attachLabels fills Labels for feeds with a single query.
func (s *SQLiteStore) attachLabels(ctx context.Context, feeds []*models.Feed) error {
	if len(feeds) == 0 {
		return nil
	}
	byID := make(map[string]*models.Feed, len(feeds))
	for _, f := range feeds {
		byID[f.ID] = f
	}

	rows, err := s.db.QueryContext(ctx, `SELECT feed_id, label FROM feed_labels ORDER BY label`)
	if err != nil {
		return fmt.Errorf("query feed labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var feedID, label string
		if err := rows.Scan(&feedID, &label); err != nil {
			return fmt.Errorf("scan feed label: %w", err)
		}
		if f, ok := byID[feedID]; ok {
			f.Labels = append(f.Labels, label)
		}
	}
	return rows.Err()
}

func replaceLabels(ctx context.Context, tx *sql.Tx, feedID string, labels []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM feed_labels WHERE feed_id = ?`, feedID); err != nil {
		return fmt.Errorf("clear feed labels: %w", err)
	}
	for _, label := range models.NormalizeLabels(labels) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feed_labels (feed_id, label) VALUES (?, ?)`, feedID, label); err != nil {
			return fmt.Errorf("insert feed label: %w", err)
		}
	}
	return nil
}

func requireRow(result sql.Result, kind, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

// likePrefix escapes SQL wildcards so a prefix matches literally.
func likePrefix(prefix string) string {
	escaped := strings.ReplaceAll(prefix, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "%", `\%`)
	escaped = strings.ReplaceAll(escaped, "_", `\_`)
	return escaped + "%"
}

func timeToSQL(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
