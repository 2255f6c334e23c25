// ABOUTME: Read-state synchronization across devices sharing one sync key
// ABOUTME: Applies last-writer-wins by timestamp for single updates and bulk merges

package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harper/inkreader/internal/logctx"
	"github.com/harper/inkreader/internal/models"
	"github.com/harper/inkreader/internal/storage"
)

// ErrConflictIgnored means a write was discarded because the stored state
// carries a later timestamp. It is a signal, not a failure.
var ErrConflictIgnored = errors.New("read state superseded by a later update")

// Store is the part of the article store the synchronizer reads through.
type Store interface {
	DB() *sql.DB
	CountArticles(ctx context.Context, filter storage.ArticleFilter) (int, error)
	ListByLabels(ctx context.Context, filter storage.ArticleFilter) ([]*models.ArticleView, error)
}

// RemoteState is one entry of a device's reading history.
type RemoteState struct {
	ArticleID string    `json:"article_id"`
	Read      bool      `json:"read"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Outcome describes what MarkRead did.
type Outcome struct {
	Applied bool
	State   models.ReadState // the state now stored
}

// MergeResult counts what BulkMerge did with each remote state.
type MergeResult struct {
	Applied int
	Ignored int
	Missing int // article not known locally, e.g. removed by retention
}

// Synchronizer owns the read_states and sync_keys tables.
type Synchronizer struct {
	store Store
	db    *sql.DB
	locks *storage.KeyedMutex
	now   func() time.Time
}

// New returns a Synchronizer. now stamps first use of a key; nil means time.Now.
func New(store Store, now func() time.Time) *Synchronizer {
	if now == nil {
		now = time.Now
	}
	return &Synchronizer{
		store: store,
		db:    store.DB(),
		locks: storage.NewKeyedMutex(),
		now:   now,
	}
}

// Touch records first use of key. Existing keys are left alone.
func (s *Synchronizer) Touch(ctx context.Context, key string) error {
	key, err := NormalizeKey(key)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sync_keys (key, created_at) VALUES (?, ?)`, key, s.now().UTC()); err != nil {
		return fmt.Errorf("record sync key: %w", err)
	}
	return nil
}

// KeyExists reports whether key has been used on this store.
func (s *Synchronizer) KeyExists(ctx context.Context, key string) (bool, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return false, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_keys WHERE key = ?`, key).Scan(&n); err != nil {
		return false, fmt.Errorf("check sync key: %w", err)
	}
	return n > 0, nil
}

// MarkRead stores read for (key, articleID) as of at, unless the stored state
// is newer. A discarded write returns ErrConflictIgnored along with the
// state that won.
func (s *Synchronizer) MarkRead(ctx context.Context, key, articleID string, read bool, at time.Time) (Outcome, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return Outcome{}, err
	}

	unlock := s.locks.Lock(key)
	defer unlock()

	incoming := models.ReadState{SyncKey: key, ArticleID: articleID, Read: read, UpdatedAt: at.UTC()}

	var out Outcome
	err = s.inTx(ctx, key, func(tx *sql.Tx) error {
		stored, applied, err := apply(ctx, tx, incoming)
		if err != nil {
			return err
		}
		out = Outcome{Applied: applied, State: stored}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	if !out.Applied {
		return out, ErrConflictIgnored
	}
	return out, nil
}

// BulkMerge applies a device's history under key in one transaction, using
// the same rule as MarkRead for each entry. Re-running it with the same
// states changes nothing.
func (s *Synchronizer) BulkMerge(ctx context.Context, key string, states []RemoteState) (MergeResult, error) {
	const op = "sync.BulkMerge"

	key, err := NormalizeKey(key)
	if err != nil {
		return MergeResult{}, err
	}

	unlock := s.locks.Lock(key)
	defer unlock()

	var res MergeResult
	err = s.inTx(ctx, key, func(tx *sql.Tx) error {
		for _, rs := range states {
			incoming := models.ReadState{SyncKey: key, ArticleID: rs.ArticleID, Read: rs.Read, UpdatedAt: rs.UpdatedAt.UTC()}
			_, applied, err := apply(ctx, tx, incoming)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				res.Missing++
			case err != nil:
				return err
			case applied:
				res.Applied++
			default:
				res.Ignored++
			}
		}
		return nil
	})
	if err != nil {
		return MergeResult{}, err
	}

	logctx.From(ctx).Debug("merged read history",
		slog.String("op", op),
		slog.Int("applied", res.Applied),
		slog.Int("ignored", res.Ignored),
		slog.Int("missing", res.Missing))
	return res, nil
}

// MarkAllRead marks every unread article matching filter as read for key,
// stamped with at so the change takes part in last-writer-wins.
func (s *Synchronizer) MarkAllRead(ctx context.Context, key string, filter storage.ArticleFilter, at time.Time) (int, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return 0, err
	}
	filter.SyncKey = key
	filter.UnreadOnly = true
	filter.Limit, filter.Offset = 0, 0

	unread, err := s.store.ListByLabels(ctx, filter)
	if err != nil {
		return 0, err
	}
	states := make([]RemoteState, 0, len(unread))
	for _, a := range unread {
		states = append(states, RemoteState{ArticleID: a.ID, Read: true, UpdatedAt: at})
	}
	res, err := s.BulkMerge(ctx, key, states)
	if err != nil {
		return 0, err
	}
	return res.Applied, nil
}

// UnreadCount counts articles matching labels with no read state for key or
// a read=false state.
func (s *Synchronizer) UnreadCount(ctx context.Context, key string, labels []string) (int, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return 0, err
	}
	return s.store.CountArticles(ctx, storage.ArticleFilter{Labels: labels, UnreadOnly: true, SyncKey: key})
}

// State returns the stored state for (key, articleID). ok is false when the
// article has never been marked for key, which means unread.
func (s *Synchronizer) State(ctx context.Context, key, articleID string) (models.ReadState, bool, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return models.ReadState{}, false, err
	}

	state := models.ReadState{SyncKey: key, ArticleID: articleID}
	var read int
	err = s.db.QueryRowContext(ctx,
		`SELECT read, updated_at FROM read_states WHERE sync_key = ? AND article_id = ?`,
		key, articleID).Scan(&read, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return state, false, nil
	}
	if err != nil {
		return models.ReadState{}, false, fmt.Errorf("load read state: %w", err)
	}
	state.Read = read == 1
	state.UpdatedAt = state.UpdatedAt.UTC()
	return state, true, nil
}

// History returns every stored state for key, oldest change first.
func (s *Synchronizer) History(ctx context.Context, key string) ([]RemoteState, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT article_id, read, updated_at FROM read_states
		WHERE sync_key = ?
		ORDER BY updated_at ASC, article_id ASC`, key)
	if err != nil {
		return nil, fmt.Errorf("query read states: %w", err)
	}
	defer rows.Close()

	states := []RemoteState{}
	for rows.Next() {
		var rs RemoteState
		var read int
		if err := rows.Scan(&rs.ArticleID, &read, &rs.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan read state: %w", err)
		}
		rs.Read = read == 1
		rs.UpdatedAt = rs.UpdatedAt.UTC()
		states = append(states, rs)
	}
	return states, rows.Err()
}

func (s *Synchronizer) inTx(ctx context.Context, key string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin read state update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO sync_keys (key, created_at) VALUES (?, ?)`, key, s.now().UTC()); err != nil {
		return fmt.Errorf("record sync key: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit read state update: %w", err)
	}
	return nil
}

// apply writes incoming unless the stored row is strictly newer. It returns
// the state left in place and whether incoming was written.
func apply(ctx context.Context, tx *sql.Tx, incoming models.ReadState) (models.ReadState, bool, error) {
	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE id = ?`, incoming.ArticleID).Scan(&exists); err != nil {
		return models.ReadState{}, false, fmt.Errorf("check article: %w", err)
	}
	if exists == 0 {
		return models.ReadState{}, false, fmt.Errorf("article %s: %w", incoming.ArticleID, storage.ErrNotFound)
	}

	stored := models.ReadState{SyncKey: incoming.SyncKey, ArticleID: incoming.ArticleID}
	var read int
	err := tx.QueryRowContext(ctx,
		`SELECT read, updated_at FROM read_states WHERE sync_key = ? AND article_id = ?`,
		incoming.SyncKey, incoming.ArticleID).Scan(&read, &stored.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return models.ReadState{}, false, fmt.Errorf("load read state: %w", err)
	default:
		stored.Read = read == 1
		stored.UpdatedAt = stored.UpdatedAt.UTC()
		if !incoming.Newer(stored) {
			return stored, false, nil
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO read_states (sync_key, article_id, read, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sync_key, article_id) DO UPDATE SET
			read = excluded.read, updated_at = excluded.updated_at`,
		incoming.SyncKey, incoming.ArticleID, boolToInt(incoming.Read), incoming.UpdatedAt,
	); err != nil {
		return models.ReadState{}, false, fmt.Errorf("upsert read state: %w", err)
	}
	return incoming, true, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
