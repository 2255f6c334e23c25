// ABOUTME: Read-state operations of the reader core
// ABOUTME: Marks articles read or unread, merges and exports history, and manages sync keys

package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harper/inkreader/internal/storage"
	"github.com/harper/inkreader/internal/sync"
)

// SetRead records read for an article under key, stamped with the core's
// clock. When a later write already won, the returned Outcome holds the
// surviving state and the error is ErrConflictIgnored.
func (c *Core) SetRead(ctx context.Context, key, ref string, read bool) (sync.Outcome, error) {
	key, err := sync.NormalizeKey(key)
	if err != nil {
		return sync.Outcome{}, translate(err)
	}
	article, err := c.store.GetArticleByIDOrPrefix(ctx, ref)
	if err != nil {
		return sync.Outcome{}, translate(err)
	}

	out, err := c.syncer.MarkRead(ctx, key, article.ID, read, c.now())
	switch {
	case errors.Is(err, sync.ErrConflictIgnored):
		c.metrics.RecordReadState(0, 1)
		return out, err
	case err != nil:
		return out, translate(err)
	}
	c.metrics.RecordReadState(1, 0)
	return out, nil
}

// MergeHistory applies another device's history under key. Articles this
// device no longer has are counted as missing and skipped.
func (c *Core) MergeHistory(ctx context.Context, key string, states []sync.RemoteState) (sync.MergeResult, error) {
	for i, s := range states {
		if s.ArticleID == "" {
			return sync.MergeResult{}, invalid("states", fmt.Sprintf("entry %d has no article_id", i))
		}
		if s.UpdatedAt.IsZero() {
			return sync.MergeResult{}, invalid("states", fmt.Sprintf("entry %d has no updated_at", i))
		}
	}

	res, err := c.syncer.BulkMerge(ctx, key, states)
	if err != nil {
		return res, translate(err)
	}
	c.metrics.RecordReadState(res.Applied, res.Ignored)
	c.logger(ctx).Info("history merged",
		slog.String("op", "reader.MergeHistory"),
		slog.Int("applied", res.Applied),
		slog.Int("ignored", res.Ignored),
		slog.Int("missing", res.Missing))
	return res, nil
}

// ExportHistory returns key's full history for transfer to another device.
func (c *Core) ExportHistory(ctx context.Context, key string) (sync.History, error) {
	key, err := sync.NormalizeKey(key)
	if err != nil {
		return sync.History{}, translate(err)
	}
	states, err := c.syncer.History(ctx, key)
	if err != nil {
		return sync.History{}, translate(err)
	}
	return sync.History{Key: key, States: states}, nil
}

// UnreadCount counts unread articles for key among feeds carrying any of labels.
func (c *Core) UnreadCount(ctx context.Context, key string, labels []string) (int, error) {
	labels, err := ValidateLabels(labels)
	if err != nil {
		return 0, err
	}
	n, err := c.syncer.UnreadCount(ctx, key, labels)
	return n, translate(err)
}

// MarkAllRead marks every unread article for key as read, limited to labels
// and, when before is set, to articles published before it.
func (c *Core) MarkAllRead(ctx context.Context, key string, labels []string, before *time.Time) (int, error) {
	labels, err := ValidateLabels(labels)
	if err != nil {
		return 0, err
	}
	n, err := c.syncer.MarkAllRead(ctx, key, storage.ArticleFilter{Labels: labels, Before: before}, c.now())
	if err != nil {
		return 0, translate(err)
	}
	c.metrics.RecordReadState(n, 0)
	return n, nil
}

// CreateSyncKey generates a new key and records it.
func (c *Core) CreateSyncKey(ctx context.Context) (string, error) {
	key, err := sync.NewKey()
	if err != nil {
		return "", err
	}
	if err := c.syncer.Touch(ctx, key); err != nil {
		return "", err
	}
	return key, nil
}

// ValidateSyncKey reports whether token is a usable key. Any well-formed key
// is usable; an unseen key simply has an empty history.
func (c *Core) ValidateSyncKey(token string) bool {
	return sync.ValidateKey(token)
}

// SyncKeyKnown reports whether key has been used on this device before.
func (c *Core) SyncKeyKnown(ctx context.Context, key string) (bool, error) {
	ok, err := c.syncer.KeyExists(ctx, key)
	return ok, translate(err)
}
