// ABOUTME: Read state model for per-sync-key article history
// ABOUTME: One row per (sync key, article); absence means unread

package models

import "time"

// ReadState records whether an article is read for a sync key and when that
// was last decided. UpdatedAt is the last-writer-wins timestamp.
type ReadState struct {
	SyncKey   string
	ArticleID string
	Read      bool
	UpdatedAt time.Time
}

// Newer reports whether s should win over other under last-writer-wins.
// Ties go to s, so re-applying an identical state is a no-op.
func (s ReadState) Newer(other ReadState) bool {
	return !s.UpdatedAt.Before(other.UpdatedAt)
}
