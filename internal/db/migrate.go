// ABOUTME: Versioned schema migrations tracked with PRAGMA user_version
// ABOUTME: Each migration runs in its own transaction and bumps the version on success

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; index i upgrades the schema to version i+1.
// Never edit a released migration, append a new one.
var migrations = []string{
	// 1: feeds, labels, articles, sync keys, read state
	`
	CREATE TABLE feeds (
		id TEXT PRIMARY KEY,
		url TEXT UNIQUE NOT NULL,
		title TEXT,
		etag TEXT,
		last_modified TEXT,
		last_fetched_at DATETIME,
		last_status TEXT NOT NULL DEFAULT 'pending',
		last_error TEXT,
		error_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE feed_labels (
		feed_id TEXT NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
		label TEXT NOT NULL,
		PRIMARY KEY (feed_id, label)
	);

	CREATE INDEX idx_feed_labels_label ON feed_labels(label);

	CREATE TABLE articles (
		id TEXT PRIMARY KEY,
		feed_id TEXT NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
		dedup_key TEXT NOT NULL,
		title TEXT NOT NULL,
		link TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		published_at DATETIME NOT NULL,
		published_estimated INTEGER NOT NULL DEFAULT 0,
		fetched_at DATETIME NOT NULL,
		UNIQUE(feed_id, dedup_key)
	);

	CREATE INDEX idx_articles_order ON articles(published_at DESC, id DESC);
	CREATE INDEX idx_articles_feed_id ON articles(feed_id);

	CREATE TABLE sync_keys (
		key TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE read_states (
		sync_key TEXT NOT NULL REFERENCES sync_keys(key) ON DELETE CASCADE,
		article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		read INTEGER NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (sync_key, article_id)
	);

	CREATE INDEX idx_read_states_article ON read_states(article_id);
	`,
}

// SchemaVersion is the version a fully migrated database reports.
func SchemaVersion() int {
	return len(migrations)
}

// Migrate applies any migrations newer than the database's user_version.
func Migrate(ctx context.Context, conn *sql.DB) error {
	var current int
	if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than this binary supports (%d)", current, len(migrations))
	}

	for v := current; v < len(migrations); v++ {
		if err := applyMigration(ctx, conn, v+1, migrations[v]); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, conn *sql.DB, version int, stmt string) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("apply migration %d: %w", version, err)
	}
	// PRAGMA does not accept bound parameters
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("record migration %d: %w", version, err)
	}
	return tx.Commit()
}
