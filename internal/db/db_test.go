// ABOUTME: Tests for database connection and path helpers
// ABOUTME: Validates XDG path resolution, schema creation, and cascade behaviour

package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestGetDefaultDBPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	path := GetDefaultDBPath()

	if !filepath.IsAbs(path) {
		t.Errorf("expected absolute path, got %s", path)
	}
	if path != "/tmp/xdg-data/inkreader/inkreader.db" {
		t.Errorf("unexpected path %s", path)
	}
}

func TestGetDefaultOPMLPath(t *testing.T) {
	path := GetDefaultOPMLPath()

	if filepath.Base(path) != "feeds.opml" {
		t.Errorf("expected feeds.opml, got %s", filepath.Base(path))
	}
}

func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	conn, err := Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer conn.Close()

	for _, table := range []string{"feeds", "feed_labels", "articles", "sync_keys", "read_states"} {
		var count int
		err := conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if count != 1 {
			t.Errorf("%s table not created", table)
		}
	}

	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	if version != SchemaVersion() {
		t.Errorf("expected schema version %d, got %d", SchemaVersion(), version)
	}
}

func TestOpen_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	conn, err := Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	conn.Close()

	conn, err = Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	conn.Close()
}

func TestCascadeDelete(t *testing.T) {
	conn, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer conn.Close()

	now := time.Now().UTC()
	stmts := []struct {
		q    string
		args []any
	}{
		{`INSERT INTO feeds (id, url, created_at) VALUES (?, ?, ?)`, []any{"f1", "https://example.com/feed", now}},
		{`INSERT INTO feed_labels (feed_id, label) VALUES (?, ?)`, []any{"f1", "news"}},
		{`INSERT INTO articles (id, feed_id, dedup_key, title, published_at, fetched_at) VALUES (?, ?, ?, ?, ?, ?)`, []any{"a1", "f1", "k1", "t", now, now}},
		{`INSERT INTO sync_keys (key, created_at) VALUES (?, ?)`, []any{"abcd1234", now}},
		{`INSERT INTO read_states (sync_key, article_id, read, updated_at) VALUES (?, ?, 1, ?)`, []any{"abcd1234", "a1", now}},
	}
	for _, s := range stmts {
		if _, err := conn.Exec(s.q, s.args...); err != nil {
			t.Fatalf("exec %q: %v", s.q, err)
		}
	}

	if _, err := conn.Exec(`DELETE FROM feeds WHERE id = ?`, "f1"); err != nil {
		t.Fatalf("delete feed: %v", err)
	}

	for _, table := range []string{"feed_labels", "articles", "read_states"} {
		var count int
		if err := conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 0 {
			t.Errorf("expected %s to be emptied by cascade, found %d rows", table, count)
		}
	}
}
