// ABOUTME: Tests for Article construction
// ABOUTME: Covers name-based article IDs shared across stores

package models

import "testing"

func TestArticleID_StableAcrossStores(t *testing.T) {
	a := NewArticle("feed-1", "https://example.com/feed.xml", "guid-1")
	b := NewArticle("feed-2", "https://example.com/feed.xml", "guid-1")

	if a.ID != b.ID {
		t.Errorf("expected same ID for the same feed URL and dedup key, got %q and %q", a.ID, b.ID)
	}
	if a.FeedID != "feed-1" || a.DedupKey != "guid-1" {
		t.Errorf("unexpected article fields: %+v", a)
	}
}

func TestArticleID_Distinct(t *testing.T) {
	base := ArticleID("https://example.com/feed.xml", "guid-1")
	if base == ArticleID("https://example.com/feed.xml", "guid-2") {
		t.Error("expected different dedup keys to give different IDs")
	}
	if base == ArticleID("https://example.org/feed.xml", "guid-1") {
		t.Error("expected different feeds to give different IDs")
	}
}
