// ABOUTME: Test suite for Feed and ReadState models
// ABOUTME: Covers feed creation, cache headers, label normalization, and LWW ordering

package models

import (
	"reflect"
	"testing"
	"time"
)

func TestNewFeed(t *testing.T) {
	url := "https://example.com/feed.xml"
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	feed := NewFeed(url, []string{" Tech ", "news", "tech"}, now)

	if feed.URL != url {
		t.Errorf("expected URL to be %q, got %q", url, feed.URL)
	}
	if feed.ID == "" {
		t.Error("expected feed ID to be generated, got empty string")
	}
	if !feed.CreatedAt.Equal(now) || feed.CreatedAt.Location() != time.UTC {
		t.Errorf("expected CreatedAt %v in UTC, got %v", now, feed.CreatedAt)
	}
	if feed.LastStatus != StatusPending {
		t.Errorf("expected pending status, got %q", feed.LastStatus)
	}
	if want := []string{"news", "tech"}; !reflect.DeepEqual(feed.Labels, want) {
		t.Errorf("expected labels %v, got %v", want, feed.Labels)
	}
}

func TestFeed_SetCacheHeaders(t *testing.T) {
	feed := NewFeed("https://example.com/feed.xml", nil, time.Now())

	etag := `"abc123"`
	lastModified := "Mon, 02 Jan 2006 15:04:05 GMT"

	feed.SetCacheHeaders(etag, lastModified)

	if feed.ETag == nil || *feed.ETag != etag {
		t.Errorf("expected ETag to be %q, got %v", etag, feed.ETag)
	}
	if feed.LastModified == nil || *feed.LastModified != lastModified {
		t.Errorf("expected LastModified to be %q, got %v", lastModified, feed.LastModified)
	}

	// Empty values leave existing headers alone
	feed.SetCacheHeaders("", "")
	if feed.ETag == nil || *feed.ETag != etag {
		t.Errorf("expected ETag to survive empty update, got %v", feed.ETag)
	}
}

func TestFeed_DisplayName(t *testing.T) {
	feed := NewFeed("https://example.com/feed.xml", nil, time.Now())
	if got := feed.DisplayName(); got != feed.URL {
		t.Errorf("expected URL as display name, got %q", got)
	}
	title := "Example"
	feed.Title = &title
	if got := feed.DisplayName(); got != title {
		t.Errorf("expected title as display name, got %q", got)
	}
}

func TestParseLabelList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"Tech, news ,,TECH", []string{"news", "tech"}},
		{"one", []string{"one"}},
	}
	for _, tt := range tests {
		got := ParseLabelList(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseLabelList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReadState_Newer(t *testing.T) {
	t5 := time.Unix(5, 0)
	t10 := time.Unix(10, 0)

	older := ReadState{Read: true, UpdatedAt: t5}
	newer := ReadState{Read: false, UpdatedAt: t10}

	if older.Newer(newer) {
		t.Error("expected t=5 state to lose against t=10")
	}
	if !newer.Newer(older) {
		t.Error("expected t=10 state to win against t=5")
	}
	if !older.Newer(older) {
		t.Error("expected equal timestamps to apply")
	}
}
