// ABOUTME: Feed model representing an RSS/Atom subscription with labels and fetch status
// ABOUTME: Tracks conditional request headers (ETag, Last-Modified) and the outcome of the last refresh

package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FetchStatus is the outcome of the most recent refresh of a feed.
type FetchStatus string

const (
	StatusPending     FetchStatus = "pending"
	StatusOK          FetchStatus = "ok"
	StatusNotModified FetchStatus = "not_modified"
	StatusError       FetchStatus = "error"
)

// Feed represents an RSS/Atom feed subscription
type Feed struct {
	ID            string      // Unique identifier for the feed
	URL           string      // Feed URL
	Title         *string     // Feed title (from RSS/Atom metadata)
	Labels        []string    // Normalized labels used for filtering
	ETag          *string     // HTTP ETag header for conditional requests
	LastModified  *string     // HTTP Last-Modified header for conditional requests
	LastFetchedAt *time.Time  // Timestamp of the last fetch attempt
	LastStatus    FetchStatus // Outcome of the last fetch attempt
	LastError     *string     // Last error message (if any)
	ErrorCount    int         // Consecutive error count
	CreatedAt     time.Time   // Feed creation timestamp
}

// NewFeed creates a new Feed instance with a generated ID and timestamp
func NewFeed(url string, labels []string, now time.Time) *Feed {
	return &Feed{
		ID:         uuid.New().String(),
		URL:        url,
		Labels:     NormalizeLabels(labels),
		LastStatus: StatusPending,
		CreatedAt:  now.UTC(),
	}
}

// SetCacheHeaders updates the feed's HTTP caching headers for conditional requests
func (f *Feed) SetCacheHeaders(etag, lastModified string) {
	if etag != "" {
		f.ETag = &etag
	}
	if lastModified != "" {
		f.LastModified = &lastModified
	}
}

// DisplayName returns the title when known, otherwise the URL.
func (f *Feed) DisplayName() string {
	if f.Title != nil && *f.Title != "" {
		return *f.Title
	}
	return f.URL
}

// HasLabel reports whether the feed carries the given (already normalized) label.
func (f *Feed) HasLabel(label string) bool {
	for _, l := range f.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// NormalizeLabels trims and lower-cases labels, dropping empties and duplicates.
// The result is sorted so that label sets compare deterministically.
func NormalizeLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// ParseLabelList splits a comma-separated label string, as typed on a form or flag.
func ParseLabelList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return NormalizeLabels(strings.Split(s, ","))
}
