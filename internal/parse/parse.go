// ABOUTME: RSS/Atom feed parsing using gofeed library
// ABOUTME: Normalizes gofeed items into strict Item records with defaults and dedup keys

package parse

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/harper/inkreader/internal/content"
)

// DefaultTitle is used when an item carries no title.
const DefaultTitle = "Untitled"

// PublishTime records when an item was published. Known is false when the feed
// gave no usable date and the fetch time was substituted.
type PublishTime struct {
	At    time.Time
	Known bool
}

// KnownTime wraps a date reported by the feed.
func KnownTime(t time.Time) PublishTime {
	return PublishTime{At: t.UTC(), Known: true}
}

// FallbackTime wraps the fetch time used in place of a missing date.
func FallbackTime(fetchedAt time.Time) PublishTime {
	return PublishTime{At: fetchedAt.UTC(), Known: false}
}

// Feed is a parsed feed document
type Feed struct {
	Title string
	Link  string
	Items []Item
}

// Item is a normalized feed entry. Every field is populated; optional
// fields from the source document are replaced by defaults.
type Item struct {
	GUID      string
	Title     string
	Link      string
	Author    string
	Summary   string
	Content   string
	Published PublishTime
}

// DedupKey returns the per-feed identity of the item: GUID, then link, then
// title, then a content hash.
func (i Item) DedupKey() string {
	for _, candidate := range []string{i.GUID, i.Link} {
		if k := strings.TrimSpace(candidate); k != "" {
			return k
		}
	}
	if t := strings.TrimSpace(i.Title); t != "" && t != DefaultTitle {
		return t
	}
	return ContentHash(i.Title, i.Link, i.Summary, i.Content)
}

// ContentHash is the fallback dedup key for items with no stable identifier.
func ContentHash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Parse parses RSS or Atom feed data. fetchedAt is substituted for items
// that carry neither a published nor an updated date.
func Parse(data []byte, fetchedAt time.Time) (*Feed, error) {
	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(data))
	if err != nil {
		return nil, err
	}

	parsed := &Feed{
		Title: strings.TrimSpace(feed.Title),
		Link:  strings.TrimSpace(feed.Link),
		Items: make([]Item, 0, len(feed.Items)),
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		parsed.Items = append(parsed.Items, normalize(item, fetchedAt))
	}

	return parsed, nil
}

func normalize(item *gofeed.Item, fetchedAt time.Time) Item {
	entry := Item{
		GUID:  strings.TrimSpace(item.GUID),
		Title: content.Clean(item.Title),
		Link:  strings.TrimSpace(item.Link),
	}

	if entry.Title == "" {
		entry.Title = DefaultTitle
	}

	if item.Author != nil {
		entry.Author = strings.TrimSpace(item.Author.Name)
	}

	// Published, then updated, then the fetch time
	switch {
	case item.PublishedParsed != nil && !item.PublishedParsed.IsZero():
		entry.Published = KnownTime(*item.PublishedParsed)
	case item.UpdatedParsed != nil && !item.UpdatedParsed.IsZero():
		entry.Published = KnownTime(*item.UpdatedParsed)
	default:
		entry.Published = FallbackTime(fetchedAt)
	}

	entry.Summary = content.Summarize(item.Description)

	// Prefer Content over Description
	if item.Content != "" {
		entry.Content = content.Body(item.Content)
	} else {
		entry.Content = content.Body(item.Description)
	}

	return entry
}
