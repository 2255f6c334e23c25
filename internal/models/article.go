// ABOUTME: Article model representing a single ingested feed item
// ABOUTME: Articles are immutable after insert; read state lives in ReadState keyed by sync key

package models

import (
	"time"

	"github.com/google/uuid"
)

// Article is a persisted feed item. PublishedAt is always UTC; when the feed
// supplied no date, it holds the fetch time and PublishedEstimated is set.
type Article struct {
	ID                 string
	FeedID             string
	DedupKey           string
	Title              string
	Link               string
	Summary            string
	Content            string
	PublishedAt        time.Time
	PublishedEstimated bool
	FetchedAt          time.Time
}

// articleNamespace scopes the name-based article IDs.
var articleNamespace = uuid.MustParse("6f1c2a4e-8b0d-4f3a-9c51-7e2d9a0b4c13")

// ArticleID derives the ID for an item from its feed URL and dedup key, so
// every store subscribed to the same feed names the item the same way and
// reading histories can move between them.
func ArticleID(feedURL, dedupKey string) string {
	return uuid.NewSHA1(articleNamespace, []byte(feedURL+"\n"+dedupKey)).String()
}

// NewArticle creates an Article for an item of the feed at feedURL.
func NewArticle(feedID, feedURL, dedupKey string) *Article {
	return &Article{
		ID:       ArticleID(feedURL, dedupKey),
		FeedID:   feedID,
		DedupKey: dedupKey,
	}
}

// ArticleView is an Article joined with its feed title and the read flag
// for the sync key the listing was made for.
type ArticleView struct {
	Article
	FeedTitle string
	Read      bool
}
