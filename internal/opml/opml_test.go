// ABOUTME: Test suite for OPML parsing and writing
// ABOUTME: Covers folders and categories as labels, duplicates, and round-trip integrity

package opml

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/inkreader/internal/models"
)

const sampleOPML = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head>
    <title>My Feeds</title>
  </head>
  <body>
    <outline text="Tech News">
      <outline type="rss" text="Hacker News" xmlUrl="https://hnrss.org/frontpage" />
      <outline type="rss" text="TechCrunch" xmlUrl="https://techcrunch.com/feed/" category="startups" />
    </outline>
    <outline text="Blogs">
      <outline type="rss" text="Joel on Software" xmlUrl="https://www.joelonsoftware.com/feed/" />
    </outline>
    <outline type="rss" text="No Folder Feed" title="Root Feed" xmlUrl="https://example.com/feed" category="/news/world,Daily" />
  </body>
</opml>`

func TestParseOPML(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleOPML))
	require.NoError(t, err)
	assert.Equal(t, "My Feeds", doc.Title)

	want := []Feed{
		{URL: "https://hnrss.org/frontpage", Title: "Hacker News", Labels: []string{"tech news"}},
		{URL: "https://techcrunch.com/feed/", Title: "TechCrunch", Labels: []string{"startups", "tech news"}},
		{URL: "https://www.joelonsoftware.com/feed/", Title: "Joel on Software", Labels: []string{"blogs"}},
		{URL: "https://example.com/feed", Title: "Root Feed", Labels: []string{"daily", "news", "world"}},
	}
	assert.Equal(t, want, doc.AllFeeds())
}

func TestParseOPMLDuplicateURLMergesLabels(t *testing.T) {
	data := `<opml version="2.0"><head><title>t</title></head><body>
  <outline text="A"><outline type="rss" text="Same" xmlUrl="https://example.com/feed" /></outline>
  <outline text="B"><outline type="rss" text="Same" xmlUrl=" https://example.com/feed " /></outline>
</body></opml>`

	doc, err := Parse(strings.NewReader(data))
	require.NoError(t, err)
	feeds := doc.AllFeeds()
	require.Len(t, feeds, 1)
	assert.Equal(t, []string{"a", "b"}, feeds[0].Labels)
}

func TestParseOPMLInvalid(t *testing.T) {
	for name, data := range map[string]string{
		"truncated": "<opml><body>",
		"not opml":  `<rss version="2.0"><channel></channel></rss>`,
		"empty":     "",
	} {
		_, err := Parse(strings.NewReader(data))
		assert.Error(t, err, name)
	}
}

func TestOPMLRoundTrip(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	title := "Go Blog"
	a := models.NewFeed("https://go.dev/blog/feed.atom", []string{"tech", "Go"}, now)
	a.Title = &title
	b := models.NewFeed("https://example.com/rss", nil, now)

	var buf bytes.Buffer
	require.NoError(t, FromFeeds("inkreader subscriptions", []*models.Feed{a, b}).Write(&buf))

	parsed, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, "inkreader subscriptions", parsed.Title)
	assert.Equal(t, []Feed{
		{URL: "https://go.dev/blog/feed.atom", Title: "Go Blog", Labels: []string{"go", "tech"}},
		{URL: "https://example.com/rss", Title: "https://example.com/rss", Labels: []string{}},
	}, parsed.AllFeeds())
}

func TestOPMLWrite(t *testing.T) {
	title := "Example & Co"
	f := models.NewFeed("https://example.com/feed", []string{"news"}, time.Now())
	f.Title = &title

	var buf bytes.Buffer
	require.NoError(t, FromFeeds("Out", []*models.Feed{f}).Write(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	for _, want := range []string{
		`<opml version="2.0">`,
		`<title>Out</title>`,
		`xmlUrl="https://example.com/feed"`,
		`category="news"`,
		`Example &amp; Co`,
	} {
		assert.Contains(t, out, want)
	}
}
