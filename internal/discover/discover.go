// ABOUTME: Feed discovery for turning a site or feed URL into a verified feed
// ABOUTME: Tries the URL itself, then advertised <link> alternates, then well-known paths

package discover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/harper/inkreader/internal/fetch"
)

// wellKnownPaths are probed against the site root when the page advertises nothing.
var wellKnownPaths = []string{
	"/feed.xml",
	"/feed",
	"/rss.xml",
	"/rss",
	"/atom.xml",
	"/atom",
	"/index.xml",
	"/feed/rss",
	"/feed/atom",
	"/feeds/posts/default",
}

var (
	ErrNoFeedFound = errors.New("no RSS/Atom feed found at URL")
	ErrInvalidURL  = errors.New("invalid URL")
)

// DiscoveredFeed is a URL proven to serve a feed, together with the fetch
// that proved it so callers can store the items without fetching twice.
type DiscoveredFeed struct {
	URL    string
	Title  string
	Result *fetch.Result // Result.Feed is populated
}

// ValidateURL checks that inputURL is an absolute http(s) URL.
func ValidateURL(inputURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(inputURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch {
	case u.Scheme == "" || u.Host == "":
		return nil, fmt.Errorf("%w: missing scheme or host", ErrInvalidURL)
	case u.Scheme != "http" && u.Scheme != "https":
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	return u, nil
}

// Discover resolves inputURL to a feed. A failure to fetch inputURL itself
// is returned as the *fetch.FetchError. When the page loads but nothing on
// it or near it parses as a feed, the error is a parse FetchError wrapping
// ErrNoFeedFound.
func Discover(ctx context.Context, f *fetch.Fetcher, inputURL string, fetchedAt time.Time) (*DiscoveredFeed, error) {
	base, err := ValidateURL(inputURL)
	if err != nil {
		return nil, err
	}
	p := &prober{ctx: ctx, fetcher: f, fetchedAt: fetchedAt}

	found, body, err := p.try(inputURL)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return found, nil
	}

	for _, alt := range alternateLinks(body, base) {
		found, _, err := p.try(alt.URL)
		if err != nil || found == nil {
			continue
		}
		if found.Title == "" {
			found.Title = alt.Title
		}
		return found, nil
	}

	root := url.URL{Scheme: base.Scheme, Host: base.Host}
	for _, path := range wellKnownPaths {
		if ctx.Err() != nil {
			break
		}
		if found, _, err := p.try(root.String() + path); err == nil && found != nil {
			return found, nil
		}
	}

	if ctx.Err() != nil {
		return nil, &fetch.FetchError{URL: inputURL, Kind: fetch.KindNetwork, Err: ctx.Err()}
	}
	return nil, fetch.ParseError(inputURL, ErrNoFeedFound)
}

type prober struct {
	ctx       context.Context
	fetcher   *fetch.Fetcher
	fetchedAt time.Time
}

// try fetches target and parses it as a feed. A body that is not a feed is
// not an error: found is nil and the body is returned for link extraction.
func (p *prober) try(target string) (found *DiscoveredFeed, body []byte, err error) {
	res, err := p.fetcher.Fetch(p.ctx, target, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	parsed, perr := p.fetcher.Parse(target, res.Body, p.fetchedAt)
	if perr != nil {
		return nil, res.Body, nil
	}
	res.Feed = parsed
	return &DiscoveredFeed{URL: target, Title: parsed.Title, Result: res}, res.Body, nil
}

type alternate struct {
	URL   string
	Title string
}

// alternateLinks returns the feed alternates a page advertises, in document
// order, resolved against base.
func alternateLinks(body []byte, base *url.URL) []alternate {
	if len(body) == 0 {
		return nil
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var out []alternate
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "link" {
			attrs := make(map[string]string, len(n.Attr))
			for _, a := range n.Attr {
				attrs[a.Key] = a.Val
			}
			if attrs["rel"] == "alternate" && isFeedType(attrs["type"]) && attrs["href"] != "" {
				if ref, err := url.Parse(attrs["href"]); err == nil {
					out = append(out, alternate{URL: base.ResolveReference(ref).String(), Title: attrs["title"]})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func isFeedType(mime string) bool {
	mime = strings.ToLower(mime)
	for _, marker := range []string{"rss", "atom", "xml"} {
		if strings.Contains(mime, marker) {
			return true
		}
	}
	return false
}
