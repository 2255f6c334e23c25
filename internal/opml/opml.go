// ABOUTME: OPML parsing and writing for feed subscriptions
// ABOUTME: Labels travel as the comma-separated category attribute; folders import as labels

package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/harper/inkreader/internal/models"
)

// Version is written into exported documents.
const Version = "2.0"

// Document is a parsed or to-be-written OPML file.
type Document struct {
	XMLName  xml.Name  `xml:"opml"`
	Version  string    `xml:"version,attr"`
	Title    string    `xml:"head>title"`
	Outlines []Outline `xml:"body>outline"`
}

// Outline is either a folder (Children set, no XMLURL) or a subscription.
type Outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string    `xml:"htmlUrl,attr,omitempty"`
	Category string    `xml:"category,attr,omitempty"`
	Children []Outline `xml:"outline,omitempty"`
}

// Feed is a single subscription with the labels it carries.
type Feed struct {
	URL    string
	Title  string
	Labels []string
}

// FromFeeds builds a flat document with one outline per subscription.
func FromFeeds(title string, feeds []*models.Feed) *Document {
	doc := &Document{Version: Version, Title: title}
	for _, f := range feeds {
		name := f.DisplayName()
		doc.Outlines = append(doc.Outlines, Outline{
			Text:     name,
			Title:    name,
			Type:     "rss",
			XMLURL:   f.URL,
			Category: strings.Join(models.NormalizeLabels(f.Labels), ","),
		})
	}
	return doc
}

// Parse decodes an OPML document from r.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode OPML: %w", err)
	}
	return &doc, nil
}

// AllFeeds returns every feed in document order. A feed's labels are its
// category attribute plus the names of the folders enclosing it. A URL that
// appears twice is reported once, with the labels of both entries.
func (d *Document) AllFeeds() []Feed {
	var feeds []Feed
	index := make(map[string]int)
	emit := func(f Feed) {
		if i, ok := index[f.URL]; ok {
			feeds[i].Labels = models.NormalizeLabels(append(feeds[i].Labels, f.Labels...))
			return
		}
		index[f.URL] = len(feeds)
		feeds = append(feeds, f)
	}
	for _, o := range d.Outlines {
		o.walk(nil, emit)
	}
	return feeds
}

func (o Outline) walk(folders []string, emit func(Feed)) {
	if url := strings.TrimSpace(o.XMLURL); url != "" {
		title := o.Title
		if title == "" {
			title = o.Text
		}
		labels := append(append([]string{}, folders...), splitCategory(o.Category)...)
		emit(Feed{URL: url, Title: title, Labels: models.NormalizeLabels(labels)})
	} else if len(o.Children) > 0 && o.Text != "" {
		folders = append(append([]string{}, folders...), o.Text)
	}
	for _, child := range o.Children {
		child.walk(folders, emit)
	}
}

// Write encodes the document to w with an XML declaration.
func (d *Document) Write(w io.Writer) error {
	if d.Version == "" {
		d.Version = Version
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode OPML: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("failed to finish OPML: %w", err)
	}
	return nil
}

// splitCategory accepts comma-separated labels and slash-delimited category
// paths ("/tech/go"), each path segment becoming a label.
func splitCategory(category string) []string {
	var out []string
	for _, part := range strings.Split(category, ",") {
		for _, seg := range strings.Split(part, "/") {
			if seg = strings.TrimSpace(seg); seg != "" {
				out = append(out, seg)
			}
		}
	}
	sort.Strings(out)
	return out
}
