package collect

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const maxPerFeed = 20

// Entry is an item from any source that can become a claim.
type Entry struct {
	URL         string
	Title       string
	PublishedAt time.Time // zero when unknown
	Content     string
	Source      string
}

// Text is what gets classified: the headline followed by the summary.
func (e Entry) Text() string {
	if e.Content == "" {
		return e.Title
	}
	return e.Title + ". " + e.Content
}

// FeedConfig represents a single feed configuration.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedParser parses RSS/Atom feeds.
type FeedParser struct {
	feeds  []FeedConfig
	parser *gofeed.Parser
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(feeds []FeedConfig) *FeedParser {
	return &FeedParser{feeds: feeds, parser: gofeed.NewParser()}
}

// ParseAll parses all configured feeds and returns entries newer than cutoff.
// A feed that fails is logged and skipped.
func (fp *FeedParser) ParseAll(ctx context.Context, cutoff time.Time) []Entry {
	var all []Entry
	for _, fc := range fp.feeds {
		if ctx.Err() != nil {
			break
		}
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		entries, err := fp.parseFeed(ctx, fc.URL, name, cutoff)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", fc.URL, err)
			continue
		}
		all = append(all, entries...)
		log.Printf("Parsed %d entries from %s", len(entries), name)
	}
	return all
}

func (fp *FeedParser) parseFeed(ctx context.Context, feedURL, sourceName string, cutoff time.Time) ([]Entry, error) {
	feed, err := fp.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, item := range feed.Items {
		if len(entries) >= maxPerFeed {
			break
		}
		entry := parseItem(item, sourceName)
		if entry == nil {
			continue
		}
		if entry.PublishedAt.IsZero() || !entry.PublishedAt.Before(cutoff) {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func parseItem(item *gofeed.Item, source string) *Entry {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title := stripHTML(item.Title)
	if title == "" {
		return nil
	}

	var published time.Time
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	// Descriptions are summaries; full content bodies drown the headline.
	content := stripHTML(item.Description)
	if content == "" {
		content = stripHTML(item.Content)
	}

	return &Entry{
		URL:         itemURL,
		Title:       title,
		PublishedAt: published,
		Content:     content,
		Source:      source,
	}
}

// stripHTML returns the text of an HTML fragment with entities decoded and
// whitespace collapsed.
func stripHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
