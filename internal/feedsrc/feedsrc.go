package feedsrc

import (
	"context"
	"log"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/pravoguard/contentguard/internal/config"
	"github.com/pravoguard/contentguard/internal/producer"
)

const (
	maxPerFeed = 20
	// Entries whose feed body is shorter than this get a full-page fetch.
	bodyFloor = 200
)

// Queue is a producer.Source backed by RSS/Atom feeds: each feed entry
// becomes one candidate post. It exists as a realistic harness for the
// validation gateway; it makes no reliability promises.
type Queue struct {
	feeds      []config.Feed
	fetcher    *BodyFetcher
	candidates []producer.Candidate
	parsed     bool
}

// NewQueue creates a feed-backed candidate queue. A nil fetcher disables
// body enrichment.
func NewQueue(feeds []config.Feed, fetcher *BodyFetcher) *Queue {
	return &Queue{feeds: feeds, fetcher: fetcher}
}

// Next pops the next candidate, parsing all feeds on first use.
// Returns (nil, nil) when the queue is exhausted.
func (q *Queue) Next(ctx context.Context) (*producer.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !q.parsed {
		q.parseAll(ctx)
		q.parsed = true
	}
	if len(q.candidates) == 0 {
		return nil, nil
	}
	c := q.candidates[0]
	q.candidates = q.candidates[1:]
	return &c, nil
}

func (q *Queue) parseAll(ctx context.Context) {
	parser := gofeed.NewParser()
	for _, fc := range q.feeds {
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		feed, err := parser.ParseURLWithContext(fc.URL, ctx)
		if err != nil {
			log.Printf("failed to parse feed %s: %v", fc.URL, err)
			continue
		}

		count := 0
		for _, item := range feed.Items {
			if count >= maxPerFeed {
				break
			}
			c := q.itemToCandidate(item, name)
			if c == nil {
				continue
			}
			q.candidates = append(q.candidates, *c)
			count++
		}
		log.Printf("queued %d candidates from %s", count, name)
	}
}

func (q *Queue) itemToCandidate(item *gofeed.Item, source string) *producer.Candidate {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	var body string
	if item.Content != "" {
		body = stripHTML(item.Content)
	} else if item.Description != "" {
		body = stripHTML(item.Description)
	}

	if len(body) < bodyFloor && q.fetcher != nil && item.Link != "" {
		if full := q.fetcher.Fetch(item.Link); full != "" {
			body = full
		}
	}

	return &producer.Candidate{
		Title:  title,
		Body:   body,
		Topic:  title,
		Source: source,
	}
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
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
	if host == "" {
		return feedURL
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
