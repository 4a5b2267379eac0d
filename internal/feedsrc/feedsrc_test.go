package feedsrc

import (
	"context"
	"testing"

	"github.com/mmcdole/gofeed"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello world", "hello world"},
		{"tags removed", "<p>hello <b>world</b></p>", "hello world"},
		{"entities decoded", "law &amp; order &nbsp; rules", "law & order rules"},
		{"whitespace collapsed", "  a \n\n b  ", "a b"},
		{"angle entities", "a &lt;b&gt; c", "a <b> c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripHTML(tt.in); got != tt.want {
				t.Errorf("stripHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractSourceName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.pravo.ru/feed/", "Pravo"},
		{"https://feeds.example.com/rss.xml", "Example"},
		{"https://legalnews.io/rss", "Legalnews"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		if got := extractSourceName(tt.url); got != tt.want {
			t.Errorf("extractSourceName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestItemToCandidate(t *testing.T) {
	q := NewQueue(nil, nil)

	c := q.itemToCandidate(&gofeed.Item{
		Title:   "  Court fines retailer  ",
		Content: "<p>The court ordered a full <b>refund</b>.</p>",
	}, "Pravo")
	if c == nil {
		t.Fatal("expected a candidate")
	}
	if c.Title != "Court fines retailer" {
		t.Errorf("unexpected title %q", c.Title)
	}
	if c.Body != "The court ordered a full refund." {
		t.Errorf("unexpected body %q", c.Body)
	}
	if c.Topic != c.Title || c.Source != "Pravo" {
		t.Errorf("unexpected candidate %+v", c)
	}

	if q.itemToCandidate(&gofeed.Item{Title: "   "}, "Pravo") != nil {
		t.Error("expected nil for empty title")
	}
}

func TestQueueExhaustedWithoutFeeds(t *testing.T) {
	q := NewQueue(nil, nil)
	c, err := q.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != nil {
		t.Errorf("expected exhausted queue, got %+v", c)
	}
}
