package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pravoguard/contentguard/internal/database"
	"github.com/pravoguard/contentguard/internal/engine"
)

// Builder composes markdown activity digests from the engine's state and
// persists them so the observability server can render history.
type Builder struct {
	db     *database.DB
	engine *engine.Engine
}

// NewBuilder creates a report builder.
func NewBuilder(db *database.DB, eng *engine.Engine) *Builder {
	return &Builder{db: db, engine: eng}
}

// Build composes the current activity digest as markdown.
func (b *Builder) Build() (string, error) {
	stats, err := b.engine.Statistics()
	if err != nil {
		return "", fmt.Errorf("gathering statistics: %w", err)
	}
	blocked, err := b.engine.ListBlockedTopics()
	if err != nil {
		return "", fmt.Errorf("listing blocked topics: %w", err)
	}

	var md strings.Builder
	md.WriteString("# Deduplication activity report\n\n")

	md.WriteString("## Registered content\n\n")
	fmt.Fprintf(&md, "- Fingerprints on record: **%d**\n", stats.TotalFingerprints)
	if stats.LastActivity != nil {
		fmt.Fprintf(&md, "- Last registration: %s\n", *stats.LastActivity)
	}
	if len(stats.ByProducer) > 0 {
		md.WriteString("\n| Producer | Posts |\n|---|---|\n")
		for _, producer := range sortedKeys(stats.ByProducer) {
			fmt.Fprintf(&md, "| %s | %d |\n", producer, stats.ByProducer[producer])
		}
	}

	md.WriteString("\n## Session counters\n\n")
	c := stats.Counters
	fmt.Fprintf(&md, "- Checks: %d, accepted: %d\n", c.Checks, c.Accepted)
	fmt.Fprintf(&md, "- Rejections: %d exact, %d near-duplicate, %d topic-blocked\n",
		c.ExactRejections, c.FuzzyRejections, c.TopicRejections)
	if c.StoreErrors > 0 {
		fmt.Fprintf(&md, "- Store errors: %d\n", c.StoreErrors)
	}

	md.WriteString("\n## Blocked topics\n\n")
	if len(blocked) == 0 {
		md.WriteString("None.\n")
	} else {
		md.WriteString("| Topic | Reason | Until | Conflicts |\n|---|---|---|---|\n")
		for _, bt := range blocked {
			until := "permanent"
			if bt.BlockedUntil != nil {
				until = *bt.BlockedUntil
			}
			fmt.Fprintf(&md, "| %s | %s | %s | %d |\n",
				bt.TopicOriginal, bt.Reason, until, bt.ConflictCount)
		}
	}

	return md.String(), nil
}

// Save builds the digest and stores it, returning the report ID.
func (b *Builder) Save() (int64, error) {
	body, err := b.Build()
	if err != nil {
		return 0, err
	}
	id, err := b.db.InsertReport(body)
	if err != nil {
		return 0, fmt.Errorf("storing report: %w", err)
	}
	return id, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
