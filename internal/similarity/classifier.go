package similarity

import (
	"fmt"
	"strings"
	"time"

	"github.com/pravoguard/contentguard/internal/database"
	"github.com/pravoguard/contentguard/internal/fingerprint"
)

const (
	DefaultThreshold  = 0.7
	DefaultWindowDays = 30
	DefaultWindowRows = 100

	// Weighted contributions to the fuzzy score. Legal references carry an
	// extra 0.9 confidence multiplier: shared citations are the strongest
	// duplicate signal but citation extraction itself is pattern-based.
	keywordWeight  = 0.4
	tokenWeight    = 0.3
	legalRefWeight = 0.3 * 0.9

	topicBlockScore = 0.9
)

// Match is the classifier's verdict on one candidate fingerprint.
type Match struct {
	IsDuplicate  bool
	Exact        bool
	TopicBlocked bool
	Reason       string
	Score        float64
	MatchedTitle string // title hash of the colliding row, when one exists
}

// Classifier decides whether a fresh fingerprint duplicates recent content.
type Classifier struct {
	db         *database.DB
	threshold  float64
	windowDays int
	windowRows int
	now        func() time.Time
}

// NewClassifier creates a classifier over the given store. Zero values for
// threshold/window fall back to the defaults.
func NewClassifier(db *database.DB, threshold float64, windowDays, windowRows int) *Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if windowRows <= 0 {
		windowRows = DefaultWindowRows
	}
	return &Classifier{
		db:         db,
		threshold:  threshold,
		windowDays: windowDays,
		windowRows: windowRows,
		now:        time.Now,
	}
}

// SetNow overrides the clock; tests use it to exercise window expiry.
func (c *Classifier) SetNow(now func() time.Time) { c.now = now }

// Threshold returns the configured similarity threshold.
func (c *Classifier) Threshold() float64 { return c.threshold }

// Classify runs the three-stage duplicate check: exact hash, weighted
// Jaccard over the recent window, then blocked-topic overlap. The first
// positive stage short-circuits. producerID is informational only.
func (c *Classifier) Classify(fp fingerprint.Fingerprint, producerID string) (Match, error) {
	// Stage 1: exact normalized-text match, O(1) via the unique index.
	existing, err := c.db.GetByFullTextHash(fp.FullTextHash)
	if err != nil {
		return Match{}, fmt.Errorf("exact-hash lookup: %w", err)
	}
	if existing != nil {
		return Match{
			IsDuplicate:  true,
			Exact:        true,
			Score:        1.0,
			MatchedTitle: existing.TitleHash,
			Reason: fmt.Sprintf("exact duplicate of content registered by %s on %s",
				existing.ProducerID, deref(existing.CreatedAt)),
		}, nil
	}

	// Stage 2: fuzzy match against a bounded recent window. Only recent
	// repetition harms readers, so recall is traded for bounded latency.
	since := c.now().AddDate(0, 0, -c.windowDays)
	recent, err := c.db.GetRecentFingerprints(fp.ContentType, since, c.windowRows)
	if err != nil {
		return Match{}, fmt.Errorf("recent-window scan: %w", err)
	}
	for _, prev := range recent {
		score := weightedScore(fp, prev)
		if score > c.threshold {
			return Match{
				IsDuplicate:  true,
				Score:        score,
				MatchedTitle: prev.TitleHash,
				Reason: fmt.Sprintf("near-duplicate (%.0f%% keyword/token/citation overlap) of content registered by %s on %s",
					score*100, prev.ProducerID, deref(prev.CreatedAt)),
			}, nil
		}
	}

	// Stage 3: blocked-topic overlap.
	blocked, err := c.db.GetActiveBlockedTopics(c.now())
	if err != nil {
		return Match{}, fmt.Errorf("blocked-topic scan: %w", err)
	}
	for _, bt := range blocked {
		if topicOverlaps(fp.TopicKeywords, bt.TopicNormalized) {
			if err := c.db.IncrementConflict(bt.ID); err != nil {
				return Match{}, fmt.Errorf("bumping conflict count: %w", err)
			}
			return Match{
				IsDuplicate:  true,
				TopicBlocked: true,
				Score:        topicBlockScore,
				Reason:       fmt.Sprintf("topic %q is blocked: %s", bt.TopicOriginal, bt.Reason),
			}, nil
		}
	}

	return Match{}, nil
}

// weightedScore combines Jaccard similarities over the three extracted sets.
func weightedScore(a fingerprint.Fingerprint, b database.Fingerprint) float64 {
	return keywordWeight*jaccard(a.TopicKeywords, b.TopicKeywords) +
		tokenWeight*jaccard(a.SemanticTokens, b.SemanticTokens) +
		legalRefWeight*jaccard(a.LegalRefs, b.LegalRefs)
}

// jaccard computes |A∩B| / |A∪B| over two string sets. Two empty sets
// score 0, not 1: absence of evidence is not similarity.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	intersection := 0
	union := len(setA)
	seenB := make(map[string]struct{}, len(b))
	for _, s := range b {
		if _, dup := seenB[s]; dup {
			continue
		}
		seenB[s] = struct{}{}
		if _, ok := setA[s]; ok {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// topicOverlaps tests whether any significant word (>3 chars) of the
// candidate's keyword terms appears in the blocked topic's words.
func topicOverlaps(keywords []string, topicNormalized string) bool {
	topicWords := make(map[string]struct{})
	for _, w := range strings.Fields(topicNormalized) {
		if len(w) > 3 {
			topicWords[w] = struct{}{}
		}
	}
	if len(topicWords) == 0 {
		return false
	}
	for _, kw := range keywords {
		// Keywords carry a "category:" prefix; only the term matters here.
		term := kw
		if idx := strings.IndexByte(kw, ':'); idx >= 0 {
			term = kw[idx+1:]
		}
		for _, w := range strings.Fields(term) {
			if len(w) <= 3 {
				continue
			}
			if _, ok := topicWords[w]; ok {
				return true
			}
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return "unknown"
	}
	return *s
}
