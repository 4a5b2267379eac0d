package fingerprint

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"

	"github.com/pravoguard/contentguard/internal/taxonomy"
)

const (
	// Minimum combined word length for an n-gram to count as a semantic
	// token. Short n-grams are dominated by stopwords and add noise.
	minBigramLen  = 12
	minTrigramLen = 18
)

// Fingerprint is the structured, comparable representation of one post.
// All slices are sorted so identical input always yields identical output.
type Fingerprint struct {
	TitleHash      string
	BodyHash       string
	FullTextHash   string
	TopicKeywords  []string
	SemanticTokens []string
	LegalRefs      []string
	ContentType    string
}

// Extractor turns raw title/body text into a Fingerprint. It is pure:
// no I/O, no clock, no randomness.
type Extractor struct {
	tax *taxonomy.Taxonomy
}

// NewExtractor creates an extractor backed by the given taxonomy.
func NewExtractor(tax *taxonomy.Taxonomy) *Extractor {
	return &Extractor{tax: tax}
}

// Extract builds the fingerprint for a candidate post. Empty or
// whitespace-only input produces a valid fingerprint with empty sets.
func (e *Extractor) Extract(title, body, contentType string) Fingerprint {
	normTitle := Normalize(title)
	normBody := Normalize(body)
	normFull := Normalize(title + " " + body)
	rawFull := strings.ToLower(title + " " + body)

	return Fingerprint{
		TitleHash:      md5Hex(normTitle),
		BodyHash:       md5Hex(normBody),
		FullTextHash:   sha256Hex(normFull),
		TopicKeywords:  e.topicKeywords(normFull),
		SemanticTokens: e.semanticTokens(normFull),
		LegalRefs:      extractLegalRefs(rawFull),
		ContentType:    contentType,
	}
}

// Normalize lowercases text, strips everything except letters and digits,
// and collapses whitespace. Unicode-aware so non-Latin text survives.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func (e *Extractor) topicKeywords(normText string) []string {
	set := make(map[string]struct{})
	for category, stems := range e.tax.Categories {
		for _, stem := range stems {
			// Stems match as substrings: "dismissal" also catches "dismissals".
			if strings.Contains(normText, Normalize(stem)) {
				set[category+":"+Normalize(stem)] = struct{}{}
			}
		}
	}
	return sortedSet(set)
}

func (e *Extractor) semanticTokens(normText string) []string {
	set := make(map[string]struct{})

	for _, phrase := range e.tax.Phrases {
		if np := Normalize(phrase); np != "" && strings.Contains(normText, np) {
			set["phrase:"+np] = struct{}{}
		}
	}

	words := strings.Fields(normText)
	for i := 0; i+1 < len(words); i++ {
		bigram := words[i] + " " + words[i+1]
		if len(bigram) >= minBigramLen {
			set["bigram:"+bigram] = struct{}{}
		}
		if i+2 < len(words) {
			trigram := bigram + " " + words[i+2]
			if len(trigram) >= minTrigramLen {
				set["trigram:"+trigram] = struct{}{}
			}
		}
	}

	return sortedSet(set)
}

func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
