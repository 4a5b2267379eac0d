package fingerprint

import (
	"regexp"
	"strings"
)

// Citation patterns run against raw lowercased text, before punctuation is
// stripped, because case and law numbers depend on their separators.
// \b is an ASCII word boundary in Go regexp and never fires next to
// Cyrillic letters, so the Cyrillic alternatives avoid it.
var (
	// "art. 81", "article 12.5", "ст. 81", "статья 105"
	articleRe = regexp.MustCompile(`(?:\bart(?:icle)?\.?|статья|статьи|ст\.)\s*(\d+(?:\.\d+)?)`)

	// "A40-12345/2024", "дело № 2-123/2024", "case no. 33-456/2023"
	caseRe = regexp.MustCompile(`(?:№|\bno\.?)?\s*([aа]?\d{1,3}-\d{1,6}/\d{4})\b`)

	// "law 230-fz", "230-фз", "ФЗ-230"
	lawRe    = regexp.MustCompile(`\b(\d{1,4})-(?:fz\b|фз)`)
	lawRevRe = regexp.MustCompile(`(?:\bfz|фз)-(\d{1,4})\b`)
)

// extractLegalRefs pulls statute, case and law citations out of lowercased
// text and normalizes each to a canonical "kind:value" string.
func extractLegalRefs(rawLower string) []string {
	set := make(map[string]struct{})

	for _, m := range articleRe.FindAllStringSubmatch(rawLower, -1) {
		set["art:"+m[1]] = struct{}{}
	}
	for _, m := range caseRe.FindAllStringSubmatch(rawLower, -1) {
		set["case:"+normalizeCaseNo(m[1])] = struct{}{}
	}
	for _, m := range lawRe.FindAllStringSubmatch(rawLower, -1) {
		set["law:"+m[1]+"-fz"] = struct{}{}
	}
	for _, m := range lawRevRe.FindAllStringSubmatch(rawLower, -1) {
		set["law:"+m[1]+"-fz"] = struct{}{}
	}

	return sortedSet(set)
}

// normalizeCaseNo maps the Cyrillic court prefix to its Latin lookalike so
// the same case cited in either script produces one canonical string.
func normalizeCaseNo(caseNo string) string {
	return strings.ReplaceAll(caseNo, "а", "a")
}
