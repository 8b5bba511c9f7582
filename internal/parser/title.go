package parser

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	seasonMarkerRegex = regexp.MustCompile(`(?i)\b(?:season\s*\d+|\d+(?:st|nd|rd|th)\s+season|s\d{1,2}|part\s*\d+|cour\s*\d+)\b`)
	parenRegex        = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	roundParenRegex   = regexp.MustCompile(`\([^)]*\)`)
	nonWordRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// NormalizeText folds a title for comparison: NFKC, diacritics removed,
// lower-cased, whitespace collapsed.
func NormalizeText(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFKC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = norm.NFKC.String(s)
	}
	return strings.TrimSpace(spaceRegex.ReplaceAllString(strings.ToLower(folded), " "))
}

// CleanTitle strips bracketed tags and season markers to get a search-friendly title.
func CleanTitle(raw string) string {
	s := parenRegex.ReplaceAllString(raw, "")
	s = seasonMarkerRegex.ReplaceAllString(s, "")
	s = strings.Trim(strings.TrimSpace(spaceRegex.ReplaceAllString(s, " ")), "- ")
	if s == "" {
		return raw
	}
	return s
}

// NormalizeQueryTitle prepares a catalog title for a torrent index query:
// season markers, parenthetical annotations and punctuation are removed.
func NormalizeQueryTitle(title string) string {
	s := seasonMarkerRegex.ReplaceAllString(title, " ")
	s = roundParenRegex.ReplaceAllString(s, " ")
	s = nonWordRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}

// ContainsTitle reports whether text contains title after both are normalized.
// An empty title never matches.
func ContainsTitle(text, title string) bool {
	needle := NormalizeText(title)
	if needle == "" {
		return false
	}
	return strings.Contains(NormalizeText(text), needle)
}
