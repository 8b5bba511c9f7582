package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// MinTitleTokenLen is the shortest title word that counts as a match signal.
const MinTitleTokenLen = 4

var hevcTerms = []string{"hevc", "x265", "h265", "h.265"}

// IsHEVC reports whether a name carries an HEVC/x265 codec marker.
func IsHEVC(name string) bool {
	lower := strings.ToLower(name)
	for _, term := range hevcTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// TitleTokens returns the normalized words of title longer than three characters.
func TitleTokens(title string) []string {
	var tokens []string
	for _, w := range strings.Fields(NormalizeText(NormalizeQueryTitle(title))) {
		if len([]rune(w)) >= MinTitleTokenLen {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// MatchesTitle reports whether name contains at least one qualifying title token.
func MatchesTitle(title, name string) bool {
	normalized := NormalizeText(name)
	for _, token := range TitleTokens(title) {
		if strings.Contains(normalized, token) {
			return true
		}
	}
	return false
}

// MatchesEpisode reports whether name refers to episode under one of the
// usual surface forms: e12, ep12, episode 12 or a standalone 12 (zero
// padding and a vN revision suffix are accepted).
func MatchesEpisode(episode int, name string) bool {
	if episode <= 0 {
		return false
	}
	return episodePattern(episode).MatchString(strings.ToLower(name))
}

// MatchTorrentName is the two-stage filter applied to torrent index results.
// Both the title and the episode checks must pass.
func MatchTorrentName(title string, episode int, name string) bool {
	return MatchesTitle(title, name) && MatchesEpisode(episode, name)
}

func episodePattern(episode int) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(
		`(?:\b(?:s\d{1,2})?(?:e|ep|episode\s?)0*%d(?:v\d)?\b)|(?:(?:^|[^\w.])0*%d(?:v\d)?(?:[^\w.]|$))`,
		episode, episode,
	))
}
