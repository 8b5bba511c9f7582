package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/moistari/rls"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// ParsedRelease is the best-effort structure extracted from a release name.
// EpisodeNumber is nil when no episode marker could be recognised; callers
// treat that as "unmatched" and skip the item.
type ParsedRelease struct {
	AnimeTitle    string   `json:"animeTitle"`
	EpisodeNumber *int     `json:"episodeNumber"`
	Version       int      `json:"version,omitempty"`
	Resolution    string   `json:"resolution,omitempty"`
	ReleaseGroup  string   `json:"releaseGroup,omitempty"`
	SubtitleTags  []string `json:"subtitleTags"`
	VideoTerms    []string `json:"videoTerms"`
	AudioTerms    []string `json:"audioTerms"`
	Source        string   `json:"source,omitempty"`
	Extension     string   `json:"extension,omitempty"`
	IsHEVC        bool     `json:"isHevc"`
}

var (
	groupRegex      = regexp.MustCompile(`^\s*\[([^\]]+)\]`)
	resRegex        = regexp.MustCompile(`(?i)\b(2160p|1080p|720p|576p|480p|360p|4k|1920x1080|1280x720|3840x2160)\b`)
	videoRegex      = regexp.MustCompile(`(?i)\b(hevc|avc|h\.?265|h\.?264|x265|x264|av1|vp9|10-?bit|8-?bit|hi10p)\b`)
	audioRegex      = regexp.MustCompile(`(?i)\b(flac|aac(?:x[2-4])?|e?ac3|dts(?:-hd)?|truehd|opus|mp3|ddp?\d\.\d)\b`)
	sourceRegex     = regexp.MustCompile(`(?i)\b(web-?rip|web-?dl|bd-?rip|bluray|dvd-?rip|hdtv)\b`)
	subtitleRegex   = regexp.MustCompile(`\[([A-Za-z]{2}(?:-[A-Za-z]{2})?)\]`)
	bracketRegex    = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)
	sxeRegex        = regexp.MustCompile(`(?i)\bS(\d{1,2})\s*E(\d{1,4})(?:v(\d))?\b`)
	dashEpRegex     = regexp.MustCompile(`\s[-–]\s(\d{1,4})(?:v(\d))?(?:\s|\[|\(|$|END)`)
	epWordRegex     = regexp.MustCompile(`(?i)\b(?:episode|ep|e)\.?\s?(\d{1,4})(?:v(\d))?\b`)
	bracketEpRegex  = regexp.MustCompile(`\[(\d{1,4})(?:v(\d))?\]`)
	trailingNumRgx  = regexp.MustCompile(`[-#]\s*(\d{1,4})(?:v(\d))?\s*$`)
	extensionRegex  = regexp.MustCompile(`(?i)\.(mkv|mp4|avi|webm|m2ts|ts)$`)
	spaceRegex      = regexp.MustCompile(`\s+`)
	nonLanguageTags = map[string]struct{}{
		"hd": {}, "sd": {}, "tv": {}, "bd": {}, "cr": {}, "nf": {}, "jp": {},
		"v0": {}, "v1": {}, "v2": {}, "v3": {}, "v4": {},
		"torrent": {}, "airing": {}, "batch": {},
	}
)

// Parse extracts structured metadata from a raw release name such as
// "[Group] Show Name - 12 [1080p][AAC].mkv". It never panics; when the
// name cannot be understood every field is empty and EpisodeNumber is nil.
func Parse(raw string) (out ParsedRelease) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("title", raw).Msg("release parse failed")
			out = emptyRelease()
		}
	}()

	out = emptyRelease()

	name := strings.TrimSpace(raw)
	if name == "" {
		return out
	}
	if m := extensionRegex.FindStringSubmatch(name); len(m) > 1 {
		out.Extension = strings.ToLower(m[1])
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	normalized := strings.ReplaceAll(name, "_", " ")

	if m := groupRegex.FindStringSubmatch(normalized); len(m) > 1 {
		out.ReleaseGroup = strings.TrimSpace(m[1])
	}
	if m := resRegex.FindStringSubmatch(normalized); len(m) > 1 {
		out.Resolution = normalizeResolution(m[1])
	}
	if m := sourceRegex.FindStringSubmatch(normalized); len(m) > 1 {
		out.Source = m[1]
	}
	out.VideoTerms = collectTerms(videoRegex, normalized)
	out.AudioTerms = collectTerms(audioRegex, normalized)
	out.SubtitleTags = subtitleTags(normalized)

	titleEnd := -1
	if ep, version, idx, ok := findEpisode(normalized); ok {
		out.EpisodeNumber = &ep
		out.Version = version
		titleEnd = idx
	}

	// rls understands scene-style names the heuristics above miss.
	fillFromScene(&out, name)

	out.IsHEVC = IsHEVC(strings.Join(out.VideoTerms, " ")) || IsHEVC(normalized)
	out.AnimeTitle = guessTitle(normalized, titleEnd)
	if out.AnimeTitle == "" && out.EpisodeNumber == nil {
		return emptyRelease()
	}
	return out
}

func emptyRelease() ParsedRelease {
	return ParsedRelease{SubtitleTags: []string{}, VideoTerms: []string{}, AudioTerms: []string{}}
}

// findEpisode tries the known markers in order of reliability and returns
// the episode, optional version and the index where the title ends.
func findEpisode(s string) (episode, version, titleEnd int, ok bool) {
	if m := sxeRegex.FindStringSubmatchIndex(s); m != nil {
		return atoi(s[m[4]:m[5]]), optionalGroup(s, m, 6), m[0], true
	}
	if m := dashEpRegex.FindStringSubmatchIndex(s); m != nil {
		if n := atoi(s[m[2]:m[3]]); isLikelyEpisodeNumber(n) {
			return n, optionalGroup(s, m, 4), m[0], true
		}
	}

	stripped := bracketRegex.ReplaceAllStringFunc(s, func(b string) string {
		return strings.Repeat(" ", len(b))
	})
	if m := epWordRegex.FindStringSubmatchIndex(stripped); m != nil {
		if n := atoi(stripped[m[2]:m[3]]); isLikelyEpisodeNumber(n) {
			return n, optionalGroup(stripped, m, 4), m[0], true
		}
	}
	for _, m := range bracketEpRegex.FindAllStringSubmatchIndex(s, -1) {
		if n := atoi(s[m[2]:m[3]]); isLikelyEpisodeNumber(n) {
			return n, optionalGroup(s, m, 4), m[0], true
		}
	}
	trimmed := strings.TrimRight(stripped, " ")
	if m := trailingNumRgx.FindStringSubmatchIndex(trimmed); m != nil {
		if n := atoi(trimmed[m[2]:m[3]]); isLikelyEpisodeNumber(n) {
			return n, optionalGroup(trimmed, m, 4), m[0], true
		}
	}
	return 0, 0, -1, false
}

func fillFromScene(out *ParsedRelease, name string) {
	r := rls.ParseString(name)
	if out.Resolution == "" && r.Resolution != "" {
		out.Resolution = normalizeResolution(r.Resolution)
	}
	if out.ReleaseGroup == "" && r.Group != "" {
		out.ReleaseGroup = r.Group
	}
	out.VideoTerms = mergeTerms(out.VideoTerms, r.Codec)
	out.AudioTerms = mergeTerms(out.AudioTerms, r.Audio)
}

func guessTitle(s string, end int) string {
	if end >= 0 && end <= len(s) {
		s = s[:end]
	}
	s = groupRegex.ReplaceAllString(s, "")
	s = bracketRegex.ReplaceAllString(s, " ")
	s = resRegex.ReplaceAllString(s, " ")
	s = spaceRegex.ReplaceAllString(s, " ")
	return strings.Trim(strings.TrimSpace(s), "-–_. ")
}

func subtitleTags(s string) []string {
	tags := []string{}
	for _, m := range subtitleRegex.FindAllStringSubmatch(s, -1) {
		tag := strings.ToLower(m[1])
		if _, skip := nonLanguageTags[tag]; skip {
			continue
		}
		tags = append(tags, tag)
	}
	return lo.Uniq(tags)
}

func collectTerms(re *regexp.Regexp, s string) []string {
	terms := lo.Map(re.FindAllString(s, -1), func(t string, _ int) string {
		return strings.ToUpper(t)
	})
	return lo.Uniq(terms)
}

func mergeTerms(dst []string, extra []string) []string {
	for _, t := range extra {
		t = strings.ToUpper(t)
		if !lo.Contains(dst, t) {
			dst = append(dst, t)
		}
	}
	return dst
}

func normalizeResolution(r string) string {
	switch strings.ToLower(r) {
	case "1920x1080":
		return "1080p"
	case "1280x720":
		return "720p"
	case "3840x2160", "4k":
		return "2160p"
	}
	return strings.ToLower(r)
}

func isLikelyEpisodeNumber(num int) bool {
	if num <= 0 {
		return false
	}
	if num == 480 || num == 576 || num == 720 || num == 1080 || num == 2160 {
		return false
	}
	if num > 1900 && num < 2100 {
		return false
	}
	return num != 264 && num != 265
}

func optionalGroup(s string, m []int, i int) int {
	if len(m) <= i+1 || m[i] < 0 {
		return 0
	}
	return atoi(s[m[i]:m[i+1]])
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
