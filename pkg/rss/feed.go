package rss

import (
	"encoding/xml"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type RSS struct {
	Channel Channel `xml:"channel"`
}

type Channel struct {
	Title string `xml:"title"`
	Items []Item `xml:"item"`
}

// Item is one <item> of a release feed. Namespaced extension elements
// (erai:, nyaa:) are matched by local name.
type Item struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	PubDate     string    `xml:"pubDate"`
	GUID        string    `xml:"guid"`
	Enclosure   Enclosure `xml:"enclosure"`

	Size      string `xml:"size"`
	InfoHash  string `xml:"infohash"`
	InfoHash2 string `xml:"infoHash"`
	Subtitles string `xml:"subtitles"`
	Category  string `xml:"category"`
	Res       string `xml:"resolution"`
	TitleJa   string `xml:"title-ja"`
	TitleEn   string `xml:"title-en"`
	TitleXJat string `xml:"title-x-jat"`
	Length    string `xml:"length"`
	AnidbEid  string `xml:"anidbEid"`
	Rating    string `xml:"rating"`
	Image     string `xml:"image"`
	Seeders   int    `xml:"seeders"`
	Leechers  int    `xml:"leechers"`
}

type Enclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length int64  `xml:"length,attr"`
}

// ReleaseItem is a normalized feed entry.
type ReleaseItem struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description,omitempty"`
	PubDate     string    `json:"pubDate"`
	Published   time.Time `json:"published"`
	Size        string    `json:"size,omitempty"`
	SizeBytes   uint64    `json:"sizeBytes,omitempty"`
	InfoHash    string    `json:"infoHash,omitempty"`
	Subtitles   string    `json:"subtitles,omitempty"`
	Category    string    `json:"category,omitempty"`
	Resolution  string    `json:"resolution,omitempty"`
	TitleJa     string    `json:"titleJa,omitempty"`
	TitleEn     string    `json:"titleEn,omitempty"`
	TitleXJat   string    `json:"titleXJat,omitempty"`
	Length      string    `json:"length,omitempty"`
	AnidbEid    string    `json:"anidbEid,omitempty"`
	Rating      string    `json:"rating,omitempty"`
	Image       string    `json:"image,omitempty"`
}

var (
	descSizeRegex = regexp.MustCompile(`(?i)Size:\s*([0-9.]+\s*[KMGT]i?B)`)
	descHashRegex = regexp.MustCompile(`(?i)Hash:\s*([a-f0-9]{40})`)
	pubDateLayouts = []string{
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		time.RFC3339,
	}
)

// Decode parses a feed document. A channel with a single <item> yields a
// one-element slice like any other.
func Decode(data []byte) ([]ReleaseItem, error) {
	var doc RSS
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	items := make([]ReleaseItem, 0, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		items = append(items, normalize(it))
	}
	return items, nil
}

func normalize(it Item) ReleaseItem {
	link := strings.TrimSpace(it.Link)
	if link == "" {
		link = it.Enclosure.URL
	}

	size := strings.TrimSpace(it.Size)
	if size == "" {
		if m := descSizeRegex.FindStringSubmatch(it.Description); len(m) > 1 {
			size = m[1]
		}
	}
	var sizeBytes uint64
	if size != "" {
		sizeBytes, _ = humanize.ParseBytes(size)
	} else if it.Enclosure.Length > 0 {
		sizeBytes = uint64(it.Enclosure.Length)
		size = humanize.IBytes(sizeBytes)
	}

	hash := strings.ToLower(strings.TrimSpace(it.InfoHash))
	if hash == "" {
		hash = strings.ToLower(strings.TrimSpace(it.InfoHash2))
	}
	if hash == "" {
		if m := descHashRegex.FindStringSubmatch(it.Description); len(m) > 1 {
			hash = strings.ToLower(m[1])
		}
	}

	return ReleaseItem{
		Title:       strings.TrimSpace(it.Title),
		Link:        link,
		Description: it.Description,
		PubDate:     strings.TrimSpace(it.PubDate),
		Published:   ParsePubDate(it.PubDate),
		Size:        size,
		SizeBytes:   sizeBytes,
		InfoHash:    hash,
		Subtitles:   strings.TrimSpace(it.Subtitles),
		Category:    strings.TrimSpace(it.Category),
		Resolution:  strings.TrimSpace(it.Res),
		TitleJa:     strings.TrimSpace(it.TitleJa),
		TitleEn:     strings.TrimSpace(it.TitleEn),
		TitleXJat:   strings.TrimSpace(it.TitleXJat),
		Length:      strings.TrimSpace(it.Length),
		AnidbEid:    strings.TrimSpace(it.AnidbEid),
		Rating:      strings.TrimSpace(it.Rating),
		Image:       strings.TrimSpace(it.Image),
	}
}

// ParsePubDate accepts the RFC 822 variants feeds use in the wild and
// returns the zero time when none fits.
func ParsePubDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// AirDate is the publish date formatted as YYYY-MM-DD in UTC, or empty.
func (r ReleaseItem) AirDate() string {
	if r.Published.IsZero() {
		return ""
	}
	return r.Published.UTC().Format("2006-01-02")
}

// AirDateUTC is the publish time in RFC 3339, or empty.
func (r ReleaseItem) AirDateUTC() string {
	if r.Published.IsZero() {
		return ""
	}
	return r.Published.UTC().Format(time.RFC3339)
}
