package anizip

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString accepts a JSON string or number.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(string(b))
	return nil
}

// FlexInt accepts a JSON number or a numeric string.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	*f = FlexInt(int(n))
	return nil
}

type Titles struct {
	Ja   *string `json:"ja"`
	En   *string `json:"en"`
	De   *string `json:"de"`
	Fr   *string `json:"fr"`
	Ar   *string `json:"ar"`
	XJat *string `json:"x-jat"`
}

// Episode is one entry of the mapping's episodes object.
type Episode struct {
	TvdbShowID            *FlexInt    `json:"tvdbShowId"`
	TvdbID                *FlexInt    `json:"tvdbId"`
	SeasonNumber          *FlexInt    `json:"seasonNumber"`
	EpisodeNumber         *FlexInt    `json:"episodeNumber"`
	AbsoluteEpisodeNumber *FlexInt    `json:"absoluteEpisodeNumber"`
	Title                 Titles      `json:"title"`
	AirDate               *string     `json:"airDate"`
	AirDateUTC            *string     `json:"airDateUtc"`
	AirdateAlt            *string     `json:"airdate"`
	Runtime               *FlexInt    `json:"runtime"`
	Length                *FlexInt    `json:"length"`
	Overview              *string     `json:"overview"`
	Summary               *string     `json:"summary"`
	Image                 *string     `json:"image"`
	Episode               *FlexString `json:"episode"`
	AnidbEid              *FlexInt    `json:"anidbEid"`
	Rating                *FlexString `json:"rating"`
}

// Mapping is the episode table for one catalog id. Keys holds the episode
// keys with numeric keys first in ascending order, then the rest in
// document order.
type Mapping struct {
	CatalogID int
	Keys      []string
	Episodes  map[string]Episode
}

// Lookup returns the entry stored under key.
func (m *Mapping) Lookup(key string) (Episode, bool) {
	ep, ok := m.Episodes[key]
	return ep, ok
}

// Closest returns the entry for episode n, or the one whose numeric key is
// nearest to n when there is no exact key.
func (m *Mapping) Closest(n int) (Episode, string, bool) {
	key := strconv.Itoa(n)
	if ep, ok := m.Episodes[key]; ok {
		return ep, key, true
	}
	best, bestDiff := "", -1
	for _, k := range m.Keys {
		v, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		diff := v - n
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = k, diff
		}
	}
	if best == "" {
		return Episode{}, "", false
	}
	return m.Episodes[best], best, true
}

// FinalKey is the key that receives the finale marker: the last numeric key,
// or the last key when none is numeric.
func (m *Mapping) FinalKey() string {
	for i := len(m.Keys) - 1; i >= 0; i-- {
		if _, err := strconv.Atoi(m.Keys[i]); err == nil {
			return m.Keys[i]
		}
	}
	if len(m.Keys) == 0 {
		return ""
	}
	return m.Keys[len(m.Keys)-1]
}
