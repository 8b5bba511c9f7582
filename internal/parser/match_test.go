package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchTorrentName(t *testing.T) {
	cases := []struct {
		name  string
		title string
		ep    int
		want  bool
	}{
		{"[Group] Attack on Titan - ep12 [1080p]", "Attack on Titan", 12, true},
		{"[Group] Attack on Titan - ep13 [1080p]", "Attack on Titan", 12, false},
		{"[Group] Random Show - ep12", "Attack on Titan", 12, false},
		{"[Group] Attack on Titan [1080p]", "Attack on Titan", 12, false},
		{"[SubsPlease] Shingeki no Kyojin - 12 (1080p)", "Shingeki no Kyojin", 12, true},
		{"[SubsPlease] Shingeki no Kyojin - 012v2 (1080p)", "Shingeki no Kyojin", 12, true},
		{"Shingeki no Kyojin S01E12 1080p", "Shingeki no Kyojin", 12, true},
		{"Shingeki no Kyojin Episode 12", "Shingeki no Kyojin", 12, true},
		{"[Group] Shingeki no Kyojin - 112 [1080p]", "Shingeki no Kyojin", 12, false},
		{"[Group] Shingeki no Kyojin - 10 [1080p]", "Shingeki no Kyojin", 108, false},
		{"[Group] Sousou no Frieren - 05 [1080p]", "Sousou no Frieren Season 2 (TV)", 5, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, MatchTorrentName(c.title, c.ep, c.name))
		})
	}
}

func TestTitleTokens(t *testing.T) {
	assert.Equal(t, []string{"attack", "titan"}, TitleTokens("Attack on Titan"))
	assert.Equal(t, []string{"sousou", "frieren"}, TitleTokens("Sousou no Frieren Season 2"))
	assert.Empty(t, TitleTokens("K-On"))
}

func TestIsHEVC(t *testing.T) {
	assert.True(t, IsHEVC("[Group] Show - 01 [1080p HEVC]"))
	assert.True(t, IsHEVC("Show.S01E01.1080p.x265"))
	assert.True(t, IsHEVC("Show - 01 [H.265]"))
	assert.False(t, IsHEVC("Show - 01 [1080p AVC]"))
}

func TestNormalizeQueryTitle(t *testing.T) {
	assert.Equal(t, "Kimetsu no Yaiba", NormalizeQueryTitle("Kimetsu no Yaiba Season 3 (TV)"))
	assert.Equal(t, "Re Zero kara Hajimeru Isekai Seikatsu", NormalizeQueryTitle("Re:Zero kara Hajimeru Isekai Seikatsu"))
	assert.Equal(t, "Oshi no Ko", NormalizeQueryTitle("[Oshi no Ko] 2nd Season"))
}

func TestContainsTitle(t *testing.T) {
	assert.True(t, ContainsTitle("[Erai-raws] Sousou no Frieren - 28 [1080p]", "SOUSOU NO FRIEREN"))
	assert.True(t, ContainsTitle("[Group] Pokémon Horizons - 10", "Pokemon Horizons"))
	assert.False(t, ContainsTitle("[Group] Other Show - 10", "Sousou no Frieren"))
	assert.False(t, ContainsTitle("anything", ""))
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Dungeon Meshi", CleanTitle("[ANi] Dungeon Meshi (2024) Season 1"))
	assert.Equal(t, "[only tags]", CleanTitle("[only tags]"))
}
