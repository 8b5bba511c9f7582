package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerjest/animeAggregator/internal/anizip"
	"github.com/pokerjest/animeAggregator/internal/config"
	"github.com/pokerjest/animeAggregator/internal/model"
	"github.com/pokerjest/animeAggregator/pkg/rss"
)

func testConfig() *config.Config {
	return &config.Config{
		Feed:    config.FeedConfig{URL: "http://feed.test/rss"},
		Torrent: config.TorrentConfig{MaxConcurrent: 3},
	}
}

func frierenFeedItem(ep string) rss.ReleaseItem {
	return rss.ReleaseItem{
		Title:       "[Erai-raws] Sousou no Frieren - " + ep + " [1080p CR WEB-DL AVC AAC][MultiSub]",
		Link:        "https://example.test/" + ep + ".torrent",
		Description: "<p>Frieren meets <b>Fern</b>.</p>",
		PubDate:     "Sat, 06 Jan 2024 15:00:00 +0000",
		Published:   time.Date(2024, 1, 6, 15, 0, 0, 0, time.UTC),
		Size:        "1.4 GiB",
		SizeBytes:   1503238554,
		InfoHash:    "0123456789abcdef0123456789abcdef01234567",
		TitleJa:     "魔法使いの隠し事",
		Length:      "24",
	}
}

func newEpisodeService(mapping *fakeMapping, feed *fakeFeed, torrents *fakeTorrents) *EpisodeService {
	return NewEpisodeService(newFakeAnime(frieren()), mapping, feed, torrents, testConfig())
}

func TestAllEpisodes_TwelveWithoutTorrents(t *testing.T) {
	torrents := &fakeTorrents{}
	svc := newEpisodeService(&fakeMapping{mapping: mappingOf(12, true)}, &fakeFeed{}, torrents)

	out, err := svc.AllEpisodes(context.Background(), frierenID, false, false)
	require.NoError(t, err)

	require.Len(t, out.Episodes, 12)
	assert.Equal(t, frierenID, out.AnimeInfo.CatalogID)
	for i, ep := range out.Episodes {
		assert.Nil(t, ep.Torrents, "episode %d", i+1)
		assert.Equal(t, i+1, ep.EpisodeNumber)
		if i < 11 {
			assert.Nil(t, ep.FinaleType)
		}
	}
	require.NotNil(t, out.Episodes[11].FinaleType)
	assert.Equal(t, model.FinaleTypeFinal, *out.Episodes[11].FinaleType)
	assert.Zero(t, torrents.calls.Load())

	raw, err := json.Marshal(out.Episodes[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"torrents":null`)
}

func TestAllEpisodes_NoMappingIsEmpty(t *testing.T) {
	svc := newEpisodeService(&fakeMapping{}, &fakeFeed{}, &fakeTorrents{})

	out, err := svc.AllEpisodes(context.Background(), frierenID, true, false)
	require.NoError(t, err)

	assert.NotNil(t, out.AnimeInfo)
	assert.NotNil(t, out.Episodes)
	assert.Empty(t, out.Episodes)
}

func TestAllEpisodes_UnknownAnime(t *testing.T) {
	svc := newEpisodeService(&fakeMapping{mapping: mappingOf(3, true)}, &fakeFeed{}, &fakeTorrents{})

	_, err := svc.AllEpisodes(context.Background(), 42, false, false)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AllEpisodes(context.Background(), 0, false, false)
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestAllEpisodes_TorrentsDegradePerEpisode(t *testing.T) {
	torrents := &fakeTorrents{
		failOn: map[int]bool{2: true},
		byEp: func(ep int) []model.TorrentCandidate {
			return []model.TorrentCandidate{
				{Title: "[Group] Sousou no Frieren - 0" + string(rune('0'+ep)) + " [1080p HEVC]"},
				{Title: "[Group] Sousou no Frieren - 0" + string(rune('0'+ep)) + " [1080p AVC]"},
			}
		},
	}
	svc := newEpisodeService(&fakeMapping{mapping: mappingOf(3, true)}, &fakeFeed{}, torrents)

	all, err := svc.AllEpisodes(context.Background(), frierenID, true, false)
	require.NoError(t, err)
	require.Len(t, all.Episodes, 3)
	assert.Len(t, all.Episodes[0].Torrents, 2)
	assert.Nil(t, all.Episodes[1].Torrents)
	assert.Len(t, all.Episodes[2].Torrents, 2)
	assert.EqualValues(t, 3, torrents.calls.Load())

	hevc, err := svc.AllEpisodes(context.Background(), frierenID, true, true)
	require.NoError(t, err)
	require.Len(t, hevc.Episodes[0].Torrents, 1)
	assert.Contains(t, hevc.Episodes[0].Torrents[0].Title, "HEVC")
}

func TestEpisode_MappingWins(t *testing.T) {
	svc := newEpisodeService(
		&fakeMapping{mapping: mappingOf(12, true)},
		&fakeFeed{items: []rss.ReleaseItem{frierenFeedItem("04"), frierenFeedItem("03")}},
		&fakeTorrents{},
	)

	view, err := svc.Episode(context.Background(), frierenID, 3)
	require.NoError(t, err)

	require.NotNil(t, view.AirDate)
	assert.Equal(t, "2024-01-05", *view.AirDate)
	assert.Equal(t, "Episode 3", lo.FromPtr(view.Title.En))
	assert.Equal(t, 25, lo.FromPtr(view.Runtime))

	// gaps are filled from the feed
	assert.Equal(t, "魔法使いの隠し事", lo.FromPtr(view.Title.Ja))
	assert.Equal(t, "Frieren meets Fern.", lo.FromPtr(view.Overview))
	assert.Equal(t, 24, lo.FromPtr(view.Length))
	require.NotNil(t, view.Release)
	assert.Equal(t, "https://example.test/03.torrent", view.Release.Link)
	assert.Equal(t, "Erai-raws", view.Release.ReleaseGroup)
	assert.Nil(t, view.FinaleType)
	assert.NotNil(t, view.Torrents)
}

func TestEpisode_FeedFillsMissingAirDate(t *testing.T) {
	svc := newEpisodeService(
		&fakeMapping{mapping: mappingOf(12, false)},
		&fakeFeed{items: []rss.ReleaseItem{frierenFeedItem("03")}},
		&fakeTorrents{},
	)

	view, err := svc.Episode(context.Background(), frierenID, 3)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-06", lo.FromPtr(view.AirDate))
	assert.Equal(t, "2024-01-06T15:00:00Z", lo.FromPtr(view.AirDateUTC))
}

func TestEpisode_FeedFillsEmptyMappingFields(t *testing.T) {
	mapping := mappingOf(12, false)
	ep := mapping.Episodes["3"]
	ep.AirDate = lo.ToPtr("")
	ep.AirDateUTC = lo.ToPtr(" ")
	ep.Overview = lo.ToPtr("")
	ep.Title = anizip.Titles{En: lo.ToPtr(""), Ja: lo.ToPtr("")}
	mapping.Episodes["3"] = ep

	item := frierenFeedItem("03")
	svc := newEpisodeService(&fakeMapping{mapping: mapping}, &fakeFeed{items: []rss.ReleaseItem{item}}, &fakeTorrents{})

	view, err := svc.Episode(context.Background(), frierenID, 3)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-06", lo.FromPtr(view.AirDate))
	assert.Equal(t, "2024-01-06T15:00:00Z", lo.FromPtr(view.AirDateUTC))
	assert.Equal(t, "魔法使いの隠し事", lo.FromPtr(view.Title.Ja))
	assert.Equal(t, item.Title, lo.FromPtr(view.Title.En))
	assert.Equal(t, "Frieren meets Fern.", lo.FromPtr(view.Overview))
}

func TestEpisode_FeedOnly(t *testing.T) {
	item := frierenFeedItem("05")
	svc := newEpisodeService(&fakeMapping{}, &fakeFeed{items: []rss.ReleaseItem{item}}, &fakeTorrents{})

	view, err := svc.Episode(context.Background(), frierenID, 5)
	require.NoError(t, err)

	assert.Equal(t, "5", view.Episode)
	assert.Equal(t, item.Title, lo.FromPtr(view.Title.En))
	assert.Equal(t, "2024-01-06", lo.FromPtr(view.AirDate))
	assert.Equal(t, 24, lo.FromPtr(view.Runtime))
}

func TestEpisode_TorrentsOnly(t *testing.T) {
	torrents := &fakeTorrents{byEp: func(ep int) []model.TorrentCandidate {
		return []model.TorrentCandidate{{Title: "[Group] Sousou no Frieren - 07 [1080p]"}}
	}}
	svc := newEpisodeService(&fakeMapping{}, &fakeFeed{fail: true}, torrents)

	view, err := svc.Episode(context.Background(), frierenID, 7)
	require.NoError(t, err)

	assert.Len(t, view.Torrents, 1)
	assert.Nil(t, view.AirDate)
	assert.Nil(t, view.Release)
}

func TestEpisode_NothingMatches(t *testing.T) {
	svc := newEpisodeService(
		&fakeMapping{mapping: mappingOf(12, true)},
		&fakeFeed{items: []rss.ReleaseItem{frierenFeedItem("03")}},
		&fakeTorrents{},
	)

	_, err := svc.Episode(context.Background(), frierenID, 40)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Episode(context.Background(), 42, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Episode(context.Background(), frierenID, 0)
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestEpisode_FeedItemForOtherShowIgnored(t *testing.T) {
	other := frierenFeedItem("03")
	other.Title = "[Erai-raws] Dungeon Meshi - 03 [1080p]"
	svc := newEpisodeService(&fakeMapping{}, &fakeFeed{items: []rss.ReleaseItem{other}}, &fakeTorrents{})

	_, err := svc.Episode(context.Background(), frierenID, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseMinutes(t *testing.T) {
	assert.Equal(t, 24, lo.FromPtr(parseMinutes("24")))
	assert.Equal(t, 23, lo.FromPtr(parseMinutes("23 min")))
	assert.Equal(t, 84, lo.FromPtr(parseMinutes("01:24:10")))
	assert.Nil(t, parseMinutes(""))
	assert.Nil(t, parseMinutes("unknown"))
}
