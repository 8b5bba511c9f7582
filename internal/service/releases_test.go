package service

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerjest/animeAggregator/internal/anilist"
	"github.com/pokerjest/animeAggregator/pkg/rss"
)

func releaseFeed() []rss.ReleaseItem {
	hevc := frierenFeedItem("03")
	hevc.Title = "[Erai-raws] Sousou no Frieren - 03 [1080p CR WEB-DL HEVC AAC][MultiSub][us][br]"

	avc := frierenFeedItem("03")

	unknown := frierenFeedItem("01")
	unknown.Title = "[Erai-raws] Nobody Knows This Show - 01 [1080p]"

	unparsable := frierenFeedItem("")
	unparsable.Title = "Weekly batch notes"

	netflix := frierenFeedItem("14")
	netflix.Title = "[Erai-raws] Sousou no Frieren - 14 [1080p NETFLIX WEB-DL AVC AAC]"

	return []rss.ReleaseItem{hevc, avc, unknown, unparsable, netflix}
}

func newReleaseService(feed *fakeFeed, mapping *fakeMapping) *ReleaseService {
	resolver := &fakeResolver{media: map[string]anilist.Media{
		"Sousou no Frieren": {
			ID:          frierenID,
			Title:       anilist.MediaTitle{Romaji: lo.ToPtr("Sousou no Frieren")},
			Duration:    lo.ToPtr(24),
			BannerImage: lo.ToPtr("https://img/banner.jpg"),
			CoverImage:  anilist.CoverImage{ExtraLarge: lo.ToPtr("https://img/xl.jpg")},
		},
	}}
	return NewReleaseService(feed, resolver, mapping, "http://feed.test/rss", 2)
}

func TestLatestReleases_NonHEVC(t *testing.T) {
	svc := newReleaseService(&fakeFeed{items: releaseFeed()}, &fakeMapping{mapping: mappingOf(12, true)})

	page, err := svc.LatestReleases(context.Background(), 1, 10, false)
	require.NoError(t, err)

	assert.EqualValues(t, 4, page.Pagination.TotalItems)
	assert.Equal(t, 1, page.Pagination.TotalPages)
	require.Len(t, page.Data, 2)

	first := page.Data[0]
	assert.Equal(t, frierenID, first.CatalogID)
	assert.Equal(t, "https://img/xl.jpg", lo.FromPtr(first.CoverImage.ExtraLarge))
	assert.Equal(t, 3, first.Episode.EpisodeNumber)
	assert.Equal(t, "2024-01-05", lo.FromPtr(first.Episode.AirDate))
	assert.Nil(t, first.Episode.Release)
	assert.False(t, first.Torrent.IsHEVC)
	assert.Equal(t, "1080p", first.Torrent.Resolution)
	assert.Equal(t, 3, first.Torrent.Episode)

	// episode 14 is past the mapping; the nearest entry fills in but the
	// release keeps its own number
	second := page.Data[1]
	assert.Equal(t, 14, second.Episode.EpisodeNumber)
	assert.Equal(t, "14", second.Episode.Episode)
	assert.Equal(t, "Episode 12", lo.FromPtr(second.Episode.Title.En))
	assert.True(t, second.Torrent.HasNetflixSubs)
}

func TestLatestReleases_HEVC(t *testing.T) {
	svc := newReleaseService(&fakeFeed{items: releaseFeed()}, &fakeMapping{})

	page, err := svc.LatestReleases(context.Background(), 1, 10, true)
	require.NoError(t, err)

	require.Len(t, page.Data, 1)
	got := page.Data[0]
	assert.True(t, got.Torrent.IsHEVC)
	assert.Equal(t, []string{"us", "br"}, got.Torrent.Subtitles)
	assert.Equal(t, "2024-01-06", lo.FromPtr(got.Episode.AirDate))
	assert.Equal(t, 24, lo.FromPtr(got.Episode.Runtime))
}

func TestLatestReleases_HEVCFallsBackToAll(t *testing.T) {
	items := lo.Filter(releaseFeed(), func(it rss.ReleaseItem, i int) bool { return i != 0 })
	svc := newReleaseService(&fakeFeed{items: items}, &fakeMapping{})

	page, err := svc.LatestReleases(context.Background(), 1, 10, true)
	require.NoError(t, err)

	assert.EqualValues(t, 4, page.Pagination.TotalItems)
	assert.Len(t, page.Data, 2)
}

func TestLatestReleases_Pagination(t *testing.T) {
	svc := newReleaseService(&fakeFeed{items: releaseFeed()}, &fakeMapping{})

	page, err := svc.LatestReleases(context.Background(), 2, 3, false)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	require.Len(t, page.Data, 1)
	assert.Equal(t, 14, page.Data[0].Torrent.Episode)

	empty, err := svc.LatestReleases(context.Background(), 5, 3, false)
	require.NoError(t, err)
	assert.Empty(t, empty.Data)

	_, err = svc.LatestReleases(context.Background(), 0, 3, false)
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestLatestReleases_FeedDown(t *testing.T) {
	svc := newReleaseService(&fakeFeed{fail: true}, &fakeMapping{})

	page, err := svc.LatestReleases(context.Background(), 1, 10, false)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Zero(t, page.Pagination.TotalItems)
}
