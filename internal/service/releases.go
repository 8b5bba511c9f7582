package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/pokerjest/animeAggregator/internal/anilist"
	"github.com/pokerjest/animeAggregator/internal/anizip"
	"github.com/pokerjest/animeAggregator/internal/model"
	"github.com/pokerjest/animeAggregator/internal/parser"
	"github.com/pokerjest/animeAggregator/internal/store"
	"github.com/pokerjest/animeAggregator/pkg/rss"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"golang.org/x/sync/errgroup"
)

// TitleResolver finds the catalog entry that best matches a free-text title.
type TitleResolver interface {
	SearchOne(ctx context.Context, title string) mo.Result[*anilist.Media]
}

// FeedTorrent describes the file behind one feed item.
type FeedTorrent struct {
	Title          string   `json:"title"`
	Link           string   `json:"link"`
	PubDate        string   `json:"pubDate"`
	Resolution     string   `json:"resolution"`
	Size           string   `json:"size,omitempty"`
	SizeBytes      uint64   `json:"sizeBytes,omitempty"`
	InfoHash       string   `json:"infoHash,omitempty"`
	Subtitles      []string `json:"subtitles"`
	Category       string   `json:"category,omitempty"`
	FileName       string   `json:"fileName"`
	Episode        int      `json:"episode"`
	IsHEVC         bool     `json:"isHevc"`
	HasNetflixSubs bool     `json:"hasNetflixSubs"`
}

// LatestRelease is one feed item resolved against the catalog and mapping.
type LatestRelease struct {
	CatalogID   int               `json:"idAnilist"`
	Title       model.AnimeTitle  `json:"title"`
	CoverImage  model.CoverImage  `json:"coverImage"`
	BannerImage *string           `json:"bannerImage"`
	Duration    *int              `json:"duration"`
	Episode     model.EpisodeView `json:"episode"`
	Torrent     FeedTorrent       `json:"torrent"`
}

type LatestReleasesPage struct {
	Data       []LatestRelease  `json:"data"`
	Pagination store.Pagination `json:"pagination"`
}

type ReleaseService struct {
	feed    FeedSource
	catalog TitleResolver
	mapping MappingSource
	feedURL string
	fanOut  int
}

func NewReleaseService(feed FeedSource, catalog TitleResolver, mapping MappingSource, feedURL string, fanOut int) *ReleaseService {
	if fanOut <= 0 {
		fanOut = defaultTorrentFanOut
	}
	return &ReleaseService{feed: feed, catalog: catalog, mapping: mapping, feedURL: feedURL, fanOut: fanOut}
}

// LatestReleases pages through the release feed. hevcOnly keeps HEVC items
// (all items when the feed has none); otherwise HEVC items are dropped.
// Items that cannot be parsed or resolved in the catalog are skipped.
func (s *ReleaseService) LatestReleases(ctx context.Context, page, perPage int, hevcOnly bool) (*LatestReleasesPage, error) {
	if page <= 0 || perPage <= 0 {
		return nil, ErrBadInput
	}

	items, err := s.feed.Fetch(ctx, s.feedURL).Get()
	if err != nil {
		log.Warn().Err(err).Msg("release feed unavailable")
		items = nil
	}

	selected := lo.Filter(items, func(it rss.ReleaseItem, _ int) bool {
		return parser.IsHEVC(it.Title) == hevcOnly
	})
	if len(selected) == 0 && hevcOnly {
		selected = items
	}

	total := len(selected)
	pageItems := lo.Slice(selected, (page-1)*perPage, page*perPage)

	resolved := make([]*LatestRelease, len(pageItems))
	var g errgroup.Group
	g.SetLimit(s.fanOut)
	for i, it := range pageItems {
		g.Go(func() error {
			resolved[i] = s.resolve(ctx, it)
			return nil
		})
	}
	_ = g.Wait()

	totalPages := 0
	if total > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return &LatestReleasesPage{
		Data: lo.FilterMap(resolved, func(r *LatestRelease, _ int) (LatestRelease, bool) {
			if r == nil {
				return LatestRelease{}, false
			}
			return *r, true
		}),
		Pagination: store.Pagination{
			CurrentPage:  page,
			ItemsPerPage: perPage,
			TotalItems:   int64(total),
			TotalPages:   totalPages,
		},
	}, nil
}

func (s *ReleaseService) resolve(ctx context.Context, it rss.ReleaseItem) *LatestRelease {
	parsed := parser.Parse(it.Title)
	if parsed.AnimeTitle == "" || parsed.EpisodeNumber == nil {
		log.Debug().Str("title", it.Title).Msg("skipping unparsable release")
		return nil
	}
	number := *parsed.EpisodeNumber

	media, err := s.catalog.SearchOne(ctx, parsed.AnimeTitle).Get()
	if err != nil {
		log.Debug().Err(err).Str("title", parsed.AnimeTitle).Msg("release not in catalog")
		return nil
	}
	record := anilist.ToRecord(*media)

	view := model.EpisodeView{
		CatalogID:             record.CatalogID,
		Episode:               strconv.Itoa(number),
		EpisodeNumber:         number,
		AbsoluteEpisodeNumber: lo.ToPtr(number),
	}
	if mapping, err := s.mapping.EpisodesFor(ctx, record.CatalogID).Get(); err == nil {
		if entry, _, ok := mapping.Closest(number); ok {
			view = closestView(record.CatalogID, number, entry)
		}
	}
	mergeFeedItem(&view, it)
	view.Release = nil
	if view.Runtime == nil {
		view.Runtime = record.Duration
	}
	if view.Length == nil {
		view.Length = record.Duration
	}

	return &LatestRelease{
		CatalogID:   record.CatalogID,
		Title:       record.Title,
		CoverImage:  record.CoverImage.Data(),
		BannerImage: record.BannerImage,
		Duration:    record.Duration,
		Episode:     view,
		Torrent:     feedTorrent(it, parsed, number),
	}
}

// closestView builds the view from a possibly approximate mapping entry but
// keeps the episode identity of the release.
func closestView(catalogID, number int, entry anizip.Episode) model.EpisodeView {
	view := viewFromMapping(catalogID, strconv.Itoa(number), entry, false)
	view.EpisodeNumber = number
	view.AbsoluteEpisodeNumber = lo.ToPtr(number)
	return view
}

func feedTorrent(it rss.ReleaseItem, parsed parser.ParsedRelease, number int) FeedTorrent {
	resolution := lo.Ternary(parsed.Resolution != "", parsed.Resolution, it.Resolution)
	if resolution == "" {
		resolution = "1080p"
	}
	return FeedTorrent{
		Title:          parsed.AnimeTitle,
		Link:           it.Link,
		PubDate:        it.PubDate,
		Resolution:     resolution,
		Size:           it.Size,
		SizeBytes:      it.SizeBytes,
		InfoHash:       it.InfoHash,
		Subtitles:      parsed.SubtitleTags,
		Category:       it.Category,
		FileName:       fileName(parsed, number, resolution),
		Episode:        number,
		IsHEVC:         parsed.IsHEVC,
		HasNetflixSubs: strings.Contains(strings.ToLower(it.Title), "netflix"),
	}
}

func fileName(parsed parser.ParsedRelease, number int, resolution string) string {
	var b strings.Builder
	b.WriteString(parsed.AnimeTitle)
	b.WriteString(" - ")
	b.WriteString(strconv.Itoa(number))
	b.WriteString(" [")
	b.WriteString(resolution)
	if len(parsed.VideoTerms) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(parsed.VideoTerms, " "))
	}
	b.WriteString("]")
	ext := lo.Ternary(parsed.Extension != "", parsed.Extension, "mkv")
	b.WriteString(".")
	b.WriteString(ext)
	return b.String()
}
