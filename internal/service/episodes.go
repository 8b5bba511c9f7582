package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pokerjest/animeAggregator/internal/anizip"
	"github.com/pokerjest/animeAggregator/internal/config"
	"github.com/pokerjest/animeAggregator/internal/model"
	"github.com/pokerjest/animeAggregator/internal/parser"
	"github.com/pokerjest/animeAggregator/pkg/rss"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"golang.org/x/sync/errgroup"
)

// AnimeFinder resolves a catalog id to a record, caching as needed.
type AnimeFinder interface {
	FindByID(ctx context.Context, id int) (*model.AnimeRecord, error)
}

// MappingSource returns the per-episode mapping table for a catalog id.
type MappingSource interface {
	EpisodesFor(ctx context.Context, catalogID int) mo.Result[*anizip.Mapping]
}

// FeedSource reads the release feed at url.
type FeedSource interface {
	Fetch(ctx context.Context, url string) mo.Result[[]rss.ReleaseItem]
}

// TorrentSource searches the torrent index for one episode.
type TorrentSource interface {
	Search(ctx context.Context, title string, episode int) mo.Result[[]model.TorrentCandidate]
}

const defaultTorrentFanOut = 4

// EpisodeService fuses the episode mapping, the release feed and the
// torrent index into per-episode views.
type EpisodeService struct {
	anime    AnimeFinder
	mapping  MappingSource
	feed     FeedSource
	torrents TorrentSource

	feedURL string
	fanOut  int
}

func NewEpisodeService(anime AnimeFinder, mapping MappingSource, feed FeedSource, torrents TorrentSource, cfg *config.Config) *EpisodeService {
	fanOut := cfg.Torrent.MaxConcurrent
	if fanOut <= 0 {
		fanOut = defaultTorrentFanOut
	}
	return &EpisodeService{
		anime:    anime,
		mapping:  mapping,
		feed:     feed,
		torrents: torrents,
		feedURL:  cfg.Feed.URL,
		fanOut:   fanOut,
	}
}

// AllEpisodes lists every episode known to the mapping for id. Without a
// mapping the list is empty. Torrent lookups run per episode and a failed
// lookup leaves that episode's torrents null.
func (s *EpisodeService) AllEpisodes(ctx context.Context, id int, includeTorrents, hevcOnly bool) (*model.AnimeEpisodes, error) {
	if id <= 0 {
		return nil, ErrBadInput
	}
	anime, err := s.anime.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &model.AnimeEpisodes{AnimeInfo: anime, Episodes: []model.EpisodeView{}}

	mapping, err := s.mapping.EpisodesFor(ctx, id).Get()
	if err != nil {
		log.Warn().Err(err).Int("id", id).Msg("no episode mapping, returning empty list")
		return out, nil
	}

	finalKey := mapping.FinalKey()
	views := make([]model.EpisodeView, 0, len(mapping.Keys))
	for _, key := range mapping.Keys {
		views = append(views, viewFromMapping(id, key, mapping.Episodes[key], key == finalKey))
	}

	if includeTorrents {
		s.attachTorrents(ctx, anime.Title.Preferred(), views, hevcOnly)
	}

	out.Episodes = views
	return out, nil
}

func (s *EpisodeService) attachTorrents(ctx context.Context, title string, views []model.EpisodeView, hevcOnly bool) {
	if title == "" {
		return
	}

	var g errgroup.Group
	g.SetLimit(s.fanOut)
	for i := range views {
		n := views[i].EpisodeNumber
		if n <= 0 {
			continue
		}
		g.Go(func() error {
			found, err := s.torrents.Search(ctx, title, n).Get()
			if err != nil {
				log.Debug().Err(err).Str("title", title).Int("episode", n).Msg("torrent search failed")
				return nil
			}
			if hevcOnly {
				found = lo.Filter(found, func(t model.TorrentCandidate, _ int) bool {
					return parser.IsHEVC(t.Title)
				})
			}
			views[i].Torrents = found
			return nil
		})
	}
	_ = g.Wait()
}

// Episode fuses a single episode. Mapping, feed and torrent lookups run
// together; each one may fail on its own. Mapping fields win and the feed
// only fills what the mapping left empty. ErrNotFound is returned when no
// source knows the episode.
func (s *EpisodeService) Episode(ctx context.Context, id, number int) (*model.EpisodeView, error) {
	if id <= 0 || number <= 0 {
		return nil, ErrBadInput
	}
	anime, err := s.anime.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	title := anime.Title.Preferred()

	var (
		mapping  *anizip.Mapping
		items    []rss.ReleaseItem
		torrents []model.TorrentCandidate
	)

	var g errgroup.Group
	g.Go(func() error {
		mapping = s.mapping.EpisodesFor(ctx, id).OrEmpty()
		return nil
	})
	g.Go(func() error {
		if s.feedURL != "" {
			items = s.feed.Fetch(ctx, s.feedURL).OrEmpty()
		}
		return nil
	})
	g.Go(func() error {
		if title != "" {
			torrents = s.torrents.Search(ctx, title, number).OrEmpty()
		}
		return nil
	})
	_ = g.Wait()

	key := strconv.Itoa(number)
	var (
		entry    anizip.Episode
		hasEntry bool
	)
	if mapping != nil {
		entry, hasEntry = mapping.Lookup(key)
	}
	item, hasItem := matchFeedItem(items, title, number)

	if !hasEntry && !hasItem && len(torrents) == 0 {
		return nil, ErrNotFound
	}

	view := model.EpisodeView{CatalogID: id, Episode: key, EpisodeNumber: number}
	if hasEntry {
		view = viewFromMapping(id, key, entry, mapping.FinalKey() == key)
	}
	if hasItem {
		mergeFeedItem(&view, item)
	}
	if view.Length == nil {
		view.Length = anime.Duration
	}
	if view.Runtime == nil {
		view.Runtime = anime.Duration
	}
	view.Torrents = torrents
	return &view, nil
}

// matchFeedItem returns the newest feed item for title and episode.
func matchFeedItem(items []rss.ReleaseItem, title string, episode int) (rss.ReleaseItem, bool) {
	return lo.Find(items, func(it rss.ReleaseItem) bool {
		if !parser.ContainsTitle(it.Title, title) {
			return false
		}
		ep := parser.Parse(it.Title).EpisodeNumber
		return ep != nil && *ep == episode
	})
}

func viewFromMapping(catalogID int, key string, ep anizip.Episode, final bool) model.EpisodeView {
	airDate, _ := lo.Coalesce(present(ep.AirDate), present(ep.AirdateAlt))
	v := model.EpisodeView{
		CatalogID:             catalogID,
		Episode:               key,
		EpisodeNumber:         episodeNumber(key, ep),
		AbsoluteEpisodeNumber: flexInt(ep.AbsoluteEpisodeNumber),
		SeasonNumber:          flexInt(ep.SeasonNumber),
		TvdbShowID:            flexInt(ep.TvdbShowID),
		TvdbID:                flexInt(ep.TvdbID),
		AnidbEid:              flexInt(ep.AnidbEid),
		Length:                flexInt(ep.Length),
		Runtime:               flexInt(ep.Runtime),
		AirDate:               airDate,
		AirDateUTC:            present(ep.AirDateUTC),
		Title:                 episodeTitles(ep.Title),
		Overview:              present(ep.Overview),
		Summary:               present(ep.Summary),
		Image:                 present(ep.Image),
		Rating:                flexString(ep.Rating),
	}
	if final {
		v.FinaleType = lo.ToPtr(model.FinaleTypeFinal)
	}
	return v
}

func mergeFeedItem(v *model.EpisodeView, it rss.ReleaseItem) {
	fill(&v.AirDate, it.AirDate())
	fill(&v.AirDateUTC, it.AirDateUTC())
	fill(&v.Title.Ja, it.TitleJa)
	fill(&v.Title.En, lo.Ternary(it.TitleEn != "", it.TitleEn, it.Title))
	fill(&v.Title.XJat, it.TitleXJat)
	fill(&v.Overview, stripHTML(it.Description))
	fill(&v.Image, it.Image)
	fill(&v.Rating, it.Rating)
	if v.AnidbEid == nil {
		if n, err := strconv.Atoi(it.AnidbEid); err == nil {
			v.AnidbEid = &n
		}
	}
	if v.Length == nil {
		v.Length = parseMinutes(it.Length)
	}
	v.Release = releaseFromItem(it, parser.Parse(it.Title))
}

func releaseFromItem(it rss.ReleaseItem, parsed parser.ParsedRelease) *model.Release {
	return &model.Release{
		Title:        it.Title,
		Link:         it.Link,
		Size:         it.Size,
		SizeBytes:    it.SizeBytes,
		Published:    it.AirDateUTC(),
		InfoHash:     it.InfoHash,
		Resolution:   lo.Ternary(it.Resolution != "", it.Resolution, parsed.Resolution),
		ReleaseGroup: parsed.ReleaseGroup,
		SubtitleTags: parsed.SubtitleTags,
		IsHEVC:       parsed.IsHEVC,
	}
}

// present treats blank mapping strings as missing so the feed can fill them.
func present(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	return p
}

func episodeTitles(t anizip.Titles) model.EpisodeTitles {
	return model.EpisodeTitles{
		Ja:   present(t.Ja),
		En:   present(t.En),
		De:   present(t.De),
		Fr:   present(t.Fr),
		Ar:   present(t.Ar),
		XJat: present(t.XJat),
	}
}

func fill(dst **string, value string) {
	if *dst != nil {
		return
	}
	if value = strings.TrimSpace(value); value != "" {
		*dst = &value
	}
}

func episodeNumber(key string, ep anizip.Episode) int {
	if n, err := strconv.Atoi(key); err == nil {
		return n
	}
	if ep.EpisodeNumber != nil {
		return int(*ep.EpisodeNumber)
	}
	return 0
}

func flexInt(v *anizip.FlexInt) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

func flexString(v *anizip.FlexString) *string {
	if v == nil || *v == "" {
		return nil
	}
	s := string(*v)
	return &s
}

var minutesRegex = regexp.MustCompile(`\d+`)

// parseMinutes reads a feed length such as "24", "24 min" or "00:24:00".
func parseMinutes(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if parts := strings.Split(s, ":"); len(parts) == 3 {
		h, errH := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		if errH == nil && errM == nil {
			return lo.ToPtr(h*60 + m)
		}
	}
	n, err := strconv.Atoi(minutesRegex.FindString(s))
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
