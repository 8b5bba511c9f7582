package model

// EpisodeTitles are the localized episode titles keyed like the mapping source.
type EpisodeTitles struct {
	Ja   *string `json:"ja"`
	En   *string `json:"en"`
	De   *string `json:"de"`
	Fr   *string `json:"fr"`
	Ar   *string `json:"ar"`
	XJat *string `json:"x-jat"`
}

// TorrentCandidate is one torrent index hit.
type TorrentCandidate struct {
	Title      string `json:"title"`
	MagnetLink string `json:"magnetLink"`
	Link       string `json:"link,omitempty"`
	InfoHash   string `json:"infoHash,omitempty"`
	Seeders    int    `json:"seeders"`
	Leechers   int    `json:"leechers"`
	Downloads  int    `json:"downloads"`
	Size       string `json:"size"`
	SizeBytes  uint64 `json:"sizeBytes"`
	Date       string `json:"date,omitempty"`
	Category   string `json:"category,omitempty"`
}

// Release is the feed-side contribution to an episode: where to get the
// file and what is in it.
type Release struct {
	Title        string   `json:"title"`
	Link         string   `json:"link"`
	Size         string   `json:"size,omitempty"`
	SizeBytes    uint64   `json:"sizeBytes,omitempty"`
	Published    string   `json:"published,omitempty"`
	InfoHash     string   `json:"infoHash,omitempty"`
	Resolution   string   `json:"resolution,omitempty"`
	ReleaseGroup string   `json:"releaseGroup,omitempty"`
	SubtitleTags []string `json:"subtitleTags"`
	IsHEVC       bool     `json:"isHevc"`
}

// EpisodeView is one fused episode. It is assembled per request and never
// stored.
type EpisodeView struct {
	CatalogID             int           `json:"idAnilist"`
	Episode               string        `json:"episode"`
	EpisodeNumber         int           `json:"episodeNumber"`
	AbsoluteEpisodeNumber *int          `json:"absoluteEpisodeNumber"`
	SeasonNumber          *int          `json:"seasonNumber"`
	TvdbShowID            *int          `json:"tvdbShowId"`
	TvdbID                *int          `json:"tvdbId"`
	AnidbEid              *int          `json:"anidbEid"`
	Length                *int          `json:"length"`
	Runtime               *int          `json:"runtime"`
	AirDate               *string       `json:"airDate"`
	AirDateUTC            *string       `json:"airDateUtc"`
	Title                 EpisodeTitles `json:"title"`
	Overview              *string       `json:"overview"`
	Summary               *string       `json:"summary"`
	Image                 *string       `json:"image"`
	Rating                *string       `json:"rating"`
	FinaleType            *string       `json:"finaleType"`

	Release  *Release           `json:"release,omitempty"`
	Torrents []TorrentCandidate `json:"torrents"`
}

// AnimeEpisodes is the full episode listing for one anime.
type AnimeEpisodes struct {
	AnimeInfo *AnimeRecord  `json:"animeInfo"`
	Episodes  []EpisodeView `json:"episodes"`
}

const FinaleTypeFinal = "final"
