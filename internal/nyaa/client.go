package nyaa

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/anacrolix/torrent/metainfo"
	"github.com/dustin/go-humanize"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/pokerjest/animeAggregator/internal/config"
	"github.com/pokerjest/animeAggregator/internal/metrics"
	"github.com/pokerjest/animeAggregator/internal/model"
	"github.com/pokerjest/animeAggregator/internal/parser"
	"github.com/pokerjest/animeAggregator/internal/upstream"
)

const source = "nyaa"

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Client struct {
	client     *resty.Client
	baseURL    string
	category   string
	filter     string
	maxResults int
	metrics    metrics.Recorder
}

func NewClient(cfg config.TorrentConfig, rec metrics.Recorder) *Client {
	c := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", userAgent)

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 15
	}
	return &Client{
		client:     c,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		category:   cfg.Category,
		filter:     cfg.Filter,
		maxResults: maxResults,
		metrics:    metrics.OrNop(rec),
	}
}

// Search looks up torrents for one episode. The index is queried by the
// normalized title alone; results are capped, then kept only when they
// match both a title token and the episode number.
func (c *Client) Search(ctx context.Context, title string, episode int) mo.Result[[]model.TorrentCandidate] {
	query := parser.NormalizeQueryTitle(title)
	if query == "" {
		return upstream.Fail[[]model.TorrentCandidate](upstream.NotFound(source, fmt.Errorf("empty query for %q", title)))
	}

	return mo.Try(func() ([]model.TorrentCandidate, error) {
		all, err := c.Query(ctx, query).Get()
		if err != nil {
			return nil, err
		}
		matched := lo.Filter(all, func(t model.TorrentCandidate, _ int) bool {
			return parser.MatchTorrentName(title, episode, t.Title)
		})
		log.Debug().Str("source", source).Str("query", query).Int("episode", episode).
			Int("results", len(all)).Int("matched", len(matched)).Msg("torrent search done")
		return matched, nil
	})
}

// Query returns the raw index results for q sorted by seeders, capped at
// the configured maximum.
func (c *Client) Query(ctx context.Context, q string) (res mo.Result[[]model.TorrentCandidate]) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveUpstream(source, upstream.Outcome(res.Error()), time.Since(start))
	}()

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"f": c.filter,
			"c": c.category,
			"q": q,
			"s": "seeders",
			"o": "desc",
		}).
		Get(c.baseURL + "/")
	if err != nil {
		log.Warn().Err(err).Str("source", source).Str("query", q).Msg("torrent index request failed")
		return upstream.Fail[[]model.TorrentCandidate](upstream.Unavailable(source, err))
	}
	if resp.IsError() {
		log.Warn().Str("source", source).Str("query", q).Int("status", resp.StatusCode()).Msg("torrent index returned error status")
		return upstream.Fail[[]model.TorrentCandidate](upstream.Unavailable(source, fmt.Errorf("status %s", resp.Status())))
	}

	results, err := c.parseResults(resp.Body())
	if err != nil {
		return upstream.Fail[[]model.TorrentCandidate](upstream.Malformed(source, err))
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Seeders > results[j].Seeders })
	if len(results) > c.maxResults {
		results = results[:c.maxResults]
	}
	return mo.Ok(results)
}

func (c *Client) parseResults(body []byte) ([]model.TorrentCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	results := []model.TorrentCandidate{}
	doc.Find("table.torrent-list tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 8 {
			return
		}

		titleLink := cells.Eq(1).Find("a").Not(".comments").Last()
		name := strings.TrimSpace(titleLink.AttrOr("title", ""))
		if name == "" {
			name = strings.TrimSpace(titleLink.Text())
		}
		if name == "" {
			return
		}

		magnet, _ := cells.Eq(2).Find(`a[href^="magnet:"]`).Attr("href")
		download, _ := cells.Eq(2).Find(`a[href$=".torrent"]`).Attr("href")
		category, _ := cells.Eq(0).Find("a").Attr("href")

		size := strings.TrimSpace(cells.Eq(3).Text())
		sizeBytes, _ := humanize.ParseBytes(size)

		date := strings.TrimSpace(cells.Eq(4).Text())
		if ts, ok := cells.Eq(4).Attr("data-timestamp"); ok {
			if sec, err := strconv.ParseInt(ts, 10, 64); err == nil {
				date = time.Unix(sec, 0).UTC().Format(time.RFC3339)
			}
		}

		results = append(results, model.TorrentCandidate{
			Title:      name,
			MagnetLink: magnet,
			Link:       c.absolute(download),
			InfoHash:   infoHash(magnet),
			Size:       size,
			SizeBytes:  sizeBytes,
			Date:       date,
			Category:   categoryCode(category),
			Seeders:    cellInt(cells.Eq(5)),
			Leechers:   cellInt(cells.Eq(6)),
			Downloads:  cellInt(cells.Eq(7)),
		})
	})
	return results, nil
}

func (c *Client) absolute(href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return c.baseURL + href
}

func infoHash(magnet string) string {
	if magnet == "" {
		return ""
	}
	m, err := metainfo.ParseMagnetUri(magnet)
	if err != nil {
		log.Debug().Err(err).Str("source", source).Msg("unparseable magnet link")
		return ""
	}
	return m.InfoHash.HexString()
}

func categoryCode(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("c")
}

func cellInt(s *goquery.Selection) int {
	n, _ := strconv.Atoi(strings.TrimSpace(strings.ReplaceAll(s.Text(), ",", "")))
	return n
}
