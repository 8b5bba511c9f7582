package anilist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"golang.org/x/sync/semaphore"

	"github.com/pokerjest/animeAggregator/internal/config"
	"github.com/pokerjest/animeAggregator/internal/metrics"
	"github.com/pokerjest/animeAggregator/internal/upstream"
)

const source = "anilist"

// MaxPerPage is the largest page AniList serves.
const MaxPerPage = 50

type Client struct {
	client   *resty.Client
	endpoint string
	sem      *semaphore.Weighted
	retries  uint
	delay    time.Duration
	metrics  metrics.Recorder
}

func NewClient(cfg config.AniListConfig, rec metrics.Recorder) *Client {
	c := resty.New()
	c.SetTimeout(cfg.Timeout)
	if cfg.Proxy != "" {
		c.SetProxy(cfg.Proxy)
	}
	if cfg.Token != "" {
		c.SetHeader("Authorization", "Bearer "+cfg.Token)
	}
	c.SetHeader("Content-Type", "application/json")
	c.SetHeader("Accept", "application/json")

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	retries := cfg.Retries
	if retries == 0 {
		retries = 1
	}

	return &Client{
		client:   c,
		endpoint: cfg.Endpoint,
		sem:      semaphore.NewWeighted(maxConcurrent),
		retries:  retries,
		delay:    500 * time.Millisecond,
		metrics:  metrics.OrNop(rec),
	}
}

// execute posts one GraphQL operation and decodes its data object. Every
// catalog call goes through here: concurrency gate, retries on
// unavailability, status and GraphQL error checks.
func execute[T any](ctx context.Context, c *Client, op, query string, vars map[string]any) (res mo.Result[*T]) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveUpstream(source, upstream.Outcome(res.Error()), time.Since(start))
		if res.IsError() {
			log.Warn().Err(res.Error()).Str("source", source).Str("op", op).Interface("vars", vars).Msg("catalog query failed")
		}
	}()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return upstream.Fail[*T](upstream.Unavailable(source, err))
	}
	defer c.sem.Release(1)

	payload := map[string]any{
		"query":     query,
		"variables": vars,
	}

	var data *T
	err := retry.Do(
		func() error {
			d, ferr := post[T](ctx, c, payload)
			if ferr != nil {
				return ferr
			}
			data = d
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.retries),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return upstream.KindOf(err) == upstream.KindUnavailable
		}),
	)
	if err != nil {
		var fe *upstream.FetchError
		if !errors.As(err, &fe) {
			fe = upstream.Unavailable(source, err)
		}
		return upstream.Fail[*T](fe)
	}

	log.Debug().Str("source", source).Str("op", op).Dur("elapsed", time.Since(start)).Msg("catalog query ok")
	return mo.Ok(data)
}

func post[T any](ctx context.Context, c *Client, payload map[string]any) (*T, *upstream.FetchError) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.endpoint)
	if err != nil {
		return nil, upstream.Unavailable(source, err)
	}

	var result envelope[T]
	decodeErr := json.Unmarshal(resp.Body(), &result)

	if resp.IsError() {
		if resp.StatusCode() == http.StatusNotFound {
			return nil, upstream.NotFound(source, fmt.Errorf("status %s", resp.Status()))
		}
		if resp.StatusCode() >= 500 || resp.StatusCode() == http.StatusTooManyRequests {
			return nil, upstream.Unavailable(source, fmt.Errorf("status %s", resp.Status()))
		}
		return nil, upstream.Malformed(source, fmt.Errorf("status %s: %s", resp.Status(), errorMessages(result.Errors)))
	}
	if decodeErr != nil {
		return nil, upstream.Malformed(source, decodeErr)
	}
	if len(result.Errors) > 0 {
		if lo.SomeBy(result.Errors, func(e graphQLError) bool { return e.Status == http.StatusNotFound }) {
			return nil, upstream.NotFound(source, fmt.Errorf("%s", errorMessages(result.Errors)))
		}
		return nil, upstream.Malformed(source, fmt.Errorf("graphql: %s", errorMessages(result.Errors)))
	}
	if result.Data == nil {
		return nil, upstream.Malformed(source, fmt.Errorf("response has no data"))
	}
	return result.Data, nil
}

func errorMessages(errs []graphQLError) string {
	return strings.Join(lo.Map(errs, func(e graphQLError, _ int) string { return e.Message }), "; ")
}

// ByID fetches one anime. A missing id is reported as not found.
func (c *Client) ByID(ctx context.Context, id int) mo.Result[*Media] {
	res := execute[mediaData](ctx, c, "byId", queryByID, map[string]any{"id": id})
	return mo.Try(func() (*Media, error) {
		data, err := res.Get()
		if err != nil {
			return nil, err
		}
		if data.Media == nil {
			return nil, upstream.NotFound(source, fmt.Errorf("media %d", id))
		}
		return data.Media, nil
	})
}

// Search queries the catalog by title with optional status and genre filters.
func (c *Client) Search(ctx context.Context, title string, filter SearchFilter) mo.Result[MediaPage] {
	vars := map[string]any{
		"search":  title,
		"page":    max(filter.Page, 1),
		"perPage": clampPerPage(filter.PerPage),
	}
	if filter.Status != "" {
		vars["status"] = strings.ToUpper(filter.Status)
	}
	if filter.Genre != "" {
		vars["genre"] = filter.Genre
	}
	return pageResult(execute[pageData](ctx, c, "search", querySearch, vars))
}

// SearchOne returns the best match for title.
func (c *Client) SearchOne(ctx context.Context, title string) mo.Result[*Media] {
	page := c.Search(ctx, title, SearchFilter{Page: 1, PerPage: 1})
	return mo.Try(func() (*Media, error) {
		p, err := page.Get()
		if err != nil {
			return nil, err
		}
		if len(p.Media) == 0 {
			return nil, upstream.NotFound(source, fmt.Errorf("no match for %q", title))
		}
		return &p.Media[0], nil
	})
}

func (c *Client) ByGenre(ctx context.Context, genre string, limit int) mo.Result[[]Media] {
	vars := map[string]any{"genre": genre, "perPage": clampPerPage(limit)}
	return mediaList(pageResult(execute[pageData](ctx, c, "byGenre", queryByGenre, vars)))
}

func (c *Client) Trending(ctx context.Context, page, perPage int) mo.Result[[]Media] {
	vars := map[string]any{"page": max(page, 1), "perPage": clampPerPage(perPage)}
	return mediaList(pageResult(execute[pageData](ctx, c, "trending", queryTrending, vars)))
}

func (c *Client) Upcoming(ctx context.Context, limit int) mo.Result[[]Media] {
	vars := map[string]any{"perPage": clampPerPage(limit)}
	return mediaList(pageResult(execute[pageData](ctx, c, "upcoming", queryUpcoming, vars)))
}

// Seasonal lists the most popular anime of a season (WINTER, SPRING, SUMMER, FALL).
func (c *Client) Seasonal(ctx context.Context, season string, year, limit int) mo.Result[[]Media] {
	vars := map[string]any{
		"season":     strings.ToUpper(season),
		"seasonYear": year,
		"perPage":    clampPerPage(limit),
	}
	return mediaList(pageResult(execute[pageData](ctx, c, "seasonal", querySeasonal, vars)))
}

func (c *Client) Recommendations(ctx context.Context, id, limit int) mo.Result[[]Media] {
	res := execute[recommendationsData](ctx, c, "recommendations", queryRecommendations,
		map[string]any{"id": id, "perPage": clampPerPage(limit)})
	return mo.Try(func() ([]Media, error) {
		data, err := res.Get()
		if err != nil {
			return nil, err
		}
		if data.Media == nil {
			return nil, upstream.NotFound(source, fmt.Errorf("media %d", id))
		}
		out := make([]Media, 0, len(data.Media.Recommendations.Nodes))
		for _, n := range data.Media.Recommendations.Nodes {
			if n.MediaRecommendation != nil {
				out = append(out, *n.MediaRecommendation)
			}
		}
		return out, nil
	})
}

func pageResult(res mo.Result[*pageData]) mo.Result[MediaPage] {
	return mo.Try(func() (MediaPage, error) {
		data, err := res.Get()
		if err != nil {
			return MediaPage{}, err
		}
		if data.Page == nil {
			return MediaPage{}, upstream.Malformed(source, fmt.Errorf("response has no Page"))
		}
		return MediaPage{PageInfo: data.Page.PageInfo, Media: data.Page.Media}, nil
	})
}

func mediaList(res mo.Result[MediaPage]) mo.Result[[]Media] {
	return mo.Try(func() ([]Media, error) {
		p, err := res.Get()
		return p.Media, err
	})
}

func clampPerPage(n int) int {
	if n <= 0 {
		return 10
	}
	return min(n, MaxPerPage)
}
