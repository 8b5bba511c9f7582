package rss

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/samber/mo"

	"github.com/pokerjest/animeAggregator/internal/metrics"
	"github.com/pokerjest/animeAggregator/internal/upstream"
)

const source = "feed"

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Reader struct {
	client  *resty.Client
	metrics metrics.Recorder
}

func NewReader(timeout time.Duration, rec metrics.Recorder) *Reader {
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/rss+xml, application/xml, text/xml")

	return &Reader{client: c, metrics: metrics.OrNop(rec)}
}

// Fetch downloads and decodes the feed at url, newest-first as delivered.
func (r *Reader) Fetch(ctx context.Context, url string) (res mo.Result[[]ReleaseItem]) {
	start := time.Now()
	defer func() {
		r.metrics.ObserveUpstream(source, upstream.Outcome(res.Error()), time.Since(start))
	}()

	resp, err := r.client.R().SetContext(ctx).Get(url)
	if err != nil {
		log.Warn().Err(err).Str("source", source).Str("url", url).Msg("feed request failed")
		return upstream.Fail[[]ReleaseItem](upstream.Unavailable(source, err))
	}
	if resp.IsError() {
		log.Warn().Str("source", source).Str("url", url).Int("status", resp.StatusCode()).Msg("feed returned error status")
		return upstream.Fail[[]ReleaseItem](upstream.Unavailable(source, fmt.Errorf("status %s", resp.Status())))
	}

	items, err := Decode(resp.Body())
	if err != nil {
		log.Warn().Err(err).Str("source", source).Str("url", url).Msg("feed is not valid xml")
		return upstream.Fail[[]ReleaseItem](upstream.Malformed(source, err))
	}

	log.Debug().Str("source", source).Int("items", len(items)).Msg("feed fetched")
	return mo.Ok(items)
}

// FetchOrEmpty degrades every failure to an empty sequence.
func (r *Reader) FetchOrEmpty(ctx context.Context, url string) []ReleaseItem {
	return r.Fetch(ctx, url).OrElse([]ReleaseItem{})
}
