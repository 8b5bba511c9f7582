package anizip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/mo"

	"github.com/pokerjest/animeAggregator/internal/config"
	"github.com/pokerjest/animeAggregator/internal/metrics"
	"github.com/pokerjest/animeAggregator/internal/upstream"
)

const source = "anizip"

type Client struct {
	client   *resty.Client
	endpoint string
	metrics  metrics.Recorder
}

func NewClient(cfg config.MappingConfig, rec metrics.Recorder) *Client {
	c := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{client: c, endpoint: cfg.Endpoint, metrics: metrics.OrNop(rec)}
}

// EpisodesFor fetches the episode mapping of a catalog id. A response
// without an episodes object is reported as not found.
func (c *Client) EpisodesFor(ctx context.Context, catalogID int) (res mo.Result[*Mapping]) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveUpstream(source, upstream.Outcome(res.Error()), time.Since(start))
	}()

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("anilist_id", strconv.Itoa(catalogID)).
		Get(c.endpoint)
	if err != nil {
		log.Warn().Err(err).Str("source", source).Int("id", catalogID).Msg("mapping request failed")
		return upstream.Fail[*Mapping](upstream.Unavailable(source, err))
	}
	if resp.IsError() {
		log.Warn().Str("source", source).Int("id", catalogID).Int("status", resp.StatusCode()).Msg("mapping returned error status")
		return upstream.Fail[*Mapping](upstream.Unavailable(source, fmt.Errorf("status %s", resp.Status())))
	}

	mapping, ferr := decodeMapping(resp.Body())
	if ferr != nil {
		log.Warn().Err(ferr).Str("source", source).Int("id", catalogID).Msg("mapping has no usable episodes")
		return upstream.Fail[*Mapping](ferr)
	}
	mapping.CatalogID = catalogID

	log.Debug().Str("source", source).Int("id", catalogID).Int("episodes", len(mapping.Keys)).Msg("mapping fetched")
	return mo.Ok(mapping)
}

func decodeMapping(body []byte) (*Mapping, *upstream.FetchError) {
	var doc struct {
		Episodes json.RawMessage `json:"episodes"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, upstream.Malformed(source, err)
	}
	raw := bytes.TrimSpace(doc.Episodes)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, upstream.NotFound(source, fmt.Errorf("no episodes key"))
	}

	keys, episodes, err := decodeOrdered(raw)
	if err != nil {
		return nil, upstream.Malformed(source, err)
	}
	if len(keys) == 0 {
		return nil, upstream.NotFound(source, fmt.Errorf("episodes object is empty"))
	}
	return &Mapping{Keys: orderKeys(keys), Episodes: episodes}, nil
}

// decodeOrdered walks a JSON object keeping its key order.
func decodeOrdered(raw []byte) ([]string, map[string]Episode, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("episodes is not an object")
	}

	var keys []string
	episodes := make(map[string]Episode)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		var ep Episode
		if err := dec.Decode(&ep); err != nil {
			return nil, nil, errors.Wrapf(err, "episode %q", key)
		}
		if _, seen := episodes[key]; !seen {
			keys = append(keys, key)
		}
		episodes[key] = ep
	}
	return keys, episodes, nil
}

// orderKeys puts numeric keys first in ascending order and keeps the
// others in document order after them.
func orderKeys(keys []string) []string {
	out := make([]string, len(keys))
	copy(out, keys)
	sort.SliceStable(out, func(i, j int) bool {
		a, errA := strconv.Atoi(out[i])
		b, errB := strconv.Atoi(out[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		default:
			return false
		}
	})
	return out
}
