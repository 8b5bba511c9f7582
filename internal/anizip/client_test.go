package anizip

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerjest/animeAggregator/internal/config"
	"github.com/pokerjest/animeAggregator/internal/upstream"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.MappingConfig{Endpoint: srv.URL + "/mappings", Timeout: 5 * time.Second}, nil)
}

func episodesJSON(keys ...string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`"%s":{"episode":"%s","airDate":"2024-01-05","runtime":24,"rating":7.8,"title":{"en":"Ep %s","x-jat":"Dai %s-wa"}}`, k, k, k, k))
	}
	return `{"titles":{"en":"Show"},"episodes":{` + strings.Join(parts, ",") + `}}`
}

func TestEpisodesFor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mappings", r.URL.Path)
		assert.Equal(t, "154587", r.URL.Query().Get("anilist_id"))
		_, _ = w.Write([]byte(episodesJSON("1", "2", "S1", "10", "3")))
	})

	m, err := c.EpisodesFor(context.Background(), 154587).Get()
	require.NoError(t, err)

	assert.Equal(t, 154587, m.CatalogID)
	assert.Equal(t, []string{"1", "2", "3", "10", "S1"}, m.Keys)
	assert.Equal(t, "10", m.FinalKey())

	ep, ok := m.Lookup("2")
	require.True(t, ok)
	assert.Equal(t, "2024-01-05", *ep.AirDate)
	assert.EqualValues(t, 24, *ep.Runtime)
	assert.Equal(t, FlexString("7.8"), *ep.Rating)
	assert.Equal(t, "Ep 2", *ep.Title.En)
}

func TestEpisodesFor_NoEpisodesKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"titles":{"en":"Show"}}`))
	})

	res := c.EpisodesFor(context.Background(), 1)
	require.True(t, res.IsError())
	assert.Equal(t, upstream.KindNotFound, upstream.KindOf(res.Error()))
}

func TestEpisodesFor_EmptyEpisodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"episodes":{}}`))
	})

	res := c.EpisodesFor(context.Background(), 1)
	assert.Equal(t, upstream.KindNotFound, upstream.KindOf(res.Error()))
}

func TestEpisodesFor_Failures(t *testing.T) {
	down := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	assert.Equal(t, upstream.KindUnavailable, upstream.KindOf(down.EpisodesFor(context.Background(), 1).Error()))

	garbage := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})
	assert.Equal(t, upstream.KindMalformed, upstream.KindOf(garbage.EpisodesFor(context.Background(), 1).Error()))

	wrongShape := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"episodes":[1,2,3]}`))
	})
	assert.Equal(t, upstream.KindMalformed, upstream.KindOf(wrongShape.EpisodesFor(context.Background(), 1).Error()))
}

func TestMappingClosest(t *testing.T) {
	m := &Mapping{
		Keys:     []string{"1", "2", "5", "S1"},
		Episodes: map[string]Episode{"1": {}, "2": {}, "5": {}, "S1": {}},
	}

	_, key, ok := m.Closest(2)
	assert.True(t, ok)
	assert.Equal(t, "2", key)

	_, key, _ = m.Closest(4)
	assert.Equal(t, "5", key)

	_, _, ok = (&Mapping{Keys: []string{"S1"}, Episodes: map[string]Episode{"S1": {}}}).Closest(3)
	assert.False(t, ok)
}

func TestFinalKey_NoNumericKeys(t *testing.T) {
	m := &Mapping{Keys: []string{"S1", "S2"}}
	assert.Equal(t, "S2", m.FinalKey())
	assert.Equal(t, "", (&Mapping{}).FinalKey())
}
