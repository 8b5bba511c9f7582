package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pokerjest/animeAggregator/internal/event"
	"github.com/pokerjest/animeAggregator/internal/llm"
	"github.com/pokerjest/animeAggregator/internal/model"
	"github.com/pokerjest/animeAggregator/internal/service"
	"github.com/pokerjest/animeAggregator/internal/store"
	"github.com/pokerjest/animeAggregator/internal/upstream"
)

type AnimeStore interface {
	FindByID(ctx context.Context, id int) (*model.AnimeRecord, error)
	FindTrending(ctx context.Context, n int) ([]model.AnimeRecord, error)
	Search(ctx context.Context, q store.SearchQuery) (*store.SearchResult, error)
	Update(ctx context.Context, id int, patch model.AnimePatch) (*model.AnimeRecord, error)
	Recommendations(ctx context.Context, id, limit int) ([]model.AnimeRecord, error)
	ByGenre(ctx context.Context, genre string, limit int) ([]model.AnimeRecord, error)
	Upcoming(ctx context.Context, limit int) ([]model.AnimeRecord, error)
	Seasonal(ctx context.Context, season string, year, limit int) ([]model.AnimeRecord, error)
}

type EpisodeFusion interface {
	AllEpisodes(ctx context.Context, id int, includeTorrents, hevcOnly bool) (*model.AnimeEpisodes, error)
	Episode(ctx context.Context, id, number int) (*model.EpisodeView, error)
}

type ReleaseFeed interface {
	LatestReleases(ctx context.Context, page, perPage int, hevcOnly bool) (*service.LatestReleasesPage, error)
}

type Insights interface {
	Analyze(ctx context.Context, id int) (*service.Analysis, error)
	Recommend(ctx context.Context, preferences string, history []string) (*service.Recommendation, error)
	CulturalContext(ctx context.Context, title, element string) (*service.CulturalExplanation, error)
	CharacterAnalysis(ctx context.Context, name, title string, traits []string) (*service.CharacterAnalysis, error)
	ShortSynopsis(ctx context.Context, id int) (*service.Synopsis, error)
	Chat(ctx context.Context, message, system string) (*llm.Completion, error)
}

type Translations interface {
	TranslateDescription(ctx context.Context, id int) (*service.TranslationResult, error)
}

// Handler serves the REST surface. Input is validated here, before any
// upstream call is made.
type Handler struct {
	store       AnimeStore
	episodes    EpisodeFusion
	releases    ReleaseFeed
	insight     Insights
	translation Translations
	events      event.Bus
}

func NewHandler(store AnimeStore, episodes EpisodeFusion, releases ReleaseFeed, insight Insights, translation Translations) *Handler {
	return &Handler{
		store:       store,
		episodes:    episodes,
		releases:    releases,
		insight:     insight,
		translation: translation,
	}
}

const (
	defaultListLimit = 10
	maxListLimit     = 50
)

// respondError maps domain errors onto status codes.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := http.StatusInternalServerError
	msg := "internal error"

	var fe *upstream.FetchError
	switch {
	case errors.Is(err, service.ErrBadInput), errors.Is(err, llm.ErrEmptyPrompt):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, llm.ErrNotConfigured):
		status, msg = http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, llm.ErrBlocked):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &fe):
		status, msg = http.StatusBadGateway, "upstream "+fe.Source+" "+string(fe.Kind)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// positiveParam reads a path parameter that must be a positive integer.
func positiveParam(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return n, true
}

// positiveQuery reads an optional positive integer query value.
func positiveQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return n, true
}

func boolQuery(c *gin.Context, name string) (bool, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return false, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return false, false
	}
	return b, true
}

func limitQuery(c *gin.Context) (int, bool) {
	n, ok := positiveQuery(c, "limit", defaultListLimit)
	return min(n, maxListLimit), ok
}
