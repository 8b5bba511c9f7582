package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/pokerjest/animeAggregator/internal/model"
	"github.com/pokerjest/animeAggregator/internal/store"
)

var seasons = []string{"WINTER", "SPRING", "SUMMER", "FALL"}

func (h *Handler) FindByID(c *gin.Context) {
	id, ok := positiveParam(c, "id")
	if !ok {
		return
	}
	rec, err := h.store.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) Trending(c *gin.Context) {
	n, ok := positiveQuery(c, "quantity", defaultListLimit)
	if !ok {
		return
	}
	recs, err := h.store.FindTrending(c.Request.Context(), min(n, maxListLimit))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (h *Handler) Search(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		badRequest(c, "name is required")
		return
	}
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	page, ok := positiveQuery(c, "page", 1)
	if !ok {
		return
	}

	res, err := h.store.Search(c.Request.Context(), store.SearchQuery{
		Name:   name,
		Limit:  limit,
		Page:   page,
		Status: strings.TrimSpace(c.Query("status")),
		Genre:  strings.TrimSpace(c.Query("genre")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := positiveParam(c, "id")
	if !ok {
		return
	}
	var patch model.AnimePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid body")
		return
	}
	rec, err := h.store.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) Recommendations(c *gin.Context) {
	id, ok := positiveParam(c, "id")
	if !ok {
		return
	}
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	recs, err := h.store.Recommendations(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (h *Handler) ByGenre(c *gin.Context) {
	genre := strings.TrimSpace(c.Param("genre"))
	if genre == "" {
		badRequest(c, "genre is required")
		return
	}
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	recs, err := h.store.ByGenre(c.Request.Context(), genre, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (h *Handler) Upcoming(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	recs, err := h.store.Upcoming(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

// Seasonal defaults to the current season when season or year is omitted.
func (h *Handler) Seasonal(c *gin.Context) {
	curSeason, curYear := currentSeason(time.Now())

	season := strings.ToUpper(strings.TrimSpace(c.Query("season")))
	if season == "" {
		season = curSeason
	}
	if !lo.Contains(seasons, season) {
		badRequest(c, "invalid season")
		return
	}
	year, ok := positiveQuery(c, "year", curYear)
	if !ok {
		return
	}
	limit, ok := limitQuery(c)
	if !ok {
		return
	}

	recs, err := h.store.Seasonal(c.Request.Context(), season, year, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func currentSeason(now time.Time) (string, int) {
	return seasons[(int(now.Month())-1)/3], now.Year()
}
