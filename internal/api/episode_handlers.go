package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AllEpisodes(c *gin.Context) {
	id, ok := positiveParam(c, "id")
	if !ok {
		return
	}
	torrents, ok := boolQuery(c, "torrents")
	if !ok {
		return
	}
	hevc, ok := boolQuery(c, "hevc")
	if !ok {
		return
	}

	out, err := h.episodes.AllEpisodes(c.Request.Context(), id, torrents, hevc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Episode(c *gin.Context) {
	id, ok := positiveParam(c, "id")
	if !ok {
		return
	}
	number, ok := positiveParam(c, "episode")
	if !ok {
		return
	}

	view, err := h.episodes.Episode(c.Request.Context(), id, number)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) LatestReleases(c *gin.Context) {
	page, ok := positiveQuery(c, "page", 1)
	if !ok {
		return
	}
	perPage, ok := positiveQuery(c, "perPage", defaultListLimit)
	if !ok {
		return
	}
	hevc, ok := boolQuery(c, "hevc")
	if !ok {
		return
	}

	out, err := h.releases.LatestReleases(c.Request.Context(), page, min(perPage, maxListLimit), hevc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
