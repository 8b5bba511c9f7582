package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Message string `json:"message" binding:"required"`
	System  string `json:"systemPrompt"`
}

type recommendRequest struct {
	Preferences string   `json:"preferences" binding:"required"`
	History     []string `json:"animeHistory"`
}

type culturalRequest struct {
	AnimeTitle      string `json:"animeTitle" binding:"required"`
	CulturalElement string `json:"culturalElement" binding:"required"`
}

type characterRequest struct {
	CharacterName string   `json:"characterName" binding:"required"`
	AnimeTitle    string   `json:"animeTitle" binding:"required"`
	Traits        []string `json:"traits"`
}

func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "message is required")
		return
	}
	out, err := h.insight.Chat(c.Request.Context(), req.Message, req.System)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Recommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "preferences are required")
		return
	}
	out, err := h.insight.Recommend(c.Request.Context(), req.Preferences, req.History)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) CulturalContext(c *gin.Context) {
	var req culturalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "animeTitle and culturalElement are required")
		return
	}
	out, err := h.insight.CulturalContext(c.Request.Context(), req.AnimeTitle, req.CulturalElement)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) CharacterAnalysis(c *gin.Context) {
	var req characterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "characterName and animeTitle are required")
		return
	}
	out, err := h.insight.CharacterAnalysis(c.Request.Context(), req.CharacterName, req.AnimeTitle, req.Traits)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Analyze(c *gin.Context) {
	id, ok := positiveParam(c, "id")
	if !ok {
		return
	}
	out, err := h.insight.Analyze(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Synopsis(c *gin.Context) {
	id, ok := positiveParam(c, "id")
	if !ok {
		return
	}
	out, err := h.insight.ShortSynopsis(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Translate(c *gin.Context) {
	id, ok := positiveParam(c, "id")
	if !ok {
		return
	}
	out, err := h.translation.TranslateDescription(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
