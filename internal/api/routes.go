package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"

	"github.com/pokerjest/animeAggregator/internal/config"
)

// NewRouter builds the gin engine with every route registered. registry
// may be nil, in which case /metrics is not served.
func NewRouter(cfg config.ServerConfig, h *Handler, registry *prometheus.Registry) *gin.Engine {
	if cfg.Mode == gin.ReleaseMode || cfg.Mode == gin.DebugMode || cfg.Mode == gin.TestMode {
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()
	r.Use(Recovery(), RequestLogger(), cors.New(corsConfig(cfg.CORSOrigins)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	}

	InitRoutes(r, h)
	return r
}

func InitRoutes(r *gin.Engine, h *Handler) {
	apiGroup := r.Group("/api")
	{
		// Catalog and cache
		anime := apiGroup.Group("/anime")
		anime.GET("/trending", h.Trending)
		anime.GET("/search", h.Search)
		anime.GET("/upcoming", h.Upcoming)
		anime.GET("/season", h.Seasonal)
		anime.GET("/genre/:genre", h.ByGenre)
		anime.GET("/:id", h.FindByID)
		anime.PATCH("/:id", h.Update)
		anime.GET("/:id/recommendations", h.Recommendations)

		// Episodes
		anime.GET("/:id/episodes", h.AllEpisodes)
		anime.GET("/:id/episodes/:episode", h.Episode)

		// Language model
		anime.GET("/:id/analysis", h.Analyze)
		anime.GET("/:id/synopsis", h.Synopsis)

		apiGroup.GET("/releases/latest", h.LatestReleases)

		insight := apiGroup.Group("/insight")
		insight.POST("/chat", h.Chat)
		insight.POST("/recommendations", h.Recommend)
		insight.POST("/cultural", h.CulturalContext)
		insight.POST("/character", h.CharacterAnalysis)

		apiGroup.POST("/translation/anime/:id", h.Translate)

		if h.events != nil {
			apiGroup.GET("/events", h.Events)
		}
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || lo.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
