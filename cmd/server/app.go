package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pokerjest/animeAggregator/internal/anilist"
	"github.com/pokerjest/animeAggregator/internal/anizip"
	"github.com/pokerjest/animeAggregator/internal/api"
	"github.com/pokerjest/animeAggregator/internal/config"
	"github.com/pokerjest/animeAggregator/internal/db"
	"github.com/pokerjest/animeAggregator/internal/event"
	"github.com/pokerjest/animeAggregator/internal/llm"
	"github.com/pokerjest/animeAggregator/internal/metrics"
	"github.com/pokerjest/animeAggregator/internal/nyaa"
	"github.com/pokerjest/animeAggregator/internal/scheduler"
	"github.com/pokerjest/animeAggregator/internal/service"
	"github.com/pokerjest/animeAggregator/internal/store"
	"github.com/pokerjest/animeAggregator/internal/worker"
	"github.com/pokerjest/animeAggregator/pkg/rss"
)

const shutdownTimeout = 10 * time.Second

type app struct {
	conn      *gorm.DB
	server    *http.Server
	scheduler *scheduler.Manager
	worker    *worker.TranslationWorker
}

func newApp(cfg *config.Config) (*app, error) {
	conn, err := db.OpenAndMigrate(cfg.Database)
	if err != nil {
		return nil, err
	}

	mgr := metrics.NewManager()
	bus := event.NewInMemoryBus()

	catalog := anilist.NewClient(cfg.AniList, mgr)
	mapping := anizip.NewClient(cfg.Mapping, mgr)
	torrents := nyaa.NewClient(cfg.Torrent, mgr)
	feed := rss.NewReader(cfg.Feed.Timeout, mgr)
	completer := llm.NewClient(cfg.LLM, mgr)

	animeStore := store.New(conn, catalog, bus, mgr)

	episodes := service.NewEpisodeService(animeStore, mapping, feed, torrents, cfg)
	releases := service.NewReleaseService(feed, catalog, mapping, cfg.Feed.URL, cfg.Torrent.MaxConcurrent)
	insight := service.NewInsightService(animeStore, completer)
	translation := service.NewTranslationService(animeStore, llm.NewTranslator(cfg.Translate, completer), bus, cfg.Translate.TargetLang)

	handler := api.NewHandler(animeStore, episodes, releases, insight, translation).WithEvents(bus)
	router := api.NewRouter(cfg.Server, handler, mgr.GetRegistry())

	a := &app{
		conn: conn,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		scheduler: scheduler.NewManager(animeStore, cfg.Scheduler.TrendingRefresh, cfg.Scheduler.TrendingSize),
	}
	if cfg.Translate.Auto {
		a.worker = worker.NewTranslationWorker(bus, translation)
	}
	return a, nil
}

// Run serves until ctx is cancelled, then shuts everything down.
func (a *app) Run(ctx context.Context) error {
	defer func() { _ = db.Close(a.conn) }()

	if err := a.scheduler.Start(); err != nil {
		return err
	}
	defer a.scheduler.Stop()

	if a.worker != nil {
		a.worker.Start(ctx)
		defer a.worker.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", a.server.Addr).Msg("server starting")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "http server")
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}
