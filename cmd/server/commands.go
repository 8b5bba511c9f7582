package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/pokerjest/animeAggregator/internal/config"
	"github.com/pokerjest/animeAggregator/internal/db"
	"github.com/pokerjest/animeAggregator/internal/logger"
	"github.com/pokerjest/animeAggregator/internal/parser"
	"github.com/pokerjest/animeAggregator/pkg/rss"
)

func newRootCommand() *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:          "anime-aggregator",
		Short:        "Anime metadata aggregator",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configDir)
		},
	}
	root.PersistentFlags().StringVarP(&configDir, "config", "c", ".", "Directory containing config.yaml")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server (default)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), configDir)
			},
		},
		newMigrateCommand(&configDir),
		newFeedCommand(&configDir),
	)
	return root
}

func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.Log)
	return cfg, nil
}

func runServe(ctx context.Context, configDir string) error {
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

func newMigrateCommand(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			conn, err := db.OpenAndMigrate(cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(conn) }()

			log.Info().Str("driver", cfg.Database.Driver).Msg("schema up to date")
			cmd.Println("Migration complete.")
			return nil
		},
	}
}

type feedRow struct {
	Title   string               `json:"title"`
	Link    string               `json:"link"`
	PubDate string               `json:"pubDate"`
	Size    string               `json:"size,omitempty"`
	Parsed  parser.ParsedRelease `json:"parsed"`
}

func newFeedCommand(configDir *string) *cobra.Command {
	var (
		url   string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Fetch the release feed once and print the parsed items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.Feed.URL
			}

			items, err := rss.NewReader(cfg.Feed.Timeout, nil).Fetch(cmd.Context(), url).Get()
			if err != nil {
				return errors.Wrap(err, "fetch feed")
			}
			if limit > 0 {
				items = lo.Slice(items, 0, limit)
			}

			rows := lo.Map(items, func(it rss.ReleaseItem, _ int) feedRow {
				return feedRow{Title: it.Title, Link: it.Link, PubDate: it.PubDate, Size: it.Size, Parsed: parser.Parse(it.Title)}
			})
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Feed URL (defaults to feed.url)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Print at most this many items")
	return cmd
}
