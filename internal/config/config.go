package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	AniList   AniListConfig   `mapstructure:"anilist"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Mapping   MappingConfig   `mapstructure:"mapping"`
	Torrent   TorrentConfig   `mapstructure:"torrent"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Translate TranslateConfig `mapstructure:"translate"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	Mode        string   `mapstructure:"mode"` // debug or release
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	Pretty     bool   `mapstructure:"pretty"`
}

type AniListConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	Token         string        `mapstructure:"token"`
	Proxy         string        `mapstructure:"proxy"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxConcurrent int64         `mapstructure:"max_concurrent"`
	Retries       uint          `mapstructure:"retries"`
}

type FeedConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MappingConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type TorrentConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Category      string        `mapstructure:"category"`
	Filter        string        `mapstructure:"filter"`
	MaxResults    int           `mapstructure:"max_results"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

type LLMConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Model           string        `mapstructure:"model"`
	APIKey          string        `mapstructure:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens"`
}

type TranslateConfig struct {
	Provider   string `mapstructure:"provider"` // llm or google
	SourceLang string `mapstructure:"source_lang"`
	TargetLang string `mapstructure:"target_lang"`
	Auto       bool   `mapstructure:"auto"`
}

type SchedulerConfig struct {
	TrendingRefresh string `mapstructure:"trending_refresh"` // cron spec, empty disables
	TrendingSize    int    `mapstructure:"trending_size"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	TranslateProviderLLM    = "llm"
	TranslateProviderGoogle = "google"
)

func setDefaults(v *viper.Viper) {
	// 默认值
	v.SetDefault("server.port", 8306)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/anime.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)

	v.SetDefault("anilist.endpoint", "https://graphql.anilist.co")
	v.SetDefault("anilist.timeout", 10*time.Second)
	v.SetDefault("anilist.max_concurrent", 2)
	v.SetDefault("anilist.retries", 3)

	v.SetDefault("feed.url", "https://www.erai-raws.info/episodes/feed/?res=1080p&type=torrent")
	v.SetDefault("feed.timeout", 10*time.Second)

	v.SetDefault("mapping.endpoint", "https://api.ani.zip/mappings")
	v.SetDefault("mapping.timeout", 10*time.Second)

	v.SetDefault("torrent.base_url", "https://nyaa.si")
	v.SetDefault("torrent.category", "1_2")
	v.SetDefault("torrent.filter", "0")
	v.SetDefault("torrent.max_results", 15)
	v.SetDefault("torrent.timeout", 15*time.Second)
	v.SetDefault("torrent.max_concurrent", 4)

	v.SetDefault("llm.endpoint", "https://generativelanguage.googleapis.com/v1/models")
	v.SetDefault("llm.model", "gemini-1.5-flash")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_output_tokens", 2048)

	v.SetDefault("translate.provider", TranslateProviderLLM)
	v.SetDefault("translate.source_lang", "en")
	v.SetDefault("translate.target_lang", "es")
	v.SetDefault("translate.auto", false)

	v.SetDefault("scheduler.trending_refresh", "@every 30m")
	v.SetDefault("scheduler.trending_size", 20)
}

// LoadConfig reads config.yaml from the working directory or configPath,
// then applies ANIME_* environment overrides on top of the defaults.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}

	// 环境变量替换 (使用 ANIME_ 前缀)
	// 比如 ANIME_SERVER_PORT=9090
	v.SetEnvPrefix("ANIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Debug().Msg("config file not found, using defaults")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	switch c.Translate.Provider {
	case TranslateProviderLLM, TranslateProviderGoogle:
	default:
		return fmt.Errorf("unknown translate.provider %q", c.Translate.Provider)
	}
	return nil
}
