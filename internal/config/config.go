// Package config provides configuration loading and validation for the pipeline.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Provider names accepted for the embedder and the categorizer.
const (
	ProviderHashing = "hashing"
	ProviderGemini  = "gemini"
	ProviderCohere  = "cohere"
	ProviderKeyword = "keyword"
)

// EnvPrefix is prepended to every configuration key read from the environment.
const EnvPrefix = "PEZA"

// DefaultConfigName is the file looked up in the working directory when no
// explicit config path is given.
const DefaultConfigName = "peza"

// Config is the full pipeline configuration. Every field has a default, so an
// empty config file (or none at all) yields a runnable offline setup apart from
// the database URL.
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	TopN        int    `mapstructure:"top_n"`

	Log         LogConfig         `mapstructure:"log"`
	Scrape      ScrapeConfig      `mapstructure:"scrape"`
	Categorizer CategorizerConfig `mapstructure:"categorizer"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Archive     ArchiveConfig     `mapstructure:"archive"`
	Match       MatchConfig       `mapstructure:"match"`
	Schedule    ScheduleConfig    `mapstructure:"schedule"`
	Server      ServerConfig      `mapstructure:"server"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// ScrapeConfig controls the source adapters.
type ScrapeConfig struct {
	Sources          []string      `mapstructure:"sources"`
	Feeds            []FeedConfig  `mapstructure:"feeds"`
	Proxy            string        `mapstructure:"proxy"`
	UseBrowser       bool          `mapstructure:"use_browser"`
	UserAgent        string        `mapstructure:"user_agent"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	RequestDelay     time.Duration `mapstructure:"request_delay"`
	ListRetryDelay   time.Duration `mapstructure:"list_retry_delay"`
	DetailRetryDelay time.Duration `mapstructure:"detail_retry_delay"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Concurrency      int           `mapstructure:"concurrency"`
}

// FeedConfig declares an RSS/Atom job feed used as an additional source.
type FeedConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// CategorizerConfig selects and configures the category classifier.
type CategorizerConfig struct {
	Provider  string `mapstructure:"provider"`
	APIKey    string `mapstructure:"api_key"`
	BatchSize int    `mapstructure:"batch_size"`
}

// EmbeddingConfig selects and configures the embedding function.
type EmbeddingConfig struct {
	Provider     string `mapstructure:"provider"`
	Model        string `mapstructure:"model"`
	APIKey       string `mapstructure:"api_key"`
	CohereAPIKey string `mapstructure:"cohere_api_key"`
	Dimensions   int    `mapstructure:"dimensions"`
}

// RedisConfig enables the embedding cache when URL is set.
type RedisConfig struct {
	URL string        `mapstructure:"url"`
	TTL time.Duration `mapstructure:"ttl"`
}

// KafkaConfig enables match-update events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// ArchiveConfig enables S3 snapshots of ingestion runs when Bucket is set.
type ArchiveConfig struct {
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
	Prefix   string `mapstructure:"prefix"`
}

// MatchConfig controls the batch recompute.
type MatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// ScheduleConfig controls the recurring ingestion trigger.
type ScheduleConfig struct {
	Spec     string `mapstructure:"spec"`
	Timezone string `mapstructure:"timezone"`
}

// ServerConfig controls the HTTP trigger surface.
type ServerConfig struct {
	Port      int             `mapstructure:"port"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig sets the per-client request budget for ordinary endpoints.
// Pipeline triggers have stricter fixed budgets.
type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Limit     int           `mapstructure:"limit"`
	Window    time.Duration `mapstructure:"window"`
	Whitelist []string      `mapstructure:"whitelist"`
}

// NewViper returns a viper instance with defaults and environment bindings set.
// Callers may bind command-line flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional variable names used by the rest of the deployment.
	_ = v.BindEnv("database_url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("categorizer.api_key", EnvPrefix+"_CATEGORIZER_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("embedding.api_key", EnvPrefix+"_EMBEDDING_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("embedding.cohere_api_key", EnvPrefix+"_EMBEDDING_COHERE_API_KEY", "COHERE_API_KEY")
	_ = v.BindEnv("redis.url", EnvPrefix+"_REDIS_URL", "REDIS_URL")
	_ = v.BindEnv("kafka.brokers", EnvPrefix+"_KAFKA_BROKERS", "KAFKA_BOOTSTRAP_SERVERS")

	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("top_n", 6)

	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)

	v.SetDefault("scrape.sources", []string{"jobsearchmalawi", "ntchito", "careersmw"})
	v.SetDefault("scrape.use_browser", false)
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.7103.94 Safari/537.36")
	v.SetDefault("scrape.max_attempts", 3)
	v.SetDefault("scrape.request_delay", 2*time.Second)
	v.SetDefault("scrape.list_retry_delay", 5*time.Second)
	v.SetDefault("scrape.detail_retry_delay", 2*time.Second)
	v.SetDefault("scrape.timeout", 30*time.Second)
	v.SetDefault("scrape.concurrency", 1)

	v.SetDefault("categorizer.batch_size", 50)

	v.SetDefault("embedding.dimensions", 384)

	v.SetDefault("redis.ttl", 7*24*time.Hour)

	v.SetDefault("kafka.topic", "matches.updated")

	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.prefix", "ingest")

	v.SetDefault("match.concurrency", 4)

	v.SetDefault("schedule.spec", "0 7 * * *")
	v.SetDefault("schedule.timezone", "Africa/Blantyre")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.limit", 120)
	v.SetDefault("server.rate_limit.window", time.Minute)
}

// Load reads the config file (if any) into v and decodes the result.
// An explicit path that cannot be read is an error; a missing default file is not.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = NewViper()
	}

	if path != "" {
		if !filepath.IsAbs(path) {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve config path %s: %w", path, err)
			}
			path = abs
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(DefaultConfigName)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.resolveProviders()

	return &cfg, nil
}

// resolveProviders picks providers from the available credentials when none
// was configured explicitly.
func (c *Config) resolveProviders() {
	if c.Embedding.Provider == "" {
		switch {
		case c.Embedding.APIKey != "":
			c.Embedding.Provider = ProviderGemini
		case c.Embedding.CohereAPIKey != "":
			c.Embedding.Provider = ProviderCohere
		default:
			c.Embedding.Provider = ProviderHashing
		}
	}
	if c.Categorizer.Provider == "" {
		if c.Categorizer.APIKey != "" {
			c.Categorizer.Provider = ProviderGemini
		} else {
			c.Categorizer.Provider = ProviderKeyword
		}
	}
}

// Validate checks that the configuration has valid values.
// The database URL is not checked here; commands that need it do so.
func (c *Config) Validate() error {
	if c.TopN < 1 {
		return fmt.Errorf("config error: 'top_n' must be at least 1")
	}
	if c.Scrape.MaxAttempts < 1 {
		return fmt.Errorf("config error: 'scrape.max_attempts' must be at least 1")
	}
	if c.Scrape.Concurrency < 1 {
		return fmt.Errorf("config error: 'scrape.concurrency' must be at least 1")
	}
	if c.Scrape.RequestDelay < 0 || c.Scrape.ListRetryDelay < 0 || c.Scrape.DetailRetryDelay < 0 {
		return fmt.Errorf("config error: scrape delays must be non-negative")
	}
	if c.Scrape.Timeout <= 0 {
		return fmt.Errorf("config error: 'scrape.timeout' must be positive")
	}
	for _, f := range c.Scrape.Feeds {
		if f.Name == "" || f.URL == "" {
			return fmt.Errorf("config error: every feed needs a name and a url")
		}
	}
	if c.Match.Concurrency < 1 {
		return fmt.Errorf("config error: 'match.concurrency' must be at least 1")
	}

	switch c.Embedding.Provider {
	case ProviderHashing:
		if c.Embedding.Dimensions < 1 {
			return fmt.Errorf("config error: 'embedding.dimensions' must be at least 1")
		}
	case ProviderGemini:
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("config error: gemini embeddings require 'embedding.api_key' or GEMINI_API_KEY")
		}
	case ProviderCohere:
		if c.Embedding.CohereAPIKey == "" {
			return fmt.Errorf("config error: cohere embeddings require 'embedding.cohere_api_key' or COHERE_API_KEY")
		}
	default:
		return fmt.Errorf("config error: unknown embedding provider %q", c.Embedding.Provider)
	}

	switch c.Categorizer.Provider {
	case ProviderKeyword:
	case ProviderGemini:
		if c.Categorizer.APIKey == "" {
			return fmt.Errorf("config error: gemini categorizer requires 'categorizer.api_key' or GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("config error: unknown categorizer provider %q", c.Categorizer.Provider)
	}
	if c.Categorizer.BatchSize < 1 {
		return fmt.Errorf("config error: 'categorizer.batch_size' must be at least 1")
	}

	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.Limit < 1 || c.Server.RateLimit.Window <= 0) {
		return fmt.Errorf("config error: 'server.rate_limit' needs a positive limit and window")
	}

	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("config error: invalid schedule timezone %q: %w", c.Schedule.Timezone, err)
	}
	if _, err := cron.ParseStandard(c.Schedule.Spec); err != nil {
		return fmt.Errorf("config error: invalid schedule spec %q: %w", c.Schedule.Spec, err)
	}

	return nil
}
