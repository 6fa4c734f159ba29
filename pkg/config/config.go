package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DarkSidr/news/pkg/domain"
	"github.com/DarkSidr/news/pkg/filters"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"description=SQLite connection string; empty runs without persistence"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Schedule struct {
		UpdateInterval int `yaml:"update_interval" json:"update_interval" jsonschema:"default=30,description=Fetch cycle interval in minutes"`
		RetentionDays  int `yaml:"retention_days" json:"retention_days" jsonschema:"default=14,description=Days to keep stored articles"`
	} `yaml:"schedule" json:"schedule" jsonschema:"description=Scheduler configuration"`

	Fetch struct {
		Timeout     time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=8s,description=Per-source fetch timeout"`
		UserAgent   string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=news-app-bot/1.0,description=User agent for feed requests"`
		Concurrency int           `yaml:"concurrency" json:"concurrency" jsonschema:"default=5,description=Maximum concurrent source fetches"`
	} `yaml:"fetch" json:"fetch" jsonschema:"description=Feed fetching configuration"`

	Filters struct {
		MinContentLength  int      `yaml:"min_content_length" json:"min_content_length" jsonschema:"default=50,description=Minimum snippet length for items without an image"`
		ImageExemptsShort *bool    `yaml:"image_exempts_short" json:"image_exempts_short,omitempty" jsonschema:"description=Keep short items that carry an image; defaults to true"`
		BlockedDomains    []string `yaml:"blocked_domains" json:"blocked_domains" jsonschema:"description=Hostname substrings to drop"`
		BlockedKeywords   []string `yaml:"blocked_keywords" json:"blocked_keywords" jsonschema:"description=Lowercase keywords to drop on the read path"`
	} `yaml:"filters" json:"filters" jsonschema:"description=Quality filter configuration"`

	Translation TranslationConfig `yaml:"translation" json:"translation" jsonschema:"description=Translation configuration"`

	Cache struct {
		TTL time.Duration `yaml:"ttl" json:"ttl" jsonschema:"default=5m,description=Read-path cache freshness window"`
	} `yaml:"cache" json:"cache" jsonschema:"description=Cache configuration"`

	Cron struct {
		Secret string `yaml:"secret" json:"secret" jsonschema:"description=Bearer token for the fetch trigger endpoint (can use environment variable)"`
	} `yaml:"cron" json:"cron" jsonschema:"description=Trigger endpoint configuration"`

	Sources []SourceConfig `yaml:"sources" json:"sources" jsonschema:"description=Feed sources"`
}

// SourceConfig is one configured feed source
type SourceConfig struct {
	Name     string `yaml:"name" json:"name" jsonschema:"required,description=Unique source name"`
	URL      string `yaml:"url" json:"url" jsonschema:"required,description=Feed or API endpoint URL"`
	Type     string `yaml:"type" json:"type" jsonschema:"default=rss,enum=rss,enum=api,description=Source kind"`
	Language string `yaml:"language" json:"language" jsonschema:"default=en,description=Source content language code"`
	APIKey   string `yaml:"api_key" json:"api_key" jsonschema:"description=API key for api sources (can use environment variable)"`
	Active   *bool  `yaml:"active" json:"active,omitempty" jsonschema:"description=Fetch this source; defaults to true"`
}

// ProviderConfig is one translation provider in fallback priority order
type ProviderConfig struct {
	Kind     string        `yaml:"kind" json:"kind" jsonschema:"required,enum=openai,enum=libretranslate,description=Provider kind"`
	Endpoint string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=Base URL; empty uses the provider default"`
	APIKey   string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model    string        `yaml:"model" json:"model" jsonschema:"description=Model name for openai providers"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout"`
}

// TranslationConfig holds translation settings
type TranslationConfig struct {
	Enabled    bool             `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Enable translation of stored articles"`
	TargetLang string           `yaml:"target_lang" json:"target_lang" jsonschema:"default=ru,description=Language articles are translated into"`
	Budget     int              `yaml:"budget" json:"budget" jsonschema:"default=20,description=Maximum articles translated per fetch cycle"`
	BatchSize  int              `yaml:"batch_size" json:"batch_size" jsonschema:"default=5,minimum=1,description=Texts per provider request"`
	Providers  []ProviderConfig `yaml:"providers" json:"providers" jsonschema:"description=Providers in fallback priority order"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// set defaults for server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// set defaults for database pool; empty DSN means ephemeral mode
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	// set defaults for schedule
	if cfg.Schedule.UpdateInterval == 0 {
		cfg.Schedule.UpdateInterval = 30
	}
	if cfg.Schedule.RetentionDays == 0 {
		cfg.Schedule.RetentionDays = 14
	}

	// set defaults for fetching
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 8 * time.Second
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "news-app-bot/1.0"
	}
	if cfg.Fetch.Concurrency == 0 {
		cfg.Fetch.Concurrency = 5
	}

	// set defaults for filters
	if cfg.Filters.MinContentLength == 0 {
		cfg.Filters.MinContentLength = filters.DefaultMinContentLength
	}

	// set defaults for translation
	if cfg.Translation.TargetLang == "" {
		cfg.Translation.TargetLang = "ru"
	}
	if cfg.Translation.Budget == 0 {
		cfg.Translation.Budget = 20
	}
	if cfg.Translation.BatchSize == 0 {
		cfg.Translation.BatchSize = 5
	}
	for i := range cfg.Translation.Providers {
		if cfg.Translation.Providers[i].Timeout == 0 {
			cfg.Translation.Providers[i].Timeout = 30 * time.Second
		}
	}

	// set defaults for cache
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 5 * time.Minute
	}

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	seen := map[string]bool{}
	for _, src := range cfg.Sources {
		if src.Name == "" {
			return fmt.Errorf("source name is required")
		}
		if src.URL == "" {
			return fmt.Errorf("source %s: url is required", src.Name)
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name %s", src.Name)
		}
		seen[src.Name] = true
		switch src.Type {
		case "", "rss", "api":
		default:
			return fmt.Errorf("source %s: unknown type %q", src.Name, src.Type)
		}
	}

	if cfg.Translation.Enabled {
		if len(cfg.Translation.Providers) == 0 {
			return fmt.Errorf("translation enabled but no providers configured")
		}
		for _, p := range cfg.Translation.Providers {
			switch p.Kind {
			case "openai", "libretranslate":
			default:
				return fmt.Errorf("unknown translation provider kind %q", p.Kind)
			}
		}
		if cfg.Translation.BatchSize < 1 {
			return fmt.Errorf("translation.batch_size must be at least 1")
		}
	}

	// validate server config
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// Persisted reports whether a database DSN is configured
func (c *Config) Persisted() bool {
	return c.Database.DSN != ""
}

// GetSources converts configured sources to domain representation. Active
// defaults to true when omitted.
func (c *Config) GetSources() []domain.FeedSource {
	sources := make([]domain.FeedSource, 0, len(c.Sources))
	for _, s := range c.Sources {
		typ := domain.SourceType(s.Type)
		if s.Type == "" {
			typ = domain.SourceRSS
		}
		lang := s.Language
		if lang == "" {
			lang = "en"
		}
		active := s.Active == nil || *s.Active
		sources = append(sources, domain.FeedSource{
			Name:     s.Name,
			URL:      s.URL,
			Type:     typ,
			Language: lang,
			APIKey:   s.APIKey,
			Active:   active,
		})
	}
	return sources
}

// GetFilters returns the read/write filter configuration
func (c *Config) GetFilters() filters.Config {
	return filters.Config{
		MinContentLength:  c.Filters.MinContentLength,
		ImageExemptsShort: c.Filters.ImageExemptsShort == nil || *c.Filters.ImageExemptsShort,
		BlockedDomains:    c.Filters.BlockedDomains,
		BlockedKeywords:   c.Filters.BlockedKeywords,
	}
}

// GetTranslationConfig returns translation configuration
func (c *Config) GetTranslationConfig() TranslationConfig {
	return c.Translation
}
