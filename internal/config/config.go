package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingToken   = errors.New("BOT_TOKEN is required")
	ErrMissingAPIKey  = errors.New("TMDB_API_KEY is required")
	ErrMissingDSN     = errors.New("DATABASE_URL is required for postgres driver")
	ErrInvalidDriver  = errors.New("DB_DRIVER must be sqlite or postgres")
	ErrInvalidWorkers = errors.New("BOT_WORKERS must be positive")
)

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	TMDB      TMDBConfig      `yaml:"tmdb"`
	Watch     WatchConfig     `yaml:"watch"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Server    ServerConfig    `yaml:"server"`
}

type BotConfig struct {
	Token       string `yaml:"token"`
	Workers     int    `yaml:"workers" default:"8"`
	PollTimeout int    `yaml:"poll_timeout" default:"60"` // seconds
}

type TMDBConfig struct {
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	ImageBaseURL string        `yaml:"image_base_url"`
	Timeout      time.Duration `yaml:"timeout" default:"4s"`
	Debug        bool          `yaml:"debug"`
}

type WatchConfig struct {
	SearchURL   string        `yaml:"search_url"`
	PerDomain   int           `yaml:"per_domain" default:"4"`
	TotalLimit  int           `yaml:"total_limit" default:"20"`
	Concurrency int           `yaml:"concurrency" default:"8"`
	Timeout     time.Duration `yaml:"timeout" default:"3.5s"`
	InsecureTLS bool          `yaml:"insecure_tls" default:"true"`
}

type StoreConfig struct {
	Driver string `yaml:"driver" default:"sqlite"`
	Path   string `yaml:"path" default:"bot.db"`
	DSN    string `yaml:"dsn"`
}

type CacheConfig struct {
	TTL       time.Duration `yaml:"ttl" default:"30m"`
	MetaSize  int           `yaml:"meta_size" default:"512"`
	WatchSize int           `yaml:"watch_size" default:"1024"`
}

type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute" default:"20"` // 0 disables
	Burst     int `yaml:"burst" default:"5"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr" default:":9090"` // empty disables the ops server
	LogLevel  string `yaml:"log_level" default:"info"`
	LogFormat string `yaml:"log_format" default:"json"`
}

// Default returns a config with every default applied
func Default() *Config {
	return &Config{
		Bot: BotConfig{
			Workers:     8,
			PollTimeout: 60,
		},
		TMDB: TMDBConfig{
			Timeout: 4 * time.Second,
		},
		Watch: WatchConfig{
			PerDomain:   4,
			TotalLimit:  20,
			Concurrency: 8,
			Timeout:     3500 * time.Millisecond,
			InsecureTLS: true,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "bot.db",
		},
		Cache: CacheConfig{
			TTL:       30 * time.Minute,
			MetaSize:  512,
			WatchSize: 1024,
		},
		RateLimit: RateLimitConfig{
			PerMinute: 20,
			Burst:     5,
		},
		Server: ServerConfig{
			Addr:      ":9090",
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Load builds the runtime config: defaults, optional YAML file named by
// CINEMABOT_CONFIG, .env in the working directory, then the environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// existing environment wins over .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	LoadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Store.Driver == "sqlite" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("config: working directory: %w", err)
		}
		resolved, err := ResolveDBPath(cfg.Store.Path, wd)
		if err != nil {
			return nil, err
		}
		cfg.Store.Path = resolved
	}

	return cfg, nil
}

// LoadFile overlays a YAML file onto cfg
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate checks required fields. Secrets are trimmed first.
func (c *Config) Validate() error {
	c.Bot.Token = strings.TrimSpace(c.Bot.Token)
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))

	if c.Bot.Token == "" {
		return ErrMissingToken
	}
	if c.TMDB.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Bot.Workers <= 0 {
		return ErrInvalidWorkers
	}

	switch c.Store.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Store.Path) == "" {
			c.Store.Path = "bot.db"
		}
	case "postgres":
		if c.Store.DSN == "" {
			return ErrMissingDSN
		}
	default:
		return ErrInvalidDriver
	}
	return nil
}

// StoreDSN returns the data source name for the configured driver
func (c *Config) StoreDSN() string {
	if c.Store.Driver == "postgres" {
		return c.Store.DSN
	}
	return c.Store.Path
}

// ResolveDBPath expands ~, anchors relative paths at base and makes sure
// the parent directory exists.
func ResolveDBPath(raw, base string) (string, error) {
	p := strings.TrimSpace(raw)
	if p == "" {
		p = "bot.db"
	}

	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("config: home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}

	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}

	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil {
		return "", fmt.Errorf("config: create db directory: %w", err)
	}
	return p, nil
}
