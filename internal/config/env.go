package config

import (
	"os"
	"strconv"
	"strings"
)

// EnvConfigFile names the optional YAML config file
const EnvConfigFile = "CINEMABOT_CONFIG"

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv(cfg *Config) {
	if v, ok := os.LookupEnv("BOT_TOKEN"); ok {
		cfg.Bot.Token = v
	}
	if v, ok := os.LookupEnv("TMDB_API_KEY"); ok {
		cfg.TMDB.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("DB_PATH")); v != "" {
		cfg.Store.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("DB_DRIVER")); v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.DSN = v
	}
	if v, ok := os.LookupEnv("TMDB_DEBUG"); ok {
		cfg.TMDB.Debug = IsTruthy(v)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Server.LogFormat = v
	}
	// METRICS_ADDR="" explicitly disables the ops server
	if v, ok := os.LookupEnv("METRICS_ADDR"); ok {
		cfg.Server.Addr = strings.TrimSpace(v)
	}

	if v := os.Getenv("BOT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bot.Workers = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.PerMinute = n
		}
	}
}

// IsTruthy reports whether v is one of 1, true, yes, on
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
