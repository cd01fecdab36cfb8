package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "  123:abc  ")
	t.Setenv("TMDB_API_KEY", "key")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "data", "bot.db"))
	t.Setenv(EnvConfigFile, "")
}

func TestLoad(t *testing.T) {
	t.Run("loads required values and trims them", func(t *testing.T) {
		// Arrange
		setRequired(t)

		// Act
		cfg, err := Load()

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "123:abc", cfg.Bot.Token)
		assert.Equal(t, "key", cfg.TMDB.APIKey)
		assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
		assert.Equal(t, 512, cfg.Cache.MetaSize)
		assert.Equal(t, 1024, cfg.Cache.WatchSize)
		assert.DirExists(t, filepath.Dir(cfg.Store.Path))
	})

	t.Run("missing bot token", func(t *testing.T) {
		setRequired(t)
		t.Setenv("BOT_TOKEN", "   ")

		_, err := Load()
		assert.ErrorIs(t, err, ErrMissingToken)
		assert.EqualError(t, err, "BOT_TOKEN is required")
	})

	t.Run("missing tmdb key", func(t *testing.T) {
		setRequired(t)
		t.Setenv("TMDB_API_KEY", "")

		_, err := Load()
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("postgres needs dsn", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DB_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "")

		_, err := Load()
		assert.ErrorIs(t, err, ErrMissingDSN)
	})

	t.Run("yaml file then env override", func(t *testing.T) {
		setRequired(t)
		path := filepath.Join(t.TempDir(), "cinemabot.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
bot:
  workers: 3
cache:
  ttl: 5m
server:
  log_level: debug
`), 0600))
		t.Setenv(EnvConfigFile, path)
		t.Setenv("LOG_LEVEL", "warn")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Bot.Workers)
		assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
		assert.Equal(t, "warn", cfg.Server.LogLevel)
	})

	t.Run("yaml driver is case insensitive", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DB_DRIVER", "")
		path := filepath.Join(t.TempDir(), "cinemabot.yaml")
		require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: SQLite\n"), 0600))
		t.Setenv(EnvConfigFile, path)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "sqlite", cfg.Store.Driver)
		assert.True(t, filepath.IsAbs(cfg.Store.Path))
	})

	t.Run("bad yaml file", func(t *testing.T) {
		setRequired(t)
		path := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("bot: [\n"), 0600))
		t.Setenv(EnvConfigFile, path)

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadFromEnv(t *testing.T) {
	t.Run("tmdb debug truthy values", func(t *testing.T) {
		for _, v := range []string{"1", "true", "YES", " on "} {
			t.Setenv("TMDB_DEBUG", v)
			cfg := Default()
			LoadFromEnv(cfg)
			assert.True(t, cfg.TMDB.Debug, v)
		}
		t.Setenv("TMDB_DEBUG", "nope")
		cfg := Default()
		LoadFromEnv(cfg)
		assert.False(t, cfg.TMDB.Debug)
	})

	t.Run("empty metrics addr disables server", func(t *testing.T) {
		t.Setenv("METRICS_ADDR", "")
		cfg := Default()
		LoadFromEnv(cfg)
		assert.Empty(t, cfg.Server.Addr)
	})

	t.Run("ignores malformed numbers", func(t *testing.T) {
		t.Setenv("BOT_WORKERS", "many")
		cfg := Default()
		LoadFromEnv(cfg)
		assert.Equal(t, 8, cfg.Bot.Workers)
	})
}

func TestResolveDBPath(t *testing.T) {
	base := t.TempDir()

	t.Run("relative path anchored at base", func(t *testing.T) {
		p, err := ResolveDBPath("nested/dir/bot.db", base)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, "nested", "dir", "bot.db"), p)
		assert.DirExists(t, filepath.Join(base, "nested", "dir"))
	})

	t.Run("absolute path kept", func(t *testing.T) {
		abs := filepath.Join(t.TempDir(), "x.db")
		p, err := ResolveDBPath(abs, base)
		require.NoError(t, err)
		assert.Equal(t, abs, p)
	})

	t.Run("empty falls back to bot.db", func(t *testing.T) {
		p, err := ResolveDBPath("  ", base)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, "bot.db"), p)
	})

	t.Run("tilde expands to home", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)

		p, err := ResolveDBPath("~/cinema/bot.db", base)

		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "cinema", "bot.db"), p)
		assert.DirExists(t, filepath.Join(home, "cinema"))
	})
}

// watchConfig starts Watch on a file holding initial and returns the
// channel fed by its callback.
func watchConfig(t *testing.T, initial string) (string, <-chan *Config) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cinemabot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(initial), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, zap.NewNop(), func(c *Config) {
			select {
			case got <- c:
			default:
			}
		})
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	return path, got
}

// awaitReload waits until a reloaded config satisfies match.
// A truncating write may surface as several events.
func awaitReload(t *testing.T, got <-chan *Config, match func(*Config) bool) *Config {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-got:
			if match(c) {
				return c
			}
		case <-deadline:
			t.Fatal("no reload observed")
			return nil
		}
	}
}

func TestWatch(t *testing.T) {
	t.Run("reloads file content", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		path, got := watchConfig(t, "server:\n  log_level: info\n")

		require.NoError(t, os.WriteFile(path, []byte("server:\n  log_level: debug\n"), 0600))

		awaitReload(t, got, func(c *Config) bool { return c.Server.LogLevel == "debug" })
	})

	t.Run("environment still wins after reload", func(t *testing.T) {
		// Arrange
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("BOT_WORKERS", "")
		path, got := watchConfig(t, "bot:\n  workers: 2\n")

		// Act
		require.NoError(t, os.WriteFile(path, []byte("bot:\n  workers: 3\n"), 0600))

		// Assert
		c := awaitReload(t, got, func(c *Config) bool { return c.Bot.Workers == 3 })
		assert.Equal(t, "debug", c.Server.LogLevel)
	})
}
