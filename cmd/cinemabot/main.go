// cmd/cinemabot/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/oklog/run"
	"go.uber.org/zap"

	"github.com/MikePodsytnik/cinemabot/internal/api"
	"github.com/MikePodsytnik/cinemabot/internal/bot"
	"github.com/MikePodsytnik/cinemabot/internal/config"
	"github.com/MikePodsytnik/cinemabot/internal/database"
	"github.com/MikePodsytnik/cinemabot/internal/logging"
	"github.com/MikePodsytnik/cinemabot/internal/metrics"
	"github.com/MikePodsytnik/cinemabot/internal/ratelimit"
	"github.com/MikePodsytnik/cinemabot/internal/tmdb"
	"github.com/MikePodsytnik/cinemabot/internal/watchlinks"
)

const limiterIdle = 30 * time.Minute

func main() {
	if err := runBot(); err != nil {
		fmt.Fprintln(os.Stderr, "cinemabot:", err)
		os.Exit(1)
	}
}

func runBot() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, level, err := logging.New(&logging.LoggerConfig{
		Level:  cfg.Server.LogLevel,
		Format: cfg.Server.LogFormat,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := tgbotapi.SetLogger(zap.NewStdLog(logger.Named("tgbotapi"))); err != nil {
		return fmt.Errorf("telegram logger: %w", err)
	}

	store, err := database.Open(database.Config{Driver: cfg.Store.Driver, DSN: cfg.StoreDSN()})
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	err = store.Init(initCtx)
	cancelInit()
	if err != nil {
		return err
	}
	logger.Info("store ready", zap.String("driver", cfg.Store.Driver))

	m := metrics.New()

	movies := tmdb.NewClient(cfg.TMDB.APIKey, logger,
		tmdb.WithBaseURL(cfg.TMDB.BaseURL),
		tmdb.WithImageBaseURL(cfg.TMDB.ImageBaseURL),
		tmdb.WithTimeout(cfg.TMDB.Timeout),
		tmdb.WithDebug(cfg.TMDB.Debug),
		tmdb.WithObserver(m.ObserveTMDB),
	)

	probeClient := watchlinks.NewProbeClient(cfg.Watch.Timeout, cfg.Watch.InsecureTLS, cfg.Watch.Concurrency)
	finder := watchlinks.NewFinder(
		watchlinks.NewDuckDuckGo(watchlinks.NewSearchClient(watchlinks.DefaultSearchTimeout), cfg.Watch.SearchURL, logger),
		watchlinks.NewProber(probeClient),
		watchlinks.FinderConfig{
			PerDomain:   cfg.Watch.PerDomain,
			TotalLimit:  cfg.Watch.TotalLimit,
			Concurrency: cfg.Watch.Concurrency,
		},
		logger,
	)
	finder.OnProbe(m.IncProbe)

	// long polling holds the request open for PollTimeout seconds
	tgClient := &http.Client{Timeout: time.Duration(cfg.Bot.PollTimeout+10) * time.Second}
	tg, err := bot.NewTelegram(cfg.Bot.Token, "", tgClient, cfg.Bot.PollTimeout, logger)
	if err != nil {
		return err
	}

	limiter := ratelimit.NewUserLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
	handler := bot.NewHandler(bot.Deps{
		Movies:  movies,
		Links:   finder,
		Store:   store,
		Sender:  tg,
		Limiter: limiter,
		Metrics: m,
		Logger:  logger,
	}, bot.CacheConfig{
		TTL:       cfg.Cache.TTL,
		MetaSize:  cfg.Cache.MetaSize,
		WatchSize: cfg.Cache.WatchSize,
	})

	var g run.Group

	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return tg.Run(ctx, handler, cfg.Bot.Workers)
		}, func(error) {
			cancel()
		})
	}

	if cfg.Server.Addr != "" {
		srv := api.NewServer(cfg.Server.Addr, store, m, logger)
		g.Add(srv.Start, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		})
	}

	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			t := time.NewTicker(limiterIdle)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-t.C:
					if n := limiter.Cleanup(limiterIdle); n > 0 {
						logger.Debug("rate limiter cleanup", zap.Int("removed", n))
					}
				}
			}
		}, func(error) {
			cancel()
		})
	}

	if path := os.Getenv(config.EnvConfigFile); path != "" {
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return config.Watch(ctx, path, logger, func(next *config.Config) {
				if err := logging.SetLevel(level, next.Server.LogLevel); err != nil {
					logger.Warn("ignoring log level", zap.String("level", next.Server.LogLevel), zap.Error(err))
					return
				}
				logger.Info("log level changed", zap.String("level", next.Server.LogLevel))
			})
		}, func(error) {
			cancel()
		})
	}

	g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))

	err = g.Run()

	var sig run.SignalError
	if errors.As(err, &sig) {
		logger.Info("shutting down", zap.String("signal", sig.Signal.String()))
		return nil
	}
	return err
}
