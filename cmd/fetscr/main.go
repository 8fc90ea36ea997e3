package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/fetscr/internal/cache/memory"
	"github.com/kitbuilder587/fetscr/internal/config"
	"github.com/kitbuilder587/fetscr/internal/httpapi"
	"github.com/kitbuilder587/fetscr/internal/metrics"
	"github.com/kitbuilder587/fetscr/internal/ratelimit"
	"github.com/kitbuilder587/fetscr/internal/repository/postgres"
	"github.com/kitbuilder587/fetscr/internal/search"
	"github.com/kitbuilder587/fetscr/internal/search/google"
	"github.com/kitbuilder587/fetscr/internal/service"
	"github.com/kitbuilder587/fetscr/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	var fetcher search.PageFetcher = google.New(google.Config{
		APIKey:             cfg.Google.APIKey,
		CX:                 cfg.Google.CX,
		BaseURL:            cfg.Google.BaseURL,
		Timeout:            cfg.Google.Timeout,
		RequestsPerSecond:  cfg.Google.RequestsPerSecond,
		Burst:              cfg.Google.Burst,
		BreakerMaxFailures: uint32(max(cfg.Google.BreakerMaxFailures, 0)),
		BreakerTimeout:     cfg.Google.BreakerTimeout,
	}, logger, m)

	if cfg.Cache.TTL > 0 {
		pages := memory.NewWithContext[search.Page](ctx, cfg.Cache.TTL)
		fetcher = search.NewCachedFetcher(fetcher, pages, cfg.Cache.TTL, m)
	}

	accounts := postgres.NewAccountRepo(db)
	usage := postgres.NewUsageRepo(db)

	searchSvc := service.NewSearchService(service.SearchServiceDeps{
		Accounts: accounts,
		Usage:    usage,
		Fetcher:  fetcher,
		Logger:   logger,
		Metrics:  m,
		Config: service.SearchConfig{
			KeywordConcurrency: cfg.Search.KeywordConcurrency,
			StrictQuota:        cfg.Search.StrictQuota,
			Timeout:            cfg.Timeouts.Total,
		},
	})
	accountSvc := service.NewAccountService(accounts, usage, cfg.Search.HistoryLimit, logger)

	// один лимитер на оба транспорта
	limiter := ratelimit.NewWithContext(ctx, ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
	})

	g, gctx := errgroup.WithContext(ctx)

	srv := httpapi.New(httpapi.Config{Addr: cfg.HTTP.Addr}, httpapi.Deps{
		Search:   searchSvc,
		Accounts: accountSvc,
		Limiter:  limiter,
		Logger:   logger,
		Metrics:  m,
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if cfg.Telegram.Token != "" {
		bot, err := telegram.New(telegram.BotConfig{
			Token: cfg.Telegram.Token,
			Debug: cfg.Telegram.Debug,
		}, searchSvc, accountSvc, limiter, logger, m)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			return bot.Run(gctx)
		})
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN not set, bot disabled")
	}

	logger.Info("fetscr started",
		zap.String("http_addr", cfg.HTTP.Addr),
		zap.Bool("strict_quota", cfg.Search.StrictQuota),
		zap.Duration("cache_ttl", cfg.Cache.TTL),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("fetscr stopped")
	return nil
}
