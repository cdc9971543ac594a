package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-catalog/internal/app"
	"github.com/odyssey-erp/odyssey-catalog/internal/catalog"
	"github.com/odyssey-erp/odyssey-catalog/internal/observability"
	"github.com/odyssey-erp/odyssey-catalog/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-catalog/internal/platform/db"
	"github.com/odyssey-erp/odyssey-catalog/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	catalogRepo := catalog.NewPostgresRepository(dbpool)
	if !cfg.IsProduction() {
		if err := catalogRepo.EnsureSchema(ctx); err != nil {
			logger.Warn("ensure catalog schema", slog.Any("error", err))
		}
	}
	versions := catalog.NewVersionStore(redisClient)
	catalogService := catalog.NewService(catalogRepo, versions, logger, metrics.Catalog(), cfg.CatalogService())
	if err := catalogService.Warm(ctx); err != nil {
		logger.Warn("initial index warm", slog.Any("error", err))
	}
	go func() {
		if err := catalogService.WatchInvalidation(ctx, versions); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("catalog invalidation watcher", slog.Any("error", err))
		}
	}()
	catalogHandler := catalog.NewHandler(logger, catalogService)

	queueOpt, err := cfg.QueueRedis()
	if err != nil {
		logger.Error("queue redis options", slog.Any("error", err))
		os.Exit(1)
	}
	inspector := asynq.NewInspector(queueOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		CatalogHandler: catalogHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	if err := app.Serve(ctx, server, logger); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
