package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-catalog/internal/app"
	"github.com/odyssey-erp/odyssey-catalog/internal/catalog"
	jobmetrics "github.com/odyssey-erp/odyssey-catalog/internal/jobs"
	"github.com/odyssey-erp/odyssey-catalog/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-catalog/internal/platform/db"
	"github.com/odyssey-erp/odyssey-catalog/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	versions := catalog.NewVersionStore(redisClient)
	catalogService := catalog.NewService(catalog.NewPostgresRepository(pool), versions, logger, nil, cfg.CatalogService())
	reindexJob := jobs.NewCatalogReindexJob(versions, catalogService, logger, jobmetrics.NewMetrics(nil))

	reindexTask, err := jobs.NewCatalogReindexTask(false, "scheduled")
	if err != nil {
		logger.Error("build reindex task", slog.Any("error", err))
		os.Exit(1)
	}

	queueOpt, err := cfg.QueueRedis()
	if err != nil {
		logger.Error("queue redis options", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: queueOpt,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCatalogReindex, Handler: reindexJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.CatalogReindexCron, Task: reindexTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
