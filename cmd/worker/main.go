package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/mostrador/mostrador/internal/app"
	"github.com/mostrador/mostrador/internal/catalog"
	"github.com/mostrador/mostrador/internal/orderstore"
	"github.com/mostrador/mostrador/jobs"
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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	refClient := catalog.NewClient(cfg.RefDataURL)
	loader := catalog.NewLoader(refClient, redisClient, logger, cfg.CatalogTTL)
	store := orderstore.NewClient(cfg.OrderStoreURL)

	refreshJob := jobs.NewCatalogRefreshJob(loader, logger)
	snapshotJob := jobs.NewAllocationSnapshotJob(store, redisClient, logger)

	refreshTask, err := jobs.NewCatalogRefreshTask(false)
	if err != nil {
		logger.Error("build catalog refresh task", slog.Any("error", err))
		os.Exit(1)
	}
	snapshotTask, err := jobs.NewAllocationSnapshotTask()
	if err != nil {
		logger.Error("build allocation snapshot task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCatalogRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskAllocationSnapshot, Handler: snapshotJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/10 * * * *", Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "*/15 * * * *", Task: snapshotTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
