package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/shopledger/shopledger/internal/app"
	"github.com/shopledger/shopledger/internal/observability"
	"github.com/shopledger/shopledger/internal/platform/cache"
	"github.com/shopledger/shopledger/internal/reports"
	reporthttp "github.com/shopledger/shopledger/internal/reports/http"
	"github.com/shopledger/shopledger/internal/source"
	"github.com/shopledger/shopledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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
	metrics := observability.NewMetrics()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, snapshot cache and exports disabled", slog.Any("error", err))
			redisClient = nil
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
		}
	}

	stack, err := app.BuildSource(ctx, cfg, logger, redisClient, metrics)
	if err != nil {
		logger.Error("build source", slog.Any("error", err))
		os.Exit(1)
	}
	defer stack.Close()

	loc, _ := cfg.Location()
	service := reports.NewService(stack.Loader, reports.Options{
		Location: loc,
		Basis:    cfg.RevenueBasis(),
		Logger:   logger,
		Observer: metrics,
	})

	readiness := map[string]app.Pinger{"source": stack.Ping}
	handlerOpts := reporthttp.Options{
		Timeout:         cfg.AppRequestTimeout,
		ExportRateLimit: cfg.ExportRateLimit,
	}
	var jobHandler *jobs.Handler
	if redisClient != nil {
		readiness["redis"] = app.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
		handlerOpts.Cache = stack.Cache

		if err := stack.Cache.ListenForInvalidation(ctx, source.BumpChannel); err != nil {
			logger.Warn("snapshot invalidation listener", slog.Any("error", err))
		}

		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		client := jobs.NewClient(redisOpts)
		defer func() { _ = client.Close() }()
		handlerOpts.Exports = client

		inspector := asynq.NewInspector(redisOpts)
		defer func() { _ = inspector.Close() }()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		jobHandler = jobs.NewHandler(nil, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		ReportHandler: reporthttp.NewHandler(logger, service, handlerOpts),
		JobHandler:    jobHandler,
		Metrics:       metrics,
		Readiness:     readiness,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
