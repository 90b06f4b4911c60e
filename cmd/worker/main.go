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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopledger/shopledger/internal/app"
	jobmetrics "github.com/shopledger/shopledger/internal/jobs"
	"github.com/shopledger/shopledger/internal/platform/cache"
	"github.com/shopledger/shopledger/internal/reports"
	"github.com/shopledger/shopledger/internal/reports/export"
	"github.com/shopledger/shopledger/jobs"
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
	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

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

	stack, err := app.BuildSource(ctx, cfg, logger, redisClient, nil)
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
	})
	metrics := jobmetrics.NewMetrics(nil)

	exportJob := export.NewJob(export.JobConfig{
		Reports:    service,
		StorageDir: cfg.ExportDir,
		Logger:     logger,
		Metrics:    metrics,
	})
	warmupJob := jobs.NewSnapshotWarmupJob(stack.Loader, logger, metrics)

	var cron []jobs.CronRegistration
	if cfg.WarmupSchedule != "" && cfg.SnapshotCacheTTL > 0 {
		cron = append(cron, jobs.CronRegistration{Spec: cfg.WarmupSchedule, Task: jobs.NewSnapshotWarmupTask()})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Location:    loc,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskExportReport, Handler: exportJob.Handle},
			{Type: jobs.TaskSnapshotWarmup, Handler: warmupJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics listener", slog.Any("error", err))
			}
		}()
		defer func() { _ = metricsSrv.Close() }()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
