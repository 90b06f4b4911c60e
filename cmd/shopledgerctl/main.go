package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/hibiken/asynq"

	"github.com/shopledger/shopledger/cmd/shopledgerctl/cli"
	"github.com/shopledger/shopledger/internal/app"
	"github.com/shopledger/shopledger/internal/platform/cache"
	"github.com/shopledger/shopledger/internal/source"
)

func main() {
	if app.InTestMode() {
		return
	}
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)
	loc, _ := cfg.Location()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client := asynq.NewClient(redisOpts)
	defer func() { _ = client.Close() }()
	inspector := asynq.NewInspector(redisOpts)
	defer func() { _ = inspector.Close() }()

	ops := &cli.OpsCLI{
		Client:    client,
		Inspector: inspector,
		Location:  loc,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
	if len(os.Args) > 1 && os.Args[1] == "cache" {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			return 1
		}
		defer func() { _ = redisClient.Close() }()
		// Bumping only touches the version key, so it must work even when
		// this process has caching disabled.
		ops.Cache = source.NewCache(redisClient, time.Minute, nil, "snapshot", logger)
	}
	return ops.Run(ctx, os.Args[1:])
}
