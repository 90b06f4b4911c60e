package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopledger/shopledger/internal/billing"
	"github.com/shopledger/shopledger/internal/platform/db"
	"github.com/shopledger/shopledger/internal/source"
)

// SourceStack is the snapshot pipeline shared by the API and the worker.
type SourceStack struct {
	Loader *source.Loader
	Cache  *source.Cache
	Ping   Pinger
	close  func()
}

// Close releases the upstream connections.
func (s *SourceStack) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// BuildSource connects the configured backend and wraps it with the Redis
// snapshot cache. A nil redis client disables caching.
func BuildSource(ctx context.Context, cfg *Config, logger *slog.Logger, client *redis.Client, obs source.FetchObserver) (*SourceStack, error) {
	kind, err := source.ParseKind(cfg.SourceKind)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	var (
		fetcher source.Fetcher
		ping    Pinger
		closeFn = func() {}
	)
	switch kind {
	case source.KindPostgres:
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		pg := source.NewPostgres(pool)
		fetcher, ping, closeFn = pg, pg, pool.Close
	case source.KindREST:
		rest := source.NewREST(cfg.SourceRESTURL, cfg.SourceRESTToken, cfg.SourceTimeout)
		fetcher, ping = rest, rest
	}

	fetcher = withTimeout(source.Observed(fetcher, string(kind), obs), cfg.SourceTimeout)
	cache := source.NewCache(client, cfg.SnapshotCacheTTL, fetcher, string(kind), logger)
	logger.Info("snapshot source ready",
		slog.String("kind", string(kind)),
		slog.Bool("cached", client != nil && cfg.SnapshotCacheTTL > 0),
		slog.String("timezone", loc.String()))

	return &SourceStack{
		Loader: source.NewLoader(cache, loc),
		Cache:  cache,
		Ping:   ping,
		close:  closeFn,
	}, nil
}

func withTimeout(f source.Fetcher, timeout time.Duration) source.Fetcher {
	if timeout <= 0 {
		return f
	}
	return source.FetcherFunc(func(ctx context.Context) (billing.RawSnapshot, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return f.Fetch(ctx)
	})
}
