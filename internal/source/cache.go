package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/shopledger/shopledger/internal/billing"
)

const (
	cacheVersionKey = "shopledger:snapshot:version"
	// BumpChannel carries version bumps between API replicas.
	BumpChannel = "shopledger:snapshot.bump"
)

// Cache keeps fetched raw snapshots in Redis under a versioned key. Derived
// reports are never stored. Concurrent misses for the same key share one
// upstream fetch.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	fetcher Fetcher
	name    string
	logger  *slog.Logger
	group   singleflight.Group
}

// NewCache wraps a fetcher. A nil client or a non-positive ttl disables
// caching while keeping request collapsing.
func NewCache(client *redis.Client, ttl time.Duration, fetcher Fetcher, name string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		client = nil
	}
	return &Cache{client: client, ttl: ttl, fetcher: fetcher, name: name, logger: logger}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// Fetch implements Fetcher.
func (c *Cache) Fetch(ctx context.Context) (billing.RawSnapshot, error) {
	key, err := c.BuildKey(ctx, "shopledger", "snapshot", c.name)
	if err != nil {
		c.logger.Warn("snapshot cache version unavailable", slog.Any("error", err))
		key = strings.Join([]string{"shopledger", "snapshot", c.name}, ":")
	}

	result := c.group.DoChan(key, func() (interface{}, error) {
		// Detached so one caller's cancellation does not fail the others.
		return c.load(context.WithoutCancel(ctx), key)
	})
	select {
	case <-ctx.Done():
		return billing.RawSnapshot{}, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return billing.RawSnapshot{}, res.Err
		}
		return res.Val.(billing.RawSnapshot), nil
	}
}

func (c *Cache) load(ctx context.Context, key string) (billing.RawSnapshot, error) {
	var snap billing.RawSnapshot
	if c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			if err := json.Unmarshal(payload, &snap); err == nil {
				return snap, nil
			}
			c.logger.Warn("discarding unreadable snapshot", slog.String("key", key))
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("snapshot cache read failed", slog.String("key", key), slog.Any("error", err))
		}
	}

	snap, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return billing.RawSnapshot{}, err
	}
	if c.client == nil {
		return snap, nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return billing.RawSnapshot{}, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("snapshot cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return snap, nil
}

// Bump invalidates cached snapshots by incrementing the version and
// publishing it to the other replicas.
func (c *Cache) Bump(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return 0, err
	}
	return ver, c.client.Publish(ctx, BumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation follows version bumps published by writers such as
// the ERP backend. It returns once the subscription is established.
func (c *Cache) ListenForInvalidation(ctx context.Context, channel string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if channel == "" {
		channel = BumpChannel
	}
	pubsub := c.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if ver, err := strconv.ParseInt(msg.Payload, 10, 64); err == nil {
					if err := c.raiseVersion(ctx, ver); err != nil {
						c.logger.Warn("apply snapshot bump", slog.Any("error", err))
					}
					continue
				}
				if err := c.client.Incr(ctx, cacheVersionKey).Err(); err != nil {
					c.logger.Warn("apply snapshot bump", slog.Any("error", err))
				}
			}
		}
	}()
	return nil
}

// raiseVersion never moves the version backwards.
func (c *Cache) raiseVersion(ctx context.Context, ver int64) error {
	current, err := c.Version(ctx)
	if err != nil {
		return err
	}
	if ver <= current {
		return nil
	}
	return c.client.Set(ctx, cacheVersionKey, ver, 0).Err()
}
