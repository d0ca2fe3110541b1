package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores search results between identical queries. Failures are
// treated as misses.
type Cache interface {
	Get(ctx context.Context, key string) ([]Result, bool)
	Set(ctx context.Context, key string, results []Result, ttl time.Duration)
}

func cacheKey(query string) string {
	return "gameshelf:igdb:search:" + strings.ToLower(query)
}

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the redis server at rawURL (redis://...).
func NewRedisCache(ctx context.Context, rawURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]Result, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("search cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var results []Result
	if err := json.Unmarshal(data, &results); err != nil {
		slog.Warn("search cache entry unreadable", "key", key, "error", err)
		return nil, false
	}
	return results, true
}

func (c *RedisCache) Set(ctx context.Context, key string, results []Result, ttl time.Duration) {
	data, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		slog.Warn("search cache write failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
