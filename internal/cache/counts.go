package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CountCache holds dashboard tile counts for a short TTL.
type CountCache interface {
	Get(ctx context.Context, table string) (int64, bool, error)
	Set(ctx context.Context, table string, count int64) error
}

type countCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCountCache(client *redis.Client, ttl time.Duration) CountCache {
	return &countCache{client: client, ttl: ttl}
}

// Connect parses REDIS_URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func countKey(table string) string {
	return fmt.Sprintf("dashboard:count:%s", table)
}

func (c *countCache) Get(ctx context.Context, table string) (int64, bool, error) {
	raw, err := c.client.Get(ctx, countKey(table)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func (c *countCache) Set(ctx context.Context, table string, count int64) error {
	return c.client.Set(ctx, countKey(table), count, c.ttl).Err()
}

// Noop never hits; used when Redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (int64, bool, error) { return 0, false, nil }

func (Noop) Set(context.Context, string, int64) error { return nil }
