package infra

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// OptionalRedisClient returns a nil client without error when no URL is
// configured. Redis is an optional dependency here; the server degrades to
// log-only fulfillment and no idempotency replay without it.
func OptionalRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	return NewRedisClient(ctx, url)
}

// NewRedisClient configures a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
