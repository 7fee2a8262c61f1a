package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client holds the shared go-redis connection used by the login rate
// limiter and the readiness check.
type Client struct {
	rdb *redis.Client
}

// NewClient dials Redis from a connection URL such as
// "redis://localhost:6379/0".
func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Client{rdb: redis.NewClient(opts)}, nil
}

// Ping reports whether Redis is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
