package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"bulk-sender/internal/config"
)

// Client wraps a Redis client with configuration.
type Client struct {
	native *redis.Client
}

// NewClient creates a new Redis client and checks the connection.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Client{native: rdb}, nil
}

// Native returns the underlying client for pipelines.
func (c *Client) Native() *redis.Client {
	return c.native
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.native.Close()
}
