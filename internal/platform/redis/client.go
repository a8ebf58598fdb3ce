// Package redis holds the shared connection behind the fundraiser stats
// cache. Redis is optional: with no URL configured the stats endpoint reads
// the stores directly.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"reitvest/internal/platform/config"
)

// Client is the process-wide Redis handle.
type Client struct {
	*redis.Client
}

// New connects using the configured URL and verifies the connection with a
// ping. A blank URL means Redis is not configured; both the client and the
// error are nil in that case.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health reports whether the connection still answers pings.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.Client.Close()
}
