// Package redis implements the durable stores on Redis: the watched wallet
// set and the per-watcher cycle state.
package redis

import (
	"context"

	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/pkg/resilience/retry"

	redis "github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every key written by this package.
const keyPrefix = "depositwatch"

type client struct {
	conn *redis.Client
}

// Close releases the connection pool.
func (c *client) Close() error {
	return c.conn.Close()
}

type config struct {
	retry retry.Retry
}

// Option customizes NewClient.
type Option func(*config)

// WithRetry sets the policy used while waiting for the server to answer the
// first PING.
func WithRetry(r retry.Retry) Option {
	return func(c *config) {
		c.retry = r
	}
}

// NewClient connects to the server at addr and checks it answers PING,
// retrying with the default retry policy.
func NewClient(ctx context.Context, addr, username, password string, db int, opts ...Option) (*client, error) {
	cfg := config{
		retry: retry.New(retry.WithOnRetry(func(n uint, err error) {
			logger.Warn(ctx, "redis not reachable yet", "attempt", n+1, "error", err)
		})),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	})

	err := cfg.retry.Execute(ctx, func() error {
		return conn.Ping(ctx).Err()
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &client{
		conn: conn,
	}, nil
}
