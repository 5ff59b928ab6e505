// Package redis provides Redis implementations of storage ports.
//
// Usage events live in sorted sets scored by unix milliseconds: one set per
// identity holding every event, and one per identity and action. Counting
// "every action except X" subtracts the per-action set from the full set.
// User ids and guest addresses are base64url encoded in keys.
package redis

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures a Redis connection.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string        // defaults to "documind"
	Retention time.Duration // 0 keeps keys forever
}

// Client wraps a go-redis client with key naming.
type Client struct {
	rdb       *redis.Client
	prefix    string
	retention time.Duration
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, opts Options) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return newClient(rdb, opts), nil
}

func newClient(rdb *redis.Client, opts Options) *Client {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "documind"
	}
	return &Client{rdb: rdb, prefix: prefix, retention: opts.Retention}
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// segment encodes a caller-supplied key segment so it cannot contain ':'.
func segment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}
