// Package redis wraps go-redis/v9 with the byte-oriented get/set and prefix
// invalidation the shared query cache needs.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/config"
	"github.com/redis/go-redis/v9"
)

// scanPage is both the SCAN COUNT hint and the delete batch size.
const scanPage = 100

type Client struct {
	rdb *redis.Client
}

// NewClient connects and fails fast when the server does not answer PING
// within five seconds.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	c := &Client{rdb: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		c.rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return c, nil
}

// Get returns the raw value under key. A missing key yields an error for
// which IsNilError is true.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.rdb.Get(ctx, key).Bytes()
}

func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// FlushByPattern deletes every key matching the glob pattern and reports how
// many were removed. Keys are collected with SCAN and deleted one page per
// pipeline round trip.
func (c *Client) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	page := make([]string, 0, scanPage)

	drain := func() error {
		if len(page) == 0 {
			return nil
		}
		cmds, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			for _, k := range page {
				p.Del(ctx, k)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("deleting %d keys: %w", len(page), err)
		}
		for _, cmd := range cmds {
			deleted += cmd.(*redis.IntCmd).Val()
		}
		page = page[:0]
		return nil
	}

	it := c.rdb.Scan(ctx, 0, pattern, scanPage).Iterator()
	for it.Next(ctx) {
		page = append(page, it.Val())
		if len(page) < scanPage {
			continue
		}
		if err := drain(); err != nil {
			return deleted, err
		}
	}
	if err := it.Err(); err != nil {
		return deleted, fmt.Errorf("scanning %q: %w", pattern, err)
	}
	return deleted, drain()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// IsNilError reports whether err means the key does not exist.
func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}
