// Package cache holds the optional Redis-backed cart count cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cartCountKeyPrefix      = "storefront:cart:count:"
	cartGenerationKeyPrefix = "storefront:cart:gen:"
	generationTTL           = 24 * time.Hour
)

// CartCounter caches the number of live lines in a user's cart. Every
// Invalidate bumps the user's generation; Set only stores a count computed
// under the generation it was read at, so a count loaded before a concurrent
// mutation is never written back.
type CartCounter interface {
	Get(ctx context.Context, userID string) (count int64, ok bool, err error)
	Generation(ctx context.Context, userID string) (int64, error)
	Set(ctx context.Context, userID string, generation, count int64) error
	Invalidate(ctx context.Context, userID string) error
}

// RedisCartCounter is the go-redis implementation of CartCounter.
type RedisCartCounter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCartCounter connects to redisURL and pings the server.
func NewRedisCartCounter(redisURL string, ttl time.Duration) (*RedisCartCounter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisCartCounter{client: client, ttl: ttl}, nil
}

func (c *RedisCartCounter) Close() error {
	return c.client.Close()
}

func (c *RedisCartCounter) Get(ctx context.Context, userID string) (int64, bool, error) {
	raw, err := c.client.Get(ctx, cartCountKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read cart count: %w", err)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cart count %q: %w", raw, err)
	}
	return n, true, nil
}

func (c *RedisCartCounter) Generation(ctx context.Context, userID string) (int64, error) {
	gen, err := c.client.Get(ctx, cartGenerationKeyPrefix+userID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cart generation: %w", err)
	}
	return gen, nil
}

// Set stores count unless the generation moved past generation. The check
// and the write run under WATCH.
func (c *RedisCartCounter) Set(ctx context.Context, userID string, generation, count int64) error {
	genKey := cartGenerationKeyPrefix + userID
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cartCountKeyPrefix+userID, count, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to write cart count: %w", err)
	}
	return nil
}

func (c *RedisCartCounter) Invalidate(ctx context.Context, userID string) error {
	genKey := cartGenerationKeyPrefix + userID
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, cartCountKeyPrefix+userID)
		return nil
	})
	return err
}

// NopCartCounter never caches.
type NopCartCounter struct{}

func (NopCartCounter) Get(context.Context, string) (int64, bool, error)  { return 0, false, nil }
func (NopCartCounter) Generation(context.Context, string) (int64, error) { return 0, nil }
func (NopCartCounter) Set(context.Context, string, int64, int64) error   { return nil }
func (NopCartCounter) Invalidate(context.Context, string) error          { return nil }
