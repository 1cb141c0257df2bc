package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/monoledger/monoledger/config"
	"github.com/redis/go-redis/v9"
)

// Client wraps a go-redis client used for the scheduler's optional
// distributed per-user lock. Nothing else in this repo depends on Redis —
// the ledger, user config, report cache and NLQ memory stores are all
// on-disk and work with Client nil.
type Client struct {
	c *redis.Client
}

// New creates a Redis client from the provided config. Returns an error
// if the Redis URL cannot be parsed; it does not contact the server
// (reachability is checked by Ping).
func New(cfg *config.Config) (*Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	r := redis.NewClient(opt)
	return &Client{c: r}, nil
}

func (r *Client) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return r.c.Ping(ctx).Err()
}

// TryLock attempts to acquire a named lock for ttl using SETNX semantics.
// Returns true if the lock was acquired by this call.
func (r *Client) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.c.SetNX(ctx, "lock:"+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis lock %s: %w", key, err)
	}
	return ok, nil
}

// Unlock releases a previously acquired lock. Best-effort: a missed unlock
// self-heals once the TTL expires.
func (r *Client) Unlock(ctx context.Context, key string) error {
	return r.c.Del(ctx, "lock:"+key).Err()
}
