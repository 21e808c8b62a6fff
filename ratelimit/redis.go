package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of go-redis client methods used by RedisLimiter.
type RedisClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisConfig configures a RedisLimiter.
type RedisConfig struct {
	Prefix   string
	Requests int
	Period   time.Duration
}

// RedisLimiter is a fixed window counter kept in Redis, so that every
// process behind a load balancer shares one budget per key.
type RedisLimiter struct {
	cfg    RedisConfig
	client RedisClient
}

// ConnectRedis opens a client for opts and verifies the connection with
// PING.
func ConnectRedis(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ratelimit: redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}

// NewRedisLimiterWithClient creates a RedisLimiter backed by a pre-built client.
func NewRedisLimiterWithClient(cfg RedisConfig, client RedisClient) *RedisLimiter {
	if cfg.Requests <= 0 {
		cfg.Requests = 1
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Hour
	}
	return &RedisLimiter{cfg: cfg, client: client}
}

// Allow counts the request against key's current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := l.cfg.Prefix + key
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: incr %s: %w", k, err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.cfg.Period).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit: expire %s: %w", k, err)
		}
	}
	if n <= int64(l.cfg.Requests) {
		return Decision{Allowed: true}, nil
	}

	ttl, err := l.client.PTTL(ctx, k).Result()
	if err != nil || ttl <= 0 {
		// Counter lost its expiry; restore it so the key cannot stick.
		_ = l.client.Expire(ctx, k, l.cfg.Period).Err()
		ttl = l.cfg.Period
	}
	return Decision{Allowed: false, RetryAfter: ttl}, nil
}
