package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces every rate-limit key this package writes.
const redisKeyPrefix = "auth:failcount:"

// RedisFailureLimiter rate-limits authentication failures per remote address
// using a Redis counter with a sliding window, generalized from the
// teacher's login rate limiter from "attempts per username" to "failed
// API-key/device-token/session validations per IP" — an ambient security
// concern this package carries regardless of whether callers ask for it.
type RedisFailureLimiter struct {
	rdb    *redis.Client
	logger *slog.Logger

	maxAttempts int
	window      time.Duration
}

// NewRedisFailureLimiter creates a limiter allowing maxAttempts failures per
// window before Allow starts returning false.
func NewRedisFailureLimiter(rdb *redis.Client, logger *slog.Logger, maxAttempts int, window time.Duration) *RedisFailureLimiter {
	return &RedisFailureLimiter{rdb: rdb, logger: logger, maxAttempts: maxAttempts, window: window}
}

func (l *RedisFailureLimiter) key(remoteAddr string) string {
	return redisKeyPrefix + remoteAddr
}

// Allow reports whether remoteAddr is still under its failure budget. Redis
// unavailability fails open — a degraded rate limiter must not take down
// authentication entirely.
func (l *RedisFailureLimiter) Allow(remoteAddr string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	count, err := l.rdb.Get(ctx, l.key(remoteAddr)).Int()
	if err != nil {
		if err != redis.Nil {
			l.logger.Warn("auth rate limiter: redis read failed", "error", err)
		}
		return true
	}
	return count < l.maxAttempts
}

// RecordFailure increments the failure counter for remoteAddr, resetting its
// TTL to the configured window.
func (l *RedisFailureLimiter) RecordFailure(remoteAddr string) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	key := l.key(remoteAddr)
	pipe := l.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("auth rate limiter: redis write failed", "error", err)
	}
}

var _ FailureLimiter = (*RedisFailureLimiter)(nil)
