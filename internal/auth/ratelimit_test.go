package auth

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func TestRedisFailureLimiterAllowsUnderBudget(t *testing.T) {
	rdb := newTestRedis(t)
	limiter := NewRedisFailureLimiter(rdb, silentLogger(), 3, time.Minute)

	if !limiter.Allow("1.2.3.4") {
		t.Fatal("Allow() = false on first attempt, want true")
	}
	limiter.RecordFailure("1.2.3.4")
	limiter.RecordFailure("1.2.3.4")
	if !limiter.Allow("1.2.3.4") {
		t.Fatal("Allow() = false under budget, want true")
	}
}

func TestRedisFailureLimiterBlocksOverBudget(t *testing.T) {
	rdb := newTestRedis(t)
	limiter := NewRedisFailureLimiter(rdb, silentLogger(), 2, time.Minute)

	limiter.RecordFailure("5.6.7.8")
	limiter.RecordFailure("5.6.7.8")
	if limiter.Allow("5.6.7.8") {
		t.Fatal("Allow() = true over budget, want false")
	}
}

func TestRedisFailureLimiterIsolatesByAddress(t *testing.T) {
	rdb := newTestRedis(t)
	limiter := NewRedisFailureLimiter(rdb, silentLogger(), 1, time.Minute)

	limiter.RecordFailure("9.9.9.9")
	if limiter.Allow("9.9.9.9") {
		t.Fatal("Allow() = true over budget for 9.9.9.9, want false")
	}
	if !limiter.Allow("1.1.1.1") {
		t.Fatal("Allow() = false for unrelated address, want true")
	}
}

func TestRedisFailureLimiterFailsOpenWhenRedisUnavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	limiter := NewRedisFailureLimiter(rdb, silentLogger(), 1, time.Minute)

	if !limiter.Allow("unreachable") {
		t.Fatal("Allow() = false with redis unreachable, want true (fail open)")
	}
}
