package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wrc-program/attendance/internal/clock"
)

const redisKeyPrefix = "rl:v1:"

// Redis is a fixed-window limiter shared by every instance pointing at the
// same Redis. The first hit in a window sets the key expiry.
type Redis struct {
	cache  *redis.Client
	limit  int
	period time.Duration
	clock  clock.Clock
}

func NewRedis(cache *redis.Client, limit int, period time.Duration, clk clock.Clock) *Redis {
	if clk == nil {
		clk = clock.Real()
	}
	return &Redis{cache: cache, limit: limit, period: period, clock: clk}
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	k := redisKeyPrefix + key
	cnt, err := r.cache.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, err
	}
	if cnt == 1 {
		if err := r.cache.Expire(ctx, k, r.period).Err(); err != nil {
			return Decision{}, err
		}
	}

	ttl, err := r.cache.PTTL(ctx, k).Result()
	if err != nil {
		return Decision{}, err
	}
	if ttl < 0 {
		// Lost expiry (crash between INCR and EXPIRE); restart the window.
		ttl = r.period
		if err := r.cache.Expire(ctx, k, r.period).Err(); err != nil {
			return Decision{}, err
		}
	}

	d := Decision{Limit: r.limit, ResetAt: r.clock.Now().Add(ttl)}
	if cnt > int64(r.limit) {
		d.RetryAfter = ttl
		return d, nil
	}
	d.Allowed = true
	d.Remaining = r.limit - int(cnt)
	return d, nil
}
