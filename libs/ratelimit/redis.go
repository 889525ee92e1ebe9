// Package ratelimit provides a Redis-backed fixed-window limiter for
// outbound API calls. Telegram throttles bots per chat, and multiple worker
// instances may send concurrently, so the window must be shared.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	key    string
}

var redisFixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

func NewRedisLimiter(rdb *redis.Client, limit int, window time.Duration, key string) *RedisLimiter {
	if limit <= 0 {
		limit = 20
	}
	if window <= 0 {
		window = time.Minute
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "rl:outbound"
	}
	return &RedisLimiter{rdb: rdb, limit: limit, window: window, key: key}
}

// Acquire blocks until a send slot is available in the current window or the
// context is cancelled. Redis errors fail open: delivery matters more than
// precise pacing.
func (rl *RedisLimiter) Acquire(ctx context.Context) error {
	for {
		count, err := rl.incr(ctx, rl.key)
		if err != nil {
			return nil
		}
		if count <= int64(rl.limit) {
			return nil
		}

		ttl, err := rl.rdb.PTTL(ctx, rl.key).Result()
		if err != nil || ttl <= 0 {
			ttl = rl.window
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ttl):
		}
	}
}

func (rl *RedisLimiter) incr(ctx context.Context, key string) (int64, error) {
	ms := rl.window.Milliseconds()
	if ms <= 0 {
		ms = int64(time.Minute / time.Millisecond)
	}
	res, err := redisFixedWindowScript.Run(ctx, rl.rdb, []string{key}, ms).Result()
	if err != nil {
		return 0, err
	}
	switch v := res.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case string:
		// Lua sometimes returns strings depending on Redis config/driver conversions.
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected redis script result type %T", res)
	}
}
