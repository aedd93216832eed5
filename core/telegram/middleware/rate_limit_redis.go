package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/teambot/core/logger"
)

// windowScript counts hits in a fixed window that starts with the first hit.
const windowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// RedisLimiter shares the per-key window between bot replicas. Redis errors
// fail open.
type RedisLimiter struct {
	client  redis.Scripter
	script  *redis.Script
	prefix  string
	window  time.Duration
	limit   int
	timeout time.Duration
}

// NewRedisLimiter allows limit events per window for every key.
func NewRedisLimiter(client redis.Scripter, prefix string, window time.Duration, limit int) *RedisLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &RedisLimiter{
		client:  client,
		script:  redis.NewScript(windowScript),
		prefix:  prefix,
		window:  window,
		limit:   limit,
		timeout: 250 * time.Millisecond,
	}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil || l.window <= 0 || key == "" {
		return true
	}
	if l.prefix != "" {
		key = l.prefix + ":" + key
	}
	ttl := max(l.window.Milliseconds(), 1)

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	ok, err := l.script.Run(ctx, l.client, []string{key}, ttl, l.limit).Int64()
	if err != nil {
		logger.Warn(ctx, "tg", "rate_limit.redis",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return true
	}
	return ok == 1
}
