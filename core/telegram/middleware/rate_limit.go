package middleware

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/m3rciful/teambot/core/logger"
	tghelpers "github.com/m3rciful/teambot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Limiter decides whether key may proceed now.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RateLimitOptions configures RateLimit. Exclude lists update kinds, as
// returned by UpdateKind, that bypass the limiter.
type RateLimitOptions struct {
	Limiter   Limiter
	Exclude   map[string]struct{}
	Recorder  Recorder
	OnLimited tele.HandlerFunc
}

// RateLimit drops updates from senders the limiter refuses.
func RateLimit(opts RateLimitOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Limiter == nil {
				return next(c)
			}
			kind := UpdateKind(c)
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			ctx := tghelpers.BuildContext(c)
			if opts.Limiter.Allow(ctx, strconv.FormatInt(user.ID, 10)) {
				return next(c)
			}

			if opts.Recorder != nil {
				opts.Recorder.RateLimited(kind)
			}
			logger.Warn(ctx, "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", kind),
			)
			if opts.OnLimited != nil {
				return opts.OnLimited(c)
			}
			if c.Callback() != nil {
				return c.Respond()
			}
			return nil
		}
	}
}

// MemoryLimiter enforces a minimum interval between events per key inside
// one process.
type MemoryLimiter struct {
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// NewMemoryLimiter returns a limiter allowing one event per interval per key.
func NewMemoryLimiter(interval time.Duration) *MemoryLimiter {
	return &MemoryLimiter{interval: interval, now: time.Now, last: make(map[string]time.Time)}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string) bool {
	if l.interval <= 0 {
		return true
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.last[key]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.last[key] = now
	if len(l.last) > 4096 {
		for k, t := range l.last {
			if now.Sub(t) >= l.interval {
				delete(l.last, k)
			}
		}
	}
	return true
}
