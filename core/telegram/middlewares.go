package telegram

import (
	"strings"

	"github.com/m3rciful/teambot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// ChainOptions configures DefaultMiddlewares.
type ChainOptions struct {
	Limiter   middleware.Limiter
	Exclude   []string
	Recorder  middleware.Recorder
	OnLimited tele.HandlerFunc
}

// DefaultMiddlewares builds the global chain: panic recovery, request
// context, then rate limiting when a limiter is set.
func DefaultMiddlewares(opts ChainOptions) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.Recover},
		{Name: "request", Use: middleware.Request(opts.Recorder)},
	}
	if opts.Limiter != nil {
		exclude := make(map[string]struct{}, len(opts.Exclude))
		for _, kind := range opts.Exclude {
			if kind = strings.ToLower(strings.TrimSpace(kind)); kind != "" {
				exclude[kind] = struct{}{}
			}
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimit(middleware.RateLimitOptions{
				Limiter:   opts.Limiter,
				Exclude:   exclude,
				Recorder:  opts.Recorder,
				OnLimited: opts.OnLimited,
			}),
		})
	}
	return mws
}
