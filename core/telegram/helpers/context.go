// Package helpers bridges tele.Context with the context-first logger and
// wraps common reply shapes.
package helpers

import (
	"context"

	"github.com/m3rciful/teambot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "logger_ctx"

// StoreContext keeps ctx on the update for downstream handlers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// BuildContext returns the context stored by the request middleware, or
// builds one carrying the update identifiers.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(contextKey).(context.Context); ok {
		return ctx
	}
	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	ctx := logger.WithRequest(context.Background(), logger.NewRequest(c.Update().ID, chatID, userID))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler records the handler name in the stored context.
func WithHandler(c tele.Context, name string) context.Context {
	ctx := logger.WithHandler(BuildContext(c), name)
	StoreContext(c, ctx)
	return ctx
}
