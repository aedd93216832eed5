package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/teambot/core/logger"
	tghelpers "github.com/m3rciful/teambot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Recorder receives per-update signals for metrics.
type Recorder interface {
	UpdateReceived(kind string)
	RateLimited(kind string)
	Handled(handler, status string, took time.Duration)
}

// UpdateKind names the update type: callback, message, command or other.
func UpdateKind(c tele.Context) string {
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil && strings.HasPrefix(upd.Message.Text, "/"):
		return "command"
	case upd.Message != nil:
		return "message"
	}
	return "other"
}

// Request stores a correlated logging context on every update and writes a
// sampled update.received debug line.
func Request(rec Recorder) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			var chatID, userID int64
			chat, user := c.Chat(), c.Sender()
			if chat != nil {
				chatID = chat.ID
			}
			if user != nil {
				userID = user.ID
			}
			ctx := logger.WithRequest(context.Background(), logger.NewRequest(c.Update().ID, chatID, userID))
			tghelpers.StoreContext(c, ctx)

			kind := UpdateKind(c)
			if rec != nil {
				rec.UpdateReceived(kind)
			}
			if logger.SampleDebug() {
				attrs := []slog.Attr{
					slog.String("status", "ok"),
					slog.String("kind", kind),
				}
				if chat != nil {
					attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
				}
				if user != nil && user.Username != "" {
					attrs = append(attrs, slog.String("username", logger.Clean(user.Username, 64)))
				}
				if cb := c.Callback(); cb != nil {
					unique, payload := ParseCallback(cb)
					attrs = append(attrs,
						slog.String("cb_key", logger.Clean(unique, 64)),
						slog.String("payload", logger.Clean(payload, 128)),
					)
				} else if text := c.Text(); text != "" {
					attrs = append(attrs, slog.Int("text_len", len([]rune(text))))
				}
				logger.Debug(ctx, "tg", "update.received", attrs...)
			}
			return next(c)
		}
	}
}

// ParseCallback splits callback data into the button unique key and its
// payload. telebot prefixes data built by ReplyMarkup.Data with \f.
func ParseCallback(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	unique, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}
