package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnly lets only the configured admin through. With AdminID unset every
// sender is rejected.
func AdminOnly(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if u := c.Sender(); u == nil || opts.AdminID == 0 || u.ID != opts.AdminID {
				return reject(c, opts.OnReject)
			}
			return next(c)
		}
	}
}

// ChatOnly lets through updates originating in chatID only.
func ChatOnly(chatID int64, onReject tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if chat := c.Chat(); chat == nil || chatID == 0 || chat.ID != chatID {
				return reject(c, onReject)
			}
			return next(c)
		}
	}
}

func reject(c tele.Context, onReject tele.HandlerFunc) error {
	if onReject != nil {
		return onReject(c)
	}
	if c.Callback() != nil {
		return c.Respond()
	}
	return nil
}
