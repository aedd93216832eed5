package router

import (
	"log/slog"

	tg "github.com/m3rciful/teambot/core/telegram"
	"github.com/m3rciful/teambot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises callback routing.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
	Recorder middleware.Recorder
}

// CallbackRoute routes every inline button press through the registry by
// its unique key.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	s := summary{rec: opts.Recorder}
	handler := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		key, _ := middleware.ParseCallback(cb)
		name := handlerName("callback.", key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		if h, ok := reg.GetCallback(key); ok {
			return s.run(c, name, "", func() error { return h(c) }, extras...)
		}

		fallback := reg.CallbackNotFound()
		if fallback == nil {
			fallback = opts.NotFound
		}
		extras = append(extras, slog.String("reason", "not_found"))
		return s.run(c, name, "skip", func() error {
			if fallback != nil {
				return fallback(c)
			}
			return c.Respond()
		}, extras...)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}
