package router

import (
	tg "github.com/m3rciful/teambot/core/telegram"
	"github.com/m3rciful/teambot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls how plain text and documents are handled.
type TextOptions struct {
	// Text receives every text that is not a registered command or alias.
	Text            tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
	Recorder        middleware.Recorder
}

// TextRoutes builds handlers for text and document updates. Command aliases
// typed as plain text are resolved through the registry first.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	s := summary{rec: opts.Recorder}
	text := func(c tele.Context) error {
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return s.run(c, handlerName("cmd.", key), "", func() error { return cmd.Handler(c) })
			}
		}
		if opts.Text != nil {
			return s.run(c, "text", "", func() error { return opts.Text(c) })
		}
		if reg != nil && reg.TextFallback() != nil {
			return s.run(c, "fallback", "", func() error { return reg.TextFallback()(c) })
		}
		return s.run(c, "unknown_text", "skip", nil)
	}

	doc := func(c tele.Context) error {
		if opts.UnknownDocument != nil {
			return s.run(c, "unexpected_document", "", func() error { return opts.UnknownDocument(c) })
		}
		return s.run(c, "unexpected_document", "skip", nil)
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: text},
		{Endpoint: tele.OnDocument, Handler: doc},
	}
}
