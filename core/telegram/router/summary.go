// Package router dispatches commands, callbacks and text through the
// registry and writes one handler.handled line per update.
package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/teambot/core/logger"
	tghelpers "github.com/m3rciful/teambot/core/telegram/helpers"
	"github.com/m3rciful/teambot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

type summary struct {
	rec middleware.Recorder
}

// run executes fn under handler name and logs its outcome. status overrides
// the derived ok/fail value when non-empty.
func (s summary) run(c tele.Context, name, status string, fn func() error, extras ...slog.Attr) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, name)
	var err error
	if fn != nil {
		err = fn()
	}

	if status == "" {
		status = "ok"
		if err != nil {
			status = "fail"
		}
	}
	took := time.Since(start)
	if s.rec != nil {
		s.rec.Handled(name, status, took)
	}

	attrs := append([]slog.Attr{
		slog.String("status", status),
		slog.Duration("duration", took),
	}, extras...)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.Clean(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.Info(ctx, "tg", "handler.handled", attrs...)
	return err
}

func handlerName(prefix, key string) string {
	key = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(key), "/"))
	if key == "" {
		key = "unknown"
	}
	return prefix + strings.ReplaceAll(key, " ", "_")
}

// errorCode prefers an explicit Code() anywhere in the chain, then the
// concrete type name.
func errorCode(err error) string {
	var coder interface{ Code() string }
	if errors.As(err, &coder) {
		if code := strings.TrimSpace(coder.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
