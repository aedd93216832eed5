// Package logger provides context-first structured logging on top of slog.
// Every line carries a component and an event; request identifiers stored in
// the context by the Telegram middleware are attached automatically.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/m3rciful/teambot/core/buildinfo"
	coreconfig "github.com/m3rciful/teambot/core/config"
)

var (
	initOnce sync.Once

	closeMu sync.Mutex
	closed  bool
	sink    *asyncSink
	files   []io.Closer

	level   slog.LevelVar
	debugSampler = newSampler(1, 50)
	trace   bool

	base = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// Init configures the process-wide logger. Calls after the first are no-ops.
func Init(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		err = setup(cfg)
	})
	return err
}

func setup(cfg *coreconfig.Config) error {
	var lc coreconfig.LoggingConfig
	if cfg != nil {
		lc = cfg.Logging
	}
	level.Set(parseLevel(lc.Level))
	debugSampler.Set(parseSample(lc.DebugSample))
	trace = truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE"))

	outputs, closers, err := openOutputs(lc)
	if err != nil {
		return err
	}
	files = closers
	sink = newAsyncSink(outputs, 256)

	base = slog.New(newHandler(handlerOptions{
		level:  &level,
		out:    sink,
		format: parseFormat(lc),
		order:  parseOrder(lc.KeysOrder),
	}))
	slog.SetDefault(base)

	Info(context.Background(), "app", "startup",
		append(buildinfo.Attrs(), slog.String("cfg_profile", profile(lc)))...,
	)
	return nil
}

// Shutdown drains buffered lines and closes log files.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if sink != nil {
		errs = append(errs, sink.Close())
	}
	for _, c := range files {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Component returns the base logger scoped to a component.
func Component(name string) *slog.Logger {
	name = strings.TrimSpace(name)
	if name == "" {
		return base
	}
	return base.With(slog.String("component", name))
}

// Log writes one event line for component at the given level.
func Log(ctx context.Context, component string, lvl slog.Level, event string, attrs ...slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	l := Component(component)
	if !l.Enabled(ctx, lvl) {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	l.LogAttrs(ctx, lvl, event, attrs...)
}

// Debug logs a debug event.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info event.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warning event.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error event.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, component, slog.LevelError, event, attrs...)
}

// SampleDebug reports whether a high-volume debug detail should be written.
// TRACE=1 disables sampling.
func SampleDebug() bool {
	return trace || debugSampler.Allow()
}

func openOutputs(lc coreconfig.LoggingConfig) ([]io.Writer, []io.Closer, error) {
	writers := []io.Writer{os.Stdout}
	dir := strings.TrimSpace(lc.Dir)
	name := strings.TrimSpace(lc.BotFile)
	if dir == "" || name == "" {
		return writers, nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: create log dir %s: %v", dir, err)
		return writers, nil, nil
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: open log file %s: %v", path, err)
		return writers, nil, nil
	}
	return append(writers, f), []io.Closer{f}, nil
}

func parseFormat(lc coreconfig.LoggingConfig) format {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	switch profile(lc) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func parseOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return DefaultKeyOrder()
	}
	var order []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			order = append(order, p)
		}
	}
	if len(order) == 0 {
		return DefaultKeyOrder()
	}
	return order
}

func profile(lc coreconfig.LoggingConfig) string {
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		return p
	}
	return "prod"
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
