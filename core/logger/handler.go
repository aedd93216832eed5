package logger

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type format int

const (
	formatJSON format = iota
	formatKV
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

type handlerOptions struct {
	level  slog.Leveler
	out    lineWriter
	format format
	order  []string
}

type lineWriter interface {
	Write(line []byte) error
}

// handler renders records as single-line JSON or key=value text with a fixed
// leading key order. Attributes set through With are kept pre-flattened.
type handler struct {
	opts   handlerOptions
	preset []field
	prefix string
}

type field struct {
	key string
	val any
}

func newHandler(opts handlerOptions) *handler {
	if opts.level == nil {
		opts.level = slog.LevelInfo
	}
	if len(opts.order) == 0 {
		opts.order = DefaultKeyOrder()
	}
	return &handler{opts: opts}
}

func (h *handler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.opts.level.Level()
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	if h.opts.out == nil {
		return fmt.Errorf("logger: output not initialized")
	}
	isJSON := h.opts.format == formatJSON

	ts := r.Time.UTC()
	fields := map[string]any{
		"ts":    ts.Truncate(time.Millisecond).Format(tsLayout),
		"level": levelName(r.Level),
	}
	if isJSON {
		fields["ts_unix_nano"] = ts.UnixNano()
	}
	for _, f := range h.preset {
		fields[f.key] = f.val
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(h.prefix, a, fields)
		return true
	})
	fromContext(ctx, fields)

	if rid, _ := fields["rid"].(string); rid != "" {
		if short := CompactRID(rid); short != rid {
			fields["rid"] = short
			if isJSON {
				fields["rid_full"] = rid
			}
		}
	}
	if ev, _ := fields["event"].(string); ev == "" {
		fields["event"] = cmp.Or(r.Message, "unknown")
	}
	if c, _ := fields["component"].(string); c == "" {
		fields["component"] = "app"
	}
	if st, ok := fields["status"].(string); ok {
		fields["status"] = strings.ToLower(st)
	}
	for k, v := range fields {
		if s, ok := v.(string); ok && s == "" {
			delete(fields, k)
		}
	}

	keys := h.sortKeys(fields)
	var line []byte
	if isJSON {
		var err error
		if line, err = renderJSON(keys, fields); err != nil {
			return err
		}
	} else {
		line = renderKV(keys, fields)
	}
	return h.opts.out.Write(append(line, '\n'))
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make(map[string]any, len(attrs))
	for _, a := range attrs {
		flatten(h.prefix, a, fields)
	}
	clone := *h
	clone.preset = slices.Clone(h.preset)
	for k, v := range fields {
		clone.preset = append(clone.preset, field{key: k, val: v})
	}
	return &clone
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

// sortKeys lists configured keys first, then the rest alphabetically.
func (h *handler) sortKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	known := make(map[string]bool, len(h.opts.order))
	for _, k := range h.opts.order {
		known[k] = true
		if _, ok := fields[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range fields {
		if !known[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

func flatten(prefix string, a slog.Attr, into map[string]any) {
	a.Value = a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if a.Value.Kind() == slog.KindGroup {
		for _, child := range a.Value.Group() {
			flatten(key, child, into)
		}
		return
	}
	if key == "" {
		return
	}
	k, v, ok := convert(key, a.Value)
	if ok {
		into[k] = v
	}
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// convert maps slog values onto JSON-friendly scalars. Durations become
// whole milliseconds under a *_ms key.
func convert(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return msKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func msKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}

func fromContext(ctx context.Context, fields map[string]any) {
	if req, ok := RequestFrom(ctx); ok {
		setDefault(fields, "rid", req.RID, req.RID != "")
		setDefault(fields, "update_id", int64(req.UpdateID), req.UpdateID != 0)
		setDefault(fields, "user_id", req.UserID, req.UserID != 0)
		setDefault(fields, "chat_id", req.ChatID, req.ChatID != 0)
	}
	if name := HandlerFrom(ctx); name != "" {
		setDefault(fields, "handler", name, true)
	}
}

func setDefault(fields map[string]any, key string, val any, present bool) {
	if !present {
		return
	}
	if _, ok := fields[key]; !ok {
		fields[key] = val
	}
}

func renderJSON(keys []string, fields map[string]any) ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = append(buf, '{')
	for i, k := range keys {
		data, err := json.Marshal(fields[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		buf = append(buf, data...)
	}
	return append(buf, '}'), nil
}

func renderKV(keys []string, fields map[string]any) []byte {
	buf := make([]byte, 0, 256)
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, k...)
		buf = append(buf, '=')
		s := fmt.Sprint(fields[k])
		if strings.IndexFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) >= 0 {
			buf = strconv.AppendQuote(buf, s)
		} else {
			buf = append(buf, s...)
		}
	}
	return buf
}

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
