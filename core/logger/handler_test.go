package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestLogger(t *testing.T, f format) (*slog.Logger, func() string) {
	t.Helper()
	buf := &bytes.Buffer{}
	s := newAsyncSink([]io.Writer{buf}, 16)
	h := newHandler(handlerOptions{level: slog.LevelDebug, out: s, format: f})
	return slog.New(h), func() string {
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		return strings.TrimSpace(buf.String())
	}
}

func TestHandlerKVOrder(t *testing.T) {
	log, read := newTestLogger(t, formatKV)
	ctx := WithRequest(context.Background(), Request{RID: "rid-123", UpdateID: 42, UserID: 7, ChatID: 9})

	log.With("component", "service.applications").LogAttrs(ctx, slog.LevelInfo, "",
		slog.String("event", "step.advanced"),
		slog.String("status", "OK"),
		slog.String("step", "source"),
		slog.String("application_id", "a1"),
	)

	tokens := strings.Split(read(), " ")
	want := []string{
		"ts=", "level=INFO", "component=service.applications", "event=step.advanced",
		"status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9",
		"application_id=a1", "step=source",
	}
	if len(tokens) < len(want) {
		t.Fatalf("too few tokens: %v", tokens)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, want prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestHandlerJSONCompactRID(t *testing.T) {
	log, read := newTestLogger(t, formatJSON)
	ctx := WithRequest(context.Background(), NewRequest(12, 34, 56))

	log.LogAttrs(ctx, slog.LevelError, "review.failed",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Any("err", io.ErrUnexpectedEOF),
	)

	var got map[string]any
	if err := json.Unmarshal([]byte(read()), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	checks := map[string]any{
		"level":       "ERROR",
		"component":   "app",
		"event":       "review.failed",
		"rid":         CompactRID("12:34:56"),
		"rid_full":    "12:34:56",
		"duration_ms": float64(2),
		"err":         io.ErrUnexpectedEOF.Error(),
	}
	for k, want := range checks {
		if got[k] != want {
			t.Errorf("%s = %v, want %v", k, got[k], want)
		}
	}
	if _, ok := got["ts_unix_nano"]; !ok {
		t.Error("ts_unix_nano missing")
	}
}

func TestHandlerKVOmitsFullRIDAndEmptyValues(t *testing.T) {
	log, read := newTestLogger(t, formatKV)
	ctx := WithRequest(context.Background(), NewRequest(1, 2, 3))

	log.InfoContext(ctx, "rid.test", slog.String("username", ""), slog.String("payload", "a b"))

	line := read()
	if !strings.Contains(line, "rid=1.2.3") {
		t.Fatalf("expected compact rid, got %s", line)
	}
	for _, absent := range []string{"rid_full=", "username=", "ts_unix_nano="} {
		if strings.Contains(line, absent) {
			t.Fatalf("%s should be omitted, got %s", absent, line)
		}
	}
	if !strings.Contains(line, `payload="a b"`) {
		t.Fatalf("expected quoted payload, got %s", line)
	}
}

func TestCompactRID(t *testing.T) {
	cases := map[string]string{
		"35:36:71": "z.10.1z",
		"1:2":      "1:2",
		"a:b:c":    "a:b:c",
		"":         "",
	}
	for in, want := range cases {
		if got := CompactRID(in); got != want {
			t.Errorf("CompactRID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSampler(t *testing.T) {
	s := newSampler(parseSample("2/4"))
	var passed int
	for range 8 {
		if s.Allow() {
			passed++
		}
	}
	if passed != 4 {
		t.Fatalf("passed %d of 8, want 4", passed)
	}

	s.Set(parseSample("0"))
	if !s.Allow() {
		t.Fatal("disabled sampler must allow every event")
	}
}

func TestClean(t *testing.T) {
	if got := Clean("a\x00b\u200bc\td", 10); got != "abc\td" {
		t.Fatalf("Clean = %q", got)
	}
	if got := Clean("привет", 3); got != "при" {
		t.Fatalf("Clean limit = %q", got)
	}
}
