package logger

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"op",
	"cb_key",
	"application_id",
	"step",
	"next_step",
	"app_status",
	"decision",
	"reviewer_id",
	"reason",
	"duration_ms",
	"mode",
	"listen",
	"public_url",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"retryable",
	"attempts",
	"backoff_ms",
}

// DefaultKeyOrder returns a copy of the leading key order used when
// logging.keys_order is unset.
func DefaultKeyOrder() []string {
	return append([]string(nil), defaultKeyOrder...)
}

// Status maps an error onto the status attribute value.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RoundMS rounds d to whole milliseconds; negative values become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// Since is RoundMS(time.Since(start)).
func Since(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// Summarize joins at most limit values and reports whether some were left out.
func Summarize(values []string, limit int) (string, bool) {
	if limit <= 0 {
		return "", len(values) > 0
	}
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return strings.Join(values[:limit], ", "), true
}

// sampler passes num out of every den events.
type sampler struct {
	mu       sync.Mutex
	num, den int
	n        int
}

func newSampler(num, den int) *sampler {
	s := &sampler{}
	s.Set(num, den)
	return s
}

func (s *sampler) Set(num, den int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if num <= 0 || den <= 0 {
		num, den = 0, 0
	}
	s.num, s.den, s.n = min(num, den), den, 0
}

func (s *sampler) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.den == 0 {
		return true
	}
	s.n = s.n%s.den + 1
	return s.n <= s.num
}

// parseSample reads "N/M" or "M" (meaning 1/M). Empty keeps 1/50; "0"
// disables sampling.
func parseSample(raw string) (int, int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, 50
	}
	if a, b, ok := strings.Cut(raw, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(a))
		den, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 == nil && err2 == nil && num > 0 && den > 0 {
			return num, den
		}
		return 1, 50
	}
	v, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return 1, 50
	case v <= 0:
		return 0, 0
	}
	return 1, v
}
