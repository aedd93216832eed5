package logger

import (
	"context"
	"strconv"
	"strings"
	"unicode"
)

type ctxKey int

const (
	requestKey ctxKey = iota
	handlerKey
)

// Request identifies the Telegram update being processed.
type Request struct {
	RID      string
	UpdateID int
	UserID   int64
	ChatID   int64
}

// NewRequest builds a Request with its correlation id.
func NewRequest(updateID int, chatID, userID int64) Request {
	return Request{
		RID:      BuildRID(updateID, chatID, userID),
		UpdateID: updateID,
		UserID:   userID,
		ChatID:   chatID,
	}
}

// WithRequest stores update identifiers for every line logged under ctx.
func WithRequest(ctx context.Context, r Request) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestKey, r)
}

// RequestFrom returns the identifiers stored by WithRequest.
func RequestFrom(ctx context.Context) (Request, bool) {
	if ctx == nil {
		return Request{}, false
	}
	r, ok := ctx.Value(requestKey).(Request)
	return r, ok
}

// RIDFrom returns the correlation id stored in ctx, if any.
func RIDFrom(ctx context.Context) string {
	r, _ := RequestFrom(ctx)
	return r.RID
}

// WithHandler names the route handling the update.
func WithHandler(ctx context.Context, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, handlerKey, name)
}

// HandlerFrom returns the handler name stored by WithHandler.
func HandlerFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(handlerKey).(string)
	return s
}

// BuildRID formats a correlation id as updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	return strconv.Itoa(updateID) + ":" + strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(userID, 10)
}

// CompactRID rewrites each numeric segment of a RID in base36, joined by
// dots. Anything else is returned unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}

// Clean drops control and format runes except newline and tab, then cuts the
// result to max runes.
func Clean(s string, max int) string {
	if max <= 0 || s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	n := 0
	for _, r := range s {
		if r != '\n' && r != '\t' && (unicode.IsControl(r) || unicode.Is(unicode.Cf, r)) {
			continue
		}
		if n == max {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
