package callbacks

import (
	"strconv"
	"strings"

	"github.com/m3rciful/teambot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Payload returns the data attached to the current callback button.
func Payload(c tele.Context) string {
	_, payload := middleware.ParseCallback(c.Callback())
	return payload
}

// PayloadParts splits the payload into exactly n parts on sep.
func PayloadParts(c tele.Context, sep string, n int) ([]string, error) {
	p := Payload(c)
	if p == "" {
		return nil, strconv.ErrSyntax
	}
	parts := strings.SplitN(p, sep, n)
	if len(parts) != n {
		return nil, strconv.ErrSyntax
	}
	return parts, nil
}
