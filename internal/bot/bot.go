// Package bot maps Telegram updates onto the application lifecycle: the
// intake conversation in private chats and the review buttons in the
// review group.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/juju/clock"

	"github.com/m3rciful/teambot/core/logger"
	tg "github.com/m3rciful/teambot/core/telegram"
	"github.com/m3rciful/teambot/core/telegram/commands"
	tghelpers "github.com/m3rciful/teambot/core/telegram/helpers"
	"github.com/m3rciful/teambot/core/telegram/middleware"
	tgsender "github.com/m3rciful/teambot/core/telegram/sender"
	"github.com/m3rciful/teambot/core/telegram/ui"
	"github.com/m3rciful/teambot/internal/application"

	tele "gopkg.in/telebot.v4"
)

const component = "bot"

// Options wires a Bot.
type Options struct {
	Service    *application.Service
	Dispatcher *tgsender.Dispatcher
	// ReviewChatID receives finalized applications and is the only chat
	// whose review buttons are honored.
	ReviewChatID int64
	InviteLink   string
	Clock        clock.Clock
}

// Bot holds the update handlers.
type Bot struct {
	svc          *application.Service
	dispatcher   *tgsender.Dispatcher
	reviewChatID int64
	inviteLink   string
	clock        clock.Clock
}

// New returns a Bot. Service and Dispatcher are required.
func New(opts Options) (*Bot, error) {
	if opts.Service == nil || opts.Dispatcher == nil {
		return nil, errors.New("bot: service and dispatcher are required")
	}
	if opts.ReviewChatID == 0 {
		return nil, errors.New("bot: review chat id is required")
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	return &Bot{
		svc:          opts.Service,
		dispatcher:   opts.Dispatcher,
		reviewChatID: opts.ReviewChatID,
		inviteLink:   opts.InviteLink,
		clock:        clk,
	}, nil
}

var _ ui.FallbackProvider = (*Bot)(nil)

// Register adds the commands and callback handlers to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	return errors.Join(
		reg.RegisterCommand("/start", commands.Command{
			Handler:     b.handleStart,
			Description: "Apply to the team",
		}),
		reg.RegisterCommand("/stats", commands.Command{
			Handler:     b.handleStats,
			Description: "Application counts by status",
			AdminOnly:   true,
		}),
		reg.RegisterCallback(keyForm, b.handleForm),
		reg.RegisterCallback(keyAvail, b.handleAvailability),
		reg.RegisterCallback(keyExp, b.handleExperience),
		reg.RegisterCallback(keyReview, middleware.ChatOnly(b.reviewChatID, b.rejectReview)(b.handleReview)),
	)
}

// Text handles free text that is not a command.
func (b *Bot) Text() tele.HandlerFunc { return b.handleText }

// UnknownText ignores text outside private chats.
func (b *Bot) UnknownText() tele.HandlerFunc {
	return func(tele.Context) error { return nil }
}

// UnknownDocument asks for text answers instead of files.
func (b *Bot) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		if !private(c) {
			return nil
		}
		return c.Send(textUnexpectedFile)
	}
}

// UnknownCallback clears the spinner of buttons from older layouts.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: textStale})
	}
}

// RateLimited tells throttled button presses to slow down; messages are
// dropped silently.
func (b *Bot) RateLimited() tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		return c.Respond(&tele.CallbackResponse{Text: textSlowDown})
	}
}

// AdminOnly answers non-admins calling an admin command.
func (b *Bot) AdminOnly() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Send(textAdminOnly)
	}
}

func (b *Bot) rejectReview(c tele.Context) error {
	logger.Warn(tghelpers.BuildContext(c), component, "review.rejected",
		slog.String("status", "skip"),
		slog.String("reason", "foreign_chat"),
	)
	return c.Respond(&tele.CallbackResponse{Text: textReviewForbidden, ShowAlert: true})
}

func applicant(c tele.Context) application.Applicant {
	u := c.Sender()
	if u == nil {
		return application.Applicant{}
	}
	return application.Applicant{
		UserID:   u.ID,
		Username: u.Username,
		FullName: strings.TrimSpace(u.FirstName + " " + u.LastName),
	}
}

func private(c tele.Context) bool {
	chat := c.Chat()
	return chat != nil && chat.Type == tele.ChatPrivate
}

// fail tells the user the action did not go through and hands err back to
// the router for logging.
func fail(c tele.Context, err error) error {
	if c.Callback() != nil {
		_ = c.Respond(&tele.CallbackResponse{Text: textTryLater, ShowAlert: true})
		return err
	}
	_ = c.Send(textTryLater)
	return err
}

// messenger is the part of the Bot API notifications need.
type messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// notify queues a message to chat. Delivery failures are logged by the
// dispatcher and never reach the caller.
func (b *Bot) notify(ctx context.Context, api messenger, action string, chat int64, text string, markup *tele.ReplyMarkup) {
	err := b.dispatcher.Enqueue(ctx, action, func(context.Context) error {
		_, err := api.Send(tele.ChatID(chat), text, tghelpers.HTML(markup))
		return err
	})
	if err != nil {
		logger.Error(ctx, component, "notify.enqueue",
			slog.String("status", "fail"),
			slog.String("op", action),
			slog.String("err", err.Error()),
		)
	}
}
