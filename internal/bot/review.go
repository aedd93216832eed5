package bot

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/m3rciful/teambot/core/logger"
	"github.com/m3rciful/teambot/core/telegram/callbacks"
	"github.com/m3rciful/teambot/core/telegram/format"
	tghelpers "github.com/m3rciful/teambot/core/telegram/helpers"
	"github.com/m3rciful/teambot/internal/application"

	tele "gopkg.in/telebot.v4"
)

// handleReview applies an Approve or Reject press from the review chat.
// Only the first decision on an application takes effect.
func (b *Bot) handleReview(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	parts, err := callbacks.PayloadParts(c, "|", 2)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: textStale})
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		logger.Warn(ctx, component, "review.bad_id",
			slog.String("status", "skip"),
			slog.String("payload", logger.Clean(parts[0], 64)),
		)
		return c.Respond(&tele.CallbackResponse{Text: textReviewNotFound, ShowAlert: true})
	}
	decision, ok := application.ParseDecision(parts[1])
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: textStale})
	}

	result, err := b.svc.Adjudicate(ctx, id, decision, c.Sender().ID)
	switch {
	case errors.Is(err, application.ErrNotFound):
		return c.Respond(&tele.CallbackResponse{Text: textReviewNotFound, ShowAlert: true})
	case errors.Is(err, application.ErrNotActionable):
		return c.Respond(&tele.CallbackResponse{Text: textReviewDone, ShowAlert: true})
	case err != nil:
		return fail(c, err)
	}

	app := result.Application
	if result.Approved() {
		text := textApproved
		if b.inviteLink != "" {
			text += "\n\n" + fmt.Sprintf(textInvite, format.HTML(b.inviteLink))
		}
		b.notify(ctx, c.Bot(), "notify.approved", app.UserID, text, nil)
	} else {
		b.notify(ctx, c.Bot(), "notify.rejected", app.UserID, textRejected, nil)
	}

	// editing without markup drops the review buttons
	if err := tghelpers.EditOrSendHTML(c, reviewSummary(app)); err != nil {
		logger.Warn(ctx, component, "review.edit",
			slog.String("status", "fail"),
			slog.String("application_id", app.ID.String()),
			slog.String("err", err.Error()),
		)
	}
	return c.Respond(&tele.CallbackResponse{Text: textReviewUpdated})
}
