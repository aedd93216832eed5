package bot

import (
	"errors"
	"log/slog"

	"github.com/m3rciful/teambot/core/logger"
	"github.com/m3rciful/teambot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/teambot/core/telegram/helpers"
	"github.com/m3rciful/teambot/internal/application"

	tele "gopkg.in/telebot.v4"
)

// handleStart resolves the draft and shows the entry point that fits it.
func (b *Bot) handleStart(c tele.Context) error {
	if !private(c) {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	res, err := b.svc.Resolve(ctx, applicant(c))
	if err != nil {
		return fail(c, err)
	}
	if done, err := b.closed(c, res); done {
		return err
	}
	if res.Reapplied() {
		if err := c.Send(textRejectedRetry); err != nil {
			return err
		}
	}
	if res.Application.Step == application.StepSource {
		return tghelpers.SendHTML(c, textWelcome, startKeyboard())
	}
	return c.Send(textResumeOrReset, resumeKeyboard())
}

// closed answers resolutions that leave nothing to fill in. It reports
// whether the update was fully handled.
func (b *Bot) closed(c tele.Context, res application.Resolution) (bool, error) {
	var text string
	switch res.Outcome {
	case application.OutcomeAlreadyApproved:
		text = textAlreadyApproved
	case application.OutcomeSubmitted:
		text = textAlreadySent
	default:
		return false, nil
	}
	if c.Callback() != nil {
		return true, c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
	}
	return true, c.Send(text)
}

// handleForm serves the start, resume and reset buttons.
func (b *Bot) handleForm(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	action := callbacks.Payload(c)
	res, err := b.svc.Resolve(ctx, applicant(c))
	if err != nil {
		return fail(c, err)
	}
	if done, err := b.closed(c, res); done {
		return err
	}
	app := res.Application

	switch action {
	case formStart:
		if app.Step == application.StepSource {
			if err := tghelpers.EditOrSendHTML(c, textQuestionSource); err != nil {
				return err
			}
			return c.Respond()
		}
		return b.ask(c, app)
	case formResume:
		return b.ask(c, app)
	case formReset:
		app, err = b.svc.Reset(ctx, app)
		if errors.Is(err, application.ErrNotResettable) {
			return c.Respond(&tele.CallbackResponse{Text: textAlreadySent, ShowAlert: true})
		}
		if err != nil {
			return fail(c, err)
		}
		if err := tghelpers.EditOrSendHTML(c, textWelcome, startKeyboard()); err != nil {
			return err
		}
		return c.Respond()
	}

	logger.Debug(ctx, component, "form.unknown",
		slog.String("status", "skip"),
		slog.String("payload", logger.Clean(action, 64)),
	)
	return c.Respond(&tele.CallbackResponse{Text: textStale})
}

// ask shows the question app is waiting for, replacing the pressed message
// when there is one.
func (b *Bot) ask(c tele.Context, app *application.Application) error {
	var err error
	switch app.Step {
	case application.StepSource:
		err = tghelpers.EditOrSendHTML(c, textWelcome, startKeyboard())
	case application.StepAvailability:
		err = tghelpers.EditOrSendHTML(c, textQuestionAvailability, availabilityKeyboard())
	case application.StepExperience:
		err = tghelpers.EditOrSendHTML(c, textQuestionExperience, experienceKeyboard())
	default:
		err = c.Send(textAlreadySent)
	}
	if err != nil || c.Callback() == nil {
		return err
	}
	return c.Respond()
}

// handleText takes the answer to the source question. Text at any other
// step brings the current question back.
func (b *Bot) handleText(c tele.Context) error {
	if !private(c) {
		return b.UnknownText()(c)
	}
	ctx := tghelpers.BuildContext(c)
	res, err := b.svc.Resolve(ctx, applicant(c))
	if err != nil {
		return fail(c, err)
	}
	if done, err := b.closed(c, res); done {
		return err
	}
	app := res.Application
	if res.Outcome == application.OutcomeCreated {
		// the user has not seen the first question yet
		if res.Reapplied() {
			if err := c.Send(textRejectedRetry); err != nil {
				return err
			}
		}
		return tghelpers.SendHTML(c, textWelcome, startKeyboard())
	}
	if app.Step != application.StepSource {
		return b.ask(c, app)
	}

	app, advanced, err := b.svc.SubmitSource(ctx, app, c.Text())
	if ve, ok := application.IsValidation(err); ok && ve.Reason == application.ReasonTooShort {
		return c.Send(textSourceTooShort)
	}
	if err != nil {
		return fail(c, err)
	}
	if !advanced {
		return b.ask(c, app)
	}
	return tghelpers.SendHTML(c, textQuestionAvailability, availabilityKeyboard())
}

// handleAvailability takes the answer to the availability question.
func (b *Bot) handleAvailability(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	app, ok, err := b.inProgress(c)
	if !ok {
		return err
	}
	app, advanced, err := b.svc.SubmitAvailability(ctx, app, callbacks.Payload(c))
	if _, invalid := application.IsValidation(err); invalid {
		return c.Respond(&tele.CallbackResponse{Text: textInvalidChoice, ShowAlert: true})
	}
	if err != nil {
		return fail(c, err)
	}
	if !advanced {
		return c.Respond()
	}
	if err := tghelpers.EditOrSendHTML(c, textQuestionExperience, experienceKeyboard()); err != nil {
		return err
	}
	return c.Respond()
}

// handleExperience takes the last answer, finalizes the application and
// posts it to the review chat.
func (b *Bot) handleExperience(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	app, ok, err := b.inProgress(c)
	if !ok {
		return err
	}
	app, advanced, err := b.svc.SubmitExperience(ctx, app, callbacks.Payload(c))
	if _, invalid := application.IsValidation(err); invalid {
		return c.Respond(&tele.CallbackResponse{Text: textInvalidChoice, ShowAlert: true})
	}
	if err != nil {
		return fail(c, err)
	}
	if !advanced {
		return c.Respond()
	}

	b.notify(ctx, c.Bot(), "review.post", b.reviewChatID, reviewSummary(app), reviewKeyboard(app.ID))
	if err := tghelpers.EditOrSendHTML(c, textSubmitted); err != nil {
		return err
	}
	return c.Respond()
}

// inProgress resolves the draft behind a step button. ok is false when the
// update was already answered.
func (b *Bot) inProgress(c tele.Context) (*application.Application, bool, error) {
	res, err := b.svc.Resolve(tghelpers.BuildContext(c), applicant(c))
	if err != nil {
		return nil, false, fail(c, err)
	}
	if done, err := b.closed(c, res); done {
		return nil, false, err
	}
	return res.Application, true, nil
}
