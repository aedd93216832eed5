package bot

import (
	"github.com/google/uuid"

	"github.com/m3rciful/teambot/core/telegram/keyboard"
	"github.com/m3rciful/teambot/internal/application"

	tele "gopkg.in/telebot.v4"
)

// Button uniques. Payloads follow the unique after a "|".
const (
	keyForm   = "form"
	keyAvail  = "avail"
	keyExp    = "exp"
	keyReview = "review"
)

const (
	formStart  = "start"
	formResume = "resume"
	formReset  = "reset"
)

func startKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: buttonStart, Unique: keyForm, Data: formStart}},
	)
}

func resumeKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: buttonResume, Unique: keyForm, Data: formResume},
		{Text: buttonReset, Unique: keyForm, Data: formReset},
	})
}

func availabilityKeyboard() *tele.ReplyMarkup {
	var buttons []keyboard.InlineBtn
	for _, a := range application.Availabilities() {
		buttons = append(buttons, keyboard.InlineBtn{Text: a.Label(), Unique: keyAvail, Data: string(a)})
	}
	return keyboard.InlineButtonsNPerRow(buttons, 1)
}

func experienceKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: buttonYes, Unique: keyExp, Data: application.ExperienceYes},
		{Text: buttonNo, Unique: keyExp, Data: application.ExperienceNo},
	})
}

func reviewKeyboard(id uuid.UUID) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: buttonApprove, Unique: keyReview, Data: id.String() + "|" + string(application.DecisionApprove)},
		{Text: buttonReject, Unique: keyReview, Data: id.String() + "|" + string(application.DecisionReject)},
	})
}
