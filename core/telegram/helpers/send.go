package helpers

import (
	"errors"

	tele "gopkg.in/telebot.v4"
)

// HTML returns send options for HTML parse mode with optional markup.
func HTML(markup *tele.ReplyMarkup) *tele.SendOptions {
	return &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		ReplyMarkup:           markup,
		DisableWebPagePreview: true,
	}
}

// SendHTML sends an HTML message to the current chat.
func SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return c.Send(text, HTML(first(markup)))
}

// EditOrSendHTML edits the message carrying the pressed button, or sends a
// new message for plain updates. An edit that would not change anything is
// not an error.
func EditOrSendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	err := c.EditOrSend(text, HTML(first(markup)))
	if errors.Is(err, tele.ErrSameMessageContent) {
		return nil
	}
	return err
}

func first(markup []*tele.ReplyMarkup) *tele.ReplyMarkup {
	if len(markup) > 0 {
		return markup[0]
	}
	return nil
}
