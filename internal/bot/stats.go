package bot

import (
	tghelpers "github.com/m3rciful/teambot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

func (b *Bot) handleStats(c tele.Context) error {
	counts, err := b.svc.Stats(tghelpers.BuildContext(c))
	if err != nil {
		return fail(c, err)
	}
	return tghelpers.SendHTML(c, statsText(counts, b.clock.Now()))
}
