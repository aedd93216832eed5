package telegram

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/teambot/core/config"

	tele "gopkg.in/telebot.v4"
)

// allowedUpdates limits delivery to what the routes handle.
var allowedUpdates = []string{"message", "callback_query"}

// BuildPoller returns a webhook or long poller according to cfg.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if strings.EqualFold(cfg.Telegram.RunMode, coreconfig.RunModeWebhook) {
		return &tele.Webhook{
			Listen:         fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			SecretToken:    cfg.Webhook.SecretToken,
			AllowedUpdates: allowedUpdates,
			Endpoint:       &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{
		Timeout:        pollTimeout(cfg),
		AllowedUpdates: allowedUpdates,
	}
}

func pollTimeout(cfg *coreconfig.Config) time.Duration {
	if s := cfg.Telegram.LongPollTimeoutSeconds; s > 0 {
		return time.Duration(s) * time.Second
	}
	return 10 * time.Second
}
