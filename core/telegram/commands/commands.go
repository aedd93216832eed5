// Package commands describes slash commands kept in the telegram registry.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is a registered slash command. Hidden and AdminOnly commands are
// left out of the published menu, and AdminOnly ones run behind the admin
// guard. Aliases are exact texts that trigger a non-admin command.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}
