package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/teambot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegistryMenuSkipsHiddenAndAdminCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Apply to the team"}))
	require.NoError(t, reg.RegisterCommand("/stats", commands.Command{Handler: noop, Description: "Counts", AdminOnly: true}))
	require.NoError(t, reg.RegisterCommand("/debug", commands.Command{Handler: noop, Description: "Debug", Hidden: true}))

	assert.Equal(t, []tele.Command{{Text: "start", Description: "Apply to the team"}}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 3)
}

func TestRegistryLookupCommand(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{
		Handler:     noop,
		Description: "Apply to the team",
		Aliases:     []string{"Apply"},
	}))

	name, _, ok := reg.LookupCommand("/start@teambot now")
	assert.True(t, ok)
	assert.Equal(t, "/start", name)

	name, _, ok = reg.LookupCommand(" Apply ")
	assert.True(t, ok)
	assert.Equal(t, "/start", name)

	_, _, ok = reg.LookupCommand("apply")
	assert.False(t, ok)
}

func TestRegistryRejectsInvalidAndDuplicates(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.RegisterCommand("start", commands.Command{Handler: noop, Description: "x"}))
	assert.Error(t, reg.RegisterCommand("/start", commands.Command{Handler: noop}))
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "x"}))
	assert.Error(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "y"}))

	require.NoError(t, reg.RegisterCallback("review", noop))
	assert.Error(t, reg.RegisterCallback("review", noop))
	assert.Error(t, reg.RegisterCallback("", noop))
	assert.Equal(t, []string{"review"}, reg.ListCallbacks())
}
