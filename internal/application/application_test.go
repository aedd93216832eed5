package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepOrder(t *testing.T) {
	assert.Equal(t, StepAvailability, StepSource.Next())
	assert.Equal(t, StepExperience, StepAvailability.Next())
	assert.Equal(t, StepDone, StepExperience.Next())
	assert.Equal(t, StepDone, StepDone.Next())
}

func TestParsers(t *testing.T) {
	a, ok := ParseAvailability(" 5+ ")
	assert.True(t, ok)
	assert.Equal(t, AvailabilityFivePlus, a)
	_, ok = ParseAvailability("6")
	assert.False(t, ok)

	assert.True(t, ParseExperience(" YES "))
	assert.False(t, ParseExperience("no"))
	assert.False(t, ParseExperience("maybe"))

	d, ok := ParseDecision("Reject")
	assert.True(t, ok)
	assert.Equal(t, StatusRejected, d.Status())
	_, ok = ParseDecision("defer")
	assert.False(t, ok)
}

func TestDisplayName(t *testing.T) {
	name := "Ann Lee"
	user := "ann"
	app := &Application{UserID: 7}
	assert.Equal(t, "7", app.DisplayName())
	app.FullName = &name
	assert.Equal(t, "Ann Lee", app.DisplayName())
	app.Username = &user
	assert.Equal(t, "@ann", app.DisplayName())
}

func TestCloneCopiesPointers(t *testing.T) {
	src := "a friend"
	app := Application{Source: &src}
	cp := app.Clone()
	*cp.Source = "changed"
	assert.Equal(t, "a friend", *app.Source)
}
