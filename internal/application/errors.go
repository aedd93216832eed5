package application

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no application matches the lookup.
	ErrNotFound = errors.New("application not found")
	// ErrConflict is returned by a Repository when a conditional update
	// matched no row because the record moved on.
	ErrConflict = errors.New("application changed concurrently")
	// ErrDraftExists is returned by a Repository when the user already owns
	// an application that is in progress or pending.
	ErrDraftExists = errors.New("application draft already exists")
	// ErrNotActionable is returned when adjudicating an application that is
	// not pending. It is expected under double clicks and races.
	ErrNotActionable = errors.New("application is not pending review")
	// ErrNotResettable is returned when resetting an application that was
	// already submitted.
	ErrNotResettable = errors.New("application cannot be reset")
	// ErrInvalidDecision is returned for review payloads outside approve/reject.
	ErrInvalidDecision = errors.New("invalid review decision")
)

// Reason explains why an answer was refused.
type Reason string

const (
	ReasonTooShort      Reason = "too_short"
	ReasonInvalidChoice Reason = "invalid_choice"
)

// ValidationError reports a malformed answer. The application is left
// untouched and the user may answer the same step again.
type ValidationError struct {
	Step   Step
	Reason Reason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s answer: %s", e.Step, e.Reason)
}

// Code satisfies the router's error coder so summaries carry a stable err_code.
func (e *ValidationError) Code() string {
	return "validation_" + string(e.Reason)
}

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
