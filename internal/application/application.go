// Package application holds the team application lifecycle: resolving the
// single draft a user works on, advancing it through the fixed intake
// questions and adjudicating the finalized submission.
package application

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Step identifies the intake question an application is waiting for.
type Step string

const (
	StepSource       Step = "source"
	StepAvailability Step = "availability"
	StepExperience   Step = "experience"
	StepDone         Step = "done"
)

// Next returns the step that follows s. StepDone is its own successor.
func (s Step) Next() Step {
	switch s {
	case StepSource:
		return StepAvailability
	case StepAvailability:
		return StepExperience
	default:
		return StepDone
	}
}

// Status is the review disposition of an application.
type Status string

const (
	StatusNew      Status = "new"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusNew, StatusPending, StatusApproved, StatusRejected}
}

// Availability is the answer to the daily time commitment question.
type Availability string

const (
	AvailabilityOneTwo    Availability = "1-2"
	AvailabilityThreeFour Availability = "3-4"
	AvailabilityFivePlus  Availability = "5+"
)

// Availabilities returns the closed set of accepted answers in display order.
func Availabilities() []Availability {
	return []Availability{AvailabilityOneTwo, AvailabilityThreeFour, AvailabilityFivePlus}
}

// ParseAvailability maps a raw choice payload onto the closed answer set.
func ParseAvailability(raw string) (Availability, bool) {
	v := Availability(strings.TrimSpace(raw))
	switch v {
	case AvailabilityOneTwo, AvailabilityThreeFour, AvailabilityFivePlus:
		return v, true
	}
	return "", false
}

// Label returns the human readable form shown on buttons and summaries.
func (a Availability) Label() string {
	switch a {
	case AvailabilityOneTwo:
		return "1–2 hours a day"
	case AvailabilityThreeFour:
		return "3–4 hours a day"
	case AvailabilityFivePlus:
		return "5+ hours a day"
	}
	return string(a)
}

const (
	// ExperienceYes is the affirmative answer to the experience question.
	ExperienceYes = "yes"
	// ExperienceNo is the negative answer to the experience question.
	ExperienceNo = "no"
)

// ParseExperience maps the yes/no payload to a boolean. The answer is
// always accepted: anything but yes counts as no.
func ParseExperience(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), ExperienceYes)
}

// Decision is a reviewer's ruling on a pending application.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision maps a raw callback payload onto a decision.
func ParseDecision(raw string) (Decision, bool) {
	d := Decision(strings.ToLower(strings.TrimSpace(raw)))
	switch d {
	case DecisionApprove, DecisionReject:
		return d, true
	}
	return "", false
}

// Status returns the terminal status the decision moves an application to.
func (d Decision) Status() Status {
	if d == DecisionApprove {
		return StatusApproved
	}
	return StatusRejected
}

// Applicant carries the identity of the Telegram user behind an event.
type Applicant struct {
	UserID   int64
	Username string
	FullName string
}

// Application is the persisted intake record. A user may own several over
// time but only one is ever in progress or pending.
type Application struct {
	ID       uuid.UUID `db:"id"`
	UserID   int64     `db:"user_id"`
	Username *string   `db:"username"`
	FullName *string   `db:"full_name"`

	Source         *string       `db:"source"`
	Availability   *Availability `db:"availability"`
	HasExperience  *bool         `db:"has_experience"`
	AdditionalInfo *string       `db:"additional_info"`

	Step   Step   `db:"step"`
	Status Status `db:"status"`

	CreatedAt   time.Time  `db:"created_at"`
	SubmittedAt *time.Time `db:"submitted_at"`
	ReviewedAt  *time.Time `db:"reviewed_at"`
	ReviewedBy  *int64     `db:"reviewed_by"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// InProgress reports whether the intake questions are still being answered.
func (a *Application) InProgress() bool {
	return a.Step != StepDone
}

// DisplayName returns the @username, then the full name, then the numeric id.
func (a *Application) DisplayName() string {
	if a.Username != nil && *a.Username != "" {
		return "@" + *a.Username
	}
	if a.FullName != nil && *a.FullName != "" {
		return *a.FullName
	}
	return strconv.FormatInt(a.UserID, 10)
}

// Clone returns a deep copy so callers never share pointer fields with a store.
func (a Application) Clone() Application {
	out := a
	out.Username = clonePtr(a.Username)
	out.FullName = clonePtr(a.FullName)
	out.Source = clonePtr(a.Source)
	out.Availability = clonePtr(a.Availability)
	out.HasExperience = clonePtr(a.HasExperience)
	out.AdditionalInfo = clonePtr(a.AdditionalInfo)
	out.SubmittedAt = clonePtr(a.SubmittedAt)
	out.ReviewedAt = clonePtr(a.ReviewedAt)
	out.ReviewedBy = clonePtr(a.ReviewedBy)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
