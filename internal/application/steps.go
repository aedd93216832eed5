package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/teambot/core/logger"
)

// MinSourceLength is the minimum number of trimmed characters accepted as
// an answer to the source question.
const MinSourceLength = 3

// SubmitSource records where the applicant heard about the team. The
// returned flag reports whether this call moved the application forward;
// an application at another step is returned unchanged.
func (s *Service) SubmitSource(ctx context.Context, app *Application, text string) (*Application, bool, error) {
	if app.Step != StepSource {
		return app, false, nil
	}
	answer := strings.TrimSpace(text)
	if utf8.RuneCountInString(answer) < MinSourceLength {
		return app, false, s.refuse(ctx, app, ReasonTooShort)
	}
	return s.advance(ctx, app, Change{
		Next:      app.Step.Next(),
		Source:    &answer,
		UpdatedAt: s.clock.Now().UTC(),
	})
}

// SubmitAvailability records the daily time commitment.
func (s *Service) SubmitAvailability(ctx context.Context, app *Application, raw string) (*Application, bool, error) {
	if app.Step != StepAvailability {
		return app, false, nil
	}
	value, ok := ParseAvailability(raw)
	if !ok {
		return app, false, s.refuse(ctx, app, ReasonInvalidChoice)
	}
	return s.advance(ctx, app, Change{
		Next:         app.Step.Next(),
		Availability: &value,
		UpdatedAt:    s.clock.Now().UTC(),
	})
}

// SubmitExperience records the last answer and finalizes the application
// for review.
func (s *Service) SubmitExperience(ctx context.Context, app *Application, raw string) (*Application, bool, error) {
	if app.Step != StepExperience {
		return app, false, nil
	}
	hasExperience := ParseExperience(raw)
	now := s.clock.Now().UTC()
	pending := StatusPending
	return s.advance(ctx, app, Change{
		Next:          app.Step.Next(),
		HasExperience: &hasExperience,
		Status:        &pending,
		SubmittedAt:   &now,
		UpdatedAt:     now,
	})
}

func (s *Service) refuse(ctx context.Context, app *Application, reason Reason) error {
	s.observer.Refused(app.Step, reason)
	logger.Debug(ctx, componentApplications, "step.refused",
		slog.String("status", "skip"),
		slog.String("application_id", app.ID.String()),
		slog.String("step", string(app.Step)),
		slog.String("reason", string(reason)),
	)
	return &ValidationError{Step: app.Step, Reason: reason}
}

func (s *Service) advance(ctx context.Context, app *Application, ch Change) (*Application, bool, error) {
	from := app.Step
	updated, err := s.repo.Advance(ctx, app.ID, from, ch)
	if errors.Is(err, ErrConflict) {
		// another event already moved this application; report its state
		current, findErr := s.repo.FindByID(ctx, app.ID)
		if findErr != nil {
			return nil, false, fmt.Errorf("reload application: %w", findErr)
		}
		logger.Info(ctx, componentApplications, "step.stale",
			slog.String("status", "skip"),
			slog.String("application_id", app.ID.String()),
			slog.String("step", string(from)),
			slog.String("current_step", string(current.Step)),
		)
		return current, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("advance application from %s: %w", from, err)
	}

	s.observer.Advanced(from)
	event := "step.advanced"
	if updated.Step == StepDone {
		event = "application.submitted"
	}
	logger.Info(ctx, componentApplications, event,
		slog.String("status", "ok"),
		slog.String("application_id", updated.ID.String()),
		slog.String("step", string(from)),
		slog.String("next_step", string(updated.Step)),
		slog.String("app_status", string(updated.Status)),
	)
	return updated, true, nil
}
