package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/m3rciful/teambot/core/logger"
)

const componentReview = "service.review"

// Adjudication is a committed review decision together with the decided
// application, enough to notify the applicant and refresh the review post.
type Adjudication struct {
	Application *Application
	Decision    Decision
}

// Approved reports whether the applicant was accepted.
func (a Adjudication) Approved() bool {
	return a.Decision == DecisionApprove
}

// Adjudicate rules on a pending application exactly once. A second call for
// the same application, with either decision, returns ErrNotActionable.
func (s *Service) Adjudicate(ctx context.Context, id uuid.UUID, decision Decision, reviewerID int64) (Adjudication, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return Adjudication{}, ErrInvalidDecision
	}

	app, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		logger.Warn(ctx, componentReview, "review.not_found",
			slog.String("status", "skip"),
			slog.String("application_id", id.String()),
		)
		s.observer.Adjudicated(decision, "not_found")
		return Adjudication{}, ErrNotFound
	}
	if err != nil {
		return Adjudication{}, fmt.Errorf("load application: %w", err)
	}
	if app.Status != StatusPending {
		return Adjudication{}, s.notActionable(ctx, app, decision)
	}

	decided, err := s.repo.Decide(ctx, id, decision.Status(), reviewerID, s.clock.Now().UTC())
	if errors.Is(err, ErrConflict) {
		// lost the race to another reviewer
		current, findErr := s.repo.FindByID(ctx, id)
		if findErr != nil {
			return Adjudication{}, fmt.Errorf("reload application: %w", findErr)
		}
		return Adjudication{}, s.notActionable(ctx, current, decision)
	}
	if err != nil {
		return Adjudication{}, fmt.Errorf("decide application: %w", err)
	}

	s.observer.Adjudicated(decision, "ok")
	logger.Info(ctx, componentReview, "review.decided",
		slog.String("status", "ok"),
		slog.String("application_id", decided.ID.String()),
		slog.String("decision", string(decision)),
		slog.String("app_status", string(decided.Status)),
		slog.Int64("reviewer_id", reviewerID),
	)
	return Adjudication{Application: decided, Decision: decision}, nil
}

func (s *Service) notActionable(ctx context.Context, app *Application, decision Decision) error {
	s.observer.Adjudicated(decision, "not_actionable")
	logger.Info(ctx, componentReview, "review.skip",
		slog.String("status", "skip"),
		slog.String("application_id", app.ID.String()),
		slog.String("decision", string(decision)),
		slog.String("app_status", string(app.Status)),
	)
	return ErrNotActionable
}
