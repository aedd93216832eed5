package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/m3rciful/teambot/core/logger"
)

const componentApplications = "service.applications"

// Outcome classifies what Resolve did.
type Outcome string

const (
	// OutcomeCreated means a fresh draft was stored.
	OutcomeCreated Outcome = "created"
	// OutcomeInProgress means an unfinished draft was resumed in place.
	OutcomeInProgress Outcome = "in_progress"
	// OutcomeSubmitted means the latest application is finalized and waits
	// for review.
	OutcomeSubmitted Outcome = "submitted"
	// OutcomeAlreadyApproved means the user was accepted and may not apply again.
	OutcomeAlreadyApproved Outcome = "already_approved"
)

// Resolution is the result of Resolve. Application is nil only for
// OutcomeAlreadyApproved, where Previous holds the approved record.
type Resolution struct {
	Outcome     Outcome
	Application *Application
	// Previous is the record that was superseded or blocked the resolve:
	// the rejected application for a re-application, the approved one for
	// OutcomeAlreadyApproved.
	Previous *Application
}

// Reapplied reports whether a new draft replaced a rejected application.
func (r Resolution) Reapplied() bool {
	return r.Outcome == OutcomeCreated && r.Previous != nil && r.Previous.Status == StatusRejected
}

// Observer receives lifecycle signals, typically for metrics.
type Observer interface {
	Resolved(outcome Outcome)
	Advanced(from Step)
	Refused(step Step, reason Reason)
	Adjudicated(decision Decision, result string)
}

type nopObserver struct{}

func (nopObserver) Resolved(Outcome)             {}
func (nopObserver) Advanced(Step)                {}
func (nopObserver) Refused(Step, Reason)         {}
func (nopObserver) Adjudicated(Decision, string) {}

// Options configures NewService.
type Options struct {
	Clock    clock.Clock
	Observer Observer
}

// Service implements the draft resolver, the step transition engine and the
// review adjudicator on top of a Repository.
type Service struct {
	repo     Repository
	clock    clock.Clock
	observer Observer
}

// NewService wires a Service. Zero options fall back to the wall clock and
// a no-op observer.
func NewService(repo Repository, opts Options) *Service {
	clk := opts.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Service{repo: repo, clock: clk, observer: obs}
}

// Resolve finds or creates the application the applicant works on.
func (s *Service) Resolve(ctx context.Context, who Applicant) (Resolution, error) {
	res, err := s.resolve(ctx, who, true)
	if err != nil {
		return Resolution{}, err
	}
	s.observer.Resolved(res.Outcome)
	return res, nil
}

func (s *Service) resolve(ctx context.Context, who Applicant, retryCreate bool) (Resolution, error) {
	latest, err := s.repo.FindLatestByUser(ctx, who.UserID)
	switch {
	case errors.Is(err, ErrNotFound):
		return s.create(ctx, who, nil, retryCreate)
	case err != nil:
		return Resolution{}, fmt.Errorf("find latest application: %w", err)
	}

	if latest.InProgress() {
		app, err := s.refreshProfile(ctx, latest, who)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Outcome: OutcomeInProgress, Application: app}, nil
	}

	switch latest.Status {
	case StatusApproved:
		logger.Info(ctx, componentApplications, "draft.blocked",
			slog.String("status", "skip"),
			slog.String("application_id", latest.ID.String()),
			slog.String("app_status", string(latest.Status)),
		)
		return Resolution{Outcome: OutcomeAlreadyApproved, Previous: latest}, nil
	case StatusRejected:
		return s.create(ctx, who, latest, retryCreate)
	default:
		// pending, or new at step done which the engine never produces
		app, err := s.refreshProfile(ctx, latest, who)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Outcome: OutcomeSubmitted, Application: app}, nil
	}
}

func (s *Service) create(ctx context.Context, who Applicant, previous *Application, retry bool) (Resolution, error) {
	now := s.clock.Now().UTC()
	draft := Application{
		ID:        uuid.New(),
		UserID:    who.UserID,
		Username:  optional(who.Username),
		FullName:  optional(who.FullName),
		Step:      StepSource,
		Status:    StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.repo.Create(ctx, draft)
	if errors.Is(err, ErrDraftExists) && retry {
		// a concurrent event for the same user created the draft first
		logger.Debug(ctx, componentApplications, "draft.create.race",
			slog.Int64("user_id", who.UserID),
		)
		return s.resolve(ctx, who, false)
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("create application: %w", err)
	}

	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("application_id", created.ID.String()),
		slog.Int64("user_id", created.UserID),
	}
	if previous != nil {
		attrs = append(attrs, slog.String("previous_id", previous.ID.String()))
	}
	logger.Info(ctx, componentApplications, "draft.created", attrs...)
	return Resolution{Outcome: OutcomeCreated, Application: created, Previous: previous}, nil
}

func (s *Service) refreshProfile(ctx context.Context, app *Application, who Applicant) (*Application, error) {
	username := optional(who.Username)
	fullName := optional(who.FullName)
	if equalPtr(app.Username, username) && (fullName == nil || equalPtr(app.FullName, fullName)) {
		return app, nil
	}
	if fullName == nil {
		fullName = app.FullName
	}
	updated, err := s.repo.UpdateProfile(ctx, app.ID, username, fullName, s.clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("refresh applicant profile: %w", err)
	}
	return updated, nil
}

// Reset discards the answers of an unsubmitted draft and rewinds it to the
// first question.
func (s *Service) Reset(ctx context.Context, app *Application) (*Application, error) {
	if app.Status != StatusNew {
		return app, ErrNotResettable
	}
	updated, err := s.repo.Reset(ctx, app.ID, s.clock.Now().UTC())
	if errors.Is(err, ErrConflict) {
		return app, ErrNotResettable
	}
	if err != nil {
		return nil, fmt.Errorf("reset application: %w", err)
	}
	logger.Info(ctx, componentApplications, "draft.reset",
		slog.String("status", "ok"),
		slog.String("application_id", updated.ID.String()),
		slog.String("from_step", string(app.Step)),
	)
	return updated, nil
}

// Stats returns the number of applications per status, every status present.
func (s *Service) Stats(ctx context.Context) (map[Status]int, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	out := make(map[Status]int, len(Statuses()))
	for _, st := range Statuses() {
		out[st] = counts[st]
	}
	return out, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
