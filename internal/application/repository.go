package application

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Change lists the fields a step transition writes. Nil fields are left as
// they are; Next, UpdatedAt are always written.
type Change struct {
	Next          Step
	Source        *string
	Availability  *Availability
	HasExperience *bool
	Status        *Status
	SubmittedAt   *time.Time
	UpdatedAt     time.Time
}

// Repository persists applications. Every mutating method is atomic for a
// single record and conditional on the state the caller observed.
type Repository interface {
	// FindLatestByUser returns the most recently created application of the
	// user or ErrNotFound.
	FindLatestByUser(ctx context.Context, userID int64) (*Application, error)
	// FindByID returns the application or ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*Application, error)
	// Create inserts app. It returns ErrDraftExists when the user already
	// owns a new or pending application.
	Create(ctx context.Context, app Application) (*Application, error)
	// UpdateProfile refreshes the owner's display fields.
	UpdateProfile(ctx context.Context, id uuid.UUID, username, fullName *string, at time.Time) (*Application, error)
	// Advance applies ch only while the application still sits at from.
	// It returns ErrConflict otherwise.
	Advance(ctx context.Context, id uuid.UUID, from Step, ch Change) (*Application, error)
	// Reset clears the answers of a draft whose status is still new. It
	// returns ErrConflict otherwise.
	Reset(ctx context.Context, id uuid.UUID, at time.Time) (*Application, error)
	// Decide moves a pending application to status. It returns ErrConflict
	// when the application is no longer pending.
	Decide(ctx context.Context, id uuid.UUID, status Status, reviewerID int64, at time.Time) (*Application, error)
	// CountByStatus reports how many applications sit in each status.
	CountByStatus(ctx context.Context) (map[Status]int, error)
}
