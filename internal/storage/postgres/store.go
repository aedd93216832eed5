// Package postgres stores applications in PostgreSQL through sqlx. Every
// mutation is a single conditional UPDATE so concurrent events on the same
// application resolve to exactly one winner.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/teambot/internal/application"
)

const (
	table = "team_applications"

	// openDraftIndex is the partial unique index allowing one new or
	// pending application per user.
	openDraftIndex = "team_applications_open_per_user_idx"

	uniqueViolation = pq.ErrorCode("23505")

	columns = "id, user_id, username, full_name, source, availability, has_experience, additional_info, " +
		"step, status, created_at, submitted_at, reviewed_at, reviewed_by, updated_at"
)

// Store implements application.Repository on PostgreSQL.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open connection pool.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

var _ application.Repository = (*Store)(nil)

func (s *Store) FindLatestByUser(ctx context.Context, userID int64) (*application.Application, error) {
	query := `SELECT ` + columns + ` FROM ` + table + `
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1`
	return s.get(ctx, "find latest", query, userID)
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*application.Application, error) {
	query := `SELECT ` + columns + ` FROM ` + table + ` WHERE id = $1`
	return s.get(ctx, "find by id", query, id)
}

func (s *Store) Create(ctx context.Context, app application.Application) (*application.Application, error) {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	query := `INSERT INTO ` + table + ` (` + columns + `)
		VALUES (:id, :user_id, :username, :full_name, :source, :availability, :has_experience, :additional_info,
			:step, :status, :created_at, :submitted_at, :reviewed_at, :reviewed_by, :updated_at)
		RETURNING ` + columns
	rows, err := sqlx.NamedQueryContext(ctx, s.db, query, app)
	if err != nil {
		if isOpenDraftViolation(err) {
			return nil, application.ErrDraftExists
		}
		return nil, fmt.Errorf("insert application: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			if isOpenDraftViolation(err) {
				return nil, application.ErrDraftExists
			}
			return nil, fmt.Errorf("insert application: %w", err)
		}
		return nil, fmt.Errorf("insert application: no row returned")
	}
	var created application.Application
	if err := rows.StructScan(&created); err != nil {
		return nil, fmt.Errorf("scan created application: %w", err)
	}
	return &created, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id uuid.UUID, username, fullName *string, at time.Time) (*application.Application, error) {
	query := `UPDATE ` + table + `
		SET username = $1, full_name = $2, updated_at = $3
		WHERE id = $4
		RETURNING ` + columns
	return s.get(ctx, "update profile", query, username, fullName, at, id)
}

func (s *Store) Advance(ctx context.Context, id uuid.UUID, from application.Step, ch application.Change) (*application.Application, error) {
	u := newUpdate()
	u.set("step", string(ch.Next))
	u.set("updated_at", ch.UpdatedAt)
	if ch.Source != nil {
		u.set("source", *ch.Source)
	}
	if ch.Availability != nil {
		u.set("availability", string(*ch.Availability))
	}
	if ch.HasExperience != nil {
		u.set("has_experience", *ch.HasExperience)
	}
	if ch.Status != nil {
		u.set("status", string(*ch.Status))
	}
	if ch.SubmittedAt != nil {
		u.set("submitted_at", *ch.SubmittedAt)
	}
	query, args := u.guarded(id, from)
	return s.conditional(ctx, "advance", query, args...)
}

func (s *Store) Reset(ctx context.Context, id uuid.UUID, at time.Time) (*application.Application, error) {
	query := `UPDATE ` + table + `
		SET source = NULL, availability = NULL, has_experience = NULL,
			step = $1, status = $2, updated_at = $3
		WHERE id = $4 AND status = $2
		RETURNING ` + columns
	return s.conditional(ctx, "reset", query,
		string(application.StepSource), string(application.StatusNew), at, id)
}

func (s *Store) Decide(ctx context.Context, id uuid.UUID, status application.Status, reviewerID int64, at time.Time) (*application.Application, error) {
	query := `UPDATE ` + table + `
		SET status = $1, reviewed_at = $2, reviewed_by = $3, updated_at = $2
		WHERE id = $4 AND status = $5
		RETURNING ` + columns
	return s.conditional(ctx, "decide", query,
		string(status), at, reviewerID, id, string(application.StatusPending))
}

func (s *Store) CountByStatus(ctx context.Context) (map[application.Status]int, error) {
	var rows []struct {
		Status application.Status `db:"status"`
		Count  int                `db:"count"`
	}
	query := `SELECT status, COUNT(*) AS count FROM ` + table + ` GROUP BY status`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	out := make(map[application.Status]int, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

func (s *Store) get(ctx context.Context, op, query string, args ...any) (*application.Application, error) {
	var app application.Application
	if err := s.db.GetContext(ctx, &app, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, application.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &app, nil
}

// conditional runs a guarded UPDATE ... RETURNING; no row means the guard
// did not hold.
func (s *Store) conditional(ctx context.Context, op, query string, args ...any) (*application.Application, error) {
	app, err := s.get(ctx, op, query, args...)
	if errors.Is(err, application.ErrNotFound) {
		return nil, application.ErrConflict
	}
	return app, err
}

func isOpenDraftViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && pqErr.Constraint == openDraftIndex
}

// update accumulates SET assignments with positional placeholders.
type update struct {
	sets []string
	args []any
}

func newUpdate() *update {
	return &update{}
}

func (u *update) set(column string, value any) {
	u.args = append(u.args, value)
	u.sets = append(u.sets, fmt.Sprintf("%s = $%d", column, len(u.args)))
}

// guarded renders the statement, matching only the application still at
// step.
func (u *update) guarded(id uuid.UUID, step application.Step) (string, []any) {
	args := append([]any(nil), u.args...)
	args = append(args, id, string(step))
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d AND step = $%d RETURNING %s`,
		table, strings.Join(u.sets, ", "), len(args)-1, len(args), columns)
	return query, args
}
