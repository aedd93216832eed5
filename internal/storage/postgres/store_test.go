package postgres

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/teambot/internal/application"
)

var (
	appID   = uuid.MustParse("0b6f5f3e-7d0c-4c39-9a43-1b2f3c4d5e6f")
	created = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewStore(sqlx.NewDb(db, "postgres")), mock
}

func columnNames() []string {
	names := strings.Split(columns, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	return names
}

// row renders one application row with the given step, status and answers.
func row(step application.Step, status application.Status, source, availability any) *sqlmock.Rows {
	return sqlmock.NewRows(columnNames()).AddRow(
		appID.String(), int64(7), "ann", nil, source, availability, nil, nil,
		string(step), string(status), created, nil, nil, nil, created,
	)
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestFindLatestByUser(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(q("FROM team_applications") + `\s+WHERE user_id = \$1\s+ORDER BY created_at DESC, seq DESC\s+LIMIT 1`).
		WithArgs(int64(7)).
		WillReturnRows(row(application.StepAvailability, application.StatusNew, "a friend", nil))

	app, err := store.FindLatestByUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, appID, app.ID)
	assert.Equal(t, application.StepAvailability, app.Step)
	require.NotNil(t, app.Username)
	assert.Equal(t, "ann", *app.Username)
	assert.Nil(t, app.FullName)
	require.NotNil(t, app.Source)
	assert.Equal(t, "a friend", *app.Source)
	assert.Nil(t, app.Availability)
}

func TestFindByIDNotFound(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(q("WHERE id = $1")).
		WithArgs(appID).
		WillReturnRows(sqlmock.NewRows(columnNames()))

	_, err := store.FindByID(context.Background(), appID)
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestCreateMapsOpenDraftViolation(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(q("INSERT INTO team_applications")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: openDraftIndex})

	_, err := store.Create(context.Background(), application.Application{
		ID: appID, UserID: 7, Step: application.StepSource, Status: application.StatusNew,
		CreatedAt: created, UpdatedAt: created,
	})
	assert.ErrorIs(t, err, application.ErrDraftExists)
}

func TestCreateOtherErrorsAreWrapped(t *testing.T) {
	store, mock := newMock(t)
	boom := errors.New("connection reset")
	mock.ExpectQuery(q("INSERT INTO team_applications")).WillReturnError(boom)

	_, err := store.Create(context.Background(), application.Application{UserID: 7})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, application.ErrDraftExists)
}

func TestCreateReturnsRow(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`(?s)` + q("INSERT INTO team_applications") + `.*` + q("RETURNING id, user_id")).
		WithArgs(appID, int64(7), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), "source", "new", created, sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), created).
		WillReturnRows(row(application.StepSource, application.StatusNew, nil, nil))

	app, err := store.Create(context.Background(), application.Application{
		ID: appID, UserID: 7, Step: application.StepSource, Status: application.StatusNew,
		CreatedAt: created, UpdatedAt: created,
	})
	require.NoError(t, err)
	assert.Equal(t, appID, app.ID)
	assert.Equal(t, application.StatusNew, app.Status)
}

func TestAdvanceWritesOnlyChangedColumns(t *testing.T) {
	store, mock := newMock(t)
	at := created.Add(time.Minute)
	avail := application.AvailabilityThreeFour
	mock.ExpectQuery(q("UPDATE team_applications SET step = $1, updated_at = $2, availability = $3 WHERE id = $4 AND step = $5 RETURNING")).
		WithArgs("experience", at, "3-4", appID, "availability").
		WillReturnRows(row(application.StepExperience, application.StatusNew, "a friend", "3-4"))

	app, err := store.Advance(context.Background(), appID, application.StepAvailability, application.Change{
		Next: application.StepExperience, Availability: &avail, UpdatedAt: at,
	})
	require.NoError(t, err)
	require.NotNil(t, app.Availability)
	assert.Equal(t, application.AvailabilityThreeFour, *app.Availability)
}

func TestAdvanceFinalizes(t *testing.T) {
	store, mock := newMock(t)
	at := created.Add(time.Hour)
	yes := true
	pending := application.StatusPending
	mock.ExpectQuery(q("SET step = $1, updated_at = $2, has_experience = $3, status = $4, submitted_at = $5 WHERE id = $6 AND step = $7")).
		WithArgs("done", at, true, "pending", at, appID, "experience").
		WillReturnRows(row(application.StepDone, application.StatusPending, "a friend", "3-4"))

	_, err := store.Advance(context.Background(), appID, application.StepExperience, application.Change{
		Next: application.StepDone, HasExperience: &yes, Status: &pending, SubmittedAt: &at, UpdatedAt: at,
	})
	require.NoError(t, err)
}

func TestAdvanceLostRace(t *testing.T) {
	store, mock := newMock(t)
	source := "a friend"
	mock.ExpectQuery(q("UPDATE team_applications")).
		WillReturnRows(sqlmock.NewRows(columnNames()))

	_, err := store.Advance(context.Background(), appID, application.StepSource, application.Change{
		Next: application.StepAvailability, Source: &source, UpdatedAt: created,
	})
	assert.ErrorIs(t, err, application.ErrConflict)
}

func TestDecideIsConditionalOnPending(t *testing.T) {
	store, mock := newMock(t)
	at := created.Add(2 * time.Hour)
	mock.ExpectQuery(q("SET status = $1, reviewed_at = $2, reviewed_by = $3, updated_at = $2") + `\s+` + q("WHERE id = $4 AND status = $5")).
		WithArgs("approved", at, int64(99), appID, "pending").
		WillReturnRows(row(application.StepDone, application.StatusApproved, "a friend", "3-4"))
	mock.ExpectQuery(q("WHERE id = $4 AND status = $5")).
		WithArgs("rejected", at, int64(99), appID, "pending").
		WillReturnRows(sqlmock.NewRows(columnNames()))

	app, err := store.Decide(context.Background(), appID, application.StatusApproved, 99, at)
	require.NoError(t, err)
	assert.Equal(t, application.StatusApproved, app.Status)

	_, err = store.Decide(context.Background(), appID, application.StatusRejected, 99, at)
	assert.ErrorIs(t, err, application.ErrConflict)
}

func TestResetOnlyNewDrafts(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(q("SET source = NULL, availability = NULL, has_experience = NULL")).
		WithArgs("source", "new", created, appID).
		WillReturnRows(sqlmock.NewRows(columnNames()))

	_, err := store.Reset(context.Background(), appID, created)
	assert.ErrorIs(t, err, application.ErrConflict)
}

func TestCountByStatus(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(q("SELECT status, COUNT(*) AS count FROM team_applications GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 2).
			AddRow("approved", 5))

	counts, err := store.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[application.Status]int{
		application.StatusPending:  2,
		application.StatusApproved: 5,
	}, counts)
}
