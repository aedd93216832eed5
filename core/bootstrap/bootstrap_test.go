package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/teambot/core/config"
	coredatabase "github.com/m3rciful/teambot/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunWithoutDatabase(t *testing.T) {
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config, time.Duration) (*sqlx.DB, error) {
			t.Fatal("connect must not be called")
			return nil, nil
		},
	})
	require.NoError(t, err)
	assert.Nil(t, res.DB)
	assert.NoError(t, res.Close())
}

func TestRunMigrationFailureClosesPool(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	var migrated bool
	_, err = Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   &coredatabase.Config{Host: "db", Name: "teambot"},
		LoggerInit: noLogger,
		Connect: func(_ context.Context, cfg coredatabase.Config, wait time.Duration) (*sqlx.DB, error) {
			assert.Equal(t, "db", cfg.Host)
			assert.Equal(t, 30*time.Second, wait)
			return sqlx.NewDb(raw, "postgres"), nil
		},
		Migrate: func(context.Context, coredatabase.Config) error {
			migrated = true
			return errors.New("dirty")
		},
	})
	require.ErrorContains(t, err, "migrations failed")
	assert.True(t, migrated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)
}
