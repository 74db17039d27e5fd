package migration

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const sentinel = "SELECT to_regclass('public.conversions') IS NOT NULL"

func TestEnsureMigrated_Skip(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(sentinel)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, EnsureMigrated(context.Background(), db, zap.New(core), "db"))
	assert.Equal(t, 1, logs.FilterMessage("db_migration_skip").Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_RunsSteps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(sentinel)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	for _, step := range steps {
		mock.ExpectExec(regexp.QuoteMeta(step.SQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, EnsureMigrated(context.Background(), db, zap.New(core), "db"))
	assert.Equal(t, len(steps), logs.FilterMessage("db_migration_step").Len())
	assert.Equal(t, 1, logs.FilterMessage("db_migration_success").Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_StepFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(sentinel)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta(steps[0].SQL)).WillReturnError(errors.New("permission denied"))

	err = EnsureMigrated(context.Background(), db, zap.NewNop(), "db")
	assert.ErrorContains(t, err, "create_table_conversions")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_SentinelFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(sentinel)).WillReturnError(errors.New("conn reset"))

	err = EnsureMigrated(context.Background(), db, zap.NewNop(), "db")
	assert.ErrorContains(t, err, "sentinel")
}
