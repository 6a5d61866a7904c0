package dbmanager

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/config"
)

const testScope = "tenancy.curr_tenantid"

func TestScopedConnLifecycle(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	pool := NewScopedPool(db, config.DBConfig{LockTimeout: "5s", StatementTimeout: "3s"}, []string{testScope})

	mock.ExpectExec("SET lock_timeout = '5s'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET statement_timeout = '3s'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RESET " + testScope).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT set_config($1, $2, false)").
		WithArgs(testScope, "0190b0a4-5b0e-7000-8000-000000000001").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RESET " + testScope).WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	conn, err := pool.Conn(ctx)
	require.NoError(t, err)

	require.NoError(t, conn.AddScope(ctx, testScope, "0190b0a4-5b0e-7000-8000-000000000001"))
	// scopes that were not configured are ignored
	require.NoError(t, conn.AddScope(ctx, "tenancy.other", "x"))
	assert.Equal(t, map[string]string{testScope: "0190b0a4-5b0e-7000-8000-000000000001"}, conn.AuthorizedScopes())

	conn.Close(ctx)
	requests, returns := pool.Stats()
	assert.Equal(t, uint64(1), requests)
	assert.Equal(t, uint64(1), returns)
	assert.Empty(t, conn.AuthorizedScopes())
	require.NoError(t, mock.ExpectationsWereMet())
}
