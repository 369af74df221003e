package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreLoadAndSave(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newPostgresStoreWithExec(mock)
	ctx := context.Background()

	mock.ExpectQuery("SELECT data FROM snapshots").WithArgs("tcs_auditLog").WillReturnError(pgx.ErrNoRows)
	_, found, err := s.Load(ctx, "tcs_auditLog")
	require.NoError(t, err)
	assert.False(t, found)

	payload := []byte(`[{"action":"CREATE_ORGANIZATION"}]`)
	mock.ExpectExec("INSERT INTO snapshots").WithArgs("tcs_auditLog", payload).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.Save(ctx, "tcs_auditLog", payload))

	mock.ExpectQuery("SELECT data FROM snapshots").WithArgs("tcs_auditLog").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(payload))
	data, found, err := s.Load(ctx, "tcs_auditLog")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload, data)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreWrapsErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := newPostgresStoreWithExec(mock)
	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO snapshots").WithArgs("k", []byte("{}")).WillReturnError(boom)

	err = s.Save(context.Background(), "k", []byte("{}"))
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
