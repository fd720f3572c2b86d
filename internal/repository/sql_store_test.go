package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cascade(ctx context.Context, s Store, companyID uint64) error {
	return s.WithinTx(ctx, func(tx Store) error {
		if _, err := tx.Bookings().DeleteByCompany(ctx, companyID); err != nil {
			return err
		}
		return tx.Companies().Delete(ctx, companyID)
	})
}

func TestSQLStore_WithinTxCommits(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM bookings WHERE company_id = \\?").WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM companies WHERE id = \\?").WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, cascade(context.Background(), store, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_WithinTxRollsBackOnSecondStep(t *testing.T) {
	store, mock := newMock(t)
	boom := errors.New("lock wait timeout")
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM bookings WHERE company_id = \\?").WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM companies WHERE id = \\?").WithArgs(uint64(1)).
		WillReturnError(boom)
	mock.ExpectRollback()

	err := cascade(context.Background(), store, 1)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_NestedWithinTxJoinsOuter(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM bookings WHERE company_id = \\?").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM companies WHERE id = \\?").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx Store) error {
		return cascade(context.Background(), tx, 1)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
