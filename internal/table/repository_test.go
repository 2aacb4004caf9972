package table

import (
	"context"
	"errors"
	"testing"

	"github.com/tmblog/mpro/internal/apperr"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_SetOccupancy(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	t.Run("Missing table", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("UPDATE dining_tables SET table_occupied").WithArgs(int64(4), int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.SetOccupancy(ctx, db, 99, 4)

		assert.True(t, apperr.IsNotFound(err))
		assert.ErrorIs(t, err, ErrTableNotFound)
	})

	t.Run("Driver failure is storage", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("UPDATE dining_tables").WillReturnError(errors.New("connection reset"))

		err = repo.SetOccupancy(ctx, db, 1, 4)

		assert.True(t, apperr.IsStorage(err))
		assert.ErrorIs(t, err, ErrFailedUpdateTable)
	})
}

func TestRepository_InsertLink(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO cart_dining_tables").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "cart_dining_tables_table_id_key"})

	err = NewRepository().InsertLink(context.Background(), db, CartTable{CartID: 4, TableID: 7, Number: "5"})

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "5", conflict.Number)
	assert.True(t, apperr.IsConflict(err))
}

func TestRepository_DeleteLink(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM cart_dining_tables").WithArgs(int64(4), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewRepository().DeleteLink(context.Background(), db, 4, 7)

	assert.True(t, apperr.IsValidation(err))
	assert.ErrorIs(t, err, ErrTableNotOnCart)
}

func TestRepository_ListCartTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM cart_dining_tables ct").WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(linkCols).
			AddRow(int64(4), int64(1), "1", 2, "Main", 1).
			AddRow(int64(4), int64(3), "3", 1, "Main", 1))

	got, err := NewRepository().ListCartTables(context.Background(), db, 4)

	require.NoError(t, err)
	assert.Equal(t, "Main 1, 3", FormatDisplay(got))
	assert.Equal(t, 3, TotalCovers(got))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Release(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE dining_tables SET table_occupied = 0 WHERE table_occupied = \\$1").WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM cart_dining_tables WHERE cart_id = \\$1").WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, NewRepository().Release(context.Background(), db, 4))
	require.NoError(t, mock.ExpectationsWereMet())
}
