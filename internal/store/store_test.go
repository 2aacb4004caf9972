package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/tmblog/mpro/internal/apperr"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WithTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE cart SET cart_status").
			WithArgs("completed", int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = New(db).WithTransaction(ctx, func(ctx context.Context, q DBTX) error {
			_, err := q.ExecContext(ctx, "UPDATE cart SET cart_status = $1 WHERE cart_id = $2", "completed", int64(1))
			return err
		})

		assert.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback on error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		failure := errors.New("table 5 is already occupied")
		err = New(db).WithTransaction(ctx, func(ctx context.Context, q DBTX) error {
			return failure
		})

		assert.ErrorIs(t, err, failure)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback on panic", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.Panics(t, func() {
			_ = New(db).WithTransaction(ctx, func(ctx context.Context, q DBTX) error {
				panic("boom")
			})
		})
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Begin failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		err = New(db).WithTransaction(ctx, func(ctx context.Context, q DBTX) error {
			t.Fatal("fn must not run")
			return nil
		})

		assert.True(t, apperr.IsStorage(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Commit serialization failure is a conflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001"})

		err = New(db).WithTransaction(ctx, func(ctx context.Context, q DBTX) error {
			return nil
		})

		assert.True(t, apperr.IsConflict(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMapError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, MapError("op", nil))
	})

	t.Run("deadlock", func(t *testing.T) {
		assert.True(t, apperr.IsConflict(MapError("op", &pq.Error{Code: "40P01"})))
	})

	t.Run("unique violation", func(t *testing.T) {
		err := &pq.Error{Code: "23505", Constraint: "cart_dining_tables_table_id_key"}
		assert.True(t, apperr.IsConflict(MapError("op", err)))
		assert.True(t, IsUniqueViolation(err, "cart_dining_tables_table_id_key"))
		assert.False(t, IsUniqueViolation(err, "other"))
	})

	t.Run("other driver error", func(t *testing.T) {
		assert.True(t, apperr.IsStorage(MapError("op", sql.ErrConnDone)))
	})

	t.Run("already classified", func(t *testing.T) {
		in := apperr.Validation("AddItem", errors.New("quantity must be positive"))
		assert.Same(t, in, MapError("op", in))
	})
}

func TestRowsAffected(t *testing.T) {
	assert.ErrorIs(t, RowsAffected(sqlmock.NewResult(0, 0)), sql.ErrNoRows)
	assert.NoError(t, RowsAffected(sqlmock.NewResult(0, 2)))
}
