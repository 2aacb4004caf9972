package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tmblog/mpro/internal/apperr"
	"github.com/tmblog/mpro/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx. Repositories take
// it per call so they run inside whatever transaction the caller opened.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxFunc runs inside a transaction. Returning an error rolls everything back.
type TxFunc func(ctx context.Context, q DBTX) error

type Store interface {
	WithTransaction(ctx context.Context, fn TxFunc) error
	DB() DBTX
}

type store struct {
	db *sql.DB
}

func New(db *sql.DB) Store {
	return &store{db: db}
}

func (s *store) DB() DBTX { return s.db }

func (s *store) WithTransaction(ctx context.Context, fn TxFunc) (err error) {
	txID := uuid.New().String()
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "store"),
		zap.String("tx_id", txID),
	)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return MapError("begin", err)
	}
	log.Debug("transaction started")

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error("failed to rollback transaction", zap.Error(rbErr))
		} else {
			log.Debug("transaction rolled back")
		}
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		log.Debug("transaction aborted", zap.Error(err))
		return err
	}

	if err = tx.Commit(); err != nil {
		log.Error("failed to commit transaction", zap.Error(err))
		return MapError("commit", err)
	}

	committed = true
	log.Debug("transaction committed")
	return nil
}

// Postgres error codes that signal a lost race rather than a broken query.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	PgUniqueViolation      = "23505"
)

// MapError classifies a driver error. Already classified errors pass through.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	var kinded apperr.Kinded
	if errors.As(err, &kinded) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable, PgUniqueViolation:
			return apperr.Conflict(op, fmt.Errorf("concurrent update: %w", err))
		}
	}
	return apperr.Storage(op, err)
}

// IsUniqueViolation reports whether err is a unique constraint failure on constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != PgUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// RowsAffected returns sql.ErrNoRows when the statement touched nothing.
func RowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
