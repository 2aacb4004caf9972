package table

import (
	"errors"
	"fmt"

	"github.com/tmblog/mpro/internal/apperr"
)

var (
	// -- Validation & Input --
	ErrNoTables          = errors.New("no tables given")
	ErrInvalidCover      = errors.New("cover count must not be negative")
	ErrInvalidOrderType  = errors.New("table operations require a dine-in cart")
	ErrCannotSplitAll    = errors.New("cannot split all tables")
	ErrTableNotOnCart    = errors.New("table is not held by this cart")
	ErrDuplicateTable    = errors.New("table listed more than once")
	ErrItemNotOnCart     = errors.New("item does not belong to the source cart")
	ErrDuplicateItem     = errors.New("item listed more than once")
	ErrInvalidQuantity   = errors.New("quantity to move must be at least 1")
	ErrTableUnidentified = errors.New("table id or number is required")

	// -- Resource State --
	ErrTableNotFound = errors.New("table not found")
	ErrTableOccupied = errors.New("table is already occupied")

	// -- Database & Operation Failures --
	ErrFailedGetTable    = errors.New("failed to get table")
	ErrFailedUpdateTable = errors.New("failed to update table")
	ErrFailedLinkTable   = errors.New("failed to link table")
)

// ConflictError reports a table held by another cart.
type ConflictError struct {
	TableID int64
	Number  string
	HeldBy  int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("Table %s is already occupied", e.Number)
}

func (e *ConflictError) Kind() apperr.Kind { return apperr.KindConflict }

func (e *ConflictError) Unwrap() error { return ErrTableOccupied }
