// Package apperr classifies engine failures so callers can react without
// string matching.
package apperr

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindInsufficientStock
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Kinded is implemented by errors that classify themselves.
type Kinded interface {
	Kind() Kind
}

// Error attaches a Kind and the failing operation to a cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op string, err error) error        { return E(KindValidation, op, err) }
func NotFound(op string, err error) error          { return E(KindNotFound, op, err) }
func Conflict(op string, err error) error          { return E(KindConflict, op, err) }
func InsufficientStock(op string, err error) error { return E(KindInsufficientStock, op, err) }
func Storage(op string, err error) error           { return E(KindStorage, op, err) }

// KindOf returns the outermost classification found in err's chain.
// Unclassified non-nil errors are treated as storage failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := e.(type) {
		case *Error:
			if v.Kind != KindUnknown {
				return v.Kind
			}
		case Kinded:
			return v.Kind()
		}
	}
	return KindStorage
}

func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

func IsValidation(err error) bool        { return Is(err, KindValidation) }
func IsNotFound(err error) bool          { return Is(err, KindNotFound) }
func IsConflict(err error) bool          { return Is(err, KindConflict) }
func IsInsufficientStock(err error) bool { return Is(err, KindInsufficientStock) }
func IsStorage(err error) bool           { return Is(err, KindStorage) }
