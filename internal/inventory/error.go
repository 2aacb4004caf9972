package inventory

import (
	"errors"
	"fmt"

	"github.com/tmblog/mpro/internal/apperr"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOutOfStock        = errors.New("out of stock")
)

// InsufficientStockError carries what the operator needs to correct the order.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: only %d of %s available, %d requested",
		ErrInsufficientStock, e.Available, e.ProductName, e.Requested)
}

func (e *InsufficientStockError) Kind() apperr.Kind { return apperr.KindInsufficientStock }

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
