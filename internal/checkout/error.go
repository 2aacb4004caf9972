package checkout

import "errors"

var (
	// -- Validation & Input --
	ErrEmptyCart             = errors.New("cart has no items")
	ErrPaymentMethodRequired = errors.New("payment method is required")
	ErrNegativeTotal         = errors.New("discounted total must not be negative")
	ErrSplitChargesRequired  = errors.New("split payment needs at least one charge")
	ErrInvalidCharge         = errors.New("split charge must be greater than zero")
	ErrPaymentMismatch       = errors.New("payment does not match the cart total")

	// -- Resource State --
	ErrAlreadySettled = errors.New("cart is already settled")
)
