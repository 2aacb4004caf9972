package cart

import "errors"

var (
	// -- Validation & Input --
	ErrInvalidOrderType    = errors.New("invalid order type")
	ErrInvalidMenu         = errors.New("invalid order menu")
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrInvalidDiscountType = errors.New("invalid discount type")
	ErrNegativeDiscount    = errors.New("discount must not be negative")
	ErrDiscountOverHundred = errors.New("percentage discount must not exceed 100")
	ErrNegativeCharge      = errors.New("service charge must not be negative")

	// -- Resource State --
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrCartNotOpen      = errors.New("cart not found or already completed")
	ErrCartEmpty        = errors.New("cart has no items")

	// -- Database & Operation Failures --
	ErrFailedGetCart        = errors.New("failed to get cart")
	ErrFailedCreateCart     = errors.New("failed to create cart")
	ErrFailedUpdateCart     = errors.New("failed to update cart")
	ErrFailedDeleteCart     = errors.New("failed to delete cart")
	ErrFailedGetCartItems   = errors.New("failed to get cart items")
	ErrFailedCreateCartItem = errors.New("failed to create cart item")
	ErrFailedUpdateCartItem = errors.New("failed to update cart item")
	ErrFailedRecordPayment  = errors.New("failed to record payment")
	ErrFailedRecordRefund   = errors.New("failed to record refund")
)
