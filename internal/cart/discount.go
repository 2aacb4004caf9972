package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountFixed      DiscountType = "fixed"
	DiscountPercentage DiscountType = "percentage"
)

var hundred = decimal.NewFromInt(100)

// Discount is either a flat amount or a percentage of the amount it applies to.
type Discount struct {
	Type   DiscountType
	Amount decimal.Decimal
}

func NoDiscount() Discount {
	return Discount{Type: DiscountFixed, Amount: decimal.Zero}
}

func (d Discount) IsZero() bool { return !d.Amount.IsPositive() }

func (d Discount) Validate() error {
	switch d.Type {
	case DiscountFixed, DiscountPercentage:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDiscountType, d.Type)
	}
	if d.Amount.IsNegative() {
		return ErrNegativeDiscount
	}
	if d.Type == DiscountPercentage && d.Amount.GreaterThan(hundred) {
		return ErrDiscountOverHundred
	}
	return nil
}

// Apply returns amount after the discount, never below zero.
func (d Discount) Apply(amount decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return amount
	}
	var out decimal.Decimal
	switch d.Type {
	case DiscountPercentage:
		out = amount.Sub(amount.Mul(d.Amount).Div(hundred))
	default:
		out = amount.Sub(d.Amount)
	}
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// Reduction is how much Apply takes off amount.
func (d Discount) Reduction(amount decimal.Decimal) decimal.Decimal {
	return amount.Sub(d.Apply(amount))
}
