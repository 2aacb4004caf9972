package pricing

import (
	"github.com/tmblog/mpro/internal/cart"

	"github.com/shopspring/decimal"
)

type Option struct {
	UnitPrice decimal.Decimal
	Quantity  int
	Vatable   bool
}

type Line struct {
	UnitPrice    decimal.Decimal
	Quantity     int
	Options      []Option
	Discount     cart.Discount
	Vatable      bool
	Discountable bool
}

type Input struct {
	OrderType    cart.OrderType
	Lines        []Line
	CartDiscount cart.Discount
	// ServiceCharge is a percentage for dine-in carts and a flat amount otherwise.
	ServiceCharge decimal.Decimal
	// VATRate is a fraction, e.g. 0.20.
	VATRate decimal.Decimal
}

type LineTotal struct {
	Gross      decimal.Decimal // base plus options
	Discounted decimal.Decimal
	Vatable    decimal.Decimal
}

// Totals are rounded to two places; Lines keep full precision.
type Totals struct {
	Subtotal             decimal.Decimal
	ItemDiscountTotal    decimal.Decimal
	DiscountableSubtotal decimal.Decimal
	CartDiscount         decimal.Decimal
	DiscountedSubtotal   decimal.Decimal
	VatableTotal         decimal.Decimal
	VATBase              decimal.Decimal
	VAT                  decimal.Decimal
	ServiceCharge        decimal.Decimal
	GrandTotal           decimal.Decimal
	Lines                []LineTotal
}

// BeforeService is the grand total without the service or delivery charge.
func (t Totals) BeforeService() decimal.Decimal {
	return t.DiscountedSubtotal.Add(t.VAT)
}

// InputFor builds the pricing input for a stored cart.
func InputFor(c *cart.Cart, items []cart.Item, vatRate decimal.Decimal) Input {
	in := Input{
		OrderType:     c.OrderType,
		CartDiscount:  c.Discount,
		ServiceCharge: c.ServiceCharge,
		VATRate:       vatRate,
		Lines:         make([]Line, 0, len(items)),
	}
	for _, it := range items {
		line := Line{
			UnitPrice:    it.Price,
			Quantity:     it.Quantity,
			Discount:     it.Discount,
			Vatable:      it.Vatable,
			Discountable: it.Discountable,
		}
		for _, o := range it.Options {
			line.Options = append(line.Options, Option{
				UnitPrice: o.UnitPrice,
				Quantity:  o.Quantity,
				Vatable:   o.Vatable,
			})
		}
		in.Lines = append(in.Lines, line)
	}
	return in
}
