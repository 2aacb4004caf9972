// Package pricing turns cart lines into money: item totals, discounts, the
// VAT base and the grand total.
package pricing

import (
	"github.com/tmblog/mpro/internal/cart"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Calculate prices a cart. It performs no I/O.
func Calculate(in Input) Totals {
	dine := in.OrderType.IsDine()

	var (
		subtotal     decimal.Decimal
		discountable decimal.Decimal
		vatable      decimal.Decimal
		itemDiscount decimal.Decimal
		lines        = make([]LineTotal, 0, len(in.Lines))
	)

	for _, l := range in.Lines {
		lt := priceLine(l, dine)
		lines = append(lines, lt)

		subtotal = subtotal.Add(lt.Discounted)
		vatable = vatable.Add(lt.Vatable)
		itemDiscount = itemDiscount.Add(lt.Gross.Sub(lt.Discounted))
		if l.Discountable {
			discountable = discountable.Add(lt.Discounted)
		}
	}

	applied := cartDiscount(in.CartDiscount, discountable)
	discounted := subtotal.Sub(applied)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}

	if subtotal.IsPositive() {
		vatable = vatable.Mul(discounted).Div(subtotal)
	} else {
		vatable = decimal.Zero
	}

	vatBase := vatable
	if dine {
		vatBase = discounted
	}
	vat := vatBase.Mul(in.VATRate).Round(2)

	service := in.ServiceCharge
	if dine {
		service = discounted.Mul(in.ServiceCharge).Div(hundred)
	}
	if service.IsNegative() {
		service = decimal.Zero
	}

	t := Totals{
		Subtotal:             subtotal.Round(2),
		ItemDiscountTotal:    itemDiscount.Round(2),
		DiscountableSubtotal: discountable.Round(2),
		CartDiscount:         applied.Round(2),
		DiscountedSubtotal:   discounted.Round(2),
		VatableTotal:         vatable.Round(2),
		VATBase:              vatBase.Round(2),
		VAT:                  vat,
		ServiceCharge:        service.Round(2),
		Lines:                lines,
	}
	t.GrandTotal = t.DiscountedSubtotal.Add(t.VAT).Add(t.ServiceCharge)
	return t
}

func priceLine(l Line, dine bool) LineTotal {
	qty := decimal.NewFromInt(int64(l.Quantity))

	gross := l.UnitPrice.Mul(qty)
	var vat decimal.Decimal
	if dine || l.Vatable {
		vat = gross
	}

	for _, o := range l.Options {
		optTotal := o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity))).Mul(qty)
		gross = gross.Add(optTotal)
		if dine || o.Vatable {
			vat = vat.Add(optTotal)
		}
	}

	discounted := l.Discount.Apply(gross)
	if gross.IsPositive() {
		vat = vat.Mul(discounted).Div(gross)
	} else {
		vat = decimal.Zero
	}

	return LineTotal{Gross: gross, Discounted: discounted, Vatable: vat}
}

// cartDiscount is the amount taken off the discountable subtotal. Fixed
// discounts never exceed it.
func cartDiscount(d cart.Discount, discountable decimal.Decimal) decimal.Decimal {
	if d.IsZero() || !discountable.IsPositive() {
		return decimal.Zero
	}
	switch d.Type {
	case cart.DiscountPercentage:
		return discountable.Mul(d.Amount).Div(hundred)
	default:
		return decimal.Min(d.Amount, discountable)
	}
}
