package checkout

import (
	"context"
	"fmt"

	"github.com/tmblog/mpro/internal/apperr"
	"github.com/tmblog/mpro/internal/cart"
	"github.com/tmblog/mpro/internal/inventory"
	"github.com/tmblog/mpro/internal/kitchen"
	"github.com/tmblog/mpro/internal/logger"
	"github.com/tmblog/mpro/internal/pricing"
	"github.com/tmblog/mpro/internal/settings"
	"github.com/tmblog/mpro/internal/store"
	"github.com/tmblog/mpro/internal/table"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MethodSplit fans the payment out to one row per charge.
const MethodSplit = "Split"

// paymentTolerance absorbs penny rounding between the till and the engine.
var paymentTolerance = decimal.New(1, -2)

type Charge struct {
	Method string
	Amount decimal.Decimal
}

type Params struct {
	CartID          int64
	PaymentMethod   string
	DiscountedTotal decimal.Decimal
	SplitCharges    []Charge
	EmployeeID      *int64
}

type Result struct {
	Cart          *cart.Cart
	Totals        pricing.Totals
	Payments      []cart.Payment
	TableDisplay  string
	KitchenOrders int
}

type Processor interface {
	Checkout(ctx context.Context, p Params) (*Result, error)
}

// Deps are the collaborators a Processor settles a cart with.
type Deps struct {
	Store     store.Store
	Carts     cart.Repository
	Tables    table.Allocator
	Kitchen   kitchen.Repository
	Excluder  kitchen.Excluder
	Inventory inventory.Tracker
	Settings  settings.Provider
	Notifier  kitchen.Notifier
}

type processor struct {
	Deps
}

func NewProcessor(d Deps) Processor {
	if d.Notifier == nil {
		d.Notifier = kitchen.NopNotifier{}
	}
	return &processor{Deps: d}
}

func (p *processor) Checkout(ctx context.Context, params Params) (*Result, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "checkout"),
		zap.Int64("cart_id", params.CartID),
		zap.String("payment_method", params.PaymentMethod),
	)

	if err := validate(params); err != nil {
		return nil, err
	}

	vatRate, err := p.Settings.VATRate(ctx)
	if err != nil {
		return nil, err
	}
	kitchenOn, err := p.Settings.KitchenScreenEnabled(ctx)
	if err != nil {
		return nil, err
	}

	var (
		res    Result
		ticket *kitchen.Ticket
	)
	err = p.Store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		// 1. Lock the cart
		c, err := p.Carts.GetForUpdate(ctx, q, params.CartID)
		if err != nil {
			return err
		}
		if !c.Status.IsOpen() {
			return apperr.Conflict("checkout.Checkout", fmt.Errorf("%w: %s", ErrAlreadySettled, c.Status))
		}

		// 2. Load items
		items, err := p.Carts.ListItems(ctx, q, c.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return apperr.Validation("checkout.Checkout", ErrEmptyCart)
		}

		// 3. Price
		totals := pricing.Calculate(pricing.InputFor(c, items, vatRate))
		if params.DiscountedTotal.Sub(totals.GrandTotal).Abs().GreaterThan(paymentTolerance) {
			return apperr.Validation("checkout.Checkout", fmt.Errorf("%w: paid %s, due %s",
				ErrPaymentMismatch, params.DiscountedTotal.StringFixed(2), totals.GrandTotal.StringFixed(2)))
		}
		if params.PaymentMethod == MethodSplit {
			if sum := chargeSum(params.SplitCharges); sum.Sub(totals.GrandTotal).Abs().GreaterThan(paymentTolerance) {
				return apperr.Validation("checkout.Checkout", fmt.Errorf("%w: charges sum to %s, due %s",
					ErrPaymentMismatch, sum.StringFixed(2), totals.GrandTotal.StringFixed(2)))
			}
		}

		// 4. Record payments
		payments, err := p.recordPayments(ctx, q, c.ID, params)
		if err != nil {
			return err
		}

		// 5. Settle
		if err := p.Carts.UpdateStatus(ctx, q, c.ID, cart.StatusCompleted, params.EmployeeID); err != nil {
			return err
		}
		if vatRate.IsPositive() {
			if err := p.Carts.SetVATAmount(ctx, q, c.ID, totals.VAT); err != nil {
				return err
			}
			c.VATAmount = totals.VAT
		}
		c.Status = cart.StatusCompleted
		c.UpdatedBy = params.EmployeeID

		// 6. Free tables
		held, err := p.Tables.CartTables(ctx, q, c.ID)
		if err != nil {
			return err
		}
		if err := p.Tables.Free(ctx, q, c.ID); err != nil {
			return err
		}
		display := table.FormatDisplay(held)

		// 7. Kitchen fan-out
		queued := 0
		if kitchenOn {
			if queued, err = p.Kitchen.Enqueue(ctx, q, c.ID); err != nil {
				return err
			}
			if _, err := p.Carts.MarkKitchenPrinted(ctx, q, c.ID); err != nil {
				return err
			}
			t, err := kitchen.NewTicket(ctx, q, p.Excluder, c, items, display)
			if err != nil {
				return err
			}
			ticket = &t
		}

		// 8. Deduct stock
		if err := p.Inventory.Deduct(ctx, q, c.ID); err != nil {
			return err
		}

		res = Result{
			Cart:          c,
			Totals:        totals,
			Payments:      payments,
			TableDisplay:  display,
			KitchenOrders: queued,
		}
		return nil
	})
	if err != nil {
		log.Warn("checkout rolled back", zap.Error(err))
		return nil, err
	}

	if ticket != nil && len(ticket.Items) > 0 {
		if err := p.Notifier.PublishTicket(ctx, *ticket); err != nil {
			log.Error("failed to notify kitchen", zap.String("ticket_id", ticket.ID.String()), zap.Error(err))
		}
	}

	log.Info("cart settled",
		zap.String("grand_total", res.Totals.GrandTotal.StringFixed(2)),
		zap.Int("payments", len(res.Payments)),
		zap.Int("kitchen_orders", res.KitchenOrders),
	)
	return &res, nil
}

func validate(params Params) error {
	if params.PaymentMethod == "" {
		return apperr.Validation("checkout.Checkout", ErrPaymentMethodRequired)
	}
	if params.DiscountedTotal.IsNegative() {
		return apperr.Validation("checkout.Checkout", ErrNegativeTotal)
	}
	if params.PaymentMethod != MethodSplit {
		return nil
	}

	if len(params.SplitCharges) == 0 {
		return apperr.Validation("checkout.Checkout", ErrSplitChargesRequired)
	}
	for _, ch := range params.SplitCharges {
		if !ch.Amount.IsPositive() {
			return apperr.Validation("checkout.Checkout", ErrInvalidCharge)
		}
	}
	if sum := chargeSum(params.SplitCharges); sum.Sub(params.DiscountedTotal).Abs().GreaterThan(paymentTolerance) {
		return apperr.Validation("checkout.Checkout", fmt.Errorf("%w: charges sum to %s, total is %s",
			ErrPaymentMismatch, sum.StringFixed(2), params.DiscountedTotal.StringFixed(2)))
	}
	return nil
}

func chargeSum(charges []Charge) decimal.Decimal {
	sum := decimal.Zero
	for _, ch := range charges {
		sum = sum.Add(ch.Amount)
	}
	return sum
}

func (p *processor) recordPayments(ctx context.Context, q store.DBTX, cartID int64, params Params) ([]cart.Payment, error) {
	if params.PaymentMethod != MethodSplit {
		pay, err := p.Carts.InsertPayment(ctx, q, cartID, params.PaymentMethod, params.DiscountedTotal)
		if err != nil {
			return nil, err
		}
		return []cart.Payment{*pay}, nil
	}

	out := make([]cart.Payment, 0, len(params.SplitCharges))
	for _, ch := range params.SplitCharges {
		method := ch.Method
		if method == "" {
			method = MethodSplit
		}
		pay, err := p.Carts.InsertPayment(ctx, q, cartID, method, ch.Amount)
		if err != nil {
			return nil, err
		}
		out = append(out, *pay)
	}
	return out, nil
}
