package refund

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmblog/mpro/internal/apperr"
	"github.com/tmblog/mpro/internal/cart"
	"github.com/tmblog/mpro/internal/logger"
	"github.com/tmblog/mpro/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrNegativeAmount      = errors.New("refund amount must not be negative")
	ErrPaymentTypeRequired = errors.New("refund payment type is required")
	ErrNotRefundable       = errors.New("cart cannot be refunded in its current status")
)

type Params struct {
	CartID      int64
	Amount      decimal.Decimal
	PaymentType string
	EmployeeID  *int64
}

// Summary is the refund position of a settled cart.
type Summary struct {
	CartID        int64
	Status        cart.Status
	Refunds       []cart.Refund
	TotalRefunded decimal.Decimal
	InitialPaid   decimal.Decimal
	Remaining     decimal.Decimal
}

type Result struct {
	// Refund is nil when the request was a zero-amount no-op.
	Refund *cart.Refund
	Summary
}

type Ledger interface {
	Process(ctx context.Context, p Params) (*Result, error)
	Summary(ctx context.Context, cartID int64) (*Summary, error)
}

type ledger struct {
	store store.Store
	carts cart.Repository
}

func NewLedger(s store.Store, carts cart.Repository) Ledger {
	return &ledger{store: s, carts: carts}
}

// DeriveStatus maps the refund total against what was paid.
func DeriveStatus(current cart.Status, refunded, paid decimal.Decimal) cart.Status {
	switch {
	case !refunded.IsPositive():
		return current
	case refunded.GreaterThanOrEqual(paid):
		return cart.StatusRefunded
	default:
		return cart.StatusPartialRefund
	}
}

func (l *ledger) Process(ctx context.Context, p Params) (*Result, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "refund"),
		zap.Int64("cart_id", p.CartID),
		zap.String("amount", p.Amount.StringFixed(2)),
	)

	if p.Amount.IsNegative() {
		return nil, apperr.Validation("refund.Process", ErrNegativeAmount)
	}
	if p.Amount.IsPositive() && p.PaymentType == "" {
		return nil, apperr.Validation("refund.Process", ErrPaymentTypeRequired)
	}

	var res Result
	err := l.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		c, err := l.carts.GetForUpdate(ctx, q, p.CartID)
		if err != nil {
			return err
		}
		if !c.Status.Refundable() {
			return apperr.Conflict("refund.Process", fmt.Errorf("%w: %s", ErrNotRefundable, c.Status))
		}

		if p.Amount.IsPositive() {
			if res.Refund, err = l.carts.InsertRefund(ctx, q, c.ID, p.PaymentType, p.Amount); err != nil {
				return err
			}
		}

		refunded, err := l.carts.SumRefunds(ctx, q, c.ID)
		if err != nil {
			return err
		}
		paid, err := l.carts.SumPayments(ctx, q, c.ID)
		if err != nil {
			return err
		}
		sum := newSummary(c, nil, refunded, paid)

		next := DeriveStatus(c.Status, sum.TotalRefunded, sum.InitialPaid)
		if next != c.Status {
			if !c.Status.CanTransitionTo(next) {
				return apperr.Conflict("refund.Process", fmt.Errorf("%w: %s to %s", ErrNotRefundable, c.Status, next))
			}
			if err := l.carts.UpdateStatus(ctx, q, c.ID, next, p.EmployeeID); err != nil {
				return err
			}
			sum.Status = next
		}
		if sum.TotalRefunded.GreaterThan(sum.InitialPaid) {
			log.Warn("refunds exceed the amount paid",
				zap.String("refunded", sum.TotalRefunded.StringFixed(2)),
				zap.String("paid", sum.InitialPaid.StringFixed(2)),
			)
		}

		res.Summary = *sum
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Refund != nil {
		log.Info("refund recorded", zap.String("status", string(res.Status)))
	}
	return &res, nil
}

func (l *ledger) Summary(ctx context.Context, cartID int64) (*Summary, error) {
	var out *Summary
	err := l.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		c, err := l.carts.Get(ctx, q, cartID)
		if err != nil {
			return err
		}
		out, err = l.summarize(ctx, q, c)
		return err
	})
	return out, err
}

func (l *ledger) summarize(ctx context.Context, q store.DBTX, c *cart.Cart) (*Summary, error) {
	refunds, err := l.carts.ListRefunds(ctx, q, c.ID)
	if err != nil {
		return nil, err
	}
	paid, err := l.carts.SumPayments(ctx, q, c.ID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, r := range refunds {
		total = total.Add(r.Amount)
	}

	return newSummary(c, refunds, total, paid), nil
}

func newSummary(c *cart.Cart, refunds []cart.Refund, refunded, paid decimal.Decimal) *Summary {
	return &Summary{
		CartID:        c.ID,
		Status:        c.Status,
		Refunds:       refunds,
		TotalRefunded: refunded,
		InitialPaid:   paid,
		Remaining:     decimal.Max(paid.Sub(refunded), decimal.Zero),
	}
}
