package engine

import (
	"context"

	"github.com/tmblog/mpro/internal/cart"
	"github.com/tmblog/mpro/internal/checkout"
	"github.com/tmblog/mpro/internal/logger"
	"github.com/tmblog/mpro/internal/metrics"
	"github.com/tmblog/mpro/internal/pricing"
	"github.com/tmblog/mpro/internal/refund"
	"github.com/tmblog/mpro/internal/store"
	"github.com/tmblog/mpro/internal/table"

	"go.uber.org/zap"
)

// Snapshot is the fully priced view of one cart, as a receipt shows it.
type Snapshot struct {
	Cart         *cart.Cart
	Items        []cart.Item
	Tables       []table.CartTable
	TableDisplay string
	TotalCovers  int
	Totals       pricing.Totals
	Payments     []cart.Payment
	Refunds      []cart.Refund
	DivisionHint []pricing.HintLine
}

func (s *Service) Snapshot(ctx context.Context, cartID int64) (snap *Snapshot, err error) {
	ctx, done := s.operation(ctx, "Snapshot", zap.Int64("cart_id", cartID))
	defer func() { done(err) }()

	vatRate, err := s.settings.VATRate(ctx)
	if err != nil {
		return nil, err
	}
	hintOn, err := s.settings.DivisionHintEnabled(ctx)
	if err != nil {
		return nil, err
	}

	snap = &Snapshot{}
	err = s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		var err error
		if snap.Cart, err = s.carts.Get(ctx, q, cartID); err != nil {
			return err
		}
		if snap.Items, err = s.carts.ListItems(ctx, q, cartID); err != nil {
			return err
		}
		if snap.Tables, err = s.tables.CartTables(ctx, q, cartID); err != nil {
			return err
		}
		if snap.Payments, err = s.carts.ListPayments(ctx, q, cartID); err != nil {
			return err
		}
		snap.Refunds, err = s.carts.ListRefunds(ctx, q, cartID)
		return err
	})
	if err != nil {
		return nil, err
	}

	snap.Totals = pricing.Calculate(pricing.InputFor(snap.Cart, snap.Items, vatRate))
	snap.TableDisplay = table.FormatDisplay(snap.Tables)
	snap.TotalCovers = table.TotalCovers(snap.Tables)
	if hintOn && snap.Cart.OrderType.IsDine() {
		snap.DivisionHint = pricing.DivisionHint(snap.Totals.GrandTotal, snap.TotalCovers)
	}
	return snap, nil
}

// OpenCart is one row of the open-orders overview.
type OpenCart struct {
	cart.Summary
	TableDisplay string
	TotalCovers  int
}

func (s *Service) OpenCarts(ctx context.Context) (out []OpenCart, err error) {
	ctx, done := s.operation(ctx, "OpenCarts")
	defer func() { done(err) }()

	err = s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		open, err := s.carts.ListOpen(ctx, q)
		if err != nil {
			return err
		}
		out = make([]OpenCart, 0, len(open))
		for _, sum := range open {
			oc := OpenCart{Summary: sum}
			if sum.OrderType.IsDine() {
				tables, err := s.tables.CartTables(ctx, q, sum.ID)
				if err != nil {
					return err
				}
				oc.TableDisplay = table.FormatDisplay(tables)
				oc.TotalCovers = table.TotalCovers(tables)
			}
			out = append(out, oc)
		}
		return nil
	})
	return out, err
}

func (s *Service) Checkout(ctx context.Context, p checkout.Params) (res *checkout.Result, err error) {
	ctx, done := logger.StartOperation(ctx, "Checkout", zap.Int64("cart_id", p.CartID))
	timer := metrics.StartTimer()
	defer func() {
		s.metrics.ObserveCheckout(timer, err)
		done(err)
	}()

	return s.checkout.Checkout(ctx, p)
}

func (s *Service) Refund(ctx context.Context, p refund.Params) (res *refund.Result, err error) {
	ctx, done := s.operation(ctx, "Refund", zap.Int64("cart_id", p.CartID), zap.String("amount", p.Amount.String()))
	defer func() { done(err) }()

	if res, err = s.refunds.Process(ctx, p); err != nil {
		return nil, err
	}
	if res.Refund != nil {
		s.metrics.RefundsProcessed.Inc()
	}
	return res, nil
}

func (s *Service) RefundSummary(ctx context.Context, cartID int64) (sum *refund.Summary, err error) {
	ctx, done := s.operation(ctx, "RefundSummary", zap.Int64("cart_id", cartID))
	defer func() { done(err) }()

	return s.refunds.Summary(ctx, cartID)
}
