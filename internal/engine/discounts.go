package engine

import (
	"context"

	"github.com/tmblog/mpro/internal/apperr"
	"github.com/tmblog/mpro/internal/cart"
	"github.com/tmblog/mpro/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ApplyDiscount sets the cart-level discount. A zero amount leaves the cart
// untouched.
func (s *Service) ApplyDiscount(ctx context.Context, cartID int64, d cart.Discount) (c *cart.Cart, err error) {
	ctx, done := s.operation(ctx, "ApplyDiscount",
		zap.Int64("cart_id", cartID),
		zap.String("type", string(d.Type)),
		zap.String("amount", d.Amount.String()),
	)
	defer func() { done(err) }()

	if err := d.Validate(); err != nil {
		return nil, apperr.Validation("engine.ApplyDiscount", err)
	}
	return s.setCartDiscount(ctx, cartID, d, d.IsZero())
}

func (s *Service) RemoveDiscount(ctx context.Context, cartID int64) (c *cart.Cart, err error) {
	ctx, done := s.operation(ctx, "RemoveDiscount", zap.Int64("cart_id", cartID))
	defer func() { done(err) }()

	return s.setCartDiscount(ctx, cartID, cart.NoDiscount(), false)
}

func (s *Service) setCartDiscount(ctx context.Context, cartID int64, d cart.Discount, noop bool) (c *cart.Cart, err error) {
	err = s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		if c, err = s.openCart(ctx, q, "engine.setCartDiscount", cartID); err != nil {
			return err
		}
		if noop {
			return nil
		}
		if err := s.carts.SetDiscount(ctx, q, cartID, d); err != nil {
			return err
		}
		c.Discount = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyItemDiscount sets a line discount. A zero amount leaves the line
// untouched.
func (s *Service) ApplyItemDiscount(ctx context.Context, itemID int64, d cart.Discount) (item *cart.Item, err error) {
	ctx, done := s.operation(ctx, "ApplyItemDiscount",
		zap.Int64("item_id", itemID),
		zap.String("type", string(d.Type)),
		zap.String("amount", d.Amount.String()),
	)
	defer func() { done(err) }()

	if err := d.Validate(); err != nil {
		return nil, apperr.Validation("engine.ApplyItemDiscount", err)
	}
	return s.setItemDiscount(ctx, itemID, d, d.IsZero())
}

func (s *Service) RemoveItemDiscount(ctx context.Context, itemID int64) (item *cart.Item, err error) {
	ctx, done := s.operation(ctx, "RemoveItemDiscount", zap.Int64("item_id", itemID))
	defer func() { done(err) }()

	return s.setItemDiscount(ctx, itemID, cart.NoDiscount(), false)
}

func (s *Service) setItemDiscount(ctx context.Context, itemID int64, d cart.Discount, noop bool) (item *cart.Item, err error) {
	err = s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		it, c, err := s.openItem(ctx, q, "engine.setItemDiscount", itemID)
		if err != nil {
			return err
		}
		item = it
		if noop {
			return nil
		}
		if err := s.carts.SetItemDiscount(ctx, q, it.ID, d); err != nil {
			return err
		}
		item.Discount = d
		return s.carts.Touch(ctx, q, c.ID)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// SetServiceCharge stores a percentage for dine-in carts and a flat amount
// for the rest.
func (s *Service) SetServiceCharge(ctx context.Context, cartID int64, amount decimal.Decimal) (err error) {
	ctx, done := s.operation(ctx, "SetServiceCharge", zap.Int64("cart_id", cartID), zap.String("amount", amount.String()))
	defer func() { done(err) }()

	if amount.IsNegative() {
		return apperr.Validation("engine.SetServiceCharge", cart.ErrNegativeCharge)
	}

	return s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		if _, err := s.openCart(ctx, q, "engine.SetServiceCharge", cartID); err != nil {
			return err
		}
		return s.carts.SetServiceCharge(ctx, q, cartID, amount)
	})
}
