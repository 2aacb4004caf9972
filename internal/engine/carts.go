package engine

import (
	"context"
	"fmt"

	"github.com/tmblog/mpro/internal/apperr"
	"github.com/tmblog/mpro/internal/cart"
	"github.com/tmblog/mpro/internal/inventory"
	"github.com/tmblog/mpro/internal/store"
	"github.com/tmblog/mpro/internal/table"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CreateCartParams struct {
	OrderType  cart.OrderType
	Menu       cart.Menu
	CustomerID *int64
	Tables     []table.Request
	// ServiceCharge is the flat charge for non dine-in carts. Dine-in carts
	// take the configured percentage.
	ServiceCharge decimal.Decimal
	Note          string
	EmployeeID    *int64
}

type CartResult struct {
	Cart         *cart.Cart
	Tables       []table.CartTable
	TableDisplay string
}

func (s *Service) CreateCart(ctx context.Context, p CreateCartParams) (res *CartResult, err error) {
	ctx, done := s.operation(ctx, "CreateCart", zap.String("order_type", string(p.OrderType)))
	defer func() { done(err) }()

	if !p.OrderType.Valid() {
		return nil, apperr.Validation("engine.CreateCart", fmt.Errorf("%w: %q", cart.ErrInvalidOrderType, p.OrderType))
	}
	if !p.Menu.Valid() {
		return nil, apperr.Validation("engine.CreateCart", fmt.Errorf("%w: %d", cart.ErrInvalidMenu, p.Menu))
	}
	if len(p.Tables) > 0 && !p.OrderType.IsDine() {
		return nil, apperr.Validation("engine.CreateCart", ErrTablesNeedDine)
	}

	charge, err := s.serviceCharge(ctx, p.OrderType, p.ServiceCharge)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		c, err := s.carts.Create(ctx, q, cart.CreateParams{
			OrderType:     p.OrderType,
			Menu:          p.Menu,
			CustomerID:    p.CustomerID,
			Note:          p.Note,
			ServiceCharge: charge,
			StartedBy:     p.EmployeeID,
		})
		if err != nil {
			return err
		}
		res = &CartResult{Cart: c}

		if len(p.Tables) == 0 {
			return nil
		}
		if res.Tables, err = s.tables.Assign(ctx, q, c.ID, p.Tables); err != nil {
			return err
		}
		res.TableDisplay = table.FormatDisplay(res.Tables)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CartsCreated.Inc()
	return res, nil
}

// serviceCharge is the configured percentage for dine-in and the given flat
// amount otherwise.
func (s *Service) serviceCharge(ctx context.Context, orderType cart.OrderType, flat decimal.Decimal) (decimal.Decimal, error) {
	if orderType.IsDine() {
		return s.settings.ServiceChargePercent(ctx)
	}
	if flat.IsNegative() {
		return decimal.Zero, apperr.Validation("engine.serviceCharge", cart.ErrNegativeCharge)
	}
	return flat, nil
}

type AddItemParams struct {
	CartID    int64
	ProductID int64
	Quantity  int
	Options   []cart.Option
	Note      string
	// Price overrides the catalog price for the cart's menu when set.
	Price    *decimal.Decimal
	Discount cart.Discount
}

func (s *Service) AddItem(ctx context.Context, p AddItemParams) (item *cart.Item, err error) {
	ctx, done := s.operation(ctx, "AddItem",
		zap.Int64("cart_id", p.CartID),
		zap.Int64("product_id", p.ProductID),
		zap.Int("quantity", p.Quantity),
	)
	defer func() { done(err) }()

	if p.Quantity < 1 {
		return nil, apperr.Validation("engine.AddItem", cart.ErrInvalidQuantity)
	}
	if p.Discount.Type == "" {
		p.Discount = cart.NoDiscount()
	}
	if err := p.Discount.Validate(); err != nil {
		return nil, apperr.Validation("engine.AddItem", err)
	}
	for _, o := range p.Options {
		if o.Quantity < 1 {
			return nil, apperr.Validation("engine.AddItem", fmt.Errorf("%w: option %q", cart.ErrInvalidQuantity, o.Name))
		}
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		c, err := s.openCart(ctx, q, "engine.AddItem", p.CartID)
		if err != nil {
			return err
		}
		product, err := s.catalog.GetProduct(ctx, q, p.ProductID)
		if err != nil {
			return err
		}
		options, err := s.resolveOptions(ctx, q, p.Options, c.Menu)
		if err != nil {
			return err
		}

		existing, err := s.carts.FindMatchingItem(ctx, q, c.ID, product.ID, options)
		if err != nil {
			return err
		}
		if existing != nil {
			// The existing line stays in the committed count so the
			// shortfall reports what can still be added.
			qty := existing.Quantity + p.Quantity
			if err := s.inventory.Validate(ctx, q, inventory.ValidateParams{
				CartID:    c.ID,
				ProductID: product.ID,
				Requested: p.Quantity,
			}); err != nil {
				return err
			}
			if err := s.carts.UpdateItemQuantity(ctx, q, existing.ID, qty); err != nil {
				return err
			}
			existing.Quantity = qty
			item = existing
			return s.carts.Touch(ctx, q, c.ID)
		}

		if err := s.inventory.Validate(ctx, q, inventory.ValidateParams{
			CartID:    c.ID,
			ProductID: product.ID,
			Requested: p.Quantity,
		}); err != nil {
			return err
		}

		price := product.Price(c.Menu)
		if p.Price != nil {
			price = *p.Price
		}
		if item, err = s.carts.InsertItem(ctx, q, cart.NewItemParams{
			CartID:        c.ID,
			ProductID:     product.ID,
			Name:          product.Name,
			Price:         price,
			Quantity:      p.Quantity,
			Options:       options,
			Note:          p.Note,
			Discount:      p.Discount,
			CategoryOrder: product.CategoryOrder,
			Vatable:       product.Vatable,
			Discountable:  product.Discountable,
		}); err != nil {
			return err
		}
		return s.carts.Touch(ctx, q, c.ID)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// resolveOptions fills in catalog name, price and VAT flag for options that
// reference an option item and arrive without a price.
func (s *Service) resolveOptions(ctx context.Context, q store.DBTX, opts []cart.Option, menu cart.Menu) ([]cart.Option, error) {
	out := make([]cart.Option, 0, len(opts))
	for _, o := range opts {
		if o.OptionItemID != 0 && o.UnitPrice.IsZero() {
			oi, err := s.catalog.GetOptionItem(ctx, q, o.OptionItemID)
			if err != nil {
				return nil, err
			}
			o.UnitPrice = oi.Price(menu)
			o.Vatable = oi.Vatable
			if o.Name == "" {
				o.Name = oi.Name
			}
			if o.Group == 0 {
				o.Group = oi.OptionID
			}
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Service) UpdateItem(ctx context.Context, itemID int64, note string, quantity int) (item *cart.Item, err error) {
	ctx, done := s.operation(ctx, "UpdateItem", zap.Int64("item_id", itemID), zap.Int("quantity", quantity))
	defer func() { done(err) }()

	if quantity < 1 {
		return nil, apperr.Validation("engine.UpdateItem", cart.ErrInvalidQuantity)
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		it, c, err := s.openItem(ctx, q, "engine.UpdateItem", itemID)
		if err != nil {
			return err
		}
		if quantity > it.Quantity {
			if err := s.inventory.Validate(ctx, q, inventory.ValidateParams{
				CartID:        c.ID,
				ProductID:     it.ProductID,
				Requested:     quantity,
				ExcludeItemID: it.ID,
			}); err != nil {
				return err
			}
		}
		if err := s.carts.UpdateItem(ctx, q, it.ID, quantity, note); err != nil {
			return err
		}
		it.Quantity, it.Note = quantity, note
		item = it
		return s.carts.Touch(ctx, q, c.ID)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) DeleteItem(ctx context.Context, itemID int64) (err error) {
	ctx, done := s.operation(ctx, "DeleteItem", zap.Int64("item_id", itemID))
	defer func() { done(err) }()

	return s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		it, c, err := s.openItem(ctx, q, "engine.DeleteItem", itemID)
		if err != nil {
			return err
		}
		if err := s.carts.DeleteItem(ctx, q, it.ID); err != nil {
			return err
		}
		return s.carts.Touch(ctx, q, c.ID)
	})
}

func (s *Service) SetNote(ctx context.Context, cartID int64, note string) (err error) {
	ctx, done := s.operation(ctx, "SetNote", zap.Int64("cart_id", cartID))
	defer func() { done(err) }()

	return s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		if _, err := s.openCart(ctx, q, "engine.SetNote", cartID); err != nil {
			return err
		}
		return s.carts.SetNote(ctx, q, cartID, note)
	})
}

// DeleteCart drops an open cart with its items and releases its tables.
func (s *Service) DeleteCart(ctx context.Context, cartID int64) (err error) {
	ctx, done := s.operation(ctx, "DeleteCart", zap.Int64("cart_id", cartID))
	defer func() { done(err) }()

	return s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		if _, err := s.openCart(ctx, q, "engine.DeleteCart", cartID); err != nil {
			return err
		}
		if err := s.tables.Free(ctx, q, cartID); err != nil {
			return err
		}
		return s.carts.Delete(ctx, q, cartID)
	})
}
