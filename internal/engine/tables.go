package engine

import (
	"context"
	"fmt"

	"github.com/tmblog/mpro/internal/apperr"
	"github.com/tmblog/mpro/internal/cart"
	"github.com/tmblog/mpro/internal/store"
	"github.com/tmblog/mpro/internal/table"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AssignTables seats a dine-in cart that holds no tables yet.
func (s *Service) AssignTables(ctx context.Context, cartID int64, reqs []table.Request) (tables []table.CartTable, err error) {
	ctx, done := s.operation(ctx, "AssignTables", zap.Int64("cart_id", cartID), zap.Int("tables", len(reqs)))
	defer func() { done(err) }()

	err = s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		held, err := s.tables.CartTables(ctx, q, cartID)
		if err != nil {
			return err
		}
		if len(held) > 0 {
			return apperr.Validation("engine.AssignTables", fmt.Errorf("%w: %s", ErrTablesAlreadyAssigned, table.FormatDisplay(held)))
		}
		if _, err := s.tables.Merge(ctx, q, cartID, reqs); err != nil {
			return err
		}
		tables, err = s.tables.CartTables(ctx, q, cartID)
		return err
	})
	return tables, err
}

// MergeTables adds tables to a seated dine-in cart.
func (s *Service) MergeTables(ctx context.Context, cartID int64, reqs []table.Request) (tables []table.CartTable, err error) {
	ctx, done := s.operation(ctx, "MergeTables", zap.Int64("cart_id", cartID), zap.Int("tables", len(reqs)))
	defer func() { done(err) }()

	err = s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		if _, err := s.tables.Merge(ctx, q, cartID, reqs); err != nil {
			return err
		}
		tables, err = s.tables.CartTables(ctx, q, cartID)
		return err
	})
	return tables, err
}

func (s *Service) SplitTables(ctx context.Context, p table.SplitParams) (res *table.SplitResult, err error) {
	ctx, done := s.operation(ctx, "SplitTables",
		zap.Int64("cart_id", p.SourceCartID),
		zap.Int64s("table_ids", p.TableIDs),
		zap.Int("items", len(p.Items)),
	)
	defer func() { done(err) }()

	err = s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		res, err = s.tables.Split(ctx, q, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.CartsCreated.Inc()
	return res, nil
}

func (s *Service) UpdateTables(ctx context.Context, cartID int64, updates []table.Update) (tables []table.CartTable, err error) {
	ctx, done := s.operation(ctx, "UpdateTables", zap.Int64("cart_id", cartID), zap.Int("updates", len(updates)))
	defer func() { done(err) }()

	err = s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		tables, err = s.tables.UpdateTables(ctx, q, cartID, updates)
		return err
	})
	return tables, err
}

// TransferCart moves everything on a cart to a new cart of another order type
// or menu.
func (s *Service) TransferCart(ctx context.Context, p table.TransferParams) (res *table.TransferResult, err error) {
	ctx, done := s.operation(ctx, "TransferCart",
		zap.Int64("cart_id", p.SourceCartID),
		zap.String("order_type", string(p.OrderType)),
	)
	defer func() { done(err) }()

	if p.OrderType.IsDine() {
		if p.ServiceCharge, err = s.settings.ServiceChargePercent(ctx); err != nil {
			return nil, err
		}
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		res, err = s.tables.Transfer(ctx, q, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CartsCreated.Inc()
	s.metrics.RepricingWarnings.Add(uint64(len(res.Warnings)))
	return res, nil
}

// ChangeOrderType transfers the cart to orderType on its natural menu:
// dine-in eats in, everything else is priced for takeaway.
func (s *Service) ChangeOrderType(ctx context.Context, cartID int64, orderType cart.OrderType, tables []table.Request, employeeID *int64) (*table.TransferResult, error) {
	menu := cart.MenuOut
	if orderType.IsDine() {
		menu = cart.MenuIn
	}
	return s.TransferCart(ctx, table.TransferParams{
		SourceCartID:  cartID,
		OrderType:     orderType,
		Menu:          menu,
		ServiceCharge: decimal.Zero,
		Tables:        tables,
		EmployeeID:    employeeID,
	})
}

func (s *Service) FreeTables(ctx context.Context) (rooms []table.RoomTables, err error) {
	ctx, done := s.operation(ctx, "FreeTables")
	defer func() { done(err) }()

	err = s.store.WithTransaction(ctx, func(ctx context.Context, q store.DBTX) error {
		rooms, err = s.tables.FreeTables(ctx, q)
		return err
	})
	return rooms, err
}
