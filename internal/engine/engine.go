// Package engine is the entry point to the order transaction engine. Every
// exported method runs in exactly one database transaction.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tmblog/mpro/internal/apperr"
	"github.com/tmblog/mpro/internal/cart"
	"github.com/tmblog/mpro/internal/catalog"
	"github.com/tmblog/mpro/internal/checkout"
	"github.com/tmblog/mpro/internal/inventory"
	"github.com/tmblog/mpro/internal/kitchen"
	"github.com/tmblog/mpro/internal/logger"
	"github.com/tmblog/mpro/internal/metrics"
	"github.com/tmblog/mpro/internal/pricing"
	"github.com/tmblog/mpro/internal/refund"
	"github.com/tmblog/mpro/internal/settings"
	"github.com/tmblog/mpro/internal/store"
	"github.com/tmblog/mpro/internal/table"

	"go.uber.org/zap"
)

var (
	ErrTablesAlreadyAssigned = errors.New("cart already holds tables, merge instead")
	ErrTablesNeedDine        = errors.New("only dine-in carts can hold tables")
)

type Deps struct {
	Store     store.Store
	Carts     cart.Repository
	Catalog   catalog.Repository
	Tables    table.Allocator
	Inventory inventory.Tracker
	Checkout  checkout.Processor
	Refunds   refund.Ledger
	Settings  settings.Provider
	Metrics   *metrics.Engine
}

type Service struct {
	store     store.Store
	carts     cart.Repository
	catalog   catalog.Repository
	tables    table.Allocator
	inventory inventory.Tracker
	checkout  checkout.Processor
	refunds   refund.Ledger
	settings  settings.Provider
	metrics   *metrics.Engine
}

func New(d Deps) *Service {
	if d.Metrics == nil {
		d.Metrics = metrics.NewEngine()
	}
	return &Service{
		store:     d.Store,
		carts:     d.Carts,
		catalog:   d.Catalog,
		tables:    d.Tables,
		inventory: d.Inventory,
		checkout:  d.Checkout,
		refunds:   d.Refunds,
		settings:  d.Settings,
		metrics:   d.Metrics,
	}
}

// NewFromDB wires the engine over a Postgres pool.
func NewFromDB(db *sql.DB, prov settings.Provider, notifier kitchen.Notifier) *Service {
	st := store.New(db)
	carts := cart.NewRepository()
	products := catalog.NewRepository()
	tables := table.NewAllocator(table.NewRepository(), carts, pricing.NewRepricer(products))
	tracker := inventory.NewTracker(products, carts)

	return New(Deps{
		Store:     st,
		Carts:     carts,
		Catalog:   products,
		Tables:    tables,
		Inventory: tracker,
		Checkout: checkout.NewProcessor(checkout.Deps{
			Store:     st,
			Carts:     carts,
			Tables:    tables,
			Kitchen:   kitchen.NewRepository(),
			Excluder:  products,
			Inventory: tracker,
			Settings:  prov,
			Notifier:  notifier,
		}),
		Refunds:  refund.NewLedger(st, carts),
		Settings: prov,
	})
}

// Stats returns the engine counters.
func (s *Service) Stats() metrics.Snapshot {
	return s.metrics.Snapshot()
}

// operation starts the log scope for one call. The returned finisher also
// feeds rejections into the counters.
func (s *Service) operation(ctx context.Context, name string, fields ...zap.Field) (context.Context, func(error)) {
	ctx, done := logger.StartOperation(ctx, name, fields...)
	return ctx, func(err error) {
		s.metrics.ObserveError(err)
		done(err)
	}
}

// openCart locks the cart and requires it to still be processing.
func (s *Service) openCart(ctx context.Context, q store.DBTX, op string, cartID int64) (*cart.Cart, error) {
	c, err := s.carts.GetForUpdate(ctx, q, cartID)
	if err != nil {
		return nil, err
	}
	if !c.Status.IsOpen() {
		return nil, apperr.Conflict(op, fmt.Errorf("%w: %d", cart.ErrCartNotOpen, cartID))
	}
	return c, nil
}

// openItem loads the item and locks its cart, which must be open.
func (s *Service) openItem(ctx context.Context, q store.DBTX, op string, itemID int64) (*cart.Item, *cart.Cart, error) {
	it, err := s.carts.GetItem(ctx, q, itemID)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.openCart(ctx, q, op, it.CartID)
	if err != nil {
		return nil, nil, err
	}
	return it, c, nil
}
