package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/tmblog/mpro/internal/apperr"
	"github.com/tmblog/mpro/internal/cart"
	"github.com/tmblog/mpro/internal/catalog"
	"github.com/tmblog/mpro/internal/logger"
	"github.com/tmblog/mpro/internal/store"

	"go.uber.org/zap"
)

type Tracker interface {
	// Validate fails when adding requested units would exceed stock.
	Validate(ctx context.Context, q store.DBTX, params ValidateParams) error
	// Deduct subtracts every tracked item on the cart from stock.
	Deduct(ctx context.Context, q store.DBTX, cartID int64) error
}

type ValidateParams struct {
	CartID    int64
	ProductID int64
	Requested int
	// ExcludeItemID leaves the row being edited out of the committed count.
	ExcludeItemID int64
}

type tracker struct {
	catalog catalog.Repository
	carts   cart.Repository
}

func NewTracker(catalogRepo catalog.Repository, cartRepo cart.Repository) Tracker {
	return &tracker{catalog: catalogRepo, carts: cartRepo}
}

func (t *tracker) Validate(ctx context.Context, q store.DBTX, p ValidateParams) error {
	product, err := t.catalog.GetProduct(ctx, q, p.ProductID)
	if err != nil {
		return err
	}
	if !product.TrackInventory {
		return nil
	}

	committed, err := t.carts.SumProductQuantity(ctx, q, p.CartID, p.ProductID, p.ExcludeItemID)
	if err != nil {
		return err
	}

	if committed+p.Requested > product.StockQuantity {
		available := product.StockQuantity - committed
		if available < 0 {
			available = 0
		}
		logger.FromCtx(ctx).Info("stock check rejected",
			zap.String("layer", "inventory"),
			zap.Int64("cart_id", p.CartID),
			zap.Int64("product_id", p.ProductID),
			zap.Int("stock", product.StockQuantity),
			zap.Int("committed", committed),
			zap.Int("requested", p.Requested),
		)
		return &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   available,
			Requested:   p.Requested,
		}
	}
	return nil
}

func (t *tracker) Deduct(ctx context.Context, q store.DBTX, cartID int64) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "inventory"),
		zap.String("method", "Deduct"),
		zap.Int64("cart_id", cartID),
	)

	items, err := t.carts.ListItems(ctx, q, cartID)
	if err != nil {
		return err
	}

	totals := make(map[int64]int)
	for _, it := range items {
		totals[it.ProductID] += it.Quantity
	}

	// Lock in a stable order so concurrent checkouts cannot deadlock.
	ids := make([]int64, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		product, err := t.catalog.LockProduct(ctx, q, id)
		if apperr.IsNotFound(err) {
			log.Warn("product missing during deduction, skipped", zap.Int64("product_id", id))
			continue
		}
		if err != nil {
			return err
		}
		if !product.TrackInventory {
			continue
		}

		remaining := product.StockQuantity - totals[id]
		if remaining < 0 {
			log.Info("deduction blocked", zap.Int64("product_id", id), zap.Int("stock", product.StockQuantity))
			return apperr.InsufficientStock("inventory.Deduct",
				fmt.Errorf("%s %w", product.Name, ErrOutOfStock))
		}
		if err := t.catalog.SetStock(ctx, q, id, remaining); err != nil {
			return err
		}
		log.Debug("stock deducted", zap.Int64("product_id", id), zap.Int("remaining", remaining))
	}
	return nil
}
