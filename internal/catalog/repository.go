package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tmblog/mpro/internal/apperr"
	"github.com/tmblog/mpro/internal/logger"
	"github.com/tmblog/mpro/internal/store"

	"go.uber.org/zap"
)

// Repository reads pricing data. SetStock is the only write and belongs to
// inventory deduction.
type Repository interface {
	GetProduct(ctx context.Context, q store.DBTX, productID int64) (*Product, error)
	LockProduct(ctx context.Context, q store.DBTX, productID int64) (*Product, error)
	GetOptionItem(ctx context.Context, q store.DBTX, optionItemID int64) (*OptionItem, error)
	SetStock(ctx context.Context, q store.DBTX, productID int64, quantity int) error
	IsKitchenExcluded(ctx context.Context, q store.DBTX, productID int64) (bool, error)
}

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

const productColumns = `product_id, product_name, in_price, out_price, vatable, cpn,
	track_inventory, stock_quantity, category_order`

func (r *repository) GetProduct(ctx context.Context, q store.DBTX, productID int64) (*Product, error) {
	return r.getProduct(ctx, q, productID, false)
}

// LockProduct reads the product and holds its row lock for the transaction.
func (r *repository) LockProduct(ctx context.Context, q store.DBTX, productID int64) (*Product, error) {
	return r.getProduct(ctx, q, productID, true)
}

func (r *repository) getProduct(ctx context.Context, q store.DBTX, productID int64, lock bool) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE product_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var p Product
	err := q.QueryRowContext(ctx, query, productID).Scan(
		&p.ID, &p.Name, &p.InPrice, &p.OutPrice, &p.Vatable, &p.Discountable,
		&p.TrackInventory, &p.StockQuantity, &p.CategoryOrder,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("catalog.GetProduct", fmt.Errorf("%w: %d", ErrProductNotFound, productID))
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to get product",
			zap.String("layer", "repository"),
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
		return nil, store.MapError("catalog.GetProduct", fmt.Errorf("%w: %w", ErrFailedGetProduct, err))
	}
	return &p, nil
}

func (r *repository) GetOptionItem(ctx context.Context, q store.DBTX, optionItemID int64) (*OptionItem, error) {
	var o OptionItem
	err := q.QueryRowContext(ctx, `
		SELECT option_item_id, option_id, option_item_name,
		       option_item_in_price, option_item_out_price, vatable
		FROM option_item_groups
		WHERE option_item_id = $1
	`, optionItemID).Scan(&o.ID, &o.OptionID, &o.Name, &o.InPrice, &o.OutPrice, &o.Vatable)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("catalog.GetOptionItem", fmt.Errorf("%w: %d", ErrOptionNotFound, optionItemID))
	}
	if err != nil {
		return nil, store.MapError("catalog.GetOptionItem", fmt.Errorf("%w: %w", ErrFailedGetOption, err))
	}
	return &o, nil
}

func (r *repository) SetStock(ctx context.Context, q store.DBTX, productID int64, quantity int) error {
	res, err := q.ExecContext(ctx,
		`UPDATE products SET stock_quantity = $1 WHERE product_id = $2`, quantity, productID)
	if err != nil {
		return store.MapError("catalog.SetStock", fmt.Errorf("%w: %w", ErrFailedSetStock, err))
	}
	if err := store.RowsAffected(res); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("catalog.SetStock", fmt.Errorf("%w: %d", ErrProductNotFound, productID))
		}
		return store.MapError("catalog.SetStock", err)
	}
	return nil
}

// IsKitchenExcluded reports whether the product never goes to the kitchen screen.
func (r *repository) IsKitchenExcluded(ctx context.Context, q store.DBTX, productID int64) (bool, error) {
	var excluded bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM excluded_kitchen_products WHERE product_id = $1)`, productID).Scan(&excluded)
	if err != nil {
		return false, store.MapError("catalog.IsKitchenExcluded", fmt.Errorf("%w: %w", ErrFailedGetProduct, err))
	}
	return excluded, nil
}
