package kitchen

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmblog/mpro/internal/logger"
	"github.com/tmblog/mpro/internal/store"

	"go.uber.org/zap"
)

var (
	ErrFailedEnqueue  = errors.New("failed to enqueue kitchen orders")
	ErrFailedGetQueue = errors.New("failed to get kitchen orders")
)

const StatusPending = "pending"

// Order is one kitchen_orders row.
type Order struct {
	CartID int64
	ItemID int64
	Status string
}

type Repository interface {
	Enqueue(ctx context.Context, q store.DBTX, cartID int64) (int, error)
	ListByCart(ctx context.Context, q store.DBTX, cartID int64) ([]Order, error)
}

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

// Enqueue queues every item of the cart whose product is not excluded from
// the kitchen. Items already queued are left alone.
func (r *repository) Enqueue(ctx context.Context, q store.DBTX, cartID int64) (int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Enqueue"),
		zap.Int64("cart_id", cartID),
	)

	res, err := q.ExecContext(ctx, `
		INSERT INTO kitchen_orders (order_id, item_id, kitchen_status)
		SELECT ci.cart_id, ci.cart_item_id, $2
		FROM cart_item ci
		WHERE ci.cart_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM excluded_kitchen_products e WHERE e.product_id = ci.product_id
		  )
		ON CONFLICT (order_id, item_id) DO NOTHING
	`, cartID, StatusPending)
	if err != nil {
		log.Error("failed to enqueue kitchen orders", zap.Error(err))
		return 0, store.MapError("kitchen.Enqueue", fmt.Errorf("%w: %w", ErrFailedEnqueue, err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, store.MapError("kitchen.Enqueue", fmt.Errorf("%w: %w", ErrFailedEnqueue, err))
	}

	log.Debug("kitchen orders queued", zap.Int64("count", n))
	return int(n), nil
}

func (r *repository) ListByCart(ctx context.Context, q store.DBTX, cartID int64) ([]Order, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT order_id, item_id, kitchen_status
		FROM kitchen_orders
		WHERE order_id = $1
		ORDER BY item_id
	`, cartID)
	if err != nil {
		return nil, store.MapError("kitchen.ListByCart", fmt.Errorf("%w: %w", ErrFailedGetQueue, err))
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.CartID, &o.ItemID, &o.Status); err != nil {
			return nil, store.MapError("kitchen.ListByCart", fmt.Errorf("%w: %w", ErrFailedGetQueue, err))
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, store.MapError("kitchen.ListByCart", fmt.Errorf("%w: %w", ErrFailedGetQueue, err))
	}
	return out, nil
}
