package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tmblog/mpro/internal/apperr"
	"github.com/tmblog/mpro/internal/logger"
	"github.com/tmblog/mpro/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, q store.DBTX, params CreateParams) (*Cart, error)
	Get(ctx context.Context, q store.DBTX, cartID int64) (*Cart, error)
	GetForUpdate(ctx context.Context, q store.DBTX, cartID int64) (*Cart, error)
	ListOpen(ctx context.Context, q store.DBTX) ([]Summary, error)
	UpdateStatus(ctx context.Context, q store.DBTX, cartID int64, status Status, updatedBy *int64) error
	SetDiscount(ctx context.Context, q store.DBTX, cartID int64, d Discount) error
	SetServiceCharge(ctx context.Context, q store.DBTX, cartID int64, amount decimal.Decimal) error
	SetVATAmount(ctx context.Context, q store.DBTX, cartID int64, amount decimal.Decimal) error
	SetOrderType(ctx context.Context, q store.DBTX, cartID int64, orderType OrderType) error
	SetNote(ctx context.Context, q store.DBTX, cartID int64, note string) error
	Touch(ctx context.Context, q store.DBTX, cartID int64) error
	Delete(ctx context.Context, q store.DBTX, cartID int64) error

	ListItems(ctx context.Context, q store.DBTX, cartID int64) ([]Item, error)
	GetItem(ctx context.Context, q store.DBTX, itemID int64) (*Item, error)
	FindMatchingItem(ctx context.Context, q store.DBTX, cartID, productID int64, options []Option) (*Item, error)
	InsertItem(ctx context.Context, q store.DBTX, params NewItemParams) (*Item, error)
	UpdateItem(ctx context.Context, q store.DBTX, itemID int64, quantity int, note string) error
	UpdateItemQuantity(ctx context.Context, q store.DBTX, itemID int64, quantity int) error
	UpdateItemPricing(ctx context.Context, q store.DBTX, itemID int64, price decimal.Decimal, options []Option) error
	SetItemDiscount(ctx context.Context, q store.DBTX, itemID int64, d Discount) error
	MoveItem(ctx context.Context, q store.DBTX, itemID, toCartID int64) error
	MoveAllItems(ctx context.Context, q store.DBTX, fromCartID, toCartID int64) (int64, error)
	DeleteItem(ctx context.Context, q store.DBTX, itemID int64) error
	SumProductQuantity(ctx context.Context, q store.DBTX, cartID, productID, excludeItemID int64) (int, error)
	MarkKitchenPrinted(ctx context.Context, q store.DBTX, cartID int64) (int64, error)

	InsertPayment(ctx context.Context, q store.DBTX, cartID int64, method string, amount decimal.Decimal) (*Payment, error)
	ListPayments(ctx context.Context, q store.DBTX, cartID int64) ([]Payment, error)
	SumPayments(ctx context.Context, q store.DBTX, cartID int64) (decimal.Decimal, error)
	InsertRefund(ctx context.Context, q store.DBTX, cartID int64, paymentType string, amount decimal.Decimal) (*Refund, error)
	ListRefunds(ctx context.Context, q store.DBTX, cartID int64) ([]Refund, error)
	SumRefunds(ctx context.Context, q store.DBTX, cartID int64) (decimal.Decimal, error)
}

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

const cartColumns = `cart_id, order_type, order_menu, cart_status, customer_id, overall_note,
	cart_discount_type, cart_discount, cart_service_charge, vat_amount, sync_status,
	order_date, cart_charge_updated, cart_started_by, cart_updated_by`

const itemColumns = `cart_item_id, cart_id, product_id, product_name, price, quantity, options,
	product_note, product_discount_type, product_discount, category_order, vatable, cpn,
	printed_kitchen, printed_bar`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCart(row rowScanner) (*Cart, error) {
	var (
		c         Cart
		customer  sql.NullInt64
		updated   sql.NullTime
		startedBy sql.NullInt64
		updatedBy sql.NullInt64
	)
	err := row.Scan(
		&c.ID, &c.OrderType, &c.Menu, &c.Status, &customer, &c.Note,
		&c.Discount.Type, &c.Discount.Amount, &c.ServiceCharge, &c.VATAmount, &c.SyncStatus,
		&c.OrderDate, &updated, &startedBy, &updatedBy,
	)
	if err != nil {
		return nil, err
	}
	c.CustomerID = nullInt(customer)
	c.StartedBy = nullInt(startedBy)
	c.UpdatedBy = nullInt(updatedBy)
	if updated.Valid {
		c.ChargeUpdated = &updated.Time
	}
	return &c, nil
}

func scanItem(row rowScanner) (*Item, []MalformedOption, error) {
	var (
		it  Item
		raw string
	)
	err := row.Scan(
		&it.ID, &it.CartID, &it.ProductID, &it.Name, &it.Price, &it.Quantity, &raw,
		&it.Note, &it.Discount.Type, &it.Discount.Amount, &it.CategoryOrder, &it.Vatable, &it.Discountable,
		&it.PrintedKitchen, &it.PrintedBar,
	)
	if err != nil {
		return nil, nil, err
	}
	it.Options, it.Malformed = DecodeOptions(raw)
	return &it, it.Malformed, nil
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func dbErr(op string, sentinel, err error) error {
	return store.MapError(op, fmt.Errorf("%w: %w", sentinel, err))
}

func (r *repository) Create(ctx context.Context, q store.DBTX, params CreateParams) (*Cart, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
		zap.String("order_type", string(params.OrderType)),
	)

	row := q.QueryRowContext(ctx, `
		INSERT INTO cart (
			order_type, order_menu, customer_id, overall_note,
			cart_service_charge, cart_started_by, cart_status, sync_status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING `+cartColumns,
		params.OrderType,
		params.Menu,
		params.CustomerID,
		params.Note,
		params.ServiceCharge,
		params.StartedBy,
		StatusProcessing,
		SyncPending,
	)

	c, err := scanCart(row)
	if err != nil {
		log.Error("failed to insert cart", zap.Error(err))
		return nil, dbErr("cart.Create", ErrFailedCreateCart, err)
	}

	log.Debug("cart created", zap.Int64("cart_id", c.ID))
	return c, nil
}

func (r *repository) Get(ctx context.Context, q store.DBTX, cartID int64) (*Cart, error) {
	return r.getCart(ctx, q, cartID, false)
}

// GetForUpdate locks the cart row until the surrounding transaction ends.
func (r *repository) GetForUpdate(ctx context.Context, q store.DBTX, cartID int64) (*Cart, error) {
	return r.getCart(ctx, q, cartID, true)
}

func (r *repository) getCart(ctx context.Context, q store.DBTX, cartID int64, lock bool) (*Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM cart WHERE cart_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	c, err := scanCart(q.QueryRowContext(ctx, query, cartID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("cart.Get", fmt.Errorf("%w: %d", ErrCartNotFound, cartID))
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to get cart",
			zap.String("layer", "repository"),
			zap.Int64("cart_id", cartID),
			zap.Error(err),
		)
		return nil, dbErr("cart.Get", ErrFailedGetCart, err)
	}
	return c, nil
}

func (r *repository) ListOpen(ctx context.Context, q store.DBTX) ([]Summary, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT c.cart_id, c.order_type, c.cart_status, c.order_date, COUNT(ci.cart_item_id)
		FROM cart c
		LEFT JOIN cart_item ci ON ci.cart_id = c.cart_id
		WHERE c.cart_status = $1
		GROUP BY c.cart_id
		ORDER BY c.order_date ASC
	`, StatusProcessing)
	if err != nil {
		return nil, dbErr("cart.ListOpen", ErrFailedGetCart, err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.OrderType, &s.Status, &s.OrderDate, &s.ItemCount); err != nil {
			return nil, dbErr("cart.ListOpen", ErrFailedGetCart, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("cart.ListOpen", ErrFailedGetCart, err)
	}
	return out, nil
}

func (r *repository) exec(ctx context.Context, q store.DBTX, op string, sentinel, notFound error, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromCtx(ctx).Error("statement failed",
			zap.String("layer", "repository"),
			zap.String("method", op),
			zap.Error(err),
		)
		return dbErr(op, sentinel, err)
	}
	if notFound == nil {
		return nil
	}
	if err := store.RowsAffected(res); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound(op, notFound)
		}
		return dbErr(op, sentinel, err)
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, q store.DBTX, cartID int64, status Status, updatedBy *int64) error {
	return r.exec(ctx, q, "cart.UpdateStatus", ErrFailedUpdateCart, ErrCartNotFound, `
		UPDATE cart
		SET cart_status = $1,
		    cart_charge_updated = NOW(),
		    cart_updated_by = COALESCE($2, cart_updated_by),
		    sync_status = $3
		WHERE cart_id = $4
	`, status, updatedBy, SyncPending, cartID)
}

func (r *repository) SetDiscount(ctx context.Context, q store.DBTX, cartID int64, d Discount) error {
	return r.exec(ctx, q, "cart.SetDiscount", ErrFailedUpdateCart, ErrCartNotFound, `
		UPDATE cart
		SET cart_discount_type = $1, cart_discount = $2, sync_status = $3
		WHERE cart_id = $4
	`, d.Type, d.Amount, SyncPending, cartID)
}

func (r *repository) SetServiceCharge(ctx context.Context, q store.DBTX, cartID int64, amount decimal.Decimal) error {
	return r.exec(ctx, q, "cart.SetServiceCharge", ErrFailedUpdateCart, ErrCartNotFound, `
		UPDATE cart
		SET cart_service_charge = $1, sync_status = $2
		WHERE cart_id = $3
	`, amount, SyncPending, cartID)
}

func (r *repository) SetVATAmount(ctx context.Context, q store.DBTX, cartID int64, amount decimal.Decimal) error {
	return r.exec(ctx, q, "cart.SetVATAmount", ErrFailedUpdateCart, ErrCartNotFound,
		`UPDATE cart SET vat_amount = $1 WHERE cart_id = $2`, amount, cartID)
}

func (r *repository) SetOrderType(ctx context.Context, q store.DBTX, cartID int64, orderType OrderType) error {
	return r.exec(ctx, q, "cart.SetOrderType", ErrFailedUpdateCart, ErrCartNotFound, `
		UPDATE cart
		SET order_type = $1, sync_status = $2
		WHERE cart_id = $3
	`, orderType, SyncPending, cartID)
}

func (r *repository) SetNote(ctx context.Context, q store.DBTX, cartID int64, note string) error {
	return r.exec(ctx, q, "cart.SetNote", ErrFailedUpdateCart, ErrCartNotFound, `
		UPDATE cart
		SET overall_note = $1, sync_status = $2
		WHERE cart_id = $3
	`, note, SyncPending, cartID)
}

func (r *repository) Touch(ctx context.Context, q store.DBTX, cartID int64) error {
	return r.exec(ctx, q, "cart.Touch", ErrFailedUpdateCart, ErrCartNotFound,
		`UPDATE cart SET sync_status = $1 WHERE cart_id = $2`, SyncPending, cartID)
}

// Delete removes the cart with its items and payments. Table links must
// already be released.
func (r *repository) Delete(ctx context.Context, q store.DBTX, cartID int64) error {
	if err := r.exec(ctx, q, "cart.Delete", ErrFailedDeleteCart, nil,
		`DELETE FROM cart_item WHERE cart_id = $1`, cartID); err != nil {
		return err
	}
	if err := r.exec(ctx, q, "cart.Delete", ErrFailedDeleteCart, nil,
		`DELETE FROM cart_payments WHERE cart_id = $1`, cartID); err != nil {
		return err
	}
	return r.exec(ctx, q, "cart.Delete", ErrFailedDeleteCart, ErrCartNotFound,
		`DELETE FROM cart WHERE cart_id = $1`, cartID)
}

func (r *repository) ListItems(ctx context.Context, q store.DBTX, cartID int64) ([]Item, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListItems"),
		zap.Int64("cart_id", cartID),
	)

	rows, err := q.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM cart_item
		WHERE cart_id = $1
		ORDER BY category_order ASC, cart_item_id ASC
	`, cartID)
	if err != nil {
		log.Error("failed to query cart items", zap.Error(err))
		return nil, dbErr("cart.ListItems", ErrFailedGetCartItems, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, bad, err := scanItem(rows)
		if err != nil {
			log.Error("failed to scan cart item", zap.Error(err))
			return nil, dbErr("cart.ListItems", ErrFailedGetCartItems, err)
		}
		for _, m := range bad {
			log.Warn("skipping malformed option",
				zap.Int64("cart_item_id", it.ID),
				zap.String("raw", m.Raw),
				zap.String("reason", m.Reason),
			)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("cart.ListItems", ErrFailedGetCartItems, err)
	}
	return items, nil
}

func (r *repository) GetItem(ctx context.Context, q store.DBTX, itemID int64) (*Item, error) {
	it, _, err := scanItem(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM cart_item WHERE cart_item_id = $1`, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("cart.GetItem", fmt.Errorf("%w: %d", ErrCartItemNotFound, itemID))
	}
	if err != nil {
		return nil, dbErr("cart.GetItem", ErrFailedGetCartItems, err)
	}
	return it, nil
}

// FindMatchingItem returns the line with the same product and options, or nil.
func (r *repository) FindMatchingItem(ctx context.Context, q store.DBTX, cartID, productID int64, options []Option) (*Item, error) {
	it, _, err := scanItem(q.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM cart_item
		WHERE cart_id = $1 AND product_id = $2 AND options = $3
		ORDER BY cart_item_id ASC
		LIMIT 1
	`, cartID, productID, EncodeOptions(options)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbErr("cart.FindMatchingItem", ErrFailedGetCartItems, err)
	}
	return it, nil
}

func (r *repository) InsertItem(ctx context.Context, q store.DBTX, p NewItemParams) (*Item, error) {
	if p.Quantity < 1 {
		return nil, apperr.Validation("cart.InsertItem", ErrInvalidQuantity)
	}
	discount := p.Discount
	if discount.Type == "" {
		discount = NoDiscount()
	}

	it, _, err := scanItem(q.QueryRowContext(ctx, `
		INSERT INTO cart_item (
			cart_id, product_id, product_name, price, quantity, options,
			product_note, product_discount_type, product_discount,
			category_order, vatable, cpn
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING `+itemColumns,
		p.CartID,
		p.ProductID,
		p.Name,
		p.Price,
		p.Quantity,
		EncodeOptions(p.Options),
		p.Note,
		discount.Type,
		discount.Amount,
		p.CategoryOrder,
		p.Vatable,
		p.Discountable,
	))
	if err != nil {
		logger.FromCtx(ctx).Error("failed to insert cart item",
			zap.String("layer", "repository"),
			zap.Int64("cart_id", p.CartID),
			zap.Int64("product_id", p.ProductID),
			zap.Error(err),
		)
		return nil, dbErr("cart.InsertItem", ErrFailedCreateCartItem, err)
	}
	return it, nil
}

func (r *repository) UpdateItem(ctx context.Context, q store.DBTX, itemID int64, quantity int, note string) error {
	if quantity < 1 {
		return apperr.Validation("cart.UpdateItem", ErrInvalidQuantity)
	}
	return r.exec(ctx, q, "cart.UpdateItem", ErrFailedUpdateCartItem, ErrCartItemNotFound,
		`UPDATE cart_item SET quantity = $1, product_note = $2 WHERE cart_item_id = $3`,
		quantity, note, itemID)
}

func (r *repository) UpdateItemQuantity(ctx context.Context, q store.DBTX, itemID int64, quantity int) error {
	if quantity < 1 {
		return apperr.Validation("cart.UpdateItemQuantity", ErrInvalidQuantity)
	}
	return r.exec(ctx, q, "cart.UpdateItemQuantity", ErrFailedUpdateCartItem, ErrCartItemNotFound,
		`UPDATE cart_item SET quantity = $1 WHERE cart_item_id = $2`, quantity, itemID)
}

func (r *repository) UpdateItemPricing(ctx context.Context, q store.DBTX, itemID int64, price decimal.Decimal, options []Option) error {
	return r.exec(ctx, q, "cart.UpdateItemPricing", ErrFailedUpdateCartItem, ErrCartItemNotFound,
		`UPDATE cart_item SET price = $1, options = $2 WHERE cart_item_id = $3`,
		price, EncodeOptions(options), itemID)
}

func (r *repository) SetItemDiscount(ctx context.Context, q store.DBTX, itemID int64, d Discount) error {
	return r.exec(ctx, q, "cart.SetItemDiscount", ErrFailedUpdateCartItem, ErrCartItemNotFound, `
		UPDATE cart_item
		SET product_discount_type = $1, product_discount = $2
		WHERE cart_item_id = $3
	`, d.Type, d.Amount, itemID)
}

func (r *repository) MoveItem(ctx context.Context, q store.DBTX, itemID, toCartID int64) error {
	return r.exec(ctx, q, "cart.MoveItem", ErrFailedUpdateCartItem, ErrCartItemNotFound,
		`UPDATE cart_item SET cart_id = $1 WHERE cart_item_id = $2`, toCartID, itemID)
}

func (r *repository) MoveAllItems(ctx context.Context, q store.DBTX, fromCartID, toCartID int64) (int64, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE cart_item SET cart_id = $1 WHERE cart_id = $2`, toCartID, fromCartID)
	if err != nil {
		return 0, dbErr("cart.MoveAllItems", ErrFailedUpdateCartItem, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbErr("cart.MoveAllItems", ErrFailedUpdateCartItem, err)
	}
	return n, nil
}

// MarkKitchenPrinted records every line of the cart as sent to the kitchen
// and returns how many lines had unsent quantity.
func (r *repository) MarkKitchenPrinted(ctx context.Context, q store.DBTX, cartID int64) (int64, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE cart_item
		SET printed_kitchen = quantity
		WHERE cart_id = $1 AND printed_kitchen < quantity
	`, cartID)
	if err != nil {
		return 0, dbErr("cart.MarkKitchenPrinted", ErrFailedUpdateCartItem, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbErr("cart.MarkKitchenPrinted", ErrFailedUpdateCartItem, err)
	}
	return n, nil
}

func (r *repository) DeleteItem(ctx context.Context, q store.DBTX, itemID int64) error {
	return r.exec(ctx, q, "cart.DeleteItem", ErrFailedUpdateCartItem, ErrCartItemNotFound,
		`DELETE FROM cart_item WHERE cart_item_id = $1`, itemID)
}

// SumProductQuantity totals the product's quantity on the cart, leaving out
// excludeItemID (0 excludes nothing).
func (r *repository) SumProductQuantity(ctx context.Context, q store.DBTX, cartID, productID, excludeItemID int64) (int, error) {
	var total int
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM cart_item
		WHERE cart_id = $1 AND product_id = $2 AND cart_item_id <> $3
	`, cartID, productID, excludeItemID).Scan(&total)
	if err != nil {
		return 0, dbErr("cart.SumProductQuantity", ErrFailedGetCartItems, err)
	}
	return total, nil
}

func (r *repository) InsertPayment(ctx context.Context, q store.DBTX, cartID int64, method string, amount decimal.Decimal) (*Payment, error) {
	p := Payment{CartID: cartID, Method: method, DiscountedTotal: amount}
	err := q.QueryRowContext(ctx, `
		INSERT INTO cart_payments (cart_id, payment_method, discounted_total)
		VALUES ($1,$2,$3)
		RETURNING payment_id, created_at
	`, cartID, method, amount).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, dbErr("cart.InsertPayment", ErrFailedRecordPayment, err)
	}
	return &p, nil
}

func (r *repository) ListPayments(ctx context.Context, q store.DBTX, cartID int64) ([]Payment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT payment_id, cart_id, payment_method, discounted_total, created_at
		FROM cart_payments
		WHERE cart_id = $1
		ORDER BY payment_id ASC
	`, cartID)
	if err != nil {
		return nil, dbErr("cart.ListPayments", ErrFailedGetCart, err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.CartID, &p.Method, &p.DiscountedTotal, &p.CreatedAt); err != nil {
			return nil, dbErr("cart.ListPayments", ErrFailedGetCart, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("cart.ListPayments", ErrFailedGetCart, err)
	}
	return out, nil
}

func (r *repository) SumPayments(ctx context.Context, q store.DBTX, cartID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(discounted_total), 0) FROM cart_payments WHERE cart_id = $1`, cartID).Scan(&total)
	if err != nil {
		return decimal.Zero, dbErr("cart.SumPayments", ErrFailedGetCart, err)
	}
	return total, nil
}

func (r *repository) InsertRefund(ctx context.Context, q store.DBTX, cartID int64, paymentType string, amount decimal.Decimal) (*Refund, error) {
	rf := Refund{CartID: cartID, PaymentType: paymentType, Amount: amount}
	err := q.QueryRowContext(ctx, `
		INSERT INTO refunds (cart_id, payment_type, amount)
		VALUES ($1,$2,$3)
		RETURNING id, "timestamp"
	`, cartID, paymentType, amount).Scan(&rf.ID, &rf.Timestamp)
	if err != nil {
		return nil, dbErr("cart.InsertRefund", ErrFailedRecordRefund, err)
	}
	return &rf, nil
}

func (r *repository) ListRefunds(ctx context.Context, q store.DBTX, cartID int64) ([]Refund, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, cart_id, payment_type, amount, "timestamp"
		FROM refunds
		WHERE cart_id = $1
		ORDER BY "timestamp" ASC, id ASC
	`, cartID)
	if err != nil {
		return nil, dbErr("cart.ListRefunds", ErrFailedGetCart, err)
	}
	defer rows.Close()

	var out []Refund
	for rows.Next() {
		var rf Refund
		if err := rows.Scan(&rf.ID, &rf.CartID, &rf.PaymentType, &rf.Amount, &rf.Timestamp); err != nil {
			return nil, dbErr("cart.ListRefunds", ErrFailedGetCart, err)
		}
		out = append(out, rf)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("cart.ListRefunds", ErrFailedGetCart, err)
	}
	return out, nil
}

func (r *repository) SumRefunds(ctx context.Context, q store.DBTX, cartID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM refunds WHERE cart_id = $1`, cartID).Scan(&total)
	if err != nil {
		return decimal.Zero, dbErr("cart.SumRefunds", ErrFailedGetCart, err)
	}
	return total, nil
}
