package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tmblog/mpro/internal/apperr"
	"github.com/tmblog/mpro/internal/cart"
	"github.com/tmblog/mpro/internal/catalog"
	"github.com/tmblog/mpro/internal/inventory"
	"github.com/tmblog/mpro/internal/kitchen"
	"github.com/tmblog/mpro/internal/pricing"
	"github.com/tmblog/mpro/internal/settings"
	"github.com/tmblog/mpro/internal/store"
	"github.com/tmblog/mpro/internal/table"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var cartCols = []string{
	"cart_id", "order_type", "order_menu", "cart_status", "customer_id", "overall_note",
	"cart_discount_type", "cart_discount", "cart_service_charge", "vat_amount", "sync_status",
	"order_date", "cart_charge_updated", "cart_started_by", "cart_updated_by",
}

var itemCols = []string{
	"cart_item_id", "cart_id", "product_id", "product_name", "price", "quantity", "options",
	"product_note", "product_discount_type", "product_discount", "category_order", "vatable", "cpn",
	"printed_kitchen", "printed_bar",
}

var productCols = []string{
	"product_id", "product_name", "in_price", "out_price", "vatable", "cpn",
	"track_inventory", "stock_quantity", "category_order",
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PublishTicket(ctx context.Context, t kitchen.Ticket) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// cartRow is a dine-in cart with a 10% cart discount and no service charge.
func cartRow(status cart.Status) *sqlmock.Rows {
	return sqlmock.NewRows(cartCols).AddRow(
		int64(5), "dine", int64(0), string(status), nil, "",
		"percentage", "10", "0", "0", "pending",
		time.Now(), nil, int64(3), nil,
	)
}

// itemRows is two 10.00 burgers.
func itemRows() *sqlmock.Rows {
	return sqlmock.NewRows(itemCols).
		AddRow(int64(1), int64(5), int64(100), "Burger", "10.00", 2, "", "", "fixed", "0", 1, true, true, 0, 0)
}

func newProcessor(db store.Store, vat string, kitchenOn bool, n kitchen.Notifier) Processor {
	carts := cart.NewRepository()
	products := catalog.NewRepository()
	return NewProcessor(Deps{
		Store:     db,
		Carts:     carts,
		Tables:    table.NewAllocator(table.NewRepository(), carts, pricing.NewRepricer(products)),
		Kitchen:   kitchen.NewRepository(),
		Excluder:  products,
		Inventory: inventory.NewTracker(products, carts),
		Settings:  settings.NewStatic(settings.Values{VATPercent: dec(vat), KitchenScreen: kitchenOn}),
		Notifier:  n,
	})
}

func TestProcessor_Checkout(t *testing.T) {
	ctx := context.Background()

	t.Run("Settles, frees tables, queues the kitchen and notifies after commit", func(t *testing.T) {
		db, sm, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		notifier := new(MockNotifier)
		notifier.On("PublishTicket", mock.Anything, mock.MatchedBy(func(tk kitchen.Ticket) bool {
			return tk.CartID == 5 && tk.TableDisplay == "Main 4" && len(tk.Items) == 1
		})).Return(nil).Once()

		sm.ExpectBegin()
		sm.ExpectQuery("FROM cart WHERE cart_id = \\$1 FOR UPDATE").WithArgs(int64(5)).
			WillReturnRows(cartRow(cart.StatusProcessing))
		sm.ExpectQuery("FROM cart_item").WithArgs(int64(5)).
			WillReturnRows(itemRows())
		sm.ExpectQuery("INSERT INTO cart_payments").WithArgs(int64(5), "Card", "21.6").
			WillReturnRows(sqlmock.NewRows([]string{"payment_id", "created_at"}).AddRow(int64(1), time.Now()))
		sm.ExpectExec("UPDATE cart\\s+SET cart_status").WithArgs("completed", nil, "pending", int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		sm.ExpectExec("UPDATE cart SET vat_amount").WithArgs("3.6", int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		sm.ExpectQuery("FROM cart_dining_tables").WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"cart_id", "table_id", "table_number", "table_cover", "room_label", "room_order"}).
				AddRow(int64(5), int64(4), "4", 2, "Main", 1))
		sm.ExpectExec("UPDATE dining_tables SET table_occupied = 0").WithArgs(int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		sm.ExpectExec("DELETE FROM cart_dining_tables").WithArgs(int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		sm.ExpectExec("INSERT INTO kitchen_orders").WithArgs(int64(5), kitchen.StatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))
		sm.ExpectExec("SET printed_kitchen = quantity").WithArgs(int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		sm.ExpectQuery("excluded_kitchen_products").WithArgs(int64(100)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		sm.ExpectQuery("FROM cart_item").WithArgs(int64(5)).
			WillReturnRows(itemRows())
		sm.ExpectQuery("FROM products WHERE product_id = \\$1 FOR UPDATE").WithArgs(int64(100)).
			WillReturnRows(sqlmock.NewRows(productCols).AddRow(int64(100), "Burger", "10.00", "10.00", true, true, false, 0, 1))
		sm.ExpectCommit()

		res, err := newProcessor(store.New(db), "20", true, notifier).Checkout(ctx, Params{
			CartID:          5,
			PaymentMethod:   "Card",
			DiscountedTotal: dec("21.60"),
		})

		require.NoError(t, err)
		assert.Equal(t, cart.StatusCompleted, res.Cart.Status)
		assert.Equal(t, "21.60", res.Totals.GrandTotal.StringFixed(2))
		assert.Equal(t, "3.60", res.Cart.VATAmount.StringFixed(2))
		assert.Equal(t, "Main 4", res.TableDisplay)
		assert.Equal(t, 1, res.KitchenOrders)
		require.Len(t, res.Payments, 1)
		require.NoError(t, sm.ExpectationsWereMet())
		notifier.AssertExpectations(t)
	})

	t.Run("Payment mismatch rolls back", func(t *testing.T) {
		db, sm, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		sm.ExpectBegin()
		sm.ExpectQuery("FOR UPDATE").WithArgs(int64(5)).WillReturnRows(cartRow(cart.StatusProcessing))
		sm.ExpectQuery("FROM cart_item").WithArgs(int64(5)).WillReturnRows(itemRows())
		sm.ExpectRollback()

		_, err = newProcessor(store.New(db), "20", false, nil).Checkout(ctx, Params{
			CartID:          5,
			PaymentMethod:   "Cash",
			DiscountedTotal: dec("20.00"),
		})

		assert.True(t, apperr.IsValidation(err))
		assert.ErrorIs(t, err, ErrPaymentMismatch)
		require.NoError(t, sm.ExpectationsWereMet())
	})

	t.Run("Settled cart is a conflict", func(t *testing.T) {
		db, sm, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		sm.ExpectBegin()
		sm.ExpectQuery("FOR UPDATE").WithArgs(int64(5)).WillReturnRows(cartRow(cart.StatusCompleted))
		sm.ExpectRollback()

		_, err = newProcessor(store.New(db), "20", false, nil).Checkout(ctx, Params{
			CartID:          5,
			PaymentMethod:   "Cash",
			DiscountedTotal: dec("21.60"),
		})

		assert.True(t, apperr.IsConflict(err))
		assert.ErrorIs(t, err, ErrAlreadySettled)
		require.NoError(t, sm.ExpectationsWereMet())
	})

	t.Run("Empty cart is rejected", func(t *testing.T) {
		db, sm, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		sm.ExpectBegin()
		sm.ExpectQuery("FOR UPDATE").WithArgs(int64(5)).WillReturnRows(cartRow(cart.StatusProcessing))
		sm.ExpectQuery("FROM cart_item").WithArgs(int64(5)).WillReturnRows(sqlmock.NewRows(itemCols))
		sm.ExpectRollback()

		_, err = newProcessor(store.New(db), "20", false, nil).Checkout(ctx, Params{
			CartID:        5,
			PaymentMethod: "Cash",
		})

		assert.ErrorIs(t, err, ErrEmptyCart)
		require.NoError(t, sm.ExpectationsWereMet())
	})

	t.Run("Stock shortfall rolls back the whole settlement", func(t *testing.T) {
		db, sm, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		notifier := new(MockNotifier)

		sm.ExpectBegin()
		sm.ExpectQuery("FOR UPDATE").WithArgs(int64(5)).WillReturnRows(cartRow(cart.StatusProcessing))
		sm.ExpectQuery("FROM cart_item").WithArgs(int64(5)).WillReturnRows(itemRows())
		sm.ExpectQuery("INSERT INTO cart_payments").
			WillReturnRows(sqlmock.NewRows([]string{"payment_id", "created_at"}).AddRow(int64(1), time.Now()))
		sm.ExpectExec("SET cart_status").WillReturnResult(sqlmock.NewResult(0, 1))
		sm.ExpectExec("SET vat_amount").WillReturnResult(sqlmock.NewResult(0, 1))
		sm.ExpectQuery("FROM cart_dining_tables").WillReturnRows(
			sqlmock.NewRows([]string{"cart_id", "table_id", "table_number", "table_cover", "room_label", "room_order"}))
		sm.ExpectExec("UPDATE dining_tables").WillReturnResult(sqlmock.NewResult(0, 0))
		sm.ExpectExec("DELETE FROM cart_dining_tables").WillReturnResult(sqlmock.NewResult(0, 0))
		sm.ExpectQuery("FROM cart_item").WithArgs(int64(5)).WillReturnRows(itemRows())
		sm.ExpectQuery("FROM products").WithArgs(int64(100)).
			WillReturnRows(sqlmock.NewRows(productCols).AddRow(int64(100), "Burger", "10.00", "10.00", true, true, true, 1, 1))
		sm.ExpectRollback()

		_, err = newProcessor(store.New(db), "20", false, notifier).Checkout(ctx, Params{
			CartID:          5,
			PaymentMethod:   "Cash",
			DiscountedTotal: dec("21.60"),
		})

		assert.True(t, apperr.IsInsufficientStock(err))
		assert.ErrorIs(t, err, inventory.ErrOutOfStock)
		require.NoError(t, sm.ExpectationsWereMet())
		notifier.AssertNotCalled(t, "PublishTicket", mock.Anything, mock.Anything)
	})

	t.Run("Kitchen publish failure does not undo the sale", func(t *testing.T) {
		db, sm, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		notifier := new(MockNotifier)
		notifier.On("PublishTicket", mock.Anything, mock.Anything).Return(errors.New("broker down"))

		sm.ExpectBegin()
		sm.ExpectQuery("FOR UPDATE").WithArgs(int64(5)).WillReturnRows(cartRow(cart.StatusProcessing))
		sm.ExpectQuery("FROM cart_item").WithArgs(int64(5)).WillReturnRows(itemRows())
		sm.ExpectQuery("INSERT INTO cart_payments").
			WillReturnRows(sqlmock.NewRows([]string{"payment_id", "created_at"}).AddRow(int64(1), time.Now()))
		sm.ExpectExec("SET cart_status").WillReturnResult(sqlmock.NewResult(0, 1))
		sm.ExpectQuery("FROM cart_dining_tables").WillReturnRows(
			sqlmock.NewRows([]string{"cart_id", "table_id", "table_number", "table_cover", "room_label", "room_order"}))
		sm.ExpectExec("UPDATE dining_tables").WillReturnResult(sqlmock.NewResult(0, 0))
		sm.ExpectExec("DELETE FROM cart_dining_tables").WillReturnResult(sqlmock.NewResult(0, 0))
		sm.ExpectExec("INSERT INTO kitchen_orders").WillReturnResult(sqlmock.NewResult(0, 1))
		sm.ExpectExec("SET printed_kitchen").WillReturnResult(sqlmock.NewResult(0, 1))
		sm.ExpectQuery("excluded_kitchen_products").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		sm.ExpectQuery("FROM cart_item").WithArgs(int64(5)).WillReturnRows(itemRows())
		sm.ExpectQuery("FROM products").WithArgs(int64(100)).
			WillReturnRows(sqlmock.NewRows(productCols).AddRow(int64(100), "Burger", "10.00", "10.00", true, true, false, 0, 1))
		sm.ExpectCommit()

		// No VAT configured, so the total is the discounted subtotal.
		res, err := newProcessor(store.New(db), "0", true, notifier).Checkout(ctx, Params{
			CartID:          5,
			PaymentMethod:   "Cash",
			DiscountedTotal: dec("18.00"),
		})

		require.NoError(t, err)
		assert.Equal(t, cart.StatusCompleted, res.Cart.Status)
		require.NoError(t, sm.ExpectationsWereMet())
		notifier.AssertExpectations(t)
	})
}

func TestProcessor_SplitPayments(t *testing.T) {
	ctx := context.Background()

	t.Run("One row per charge", func(t *testing.T) {
		db, sm, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		sm.ExpectBegin()
		sm.ExpectQuery("FOR UPDATE").WithArgs(int64(5)).WillReturnRows(cartRow(cart.StatusProcessing))
		sm.ExpectQuery("FROM cart_item").WithArgs(int64(5)).WillReturnRows(itemRows())
		sm.ExpectQuery("INSERT INTO cart_payments").WithArgs(int64(5), "Cash", "10").
			WillReturnRows(sqlmock.NewRows([]string{"payment_id", "created_at"}).AddRow(int64(1), time.Now()))
		sm.ExpectQuery("INSERT INTO cart_payments").WithArgs(int64(5), "Card", "8").
			WillReturnRows(sqlmock.NewRows([]string{"payment_id", "created_at"}).AddRow(int64(2), time.Now()))
		sm.ExpectExec("SET cart_status").WillReturnResult(sqlmock.NewResult(0, 1))
		sm.ExpectQuery("FROM cart_dining_tables").WillReturnRows(
			sqlmock.NewRows([]string{"cart_id", "table_id", "table_number", "table_cover", "room_label", "room_order"}))
		sm.ExpectExec("UPDATE dining_tables").WillReturnResult(sqlmock.NewResult(0, 0))
		sm.ExpectExec("DELETE FROM cart_dining_tables").WillReturnResult(sqlmock.NewResult(0, 0))
		sm.ExpectQuery("FROM cart_item").WithArgs(int64(5)).WillReturnRows(itemRows())
		sm.ExpectQuery("FROM products").WithArgs(int64(100)).
			WillReturnRows(sqlmock.NewRows(productCols).AddRow(int64(100), "Burger", "10.00", "10.00", true, true, false, 0, 1))
		sm.ExpectCommit()

		res, err := newProcessor(store.New(db), "0", false, nil).Checkout(ctx, Params{
			CartID:          5,
			PaymentMethod:   MethodSplit,
			DiscountedTotal: dec("18.00"),
			SplitCharges: []Charge{
				{Method: "Cash", Amount: dec("10.00")},
				{Method: "Card", Amount: dec("8.00")},
			},
		})

		require.NoError(t, err)
		assert.Len(t, res.Payments, 2)
		require.NoError(t, sm.ExpectationsWereMet())
	})

	t.Run("Charges may not drift from the grand total through the declared total", func(t *testing.T) {
		db, sm, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		sm.ExpectBegin()
		sm.ExpectQuery("FOR UPDATE").WithArgs(int64(5)).WillReturnRows(cartRow(cart.StatusProcessing))
		sm.ExpectQuery("FROM cart_item").WithArgs(int64(5)).WillReturnRows(itemRows())
		sm.ExpectRollback()

		_, err = newProcessor(store.New(db), "0", false, nil).Checkout(ctx, Params{
			CartID:          5,
			PaymentMethod:   MethodSplit,
			DiscountedTotal: dec("18.01"),
			SplitCharges: []Charge{
				{Method: "Cash", Amount: dec("10.00")},
				{Method: "Card", Amount: dec("8.02")},
			},
		})

		assert.True(t, apperr.IsValidation(err))
		assert.ErrorIs(t, err, ErrPaymentMismatch)
		require.NoError(t, sm.ExpectationsWereMet())
	})

	t.Run("Invalid splits never open a transaction", func(t *testing.T) {
		db, sm, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		p := newProcessor(store.New(db), "0", false, nil)

		_, err = p.Checkout(ctx, Params{CartID: 5, PaymentMethod: MethodSplit, DiscountedTotal: dec("18")})
		assert.ErrorIs(t, err, ErrSplitChargesRequired)

		_, err = p.Checkout(ctx, Params{CartID: 5, PaymentMethod: MethodSplit, DiscountedTotal: dec("18"),
			SplitCharges: []Charge{{Method: "Cash", Amount: dec("18")}, {Method: "Card", Amount: dec("0")}}})
		assert.ErrorIs(t, err, ErrInvalidCharge)

		_, err = p.Checkout(ctx, Params{CartID: 5, PaymentMethod: MethodSplit, DiscountedTotal: dec("18"),
			SplitCharges: []Charge{{Method: "Cash", Amount: dec("10")}}})
		assert.ErrorIs(t, err, ErrPaymentMismatch)

		_, err = p.Checkout(ctx, Params{CartID: 5})
		assert.ErrorIs(t, err, ErrPaymentMethodRequired)
		assert.True(t, apperr.IsValidation(err))

		require.NoError(t, sm.ExpectationsWereMet())
	})
}
