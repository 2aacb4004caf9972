package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeDine     OrderType = "dine"
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeDelivery OrderType = "delivery"
	OrderTypeWaiting  OrderType = "waiting"
	OrderTypeSale     OrderType = "sale"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDine, OrderTypeTakeaway, OrderTypeDelivery, OrderTypeWaiting, OrderTypeSale:
		return true
	}
	return false
}

func (t OrderType) IsDine() bool { return t == OrderTypeDine }

// Menu selects the price list: eat-in prices or takeout prices.
type Menu int

const (
	MenuIn  Menu = 0
	MenuOut Menu = 1
)

func (m Menu) Valid() bool { return m == MenuIn || m == MenuOut }

type Status string

const (
	StatusProcessing    Status = "processing"
	StatusCompleted     Status = "completed"
	StatusPartialRefund Status = "partial_refund"
	StatusRefunded      Status = "refunded"
)

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// refunded is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusProcessing:
		return next == StatusCompleted
	case StatusCompleted:
		return next == StatusCompleted || next == StatusPartialRefund || next == StatusRefunded
	case StatusPartialRefund:
		return next == StatusPartialRefund || next == StatusRefunded
	}
	return false
}

func (s Status) IsOpen() bool { return s == StatusProcessing }

// Refundable reports whether refunds may still be recorded against the cart.
func (s Status) Refundable() bool {
	return s == StatusCompleted || s == StatusPartialRefund
}

const (
	SyncPending = "pending"
	SyncSynced  = "synced"
)

type Cart struct {
	ID            int64
	OrderType     OrderType
	Menu          Menu
	Status        Status
	CustomerID    *int64
	Note          string
	Discount      Discount
	ServiceCharge decimal.Decimal
	VATAmount     decimal.Decimal
	SyncStatus    string
	OrderDate     time.Time
	ChargeUpdated *time.Time
	StartedBy     *int64
	UpdatedBy     *int64
}

type Item struct {
	ID            int64
	CartID        int64
	ProductID     int64
	Name          string
	Price         decimal.Decimal // unit price snapshot
	Quantity      int
	Options       []Option
	Note          string
	Discount      Discount
	CategoryOrder int
	Vatable       bool
	Discountable  bool
	// Quantities already sent to the kitchen and bar printers.
	PrintedKitchen int
	PrintedBar     int

	// Malformed lists stored option entries that could not be decoded.
	Malformed []MalformedOption
}

type Payment struct {
	ID              int64
	CartID          int64
	Method          string
	DiscountedTotal decimal.Decimal
	CreatedAt       time.Time
}

type Refund struct {
	ID          int64
	CartID      int64
	PaymentType string
	Amount      decimal.Decimal
	Timestamp   time.Time
}

type CreateParams struct {
	OrderType     OrderType
	Menu          Menu
	CustomerID    *int64
	Note          string
	ServiceCharge decimal.Decimal
	StartedBy     *int64
}

type NewItemParams struct {
	CartID        int64
	ProductID     int64
	Name          string
	Price         decimal.Decimal
	Quantity      int
	Options       []Option
	Note          string
	Discount      Discount
	CategoryOrder int
	Vatable       bool
	Discountable  bool
}

// Summary is the per-cart listing row used for open-cart overviews.
type Summary struct {
	ID        int64
	OrderType OrderType
	Status    Status
	OrderDate time.Time
	ItemCount int
}
