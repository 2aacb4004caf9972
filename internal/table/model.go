package table

import (
	"github.com/tmblog/mpro/internal/cart"
	"github.com/tmblog/mpro/internal/pricing"

	"github.com/shopspring/decimal"
)

// Table is a dining table. Occupancy is 0 when free, else the holding cart id.
type Table struct {
	ID        int64
	Number    string
	Occupancy int64
	RoomID    *int64
	RoomLabel string
	RoomOrder int
}

func (t Table) Free() bool { return t.Occupancy == 0 }

// CartTable is one cart to table link with its cover count.
type CartTable struct {
	CartID    int64
	TableID   int64
	Number    string
	Cover     int
	RoomLabel string
	RoomOrder int
}

// Request names a table by id or, when ID is 0, by number.
type Request struct {
	TableID int64
	Number  string
	Cover   int
}

// Update changes the covers on a held table and/or swaps it for a free one.
type Update struct {
	TableID    int64
	NewTableID int64
	Cover      *int
}

type ItemMove struct {
	ItemID   int64
	Quantity int
}

type SplitParams struct {
	SourceCartID int64
	TableIDs     []int64
	Items        []ItemMove
	// Covers overrides the cover count per moved table id.
	Covers     map[int64]int
	EmployeeID *int64
}

type SplitResult struct {
	NewCart      *cart.Cart
	SourceTables []CartTable
	NewTables    []CartTable
}

type TransferParams struct {
	SourceCartID  int64
	OrderType     cart.OrderType
	Menu          cart.Menu
	CustomerID    *int64
	ServiceCharge decimal.Decimal
	// Note replaces the source's note when set.
	Note string
	// Tables replaces the source's tables when the destination is dine-in.
	// Left empty, a dine-in destination keeps the source's tables.
	Tables     []Request
	EmployeeID *int64
}

type TransferResult struct {
	NewCart  *cart.Cart
	Repriced int
	Warnings []pricing.Warning
	Tables   []CartTable
}

// RoomTables lists free tables of one room.
type RoomTables struct {
	RoomLabel string
	Tables    []Table
}

// TotalCovers sums covers across the cart's tables.
func TotalCovers(tables []CartTable) int {
	total := 0
	for _, t := range tables {
		total += t.Cover
	}
	return total
}
