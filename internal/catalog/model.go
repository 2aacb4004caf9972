package catalog

import (
	"github.com/tmblog/mpro/internal/cart"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID             int64
	Name           string
	InPrice        decimal.Decimal
	OutPrice       decimal.Decimal
	Vatable        bool
	Discountable   bool
	TrackInventory bool
	StockQuantity  int
	CategoryOrder  int
}

// Price returns the unit price for the menu.
func (p Product) Price(menu cart.Menu) decimal.Decimal {
	if menu == cart.MenuIn {
		return p.InPrice
	}
	return p.OutPrice
}

type OptionItem struct {
	ID       int64
	OptionID int64
	Name     string
	InPrice  decimal.Decimal
	OutPrice decimal.Decimal
	Vatable  bool
}

func (o OptionItem) Price(menu cart.Menu) decimal.Decimal {
	if menu == cart.MenuIn {
		return o.InPrice
	}
	return o.OutPrice
}
