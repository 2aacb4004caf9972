package pricing

import (
	"context"
	"fmt"

	"github.com/tmblog/mpro/internal/apperr"
	"github.com/tmblog/mpro/internal/cart"
	"github.com/tmblog/mpro/internal/catalog"
	"github.com/tmblog/mpro/internal/logger"
	"github.com/tmblog/mpro/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Catalog is the part of the catalog repository repricing needs.
type Catalog interface {
	GetProduct(ctx context.Context, q store.DBTX, productID int64) (*catalog.Product, error)
	GetOptionItem(ctx context.Context, q store.DBTX, optionItemID int64) (*catalog.OptionItem, error)
}

// Warning reports data that was skipped while repricing. It never fails the
// surrounding operation.
type Warning struct {
	ItemID int64
	Detail string
}

func (w Warning) String() string {
	return fmt.Sprintf("cart item %d: %s", w.ItemID, w.Detail)
}

type RepricedItem struct {
	ItemID  int64
	Price   decimal.Decimal
	Options []cart.Option
	Changed bool
}

type Repricer struct {
	catalog Catalog
}

func NewRepricer(c Catalog) *Repricer {
	return &Repricer{catalog: c}
}

// Reprice looks up every item and option price again for menu. Items whose
// product has left the catalog keep their price; options that are malformed
// or unknown are dropped.
func (r *Repricer) Reprice(ctx context.Context, q store.DBTX, items []cart.Item, menu cart.Menu) ([]RepricedItem, []Warning, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "pricing"),
		zap.String("method", "Reprice"),
		zap.Int("menu", int(menu)),
	)

	var (
		out      []RepricedItem
		warnings []Warning
	)
	warn := func(itemID int64, detail string) {
		w := Warning{ItemID: itemID, Detail: detail}
		log.Warn("data integrity warning", zap.String("detail", w.String()))
		warnings = append(warnings, w)
	}

	for _, it := range items {
		product, err := r.catalog.GetProduct(ctx, q, it.ProductID)
		if apperr.IsNotFound(err) {
			warn(it.ID, fmt.Sprintf("product %d not in catalog, price kept", it.ProductID))
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		ri := RepricedItem{
			ItemID: it.ID,
			Price:  product.Price(menu),
		}
		changed := !ri.Price.Equal(it.Price) || len(it.Malformed) > 0

		for _, m := range it.Malformed {
			warn(it.ID, m.String())
		}

		for _, opt := range it.Options {
			if opt.OptionItemID == 0 {
				ri.Options = append(ri.Options, opt)
				continue
			}
			item, err := r.catalog.GetOptionItem(ctx, q, opt.OptionItemID)
			if apperr.IsNotFound(err) {
				warn(it.ID, fmt.Sprintf("option %d not in catalog, dropped", opt.OptionItemID))
				changed = true
				continue
			}
			if err != nil {
				return nil, nil, err
			}
			price := item.Price(menu)
			if !price.Equal(opt.UnitPrice) {
				changed = true
			}
			opt.UnitPrice = price
			ri.Options = append(ri.Options, opt)
		}

		ri.Changed = changed
		out = append(out, ri)
	}

	return out, warnings, nil
}
