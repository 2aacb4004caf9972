package kitchen

import (
	"context"
	"time"

	"github.com/tmblog/mpro/internal/cart"
	"github.com/tmblog/mpro/internal/store"

	"github.com/google/uuid"
)

// Ticket is what the kitchen screen receives once a cart is settled.
type Ticket struct {
	ID           uuid.UUID      `json:"ticket_id"`
	CartID       int64          `json:"cart_id"`
	OrderType    cart.OrderType `json:"order_type"`
	TableDisplay string         `json:"table_display,omitempty"`
	Note         string         `json:"note,omitempty"`
	Items        []TicketItem   `json:"items"`
	CreatedAt    time.Time      `json:"created_at"`
}

type TicketItem struct {
	ItemID   int64    `json:"item_id"`
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Options  []string `json:"options,omitempty"`
	Note     string   `json:"note,omitempty"`
}

// Notifier pushes settled tickets to the kitchen.
type Notifier interface {
	PublishTicket(ctx context.Context, t Ticket) error
}

// NopNotifier drops every ticket. Used when no broker is configured.
type NopNotifier struct{}

func (NopNotifier) PublishTicket(context.Context, Ticket) error { return nil }

// Excluder reports products that never go to the kitchen.
type Excluder interface {
	IsKitchenExcluded(ctx context.Context, q store.DBTX, productID int64) (bool, error)
}

// NewTicket builds the ticket for c, leaving out excluded products. It
// returns a ticket with no items when nothing needs cooking.
func NewTicket(ctx context.Context, q store.DBTX, ex Excluder, c *cart.Cart, items []cart.Item, tableDisplay string) (Ticket, error) {
	t := Ticket{
		ID:           uuid.New(),
		CartID:       c.ID,
		OrderType:    c.OrderType,
		TableDisplay: tableDisplay,
		Note:         c.Note,
		CreatedAt:    time.Now().UTC(),
	}

	excluded := make(map[int64]bool)
	for _, it := range items {
		skip, seen := excluded[it.ProductID]
		if !seen {
			var err error
			if skip, err = ex.IsKitchenExcluded(ctx, q, it.ProductID); err != nil {
				return Ticket{}, err
			}
			excluded[it.ProductID] = skip
		}
		if skip {
			continue
		}

		ti := TicketItem{
			ItemID:   it.ID,
			Name:     it.Name,
			Quantity: it.Quantity,
			Note:     it.Note,
		}
		for _, opt := range it.Options {
			ti.Options = append(ti.Options, opt.Label())
		}
		t.Items = append(t.Items, ti)
	}
	return t, nil
}
