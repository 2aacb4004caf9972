package table

import (
	"context"
	"fmt"
	"sort"

	"github.com/tmblog/mpro/internal/apperr"
	"github.com/tmblog/mpro/internal/cart"
	"github.com/tmblog/mpro/internal/logger"
	"github.com/tmblog/mpro/internal/pricing"
	"github.com/tmblog/mpro/internal/store"

	"go.uber.org/zap"
)

// Allocator moves carts between tables. Every method runs inside the caller's
// transaction and leaves nothing behind when it fails.
type Allocator interface {
	Assign(ctx context.Context, q store.DBTX, cartID int64, reqs []Request) ([]CartTable, error)
	Merge(ctx context.Context, q store.DBTX, cartID int64, reqs []Request) ([]CartTable, error)
	Split(ctx context.Context, q store.DBTX, params SplitParams) (*SplitResult, error)
	Transfer(ctx context.Context, q store.DBTX, params TransferParams) (*TransferResult, error)
	UpdateTables(ctx context.Context, q store.DBTX, cartID int64, updates []Update) ([]CartTable, error)
	Free(ctx context.Context, q store.DBTX, cartID int64) error
	CartTables(ctx context.Context, q store.DBTX, cartID int64) ([]CartTable, error)
	FreeTables(ctx context.Context, q store.DBTX) ([]RoomTables, error)
}

type allocator struct {
	repo     Repository
	carts    cart.Repository
	repricer *pricing.Repricer
}

func NewAllocator(repo Repository, carts cart.Repository, repricer *pricing.Repricer) Allocator {
	return &allocator{
		repo:     repo,
		carts:    carts,
		repricer: repricer,
	}
}

type resolved struct {
	tableID int64
	cover   int
}

func (a *allocator) Assign(ctx context.Context, q store.DBTX, cartID int64, reqs []Request) ([]CartTable, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "table"),
		zap.String("method", "Assign"),
		zap.Int64("cart_id", cartID),
	)

	if len(reqs) == 0 {
		return nil, apperr.Validation("table.Assign", ErrNoTables)
	}

	targets := make([]resolved, 0, len(reqs))
	seen := make(map[int64]bool, len(reqs))
	for _, req := range reqs {
		if req.Cover < 0 {
			return nil, apperr.Validation("table.Assign", ErrInvalidCover)
		}
		id, err := a.resolveID(ctx, q, req)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, apperr.Validation("table.Assign", fmt.Errorf("%w: %d", ErrDuplicateTable, id))
		}
		seen[id] = true
		targets = append(targets, resolved{tableID: id, cover: req.Cover})
	}

	// Lock in id order so concurrent assigns cannot deadlock.
	sort.Slice(targets, func(i, j int) bool { return targets[i].tableID < targets[j].tableID })

	var out []CartTable
	for _, target := range targets {
		t, err := a.repo.LockTable(ctx, q, target.tableID)
		if err != nil {
			return nil, err
		}
		if !t.Free() {
			log.Info("table already occupied",
				zap.String("table_number", t.Number),
				zap.Int64("held_by", t.Occupancy),
			)
			return nil, apperr.Conflict("table.Assign", &ConflictError{TableID: t.ID, Number: t.Number, HeldBy: t.Occupancy})
		}
		if err := a.repo.SetOccupancy(ctx, q, t.ID, cartID); err != nil {
			return nil, err
		}
		link := CartTable{
			CartID:    cartID,
			TableID:   t.ID,
			Number:    t.Number,
			Cover:     target.cover,
			RoomLabel: t.RoomLabel,
			RoomOrder: t.RoomOrder,
		}
		if err := a.repo.InsertLink(ctx, q, link); err != nil {
			return nil, err
		}
		out = append(out, link)
	}

	log.Debug("tables assigned", zap.Int("count", len(out)))
	return out, nil
}

func (a *allocator) resolveID(ctx context.Context, q store.DBTX, req Request) (int64, error) {
	if req.TableID != 0 {
		return req.TableID, nil
	}
	if req.Number == "" {
		return 0, apperr.Validation("table.Assign", ErrTableUnidentified)
	}
	t, err := a.repo.GetTableByNumber(ctx, q, req.Number)
	if err != nil {
		return 0, err
	}
	return t.ID, nil
}

func (a *allocator) Merge(ctx context.Context, q store.DBTX, cartID int64, reqs []Request) ([]CartTable, error) {
	if _, err := a.lockDineCart(ctx, q, "table.Merge", cartID); err != nil {
		return nil, err
	}
	return a.Assign(ctx, q, cartID, reqs)
}

// lockDineCart locks the cart row and requires an open dine-in cart.
func (a *allocator) lockDineCart(ctx context.Context, q store.DBTX, op string, cartID int64) (*cart.Cart, error) {
	c, err := a.carts.GetForUpdate(ctx, q, cartID)
	if err != nil {
		return nil, err
	}
	if !c.Status.IsOpen() {
		return nil, apperr.Conflict(op, fmt.Errorf("%w: %d", cart.ErrCartNotOpen, cartID))
	}
	if !c.OrderType.IsDine() {
		return nil, apperr.Validation(op, fmt.Errorf("%w: %s", ErrInvalidOrderType, c.OrderType))
	}
	return c, nil
}

func (a *allocator) Split(ctx context.Context, q store.DBTX, params SplitParams) (*SplitResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "table"),
		zap.String("method", "Split"),
		zap.Int64("source_cart_id", params.SourceCartID),
	)

	src, err := a.lockDineCart(ctx, q, "table.Split", params.SourceCartID)
	if err != nil {
		return nil, err
	}
	if len(params.TableIDs) == 0 {
		return nil, apperr.Validation("table.Split", ErrNoTables)
	}

	current, err := a.repo.ListCartTables(ctx, q, src.ID)
	if err != nil {
		return nil, err
	}
	if len(params.TableIDs) >= len(current) {
		return nil, apperr.Validation("table.Split", ErrCannotSplitAll)
	}

	held := make(map[int64]CartTable, len(current))
	for _, ct := range current {
		held[ct.TableID] = ct
	}
	tableIDs := append([]int64(nil), params.TableIDs...)
	sort.Slice(tableIDs, func(i, j int) bool { return tableIDs[i] < tableIDs[j] })
	for i, id := range tableIDs {
		if _, ok := held[id]; !ok {
			return nil, apperr.Validation("table.Split", fmt.Errorf("%w: %d", ErrTableNotOnCart, id))
		}
		if i > 0 && tableIDs[i-1] == id {
			return nil, apperr.Validation("table.Split", fmt.Errorf("%w: %d", ErrDuplicateTable, id))
		}
		if cover, ok := params.Covers[id]; ok && cover < 0 {
			return nil, apperr.Validation("table.Split", ErrInvalidCover)
		}
	}

	moves := make([]*cart.Item, len(params.Items))
	seen := make(map[int64]bool, len(params.Items))
	for i, mv := range params.Items {
		if mv.Quantity < 1 {
			return nil, apperr.Validation("table.Split", ErrInvalidQuantity)
		}
		if seen[mv.ItemID] {
			return nil, apperr.Validation("table.Split", fmt.Errorf("%w: %d", ErrDuplicateItem, mv.ItemID))
		}
		seen[mv.ItemID] = true
		it, err := a.carts.GetItem(ctx, q, mv.ItemID)
		if err != nil {
			return nil, err
		}
		if it.CartID != src.ID {
			return nil, apperr.Validation("table.Split", fmt.Errorf("%w: %d", ErrItemNotOnCart, mv.ItemID))
		}
		moves[i] = it
	}

	dst, err := a.carts.Create(ctx, q, cart.CreateParams{
		OrderType:     src.OrderType,
		Menu:          src.Menu,
		CustomerID:    src.CustomerID,
		ServiceCharge: src.ServiceCharge,
		StartedBy:     params.EmployeeID,
	})
	if err != nil {
		return nil, err
	}

	for _, id := range tableIDs {
		ct := held[id]
		locked, err := a.repo.LockTable(ctx, q, id)
		if err != nil {
			return nil, err
		}
		if locked.Occupancy != src.ID {
			return nil, apperr.Conflict("table.Split", &ConflictError{TableID: id, Number: locked.Number, HeldBy: locked.Occupancy})
		}
		if err := a.repo.SetOccupancy(ctx, q, id, dst.ID); err != nil {
			return nil, err
		}
		if err := a.repo.DeleteLink(ctx, q, src.ID, id); err != nil {
			return nil, err
		}
		if cover, ok := params.Covers[id]; ok {
			ct.Cover = cover
		}
		ct.CartID = dst.ID
		if err := a.repo.InsertLink(ctx, q, ct); err != nil {
			return nil, err
		}
	}

	for i, mv := range params.Items {
		if err := a.moveItem(ctx, q, moves[i], mv.Quantity, dst.ID); err != nil {
			return nil, err
		}
	}

	if err := a.carts.Touch(ctx, q, src.ID); err != nil {
		return nil, err
	}

	res := &SplitResult{NewCart: dst}
	if res.SourceTables, err = a.repo.ListCartTables(ctx, q, src.ID); err != nil {
		return nil, err
	}
	if res.NewTables, err = a.repo.ListCartTables(ctx, q, dst.ID); err != nil {
		return nil, err
	}

	log.Info("cart split",
		zap.Int64("new_cart_id", dst.ID),
		zap.Int("tables_moved", len(tableIDs)),
		zap.Int("items_moved", len(params.Items)),
	)
	return res, nil
}

// moveItem re-parents the row when the whole quantity moves, otherwise it
// leaves the remainder on the source and copies the rest.
func (a *allocator) moveItem(ctx context.Context, q store.DBTX, it *cart.Item, qty int, toCartID int64) error {
	if qty >= it.Quantity {
		return a.carts.MoveItem(ctx, q, it.ID, toCartID)
	}
	if err := a.carts.UpdateItemQuantity(ctx, q, it.ID, it.Quantity-qty); err != nil {
		return err
	}
	_, err := a.carts.InsertItem(ctx, q, cart.NewItemParams{
		CartID:        toCartID,
		ProductID:     it.ProductID,
		Name:          it.Name,
		Price:         it.Price,
		Quantity:      qty,
		Options:       it.Options,
		Note:          it.Note,
		Discount:      it.Discount,
		CategoryOrder: it.CategoryOrder,
		Vatable:       it.Vatable,
		Discountable:  it.Discountable,
	})
	return err
}

func (a *allocator) Transfer(ctx context.Context, q store.DBTX, params TransferParams) (*TransferResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "table"),
		zap.String("method", "Transfer"),
		zap.Int64("source_cart_id", params.SourceCartID),
		zap.String("order_type", string(params.OrderType)),
	)

	if !params.OrderType.Valid() {
		return nil, apperr.Validation("table.Transfer", fmt.Errorf("%w: %s", cart.ErrInvalidOrderType, params.OrderType))
	}
	if !params.Menu.Valid() {
		return nil, apperr.Validation("table.Transfer", fmt.Errorf("%w: %d", cart.ErrInvalidMenu, params.Menu))
	}
	if params.ServiceCharge.IsNegative() {
		return nil, apperr.Validation("table.Transfer", cart.ErrNegativeCharge)
	}

	src, err := a.carts.GetForUpdate(ctx, q, params.SourceCartID)
	if err != nil {
		return nil, err
	}
	if !src.Status.IsOpen() {
		return nil, apperr.Conflict("table.Transfer", fmt.Errorf("%w: %d", cart.ErrCartNotOpen, src.ID))
	}

	customer := params.CustomerID
	if customer == nil {
		customer = src.CustomerID
	}
	note := params.Note
	if note == "" {
		note = src.Note
	}

	dst, err := a.carts.Create(ctx, q, cart.CreateParams{
		OrderType:     params.OrderType,
		Menu:          params.Menu,
		CustomerID:    customer,
		Note:          note,
		ServiceCharge: params.ServiceCharge,
		StartedBy:     params.EmployeeID,
	})
	if err != nil {
		return nil, err
	}
	if !src.Discount.IsZero() {
		if err := a.carts.SetDiscount(ctx, q, dst.ID, src.Discount); err != nil {
			return nil, err
		}
		dst.Discount = src.Discount
	}

	res := &TransferResult{NewCart: dst}

	if params.Menu != src.Menu {
		items, err := a.carts.ListItems(ctx, q, src.ID)
		if err != nil {
			return nil, err
		}
		repriced, warnings, err := a.repricer.Reprice(ctx, q, items, params.Menu)
		if err != nil {
			return nil, err
		}
		for _, ri := range repriced {
			if !ri.Changed {
				continue
			}
			if err := a.carts.UpdateItemPricing(ctx, q, ri.ItemID, ri.Price, ri.Options); err != nil {
				return nil, err
			}
			res.Repriced++
		}
		res.Warnings = warnings
	}

	if _, err := a.carts.MoveAllItems(ctx, q, src.ID, dst.ID); err != nil {
		return nil, err
	}

	var carried []Request
	if params.OrderType.IsDine() && len(params.Tables) == 0 {
		held, err := a.repo.ListCartTables(ctx, q, src.ID)
		if err != nil {
			return nil, err
		}
		for _, ct := range held {
			carried = append(carried, Request{TableID: ct.TableID, Number: ct.Number, Cover: ct.Cover})
		}
	}

	if err := a.repo.Release(ctx, q, src.ID); err != nil {
		return nil, err
	}

	if params.OrderType.IsDine() {
		reqs := params.Tables
		if len(reqs) == 0 {
			reqs = carried
		}
		if len(reqs) > 0 {
			if res.Tables, err = a.Assign(ctx, q, dst.ID, reqs); err != nil {
				return nil, err
			}
		}
	}

	if err := a.carts.Delete(ctx, q, src.ID); err != nil {
		return nil, err
	}

	log.Info("cart transferred",
		zap.Int64("new_cart_id", dst.ID),
		zap.Int("repriced", res.Repriced),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res, nil
}

func (a *allocator) UpdateTables(ctx context.Context, q store.DBTX, cartID int64, updates []Update) ([]CartTable, error) {
	if _, err := a.lockDineCart(ctx, q, "table.UpdateTables", cartID); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("table.UpdateTables", ErrNoTables)
	}

	current, err := a.repo.ListCartTables(ctx, q, cartID)
	if err != nil {
		return nil, err
	}
	held := make(map[int64]CartTable, len(current))
	for _, ct := range current {
		held[ct.TableID] = ct
	}

	for _, u := range updates {
		ct, ok := held[u.TableID]
		if !ok {
			return nil, apperr.Validation("table.UpdateTables", fmt.Errorf("%w: %d", ErrTableNotOnCart, u.TableID))
		}
		if u.Cover != nil {
			if *u.Cover < 0 {
				return nil, apperr.Validation("table.UpdateTables", ErrInvalidCover)
			}
			ct.Cover = *u.Cover
		}

		if u.NewTableID == 0 || u.NewTableID == u.TableID {
			if u.Cover != nil {
				if err := a.repo.UpdateCover(ctx, q, cartID, u.TableID, ct.Cover); err != nil {
					return nil, err
				}
			}
			continue
		}

		target, err := a.repo.LockTable(ctx, q, u.NewTableID)
		if err != nil {
			return nil, err
		}
		if !target.Free() {
			return nil, apperr.Conflict("table.UpdateTables",
				&ConflictError{TableID: target.ID, Number: target.Number, HeldBy: target.Occupancy})
		}
		if err := a.repo.SetOccupancy(ctx, q, u.TableID, 0); err != nil {
			return nil, err
		}
		if err := a.repo.DeleteLink(ctx, q, cartID, u.TableID); err != nil {
			return nil, err
		}
		if err := a.repo.SetOccupancy(ctx, q, target.ID, cartID); err != nil {
			return nil, err
		}
		if err := a.repo.InsertLink(ctx, q, CartTable{
			CartID:  cartID,
			TableID: target.ID,
			Number:  target.Number,
			Cover:   ct.Cover,
		}); err != nil {
			return nil, err
		}
		delete(held, u.TableID)
		held[target.ID] = ct
	}

	return a.repo.ListCartTables(ctx, q, cartID)
}

func (a *allocator) Free(ctx context.Context, q store.DBTX, cartID int64) error {
	return a.repo.Release(ctx, q, cartID)
}

func (a *allocator) CartTables(ctx context.Context, q store.DBTX, cartID int64) ([]CartTable, error) {
	return a.repo.ListCartTables(ctx, q, cartID)
}

// FreeTables groups unoccupied tables by room in room order.
func (a *allocator) FreeTables(ctx context.Context, q store.DBTX) ([]RoomTables, error) {
	tables, err := a.repo.ListFree(ctx, q)
	if err != nil {
		return nil, err
	}

	var out []RoomTables
	index := make(map[string]int)
	for _, t := range tables {
		label := t.RoomLabel
		if label == "" {
			label = otherRoom
		}
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, RoomTables{RoomLabel: label})
		}
		out[i].Tables = append(out[i].Tables, t)
	}
	return out, nil
}
