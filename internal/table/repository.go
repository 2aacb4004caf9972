package table

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

type Repository interface {
	GetTable(ctx context.Context, q store.DBTX, tableID int64) (*Table, error)
	GetTableByNumber(ctx context.Context, q store.DBTX, number string) (*Table, error)
	LockTable(ctx context.Context, q store.DBTX, tableID int64) (*Table, error)
	SetOccupancy(ctx context.Context, q store.DBTX, tableID, cartID int64) error
	ListFree(ctx context.Context, q store.DBTX) ([]Table, error)

	InsertLink(ctx context.Context, q store.DBTX, link CartTable) error
	DeleteLink(ctx context.Context, q store.DBTX, cartID, tableID int64) error
	UpdateCover(ctx context.Context, q store.DBTX, cartID, tableID int64, cover int) error
	ListCartTables(ctx context.Context, q store.DBTX, cartID int64) ([]CartTable, error)
	Release(ctx context.Context, q store.DBTX, cartID int64) error
}

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

const tableSelect = `
	SELECT t.table_id, t.table_number, t.table_occupied, t.room_id,
	       COALESCE(r.room_label, ''), COALESCE(r.room_order, 0)
	FROM dining_tables t
	LEFT JOIN dining_rooms r ON r.room_id = t.room_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTable(row rowScanner) (*Table, error) {
	var (
		t    Table
		room sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.Number, &t.Occupancy, &room, &t.RoomLabel, &t.RoomOrder); err != nil {
		return nil, err
	}
	if room.Valid {
		id := room.Int64
		t.RoomID = &id
	}
	return &t, nil
}

func dbErr(op string, sentinel, err error) error {
	return store.MapError(op, fmt.Errorf("%w: %w", sentinel, err))
}

func (r *repository) GetTable(ctx context.Context, q store.DBTX, tableID int64) (*Table, error) {
	return r.getTable(ctx, q, "table.GetTable", tableSelect+` WHERE t.table_id = $1`, tableID)
}

func (r *repository) GetTableByNumber(ctx context.Context, q store.DBTX, number string) (*Table, error) {
	return r.getTable(ctx, q, "table.GetTableByNumber", tableSelect+` WHERE t.table_number = $1`, number)
}

// LockTable holds the table row until the transaction ends so two carts
// cannot claim the same table.
func (r *repository) LockTable(ctx context.Context, q store.DBTX, tableID int64) (*Table, error) {
	return r.getTable(ctx, q, "table.LockTable", tableSelect+` WHERE t.table_id = $1 FOR UPDATE OF t`, tableID)
}

func (r *repository) getTable(ctx context.Context, q store.DBTX, op, query string, key any) (*Table, error) {
	t, err := scanTable(q.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(op, fmt.Errorf("%w: %v", ErrTableNotFound, key))
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to get table",
			zap.String("layer", "repository"),
			zap.String("method", op),
			zap.Any("table", key),
			zap.Error(err),
		)
		return nil, dbErr(op, ErrFailedGetTable, err)
	}
	return t, nil
}

func (r *repository) SetOccupancy(ctx context.Context, q store.DBTX, tableID, cartID int64) error {
	res, err := q.ExecContext(ctx,
		`UPDATE dining_tables SET table_occupied = $1 WHERE table_id = $2`, cartID, tableID)
	if err != nil {
		return dbErr("table.SetOccupancy", ErrFailedUpdateTable, err)
	}
	if err := store.RowsAffected(res); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("table.SetOccupancy", fmt.Errorf("%w: %d", ErrTableNotFound, tableID))
		}
		return dbErr("table.SetOccupancy", ErrFailedUpdateTable, err)
	}
	return nil
}

func (r *repository) ListFree(ctx context.Context, q store.DBTX) ([]Table, error) {
	rows, err := q.QueryContext(ctx, tableSelect+`
		WHERE t.table_occupied = 0
		ORDER BY COALESCE(r.room_order, 0), t.room_id, t.table_id`)
	if err != nil {
		return nil, dbErr("table.ListFree", ErrFailedGetTable, err)
	}
	defer rows.Close()

	var out []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, dbErr("table.ListFree", ErrFailedGetTable, err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("table.ListFree", ErrFailedGetTable, err)
	}
	return out, nil
}

func (r *repository) InsertLink(ctx context.Context, q store.DBTX, link CartTable) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO cart_dining_tables (cart_id, table_id, table_number, table_cover)
		VALUES ($1, $2, $3, $4)
	`, link.CartID, link.TableID, link.Number, link.Cover)
	if err != nil {
		if store.IsUniqueViolation(err, "") {
			return apperr.Conflict("table.InsertLink", &ConflictError{TableID: link.TableID, Number: link.Number})
		}
		logger.FromCtx(ctx).Error("failed to link table",
			zap.String("layer", "repository"),
			zap.Int64("cart_id", link.CartID),
			zap.Int64("table_id", link.TableID),
			zap.Error(err),
		)
		return dbErr("table.InsertLink", ErrFailedLinkTable, err)
	}
	return nil
}

func (r *repository) DeleteLink(ctx context.Context, q store.DBTX, cartID, tableID int64) error {
	res, err := q.ExecContext(ctx,
		`DELETE FROM cart_dining_tables WHERE cart_id = $1 AND table_id = $2`, cartID, tableID)
	if err != nil {
		return dbErr("table.DeleteLink", ErrFailedLinkTable, err)
	}
	if err := store.RowsAffected(res); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Validation("table.DeleteLink", fmt.Errorf("%w: %d", ErrTableNotOnCart, tableID))
		}
		return dbErr("table.DeleteLink", ErrFailedLinkTable, err)
	}
	return nil
}

func (r *repository) UpdateCover(ctx context.Context, q store.DBTX, cartID, tableID int64, cover int) error {
	res, err := q.ExecContext(ctx,
		`UPDATE cart_dining_tables SET table_cover = $1 WHERE cart_id = $2 AND table_id = $3`,
		cover, cartID, tableID)
	if err != nil {
		return dbErr("table.UpdateCover", ErrFailedLinkTable, err)
	}
	if err := store.RowsAffected(res); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Validation("table.UpdateCover", fmt.Errorf("%w: %d", ErrTableNotOnCart, tableID))
		}
		return dbErr("table.UpdateCover", ErrFailedLinkTable, err)
	}
	return nil
}

func (r *repository) ListCartTables(ctx context.Context, q store.DBTX, cartID int64) ([]CartTable, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT ct.cart_id, ct.table_id, ct.table_number, ct.table_cover,
		       COALESCE(r.room_label, ''), COALESCE(r.room_order, 0)
		FROM cart_dining_tables ct
		JOIN dining_tables t ON t.table_id = ct.table_id
		LEFT JOIN dining_rooms r ON r.room_id = t.room_id
		WHERE ct.cart_id = $1
		ORDER BY COALESCE(r.room_order, 0), ct.table_id
	`, cartID)
	if err != nil {
		return nil, dbErr("table.ListCartTables", ErrFailedGetTable, err)
	}
	defer rows.Close()

	var out []CartTable
	for rows.Next() {
		var ct CartTable
		if err := rows.Scan(&ct.CartID, &ct.TableID, &ct.Number, &ct.Cover, &ct.RoomLabel, &ct.RoomOrder); err != nil {
			return nil, dbErr("table.ListCartTables", ErrFailedGetTable, err)
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("table.ListCartTables", ErrFailedGetTable, err)
	}
	return out, nil
}

// Release frees every table the cart occupies and drops its links.
func (r *repository) Release(ctx context.Context, q store.DBTX, cartID int64) error {
	if _, err := q.ExecContext(ctx,
		`UPDATE dining_tables SET table_occupied = 0 WHERE table_occupied = $1`, cartID); err != nil {
		return dbErr("table.Release", ErrFailedUpdateTable, err)
	}
	if _, err := q.ExecContext(ctx,
		`DELETE FROM cart_dining_tables WHERE cart_id = $1`, cartID); err != nil {
		return dbErr("table.Release", ErrFailedLinkTable, err)
	}
	return nil
}
