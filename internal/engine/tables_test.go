package engine

import (
	"context"
	"testing"

	"github.com/tmblog/mpro/internal/apperr"
	"github.com/tmblog/mpro/internal/cart"
	"github.com/tmblog/mpro/internal/pricing"
	"github.com/tmblog/mpro/internal/settings"
	"github.com/tmblog/mpro/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_AssignTables(t *testing.T) {
	ctx := context.Background()
	reqs := []table.Request{{TableID: 4, Cover: 2}}

	t.Run("Seats a cart with no tables", func(t *testing.T) {
		f := newFixture(t, settings.Values{})
		held := []table.CartTable{{CartID: 7, TableID: 4, Number: "4", Cover: 2}}

		f.sm.ExpectBegin()
		f.tables.On("CartTables", mock.Anything, mock.Anything, int64(7)).Return(nil, nil).Once()
		f.tables.On("Merge", mock.Anything, mock.Anything, int64(7), reqs).Return(held, nil).Once()
		f.tables.On("CartTables", mock.Anything, mock.Anything, int64(7)).Return(held, nil).Once()
		f.sm.ExpectCommit()

		tables, err := f.svc.AssignTables(ctx, 7, reqs)

		require.NoError(t, err)
		assert.Equal(t, held, tables)
		f.verify(t)
	})

	t.Run("Seated cart must merge instead", func(t *testing.T) {
		f := newFixture(t, settings.Values{})

		f.sm.ExpectBegin()
		f.tables.On("CartTables", mock.Anything, mock.Anything, int64(7)).
			Return([]table.CartTable{{CartID: 7, TableID: 2, Number: "2"}}, nil).Once()
		f.sm.ExpectRollback()

		_, err := f.svc.AssignTables(ctx, 7, reqs)

		assert.True(t, apperr.IsValidation(err))
		assert.ErrorIs(t, err, ErrTablesAlreadyAssigned)
		f.verify(t)
	})
}

func TestService_SplitTables(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, settings.Values{})
	p := table.SplitParams{SourceCartID: 7, TableIDs: []int64{5}}

	f.sm.ExpectBegin()
	f.tables.On("Split", mock.Anything, mock.Anything, p).
		Return(&table.SplitResult{NewCart: &cart.Cart{ID: 8}}, nil).Once()
	f.sm.ExpectCommit()

	res, err := f.svc.SplitTables(ctx, p)

	require.NoError(t, err)
	assert.Equal(t, int64(8), res.NewCart.ID)
	assert.Equal(t, uint64(1), f.svc.Stats().CartsCreated)
	f.verify(t)
}

func TestService_ChangeOrderType(t *testing.T) {
	ctx := context.Background()

	t.Run("Dine-in takes the eat-in menu and service percentage", func(t *testing.T) {
		f := newFixture(t, settings.Values{ServiceChargePercent: dec("12.5")})
		reqs := []table.Request{{TableID: 4}}

		f.sm.ExpectBegin()
		f.tables.On("Transfer", mock.Anything, mock.Anything, mock.MatchedBy(func(p table.TransferParams) bool {
			return p.SourceCartID == 7 &&
				p.OrderType == cart.OrderTypeDine &&
				p.Menu == cart.MenuIn &&
				p.ServiceCharge.Equal(dec("12.5")) &&
				len(p.Tables) == 1
		})).Return(&table.TransferResult{
			NewCart:  &cart.Cart{ID: 9},
			Repriced: 2,
			Warnings: []pricing.Warning{{ItemID: 3}},
		}, nil).Once()
		f.sm.ExpectCommit()

		res, err := f.svc.ChangeOrderType(ctx, 7, cart.OrderTypeDine, reqs, nil)

		require.NoError(t, err)
		assert.Equal(t, int64(9), res.NewCart.ID)
		stats := f.svc.Stats()
		assert.Equal(t, uint64(1), stats.CartsCreated)
		assert.Equal(t, uint64(1), stats.RepricingWarnings)
		f.verify(t)
	})

	t.Run("Takeaway is priced off the takeout menu with no charge", func(t *testing.T) {
		f := newFixture(t, settings.Values{ServiceChargePercent: dec("12.5")})

		f.sm.ExpectBegin()
		f.tables.On("Transfer", mock.Anything, mock.Anything, mock.MatchedBy(func(p table.TransferParams) bool {
			return p.Menu == cart.MenuOut && p.ServiceCharge.IsZero()
		})).Return(&table.TransferResult{NewCart: &cart.Cart{ID: 9}}, nil).Once()
		f.sm.ExpectCommit()

		_, err := f.svc.ChangeOrderType(ctx, 7, cart.OrderTypeTakeaway, nil, nil)

		require.NoError(t, err)
		f.verify(t)
	})
}

func TestService_FreeTables(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, settings.Values{})
	rooms := []table.RoomTables{{RoomLabel: "Main", Tables: []table.Table{{ID: 1, Number: "1"}}}}

	f.sm.ExpectBegin()
	f.tables.On("FreeTables", mock.Anything, mock.Anything).Return(rooms, nil).Once()
	f.sm.ExpectCommit()

	got, err := f.svc.FreeTables(ctx)

	require.NoError(t, err)
	assert.Equal(t, rooms, got)
	f.verify(t)
}
