package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/tmblog/mpro/internal/apperr"
	"github.com/tmblog/mpro/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	cfg := &config.Config{
		VATRate:              decimal.NewFromInt(20),
		ServiceChargePercent: decimal.NewFromFloat(12.5),
		KitchenScreen:        true,
	}
	p := NewStatic(FromConfig(cfg))
	ctx := context.Background()

	rate, err := p.VATRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.2", rate.String())

	svc, _ := p.ServiceChargePercent(ctx)
	assert.Equal(t, "12.5", svc.String())

	on, _ := p.KitchenScreenEnabled(ctx)
	assert.True(t, on)

	hint, _ := p.DivisionHintEnabled(ctx)
	assert.False(t, hint)
}

func TestRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fallback := Values{VATPercent: decimal.NewFromInt(20), ServiceChargePercent: decimal.NewFromInt(10)}
	p := NewRepository(db, fallback)
	ctx := context.Background()
	query := `SELECT value FROM settings WHERE key = \$1`

	t.Run("Stored value", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("vat_rate").
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("5"))

		rate, err := p.VATRate(ctx)
		require.NoError(t, err)
		assert.Equal(t, "0.05", rate.String())
	})

	t.Run("Missing key uses fallback", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("service_charge").
			WillReturnRows(sqlmock.NewRows([]string{"value"}))

		svc, err := p.ServiceChargePercent(ctx)
		require.NoError(t, err)
		assert.Equal(t, "10", svc.String())
	})

	t.Run("Invalid value uses fallback", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("vat_rate").
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("twenty"))

		rate, err := p.VATRate(ctx)
		require.NoError(t, err)
		assert.Equal(t, "0.2", rate.String())
	})

	t.Run("Kitchen flag", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("kitchen_screen").
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("1"))

		on, err := p.KitchenScreenEnabled(ctx)
		require.NoError(t, err)
		assert.True(t, on)
	})

	t.Run("Storage failure", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("division_hint").
			WillReturnError(errors.New("conn reset"))

		_, err := p.DivisionHintEnabled(ctx)
		assert.ErrorIs(t, err, ErrFailedGetSetting)
		assert.True(t, apperr.IsStorage(err))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
