package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tmblog/mpro/internal/logger"
	"github.com/tmblog/mpro/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrFailedGetSetting = errors.New("failed to read setting")

// repository reads the settings key/value table and falls back to the
// static values when a key is missing or unparsable.
type repository struct {
	db       store.DBTX
	fallback Values
}

func NewRepository(db store.DBTX, fallback Values) Provider {
	return &repository{db: db, fallback: fallback}
}

func (r *repository) lookup(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, store.MapError("settings.lookup", fmt.Errorf("%w %q: %w", ErrFailedGetSetting, key, err))
	}
	return strings.TrimSpace(value), true, nil
}

func (r *repository) decimalValue(ctx context.Context, key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw, ok, err := r.lookup(ctx, key)
	if err != nil || !ok || raw == "" {
		return fallback, err
	}
	d, perr := decimal.NewFromString(raw)
	if perr != nil || d.IsNegative() {
		logger.FromCtx(ctx).Warn("ignoring invalid setting",
			zap.String("key", key),
			zap.String("value", raw),
		)
		return fallback, nil
	}
	return d, nil
}

func (r *repository) flag(ctx context.Context, key string, fallback bool) (bool, error) {
	raw, ok, err := r.lookup(ctx, key)
	if err != nil || !ok || raw == "" {
		return fallback, err
	}
	b, perr := strconv.ParseBool(raw)
	if perr != nil {
		logger.FromCtx(ctx).Warn("ignoring invalid setting",
			zap.String("key", key),
			zap.String("value", raw),
		)
		return fallback, nil
	}
	return b, nil
}

func (r *repository) VATRate(ctx context.Context) (decimal.Decimal, error) {
	pct, err := r.decimalValue(ctx, KeyVATRate, r.fallback.VATPercent)
	if err != nil {
		return decimal.Zero, err
	}
	return pct.Div(hundred), nil
}

func (r *repository) ServiceChargePercent(ctx context.Context) (decimal.Decimal, error) {
	return r.decimalValue(ctx, KeyServiceCharge, r.fallback.ServiceChargePercent)
}

func (r *repository) KitchenScreenEnabled(ctx context.Context) (bool, error) {
	return r.flag(ctx, KeyKitchenScreen, r.fallback.KitchenScreen)
}

func (r *repository) DivisionHintEnabled(ctx context.Context) (bool, error) {
	return r.flag(ctx, KeyDivisionHint, r.fallback.DivisionHint)
}
