// Package settings exposes the store-wide knobs the engine reads at
// operation time.
package settings

import (
	"context"

	"github.com/tmblog/mpro/internal/config"

	"github.com/shopspring/decimal"
)

// Provider is consulted on every pricing or checkout call so changes apply
// without a restart.
type Provider interface {
	// VATRate is a fraction, e.g. 0.20.
	VATRate(ctx context.Context) (decimal.Decimal, error)
	// ServiceChargePercent applies to dine-in carts.
	ServiceChargePercent(ctx context.Context) (decimal.Decimal, error)
	KitchenScreenEnabled(ctx context.Context) (bool, error)
	DivisionHintEnabled(ctx context.Context) (bool, error)
}

const (
	KeyVATRate       = "vat_rate"
	KeyServiceCharge = "service_charge"
	KeyKitchenScreen = "kitchen_screen"
	KeyDivisionHint  = "division_hint"
)

var hundred = decimal.NewFromInt(100)

// Values is a fixed set of settings.
type Values struct {
	VATPercent           decimal.Decimal
	ServiceChargePercent decimal.Decimal
	KitchenScreen        bool
	DivisionHint         bool
}

type static struct {
	v Values
}

func NewStatic(v Values) Provider {
	return &static{v: v}
}

func FromConfig(cfg *config.Config) Values {
	return Values{
		VATPercent:           cfg.VATRate,
		ServiceChargePercent: cfg.ServiceChargePercent,
		KitchenScreen:        cfg.KitchenScreen,
		DivisionHint:         cfg.DivisionHint,
	}
}

func (s *static) VATRate(context.Context) (decimal.Decimal, error) {
	return s.v.VATPercent.Div(hundred), nil
}

func (s *static) ServiceChargePercent(context.Context) (decimal.Decimal, error) {
	return s.v.ServiceChargePercent, nil
}

func (s *static) KitchenScreenEnabled(context.Context) (bool, error) {
	return s.v.KitchenScreen, nil
}

func (s *static) DivisionHintEnabled(context.Context) (bool, error) {
	return s.v.DivisionHint, nil
}
