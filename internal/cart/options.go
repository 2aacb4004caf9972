package cart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Option is one modifier attached to a cart item.
type Option struct {
	OptionItemID int64
	Name         string
	UnitPrice    decimal.Decimal
	Group        int64
	Quantity     int
	Vatable      bool
}

// Label is the kitchen-facing text, e.g. "2x Extra shot".
func (o Option) Label() string {
	if o.Quantity > 1 {
		return fmt.Sprintf("%dx %s", o.Quantity, o.Name)
	}
	return o.Name
}

// MalformedOption describes an encoded option that could not be parsed.
type MalformedOption struct {
	Raw    string
	Reason string
}

func (m MalformedOption) String() string {
	return fmt.Sprintf("malformed option %q: %s", m.Raw, m.Reason)
}

const (
	optionSeparator = ", "
	fieldSeparator  = "|"
	optionFields    = 6
)

// EncodeOptions renders options as "id|name|price|group|qty|vatable" entries
// joined by ", ". This is the only place the stored format is produced.
func EncodeOptions(opts []Option) string {
	if len(opts) == 0 {
		return ""
	}
	parts := make([]string, 0, len(opts))
	for _, o := range opts {
		vat := "0"
		if o.Vatable {
			vat = "1"
		}
		parts = append(parts, strings.Join([]string{
			strconv.FormatInt(o.OptionItemID, 10),
			sanitizeName(o.Name),
			o.UnitPrice.StringFixed(2),
			strconv.FormatInt(o.Group, 10),
			strconv.Itoa(o.Quantity),
			vat,
		}, fieldSeparator))
	}
	return strings.Join(parts, optionSeparator)
}

// DecodeOptions parses the stored encoding. Entries that do not parse are
// skipped and reported instead of failing the whole item.
func DecodeOptions(s string) ([]Option, []MalformedOption) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var (
		opts []Option
		bad  []MalformedOption
	)
	for _, raw := range strings.Split(s, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		opt, err := parseOption(raw)
		if err != nil {
			bad = append(bad, MalformedOption{Raw: raw, Reason: err.Error()})
			continue
		}
		opts = append(opts, opt)
	}
	return opts, bad
}

func parseOption(raw string) (Option, error) {
	f := strings.Split(raw, fieldSeparator)
	if len(f) != optionFields {
		return Option{}, fmt.Errorf("expected %d fields, got %d", optionFields, len(f))
	}

	id, err := strconv.ParseInt(f[0], 10, 64)
	if err != nil {
		return Option{}, fmt.Errorf("option id: %w", err)
	}
	price, err := decimal.NewFromString(f[2])
	if err != nil {
		return Option{}, fmt.Errorf("price: %w", err)
	}
	group, err := strconv.ParseInt(f[3], 10, 64)
	if err != nil {
		return Option{}, fmt.Errorf("group: %w", err)
	}
	qty, err := strconv.Atoi(f[4])
	if err != nil {
		return Option{}, fmt.Errorf("quantity: %w", err)
	}
	if qty < 1 {
		return Option{}, fmt.Errorf("quantity must be positive")
	}
	vat, err := strconv.Atoi(f[5])
	if err != nil || (vat != 0 && vat != 1) {
		return Option{}, fmt.Errorf("vatable flag %q", f[5])
	}

	return Option{
		OptionItemID: id,
		Name:         f[1],
		UnitPrice:    price,
		Group:        group,
		Quantity:     qty,
		Vatable:      vat == 1,
	}, nil
}

// Names may not carry the separators of the encoding.
func sanitizeName(name string) string {
	return strings.NewReplacer(fieldSeparator, "/", ",", " ").Replace(name)
}
