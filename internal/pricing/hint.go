package pricing

import "github.com/shopspring/decimal"

// HintLine is the amount a group of Guests pays when the bill is divided evenly.
type HintLine struct {
	Guests int
	Amount decimal.Decimal
}

const maxHintGroup = 4

// DivisionHint suggests an even split of total across covers. It is empty for
// tables of two or fewer. Amounts are rounded up to the penny so the parts
// never fall short of the total.
func DivisionHint(total decimal.Decimal, covers int) []HintLine {
	if covers <= 2 || !total.IsPositive() {
		return nil
	}
	c := decimal.NewFromInt(int64(covers))

	lines := []HintLine{{Guests: 1, Amount: ceilPenny(total.Div(c))}}
	for m := 2; m <= covers && m <= maxHintGroup; m++ {
		lines = append(lines, HintLine{
			Guests: m,
			Amount: ceilPenny(total.Mul(decimal.NewFromInt(int64(m))).Div(c)),
		})
	}
	return lines
}

func ceilPenny(v decimal.Decimal) decimal.Decimal {
	return v.RoundCeil(2)
}
