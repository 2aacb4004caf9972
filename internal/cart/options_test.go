package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeOptions(t *testing.T) {
	opts := []Option{
		{OptionItemID: 12, Name: "Extra cheese", UnitPrice: d("0.5"), Group: 3, Quantity: 2, Vatable: true},
		{OptionItemID: 14, Name: "No onion", UnitPrice: d("0"), Group: 4, Quantity: 1},
	}

	assert.Equal(t, "12|Extra cheese|0.50|3|2|1, 14|No onion|0.00|4|1|0", EncodeOptions(opts))
	assert.Equal(t, "", EncodeOptions(nil))
}

func TestEncodeOptions_SanitizesNames(t *testing.T) {
	got := EncodeOptions([]Option{{OptionItemID: 1, Name: "Salt|Pepper, lots", UnitPrice: d("0"), Group: 1, Quantity: 1}})
	assert.Equal(t, "1|Salt/Pepper  lots|0.00|1|1|0", got)
}

func TestDecodeOptions(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		opts, bad := DecodeOptions("  ")
		assert.Nil(t, opts)
		assert.Nil(t, bad)
	})

	t.Run("Round trip", func(t *testing.T) {
		in := "12|Extra cheese|0.50|3|2|1, 14|No onion|0.00|4|1|0"
		opts, bad := DecodeOptions(in)
		require.Empty(t, bad)
		require.Len(t, opts, 2)
		assert.Equal(t, int64(12), opts[0].OptionItemID)
		assert.True(t, opts[0].UnitPrice.Equal(d("0.5")))
		assert.True(t, opts[0].Vatable)
		assert.Equal(t, 2, opts[0].Quantity)
		assert.False(t, opts[1].Vatable)
		assert.Equal(t, in, EncodeOptions(opts))
	})

	t.Run("Comma without space", func(t *testing.T) {
		opts, bad := DecodeOptions("1|A|1.00|1|1|0,2|B|2.00|1|1|1")
		assert.Empty(t, bad)
		assert.Len(t, opts, 2)
	})

	t.Run("Malformed entries are skipped", func(t *testing.T) {
		opts, bad := DecodeOptions("1|A|1.00|1|1|0, garbage, 3|C|x|1|1|0, 4|D|1.00|1|0|0, 5|E|1.00|1|1|2")
		require.Len(t, opts, 1)
		assert.Equal(t, "A", opts[0].Name)
		require.Len(t, bad, 4)
		assert.Equal(t, "garbage", bad[0].Raw)
		assert.Contains(t, bad[0].String(), "expected 6 fields")
		assert.Contains(t, bad[1].Reason, "price")
		assert.Contains(t, bad[2].Reason, "quantity")
		assert.Contains(t, bad[3].Reason, "vatable")
	})
}

func TestOption_Label(t *testing.T) {
	assert.Equal(t, "Oat milk", Option{Name: "Oat milk", Quantity: 1}.Label())
	assert.Equal(t, "2x Extra shot", Option{Name: "Extra shot", Quantity: 2}.Label())
}
