package orderplan

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleBase_Truncates(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1", 1_000_000_000},
		{"0.1", 100_000_000},
		{"1.9999999999", 1_999_999_999},
		{"0.0000000009", 0},
		{"-1.9999999999", -1_999_999_999},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ScaleBase(decimal.RequireFromString(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScaleBase_Monotonic(t *testing.T) {
	prev := int64(-1)
	step := decimal.RequireFromString("0.00000000037")
	v := decimal.Zero
	for i := 0; i < 500; i++ {
		got, err := ScaleBase(v)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
		v = v.Add(step)
	}
}

func TestScaleQuote(t *testing.T) {
	got, err := ScaleQuote(decimal.RequireFromString("123.4567899"))
	require.NoError(t, err)
	assert.Equal(t, int64(123_456_789), got)
}

func TestScaleToken_UsesMarketDecimals(t *testing.T) {
	usdc, err := ScaleToken(decimal.RequireFromString("12.3456789"), 6)
	require.NoError(t, err)
	assert.Equal(t, int64(12_345_678), usdc)

	btc, err := ScaleToken(decimal.RequireFromString("0.123456789"), 8)
	require.NoError(t, err)
	assert.Equal(t, int64(12_345_678), btc)
}

func TestScale_Overflow(t *testing.T) {
	_, err := ScaleBase(decimal.RequireFromString("10000000000000"))
	assert.Error(t, err)
}
