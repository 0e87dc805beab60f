package orderplan

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/perpdesk/pkg/app/core/market"
)

var (
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

// ScaleBase converts a base-asset size to perp base precision (1e9),
// truncating toward zero.
func ScaleBase(size decimal.Decimal) (int64, error) {
	return scale(size, market.BasePrecisionDecimals)
}

// ScaleQuote converts a quote-denominated value (price, USD) to quote
// precision (1e6), truncating toward zero.
func ScaleQuote(price decimal.Decimal) (int64, error) {
	return scale(price, market.QuotePrecisionDecimals)
}

// ScaleToken converts a spot token amount using the market's own decimals,
// truncating toward zero.
func ScaleToken(amount decimal.Decimal, decimals int32) (int64, error) {
	return scale(amount, decimals)
}

// scale computes trunc(v × 10^exp). Truncation, never rounding, so a scaled
// amount can never exceed what the user typed.
func scale(v decimal.Decimal, exp int32) (int64, error) {
	scaled := v.Shift(exp).Truncate(0)
	if scaled.GreaterThan(maxInt64) || scaled.LessThan(minInt64) {
		return 0, fmt.Errorf("value %s overflows int64 at 1e%d", v.String(), exp)
	}
	return scaled.IntPart(), nil
}
