package orderplan

import (
	"math"
	"testing"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/perpdesk/pkg/app/core"
	"github.com/uhyunpark/perpdesk/pkg/app/core/market"
	"github.com/uhyunpark/perpdesk/pkg/errors"
)

var solPerp = market.MarketRef{Index: 0, Symbol: "SOL-PERP", Decimals: 9, Kind: core.Perp}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func some(s string) optional.Option[decimal.Decimal] {
	return optional.Some(d(s))
}

func TestBuildOrderSpecs_BracketCounts(t *testing.T) {
	tests := []struct {
		name string
		kind core.OrderKind
		tp   optional.Option[decimal.Decimal]
		sl   optional.Option[decimal.Decimal]
		want int
	}{
		{"market alone", core.Market, optional.None[decimal.Decimal](), optional.None[decimal.Decimal](), 1},
		{"market with tp", core.Market, some("160"), optional.None[decimal.Decimal](), 2},
		{"market with sl", core.Market, optional.None[decimal.Decimal](), some("120"), 2},
		{"market with both", core.Market, some("160"), some("120"), 3},
		{"limit alone", core.Limit, optional.None[decimal.Decimal](), optional.None[decimal.Decimal](), 1},
		{"limit with tp", core.Limit, some("160"), optional.None[decimal.Decimal](), 2},
		{"limit with both", core.Limit, some("160"), some("120"), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := TradeIntent{
				Side:            core.Long,
				Size:            d("1.5"),
				Kind:            tt.kind,
				Price:           some("140"),
				TakeProfitPrice: tt.tp,
				StopLossPrice:   tt.sl,
			}
			specs, err := BuildOrderSpecs(intent, solPerp)
			require.NoError(t, err)
			assert.Len(t, specs, tt.want)
			assert.Equal(t, tt.kind, specs[0].Kind)
		})
	}
}

func TestBuildOrderSpecs_MarketEntryDefaults(t *testing.T) {
	specs, err := BuildOrderSpecs(TradeIntent{Side: core.Short, Size: d("2"), Kind: core.Market}, solPerp)
	require.NoError(t, err)
	require.Len(t, specs, 1)

	assert.Equal(t, OrderSpec{
		MarketIndex:      0,
		MarketKind:       core.Perp,
		Side:             core.Short,
		Kind:             core.Market,
		BaseAssetAmount:  2_000_000_000,
		TriggerCondition: core.Above,
	}, specs[0])
}

func TestBuildOrderSpecs_LimitIgnoresStrayTrigger(t *testing.T) {
	intent := TradeIntent{
		Side:         core.Long,
		Size:         d("1"),
		Kind:         core.Limit,
		Price:        some("101.25"),
		TriggerPrice: some("99"),
	}
	specs, err := BuildOrderSpecs(intent, solPerp)
	require.NoError(t, err)
	assert.Equal(t, int64(101_250_000), specs[0].Price)
	assert.Equal(t, int64(0), specs[0].TriggerPrice)
}

func TestBuildOrderSpecs_TriggerConditions(t *testing.T) {
	tests := []struct {
		name      string
		side      core.Side
		kind      core.OrderKind
		wantCond  core.TriggerCondition
		wantPrice int64
	}{
		{"long trigger market", core.Long, core.TriggerMarket, core.Above, 0},
		{"short trigger market", core.Short, core.TriggerMarket, core.Below, 0},
		{"long trigger limit", core.Long, core.TriggerLimit, core.Above, 150_000_000},
		{"short trigger limit", core.Short, core.TriggerLimit, core.Below, 150_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := TradeIntent{
				Side:         tt.side,
				Size:         d("1"),
				Kind:         tt.kind,
				Price:        some("150"),
				TriggerPrice: some("149.5"),
			}
			specs, err := BuildOrderSpecs(intent, solPerp)
			require.NoError(t, err)
			require.Len(t, specs, 1)
			assert.Equal(t, tt.wantCond, specs[0].TriggerCondition)
			assert.Equal(t, int64(149_500_000), specs[0].TriggerPrice)
			assert.Equal(t, tt.wantPrice, specs[0].Price)
		})
	}
}

func TestBuildOrderSpecs_BracketDirection(t *testing.T) {
	intent := TradeIntent{
		Side:            core.Long,
		Size:            d("3"),
		Kind:            core.Market,
		TakeProfitPrice: some("200"),
		StopLossPrice:   some("100"),
	}
	specs, err := BuildOrderSpecs(intent, solPerp)
	require.NoError(t, err)
	require.Len(t, specs, 3)

	tp, sl := specs[1], specs[2]

	assert.Equal(t, core.Short, tp.Side)
	assert.True(t, tp.ReduceOnly)
	assert.Equal(t, core.Limit, tp.Kind)
	assert.Equal(t, int64(200_000_000), tp.Price)
	assert.Equal(t, int64(3_000_000_000), tp.BaseAssetAmount)

	assert.Equal(t, core.Short, sl.Side)
	assert.True(t, sl.ReduceOnly)
	assert.Equal(t, core.TriggerMarket, sl.Kind)
	assert.Equal(t, int64(100_000_000), sl.TriggerPrice)
	assert.Equal(t, core.Below, sl.TriggerCondition)

	assert.False(t, specs[0].ReduceOnly)
}

func TestBuildOrderSpecs_ShortStopTriggersAbove(t *testing.T) {
	intent := TradeIntent{
		Side:          core.Short,
		Size:          d("1"),
		Kind:          core.Market,
		StopLossPrice: some("180"),
	}
	specs, err := BuildOrderSpecs(intent, solPerp)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, core.Long, specs[1].Side)
	assert.Equal(t, core.Above, specs[1].TriggerCondition)
}

func TestBuildOrderSpecs_Ladder(t *testing.T) {
	intent := TradeIntent{
		Side: core.Long,
		Size: d("9"),
		Kind: core.Market,
		Ladder: optional.Some(Ladder{
			Legs:     3,
			MinPrice: d("100"),
			MaxPrice: d("200"),
		}),
		// bracket legs are not part of a ladder plan
		TakeProfitPrice: some("250"),
	}
	specs, err := BuildOrderSpecs(intent, solPerp)
	require.NoError(t, err)
	require.Len(t, specs, 3)

	wantPrices := []int64{100_000_000, 150_000_000, 200_000_000}
	for i, s := range specs {
		assert.Equal(t, core.Limit, s.Kind)
		assert.Equal(t, wantPrices[i], s.Price)
		assert.Equal(t, int64(3_000_000_000), s.BaseAssetAmount)
		assert.False(t, s.ReduceOnly)
	}
	assert.Equal(t, int64(9_000_000_000), TotalBaseAmount(specs))
}

func TestBuildOrderSpecs_LadderMaxLegs(t *testing.T) {
	intent := TradeIntent{
		Side:   core.Long,
		Size:   decimal.NewFromInt(MaxLadderLegs).Shift(-market.BasePrecisionDecimals),
		Kind:   core.Market,
		Ladder: optional.Some(Ladder{Legs: MaxLadderLegs, MinPrice: d("100"), MaxPrice: d("131")}),
	}
	specs, err := BuildOrderSpecs(intent, solPerp)
	require.NoError(t, err)
	require.Len(t, specs, MaxLadderLegs)
	for _, s := range specs {
		assert.Equal(t, int64(1), s.BaseAssetAmount)
	}
}

// Leg sizes use integer division and the remainder is dropped, so a ladder
// of 10 over 3 legs only places 9.999999999.
func TestBuildOrderSpecs_LadderDropsRemainder(t *testing.T) {
	intent := TradeIntent{
		Side:   core.Short,
		Size:   decimal.NewFromInt(10).Shift(-market.BasePrecisionDecimals), // 10 base units
		Kind:   core.Market,
		Ladder: optional.Some(Ladder{Legs: 3, MinPrice: d("100"), MaxPrice: d("200")}),
	}
	specs, err := BuildOrderSpecs(intent, solPerp)
	require.NoError(t, err)
	require.Len(t, specs, 3)

	for _, s := range specs {
		assert.Equal(t, int64(3), s.BaseAssetAmount)
	}
	assert.Equal(t, int64(9), TotalBaseAmount(specs))
	assert.NotEqual(t, int64(10), TotalBaseAmount(specs))

	whole := intent
	whole.Size = d("10")
	specs, err = BuildOrderSpecs(whole, solPerp)
	require.NoError(t, err)
	assert.Equal(t, int64(3_333_333_333), specs[0].BaseAssetAmount)
	assert.Equal(t, int64(9_999_999_999), TotalBaseAmount(specs))
}

func TestBuildOrderSpecs_LadderRemainderToLastLeg(t *testing.T) {
	intent := TradeIntent{
		Side:   core.Long,
		Size:   decimal.NewFromInt(10).Shift(-market.BasePrecisionDecimals),
		Kind:   core.Market,
		Ladder: optional.Some(Ladder{Legs: 3, MinPrice: d("100"), MaxPrice: d("200")}),
	}
	specs, err := BuildOrderSpecs(intent, solPerp, WithRemainderToLastLeg())
	require.NoError(t, err)

	got := []int64{specs[0].BaseAssetAmount, specs[1].BaseAssetAmount, specs[2].BaseAssetAmount}
	assert.Equal(t, []int64{3, 3, 4}, got)
	assert.Equal(t, int64(10), TotalBaseAmount(specs))
}

// A range that does not divide evenly leaves the top leg short of MaxPrice.
func TestBuildOrderSpecs_LadderUnevenStep(t *testing.T) {
	intent := TradeIntent{
		Side:   core.Long,
		Size:   d("3"),
		Kind:   core.Market,
		Ladder: optional.Some(Ladder{Legs: 3, MinPrice: d("0.000001"), MaxPrice: d("0.000004")}),
	}
	specs, err := BuildOrderSpecs(intent, solPerp)
	require.NoError(t, err)

	got := []int64{specs[0].Price, specs[1].Price, specs[2].Price}
	assert.Equal(t, []int64{1, 2, 3}, got)
}

func TestBuildOrderSpecs_Validation(t *testing.T) {
	valid := TradeIntent{Side: core.Long, Size: d("1"), Kind: core.Market}

	tests := []struct {
		name   string
		mutate func(*TradeIntent)
		code   errors.ErrorCode
	}{
		{"zero size", func(i *TradeIntent) { i.Size = decimal.Zero }, errors.ErrCodeInvalidSize},
		{"negative size", func(i *TradeIntent) { i.Size = d("-1") }, errors.ErrCodeInvalidSize},
		{"dust size", func(i *TradeIntent) { i.Size = d("0.0000000001") }, errors.ErrCodeInvalidSize},
		{"size before side", func(i *TradeIntent) { i.Size = decimal.Zero; i.Side = core.SideUnknown }, errors.ErrCodeInvalidSize},
		{"unknown side", func(i *TradeIntent) { i.Side = core.SideUnknown }, errors.ErrCodeInvalidSide},
		{"oracle kind", func(i *TradeIntent) { i.Kind = core.Oracle }, errors.ErrCodeInvalidOrderKind},
		{"limit without price", func(i *TradeIntent) { i.Kind = core.Limit }, errors.ErrCodeMissingLimitPrice},
		{"limit with zero price", func(i *TradeIntent) { i.Kind = core.Limit; i.Price = some("0") }, errors.ErrCodeMissingLimitPrice},
		{"trigger limit without price", func(i *TradeIntent) {
			i.Kind = core.TriggerLimit
			i.TriggerPrice = some("10")
		}, errors.ErrCodeMissingLimitPrice},
		{"trigger market without trigger", func(i *TradeIntent) { i.Kind = core.TriggerMarket }, errors.ErrCodeMissingTriggerPrice},
		{"trigger limit with negative trigger", func(i *TradeIntent) {
			i.Kind = core.TriggerLimit
			i.Price = some("10")
			i.TriggerPrice = some("-1")
		}, errors.ErrCodeMissingTriggerPrice},
		{"ladder one leg", func(i *TradeIntent) {
			i.Ladder = optional.Some(Ladder{Legs: 1, MinPrice: d("1"), MaxPrice: d("2")})
		}, errors.ErrCodeInvalidLadderRange},
		{"ladder inverted", func(i *TradeIntent) {
			i.Ladder = optional.Some(Ladder{Legs: 3, MinPrice: d("2"), MaxPrice: d("1")})
		}, errors.ErrCodeInvalidLadderRange},
		{"ladder flat", func(i *TradeIntent) {
			i.Ladder = optional.Some(Ladder{Legs: 3, MinPrice: d("2"), MaxPrice: d("2")})
		}, errors.ErrCodeInvalidLadderRange},
		{"ladder zero min", func(i *TradeIntent) {
			i.Ladder = optional.Some(Ladder{Legs: 3, MinPrice: decimal.Zero, MaxPrice: d("2")})
		}, errors.ErrCodeInvalidLadderRange},
		{"ladder too many legs", func(i *TradeIntent) {
			i.Ladder = optional.Some(Ladder{Legs: MaxLadderLegs + 1, MinPrice: d("1"), MaxPrice: d("2")})
		}, errors.ErrCodeInvalidLadderRange},
		{"ladder huge leg count", func(i *TradeIntent) {
			i.Ladder = optional.Some(Ladder{Legs: math.MaxInt, MinPrice: d("1"), MaxPrice: d("2")})
		}, errors.ErrCodeInvalidLadderRange},
		{"ladder legs below base precision", func(i *TradeIntent) {
			i.Size = d("0.000000002")
			i.Ladder = optional.Some(Ladder{Legs: 3, MinPrice: d("100"), MaxPrice: d("200")})
		}, errors.ErrCodeInvalidSize},
		{"zero take profit", func(i *TradeIntent) { i.TakeProfitPrice = some("0") }, errors.ErrCodeMissingLimitPrice},
		{"negative stop loss", func(i *TradeIntent) { i.StopLossPrice = some("-5") }, errors.ErrCodeMissingTriggerPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := valid
			tt.mutate(&intent)
			specs, err := BuildOrderSpecs(intent, solPerp)
			require.Error(t, err)
			assert.Nil(t, specs)
			assert.Equal(t, tt.code, errors.GetCode(err), err.Error())
		})
	}
}

func TestBuildOrderSpecs_WrongMarket(t *testing.T) {
	usdc := market.MarketRef{Index: 0, Symbol: "USDC", Decimals: 6, Kind: core.Spot}
	_, err := BuildOrderSpecs(TradeIntent{Side: core.Long, Size: d("1"), Kind: core.Market}, usdc)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidMarket))

	_, err = BuildOrderSpecs(TradeIntent{MarketIndex: 1, Side: core.Long, Size: d("1"), Kind: core.Market}, solPerp)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidMarket))
}

func TestBuildOrderSpecs_Deterministic(t *testing.T) {
	intent := TradeIntent{
		Side:            core.Long,
		Size:            d("1.234567891"),
		Kind:            core.TriggerLimit,
		Price:           some("150.1234567"),
		TriggerPrice:    some("149"),
		TakeProfitPrice: some("170"),
		StopLossPrice:   some("130"),
	}
	first, err := BuildOrderSpecs(intent, solPerp)
	require.NoError(t, err)
	second, err := BuildOrderSpecs(intent, solPerp)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(150_123_456), first[0].Price)
}
