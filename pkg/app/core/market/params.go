// Package market holds the read-only market reference table: index, symbol,
// decimals and kind for every spot and perp market the desk knows about.
package market

import "github.com/uhyunpark/perpdesk/pkg/app/core"

// Exchange-wide fixed-point precisions.
//
// Perp base amounts:        1e9  (1 SOL = 1_000_000_000)
// Quote amounts and prices: 1e6  (1 USDC = 1_000_000)
// Spot token amounts:       10^MarketRef.Decimals, per market
const (
	BasePrecisionDecimals  = 9
	QuotePrecisionDecimals = 6

	BasePrecision  int64 = 1_000_000_000
	QuotePrecision int64 = 1_000_000
)

// DefaultSpotMarkets is the mainnet spot table used when no market file is
// configured.
var DefaultSpotMarkets = []MarketRef{
	{Index: 0, Symbol: "USDC", Decimals: 6, Kind: core.Spot},
	{Index: 1, Symbol: "SOL", Decimals: 9, Kind: core.Spot},
	{Index: 2, Symbol: "mSOL", Decimals: 9, Kind: core.Spot},
	{Index: 3, Symbol: "wBTC", Decimals: 8, Kind: core.Spot},
	{Index: 4, Symbol: "wETH", Decimals: 8, Kind: core.Spot},
	{Index: 5, Symbol: "USDT", Decimals: 6, Kind: core.Spot},
	{Index: 6, Symbol: "jitoSOL", Decimals: 9, Kind: core.Spot},
}

// DefaultPerpMarkets is the mainnet perp table offered by the order form.
var DefaultPerpMarkets = []MarketRef{
	{Index: 0, Symbol: "SOL-PERP", Decimals: BasePrecisionDecimals, Kind: core.Perp},
	{Index: 1, Symbol: "BTC-PERP", Decimals: BasePrecisionDecimals, Kind: core.Perp},
	{Index: 2, Symbol: "ETH-PERP", Decimals: BasePrecisionDecimals, Kind: core.Perp},
	{Index: 4, Symbol: "1MBONK-PERP", Decimals: BasePrecisionDecimals, Kind: core.Perp},
	{Index: 20, Symbol: "JTO-PERP", Decimals: BasePrecisionDecimals, Kind: core.Perp},
}

// NewDefaultRegistry builds the registry from the default tables.
func NewDefaultRegistry() *Registry {
	refs := make([]MarketRef, 0, len(DefaultSpotMarkets)+len(DefaultPerpMarkets))
	refs = append(refs, DefaultSpotMarkets...)
	refs = append(refs, DefaultPerpMarkets...)
	r, err := NewRegistry(refs...)
	if err != nil {
		// static tables; a failure here is a programming error
		panic(err)
	}
	return r
}
