package projector

import "github.com/shopspring/decimal"

// Raw* types are the ledger facts for one subaccount, already fetched and
// decoded. Integer amounts stay in their on-chain precision; decimal.Decimal
// only carries them so values wider than int64 survive decoding.

type RawAccountState struct {
	SubAccountID  uint16            `json:"subAccountId"`
	Authority     string            `json:"authority"`
	SpotPositions []RawSpotPosition `json:"spotPositions"`
	PerpPositions []RawPerpPosition `json:"perpPositions"`
	Orders        []RawOrder        `json:"orders"`

	// Market accounts referenced by the positions above. A position whose
	// market account is absent cannot be valued and is left out.
	SpotMarkets []RawMarketAccount `json:"spotMarkets"`
	PerpMarkets []RawMarketAccount `json:"perpMarkets"`
}

type RawSpotPosition struct {
	MarketIndex   uint16          `json:"marketIndex"`
	ScaledBalance decimal.Decimal `json:"scaledBalance"`
	BalanceType   Variant         `json:"balanceType"` // deposit | borrow
	TokenAmount   decimal.Decimal `json:"tokenAmount"` // 10^decimals
}

type RawPerpPosition struct {
	MarketIndex      uint16          `json:"marketIndex"`
	BaseAssetAmount  decimal.Decimal `json:"baseAssetAmount"`  // 1e9, signed
	QuoteAssetAmount decimal.Decimal `json:"quoteAssetAmount"` // 1e6, signed
	QuoteEntryAmount decimal.Decimal `json:"quoteEntryAmount"` // 1e6
}

type RawOrder struct {
	OrderID         uint32          `json:"orderId"`
	MarketIndex     uint16          `json:"marketIndex"`
	MarketType      Variant         `json:"marketType"` // spot | perp
	OrderType       Variant         `json:"orderType"`
	Direction       Variant         `json:"direction"` // long | short
	Status          Variant         `json:"status"`
	Price           decimal.Decimal `json:"price"`           // 1e6
	BaseAssetAmount decimal.Decimal `json:"baseAssetAmount"` // 1e9
}

// RawMarketAccount is the on-chain market state a position is valued against.
type RawMarketAccount struct {
	MarketIndex     uint16          `json:"marketIndex"`
	Decimals        int32           `json:"decimals"`
	LastOraclePrice decimal.Decimal `json:"lastOraclePrice"` // 1e6
}

// RawUserAccount is one subaccount header as listed for an authority.
type RawUserAccount struct {
	SubAccountID uint16 `json:"subAccountId"`
	Name         string `json:"name"`
	Authority    string `json:"authority"`
	Delegate     string `json:"delegate"`
}
