package projector

import (
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/perpdesk/pkg/app/core"
)

// AccountView is the display-ready projection of one subaccount.
type AccountView struct {
	SubAccountID uint16           `json:"subAccountId"`
	Authority    string           `json:"authority"`
	Balances     []BalanceRecord  `json:"balances"`
	Positions    []PositionRecord `json:"positions"`
	Orders       []OrderRecord    `json:"orders"`
}

type BalanceRecord struct {
	MarketIndex uint16          `json:"marketIndex"`
	Symbol      string          `json:"symbol"`
	Amount      decimal.Decimal `json:"amount"` // negative for a borrow
	UsdValue    decimal.Decimal `json:"usdValue"`
	IsDeposit   bool            `json:"isDeposit"`
}

// PositionRecord values a perp position at the oracle price. PnL is a
// mark-to-market estimate: funding accrual is not included.
type PositionRecord struct {
	MarketIndex      uint16          `json:"marketIndex"`
	Symbol           string          `json:"symbol"`
	BaseAssetAmount  decimal.Decimal `json:"baseAssetAmount"` // negative when short
	QuoteAssetAmount decimal.Decimal `json:"quoteAssetAmount"`
	EntryPrice       decimal.Decimal `json:"entryPrice"`
	MarkPrice        decimal.Decimal `json:"markPrice"`
	PnL              decimal.Decimal `json:"pnl"`
	IsLong           bool            `json:"isLong"`
}

// OrderRecord keeps price and size in raw ledger units; PriceValue and
// SizeValue are the same numbers in human units.
type OrderRecord struct {
	OrderID     uint32          `json:"orderId"`
	MarketIndex uint16          `json:"marketIndex"`
	Symbol      string          `json:"symbol"`
	Direction   core.Side       `json:"direction"`
	Type        core.OrderKind  `json:"type"`
	Price       string          `json:"price"`
	Size        string          `json:"size"`
	PriceValue  decimal.Decimal `json:"priceValue"`
	SizeValue   decimal.Decimal `json:"sizeValue"`
	Status      string          `json:"status"`
}

// OrderStatusOpen is the only status the projector reports.
const OrderStatusOpen = "OPEN"

type SubaccountRecord struct {
	ID        uint16 `json:"id"`
	Name      string `json:"name"`
	Authority string `json:"authority"`
	PublicKey string `json:"publicKey"`
}
