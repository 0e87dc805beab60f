// Package projector turns a raw subaccount snapshot into display records:
// balances, perp positions with unrealized PnL, and open orders.
//
// Projection is pure and never fails as a whole. An item whose market cannot
// be resolved is left out and everything else is still returned.
package projector

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/perpdesk/pkg/app/core"
	"github.com/uhyunpark/perpdesk/pkg/app/core/market"
)

// ProjectAccount projects raw into an AccountView. Records keep the order of
// the input slices. Symbols come from markets; decimals and oracle prices come
// from the snapshot's own market accounts.
func ProjectAccount(raw RawAccountState, markets market.Reference) AccountView {
	spot := indexMarkets(raw.SpotMarkets)
	perp := indexMarkets(raw.PerpMarkets)

	return AccountView{
		SubAccountID: raw.SubAccountID,
		Authority:    raw.Authority,
		Balances:     projectBalances(raw.SpotPositions, spot, markets),
		Positions:    projectPositions(raw.PerpPositions, perp, markets),
		Orders:       projectOrders(raw.Orders, spot, markets),
	}
}

func indexMarkets(accounts []RawMarketAccount) map[uint16]RawMarketAccount {
	out := make(map[uint16]RawMarketAccount, len(accounts))
	for _, a := range accounts {
		out[a.MarketIndex] = a
	}
	return out
}

func projectBalances(positions []RawSpotPosition, accounts map[uint16]RawMarketAccount, markets market.Reference) []BalanceRecord {
	out := make([]BalanceRecord, 0, len(positions))
	for _, p := range positions {
		if p.ScaledBalance.IsZero() {
			continue
		}
		acct, ok := accounts[p.MarketIndex]
		if !ok {
			continue
		}

		isDeposit := !p.BalanceType.Is("borrow")
		amount := p.TokenAmount.Abs().Shift(-acct.Decimals)
		usd := amount.Mul(acct.LastOraclePrice).Shift(-market.QuotePrecisionDecimals)
		if !isDeposit {
			amount = amount.Neg()
		}

		out = append(out, BalanceRecord{
			MarketIndex: p.MarketIndex,
			Symbol:      symbol(markets, core.Spot, p.MarketIndex),
			Amount:      amount,
			UsdValue:    usd,
			IsDeposit:   isDeposit,
		})
	}
	return out
}

func projectPositions(positions []RawPerpPosition, accounts map[uint16]RawMarketAccount, markets market.Reference) []PositionRecord {
	out := make([]PositionRecord, 0, len(positions))
	for _, p := range positions {
		if p.BaseAssetAmount.IsZero() {
			continue
		}
		acct, ok := accounts[p.MarketIndex]
		if !ok {
			continue
		}

		isLong := !p.BaseAssetAmount.IsNegative()
		mark := acct.LastOraclePrice.Shift(-market.QuotePrecisionDecimals)
		base := p.BaseAssetAmount.Abs().Shift(-market.BasePrecisionDecimals)
		quote := p.QuoteAssetAmount.Shift(-market.QuotePrecisionDecimals)
		current := base.Mul(mark)

		pnl := current.Add(quote)
		signedBase := base
		if !isLong {
			pnl = current.Neg().Add(quote)
			signedBase = base.Neg()
		}

		out = append(out, PositionRecord{
			MarketIndex:      p.MarketIndex,
			Symbol:           symbol(markets, core.Perp, p.MarketIndex),
			BaseAssetAmount:  signedBase,
			QuoteAssetAmount: quote,
			EntryPrice:       p.QuoteEntryAmount.Shift(-market.QuotePrecisionDecimals),
			MarkPrice:        mark,
			PnL:              pnl,
			IsLong:           isLong,
		})
	}
	return out
}

// projectOrders scales perp sizes by base precision and spot sizes by the spot
// market's own decimals. A spot order whose market account is missing, or an
// order of unknown market type, keeps the raw size with a zero SizeValue.
func projectOrders(orders []RawOrder, spotAccounts map[uint16]RawMarketAccount, markets market.Reference) []OrderRecord {
	out := make([]OrderRecord, 0, len(orders))
	for _, o := range orders {
		// snapshots normally carry open orders only
		if o.Status.Tag() != "" && !o.Status.Is("open") {
			continue
		}

		var sym string
		var size decimal.Decimal
		switch {
		case o.MarketType.Is("spot"):
			sym = symbol(markets, core.Spot, o.MarketIndex)
			if acct, ok := spotAccounts[o.MarketIndex]; ok {
				size = o.BaseAssetAmount.Shift(-acct.Decimals)
			}
		case o.MarketType.Is("perp"):
			sym = symbol(markets, core.Perp, o.MarketIndex)
			size = o.BaseAssetAmount.Shift(-market.BasePrecisionDecimals)
		default:
			sym = fmt.Sprintf("UNKNOWN-%d", o.MarketIndex)
		}

		out = append(out, OrderRecord{
			OrderID:     o.OrderID,
			MarketIndex: o.MarketIndex,
			Symbol:      sym,
			Direction:   direction(o.Direction),
			Type:        orderKind(o.OrderType),
			Price:       o.Price.String(),
			Size:        o.BaseAssetAmount.String(),
			PriceValue:  o.Price.Shift(-market.QuotePrecisionDecimals),
			SizeValue:   size,
			Status:      OrderStatusOpen,
		})
	}
	return out
}

var orderKindTags = []struct {
	tag  string
	kind core.OrderKind
}{
	{"market", core.Market},
	{"limit", core.Limit},
	{"triggerMarket", core.TriggerMarket},
	{"triggerLimit", core.TriggerLimit},
	{"oracle", core.Oracle},
}

func orderKind(v Variant) core.OrderKind {
	for _, t := range orderKindTags {
		if v.Is(t.tag) {
			return t.kind
		}
	}
	return core.KindUnknown
}

func direction(v Variant) core.Side {
	switch {
	case v.Is("long"):
		return core.Long
	case v.Is("short"):
		return core.Short
	default:
		return core.SideUnknown
	}
}

func symbol(markets market.Reference, kind core.MarketKind, index uint16) string {
	if markets != nil {
		if ref, ok := markets.Lookup(kind, index); ok {
			return ref.Symbol
		}
	}
	return fmt.Sprintf("%s-%d", kind, index)
}

// ProjectSubaccounts lists subaccount headers in input order. An unnamed
// subaccount is called "Subaccount {id}".
func ProjectSubaccounts(accounts []RawUserAccount) []SubaccountRecord {
	out := make([]SubaccountRecord, 0, len(accounts))
	for _, a := range accounts {
		name := strings.TrimSpace(strings.TrimRight(a.Name, "\x00"))
		if name == "" {
			name = fmt.Sprintf("Subaccount %d", a.SubAccountID)
		}
		out = append(out, SubaccountRecord{
			ID:        a.SubAccountID,
			Name:      name,
			Authority: a.Authority,
			PublicKey: a.Delegate,
		})
	}
	return out
}
