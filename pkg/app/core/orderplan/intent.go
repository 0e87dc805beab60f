// Package orderplan turns a trade intent into the exact, fully populated order
// specifications an instruction builder needs: one entry order with optional
// take-profit and stop-loss legs, or a ladder of limit orders.
//
// Everything here is a pure function of its arguments. There is no clock, no
// randomness and no shared state, so identical inputs always produce identical
// plans and callers may build plans concurrently.
package orderplan

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/perpdesk/pkg/app/core"
)

// TradeIntent is what the user asked for, in human units.
type TradeIntent struct {
	MarketIndex uint16
	Side        core.Side
	Size        decimal.Decimal // base asset units, e.g. 1.5 SOL
	Kind        core.OrderKind

	Price        optional.Option[decimal.Decimal] // limit price, quote units
	TriggerPrice optional.Option[decimal.Decimal]

	// Bracket legs, honoured only for single orders.
	TakeProfitPrice optional.Option[decimal.Decimal]
	StopLossPrice   optional.Option[decimal.Decimal]

	// Ladder switches the plan to evenly stepped limit orders.
	Ladder optional.Option[Ladder]
}

// Ladder spreads the intent's size over Legs limit orders between MinPrice
// and MaxPrice inclusive.
type Ladder struct {
	Legs     int
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
}

// positivePrice returns the scaled value of an optional price and whether it is set
// and strictly positive after scaling.
func positivePrice(p optional.Option[decimal.Decimal]) (int64, bool) {
	if p.IsNone() {
		return 0, false
	}
	v := p.Unwrap()
	if !v.IsPositive() {
		return 0, false
	}
	scaled, err := ScaleQuote(v)
	if err != nil || scaled <= 0 {
		return 0, false
	}
	return scaled, true
}
