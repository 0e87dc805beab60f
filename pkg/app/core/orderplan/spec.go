package orderplan

import (
	"github.com/uhyunpark/perpdesk/pkg/app/core"
	"github.com/uhyunpark/perpdesk/pkg/errors"
)

// OrderSpec is one exchange order instruction in fixed-point units.
// Every field is always set; fields a plan does not use carry their neutral
// zero value so the instruction builder never sees a partial order.
type OrderSpec struct {
	MarketIndex      uint16                `json:"marketIndex"`
	MarketKind       core.MarketKind       `json:"marketType"`
	Side             core.Side             `json:"direction"`
	Kind             core.OrderKind        `json:"orderType"`
	BaseAssetAmount  int64                 `json:"baseAssetAmount"` // 1e9
	Price            int64                 `json:"price"`           // 1e6, 0 = unset
	TriggerPrice     int64                 `json:"triggerPrice"`    // 1e6, 0 = unset
	TriggerCondition core.TriggerCondition `json:"triggerCondition"`
	ReduceOnly       bool                  `json:"reduceOnly"`
	PostOnly         bool                  `json:"postOnly"`

	UserOrderID       uint8 `json:"userOrderId"`
	ImmediateOrCancel bool  `json:"immediateOrCancel"`
	MaxTs             int64 `json:"maxTs"`
	OraclePriceOffset int32 `json:"oraclePriceOffset"`
	AuctionDuration   uint8 `json:"auctionDuration"`
	AuctionStartPrice int64 `json:"auctionStartPrice"`
	AuctionEndPrice   int64 `json:"auctionEndPrice"`
}

// baseSpec returns the neutral template every spec in a plan starts from.
func baseSpec(m uint16, side core.Side, amount int64) OrderSpec {
	return OrderSpec{
		MarketIndex:      m,
		MarketKind:       core.Perp,
		Side:             side,
		Kind:             core.Market,
		BaseAssetAmount:  amount,
		TriggerCondition: core.Above,
	}
}

// Validate checks that a spec could have come out of BuildOrderSpecs: a
// positive size, a side, a supported kind and the prices that kind needs.
// It is used on specs that arrive from outside, e.g. in a signed plan.
func (s OrderSpec) Validate() error {
	if s.BaseAssetAmount <= 0 {
		return errors.Newf(errors.ErrCodeInvalidSize, "base amount %d must be positive", s.BaseAssetAmount)
	}
	if !s.Side.Valid() {
		return errors.New(errors.ErrCodeInvalidSide, "side must be LONG or SHORT")
	}
	switch s.Kind {
	case core.Market, core.Limit, core.TriggerMarket, core.TriggerLimit:
	default:
		return errors.Newf(errors.ErrCodeInvalidOrderKind, "unsupported order type %s", s.Kind)
	}
	if s.Kind.NeedsLimitPrice() && s.Price <= 0 {
		return errors.Newf(errors.ErrCodeMissingLimitPrice, "%s order needs a positive price", s.Kind)
	}
	if s.Kind.IsTrigger() && s.TriggerPrice <= 0 {
		return errors.Newf(errors.ErrCodeMissingTriggerPrice, "%s order needs a positive trigger price", s.Kind)
	}
	return nil
}

// TotalBaseAmount sums the base amounts of specs that open exposure
// (reduce-only legs excluded).
func TotalBaseAmount(specs []OrderSpec) int64 {
	var total int64
	for _, s := range specs {
		if !s.ReduceOnly {
			total += s.BaseAssetAmount
		}
	}
	return total
}
