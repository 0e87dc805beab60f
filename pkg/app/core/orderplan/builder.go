package orderplan

import (
	"github.com/uhyunpark/perpdesk/pkg/app/core"
	"github.com/uhyunpark/perpdesk/pkg/app/core/market"
	"github.com/uhyunpark/perpdesk/pkg/errors"
)

// MaxLadderLegs caps the number of orders one ladder may expand into.
const MaxLadderLegs = 32

type options struct {
	remainderToLastLeg bool
}

// Option tweaks plan construction.
type Option func(*options)

// WithRemainderToLastLeg puts the integer-division remainder of a ladder's
// size onto its last leg, so leg sizes sum to the requested size. Without it
// the remainder is dropped and the ladder may be slightly smaller than asked.
func WithRemainderToLastLeg() Option {
	return func(o *options) { o.remainderToLastLeg = true }
}

// BuildOrderSpecs validates intent and expands it into order specs for m.
//
// Plans are one of:
//   - ladder: Ladder.Legs LIMIT orders stepped from MinPrice to MaxPrice
//   - single: one order of intent.Kind, followed by an optional reduce-only
//     take-profit LIMIT and an optional reduce-only stop-loss TRIGGER_MARKET
//
// Validation fails fast and returns no specs on error.
func BuildOrderSpecs(intent TradeIntent, m market.MarketRef, opts ...Option) ([]OrderSpec, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if m.Kind != core.Perp || m.Index != intent.MarketIndex {
		return nil, errors.Newf(errors.ErrCodeInvalidMarket,
			"intent targets perp market %d, got %s-%d", intent.MarketIndex, m.Kind, m.Index)
	}

	size, err := validate(intent)
	if err != nil {
		return nil, err
	}

	if intent.Ladder.IsSome() {
		return buildLadder(intent, size, o)
	}
	return buildSingle(intent, size)
}

// validate checks the intent in a fixed order and returns the scaled size.
func validate(intent TradeIntent) (int64, error) {
	if !intent.Size.IsPositive() {
		return 0, errors.Newf(errors.ErrCodeInvalidSize, "size %s must be positive", intent.Size.String())
	}
	size, err := ScaleBase(intent.Size)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidSize, "size out of range", err)
	}
	if size == 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidSize, "size %s is below base precision", intent.Size.String())
	}

	if !intent.Side.Valid() {
		return 0, errors.New(errors.ErrCodeInvalidSide, "side must be LONG or SHORT")
	}

	switch intent.Kind {
	case core.Market, core.Limit, core.TriggerMarket, core.TriggerLimit:
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidOrderKind, "unsupported order type %s", intent.Kind)
	}

	if intent.Kind.NeedsLimitPrice() {
		if _, ok := positivePrice(intent.Price); !ok {
			return 0, errors.Newf(errors.ErrCodeMissingLimitPrice, "%s order needs a positive price", intent.Kind)
		}
	}
	if intent.Kind.IsTrigger() {
		if _, ok := positivePrice(intent.TriggerPrice); !ok {
			return 0, errors.Newf(errors.ErrCodeMissingTriggerPrice, "%s order needs a positive trigger price", intent.Kind)
		}
	}

	if intent.Ladder.IsSome() {
		l := intent.Ladder.Unwrap()
		if err := validateLadder(l); err != nil {
			return 0, err
		}
		if size/int64(l.Legs) == 0 {
			return 0, errors.Newf(errors.ErrCodeInvalidSize,
				"size %s is too small to split over %d legs", intent.Size.String(), l.Legs)
		}
		return size, nil
	}

	if intent.TakeProfitPrice.IsSome() {
		if _, ok := positivePrice(intent.TakeProfitPrice); !ok {
			return 0, errors.New(errors.ErrCodeMissingLimitPrice, "take-profit price must be positive")
		}
	}
	if intent.StopLossPrice.IsSome() {
		if _, ok := positivePrice(intent.StopLossPrice); !ok {
			return 0, errors.New(errors.ErrCodeMissingTriggerPrice, "stop-loss price must be positive")
		}
	}

	return size, nil
}

func validateLadder(l Ladder) error {
	if l.Legs < 2 {
		return errors.Newf(errors.ErrCodeInvalidLadderRange, "ladder needs at least 2 legs, got %d", l.Legs)
	}
	if l.Legs > MaxLadderLegs {
		return errors.Newf(errors.ErrCodeInvalidLadderRange, "ladder allows at most %d legs, got %d", MaxLadderLegs, l.Legs)
	}
	if !l.MinPrice.IsPositive() || !l.MaxPrice.IsPositive() {
		return errors.New(errors.ErrCodeInvalidLadderRange, "ladder prices must be positive")
	}
	if !l.MinPrice.LessThan(l.MaxPrice) {
		return errors.Newf(errors.ErrCodeInvalidLadderRange,
			"ladder min %s must be below max %s", l.MinPrice.String(), l.MaxPrice.String())
	}
	minPrice, err := ScaleQuote(l.MinPrice)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidLadderRange, "ladder min out of range", err)
	}
	maxPrice, err := ScaleQuote(l.MaxPrice)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidLadderRange, "ladder max out of range", err)
	}
	if minPrice <= 0 || minPrice >= maxPrice {
		return errors.New(errors.ErrCodeInvalidLadderRange, "ladder range collapses at quote precision")
	}
	return nil
}

// buildLadder steps prices in scaled integers. Both divisions discard their
// remainder: legs are not perfectly even when the range does not divide, and
// leg sizes may sum to less than size unless remainderToLastLeg is set.
func buildLadder(intent TradeIntent, size int64, o options) ([]OrderSpec, error) {
	l := intent.Ladder.Unwrap()
	minPrice, _ := ScaleQuote(l.MinPrice)
	maxPrice, _ := ScaleQuote(l.MaxPrice)

	legs := int64(l.Legs)
	step := (maxPrice - minPrice) / (legs - 1)
	perLeg := size / legs

	specs := make([]OrderSpec, 0, l.Legs)
	for i := int64(0); i < legs; i++ {
		amount := perLeg
		if o.remainderToLastLeg && i == legs-1 {
			amount += size % legs
		}
		spec := baseSpec(intent.MarketIndex, intent.Side, amount)
		spec.Kind = core.Limit
		spec.Price = minPrice + step*i
		specs = append(specs, spec)
	}
	return specs, nil
}

func buildSingle(intent TradeIntent, size int64) ([]OrderSpec, error) {
	entry := baseSpec(intent.MarketIndex, intent.Side, size)
	entry.Kind = intent.Kind

	if intent.Kind.NeedsLimitPrice() {
		entry.Price, _ = positivePrice(intent.Price)
	}
	if intent.Kind.IsTrigger() {
		entry.TriggerPrice, _ = positivePrice(intent.TriggerPrice)
		entry.TriggerCondition = entryTriggerCondition(intent.Side)
	}

	specs := []OrderSpec{entry}
	closing := intent.Side.Opposite()

	if tp, ok := positivePrice(intent.TakeProfitPrice); ok {
		leg := baseSpec(intent.MarketIndex, closing, size)
		leg.Kind = core.Limit
		leg.Price = tp
		leg.ReduceOnly = true
		specs = append(specs, leg)
	}

	if sl, ok := positivePrice(intent.StopLossPrice); ok {
		leg := baseSpec(intent.MarketIndex, closing, size)
		leg.Kind = core.TriggerMarket
		leg.Price = sl
		leg.TriggerPrice = sl
		leg.TriggerCondition = stopTriggerCondition(intent.Side)
		leg.ReduceOnly = true
		specs = append(specs, leg)
	}

	return specs, nil
}

// entryTriggerCondition: a long entry triggers on a rise, a short on a drop.
func entryTriggerCondition(side core.Side) core.TriggerCondition {
	if side == core.Long {
		return core.Above
	}
	return core.Below
}

// stopTriggerCondition fires when price moves against the original position.
func stopTriggerCondition(side core.Side) core.TriggerCondition {
	if side == core.Long {
		return core.Below
	}
	return core.Above
}
