package orderplan

import (
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/perpdesk/pkg/app/core"
	"github.com/uhyunpark/perpdesk/pkg/app/core/market"
	"github.com/uhyunpark/perpdesk/pkg/errors"
)

// TransferKind is the direction of collateral movement.
type TransferKind string

const (
	Deposit  TransferKind = "DEPOSIT"
	Withdraw TransferKind = "WITHDRAW"
)

// TransferSpec moves a spot token between the wallet and a subaccount.
// Amount is in the market's own token precision.
type TransferSpec struct {
	Kind         TransferKind `json:"kind"`
	MarketIndex  uint16       `json:"marketIndex"`
	SubAccountID uint16       `json:"subAccountId"`
	Amount       int64        `json:"amount"`
	ReduceOnly   bool         `json:"reduceOnly"`
}

// BuildTransfer scales amount by m.Decimals (truncating) for a deposit or
// withdrawal into subAccountID. m must be a spot market.
func BuildTransfer(kind TransferKind, amount decimal.Decimal, subAccountID uint16, m market.MarketRef) (TransferSpec, error) {
	if kind != Deposit && kind != Withdraw {
		return TransferSpec{}, errors.Newf(errors.ErrCodeInvalidRequest, "unsupported transfer kind %q", kind)
	}
	if m.Kind != core.Spot {
		return TransferSpec{}, errors.Newf(errors.ErrCodeMarketNotFound, "no spot market with index %d", m.Index)
	}
	if !amount.IsPositive() {
		return TransferSpec{}, errors.Newf(errors.ErrCodeInvalidAmount, "amount %s must be positive", amount.String())
	}

	scaled, err := ScaleToken(amount, m.Decimals)
	if err != nil {
		return TransferSpec{}, errors.Wrap(errors.ErrCodeInvalidAmount, "amount out of range", err)
	}
	if scaled == 0 {
		return TransferSpec{}, errors.Newf(errors.ErrCodeInvalidAmount,
			"amount %s is below %s precision", amount.String(), m.Symbol)
	}

	return TransferSpec{
		Kind:         kind,
		MarketIndex:  m.Index,
		SubAccountID: subAccountID,
		Amount:       scaled,
	}, nil
}
