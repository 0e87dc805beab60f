package crypto

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/uhyunpark/perpdesk/pkg/app/core/orderplan"
)

// Domain is the EIP-712 domain separator. Binding the chain id and verifying
// contract keeps a signed plan from being replayed on another deployment.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// DefaultDomain returns the perpdesk domain for chainID, off-chain verified
// (zero verifying contract).
func DefaultDomain(chainID int64) Domain {
	return Domain{
		Name:              "PerpDesk",
		Version:           "1",
		ChainID:           big.NewInt(chainID),
		VerifyingContract: common.Address{},
	}
}

// PlanMessage is what a wallet signs to authorize an order plan: every leg
// of the plan, bound to one subaccount and a nonce.
type PlanMessage struct {
	Owner        common.Address
	SubAccountID uint16
	Nonce        *big.Int
	Deadline     *big.Int // unix seconds, 0 = no expiry
	Orders       []orderplan.OrderSpec
}

// TransferMessage authorizes one deposit or withdrawal.
type TransferMessage struct {
	Owner    common.Address
	Transfer orderplan.TransferSpec
	Nonce    *big.Int
	Deadline *big.Int
}

var domainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

var orderLegType = []apitypes.Type{
	{Name: "marketIndex", Type: "uint16"},
	{Name: "marketType", Type: "string"},
	{Name: "direction", Type: "string"},
	{Name: "orderType", Type: "string"},
	{Name: "baseAssetAmount", Type: "uint256"},
	{Name: "price", Type: "uint256"},
	{Name: "triggerPrice", Type: "uint256"},
	{Name: "triggerCondition", Type: "string"},
	{Name: "reduceOnly", Type: "bool"},
	{Name: "postOnly", Type: "bool"},
}

// TypedDataSigner builds, hashes and verifies perpdesk EIP-712 payloads.
type TypedDataSigner struct {
	domain Domain
}

func NewTypedDataSigner(domain Domain) *TypedDataSigner {
	return &TypedDataSigner{domain: domain}
}

// Domain returns the signer's domain.
func (e *TypedDataSigner) Domain() Domain {
	return e.domain
}

func (e *TypedDataSigner) typedDomain() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              e.domain.Name,
		Version:           e.domain.Version,
		ChainId:           (*math.HexOrDecimal256)(e.domain.ChainID),
		VerifyingContract: e.domain.VerifyingContract.Hex(),
	}
}

// PlanTypedData returns the eth_signTypedData_v4 payload for plan.
// It marshals straight to the JSON wallets expect.
func (e *TypedDataSigner) PlanTypedData(plan *PlanMessage) apitypes.TypedData {
	legs := make([]interface{}, 0, len(plan.Orders))
	for _, o := range plan.Orders {
		legs = append(legs, map[string]interface{}{
			"marketIndex":      fmt.Sprintf("%d", o.MarketIndex),
			"marketType":       o.MarketKind.String(),
			"direction":        o.Side.String(),
			"orderType":        o.Kind.String(),
			"baseAssetAmount":  fmt.Sprintf("%d", o.BaseAssetAmount),
			"price":            fmt.Sprintf("%d", o.Price),
			"triggerPrice":     fmt.Sprintf("%d", o.TriggerPrice),
			"triggerCondition": o.TriggerCondition.String(),
			"reduceOnly":       o.ReduceOnly,
			"postOnly":         o.PostOnly,
		})
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainType,
			"OrderPlan": []apitypes.Type{
				{Name: "owner", Type: "address"},
				{Name: "subAccountId", Type: "uint16"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
				{Name: "orders", Type: "OrderLeg[]"},
			},
			"OrderLeg": orderLegType,
		},
		PrimaryType: "OrderPlan",
		Domain:      e.typedDomain(),
		Message: apitypes.TypedDataMessage{
			"owner":        plan.Owner.Hex(),
			"subAccountId": fmt.Sprintf("%d", plan.SubAccountID),
			"nonce":        bigOrZero(plan.Nonce).String(),
			"deadline":     bigOrZero(plan.Deadline).String(),
			"orders":       legs,
		},
	}
}

// TransferTypedData returns the eth_signTypedData_v4 payload for a transfer.
func (e *TypedDataSigner) TransferTypedData(msg *TransferMessage) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainType,
			"Transfer": []apitypes.Type{
				{Name: "owner", Type: "address"},
				{Name: "kind", Type: "string"},
				{Name: "marketIndex", Type: "uint16"},
				{Name: "subAccountId", Type: "uint16"},
				{Name: "amount", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "Transfer",
		Domain:      e.typedDomain(),
		Message: apitypes.TypedDataMessage{
			"owner":        msg.Owner.Hex(),
			"kind":         string(msg.Transfer.Kind),
			"marketIndex":  fmt.Sprintf("%d", msg.Transfer.MarketIndex),
			"subAccountId": fmt.Sprintf("%d", msg.Transfer.SubAccountID),
			"amount":       fmt.Sprintf("%d", msg.Transfer.Amount),
			"nonce":        bigOrZero(msg.Nonce).String(),
			"deadline":     bigOrZero(msg.Deadline).String(),
		},
	}
}

// HashPlan returns the 32-byte digest a wallet signs for plan.
func (e *TypedDataSigner) HashPlan(plan *PlanMessage) ([]byte, error) {
	return HashTypedData(e.PlanTypedData(plan))
}

// HashTransfer returns the 32-byte digest a wallet signs for msg.
func (e *TypedDataSigner) HashTransfer(msg *TransferMessage) ([]byte, error) {
	return HashTypedData(e.TransferTypedData(msg))
}

// HashTypedData computes keccak256("\x19\x01" || domainSeparator || hashStruct(message)).
func HashTypedData(typedData apitypes.TypedData) ([]byte, error) {
	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	rawData := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(messageHash)))
	return crypto.Keccak256Hash(rawData).Bytes(), nil
}

// SignPlan signs plan with signer's key.
func (e *TypedDataSigner) SignPlan(signer *Signer, plan *PlanMessage) ([]byte, error) {
	hash, err := e.HashPlan(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to hash plan: %w", err)
	}
	return signer.Sign(hash)
}

// SignTransfer signs msg with signer's key.
func (e *TypedDataSigner) SignTransfer(signer *Signer, msg *TransferMessage) ([]byte, error) {
	hash, err := e.HashTransfer(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to hash transfer: %w", err)
	}
	return signer.Sign(hash)
}

// VerifyPlanSignature reports whether signature was made by plan.Owner.
func (e *TypedDataSigner) VerifyPlanSignature(plan *PlanMessage, signature []byte) (bool, error) {
	hash, err := e.HashPlan(plan)
	if err != nil {
		return false, fmt.Errorf("failed to hash plan: %w", err)
	}
	recovered, err := RecoverAddress(hash, signature)
	if err != nil {
		return false, fmt.Errorf("failed to recover address: %w", err)
	}
	return recovered == plan.Owner, nil
}

// VerifyTransferSignature reports whether signature was made by msg.Owner.
func (e *TypedDataSigner) VerifyTransferSignature(msg *TransferMessage, signature []byte) (bool, error) {
	hash, err := e.HashTransfer(msg)
	if err != nil {
		return false, fmt.Errorf("failed to hash transfer: %w", err)
	}
	recovered, err := RecoverAddress(hash, signature)
	if err != nil {
		return false, fmt.Errorf("failed to recover address: %w", err)
	}
	return recovered == msg.Owner, nil
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
