package transaction

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/perpdesk/pkg/app/core/orderplan"
	"github.com/uhyunpark/perpdesk/pkg/crypto"
	"github.com/uhyunpark/perpdesk/pkg/errors"
)

// TxType is the kind of signed payload.
type TxType string

const (
	TxTypePlan     TxType = "plan"     // order plan (entry, brackets or ladder)
	TxTypeTransfer TxType = "transfer" // deposit or withdrawal
)

// SignedTransaction is a wallet-signed payload ready for broadcast.
type SignedTransaction struct {
	Type      TxType           `json:"type"`
	Plan      *PlanPayload     `json:"plan,omitempty"`
	Transfer  *TransferPayload `json:"transfer,omitempty"`
	Signature string           `json:"signature"` // hex, 0x-prefixed or not
}

// PlanPayload is the wire form of crypto.PlanMessage.
type PlanPayload struct {
	Owner        string                `json:"owner"`
	SubAccountID uint16                `json:"subAccountId"`
	Nonce        string                `json:"nonce"`    // decimal big int
	Deadline     string                `json:"deadline"` // unix seconds, "0" = no expiry
	Orders       []orderplan.OrderSpec `json:"orders"`
}

// TransferPayload is the wire form of crypto.TransferMessage.
type TransferPayload struct {
	Owner    string                 `json:"owner"`
	Transfer orderplan.TransferSpec `json:"transfer"`
	Nonce    string                 `json:"nonce"`
	Deadline string                 `json:"deadline"`
}

// ToMessage converts the payload for hashing and verification.
func (p *PlanPayload) ToMessage() (*crypto.PlanMessage, error) {
	nonce, deadline, err := parseNonceDeadline(p.Nonce, p.Deadline)
	if err != nil {
		return nil, err
	}
	return &crypto.PlanMessage{
		Owner:        common.HexToAddress(p.Owner),
		SubAccountID: p.SubAccountID,
		Nonce:        nonce,
		Deadline:     deadline,
		Orders:       p.Orders,
	}, nil
}

// FromPlanMessage is the inverse of ToMessage.
func FromPlanMessage(m *crypto.PlanMessage) *PlanPayload {
	return &PlanPayload{
		Owner:        m.Owner.Hex(),
		SubAccountID: m.SubAccountID,
		Nonce:        bigString(m.Nonce),
		Deadline:     bigString(m.Deadline),
		Orders:       m.Orders,
	}
}

func (p *TransferPayload) ToMessage() (*crypto.TransferMessage, error) {
	nonce, deadline, err := parseNonceDeadline(p.Nonce, p.Deadline)
	if err != nil {
		return nil, err
	}
	return &crypto.TransferMessage{
		Owner:    common.HexToAddress(p.Owner),
		Transfer: p.Transfer,
		Nonce:    nonce,
		Deadline: deadline,
	}, nil
}

func FromTransferMessage(m *crypto.TransferMessage) *TransferPayload {
	return &TransferPayload{
		Owner:    m.Owner.Hex(),
		Transfer: m.Transfer,
		Nonce:    bigString(m.Nonce),
		Deadline: bigString(m.Deadline),
	}
}

func parseNonceDeadline(nonceStr, deadlineStr string) (*big.Int, *big.Int, error) {
	nonce, ok := new(big.Int).SetString(nonceStr, 10)
	if !ok || nonce.Sign() < 0 {
		return nil, nil, errors.Newf(errors.ErrCodeInvalidRequest, "invalid nonce: %q", nonceStr)
	}
	if deadlineStr == "" {
		deadlineStr = "0"
	}
	deadline, ok := new(big.Int).SetString(deadlineStr, 10)
	if !ok || deadline.Sign() < 0 {
		return nil, nil, errors.Newf(errors.ErrCodeInvalidRequest, "invalid deadline: %q", deadlineStr)
	}
	return nonce, deadline, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// Owner returns the claimed signer of the payload, or "" if none.
func (tx *SignedTransaction) Owner() string {
	switch {
	case tx.Plan != nil:
		return tx.Plan.Owner
	case tx.Transfer != nil:
		return tx.Transfer.Owner
	default:
		return ""
	}
}

func (tx *SignedTransaction) Serialize() ([]byte, error) {
	return json.Marshal(tx)
}

func Deserialize(data []byte) (*SignedTransaction, error) {
	var tx SignedTransaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	return &tx, nil
}

// Validate checks the structure of tx. It does not check the signature.
func (tx *SignedTransaction) Validate() error {
	if tx.Signature == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "missing signature")
	}

	switch tx.Type {
	case TxTypePlan:
		if tx.Plan == nil {
			return errors.New(errors.ErrCodeInvalidRequest, "plan transaction requires plan payload")
		}
		if !common.IsHexAddress(tx.Plan.Owner) {
			return errors.Newf(errors.ErrCodeInvalidRequest, "invalid plan owner %q", tx.Plan.Owner)
		}
		if len(tx.Plan.Orders) == 0 {
			return errors.New(errors.ErrCodeInvalidRequest, "plan has no orders")
		}
		for i, o := range tx.Plan.Orders {
			if err := o.Validate(); err != nil {
				return errors.Wrapf(errors.GetCode(err), err, "order %d", i)
			}
		}

	case TxTypeTransfer:
		if tx.Transfer == nil {
			return errors.New(errors.ErrCodeInvalidRequest, "transfer transaction requires transfer payload")
		}
		if !common.IsHexAddress(tx.Transfer.Owner) {
			return errors.Newf(errors.ErrCodeInvalidRequest, "invalid transfer owner %q", tx.Transfer.Owner)
		}
		if tx.Transfer.Transfer.Amount <= 0 {
			return errors.New(errors.ErrCodeInvalidAmount, "transfer amount must be positive")
		}

	case "":
		return errors.New(errors.ErrCodeInvalidRequest, "missing transaction type")
	default:
		return errors.Newf(errors.ErrCodeInvalidRequest, "unknown transaction type: %s", tx.Type)
	}

	return nil
}

// ParseTransaction decodes and structurally validates a signed transaction.
func ParseTransaction(data []byte) (*SignedTransaction, error) {
	tx, err := Deserialize(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "failed to parse transaction", err)
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}
