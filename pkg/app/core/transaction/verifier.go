package transaction

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/perpdesk/pkg/crypto"
	"github.com/uhyunpark/perpdesk/pkg/errors"
	"github.com/uhyunpark/perpdesk/pkg/util"
)

// Verifier checks that a signed transaction was signed by its claimed owner
// under the configured EIP-712 domain and has not expired.
type Verifier struct {
	signer *crypto.TypedDataSigner
	clock  util.Clock
}

func NewVerifier(domain crypto.Domain, clock util.Clock) *Verifier {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Verifier{
		signer: crypto.NewTypedDataSigner(domain),
		clock:  clock,
	}
}

// Verify validates tx and returns the owner whose signature it carries.
func (v *Verifier) Verify(tx *SignedTransaction) (common.Address, error) {
	if err := tx.Validate(); err != nil {
		return common.Address{}, err
	}

	sig, err := decodeSignature(tx.Signature)
	if err != nil {
		return common.Address{}, err
	}

	switch tx.Type {
	case TxTypePlan:
		return v.verifyPlan(tx.Plan, sig)
	case TxTypeTransfer:
		return v.verifyTransfer(tx.Transfer, sig)
	default:
		return common.Address{}, errors.Newf(errors.ErrCodeInvalidRequest, "unsupported transaction type: %s", tx.Type)
	}
}

func (v *Verifier) verifyPlan(p *PlanPayload, sig []byte) (common.Address, error) {
	msg, err := p.ToMessage()
	if err != nil {
		return common.Address{}, err
	}
	if err := v.checkDeadline(msg.Deadline); err != nil {
		return common.Address{}, err
	}

	valid, err := v.signer.VerifyPlanSignature(msg, sig)
	if err != nil {
		return common.Address{}, errors.Wrap(errors.ErrCodeInvalidSignature, "plan signature verification failed", err)
	}
	if !valid {
		return common.Address{}, errors.New(errors.ErrCodeInvalidSignature, "plan not signed by owner")
	}
	return msg.Owner, nil
}

func (v *Verifier) verifyTransfer(p *TransferPayload, sig []byte) (common.Address, error) {
	msg, err := p.ToMessage()
	if err != nil {
		return common.Address{}, err
	}
	if err := v.checkDeadline(msg.Deadline); err != nil {
		return common.Address{}, err
	}

	valid, err := v.signer.VerifyTransferSignature(msg, sig)
	if err != nil {
		return common.Address{}, errors.Wrap(errors.ErrCodeInvalidSignature, "transfer signature verification failed", err)
	}
	if !valid {
		return common.Address{}, errors.New(errors.ErrCodeInvalidSignature, "transfer not signed by owner")
	}
	return msg.Owner, nil
}

func (v *Verifier) checkDeadline(deadline *big.Int) error {
	if deadline == nil || deadline.Sign() == 0 {
		return nil
	}
	now := big.NewInt(v.clock.Now().Unix())
	if deadline.Cmp(now) < 0 {
		return errors.Newf(errors.ErrCodeInvalidRequest, "transaction expired at %s", deadline.String())
	}
	return nil
}

// decodeSignature decodes a 65-byte hex signature, with or without 0x.
func decodeSignature(sig string) ([]byte, error) {
	sig = strings.TrimPrefix(sig, "0x")

	sigBytes, err := hex.DecodeString(sig)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSignature, "invalid hex signature", err)
	}
	if len(sigBytes) != 65 {
		return nil, errors.Newf(errors.ErrCodeInvalidSignature, "signature must be 65 bytes, got %d", len(sigBytes))
	}
	return sigBytes, nil
}
