package ledger

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/uhyunpark/perpdesk/pkg/app/core/transaction"
	"github.com/uhyunpark/perpdesk/pkg/errors"
	"github.com/uhyunpark/perpdesk/pkg/util"
)

const (
	statusPending   = "pending"
	statusConfirmed = "confirmed"
	statusFailed    = "failed"
)

type submitResponse struct {
	TxID string `json:"txId"`
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

var errPending = stderrors.New("transaction pending")

// txFailure ends polling with the node's failure reason.
type txFailure struct {
	reason string
}

func (f *txFailure) Error() string { return f.reason }

// Broadcaster submits signed transactions and waits for their confirmation.
type Broadcaster struct {
	http           *resty.Client
	logger         *zap.SugaredLogger
	clock          util.Clock
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

func NewBroadcaster(cfg Config, logger *zap.SugaredLogger, clock util.Clock) *Broadcaster {
	if clock == nil {
		clock = util.RealClock{}
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &Broadcaster{
		http:           newRestClient(cfg),
		logger:         logger,
		clock:          clock,
		confirmTimeout: cfg.ConfirmTimeout,
		pollInterval:   poll,
	}
}

// Broadcast submits tx and polls until it is confirmed, fails, or the
// confirmation timeout passes. A non-nil error means the node could not be
// reached or the caller's context was cancelled; every other outcome is a
// BroadcastResult.
func (b *Broadcaster) Broadcast(ctx context.Context, tx *transaction.SignedTransaction) (transaction.BroadcastResult, error) {
	start := b.clock.Now()

	var submitted submitResponse
	resp, err := b.http.R().
		SetContext(ctx).
		SetBody(tx).
		SetResult(&submitted).
		SetError(&nodeError{}).
		Post("/v1/transactions")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUpstreamUnavailable, "submit transaction", err)
	}
	if resp.IsError() {
		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, errors.Newf(errors.ErrCodeUpstreamUnavailable, "submit transaction: %s", resp.Status())
		}
		reason := resp.Status()
		if ne, ok := resp.Error().(*nodeError); ok && ne.Error != "" {
			reason = ne.Error
		}
		b.logger.Warnw("tx_rejected", "type", tx.Type, "owner", tx.Owner(), "reason", reason)
		return transaction.Failed{Reason: reason}, nil
	}

	txID := submitted.TxID
	b.logger.Infow("tx_submitted", "tx_id", txID, "type", tx.Type, "owner", tx.Owner())

	err = b.waitConfirmed(ctx, txID)

	var failure *txFailure
	switch {
	case err == nil:
		b.logger.Infow("tx_confirmed", "tx_id", txID, "elapsed", b.clock.Now().Sub(start))
		return transaction.Ok{ID: txID}, nil
	case stderrors.As(err, &failure):
		b.logger.Warnw("tx_failed", "tx_id", txID, "reason", failure.reason)
		return transaction.Failed{ID: txID, Reason: failure.reason}, nil
	case stderrors.Is(ctx.Err(), context.Canceled):
		return nil, ctx.Err()
	default:
		elapsed := b.clock.Now().Sub(start)
		b.logger.Warnw("tx_confirm_timeout", "tx_id", txID, "elapsed", elapsed, "last_error", err)
		return transaction.TimedOut{ID: txID, After: elapsed}, nil
	}
}

func (b *Broadcaster) waitConfirmed(ctx context.Context, txID string) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = b.pollInterval
	policy.MaxInterval = 8 * b.pollInterval
	policy.MaxElapsedTime = b.confirmTimeout

	var cancel context.CancelFunc = func() {}
	if b.confirmTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, b.confirmTimeout)
	}
	defer cancel()

	op := func() error {
		var status statusResponse
		resp, err := b.http.R().
			SetContext(ctx).
			SetPathParam("id", txID).
			SetResult(&status).
			Get("/v1/transactions/{id}")
		if err != nil {
			return err
		}
		if resp.IsError() {
			if resp.StatusCode() == http.StatusNotFound {
				// not indexed yet
				return errPending
			}
			return errors.Newf(errors.ErrCodeUpstreamUnavailable, "status %s: %s", txID, resp.Status())
		}

		switch status.Status {
		case statusConfirmed:
			return nil
		case statusFailed:
			reason := status.Error
			if reason == "" {
				reason = "transaction failed"
			}
			return backoff.Permanent(&txFailure{reason: reason})
		case statusPending:
			return errPending
		default:
			return errors.Newf(errors.ErrCodeUpstreamUnavailable, "unexpected status %q for %s", status.Status, txID)
		}
	}

	return backoff.Retry(op, backoff.WithContext(policy, ctx))
}
