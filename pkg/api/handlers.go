package api

import (
	"encoding/hex"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/perpdesk/pkg/app/core"
	"github.com/uhyunpark/perpdesk/pkg/app/core/market"
	"github.com/uhyunpark/perpdesk/pkg/app/core/mempool"
	"github.com/uhyunpark/perpdesk/pkg/app/core/orderplan"
	"github.com/uhyunpark/perpdesk/pkg/app/core/projector"
	"github.com/uhyunpark/perpdesk/pkg/app/core/transaction"
	"github.com/uhyunpark/perpdesk/pkg/crypto"
	"github.com/uhyunpark/perpdesk/pkg/errors"
)

const maxBodyBytes = 1 << 20

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetMarkets(w http.ResponseWriter, r *http.Request) {
	markets := s.markets.List()
	if markets == nil {
		markets = []market.MarketRef{}
	}
	respondJSON(w, markets)
}

func (s *Server) handlePlanOrder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req PlaceOrderRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	intent, err := req.toIntent()
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	m, ok := s.markets.Perp(intent.MarketIndex)
	if !ok {
		s.respondErr(w, r, errors.Newf(errors.ErrCodeMarketNotFound, "no perp market with index %d", intent.MarketIndex))
		return
	}

	specs, err := orderplan.BuildOrderSpecs(intent, m, s.planOpts...)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	nonce, err := resolveNonce(req.Nonce)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	msg := &crypto.PlanMessage{
		Owner:        common.HexToAddress(req.WalletAddress),
		SubAccountID: req.SubAccountID,
		Nonce:        nonce,
		Deadline:     big.NewInt(req.Deadline),
		Orders:       specs,
	}
	digest, err := s.typed.HashPlan(msg)
	if err != nil {
		s.respondErr(w, r, errors.Wrap(errors.ErrCodeUnknown, "hash plan", err))
		return
	}

	s.logger.Infow("order_plan_built",
		"request_id", w.Header().Get("X-Request-ID"),
		"wallet", msg.Owner.Hex(),
		"market", m.Symbol,
		"legs", len(specs),
		"base_amount", orderplan.TotalBaseAmount(specs),
	)

	respondJSON(w, PlanResponse{
		Orders:    specs,
		TypedData: s.typed.PlanTypedData(msg),
		Digest:    "0x" + hex.EncodeToString(digest),
		Nonce:     nonce.String(),
	})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	kind := orderplan.Deposit
	if mux.Vars(r)["kind"] == "withdraw" {
		kind = orderplan.Withdraw
	}

	var req TransferRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		s.respondErr(w, r, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid amount", err))
		return
	}

	m, ok := s.markets.Spot(*req.MarketIndex)
	if !ok {
		s.respondErr(w, r, errors.Newf(errors.ErrCodeMarketNotFound, "no spot market with index %d", *req.MarketIndex))
		return
	}

	spec, err := orderplan.BuildTransfer(kind, amount, req.SubAccountID, m)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	nonce, err := resolveNonce(req.Nonce)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	msg := &crypto.TransferMessage{
		Owner:    common.HexToAddress(req.WalletAddress),
		Transfer: spec,
		Nonce:    nonce,
		Deadline: big.NewInt(req.Deadline),
	}
	digest, err := s.typed.HashTransfer(msg)
	if err != nil {
		s.respondErr(w, r, errors.Wrap(errors.ErrCodeUnknown, "hash transfer", err))
		return
	}

	s.logger.Infow("transfer_built",
		"request_id", w.Header().Get("X-Request-ID"),
		"wallet", msg.Owner.Hex(),
		"kind", kind,
		"market", m.Symbol,
		"amount", spec.Amount,
	)

	respondJSON(w, TransferResponse{
		Transfer:  spec,
		TypedData: s.typed.TransferTypedData(msg),
		Digest:    "0x" + hex.EncodeToString(digest),
		Nonce:     nonce.String(),
	})
}

func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.respondErr(w, r, errors.Wrap(errors.ErrCodeInvalidRequest, "failed to read body", err))
		return
	}

	tx, err := transaction.ParseTransaction(body)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	owner, err := s.verifier.Verify(tx)
	if err != nil {
		s.logger.Warnw("tx_signature_rejected",
			"request_id", w.Header().Get("X-Request-ID"),
			"type", tx.Type,
			"claimed_owner", tx.Owner(),
			"err", err,
		)
		s.respondErr(w, r, err)
		return
	}

	key := mempool.KeyOf(tx, owner)
	if !s.pending.Admit(key) {
		s.respondErr(w, r, errors.Newf(errors.ErrCodeDuplicateTx,
			"%s nonce %s from %s is already being broadcast", tx.Type, key.Nonce, owner.Hex()))
		return
	}
	result, err := s.broadcaster.Broadcast(r.Context(), tx)
	inFlight := s.pending.Release(key)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	resp := TransactionResponse{Status: result.Status(), TxID: result.TxID()}
	status := http.StatusOK
	switch res := result.(type) {
	case transaction.Ok:
	case transaction.Failed:
		resp.Reason = res.Reason
		status = http.StatusBadGateway
	case transaction.TimedOut:
		resp.Reason = "no confirmation after " + res.After.Round(time.Millisecond).String()
		status = http.StatusGatewayTimeout
	}

	s.logger.Infow("tx_broadcast",
		"request_id", w.Header().Get("X-Request-ID"),
		"type", tx.Type,
		"owner", owner.Hex(),
		"tx_id", resp.TxID,
		"status", resp.Status,
		"in_flight_ms", inFlight.Milliseconds(),
		"ws_subscribers", s.hub.Subscribers(accountChannel(owner)),
	)

	s.hub.BroadcastToChannel(accountChannel(owner), TransactionUpdate{
		Type:   "transaction",
		TxType: string(tx.Type),
		TxID:   resp.TxID,
		Status: resp.Status,
		Reason: resp.Reason,
	})

	respondJSONStatus(w, status, resp)
}

func (s *Server) handleGetSubaccounts(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]

	users, err := s.state.Subaccounts(r.Context(), wallet)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondJSON(w, SubaccountsResponse{Subaccounts: projector.ProjectSubaccounts(users)})
}

func (s *Server) handleGetSubaccount(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	raw, err := s.state.AccountState(r.Context(), address)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	respondJSON(w, projector.ProjectAccount(raw, s.markets))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, HealthResponse{
		Status:  "ok",
		Markets: s.markets.Count(),
		Pending: s.pending.Len(),

		PendingByType: pendingByType(s.pending.Counts()),
		Time:          s.clock.Now().UTC().Format(time.RFC3339),
	})
}

// ==============================
// Request conversion
// ==============================

// toIntent converts the validated request into a TradeIntent. An empty
// orderType means MARKET; anything unrecognised is left for the builder to
// reject.
func (req *PlaceOrderRequest) toIntent() (orderplan.TradeIntent, error) {
	size, err := parseDecimal("size", req.Size)
	if err != nil {
		return orderplan.TradeIntent{}, err
	}

	kind := core.Market
	if req.OrderType != "" {
		kind = core.ParseOrderKind(req.OrderType)
	}

	intent := orderplan.TradeIntent{
		MarketIndex: *req.MarketIndex,
		Side:        core.ParseSide(req.Direction),
		Size:        size,
		Kind:        kind,
	}

	if intent.Price, err = parseOptional("price", req.Price); err != nil {
		return orderplan.TradeIntent{}, err
	}
	if intent.TriggerPrice, err = parseOptional("triggerPrice", req.TriggerPrice); err != nil {
		return orderplan.TradeIntent{}, err
	}
	if intent.TakeProfitPrice, err = parseOptional("takeProfitPrice", req.TakeProfitPrice); err != nil {
		return orderplan.TradeIntent{}, err
	}
	if intent.StopLossPrice, err = parseOptional("stopLossPrice", req.StopLossPrice); err != nil {
		return orderplan.TradeIntent{}, err
	}

	if req.IsScaledOrder {
		lo, err := parseDecimalOrZero("scaledOrderMinPrice", req.ScaledOrderMinPrice)
		if err != nil {
			return orderplan.TradeIntent{}, err
		}
		hi, err := parseDecimalOrZero("scaledOrderMaxPrice", req.ScaledOrderMaxPrice)
		if err != nil {
			return orderplan.TradeIntent{}, err
		}
		intent.Ladder = optional.Some(orderplan.Ladder{
			Legs:     req.ScaledOrderCount,
			MinPrice: lo,
			MaxPrice: hi,
		})
	}

	return intent, nil
}

func parseDecimal(field, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(errors.ErrCodeInvalidRequest, err, "invalid %s %q", field, v)
	}
	return d, nil
}

func parseDecimalOrZero(field, v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	return parseDecimal(field, v)
}

func parseOptional(field, v string) (optional.Option[decimal.Decimal], error) {
	if v == "" {
		return optional.None[decimal.Decimal](), nil
	}
	d, err := parseDecimal(field, v)
	if err != nil {
		return nil, err
	}
	return optional.Some(d), nil
}

// resolveNonce parses a client nonce or draws a random one.
func resolveNonce(v string) (*big.Int, error) {
	if v != "" {
		n, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidRequest, "invalid nonce %q", v)
		}
		return n, nil
	}
	n, err := crypto.GenerateNonce()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnknown, "generate nonce", err)
	}
	return new(big.Int).SetUint64(n), nil
}

func pendingByType(counts map[transaction.TxType]int) map[string]int {
	out := make(map[string]int, len(counts))
	for t, n := range counts {
		out[string(t)] = n
	}
	return out
}

func accountChannel(owner common.Address) string {
	return "account:" + owner.Hex()
}
