package api

import (
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/uhyunpark/perpdesk/pkg/app/core/orderplan"
	"github.com/uhyunpark/perpdesk/pkg/app/core/projector"
)

// API request and response types for REST endpoints and WebSocket messages.
// Decimal inputs travel as strings so no precision is lost in JSON.

// ==============================
// REST Request Types
// ==============================

// PlaceOrderRequest is the payload for POST /api/v1/orders/plan
type PlaceOrderRequest struct {
	WalletAddress string  `json:"walletAddress" validate:"required,eth_addr"`
	SubAccountID  uint16  `json:"subAccountId"`
	MarketIndex   *uint16 `json:"marketIndex" validate:"required"`
	Size          string  `json:"size" validate:"required,numeric"`
	Direction     string  `json:"direction" validate:"required"` // LONG or SHORT, checked by the plan builder
	OrderType     string  `json:"orderType"`                     // empty = MARKET
	Price         string  `json:"price,omitempty" validate:"omitempty,numeric"`
	TriggerPrice  string  `json:"triggerPrice,omitempty" validate:"omitempty,numeric"`

	TakeProfitPrice string `json:"takeProfitPrice,omitempty" validate:"omitempty,numeric"`
	StopLossPrice   string `json:"stopLossPrice,omitempty" validate:"omitempty,numeric"`

	// Scaled (ladder) order
	IsScaledOrder       bool   `json:"isScaledOrder"`
	ScaledOrderCount    int    `json:"scaledOrderCount"` // 2..orderplan.MaxLadderLegs
	ScaledOrderMinPrice string `json:"scaledOrderMinPrice,omitempty" validate:"omitempty,numeric"`
	ScaledOrderMaxPrice string `json:"scaledOrderMaxPrice,omitempty" validate:"omitempty,numeric"`

	Nonce    string `json:"nonce,omitempty" validate:"omitempty,number"` // random if empty
	Deadline int64  `json:"deadline,omitempty" validate:"gte=0"`         // unix seconds, 0 = none
}

// TransferRequest is the payload for POST /api/v1/transfers/{deposit,withdraw}
type TransferRequest struct {
	WalletAddress string  `json:"walletAddress" validate:"required,eth_addr"`
	SubAccountID  uint16  `json:"subAccountId"`
	MarketIndex   *uint16 `json:"marketIndex" validate:"required"`
	Amount        string  `json:"amount" validate:"required,numeric"`
	Nonce         string  `json:"nonce,omitempty" validate:"omitempty,number"`
	Deadline      int64   `json:"deadline,omitempty" validate:"gte=0"`
}

// NOTE: POST /api/v1/transactions takes a transaction.SignedTransaction as is.

// ==============================
// REST Response Types
// ==============================

// PlanResponse carries the order plan and the EIP-712 payload the wallet
// must sign to authorize it.
type PlanResponse struct {
	Orders    []orderplan.OrderSpec `json:"orders"`
	TypedData apitypes.TypedData    `json:"typedData"`
	Digest    string                `json:"digest"` // 0x-prefixed keccak256
	Nonce     string                `json:"nonce"`
}

type TransferResponse struct {
	Transfer  orderplan.TransferSpec `json:"transfer"`
	TypedData apitypes.TypedData     `json:"typedData"`
	Digest    string                 `json:"digest"`
	Nonce     string                 `json:"nonce"`
}

// TransactionResponse reports a broadcast outcome.
type TransactionResponse struct {
	Status string `json:"status"` // "ok" | "failed" | "timed_out"
	TxID   string `json:"txId,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type SubaccountsResponse struct {
	Subaccounts []projector.SubaccountRecord `json:"subaccounts"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Markets int    `json:"markets"`
	Pending int    `json:"pending"` // transactions awaiting confirmation

	PendingByType map[string]int `json:"pendingByType"`
	Time          string         `json:"time"`
}

// ErrorResponse is returned for all errors. Error is the error code name,
// e.g. "InvalidSize"; Message is human readable.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g. ["account:0x..."]
}

// TransactionUpdate is pushed on account:{wallet} when a broadcast settles.
type TransactionUpdate struct {
	Type   string `json:"type"` // "transaction"
	TxType string `json:"txType"`
	TxID   string `json:"txId,omitempty"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}
