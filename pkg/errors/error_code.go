package errors

// ErrorCode identifies a class of failure.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Order validation errors (100-199)
	ErrCodeInvalidSize         ErrorCode = 100
	ErrCodeInvalidSide         ErrorCode = 101
	ErrCodeMissingLimitPrice   ErrorCode = 102
	ErrCodeMissingTriggerPrice ErrorCode = 103
	ErrCodeInvalidLadderRange  ErrorCode = 104
	ErrCodeInvalidOrderKind    ErrorCode = 105
	ErrCodeInvalidAmount       ErrorCode = 106

	// Lookup errors (200-299)
	ErrCodeMarketNotFound  ErrorCode = 200
	ErrCodeInvalidMarket   ErrorCode = 201
	ErrCodeAccountNotFound ErrorCode = 202

	// Request / transport errors (300-399)
	ErrCodeInvalidRequest      ErrorCode = 300
	ErrCodeInvalidSignature    ErrorCode = 301
	ErrCodeUpstreamUnavailable ErrorCode = 302
	ErrCodeDuplicateTx         ErrorCode = 303
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:             "Unknown",
	ErrCodeInvalidSize:         "InvalidSize",
	ErrCodeInvalidSide:         "InvalidSide",
	ErrCodeMissingLimitPrice:   "MissingLimitPrice",
	ErrCodeMissingTriggerPrice: "MissingTriggerPrice",
	ErrCodeInvalidLadderRange:  "InvalidLadderRange",
	ErrCodeInvalidOrderKind:    "InvalidOrderKind",
	ErrCodeInvalidAmount:       "InvalidAmount",
	ErrCodeMarketNotFound:      "MarketNotFound",
	ErrCodeInvalidMarket:       "InvalidMarket",
	ErrCodeAccountNotFound:     "AccountNotFound",
	ErrCodeInvalidRequest:      "InvalidRequest",
	ErrCodeInvalidSignature:    "InvalidSignature",
	ErrCodeUpstreamUnavailable: "UpstreamUnavailable",
	ErrCodeDuplicateTx:         "DuplicateTransaction",
}

// String returns the taxonomy name used on the wire, e.g. "InvalidSize".
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "Unknown"
}
