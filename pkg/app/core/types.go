// Package core holds the trading vocabulary shared by order planning and
// account projection: sides, order kinds, trigger conditions and market kinds.
package core

import (
	"encoding/json"
	"fmt"
)

// Side is the direction of an order or position.
type Side int8

const (
	SideUnknown Side = iota
	Long
	Short
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the closing side. Unknown stays unknown.
func (s Side) Opposite() Side {
	switch s {
	case Long:
		return Short
	case Short:
		return Long
	default:
		return SideUnknown
	}
}

// Valid reports whether s is LONG or SHORT.
func (s Side) Valid() bool {
	return s == Long || s == Short
}

// ParseSide maps "LONG"/"SHORT" to a Side. Anything else is SideUnknown.
func ParseSide(v string) Side {
	switch v {
	case "LONG":
		return Long
	case "SHORT":
		return Short
	default:
		return SideUnknown
	}
}

func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Side) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("side: %w", err)
	}
	*s = ParseSide(v)
	return nil
}

// OrderKind is the execution style of an order.
type OrderKind int8

const (
	KindUnknown OrderKind = iota
	Market
	Limit
	TriggerMarket
	TriggerLimit
	Oracle
)

var orderKindNames = map[OrderKind]string{
	KindUnknown:   "UNKNOWN",
	Market:        "MARKET",
	Limit:         "LIMIT",
	TriggerMarket: "TRIGGER_MARKET",
	TriggerLimit:  "TRIGGER_LIMIT",
	Oracle:        "ORACLE",
}

func (k OrderKind) String() string {
	if name, ok := orderKindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsTrigger reports whether the kind rests until a trigger price is crossed.
func (k OrderKind) IsTrigger() bool {
	return k == TriggerMarket || k == TriggerLimit
}

// NeedsLimitPrice reports whether the kind carries a limit price.
func (k OrderKind) NeedsLimitPrice() bool {
	return k == Limit || k == TriggerLimit
}

// ParseOrderKind maps the wire name to an OrderKind.
func ParseOrderKind(v string) OrderKind {
	for k, name := range orderKindNames {
		if name == v {
			return k
		}
	}
	return KindUnknown
}

func (k OrderKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *OrderKind) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("order kind: %w", err)
	}
	*k = ParseOrderKind(v)
	return nil
}

// TriggerCondition says which way the price must cross the trigger.
type TriggerCondition int8

const (
	Above TriggerCondition = iota
	Below
)

func (c TriggerCondition) String() string {
	if c == Below {
		return "BELOW"
	}
	return "ABOVE"
}

func (c TriggerCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *TriggerCondition) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("trigger condition: %w", err)
	}
	switch v {
	case "ABOVE":
		*c = Above
	case "BELOW":
		*c = Below
	default:
		return fmt.Errorf("unsupported trigger condition: %s", v)
	}
	return nil
}

// MarketKind separates spot markets (token balances) from perpetuals.
type MarketKind int8

const (
	Perp MarketKind = iota
	Spot
)

func (mk MarketKind) String() string {
	if mk == Spot {
		return "SPOT"
	}
	return "PERP"
}

// ParseMarketKind maps "SPOT"/"PERP" (either case) to a MarketKind.
func ParseMarketKind(v string) (MarketKind, error) {
	switch v {
	case "SPOT", "spot":
		return Spot, nil
	case "PERP", "perp":
		return Perp, nil
	default:
		return Perp, fmt.Errorf("unsupported market kind: %s", v)
	}
}

func (mk MarketKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(mk.String())
}

func (mk *MarketKind) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("market kind: %w", err)
	}
	parsed, err := ParseMarketKind(v)
	if err != nil {
		return err
	}
	*mk = parsed
	return nil
}

// UnmarshalYAML lets market tables spell the kind as a plain string.
func (mk *MarketKind) UnmarshalYAML(unmarshal func(any) error) error {
	var v string
	if err := unmarshal(&v); err != nil {
		return err
	}
	parsed, err := ParseMarketKind(v)
	if err != nil {
		return err
	}
	*mk = parsed
	return nil
}
