package projector

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Variant is an enum value as the ledger encodes it: a single-key object
// such as {"triggerMarket":{}} or the bare tag "triggerMarket". Callers
// dispatch on the tag name with Is; the ledger's numeric discriminants are
// never consulted.
type Variant struct {
	tag string
}

// NewVariant returns the variant with the given tag.
func NewVariant(tag string) Variant {
	return Variant{tag: tag}
}

// Tag returns the variant name, or "" when none was decoded.
func (v Variant) Tag() string { return v.tag }

// Is reports whether v is the named variant.
func (v Variant) Is(name string) bool {
	return v.tag != "" && v.tag == name
}

func (v Variant) MarshalJSON() ([]byte, error) {
	if v.tag == "" {
		return []byte("null"), nil
	}
	return json.Marshal(map[string]struct{}{v.tag: {}})
}

func (v *Variant) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		v.tag = ""
		return nil
	}

	if data[0] == '"' {
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return fmt.Errorf("variant: %w", err)
		}
		v.tag = tag
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("variant: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("variant: expected exactly one tag, got %d", len(obj))
	}
	for tag := range obj {
		v.tag = tag
	}
	return nil
}
