package market

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/uhyunpark/perpdesk/pkg/app/core"
)

// MarketRef is the read-only reference data for one market.
// Decimals is the token precision for spot markets; perp base amounts always
// use BasePrecisionDecimals regardless of this field.
type MarketRef struct {
	Index    uint16          `json:"marketIndex" yaml:"index"`
	Symbol   string          `json:"symbol" yaml:"symbol"`
	Decimals int32           `json:"decimals" yaml:"decimals"`
	Kind     core.MarketKind `json:"kind" yaml:"kind"`
}

// Reference resolves market index to reference data. Spot and perp indices
// are separate namespaces, so the kind is part of the key.
type Reference interface {
	Lookup(kind core.MarketKind, index uint16) (MarketRef, bool)
}

type marketKey struct {
	kind  core.MarketKind
	index uint16
}

// Registry is an immutable market reference table. It is built once and
// never mutated, so concurrent readers need no locking.
type Registry struct {
	markets map[marketKey]MarketRef
}

var _ Reference = (*Registry)(nil)

// NewRegistry builds a registry from refs.
// Returns error on duplicate (kind, index) pairs or invalid entries.
func NewRegistry(refs ...MarketRef) (*Registry, error) {
	r := &Registry{markets: make(map[marketKey]MarketRef, len(refs))}
	for _, ref := range refs {
		if ref.Symbol == "" {
			return nil, fmt.Errorf("market %s-%d has no symbol", ref.Kind, ref.Index)
		}
		if ref.Decimals < 0 || ref.Decimals > 18 {
			return nil, fmt.Errorf("market %s has invalid decimals %d", ref.Symbol, ref.Decimals)
		}
		key := marketKey{kind: ref.Kind, index: ref.Index}
		if existing, exists := r.markets[key]; exists {
			return nil, fmt.Errorf("market %s-%d already registered as %s", ref.Kind, ref.Index, existing.Symbol)
		}
		r.markets[key] = ref
	}
	return r, nil
}

// Lookup returns the reference for (kind, index).
func (r *Registry) Lookup(kind core.MarketKind, index uint16) (MarketRef, bool) {
	ref, ok := r.markets[marketKey{kind: kind, index: index}]
	return ref, ok
}

// Spot is shorthand for Lookup(core.Spot, index).
func (r *Registry) Spot(index uint16) (MarketRef, bool) {
	return r.Lookup(core.Spot, index)
}

// Perp is shorthand for Lookup(core.Perp, index).
func (r *Registry) Perp(index uint16) (MarketRef, bool) {
	return r.Lookup(core.Perp, index)
}

// List returns every market sorted by kind then index, so output is stable.
func (r *Registry) List() []MarketRef {
	out := make([]MarketRef, 0, len(r.markets))
	for _, ref := range r.markets {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Count returns the number of registered markets.
func (r *Registry) Count() int {
	return len(r.markets)
}

// table is the on-disk layout of a market reference file.
type table struct {
	Spot []MarketRef `yaml:"spot"`
	Perp []MarketRef `yaml:"perp"`
}

// ParseYAML builds a registry from a YAML document with `spot:` and `perp:`
// lists. The section decides the kind; any `kind:` field inside is overridden.
func ParseYAML(data []byte) (*Registry, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse market table: %w", err)
	}

	refs := make([]MarketRef, 0, len(t.Spot)+len(t.Perp))
	for _, ref := range t.Spot {
		ref.Kind = core.Spot
		refs = append(refs, ref)
	}
	for _, ref := range t.Perp {
		ref.Kind = core.Perp
		if ref.Decimals == 0 {
			ref.Decimals = BasePrecisionDecimals
		}
		refs = append(refs, ref)
	}
	return NewRegistry(refs...)
}

// LoadFile reads a YAML market table from path.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read market table %s: %w", path, err)
	}
	return ParseYAML(data)
}
