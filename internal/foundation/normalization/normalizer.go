// Package normalization maps free-form config strings onto typed enum
// values. Lookups are case-insensitive and whitespace-tolerant, so
// "SQLite " and "sqlite" resolve to the same backend.
package normalization

import (
	"fmt"
	"sort"
	"strings"
)

// Normalizer resolves raw strings to values of an enum type, falling back
// to a default for anything unrecognized.
type Normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
	keys         []string // sorted, for error messages
}

// NewNormalizer builds a normalizer from a string→value table. Table keys
// are canonicalized the same way lookups are.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	canonical := make(map[string]T, len(values))
	keys := make([]string, 0, len(values))
	for k, v := range values {
		key := canonicalize(k)
		canonical[key] = v
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return &Normalizer[T]{
		values:       canonical,
		defaultValue: defaultValue,
		keys:         keys,
	}
}

// Normalize resolves raw to its enum value, or the default when unknown.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.values[canonicalize(raw)]; ok {
		return v
	}
	return n.defaultValue
}

// NormalizeWithError resolves raw to its enum value, or reports the valid
// options when unknown. Used during config validation where silently
// substituting the default would hide a typo.
func (n *Normalizer[T]) NormalizeWithError(raw string) (T, error) {
	if v, ok := n.values[canonicalize(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q, valid options: %v", raw, n.keys)
}

// ValidKeys returns the accepted canonical keys.
func (n *Normalizer[T]) ValidKeys() []string {
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

func canonicalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
