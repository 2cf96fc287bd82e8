package normalization

import "fmt"

// EnumNormalizer wraps a Normalizer with the enum's name so validation
// errors say which config field was wrong.
type EnumNormalizer[T comparable] struct {
	normalizer *Normalizer[T]
	enumName   string
}

// NewEnumNormalizer creates an enum normalizer with descriptive errors.
func NewEnumNormalizer[T comparable](enumName string, values map[string]T, defaultValue T) *EnumNormalizer[T] {
	return &EnumNormalizer[T]{
		normalizer: NewNormalizer(values, defaultValue),
		enumName:   enumName,
	}
}

// Normalize resolves raw to an enum value, defaulting on unknown input.
func (e *EnumNormalizer[T]) Normalize(raw string) T {
	return e.normalizer.Normalize(raw)
}

// NormalizeWithValidation resolves raw to an enum value, naming the enum
// in the error on unknown input.
func (e *EnumNormalizer[T]) NormalizeWithValidation(raw string) (T, error) {
	result, err := e.normalizer.NormalizeWithError(raw)
	if err != nil {
		return result, fmt.Errorf("invalid %s: %w", e.enumName, err)
	}
	return result, nil
}

// ValidValues returns the accepted keys for documentation and help output.
func (e *EnumNormalizer[T]) ValidValues() []string {
	return e.normalizer.ValidKeys()
}
