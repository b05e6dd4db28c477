package ingest

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalizer produces the indexed form of a field value.
// Virtual field results pass through it before they join the record.
type Normalizer interface {
	Normalize(field, value string) (string, error)
}

// NormalizerFunc adapts a function to Normalizer.
type NormalizerFunc func(field, value string) (string, error)

// Normalize calls f(field, value).
func (f NormalizerFunc) Normalize(field, value string) (string, error) {
	return f(field, value)
}

// TextNormalizer composes to NFC, then applies Unicode case folding.
// Field names are ignored; every field normalizes the same way.
type TextNormalizer struct{}

// Normalize implements Normalizer.
func (TextNormalizer) Normalize(_, value string) (string, error) {
	// Casers carry state; one per call keeps the normalizer goroutine-safe
	return cases.Fold().String(norm.NFC.String(value)), nil
}
