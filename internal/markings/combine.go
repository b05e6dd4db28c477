// Package markings combines security labels of values merged into one derived value.
package markings

import (
	"fmt"
	"sort"
	"strings"

	"github.com/solatis/fieldcomp/internal/types"
)

// VisibilityKey is the marking combined as a conjunction instead of compared.
const VisibilityKey = "columnVisibility"

// Combiner merges two markings. Implementations return an error wrapping
// types.ErrMarkingConflict when the inputs cannot be merged.
type Combiner interface {
	Combine(a, b types.Markings) (types.Markings, error)
}

// CombinerFunc adapts a function to Combiner.
type CombinerFunc func(a, b types.Markings) (types.Markings, error)

// Combine calls f(a, b).
func (f CombinerFunc) Combine(a, b types.Markings) (types.Markings, error) {
	return f(a, b)
}

// Default is the visibility-aware combiner used when none is configured.
var Default Combiner = CombinerFunc(Combine)

// Combine unions both label sets. The visibility label becomes the conjunction
// of the distinct terms of both sides; any other label present on both sides
// with different values is a conflict.
func Combine(a, b types.Markings) (types.Markings, error) {
	if len(a) == 0 {
		return b.Clone(), nil
	}
	if len(b) == 0 {
		return a.Clone(), nil
	}

	out := a.Clone()
	for k, bv := range b {
		av, ok := out[k]
		if !ok || av == bv {
			out[k] = bv
			continue
		}
		if k == VisibilityKey {
			out[k] = conjoin(av, bv)
			continue
		}
		return nil, fmt.Errorf("%w: %s %q vs %q", types.ErrMarkingConflict, k, av, bv)
	}
	return out, nil
}

// conjoin ANDs two visibility expressions, dropping duplicate terms.
// Terms are sorted so the result does not depend on merge order.
func conjoin(a, b string) string {
	seen := make(map[string]bool)
	var terms []string
	for _, expr := range []string{a, b} {
		for _, term := range splitTerms(expr) {
			if !seen[term] {
				seen[term] = true
				terms = append(terms, term)
			}
		}
	}
	sort.Strings(terms)
	for i, term := range terms {
		if strings.Contains(term, "|") {
			terms[i] = "(" + term + ")"
		}
	}
	return strings.Join(terms, "&")
}

// splitTerms splits a visibility expression on top-level '&'.
// Parenthesized groups stay intact with their outer parentheses stripped.
func splitTerms(expr string) []string {
	var terms []string
	depth := 0
	start := 0
	for i, c := range expr {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case '&':
			if depth == 0 {
				terms = appendTerm(terms, expr[start:i])
				start = i + 1
			}
		}
	}
	return appendTerm(terms, expr[start:])
}

func appendTerm(terms []string, term string) []string {
	term = strings.TrimSpace(term)
	for len(term) > 1 && term[0] == '(' && term[len(term)-1] == ')' && balanced(term[1:len(term)-1]) {
		term = strings.TrimSpace(term[1 : len(term)-1])
	}
	if term == "" {
		return terms
	}
	return append(terms, term)
}

// balanced reports whether parentheses in s never close below depth zero.
func balanced(s string) bool {
	depth := 0
	for _, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
