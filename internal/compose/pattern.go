// internal/compose/pattern.go
package compose

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/solatis/fieldcomp/internal/types"
)

/*
 * Wildcard field-name patterns.
 *
 * A wildcarded name holds exactly one '*'. It compiles to an anchored regexp
 * where the wildcard is a single greedy capture group and every other
 * character is quoted. Match returns the captured text, used to bind the
 * wildcard in later members and in the target name.
 *
 * Patterns are compiled once per Table build into a PatternSet keyed by the
 * wildcarded source string and are read-only afterwards, so a Table can be
 * shared across goroutines without locking.
 */

// Pattern is a compiled wildcarded field name.
type Pattern struct {
	source string
	re     *regexp.Regexp
}

// IsPattern reports whether name contains a wildcard marker.
func IsPattern(name string) bool {
	return strings.Contains(name, types.Wildcard)
}

// CompilePattern compiles a name holding exactly one wildcard.
func CompilePattern(wildcarded string) (*Pattern, error) {
	n := strings.Count(wildcarded, types.Wildcard)
	if n == 0 {
		return nil, fmt.Errorf("name %q has no wildcard", wildcarded)
	}
	if n > types.MaxWildcardsPerName {
		return nil, fmt.Errorf("%w: %q", types.ErrTooManyWildcards, wildcarded)
	}
	prefix, suffix, _ := strings.Cut(wildcarded, types.Wildcard)
	re, err := regexp.Compile("^" + regexp.QuoteMeta(prefix) + "(.*)" + regexp.QuoteMeta(suffix) + "$")
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", wildcarded, err)
	}
	return &Pattern{source: wildcarded, re: re}, nil
}

// Source returns the wildcarded name the pattern was compiled from.
func (p *Pattern) Source() string {
	return p.source
}

// Match returns the text captured by the wildcard if name matches in full.
func (p *Pattern) Match(name string) (string, bool) {
	m := p.re.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Substitute replaces the wildcard in name with replacement.
func Substitute(name, replacement string) string {
	return strings.Replace(name, types.Wildcard, replacement, 1)
}

// PatternSet maps wildcarded source strings to their compiled patterns.
type PatternSet map[string]*Pattern

// add compiles source unless already present.
func (s PatternSet) add(source string) error {
	if _, ok := s[source]; ok {
		return nil
	}
	p, err := CompilePattern(source)
	if err != nil {
		return err
	}
	s[source] = p
	return nil
}

// Lookup returns the compiled pattern for source.
func (s PatternSet) Lookup(source string) (*Pattern, bool) {
	p, ok := s[source]
	return p, ok
}
