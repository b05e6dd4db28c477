// internal/compose/members.go
package compose

import (
	"fmt"
	"strings"

	"github.com/solatis/fieldcomp/internal/types"
)

/*
 * Member expression parsing.
 *
 * A member expression lists the segments of one definition separated by '.':
 *
 *   LAST.', '.FIRST      field LAST, literal ", ", field FIRST
 *   NAME_*.' '.AGE_*     two patterns bound to the same wildcard capture
 *
 * Literals are wrapped in matching single or double quotes and may contain
 * '.' or ','. Whitespace around a member is ignored; whitespace inside a
 * literal is kept. Configuration lists (comma separated) use the same
 * quote-aware splitter so a quoted ',' never splits a list.
 */

// SegmentKind tags a Segment as literal text or a field reference.
type SegmentKind int

const (
	SegmentLiteral SegmentKind = iota
	SegmentField
)

// Segment is one member of a definition.
type Segment struct {
	Kind    SegmentKind
	Text    string // literal text or field name
	Pattern bool   // field name holds a wildcard
}

// Literal constructs a literal segment.
func Literal(text string) Segment {
	return Segment{Kind: SegmentLiteral, Text: text}
}

// FieldRef constructs a field reference segment.
func FieldRef(name string) Segment {
	return Segment{Kind: SegmentField, Text: name, Pattern: IsPattern(name)}
}

// String renders the segment back in member syntax.
func (s Segment) String() string {
	if s.Kind == SegmentLiteral {
		if strings.Contains(s.Text, "'") {
			return `"` + s.Text + `"`
		}
		return "'" + s.Text + "'"
	}
	return s.Text
}

// ParseMembers parses a '.'-separated member expression.
func ParseMembers(expr string) ([]Segment, error) {
	parts, err := SplitList(expr, '.')
	if err != nil {
		return nil, err
	}
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("%w: %q", types.ErrEmptySegment, expr)
		}
		if isQuote(part[0]) {
			text, ok := unquote(part)
			if !ok {
				return nil, literalError(part)
			}
			segments = append(segments, Literal(text))
			continue
		}
		if strings.ContainsAny(part, `'"`) {
			return nil, fmt.Errorf("%w: text before quote in %s", types.ErrMalformedLiteral, part)
		}
		segments = append(segments, FieldRef(part))
	}
	return segments, nil
}

// SplitList splits s on sep, ignoring separators inside quoted literals.
// Quotes are preserved in the returned parts.
func SplitList(s string, sep byte) ([]string, error) {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case isQuote(c):
			quote = c
		case c == sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrUnterminatedLiteral, s)
	}
	return append(parts, s[start:]), nil
}

// literalError classifies a quoted member that failed to unquote.
// A closing quote before the end means text follows the literal.
func literalError(part string) error {
	if end := strings.IndexByte(part[1:], part[0]); end >= 0 && end+2 < len(part) {
		return fmt.Errorf("%w: text after quote in %s", types.ErrMalformedLiteral, part)
	}
	return fmt.Errorf("%w: %s", types.ErrUnterminatedLiteral, part)
}

// Unquote strips one pair of matching quotes. Unquoted input is returned unchanged.
func Unquote(s string) string {
	if text, ok := unquote(s); ok {
		return text
	}
	return s
}

func unquote(s string) (string, bool) {
	if len(s) < 2 || !isQuote(s[0]) || s[len(s)-1] != s[0] {
		return "", false
	}
	inner := s[1 : len(s)-1]
	if strings.IndexByte(inner, s[0]) >= 0 {
		return "", false
	}
	return inner, true
}

func isQuote(c byte) bool {
	return c == '\'' || c == '"'
}
