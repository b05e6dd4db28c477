// internal/compose/compile.go
package compose

import (
	"fmt"
	"strings"

	"github.com/solatis/fieldcomp/internal/types"
)

/*
 * Definition compilation and validation.
 *
 * Compiles types.DefinitionConfig to Definition: parsed segments, resolved
 * mode and grouping policy, effective separators, normalization-ignore set.
 *
 * Compilation workflow:
 *   1. Validate target name (non-empty, at most one wildcard)
 *   2. Parse member expression into segments, enforce MaxSegments
 *   3. Require at least one field segment; a wildcard target needs a pattern member
 *   4. Resolve mode, policy and separators (composite needs a non-empty separator)
 *   5. Register every wildcarded name with the table's PatternSet
 *
 * All configuration errors surface here, at load time, never during Compose.
 */

// Mode selects the output destination and separator shape of a definition.
type Mode int

const (
	Composite Mode = iota // index only, single separator
	Virtual               // event and index, start/end framing
)

// ParseMode maps a configuration mode name to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case types.ModeComposite:
		return Composite, nil
	case types.ModeVirtual:
		return Virtual, nil
	default:
		return Composite, fmt.Errorf("%w: %q", types.ErrUnknownMode, name)
	}
}

// String returns the configuration name of the mode.
func (m Mode) String() string {
	if m == Virtual {
		return types.ModeVirtual
	}
	return types.ModeComposite
}

// Definition is a compiled derived field definition. Immutable after compilation.
type Definition struct {
	ID             types.DefinitionID
	Datatype       string
	Mode           Mode
	Target         string
	Segments       []Segment
	Separator      string
	StartSeparator string // virtual only
	EndSeparator   string // virtual only
	AllowMissing   bool
	Policy         GroupingPolicy

	ignoreNormalization map[string]bool
	overloaded          bool
}

// Arity returns the number of field segments.
func (d *Definition) Arity() int {
	n := 0
	for _, seg := range d.Segments {
		if seg.Kind == SegmentField {
			n++
		}
	}
	return n
}

// Overloaded reports whether a composite definition's first member is its own target.
func (d *Definition) Overloaded() bool {
	return d.overloaded
}

// IgnoresNormalization reports whether name contributes its event value to the index side.
func (d *Definition) IgnoresNormalization(name string) bool {
	return d.ignoreNormalization[name]
}

// Members renders the segments back in member syntax.
func (d *Definition) Members() string {
	parts := make([]string, len(d.Segments))
	for i, seg := range d.Segments {
		parts[i] = seg.String()
	}
	return strings.Join(parts, ".")
}

// Compile validates cfg and registers its patterns with patterns.
func Compile(cfg types.DefinitionConfig, patterns PatternSet) (*Definition, error) {
	def, err := compileDefinition(cfg, patterns)
	if err != nil {
		return nil, fmt.Errorf("definition %q: %w", cfg.Target, err)
	}
	return def, nil
}

func compileDefinition(cfg types.DefinitionConfig, patterns PatternSet) (*Definition, error) {
	target := strings.TrimSpace(cfg.Target)
	if target == "" {
		return nil, types.ErrEmptyTargetName
	}
	if strings.Count(target, types.Wildcard) > types.MaxWildcardsPerName {
		return nil, fmt.Errorf("%w: %q", types.ErrTooManyWildcards, target)
	}

	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	policy, err := ParseGroupingPolicy(cfg.GroupingPolicy)
	if err != nil {
		return nil, err
	}

	segments, err := ParseMembers(cfg.Members)
	if err != nil {
		return nil, err
	}
	if len(segments) > types.MaxSegments {
		return nil, fmt.Errorf("%w: %d > %d", types.ErrTooManySegments, len(segments), types.MaxSegments)
	}

	hasField, hasPattern := false, false
	for _, seg := range segments {
		if seg.Kind != SegmentField {
			continue
		}
		hasField = true
		if seg.Pattern {
			hasPattern = true
			if err := patterns.add(seg.Text); err != nil {
				return nil, err
			}
		}
	}
	if !hasField {
		return nil, types.ErrNoFieldSegments
	}
	if IsPattern(target) && !hasPattern {
		return nil, fmt.Errorf("%w: %q", types.ErrUnboundTargetWildcard, target)
	}

	def := &Definition{
		ID:                  cfg.DefinitionID,
		Datatype:            strings.ToLower(cfg.Datatype),
		Mode:                mode,
		Target:              target,
		Segments:            segments,
		Separator:           cfg.Separator,
		AllowMissing:        cfg.AllowMissing,
		Policy:              policy,
		ignoreNormalization: make(map[string]bool, len(cfg.IgnoreNormalization)),
	}
	for _, name := range cfg.IgnoreNormalization {
		def.ignoreNormalization[strings.TrimSpace(name)] = true
	}

	switch mode {
	case Composite:
		if def.Separator == "" {
			return nil, types.ErrMissingSeparator
		}
		def.overloaded = segments[0].Kind == SegmentField && segments[0].Text == target
	case Virtual:
		def.StartSeparator = def.Separator
		if cfg.StartSeparator != nil {
			def.StartSeparator = *cfg.StartSeparator
		}
		if cfg.EndSeparator != nil {
			def.EndSeparator = *cfg.EndSeparator
		}
	}

	return def, nil
}
