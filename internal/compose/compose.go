// internal/compose/compose.go
package compose

import (
	"fmt"

	"github.com/solatis/fieldcomp/internal/markings"
	"github.com/solatis/fieldcomp/internal/types"
)

/*
 * Derived field composition.
 *
 * Compose enumerates every combination of field values a Definition admits
 * and emits one derived FieldValue per combination. The search is depth
 * first over the segment list:
 *
 *   1. Literals append their text and clear any pending separator
 *   2. At the end of the segments, emit if a value was chosen and the event
 *      side is non-empty
 *   3. A field segment branches over every candidate value; a pattern
 *      segment branches over every matching field name first, binding the
 *      wildcard for later segments and the target name
 *   4. A missing field skips the segment (AllowMissing) or abandons the path
 *
 * Path state is a small value type passed by copy. Strings are immutable, so
 * each branch extends its own accumulators and siblings never observe them;
 * backtracking is returning from the call.
 *
 * Grouping: the first value chosen on a path sets the grouping context
 * unconditionally; later values must satisfy the definition's policy.
 *
 * Markings: every chosen value's markings are folded in through the
 * Combiner. A combine failure aborts the whole Compose call, not just the
 * branch, and is returned wrapped.
 *
 * Results are deduplicated by full value equality and sorted; callers must not
 * depend on the order.
 */

// Composer runs definitions against field multimaps.
// Safe for concurrent use; each Compose call owns its state.
type Composer struct {
	patterns PatternSet
	combiner markings.Combiner
}

// NewComposer creates a composer over a table's patterns.
// A nil combiner selects markings.Default.
func NewComposer(patterns PatternSet, combiner markings.Combiner) *Composer {
	if combiner == nil {
		combiner = markings.Default
	}
	return &Composer{patterns: patterns, combiner: combiner}
}

// path is the state of one branch of the enumeration.
type path struct {
	pos         int
	event       string
	index       string
	group       *types.Grouping
	markings    types.Markings
	replacement string
	bound       bool // replacement holds a wildcard capture
	chosen      bool // at least one field value joined the combination
	pending     bool // next appended value is preceded by a separator
}

// run is the per-call context shared by all branches of one Compose.
type run struct {
	c      *Composer
	def    *Definition
	mode   ComposerMode
	fields types.Fields
	names  []string
	out    map[string]types.FieldValue
}

// Compose returns the derived values def produces from fields.
// Returns an error wrapping types.ErrMarkingConflict if markings cannot be merged.
func (c *Composer) Compose(def *Definition, fields types.Fields) ([]types.FieldValue, error) {
	r := &run{
		c:      c,
		def:    def,
		mode:   def.Mode.Behavior(),
		fields: fields,
		out:    make(map[string]types.FieldValue),
	}
	if err := r.walk(path{}); err != nil {
		return nil, err
	}

	result := make([]types.FieldValue, 0, len(r.out))
	for _, v := range r.out {
		result = append(result, v)
	}
	types.SortValues(result)
	return result, nil
}

// walk consumes literals, then resolves the field segment at p.pos.
func (r *run) walk(p path) error {
	segments := r.def.Segments

	for p.pos < len(segments) && segments[p.pos].Kind == SegmentLiteral {
		text := segments[p.pos].Text
		p.index += text
		if r.eventSide(p.pos) {
			p.event += text
		}
		p.pending = false
		p.pos++
	}

	if p.pos == len(segments) {
		r.emit(p)
		return nil
	}

	seg := segments[p.pos]
	name := seg.Text
	if seg.Pattern && p.bound {
		name = Substitute(name, p.replacement)
	}

	if seg.Pattern && !p.bound && len(r.fields.Get(name)) == 0 {
		pattern, ok := r.c.patterns.Lookup(seg.Text)
		if !ok {
			return fmt.Errorf("definition %q: pattern %q not compiled", r.def.Target, seg.Text)
		}
		matched := false
		for _, key := range r.fieldNames() {
			capture, ok := pattern.Match(key)
			if !ok {
				continue
			}
			matched = true
			next := p
			next.replacement = capture
			next.bound = true
			if err := r.choose(next, seg, key); err != nil {
				return err
			}
		}
		if matched {
			return nil
		}
		return r.missing(p)
	}

	if len(r.fields.Get(name)) == 0 {
		return r.missing(p)
	}
	return r.choose(p, seg, name)
}

// missing handles a segment with no values: skip it, or abandon this path.
func (r *run) missing(p path) error {
	if !r.def.AllowMissing {
		return nil
	}
	p.pos++
	return r.walk(p)
}

// choose branches over every compatible value stored under name.
func (r *run) choose(p path, seg Segment, name string) error {
	ignore := r.def.IgnoresNormalization(name) || r.def.IgnoresNormalization(seg.Text)
	policy := r.def.Policy

	for _, v := range r.fields.Get(name) {
		if p.chosen && !policy.Compatible(p.group, v.Group) {
			continue
		}

		merged, err := r.c.combiner.Combine(p.markings, v.Markings)
		if err != nil {
			return fmt.Errorf("definition %q: field %s: %w", r.def.Target, name, err)
		}

		indexText := v.IndexedValue
		if ignore {
			indexText = v.EventValue
		}

		next := p
		next.group = policy.Select(p.group, v.Group)
		next.markings = merged
		next.chosen = true
		next = r.appendValue(next, v.EventValue, indexText)
		next.pending = true
		next.pos++

		if err := r.walk(next); err != nil {
			return err
		}
	}
	return nil
}

// appendValue extends both accumulators with one value and its separators.
func (r *run) appendValue(p path, eventText, indexText string) path {
	var before, after string
	if p.pending {
		if r.mode.Framed {
			before, after = r.def.StartSeparator, r.def.EndSeparator
		} else {
			before = r.def.Separator
		}
	}
	p.index += before + indexText + after
	if r.eventSide(p.pos) {
		p.event += before + eventText + after
	}
	return p
}

// eventSide reports whether the segment at pos contributes to the event accumulator.
func (r *run) eventSide(pos int) bool {
	return !(r.mode.SuppressEvents && r.def.Overloaded() && pos > 0)
}

// emit records the derived value for a completed path.
// The target's wildcard is substituted only when a pattern member bound it;
// if every pattern member was skipped under AllowMissing the target name is
// emitted as written, wildcard included.
func (r *run) emit(p path) {
	if !p.chosen || p.event == "" {
		return
	}

	name := r.def.Target
	if p.bound {
		name = Substitute(name, p.replacement)
	}

	v := types.FieldValue{
		Name:         name,
		EventValue:   p.event,
		IndexedValue: p.index,
		Markings:     p.markings.Clone(),
	}
	if p.group != nil && r.def.Policy != IgnoreGroups {
		g := *p.group
		v.Group = &g
	}
	r.out[v.Key()] = v
}

// fieldNames returns the record's field names, sorted, computed once per call.
func (r *run) fieldNames() []string {
	if r.names == nil {
		r.names = r.fields.Names()
	}
	return r.names
}
