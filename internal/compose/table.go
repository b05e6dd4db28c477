// internal/compose/table.go
package compose

import (
	"sort"
	"strings"

	"github.com/solatis/fieldcomp/internal/types"
)

// Table holds every compiled definition of one configuration load, indexed by
// datatype and mode, plus the patterns they reference. Read-only once built.
type Table struct {
	byDatatype map[string]map[Mode][]*Definition
	patterns   PatternSet
	size       int
}

// BuildTable compiles configs. The first invalid definition aborts the build.
func BuildTable(configs []types.DefinitionConfig) (*Table, error) {
	t := &Table{
		byDatatype: make(map[string]map[Mode][]*Definition),
		patterns:   make(PatternSet),
	}
	for _, cfg := range configs {
		def, err := Compile(cfg, t.patterns)
		if err != nil {
			return nil, err
		}
		modes, ok := t.byDatatype[def.Datatype]
		if !ok {
			modes = make(map[Mode][]*Definition)
			t.byDatatype[def.Datatype] = modes
		}
		modes[def.Mode] = append(modes[def.Mode], def)
		t.size++
	}
	return t, nil
}

// Definitions returns the definitions of datatype in mode, in configuration order.
// Datatype lookup is case-insensitive.
func (t *Table) Definitions(datatype string, mode Mode) []*Definition {
	return t.byDatatype[strings.ToLower(datatype)][mode]
}

// Datatypes returns configured datatypes in sorted order.
func (t *Table) Datatypes() []string {
	out := make([]string, 0, len(t.byDatatype))
	for dt := range t.byDatatype {
		out = append(out, dt)
	}
	sort.Strings(out)
	return out
}

// Patterns returns the compiled pattern set.
func (t *Table) Patterns() PatternSet {
	return t.patterns
}

// Len returns the number of compiled definitions.
func (t *Table) Len() int {
	return t.size
}
