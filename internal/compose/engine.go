package compose

import (
	"github.com/solatis/fieldcomp/internal/markings"
	"github.com/solatis/fieldcomp/internal/types"
)

// Engine binds a definition table to a composer.
// Shared across goroutines; it holds no per-record state.
type Engine struct {
	table    *Table
	composer *Composer
}

// NewEngine creates an engine. A nil combiner selects markings.Default.
func NewEngine(table *Table, combiner markings.Combiner) *Engine {
	return &Engine{
		table:    table,
		composer: NewComposer(table.Patterns(), combiner),
	}
}

// Table returns the engine's definition table.
func (e *Engine) Table() *Table {
	return e.table
}

// Derive runs every definition of datatype in mode against fields and returns
// the union of their results. The first marking conflict aborts the call.
func (e *Engine) Derive(datatype string, mode Mode, fields types.Fields) ([]types.FieldValue, error) {
	seen := make(map[string]bool)
	var out []types.FieldValue
	for _, def := range e.table.Definitions(datatype, mode) {
		values, err := e.composer.Compose(def, fields)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			if k := v.Key(); !seen[k] {
				seen[k] = true
				out = append(out, v)
			}
		}
	}
	types.SortValues(out)
	return out, nil
}
