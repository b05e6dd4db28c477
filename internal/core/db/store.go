package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/solatis/fieldcomp/internal/types"
)

// DefinitionStore persists definition configurations per datatype.
// Rows hold the uncompiled form; callers compile with compose.BuildTable.
type DefinitionStore struct {
	q *Queries
}

// NewDefinitionStore creates a store over loaded queries.
func NewDefinitionStore(q *Queries) *DefinitionStore {
	return &DefinitionStore{q: q}
}

// definitionRow is the definitions table layout.
type definitionRow struct {
	DefinitionID        string         `db:"definition_id"`
	Datatype            string         `db:"datatype"`
	Mode                string         `db:"mode"`
	Target              string         `db:"target"`
	Members             string         `db:"members"`
	Separator           string         `db:"separator"`
	StartSeparator      sql.NullString `db:"start_separator"`
	EndSeparator        sql.NullString `db:"end_separator"`
	AllowMissing        bool           `db:"allow_missing"`
	GroupingPolicy      string         `db:"grouping_policy"`
	IgnoreNormalization string         `db:"ignore_normalization"`
}

// Save replaces the stored definitions of every datatype present in defs.
// Datatypes absent from defs are untouched. Definitions without an ID get a
// new one; order within a datatype is preserved.
func (s *DefinitionStore) Save(ctx context.Context, defs []types.DefinitionConfig) error {
	byDatatype := make(map[string][]types.DefinitionConfig)
	for _, d := range defs {
		dt := strings.ToLower(d.Datatype)
		if dt == "" {
			return fmt.Errorf("definition %q: datatype is required", d.Target)
		}
		byDatatype[dt] = append(byDatatype[dt], d)
	}

	datatypes := make([]string, 0, len(byDatatype))
	for dt := range byDatatype {
		datatypes = append(datatypes, dt)
	}
	sort.Strings(datatypes)

	return s.q.InTx(ctx, func(tx *Queries) error {
		for _, dt := range datatypes {
			if _, err := tx.Exec(ctx, "delete-datatype-definitions", dt); err != nil {
				return fmt.Errorf("failed to clear datatype %s: %w", dt, err)
			}
			for pos, d := range byDatatype[dt] {
				if err := insertDefinition(ctx, tx, dt, pos, d); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func insertDefinition(ctx context.Context, tx *Queries, datatype string, pos int, d types.DefinitionConfig) error {
	id := d.DefinitionID
	if id == "" {
		id = types.NewDefinitionID()
	}
	ignore := d.IgnoreNormalization
	if ignore == nil {
		ignore = []string{}
	}
	ignoreJSON, err := json.Marshal(ignore)
	if err != nil {
		return fmt.Errorf("definition %q: %w", d.Target, err)
	}

	_, err = tx.Exec(ctx, "insert-definition",
		string(id), datatype, d.Mode, pos, d.Target, d.Members, d.Separator,
		nullString(d.StartSeparator), nullString(d.EndSeparator),
		d.AllowMissing, d.GroupingPolicy, string(ignoreJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert definition %q: %w", d.Target, err)
	}
	return nil
}

// List returns the definitions of datatype in saved order.
// An empty datatype lists every datatype's definitions.
func (s *DefinitionStore) List(ctx context.Context, datatype string) ([]types.DefinitionConfig, error) {
	var rows []definitionRow
	var err error
	if datatype == "" {
		err = s.q.Select(ctx, "list-all-definitions", &rows)
	} else {
		err = s.q.Select(ctx, "list-datatype-definitions", &rows, strings.ToLower(datatype))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}

	out := make([]types.DefinitionConfig, 0, len(rows))
	for _, r := range rows {
		d, err := r.config()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Datatypes returns every datatype with stored definitions, sorted.
func (s *DefinitionStore) Datatypes(ctx context.Context) ([]string, error) {
	var out []string
	if err := s.q.Select(ctx, "list-datatypes", &out); err != nil {
		return nil, fmt.Errorf("failed to list datatypes: %w", err)
	}
	return out, nil
}

// Count returns the number of stored definitions.
func (s *DefinitionStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.q.Get(ctx, "count-definitions", &n); err != nil {
		return 0, fmt.Errorf("failed to count definitions: %w", err)
	}
	return n, nil
}

func (r definitionRow) config() (types.DefinitionConfig, error) {
	id, err := types.ParseDefinitionID(r.DefinitionID)
	if err != nil {
		return types.DefinitionConfig{}, fmt.Errorf("definition %q: invalid id: %w", r.Target, err)
	}
	var ignore []string
	if err := json.Unmarshal([]byte(r.IgnoreNormalization), &ignore); err != nil {
		return types.DefinitionConfig{}, fmt.Errorf("definition %q: ignore_normalization: %w", r.Target, err)
	}
	if len(ignore) == 0 {
		ignore = nil
	}
	return types.DefinitionConfig{
		DefinitionID:        id,
		Datatype:            r.Datatype,
		Mode:                r.Mode,
		Target:              r.Target,
		Members:             r.Members,
		Separator:           r.Separator,
		StartSeparator:      stringPtr(r.StartSeparator),
		EndSeparator:        stringPtr(r.EndSeparator),
		AllowMissing:        r.AllowMissing,
		GroupingPolicy:      r.GroupingPolicy,
		IgnoreNormalization: ignore,
	}, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
