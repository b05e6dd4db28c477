// Package types provides domain models shared across fieldcomp components.
//
// Field values, groupings, markings and records are plain data. Encoding to JSON
// happens here so the CLI, the gRPC service and the tests agree on one wire shape.
// Compilation and composition live in internal/compose.
package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefinitionID represents a UUIDv7 definition identifier.
type DefinitionID string

// RecordID represents a UUIDv7 record identifier.
type RecordID string

// Wildcard is the marker replaced by captured text in wildcarded field names.
const Wildcard = "*"

// Resource limits enforced when compiling definitions.
const (
	// MaxSegments bounds recursion depth of a single composition.
	MaxSegments = 32

	// MaxWildcardsPerName allows exactly one capture group per wildcarded name.
	MaxWildcardsPerName = 1
)

// Grouping identifies the repeated structural instance a value belongs to.
type Grouping struct {
	Group    string
	Subgroup string
}

// String renders the grouping as group.subgroup.
func (g Grouping) String() string {
	if g.Subgroup == "" {
		return g.Group
	}
	return g.Group + "." + g.Subgroup
}

// SameGrouping reports whether two optional groupings are equal.
// Two absent groupings are equal.
func SameGrouping(a, b *Grouping) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Markings holds security labels attached to a value.
type Markings map[string]string

// Clone returns an independent copy. A nil receiver yields an empty map.
func (m Markings) Clone() Markings {
	out := make(Markings, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Equal reports whether both markings carry the same labels.
func (m Markings) Equal(other Markings) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// canonical renders markings with sorted keys. Keys and values are quoted so
// no label text can imitate a boundary.
func (m Markings) canonical() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(strconv.Quote(k))
		b.WriteByte('=')
		b.WriteString(strconv.Quote(m[k]))
		b.WriteByte(';')
	}
	return b.String()
}

// FieldValue is one named value within a record.
// EventValue is stored verbatim; IndexedValue is the normalized search form.
type FieldValue struct {
	Name         string
	EventValue   string
	IndexedValue string
	Markings     Markings
	Group        *Grouping // nil for ungrouped values
}

// Grouped reports whether the value belongs to a repeated instance.
func (v FieldValue) Grouped() bool {
	return v.Group != nil
}

// Key returns a string unique to the full value: name, both forms, markings, group.
// Used for set semantics since FieldValue holds a map and is not comparable.
func (v FieldValue) Key() string {
	group := "-"
	if v.Group != nil {
		group = "+" + strconv.Quote(v.Group.Group) + strconv.Quote(v.Group.Subgroup)
	}
	return strings.Join([]string{
		strconv.Quote(v.Name),
		strconv.Quote(v.EventValue),
		strconv.Quote(v.IndexedValue),
		strconv.Quote(v.Markings.canonical()),
		group,
	}, ",")
}

// Equal reports full value equality.
func (v FieldValue) Equal(other FieldValue) bool {
	return v.Name == other.Name &&
		v.EventValue == other.EventValue &&
		v.IndexedValue == other.IndexedValue &&
		v.Markings.Equal(other.Markings) &&
		SameGrouping(v.Group, other.Group)
}

// Fields is a multimap from field name to its distinct values.
// Values under one name are a set; Add ignores exact duplicates.
type Fields map[string][]FieldValue

// Add inserts v under v.Name. Returns false if an equal value was already present.
func (f Fields) Add(v FieldValue) bool {
	for _, existing := range f[v.Name] {
		if existing.Equal(v) {
			return false
		}
	}
	f[v.Name] = append(f[v.Name], v)
	return true
}

// Get returns the values stored under name.
func (f Fields) Get(name string) []FieldValue {
	return f[name]
}

// Names returns field names in sorted order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for name, values := range f {
		if len(values) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Clone copies the multimap structure. Values are shared; they are never mutated.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for name, values := range f {
		out[name] = append([]FieldValue(nil), values...)
	}
	return out
}

// All returns every value sorted by name then key.
func (f Fields) All() []FieldValue {
	var out []FieldValue
	for _, name := range f.Names() {
		out = append(out, f[name]...)
	}
	SortValues(out)
	return out
}

// SortValues orders values deterministically by name, then full key.
func SortValues(values []FieldValue) {
	sort.Slice(values, func(i, j int) bool {
		if values[i].Name != values[j].Name {
			return values[i].Name < values[j].Name
		}
		return values[i].Key() < values[j].Key()
	})
}

// Record is the unit of ingest: one datatype-tagged set of fields.
type Record struct {
	ID       RecordID
	Datatype string
	Fields   Fields
}

// fieldJSON is the wire shape of a FieldValue.
// Index defaults to Event when omitted; a value is grouped iff Group is non-empty.
type fieldJSON struct {
	Name     string   `json:"name"`
	Event    string   `json:"event"`
	Index    *string  `json:"index,omitempty"`
	Markings Markings `json:"markings,omitempty"`
	Group    string   `json:"group,omitempty"`
	Subgroup string   `json:"subgroup,omitempty"`
}

type recordJSON struct {
	ID       RecordID    `json:"id,omitempty"`
	Datatype string      `json:"datatype"`
	Fields   []fieldJSON `json:"fields"`
}

// MarshalJSON implements json.Marshaler.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(toFieldJSON(v))
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var fj fieldJSON
	if err := json.Unmarshal(data, &fj); err != nil {
		return err
	}
	fv, err := fromFieldJSON(fj)
	if err != nil {
		return err
	}
	*v = fv
	return nil
}

// MarshalJSON implements json.Marshaler. Fields are emitted in sorted order.
func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{ID: r.ID, Datatype: r.Datatype, Fields: []fieldJSON{}}
	for _, v := range r.Fields.All() {
		out.Fields = append(out.Fields, toFieldJSON(v))
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
// Rejects records without a datatype and fields without a name.
func (r *Record) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if in.Datatype == "" {
		return fmt.Errorf("%w: datatype is required", ErrInvalidRecord)
	}
	fields := make(Fields, len(in.Fields))
	for i, fj := range in.Fields {
		fv, err := fromFieldJSON(fj)
		if err != nil {
			return fmt.Errorf("%w: field %d: %v", ErrInvalidRecord, i, err)
		}
		fields.Add(fv)
	}
	r.ID = in.ID
	r.Datatype = in.Datatype
	r.Fields = fields
	return nil
}

func toFieldJSON(v FieldValue) fieldJSON {
	index := v.IndexedValue
	fj := fieldJSON{
		Name:     v.Name,
		Event:    v.EventValue,
		Index:    &index,
		Markings: v.Markings,
	}
	if v.Group != nil {
		fj.Group = v.Group.Group
		fj.Subgroup = v.Group.Subgroup
	}
	return fj
}

func fromFieldJSON(fj fieldJSON) (FieldValue, error) {
	if fj.Name == "" {
		return FieldValue{}, fmt.Errorf("field name is required")
	}
	fv := FieldValue{
		Name:         fj.Name,
		EventValue:   fj.Event,
		IndexedValue: fj.Event,
	}
	if len(fj.Markings) > 0 {
		fv.Markings = fj.Markings.Clone()
	}
	if fj.Index != nil {
		fv.IndexedValue = *fj.Index
	}
	if fj.Group != "" {
		fv.Group = &Grouping{Group: fj.Group, Subgroup: fj.Subgroup}
	}
	return fv, nil
}
