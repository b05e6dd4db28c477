// Package ingest runs the derivation engine over whole records.
package ingest

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/solatis/fieldcomp/internal/compose"
	"github.com/solatis/fieldcomp/internal/metrics"
	"github.com/solatis/fieldcomp/internal/types"
)

/*
 * Record processing.
 *
 * A record is derived in two passes over one field multimap:
 *
 *   1. Virtual definitions run over the submitted fields. Each result's indexed
 *      value goes through the Normalizer, then the result joins the record and
 *      is stored with the event.
 *   2. Composite definitions run over the augmented fields, so a composite may
 *      reference a virtual field. Composite results are index-only and never
 *      join the stored record.
 *
 * A marking conflict aborts the engine call. OnConflict decides what the
 * record becomes: Fail returns the error, Drop keeps the submitted fields and
 * discards everything derived for that record.
 */

// OnConflict selects the handling of a record whose derivation hits a marking conflict.
type OnConflict int

const (
	// ConflictFail returns the conflict to the caller.
	ConflictFail OnConflict = iota

	// ConflictDrop keeps the record without derived fields.
	ConflictDrop
)

// ParseOnConflict converts a configuration name (fail, drop) to OnConflict.
func ParseOnConflict(name string) (OnConflict, error) {
	switch strings.ToLower(name) {
	case "", "fail":
		return ConflictFail, nil
	case "drop":
		return ConflictDrop, nil
	default:
		return ConflictFail, fmt.Errorf("unknown on-conflict policy %q", name)
	}
}

// String returns the configuration name.
func (c OnConflict) String() string {
	if c == ConflictDrop {
		return "drop"
	}
	return "fail"
}

// Result is the outcome of processing one record.
type Result struct {
	// Record holds the submitted fields plus every virtual result.
	Record types.Record `json:"record"`

	// Event lists Record's fields in sorted order, as stored.
	Event []types.FieldValue `json:"-"`

	// IndexOnly lists composite results; they are indexed, never stored.
	IndexOnly []types.FieldValue `json:"index_only"`

	Virtual   int  `json:"virtual"`
	Composite int  `json:"composite"`
	Dropped   bool `json:"dropped,omitempty"`
}

// Option configures a Processor.
type Option func(*Processor)

// WithOnConflict sets the marking conflict policy. Default ConflictFail.
func WithOnConflict(c OnConflict) Option {
	return func(p *Processor) {
		p.onConflict = c
	}
}

// WithLogger sets the logger used for dropped records and normalization failures.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		p.log = l
	}
}

// Processor derives virtual and composite fields for records.
// Safe for concurrent use.
type Processor struct {
	engine     *compose.Engine
	normalizer Normalizer
	onConflict OnConflict
	log        *zap.Logger
}

// NewProcessor creates a processor. A nil normalizer selects TextNormalizer.
func NewProcessor(engine *compose.Engine, normalizer Normalizer, opts ...Option) *Processor {
	if normalizer == nil {
		normalizer = TextNormalizer{}
	}
	p := &Processor{
		engine:     engine,
		normalizer: normalizer,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process derives the fields of rec. rec is not modified.
// Records without an ID are assigned a new one.
func (p *Processor) Process(rec types.Record) (Result, error) {
	if rec.Datatype == "" {
		metrics.ObserveRecord(metrics.StatusFailed, 0, 0)
		return Result{}, fmt.Errorf("%w: datatype is required", types.ErrInvalidRecord)
	}
	if rec.ID == "" {
		rec.ID = types.NewRecordID()
	}
	if rec.Fields == nil {
		rec.Fields = make(types.Fields)
	}

	fields := rec.Fields.Clone()

	virtuals, err := p.engine.Derive(rec.Datatype, compose.Virtual, fields)
	if err != nil {
		return p.fail(rec, err)
	}
	for _, v := range virtuals {
		fields.Add(p.normalize(rec.ID, v))
	}

	composites, err := p.engine.Derive(rec.Datatype, compose.Composite, fields)
	if err != nil {
		return p.fail(rec, err)
	}
	if composites == nil {
		composites = []types.FieldValue{}
	}

	out := types.Record{ID: rec.ID, Datatype: rec.Datatype, Fields: fields}
	metrics.ObserveRecord(metrics.StatusOK, len(virtuals), len(composites))
	return Result{
		Record:    out,
		Event:     fields.All(),
		IndexOnly: composites,
		Virtual:   len(virtuals),
		Composite: len(composites),
	}, nil
}

// normalize replaces v's indexed value by its normalized form.
// On failure the value keeps the form the composer built.
func (p *Processor) normalize(id types.RecordID, v types.FieldValue) types.FieldValue {
	indexed, err := p.normalizer.Normalize(v.Name, v.IndexedValue)
	if err != nil {
		p.log.Warn("normalization failed",
			zap.String("record_id", string(id)),
			zap.String("field", v.Name),
			zap.Error(err))
		return v
	}
	v.IndexedValue = indexed
	return v
}

// fail applies the conflict policy to a derivation error.
func (p *Processor) fail(rec types.Record, err error) (Result, error) {
	if !errors.Is(err, types.ErrMarkingConflict) {
		metrics.ObserveRecord(metrics.StatusFailed, 0, 0)
		return Result{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}

	metrics.ObserveConflict()
	if p.onConflict != ConflictDrop {
		metrics.ObserveRecord(metrics.StatusFailed, 0, 0)
		return Result{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}

	p.log.Warn("dropping derived fields",
		zap.String("record_id", string(rec.ID)),
		zap.String("datatype", rec.Datatype),
		zap.Error(err))
	metrics.ObserveRecord(metrics.StatusDropped, 0, 0)

	base := types.Record{ID: rec.ID, Datatype: rec.Datatype, Fields: rec.Fields.Clone()}
	return Result{
		Record:    base,
		Event:     base.Fields.All(),
		IndexOnly: []types.FieldValue{},
		Dropped:   true,
	}, nil
}
