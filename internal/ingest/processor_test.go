package ingest

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/solatis/fieldcomp/internal/compose"
	"github.com/solatis/fieldcomp/internal/metrics"
	"github.com/solatis/fieldcomp/internal/types"
)

func testEngine(t *testing.T, configs ...types.DefinitionConfig) *compose.Engine {
	t.Helper()
	table, err := compose.BuildTable(configs)
	if err != nil {
		t.Fatalf("BuildTable() error = %v, want nil", err)
	}
	return compose.NewEngine(table, nil)
}

func definition(mode, target, members string) types.DefinitionConfig {
	return types.DefinitionConfig{
		Datatype:  "csv",
		Mode:      mode,
		Target:    target,
		Members:   members,
		Separator: " ",
	}
}

func testRecord(values ...types.FieldValue) types.Record {
	rec := types.Record{ID: "r1", Datatype: "csv", Fields: make(types.Fields)}
	for _, v := range values {
		rec.Fields.Add(v)
	}
	return rec
}

func plain(name, v string) types.FieldValue {
	return types.FieldValue{Name: name, EventValue: v, IndexedValue: v}
}

func TestProcess_VirtualJoinsRecordNormalized(t *testing.T) {
	engine := testEngine(t, definition(types.ModeVirtual, "FULL_NAME", "FIRST.LAST"))
	p := NewProcessor(engine, nil)

	res, err := p.Process(testRecord(plain("FIRST", "Ann"), plain("LAST", "Lee")))
	if err != nil {
		t.Fatalf("Process() error = %v, want nil", err)
	}

	got := res.Record.Fields.Get("FULL_NAME")
	if len(got) != 1 {
		t.Fatalf("len(FULL_NAME) = %d, want 1", len(got))
	}
	if got[0].EventValue != "Ann Lee" || got[0].IndexedValue != "ann lee" {
		t.Errorf("FULL_NAME = %q/%q, want Ann Lee/ann lee", got[0].EventValue, got[0].IndexedValue)
	}
	if res.Virtual != 1 || res.Composite != 0 {
		t.Errorf("counts = %d/%d, want 1/0", res.Virtual, res.Composite)
	}
	if len(res.Event) != 3 {
		t.Errorf("len(Event) = %d, want 3", len(res.Event))
	}
}

func TestProcess_CompositeIsIndexOnly(t *testing.T) {
	engine := testEngine(t, definition(types.ModeComposite, "NAME_AGE", "NAME.AGE"))
	p := NewProcessor(engine, nil)

	res, err := p.Process(testRecord(plain("NAME", "ann"), plain("AGE", "31")))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(res.IndexOnly) != 1 || res.IndexOnly[0].Name != "NAME_AGE" {
		t.Fatalf("IndexOnly = %v, want NAME_AGE", res.IndexOnly)
	}
	if len(res.Record.Fields.Get("NAME_AGE")) != 0 {
		t.Error("composite result stored in record, want index-only")
	}
}

func TestProcess_CompositeSeesVirtualResults(t *testing.T) {
	engine := testEngine(t,
		definition(types.ModeVirtual, "FULL", "FIRST.LAST"),
		definition(types.ModeComposite, "FULL_AGE", "FULL.AGE"),
	)
	p := NewProcessor(engine, nil)

	res, err := p.Process(testRecord(plain("FIRST", "Ann"), plain("LAST", "Lee"), plain("AGE", "31")))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(res.IndexOnly) != 1 {
		t.Fatalf("IndexOnly = %v, want one value", res.IndexOnly)
	}
	v := res.IndexOnly[0]
	if v.EventValue != "Ann Lee 31" || v.IndexedValue != "ann lee 31" {
		t.Errorf("FULL_AGE = %q/%q, want Ann Lee 31/ann lee 31", v.EventValue, v.IndexedValue)
	}
}

func TestProcess_DoesNotModifyInput(t *testing.T) {
	engine := testEngine(t, definition(types.ModeVirtual, "V", "A.B"))
	rec := testRecord(plain("A", "a"), plain("B", "b"))

	if _, err := NewProcessor(engine, nil).Process(rec); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(rec.Fields.Get("V")) != 0 {
		t.Error("Process() added derived field to input record")
	}
}

func TestProcess_AssignsID(t *testing.T) {
	rec := testRecord(plain("A", "a"))
	rec.ID = ""
	res, err := NewProcessor(testEngine(t), nil).Process(rec)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if _, err := types.ParseDefinitionID(string(res.Record.ID)); err != nil {
		t.Errorf("Record.ID = %q, want UUID", res.Record.ID)
	}
}

func TestProcess_RequiresDatatype(t *testing.T) {
	_, err := NewProcessor(testEngine(t), nil).Process(types.Record{})
	if !errors.Is(err, types.ErrInvalidRecord) {
		t.Errorf("Process() error = %v, want ErrInvalidRecord", err)
	}
}

func conflictRecord() types.Record {
	a := plain("A", "a")
	a.Markings = types.Markings{"owner": "ops"}
	b := plain("B", "b")
	b.Markings = types.Markings{"owner": "dev"}
	return testRecord(a, b)
}

func TestProcess_ConflictFail(t *testing.T) {
	engine := testEngine(t, definition(types.ModeVirtual, "V", "A.B"))
	before := testutil.ToFloat64(metrics.MarkingConflictsTotal)

	_, err := NewProcessor(engine, nil).Process(conflictRecord())
	if !errors.Is(err, types.ErrMarkingConflict) {
		t.Fatalf("Process() error = %v, want ErrMarkingConflict", err)
	}
	if !strings.Contains(err.Error(), "record r1") {
		t.Errorf("Process() error = %q, want record id", err)
	}
	if got := testutil.ToFloat64(metrics.MarkingConflictsTotal) - before; got != 1 {
		t.Errorf("marking_conflicts_total delta = %v, want 1", got)
	}
}

func TestProcess_ConflictDrop(t *testing.T) {
	engine := testEngine(t,
		definition(types.ModeVirtual, "OK", "A"),
		definition(types.ModeComposite, "BAD", "A.B"),
	)
	core, logs := observer.New(zapcore.WarnLevel)
	p := NewProcessor(engine, nil, WithOnConflict(ConflictDrop), WithLogger(zap.New(core)))
	droppedBefore := testutil.ToFloat64(metrics.RecordsTotal.WithLabelValues(metrics.StatusDropped))

	res, err := p.Process(conflictRecord())
	if err != nil {
		t.Fatalf("Process() error = %v, want nil", err)
	}
	if !res.Dropped {
		t.Error("Dropped = false, want true")
	}
	// the virtual OK result is discarded along with the composite
	if len(res.Record.Fields.Get("OK")) != 0 || len(res.IndexOnly) != 0 {
		t.Errorf("Result kept derived fields: %+v", res)
	}
	if len(res.Event) != 2 {
		t.Errorf("len(Event) = %d, want 2 submitted fields", len(res.Event))
	}
	if logs.FilterMessage("dropping derived fields").Len() != 1 {
		t.Errorf("warn logs = %v, want one drop entry", logs.All())
	}
	if got := testutil.ToFloat64(metrics.RecordsTotal.WithLabelValues(metrics.StatusDropped)) - droppedBefore; got != 1 {
		t.Errorf("records_total{dropped} delta = %v, want 1", got)
	}
}

func TestProcess_NormalizationFailureKeepsValue(t *testing.T) {
	engine := testEngine(t, definition(types.ModeVirtual, "V", "A.B"))
	core, logs := observer.New(zapcore.WarnLevel)
	failing := NormalizerFunc(func(string, string) (string, error) {
		return "", errors.New("unsupported")
	})

	res, err := NewProcessor(engine, failing, WithLogger(zap.New(core))).Process(testRecord(plain("A", "X"), plain("B", "Y")))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	got := res.Record.Fields.Get("V")
	if len(got) != 1 || got[0].IndexedValue != "X Y" {
		t.Errorf("V = %v, want unnormalized X Y", got)
	}
	if logs.FilterMessage("normalization failed").Len() != 1 {
		t.Errorf("warn logs = %v, want one normalization entry", logs.All())
	}
}

func TestParseOnConflict(t *testing.T) {
	tests := []struct {
		in      string
		want    OnConflict
		wantErr bool
	}{
		{in: "", want: ConflictFail},
		{in: "fail", want: ConflictFail},
		{in: "DROP", want: ConflictDrop},
		{in: "retry", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseOnConflict(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOnConflict(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseOnConflict(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResult_JSON(t *testing.T) {
	engine := testEngine(t, definition(types.ModeComposite, "C", "A.B"))
	res, err := NewProcessor(engine, nil).Process(testRecord(plain("A", "a"), plain("B", "b")))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded struct {
		Record    types.Record       `json:"record"`
		IndexOnly []types.FieldValue `json:"index_only"`
		Composite int                `json:"composite"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Record.ID != "r1" || len(decoded.IndexOnly) != 1 || decoded.Composite != 1 {
		t.Errorf("decoded = %+v, want r1 with one index-only value", decoded)
	}
}
