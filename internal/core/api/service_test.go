package api

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/fieldcomp/internal/compose"
	"github.com/solatis/fieldcomp/internal/ingest"
	"github.com/solatis/fieldcomp/internal/types"
)

func testService(t *testing.T) *ComposerService {
	t.Helper()
	table, err := compose.BuildTable([]types.DefinitionConfig{
		{Datatype: "csv", Mode: types.ModeVirtual, Target: "FULL", Members: "FIRST.LAST", Separator: " "},
		{Datatype: "csv", Mode: types.ModeComposite, Target: "FULL_AGE", Members: "FULL.AGE", Separator: "|"},
	})
	if err != nil {
		t.Fatalf("BuildTable() error = %v", err)
	}
	svc, err := NewComposerService(ingest.NewProcessor(compose.NewEngine(table, nil), nil))
	if err != nil {
		t.Fatalf("NewComposerService() error = %v", err)
	}
	return svc
}

func recordStruct(t *testing.T, fields ...types.FieldValue) *structpb.Struct {
	t.Helper()
	rec := types.Record{ID: "r1", Datatype: "csv", Fields: make(types.Fields)}
	for _, f := range fields {
		rec.Fields.Add(f)
	}
	s, err := RecordStruct(rec)
	if err != nil {
		t.Fatalf("RecordStruct() error = %v", err)
	}
	return s
}

func field(name, value string) types.FieldValue {
	return types.FieldValue{Name: name, EventValue: value, IndexedValue: value}
}

func TestNewComposerService_NilProcessor(t *testing.T) {
	if _, err := NewComposerService(nil); err == nil {
		t.Error("NewComposerService(nil) error = nil, want error")
	}
}

func TestDerive(t *testing.T) {
	svc := testService(t)
	req := recordStruct(t, field("FIRST", "Ann"), field("LAST", "Lee"), field("AGE", "31"))

	resp, err := svc.Derive(context.Background(), req)
	if err != nil {
		t.Fatalf("Derive() error = %v, want nil", err)
	}
	res, err := DecodeResult(resp)
	if err != nil {
		t.Fatalf("DecodeResult() error = %v", err)
	}

	full := res.Record.Fields.Get("FULL")
	if len(full) != 1 || full[0].EventValue != "Ann Lee" || full[0].IndexedValue != "ann lee" {
		t.Errorf("FULL = %+v, want Ann Lee / ann lee", full)
	}
	if len(res.IndexOnly) != 1 || res.IndexOnly[0].IndexedValue != "ann lee|31" {
		t.Errorf("IndexOnly = %+v, want FULL_AGE ann lee|31", res.IndexOnly)
	}
	if res.Virtual != 1 || res.Composite != 1 {
		t.Errorf("counts = %d/%d, want 1/1", res.Virtual, res.Composite)
	}
	if len(res.Event) != 4 {
		t.Errorf("len(Event) = %d, want 4", len(res.Event))
	}
}

func TestDerive_Errors(t *testing.T) {
	svc := testService(t)

	a := field("FIRST", "Ann")
	a.Markings = types.Markings{"owner": "ops"}
	b := field("LAST", "Lee")
	b.Markings = types.Markings{"owner": "dev"}

	noDatatype, _ := structpb.NewStruct(map[string]interface{}{"fields": []interface{}{}})
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		req  *structpb.Struct
		want codes.Code
	}{
		{name: "nil request", ctx: context.Background(), req: nil, want: codes.InvalidArgument},
		{name: "missing datatype", ctx: context.Background(), req: noDatatype, want: codes.InvalidArgument},
		{name: "marking conflict", ctx: context.Background(), req: recordStruct(t, a, b), want: codes.FailedPrecondition},
		{name: "cancelled context", ctx: cancelled, req: recordStruct(t, field("FIRST", "x")), want: codes.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Derive(tt.ctx, tt.req)
			if got := status.Code(err); got != tt.want {
				t.Errorf("Derive() code = %v, want %v (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{name: "nil", err: nil, want: codes.OK},
		{name: "config error", err: fmt.Errorf("definition %q: %w", "X", types.ErrMissingSeparator), want: codes.InvalidArgument},
		{name: "conflict", err: fmt.Errorf("record r1: %w", types.ErrMarkingConflict), want: codes.FailedPrecondition},
		{name: "deadline", err: context.DeadlineExceeded, want: codes.DeadlineExceeded},
		{name: "existing status", err: status.Error(codes.Unavailable, "down"), want: codes.Unavailable},
		{name: "other", err: errors.New("boom"), want: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status.Code(statusError(tt.err)); got != tt.want {
				t.Errorf("statusError() code = %v, want %v", got, tt.want)
			}
		})
	}
}
