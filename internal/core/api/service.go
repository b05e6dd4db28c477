// Package api provides the gRPC Composer service.
package api

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/fieldcomp/internal/ingest"
	"github.com/solatis/fieldcomp/internal/logger"
	"github.com/solatis/fieldcomp/internal/types"
)

// ComposerService implements ComposerServer over an ingest processor.
// Request and response bodies are the JSON forms of types.Record and
// ingest.Result carried in a google.protobuf.Struct.
type ComposerService struct {
	processor *ingest.Processor
}

// NewComposerService creates a service that derives fields with processor.
func NewComposerService(processor *ingest.Processor) (*ComposerService, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}
	return &ComposerService{processor: processor}, nil
}

// Derive decodes one record, derives its fields and returns the result.
func (s *ComposerService) Derive(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request body required")
	}
	if err := ctx.Err(); err != nil {
		return nil, statusError(err)
	}

	rec, err := decodeRecord(req)
	if err != nil {
		return nil, statusError(err)
	}

	res, err := s.processor.Process(rec)
	if err != nil {
		return nil, statusError(err)
	}

	logger.FromContext(ctx).Debug("derived record",
		zap.String("record_id", string(res.Record.ID)),
		zap.String("datatype", res.Record.Datatype),
		zap.Int("virtual", res.Virtual),
		zap.Int("composite", res.Composite),
		zap.Bool("dropped", res.Dropped))

	out, err := encodeResult(res)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// decodeRecord converts the request struct to a record via its JSON form.
func decodeRecord(req *structpb.Struct) (types.Record, error) {
	data, err := req.MarshalJSON()
	if err != nil {
		return types.Record{}, fmt.Errorf("%w: %v", types.ErrInvalidRecord, err)
	}
	var rec types.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return types.Record{}, err
	}
	return rec, nil
}

// encodeResult converts a result to a struct via its JSON form.
func encodeResult(res ingest.Result) (*structpb.Struct, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return out, nil
}

// RecordStruct encodes rec as a Derive request body.
func RecordStruct(rec types.Record) (*structpb.Struct, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeResult decodes a Derive response body.
func DecodeResult(body *structpb.Struct) (ingest.Result, error) {
	data, err := body.MarshalJSON()
	if err != nil {
		return ingest.Result{}, err
	}
	var res ingest.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return ingest.Result{}, err
	}
	res.Event = res.Record.Fields.All()
	return res, nil
}
