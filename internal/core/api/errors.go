package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/fieldcomp/internal/types"
)

// Errors a caller can fix by changing the request or the definitions.
var invalidArgument = []error{
	types.ErrInvalidRecord,
	types.ErrDefinitionCountMismatch,
	types.ErrEmptyTargetName,
	types.ErrEmptySegment,
	types.ErrUnterminatedLiteral,
	types.ErrMalformedLiteral,
	types.ErrNoFieldSegments,
	types.ErrTooManySegments,
	types.ErrTooManyWildcards,
	types.ErrUnboundTargetWildcard,
	types.ErrMissingSeparator,
	types.ErrUnknownGroupingPolicy,
	types.ErrUnknownMode,
}

// statusError maps a processing error to a gRPC status.
// Marking conflicts map to FAILED_PRECONDITION: the record is valid but its
// labels forbid the derivation.
func statusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, types.ErrMarkingConflict):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	for _, target := range invalidArgument {
		if errors.Is(err, target) {
			return status.Error(codes.InvalidArgument, err.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}
