package types

import "errors"

// Sentinel errors for field composition.
var (
	// ErrDefinitionCountMismatch indicates per-definition lists disagree in length
	// (names vs members vs separators vs policies).
	ErrDefinitionCountMismatch = errors.New("definition list counts do not match")

	// ErrEmptyTargetName indicates a definition without a target field name.
	ErrEmptyTargetName = errors.New("definition target name is empty")

	// ErrEmptySegment indicates an empty member between two '.' separators.
	ErrEmptySegment = errors.New("definition member is empty")

	// ErrUnterminatedLiteral indicates a quoted literal without its closing quote.
	ErrUnterminatedLiteral = errors.New("unterminated literal in definition members")

	// ErrMalformedLiteral indicates a member mixing quoted literal text with unquoted text.
	ErrMalformedLiteral = errors.New("malformed literal in definition members")

	// ErrNoFieldSegments indicates a definition made only of literals.
	ErrNoFieldSegments = errors.New("definition has no field members")

	// ErrTooManySegments indicates a definition exceeds MaxSegments.
	ErrTooManySegments = errors.New("definition has too many members")

	// ErrTooManyWildcards indicates a name containing more than one wildcard marker.
	ErrTooManyWildcards = errors.New("name has more than one wildcard")

	// ErrUnboundTargetWildcard indicates a wildcard target with no wildcard member to bind it.
	ErrUnboundTargetWildcard = errors.New("target wildcard has no wildcard member")

	// ErrMissingSeparator indicates a composite definition configured with an empty separator.
	ErrMissingSeparator = errors.New("composite definition requires a separator")

	// ErrUnknownGroupingPolicy indicates an unrecognized grouping policy name.
	ErrUnknownGroupingPolicy = errors.New("unknown grouping policy")

	// ErrUnknownMode indicates a definition mode other than composite or virtual.
	ErrUnknownMode = errors.New("unknown definition mode")

	// ErrMarkingConflict indicates two values carry security markings that cannot be combined.
	ErrMarkingConflict = errors.New("markings cannot be combined")

	// ErrInvalidRecord indicates a record that failed to decode or validate.
	ErrInvalidRecord = errors.New("invalid record")
)
