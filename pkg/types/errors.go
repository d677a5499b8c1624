package types

import "errors"

// Domain errors shared across the index core
var (
	// Record validation
	ErrMissingElementID   = errors.New("element id is required")
	ErrMissingElementType = errors.New("element type is required")
	ErrUnknownElementType = errors.New("unknown element type")

	// Profile and score validation
	ErrNegativeEntropy   = errors.New("entropy must be >= 0")
	ErrTermCountMismatch = errors.New("unique term count cannot exceed total term count")
	ErrMissingPairID     = errors.New("pair id is required")
	ErrScoreOutOfRange   = errors.New("score must be between 0 and 1")

	// Relationship validation
	ErrUnknownRelationKind = errors.New("unknown relation kind")

	// Lookup
	ErrNotFound = errors.New("not found")
)
