package domain

import "errors"

// Error taxonomy shared by all BlockStore implementations. Anything
// else coming out of a store is a storage failure and is surfaced as
// a 5xx by the HTTP layer.
var (
	// ErrNotFound means the block id is unknown.
	ErrNotFound = errors.New("block not found")

	// ErrInvalidInput means a required field is missing or malformed,
	// or a patch carries no field that applies to the block's type.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable means the store could not be reached at all
	// (client-side transport failure, httpstore only).
	ErrUnavailable = errors.New("store unavailable")
)
