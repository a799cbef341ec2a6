package repository

import "errors"

// Error taxonomy surfaced by the repositories. Callers discriminate
// with errors.Is; anything not wrapping one of these sentinels is a
// storage-engine failure and is passed through unmodified.
var (
	// ErrNotFound signals that a referenced crop, review or factor id
	// does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict signals a uniqueness violation, e.g. a duplicate
	// factor name.
	ErrConflict = errors.New("conflicting record exists")

	// ErrValidation signals malformed or out-of-range input. Rejected
	// before any write; never partially applied.
	ErrValidation = errors.New("validation failed")
)
