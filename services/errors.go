package services

import "errors"

// ErrNotFound marks lookups for records that do not exist.
var ErrNotFound = errors.New("not found")

// ValidationError carries a caller-facing message for malformed input.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// ConflictError carries a caller-facing message for writes rejected by a
// business invariant (overlapping special rate, last base rate).
type ConflictError string

func (e ConflictError) Error() string { return string(e) }
