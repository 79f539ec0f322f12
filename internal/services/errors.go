package services

import "errors"

// Sentinel errors shared across the service layer. Handlers translate these
// into HTTP status codes; background workers mostly log and move on.
var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means an optimistic write lost the race twice.
	ErrConflict = errors.New("conflicting concurrent update")

	// ErrNotDue means a threshold-gated recomputation was requested before
	// its counter reached the threshold.
	ErrNotDue = errors.New("update not due")

	// ErrInsufficientData means too few behaviors exist to derive a profile.
	ErrInsufficientData = errors.New("insufficient behavior data")

	// ErrNoLabeledUsers means no interacting user has a derived type yet.
	ErrNoLabeledUsers = errors.New("no labeled users")

	// ErrInvalidMode means a scoring-mode switch named an unknown mode.
	ErrInvalidMode = errors.New("invalid scoring mode")
)
