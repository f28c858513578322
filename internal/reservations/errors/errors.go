package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrInvalidID = errors.New("invalid reservation ID format")

	// ErrLockHeld means another request is booking the same vehicle
	// right now.
	ErrLockHeld = errors.New("vehicle reservation lock is held")
)
