package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrOverlap = errors.New("booking dates overlap an existing booking or block")

	ErrRebookNotAllowed = errors.New("booking can only be rebooked when cancelled")

	ErrUpdateNotAllowed = errors.New("cancelled bookings cannot be updated")
)
