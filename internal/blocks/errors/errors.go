package errors

import "errors"

var (
	ErrNotFound = errors.New("block not found")

	ErrOverlap = errors.New("block dates overlap an existing booking or block")
)
