package model

import (
	"errors"
	"time"
)

var ErrInvalidDateRange = errors.New("invalid date range")

// DateRange is a pair of stay dates. Bookings need at least one night
// (End strictly after Start); blocks may hold a single day (End == Start).
type DateRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: start, End: end}
}

func (r DateRange) Validate(allowSameDay bool) error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrInvalidDateRange
	}

	if r.End.After(r.Start) {
		return nil
	}

	if allowSameDay && r.Start.Equal(r.End) {
		return nil
	}

	return ErrInvalidDateRange
}
