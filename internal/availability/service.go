package availability

import (
	"context"
	"staybook/pkg/model"
)

// BookingReader answers whether any confirmed booking on the property
// intersects the range under inclusive boundary semantics, optionally
// ignoring one booking ID.
type BookingReader interface {
	HasConfirmedOverlap(ctx context.Context, propertyID string, r model.DateRange, excludeBookingID string) (bool, error)
}

// BlockReader answers whether any block on the property intersects the range
// under inclusive boundary semantics.
type BlockReader interface {
	HasIntersecting(ctx context.Context, propertyID string, r model.DateRange) (bool, error)
}

// Service is the availability oracle. It queries committed state on every
// call; results are never cached so a decision always reflects the latest
// persisted bookings and blocks.
type Service struct {
	bookings BookingReader
	blocks   BlockReader
}

func NewService(bookings BookingReader, blocks BlockReader) *Service {
	return &Service{bookings: bookings, blocks: blocks}
}

// CanBook reports whether the range is free for a booking on the property.
// It is false when a confirmed booking (other than excludeBookingID) or any
// block touches the range.
func (s *Service) CanBook(ctx context.Context, propertyID string, r model.DateRange, excludeBookingID string) (bool, error) {
	bookingConflict, err := s.bookings.HasConfirmedOverlap(ctx, propertyID, r, excludeBookingID)
	if err != nil {
		return false, err
	}
	if bookingConflict {
		return false, nil
	}

	blockConflict, err := s.blocks.HasIntersecting(ctx, propertyID, r)
	if err != nil {
		return false, err
	}

	return !blockConflict, nil
}

// CanBlock reports whether the range is free of confirmed bookings. The
// block-vs-block check is separate and strict; it belongs to the block
// lifecycle, which knows which block ID to exclude.
func (s *Service) CanBlock(ctx context.Context, propertyID string, r model.DateRange) (bool, error) {
	bookingConflict, err := s.bookings.HasConfirmedOverlap(ctx, propertyID, r, "")
	if err != nil {
		return false, err
	}

	return !bookingConflict, nil
}
