package model

import (
	"time"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) IsCancelled() bool {
	return s == BookingCancelled
}

type Booking struct {
	ID           string        `json:"id" bson:"_id"`
	PropertyID   string        `json:"property_id" bson:"property_id"`
	StartDate    time.Time     `json:"start_date" bson:"start_date"`
	EndDate      time.Time     `json:"end_date" bson:"end_date"`
	Guest        string        `json:"guest" bson:"guest"`
	NumberGuests int           `json:"number_guests" bson:"number_guests"`
	Status       BookingStatus `json:"status" bson:"status"`
	CreatedAt    time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" bson:"updated_at"`
}

func (b *Booking) Range() DateRange {
	return DateRange{Start: b.StartDate, End: b.EndDate}
}

// BookingRequest is the create payload. The idempotency key travels in the
// Idempotency-Key header, not the body.
type BookingRequest struct {
	PropertyID   string    `json:"property_id" validate:"required"`
	StartDate    time.Time `json:"start_date" validate:"required"`
	EndDate      time.Time `json:"end_date" validate:"required"`
	Guest        string    `json:"guest" validate:"required,min=2,max=100"`
	NumberGuests int       `json:"number_guests" validate:"required,min=1,max=50"`
}

// BookingUpdate carries partial updates; absent, blank, or non-positive
// fields keep their current values.
type BookingUpdate struct {
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Guest        string     `json:"guest,omitempty" validate:"omitempty,min=2,max=100"`
	NumberGuests int        `json:"number_guests,omitempty" validate:"omitempty,min=1,max=50"`
}

type RebookRequest struct {
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}
