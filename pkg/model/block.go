package model

import "time"

// Block is an administrative hold on a property's calendar. Blocks carry no
// status; they are created, updated in place, or deleted.
type Block struct {
	ID         string    `json:"id" bson:"_id"`
	PropertyID string    `json:"property_id" bson:"property_id"`
	Reason     string    `json:"reason" bson:"reason"`
	StartDate  time.Time `json:"start_date" bson:"start_date"`
	EndDate    time.Time `json:"end_date" bson:"end_date"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

func (b *Block) Range() DateRange {
	return DateRange{Start: b.StartDate, End: b.EndDate}
}

type BlockRequest struct {
	PropertyID string    `json:"property_id" validate:"required"`
	Reason     string    `json:"reason" validate:"required,min=2,max=200"`
	StartDate  time.Time `json:"start_date" validate:"required"`
	EndDate    time.Time `json:"end_date" validate:"required"`
}
