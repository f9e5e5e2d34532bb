package model

import "time"

type Property struct {
	ID          string    `json:"id" bson:"_id"`
	Alias       string    `json:"alias" bson:"alias"`
	Description string    `json:"description" bson:"description"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

type PropertyRequest struct {
	Alias       string `json:"alias" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
}
