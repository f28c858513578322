package model

import "time"

type Customer struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	FirstName  string    `json:"first_name" bson:"first_name" validate:"required,min=2,max=100"`
	LastName   string    `json:"last_name" bson:"last_name" validate:"required,min=2,max=100"`
	Email      string    `json:"email" bson:"email" validate:"required,email,max=150"`
	Phone      string    `json:"phone" bson:"phone" validate:"omitempty,e164"`
	DocumentID string    `json:"document_id" bson:"document_id" validate:"required,min=5,max=20,alphanum"`
	BirthDate  time.Time `json:"birth_date" bson:"birth_date" validate:"required"`
	Active     bool      `json:"active" bson:"active"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty" validate:"omitempty"`
}

type CustomerUpdate struct {
	FirstName string     `json:"first_name,omitempty" validate:"omitempty,min=2,max=100"`
	LastName  string     `json:"last_name,omitempty" validate:"omitempty,min=2,max=100"`
	Email     string     `json:"email,omitempty" validate:"omitempty,email,max=150"`
	Phone     *string    `json:"phone,omitempty" validate:"omitempty,e164"`
	BirthDate *time.Time `json:"birth_date,omitempty" validate:"omitempty"`
}
