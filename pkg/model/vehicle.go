package model

import "time"

type Vehicle struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Make        string    `json:"make" bson:"make" validate:"required,min=2,max=50"`
	Model       string    `json:"model" bson:"model" validate:"required,min=1,max=50"`
	Year        int       `json:"year" bson:"year" validate:"required,min=1950,max=2100"`
	Plate       string    `json:"plate" bson:"plate" validate:"required,plate"`
	Color       string    `json:"color" bson:"color" validate:"omitempty,max=30"`
	Category    string    `json:"category" bson:"category" validate:"required,oneof=sedan suv hatchback pickup van sports"`
	Mileage     int       `json:"mileage" bson:"mileage" validate:"omitempty,min=0"`
	DailyRate   float64   `json:"daily_rate" bson:"daily_rate" validate:"required,gt=0"`
	IsAvailable bool      `json:"is_available" bson:"is_available"`
	Active      bool      `json:"active" bson:"active"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty" validate:"omitempty"`
}

type VehicleUpdate struct {
	Make      string   `json:"make,omitempty" validate:"omitempty,min=2,max=50"`
	Model     string   `json:"model,omitempty" validate:"omitempty,min=1,max=50"`
	Year      *int     `json:"year,omitempty" validate:"omitempty,min=1950,max=2100"`
	Color     string   `json:"color,omitempty" validate:"omitempty,max=30"`
	Category  string   `json:"category,omitempty" validate:"omitempty,oneof=sedan suv hatchback pickup van sports"`
	Mileage   *int     `json:"mileage,omitempty" validate:"omitempty,min=0"`
	DailyRate *float64 `json:"daily_rate,omitempty" validate:"omitempty,gt=0"`
}
