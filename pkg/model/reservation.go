package model

import "time"

// Reservation holds a vehicle for a customer over the half-open window
// [StartDate, EndDate). TotalAmount is computed by the engine, never
// taken from the caller.
type Reservation struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	CustomerID  string    `json:"customer_id" bson:"customer_id" validate:"required,mongodb"`
	VehicleID   string    `json:"vehicle_id" bson:"vehicle_id" validate:"required,mongodb"`
	StartDate   time.Time `json:"start_date" bson:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" bson:"end_date" validate:"required,gtfield=StartDate"`
	TotalAmount float64   `json:"total_amount" bson:"total_amount"`
	Status      Status    `json:"status" bson:"status" validate:"omitempty,oneof=pending confirmed in_progress completed cancelled"`
	Notes       string    `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=500"`
	Active      bool      `json:"active" bson:"active"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty" validate:"omitempty"`
}

// ReservationUpdate carries the mutable fields of a reservation.
// Customer and vehicle cannot be reassigned; a reservation is re-created
// for those changes.
type ReservationUpdate struct {
	StartDate *time.Time `json:"start_date,omitempty" validate:"omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty" validate:"omitempty"`
	Notes     *string    `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// ReservationDetail is the read-model row joining a reservation with its
// customer and vehicle for display.
type ReservationDetail struct {
	ID            string    `json:"id" bson:"_id"`
	CustomerID    string    `json:"customer_id" bson:"customer_id"`
	CustomerName  string    `json:"customer_name" bson:"customer_name"`
	CustomerEmail string    `json:"customer_email" bson:"customer_email"`
	VehicleID     string    `json:"vehicle_id" bson:"vehicle_id"`
	VehicleMake   string    `json:"vehicle_make" bson:"vehicle_make"`
	VehicleModel  string    `json:"vehicle_model" bson:"vehicle_model"`
	VehiclePlate  string    `json:"vehicle_plate" bson:"vehicle_plate"`
	StartDate     time.Time `json:"start_date" bson:"start_date"`
	EndDate       time.Time `json:"end_date" bson:"end_date"`
	TotalAmount   float64   `json:"total_amount" bson:"total_amount"`
	Status        Status    `json:"status" bson:"status"`
	Notes         string    `json:"notes,omitempty" bson:"notes,omitempty"`
}
