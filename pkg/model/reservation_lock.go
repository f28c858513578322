package model

import "time"

// ReservationLock is a short-lived advisory lock document scoped to one
// vehicle. The unique _id closes the check-then-persist race between
// concurrent bookings for the same vehicle.
type ReservationLock struct {
	ID        string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}
