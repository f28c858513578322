package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	reservationserrors "fleetbook/internal/reservations/errors"
	"fleetbook/pkg/config"
	"fleetbook/pkg/model"
)

const LockCollectionName = "Reservation_locks"

// LockRepository implements a per-vehicle advisory lock on top of the
// unique _id index. Only one request can hold the lock for a vehicle,
// which serializes the conflict check with the insert that follows it.
type LockRepository interface {
	Acquire(ctx context.Context, vehicleID string) error
	Release(ctx context.Context, vehicleID string) error
}

type mongoLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoLockRepository(cfg *config.Config) LockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

func lockID(vehicleID string) string {
	return "vehicle_lock_" + vehicleID
}

func (r *mongoLockRepository) Acquire(ctx context.Context, vehicleID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC()

	// Stale locks from crashed requests expire after the TTL so a
	// vehicle never stays locked forever.
	_, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":        lockID(vehicleID),
		"expires_at": bson.M{"$lt": now},
	})
	if err != nil {
		return fmt.Errorf("failed to clear expired lock: %w", err)
	}

	lock := model.ReservationLock{
		ID:        lockID(vehicleID),
		ExpiresAt: now.Add(r.cfg.LockTTL),
		CreatedAt: now,
	}

	_, err = r.collection.InsertOne(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return reservationserrors.ErrLockHeld
		}
		return fmt.Errorf("failed to acquire vehicle lock: %w", err)
	}
	return nil
}

func (r *mongoLockRepository) Release(ctx context.Context, vehicleID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID(vehicleID)})
	if err != nil {
		return fmt.Errorf("failed to release vehicle lock: %w", err)
	}
	return nil
}
