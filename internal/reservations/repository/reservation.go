package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	reservationserrors "fleetbook/internal/reservations/errors"
	"fleetbook/pkg/config"
	mongotx "fleetbook/pkg/db/mongo"
	"fleetbook/pkg/model"
)

const (
	CollectionName = "Reservations"

	customersCollection = "Customers"
	vehiclesCollection  = "Vehicles"
)

type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, error)
	FindByCustomer(ctx context.Context, customerID string) ([]*model.Reservation, error)
	FindByVehicle(ctx context.Context, vehicleID string) ([]*model.Reservation, error)
	FindByStatus(ctx context.Context, status model.Status) ([]*model.Reservation, error)
	FindByDateRange(ctx context.Context, start, end time.Time) ([]*model.Reservation, error)
	FindActive(ctx context.Context) ([]*model.Reservation, error)
	FindOverlapping(ctx context.Context, vehicleID string, start, end time.Time, excludeID string) ([]*model.Reservation, error)
	FindDetailByID(ctx context.Context, id string) (*model.ReservationDetail, error)
	FindAllDetails(ctx context.Context, limit int, offset int64) ([]*model.ReservationDetail, error)
	Update(ctx context.Context, id string, reservation *model.Reservation) error
	SoftDelete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoReservationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout bounds single operations. Inside a transaction the session
// context passes through untouched, wrapping it would break the session.
func (r *mongoReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	reservation.Active = true
	reservation.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, reservation)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		reservation.ID = oid.Hex()
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	var reservation model.Reservation
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}
	return &reservation, nil
}

func (r *mongoReservationRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "start_date", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)
	return r.findMany(ctx, bson.M{}, opts)
}

func (r *mongoReservationRepository) FindByCustomer(ctx context.Context, customerID string) ([]*model.Reservation, error) {
	filter := bson.M{"customer_id": customerID, "active": true}
	return r.findMany(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_date", Value: -1}}))
}

func (r *mongoReservationRepository) FindByVehicle(ctx context.Context, vehicleID string) ([]*model.Reservation, error) {
	filter := bson.M{"vehicle_id": vehicleID, "active": true}
	return r.findMany(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_date", Value: -1}}))
}

func (r *mongoReservationRepository) FindByStatus(ctx context.Context, status model.Status) ([]*model.Reservation, error) {
	filter := bson.M{"status": status, "active": true}
	return r.findMany(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_date", Value: -1}}))
}

// FindByDateRange returns active reservations whose window overlaps the
// half-open range [start, end).
func (r *mongoReservationRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]*model.Reservation, error) {
	filter := bson.M{
		"active":     true,
		"start_date": bson.M{"$lt": end},
		"end_date":   bson.M{"$gt": start},
	}
	return r.findMany(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}}))
}

// FindActive returns reservations still in flight, that is anything not
// completed or cancelled.
func (r *mongoReservationRepository) FindActive(ctx context.Context) ([]*model.Reservation, error) {
	filter := bson.M{
		"active": true,
		"status": bson.M{"$in": []model.Status{
			model.StatusPending,
			model.StatusConfirmed,
			model.StatusInProgress,
		}},
	}
	return r.findMany(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}}))
}

// FindOverlapping returns blocking reservations for a vehicle whose window
// intersects [start, end). Cancelled reservations never block. excludeID
// lets an update skip the reservation being rescheduled.
func (r *mongoReservationRepository) FindOverlapping(ctx context.Context, vehicleID string, start, end time.Time, excludeID string) ([]*model.Reservation, error) {
	filter := bson.M{
		"vehicle_id": vehicleID,
		"active":     true,
		"status":     bson.M{"$ne": model.StatusCancelled},
		"start_date": bson.M{"$lt": end},
		"end_date":   bson.M{"$gt": start},
	}
	if excludeID != "" {
		objectID, err := primitive.ObjectIDFromHex(excludeID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, excludeID)
		}
		filter["_id"] = bson.M{"$ne": objectID}
	}
	return r.findMany(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}}))
}

func (r *mongoReservationRepository) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}
	return reservations, nil
}

func (r *mongoReservationRepository) FindDetailByID(ctx context.Context, id string) (*model.ReservationDetail, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	pipeline := detailPipeline(bson.M{"_id": objectID}, 0, 0)
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate reservation detail: %w", err)
	}
	defer cursor.Close(ctx)

	var details []*model.ReservationDetail
	if err = cursor.All(ctx, &details); err != nil {
		return nil, fmt.Errorf("failed to decode reservation detail: %w", err)
	}
	if len(details) == 0 {
		return nil, reservationserrors.ErrNotFound
	}
	return details[0], nil
}

func (r *mongoReservationRepository) FindAllDetails(ctx context.Context, limit int, offset int64) ([]*model.ReservationDetail, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := detailPipeline(bson.M{"active": true}, int64(limit), offset)
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate reservation details: %w", err)
	}
	defer cursor.Close(ctx)

	var details []*model.ReservationDetail
	if err = cursor.All(ctx, &details); err != nil {
		return nil, fmt.Errorf("failed to decode reservation details: %w", err)
	}
	return details, nil
}

// detailPipeline joins a reservation with its customer and vehicle.
// Reservations store the referenced IDs as hex strings, so they are
// converted to ObjectIDs before the lookup.
func detailPipeline(match bson.M, limit, offset int64) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "start_date", Value: -1}}}},
	}
	if offset > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: offset}})
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$addFields", Value: bson.M{
			"customer_oid": bson.M{"$toObjectId": "$customer_id"},
			"vehicle_oid":  bson.M{"$toObjectId": "$vehicle_id"},
		}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         customersCollection,
			"localField":   "customer_oid",
			"foreignField": "_id",
			"as":           "customer",
		}}},
		bson.D{{Key: "$unwind", Value: "$customer"}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         vehiclesCollection,
			"localField":   "vehicle_oid",
			"foreignField": "_id",
			"as":           "vehicle",
		}}},
		bson.D{{Key: "$unwind", Value: "$vehicle"}},
		bson.D{{Key: "$project", Value: bson.M{
			"_id":            bson.M{"$toString": "$_id"},
			"customer_id":    1,
			"customer_name":  bson.M{"$concat": bson.A{"$customer.first_name", " ", "$customer.last_name"}},
			"customer_email": "$customer.email",
			"vehicle_id":     1,
			"vehicle_make":   "$vehicle.make",
			"vehicle_model":  "$vehicle.model",
			"vehicle_plate":  "$vehicle.plate",
			"start_date":     1,
			"end_date":       1,
			"total_amount":   1,
			"status":         1,
			"notes":          1,
		}}},
	)
	return pipeline
}

func (r *mongoReservationRepository) Update(ctx context.Context, id string, reservation *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"start_date":   reservation.StartDate,
			"end_date":     reservation.EndDate,
			"total_amount": reservation.TotalAmount,
			"status":       reservation.Status,
			"notes":        reservation.Notes,
			"updated_at":   time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	if result.MatchedCount == 0 {
		return reservationserrors.ErrNotFound
	}
	return nil
}

// SoftDelete flips the active flag. The record remains for reporting but
// stops blocking new reservations.
func (r *mongoReservationRepository) SoftDelete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	update := bson.M{"$set": bson.M{
		"active":     false,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	if result.MatchedCount == 0 {
		return reservationserrors.ErrNotFound
	}
	return nil
}

func (r *mongoReservationRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return count, nil
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
