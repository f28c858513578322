package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	reservationserrors "fleetbook/internal/reservations/errors"
	"fleetbook/internal/reservations/events"
	"fleetbook/internal/reservations/validator"
	vehicleserrors "fleetbook/internal/vehicles/errors"
	"fleetbook/pkg/clock"
	"fleetbook/pkg/config"
	mongotx "fleetbook/pkg/db/mongo"
	apperrors "fleetbook/pkg/errors"
	"fleetbook/pkg/logger"
	"fleetbook/pkg/model"
)

const (
	testCustomerID = "64b0c8e1f1a2b3c4d5e6f701"
	testVehicleID  = "64b0c8e1f1a2b3c4d5e6f702"
)

// testNow is the fixed clock for every test: 2026-01-15 UTC.
var testNow = time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// fakeReservationRepo is an in-memory store implementing the same
// filtering semantics the Mongo queries use.
type fakeReservationRepo struct {
	reservations map[string]*model.Reservation
	nextID       int
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{reservations: make(map[string]*model.Reservation)}
}

func (f *fakeReservationRepo) Create(_ context.Context, r *model.Reservation) error {
	f.nextID++
	r.ID = fmt.Sprintf("%024x", f.nextID)
	r.Active = true
	stored := *r
	f.reservations[r.ID] = &stored
	return nil
}

func (f *fakeReservationRepo) FindByID(_ context.Context, id string) (*model.Reservation, error) {
	r, ok := f.reservations[id]
	if !ok {
		return nil, reservationserrors.ErrNotFound
	}
	copy := *r
	return &copy, nil
}

func (f *fakeReservationRepo) FindAll(_ context.Context, _ int, _ int64) ([]*model.Reservation, error) {
	var out []*model.Reservation
	for _, r := range f.reservations {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeReservationRepo) FindByCustomer(_ context.Context, customerID string) ([]*model.Reservation, error) {
	var out []*model.Reservation
	for _, r := range f.reservations {
		if r.CustomerID == customerID && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) FindByVehicle(_ context.Context, vehicleID string) ([]*model.Reservation, error) {
	var out []*model.Reservation
	for _, r := range f.reservations {
		if r.VehicleID == vehicleID && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) FindByStatus(_ context.Context, status model.Status) ([]*model.Reservation, error) {
	var out []*model.Reservation
	for _, r := range f.reservations {
		if r.Status == status && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) FindByDateRange(_ context.Context, start, end time.Time) ([]*model.Reservation, error) {
	var out []*model.Reservation
	for _, r := range f.reservations {
		if r.Active && r.StartDate.Before(end) && start.Before(r.EndDate) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) FindActive(_ context.Context) ([]*model.Reservation, error) {
	var out []*model.Reservation
	for _, r := range f.reservations {
		if r.Active && !r.Status.IsTerminal() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) FindOverlapping(_ context.Context, vehicleID string, start, end time.Time, excludeID string) ([]*model.Reservation, error) {
	var out []*model.Reservation
	for _, r := range f.reservations {
		if r.ID == excludeID || r.VehicleID != vehicleID || !r.Active || r.Status == model.StatusCancelled {
			continue
		}
		if r.StartDate.Before(end) && start.Before(r.EndDate) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) FindDetailByID(_ context.Context, id string) (*model.ReservationDetail, error) {
	if _, ok := f.reservations[id]; !ok {
		return nil, reservationserrors.ErrNotFound
	}
	return &model.ReservationDetail{ID: id}, nil
}

func (f *fakeReservationRepo) FindAllDetails(_ context.Context, _ int, _ int64) ([]*model.ReservationDetail, error) {
	return nil, nil
}

func (f *fakeReservationRepo) Update(_ context.Context, id string, r *model.Reservation) error {
	existing, ok := f.reservations[id]
	if !ok {
		return reservationserrors.ErrNotFound
	}
	existing.StartDate = r.StartDate
	existing.EndDate = r.EndDate
	existing.TotalAmount = r.TotalAmount
	existing.Status = r.Status
	existing.Notes = r.Notes
	return nil
}

func (f *fakeReservationRepo) SoftDelete(_ context.Context, id string) error {
	r, ok := f.reservations[id]
	if !ok {
		return reservationserrors.ErrNotFound
	}
	r.Active = false
	return nil
}

func (f *fakeReservationRepo) Count(_ context.Context) (int64, error) {
	return int64(len(f.reservations)), nil
}

func (f *fakeReservationRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.SessionContext(nil))
}

type fakeLockRepo struct {
	held     map[string]bool
	acquires int
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{held: make(map[string]bool)}
}

func (f *fakeLockRepo) Acquire(_ context.Context, vehicleID string) error {
	if f.held[vehicleID] {
		return reservationserrors.ErrLockHeld
	}
	f.held[vehicleID] = true
	f.acquires++
	return nil
}

func (f *fakeLockRepo) Release(_ context.Context, vehicleID string) error {
	delete(f.held, vehicleID)
	return nil
}

type fakeCustomers struct {
	active map[string]bool
}

func (f *fakeCustomers) ExistsActive(_ context.Context, id string) (bool, error) {
	return f.active[id], nil
}

type fakeVehicles struct {
	vehicles map[string]*model.Vehicle
}

func (f *fakeVehicles) FindByID(_ context.Context, id string) (*model.Vehicle, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return nil, vehicleserrors.ErrNotFound
	}
	copy := *v
	return &copy, nil
}

type recordingPublisher struct {
	created       int
	updated       int
	statusChanged int
	cancelled     int
}

func (p *recordingPublisher) ReservationCreated(context.Context, *model.Reservation) { p.created++ }
func (p *recordingPublisher) ReservationUpdated(context.Context, *model.Reservation) { p.updated++ }
func (p *recordingPublisher) ReservationStatusChanged(context.Context, *model.Reservation, model.Status) {
	p.statusChanged++
}
func (p *recordingPublisher) ReservationCancelled(context.Context, *model.Reservation, string) {
	p.cancelled++
}
func (p *recordingPublisher) Close() error { return nil }

var _ events.Publisher = (*recordingPublisher)(nil)

type testEnv struct {
	service   ReservationService
	repo      *fakeReservationRepo
	locks     *fakeLockRepo
	customers *fakeCustomers
	vehicles  *fakeVehicles
	publisher *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		MinRenterAge: 18,
		Log:          logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard}),
	}

	env := &testEnv{
		repo:  newFakeReservationRepo(),
		locks: newFakeLockRepo(),
		customers: &fakeCustomers{active: map[string]bool{
			testCustomerID: true,
		}},
		vehicles: &fakeVehicles{vehicles: map[string]*model.Vehicle{
			testVehicleID: {
				ID:          testVehicleID,
				Make:        "Toyota",
				Model:       "Corolla",
				DailyRate:   50,
				IsAvailable: true,
				Active:      true,
			},
		}},
		publisher: &recordingPublisher{},
	}

	env.service = NewReservationService(
		env.repo,
		env.locks,
		env.customers,
		env.vehicles,
		validator.NewReservationValidator(cfg.Log),
		env.publisher,
		clock.Fixed{T: testNow},
		cfg,
	)
	return env
}

func newReservation(start, end time.Time) *model.Reservation {
	return &model.Reservation{
		CustomerID: testCustomerID,
		VehicleID:  testVehicleID,
		StartDate:  start,
		EndDate:    end,
	}
}

func TestCreateSuccessfulBooking(t *testing.T) {
	env := newTestEnv(t)

	reservation := newReservation(day(2026, 2, 10), day(2026, 2, 13))
	if err := env.service.Create(context.Background(), reservation); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if reservation.Status != model.StatusPending {
		t.Errorf("Status = %s, want %s", reservation.Status, model.StatusPending)
	}
	if reservation.TotalAmount != 150 {
		t.Errorf("TotalAmount = %v, want 150 (3 days at 50)", reservation.TotalAmount)
	}
	if reservation.ID == "" {
		t.Error("expected reservation to be assigned an ID")
	}
	if env.publisher.created != 1 {
		t.Errorf("created events = %d, want 1", env.publisher.created)
	}
	if len(env.locks.held) != 0 {
		t.Error("vehicle lock was not released")
	}
}

func TestCreateUnknownCustomer(t *testing.T) {
	env := newTestEnv(t)

	reservation := newReservation(day(2026, 2, 10), day(2026, 2, 13))
	reservation.CustomerID = "64b0c8e1f1a2b3c4d5e6f7ff"

	err := env.service.Create(context.Background(), reservation)
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("Create() error = %v, want %s", err, apperrors.CodeNotFound)
	}
	if len(env.repo.reservations) != 0 {
		t.Error("nothing should be persisted for an unknown customer")
	}
}

func TestCreateVehicleNotAvailable(t *testing.T) {
	env := newTestEnv(t)
	env.vehicles.vehicles[testVehicleID].IsAvailable = false

	err := env.service.Create(context.Background(), newReservation(day(2026, 2, 10), day(2026, 2, 13)))
	if !apperrors.HasCode(err, apperrors.CodeVehicleNotAvailable) {
		t.Fatalf("Create() error = %v, want %s", err, apperrors.CodeVehicleNotAvailable)
	}
}

func TestCreateBackdatedStart(t *testing.T) {
	env := newTestEnv(t)

	err := env.service.Create(context.Background(), newReservation(day(2026, 1, 10), day(2026, 1, 20)))
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("Create() error = %v, want %s", err, apperrors.CodeValidation)
	}
}

func TestCreateStartOnTodayAllowed(t *testing.T) {
	env := newTestEnv(t)

	// The clock reads 2026-01-15 10:30, a reservation starting that same
	// day is not backdated.
	if err := env.service.Create(context.Background(), newReservation(day(2026, 1, 15), day(2026, 1, 17))); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func TestCreateConflictRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.service.Create(ctx, newReservation(day(2026, 2, 10), day(2026, 2, 13))); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	err := env.service.Create(ctx, newReservation(day(2026, 2, 12), day(2026, 2, 14)))
	if !apperrors.HasCode(err, apperrors.CodeDateConflict) {
		t.Fatalf("second Create() error = %v, want %s", err, apperrors.CodeDateConflict)
	}
	if len(env.repo.reservations) != 1 {
		t.Errorf("reservations stored = %d, want 1", len(env.repo.reservations))
	}
}

func TestCreateAdjacentBookingAllowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.service.Create(ctx, newReservation(day(2026, 2, 10), day(2026, 2, 12))); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	// Back to back: one ends the day the other starts.
	if err := env.service.Create(ctx, newReservation(day(2026, 2, 12), day(2026, 2, 14))); err != nil {
		t.Fatalf("adjacent Create() error = %v", err)
	}
}

func TestCancelledReservationDoesNotBlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := newReservation(day(2026, 2, 10), day(2026, 2, 13))
	if err := env.service.Create(ctx, first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := env.service.Cancel(ctx, first.ID, "change of plans"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	if err := env.service.Create(ctx, newReservation(day(2026, 2, 10), day(2026, 2, 13))); err != nil {
		t.Fatalf("rebooking after cancel error = %v", err)
	}
}

func TestFullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reservation := newReservation(day(2026, 2, 10), day(2026, 2, 13))
	if err := env.service.Create(ctx, reservation); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, next := range []model.Status{
		model.StatusConfirmed,
		model.StatusInProgress,
		model.StatusCompleted,
	} {
		if err := env.service.ChangeStatus(ctx, reservation.ID, next); err != nil {
			t.Fatalf("ChangeStatus(%s) error = %v", next, err)
		}
	}

	stored, err := env.service.GetByID(ctx, reservation.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Status != model.StatusCompleted {
		t.Errorf("Status = %s, want %s", stored.Status, model.StatusCompleted)
	}
	if env.publisher.statusChanged != 3 {
		t.Errorf("status change events = %d, want 3", env.publisher.statusChanged)
	}

	err = env.service.Cancel(ctx, reservation.ID, "too late")
	if !apperrors.HasCode(err, apperrors.CodeCannotCancelCompleted) {
		t.Fatalf("Cancel() on completed error = %v, want %s", err, apperrors.CodeCannotCancelCompleted)
	}
}

func TestChangeStatusInvalidTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reservation := newReservation(day(2026, 2, 10), day(2026, 2, 13))
	if err := env.service.Create(ctx, reservation); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Skipping ahead in the lifecycle and repeating the current state are
	// both rejected.
	for _, to := range []model.Status{model.StatusCompleted, model.StatusInProgress, model.StatusPending} {
		err := env.service.ChangeStatus(ctx, reservation.ID, to)
		if !apperrors.HasCode(err, apperrors.CodeInvalidStateTransition) {
			t.Errorf("ChangeStatus(pending -> %s) error = %v, want %s", to, err, apperrors.CodeInvalidStateTransition)
		}
	}

	if err := env.service.ChangeStatus(ctx, reservation.ID, "teleported"); err == nil {
		t.Error("unknown status should be rejected")
	}
}

func TestCancelAlreadyCancelled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reservation := newReservation(day(2026, 2, 10), day(2026, 2, 13))
	if err := env.service.Create(ctx, reservation); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := env.service.Cancel(ctx, reservation.ID, "first"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	err := env.service.Cancel(ctx, reservation.ID, "second")
	if !apperrors.HasCode(err, apperrors.CodeAlreadyCancelled) {
		t.Fatalf("second Cancel() error = %v, want %s", err, apperrors.CodeAlreadyCancelled)
	}
}

func TestCancelAppendsReasonToNotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reservation := newReservation(day(2026, 2, 10), day(2026, 2, 13))
	reservation.Notes = "airport pickup"
	if err := env.service.Create(ctx, reservation); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := env.service.Cancel(ctx, reservation.ID, "flight moved"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	stored, _ := env.service.GetByID(ctx, reservation.ID)
	want := "airport pickup | Cancelled: flight moved"
	if stored.Notes != want {
		t.Errorf("Notes = %q, want %q", stored.Notes, want)
	}
}

func TestUpdateReschedulesAndReprices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reservation := newReservation(day(2026, 2, 10), day(2026, 2, 13))
	if err := env.service.Create(ctx, reservation); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newStart, newEnd := day(2026, 3, 1), day(2026, 3, 6)
	err := env.service.Update(ctx, reservation.ID, &model.ReservationUpdate{
		StartDate: &newStart,
		EndDate:   &newEnd,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	stored, _ := env.service.GetByID(ctx, reservation.ID)
	if !stored.StartDate.Equal(newStart) || !stored.EndDate.Equal(newEnd) {
		t.Errorf("window = [%v, %v), want [%v, %v)", stored.StartDate, stored.EndDate, newStart, newEnd)
	}
	if stored.TotalAmount != 250 {
		t.Errorf("TotalAmount = %v, want 250 (5 days at 50)", stored.TotalAmount)
	}
}

func TestUpdateDoesNotConflictWithItself(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reservation := newReservation(day(2026, 2, 10), day(2026, 2, 13))
	if err := env.service.Create(ctx, reservation); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Extending by one day overlaps the reservation's own window, which
	// must not count as a conflict.
	newEnd := day(2026, 2, 14)
	if err := env.service.Update(ctx, reservation.ID, &model.ReservationUpdate{EndDate: &newEnd}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
}

func TestUpdateRejectsConflictingReschedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := newReservation(day(2026, 2, 10), day(2026, 2, 13))
	second := newReservation(day(2026, 2, 20), day(2026, 2, 23))
	if err := env.service.Create(ctx, first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := env.service.Create(ctx, second); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newStart, newEnd := day(2026, 2, 11), day(2026, 2, 12)
	err := env.service.Update(ctx, second.ID, &model.ReservationUpdate{
		StartDate: &newStart,
		EndDate:   &newEnd,
	})
	if !apperrors.HasCode(err, apperrors.CodeDateConflict) {
		t.Fatalf("Update() error = %v, want %s", err, apperrors.CodeDateConflict)
	}

	stored, _ := env.service.GetByID(ctx, second.ID)
	if !stored.StartDate.Equal(day(2026, 2, 20)) {
		t.Error("failed reschedule must leave the stored window unchanged")
	}
}

func TestLockContentionSurfacesAsConflict(t *testing.T) {
	env := newTestEnv(t)
	env.locks.held[testVehicleID] = true

	err := env.service.Create(context.Background(), newReservation(day(2026, 2, 10), day(2026, 2, 13)))
	if !apperrors.HasCode(err, apperrors.CodeDateConflict) {
		t.Fatalf("Create() under contention error = %v, want %s", err, apperrors.CodeDateConflict)
	}
}

func TestQuote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	total, err := env.service.Quote(ctx, testVehicleID, day(2026, 2, 10), day(2026, 2, 13))
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if total != 150 {
		t.Errorf("Quote = %v, want 150", total)
	}

	if _, err := env.service.Quote(ctx, testVehicleID, day(2026, 2, 13), day(2026, 2, 13)); err == nil {
		t.Error("zero-day quote should be rejected")
	}
}

func TestIsVehicleAvailable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.service.Create(ctx, newReservation(day(2026, 2, 10), day(2026, 2, 13))); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	available, err := env.service.IsVehicleAvailable(ctx, testVehicleID, day(2026, 2, 11), day(2026, 2, 12))
	if err != nil {
		t.Fatalf("IsVehicleAvailable() error = %v", err)
	}
	if available {
		t.Error("overlapping window should not be available")
	}

	available, err = env.service.IsVehicleAvailable(ctx, testVehicleID, day(2026, 2, 13), day(2026, 2, 15))
	if err != nil {
		t.Fatalf("IsVehicleAvailable() error = %v", err)
	}
	if !available {
		t.Error("window after the reservation should be available")
	}
}
