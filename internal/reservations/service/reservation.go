package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	customerserrors "fleetbook/internal/customers/errors"
	reservationserrors "fleetbook/internal/reservations/errors"
	"fleetbook/internal/reservations/events"
	"fleetbook/internal/reservations/repository"
	"fleetbook/internal/reservations/validator"
	vehicleserrors "fleetbook/internal/vehicles/errors"
	"fleetbook/pkg/clock"
	"fleetbook/pkg/config"
	apperrors "fleetbook/pkg/errors"
	"fleetbook/pkg/model"
)

// CustomerDirectory is the slice of the customer store the engine needs:
// whether a customer exists and is active.
type CustomerDirectory interface {
	ExistsActive(ctx context.Context, id string) (bool, error)
}

// VehicleCatalog is the slice of the vehicle store the engine needs.
type VehicleCatalog interface {
	FindByID(ctx context.Context, id string) (*model.Vehicle, error)
}

type ReservationService interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, int64, error)
	GetByCustomer(ctx context.Context, customerID string) ([]*model.Reservation, error)
	GetByVehicle(ctx context.Context, vehicleID string) ([]*model.Reservation, error)
	GetByStatus(ctx context.Context, status model.Status) ([]*model.Reservation, error)
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*model.Reservation, error)
	GetActive(ctx context.Context) ([]*model.Reservation, error)
	GetDetail(ctx context.Context, id string) (*model.ReservationDetail, error)
	GetAllDetails(ctx context.Context, limit int, offset int64) ([]*model.ReservationDetail, error)
	Update(ctx context.Context, id string, updates *model.ReservationUpdate) error
	ChangeStatus(ctx context.Context, id string, to model.Status) error
	Cancel(ctx context.Context, id string, reason string) error
	Delete(ctx context.Context, id string) error
	Quote(ctx context.Context, vehicleID string, start, end time.Time) (float64, error)
	IsVehicleAvailable(ctx context.Context, vehicleID string, start, end time.Time) (bool, error)
}

type reservationService struct {
	repo      repository.ReservationRepository
	locks     repository.LockRepository
	customers CustomerDirectory
	vehicles  VehicleCatalog
	validator *validator.ReservationValidator
	publisher events.Publisher
	clock     clock.Clock
	cfg       *config.Config
}

func NewReservationService(
	repo repository.ReservationRepository,
	locks repository.LockRepository,
	customers CustomerDirectory,
	vehicles VehicleCatalog,
	v *validator.ReservationValidator,
	publisher events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:      repo,
		locks:     locks,
		customers: customers,
		vehicles:  vehicles,
		validator: v,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
	}
}

// Create books a vehicle for a customer. Checks run in a fixed order so
// callers always get the most fundamental failure first: unknown customer,
// unknown or unavailable vehicle, bad dates, then date conflicts. The
// conflict check and the insert run under a per-vehicle lock inside one
// transaction, two requests racing for the same vehicle serialize and the
// loser sees the winner's reservation.
func (s *reservationService) Create(ctx context.Context, reservation *model.Reservation) error {
	reservation.StartDate = dayUTC(reservation.StartDate)
	reservation.EndDate = dayUTC(reservation.EndDate)
	reservation.Status = model.StatusPending

	if err := s.validator.Validate(reservation); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "vehicle_id", reservation.VehicleID, "error", err)
		return apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.checkCustomer(ctx, reservation.CustomerID); err != nil {
		return err
	}

	vehicle, err := s.checkVehicle(ctx, reservation.VehicleID)
	if err != nil {
		return err
	}

	if err := s.checkWindow(reservation.StartDate, reservation.EndDate); err != nil {
		return err
	}

	days := durationDays(reservation.StartDate, reservation.EndDate)
	reservation.TotalAmount = float64(days) * vehicle.DailyRate

	if err := s.locks.Acquire(ctx, reservation.VehicleID); err != nil {
		return s.translateLockError(err, reservation.VehicleID)
	}
	defer s.releaseLock(ctx, reservation.VehicleID)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		conflict, err := s.hasConflict(sessCtx, reservation.VehicleID, reservation.StartDate, reservation.EndDate, "")
		if err != nil {
			return err
		}
		if conflict {
			return apperrors.Rule(apperrors.CodeDateConflict, "The vehicle is already reserved for the selected dates")
		}
		if err := s.repo.Create(sessCtx, reservation); err != nil {
			return apperrors.Internal("Failed to create reservation", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create reservation",
			"customer_id", reservation.CustomerID,
			"vehicle_id", reservation.VehicleID,
			"error", err)
		return err
	}

	s.cfg.Log.Info("Reservation created successfully",
		"id", reservation.ID,
		"vehicle_id", reservation.VehicleID,
		"start_date", reservation.StartDate,
		"end_date", reservation.EndDate,
		"total_amount", reservation.TotalAmount,
	)
	s.publisher.ReservationCreated(ctx, reservation)
	return nil
}

func (s *reservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateLookupError(err, id)
	}
	return reservation, nil
}

func (s *reservationService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, int64, error) {
	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count reservations", "error", errCount)
			errCount = apperrors.Internal("Failed to count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list reservations", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve reservations", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return reservations, count, nil
}

func (s *reservationService) GetByCustomer(ctx context.Context, customerID string) ([]*model.Reservation, error) {
	if customerID == "" {
		return nil, apperrors.InvalidInput("Customer ID cannot be empty")
	}

	reservations, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		s.cfg.Log.Error("Failed to list reservations by customer", "customer_id", customerID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve reservations", err)
	}
	return reservations, nil
}

func (s *reservationService) GetByVehicle(ctx context.Context, vehicleID string) ([]*model.Reservation, error) {
	if vehicleID == "" {
		return nil, apperrors.InvalidInput("Vehicle ID cannot be empty")
	}

	reservations, err := s.repo.FindByVehicle(ctx, vehicleID)
	if err != nil {
		s.cfg.Log.Error("Failed to list reservations by vehicle", "vehicle_id", vehicleID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve reservations", err)
	}
	return reservations, nil
}

func (s *reservationService) GetByStatus(ctx context.Context, status model.Status) ([]*model.Reservation, error) {
	if !status.IsValid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Unknown status %q, must be one of: %v", status, model.Statuses()))
	}

	reservations, err := s.repo.FindByStatus(ctx, status)
	if err != nil {
		s.cfg.Log.Error("Failed to list reservations by status", "status", status, "error", err)
		return nil, apperrors.Internal("Failed to retrieve reservations", err)
	}
	return reservations, nil
}

func (s *reservationService) GetByDateRange(ctx context.Context, start, end time.Time) ([]*model.Reservation, error) {
	start, end = dayUTC(start), dayUTC(end)
	if !start.Before(end) {
		return nil, apperrors.InvalidInput("End date must be after start date")
	}

	reservations, err := s.repo.FindByDateRange(ctx, start, end)
	if err != nil {
		s.cfg.Log.Error("Failed to list reservations by date range", "error", err)
		return nil, apperrors.Internal("Failed to retrieve reservations", err)
	}
	return reservations, nil
}

func (s *reservationService) GetActive(ctx context.Context) ([]*model.Reservation, error) {
	reservations, err := s.repo.FindActive(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list active reservations", "error", err)
		return nil, apperrors.Internal("Failed to retrieve active reservations", err)
	}
	return reservations, nil
}

func (s *reservationService) GetDetail(ctx context.Context, id string) (*model.ReservationDetail, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, s.translateLookupError(err, id)
	}
	return detail, nil
}

func (s *reservationService) GetAllDetails(ctx context.Context, limit int, offset int64) ([]*model.ReservationDetail, error) {
	details, err := s.repo.FindAllDetails(ctx, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list reservation details", "error", err)
		return nil, apperrors.Internal("Failed to retrieve reservation details", err)
	}
	return details, nil
}

// Update reschedules a reservation or edits its notes. When either date
// changes the window is re-validated, the price recomputed from the current
// daily rate, and the conflict check re-run excluding the reservation
// itself. Everything persists in a single write.
func (s *reservationService) Update(ctx context.Context, id string, updates *model.ReservationUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.translateLookupError(err, id)
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Reservation update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := *existing
	datesChanged := false
	if updates.StartDate != nil {
		merged.StartDate = dayUTC(*updates.StartDate)
		datesChanged = true
	}
	if updates.EndDate != nil {
		merged.EndDate = dayUTC(*updates.EndDate)
		datesChanged = true
	}
	if updates.Notes != nil {
		merged.Notes = strings.TrimSpace(*updates.Notes)
	}

	if datesChanged {
		if merged.Status.IsTerminal() {
			return apperrors.Rule(apperrors.CodeInvalidStateTransition,
				fmt.Sprintf("Cannot reschedule a %s reservation", merged.Status))
		}
		if err := s.checkWindow(merged.StartDate, merged.EndDate); err != nil {
			return err
		}

		vehicle, err := s.checkVehicle(ctx, merged.VehicleID)
		if err != nil {
			return err
		}
		merged.TotalAmount = float64(durationDays(merged.StartDate, merged.EndDate)) * vehicle.DailyRate

		if err := s.locks.Acquire(ctx, merged.VehicleID); err != nil {
			return s.translateLockError(err, merged.VehicleID)
		}
		defer s.releaseLock(ctx, merged.VehicleID)

		err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			conflict, err := s.hasConflict(sessCtx, merged.VehicleID, merged.StartDate, merged.EndDate, id)
			if err != nil {
				return err
			}
			if conflict {
				return apperrors.Rule(apperrors.CodeDateConflict, "The vehicle is already reserved for the selected dates")
			}
			if err := s.repo.Update(sessCtx, id, &merged); err != nil {
				return apperrors.Internal("Failed to update reservation", err)
			}
			return nil
		})
		if err != nil {
			s.cfg.Log.Error("Failed to update reservation", "id", id, "error", err)
			return err
		}
	} else {
		if err := s.repo.Update(ctx, id, &merged); err != nil {
			s.cfg.Log.Error("Failed to update reservation", "id", id, "error", err)
			return apperrors.Internal("Failed to update reservation", err)
		}
	}

	merged.ID = id
	s.cfg.Log.Info("Reservation updated successfully", "id", id, "dates_changed", datesChanged)
	s.publisher.ReservationUpdated(ctx, &merged)
	return nil
}

// ChangeStatus moves a reservation along its lifecycle. Transitions not in
// the table are rejected, including same-state requests and anything out of
// a terminal state.
func (s *reservationService) ChangeStatus(ctx context.Context, id string, to model.Status) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	if !to.IsValid() {
		return apperrors.InvalidInput(fmt.Sprintf("Unknown status %q, must be one of: %v", to, model.Statuses()))
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.translateLookupError(err, id)
	}

	from := existing.Status
	if !model.CanTransition(from, to) {
		return apperrors.Rule(apperrors.CodeInvalidStateTransition,
			fmt.Sprintf("Cannot change status from %s to %s", from, to))
	}

	existing.Status = to
	if err := s.repo.Update(ctx, id, existing); err != nil {
		s.cfg.Log.Error("Failed to change reservation status", "id", id, "error", err)
		return apperrors.Internal("Failed to change reservation status", err)
	}

	s.cfg.Log.Info("Reservation status changed", "id", id, "from", from, "to", to)
	s.publisher.ReservationStatusChanged(ctx, existing, from)
	return nil
}

// Cancel terminates a reservation from any non-terminal state. The reason
// is appended to the notes so the history of the reservation stays on the
// record itself.
func (s *reservationService) Cancel(ctx context.Context, id string, reason string) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.translateLookupError(err, id)
	}

	switch existing.Status {
	case model.StatusCancelled:
		return apperrors.Rule(apperrors.CodeAlreadyCancelled, "Reservation is already cancelled")
	case model.StatusCompleted:
		return apperrors.Rule(apperrors.CodeCannotCancelCompleted, "A completed reservation cannot be cancelled")
	}

	from := existing.Status
	existing.Status = model.StatusCancelled
	existing.Notes = appendCancellationNote(existing.Notes, reason)

	if err := s.repo.Update(ctx, id, existing); err != nil {
		s.cfg.Log.Error("Failed to cancel reservation", "id", id, "error", err)
		return apperrors.Internal("Failed to cancel reservation", err)
	}

	s.cfg.Log.Info("Reservation cancelled", "id", id, "from", from, "reason", reason)
	s.publisher.ReservationCancelled(ctx, existing, reason)
	return nil
}

// Delete is a soft delete: the record stays for reporting but no longer
// blocks the vehicle.
func (s *reservationService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return s.translateLookupError(err, id)
	}

	s.cfg.Log.Info("Reservation deactivated", "id", id)
	return nil
}

// Quote prices a window without booking it: whole days times the vehicle's
// current daily rate.
func (s *reservationService) Quote(ctx context.Context, vehicleID string, start, end time.Time) (float64, error) {
	vehicle, err := s.lookupVehicle(ctx, vehicleID)
	if err != nil {
		return 0, err
	}

	start, end = dayUTC(start), dayUTC(end)
	days := durationDays(start, end)
	if days <= 0 {
		return 0, apperrors.Validation("Number of days must be greater than zero", map[string]any{
			"start_date": start,
			"end_date":   end,
		})
	}
	return float64(days) * vehicle.DailyRate, nil
}

// IsVehicleAvailable reports whether a vehicle is free over [start, end).
// An unavailable or inactive vehicle is never free, regardless of conflicts.
func (s *reservationService) IsVehicleAvailable(ctx context.Context, vehicleID string, start, end time.Time) (bool, error) {
	vehicle, err := s.lookupVehicle(ctx, vehicleID)
	if err != nil {
		return false, err
	}

	start, end = dayUTC(start), dayUTC(end)
	if err := s.checkWindow(start, end); err != nil {
		return false, err
	}
	if !vehicle.Active || !vehicle.IsAvailable {
		return false, nil
	}

	conflict, err := s.hasConflict(ctx, vehicleID, start, end, "")
	if err != nil {
		return false, err
	}
	return !conflict, nil
}

// --- Helpers ---

func (s *reservationService) checkCustomer(ctx context.Context, customerID string) error {
	exists, err := s.customers.ExistsActive(ctx, customerID)
	if err != nil {
		if errors.Is(err, customerserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid customer ID format")
		}
		return apperrors.Internal("Failed to check customer", err)
	}
	if !exists {
		return apperrors.NotFoundWithID("Customer", customerID)
	}
	return nil
}

// checkVehicle resolves the vehicle and enforces that it can be booked at
// all. Availability of the window is a separate, later concern.
func (s *reservationService) checkVehicle(ctx context.Context, vehicleID string) (*model.Vehicle, error) {
	vehicle, err := s.lookupVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if !vehicle.Active {
		return nil, apperrors.NotFoundWithID("Vehicle", vehicleID)
	}
	if !vehicle.IsAvailable {
		return nil, apperrors.Rule(apperrors.CodeVehicleNotAvailable, "The vehicle is not available for rental")
	}
	return vehicle, nil
}

func (s *reservationService) lookupVehicle(ctx context.Context, vehicleID string) (*model.Vehicle, error) {
	vehicle, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, vehicleserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Vehicle", vehicleID)
		}
		if errors.Is(err, vehicleserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid vehicle ID format")
		}
		return nil, apperrors.Internal("Failed to access vehicle store", err)
	}
	return vehicle, nil
}

// checkWindow enforces the date rules on a day-truncated window: the end
// must come after the start and the start cannot be in the past.
func (s *reservationService) checkWindow(start, end time.Time) error {
	if !start.Before(end) {
		return apperrors.Validation("End date must be after start date", map[string]any{
			"start_date": start,
			"end_date":   end,
		})
	}
	today := dayUTC(s.clock.Now())
	if start.Before(today) {
		return apperrors.Validation("Start date cannot be in the past", map[string]any{
			"start_date": start,
			"today":      today,
		})
	}
	return nil
}

// hasConflict asks the store for blocking reservations and re-checks each
// candidate in memory with the half-open rule.
func (s *reservationService) hasConflict(ctx context.Context, vehicleID string, start, end time.Time, excludeID string) (bool, error) {
	if !start.Before(end) {
		return false, apperrors.Validation("End date must be after start date", map[string]any{
			"start_date": start,
			"end_date":   end,
		})
	}
	overlapping, err := s.repo.FindOverlapping(ctx, vehicleID, start, end, excludeID)
	if err != nil {
		return false, apperrors.Internal("Failed to check reservation conflicts", err)
	}
	for _, r := range overlapping {
		if Overlaps(r.StartDate, r.EndDate, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (s *reservationService) translateLockError(err error, vehicleID string) error {
	if errors.Is(err, reservationserrors.ErrLockHeld) {
		s.cfg.Log.Warn("Vehicle lock contention", "vehicle_id", vehicleID)
		return apperrors.Rule(apperrors.CodeDateConflict, "The vehicle is being reserved by another request, try again")
	}
	return apperrors.Internal("Failed to acquire vehicle lock", err)
}

func (s *reservationService) releaseLock(ctx context.Context, vehicleID string) {
	if err := s.locks.Release(ctx, vehicleID); err != nil {
		s.cfg.Log.Error("Failed to release vehicle lock", "vehicle_id", vehicleID, "error", err)
	}
}

func (s *reservationService) translateLookupError(err error, id string) error {
	if errors.Is(err, reservationserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Reservation", id)
	}
	if errors.Is(err, reservationserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid reservation ID format")
	}
	return apperrors.Internal("Failed to access reservation store", err)
}

// appendCancellationNote folds the cancellation reason into the notes,
// joining previous notes with " | " so nothing is overwritten.
func appendCancellationNote(notes, reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return notes
	}
	note := "Cancelled: " + reason
	if notes == "" {
		return note
	}
	return notes + " | " + note
}
