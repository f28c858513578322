package service

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"

	vehicleserrors "fleetbook/internal/vehicles/errors"
	"fleetbook/internal/vehicles/repository"
	"fleetbook/internal/vehicles/validator"
	"fleetbook/pkg/config"
	apperrors "fleetbook/pkg/errors"
	"fleetbook/pkg/model"
	"fleetbook/pkg/sanitizer"
)

type VehicleService interface {
	Create(ctx context.Context, vehicle *model.Vehicle) error
	GetByID(ctx context.Context, id string) (*model.Vehicle, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Vehicle, int64, error)
	GetAvailable(ctx context.Context) ([]*model.Vehicle, error)
	GetByPlate(ctx context.Context, plate string) (*model.Vehicle, error)
	GetByCategory(ctx context.Context, category string) ([]*model.Vehicle, error)
	GetByPriceRange(ctx context.Context, minRate, maxRate float64) ([]*model.Vehicle, error)
	Update(ctx context.Context, id string, updates *model.VehicleUpdate) error
	SetAvailability(ctx context.Context, id string, available bool) error
	Delete(ctx context.Context, id string) error
}

type vehicleService struct {
	repo      repository.VehicleRepository
	validator *validator.VehicleValidator
	cfg       *config.Config
}

func NewVehicleService(
	repo repository.VehicleRepository,
	v *validator.VehicleValidator,
	cfg *config.Config,
) VehicleService {
	return &vehicleService{
		repo:      repo,
		validator: v,
		cfg:       cfg,
	}
}

func (s *vehicleService) Create(ctx context.Context, vehicle *model.Vehicle) error {
	s.sanitize(vehicle)
	vehicle.IsAvailable = true

	if err := s.validator.Validate(vehicle); err != nil {
		s.cfg.Log.Warn("Vehicle validation failed", "plate", vehicle.Plate, "error", err)
		return apperrors.Validation("Vehicle validation failed", map[string]any{"error": err.Error()})
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		taken, err := s.repo.ExistsPlate(sessCtx, vehicle.Plate, "")
		if err != nil {
			return apperrors.Internal("Failed to check plate uniqueness", err)
		}
		if taken {
			return apperrors.Rule(apperrors.CodePlacaExists, "A vehicle with this plate already exists")
		}
		if err := s.repo.Create(sessCtx, vehicle); err != nil {
			return apperrors.Internal("Failed to create vehicle", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create vehicle", "plate", vehicle.Plate, "error", err)
		return err
	}

	s.cfg.Log.Info("Vehicle created successfully",
		"id", vehicle.ID,
		"plate", vehicle.Plate,
		"daily_rate", vehicle.DailyRate,
	)
	return nil
}

func (s *vehicleService) GetByID(ctx context.Context, id string) (*model.Vehicle, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Vehicle ID cannot be empty")
	}

	vehicle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateLookupError(err, id)
	}
	return vehicle, nil
}

func (s *vehicleService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Vehicle, int64, error) {
	var count int64
	var vehicles []*model.Vehicle
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count vehicles", "error", errCount)
			errCount = apperrors.Internal("Failed to count vehicles", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		vehicles, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list vehicles", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve vehicles", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return vehicles, count, nil
}

func (s *vehicleService) GetAvailable(ctx context.Context) ([]*model.Vehicle, error) {
	vehicles, err := s.repo.FindAvailable(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list available vehicles", "error", err)
		return nil, apperrors.Internal("Failed to retrieve available vehicles", err)
	}
	return vehicles, nil
}

func (s *vehicleService) GetByPlate(ctx context.Context, plate string) (*model.Vehicle, error) {
	plate = sanitizer.NormalizePlate(plate)
	if plate == "" {
		return nil, apperrors.InvalidInput("Plate cannot be empty")
	}

	vehicle, err := s.repo.FindByPlate(ctx, plate)
	if err != nil {
		if errors.Is(err, vehicleserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Vehicle")
		}
		return nil, apperrors.Internal("Failed to retrieve vehicle by plate", err)
	}
	return vehicle, nil
}

func (s *vehicleService) GetByCategory(ctx context.Context, category string) ([]*model.Vehicle, error) {
	if category == "" {
		return nil, apperrors.InvalidInput("Category cannot be empty")
	}

	vehicles, err := s.repo.FindByCategory(ctx, category)
	if err != nil {
		s.cfg.Log.Error("Failed to list vehicles by category", "category", category, "error", err)
		return nil, apperrors.Internal("Failed to retrieve vehicles by category", err)
	}
	return vehicles, nil
}

func (s *vehicleService) GetByPriceRange(ctx context.Context, minRate, maxRate float64) ([]*model.Vehicle, error) {
	if minRate < 0 || maxRate < 0 {
		return nil, apperrors.InvalidInput("Rates cannot be negative")
	}
	if minRate > maxRate {
		return nil, apperrors.InvalidInput("Minimum rate cannot exceed maximum rate")
	}

	vehicles, err := s.repo.FindByPriceRange(ctx, minRate, maxRate)
	if err != nil {
		s.cfg.Log.Error("Failed to list vehicles by price range", "error", err)
		return nil, apperrors.Internal("Failed to retrieve vehicles by price range", err)
	}
	return vehicles, nil
}

func (s *vehicleService) Update(ctx context.Context, id string, updates *model.VehicleUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Vehicle ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.translateLookupError(err, id)
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Vehicle update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.merge(existing, updates)
	s.sanitize(merged)

	if err := s.validator.Validate(merged); err != nil {
		return apperrors.Validation("Vehicle validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		if errors.Is(err, vehicleserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Vehicle", id)
		}
		s.cfg.Log.Error("Failed to update vehicle", "id", id, "error", err)
		return apperrors.Internal("Failed to update vehicle", err)
	}

	s.cfg.Log.Info("Vehicle updated successfully", "id", id)
	return nil
}

func (s *vehicleService) SetAvailability(ctx context.Context, id string, available bool) error {
	if id == "" {
		return apperrors.InvalidInput("Vehicle ID cannot be empty")
	}

	if err := s.repo.SetAvailability(ctx, id, available); err != nil {
		return s.translateLookupError(err, id)
	}

	s.cfg.Log.Info("Vehicle availability changed", "id", id, "available", available)
	return nil
}

func (s *vehicleService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Vehicle ID cannot be empty")
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return s.translateLookupError(err, id)
	}

	s.cfg.Log.Info("Vehicle deactivated", "id", id)
	return nil
}

// --- Helpers ---

func (s *vehicleService) sanitize(v *model.Vehicle) {
	v.Make = sanitizer.NormalizeName(v.Make)
	v.Model = sanitizer.NormalizeName(v.Model)
	v.Color = sanitizer.NormalizeName(v.Color)
	v.Plate = sanitizer.NormalizePlate(v.Plate)
}

func (s *vehicleService) merge(existing *model.Vehicle, updates *model.VehicleUpdate) *model.Vehicle {
	merged := *existing

	if updates.Make != "" {
		merged.Make = updates.Make
	}
	if updates.Model != "" {
		merged.Model = updates.Model
	}
	if updates.Year != nil {
		merged.Year = *updates.Year
	}
	if updates.Color != "" {
		merged.Color = updates.Color
	}
	if updates.Category != "" {
		merged.Category = updates.Category
	}
	if updates.Mileage != nil {
		merged.Mileage = *updates.Mileage
	}
	if updates.DailyRate != nil {
		merged.DailyRate = *updates.DailyRate
	}

	return &merged
}

func (s *vehicleService) translateLookupError(err error, id string) error {
	if errors.Is(err, vehicleserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Vehicle", id)
	}
	if errors.Is(err, vehicleserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid vehicle ID format")
	}
	return apperrors.Internal("Failed to access vehicle store", err)
}
