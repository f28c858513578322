package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	customerserrors "fleetbook/internal/customers/errors"
	"fleetbook/internal/customers/repository"
	"fleetbook/internal/customers/validator"
	"fleetbook/pkg/clock"
	"fleetbook/pkg/config"
	apperrors "fleetbook/pkg/errors"
	"fleetbook/pkg/model"
	"fleetbook/pkg/sanitizer"
)

type CustomerService interface {
	Create(ctx context.Context, customer *model.Customer) error
	GetByID(ctx context.Context, id string) (*model.Customer, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Customer, int64, error)
	GetActive(ctx context.Context) ([]*model.Customer, error)
	GetByEmail(ctx context.Context, email string) (*model.Customer, error)
	GetByDocumentID(ctx context.Context, documentID string) (*model.Customer, error)
	Update(ctx context.Context, id string, updates *model.CustomerUpdate) error
	Delete(ctx context.Context, id string) error
}

type customerService struct {
	repo      repository.CustomerRepository
	validator *validator.CustomerValidator
	clock     clock.Clock
	cfg       *config.Config
}

func NewCustomerService(
	repo repository.CustomerRepository,
	v *validator.CustomerValidator,
	clk clock.Clock,
	cfg *config.Config,
) CustomerService {
	return &customerService{
		repo:      repo,
		validator: v,
		clock:     clk,
		cfg:       cfg,
	}
}

func (s *customerService) Create(ctx context.Context, customer *model.Customer) error {
	s.sanitize(customer)

	if err := s.validator.Validate(customer); err != nil {
		s.cfg.Log.Warn("Customer validation failed", "email", customer.Email, "error", err)
		return apperrors.Validation("Customer validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.checkAdultAge(customer.BirthDate); err != nil {
		return err
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.checkUniqueness(sessCtx, customer.Email, customer.DocumentID, ""); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, customer); err != nil {
			return apperrors.Internal("Failed to create customer", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create customer", "email", customer.Email, "error", err)
		return err
	}

	s.cfg.Log.Info("Customer created successfully",
		"id", customer.ID,
		"email", customer.Email,
	)
	return nil
}

func (s *customerService) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Customer ID cannot be empty")
	}

	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateLookupError(err, id)
	}
	return customer, nil
}

func (s *customerService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Customer, int64, error) {
	var count int64
	var customers []*model.Customer
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count customers", "error", errCount)
			errCount = apperrors.Internal("Failed to count customers", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		customers, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list customers", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve customers", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return customers, count, nil
}

func (s *customerService) GetActive(ctx context.Context) ([]*model.Customer, error) {
	customers, err := s.repo.FindActive(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list active customers", "error", err)
		return nil, apperrors.Internal("Failed to retrieve active customers", err)
	}
	return customers, nil
}

func (s *customerService) GetByEmail(ctx context.Context, email string) (*model.Customer, error) {
	email = sanitizer.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.InvalidInput("Email cannot be empty")
	}

	customer, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, customerserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Customer")
		}
		return nil, apperrors.Internal("Failed to retrieve customer by email", err)
	}
	return customer, nil
}

func (s *customerService) GetByDocumentID(ctx context.Context, documentID string) (*model.Customer, error) {
	documentID = sanitizer.NormalizeDocumentID(documentID)
	if documentID == "" {
		return nil, apperrors.InvalidInput("Document ID cannot be empty")
	}

	customer, err := s.repo.FindByDocumentID(ctx, documentID)
	if err != nil {
		if errors.Is(err, customerserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Customer")
		}
		return nil, apperrors.Internal("Failed to retrieve customer by document", err)
	}
	return customer, nil
}

func (s *customerService) Update(ctx context.Context, id string, updates *model.CustomerUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Customer ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.translateLookupError(err, id)
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Customer update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.merge(existing, updates)
	s.sanitize(merged)

	if err := s.validator.Validate(merged); err != nil {
		return apperrors.Validation("Customer validation failed", map[string]any{"error": err.Error()})
	}
	if err := s.checkAdultAge(merged.BirthDate); err != nil {
		return err
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.checkUniqueness(sessCtx, merged.Email, merged.DocumentID, id); err != nil {
			return err
		}
		if err := s.repo.Update(sessCtx, id, merged); err != nil {
			return apperrors.Internal("Failed to update customer", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update customer", "id", id, "error", err)
		return err
	}

	s.cfg.Log.Info("Customer updated successfully", "id", id)
	return nil
}

// Delete is a soft delete: the record stays for historical reservations,
// the customer just stops being eligible for new ones.
func (s *customerService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Customer ID cannot be empty")
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return s.translateLookupError(err, id)
	}

	s.cfg.Log.Info("Customer deactivated", "id", id)
	return nil
}

// --- Helpers ---

func (s *customerService) sanitize(c *model.Customer) {
	c.FirstName = sanitizer.NormalizeName(c.FirstName)
	c.LastName = sanitizer.NormalizeName(c.LastName)
	c.Email = sanitizer.NormalizeEmail(c.Email)
	c.DocumentID = sanitizer.NormalizeDocumentID(c.DocumentID)
}

func (s *customerService) merge(existing *model.Customer, updates *model.CustomerUpdate) *model.Customer {
	merged := *existing

	if updates.FirstName != "" {
		merged.FirstName = updates.FirstName
	}
	if updates.LastName != "" {
		merged.LastName = updates.LastName
	}
	if updates.Email != "" {
		merged.Email = updates.Email
	}
	if updates.Phone != nil {
		merged.Phone = *updates.Phone
	}
	if updates.BirthDate != nil {
		merged.BirthDate = *updates.BirthDate
	}

	return &merged
}

func (s *customerService) checkUniqueness(ctx context.Context, email, documentID, excludeID string) error {
	emailTaken, err := s.repo.ExistsEmail(ctx, email, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check email uniqueness", err)
	}
	if emailTaken {
		return apperrors.Rule(apperrors.CodeEmailExists, "A customer with this email already exists")
	}

	docTaken, err := s.repo.ExistsDocumentID(ctx, documentID, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check document uniqueness", err)
	}
	if docTaken {
		return apperrors.Rule(apperrors.CodeDNIExists, "A customer with this document already exists")
	}
	return nil
}

func (s *customerService) checkAdultAge(birthDate time.Time) error {
	if ageAt(birthDate, s.clock.Now()) < s.cfg.MinRenterAge {
		return apperrors.Rule(apperrors.CodeMinorAge, "Customer must be of legal age")
	}
	return nil
}

// ageAt computes full years elapsed between birth and now using exact
// date arithmetic, so the age only bumps on the actual anniversary.
func ageAt(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if years < 0 {
		return 0
	}
	anniversary := birth.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

func (s *customerService) translateLookupError(err error, id string) error {
	if errors.Is(err, customerserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Customer", id)
	}
	if errors.Is(err, customerserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid customer ID format")
	}
	return apperrors.Internal("Failed to access customer store", err)
}
