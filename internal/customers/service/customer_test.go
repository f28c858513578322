package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	customerserrors "fleetbook/internal/customers/errors"
	"fleetbook/internal/customers/validator"
	"fleetbook/pkg/clock"
	"fleetbook/pkg/config"
	mongotx "fleetbook/pkg/db/mongo"
	apperrors "fleetbook/pkg/errors"
	"fleetbook/pkg/logger"
	"fleetbook/pkg/model"
)

var customerTestNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeCustomerRepo struct {
	customers map[string]*model.Customer
	nextID    int
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[string]*model.Customer)}
}

func (f *fakeCustomerRepo) Create(_ context.Context, c *model.Customer) error {
	f.nextID++
	c.ID = fmt.Sprintf("%024x", f.nextID)
	c.Active = true
	stored := *c
	f.customers[c.ID] = &stored
	return nil
}

func (f *fakeCustomerRepo) FindByID(_ context.Context, id string) (*model.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, customerserrors.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (f *fakeCustomerRepo) FindAll(_ context.Context, _ int, _ int64) ([]*model.Customer, error) {
	var out []*model.Customer
	for _, c := range f.customers {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCustomerRepo) FindActive(_ context.Context) ([]*model.Customer, error) {
	var out []*model.Customer
	for _, c := range f.customers {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCustomerRepo) FindByEmail(_ context.Context, email string) (*model.Customer, error) {
	for _, c := range f.customers {
		if c.Email == email && c.Active {
			out := *c
			return &out, nil
		}
	}
	return nil, customerserrors.ErrNotFound
}

func (f *fakeCustomerRepo) FindByDocumentID(_ context.Context, documentID string) (*model.Customer, error) {
	for _, c := range f.customers {
		if c.DocumentID == documentID && c.Active {
			out := *c
			return &out, nil
		}
	}
	return nil, customerserrors.ErrNotFound
}

func (f *fakeCustomerRepo) Update(_ context.Context, id string, c *model.Customer) error {
	existing, ok := f.customers[id]
	if !ok {
		return customerserrors.ErrNotFound
	}
	updated := *c
	updated.ID = id
	updated.Active = existing.Active
	f.customers[id] = &updated
	return nil
}

func (f *fakeCustomerRepo) SoftDelete(_ context.Context, id string) error {
	c, ok := f.customers[id]
	if !ok {
		return customerserrors.ErrNotFound
	}
	c.Active = false
	return nil
}

func (f *fakeCustomerRepo) ExistsActive(_ context.Context, id string) (bool, error) {
	c, ok := f.customers[id]
	return ok && c.Active, nil
}

func (f *fakeCustomerRepo) ExistsEmail(_ context.Context, email string, excludeID string) (bool, error) {
	for _, c := range f.customers {
		if c.ID != excludeID && c.Active && c.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCustomerRepo) ExistsDocumentID(_ context.Context, documentID string, excludeID string) (bool, error) {
	for _, c := range f.customers {
		if c.ID != excludeID && c.Active && c.DocumentID == documentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCustomerRepo) Count(_ context.Context) (int64, error) {
	return int64(len(f.customers)), nil
}

func (f *fakeCustomerRepo) ExecuteTransaction(_ context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.SessionContext(nil))
}

func newTestCustomerService(t *testing.T) (CustomerService, *fakeCustomerRepo) {
	t.Helper()

	cfg := &config.Config{
		MinRenterAge: 18,
		Log:          logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard}),
	}
	repo := newFakeCustomerRepo()
	svc := NewCustomerService(repo, validator.NewCustomerValidator(cfg.Log), clock.Fixed{T: customerTestNow}, cfg)
	return svc, repo
}

func validCustomer() *model.Customer {
	return &model.Customer{
		FirstName:  "Ana",
		LastName:   "Torres",
		Email:      "ana.torres@example.com",
		Phone:      "+34600123456",
		DocumentID: "X1234567L",
		BirthDate:  time.Date(1990, 3, 12, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateCustomer(t *testing.T) {
	svc, repo := newTestCustomerService(t)

	customer := validCustomer()
	customer.Email = "  Ana.Torres@Example.COM "
	if err := svc.Create(context.Background(), customer); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if customer.Email != "ana.torres@example.com" {
		t.Errorf("Email = %q, want normalized lowercase", customer.Email)
	}
	if len(repo.customers) != 1 {
		t.Errorf("stored customers = %d, want 1", len(repo.customers))
	}
}

func TestCreateCustomerDuplicateEmail(t *testing.T) {
	svc, _ := newTestCustomerService(t)
	ctx := context.Background()

	if err := svc.Create(ctx, validCustomer()); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	duplicate := validCustomer()
	duplicate.DocumentID = "Y7654321K"
	err := svc.Create(ctx, duplicate)
	if !apperrors.HasCode(err, apperrors.CodeEmailExists) {
		t.Fatalf("Create() error = %v, want %s", err, apperrors.CodeEmailExists)
	}
}

func TestCreateCustomerDuplicateDocument(t *testing.T) {
	svc, _ := newTestCustomerService(t)
	ctx := context.Background()

	if err := svc.Create(ctx, validCustomer()); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	duplicate := validCustomer()
	duplicate.Email = "other@example.com"
	err := svc.Create(ctx, duplicate)
	if !apperrors.HasCode(err, apperrors.CodeDNIExists) {
		t.Fatalf("Create() error = %v, want %s", err, apperrors.CodeDNIExists)
	}
}

func TestCreateCustomerUnderage(t *testing.T) {
	svc, _ := newTestCustomerService(t)

	customer := validCustomer()
	customer.BirthDate = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

	err := svc.Create(context.Background(), customer)
	if !apperrors.HasCode(err, apperrors.CodeMinorAge) {
		t.Fatalf("Create() error = %v, want %s", err, apperrors.CodeMinorAge)
	}
}

// The age check uses exact date arithmetic: an 18th birthday today passes,
// tomorrow's does not.
func TestCreateCustomerAgeBoundary(t *testing.T) {
	svc, _ := newTestCustomerService(t)
	ctx := context.Background()

	onBirthday := validCustomer()
	onBirthday.BirthDate = customerTestNow.AddDate(-18, 0, 0)
	if err := svc.Create(ctx, onBirthday); err != nil {
		t.Fatalf("Create() on 18th birthday error = %v", err)
	}

	dayShort := validCustomer()
	dayShort.Email = "short@example.com"
	dayShort.DocumentID = "Z9999999A"
	dayShort.BirthDate = customerTestNow.AddDate(-18, 0, 1)
	err := svc.Create(ctx, dayShort)
	if !apperrors.HasCode(err, apperrors.CodeMinorAge) {
		t.Fatalf("Create() one day short error = %v, want %s", err, apperrors.CodeMinorAge)
	}
}

func TestAgeAt(t *testing.T) {
	birth := time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		now  time.Time
		want int
	}{
		{time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), 25},
		{time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 26},
		{time.Date(2000, 3, 1, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		if got := ageAt(birth, tt.now); got != tt.want {
			t.Errorf("ageAt(%v, %v) = %d, want %d", birth, tt.now, got, tt.want)
		}
	}
}

func TestUpdateCustomerKeepsOwnEmail(t *testing.T) {
	svc, _ := newTestCustomerService(t)
	ctx := context.Background()

	customer := validCustomer()
	if err := svc.Create(ctx, customer); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Re-submitting the customer's own email must not trip the
	// uniqueness check.
	err := svc.Update(ctx, customer.ID, &model.CustomerUpdate{
		FirstName: "Anabel",
		Email:     customer.Email,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	stored, err := svc.GetByID(ctx, customer.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.FirstName != "Anabel" {
		t.Errorf("FirstName = %q, want %q", stored.FirstName, "Anabel")
	}
}

func TestDeleteCustomerIsSoft(t *testing.T) {
	svc, repo := newTestCustomerService(t)
	ctx := context.Background()

	customer := validCustomer()
	if err := svc.Create(ctx, customer); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := svc.Delete(ctx, customer.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	stored, ok := repo.customers[customer.ID]
	if !ok {
		t.Fatal("soft delete must keep the record")
	}
	if stored.Active {
		t.Error("soft delete must clear the active flag")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _ := newTestCustomerService(t)

	_, err := svc.GetByID(context.Background(), "000000000000000000000000")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("GetByID() error = %v, want %s", err, apperrors.CodeNotFound)
	}
}
