package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"fieldops_backend/internal/compensation"
	"fieldops_backend/internal/events"
	"fieldops_backend/internal/technicians/repository"
	"fieldops_backend/internal/technicians/transport"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/logger"
)

type fakeRepo struct {
	mu     sync.Mutex
	techs  []repository.Technician
	counts map[uuid.UUID]int
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.techs {
		if t.ID == id {
			return t, nil
		}
	}
	return repository.Technician{}, apperr.NotFound("technician not found")
}

func (f *fakeRepo) List(_ context.Context, _ repository.ListParams) ([]repository.Technician, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repository.Technician(nil), f.techs...), len(f.techs), nil
}

func (f *fakeRepo) OpenWorkOrderCounts(_ context.Context) (map[uuid.UUID]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[uuid.UUID]int, len(f.counts))
	for id, n := range f.counts {
		counts[id] = n
	}
	return counts, nil
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateParams) (repository.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := repository.Technician{
		ID:             uuid.New(),
		Name:           params.Name,
		Phone:          params.Phone,
		Specialty:      params.Specialty,
		EmploymentType: params.EmploymentType,
		Status:         repository.StatusActive,
		CommissionRate: params.CommissionRate,
		SalaryCents:    params.SalaryCents,
		BonusRate:      params.BonusRate,
		Latitude:       params.Latitude,
		Longitude:      params.Longitude,
	}
	f.techs = append(f.techs, t)
	return t, nil
}

func (f *fakeRepo) Update(ctx context.Context, params repository.UpdateParams) (repository.Technician, error) {
	return f.mutate(params.ID, func(t *repository.Technician) {
		if params.Name != nil {
			t.Name = *params.Name
		}
		if params.Phone != nil {
			t.Phone = *params.Phone
		}
	})
}

func (f *fakeRepo) SetBlocked(_ context.Context, id uuid.UUID, reason string, blockedAt time.Time) (repository.Technician, error) {
	return f.mutate(id, func(t *repository.Technician) {
		t.Status = repository.StatusBlocked
		t.BlockedReason = &reason
		t.BlockedDate = &blockedAt
	})
}

func (f *fakeRepo) ClearBlocked(_ context.Context, id uuid.UUID) (repository.Technician, error) {
	return f.mutate(id, func(t *repository.Technician) {
		t.Status = repository.StatusActive
		t.BlockedReason = nil
		t.BlockedDate = nil
	})
}

func (f *fakeRepo) SetOverride(_ context.Context, params repository.OverrideParams) (repository.Technician, error) {
	return f.mutate(params.ID, func(t *repository.Technician) {
		t.OverrideCommissionRate = params.OverrideCommissionRate
		t.OverrideBonusRate = params.OverrideBonusRate
		t.OverrideSalaryCents = params.OverrideSalaryCents
	})
}

func (f *fakeRepo) ClearOverride(ctx context.Context, id uuid.UUID) (repository.Technician, error) {
	return f.SetOverride(ctx, repository.OverrideParams{ID: id})
}

func (f *fakeRepo) mutate(id uuid.UUID, apply func(*repository.Technician)) (repository.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.techs {
		if f.techs[i].ID == id {
			apply(&f.techs[i])
			return f.techs[i], nil
		}
	}
	return repository.Technician{}, apperr.NotFound("technician not found")
}

func newTestService(repo *fakeRepo) (*Service, events.Bus) {
	if repo.counts == nil {
		repo.counts = map[uuid.UUID]int{}
	}
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	return New(repo, bus, log, compensation.Defaults{CommissionRate: 10, BonusRate: 5}), bus
}

func TestCreateRejectsMismatchedCompensation(t *testing.T) {
	svc, _ := newTestService(&fakeRepo{})
	salary := int64(500000)

	_, err := svc.Create(context.Background(), transport.CreateTechnicianRequest{
		Name:           "Ava",
		Phone:          "+12025550123",
		Specialty:      "HVAC",
		EmploymentType: "Freelancer",
		SalaryCents:    &salary,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRejectsUnknownEmploymentType(t *testing.T) {
	svc, _ := newTestService(&fakeRepo{})

	_, err := svc.Create(context.Background(), transport.CreateTechnicianRequest{
		Name:           "Ava",
		Phone:          "+12025550123",
		Specialty:      "HVAC",
		EmploymentType: "Contractor",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetOverrideRejectsVariantMismatch(t *testing.T) {
	repo := &fakeRepo{}
	svc, _ := newTestService(repo)

	created, err := svc.Create(context.Background(), transport.CreateTechnicianRequest{
		Name:           "Ben",
		Phone:          "+12025550124",
		Specialty:      "Plumbing",
		EmploymentType: "Freelancer",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	bonus := 7.5
	_, err = svc.SetOverride(context.Background(), created.ID, transport.OverrideRequest{
		OverrideBonusRate: &bonus,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for bonus override on freelancer, got %v", err)
	}
}

func TestSetAndClearOverride(t *testing.T) {
	repo := &fakeRepo{}
	svc, _ := newTestService(repo)

	created, err := svc.Create(context.Background(), transport.CreateTechnicianRequest{
		Name:           "Cara",
		Phone:          "+12025550125",
		Specialty:      "Electrical",
		EmploymentType: "Freelancer",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rate := 15.0
	updated, err := svc.SetOverride(context.Background(), created.ID, transport.OverrideRequest{
		OverrideCommissionRate: &rate,
	})
	if err != nil {
		t.Fatalf("set override: %v", err)
	}
	if !updated.HasCompensationOverride {
		t.Fatalf("expected override flag set")
	}
	if updated.OverrideCommissionRate == nil || *updated.OverrideCommissionRate != 15.0 {
		t.Fatalf("expected commission override 15.0, got %v", updated.OverrideCommissionRate)
	}

	cleared, err := svc.ClearOverride(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("clear override: %v", err)
	}
	if cleared.HasCompensationOverride {
		t.Fatalf("expected override flag cleared")
	}
}

func TestEnsureAssignableBlockedTechnician(t *testing.T) {
	repo := &fakeRepo{}
	svc, _ := newTestService(repo)

	created, err := svc.Create(context.Background(), transport.CreateTechnicianRequest{
		Name:           "Dana",
		Phone:          "+12025550126",
		Specialty:      "HVAC",
		EmploymentType: "InternalEmployee",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.EnsureAssignable(context.Background(), created.ID); err != nil {
		t.Fatalf("active technician should be assignable: %v", err)
	}

	if _, err := svc.Block(context.Background(), created.ID, "repeated no-shows", uuid.New()); err != nil {
		t.Fatalf("block: %v", err)
	}

	err = svc.EnsureAssignable(context.Background(), created.ID)
	if !apperr.Is(err, apperr.KindIneligible) {
		t.Fatalf("expected ineligible error, got %v", err)
	}

	if _, err := svc.Unblock(context.Background(), created.ID, uuid.New()); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if err := svc.EnsureAssignable(context.Background(), created.ID); err != nil {
		t.Fatalf("unblocked technician should be assignable again: %v", err)
	}
}

func TestEnsureAssignableMissingTechnician(t *testing.T) {
	svc, _ := newTestService(&fakeRepo{})

	err := svc.EnsureAssignable(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBusyAvailabilityFromOpenCounts(t *testing.T) {
	repo := &fakeRepo{}
	svc, _ := newTestService(repo)

	created, err := svc.Create(context.Background(), transport.CreateTechnicianRequest{
		Name:           "Eli",
		Phone:          "+12025550127",
		Specialty:      "HVAC",
		EmploymentType: "Freelancer",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	repo.mu.Lock()
	repo.counts[created.ID] = 2
	repo.mu.Unlock()

	got, err := svc.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Availability != "Busy" || got.OpenWorkOrders != 2 {
		t.Fatalf("expected Busy with 2 open orders, got %s/%d", got.Availability, got.OpenWorkOrders)
	}
}
