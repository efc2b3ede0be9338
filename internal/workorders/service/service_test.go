package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"fieldops_backend/internal/events"
	"fieldops_backend/internal/metrics"
	"fieldops_backend/internal/workorders/repository"
	"fieldops_backend/internal/workorders/transport"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/logger"
)

type fakeRepo struct {
	mu             sync.Mutex
	orders         map[uuid.UUID]repository.WorkOrder
	paymentsOpened map[uuid.UUID]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:         make(map[uuid.UUID]repository.WorkOrder),
		paymentsOpened: make(map[uuid.UUID]bool),
	}
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.WorkOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return repository.WorkOrder{}, apperr.NotFound("work order not found")
	}
	return order, nil
}

func (f *fakeRepo) List(_ context.Context, _ repository.ListParams) ([]repository.WorkOrder, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []repository.WorkOrder
	for _, order := range f.orders {
		items = append(items, order)
	}
	return items, len(items), nil
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateParams) (repository.WorkOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order := repository.WorkOrder{
		ID:            uuid.New(),
		CustomerName:  params.CustomerName,
		CustomerPhone: params.CustomerPhone,
		Category:      params.Category,
		Priority:      params.Priority,
		Address:       params.Address,
		Latitude:      params.Latitude,
		Longitude:     params.Longitude,
		Status:        repository.StatusPending,
		Version:       1,
	}
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeRepo) versioned(id uuid.UUID, version int64, apply func(*repository.WorkOrder)) (repository.WorkOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return repository.WorkOrder{}, apperr.NotFound("work order not found")
	}
	if order.Version != version {
		return repository.WorkOrder{}, apperr.Conflict("work order was modified concurrently, re-fetch and retry")
	}
	apply(&order)
	order.Version++
	f.orders[id] = order
	return order, nil
}

func (f *fakeRepo) Assign(_ context.Context, id uuid.UUID, version int64, technicianID uuid.UUID) (repository.WorkOrder, error) {
	return f.versioned(id, version, func(o *repository.WorkOrder) {
		o.Status = repository.StatusAssigned
		o.AssignedTechnicianID = &technicianID
	})
}

func (f *fakeRepo) Reassign(_ context.Context, id uuid.UUID, version int64, technicianID uuid.UUID) (repository.WorkOrder, error) {
	return f.versioned(id, version, func(o *repository.WorkOrder) {
		o.AssignedTechnicianID = &technicianID
	})
}

func (f *fakeRepo) UpdateSchedule(_ context.Context, id uuid.UUID, version int64, params repository.ScheduleParams) (repository.WorkOrder, error) {
	return f.versioned(id, version, func(o *repository.WorkOrder) {
		if params.ScheduledDate != nil {
			o.ScheduledDate = params.ScheduledDate
		}
		if params.ScheduledTime != nil {
			o.ScheduledTime = params.ScheduledTime
		}
	})
}

func (f *fakeRepo) Start(_ context.Context, id uuid.UUID, version int64, startedAt time.Time) (repository.WorkOrder, error) {
	return f.versioned(id, version, func(o *repository.WorkOrder) {
		o.Status = repository.StatusInProgress
		o.StartedAt = &startedAt
	})
}

func (f *fakeRepo) Cancel(_ context.Context, id uuid.UUID, version int64, reason string, cancelledAt time.Time) (repository.WorkOrder, error) {
	return f.versioned(id, version, func(o *repository.WorkOrder) {
		o.Status = repository.StatusCancelled
		o.CancellationReason = &reason
		o.CancelledAt = &cancelledAt
	})
}

func (f *fakeRepo) CompleteAndOpenPayment(_ context.Context, id uuid.UUID, version int64, completedAt time.Time) (repository.WorkOrder, error) {
	order, err := f.versioned(id, version, func(o *repository.WorkOrder) {
		o.Status = repository.StatusCompleted
		o.CompletedAt = &completedAt
	})
	if err != nil {
		return repository.WorkOrder{}, err
	}
	f.mu.Lock()
	f.paymentsOpened[id] = true
	f.mu.Unlock()
	return order, nil
}

type fakeGate struct {
	blocked map[uuid.UUID]bool
	onCheck func()
}

func (g *fakeGate) EnsureAssignable(_ context.Context, technicianID uuid.UUID) error {
	if g.onCheck != nil {
		g.onCheck()
	}
	if g.blocked[technicianID] {
		return apperr.IneligibleTechnician("technician is blocked and cannot receive assignments")
	}
	return nil
}

type fakePayments struct{}

func (fakePayments) PaymentFor(_ context.Context, _ uuid.UUID) (*transport.PaymentSummary, error) {
	return nil, nil
}

var testMetrics = metrics.New()

func newTestService(repo *fakeRepo, gate *fakeGate) *Service {
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	if gate == nil {
		gate = &fakeGate{}
	}
	return New(repo, gate, fakePayments{}, bus, log, testMetrics)
}

func createPending(t *testing.T, svc *Service) transport.WorkOrderResponse {
	t.Helper()
	created, err := svc.Create(context.Background(), transport.CreateWorkOrderRequest{
		CustomerName:  "Jordan Reyes",
		CustomerPhone: "+12025550188",
		Category:      "HVAC",
		Priority:      "Normal",
		Address:       "14 Oak St",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return created
}

func TestAssignFromPending(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	order := createPending(t, svc)
	techID := uuid.New()

	assigned, err := svc.Assign(context.Background(), order.ID, transport.AssignRequest{TechnicianID: techID}, uuid.New())
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.Status != "Assigned" {
		t.Fatalf("expected Assigned, got %s", assigned.Status)
	}
	if assigned.AssignedTechnicianID == nil || *assigned.AssignedTechnicianID != techID {
		t.Fatalf("technician not recorded")
	}
	if assigned.Version != order.Version+1 {
		t.Fatalf("expected version bump, got %d", assigned.Version)
	}
}

func TestAssignRejectedFromAssigned(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	order := createPending(t, svc)

	if _, err := svc.Assign(context.Background(), order.ID, transport.AssignRequest{TechnicianID: uuid.New()}, uuid.New()); err != nil {
		t.Fatalf("first assign: %v", err)
	}

	_, err := svc.Assign(context.Background(), order.ID, transport.AssignRequest{TechnicianID: uuid.New()}, uuid.New())
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestAssignBlockedTechnicianLeavesOrderPending(t *testing.T) {
	repo := newFakeRepo()
	blockedID := uuid.New()
	gate := &fakeGate{blocked: map[uuid.UUID]bool{blockedID: true}}
	svc := newTestService(repo, gate)
	order := createPending(t, svc)

	_, err := svc.Assign(context.Background(), order.ID, transport.AssignRequest{TechnicianID: blockedID}, uuid.New())
	if !apperr.Is(err, apperr.KindIneligible) {
		t.Fatalf("expected ineligible error, got %v", err)
	}

	current, err := svc.GetByID(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Status != "Pending" || current.AssignedTechnicianID != nil {
		t.Fatalf("failed assignment must not mutate the order: %+v", current)
	}
}

func TestStartOnlyFromAssigned(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	order := createPending(t, svc)

	_, err := svc.Start(context.Background(), order.ID, uuid.New())
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("start from Pending should fail, got %v", err)
	}

	if _, err := svc.Assign(context.Background(), order.ID, transport.AssignRequest{TechnicianID: uuid.New()}, uuid.New()); err != nil {
		t.Fatalf("assign: %v", err)
	}
	started, err := svc.Start(context.Background(), order.ID, uuid.New())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != "In Progress" {
		t.Fatalf("expected In Progress, got %s", started.Status)
	}
}

func TestCompleteOpensPaymentRecord(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	order := createPending(t, svc)

	if _, err := svc.Assign(context.Background(), order.ID, transport.AssignRequest{TechnicianID: uuid.New()}, uuid.New()); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := svc.Start(context.Background(), order.ID, uuid.New()); err != nil {
		t.Fatalf("start: %v", err)
	}
	completed, err := svc.Complete(context.Background(), order.ID, uuid.New())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != "Completed" {
		t.Fatalf("expected Completed, got %s", completed.Status)
	}
	if !repo.paymentsOpened[order.ID] {
		t.Fatalf("completing must open the payment record in the same transaction")
	}
}

func TestCancelRules(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	// Cancel from Pending is fine.
	pending := createPending(t, svc)
	cancelled, err := svc.Cancel(context.Background(), pending.ID, transport.CancelRequest{Reason: "customer withdrew"}, uuid.New())
	if err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	if cancelled.Status != "Cancelled" || cancelled.CancellationReason == nil {
		t.Fatalf("expected cancelled with reason, got %+v", cancelled)
	}

	// Cancel from In Progress is not.
	inProgress := createPending(t, svc)
	if _, err := svc.Assign(context.Background(), inProgress.ID, transport.AssignRequest{TechnicianID: uuid.New()}, uuid.New()); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := svc.Start(context.Background(), inProgress.ID, uuid.New()); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err = svc.Cancel(context.Background(), inProgress.ID, transport.CancelRequest{Reason: "too late"}, uuid.New())
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("cancel from In Progress should fail, got %v", err)
	}
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	order := createPending(t, svc)

	if _, err := svc.Cancel(context.Background(), order.ID, transport.CancelRequest{Reason: "duplicate request"}, uuid.New()); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	ops := map[string]func() error{
		"assign": func() error {
			_, err := svc.Assign(context.Background(), order.ID, transport.AssignRequest{TechnicianID: uuid.New()}, uuid.New())
			return err
		},
		"start": func() error {
			_, err := svc.Start(context.Background(), order.ID, uuid.New())
			return err
		},
		"complete": func() error {
			_, err := svc.Complete(context.Background(), order.ID, uuid.New())
			return err
		},
		"cancel": func() error {
			_, err := svc.Cancel(context.Background(), order.ID, transport.CancelRequest{Reason: "again"}, uuid.New())
			return err
		},
		"reschedule": func() error {
			date := "2026-09-15"
			_, err := svc.Reschedule(context.Background(), order.ID, transport.ScheduleRequest{ScheduledDate: &date}, uuid.New())
			return err
		},
	}
	for name, op := range ops {
		if err := op(); !apperr.Is(err, apperr.KindInvalidTransition) {
			t.Fatalf("%s on cancelled order should be invalid transition, got %v", name, err)
		}
	}
}

func TestConcurrentCancelLosesWithConflict(t *testing.T) {
	repo := newFakeRepo()
	var svc *Service
	var orderID uuid.UUID

	// The gate callback fires between the assign's status read and its
	// version-matched update, simulating a racing cancel.
	gate := &fakeGate{onCheck: func() {
		if _, err := svc.Cancel(context.Background(), orderID, transport.CancelRequest{Reason: "raced"}, uuid.New()); err != nil {
			t.Errorf("racing cancel: %v", err)
		}
	}}
	svc = newTestService(repo, gate)
	order := createPending(t, svc)
	orderID = order.ID

	_, err := svc.Assign(context.Background(), orderID, transport.AssignRequest{TechnicianID: uuid.New()}, uuid.New())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("losing writer should get conflict, got %v", err)
	}

	current, err := svc.GetByID(context.Background(), orderID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Status != "Cancelled" {
		t.Fatalf("winner's state must stand, got %s", current.Status)
	}
}

func TestReassignKeepsStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	order := createPending(t, svc)
	first := uuid.New()
	second := uuid.New()

	if _, err := svc.Assign(context.Background(), order.ID, transport.AssignRequest{TechnicianID: first}, uuid.New()); err != nil {
		t.Fatalf("assign: %v", err)
	}
	reassigned, err := svc.Reassign(context.Background(), order.ID, transport.ReassignRequest{TechnicianID: second, Reason: "closer to site"}, uuid.New())
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if reassigned.Status != "Assigned" {
		t.Fatalf("reassign must not change status, got %s", reassigned.Status)
	}
	if reassigned.AssignedTechnicianID == nil || *reassigned.AssignedTechnicianID != second {
		t.Fatalf("technician not swapped")
	}
}

func TestReassignRequiresAssignment(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	order := createPending(t, svc)

	_, err := svc.Reassign(context.Background(), order.ID, transport.ReassignRequest{TechnicianID: uuid.New()}, uuid.New())
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("reassign on pending order should fail, got %v", err)
	}
}
