package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"fieldops_backend/internal/compensation"
	"fieldops_backend/internal/events"
	"fieldops_backend/internal/metrics"
	"fieldops_backend/internal/payments/repository"
	"fieldops_backend/internal/payments/transport"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/logger"
)

type fakeRepo struct {
	mu         sync.Mutex
	records    map[uuid.UUID]repository.PaymentRecord
	statsCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[uuid.UUID]repository.PaymentRecord)}
}

func (f *fakeRepo) open(workOrderID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[workOrderID] = repository.PaymentRecord{
		ID:          uuid.New(),
		WorkOrderID: workOrderID,
		Status:      repository.StatusPending,
		Version:     1,
	}
}

func (f *fakeRepo) GetByWorkOrderID(_ context.Context, workOrderID uuid.UUID) (repository.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[workOrderID]
	if !ok {
		return repository.PaymentRecord{}, apperr.NotFound("payment record not found")
	}
	return record, nil
}

func (f *fakeRepo) List(_ context.Context, params repository.ListParams) ([]repository.PaymentRecord, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []repository.PaymentRecord
	for _, record := range f.records {
		if params.Status == nil || record.Status == *params.Status {
			items = append(items, record)
		}
	}
	return items, len(items), nil
}

func (f *fakeRepo) Stats(_ context.Context) (repository.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	stats := repository.Stats{}
	for _, record := range f.records {
		switch record.Status {
		case repository.StatusPending:
			stats.PendingCount++
		case repository.StatusProofUploaded:
			stats.ProofUploadedCount++
		case repository.StatusVerified:
			stats.VerifiedCount++
		case repository.StatusRejected:
			stats.RejectedCount++
		}
		if record.CommissionBooked && record.CommissionAmountCents != nil {
			stats.BookedCents += *record.CommissionAmountCents
		}
	}
	return stats, nil
}

func (f *fakeRepo) versioned(workOrderID uuid.UUID, version int64, apply func(*repository.PaymentRecord)) (repository.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[workOrderID]
	if !ok {
		return repository.PaymentRecord{}, apperr.NotFound("payment record not found")
	}
	if record.Version != version {
		return repository.PaymentRecord{}, apperr.Conflict("payment record was modified concurrently, re-fetch and retry")
	}
	apply(&record)
	record.Version++
	f.records[workOrderID] = record
	return record, nil
}

func (f *fakeRepo) UploadProof(_ context.Context, params repository.UploadProofParams) (repository.PaymentRecord, error) {
	return f.versioned(params.WorkOrderID, params.Version, func(p *repository.PaymentRecord) {
		p.Status = repository.StatusProofUploaded
		p.Method = &params.Method
		p.AmountCents = &params.AmountCents
		p.Notes = params.Notes
		p.ProofImageKey = params.ProofImageKey
		p.ProofCaptureDate = params.ProofCaptureDate
		p.UploadedByID = &params.UploadedByID
		p.UploadDate = &params.UploadDate
		p.VerifiedByID = nil
		p.VerifiedDate = nil
		p.RejectionReason = nil
		p.CommissionAmountCents = nil
		p.CommissionBooked = false
		p.BookedDate = nil
	})
}

func (f *fakeRepo) Approve(_ context.Context, params repository.ApproveParams) (repository.PaymentRecord, error) {
	return f.versioned(params.WorkOrderID, params.Version, func(p *repository.PaymentRecord) {
		p.Status = repository.StatusVerified
		p.VerifiedByID = &params.VerifiedByID
		p.VerifiedDate = &params.VerifiedDate
		p.CommissionAmountCents = &params.CommissionAmountCents
		p.CommissionBooked = true
		p.BookedDate = &params.VerifiedDate
		p.CommissionPaid = params.PaidImmediately
		if params.PaidImmediately {
			p.PaidDate = &params.VerifiedDate
		}
	})
}

func (f *fakeRepo) Reject(_ context.Context, params repository.RejectParams) (repository.PaymentRecord, error) {
	return f.versioned(params.WorkOrderID, params.Version, func(p *repository.PaymentRecord) {
		p.Status = repository.StatusRejected
		p.VerifiedByID = &params.VerifiedByID
		p.VerifiedDate = &params.VerifiedDate
		p.RejectionReason = &params.Reason
		p.CommissionAmountCents = nil
		p.CommissionBooked = false
		p.BookedDate = nil
	})
}

func (f *fakeRepo) MarkPaid(_ context.Context, workOrderID uuid.UUID, version int64, paidAt time.Time) (repository.PaymentRecord, error) {
	return f.versioned(workOrderID, version, func(p *repository.PaymentRecord) {
		p.CommissionPaid = true
		p.PaidDate = &paidAt
	})
}

type fakeWorkOrders struct {
	technicianID *uuid.UUID
}

func (f fakeWorkOrders) Info(_ context.Context, workOrderID uuid.UUID) (WorkOrderInfo, error) {
	return WorkOrderInfo{
		WorkOrderID:          workOrderID,
		Completed:            true,
		AssignedTechnicianID: f.technicianID,
	}, nil
}

type fakeDirectory struct {
	terms compensation.Terms
}

func (f fakeDirectory) TermsFor(_ context.Context, _ uuid.UUID) (compensation.Terms, error) {
	return f.terms, nil
}

var testMetrics = metrics.New()

func newTestService(repo *fakeRepo, workOrders WorkOrderSource, directory TechnicianDirectory, cache *redis.Client) *Service {
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	if directory == nil {
		directory = fakeDirectory{terms: compensation.FreelancerTerms{}}
	}
	defaults := compensation.Defaults{CommissionRate: 10, BonusRate: 5}
	return New(repo, workOrders, directory, nil, cache, bus, log, testMetrics, defaults, "", 0)
}

func uploadProof(t *testing.T, svc *Service, workOrderID uuid.UUID, amountCents int64) transport.PaymentResponse {
	t.Helper()
	ref := "proofs/2026/08/receipt.jpg"
	resp, err := svc.UploadProof(context.Background(), workOrderID, transport.UploadProofRequest{
		Method:        "Cash",
		AmountCents:   amountCents,
		ProofImageRef: &ref,
	}, nil, uuid.New())
	if err != nil {
		t.Fatalf("upload proof: %v", err)
	}
	return resp
}

func TestUploadProofFromPending(t *testing.T) {
	repo := newFakeRepo()
	workOrderID := uuid.New()
	repo.open(workOrderID)
	techID := uuid.New()
	svc := newTestService(repo, fakeWorkOrders{technicianID: &techID}, nil, nil)

	resp := uploadProof(t, svc, workOrderID, 20000)
	if resp.Status != "Proof Uploaded" {
		t.Fatalf("expected Proof Uploaded, got %s", resp.Status)
	}
	if resp.AmountCents == nil || *resp.AmountCents != 20000 {
		t.Fatalf("amount not recorded")
	}
}

func TestUploadProofRequiresImage(t *testing.T) {
	repo := newFakeRepo()
	workOrderID := uuid.New()
	repo.open(workOrderID)
	techID := uuid.New()
	svc := newTestService(repo, fakeWorkOrders{technicianID: &techID}, nil, nil)

	_, err := svc.UploadProof(context.Background(), workOrderID, transport.UploadProofRequest{
		Method:      "Cash",
		AmountCents: 5000,
	}, nil, uuid.New())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApproveBooksCommissionFromDefaultRate(t *testing.T) {
	repo := newFakeRepo()
	workOrderID := uuid.New()
	repo.open(workOrderID)
	techID := uuid.New()
	svc := newTestService(repo, fakeWorkOrders{technicianID: &techID}, nil, nil)

	uploadProof(t, svc, workOrderID, 20000)
	resp, err := svc.Decide(context.Background(), workOrderID, transport.VerifyRequest{Action: "APPROVE"}, uuid.New())
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if resp.Status != "Verified" {
		t.Fatalf("expected Verified, got %s", resp.Status)
	}
	// 200.00 at the 10% default books exactly 20.00.
	if resp.CommissionAmountCents == nil || *resp.CommissionAmountCents != 2000 {
		t.Fatalf("expected commission 2000 cents, got %v", resp.CommissionAmountCents)
	}
	if !resp.CommissionBooked || resp.CommissionPaid {
		t.Fatalf("expected booked but unpaid, got booked=%v paid=%v", resp.CommissionBooked, resp.CommissionPaid)
	}
}

func TestApproveUsesOverrideRate(t *testing.T) {
	repo := newFakeRepo()
	workOrderID := uuid.New()
	repo.open(workOrderID)
	techID := uuid.New()
	override := 15.0
	directory := fakeDirectory{terms: compensation.FreelancerTerms{CommissionRate: 10, OverrideCommissionRate: &override}}
	svc := newTestService(repo, fakeWorkOrders{technicianID: &techID}, directory, nil)

	uploadProof(t, svc, workOrderID, 20000)
	resp, err := svc.Decide(context.Background(), workOrderID, transport.VerifyRequest{Action: "APPROVE"}, uuid.New())
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if resp.CommissionAmountCents == nil || *resp.CommissionAmountCents != 3000 {
		t.Fatalf("expected override commission 3000 cents, got %v", resp.CommissionAmountCents)
	}
}

func TestApproveWithMarkPaidImmediately(t *testing.T) {
	repo := newFakeRepo()
	workOrderID := uuid.New()
	repo.open(workOrderID)
	techID := uuid.New()
	svc := newTestService(repo, fakeWorkOrders{technicianID: &techID}, nil, nil)

	uploadProof(t, svc, workOrderID, 10000)
	resp, err := svc.Decide(context.Background(), workOrderID, transport.VerifyRequest{Action: "APPROVE", MarkPaidImmediately: true}, uuid.New())
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !resp.CommissionPaid || resp.PaidDate == nil {
		t.Fatalf("expected paid immediately")
	}
}

func TestApproveWithoutTechnicianFails(t *testing.T) {
	repo := newFakeRepo()
	workOrderID := uuid.New()
	repo.open(workOrderID)
	svc := newTestService(repo, fakeWorkOrders{technicianID: nil}, nil, nil)

	uploadProof(t, svc, workOrderID, 10000)
	_, err := svc.Decide(context.Background(), workOrderID, transport.VerifyRequest{Action: "APPROVE"}, uuid.New())
	if !apperr.Is(err, apperr.KindMissingDependency) {
		t.Fatalf("expected missing technician error, got %v", err)
	}

	record, err := svc.GetByWorkOrder(context.Background(), workOrderID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Status != "Proof Uploaded" {
		t.Fatalf("failed approve must not mutate, got %s", record.Status)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	repo := newFakeRepo()
	workOrderID := uuid.New()
	repo.open(workOrderID)
	techID := uuid.New()
	svc := newTestService(repo, fakeWorkOrders{technicianID: &techID}, nil, nil)

	uploadProof(t, svc, workOrderID, 10000)
	_, err := svc.Decide(context.Background(), workOrderID, transport.VerifyRequest{Action: "REJECT"}, uuid.New())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRejectClearsCommission(t *testing.T) {
	repo := newFakeRepo()
	workOrderID := uuid.New()
	repo.open(workOrderID)
	techID := uuid.New()
	svc := newTestService(repo, fakeWorkOrders{technicianID: &techID}, nil, nil)

	uploadProof(t, svc, workOrderID, 10000)
	reason := "amount does not match the receipt"
	resp, err := svc.Decide(context.Background(), workOrderID, transport.VerifyRequest{Action: "REJECT", Reason: &reason}, uuid.New())
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if resp.Status != "Rejected" {
		t.Fatalf("expected Rejected, got %s", resp.Status)
	}
	if resp.CommissionAmountCents != nil || resp.CommissionBooked {
		t.Fatalf("rejection must clear the commission, got %+v", resp)
	}
	if resp.RejectionReason == nil || *resp.RejectionReason != reason {
		t.Fatalf("rejection reason not recorded")
	}
}

func TestReuploadCycleUsesSecondProofAmount(t *testing.T) {
	repo := newFakeRepo()
	workOrderID := uuid.New()
	repo.open(workOrderID)
	techID := uuid.New()
	svc := newTestService(repo, fakeWorkOrders{technicianID: &techID}, nil, nil)

	uploadProof(t, svc, workOrderID, 10000)
	reason := "wrong receipt"
	if _, err := svc.Decide(context.Background(), workOrderID, transport.VerifyRequest{Action: "REJECT", Reason: &reason}, uuid.New()); err != nil {
		t.Fatalf("reject: %v", err)
	}

	second := uploadProof(t, svc, workOrderID, 12000)
	if second.RejectionReason != nil {
		t.Fatalf("re-upload must clear the rejection reason")
	}

	resp, err := svc.Decide(context.Background(), workOrderID, transport.VerifyRequest{Action: "APPROVE"}, uuid.New())
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	// 120.00 at 10%, not anything from the rejected 100.00 cycle.
	if resp.CommissionAmountCents == nil || *resp.CommissionAmountCents != 1200 {
		t.Fatalf("expected commission 1200 cents from second proof, got %v", resp.CommissionAmountCents)
	}
}

func TestVerifiedRecordIsSettled(t *testing.T) {
	repo := newFakeRepo()
	workOrderID := uuid.New()
	repo.open(workOrderID)
	techID := uuid.New()
	svc := newTestService(repo, fakeWorkOrders{technicianID: &techID}, nil, nil)

	uploadProof(t, svc, workOrderID, 10000)
	if _, err := svc.Decide(context.Background(), workOrderID, transport.VerifyRequest{Action: "APPROVE"}, uuid.New()); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err := svc.Decide(context.Background(), workOrderID, transport.VerifyRequest{Action: "APPROVE"}, uuid.New())
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("second decision should be invalid transition, got %v", err)
	}

	ref := "proofs/late.jpg"
	_, err = svc.UploadProof(context.Background(), workOrderID, transport.UploadProofRequest{
		Method: "Cash", AmountCents: 100, ProofImageRef: &ref,
	}, nil, uuid.New())
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("upload on verified record should be invalid transition, got %v", err)
	}
}

func TestMarkPayoutPaidIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	workOrderID := uuid.New()
	repo.open(workOrderID)
	techID := uuid.New()
	svc := newTestService(repo, fakeWorkOrders{technicianID: &techID}, nil, nil)

	uploadProof(t, svc, workOrderID, 10000)
	if _, err := svc.Decide(context.Background(), workOrderID, transport.VerifyRequest{Action: "APPROVE"}, uuid.New()); err != nil {
		t.Fatalf("approve: %v", err)
	}

	first, err := svc.MarkPayoutPaid(context.Background(), workOrderID, uuid.New())
	if err != nil {
		t.Fatalf("first payout: %v", err)
	}
	if !first.CommissionPaid {
		t.Fatalf("expected paid")
	}

	second, err := svc.MarkPayoutPaid(context.Background(), workOrderID, uuid.New())
	if err != nil {
		t.Fatalf("second payout should be a no-op: %v", err)
	}
	if second.Version != first.Version {
		t.Fatalf("no-op payout must not bump the version")
	}
}

func TestStatsCachedInRedis(t *testing.T) {
	repo := newFakeRepo()
	workOrderID := uuid.New()
	repo.open(workOrderID)
	techID := uuid.New()

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := newTestService(repo, fakeWorkOrders{technicianID: &techID}, nil, cache)

	first, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if first.PendingCount != 1 {
		t.Fatalf("expected 1 pending, got %d", first.PendingCount)
	}

	if _, err := svc.Stats(context.Background()); err != nil {
		t.Fatalf("cached stats: %v", err)
	}
	if repo.statsCalls != 1 {
		t.Fatalf("second call should hit the cache, repo saw %d calls", repo.statsCalls)
	}

	mr.FastForward(defaultStatsCacheTTL + time.Second)
	if _, err := svc.Stats(context.Background()); err != nil {
		t.Fatalf("stats after expiry: %v", err)
	}
	if repo.statsCalls != 2 {
		t.Fatalf("expired cache should fall through, repo saw %d calls", repo.statsCalls)
	}
}
