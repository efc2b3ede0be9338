// Package service implements the payment verification workflow.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"fieldops_backend/internal/compensation"
	"fieldops_backend/internal/events"
	"fieldops_backend/internal/metrics"
	"fieldops_backend/internal/payments/repository"
	"fieldops_backend/internal/payments/transport"
	"fieldops_backend/internal/storage"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/logger"
)

const (
	defaultPageSize = 25
	statsCacheKey   = "payments:stats"

	defaultProofBucket   = "payment-proofs"
	defaultStatsCacheTTL = 30 * time.Second
)

// WorkOrderInfo is the slice of work order state the workflow needs.
type WorkOrderInfo struct {
	WorkOrderID          uuid.UUID
	Completed            bool
	AssignedTechnicianID *uuid.UUID
}

// WorkOrderSource resolves work order state. Implemented by the work orders
// module and wired in at startup.
type WorkOrderSource interface {
	Info(ctx context.Context, workOrderID uuid.UUID) (WorkOrderInfo, error)
}

// TechnicianDirectory resolves pay terms at decision time, so the rate in
// force when the proof is approved is the one that gets booked.
type TechnicianDirectory interface {
	TermsFor(ctx context.Context, technicianID uuid.UUID) (compensation.Terms, error)
}

// ProofImage is an uploaded proof photo held in memory for EXIF inspection
// and object storage.
type ProofImage struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Service handles payment verification operations.
type Service struct {
	repo       repository.Repository
	workOrders WorkOrderSource
	directory  TechnicianDirectory
	store      storage.StorageService
	cache      *redis.Client
	bus        events.Bus
	logger     *logger.Logger
	metrics    *metrics.DispatchMetrics
	defaults   compensation.Defaults
	bucket     string
	statsTTL   time.Duration
}

// New creates a new payment service. The storage service and cache may be nil
// when the deployment runs without MinIO or Redis; proof images then require
// a proofImageRef and stats are computed per request.
func New(
	repo repository.Repository,
	workOrders WorkOrderSource,
	directory TechnicianDirectory,
	store storage.StorageService,
	cache *redis.Client,
	bus events.Bus,
	log *logger.Logger,
	m *metrics.DispatchMetrics,
	defaults compensation.Defaults,
	bucket string,
	statsTTL time.Duration,
) *Service {
	if bucket == "" {
		bucket = defaultProofBucket
	}
	if statsTTL <= 0 {
		statsTTL = defaultStatsCacheTTL
	}
	return &Service{
		repo:       repo,
		workOrders: workOrders,
		directory:  directory,
		store:      store,
		cache:      cache,
		bus:        bus,
		logger:     log,
		metrics:    m,
		defaults:   defaults,
		bucket:     bucket,
		statsTTL:   statsTTL,
	}
}

// GetByWorkOrder returns the payment record with a presigned proof URL when
// an image is stored.
func (s *Service) GetByWorkOrder(ctx context.Context, workOrderID uuid.UUID) (transport.PaymentResponse, error) {
	record, err := s.repo.GetByWorkOrderID(ctx, workOrderID)
	if err != nil {
		return transport.PaymentResponse{}, err
	}
	return s.toResponseWithProofURL(ctx, record), nil
}

// List returns payment records filtered by status.
func (s *Service) List(ctx context.Context, req transport.ListPaymentsRequest) (transport.PaymentListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = defaultPageSize
	}

	params := repository.ListParams{
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	}
	if req.Status != nil {
		status, err := repository.ParseStatus(*req.Status)
		if err != nil {
			return transport.PaymentListResponse{}, apperr.Validation(err.Error())
		}
		params.Status = &status
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.PaymentListResponse{}, err
	}

	responses := make([]transport.PaymentResponse, 0, len(items))
	for _, record := range items {
		responses = append(responses, toResponse(record))
	}

	totalPages := (total + pageSize - 1) / pageSize
	return transport.PaymentListResponse{
		Items:      responses,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// UploadProof records a proof of payment on a completed work order. Valid
// from Pending and from Rejected (the re-upload loop); a verified record is
// settled and rejects further uploads.
func (s *Service) UploadProof(ctx context.Context, workOrderID uuid.UUID, req transport.UploadProofRequest, image *ProofImage, actorID uuid.UUID) (transport.PaymentResponse, error) {
	record, err := s.repo.GetByWorkOrderID(ctx, workOrderID)
	if err != nil {
		return transport.PaymentResponse{}, err
	}
	if record.Status != repository.StatusPending && record.Status != repository.StatusRejected {
		s.metrics.RecordRejected("upload_proof", apperr.CodeInvalidTransition)
		return transport.PaymentResponse{}, apperr.InvalidTransition(
			fmt.Sprintf("cannot upload proof for a payment in status %q", string(record.Status)))
	}

	params := repository.UploadProofParams{
		WorkOrderID:  workOrderID,
		Version:      record.Version,
		Method:       req.Method,
		AmountCents:  req.AmountCents,
		Notes:        req.Notes,
		UploadedByID: actorID,
		UploadDate:   time.Now().UTC(),
	}

	switch {
	case image != nil:
		if s.store == nil {
			return transport.PaymentResponse{}, apperr.Validation("image uploads are not enabled, pass proofImageRef instead")
		}
		if int64(len(image.Data)) > s.store.MaxFileSize() {
			return transport.PaymentResponse{}, apperr.Validation("proof image exceeds the maximum upload size")
		}
		key, err := s.store.Upload(ctx, s.bucket, image.Filename, image.ContentType,
			int64(len(image.Data)), bytes.NewReader(image.Data))
		if err != nil {
			return transport.PaymentResponse{}, fmt.Errorf("store proof image: %w", err)
		}
		params.ProofImageKey = &key
		params.ProofCaptureDate = proofCaptureDate(image.Data)
	case req.ProofImageRef != nil:
		params.ProofImageKey = req.ProofImageRef
	default:
		return transport.PaymentResponse{}, apperr.Validation("a proof image or proofImageRef is required")
	}

	updated, err := s.repo.UploadProof(ctx, params)
	if err != nil {
		return transport.PaymentResponse{}, err
	}

	s.metrics.RecordTransition(string(record.Status), string(updated.Status))
	s.logger.StateTransition("payment_record", updated.ID.String(), string(record.Status), string(updated.Status), actorID.String())
	s.bus.Publish(ctx, events.PaymentProofUploaded{
		BaseEvent:    events.NewBaseEvent(),
		WorkOrderID:  workOrderID,
		UploadedByID: actorID,
		Method:       req.Method,
		AmountCents:  req.AmountCents,
	})
	return s.toResponseWithProofURL(ctx, updated), nil
}

// Decide settles an uploaded proof with an APPROVE or REJECT action. Both
// directions only apply to a record in Proof Uploaded; the version check
// settles racing decisions so a proof is never booked twice.
func (s *Service) Decide(ctx context.Context, workOrderID uuid.UUID, req transport.VerifyRequest, actorID uuid.UUID) (transport.PaymentResponse, error) {
	record, err := s.repo.GetByWorkOrderID(ctx, workOrderID)
	if err != nil {
		return transport.PaymentResponse{}, err
	}
	if record.Status != repository.StatusProofUploaded {
		s.metrics.RecordRejected("verify", apperr.CodeInvalidTransition)
		return transport.PaymentResponse{}, apperr.InvalidTransition(
			fmt.Sprintf("cannot verify a payment in status %q", string(record.Status)))
	}

	switch req.Action {
	case transport.ActionApprove:
		return s.approve(ctx, workOrderID, record, req.MarkPaidImmediately, actorID)
	case transport.ActionReject:
		return s.reject(ctx, workOrderID, record, req.Reason, actorID)
	default:
		return transport.PaymentResponse{}, apperr.Validation(
			fmt.Sprintf("unknown verification action %q", req.Action))
	}
}

func (s *Service) approve(ctx context.Context, workOrderID uuid.UUID, record repository.PaymentRecord, paidImmediately bool, actorID uuid.UUID) (transport.PaymentResponse, error) {
	info, err := s.workOrders.Info(ctx, workOrderID)
	if err != nil {
		return transport.PaymentResponse{}, err
	}
	if info.AssignedTechnicianID == nil {
		s.metrics.RecordRejected("verify", apperr.CodeMissingTechnician)
		return transport.PaymentResponse{}, apperr.MissingTechnician(
			"cannot book a commission without an assigned technician")
	}
	if record.AmountCents == nil {
		return transport.PaymentResponse{}, apperr.Validation("payment record has no proof amount")
	}

	terms, err := s.directory.TermsFor(ctx, *info.AssignedTechnicianID)
	if err != nil {
		return transport.PaymentResponse{}, err
	}
	rate := compensation.EffectiveRate(terms, s.defaults)
	commission := compensation.CommissionCents(*record.AmountCents, rate)

	updated, err := s.repo.Approve(ctx, repository.ApproveParams{
		WorkOrderID:           workOrderID,
		Version:               record.Version,
		VerifiedByID:          actorID,
		VerifiedDate:          time.Now().UTC(),
		CommissionAmountCents: commission,
		PaidImmediately:       paidImmediately,
	})
	if err != nil {
		return transport.PaymentResponse{}, err
	}

	s.metrics.RecordTransition(string(record.Status), string(updated.Status))
	s.metrics.RecordVerification(transport.ActionApprove)
	s.metrics.RecordCommissionBooked(commission)
	s.logger.StateTransition("payment_record", updated.ID.String(), string(record.Status), string(updated.Status), actorID.String())
	s.logger.WithContext(ctx).Info("commission booked",
		"workOrderId", workOrderID,
		"technicianId", *info.AssignedTechnicianID,
		"rate", rate,
		"commissionCents", commission,
	)
	s.bus.Publish(ctx, events.PaymentVerified{
		BaseEvent:             events.NewBaseEvent(),
		WorkOrderID:           workOrderID,
		TechnicianID:          *info.AssignedTechnicianID,
		VerifiedByID:          actorID,
		CommissionAmountCents: commission,
		PaidImmediately:       paidImmediately,
	})
	s.invalidateStats(ctx)
	return s.toResponseWithProofURL(ctx, updated), nil
}

func (s *Service) reject(ctx context.Context, workOrderID uuid.UUID, record repository.PaymentRecord, reason *string, actorID uuid.UUID) (transport.PaymentResponse, error) {
	if reason == nil || *reason == "" {
		return transport.PaymentResponse{}, apperr.Validation("a rejection reason is required")
	}

	updated, err := s.repo.Reject(ctx, repository.RejectParams{
		WorkOrderID:  workOrderID,
		Version:      record.Version,
		VerifiedByID: actorID,
		VerifiedDate: time.Now().UTC(),
		Reason:       *reason,
	})
	if err != nil {
		return transport.PaymentResponse{}, err
	}

	s.metrics.RecordTransition(string(record.Status), string(updated.Status))
	s.metrics.RecordVerification(transport.ActionReject)
	s.logger.StateTransition("payment_record", updated.ID.String(), string(record.Status), string(updated.Status), actorID.String())
	s.bus.Publish(ctx, events.PaymentRejected{
		BaseEvent:    events.NewBaseEvent(),
		WorkOrderID:  workOrderID,
		Reason:       *reason,
		RejectedByID: actorID,
	})
	s.invalidateStats(ctx)
	return s.toResponseWithProofURL(ctx, updated), nil
}

// MarkPayoutPaid flips the payout flag on a verified record. Marking an
// already paid record again is a no-op, not an error.
func (s *Service) MarkPayoutPaid(ctx context.Context, workOrderID uuid.UUID, actorID uuid.UUID) (transport.PaymentResponse, error) {
	record, err := s.repo.GetByWorkOrderID(ctx, workOrderID)
	if err != nil {
		return transport.PaymentResponse{}, err
	}
	if record.Status != repository.StatusVerified {
		s.metrics.RecordRejected("payout", apperr.CodeInvalidTransition)
		return transport.PaymentResponse{}, apperr.InvalidTransition(
			fmt.Sprintf("cannot mark a payout on a payment in status %q", string(record.Status)))
	}
	if record.CommissionPaid {
		return s.toResponseWithProofURL(ctx, record), nil
	}

	updated, err := s.repo.MarkPaid(ctx, workOrderID, record.Version, time.Now().UTC())
	if err != nil {
		return transport.PaymentResponse{}, err
	}

	s.metrics.RecordPayoutMarked()
	s.logger.WithContext(ctx).Info("payout marked paid", "workOrderId", workOrderID)
	s.bus.Publish(ctx, events.CommissionPaidOut{
		BaseEvent:   events.NewBaseEvent(),
		WorkOrderID: workOrderID,
		PaidByID:    actorID,
	})
	s.invalidateStats(ctx)
	return s.toResponseWithProofURL(ctx, updated), nil
}

// Stats returns the aggregate view, cached for a short window so dashboard
// polling does not hammer the aggregate query.
func (s *Service) Stats(ctx context.Context) (transport.StatsResponse, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, statsCacheKey).Bytes(); err == nil {
			var resp transport.StatsResponse
			if err := json.Unmarshal(cached, &resp); err == nil {
				return resp, nil
			}
		}
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return transport.StatsResponse{}, err
	}
	resp := transport.StatsResponse{
		Stats:    stats,
		CachedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if s.cache != nil {
		if payload, err := json.Marshal(resp); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, payload, s.statsTTL).Err(); err != nil {
				s.logger.Warn("failed to cache payment stats", "error", err)
			}
		}
	}
	return resp, nil
}

func (s *Service) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey).Err(); err != nil {
		s.logger.Warn("failed to invalidate payment stats cache", "error", err)
	}
}

func (s *Service) toResponseWithProofURL(ctx context.Context, record repository.PaymentRecord) transport.PaymentResponse {
	resp := toResponse(record)
	if s.store != nil && record.ProofImageKey != nil {
		presigned, err := s.store.PresignedDownloadURL(ctx, s.bucket, *record.ProofImageKey)
		if err != nil {
			s.logger.Warn("failed to presign proof image", "workOrderId", record.WorkOrderID, "error", err)
		} else {
			resp.ProofImageURL = &presigned.URL
		}
	}
	return resp
}

func toResponse(p repository.PaymentRecord) transport.PaymentResponse {
	return transport.PaymentResponse{
		ID:                    p.ID,
		WorkOrderID:           p.WorkOrderID,
		Status:                string(p.Status),
		Method:                p.Method,
		AmountCents:           p.AmountCents,
		Notes:                 p.Notes,
		ProofCaptureDate:      formatTime(p.ProofCaptureDate),
		UploadedBy:            p.UploadedByID,
		UploadDate:            formatTime(p.UploadDate),
		VerifiedBy:            p.VerifiedByID,
		VerifiedDate:          formatTime(p.VerifiedDate),
		RejectionReason:       p.RejectionReason,
		CommissionAmountCents: p.CommissionAmountCents,
		CommissionBooked:      p.CommissionBooked,
		BookedDate:            formatTime(p.BookedDate),
		CommissionPaid:        p.CommissionPaid,
		PaidDate:              formatTime(p.PaidDate),
		Version:               p.Version,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(time.RFC3339)
	return &formatted
}
