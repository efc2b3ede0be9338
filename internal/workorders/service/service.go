// Package service implements the work order lifecycle state machine.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fieldops_backend/internal/events"
	"fieldops_backend/internal/metrics"
	"fieldops_backend/internal/workorders/repository"
	"fieldops_backend/internal/workorders/transport"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/phone"
)

const defaultPageSize = 25

// TechnicianGate answers whether a technician can receive a new assignment.
// Implemented by the technicians module and wired in at startup.
type TechnicianGate interface {
	EnsureAssignable(ctx context.Context, technicianID uuid.UUID) error
}

// PaymentViewer returns the payment summary for a work order, or nil when no
// record exists yet. Implemented by the payments module.
type PaymentViewer interface {
	PaymentFor(ctx context.Context, workOrderID uuid.UUID) (*transport.PaymentSummary, error)
}

// Service handles work order lifecycle operations. Every mutation re-reads
// current status and version, rejects disallowed transitions before touching
// anything, and lets the version-matched update settle races.
type Service struct {
	repo     repository.Repository
	gate     TechnicianGate
	payments PaymentViewer
	bus      events.Bus
	logger   *logger.Logger
	metrics  *metrics.DispatchMetrics
}

// New creates a new work order service.
func New(repo repository.Repository, gate TechnicianGate, payments PaymentViewer, bus events.Bus, log *logger.Logger, m *metrics.DispatchMetrics) *Service {
	return &Service{repo: repo, gate: gate, payments: payments, bus: bus, logger: log, metrics: m}
}

// Allowed source states per operation. Terminal states appear nowhere, so
// nothing ever leaves Completed or Cancelled.
var allowedFrom = map[string][]repository.Status{
	"assign":     {repository.StatusPending},
	"reassign":   {repository.StatusAssigned, repository.StatusInProgress},
	"reschedule": {repository.StatusPending, repository.StatusAssigned, repository.StatusInProgress},
	"start":      {repository.StatusAssigned},
	"complete":   {repository.StatusInProgress},
	"cancel":     {repository.StatusPending, repository.StatusAssigned},
}

func (s *Service) ensureTransition(operation string, current repository.Status) error {
	for _, status := range allowedFrom[operation] {
		if current == status {
			return nil
		}
	}
	s.metrics.RecordRejected(operation, apperr.CodeInvalidTransition)
	return apperr.InvalidTransition(
		fmt.Sprintf("cannot %s a work order in status %q", operation, string(current)))
}

// Create converts an accepted service request into a Pending work order.
func (s *Service) Create(ctx context.Context, req transport.CreateWorkOrderRequest) (transport.WorkOrderResponse, error) {
	priority, err := repository.ParsePriority(req.Priority)
	if err != nil {
		return transport.WorkOrderResponse{}, apperr.Validation(err.Error())
	}

	order, err := s.repo.Create(ctx, repository.CreateParams{
		ServiceRequestID: req.ServiceRequestID,
		CustomerName:     req.CustomerName,
		CustomerPhone:    phone.NormalizeE164(req.CustomerPhone),
		Category:         req.Category,
		Priority:         priority,
		Description:      req.Description,
		Address:          req.Address,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		ScheduledDate:    req.ScheduledDate,
		ScheduledTime:    req.ScheduledTime,
	})
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}

	s.logger.WithContext(ctx).Info("work order created",
		"workOrderId", order.ID, "priority", string(order.Priority))
	return toResponse(order, nil), nil
}

// GetByID returns a work order with its payment record embedded when one
// exists.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.WorkOrderResponse, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}

	var payment *transport.PaymentSummary
	if order.Status == repository.StatusCompleted {
		payment, err = s.payments.PaymentFor(ctx, id)
		if err != nil {
			return transport.WorkOrderResponse{}, err
		}
	}
	return toResponse(order, payment), nil
}

// List returns a filtered, paginated work order listing.
func (s *Service) List(ctx context.Context, req transport.ListWorkOrdersRequest) (transport.WorkOrderListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = defaultPageSize
	}

	params := repository.ListParams{
		Search: req.Search,
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	}
	if req.Status != nil {
		status, err := repository.ParseStatus(*req.Status)
		if err != nil {
			return transport.WorkOrderListResponse{}, apperr.Validation(err.Error())
		}
		params.Status = &status
	}
	if req.Priority != nil {
		priority, err := repository.ParsePriority(*req.Priority)
		if err != nil {
			return transport.WorkOrderListResponse{}, apperr.Validation(err.Error())
		}
		params.Priority = &priority
	}
	if req.TechnicianID != nil {
		technicianID, err := uuid.Parse(*req.TechnicianID)
		if err != nil {
			return transport.WorkOrderListResponse{}, apperr.Validation("invalid technician id filter")
		}
		params.TechnicianID = &technicianID
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.WorkOrderListResponse{}, err
	}

	responses := make([]transport.WorkOrderResponse, 0, len(items))
	for _, order := range items {
		responses = append(responses, toResponse(order, nil))
	}

	totalPages := (total + pageSize - 1) / pageSize
	return transport.WorkOrderListResponse{
		Items:      responses,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Assign gives a Pending work order to a technician. Blocked technicians are
// rejected before any mutation.
func (s *Service) Assign(ctx context.Context, id uuid.UUID, req transport.AssignRequest, actorID uuid.UUID) (transport.WorkOrderResponse, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}
	if err := s.ensureTransition("assign", order.Status); err != nil {
		return transport.WorkOrderResponse{}, err
	}
	if err := s.gate.EnsureAssignable(ctx, req.TechnicianID); err != nil {
		s.metrics.RecordRejected("assign", apperr.CodeIneligibleTechnician)
		return transport.WorkOrderResponse{}, err
	}

	updated, err := s.repo.Assign(ctx, id, order.Version, req.TechnicianID)
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}

	s.metrics.RecordTransition(string(order.Status), string(updated.Status))
	s.metrics.RecordAssignment("assign")
	s.logger.StateTransition("work_order", id.String(), string(order.Status), string(updated.Status), actorID.String())
	s.bus.Publish(ctx, events.WorkOrderAssigned{
		BaseEvent:    events.NewBaseEvent(),
		WorkOrderID:  id,
		TechnicianID: req.TechnicianID,
		AssignedByID: actorID,
	})
	return toResponse(updated, nil), nil
}

// Reassign moves an Assigned or In Progress work order to another technician.
// The status does not change; open counts are derived, so nothing else needs
// touching.
func (s *Service) Reassign(ctx context.Context, id uuid.UUID, req transport.ReassignRequest, actorID uuid.UUID) (transport.WorkOrderResponse, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}
	if err := s.ensureTransition("reassign", order.Status); err != nil {
		return transport.WorkOrderResponse{}, err
	}
	if err := s.gate.EnsureAssignable(ctx, req.TechnicianID); err != nil {
		s.metrics.RecordRejected("reassign", apperr.CodeIneligibleTechnician)
		return transport.WorkOrderResponse{}, err
	}

	previousID := order.AssignedTechnicianID
	updated, err := s.repo.Reassign(ctx, id, order.Version, req.TechnicianID)
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}

	s.metrics.RecordAssignment("reassign")
	event := events.WorkOrderReassigned{
		BaseEvent:       events.NewBaseEvent(),
		WorkOrderID:     id,
		NewTechnicianID: req.TechnicianID,
		Reason:          req.Reason,
		ReassignedByID:  actorID,
	}
	if previousID != nil {
		event.PreviousTechnicianID = *previousID
	}
	s.bus.Publish(ctx, event)
	return toResponse(updated, nil), nil
}

// Reschedule updates schedule fields on a non-terminal, non-completed order.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req transport.ScheduleRequest, actorID uuid.UUID) (transport.WorkOrderResponse, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}
	if err := s.ensureTransition("reschedule", order.Status); err != nil {
		return transport.WorkOrderResponse{}, err
	}

	updated, err := s.repo.UpdateSchedule(ctx, id, order.Version, repository.ScheduleParams{
		ScheduledDate:     req.ScheduledDate,
		ScheduledTime:     req.ScheduledTime,
		EstimatedDuration: req.EstimatedDuration,
		Notes:             req.Notes,
	})
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}

	event := events.WorkOrderRescheduled{
		BaseEvent:       events.NewBaseEvent(),
		WorkOrderID:     id,
		RescheduledByID: actorID,
	}
	if updated.ScheduledDate != nil {
		event.ScheduledDate = *updated.ScheduledDate
	}
	if updated.ScheduledTime != nil {
		event.ScheduledTime = *updated.ScheduledTime
	}
	s.bus.Publish(ctx, event)
	return toResponse(updated, nil), nil
}

// Start moves an Assigned work order to In Progress.
func (s *Service) Start(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (transport.WorkOrderResponse, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}
	if err := s.ensureTransition("start", order.Status); err != nil {
		return transport.WorkOrderResponse{}, err
	}

	updated, err := s.repo.Start(ctx, id, order.Version, time.Now().UTC())
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}

	s.metrics.RecordTransition(string(order.Status), string(updated.Status))
	s.logger.StateTransition("work_order", id.String(), string(order.Status), string(updated.Status), actorID.String())
	event := events.WorkOrderStarted{
		BaseEvent:   events.NewBaseEvent(),
		WorkOrderID: id,
	}
	if updated.AssignedTechnicianID != nil {
		event.TechnicianID = *updated.AssignedTechnicianID
	}
	s.bus.Publish(ctx, event)
	return toResponse(updated, nil), nil
}

// Complete moves an In Progress work order to the terminal Completed status
// and opens its payment record in the same transaction.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (transport.WorkOrderResponse, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}
	if err := s.ensureTransition("complete", order.Status); err != nil {
		return transport.WorkOrderResponse{}, err
	}

	updated, err := s.repo.CompleteAndOpenPayment(ctx, id, order.Version, time.Now().UTC())
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}

	s.metrics.RecordTransition(string(order.Status), string(updated.Status))
	s.logger.StateTransition("work_order", id.String(), string(order.Status), string(updated.Status), actorID.String())
	event := events.WorkOrderCompleted{
		BaseEvent:   events.NewBaseEvent(),
		WorkOrderID: id,
	}
	if updated.AssignedTechnicianID != nil {
		event.TechnicianID = *updated.AssignedTechnicianID
	}
	s.bus.Publish(ctx, event)

	payment, err := s.payments.PaymentFor(ctx, id)
	if err != nil {
		return toResponse(updated, nil), nil
	}
	return toResponse(updated, payment), nil
}

// Cancel moves a Pending or Assigned work order to the terminal Cancelled
// status. The reason is mandatory and validated at the boundary.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, req transport.CancelRequest, actorID uuid.UUID) (transport.WorkOrderResponse, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}
	if err := s.ensureTransition("cancel", order.Status); err != nil {
		return transport.WorkOrderResponse{}, err
	}

	updated, err := s.repo.Cancel(ctx, id, order.Version, req.Reason, time.Now().UTC())
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}

	s.metrics.RecordTransition(string(order.Status), string(updated.Status))
	s.logger.StateTransition("work_order", id.String(), string(order.Status), string(updated.Status), actorID.String())
	s.bus.Publish(ctx, events.WorkOrderCancelled{
		BaseEvent:     events.NewBaseEvent(),
		WorkOrderID:   id,
		Reason:        req.Reason,
		CancelledByID: actorID,
	})
	return toResponse(updated, nil), nil
}

func toResponse(o repository.WorkOrder, payment *transport.PaymentSummary) transport.WorkOrderResponse {
	resp := transport.WorkOrderResponse{
		ID:                   o.ID,
		ServiceRequestID:     o.ServiceRequestID,
		CustomerName:         o.CustomerName,
		CustomerPhone:        o.CustomerPhone,
		Category:             o.Category,
		Priority:             string(o.Priority),
		Description:          o.Description,
		Address:              o.Address,
		Latitude:             o.Latitude,
		Longitude:            o.Longitude,
		Status:               string(o.Status),
		AssignedTechnicianID: o.AssignedTechnicianID,
		ScheduledDate:        o.ScheduledDate,
		ScheduledTime:        o.ScheduledTime,
		EstimatedDuration:    o.EstimatedDuration,
		ScheduleNotes:        o.ScheduleNotes,
		CancellationReason:   o.CancellationReason,
		Payment:              payment,
		Version:              o.Version,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
	resp.CancelledAt = formatTime(o.CancelledAt)
	resp.StartedAt = formatTime(o.StartedAt)
	resp.CompletedAt = formatTime(o.CompletedAt)
	return resp
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(time.RFC3339)
	return &formatted
}
