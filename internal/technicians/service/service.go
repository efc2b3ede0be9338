// Package service implements technician roster business logic.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fieldops_backend/internal/compensation"
	"fieldops_backend/internal/events"
	"fieldops_backend/internal/technicians/repository"
	"fieldops_backend/internal/technicians/transport"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/phone"
)

const defaultPageSize = 25

// Service handles technician roster operations.
type Service struct {
	repo     repository.Repository
	bus      events.Bus
	logger   *logger.Logger
	defaults compensation.Defaults
}

// New creates a new technician service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger, defaults compensation.Defaults) *Service {
	return &Service{repo: repo, bus: bus, logger: log, defaults: defaults}
}

// Defaults exposes the global default rates for callers that compute
// compensation outside this module.
func (s *Service) Defaults() compensation.Defaults {
	return s.defaults
}

// Create adds a technician to the roster. Base compensation fields must match
// the employment type: commission rate for freelancers, salary and bonus rate
// for internal employees. Fields left nil fall back to the global defaults at
// calculation time.
func (s *Service) Create(ctx context.Context, req transport.CreateTechnicianRequest) (transport.TechnicianResponse, error) {
	employmentType, err := compensation.ParseEmploymentType(req.EmploymentType)
	if err != nil {
		return transport.TechnicianResponse{}, apperr.Validation(err.Error())
	}
	if err := validateBaseCompensation(employmentType, req); err != nil {
		return transport.TechnicianResponse{}, err
	}
	if !phone.IsValid(req.Phone) {
		return transport.TechnicianResponse{}, apperr.Validation("invalid phone number")
	}

	tech, err := s.repo.Create(ctx, repository.CreateParams{
		Name:           req.Name,
		Phone:          phone.NormalizeE164(req.Phone),
		Specialty:      req.Specialty,
		EmploymentType: employmentType,
		CommissionRate: req.CommissionRate,
		SalaryCents:    req.SalaryCents,
		BonusRate:      req.BonusRate,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
	})
	if err != nil {
		return transport.TechnicianResponse{}, err
	}

	s.logger.WithContext(ctx).Info("technician created",
		"technicianId", tech.ID, "employmentType", string(tech.EmploymentType))
	return toResponse(tech, 0), nil
}

// Update changes roster fields. Compensation and employment type are out of
// scope here; use the override endpoints for pay changes.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateTechnicianRequest) (transport.TechnicianResponse, error) {
	params := repository.UpdateParams{
		ID:        id,
		Name:      req.Name,
		Specialty: req.Specialty,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	if req.Phone != nil {
		if !phone.IsValid(*req.Phone) {
			return transport.TechnicianResponse{}, apperr.Validation("invalid phone number")
		}
		normalized := phone.NormalizeE164(*req.Phone)
		params.Phone = &normalized
	}

	tech, err := s.repo.Update(ctx, params)
	if err != nil {
		return transport.TechnicianResponse{}, err
	}
	return s.withOpenCount(ctx, tech)
}

// GetByID returns a technician with the derived open work order count.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.TechnicianResponse, error) {
	tech, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.TechnicianResponse{}, err
	}
	return s.withOpenCount(ctx, tech)
}

// List returns a filtered, paginated roster with per-technician open work
// order counts from a single snapshot.
func (s *Service) List(ctx context.Context, req transport.ListTechniciansRequest) (transport.TechnicianListResponse, error) {
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
			return transport.TechnicianListResponse{}, apperr.Validation(err.Error())
		}
		params.Status = &status
	}
	if req.EmploymentType != nil {
		employmentType, err := compensation.ParseEmploymentType(*req.EmploymentType)
		if err != nil {
			return transport.TechnicianListResponse{}, apperr.Validation(err.Error())
		}
		params.EmploymentType = &employmentType
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.TechnicianListResponse{}, err
	}
	counts, err := s.repo.OpenWorkOrderCounts(ctx)
	if err != nil {
		return transport.TechnicianListResponse{}, err
	}

	responses := make([]transport.TechnicianResponse, 0, len(items))
	for _, tech := range items {
		responses = append(responses, toResponse(tech, counts[tech.ID]))
	}

	totalPages := (total + pageSize - 1) / pageSize
	return transport.TechnicianListResponse{
		Items:      responses,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Block marks a technician ineligible for new assignments. Work orders the
// technician already holds are untouched.
func (s *Service) Block(ctx context.Context, id uuid.UUID, reason string, actorID uuid.UUID) (transport.TechnicianResponse, error) {
	tech, err := s.repo.SetBlocked(ctx, id, reason, time.Now().UTC())
	if err != nil {
		return transport.TechnicianResponse{}, err
	}

	s.logger.WithContext(ctx).Info("technician blocked",
		"technicianId", id, "reason", reason)
	s.bus.Publish(ctx, events.TechnicianBlocked{
		BaseEvent:    events.NewBaseEvent(),
		TechnicianID: id,
		Reason:       reason,
		BlockedByID:  actorID,
	})
	return s.withOpenCount(ctx, tech)
}

// Unblock lifts a block and clears its metadata.
func (s *Service) Unblock(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (transport.TechnicianResponse, error) {
	tech, err := s.repo.ClearBlocked(ctx, id)
	if err != nil {
		return transport.TechnicianResponse{}, err
	}

	s.logger.WithContext(ctx).Info("technician unblocked", "technicianId", id)
	s.bus.Publish(ctx, events.TechnicianUnblocked{
		BaseEvent:     events.NewBaseEvent(),
		TechnicianID:  id,
		UnblockedByID: actorID,
	})
	return s.withOpenCount(ctx, tech)
}

// SetOverride replaces the per-technician compensation override. The override
// fields must match the technician's employment type; a freelancer cannot
// carry a bonus or salary override and an employee cannot carry a commission
// override.
func (s *Service) SetOverride(ctx context.Context, id uuid.UUID, req transport.OverrideRequest) (transport.TechnicianResponse, error) {
	tech, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.TechnicianResponse{}, err
	}

	switch tech.EmploymentType {
	case compensation.Freelancer:
		if req.OverrideBonusRate != nil || req.OverrideSalaryCents != nil {
			return transport.TechnicianResponse{}, apperr.Validation("freelancer override may only set a commission rate")
		}
		if req.OverrideCommissionRate == nil {
			return transport.TechnicianResponse{}, apperr.Validation("override requires a commission rate")
		}
	case compensation.InternalEmployee:
		if req.OverrideCommissionRate != nil {
			return transport.TechnicianResponse{}, apperr.Validation("employee override may only set a bonus rate or salary")
		}
		if req.OverrideBonusRate == nil && req.OverrideSalaryCents == nil {
			return transport.TechnicianResponse{}, apperr.Validation("override requires a bonus rate or salary")
		}
	}

	updated, err := s.repo.SetOverride(ctx, repository.OverrideParams{
		ID:                     id,
		OverrideCommissionRate: req.OverrideCommissionRate,
		OverrideBonusRate:      req.OverrideBonusRate,
		OverrideSalaryCents:    req.OverrideSalaryCents,
	})
	if err != nil {
		return transport.TechnicianResponse{}, err
	}

	s.logger.WithContext(ctx).Info("compensation override set", "technicianId", id)
	return s.withOpenCount(ctx, updated)
}

// ClearOverride removes the override; the global defaults apply again.
func (s *Service) ClearOverride(ctx context.Context, id uuid.UUID) (transport.TechnicianResponse, error) {
	tech, err := s.repo.ClearOverride(ctx, id)
	if err != nil {
		return transport.TechnicianResponse{}, err
	}
	s.logger.WithContext(ctx).Info("compensation override cleared", "technicianId", id)
	return s.withOpenCount(ctx, tech)
}

// EnsureAssignable verifies a technician can receive a new assignment.
// A blocked technician is a hard failure; workload is only advisory and
// never blocks here.
func (s *Service) EnsureAssignable(ctx context.Context, id uuid.UUID) error {
	tech, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if tech.Status == repository.StatusBlocked {
		return apperr.IneligibleTechnician(
			fmt.Sprintf("technician %s is blocked and cannot receive assignments", tech.Name))
	}
	return nil
}

// TermsFor returns the pay terms for a technician, used by the payment
// verification flow at decision time.
func (s *Service) TermsFor(ctx context.Context, id uuid.UUID) (compensation.Terms, error) {
	tech, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return tech.Terms(), nil
}

func (s *Service) withOpenCount(ctx context.Context, tech repository.Technician) (transport.TechnicianResponse, error) {
	counts, err := s.repo.OpenWorkOrderCounts(ctx)
	if err != nil {
		return transport.TechnicianResponse{}, err
	}
	return toResponse(tech, counts[tech.ID]), nil
}

func validateBaseCompensation(employmentType compensation.EmploymentType, req transport.CreateTechnicianRequest) error {
	switch employmentType {
	case compensation.Freelancer:
		if req.SalaryCents != nil || req.BonusRate != nil {
			return apperr.Validation("freelancer compensation may only set a commission rate")
		}
	case compensation.InternalEmployee:
		if req.CommissionRate != nil {
			return apperr.Validation("employee compensation may not set a commission rate")
		}
	}
	return nil
}

const (
	availabilityAvailable = "Available"
	availabilityBusy      = "Busy"
)

func toResponse(t repository.Technician, openCount int) transport.TechnicianResponse {
	availability := availabilityAvailable
	if openCount > 0 {
		availability = availabilityBusy
	}

	resp := transport.TechnicianResponse{
		ID:                      t.ID,
		Name:                    t.Name,
		Phone:                   t.Phone,
		Specialty:               t.Specialty,
		EmploymentType:          string(t.EmploymentType),
		Status:                  string(t.Status),
		IsBlocked:               t.Status == repository.StatusBlocked,
		BlockedReason:           t.BlockedReason,
		OpenWorkOrders:          openCount,
		Availability:            availability,
		CommissionRate:          t.CommissionRate,
		SalaryCents:             t.SalaryCents,
		BonusRate:               t.BonusRate,
		HasCompensationOverride: t.HasCompensationOverride(),
		OverrideCommissionRate:  t.OverrideCommissionRate,
		OverrideBonusRate:       t.OverrideBonusRate,
		OverrideSalaryCents:     t.OverrideSalaryCents,
		Latitude:                t.Latitude,
		Longitude:               t.Longitude,
		CreatedAt:               t.CreatedAt,
		UpdatedAt:               t.UpdatedAt,
	}
	if t.BlockedDate != nil {
		formatted := t.BlockedDate.Format(time.RFC3339)
		resp.BlockedDate = &formatted
	}
	return resp
}
