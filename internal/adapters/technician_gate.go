package adapters

import (
	"context"

	"github.com/google/uuid"

	techservice "fieldops_backend/internal/technicians/service"
	woservice "fieldops_backend/internal/workorders/service"
)

// TechnicianGateAdapter lets the work orders module check assignment
// eligibility against the technician roster.
// It implements workorders/service.TechnicianGate.
type TechnicianGateAdapter struct {
	svc *techservice.Service
}

func NewTechnicianGate(svc *techservice.Service) *TechnicianGateAdapter {
	return &TechnicianGateAdapter{svc: svc}
}

func (a *TechnicianGateAdapter) EnsureAssignable(ctx context.Context, technicianID uuid.UUID) error {
	return a.svc.EnsureAssignable(ctx, technicianID)
}

var _ woservice.TechnicianGate = (*TechnicianGateAdapter)(nil)
