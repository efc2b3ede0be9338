package adapters

import (
	"context"

	"github.com/google/uuid"

	"fieldops_backend/internal/compensation"
	payservice "fieldops_backend/internal/payments/service"
	techservice "fieldops_backend/internal/technicians/service"
)

// TechnicianDirectoryAdapter resolves pay terms for the payments module at
// verification time.
// It implements payments/service.TechnicianDirectory.
type TechnicianDirectoryAdapter struct {
	svc *techservice.Service
}

func NewTechnicianDirectory(svc *techservice.Service) *TechnicianDirectoryAdapter {
	return &TechnicianDirectoryAdapter{svc: svc}
}

func (a *TechnicianDirectoryAdapter) TermsFor(ctx context.Context, technicianID uuid.UUID) (compensation.Terms, error) {
	return a.svc.TermsFor(ctx, technicianID)
}

var _ payservice.TechnicianDirectory = (*TechnicianDirectoryAdapter)(nil)
