package adapters

import (
	"context"

	"github.com/google/uuid"

	"fieldops_backend/platform/apperr"

	techservice "fieldops_backend/internal/technicians/service"
	worepository "fieldops_backend/internal/workorders/repository"
)

// WorkOrderLocatorAdapter resolves a work order to its job site for the
// assignment resolver. It is late-bound: the technicians module is built
// before the work orders module, so the repository is attached afterwards.
// It implements technicians/service.WorkOrderLocator.
type WorkOrderLocatorAdapter struct {
	repo worepository.WorkOrderReader
}

func NewWorkOrderLocator() *WorkOrderLocatorAdapter {
	return &WorkOrderLocatorAdapter{}
}

// Bind attaches the work order repository once it exists.
func (a *WorkOrderLocatorAdapter) Bind(repo worepository.WorkOrderReader) {
	a.repo = repo
}

func (a *WorkOrderLocatorAdapter) JobSite(ctx context.Context, workOrderID uuid.UUID) (techservice.JobSite, error) {
	if a.repo == nil {
		return techservice.JobSite{}, apperr.Internal("work order locator is not wired")
	}
	order, err := a.repo.GetByID(ctx, workOrderID)
	if err != nil {
		return techservice.JobSite{}, err
	}
	return techservice.JobSite{
		WorkOrderID: order.ID,
		Latitude:    order.Latitude,
		Longitude:   order.Longitude,
	}, nil
}

var _ techservice.WorkOrderLocator = (*WorkOrderLocatorAdapter)(nil)
