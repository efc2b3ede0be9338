package adapters

import (
	"context"

	"github.com/google/uuid"

	payservice "fieldops_backend/internal/payments/service"
	worepository "fieldops_backend/internal/workorders/repository"
)

// WorkOrderSourceAdapter exposes work order state to the payments module.
// It implements payments/service.WorkOrderSource.
type WorkOrderSourceAdapter struct {
	repo worepository.WorkOrderReader
}

func NewWorkOrderSource(repo worepository.WorkOrderReader) *WorkOrderSourceAdapter {
	return &WorkOrderSourceAdapter{repo: repo}
}

func (a *WorkOrderSourceAdapter) Info(ctx context.Context, workOrderID uuid.UUID) (payservice.WorkOrderInfo, error) {
	order, err := a.repo.GetByID(ctx, workOrderID)
	if err != nil {
		return payservice.WorkOrderInfo{}, err
	}
	return payservice.WorkOrderInfo{
		WorkOrderID:          order.ID,
		Completed:            order.Status == worepository.StatusCompleted,
		AssignedTechnicianID: order.AssignedTechnicianID,
	}, nil
}

var _ payservice.WorkOrderSource = (*WorkOrderSourceAdapter)(nil)
