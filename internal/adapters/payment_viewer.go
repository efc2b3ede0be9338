package adapters

import (
	"context"

	"github.com/google/uuid"

	"fieldops_backend/platform/apperr"

	payservice "fieldops_backend/internal/payments/service"
	woservice "fieldops_backend/internal/workorders/service"
	wotransport "fieldops_backend/internal/workorders/transport"
)

// PaymentViewerAdapter embeds the payment record in work order responses.
// It is late-bound: the work orders module is built before the payments
// module, so the payment service is attached afterwards.
// It implements workorders/service.PaymentViewer.
type PaymentViewerAdapter struct {
	svc *payservice.Service
}

func NewPaymentViewer() *PaymentViewerAdapter {
	return &PaymentViewerAdapter{}
}

// Bind attaches the payment service once it exists.
func (a *PaymentViewerAdapter) Bind(svc *payservice.Service) {
	a.svc = svc
}

func (a *PaymentViewerAdapter) PaymentFor(ctx context.Context, workOrderID uuid.UUID) (*wotransport.PaymentSummary, error) {
	if a.svc == nil {
		return nil, nil
	}
	record, err := a.svc.GetByWorkOrder(ctx, workOrderID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wotransport.PaymentSummary{
		ID:                    record.ID,
		Status:                record.Status,
		AmountCents:           record.AmountCents,
		Method:                record.Method,
		CommissionAmountCents: record.CommissionAmountCents,
		CommissionBooked:      record.CommissionBooked,
		CommissionPaid:        record.CommissionPaid,
		RejectionReason:       record.RejectionReason,
	}, nil
}

var _ woservice.PaymentViewer = (*PaymentViewerAdapter)(nil)
