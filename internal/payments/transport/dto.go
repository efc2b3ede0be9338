package transport

import (
	"github.com/google/uuid"

	"fieldops_backend/internal/payments/repository"
)

// Verification action tokens. The closed set is part of the boundary
// contract; anything else is rejected before the workflow is consulted.
const (
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)

// UploadProofRequest carries one proof of payment submission. The image file
// arrives as multipart alongside these fields; JSON clients may pass a
// pre-uploaded object key in proofImageRef instead.
type UploadProofRequest struct {
	Method        string  `form:"method" json:"method" validate:"required,oneof=Cash Card Transfer Invoice"`
	AmountCents   int64   `form:"amountCents" json:"amountCents" validate:"required,min=1"`
	Notes         *string `form:"notes" json:"notes,omitempty" validate:"omitempty,max=1000"`
	ProofImageRef *string `form:"proofImageRef" json:"proofImageRef,omitempty" validate:"omitempty,max=500"`
}

// VerifyRequest is the dispatcher's decision on an uploaded proof.
type VerifyRequest struct {
	Action              string  `json:"action" validate:"required,oneof=APPROVE REJECT"`
	Reason              *string `json:"reason,omitempty" validate:"omitempty,max=500"`
	MarkPaidImmediately bool    `json:"markPaidImmediately"`
}

// ListPaymentsRequest filters the payment record listing.
type ListPaymentsRequest struct {
	Status   *string `form:"status"`
	Page     int     `form:"page"`
	PageSize int     `form:"pageSize"`
}

// PaymentResponse represents a payment record in API responses. Version is
// echoed so clients can detect staleness after a conflict.
type PaymentResponse struct {
	ID          uuid.UUID `json:"id"`
	WorkOrderID uuid.UUID `json:"workOrderId"`
	Status      string    `json:"status"`

	Method           *string    `json:"method,omitempty"`
	AmountCents      *int64     `json:"amountCents,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	ProofImageURL    *string    `json:"proofImageUrl,omitempty"`
	ProofCaptureDate *string    `json:"proofCaptureDate,omitempty"`
	UploadedBy       *uuid.UUID `json:"uploadedBy,omitempty"`
	UploadDate       *string    `json:"uploadDate,omitempty"`

	VerifiedBy      *uuid.UUID `json:"verifiedBy,omitempty"`
	VerifiedDate    *string    `json:"verifiedDate,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`

	CommissionAmountCents *int64  `json:"commissionAmountCents,omitempty"`
	CommissionBooked      bool    `json:"commissionBooked"`
	BookedDate            *string `json:"bookedDate,omitempty"`
	CommissionPaid        bool    `json:"commissionPaid"`
	PaidDate              *string `json:"paidDate,omitempty"`

	Version   int64  `json:"version"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// PaymentListResponse wraps a paginated payment listing.
type PaymentListResponse struct {
	Items      []PaymentResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// StatsResponse is the aggregate dispatcher view.
type StatsResponse struct {
	repository.Stats
	CachedAt string `json:"cachedAt"`
}
