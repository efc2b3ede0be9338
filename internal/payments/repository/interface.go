package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the payment record lifecycle status. The enum is closed; wire
// tokens are stored verbatim.
type Status string

const (
	StatusPending       Status = "Pending"
	StatusProofUploaded Status = "Proof Uploaded"
	StatusVerified      Status = "Verified"
	StatusRejected      Status = "Rejected"
)

// ParseStatus validates a wire token against the closed enum.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusProofUploaded, StatusVerified, StatusRejected:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("unknown payment status %q", raw)
	}
}

// PaymentRecord tracks payment collection for exactly one completed work
// order. It is opened in the same transaction that completes the order, so
// a record always implies a completed order. Version serializes racing
// verify and reject decisions.
type PaymentRecord struct {
	ID          uuid.UUID
	WorkOrderID uuid.UUID
	Status      Status

	Method           *string
	AmountCents      *int64
	Notes            *string
	ProofImageKey    *string
	ProofCaptureDate *time.Time
	UploadedByID     *uuid.UUID
	UploadDate       *time.Time

	VerifiedByID    *uuid.UUID
	VerifiedDate    *time.Time
	RejectionReason *string

	CommissionAmountCents *int64
	CommissionBooked      bool
	BookedDate            *time.Time
	CommissionPaid        bool
	PaidDate              *time.Time

	Version   int64
	CreatedAt string
	UpdatedAt string
}

// UploadProofParams captures one proof submission. A re-upload after a
// rejection carries fresh values; the repository clears every decision field
// so nothing from the rejected cycle leaks into the new one.
type UploadProofParams struct {
	WorkOrderID      uuid.UUID
	Version          int64
	Method           string
	AmountCents      int64
	Notes            *string
	ProofImageKey    *string
	ProofCaptureDate *time.Time
	UploadedByID     uuid.UUID
	UploadDate       time.Time
}

// ApproveParams books the commission computed at decision time.
type ApproveParams struct {
	WorkOrderID           uuid.UUID
	Version               int64
	VerifiedByID          uuid.UUID
	VerifiedDate          time.Time
	CommissionAmountCents int64
	PaidImmediately       bool
}

// RejectParams records a rejection with its mandatory reason.
type RejectParams struct {
	WorkOrderID  uuid.UUID
	Version      int64
	VerifiedByID uuid.UUID
	VerifiedDate time.Time
	Reason       string
}

// ListParams filters the payment record listing.
type ListParams struct {
	Status *Status
	Offset int
	Limit  int
}

// Stats is the aggregate dispatcher view, computed in one query.
type Stats struct {
	PendingCount       int   `json:"pendingCount"`
	ProofUploadedCount int   `json:"proofUploadedCount"`
	VerifiedCount      int   `json:"verifiedCount"`
	RejectedCount      int   `json:"rejectedCount"`
	BookedCents        int64 `json:"bookedCents"`
	PaidCents          int64 `json:"paidCents"`
}

// PaymentReader provides read operations for payment records.
type PaymentReader interface {
	GetByWorkOrderID(ctx context.Context, workOrderID uuid.UUID) (PaymentRecord, error)
	List(ctx context.Context, params ListParams) ([]PaymentRecord, int, error)
	Stats(ctx context.Context) (Stats, error)
}

// PaymentWriter provides write operations. Mutations take the version the
// caller read; a version miss on an existing row means a lost race.
type PaymentWriter interface {
	UploadProof(ctx context.Context, params UploadProofParams) (PaymentRecord, error)
	Approve(ctx context.Context, params ApproveParams) (PaymentRecord, error)
	Reject(ctx context.Context, params RejectParams) (PaymentRecord, error)
	MarkPaid(ctx context.Context, workOrderID uuid.UUID, version int64, paidAt time.Time) (PaymentRecord, error)
}

// Repository combines all payment repository operations.
type Repository interface {
	PaymentReader
	PaymentWriter
}
