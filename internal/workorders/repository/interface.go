package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the work order lifecycle status. The enum is closed; wire tokens
// are stored verbatim.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusAssigned   Status = "Assigned"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

// ParseStatus validates a wire token against the closed enum.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("unknown work order status %q", raw)
	}
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Priority is the dispatch priority of a work order.
type Priority string

const (
	PriorityLow       Priority = "Low"
	PriorityNormal    Priority = "Normal"
	PriorityHigh      Priority = "High"
	PriorityEmergency Priority = "Emergency"
)

// ParsePriority validates a wire token against the closed enum.
func ParsePriority(raw string) (Priority, error) {
	switch Priority(raw) {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityEmergency:
		return Priority(raw), nil
	default:
		return "", fmt.Errorf("unknown priority %q", raw)
	}
}

// WorkOrder is the dispatch unit. Version is the optimistic concurrency
// column: every mutation matches on it and increments it, so racing writers
// lose with a conflict instead of silently overwriting each other.
type WorkOrder struct {
	ID               uuid.UUID
	ServiceRequestID *uuid.UUID
	CustomerName     string
	CustomerPhone    string
	Category         string
	Priority         Priority
	Description      string
	Address          string
	Latitude         float64
	Longitude        float64

	Status               Status
	AssignedTechnicianID *uuid.UUID

	ScheduledDate     *string
	ScheduledTime     *string
	EstimatedDuration *int
	ScheduleNotes     *string

	CancellationReason *string
	CancelledAt        *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time

	Version   int64
	CreatedAt string
	UpdatedAt string
}

// CreateParams contains parameters for creating a work order.
type CreateParams struct {
	ServiceRequestID *uuid.UUID
	CustomerName     string
	CustomerPhone    string
	Category         string
	Priority         Priority
	Description      string
	Address          string
	Latitude         float64
	Longitude        float64
	ScheduledDate    *string
	ScheduledTime    *string
}

// ScheduleParams contains schedule fields; nil fields are left unchanged.
type ScheduleParams struct {
	ScheduledDate     *string
	ScheduledTime     *string
	EstimatedDuration *int
	Notes             *string
}

// ListParams filters the work order listing.
type ListParams struct {
	Status       *Status
	TechnicianID *uuid.UUID
	Priority     *Priority
	Search       string
	Offset       int
	Limit        int
}

// WorkOrderReader provides read operations for work orders.
type WorkOrderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (WorkOrder, error)
	List(ctx context.Context, params ListParams) ([]WorkOrder, int, error)
}

// WorkOrderWriter provides write operations. Mutations take the version the
// caller read; a version miss on an existing row means the caller lost a
// race and gets a conflict.
type WorkOrderWriter interface {
	Create(ctx context.Context, params CreateParams) (WorkOrder, error)
	Assign(ctx context.Context, id uuid.UUID, version int64, technicianID uuid.UUID) (WorkOrder, error)
	Reassign(ctx context.Context, id uuid.UUID, version int64, technicianID uuid.UUID) (WorkOrder, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, version int64, params ScheduleParams) (WorkOrder, error)
	Start(ctx context.Context, id uuid.UUID, version int64, startedAt time.Time) (WorkOrder, error)
	Cancel(ctx context.Context, id uuid.UUID, version int64, reason string, cancelledAt time.Time) (WorkOrder, error)
	// CompleteAndOpenPayment marks the order completed and opens its payment
	// record in the same transaction, so a completed order always has exactly
	// one record and a record never exists without a completed order.
	CompleteAndOpenPayment(ctx context.Context, id uuid.UUID, version int64, completedAt time.Time) (WorkOrder, error)
}

// Repository combines all work order repository operations.
type Repository interface {
	WorkOrderReader
	WorkOrderWriter
}
