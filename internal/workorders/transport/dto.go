package transport

import "github.com/google/uuid"

// CreateWorkOrderRequest is the service request conversion boundary: a new
// work order always starts Pending and unassigned.
type CreateWorkOrderRequest struct {
	ServiceRequestID *uuid.UUID `json:"serviceRequestId,omitempty"`
	CustomerName     string     `json:"customerName" validate:"required,min=1,max=100"`
	CustomerPhone    string     `json:"customerPhone" validate:"required,min=3,max=32"`
	Category         string     `json:"category" validate:"required,min=1,max=100"`
	Priority         string     `json:"priority" validate:"required,oneof=Low Normal High Emergency"`
	Description      string     `json:"description" validate:"max=2000"`
	Address          string     `json:"address" validate:"required,min=1,max=300"`
	Latitude         float64    `json:"latitude" validate:"min=-90,max=90"`
	Longitude        float64    `json:"longitude" validate:"min=-180,max=180"`
	ScheduledDate    *string    `json:"scheduledDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ScheduledTime    *string    `json:"scheduledTime,omitempty" validate:"omitempty,max=20"`
}

// AssignRequest assigns a pending work order to a technician.
type AssignRequest struct {
	TechnicianID uuid.UUID `json:"technicianId" validate:"required"`
}

// ReassignRequest moves an assigned or in-progress work order to a different
// technician. The status is unchanged by a reassign.
type ReassignRequest struct {
	TechnicianID uuid.UUID `json:"technicianId" validate:"required"`
	Reason       string    `json:"reason" validate:"max=500"`
}

// ScheduleRequest updates schedule fields.
type ScheduleRequest struct {
	ScheduledDate     *string `json:"scheduledDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ScheduledTime     *string `json:"scheduledTime,omitempty" validate:"omitempty,max=20"`
	EstimatedDuration *int    `json:"estimatedDuration,omitempty" validate:"omitempty,min=1,max=1440"`
	Notes             *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// CancelRequest cancels a work order. A reason is always required.
type CancelRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

// ListWorkOrdersRequest filters the work order listing.
type ListWorkOrdersRequest struct {
	Status       *string `form:"status"`
	TechnicianID *string `form:"technicianId"`
	Priority     *string `form:"priority"`
	Search       string  `form:"search"`
	Page         int     `form:"page"`
	PageSize     int     `form:"pageSize"`
}

// PaymentSummary is the payment record embedded in a work order response.
// Present only once the order is completed.
type PaymentSummary struct {
	ID                    uuid.UUID `json:"id"`
	Status                string    `json:"status"`
	AmountCents           *int64    `json:"amountCents,omitempty"`
	Method                *string   `json:"method,omitempty"`
	CommissionAmountCents *int64    `json:"commissionAmountCents,omitempty"`
	CommissionBooked      bool      `json:"commissionBooked"`
	CommissionPaid        bool      `json:"commissionPaid"`
	RejectionReason       *string   `json:"rejectionReason,omitempty"`
}

// WorkOrderResponse represents a work order in API responses. Version is
// echoed so clients can detect staleness after a conflict.
type WorkOrderResponse struct {
	ID                   uuid.UUID       `json:"id"`
	ServiceRequestID     *uuid.UUID      `json:"serviceRequestId,omitempty"`
	CustomerName         string          `json:"customerName"`
	CustomerPhone        string          `json:"customerPhone"`
	Category             string          `json:"category"`
	Priority             string          `json:"priority"`
	Description          string          `json:"description"`
	Address              string          `json:"address"`
	Latitude             float64         `json:"latitude"`
	Longitude            float64         `json:"longitude"`
	Status               string          `json:"status"`
	AssignedTechnicianID *uuid.UUID      `json:"assignedTechnicianId,omitempty"`
	ScheduledDate        *string         `json:"scheduledDate,omitempty"`
	ScheduledTime        *string         `json:"scheduledTime,omitempty"`
	EstimatedDuration    *int            `json:"estimatedDuration,omitempty"`
	ScheduleNotes        *string         `json:"scheduleNotes,omitempty"`
	CancellationReason   *string         `json:"cancellationReason,omitempty"`
	CancelledAt          *string         `json:"cancelledAt,omitempty"`
	StartedAt            *string         `json:"startedAt,omitempty"`
	CompletedAt          *string         `json:"completedAt,omitempty"`
	Payment              *PaymentSummary `json:"payment,omitempty"`
	Version              int64           `json:"version"`
	CreatedAt            string          `json:"createdAt"`
	UpdatedAt            string          `json:"updatedAt"`
}

// WorkOrderListResponse wraps a paginated work order listing.
type WorkOrderListResponse struct {
	Items      []WorkOrderResponse `json:"items"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
}
