// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"fieldops_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Work Order Lifecycle Events
// =============================================================================

// WorkOrderAssigned is published when a pending work order gets a technician.
type WorkOrderAssigned struct {
	BaseEvent
	WorkOrderID  uuid.UUID `json:"workOrderId"`
	TechnicianID uuid.UUID `json:"technicianId"`
	AssignedByID uuid.UUID `json:"assignedById"`
}

func (e WorkOrderAssigned) EventName() string { return "workorders.assigned" }

// WorkOrderReassigned is published when an assigned or in-progress work order
// moves to a different technician.
type WorkOrderReassigned struct {
	BaseEvent
	WorkOrderID          uuid.UUID `json:"workOrderId"`
	PreviousTechnicianID uuid.UUID `json:"previousTechnicianId"`
	NewTechnicianID      uuid.UUID `json:"newTechnicianId"`
	Reason               string    `json:"reason,omitempty"`
	ReassignedByID       uuid.UUID `json:"reassignedById"`
}

func (e WorkOrderReassigned) EventName() string { return "workorders.reassigned" }

// WorkOrderRescheduled is published when schedule fields change.
type WorkOrderRescheduled struct {
	BaseEvent
	WorkOrderID     uuid.UUID `json:"workOrderId"`
	ScheduledDate   string    `json:"scheduledDate"`
	ScheduledTime   string    `json:"scheduledTime"`
	RescheduledByID uuid.UUID `json:"rescheduledById"`
}

func (e WorkOrderRescheduled) EventName() string { return "workorders.rescheduled" }

// WorkOrderStarted is published when a technician starts the job.
type WorkOrderStarted struct {
	BaseEvent
	WorkOrderID  uuid.UUID `json:"workOrderId"`
	TechnicianID uuid.UUID `json:"technicianId"`
}

func (e WorkOrderStarted) EventName() string { return "workorders.started" }

// WorkOrderCompleted is published when the job is done and the payment record
// has been opened.
type WorkOrderCompleted struct {
	BaseEvent
	WorkOrderID  uuid.UUID `json:"workOrderId"`
	TechnicianID uuid.UUID `json:"technicianId"`
}

func (e WorkOrderCompleted) EventName() string { return "workorders.completed" }

// WorkOrderCancelled is published when a work order reaches the terminal
// cancelled state.
type WorkOrderCancelled struct {
	BaseEvent
	WorkOrderID   uuid.UUID `json:"workOrderId"`
	Reason        string    `json:"reason"`
	CancelledByID uuid.UUID `json:"cancelledById"`
}

func (e WorkOrderCancelled) EventName() string { return "workorders.cancelled" }

// =============================================================================
// Payment Verification Events
// =============================================================================

// PaymentProofUploaded is published when proof of payment lands on a
// completed work order (first upload or re-upload after rejection).
type PaymentProofUploaded struct {
	BaseEvent
	WorkOrderID  uuid.UUID `json:"workOrderId"`
	UploadedByID uuid.UUID `json:"uploadedById"`
	Method       string    `json:"method"`
	AmountCents  int64     `json:"amountCents"`
}

func (e PaymentProofUploaded) EventName() string { return "payments.proof_uploaded" }

// PaymentVerified is published when a proof is approved and the commission
// is booked.
type PaymentVerified struct {
	BaseEvent
	WorkOrderID           uuid.UUID `json:"workOrderId"`
	TechnicianID          uuid.UUID `json:"technicianId"`
	VerifiedByID          uuid.UUID `json:"verifiedById"`
	CommissionAmountCents int64     `json:"commissionAmountCents"`
	PaidImmediately       bool      `json:"paidImmediately"`
}

func (e PaymentVerified) EventName() string { return "payments.verified" }

// PaymentRejected is published when a proof is rejected; any previously
// computed commission has been cleared.
type PaymentRejected struct {
	BaseEvent
	WorkOrderID  uuid.UUID `json:"workOrderId"`
	Reason       string    `json:"reason"`
	RejectedByID uuid.UUID `json:"rejectedById"`
}

func (e PaymentRejected) EventName() string { return "payments.rejected" }

// CommissionPaidOut is published when a booked commission is marked as paid.
type CommissionPaidOut struct {
	BaseEvent
	WorkOrderID uuid.UUID `json:"workOrderId"`
	PaidByID    uuid.UUID `json:"paidById"`
}

func (e CommissionPaidOut) EventName() string { return "payments.paid_out" }

// =============================================================================
// Technician Roster Events
// =============================================================================

// TechnicianBlocked is published when a technician is blocked from new
// assignments. Existing assignments are unaffected.
type TechnicianBlocked struct {
	BaseEvent
	TechnicianID uuid.UUID `json:"technicianId"`
	Reason       string    `json:"reason"`
	BlockedByID  uuid.UUID `json:"blockedById"`
}

func (e TechnicianBlocked) EventName() string { return "technicians.blocked" }

// TechnicianUnblocked is published when a block is lifted.
type TechnicianUnblocked struct {
	BaseEvent
	TechnicianID  uuid.UUID `json:"technicianId"`
	UnblockedByID uuid.UUID `json:"unblockedById"`
}

func (e TechnicianUnblocked) EventName() string { return "technicians.unblocked" }
