package transport

import "github.com/google/uuid"

// CreateTechnicianRequest contains data for adding a technician to the roster.
// Rate and salary bounds are enforced here, at data entry; the calculator
// trusts validated inputs.
type CreateTechnicianRequest struct {
	Name           string   `json:"name" validate:"required,min=1,max=100"`
	Phone          string   `json:"phone" validate:"required,min=3,max=32"`
	Specialty      string   `json:"specialty" validate:"required,min=1,max=100"`
	EmploymentType string   `json:"employmentType" validate:"required,oneof=Freelancer InternalEmployee"`
	CommissionRate *float64 `json:"commissionRate,omitempty" validate:"omitempty,min=0,max=100"`
	SalaryCents    *int64   `json:"salaryCents,omitempty" validate:"omitempty,min=0"`
	BonusRate      *float64 `json:"bonusRate,omitempty" validate:"omitempty,min=0,max=100"`
	Latitude       float64  `json:"latitude" validate:"min=-90,max=90"`
	Longitude      float64  `json:"longitude" validate:"min=-180,max=180"`
}

// UpdateTechnicianRequest contains data for updating roster fields.
// Employment type and compensation are changed through the dedicated
// override endpoint, never here.
type UpdateTechnicianRequest struct {
	Name      *string  `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Phone     *string  `json:"phone,omitempty" validate:"omitempty,min=3,max=32"`
	Specialty *string  `json:"specialty,omitempty" validate:"omitempty,min=1,max=100"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
}

// BlockTechnicianRequest blocks a technician from new assignments.
type BlockTechnicianRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

// OverrideRequest sets a per-technician compensation override. The fields
// must match the technician's employment type; mismatches are rejected.
type OverrideRequest struct {
	OverrideCommissionRate *float64 `json:"overrideCommissionRate,omitempty" validate:"omitempty,min=0,max=100"`
	OverrideBonusRate      *float64 `json:"overrideBonusRate,omitempty" validate:"omitempty,min=0,max=100"`
	OverrideSalaryCents    *int64   `json:"overrideSalaryCents,omitempty" validate:"omitempty,min=0"`
}

// ListTechniciansRequest filters the roster listing.
type ListTechniciansRequest struct {
	Search         string  `form:"search"`
	Status         *string `form:"status"`
	EmploymentType *string `form:"employmentType"`
	Page           int     `form:"page"`
	PageSize       int     `form:"pageSize"`
}

// TechnicianResponse represents a technician in API responses.
// openWorkOrders and availability are derived from the current non-terminal
// work order set, never stored.
type TechnicianResponse struct {
	ID                      uuid.UUID `json:"id"`
	Name                    string    `json:"name"`
	Phone                   string    `json:"phone"`
	Specialty               string    `json:"specialty"`
	EmploymentType          string    `json:"employmentType"`
	Status                  string    `json:"status"`
	IsBlocked               bool      `json:"isBlocked"`
	BlockedReason           *string   `json:"blockedReason,omitempty"`
	BlockedDate             *string   `json:"blockedDate,omitempty"`
	OpenWorkOrders          int       `json:"openWorkOrders"`
	Availability            string    `json:"availability"`
	CommissionRate          *float64  `json:"commissionRate,omitempty"`
	SalaryCents             *int64    `json:"salaryCents,omitempty"`
	BonusRate               *float64  `json:"bonusRate,omitempty"`
	HasCompensationOverride bool      `json:"hasCompensationOverride"`
	OverrideCommissionRate  *float64  `json:"overrideCommissionRate,omitempty"`
	OverrideBonusRate       *float64  `json:"overrideBonusRate,omitempty"`
	OverrideSalaryCents     *int64    `json:"overrideSalaryCents,omitempty"`
	Latitude                float64   `json:"latitude"`
	Longitude               float64   `json:"longitude"`
	CreatedAt               string    `json:"createdAt"`
	UpdatedAt               string    `json:"updatedAt"`
}

// TechnicianListResponse wraps a paginated roster listing.
type TechnicianListResponse struct {
	Items      []TechnicianResponse `json:"items"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	TotalPages int                  `json:"totalPages"`
}

// CandidateResponse is one ranked entry in the assignment candidate list.
// Busy is advisory: dispatchers may still pick a busy technician.
type CandidateResponse struct {
	Technician TechnicianResponse `json:"technician"`
	DistanceKm float64            `json:"distanceKm"`
	Warning    *string            `json:"warning,omitempty"`
}

// CandidateListResponse wraps the ranked candidate list for a work order.
// An empty list is a valid "assign later" outcome.
type CandidateListResponse struct {
	WorkOrderID uuid.UUID           `json:"workOrderId"`
	Items       []CandidateResponse `json:"items"`
	Total       int                 `json:"total"`
}
