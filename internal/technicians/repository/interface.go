package repository

import (
	"context"
	"fmt"
	"time"

	"fieldops_backend/internal/compensation"

	"github.com/google/uuid"
)

// Status is the technician lifecycle status. Blocked technicians can never be
// the target of a new assignment; existing assignments are unaffected.
type Status string

const (
	StatusActive  Status = "Active"
	StatusBlocked Status = "Blocked"
)

// ParseStatus validates a wire token against the closed enum.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusActive, StatusBlocked:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("unknown technician status %q", raw)
	}
}

// Technician is the roster row. Compensation columns are flat in the table;
// the CHECK constraints in the schema only allow the columns matching the
// employment type to be populated, so Terms() can build the tagged variant
// without further validation.
type Technician struct {
	ID             uuid.UUID
	Name           string
	Phone          string
	Specialty      string
	EmploymentType compensation.EmploymentType
	Status         Status
	BlockedReason  *string
	BlockedDate    *time.Time

	CommissionRate         *float64
	SalaryCents            *int64
	BonusRate              *float64
	OverrideCommissionRate *float64
	OverrideBonusRate      *float64
	OverrideSalaryCents    *int64

	Latitude  float64
	Longitude float64

	CreatedAt string
	UpdatedAt string
}

// Terms returns the technician's pay terms as the tagged compensation variant.
func (t Technician) Terms() compensation.Terms {
	if t.EmploymentType == compensation.Freelancer {
		terms := compensation.FreelancerTerms{OverrideCommissionRate: t.OverrideCommissionRate}
		if t.CommissionRate != nil {
			terms.CommissionRate = *t.CommissionRate
		}
		return terms
	}
	terms := compensation.EmployeeTerms{
		OverrideBonusRate:   t.OverrideBonusRate,
		OverrideSalaryCents: t.OverrideSalaryCents,
	}
	if t.SalaryCents != nil {
		terms.SalaryCents = *t.SalaryCents
	}
	if t.BonusRate != nil {
		terms.BonusRate = *t.BonusRate
	}
	return terms
}

// HasCompensationOverride reports whether any override column is set.
func (t Technician) HasCompensationOverride() bool {
	return t.Terms().HasOverride()
}

// CreateParams contains parameters for creating a technician.
type CreateParams struct {
	Name           string
	Phone          string
	Specialty      string
	EmploymentType compensation.EmploymentType
	CommissionRate *float64
	SalaryCents    *int64
	BonusRate      *float64
	Latitude       float64
	Longitude      float64
}

// UpdateParams contains parameters for updating a technician. Nil fields are
// left unchanged.
type UpdateParams struct {
	ID        uuid.UUID
	Name      *string
	Phone     *string
	Specialty *string
	Latitude  *float64
	Longitude *float64
}

// OverrideParams sets the per-technician compensation override. Only the
// fields matching the employment type may be non-nil.
type OverrideParams struct {
	ID                     uuid.UUID
	OverrideCommissionRate *float64
	OverrideBonusRate      *float64
	OverrideSalaryCents    *int64
}

// ListParams filters the roster listing.
type ListParams struct {
	Search         string
	Status         *Status
	EmploymentType *compensation.EmploymentType
	Offset         int
	Limit          int
}

// TechnicianReader provides read operations for the roster.
type TechnicianReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Technician, error)
	List(ctx context.Context, params ListParams) ([]Technician, int, error)
	// OpenWorkOrderCounts returns, per technician, the number of work orders
	// not in a terminal state. One query, one snapshot.
	OpenWorkOrderCounts(ctx context.Context) (map[uuid.UUID]int, error)
}

// TechnicianWriter provides write operations for the roster.
type TechnicianWriter interface {
	Create(ctx context.Context, params CreateParams) (Technician, error)
	Update(ctx context.Context, params UpdateParams) (Technician, error)
	SetBlocked(ctx context.Context, id uuid.UUID, reason string, blockedAt time.Time) (Technician, error)
	ClearBlocked(ctx context.Context, id uuid.UUID) (Technician, error)
	SetOverride(ctx context.Context, params OverrideParams) (Technician, error)
	ClearOverride(ctx context.Context, id uuid.UUID) (Technician, error)
}

// Repository combines all technician repository operations.
type Repository interface {
	TechnicianReader
	TechnicianWriter
}
