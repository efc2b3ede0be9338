// Package compensation computes technician pay from payment amounts.
// All functions are pure: defaults are passed explicitly and never read from
// ambient state, so the same inputs always produce the same output.
package compensation

import (
	"fmt"
	"math"
)

// EmploymentType discriminates the two technician pay models.
type EmploymentType string

const (
	// Freelancer technicians earn a commission percentage per verified payment.
	Freelancer EmploymentType = "Freelancer"
	// InternalEmployee technicians are salaried and earn a bonus percentage
	// per verified payment.
	InternalEmployee EmploymentType = "InternalEmployee"
)

// ParseEmploymentType validates a wire token against the closed enum.
func ParseEmploymentType(raw string) (EmploymentType, error) {
	switch EmploymentType(raw) {
	case Freelancer, InternalEmployee:
		return EmploymentType(raw), nil
	default:
		return "", fmt.Errorf("unknown employment type %q", raw)
	}
}

// Defaults holds the global default rates, threaded in from configuration.
type Defaults struct {
	CommissionRate float64
	BonusRate      float64
}

// Terms is the tagged variant of a technician's pay terms. Exactly one
// concrete type exists per employment type, so an override can only carry
// the fields that match the variant.
type Terms interface {
	EmploymentType() EmploymentType
	// HasOverride reports whether a per-technician rate supersedes the
	// global default.
	HasOverride() bool
}

// FreelancerTerms is the pay model for commission-based technicians.
type FreelancerTerms struct {
	CommissionRate         float64
	OverrideCommissionRate *float64
}

func (FreelancerTerms) EmploymentType() EmploymentType { return Freelancer }

func (t FreelancerTerms) HasOverride() bool { return t.OverrideCommissionRate != nil }

// EmployeeTerms is the pay model for salaried technicians.
type EmployeeTerms struct {
	SalaryCents         int64
	BonusRate           float64
	OverrideBonusRate   *float64
	OverrideSalaryCents *int64
}

func (EmployeeTerms) EmploymentType() EmploymentType { return InternalEmployee }

func (t EmployeeTerms) HasOverride() bool {
	return t.OverrideBonusRate != nil || t.OverrideSalaryCents != nil
}

// EffectiveRate returns the percentage applied to a verified payment:
// the per-technician override when one is set, otherwise the global default
// matching the employment type. Rates are validated at data entry
// (0..100); no clamping happens here.
func EffectiveRate(terms Terms, defaults Defaults) float64 {
	switch t := terms.(type) {
	case FreelancerTerms:
		if t.OverrideCommissionRate != nil {
			return *t.OverrideCommissionRate
		}
		return defaults.CommissionRate
	case EmployeeTerms:
		if t.OverrideBonusRate != nil {
			return *t.OverrideBonusRate
		}
		return defaults.BonusRate
	default:
		return 0
	}
}

// CommissionCents computes the commission or bonus amount in cents for a
// payment amount in cents. Cents keep the booked amount exact to two
// decimals; rounding is to the nearest cent.
func CommissionCents(amountCents int64, rate float64) int64 {
	return int64(math.Round(float64(amountCents) * rate / 100.0))
}
