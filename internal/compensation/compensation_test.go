package compensation

import "testing"

func floatPtr(v float64) *float64 { return &v }

func TestEffectiveRateFreelancerUsesGlobalDefaultWithoutOverride(t *testing.T) {
	defaults := Defaults{CommissionRate: 10, BonusRate: 5}
	terms := FreelancerTerms{CommissionRate: 12}

	if got := EffectiveRate(terms, defaults); got != 10 {
		t.Fatalf("expected global commission rate 10, got %v", got)
	}
}

func TestEffectiveRateFreelancerOverrideWins(t *testing.T) {
	defaults := Defaults{CommissionRate: 10, BonusRate: 5}
	terms := FreelancerTerms{CommissionRate: 12, OverrideCommissionRate: floatPtr(15)}

	if got := EffectiveRate(terms, defaults); got != 15 {
		t.Fatalf("expected override rate 15, got %v", got)
	}
}

func TestEffectiveRateEmployeeUsesGlobalBonusWithoutOverride(t *testing.T) {
	defaults := Defaults{CommissionRate: 10, BonusRate: 5}
	terms := EmployeeTerms{SalaryCents: 350000, BonusRate: 4}

	if got := EffectiveRate(terms, defaults); got != 5 {
		t.Fatalf("expected global bonus rate 5, got %v", got)
	}
}

func TestEffectiveRateEmployeeOverrideWins(t *testing.T) {
	defaults := Defaults{CommissionRate: 10, BonusRate: 5}
	terms := EmployeeTerms{SalaryCents: 350000, BonusRate: 4, OverrideBonusRate: floatPtr(7.5)}

	if got := EffectiveRate(terms, defaults); got != 7.5 {
		t.Fatalf("expected override bonus rate 7.5, got %v", got)
	}
}

func TestEffectiveRateSalaryOverrideAloneDoesNotChangeRate(t *testing.T) {
	defaults := Defaults{BonusRate: 5}
	salary := int64(400000)
	terms := EmployeeTerms{SalaryCents: 350000, BonusRate: 4, OverrideSalaryCents: &salary}

	if !terms.HasOverride() {
		t.Fatal("salary override should count as an override")
	}
	if got := EffectiveRate(terms, defaults); got != 5 {
		t.Fatalf("salary override must not affect the bonus rate, got %v", got)
	}
}

func TestCommissionCents(t *testing.T) {
	// Freelancer at global 10% of a 200.00 payment books 20.00.
	if got := CommissionCents(20000, 10); got != 2000 {
		t.Fatalf("expected 2000 cents, got %d", got)
	}
	// Employee override 7.5% of 120.00 books 9.00.
	if got := CommissionCents(12000, 7.5); got != 900 {
		t.Fatalf("expected 900 cents, got %d", got)
	}
}

func TestCommissionCentsRoundsToNearestCent(t *testing.T) {
	if got := CommissionCents(333, 10); got != 33 {
		t.Fatalf("expected 33 cents for 3.33 at 10%%, got %d", got)
	}
	if got := CommissionCents(335, 10); got != 34 {
		t.Fatalf("expected 34 cents for 3.35 at 10%%, got %d", got)
	}
	if got := CommissionCents(0, 10); got != 0 {
		t.Fatalf("expected 0 cents for zero amount, got %d", got)
	}
}

func TestParseEmploymentTypeRejectsUnknownTokens(t *testing.T) {
	if _, err := ParseEmploymentType("Freelancer"); err != nil {
		t.Fatalf("expected Freelancer to parse, got %v", err)
	}
	if _, err := ParseEmploymentType("InternalEmployee"); err != nil {
		t.Fatalf("expected InternalEmployee to parse, got %v", err)
	}
	if _, err := ParseEmploymentType("contractor"); err == nil {
		t.Fatal("expected unknown employment type to be rejected")
	}
}
