package service

import "github.com/patternops/governor/internal/domain"

// Default gate thresholds. All of them are overridable via config; only
// their monotonicity properties are fixed.
const (
	DefaultProvisionalQualityFloor = 0.60
	DefaultValidatedQualityFloor   = 0.75
	DefaultMinDistinctDays         = 3
	DefaultFailureCeiling          = 5
	DefaultDecayQualityFloor       = 0.20
	DefaultDecayMinResolved        = 10
)

// GateConfig holds the promotion and demotion thresholds the lifecycle state
// machine evaluates against.
type GateConfig struct {
	// Promotion: all three gates must hold simultaneously for the target
	// state. Partial satisfaction is not a transition.
	ProvisionalTierFloor    domain.EvidenceTier
	ValidatedTierFloor      domain.EvidenceTier
	ProvisionalQualityFloor float64
	ValidatedQualityFloor   float64
	MinDistinctDays         int

	// Demotion: a failure streak at or above the ceiling overrides any
	// accumulated reputation.
	FailureCeiling int

	// Decay: quality collapse below the floor, once enough outcomes have
	// resolved to make the score meaningful, retires the pattern.
	DecayQualityFloor float64
	DecayMinResolved  int
}

func DefaultGateConfig() GateConfig {
	return GateConfig{
		ProvisionalTierFloor:    domain.TierObserved,
		ValidatedTierFloor:      domain.TierMeasured,
		ProvisionalQualityFloor: DefaultProvisionalQualityFloor,
		ValidatedQualityFloor:   DefaultValidatedQualityFloor,
		MinDistinctDays:         DefaultMinDistinctDays,
		FailureCeiling:          DefaultFailureCeiling,
		DecayQualityFloor:       DefaultDecayQualityFloor,
		DecayMinResolved:        DefaultDecayMinResolved,
	}
}

func (c GateConfig) tierFloor(target domain.PatternStatus) domain.EvidenceTier {
	if target == domain.StatusValidated {
		return c.ValidatedTierFloor
	}
	return c.ProvisionalTierFloor
}

func (c GateConfig) qualityFloor(target domain.PatternStatus) float64 {
	if target == domain.StatusValidated {
		return c.ValidatedQualityFloor
	}
	return c.ProvisionalQualityFloor
}
