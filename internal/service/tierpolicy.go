package service

import "github.com/patternops/governor/internal/domain"

// VerifiedConfidenceFloor is the justification confidence at which a
// measured attribution counts as independently verified.
const VerifiedConfidenceFloor = 0.9

// heuristicTierPolicy is the default TierPolicy. Without a pipeline run the
// tier is capped at observed; with one, the justification's own confidence
// signals decide between measured and verified.
type heuristicTierPolicy struct {
	verifiedFloor float64
}

func NewHeuristicTierPolicy() TierPolicy {
	return &heuristicTierPolicy{verifiedFloor: VerifiedConfidenceFloor}
}

func (p *heuristicTierPolicy) Classify(runID *string, justification map[string]any) domain.EvidenceTier {
	if runID == nil {
		return domain.TierObserved
	}
	if justification == nil {
		return domain.TierMeasured
	}
	if v, ok := justification["verified"].(bool); ok && v {
		return domain.TierVerified
	}
	if c, ok := justification["confidence"].(float64); ok && c >= p.verifiedFloor {
		return domain.TierVerified
	}
	return domain.TierMeasured
}
