package service

import (
	"context"

	"github.com/patternops/governor/internal/domain"
)

// EligibilityService is the injection-time read path: current-version,
// validated, tier-qualified patterns with every kill-switched one filtered
// out. Consumers never touch the event log or raw metrics directly.
type EligibilityService struct {
	patternStore domain.PatternStore
	killSwitch   *KillSwitchService
}

func NewEligibilityService(ps domain.PatternStore, ks *KillSwitchService) *EligibilityService {
	return &EligibilityService{patternStore: ps, killSwitch: ks}
}

// ListEligible returns the injectable patterns for a domain, optionally
// narrowed by class, with evidence tier at or above minTier.
func (s *EligibilityService) ListEligible(ctx context.Context, domainID string, patternClass string, minTier domain.EvidenceTier) ([]domain.Pattern, error) {
	if domainID == "" {
		return nil, ErrDomainMissing
	}
	if minTier == "" {
		minTier = domain.TierUnmeasured
	}
	if !domain.ValidTier(string(minTier)) {
		return nil, ErrInvalidTier
	}

	patterns, err := s.patternStore.ListEligible(ctx, domainID, patternClass, minTier)
	if err != nil {
		return nil, err
	}

	disabled, err := s.killSwitch.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	eligible := make([]domain.Pattern, 0, len(patterns))
	for _, p := range patterns {
		if _, ok := disabled[domain.PatternTargetKey(p.ID)]; ok {
			continue
		}
		if p.PatternClass != "" {
			if _, ok := disabled[domain.ClassTargetKey(p.PatternClass)]; ok {
				continue
			}
		}
		eligible = append(eligible, p)
	}
	return eligible, nil
}
