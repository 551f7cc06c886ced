package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/patternops/governor/internal/domain"
	"github.com/patternops/governor/internal/store"
	"go.uber.org/zap"
)

// maxMutationRetries bounds the optimistic-concurrency retry loop on
// per-pattern writes before surfacing ErrConcurrentModification.
const maxMutationRetries = 5

// LifecycleService is the orchestrating state machine. It combines rolling
// metrics, evidence tier and temporal stability into promotion/demotion
// decisions and records every actual state change as an immutable audit row.
type LifecycleService struct {
	patternStore    domain.PatternStore
	transitionStore domain.TransitionStore
	gates           GateConfig
	logger          *zap.Logger
}

func NewLifecycleService(ps domain.PatternStore, ts domain.TransitionStore, gates GateConfig, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{
		patternStore:    ps,
		transitionStore: ts,
		gates:           gates,
		logger:          logger,
	}
}

// EvaluateResult reports the outcome of one lifecycle evaluation.
// Transition is nil when the gates did not produce a state change.
type EvaluateResult struct {
	Pattern    *domain.Pattern             `json:"pattern"`
	Transition *domain.LifecycleTransition `json:"transition,omitempty"`
	Replayed   bool                        `json:"replayed"`
}

type gateDecision struct {
	to      domain.PatternStatus
	trigger domain.TransitionTrigger
}

// Evaluate runs the promotion/demotion gates for one pattern. The
// (requestID, patternID) pair applies at most once: a retried request
// returns the previously recorded transition instead of re-transitioning.
func (s *LifecycleService) Evaluate(ctx context.Context, requestID string, patternID uuid.UUID, actor string) (*EvaluateResult, error) {
	prior, err := s.transitionStore.GetByRequest(ctx, requestID, patternID)
	if err == nil {
		return s.replay(ctx, patternID, prior)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < maxMutationRetries; attempt++ {
		p, err := s.patternStore.GetByID(ctx, patternID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrPatternNotFound
			}
			return nil, err
		}

		decision, ok := s.decide(p)
		if !ok {
			return &EvaluateResult{Pattern: p}, nil
		}

		snapshot := s.snapshot(p, decision)
		from := p.Status
		p.Status = decision.to

		err = s.patternStore.Update(ctx, p)
		if errors.Is(err, store.ErrStaleVersion) {
			continue
		}
		if err != nil {
			return nil, err
		}

		tr := &domain.LifecycleTransition{
			PatternID:  p.ID,
			RequestID:  requestID,
			FromStatus: from,
			ToStatus:   decision.to,
			Trigger:    decision.trigger,
			Actor:      actor,
			Gates:      snapshot,
		}
		if err := s.transitionStore.Create(ctx, tr); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				// Lost an idempotency race; the other writer's record wins.
				existing, gerr := s.transitionStore.GetByRequest(ctx, requestID, patternID)
				if gerr != nil {
					return nil, gerr
				}
				return &EvaluateResult{Pattern: p, Transition: existing, Replayed: true}, nil
			}
			return nil, err
		}

		s.logger.Info("lifecycle transition",
			zap.String("pattern_id", p.ID.String()),
			zap.String("request_id", requestID),
			zap.String("from", string(from)),
			zap.String("to", string(decision.to)),
			zap.String("trigger", string(decision.trigger)))

		return &EvaluateResult{Pattern: p, Transition: tr}, nil
	}

	return nil, ErrConcurrentModification
}

func (s *LifecycleService) replay(ctx context.Context, patternID uuid.UUID, prior *domain.LifecycleTransition) (*EvaluateResult, error) {
	p, err := s.patternStore.GetByID(ctx, patternID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Audit rows outlive their pattern; still a valid replay.
			return &EvaluateResult{Transition: prior, Replayed: true}, nil
		}
		return nil, err
	}
	return &EvaluateResult{Pattern: p, Transition: prior, Replayed: true}, nil
}

// decide applies the gates. Demotion is checked first: recent behavior
// overrides accumulated reputation.
func (s *LifecycleService) decide(p *domain.Pattern) (gateDecision, bool) {
	if p.Status.DemotionEligible() {
		if p.Metrics.ConsecutiveFailures >= s.gates.FailureCeiling {
			return gateDecision{to: domain.StatusDeprecated, trigger: domain.TriggerFailureStreak}, true
		}
		resolved := p.Metrics.Successes + p.Metrics.Failures
		if resolved >= s.gates.DecayMinResolved && p.Metrics.QualityScore < s.gates.DecayQualityFloor {
			return gateDecision{to: domain.StatusDecayed, trigger: domain.TriggerQualityDecay}, true
		}
	}

	if p.Status.PromotionEligible() {
		target, ok := p.Status.PromotionTarget()
		if !ok {
			return gateDecision{}, false
		}
		tierOK := domain.TierRank(p.EvidenceTier) >= domain.TierRank(s.gates.tierFloor(target))
		stabilityOK := p.DistinctDaysSeen >= s.gates.MinDistinctDays
		qualityOK := p.Metrics.QualityScore >= s.gates.qualityFloor(target)
		if tierOK && stabilityOK && qualityOK {
			return gateDecision{to: target, trigger: domain.TriggerPromotionGates}, true
		}
	}

	return gateDecision{}, false
}

func (s *LifecycleService) snapshot(p *domain.Pattern, d gateDecision) domain.GateSnapshot {
	snap := domain.GateSnapshot{
		EvidenceTier:        p.EvidenceTier,
		QualityScore:        p.Metrics.QualityScore,
		DistinctDaysSeen:    p.DistinctDaysSeen,
		ConsecutiveFailures: p.Metrics.ConsecutiveFailures,
	}
	switch d.trigger {
	case domain.TriggerPromotionGates:
		snap.TierFloor = s.gates.tierFloor(d.to)
		snap.QualityFloor = s.gates.qualityFloor(d.to)
		snap.MinDistinctDays = s.gates.MinDistinctDays
	case domain.TriggerFailureStreak:
		snap.FailureCeiling = s.gates.FailureCeiling
	case domain.TriggerQualityDecay:
		snap.DecayQualityFloor = s.gates.DecayQualityFloor
	}
	return snap
}

// Transitions returns the audit trail for a pattern, oldest first.
func (s *LifecycleService) Transitions(ctx context.Context, patternID uuid.UUID, limit int) ([]domain.LifecycleTransition, error) {
	return s.transitionStore.ListByPattern(ctx, patternID, limit)
}

// DeletePattern removes a pattern, but only if it has no audit history.
// Transitions are immutable and must be archived by a separate process
// before the pattern itself can go.
func (s *LifecycleService) DeletePattern(ctx context.Context, patternID uuid.UUID) error {
	count, err := s.transitionStore.CountByPattern(ctx, patternID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrHasAuditHistory
	}
	if err := s.patternStore.Delete(ctx, patternID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPatternNotFound
		}
		return err
	}
	return nil
}
