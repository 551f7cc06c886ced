package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/patternops/governor/internal/domain"
	"github.com/patternops/governor/internal/store"
	"go.uber.org/zap"
)

const attributionActor = "attribution_binder"

// TierPolicy classifies one attribution into an evidence tier. The tier
// vocabulary and the monotonicity rule are fixed by the binder; only the
// classification of justification payloads is pluggable.
type TierPolicy interface {
	Classify(runID *string, justification map[string]any) domain.EvidenceTier
}

// AttributionService consumes session-outcome and pipeline-measurement
// events and advances a pattern's denormalized evidence tier. It is the sole
// writer of that field; everyone else reads it.
type AttributionService struct {
	attributionStore domain.AttributionStore
	patternStore     domain.PatternStore
	lifecycle        *LifecycleService
	policy           TierPolicy
	logger           *zap.Logger
}

func NewAttributionService(as domain.AttributionStore, ps domain.PatternStore, lifecycle *LifecycleService, policy TierPolicy, logger *zap.Logger) *AttributionService {
	return &AttributionService{
		attributionStore: as,
		patternStore:     ps,
		lifecycle:        lifecycle,
		policy:           policy,
		logger:           logger,
	}
}

// BindAttribution appends the attribution record and, when the computed tier
// is higher than the pattern's current one, advances the denormalized tier.
// A lower computed tier is a silent no-op for the pattern field — the record
// is still appended so the audit trail stays complete.
func (s *AttributionService) BindAttribution(ctx context.Context, patternID uuid.UUID, sessionID string, runID *string, justification map[string]any) (*domain.AttributionRecord, error) {
	if sessionID == "" {
		return nil, ErrSessionMissing
	}
	if runID == nil {
		// Justification only means something alongside a pipeline run.
		justification = nil
	}

	// Classified before entering the per-pattern critical section.
	tier := s.policy.Classify(runID, justification)
	if runID == nil && domain.TierRank(tier) > domain.TierRank(domain.TierObserved) {
		// Observed-only ceiling holds regardless of what the policy says.
		tier = domain.TierObserved
	}

	record := &domain.AttributionRecord{
		PatternID:     patternID,
		SessionID:     sessionID,
		RunID:         runID,
		ComputedTier:  tier,
		Justification: justification,
	}
	if err := s.attributionStore.Create(ctx, record); err != nil {
		return nil, err
	}

	advanced, err := s.advanceTier(ctx, patternID, tier)
	if err != nil {
		return nil, err
	}
	if advanced {
		s.lifecycleEvaluate(ctx, record, patternID)
	}
	return record, nil
}

// RecomputeTier rebuilds the denormalized tier from the attribution log, the
// source of truth. Still monotonic: the pattern field never regresses.
func (s *AttributionService) RecomputeTier(ctx context.Context, patternID uuid.UUID) (domain.EvidenceTier, error) {
	records, err := s.attributionStore.ListByPattern(ctx, patternID, 0)
	if err != nil {
		return "", err
	}
	tier := domain.TierUnmeasured
	for _, r := range records {
		tier = domain.MaxTier(tier, r.ComputedTier)
	}
	if _, err := s.advanceTier(ctx, patternID, tier); err != nil {
		return "", err
	}
	return tier, nil
}

func (s *AttributionService) advanceTier(ctx context.Context, patternID uuid.UUID, tier domain.EvidenceTier) (bool, error) {
	for attempt := 0; attempt < maxMutationRetries; attempt++ {
		p, err := s.patternStore.GetByID(ctx, patternID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return false, ErrPatternNotFound
			}
			return false, err
		}
		if domain.TierRank(tier) <= domain.TierRank(p.EvidenceTier) {
			return false, nil
		}

		p.EvidenceTier = tier
		err = s.patternStore.Update(ctx, p)
		if errors.Is(err, store.ErrStaleVersion) {
			continue
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}
	return false, ErrConcurrentModification
}

func (s *AttributionService) lifecycleEvaluate(ctx context.Context, record *domain.AttributionRecord, patternID uuid.UUID) {
	requestID := "attribution:" + record.SessionID
	if record.RunID != nil {
		requestID += ":" + *record.RunID
	}
	if _, err := s.lifecycle.Evaluate(ctx, requestID, patternID, attributionActor); err != nil {
		s.logger.Warn("lifecycle evaluation failed after tier advance",
			zap.String("pattern_id", patternID.String()),
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
