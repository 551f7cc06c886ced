package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patternops/governor/internal/domain"
	"github.com/patternops/governor/internal/store"
	"go.uber.org/zap"
)

const metricsActor = "metrics_tracker"

// MetricsService maintains the bounded rolling-window tally per pattern and
// hands every update to the lifecycle state machine for gate evaluation.
// Callers de-duplicate by (session, pattern) before delivery.
type MetricsService struct {
	patternStore domain.PatternStore
	lifecycle    *LifecycleService
	logger       *zap.Logger
}

func NewMetricsService(ps domain.PatternStore, lifecycle *LifecycleService, logger *zap.Logger) *MetricsService {
	return &MetricsService{
		patternStore: ps,
		lifecycle:    lifecycle,
		logger:       logger,
	}
}

// RecordOutcome applies one resolved injection outcome to the rolling window.
// Per-pattern serialization is optimistic: stale-version writes retry with
// fresh state up to maxMutationRetries.
func (s *MetricsService) RecordOutcome(ctx context.Context, patternID uuid.UUID, sessionID string, success bool) (*domain.Pattern, error) {
	if sessionID == "" {
		return nil, ErrSessionMissing
	}

	p, err := s.observe(ctx, patternID, sessionID, func(m *domain.RollingMetrics) {
		m.ObserveOutcome(success)
	})
	if err != nil {
		return nil, err
	}

	s.evaluate(ctx, "outcome:"+sessionID, p.ID)
	return p, nil
}

// RecordInjection notes an injection whose outcome has not resolved yet,
// which is what keeps successes+failures strictly below injections.
func (s *MetricsService) RecordInjection(ctx context.Context, patternID uuid.UUID, sessionID string) (*domain.Pattern, error) {
	if sessionID == "" {
		return nil, ErrSessionMissing
	}

	p, err := s.observe(ctx, patternID, sessionID, func(m *domain.RollingMetrics) {
		m.ObserveInjection()
	})
	if err != nil {
		return nil, err
	}

	s.evaluate(ctx, "injection:"+sessionID, p.ID)
	return p, nil
}

// RecordOutcomeBatch applies one session outcome to every pattern that was
// injected into the session.
func (s *MetricsService) RecordOutcomeBatch(ctx context.Context, patternIDs []uuid.UUID, sessionID string, success bool) ([]domain.Pattern, error) {
	var updated []domain.Pattern
	for _, id := range patternIDs {
		p, err := s.RecordOutcome(ctx, id, sessionID, success)
		if err != nil {
			return updated, err
		}
		updated = append(updated, *p)
	}
	return updated, nil
}

func (s *MetricsService) observe(ctx context.Context, patternID uuid.UUID, sessionID string, apply func(*domain.RollingMetrics)) (*domain.Pattern, error) {
	for attempt := 0; attempt < maxMutationRetries; attempt++ {
		p, err := s.patternStore.GetByID(ctx, patternID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrPatternNotFound
			}
			return nil, err
		}

		apply(&p.Metrics)
		if err := p.Metrics.Validate(); err != nil {
			// Never persist a window that violates its own invariants.
			return nil, err
		}
		p.MarkSeen(sessionID, time.Now().UTC())

		err = s.patternStore.Update(ctx, p)
		if errors.Is(err, store.ErrStaleVersion) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, ErrConcurrentModification
}

// evaluate triggers the lifecycle gates after a successful metrics write.
// The metrics update is already durable, so an evaluation failure is logged
// rather than surfaced — a concurrent writer will re-run the gates anyway.
func (s *MetricsService) evaluate(ctx context.Context, requestID string, patternID uuid.UUID) {
	if _, err := s.lifecycle.Evaluate(ctx, requestID, patternID, metricsActor); err != nil {
		s.logger.Warn("lifecycle evaluation failed after metrics update",
			zap.String("pattern_id", patternID.String()),
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
