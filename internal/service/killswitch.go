package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patternops/governor/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultProjectorInterval = 30 * time.Second

// KillSwitchService owns the append-only disable/re-enable log and the
// derived currently-disabled projection. The projection is recomputed on
// demand (or by the background worker), never maintained incrementally;
// appends are acknowledged before the next projection pass reflects them.
type KillSwitchService struct {
	eventStore domain.DisableEventStore
	logger     *zap.Logger

	mu       sync.RWMutex
	snapshot map[string]domain.DisableEvent

	group singleflight.Group

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewKillSwitchService(es domain.DisableEventStore, logger *zap.Logger) *KillSwitchService {
	return &KillSwitchService{
		eventStore: es,
		logger:     logger,
		interval:   defaultProjectorInterval,
		stopCh:     make(chan struct{}),
	}
}

func (s *KillSwitchService) SetInterval(d time.Duration) {
	s.interval = d
}

// AppendEvent validates and appends one kill-switch action. Re-delivery of a
// known event_id is acknowledged, not rejected.
func (s *KillSwitchService) AppendEvent(ctx context.Context, e *domain.DisableEvent) (inserted bool, err error) {
	if e.EventID == "" {
		return false, ErrEventIDMissing
	}
	if !domain.ValidDisableEventType(string(e.Type)) {
		return false, ErrInvalidEventType
	}
	if len(e.TargetKeys()) == 0 {
		return false, ErrUnknownTarget
	}
	if e.EventAt.IsZero() {
		e.EventAt = time.Now().UTC()
	}

	inserted, err = s.eventStore.Append(ctx, e)
	if err != nil {
		return false, err
	}
	if !inserted {
		s.logger.Debug("duplicate kill-switch event absorbed",
			zap.String("event_id", e.EventID))
	}
	return inserted, nil
}

// Project recomputes the disabled-target view from the full event log.
// Concurrent callers collapse into a single log scan.
func (s *KillSwitchService) Project(ctx context.Context) (map[string]domain.DisableEvent, error) {
	v, err, _ := s.group.Do("project", func() (any, error) {
		events, err := s.eventStore.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		snap := domain.ProjectDisabled(events)

		s.mu.Lock()
		s.snapshot = snap
		s.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]domain.DisableEvent), nil
}

// Snapshot returns the last computed projection, computing one first if none
// exists yet. Brief staleness is acceptable by contract.
func (s *KillSwitchService) Snapshot(ctx context.Context) (map[string]domain.DisableEvent, error) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	return s.Project(ctx)
}

// IsDisabled checks a pattern against the cached projection, under both its
// own id key and its class key.
func (s *KillSwitchService) IsDisabled(ctx context.Context, patternID uuid.UUID, patternClass string) (bool, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := snap[domain.PatternTargetKey(patternID)]; ok {
		return true, nil
	}
	if patternClass != "" {
		if _, ok := snap[domain.ClassTargetKey(patternClass)]; ok {
			return true, nil
		}
	}
	return false, nil
}

// Start runs the background projector that keeps the snapshot fresh.
func (s *KillSwitchService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("kill-switch projector started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if _, err := s.Project(ctx); err != nil {
					s.logger.Error("kill-switch projection failed", zap.Error(err))
				}
				cancel()
			case <-s.stopCh:
				s.logger.Info("kill-switch projector stopped")
				return
			}
		}
	}()
}

func (s *KillSwitchService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}
