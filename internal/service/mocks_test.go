package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patternops/governor/internal/domain"
	"github.com/patternops/governor/internal/store"
)

// mockPatternStore implements domain.PatternStore with row-version
// semantics so the optimistic retry paths are exercised.
type mockPatternStore struct {
	mu       sync.Mutex
	patterns map[uuid.UUID]*domain.Pattern
	// staleUpdates forces the next N updates to fail with ErrStaleVersion.
	staleUpdates int
}

func newMockPatternStore() *mockPatternStore {
	return &mockPatternStore{patterns: make(map[uuid.UUID]*domain.Pattern)}
}

func copyPattern(p *domain.Pattern) *domain.Pattern {
	c := *p
	c.Metrics.Window = append([]domain.Observation(nil), p.Metrics.Window...)
	c.Keywords = append([]string(nil), p.Keywords...)
	c.SourceSessions = append([]string(nil), p.SourceSessions...)
	c.DomainCandidates = append([]domain.DomainCandidate(nil), p.DomainCandidates...)
	return &c
}

func (m *mockPatternStore) Create(ctx context.Context, p *domain.Pattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.patterns {
		if existing.IsCurrent && p.IsCurrent &&
			existing.SignatureHash == p.SignatureHash && existing.DomainID == p.DomainID {
			return store.ErrDuplicate
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.RowVersion = 1
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.patterns[p.ID] = copyPattern(p)
	return nil
}

func (m *mockPatternStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Pattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.patterns[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyPattern(p), nil
}

func (m *mockPatternStore) Update(ctx context.Context, p *domain.Pattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.staleUpdates > 0 {
		m.staleUpdates--
		return store.ErrStaleVersion
	}

	existing, ok := m.patterns[p.ID]
	if !ok || existing.RowVersion != p.RowVersion {
		return store.ErrStaleVersion
	}
	p.RowVersion++
	p.UpdatedAt = time.Now().UTC()
	m.patterns[p.ID] = copyPattern(p)
	return nil
}

func (m *mockPatternStore) CommitNewVersion(ctx context.Context, old *domain.Pattern, next *domain.Pattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.patterns[old.ID]
	if !ok || existing.RowVersion != old.RowVersion {
		return store.ErrStaleVersion
	}

	existing.SupersededBy = &next.ID
	existing.IsCurrent = false
	existing.RowVersion++

	next.RowVersion = 1
	now := time.Now().UTC()
	next.CreatedAt = now
	next.UpdatedAt = now
	m.patterns[next.ID] = copyPattern(next)

	old.SupersededBy = &next.ID
	old.IsCurrent = false
	old.RowVersion = existing.RowVersion
	return nil
}

func (m *mockPatternStore) ListEligible(ctx context.Context, domainID string, patternClass string, minTier domain.EvidenceTier) ([]domain.Pattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Pattern
	for _, p := range m.patterns {
		if !p.IsCurrent || p.Status != domain.StatusValidated || p.DomainID != domainID {
			continue
		}
		if patternClass != "" && p.PatternClass != patternClass {
			continue
		}
		if domain.TierRank(p.EvidenceTier) < domain.TierRank(minTier) {
			continue
		}
		out = append(out, *copyPattern(p))
	}
	return out, nil
}

func (m *mockPatternStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.patterns[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.patterns, id)
	return nil
}

type transitionKey struct {
	requestID string
	patternID uuid.UUID
}

type mockTransitionStore struct {
	mu          sync.Mutex
	transitions []domain.LifecycleTransition
	byRequest   map[transitionKey]int
}

func newMockTransitionStore() *mockTransitionStore {
	return &mockTransitionStore{byRequest: make(map[transitionKey]int)}
}

func (m *mockTransitionStore) Create(ctx context.Context, t *domain.LifecycleTransition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := transitionKey{requestID: t.RequestID, patternID: t.PatternID}
	if _, ok := m.byRequest[key]; ok {
		return store.ErrDuplicate
	}
	t.ID = uuid.New()
	t.CreatedAt = time.Now().UTC()
	m.byRequest[key] = len(m.transitions)
	m.transitions = append(m.transitions, *t)
	return nil
}

func (m *mockTransitionStore) GetByRequest(ctx context.Context, requestID string, patternID uuid.UUID) (*domain.LifecycleTransition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.byRequest[transitionKey{requestID: requestID, patternID: patternID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	t := m.transitions[idx]
	return &t, nil
}

func (m *mockTransitionStore) ListByPattern(ctx context.Context, patternID uuid.UUID, limit int) ([]domain.LifecycleTransition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.LifecycleTransition
	for _, t := range m.transitions {
		if t.PatternID == patternID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTransitionStore) CountByPattern(ctx context.Context, patternID uuid.UUID) (int, error) {
	list, _ := m.ListByPattern(ctx, patternID, 0)
	return len(list), nil
}

type mockAttributionStore struct {
	mu      sync.Mutex
	records []domain.AttributionRecord
}

func newMockAttributionStore() *mockAttributionStore {
	return &mockAttributionStore{}
}

func (m *mockAttributionStore) Create(ctx context.Context, a *domain.AttributionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	m.records = append(m.records, *a)
	return nil
}

func (m *mockAttributionStore) ListByPattern(ctx context.Context, patternID uuid.UUID, limit int) ([]domain.AttributionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.AttributionRecord
	for _, a := range m.records {
		if a.PatternID == patternID {
			out = append(out, a)
		}
	}
	return out, nil
}

type mockEventStore struct {
	mu      sync.Mutex
	events  []domain.DisableEvent
	byID    map[string]int
	nextSeq int64
}

func newMockEventStore() *mockEventStore {
	return &mockEventStore{byID: make(map[string]int), nextSeq: 1}
}

func (m *mockEventStore) Append(ctx context.Context, e *domain.DisableEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[e.EventID]; ok {
		return false, nil
	}
	e.Seq = m.nextSeq
	m.nextSeq++
	if e.IngestedAt.IsZero() {
		e.IngestedAt = time.Now().UTC()
	}
	m.byID[e.EventID] = len(m.events)
	m.events = append(m.events, *e)
	return true, nil
}

func (m *mockEventStore) ListAll(ctx context.Context) ([]domain.DisableEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]domain.DisableEvent(nil), m.events...), nil
}

func (m *mockEventStore) GetByEventID(ctx context.Context, eventID string) (*domain.DisableEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.byID[eventID]
	if !ok {
		return nil, store.ErrNotFound
	}
	e := m.events[idx]
	return &e, nil
}
