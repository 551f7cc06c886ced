package domain

import (
	"context"

	"github.com/google/uuid"
)

type PatternStore interface {
	Create(ctx context.Context, p *Pattern) error
	GetByID(ctx context.Context, id uuid.UUID) (*Pattern, error)
	// Update persists a mutated pattern guarded by its row version and bumps
	// the version on success. Returns ErrStaleVersion when another writer got
	// there first; the caller retries with fresh state.
	Update(ctx context.Context, p *Pattern) error
	// CommitNewVersion applies the supersession flip atomically: the old
	// pattern loses currency and gains a superseded_by pointer, the new
	// version is inserted as current. Both-or-neither.
	CommitNewVersion(ctx context.Context, old *Pattern, next *Pattern) error
	// ListEligible returns current versions in a domain with the given
	// status, optionally narrowed to a pattern class, at or above a tier
	// floor. Kill-switch filtering happens above the store.
	ListEligible(ctx context.Context, domainID string, patternClass string, minTier EvidenceTier) ([]Pattern, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type TransitionStore interface {
	Create(ctx context.Context, t *LifecycleTransition) error
	GetByRequest(ctx context.Context, requestID string, patternID uuid.UUID) (*LifecycleTransition, error)
	ListByPattern(ctx context.Context, patternID uuid.UUID, limit int) ([]LifecycleTransition, error)
	CountByPattern(ctx context.Context, patternID uuid.UUID) (int, error)
}

type AttributionStore interface {
	Create(ctx context.Context, a *AttributionRecord) error
	ListByPattern(ctx context.Context, patternID uuid.UUID, limit int) ([]AttributionRecord, error)
}

type DisableEventStore interface {
	// Append inserts the event, keyed on event_id. Re-delivery of a known
	// event_id reports inserted=false with no error.
	Append(ctx context.Context, e *DisableEvent) (inserted bool, err error)
	ListAll(ctx context.Context) ([]DisableEvent, error)
	GetByEventID(ctx context.Context, eventID string) (*DisableEvent, error)
}
