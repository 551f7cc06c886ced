package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/patternops/governor/internal/domain"
)

// TransitionStore is insert-only. Transitions are never updated or deleted;
// they must survive removal of the pattern they describe.
type TransitionStore struct {
	db *pgxpool.Pool
}

func NewTransitionStore(db *pgxpool.Pool) *TransitionStore {
	return &TransitionStore{db: db}
}

func (s *TransitionStore) Create(ctx context.Context, t *domain.LifecycleTransition) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO lifecycle_transitions (pattern_id, request_id, from_status, to_status, trigger, actor, gates)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		t.PatternID, t.RequestID, t.FromStatus, t.ToStatus, t.Trigger, t.Actor, t.Gates,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *TransitionStore) GetByRequest(ctx context.Context, requestID string, patternID uuid.UUID) (*domain.LifecycleTransition, error) {
	t := &domain.LifecycleTransition{}
	err := s.db.QueryRow(ctx,
		`SELECT id, pattern_id, request_id, from_status, to_status, trigger, actor, gates, created_at
		 FROM lifecycle_transitions
		 WHERE request_id = $1 AND pattern_id = $2`,
		requestID, patternID,
	).Scan(&t.ID, &t.PatternID, &t.RequestID, &t.FromStatus, &t.ToStatus, &t.Trigger, &t.Actor, &t.Gates, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *TransitionStore) ListByPattern(ctx context.Context, patternID uuid.UUID, limit int) ([]domain.LifecycleTransition, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, pattern_id, request_id, from_status, to_status, trigger, actor, gates, created_at
		 FROM lifecycle_transitions
		 WHERE pattern_id = $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		patternID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []domain.LifecycleTransition
	for rows.Next() {
		var t domain.LifecycleTransition
		if err := rows.Scan(&t.ID, &t.PatternID, &t.RequestID, &t.FromStatus, &t.ToStatus, &t.Trigger, &t.Actor, &t.Gates, &t.CreatedAt); err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}

func (s *TransitionStore) CountByPattern(ctx context.Context, patternID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM lifecycle_transitions WHERE pattern_id = $1`,
		patternID,
	).Scan(&count)
	return count, err
}
