package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/patternops/governor/internal/domain"
)

type AttributionStore struct {
	db *pgxpool.Pool
}

func NewAttributionStore(db *pgxpool.Pool) *AttributionStore {
	return &AttributionStore{db: db}
}

func (s *AttributionStore) Create(ctx context.Context, a *domain.AttributionRecord) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO attribution_records (pattern_id, session_id, run_id, computed_tier, justification)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		a.PatternID, a.SessionID, a.RunID, a.ComputedTier, a.Justification,
	).Scan(&a.ID, &a.CreatedAt)
}

func (s *AttributionStore) ListByPattern(ctx context.Context, patternID uuid.UUID, limit int) ([]domain.AttributionRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, pattern_id, session_id, run_id, computed_tier, justification, created_at
		 FROM attribution_records
		 WHERE pattern_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		patternID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.AttributionRecord
	for rows.Next() {
		var a domain.AttributionRecord
		if err := rows.Scan(&a.ID, &a.PatternID, &a.SessionID, &a.RunID, &a.ComputedTier, &a.Justification, &a.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, a)
	}
	return records, rows.Err()
}
