package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/patternops/governor/internal/domain"
)

// DisableEventStore is the append-only kill-switch log. seq is a bigserial
// used as the final projection tie-break.
type DisableEventStore struct {
	db *pgxpool.Pool
}

func NewDisableEventStore(db *pgxpool.Pool) *DisableEventStore {
	return &DisableEventStore{db: db}
}

// Append inserts the event. Re-delivery of a known event_id is absorbed by
// ON CONFLICT DO NOTHING and reported as inserted=false.
func (s *DisableEventStore) Append(ctx context.Context, e *domain.DisableEvent) (bool, error) {
	err := s.db.QueryRow(ctx,
		`INSERT INTO disable_events (event_id, event_type, pattern_id, pattern_class, reason, actor, event_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (event_id) DO NOTHING
		 RETURNING seq, ingested_at`,
		e.EventID, e.Type, e.PatternID, e.PatternClass, e.Reason, e.Actor, e.EventAt,
	).Scan(&e.Seq, &e.IngestedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *DisableEventStore) ListAll(ctx context.Context) ([]domain.DisableEvent, error) {
	rows, err := s.db.Query(ctx,
		`SELECT seq, event_id, event_type, pattern_id, pattern_class, reason, actor, event_at, ingested_at
		 FROM disable_events
		 ORDER BY seq ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.DisableEvent
	for rows.Next() {
		var e domain.DisableEvent
		if err := rows.Scan(&e.Seq, &e.EventID, &e.Type, &e.PatternID, &e.PatternClass, &e.Reason, &e.Actor, &e.EventAt, &e.IngestedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *DisableEventStore) GetByEventID(ctx context.Context, eventID string) (*domain.DisableEvent, error) {
	e := &domain.DisableEvent{}
	err := s.db.QueryRow(ctx,
		`SELECT seq, event_id, event_type, pattern_id, pattern_class, reason, actor, event_at, ingested_at
		 FROM disable_events WHERE event_id = $1`,
		eventID,
	).Scan(&e.Seq, &e.EventID, &e.Type, &e.PatternID, &e.PatternClass, &e.Reason, &e.Actor, &e.EventAt, &e.IngestedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}
