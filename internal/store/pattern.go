package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/patternops/governor/internal/domain"
)

type PatternStore struct {
	db *pgxpool.Pool
}

func NewPatternStore(db *pgxpool.Pool) *PatternStore {
	return &PatternStore{db: db}
}

const patternColumns = `id, signature, signature_hash, domain_id, taxonomy_version, domain_candidates,
	keywords, pattern_class, confidence, status, evidence_tier, metrics, source_sessions,
	first_seen_at, last_seen_at, distinct_days_seen, version_num, is_current,
	supersedes, superseded_by, row_version, created_at, updated_at`

func (s *PatternStore) Create(ctx context.Context, p *domain.Pattern) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO patterns (id, signature, signature_hash, domain_id, taxonomy_version, domain_candidates,
			keywords, pattern_class, confidence, status, evidence_tier, metrics, source_sessions,
			first_seen_at, last_seen_at, distinct_days_seen, version_num, is_current, supersedes, superseded_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		 RETURNING row_version, created_at, updated_at`,
		p.ID, p.Signature, p.SignatureHash, p.DomainID, p.TaxonomyVersion, p.DomainCandidates,
		p.Keywords, p.PatternClass, p.Confidence, p.Status, p.EvidenceTier, p.Metrics, p.SourceSessions,
		p.FirstSeenAt, p.LastSeenAt, p.DistinctDaysSeen, p.VersionNum, p.IsCurrent, p.Supersedes, p.SupersededBy,
	).Scan(&p.RowVersion, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *PatternStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Pattern, error) {
	p := &domain.Pattern{}
	err := s.db.QueryRow(ctx,
		`SELECT `+patternColumns+` FROM patterns WHERE id = $1`,
		id,
	).Scan(
		&p.ID, &p.Signature, &p.SignatureHash, &p.DomainID, &p.TaxonomyVersion, &p.DomainCandidates,
		&p.Keywords, &p.PatternClass, &p.Confidence, &p.Status, &p.EvidenceTier, &p.Metrics, &p.SourceSessions,
		&p.FirstSeenAt, &p.LastSeenAt, &p.DistinctDaysSeen, &p.VersionNum, &p.IsCurrent,
		&p.Supersedes, &p.SupersededBy, &p.RowVersion, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Update writes the pattern guarded by its row version. On success the row
// version is bumped and refreshed on p; losing the race returns
// ErrStaleVersion.
func (s *PatternStore) Update(ctx context.Context, p *domain.Pattern) error {
	err := s.db.QueryRow(ctx,
		`UPDATE patterns SET
			signature = $2, signature_hash = $3, domain_id = $4, taxonomy_version = $5, domain_candidates = $6,
			keywords = $7, pattern_class = $8, confidence = $9, status = $10, evidence_tier = $11, metrics = $12,
			source_sessions = $13, first_seen_at = $14, last_seen_at = $15, distinct_days_seen = $16,
			is_current = $17, supersedes = $18, superseded_by = $19,
			row_version = row_version + 1, updated_at = NOW()
		 WHERE id = $1 AND row_version = $20
		 RETURNING row_version, updated_at`,
		p.ID, p.Signature, p.SignatureHash, p.DomainID, p.TaxonomyVersion, p.DomainCandidates,
		p.Keywords, p.PatternClass, p.Confidence, p.Status, p.EvidenceTier, p.Metrics,
		p.SourceSessions, p.FirstSeenAt, p.LastSeenAt, p.DistinctDaysSeen,
		p.IsCurrent, p.Supersedes, p.SupersededBy, p.RowVersion,
	).Scan(&p.RowVersion, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStaleVersion
		}
		return err
	}
	return nil
}

// CommitNewVersion inserts the new version and retires the old one in a
// single transaction. The partial unique index on (signature_hash, domain_id)
// WHERE is_current backstops currency uniqueness inside the same atomic step.
func (s *PatternStore) CommitNewVersion(ctx context.Context, old *domain.Pattern, next *domain.Pattern) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE patterns SET superseded_by = $2, is_current = false,
			row_version = row_version + 1, updated_at = NOW()
		 WHERE id = $1 AND row_version = $3`,
		old.ID, next.ID, old.RowVersion,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleVersion
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO patterns (id, signature, signature_hash, domain_id, taxonomy_version, domain_candidates,
			keywords, pattern_class, confidence, status, evidence_tier, metrics, source_sessions,
			first_seen_at, last_seen_at, distinct_days_seen, version_num, is_current, supersedes, superseded_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		 RETURNING row_version, created_at, updated_at`,
		next.ID, next.Signature, next.SignatureHash, next.DomainID, next.TaxonomyVersion, next.DomainCandidates,
		next.Keywords, next.PatternClass, next.Confidence, next.Status, next.EvidenceTier, next.Metrics, next.SourceSessions,
		next.FirstSeenAt, next.LastSeenAt, next.DistinctDaysSeen, next.VersionNum, next.IsCurrent, next.Supersedes, next.SupersededBy,
	).Scan(&next.RowVersion, &next.CreatedAt, &next.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	old.SupersededBy = &next.ID
	old.IsCurrent = false
	old.RowVersion++
	return nil
}

func (s *PatternStore) ListEligible(ctx context.Context, domainID string, patternClass string, minTier domain.EvidenceTier) ([]domain.Pattern, error) {
	tiers := domain.TiersAtOrAbove(minTier)
	tierNames := make([]string, len(tiers))
	for i, t := range tiers {
		tierNames[i] = string(t)
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+patternColumns+`
		 FROM patterns
		 WHERE is_current = true
		   AND status = $1
		   AND domain_id = $2
		   AND ($3 = '' OR pattern_class = $3)
		   AND evidence_tier = ANY($4)
		 ORDER BY confidence DESC, created_at DESC`,
		domain.StatusValidated, domainID, patternClass, tierNames,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []domain.Pattern
	for rows.Next() {
		var p domain.Pattern
		if err := rows.Scan(
			&p.ID, &p.Signature, &p.SignatureHash, &p.DomainID, &p.TaxonomyVersion, &p.DomainCandidates,
			&p.Keywords, &p.PatternClass, &p.Confidence, &p.Status, &p.EvidenceTier, &p.Metrics, &p.SourceSessions,
			&p.FirstSeenAt, &p.LastSeenAt, &p.DistinctDaysSeen, &p.VersionNum, &p.IsCurrent,
			&p.Supersedes, &p.SupersededBy, &p.RowVersion, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

func (s *PatternStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM patterns WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
