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

// RegisterInput is the draft handed over by the ingestion pipeline when it
// promotes a discovered candidate into governance.
type RegisterInput struct {
	Signature        string
	DomainID         string
	TaxonomyVersion  string
	DomainCandidates []domain.DomainCandidate
	Keywords         []string
	PatternClass     string
	Confidence       float64
	SessionID        string
	ObservedAt       time.Time
}

// PatternService handles pattern registration and direct reads. Lifecycle,
// metrics and tier mutations belong to their own services.
type PatternService struct {
	patternStore domain.PatternStore
	logger       *zap.Logger
}

func NewPatternService(ps domain.PatternStore, logger *zap.Logger) *PatternService {
	return &PatternService{patternStore: ps, logger: logger}
}

func (s *PatternService) Register(ctx context.Context, in RegisterInput) (*domain.Pattern, error) {
	if in.Signature == "" {
		return nil, ErrSignatureMissing
	}
	if in.DomainID == "" {
		return nil, ErrDomainMissing
	}
	if in.SessionID == "" {
		return nil, ErrSessionMissing
	}
	if in.Confidence < domain.MinConfidence {
		return nil, ErrLowConfidence
	}

	observedAt := in.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	p := &domain.Pattern{
		Signature:        in.Signature,
		SignatureHash:    domain.ComputeSignatureHash(in.Signature),
		DomainID:         in.DomainID,
		TaxonomyVersion:  in.TaxonomyVersion,
		DomainCandidates: in.DomainCandidates,
		Keywords:         in.Keywords,
		PatternClass:     in.PatternClass,
		Confidence:       in.Confidence,
		Status:           domain.StatusCandidate,
		EvidenceTier:     domain.TierUnmeasured,
		VersionNum:       1,
		IsCurrent:        true,
	}
	p.MarkSeen(in.SessionID, observedAt)

	if err := s.patternStore.Create(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// A current version with this signature hash already exists in
			// the domain; new content goes through the lineage manager.
			return nil, ErrConcurrentModification
		}
		return nil, err
	}

	s.logger.Info("pattern registered",
		zap.String("pattern_id", p.ID.String()),
		zap.String("domain_id", p.DomainID),
		zap.String("signature_hash", p.SignatureHash))

	return p, nil
}

func (s *PatternService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Pattern, error) {
	p, err := s.patternStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPatternNotFound
		}
		return nil, err
	}
	return p, nil
}
