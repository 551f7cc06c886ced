package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/patternops/governor/internal/domain"
	"github.com/patternops/governor/internal/store"
	"go.uber.org/zap"
)

// maxLineageDepth bounds the ancestor walk. A chain this deep is treated as
// a cycle and rejected: fail closed rather than loop.
const maxLineageDepth = 50

// VersionDraft is the caller-supplied content for a superseding version.
// Zero-valued fields inherit from the version being replaced.
type VersionDraft struct {
	ID               uuid.UUID
	Signature        string
	DomainID         string
	TaxonomyVersion  string
	DomainCandidates []domain.DomainCandidate
	Keywords         []string
	PatternClass     string
	Confidence       float64
	SourceSessions   []string
}

// LineageService maintains the supersedes/superseded-by chain and guarantees
// it stays acyclic. The two back-pointers are structurally independent, so
// acyclicity is enforced here, before commit, not by the storage layer.
type LineageService struct {
	patternStore domain.PatternStore
	logger       *zap.Logger
}

func NewLineageService(ps domain.PatternStore, logger *zap.Logger) *LineageService {
	return &LineageService{patternStore: ps, logger: logger}
}

// CreateNewVersion supersedes oldID with a fresh version built from draft.
// The ancestor chain of oldID is walked first; if the new id or any ancestor
// is re-encountered the write is rejected with ErrCycleDetected and nothing
// is mutated. On success the currency flip is atomic.
func (s *LineageService) CreateNewVersion(ctx context.Context, oldID uuid.UUID, draft VersionDraft) (*domain.Pattern, error) {
	old, err := s.patternStore.GetByID(ctx, oldID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPatternNotFound
		}
		return nil, err
	}
	if old.SupersededBy != nil || !old.IsCurrent {
		return nil, ErrAlreadySuperseded
	}

	newID := draft.ID
	if newID == uuid.Nil {
		newID = uuid.New()
	}

	if err := s.checkAcyclic(ctx, old, newID); err != nil {
		return nil, err
	}

	next, err := s.buildVersion(old, newID, draft)
	if err != nil {
		return nil, err
	}

	if err := s.patternStore.CommitNewVersion(ctx, old, next); err != nil {
		switch {
		case errors.Is(err, store.ErrStaleVersion), errors.Is(err, store.ErrDuplicate):
			return nil, ErrConcurrentModification
		}
		return nil, err
	}

	s.logger.Info("pattern version created",
		zap.String("old_id", old.ID.String()),
		zap.String("new_id", next.ID.String()),
		zap.Int("version_num", next.VersionNum))

	return next, nil
}

// checkAcyclic walks the supersedes chain from old toward the root and fails
// if newID or any already-visited ancestor reappears.
func (s *LineageService) checkAcyclic(ctx context.Context, old *domain.Pattern, newID uuid.UUID) error {
	seen := map[uuid.UUID]bool{newID: true}
	cur := old
	for depth := 0; ; depth++ {
		if depth >= maxLineageDepth {
			return ErrCycleDetected
		}
		if seen[cur.ID] {
			return ErrCycleDetected
		}
		seen[cur.ID] = true

		if cur.Supersedes == nil {
			return nil
		}
		ancestor, err := s.patternStore.GetByID(ctx, *cur.Supersedes)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Dangling ancestor pointer; the reachable chain is clean.
				return nil
			}
			return err
		}
		cur = ancestor
	}
}

func (s *LineageService) buildVersion(old *domain.Pattern, newID uuid.UUID, draft VersionDraft) (*domain.Pattern, error) {
	signature := draft.Signature
	if signature == "" {
		signature = old.Signature
	}
	domainID := draft.DomainID
	if domainID == "" {
		domainID = old.DomainID
	}
	taxonomy := draft.TaxonomyVersion
	if taxonomy == "" {
		taxonomy = old.TaxonomyVersion
	}
	class := draft.PatternClass
	if class == "" {
		class = old.PatternClass
	}
	keywords := draft.Keywords
	if keywords == nil {
		keywords = old.Keywords
	}
	candidates := draft.DomainCandidates
	if candidates == nil {
		candidates = old.DomainCandidates
	}
	confidence := draft.Confidence
	if confidence == 0 {
		confidence = old.Confidence
	}
	if confidence < domain.MinConfidence {
		return nil, ErrLowConfidence
	}

	oldID := old.ID
	return &domain.Pattern{
		ID:               newID,
		Signature:        signature,
		SignatureHash:    domain.ComputeSignatureHash(signature),
		DomainID:         domainID,
		TaxonomyVersion:  taxonomy,
		DomainCandidates: candidates,
		Keywords:         keywords,
		PatternClass:     class,
		Confidence:       confidence,
		// A new version starts governance from scratch: candidate status,
		// unmeasured tier, empty window.
		Status:           domain.StatusCandidate,
		EvidenceTier:     domain.TierUnmeasured,
		SourceSessions:   draft.SourceSessions,
		FirstSeenAt:      old.FirstSeenAt,
		LastSeenAt:       old.LastSeenAt,
		DistinctDaysSeen: old.DistinctDaysSeen,
		VersionNum:       old.VersionNum + 1,
		IsCurrent:        true,
		Supersedes:       &oldID,
	}, nil
}
