package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

type PatternStatus string

const (
	StatusCandidate   PatternStatus = "candidate"
	StatusProvisional PatternStatus = "provisional"
	StatusValidated   PatternStatus = "validated"
	StatusDeprecated  PatternStatus = "deprecated"
	StatusDecayed     PatternStatus = "decayed"
)

func ValidStatus(s string) bool {
	switch PatternStatus(s) {
	case StatusCandidate, StatusProvisional, StatusValidated, StatusDeprecated, StatusDecayed:
		return true
	}
	return false
}

// PromotionEligible reports whether a pattern in this status may be evaluated
// for promotion. Terminal and validated states are never promoted.
func (s PatternStatus) PromotionEligible() bool {
	return s == StatusCandidate || s == StatusProvisional
}

// DemotionEligible reports whether a pattern in this status may be demoted.
func (s PatternStatus) DemotionEligible() bool {
	return s == StatusProvisional || s == StatusValidated
}

// PromotionTarget returns the next status up the ladder.
func (s PatternStatus) PromotionTarget() (PatternStatus, bool) {
	switch s {
	case StatusCandidate:
		return StatusProvisional, true
	case StatusProvisional:
		return StatusValidated, true
	}
	return "", false
}

// MinConfidence is the acceptance floor for a pattern's base confidence.
const MinConfidence = 0.5

// DomainCandidate is one entry in the ranked list of domain classifications
// considered for a pattern, kept for later coherence checks.
type DomainCandidate struct {
	DomainID   string  `json:"domain_id"`
	Confidence float64 `json:"confidence"`
}

// Pattern is a candidate or accepted unit of reusable behavior under
// governance.
type Pattern struct {
	ID               uuid.UUID         `json:"id"`
	Signature        string            `json:"signature"`
	SignatureHash    string            `json:"signature_hash"`
	DomainID         string            `json:"domain_id"`
	TaxonomyVersion  string            `json:"taxonomy_version"`
	DomainCandidates []DomainCandidate `json:"domain_candidates,omitempty"`
	Keywords         []string          `json:"keywords,omitempty"`
	PatternClass     string            `json:"pattern_class"`
	Confidence       float64           `json:"confidence"`
	Status           PatternStatus     `json:"status"`
	EvidenceTier     EvidenceTier      `json:"evidence_tier"`
	Metrics          RollingMetrics    `json:"metrics"`
	SourceSessions   []string          `json:"source_sessions,omitempty"`
	FirstSeenAt      time.Time         `json:"first_seen_at"`
	LastSeenAt       time.Time         `json:"last_seen_at"`
	DistinctDaysSeen int               `json:"distinct_days_seen"`
	VersionNum       int               `json:"version_num"`
	IsCurrent        bool              `json:"is_current"`
	Supersedes       *uuid.UUID        `json:"supersedes,omitempty"`
	SupersededBy     *uuid.UUID        `json:"superseded_by,omitempty"`
	RowVersion       int64             `json:"row_version"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ComputeSignatureHash derives the content-addressed identity of a signature.
// Lineage is keyed on this hash, not the raw signature, so the signature
// format can evolve without breaking version chains.
func ComputeSignatureHash(signature string) string {
	h := sha256.Sum256([]byte(strings.TrimSpace(signature)))
	return hex.EncodeToString(h[:])
}

const maxSourceSessions = 50

// MarkSeen updates provenance for one observation. Distinct calendar days are
// counted in UTC; this is the temporal-stability gate input.
func (p *Pattern) MarkSeen(sessionID string, at time.Time) {
	at = at.UTC()
	if p.FirstSeenAt.IsZero() {
		p.FirstSeenAt = at
		p.LastSeenAt = at
		p.DistinctDaysSeen = 1
	} else {
		if !sameUTCDay(p.LastSeenAt, at) {
			p.DistinctDaysSeen++
		}
		if at.After(p.LastSeenAt) {
			p.LastSeenAt = at
		}
	}

	if sessionID == "" {
		return
	}
	for _, s := range p.SourceSessions {
		if s == sessionID {
			return
		}
	}
	if len(p.SourceSessions) < maxSourceSessions {
		p.SourceSessions = append(p.SourceSessions, sessionID)
	}
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
