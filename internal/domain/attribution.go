package domain

import (
	"time"

	"github.com/google/uuid"
)

// AttributionRecord binds one session outcome to one evidence-tier
// computation. It is the source of truth for why a tier was assigned; the
// tier on Pattern is a read-optimized projection of the latest value here.
// Records are append-only, including ones that did not move the ceiling.
type AttributionRecord struct {
	ID        uuid.UUID `json:"id"`
	PatternID uuid.UUID `json:"pattern_id"`
	SessionID string    `json:"session_id"`
	// RunID references the measurement-pipeline run, when one exists.
	// Without it the computed tier is capped at observed.
	RunID         *string        `json:"run_id,omitempty"`
	ComputedTier  EvidenceTier   `json:"computed_tier"`
	Justification map[string]any `json:"justification,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
