package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransitionTrigger string

const (
	TriggerPromotionGates TransitionTrigger = "promotion_gates_met"
	TriggerFailureStreak  TransitionTrigger = "failure_streak"
	TriggerQualityDecay   TransitionTrigger = "quality_decay"
)

// GateSnapshot captures the gate inputs and the thresholds in force at the
// moment a transition was decided, so the audit trail can justify itself.
type GateSnapshot struct {
	EvidenceTier        EvidenceTier `json:"evidence_tier"`
	QualityScore        float64      `json:"quality_score"`
	DistinctDaysSeen    int          `json:"distinct_days_seen"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	TierFloor           EvidenceTier `json:"tier_floor,omitempty"`
	QualityFloor        float64      `json:"quality_floor,omitempty"`
	MinDistinctDays     int          `json:"min_distinct_days,omitempty"`
	FailureCeiling      int          `json:"failure_ceiling,omitempty"`
	DecayQualityFloor   float64      `json:"decay_quality_floor,omitempty"`
}

// LifecycleTransition is the immutable audit record of one state change.
// Created only by the lifecycle state machine; never updated or deleted.
// (request_id, pattern_id) is unique — a retried request cannot apply twice.
type LifecycleTransition struct {
	ID         uuid.UUID         `json:"id"`
	PatternID  uuid.UUID         `json:"pattern_id"`
	RequestID  string            `json:"request_id"`
	FromStatus PatternStatus     `json:"from_status"`
	ToStatus   PatternStatus     `json:"to_status"`
	Trigger    TransitionTrigger `json:"trigger"`
	Actor      string            `json:"actor"`
	Gates      GateSnapshot      `json:"gates"`
	CreatedAt  time.Time         `json:"created_at"`
}
