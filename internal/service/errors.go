package service

import "errors"

var (
	ErrPatternNotFound = errors.New("pattern not found")

	// ErrCycleDetected means committing the new version would let a pattern
	// supersede itself, directly or transitively.
	ErrCycleDetected = errors.New("version lineage cycle detected")

	// ErrAlreadySuperseded means the old pattern is no longer the current
	// version and cannot grow a second successor.
	ErrAlreadySuperseded = errors.New("pattern already superseded")

	// ErrHasAuditHistory blocks deletion of a pattern whose lifecycle
	// transitions would be orphaned. History must be archived first.
	ErrHasAuditHistory = errors.New("pattern has lifecycle audit history")

	// ErrConcurrentModification is returned after the optimistic retry
	// budget is exhausted; the caller retries with fresh state.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrUnknownTarget means a kill-switch command names neither a pattern
	// id nor a pattern class.
	ErrUnknownTarget = errors.New("event targets neither a pattern nor a pattern class")

	ErrSignatureMissing = errors.New("signature is required")
	ErrDomainMissing    = errors.New("domain_id is required")
	ErrSessionMissing   = errors.New("session_id is required")
	ErrEventIDMissing   = errors.New("event_id is required")
	ErrInvalidEventType = errors.New("invalid event_type")
	ErrInvalidTier      = errors.New("invalid evidence tier")
	ErrLowConfidence    = errors.New("confidence below acceptance threshold")
)
