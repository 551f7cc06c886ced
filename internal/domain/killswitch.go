package domain

import (
	"time"

	"github.com/google/uuid"
)

type DisableEventType string

const (
	EventDisabled  DisableEventType = "disabled"
	EventReEnabled DisableEventType = "re_enabled"
)

func ValidDisableEventType(t string) bool {
	switch DisableEventType(t) {
	case EventDisabled, EventReEnabled:
		return true
	}
	return false
}

// DisableEvent is one append-only kill-switch action against a specific
// pattern, an entire pattern class, or both. EventID is the idempotency key;
// EventAt is business time, distinct from IngestedAt.
type DisableEvent struct {
	Seq          int64            `json:"seq"`
	EventID      string           `json:"event_id"`
	Type         DisableEventType `json:"event_type"`
	PatternID    *uuid.UUID       `json:"pattern_id,omitempty"`
	PatternClass *string          `json:"pattern_class,omitempty"`
	Reason       string           `json:"reason"`
	Actor        string           `json:"actor"`
	EventAt      time.Time        `json:"event_at"`
	IngestedAt   time.Time        `json:"ingested_at"`
}

// PatternTargetKey namespaces a pattern id so it can never collide with a
// class name whose textual form happens to match.
func PatternTargetKey(id uuid.UUID) string {
	return "id:" + id.String()
}

// ClassTargetKey namespaces a pattern class name.
func ClassTargetKey(name string) string {
	return "class:" + name
}

// TargetKeys returns the projection partitions this event belongs to. An
// event naming both a pattern and a class affects both partitions.
func (e *DisableEvent) TargetKeys() []string {
	var keys []string
	if e.PatternID != nil {
		keys = append(keys, PatternTargetKey(*e.PatternID))
	}
	if e.PatternClass != nil && *e.PatternClass != "" {
		keys = append(keys, ClassTargetKey(*e.PatternClass))
	}
	return keys
}

// Supersedes reports whether e wins over other for the same target. The
// ordering is event time, then ingestion time, then sequence number — the
// last leg makes the projection fully deterministic for events sharing an
// identical event time.
func (e *DisableEvent) Supersedes(other *DisableEvent) bool {
	if !e.EventAt.Equal(other.EventAt) {
		return e.EventAt.After(other.EventAt)
	}
	if !e.IngestedAt.Equal(other.IngestedAt) {
		return e.IngestedAt.After(other.IngestedAt)
	}
	return e.Seq > other.Seq
}

// ProjectDisabled collapses the event log into the currently-disabled view:
// for each target the authoritative event is the newest one under the
// Supersedes ordering, and the target is disabled iff that event's type is
// disabled. Pure and side-effect free; safe to recompute at any time.
func ProjectDisabled(events []DisableEvent) map[string]DisableEvent {
	latest := make(map[string]*DisableEvent)
	for i := range events {
		e := &events[i]
		for _, key := range e.TargetKeys() {
			cur, ok := latest[key]
			if !ok || e.Supersedes(cur) {
				latest[key] = e
			}
		}
	}

	disabled := make(map[string]DisableEvent)
	for key, e := range latest {
		if e.Type == EventDisabled {
			disabled[key] = *e
		}
	}
	return disabled
}
