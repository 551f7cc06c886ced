package domain

import (
	"testing"
	"time"
)

func TestComputeSignatureHash_Stable(t *testing.T) {
	a := ComputeSignatureHash("when asked to refactor, run the tests first")
	b := ComputeSignatureHash("  when asked to refactor, run the tests first  ")
	if a != b {
		t.Fatal("hash should ignore surrounding whitespace")
	}
	if a == ComputeSignatureHash("something else") {
		t.Fatal("distinct signatures should hash differently")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %d chars", len(a))
	}
}

func TestMarkSeen_DistinctDays(t *testing.T) {
	p := &Pattern{}
	day1 := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)

	p.MarkSeen("s1", day1)
	if p.DistinctDaysSeen != 1 {
		t.Fatalf("expected 1 day, got %d", p.DistinctDaysSeen)
	}

	// Same UTC day, later hour: no new day.
	p.MarkSeen("s2", day1.Add(10*time.Minute))
	if p.DistinctDaysSeen != 1 {
		t.Fatalf("expected 1 day after same-day observation, got %d", p.DistinctDaysSeen)
	}

	// Thirty minutes later crosses the UTC date line.
	p.MarkSeen("s3", day1.Add(time.Hour))
	if p.DistinctDaysSeen != 2 {
		t.Fatalf("expected 2 days, got %d", p.DistinctDaysSeen)
	}
	if !p.LastSeenAt.After(p.FirstSeenAt) {
		t.Fatal("last seen should advance")
	}
}

func TestMarkSeen_SessionDedup(t *testing.T) {
	p := &Pattern{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.MarkSeen("s1", at)
	p.MarkSeen("s1", at.Add(time.Minute))
	if len(p.SourceSessions) != 1 {
		t.Fatalf("expected 1 source session, got %d", len(p.SourceSessions))
	}
}

func TestPatternStatus_Transitions(t *testing.T) {
	if !StatusCandidate.PromotionEligible() || !StatusProvisional.PromotionEligible() {
		t.Fatal("candidate and provisional are promotion-eligible")
	}
	if StatusValidated.PromotionEligible() {
		t.Fatal("validated is terminal for promotion")
	}
	if !StatusProvisional.DemotionEligible() || !StatusValidated.DemotionEligible() {
		t.Fatal("provisional and validated are demotion-eligible")
	}
	if StatusCandidate.DemotionEligible() {
		t.Fatal("candidates cannot be demoted")
	}

	next, ok := StatusCandidate.PromotionTarget()
	if !ok || next != StatusProvisional {
		t.Fatalf("expected candidate -> provisional, got %s", next)
	}
	next, ok = StatusProvisional.PromotionTarget()
	if !ok || next != StatusValidated {
		t.Fatalf("expected provisional -> validated, got %s", next)
	}
	if _, ok := StatusValidated.PromotionTarget(); ok {
		t.Fatal("validated has no promotion target")
	}
}
