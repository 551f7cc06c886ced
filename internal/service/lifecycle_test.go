package service

import (
	"context"
	"testing"

	"github.com/patternops/governor/internal/domain"
	"go.uber.org/zap"
)

func setupLifecycleTest() (*LifecycleService, *mockPatternStore, *mockTransitionStore) {
	patternStore := newMockPatternStore()
	transitionStore := newMockTransitionStore()
	lifecycle := NewLifecycleService(patternStore, transitionStore, DefaultGateConfig(), zap.NewNop())
	return lifecycle, patternStore, transitionStore
}

func promotablePattern(t *testing.T, patternStore *mockPatternStore) *domain.Pattern {
	t.Helper()
	return seedPattern(t, patternStore, func(p *domain.Pattern) {
		p.Status = domain.StatusCandidate
		p.EvidenceTier = domain.TierObserved
		p.DistinctDaysSeen = 5
		for i := 0; i < 10; i++ {
			p.Metrics.ObserveOutcome(true)
		}
	})
}

func TestLifecycle_PromotesCandidateWhenAllGatesHold(t *testing.T) {
	lifecycle, patternStore, _ := setupLifecycleTest()
	ctx := context.Background()
	p := promotablePattern(t, patternStore)

	res, err := lifecycle.Evaluate(ctx, "req-1", p.ID, "test")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Transition == nil {
		t.Fatal("expected a transition")
	}
	if res.Transition.ToStatus != domain.StatusProvisional {
		t.Fatalf("expected provisional, got %s", res.Transition.ToStatus)
	}
	if res.Transition.Trigger != domain.TriggerPromotionGates {
		t.Fatalf("unexpected trigger %s", res.Transition.Trigger)
	}
	if res.Pattern.Status != domain.StatusProvisional {
		t.Fatalf("pattern status not updated: %s", res.Pattern.Status)
	}
}

func TestLifecycle_PartialGateSatisfactionIsNoTransition(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*domain.Pattern)
	}{
		{"tier below floor", func(p *domain.Pattern) { p.EvidenceTier = domain.TierUnmeasured }},
		{"too few distinct days", func(p *domain.Pattern) { p.DistinctDaysSeen = 1 }},
		{"quality below floor", func(p *domain.Pattern) {
			p.Metrics = domain.RollingMetrics{}
			for i := 0; i < 5; i++ {
				p.Metrics.ObserveOutcome(i == 0)
			}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lifecycle, patternStore, transitionStore := setupLifecycleTest()
			p := seedPattern(t, patternStore, func(p *domain.Pattern) {
				p.Status = domain.StatusCandidate
				p.EvidenceTier = domain.TierObserved
				p.DistinctDaysSeen = 5
				for i := 0; i < 10; i++ {
					p.Metrics.ObserveOutcome(true)
				}
				tc.mutate(p)
			})

			res, err := lifecycle.Evaluate(ctx, "req-1", p.ID, "test")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if res.Transition != nil {
				t.Fatalf("expected no transition, got %s -> %s", res.Transition.FromStatus, res.Transition.ToStatus)
			}
			if len(transitionStore.transitions) != 0 {
				t.Fatal("no audit record should exist for a no-op evaluation")
			}
		})
	}
}

func TestLifecycle_ValidatedRequiresHigherFloors(t *testing.T) {
	lifecycle, patternStore, _ := setupLifecycleTest()
	ctx := context.Background()

	// Observed tier was enough for provisional but not for validated.
	p := seedPattern(t, patternStore, func(p *domain.Pattern) {
		p.Status = domain.StatusProvisional
		p.EvidenceTier = domain.TierObserved
		p.DistinctDaysSeen = 10
		for i := 0; i < 20; i++ {
			p.Metrics.ObserveOutcome(true)
		}
	})

	res, err := lifecycle.Evaluate(ctx, "req-1", p.ID, "test")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Transition != nil {
		t.Fatal("observed tier must not reach validated")
	}
}

func TestLifecycle_IdempotentPerRequest(t *testing.T) {
	lifecycle, patternStore, transitionStore := setupLifecycleTest()
	ctx := context.Background()
	p := promotablePattern(t, patternStore)

	first, err := lifecycle.Evaluate(ctx, "req-1", p.ID, "test")
	if err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	if first.Transition == nil {
		t.Fatal("expected a transition")
	}

	// Same request id replays the stored result instead of re-transitioning
	// (the pattern is now provisional and would otherwise be evaluated
	// against the validated gates).
	second, err := lifecycle.Evaluate(ctx, "req-1", p.ID, "test")
	if err != nil {
		t.Fatalf("second evaluate: %v", err)
	}
	if !second.Replayed {
		t.Fatal("expected replay")
	}
	if second.Transition.ID != first.Transition.ID {
		t.Fatal("replay should return the original transition")
	}
	if len(transitionStore.transitions) != 1 {
		t.Fatalf("expected exactly one audit record, got %d", len(transitionStore.transitions))
	}

	got, _ := patternStore.GetByID(ctx, p.ID)
	if got.Status != domain.StatusProvisional {
		t.Fatalf("replay must not advance state, got %s", got.Status)
	}
}

func TestLifecycle_QualityDecayDemotesToDecayed(t *testing.T) {
	lifecycle, patternStore, _ := setupLifecycleTest()
	ctx := context.Background()

	p := seedPattern(t, patternStore, func(p *domain.Pattern) {
		p.Status = domain.StatusValidated
		p.EvidenceTier = domain.TierVerified
		p.DistinctDaysSeen = 30
		// Poor ratio but a trailing success, so the streak gate stays quiet.
		for i := 0; i < 20; i++ {
			p.Metrics.ObserveOutcome(i == 19)
		}
	})

	res, err := lifecycle.Evaluate(ctx, "req-1", p.ID, "test")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Transition == nil {
		t.Fatal("expected decay transition")
	}
	if res.Transition.ToStatus != domain.StatusDecayed {
		t.Fatalf("expected decayed, got %s", res.Transition.ToStatus)
	}
	if res.Transition.Trigger != domain.TriggerQualityDecay {
		t.Fatalf("unexpected trigger %s", res.Transition.Trigger)
	}
}

func TestLifecycle_TerminalStatesAreStable(t *testing.T) {
	lifecycle, patternStore, _ := setupLifecycleTest()
	ctx := context.Background()

	for _, status := range []domain.PatternStatus{domain.StatusDeprecated, domain.StatusDecayed} {
		p := seedPattern(t, patternStore, func(p *domain.Pattern) {
			p.Signature = "terminal " + string(status)
			p.SignatureHash = domain.ComputeSignatureHash(p.Signature)
			p.Status = status
			p.EvidenceTier = domain.TierVerified
			p.DistinctDaysSeen = 30
			for i := 0; i < 20; i++ {
				p.Metrics.ObserveOutcome(true)
			}
		})

		res, err := lifecycle.Evaluate(ctx, "req-"+string(status), p.ID, "test")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Transition != nil {
			t.Fatalf("%s must not transition", status)
		}
	}
}

func TestLifecycle_DeleteRejectedWithAuditHistory(t *testing.T) {
	lifecycle, patternStore, _ := setupLifecycleTest()
	ctx := context.Background()
	p := promotablePattern(t, patternStore)

	if _, err := lifecycle.Evaluate(ctx, "req-1", p.ID, "test"); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if err := lifecycle.DeletePattern(ctx, p.ID); err != ErrHasAuditHistory {
		t.Fatalf("expected ErrHasAuditHistory, got %v", err)
	}
	if _, err := patternStore.GetByID(ctx, p.ID); err != nil {
		t.Fatal("pattern must survive a rejected delete")
	}
}

func TestLifecycle_DeleteWithoutHistory(t *testing.T) {
	lifecycle, patternStore, _ := setupLifecycleTest()
	ctx := context.Background()
	p := seedPattern(t, patternStore, nil)

	if err := lifecycle.DeletePattern(ctx, p.ID); err != nil {
		t.Fatalf("expected delete to succeed, got %v", err)
	}
	if err := lifecycle.DeletePattern(ctx, p.ID); err != ErrPatternNotFound {
		t.Fatalf("expected ErrPatternNotFound, got %v", err)
	}
}
