package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func TestTargetKeys_Namespaced(t *testing.T) {
	id := uuid.New()
	// A class name that textually equals a pattern id must not share a
	// partition with it.
	e := DisableEvent{PatternID: &id, PatternClass: strPtr(id.String())}

	keys := e.TargetKeys()
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
	if keys[0] == keys[1] {
		t.Fatalf("pattern id and class collided: %s", keys[0])
	}
	if keys[0] != "id:"+id.String() {
		t.Fatalf("unexpected id key %s", keys[0])
	}
	if keys[1] != "class:"+id.String() {
		t.Fatalf("unexpected class key %s", keys[1])
	}
}

func TestTargetKeys_EmptyTarget(t *testing.T) {
	e := DisableEvent{}
	if len(e.TargetKeys()) != 0 {
		t.Fatal("expected no keys for an untargeted event")
	}
	empty := ""
	e = DisableEvent{PatternClass: &empty}
	if len(e.TargetKeys()) != 0 {
		t.Fatal("expected no keys for an empty class name")
	}
}

func TestProjectDisabled_LatestWins(t *testing.T) {
	id := uuid.New()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []DisableEvent{
		{Seq: 1, EventID: "e1", Type: EventDisabled, PatternID: &id, EventAt: t0},
		{Seq: 2, EventID: "e2", Type: EventReEnabled, PatternID: &id, EventAt: t0.Add(time.Hour)},
	}

	disabled := ProjectDisabled(events)
	if _, ok := disabled[PatternTargetKey(id)]; ok {
		t.Fatal("expected re-enabled pattern to be absent from projection")
	}
}

func TestProjectDisabled_ClassAndPatternIndependent(t *testing.T) {
	x := uuid.New()
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	class := "logging_helper"
	events := []DisableEvent{
		{Seq: 1, EventID: "e1", Type: EventDisabled, PatternClass: &class, EventAt: t1},
		{Seq: 2, EventID: "e2", Type: EventDisabled, PatternID: &x, EventAt: t2},
		{Seq: 3, EventID: "e3", Type: EventReEnabled, PatternID: &x, EventAt: t3},
	}

	disabled := ProjectDisabled(events)
	if _, ok := disabled[ClassTargetKey(class)]; !ok {
		t.Fatal("expected class to remain disabled")
	}
	if _, ok := disabled[PatternTargetKey(x)]; ok {
		t.Fatal("expected pattern to be individually re-enabled")
	}
}

func TestProjectDisabled_OrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	classes := []string{"alpha", "beta"}

	var events []DisableEvent
	seq := int64(1)
	for _, id := range ids {
		for i := 0; i < 4; i++ {
			typ := EventDisabled
			if rng.Intn(2) == 0 {
				typ = EventReEnabled
			}
			idCopy := id
			events = append(events, DisableEvent{
				Seq:        seq,
				EventID:    uuid.NewString(),
				Type:       typ,
				PatternID:  &idCopy,
				EventAt:    base.Add(time.Duration(rng.Intn(48)) * time.Hour),
				IngestedAt: base.Add(time.Duration(seq) * time.Minute),
			})
			seq++
		}
	}
	for _, c := range classes {
		className := c
		events = append(events, DisableEvent{
			Seq:        seq,
			EventID:    uuid.NewString(),
			Type:       EventDisabled,
			PatternClass: &className,
			EventAt:    base,
			IngestedAt: base.Add(time.Duration(seq) * time.Minute),
		})
		seq++
	}

	want := ProjectDisabled(events)

	for trial := 0; trial < 20; trial++ {
		shuffled := make([]DisableEvent, len(events))
		copy(shuffled, events)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got := ProjectDisabled(shuffled)
		if len(got) != len(want) {
			t.Fatalf("trial %d: size mismatch %d != %d", trial, len(got), len(want))
		}
		for key, w := range want {
			g, ok := got[key]
			if !ok {
				t.Fatalf("trial %d: missing key %s", trial, key)
			}
			if g.EventID != w.EventID {
				t.Fatalf("trial %d: key %s resolved to %s, want %s", trial, key, g.EventID, w.EventID)
			}
		}
	}
}

func TestProjectDisabled_TieBreakDeterministic(t *testing.T) {
	id := uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Identical event time and ingestion time: seq decides.
	events := []DisableEvent{
		{Seq: 1, EventID: "older", Type: EventReEnabled, PatternID: &id, EventAt: at, IngestedAt: at},
		{Seq: 2, EventID: "newer", Type: EventDisabled, PatternID: &id, EventAt: at, IngestedAt: at},
	}

	for trial := 0; trial < 2; trial++ {
		disabled := ProjectDisabled(events)
		e, ok := disabled[PatternTargetKey(id)]
		if !ok {
			t.Fatal("expected pattern disabled by highest-seq event")
		}
		if e.EventID != "newer" {
			t.Fatalf("expected seq tie-break to pick newer, got %s", e.EventID)
		}
		events[0], events[1] = events[1], events[0]
	}
}
