package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSelectFallbackCandidateWithinTolerance(t *testing.T) {
	base := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	inside := TrackedEvent{ID: uuid.New(), ScheduledAt: base.Add(90 * time.Second)}
	outside := TrackedEvent{ID: uuid.New(), ScheduledAt: base.Add(3 * time.Minute)}

	got := SelectFallbackCandidate([]TrackedEvent{outside, inside}, base)
	if got == nil {
		t.Fatal("expected a candidate inside the tolerance window")
	}
	if got.ID != inside.ID {
		t.Errorf("selected %s, want the in-window candidate %s", got.ID, inside.ID)
	}
}

func TestSelectFallbackCandidateExactBoundary(t *testing.T) {
	base := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	boundary := TrackedEvent{ID: uuid.New(), ScheduledAt: base.Add(-MatchTolerance)}

	if got := SelectFallbackCandidate([]TrackedEvent{boundary}, base); got == nil {
		t.Error("a candidate exactly at the tolerance boundary should match")
	}

	past := TrackedEvent{ID: uuid.New(), ScheduledAt: base.Add(-MatchTolerance - time.Second)}
	if got := SelectFallbackCandidate([]TrackedEvent{past}, base); got != nil {
		t.Error("a candidate one second past the boundary should not match")
	}
}

func TestSelectFallbackCandidateTieBreaksByCreation(t *testing.T) {
	base := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	older := TrackedEvent{ID: uuid.New(), ScheduledAt: base, CreatedAt: base.Add(-2 * time.Hour)}
	newer := TrackedEvent{ID: uuid.New(), ScheduledAt: base.Add(time.Minute), CreatedAt: base.Add(-time.Hour)}

	got := SelectFallbackCandidate([]TrackedEvent{older, newer}, base)
	if got == nil {
		t.Fatal("expected a candidate")
	}
	if got.ID != newer.ID {
		t.Errorf("selected %s, want the most recently created candidate %s", got.ID, newer.ID)
	}
}

func TestSelectFallbackCandidateEmpty(t *testing.T) {
	if got := SelectFallbackCandidate(nil, time.Now()); got != nil {
		t.Error("no candidates should select nothing")
	}
}
