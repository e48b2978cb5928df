package payments

import (
	"testing"
	"time"

	"salesops_backend/internal/booking"

	"github.com/google/uuid"
)

func eventAt(status booking.CallStatus, scheduledAt time.Time) booking.TrackedEvent {
	return booking.TrackedEvent{ID: uuid.New(), CallStatus: status, ScheduledAt: scheduledAt}
}

func TestChooseAttributionEventLatestPastWins(t *testing.T) {
	paidAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	older := eventAt(booking.StatusCompleted, paidAt.Add(-72*time.Hour))
	recent := eventAt(booking.StatusCompleted, paidAt.Add(-2*time.Hour))
	future := eventAt(booking.StatusScheduled, paidAt.Add(24*time.Hour))

	got := ChooseAttributionEvent([]booking.TrackedEvent{older, future, recent}, paidAt)
	if got == nil || got.ID != recent.ID {
		t.Fatalf("got %+v, want most recent past call", got)
	}
}

func TestChooseAttributionEventSkipsRescheduled(t *testing.T) {
	paidAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	retired := eventAt(booking.StatusRescheduled, paidAt.Add(-time.Hour))
	replacement := eventAt(booking.StatusCompleted, paidAt.Add(-48*time.Hour))

	got := ChooseAttributionEvent([]booking.TrackedEvent{retired, replacement}, paidAt)
	if got == nil || got.ID != replacement.ID {
		t.Fatalf("got %+v, want the non-retired call", got)
	}
}

func TestChooseAttributionEventDepositBeforeCall(t *testing.T) {
	paidAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	sooner := eventAt(booking.StatusScheduled, paidAt.Add(6*time.Hour))
	later := eventAt(booking.StatusScheduled, paidAt.Add(48*time.Hour))

	got := ChooseAttributionEvent([]booking.TrackedEvent{later, sooner}, paidAt)
	if got == nil || got.ID != sooner.ID {
		t.Fatalf("got %+v, want earliest upcoming call", got)
	}
}

func TestChooseAttributionEventPaidAtBoundary(t *testing.T) {
	paidAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	exact := eventAt(booking.StatusCompleted, paidAt)

	got := ChooseAttributionEvent([]booking.TrackedEvent{exact}, paidAt)
	if got == nil || got.ID != exact.ID {
		t.Fatal("call scheduled exactly at payment time counts as past")
	}
}

func TestChooseAttributionEventNoUsableEvents(t *testing.T) {
	paidAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	retired := eventAt(booking.StatusRescheduled, paidAt.Add(-time.Hour))

	if got := ChooseAttributionEvent(nil, paidAt); got != nil {
		t.Errorf("empty history returned %+v", got)
	}
	if got := ChooseAttributionEvent([]booking.TrackedEvent{retired}, paidAt); got != nil {
		t.Errorf("only retired events returned %+v", got)
	}
}
