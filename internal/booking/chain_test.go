package booking

import (
	"testing"

	"github.com/google/uuid"
)

func TestPlanChainTransitionsRetiresLiveStates(t *testing.T) {
	scheduled := TrackedEvent{ID: uuid.New(), CallStatus: StatusScheduled}
	canceled := TrackedEvent{ID: uuid.New(), CallStatus: StatusCanceled}
	noShow := TrackedEvent{ID: uuid.New(), CallStatus: StatusNoShow}
	completed := TrackedEvent{ID: uuid.New(), CallStatus: StatusCompleted}
	already := TrackedEvent{ID: uuid.New(), CallStatus: StatusRescheduled}

	transitions := PlanChainTransitions(
		[]TrackedEvent{scheduled, canceled, noShow, completed, already}, "cal_456")

	if len(transitions) != 2 {
		t.Fatalf("got %d transitions, want 2", len(transitions))
	}
	for _, tr := range transitions {
		if tr.EventID != scheduled.ID && tr.EventID != canceled.ID {
			t.Errorf("event %s must not transition; only scheduled and canceled retire", tr.EventID)
		}
		if tr.RescheduledTo != "cal_456" {
			t.Errorf("forward link = %q, want %q", tr.RescheduledTo, "cal_456")
		}
	}
}

func TestPlanChainTransitionsLeavesNoShowAlone(t *testing.T) {
	// A no-show is a recorded outcome; a later rebooking must not rewrite it.
	noShow := TrackedEvent{ID: uuid.New(), CallStatus: StatusNoShow}
	if got := PlanChainTransitions([]TrackedEvent{noShow}, "cal_456"); len(got) != 0 {
		t.Errorf("no-show predecessor planned %d transitions, want 0", len(got))
	}
}

func TestPlanChainTransitionsPreservesExistingLink(t *testing.T) {
	link := "cal_earlier"
	pred := TrackedEvent{ID: uuid.New(), CallStatus: StatusScheduled, RescheduledTo: &link}

	transitions := PlanChainTransitions([]TrackedEvent{pred}, "cal_456")
	if len(transitions) != 1 {
		t.Fatalf("got %d transitions, want 1", len(transitions))
	}
	if transitions[0].RescheduledTo != "" {
		t.Errorf("forward link = %q, want empty to preserve the stored link", transitions[0].RescheduledTo)
	}
}

func TestPlanChainTransitionsReplayIsEmpty(t *testing.T) {
	pred := TrackedEvent{ID: uuid.New(), CallStatus: StatusRescheduled}
	if got := PlanChainTransitions([]TrackedEvent{pred}, "cal_456"); len(got) != 0 {
		t.Errorf("replay planned %d transitions, want 0", len(got))
	}
}
