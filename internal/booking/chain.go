package booking

import "github.com/google/uuid"

// ChainTransition retires one predecessor event in a reschedule chain.
type ChainTransition struct {
	EventID       uuid.UUID
	RescheduledTo string
}

// PlanChainTransitions computes the predecessor updates a new booking
// implies. Every prior scheduled or canceled event for the same lead and
// event type gets marked rescheduled and forward-linked to the successor,
// enforcing at most one active booking per (lead, event type, organization).
// Records a human already closed out, including no-shows, are left alone.
//
// Already-rescheduled predecessors are skipped so replayed webhooks plan
// nothing, and an existing forward link is never overwritten.
func PlanChainTransitions(predecessors []TrackedEvent, successorKey string) []ChainTransition {
	var transitions []ChainTransition
	for i := range predecessors {
		p := &predecessors[i]
		switch p.CallStatus {
		case StatusScheduled, StatusCanceled:
		default:
			continue
		}
		t := ChainTransition{EventID: p.ID}
		if p.RescheduledTo == nil || *p.RescheduledTo == "" {
			t.RescheduledTo = successorKey
		}
		transitions = append(transitions, t)
	}
	return transitions
}
