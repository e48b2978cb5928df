// Package payments provides the payment bounded context. Payments are joined
// to the paying lead's booking history so revenue inherits the setter, closer
// and source that produced the call.
package payments

import (
	"time"

	"salesops_backend/internal/booking"
)

// ChooseAttributionEvent picks the tracked event a payment inherits its
// attribution from: the lead's most recent call scheduled at or before the
// payment, skipping events retired by a reschedule. When every event is in
// the future (deposit paid before the call), the earliest upcoming one wins.
// Returns nil when the lead has no usable event.
func ChooseAttributionEvent(events []booking.TrackedEvent, paidAt time.Time) *booking.TrackedEvent {
	var latestPast, earliestFuture *booking.TrackedEvent
	for i := range events {
		e := &events[i]
		if e.CallStatus == booking.StatusRescheduled {
			continue
		}
		if !e.ScheduledAt.After(paidAt) {
			if latestPast == nil || e.ScheduledAt.After(latestPast.ScheduledAt) {
				latestPast = e
			}
		} else {
			if earliestFuture == nil || e.ScheduledAt.Before(earliestFuture.ScheduledAt) {
				earliestFuture = e
			}
		}
	}
	if latestPast != nil {
		return latestPast
	}
	return earliestFuture
}
