package booking

import "time"

// MatchTolerance bounds how far apart two scheduled times may be for the
// email+time fallback to treat them as the same booking. Covers clock skew
// and platform-side rounding without swallowing genuinely distinct calls.
const MatchTolerance = 120 * time.Second

// SelectFallbackCandidate picks the tracked event an inbound payload without a
// native-id hit should merge into. Candidates are assumed pre-filtered to the
// same organization, attendee email and platform; this narrows to the
// tolerance window around the scheduled time and breaks ties by most recent
// creation. Returns nil when nothing qualifies.
func SelectFallbackCandidate(candidates []TrackedEvent, scheduledAt time.Time) *TrackedEvent {
	var best *TrackedEvent
	for i := range candidates {
		c := &candidates[i]
		delta := c.ScheduledAt.Sub(scheduledAt)
		if delta < 0 {
			delta = -delta
		}
		if delta > MatchTolerance {
			continue
		}
		if best == nil || c.CreatedAt.After(best.CreatedAt) {
			best = c
		}
	}
	return best
}
