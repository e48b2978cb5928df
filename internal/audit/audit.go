// Package audit provides the append-only webhook processing log. Every
// inbound delivery leaves a row regardless of whether reconciliation
// succeeded, so dropped payloads stay diagnosable.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Result is the terminal disposition of one webhook delivery.
type Result string

const (
	ResultSuccess   Result = "success"
	ResultFailure   Result = "failure"
	ResultDuplicate Result = "duplicate"
	// ResultDropped marks payloads discarded by policy, e.g. when no
	// organization could be resolved.
	ResultDropped Result = "dropped"
)

// Entry is one webhook processing record. OrganizationID is nil when the
// delivery could not be attributed to a tenant; that is precisely the case
// the log exists for.
type Entry struct {
	ID             uuid.UUID
	OrganizationID *uuid.UUID

	Platform  string
	EventType string
	NativeID  string

	AttendeeEmail   string
	OrganizerEmail  string
	ScheduledAt     *time.Time
	RescheduledFrom string

	Result      Result
	ErrorDetail string

	// Headers are stored post-redaction; Payload is the raw request body.
	Headers map[string]string
	Payload []byte

	CreatedAt time.Time
}
