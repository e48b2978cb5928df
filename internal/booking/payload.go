// Package booking provides the event reconciliation bounded context.
// It ingests booking webhooks from scheduling platforms, matches them against
// existing tracked events, resolves attribution, links reschedule chains and
// derives the canonical call outcome.
package booking

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies the scheduling platform a booking originated from.
type Platform string

const (
	PlatformCalendly Platform = "calendly"
	PlatformCalCom   Platform = "calcom"
)

// Trigger is the canonical inbound event kind, normalized across platforms.
type Trigger string

const (
	TriggerCreated     Trigger = "created"
	TriggerRescheduled Trigger = "rescheduled"
	TriggerCanceled    Trigger = "canceled"
	TriggerNoShow      Trigger = "no_show"
)

// CallStatus is the lifecycle state of a tracked event.
type CallStatus string

const (
	StatusScheduled   CallStatus = "scheduled"
	StatusCompleted   CallStatus = "completed"
	StatusNoShow      CallStatus = "no_show"
	StatusCanceled    CallStatus = "canceled"
	StatusRescheduled CallStatus = "rescheduled"
)

// EventOutcome is the terminal classification of a completed (or killed) call.
type EventOutcome string

const (
	OutcomeShowedNoOffer      EventOutcome = "showed_no_offer"
	OutcomeShowedOfferNoClose EventOutcome = "showed_offer_no_close"
	OutcomeClosed             EventOutcome = "closed"
	OutcomeNotQualified       EventOutcome = "not_qualified"
	OutcomeLost               EventOutcome = "lost"
	OutcomeNoShow             EventOutcome = "no_show"
	OutcomeCanceled           EventOutcome = "canceled"
	OutcomeRescheduled        EventOutcome = "rescheduled"
)

// Terminal reports whether the outcome expects no further automatic transition.
// A corrective form resubmission may still re-derive it.
func (o EventOutcome) Terminal() bool {
	switch o {
	case OutcomeClosed, OutcomeLost, OutcomeCanceled, OutcomeRescheduled, OutcomeNotQualified:
		return true
	}
	return false
}

// NativeRef is a platform-native booking identity. Exactly one platform's
// fields are populated per ref.
type NativeRef struct {
	Platform Platform
	// Calendly identifies a booking by the event + invitee UUID pair.
	EventUUID   string
	InviteeUUID string
	// Cal.com identifies a booking by a single UID.
	BookingUID string
}

// IsZero reports whether the ref carries no usable identifier.
func (r NativeRef) IsZero() bool {
	switch r.Platform {
	case PlatformCalendly:
		return r.EventUUID == "" || r.InviteeUUID == ""
	case PlatformCalCom:
		return r.BookingUID == ""
	}
	return true
}

// Key returns the identifier used for chain links and audit rows.
func (r NativeRef) Key() string {
	if r.Platform == PlatformCalendly {
		return r.InviteeUUID
	}
	return r.BookingUID
}

// InboundEvent is the canonical, platform-neutral webhook payload. Platform
// adapters produce it; nothing past the adapter branches on platform shape.
type InboundEvent struct {
	Platform Platform
	Trigger  Trigger

	// DeliveryID keys the replay cache. Derived from the request body when
	// the platform does not send a delivery identifier.
	DeliveryID string

	Native             NativeRef
	RescheduledFromKey string

	OrganizationHint *uuid.UUID

	LeadName  string
	LeadEmail string
	LeadPhone string

	OrganizerName  string
	OrganizerEmail string

	EventTypeName string

	ScheduledAt time.Time
	EndsAt      time.Time
	BookedAt    time.Time

	CancelReason string

	// Responses holds booking-form answers, UserFields platform-managed extra
	// fields, Metadata tracking/UTM parameters. All preserved verbatim.
	Responses  map[string]any
	UserFields map[string]any
	Metadata   map[string]any
}

// TrackedEvent is a scheduled or completed sales call.
type TrackedEvent struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	LeadID         *uuid.UUID

	LeadName  string
	LeadEmail string
	LeadPhone string

	// Platform is nil on legacy rows imported before platform tracking.
	Platform            *Platform
	CalendlyEventUUID   *string
	CalendlyInviteeUUID *string
	CalComBookingUID    *string

	EventTypeName string

	CloserName  string
	CloserEmail string
	SetterName  *string

	ScheduledAt time.Time
	BookedAt    *time.Time

	CallStatus      CallStatus
	EventOutcome    *EventOutcome
	PCFOutcomeLabel *string
	PCFSubmitted    bool

	Responses map[string]any
	Metadata  map[string]any
	UTM       map[string]string

	RescheduledFrom *string
	RescheduledTo   *string
	CancelReason    *string

	CRMPipelineStage *string
	CRMOwnerName     *string
	EnrichedAt       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NativeKey returns the chain-link identifier for this record, or "" for
// legacy rows without a platform id.
func (e *TrackedEvent) NativeKey() string {
	if e.CalendlyInviteeUUID != nil && *e.CalendlyInviteeUUID != "" {
		return *e.CalendlyInviteeUUID
	}
	if e.CalComBookingUID != nil && *e.CalComBookingUID != "" {
		return *e.CalComBookingUID
	}
	return ""
}

// NativeRef reconstructs the platform-native identity of this record.
func (e *TrackedEvent) NativeRef() NativeRef {
	if e.Platform == nil {
		return NativeRef{}
	}
	ref := NativeRef{Platform: *e.Platform}
	if e.CalendlyEventUUID != nil {
		ref.EventUUID = *e.CalendlyEventUUID
	}
	if e.CalendlyInviteeUUID != nil {
		ref.InviteeUUID = *e.CalendlyInviteeUUID
	}
	if e.CalComBookingUID != nil {
		ref.BookingUID = *e.CalComBookingUID
	}
	return ref
}
