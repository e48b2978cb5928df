// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"salesops_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Booking Domain Events
// =============================================================================

// BookingReconciled is published after an inbound platform event has been
// matched, attributed and persisted.
type BookingReconciled struct {
	BaseEvent
	EventID     uuid.UUID `json:"eventId"`
	TenantID    uuid.UUID `json:"tenantId"`
	Platform    string    `json:"platform"`
	Trigger     string    `json:"trigger"`
	LeadEmail   string    `json:"leadEmail"`
	CallStatus  string    `json:"callStatus"`
	WasCreated  bool      `json:"wasCreated"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

func (e BookingReconciled) EventName() string { return "booking.reconciled" }

// OrganizationUnresolved is published when an inbound webhook could not be
// attributed to any tenant and was dropped after auditing.
type OrganizationUnresolved struct {
	BaseEvent
	Platform       string `json:"platform"`
	Trigger        string `json:"trigger"`
	NativeID       string `json:"nativeId"`
	OrganizerEmail string `json:"organizerEmail"`
}

func (e OrganizationUnresolved) EventName() string { return "booking.organization_unresolved" }

// OutcomeSubmitted is published when a post-call outcome form is created or
// updated and the parent event's outcome has been recomputed.
type OutcomeSubmitted struct {
	BaseEvent
	EventID       uuid.UUID `json:"eventId"`
	TenantID      uuid.UUID `json:"tenantId"`
	CallStatus    string    `json:"callStatus"`
	EventOutcome  string    `json:"eventOutcome"`
	CashCollected bool      `json:"cashCollected"`
}

func (e OutcomeSubmitted) EventName() string { return "pcf.outcome.submitted" }

// PaymentRecorded is published when a payment is stored with carried-forward
// attribution.
type PaymentRecorded struct {
	BaseEvent
	PaymentID   uuid.UUID  `json:"paymentId"`
	TenantID    uuid.UUID  `json:"tenantId"`
	EventID     *uuid.UUID `json:"eventId,omitempty"`
	LeadEmail   string     `json:"leadEmail"`
	AmountCents int64      `json:"amountCents"`
}

func (e PaymentRecorded) EventName() string { return "payments.payment.recorded" }
