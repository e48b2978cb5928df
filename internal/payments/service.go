package payments

import (
	"context"
	"strings"
	"time"

	"salesops_backend/internal/booking"
	domainevents "salesops_backend/internal/events"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

// EventSource provides the lead's booking history for the attribution join.
// Satisfied by booking.Repository.
type EventSource interface {
	ListEvents(ctx context.Context, orgID uuid.UUID, filter booking.EventFilter) ([]booking.TrackedEvent, error)
}

// Service records payments and joins them to booking attribution.
type Service struct {
	repo   *Repository
	events EventSource
	bus    domainevents.Bus
	log    *logger.Logger
}

// NewService creates a new payments service.
func NewService(repo *Repository, events EventSource, bus domainevents.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, events: events, bus: bus, log: log}
}

// RecordInput is one inbound payment.
type RecordInput struct {
	LeadEmail   string
	AmountCents int64
	Currency    string
	PaidAt      time.Time
	ExternalRef string
}

// Record stores a payment, copying setter, closer and source from the lead's
// relevant tracked event. A lead without booking history still gets the
// payment stored, just unattributed.
func (s *Service) Record(ctx context.Context, orgID uuid.UUID, in RecordInput) (Payment, error) {
	email := strings.ToLower(strings.TrimSpace(in.LeadEmail))
	if email == "" {
		return Payment{}, apperr.Validation("payment requires a lead email")
	}
	if in.AmountCents <= 0 {
		return Payment{}, apperr.Validation("payment amount must be positive")
	}
	paidAt := in.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}

	payment := Payment{
		OrganizationID: orgID,
		LeadEmail:      email,
		AmountCents:    in.AmountCents,
		Currency:       strings.ToUpper(strings.TrimSpace(in.Currency)),
		PaidAt:         paidAt,
		ExternalRef:    strings.TrimSpace(in.ExternalRef),
	}
	if payment.Currency == "" {
		payment.Currency = "USD"
	}

	history, err := s.events.ListEvents(ctx, orgID, booking.EventFilter{LeadEmail: email, Limit: 50})
	if err != nil {
		return Payment{}, err
	}
	if source := ChooseAttributionEvent(history, paidAt); source != nil {
		eventID := source.ID
		payment.EventID = &eventID
		payment.CloserName = source.CloserName
		if source.SetterName != nil {
			payment.SetterName = *source.SetterName
		}
		payment.Source = source.UTM["utm_source"]
	} else {
		s.log.Info("payment recorded without event attribution", "lead_email", email)
	}

	saved, err := s.repo.Insert(ctx, payment)
	if err != nil {
		return Payment{}, err
	}

	s.bus.Publish(ctx, domainevents.PaymentRecorded{
		BaseEvent:   domainevents.NewBaseEvent(),
		PaymentID:   saved.ID,
		TenantID:    orgID,
		EventID:     saved.EventID,
		LeadEmail:   saved.LeadEmail,
		AmountCents: saved.AmountCents,
	})

	return saved, nil
}

// List returns payments for an organization.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, filter ListFilter) ([]Payment, error) {
	return s.repo.List(ctx, orgID, filter)
}
