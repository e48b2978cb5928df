package pcf

import (
	"context"

	"salesops_backend/internal/booking"
	domainevents "salesops_backend/internal/events"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

// OutcomeApplier re-derives a tracked event's outcome from a form submission.
// Satisfied by booking.Service.
type OutcomeApplier interface {
	ApplyFormOutcome(ctx context.Context, orgID, eventID uuid.UUID, form booking.FormOutcome) (booking.TrackedEvent, error)
}

// Service owns form submission: persist the form, push the derived outcome
// onto the tracked event, announce the result.
type Service struct {
	repo     *Repository
	outcomes OutcomeApplier
	bus      domainevents.Bus
	log      *logger.Logger
}

// NewService creates a new post-call form service.
func NewService(repo *Repository, outcomes OutcomeApplier, bus domainevents.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, outcomes: outcomes, bus: bus, log: log}
}

// SubmitInput is one form submission.
type SubmitInput struct {
	EventID     uuid.UUID
	SubmittedBy string

	LeadShowed    bool
	OfferMade     bool
	DealClosed    bool
	PipelineStage string

	CashCollectedCents int64
	Notes              string
}

// SubmitResult pairs the stored form with the event state it produced.
type SubmitResult struct {
	Form  PostCallForm
	Event booking.TrackedEvent
}

// Submit stores the form and applies the derived outcome to the event. The
// outcome write goes first so a rejected form (unknown event, unclassifiable
// input) leaves no orphan row.
func (s *Service) Submit(ctx context.Context, orgID uuid.UUID, in SubmitInput) (SubmitResult, error) {
	event, err := s.outcomes.ApplyFormOutcome(ctx, orgID, in.EventID, booking.FormOutcome{
		PipelineStage: in.PipelineStage,
		LeadShowed:    in.LeadShowed,
		OfferMade:     in.OfferMade,
		DealClosed:    in.DealClosed,
	})
	if err != nil {
		return SubmitResult{}, err
	}

	form, err := s.repo.Upsert(ctx, PostCallForm{
		OrganizationID:     orgID,
		EventID:            in.EventID,
		SubmittedBy:        in.SubmittedBy,
		LeadShowed:         in.LeadShowed,
		OfferMade:          in.OfferMade,
		DealClosed:         in.DealClosed,
		PipelineStage:      in.PipelineStage,
		CashCollectedCents: in.CashCollectedCents,
		Notes:              in.Notes,
	})
	if err != nil {
		return SubmitResult{}, err
	}

	outcome := ""
	if event.EventOutcome != nil {
		outcome = string(*event.EventOutcome)
	}
	s.bus.Publish(ctx, domainevents.OutcomeSubmitted{
		BaseEvent:     domainevents.NewBaseEvent(),
		EventID:       in.EventID,
		TenantID:      orgID,
		CallStatus:    string(event.CallStatus),
		EventOutcome:  outcome,
		CashCollected: in.CashCollectedCents > 0,
	})

	s.log.Info("post-call form submitted",
		"event_id", in.EventID,
		"call_status", event.CallStatus,
		"outcome", outcome,
	)

	return SubmitResult{Form: form, Event: event}, nil
}

// Get fetches the form for one tracked event.
func (s *Service) Get(ctx context.Context, orgID, eventID uuid.UUID) (PostCallForm, error) {
	return s.repo.GetByEventID(ctx, orgID, eventID)
}
