package booking

import (
	"context"

	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
)

// FormOutcome is a human-submitted call result, typically from the post-call
// form. The pipeline stage, when present, outranks the boolean triple.
type FormOutcome struct {
	PipelineStage string
	LeadShowed    bool
	OfferMade     bool
	DealClosed    bool
}

// ApplyFormOutcome derives and writes the outcome for one event from a form
// submission. A human submission always wins: unlike platform webhooks it may
// overwrite a previously finalized record.
func (s *Service) ApplyFormOutcome(ctx context.Context, orgID, eventID uuid.UUID, form FormOutcome) (TrackedEvent, error) {
	if _, err := s.store.GetEvent(ctx, orgID, eventID); err != nil {
		if err == ErrEventNotFound {
			return TrackedEvent{}, apperr.NotFound("tracked event not found")
		}
		return TrackedEvent{}, err
	}

	result, ok := DeriveOutcome(OutcomeInput{
		StageName:   form.PipelineStage,
		HasBooleans: true,
		LeadShowed:  form.LeadShowed,
		OfferMade:   form.OfferMade,
		DealClosed:  form.DealClosed,
	})
	if !ok {
		return TrackedEvent{}, apperr.Validation("form does not classify to an outcome")
	}

	upd := OutcomeUpdate{
		OrganizationID:   orgID,
		EventID:          eventID,
		CallStatus:       result.Status,
		EventOutcome:     result.Outcome,
		MarkPCFSubmitted: true,
	}
	if result.StageLabel != "" {
		label := result.StageLabel
		upd.OutcomeLabel = &label
	}

	updated, err := s.store.UpdateOutcome(ctx, upd)
	if err == ErrEventNotFound {
		return TrackedEvent{}, apperr.NotFound("tracked event not found")
	}
	return updated, err
}
