package booking

import (
	"context"
	"errors"

	"salesops_backend/internal/aliases"
	"salesops_backend/internal/audit"
	domainevents "salesops_backend/internal/events"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/phone"

	"github.com/google/uuid"
)

// TenantResolver determines the organization an inbound event belongs to.
// Satisfied by organizations.Resolver.
type TenantResolver interface {
	Resolve(ctx context.Context, platform string, hint *uuid.UUID, organizerEmail string) (uuid.UUID, error)
}

// AliasSource loads the attribution alias snapshot for an organization.
// Satisfied by aliases.Repository.
type AliasSource interface {
	LoadSnapshot(ctx context.Context, orgID uuid.UUID) (aliases.Snapshot, error)
}

// Auditor records webhook processing outcomes. Satisfied by audit.Recorder.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

// EnrichmentEnqueuer schedules background CRM enrichment for a reconciled
// event. Satisfied by enrichment.Client; nil disables enrichment.
type EnrichmentEnqueuer interface {
	EnqueueEventEnrichment(ctx context.Context, orgID, eventID uuid.UUID, leadEmail string) error
}

// ReconciliationResult summarizes one processed delivery.
type ReconciliationResult struct {
	EventID        uuid.UUID
	OrganizationID uuid.UUID
	CallStatus     CallStatus
	Created        bool
	Duplicate      bool
	// Locked is set when a post-call form had already finalized the record
	// and the trigger was not allowed to override it.
	Locked bool
}

// Service is the event reconciler. It owns the full pipeline for one inbound
// delivery: replay check, tenant resolution, identity matching, attribution,
// chain linking, outcome transition and the atomic upsert.
type Service struct {
	store    Store
	tenants  TenantResolver
	aliasSrc AliasSource
	replay   *ReplayCache
	auditor  Auditor
	bus      domainevents.Bus
	enricher EnrichmentEnqueuer
	log      *logger.Logger
}

// NewService creates the reconciler. replay and enricher may be nil.
func NewService(
	store Store,
	tenants TenantResolver,
	aliasSrc AliasSource,
	replay *ReplayCache,
	auditor Auditor,
	bus domainevents.Bus,
	enricher EnrichmentEnqueuer,
	log *logger.Logger,
) *Service {
	return &Service{
		store:    store,
		tenants:  tenants,
		aliasSrc: aliasSrc,
		replay:   replay,
		auditor:  auditor,
		bus:      bus,
		enricher: enricher,
		log:      log,
	}
}

// ProcessInboundEvent reconciles one canonical webhook payload. Replaying the
// same delivery converges on the same stored state. requestHeaders feed the
// audit trail and are redacted there.
func (s *Service) ProcessInboundEvent(ctx context.Context, ev InboundEvent, rawPayload []byte, requestHeaders map[string]string) (ReconciliationResult, error) {
	entry := audit.Entry{
		Platform:        string(ev.Platform),
		EventType:       string(ev.Trigger),
		NativeID:        ev.Native.Key(),
		AttendeeEmail:   ev.LeadEmail,
		OrganizerEmail:  ev.OrganizerEmail,
		RescheduledFrom: ev.RescheduledFromKey,
		Headers:         requestHeaders,
		Payload:         rawPayload,
	}
	if !ev.ScheduledAt.IsZero() {
		at := ev.ScheduledAt
		entry.ScheduledAt = &at
	}

	if err := validateInbound(ev); err != nil {
		entry.Result = audit.ResultFailure
		entry.ErrorDetail = err.Error()
		s.auditor.Record(ctx, entry)
		return ReconciliationResult{}, err
	}

	if s.replay.MarkSeen(ctx, ev.DeliveryID) {
		s.log.WebhookEvent(string(ev.Platform), string(ev.Trigger), ev.Native.Key(), "duplicate")
		entry.Result = audit.ResultDuplicate
		s.auditor.Record(ctx, entry)
		return ReconciliationResult{Duplicate: true}, nil
	}

	orgID, err := s.tenants.Resolve(ctx, string(ev.Platform), ev.OrganizationHint, ev.OrganizerEmail)
	if err != nil {
		if apperr.Is(err, apperr.KindUnresolvable) {
			entry.Result = audit.ResultDropped
			entry.ErrorDetail = err.Error()
			s.auditor.Record(ctx, entry)
			s.bus.Publish(ctx, domainevents.OrganizationUnresolved{
				BaseEvent:      domainevents.NewBaseEvent(),
				Platform:       string(ev.Platform),
				Trigger:        string(ev.Trigger),
				NativeID:       ev.Native.Key(),
				OrganizerEmail: ev.OrganizerEmail,
			})
			s.log.WebhookEvent(string(ev.Platform), string(ev.Trigger), ev.Native.Key(), "dropped_unresolved")
			return ReconciliationResult{}, err
		}
		entry.Result = audit.ResultFailure
		entry.ErrorDetail = err.Error()
		s.auditor.Record(ctx, entry)
		return ReconciliationResult{}, err
	}
	entry.OrganizationID = &orgID

	result, err := s.reconcileOnce(ctx, orgID, ev)
	if errors.Is(err, ErrConflictingWrite) {
		// Another delivery for the same booking won the insert race; a second
		// pass re-matches against the now-committed row and converges.
		s.log.Warn("conflicting write, retrying reconciliation",
			"platform", ev.Platform, "native_id", ev.Native.Key())
		result, err = s.reconcileOnce(ctx, orgID, ev)
	}
	if err != nil {
		if errors.Is(err, ErrConflictingWrite) {
			err = apperr.Wrap(apperr.KindConflict, "concurrent webhook deliveries conflicted", err)
		}
		entry.Result = audit.ResultFailure
		entry.ErrorDetail = err.Error()
		s.auditor.Record(ctx, entry)
		s.log.WebhookEvent(string(ev.Platform), string(ev.Trigger), ev.Native.Key(), "failed")
		return ReconciliationResult{}, err
	}

	entry.Result = audit.ResultSuccess
	s.auditor.Record(ctx, entry)
	s.log.WebhookEvent(string(ev.Platform), string(ev.Trigger), ev.Native.Key(), "reconciled")

	s.bus.Publish(ctx, domainevents.BookingReconciled{
		BaseEvent:   domainevents.NewBaseEvent(),
		EventID:     result.EventID,
		TenantID:    orgID,
		Platform:    string(ev.Platform),
		Trigger:     string(ev.Trigger),
		LeadEmail:   ev.LeadEmail,
		CallStatus:  string(result.CallStatus),
		WasCreated:  result.Created,
		ScheduledAt: ev.ScheduledAt,
	})

	if s.enricher != nil && (ev.Trigger == TriggerCreated || ev.Trigger == TriggerRescheduled) {
		if err := s.enricher.EnqueueEventEnrichment(ctx, orgID, result.EventID, ev.LeadEmail); err != nil {
			s.log.Warn("failed to enqueue crm enrichment", "error", err, "event_id", result.EventID)
		}
	}

	return result, nil
}

func validateInbound(ev InboundEvent) error {
	if ev.Native.IsZero() {
		return apperr.Validation("payload missing platform-native booking id")
	}
	switch ev.Trigger {
	case TriggerCreated, TriggerRescheduled:
		if ev.LeadEmail == "" {
			return apperr.Validation("booking payload missing attendee email")
		}
		if ev.ScheduledAt.IsZero() {
			return apperr.Validation("booking payload missing scheduled time")
		}
	}
	return nil
}

// reconcileOnce runs a single match-and-write pass.
func (s *Service) reconcileOnce(ctx context.Context, orgID uuid.UUID, ev InboundEvent) (ReconciliationResult, error) {
	existing, err := s.matchExisting(ctx, orgID, ev)
	if err != nil {
		return ReconciliationResult{}, err
	}

	switch ev.Trigger {
	case TriggerCanceled:
		return s.applyCancellation(ctx, orgID, ev, existing)
	case TriggerNoShow:
		return s.applyNoShow(ctx, orgID, ev, existing)
	default:
		return s.applyBooking(ctx, orgID, ev, existing)
	}
}

// matchExisting implements identity matching: platform-native id first, then
// the email + scheduled-time tolerance fallback.
func (s *Service) matchExisting(ctx context.Context, orgID uuid.UUID, ev InboundEvent) (*TrackedEvent, error) {
	existing, err := s.store.FindByNativeRef(ctx, orgID, ev.Native)
	if err != nil || existing != nil {
		return existing, err
	}

	if ev.LeadEmail == "" || ev.ScheduledAt.IsZero() {
		return nil, nil
	}
	candidates, err := s.store.ListFallbackCandidates(ctx, orgID, ev.LeadEmail, ev.Platform)
	if err != nil {
		return nil, err
	}
	return SelectFallbackCandidate(candidates, ev.ScheduledAt), nil
}

// aliasSnapshot loads the organization's alias tables, degrading to an empty
// snapshot on lookup failure. Attribution then falls back to raw payload
// values rather than failing the delivery, and reads show the stored
// spelling; the record can be re-read after an admin fixes the tables.
func (s *Service) aliasSnapshot(ctx context.Context, orgID uuid.UUID) aliases.Snapshot {
	snap, err := s.aliasSrc.LoadSnapshot(ctx, orgID)
	if err != nil {
		s.log.Warn("alias snapshot unavailable", "error", err, "organization_id", orgID)
		return aliases.NewSnapshot(nil, nil)
	}
	return snap
}

// applyBooking handles created and rescheduled triggers: attribution, chain
// planning and the atomic upsert.
func (s *Service) applyBooking(ctx context.Context, orgID uuid.UUID, ev InboundEvent, existing *TrackedEvent) (ReconciliationResult, error) {
	snap := s.aliasSnapshot(ctx, orgID)
	attr := ResolveAttribution(ev.Responses, ev.UserFields, ev.Metadata, snap)

	desired := mergeEvent(existing, ev, orgID)
	desired.CloserEmail = ev.OrganizerEmail
	desired.CloserName = snap.CloserDisplayName(ev.OrganizerEmail, ev.OrganizerName)
	if attr.SetterRaw != "" {
		// The pre-alias spelling is stored; display normalization through the
		// alias table happens when the event is read back.
		setter := attr.SetterRaw
		desired.SetterName = &setter
	}
	if len(attr.UTM) > 0 {
		desired.UTM = attr.UTM
	}
	if len(attr.Responses) > 0 {
		desired.Responses = attr.Responses
	}

	locked := existing != nil && !AllowAutomatedTransition(existing, ev.Trigger)
	if locked {
		desired.CallStatus = existing.CallStatus
		desired.EventOutcome = existing.EventOutcome
	} else {
		desired.CallStatus = StatusScheduled
		desired.EventOutcome = nil
	}

	transitions, fromKey, err := s.planChain(ctx, orgID, ev, desired.ID)
	if err != nil {
		return ReconciliationResult{}, err
	}
	if fromKey != "" && desired.RescheduledFrom == nil {
		desired.RescheduledFrom = &fromKey
	}

	saved, err := s.store.ApplyReconciliation(ctx, ReconciliationPlan{
		IsNew:       existing == nil,
		Event:       desired,
		Lead:        leadUpsertFor(ev, attr),
		Transitions: transitions,
	})
	if err != nil {
		return ReconciliationResult{}, err
	}

	return ReconciliationResult{
		EventID:        saved.ID,
		OrganizationID: orgID,
		CallStatus:     saved.CallStatus,
		Created:        existing == nil,
		Locked:         locked,
	}, nil
}

// planChain resolves the reschedule chain for a new or updated booking. An
// explicit predecessor key from the payload wins; otherwise any still-live
// booking for the same lead and event type is inferred as the predecessor.
func (s *Service) planChain(ctx context.Context, orgID uuid.UUID, ev InboundEvent, excludeID uuid.UUID) ([]ChainTransition, string, error) {
	predecessors, err := s.store.ListActivePredecessors(ctx, orgID, ev.LeadEmail, ev.EventTypeName, excludeID)
	if err != nil {
		return nil, "", err
	}

	fromKey := ""
	if ev.RescheduledFromKey != "" {
		pred, err := s.store.FindByChainKey(ctx, orgID, ev.RescheduledFromKey)
		if err != nil {
			return nil, "", err
		}
		if pred != nil && pred.ID != excludeID {
			fromKey = ev.RescheduledFromKey
			if !containsEvent(predecessors, pred.ID) {
				predecessors = append(predecessors, *pred)
			}
		}
	} else if len(predecessors) > 0 {
		// Inferred reschedule: link back to the most recent live booking.
		latest := predecessors[len(predecessors)-1]
		fromKey = latest.NativeKey()
	}

	return PlanChainTransitions(predecessors, ev.Native.Key()), fromKey, nil
}

func (s *Service) applyCancellation(ctx context.Context, orgID uuid.UUID, ev InboundEvent, existing *TrackedEvent) (ReconciliationResult, error) {
	// Cancellation always wins, even over a submitted post-call form, and
	// auto-completes the record so it needs no human follow-up.
	outcome := OutcomeCanceled
	desired := mergeEvent(existing, ev, orgID)
	desired.CallStatus = StatusCanceled
	desired.EventOutcome = &outcome
	desired.PCFSubmitted = true
	if ev.CancelReason != "" {
		reason := ev.CancelReason
		desired.CancelReason = &reason
	}

	saved, err := s.store.ApplyReconciliation(ctx, ReconciliationPlan{
		IsNew: existing == nil,
		Event: desired,
		Lead:  leadUpsertFor(ev, Attribution{}),
	})
	if err != nil {
		return ReconciliationResult{}, err
	}
	return ReconciliationResult{
		EventID:        saved.ID,
		OrganizationID: orgID,
		CallStatus:     saved.CallStatus,
		Created:        existing == nil,
	}, nil
}

func (s *Service) applyNoShow(ctx context.Context, orgID uuid.UUID, ev InboundEvent, existing *TrackedEvent) (ReconciliationResult, error) {
	if existing != nil && !AllowAutomatedTransition(existing, ev.Trigger) {
		return ReconciliationResult{
			EventID:        existing.ID,
			OrganizationID: orgID,
			CallStatus:     existing.CallStatus,
			Locked:         true,
		}, nil
	}

	outcome := OutcomeNoShow
	desired := mergeEvent(existing, ev, orgID)
	desired.CallStatus = StatusNoShow
	desired.EventOutcome = &outcome

	saved, err := s.store.ApplyReconciliation(ctx, ReconciliationPlan{
		IsNew: existing == nil,
		Event: desired,
		Lead:  leadUpsertFor(ev, Attribution{}),
	})
	if err != nil {
		return ReconciliationResult{}, err
	}
	return ReconciliationResult{
		EventID:        saved.ID,
		OrganizationID: orgID,
		CallStatus:     saved.CallStatus,
		Created:        existing == nil,
	}, nil
}

// mergeEvent folds the inbound payload into the existing record (or a fresh
// one), preferring inbound values and keeping stored ones where the payload
// is silent.
func mergeEvent(existing *TrackedEvent, ev InboundEvent, orgID uuid.UUID) TrackedEvent {
	var out TrackedEvent
	if existing != nil {
		out = *existing
	}
	out.OrganizationID = orgID

	platform := ev.Platform
	out.Platform = &platform
	switch ev.Platform {
	case PlatformCalendly:
		eventUUID, inviteeUUID := ev.Native.EventUUID, ev.Native.InviteeUUID
		out.CalendlyEventUUID = &eventUUID
		out.CalendlyInviteeUUID = &inviteeUUID
	case PlatformCalCom:
		bookingUID := ev.Native.BookingUID
		out.CalComBookingUID = &bookingUID
	}

	if ev.LeadName != "" {
		out.LeadName = ev.LeadName
	}
	if ev.LeadEmail != "" {
		out.LeadEmail = ev.LeadEmail
	}
	if ev.LeadPhone != "" {
		out.LeadPhone = phone.NormalizeE164(ev.LeadPhone)
	}
	if ev.EventTypeName != "" {
		out.EventTypeName = ev.EventTypeName
	}
	if !ev.ScheduledAt.IsZero() {
		out.ScheduledAt = ev.ScheduledAt
	}
	if !ev.BookedAt.IsZero() && out.BookedAt == nil {
		bookedAt := ev.BookedAt
		out.BookedAt = &bookedAt
	}
	if len(ev.Metadata) > 0 {
		out.Metadata = ev.Metadata
	}
	return out
}

func leadUpsertFor(ev InboundEvent, attr Attribution) LeadUpsert {
	upsert := LeadUpsert{
		Email:  ev.LeadEmail,
		Name:   ev.LeadName,
		Setter: attr.SetterName,
	}
	if ev.LeadPhone != "" {
		upsert.Phone = phone.NormalizeE164(ev.LeadPhone)
	}
	return upsert
}

func containsEvent(events []TrackedEvent, id uuid.UUID) bool {
	for i := range events {
		if events[i].ID == id {
			return true
		}
	}
	return false
}
