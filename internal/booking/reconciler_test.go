package booking

import (
	"context"
	"strings"
	"testing"
	"time"

	"salesops_backend/internal/aliases"
	"salesops_backend/internal/audit"
	domainevents "salesops_backend/internal/events"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

// ---- fakes ----

type fakeStore struct {
	events map[uuid.UUID]TrackedEvent
	seq    int

	// conflictsLeft makes the next N ApplyReconciliation calls fail with
	// ErrConflictingWrite before succeeding.
	conflictsLeft int
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: make(map[uuid.UUID]TrackedEvent)}
}

func (f *fakeStore) FindByNativeRef(_ context.Context, orgID uuid.UUID, ref NativeRef) (*TrackedEvent, error) {
	for _, e := range f.events {
		if e.OrganizationID != orgID {
			continue
		}
		stored := e.NativeRef()
		if ref.Platform == PlatformCalendly && stored.EventUUID == ref.EventUUID && stored.InviteeUUID == ref.InviteeUUID && ref.EventUUID != "" {
			out := e
			return &out, nil
		}
		if ref.Platform == PlatformCalCom && stored.BookingUID == ref.BookingUID && ref.BookingUID != "" {
			out := e
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindByChainKey(_ context.Context, orgID uuid.UUID, key string) (*TrackedEvent, error) {
	for _, e := range f.events {
		if e.OrganizationID != orgID {
			continue
		}
		ref := e.NativeRef()
		if e.NativeKey() == key || ref.EventUUID == key {
			out := e
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListFallbackCandidates(_ context.Context, orgID uuid.UUID, email string, platform Platform) ([]TrackedEvent, error) {
	var out []TrackedEvent
	for _, e := range f.events {
		if e.OrganizationID == orgID && strings.EqualFold(e.LeadEmail, email) && e.Platform != nil && *e.Platform == platform {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) ListActivePredecessors(_ context.Context, orgID uuid.UUID, email, eventTypeName string, excludeID uuid.UUID) ([]TrackedEvent, error) {
	var out []TrackedEvent
	for _, e := range f.events {
		if e.OrganizationID != orgID || e.ID == excludeID {
			continue
		}
		if !strings.EqualFold(e.LeadEmail, email) || e.EventTypeName != eventTypeName {
			continue
		}
		switch e.CallStatus {
		case StatusScheduled, StatusCanceled:
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) ApplyReconciliation(_ context.Context, plan ReconciliationPlan) (TrackedEvent, error) {
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return TrackedEvent{}, ErrConflictingWrite
	}

	ev := plan.Event
	if plan.IsNew {
		ev.ID = uuid.New()
		f.seq++
		ev.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(f.seq) * time.Minute)
	}
	ev.UpdatedAt = time.Now()
	f.events[ev.ID] = ev

	for _, t := range plan.Transitions {
		pred, ok := f.events[t.EventID]
		if !ok {
			continue
		}
		outcome := OutcomeRescheduled
		pred.CallStatus = StatusRescheduled
		pred.EventOutcome = &outcome
		pred.PCFSubmitted = true
		if pred.RescheduledTo == nil && t.RescheduledTo != "" {
			link := t.RescheduledTo
			pred.RescheduledTo = &link
		}
		f.events[pred.ID] = pred
	}
	return ev, nil
}

func (f *fakeStore) GetEvent(_ context.Context, orgID, eventID uuid.UUID) (TrackedEvent, error) {
	e, ok := f.events[eventID]
	if !ok || e.OrganizationID != orgID {
		return TrackedEvent{}, ErrEventNotFound
	}
	return e, nil
}

func (f *fakeStore) ListEvents(_ context.Context, orgID uuid.UUID, filter EventFilter) ([]TrackedEvent, error) {
	var out []TrackedEvent
	for _, e := range f.events {
		if e.OrganizationID == orgID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateOutcome(_ context.Context, upd OutcomeUpdate) (TrackedEvent, error) {
	e, ok := f.events[upd.EventID]
	if !ok || e.OrganizationID != upd.OrganizationID {
		return TrackedEvent{}, ErrEventNotFound
	}
	outcome := upd.EventOutcome
	e.CallStatus = upd.CallStatus
	e.EventOutcome = &outcome
	if upd.OutcomeLabel != nil {
		e.PCFOutcomeLabel = upd.OutcomeLabel
	}
	if upd.MarkPCFSubmitted {
		e.PCFSubmitted = true
	}
	f.events[e.ID] = e
	return e, nil
}

func (f *fakeStore) SaveEnrichment(_ context.Context, orgID, eventID uuid.UUID, stage, owner string) error {
	e, ok := f.events[eventID]
	if !ok || e.OrganizationID != orgID {
		return ErrEventNotFound
	}
	e.CRMPipelineStage = &stage
	e.CRMOwnerName = &owner
	f.events[e.ID] = e
	return nil
}

type fakeTenants struct {
	orgID uuid.UUID
	fail  bool
}

func (f *fakeTenants) Resolve(context.Context, string, *uuid.UUID, string) (uuid.UUID, error) {
	if f.fail {
		return uuid.UUID{}, apperr.Unresolvable("no organization could be determined for payload")
	}
	return f.orgID, nil
}

type fakeAliasSource struct{ snap aliases.Snapshot }

func (f *fakeAliasSource) LoadSnapshot(context.Context, uuid.UUID) (aliases.Snapshot, error) {
	return f.snap, nil
}

type fakeAuditor struct{ entries []audit.Entry }

func (f *fakeAuditor) Record(_ context.Context, e audit.Entry) {
	f.entries = append(f.entries, e)
}

type fakeBus struct{ published []domainevents.Event }

func (f *fakeBus) Publish(_ context.Context, e domainevents.Event) {
	f.published = append(f.published, e)
}
func (f *fakeBus) PublishSync(_ context.Context, e domainevents.Event) error {
	f.published = append(f.published, e)
	return nil
}
func (f *fakeBus) Subscribe(string, domainevents.Handler) {}

type testHarness struct {
	store   *fakeStore
	tenants *fakeTenants
	auditor *fakeAuditor
	bus     *fakeBus
	service *Service
	orgID   uuid.UUID
	snap    aliases.Snapshot
}

func newHarness() *testHarness {
	h := &testHarness{
		store:   newFakeStore(),
		tenants: &fakeTenants{orgID: uuid.New()},
		auditor: &fakeAuditor{},
		bus:     &fakeBus{},
	}
	h.orgID = h.tenants.orgID
	h.snap = aliases.NewSnapshot([]aliases.Alias{{Alias: "jake", Canonical: "Jake Miller"}}, map[string]string{
		"closer@acme.test": "Dana Reyes",
	})
	h.service = NewService(h.store, h.tenants, &fakeAliasSource{snap: h.snap}, nil, h.auditor, h.bus, nil, logger.New("development"))
	return h
}

func calcomEvent(uid string, scheduledAt time.Time) InboundEvent {
	return InboundEvent{
		Platform:       PlatformCalCom,
		Trigger:        TriggerCreated,
		Native:         NativeRef{Platform: PlatformCalCom, BookingUID: uid},
		LeadName:       "Pat Lee",
		LeadEmail:      "pat@example.test",
		OrganizerName:  "Closer",
		OrganizerEmail: "closer@acme.test",
		EventTypeName:  "Strategy Call",
		ScheduledAt:    scheduledAt,
		BookedAt:       scheduledAt.Add(-48 * time.Hour),
		Responses:      map[string]any{"setter": "jake", "utm_source": "instagram"},
	}
}

// ---- tests ----

func TestProcessInboundEventCreates(t *testing.T) {
	h := newHarness()
	at := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)

	result, err := h.service.ProcessInboundEvent(context.Background(), calcomEvent("cal_123", at), []byte("{}"), nil)
	if err != nil {
		t.Fatalf("ProcessInboundEvent: %v", err)
	}
	if !result.Created {
		t.Error("expected a new record")
	}

	stored, err := h.store.GetEvent(context.Background(), h.orgID, result.EventID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if stored.CallStatus != StatusScheduled {
		t.Errorf("status = %s, want scheduled", stored.CallStatus)
	}
	if stored.SetterName == nil || *stored.SetterName != "jake" {
		t.Errorf("setter = %v, want the raw spelling persisted", stored.SetterName)
	}
	// Alias display normalization is a read-time step.
	view := toEventResponse(&stored, h.snap)
	if view.SetterName == nil || *view.SetterName != "Jake Miller" {
		t.Errorf("read view setter = %v, want canonical alias", view.SetterName)
	}
	if stored.CloserName != "Dana Reyes" {
		t.Errorf("closer = %q, want display name from alias table", stored.CloserName)
	}
	if stored.UTM["utm_source"] != "instagram" {
		t.Errorf("utm_source = %q, want instagram", stored.UTM["utm_source"])
	}

	if len(h.auditor.entries) != 1 || h.auditor.entries[0].Result != audit.ResultSuccess {
		t.Errorf("audit entries = %+v, want one success", h.auditor.entries)
	}
	if len(h.bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(h.bus.published))
	}
	if _, ok := h.bus.published[0].(domainevents.BookingReconciled); !ok {
		t.Errorf("published %T, want BookingReconciled", h.bus.published[0])
	}
}

func TestProcessInboundEventNormalizesPhone(t *testing.T) {
	h := newHarness()
	ev := calcomEvent("cal_123", time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC))
	ev.LeadPhone = "(415) 555-0123"

	result, err := h.service.ProcessInboundEvent(context.Background(), ev, []byte("{}"), nil)
	if err != nil {
		t.Fatalf("ProcessInboundEvent: %v", err)
	}

	stored, _ := h.store.GetEvent(context.Background(), h.orgID, result.EventID)
	if stored.LeadPhone != "+14155550123" {
		t.Errorf("phone = %q, want E.164", stored.LeadPhone)
	}
}

func TestProcessInboundEventReplayConverges(t *testing.T) {
	h := newHarness()
	at := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)
	ev := calcomEvent("cal_123", at)

	first, err := h.service.ProcessInboundEvent(context.Background(), ev, []byte("{}"), nil)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := h.service.ProcessInboundEvent(context.Background(), ev, []byte("{}"), nil)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if second.Created {
		t.Error("replay must not create a second record")
	}
	if first.EventID != second.EventID {
		t.Errorf("replay landed on %s, want %s", second.EventID, first.EventID)
	}
	if len(h.store.events) != 1 {
		t.Errorf("store has %d events, want 1", len(h.store.events))
	}
}

func TestProcessInboundEventFallbackMatch(t *testing.T) {
	h := newHarness()
	at := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)

	first, err := h.service.ProcessInboundEvent(context.Background(), calcomEvent("cal_123", at), []byte("{}"), nil)
	if err != nil {
		t.Fatalf("first: %v", err)
	}

	// Same attendee, new booking uid, scheduled 90s off: merges by tolerance.
	shifted := calcomEvent("cal_456", at.Add(90*time.Second))
	second, err := h.service.ProcessInboundEvent(context.Background(), shifted, []byte("{}"), nil)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if second.Created {
		t.Error("tolerance match must merge, not create")
	}
	if second.EventID != first.EventID {
		t.Errorf("merged into %s, want %s", second.EventID, first.EventID)
	}

	stored, _ := h.store.GetEvent(context.Background(), h.orgID, first.EventID)
	if stored.CalComBookingUID == nil || *stored.CalComBookingUID != "cal_456" {
		t.Errorf("native uid = %v, want updated to cal_456", stored.CalComBookingUID)
	}
}

func TestProcessInboundEventExplicitRescheduleChain(t *testing.T) {
	h := newHarness()
	at := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)

	first, err := h.service.ProcessInboundEvent(context.Background(), calcomEvent("cal_123", at), []byte("{}"), nil)
	if err != nil {
		t.Fatalf("first: %v", err)
	}

	successor := calcomEvent("cal_456", at.Add(72*time.Hour))
	successor.Trigger = TriggerRescheduled
	successor.RescheduledFromKey = "cal_123"
	second, err := h.service.ProcessInboundEvent(context.Background(), successor, []byte("{}"), nil)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.Created {
		t.Fatal("successor should be a new record")
	}

	pred, _ := h.store.GetEvent(context.Background(), h.orgID, first.EventID)
	if pred.CallStatus != StatusRescheduled {
		t.Errorf("predecessor status = %s, want rescheduled", pred.CallStatus)
	}
	if !pred.PCFSubmitted {
		t.Error("retired predecessor should be auto-completed")
	}
	if pred.RescheduledTo == nil || *pred.RescheduledTo != "cal_456" {
		t.Errorf("predecessor forward link = %v, want cal_456", pred.RescheduledTo)
	}

	succ, _ := h.store.GetEvent(context.Background(), h.orgID, second.EventID)
	if succ.RescheduledFrom == nil || *succ.RescheduledFrom != "cal_123" {
		t.Errorf("successor back link = %v, want cal_123", succ.RescheduledFrom)
	}
	if succ.CallStatus != StatusScheduled {
		t.Errorf("successor status = %s, want scheduled", succ.CallStatus)
	}
}

func TestProcessInboundEventInferredRescheduleChain(t *testing.T) {
	h := newHarness()
	at := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)

	first, err := h.service.ProcessInboundEvent(context.Background(), calcomEvent("cal_123", at), []byte("{}"), nil)
	if err != nil {
		t.Fatalf("first: %v", err)
	}

	// No explicit predecessor key, but same lead + event type still live.
	second, err := h.service.ProcessInboundEvent(context.Background(), calcomEvent("cal_456", at.Add(72*time.Hour)), []byte("{}"), nil)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	pred, _ := h.store.GetEvent(context.Background(), h.orgID, first.EventID)
	if pred.CallStatus != StatusRescheduled {
		t.Errorf("predecessor status = %s, want inferred reschedule", pred.CallStatus)
	}

	succ, _ := h.store.GetEvent(context.Background(), h.orgID, second.EventID)
	if succ.RescheduledFrom == nil || *succ.RescheduledFrom != "cal_123" {
		t.Errorf("successor back link = %v, want cal_123", succ.RescheduledFrom)
	}
}

func TestProcessInboundEventRebookingLeavesNoShowAlone(t *testing.T) {
	h := newHarness()
	at := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)

	first, err := h.service.ProcessInboundEvent(context.Background(), calcomEvent("cal_123", at), []byte("{}"), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	noShow := calcomEvent("cal_123", at)
	noShow.Trigger = TriggerNoShow
	if _, err := h.service.ProcessInboundEvent(context.Background(), noShow, []byte("{}"), nil); err != nil {
		t.Fatalf("no-show: %v", err)
	}

	// The lead rebooks later. The recorded no-show is an outcome, not a live
	// booking, so it must survive the new record untouched.
	if _, err := h.service.ProcessInboundEvent(context.Background(), calcomEvent("cal_456", at.Add(7*24*time.Hour)), []byte("{}"), nil); err != nil {
		t.Fatalf("rebook: %v", err)
	}

	pred, _ := h.store.GetEvent(context.Background(), h.orgID, first.EventID)
	if pred.CallStatus != StatusNoShow {
		t.Errorf("status = %s, want the no-show preserved", pred.CallStatus)
	}
	if pred.RescheduledTo != nil {
		t.Errorf("forward link = %v, want none on a no-show record", pred.RescheduledTo)
	}
}

func TestProcessInboundEventCancellationOverridesForm(t *testing.T) {
	h := newHarness()
	at := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)

	result, err := h.service.ProcessInboundEvent(context.Background(), calcomEvent("cal_123", at), []byte("{}"), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.service.ApplyFormOutcome(context.Background(), h.orgID, result.EventID, FormOutcome{
		LeadShowed: true, OfferMade: true, DealClosed: true,
	}); err != nil {
		t.Fatalf("ApplyFormOutcome: %v", err)
	}

	cancel := calcomEvent("cal_123", at)
	cancel.Trigger = TriggerCanceled
	cancel.CancelReason = "family emergency"
	if _, err := h.service.ProcessInboundEvent(context.Background(), cancel, []byte("{}"), nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	stored, _ := h.store.GetEvent(context.Background(), h.orgID, result.EventID)
	if stored.CallStatus != StatusCanceled {
		t.Errorf("status = %s, want cancellation to override the form", stored.CallStatus)
	}
	if stored.EventOutcome == nil || *stored.EventOutcome != OutcomeCanceled {
		t.Errorf("outcome = %v, want canceled", stored.EventOutcome)
	}
	if stored.CancelReason == nil || *stored.CancelReason != "family emergency" {
		t.Errorf("cancel reason = %v, want preserved", stored.CancelReason)
	}
}

func TestProcessInboundEventNoShowBlockedByForm(t *testing.T) {
	h := newHarness()
	at := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)

	result, err := h.service.ProcessInboundEvent(context.Background(), calcomEvent("cal_123", at), []byte("{}"), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.service.ApplyFormOutcome(context.Background(), h.orgID, result.EventID, FormOutcome{
		LeadShowed: true, OfferMade: true, DealClosed: true,
	}); err != nil {
		t.Fatalf("ApplyFormOutcome: %v", err)
	}

	noShow := calcomEvent("cal_123", at)
	noShow.Trigger = TriggerNoShow
	outcome, err := h.service.ProcessInboundEvent(context.Background(), noShow, []byte("{}"), nil)
	if err != nil {
		t.Fatalf("no-show: %v", err)
	}
	if !outcome.Locked {
		t.Error("no-show after a submitted form should report locked")
	}

	stored, _ := h.store.GetEvent(context.Background(), h.orgID, result.EventID)
	if stored.CallStatus != StatusCompleted {
		t.Errorf("status = %s, want form result untouched", stored.CallStatus)
	}
}

func TestProcessInboundEventUnresolvedOrganization(t *testing.T) {
	h := newHarness()
	h.tenants.fail = true
	at := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)

	_, err := h.service.ProcessInboundEvent(context.Background(), calcomEvent("cal_123", at), []byte("{}"), nil)
	if !apperr.Is(err, apperr.KindUnresolvable) {
		t.Fatalf("err = %v, want unresolvable", err)
	}

	if len(h.store.events) != 0 {
		t.Error("dropped payload must not create records")
	}
	if len(h.auditor.entries) != 1 || h.auditor.entries[0].Result != audit.ResultDropped {
		t.Errorf("audit entries = %+v, want one dropped entry", h.auditor.entries)
	}
	if h.auditor.entries[0].OrganizationID != nil {
		t.Error("dropped entry must have nil organization")
	}
	if len(h.bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(h.bus.published))
	}
	if _, ok := h.bus.published[0].(domainevents.OrganizationUnresolved); !ok {
		t.Errorf("published %T, want OrganizationUnresolved", h.bus.published[0])
	}
}

func TestProcessInboundEventRetriesConflictOnce(t *testing.T) {
	h := newHarness()
	h.store.conflictsLeft = 1
	at := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)

	result, err := h.service.ProcessInboundEvent(context.Background(), calcomEvent("cal_123", at), []byte("{}"), nil)
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(h.store.events) != 1 {
		t.Errorf("store has %d events, want 1", len(h.store.events))
	}
	_ = result
}

func TestProcessInboundEventConflictTwiceFails(t *testing.T) {
	h := newHarness()
	h.store.conflictsLeft = 2
	at := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)

	_, err := h.service.ProcessInboundEvent(context.Background(), calcomEvent("cal_123", at), []byte("{}"), nil)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict after exhausted retry", err)
	}
}

func TestProcessInboundEventValidation(t *testing.T) {
	h := newHarness()

	ev := calcomEvent("", time.Now())
	if _, err := h.service.ProcessInboundEvent(context.Background(), ev, []byte("{}"), nil); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("missing native id: err = %v, want validation", err)
	}

	ev = calcomEvent("cal_123", time.Now())
	ev.LeadEmail = ""
	if _, err := h.service.ProcessInboundEvent(context.Background(), ev, []byte("{}"), nil); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("missing email: err = %v, want validation", err)
	}
}

func TestApplyFormOutcomeStagePriority(t *testing.T) {
	h := newHarness()
	at := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)

	result, err := h.service.ProcessInboundEvent(context.Background(), calcomEvent("cal_123", at), []byte("{}"), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := h.service.ApplyFormOutcome(context.Background(), h.orgID, result.EventID, FormOutcome{
		PipelineStage: "Closed Won",
		LeadShowed:    true,
	})
	if err != nil {
		t.Fatalf("ApplyFormOutcome: %v", err)
	}
	if updated.EventOutcome == nil || *updated.EventOutcome != OutcomeClosed {
		t.Errorf("outcome = %v, want closed from stage rule", updated.EventOutcome)
	}
	if updated.PCFOutcomeLabel == nil || *updated.PCFOutcomeLabel != "Closed Won" {
		t.Errorf("label = %v, want verbatim stage name", updated.PCFOutcomeLabel)
	}
	if !updated.PCFSubmitted {
		t.Error("form submission must mark the record finalized")
	}
}

func TestApplyFormOutcomeUnknownEvent(t *testing.T) {
	h := newHarness()
	_, err := h.service.ApplyFormOutcome(context.Background(), h.orgID, uuid.New(), FormOutcome{LeadShowed: true})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}
