package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrEventNotFound indicates no tracked event matched the lookup.
	ErrEventNotFound = errors.New("tracked event not found")
	// ErrConflictingWrite indicates a concurrent webhook won the race on the
	// same booking identity. The reconciler retries once on this.
	ErrConflictingWrite = errors.New("conflicting concurrent write on tracked event")
)

// DB is the query surface the repository needs. Satisfied by *pgxpool.Pool
// and by pgxmock pools in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is the persistence surface of the reconciler. The reconciler tests
// substitute an in-memory implementation.
type Store interface {
	FindByNativeRef(ctx context.Context, orgID uuid.UUID, ref NativeRef) (*TrackedEvent, error)
	FindByChainKey(ctx context.Context, orgID uuid.UUID, key string) (*TrackedEvent, error)
	ListFallbackCandidates(ctx context.Context, orgID uuid.UUID, email string, platform Platform) ([]TrackedEvent, error)
	ListActivePredecessors(ctx context.Context, orgID uuid.UUID, email, eventTypeName string, excludeID uuid.UUID) ([]TrackedEvent, error)
	ApplyReconciliation(ctx context.Context, plan ReconciliationPlan) (TrackedEvent, error)
	GetEvent(ctx context.Context, orgID, eventID uuid.UUID) (TrackedEvent, error)
	ListEvents(ctx context.Context, orgID uuid.UUID, filter EventFilter) ([]TrackedEvent, error)
	UpdateOutcome(ctx context.Context, upd OutcomeUpdate) (TrackedEvent, error)
	SaveEnrichment(ctx context.Context, orgID, eventID uuid.UUID, pipelineStage, ownerName string) error
}

// ReconciliationPlan is the atomic write produced by one reconciliation pass:
// the desired event state, the lead upsert feeding it, and any predecessor
// transitions. Everything lands in a single transaction.
type ReconciliationPlan struct {
	// IsNew selects insert over update; on update Event.ID names the row.
	IsNew bool
	Event TrackedEvent

	Lead LeadUpsert

	Transitions []ChainTransition
}

// LeadUpsert carries the identity fields merged into the leads table.
type LeadUpsert struct {
	Email  string
	Name   string
	Phone  string
	Setter string
}

// EventFilter narrows ListEvents.
type EventFilter struct {
	Status    CallStatus
	LeadEmail string
	Limit     int
}

// OutcomeUpdate is a direct outcome write, used by the post-call form flow
// and by platform cancellations and no-shows.
type OutcomeUpdate struct {
	OrganizationID uuid.UUID
	EventID        uuid.UUID

	CallStatus   CallStatus
	EventOutcome EventOutcome
	OutcomeLabel *string

	MarkPCFSubmitted bool
	CancelReason     *string
}

// Repository is the pgx-backed Store.
type Repository struct {
	db DB
}

// NewRepository creates a new tracked-event repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const eventColumns = `
	id, organization_id, lead_id, lead_name, lead_email, lead_phone,
	platform, calendly_event_uuid, calendly_invitee_uuid, calcom_booking_uid,
	event_type_name, closer_name, closer_email, setter_name,
	scheduled_at, booked_at,
	call_status, event_outcome, pcf_outcome_label, pcf_submitted,
	responses, metadata, utm,
	rescheduled_from, rescheduled_to, cancel_reason,
	crm_pipeline_stage, crm_owner_name, enriched_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (TrackedEvent, error) {
	var e TrackedEvent
	err := row.Scan(
		&e.ID, &e.OrganizationID, &e.LeadID, &e.LeadName, &e.LeadEmail, &e.LeadPhone,
		&e.Platform, &e.CalendlyEventUUID, &e.CalendlyInviteeUUID, &e.CalComBookingUID,
		&e.EventTypeName, &e.CloserName, &e.CloserEmail, &e.SetterName,
		&e.ScheduledAt, &e.BookedAt,
		&e.CallStatus, &e.EventOutcome, &e.PCFOutcomeLabel, &e.PCFSubmitted,
		&e.Responses, &e.Metadata, &e.UTM,
		&e.RescheduledFrom, &e.RescheduledTo, &e.CancelReason,
		&e.CRMPipelineStage, &e.CRMOwnerName, &e.EnrichedAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func collectEvents(rows pgx.Rows) ([]TrackedEvent, error) {
	defer rows.Close()
	var events []TrackedEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// FindByNativeRef looks up a tracked event by its platform-native identity.
// Returns (nil, nil) when no row matches.
func (r *Repository) FindByNativeRef(ctx context.Context, orgID uuid.UUID, ref NativeRef) (*TrackedEvent, error) {
	var row pgx.Row
	switch ref.Platform {
	case PlatformCalendly:
		row = r.db.QueryRow(ctx, `
			SELECT `+eventColumns+`
			FROM tracked_events
			WHERE organization_id = $1 AND calendly_event_uuid = $2 AND calendly_invitee_uuid = $3
		`, orgID, ref.EventUUID, ref.InviteeUUID)
	case PlatformCalCom:
		row = r.db.QueryRow(ctx, `
			SELECT `+eventColumns+`
			FROM tracked_events
			WHERE organization_id = $1 AND calcom_booking_uid = $2
		`, orgID, ref.BookingUID)
	default:
		return nil, fmt.Errorf("unknown platform %q", ref.Platform)
	}

	e, err := scanEvent(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FindByChainKey resolves an explicit reschedule predecessor by any of its
// native identifiers. Returns (nil, nil) when the predecessor is unknown.
func (r *Repository) FindByChainKey(ctx context.Context, orgID uuid.UUID, key string) (*TrackedEvent, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM tracked_events
		WHERE organization_id = $1
		  AND (calendly_invitee_uuid = $2 OR calendly_event_uuid = $2 OR calcom_booking_uid = $2)
		ORDER BY created_at DESC
		LIMIT 1
	`, orgID, key)

	e, err := scanEvent(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListFallbackCandidates returns recent same-platform events for the attendee
// email, newest first. The time-window filter is applied in memory so the
// tolerance stays in one place.
func (r *Repository) ListFallbackCandidates(ctx context.Context, orgID uuid.UUID, email string, platform Platform) ([]TrackedEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+eventColumns+`
		FROM tracked_events
		WHERE organization_id = $1 AND lower(lead_email) = lower($2) AND platform = $3
		ORDER BY created_at DESC
		LIMIT 50
	`, orgID, email, platform)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

// ListActivePredecessors returns the lead's other events for the same event
// type that are still scheduled or canceled.
func (r *Repository) ListActivePredecessors(ctx context.Context, orgID uuid.UUID, email, eventTypeName string, excludeID uuid.UUID) ([]TrackedEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+eventColumns+`
		FROM tracked_events
		WHERE organization_id = $1
		  AND lower(lead_email) = lower($2)
		  AND event_type_name = $3
		  AND id <> $4
		  AND call_status IN ('scheduled', 'canceled')
		ORDER BY scheduled_at ASC
	`, orgID, email, eventTypeName, excludeID)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

// ApplyReconciliation writes one reconciliation pass atomically: lead upsert,
// event insert-or-update, predecessor chain transitions. A unique violation
// on the native identity surfaces as ErrConflictingWrite.
func (r *Repository) ApplyReconciliation(ctx context.Context, plan ReconciliationPlan) (TrackedEvent, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return TrackedEvent{}, err
	}
	defer tx.Rollback(ctx)

	ev := plan.Event

	if plan.Lead.Email != "" {
		var leadID uuid.UUID
		err = tx.QueryRow(ctx, `
			INSERT INTO leads (organization_id, email, name, phone, current_setter)
			VALUES ($1, lower($2), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''))
			ON CONFLICT (organization_id, email) DO UPDATE SET
				name = COALESCE(NULLIF(EXCLUDED.name, ''), leads.name),
				phone = COALESCE(NULLIF(EXCLUDED.phone, ''), leads.phone),
				current_setter = COALESCE(NULLIF(EXCLUDED.current_setter, ''), leads.current_setter),
				updated_at = now()
			RETURNING id
		`, ev.OrganizationID, plan.Lead.Email, plan.Lead.Name, plan.Lead.Phone, plan.Lead.Setter).Scan(&leadID)
		if err != nil {
			return TrackedEvent{}, err
		}
		ev.LeadID = &leadID
	}

	var saved TrackedEvent
	if plan.IsNew {
		saved, err = scanEvent(tx.QueryRow(ctx, `
			INSERT INTO tracked_events (
				organization_id, lead_id, lead_name, lead_email, lead_phone,
				platform, calendly_event_uuid, calendly_invitee_uuid, calcom_booking_uid,
				event_type_name, closer_name, closer_email, setter_name,
				scheduled_at, booked_at,
				call_status, event_outcome, pcf_outcome_label, pcf_submitted,
				responses, metadata, utm,
				rescheduled_from, rescheduled_to, cancel_reason
			) VALUES (
				$1, $2, $3, $4, $5,
				$6, $7, $8, $9,
				$10, $11, $12, $13,
				$14, $15,
				$16, $17, $18, $19,
				$20, $21, $22,
				$23, $24, $25
			)
			RETURNING `+eventColumns, ev.OrganizationID, ev.LeadID, ev.LeadName, ev.LeadEmail, ev.LeadPhone,
			ev.Platform, ev.CalendlyEventUUID, ev.CalendlyInviteeUUID, ev.CalComBookingUID,
			ev.EventTypeName, ev.CloserName, ev.CloserEmail, ev.SetterName,
			ev.ScheduledAt, ev.BookedAt,
			ev.CallStatus, ev.EventOutcome, ev.PCFOutcomeLabel, ev.PCFSubmitted,
			ev.Responses, ev.Metadata, ev.UTM,
			ev.RescheduledFrom, ev.RescheduledTo, ev.CancelReason))
	} else {
		saved, err = scanEvent(tx.QueryRow(ctx, `
			UPDATE tracked_events SET
				lead_id = COALESCE($3, lead_id),
				lead_name = $4, lead_email = $5, lead_phone = $6,
				platform = $7, calendly_event_uuid = $8, calendly_invitee_uuid = $9, calcom_booking_uid = $10,
				event_type_name = $11, closer_name = $12, closer_email = $13, setter_name = $14,
				scheduled_at = $15, booked_at = COALESCE($16, booked_at),
				call_status = $17, event_outcome = $18, pcf_outcome_label = $19, pcf_submitted = $20,
				responses = $21, metadata = $22, utm = $23,
				rescheduled_from = COALESCE($24, rescheduled_from),
				rescheduled_to = COALESCE($25, rescheduled_to),
				cancel_reason = COALESCE($26, cancel_reason),
				updated_at = now()
			WHERE id = $1 AND organization_id = $2
			RETURNING `+eventColumns, ev.ID, ev.OrganizationID, ev.LeadID,
			ev.LeadName, ev.LeadEmail, ev.LeadPhone,
			ev.Platform, ev.CalendlyEventUUID, ev.CalendlyInviteeUUID, ev.CalComBookingUID,
			ev.EventTypeName, ev.CloserName, ev.CloserEmail, ev.SetterName,
			ev.ScheduledAt, ev.BookedAt,
			ev.CallStatus, ev.EventOutcome, ev.PCFOutcomeLabel, ev.PCFSubmitted,
			ev.Responses, ev.Metadata, ev.UTM,
			ev.RescheduledFrom, ev.RescheduledTo, ev.CancelReason))
	}
	if err != nil {
		if isUniqueViolation(err) {
			return TrackedEvent{}, ErrConflictingWrite
		}
		if err == pgx.ErrNoRows {
			return TrackedEvent{}, ErrEventNotFound
		}
		return TrackedEvent{}, err
	}

	for _, t := range plan.Transitions {
		var link *string
		if t.RescheduledTo != "" {
			link = &t.RescheduledTo
		}
		if _, err := tx.Exec(ctx, `
			UPDATE tracked_events SET
				call_status = 'rescheduled',
				event_outcome = 'rescheduled',
				pcf_submitted = TRUE,
				rescheduled_to = COALESCE(rescheduled_to, $2),
				updated_at = now()
			WHERE id = $1
		`, t.EventID, link); err != nil {
			return TrackedEvent{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return TrackedEvent{}, err
	}
	return saved, nil
}

// GetEvent fetches a single tracked event scoped to the organization.
func (r *Repository) GetEvent(ctx context.Context, orgID, eventID uuid.UUID) (TrackedEvent, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM tracked_events
		WHERE id = $1 AND organization_id = $2
	`, eventID, orgID))
	if err == pgx.ErrNoRows {
		return TrackedEvent{}, ErrEventNotFound
	}
	return e, err
}

// ListEvents returns tracked events for an organization, newest schedule
// first, optionally narrowed by status or attendee email.
func (r *Repository) ListEvents(ctx context.Context, orgID uuid.UUID, filter EventFilter) ([]TrackedEvent, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+eventColumns+`
		FROM tracked_events
		WHERE organization_id = $1
		  AND ($2 = '' OR call_status = $2)
		  AND ($3 = '' OR lower(lead_email) = lower($3))
		ORDER BY scheduled_at DESC
		LIMIT $4
	`, orgID, string(filter.Status), filter.LeadEmail, limit)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

// UpdateOutcome writes outcome fields directly on one event.
func (r *Repository) UpdateOutcome(ctx context.Context, upd OutcomeUpdate) (TrackedEvent, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, `
		UPDATE tracked_events SET
			call_status = $3,
			event_outcome = $4,
			pcf_outcome_label = COALESCE($5, pcf_outcome_label),
			pcf_submitted = pcf_submitted OR $6,
			cancel_reason = COALESCE($7, cancel_reason),
			updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING `+eventColumns,
		upd.EventID, upd.OrganizationID,
		upd.CallStatus, upd.EventOutcome, upd.OutcomeLabel, upd.MarkPCFSubmitted, upd.CancelReason))
	if err == pgx.ErrNoRows {
		return TrackedEvent{}, ErrEventNotFound
	}
	return e, err
}

// SaveEnrichment stores the CRM snapshot fetched by the background worker.
func (r *Repository) SaveEnrichment(ctx context.Context, orgID, eventID uuid.UUID, pipelineStage, ownerName string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE tracked_events SET
			crm_pipeline_stage = NULLIF($3, ''),
			crm_owner_name = NULLIF($4, ''),
			enriched_at = now(),
			updated_at = now()
		WHERE id = $1 AND organization_id = $2
	`, eventID, orgID, pipelineStage, ownerName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Store = (*Repository)(nil)
