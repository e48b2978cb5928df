// Package pcf provides the post-call form bounded context: the human-submitted
// call result that finalizes a tracked event's outcome.
package pcf

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrFormNotFound indicates no form exists for the event.
var ErrFormNotFound = errors.New("post-call form not found")

// PostCallForm is one submitted form. At most one exists per tracked event;
// resubmission overwrites it.
type PostCallForm struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	EventID        uuid.UUID

	SubmittedBy string

	LeadShowed    bool
	OfferMade     bool
	DealClosed    bool
	PipelineStage string

	CashCollectedCents int64
	Notes              string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DB is the query surface the repository needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists post-call forms.
type Repository struct {
	db DB
}

// NewRepository creates a new post-call form repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const formColumns = `
	id, organization_id, event_id, submitted_by,
	lead_showed, offer_made, deal_closed, pipeline_stage,
	cash_collected_cents, notes, created_at, updated_at`

func scanForm(row pgx.Row) (PostCallForm, error) {
	var f PostCallForm
	err := row.Scan(
		&f.ID, &f.OrganizationID, &f.EventID, &f.SubmittedBy,
		&f.LeadShowed, &f.OfferMade, &f.DealClosed, &f.PipelineStage,
		&f.CashCollectedCents, &f.Notes, &f.CreatedAt, &f.UpdatedAt,
	)
	return f, err
}

// Upsert writes the form for an event, replacing any prior submission.
func (r *Repository) Upsert(ctx context.Context, f PostCallForm) (PostCallForm, error) {
	return scanForm(r.db.QueryRow(ctx, `
		INSERT INTO post_call_forms (
			organization_id, event_id, submitted_by,
			lead_showed, offer_made, deal_closed, pipeline_stage,
			cash_collected_cents, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (event_id) DO UPDATE SET
			submitted_by = EXCLUDED.submitted_by,
			lead_showed = EXCLUDED.lead_showed,
			offer_made = EXCLUDED.offer_made,
			deal_closed = EXCLUDED.deal_closed,
			pipeline_stage = EXCLUDED.pipeline_stage,
			cash_collected_cents = EXCLUDED.cash_collected_cents,
			notes = EXCLUDED.notes,
			updated_at = now()
		RETURNING `+formColumns,
		f.OrganizationID, f.EventID, f.SubmittedBy,
		f.LeadShowed, f.OfferMade, f.DealClosed, f.PipelineStage,
		f.CashCollectedCents, f.Notes))
}

// GetByEventID fetches the form for one tracked event.
func (r *Repository) GetByEventID(ctx context.Context, orgID, eventID uuid.UUID) (PostCallForm, error) {
	f, err := scanForm(r.db.QueryRow(ctx, `
		SELECT `+formColumns+`
		FROM post_call_forms
		WHERE organization_id = $1 AND event_id = $2
	`, orgID, eventID))
	if err == pgx.ErrNoRows {
		return PostCallForm{}, ErrFormNotFound
	}
	return f, err
}
