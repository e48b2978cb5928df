package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Payment is one recorded payment with carried-forward attribution.
type Payment struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID

	// EventID is the tracked event the payment was attributed to, nil when
	// the lead had no booking history at record time.
	EventID *uuid.UUID

	LeadEmail   string
	AmountCents int64
	Currency    string
	PaidAt      time.Time
	ExternalRef string

	SetterName string
	CloserName string
	Source     string

	CreatedAt time.Time
}

// DB is the query surface the repository needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists payments.
type Repository struct {
	db DB
}

// NewRepository creates a new payments repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const paymentColumns = `
	id, organization_id, event_id, lead_email, amount_cents, currency,
	paid_at, external_ref, setter_name, closer_name, source, created_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.OrganizationID, &p.EventID, &p.LeadEmail, &p.AmountCents, &p.Currency,
		&p.PaidAt, &p.ExternalRef, &p.SetterName, &p.CloserName, &p.Source, &p.CreatedAt,
	)
	return p, err
}

// Insert stores one payment. An external ref that was already recorded is
// returned as-is, keeping payment ingestion idempotent.
func (r *Repository) Insert(ctx context.Context, p Payment) (Payment, error) {
	if p.ExternalRef != "" {
		existing, err := scanPayment(r.db.QueryRow(ctx, `
			SELECT `+paymentColumns+`
			FROM payments
			WHERE organization_id = $1 AND external_ref = $2
		`, p.OrganizationID, p.ExternalRef))
		if err == nil {
			return existing, nil
		}
		if err != pgx.ErrNoRows {
			return Payment{}, err
		}
	}

	return scanPayment(r.db.QueryRow(ctx, `
		INSERT INTO payments (
			organization_id, event_id, lead_email, amount_cents, currency,
			paid_at, external_ref, setter_name, closer_name, source
		) VALUES ($1, $2, lower($3), $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+paymentColumns,
		p.OrganizationID, p.EventID, p.LeadEmail, p.AmountCents, p.Currency,
		p.PaidAt, p.ExternalRef, p.SetterName, p.CloserName, p.Source))
}

// ListFilter narrows List.
type ListFilter struct {
	LeadEmail string
	Limit     int
}

// List returns payments for an organization, newest first.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID, filter ListFilter) ([]Payment, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE organization_id = $1
		  AND ($2 = '' OR lead_email = lower($2))
		ORDER BY paid_at DESC
		LIMIT $3
	`, orgID, filter.LeadEmail, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
