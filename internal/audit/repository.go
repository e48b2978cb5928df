package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the query surface the repository needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists audit entries.
type Repository struct {
	db DB
}

// NewRepository creates a new audit repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// Insert appends one entry.
func (r *Repository) Insert(ctx context.Context, e Entry) (Entry, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO webhook_audit_log (
			organization_id, platform, event_type, native_id,
			attendee_email, organizer_email, scheduled_at, rescheduled_from,
			result, error_detail, headers, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`, e.OrganizationID, e.Platform, e.EventType, e.NativeID,
		e.AttendeeEmail, e.OrganizerEmail, e.ScheduledAt, e.RescheduledFrom,
		e.Result, e.ErrorDetail, e.Headers, e.Payload,
	).Scan(&e.ID, &e.CreatedAt)
	return e, err
}

// ListFilter narrows List.
type ListFilter struct {
	Result   Result
	Platform string
	Limit    int
}

// List returns entries for an organization, newest first. Unattributed rows
// (nil organization) are included for every tenant's admins since the tenant
// they belong to is by definition unknown.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID, filter ListFilter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, organization_id, platform, event_type, native_id,
		       attendee_email, organizer_email, scheduled_at, rescheduled_from,
		       result, error_detail, headers, payload, created_at
		FROM webhook_audit_log
		WHERE (organization_id = $1 OR organization_id IS NULL)
		  AND ($2 = '' OR result = $2)
		  AND ($3 = '' OR platform = $3)
		ORDER BY created_at DESC
		LIMIT $4
	`, orgID, string(filter.Result), filter.Platform, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.OrganizationID, &e.Platform, &e.EventType, &e.NativeID,
			&e.AttendeeEmail, &e.OrganizerEmail, &e.ScheduledAt, &e.RescheduledFrom,
			&e.Result, &e.ErrorDetail, &e.Headers, &e.Payload, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteOlderThan purges entries past the retention window and returns the
// number removed. Run periodically by the worker.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM webhook_audit_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
