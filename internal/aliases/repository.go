package aliases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAliasNotFound = errors.New("alias not found")

// SetterAlias is a stored setter alias row.
type SetterAlias struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Alias          string
	CanonicalName  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CloserAlias maps a closer email to a display name.
type CloserAlias struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	CloserEmail    string
	DisplayName    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Repository provides data access for alias tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new aliases repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadSnapshot reads both alias tables for an organization into an immutable snapshot.
func (r *Repository) LoadSnapshot(ctx context.Context, orgID uuid.UUID) (Snapshot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT alias, canonical_name
		FROM setter_aliases
		WHERE organization_id = $1
		ORDER BY alias
	`, orgID)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()

	var setters []Alias
	for rows.Next() {
		var a Alias
		if err := rows.Scan(&a.Alias, &a.Canonical); err != nil {
			return Snapshot{}, err
		}
		setters = append(setters, a)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}

	closerRows, err := r.pool.Query(ctx, `
		SELECT closer_email, display_name
		FROM closer_aliases
		WHERE organization_id = $1
	`, orgID)
	if err != nil {
		return Snapshot{}, err
	}
	defer closerRows.Close()

	closers := make(map[string]string)
	for closerRows.Next() {
		var email, name string
		if err := closerRows.Scan(&email, &name); err != nil {
			return Snapshot{}, err
		}
		closers[email] = name
	}
	if err := closerRows.Err(); err != nil {
		return Snapshot{}, err
	}

	return NewSnapshot(setters, closers), nil
}

// CreateSetterAlias inserts a setter alias, updating the canonical name on duplicates.
func (r *Repository) CreateSetterAlias(ctx context.Context, orgID uuid.UUID, alias, canonical string) (SetterAlias, error) {
	var row SetterAlias
	err := r.pool.QueryRow(ctx, `
		INSERT INTO setter_aliases (organization_id, alias, canonical_name)
		VALUES ($1, lower($2), $3)
		ON CONFLICT (organization_id, alias)
		DO UPDATE SET canonical_name = EXCLUDED.canonical_name, updated_at = now()
		RETURNING id, organization_id, alias, canonical_name, created_at, updated_at
	`, orgID, alias, canonical).Scan(
		&row.ID, &row.OrganizationID, &row.Alias, &row.CanonicalName, &row.CreatedAt, &row.UpdatedAt,
	)
	return row, err
}

// ListSetterAliases returns all setter aliases for an organization.
func (r *Repository) ListSetterAliases(ctx context.Context, orgID uuid.UUID) ([]SetterAlias, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, alias, canonical_name, created_at, updated_at
		FROM setter_aliases
		WHERE organization_id = $1
		ORDER BY alias
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SetterAlias
	for rows.Next() {
		var row SetterAlias
		if err := rows.Scan(&row.ID, &row.OrganizationID, &row.Alias, &row.CanonicalName, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteSetterAlias removes a setter alias.
func (r *Repository) DeleteSetterAlias(ctx context.Context, aliasID, orgID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM setter_aliases WHERE id = $1 AND organization_id = $2
	`, aliasID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAliasNotFound
	}
	return nil
}

// UpsertCloserAlias inserts or updates a closer display name.
func (r *Repository) UpsertCloserAlias(ctx context.Context, orgID uuid.UUID, email, displayName string) (CloserAlias, error) {
	var row CloserAlias
	err := r.pool.QueryRow(ctx, `
		INSERT INTO closer_aliases (organization_id, closer_email, display_name)
		VALUES ($1, lower($2), $3)
		ON CONFLICT (organization_id, closer_email)
		DO UPDATE SET display_name = EXCLUDED.display_name, updated_at = now()
		RETURNING id, organization_id, closer_email, display_name, created_at, updated_at
	`, orgID, email, displayName).Scan(
		&row.ID, &row.OrganizationID, &row.CloserEmail, &row.DisplayName, &row.CreatedAt, &row.UpdatedAt,
	)
	return row, err
}

// ListCloserAliases returns all closer aliases for an organization.
func (r *Repository) ListCloserAliases(ctx context.Context, orgID uuid.UUID) ([]CloserAlias, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, closer_email, display_name, created_at, updated_at
		FROM closer_aliases
		WHERE organization_id = $1
		ORDER BY closer_email
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CloserAlias
	for rows.Next() {
		var row CloserAlias
		if err := rows.Scan(&row.ID, &row.OrganizationID, &row.CloserEmail, &row.DisplayName, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteCloserAlias removes a closer alias.
func (r *Repository) DeleteCloserAlias(ctx context.Context, aliasID, orgID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM closer_aliases WHERE id = $1 AND organization_id = $2
	`, aliasID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAliasNotFound
	}
	return nil
}
