// Package organizations provides the tenant bounded context: the organization
// table and the per-platform webhook configuration (signing secrets, organizer
// emails) used to resolve inbound events to a tenant.
package organizations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOrganizationNotFound   = errors.New("organization not found")
	ErrPlatformConfigNotFound = errors.New("platform config not found")
)

// Organization is a tenant.
type Organization struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlatformConfig holds one organization's configuration for one scheduling platform.
type PlatformConfig struct {
	ID              uuid.UUID
	OrganizationID  uuid.UUID
	Platform        string
	SigningSecret   string
	OrganizerEmails []string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Repository provides data access for organizations and platform configs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetOrganization fetches one organization by id.
func (r *Repository) GetOrganization(ctx context.Context, orgID uuid.UUID) (Organization, error) {
	var org Organization
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`, orgID).Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Organization{}, ErrOrganizationNotFound
	}
	return org, err
}

// CreateOrganization inserts a new organization.
func (r *Repository) CreateOrganization(ctx context.Context, name string) (Organization, error) {
	var org Organization
	err := r.pool.QueryRow(ctx, `
		INSERT INTO organizations (name)
		VALUES ($1)
		RETURNING id, name, created_at, updated_at
	`, name).Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	return org, err
}

// UpsertPlatformConfig inserts or updates the config for (organization, platform).
func (r *Repository) UpsertPlatformConfig(ctx context.Context, cfg PlatformConfig) (PlatformConfig, error) {
	var row PlatformConfig
	err := r.pool.QueryRow(ctx, `
		INSERT INTO platform_configs (organization_id, platform, signing_secret, organizer_emails, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organization_id, platform)
		DO UPDATE SET signing_secret = EXCLUDED.signing_secret,
		              organizer_emails = EXCLUDED.organizer_emails,
		              is_active = EXCLUDED.is_active,
		              updated_at = now()
		RETURNING id, organization_id, platform, signing_secret, organizer_emails, is_active, created_at, updated_at
	`, cfg.OrganizationID, cfg.Platform, cfg.SigningSecret, cfg.OrganizerEmails, cfg.IsActive).Scan(
		&row.ID, &row.OrganizationID, &row.Platform, &row.SigningSecret,
		&row.OrganizerEmails, &row.IsActive, &row.CreatedAt, &row.UpdatedAt,
	)
	return row, err
}

// ListPlatformConfigs returns all active configs for a platform across tenants.
func (r *Repository) ListPlatformConfigs(ctx context.Context, platform string) ([]PlatformConfig, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, platform, signing_secret, organizer_emails, is_active, created_at, updated_at
		FROM platform_configs
		WHERE platform = $1 AND is_active = true
		ORDER BY created_at
	`, platform)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlatformConfig
	for rows.Next() {
		var row PlatformConfig
		if err := rows.Scan(
			&row.ID, &row.OrganizationID, &row.Platform, &row.SigningSecret,
			&row.OrganizerEmails, &row.IsActive, &row.CreatedAt, &row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListPlatformConfigsByOrganization returns all configs for one tenant.
func (r *Repository) ListPlatformConfigsByOrganization(ctx context.Context, orgID uuid.UUID) ([]PlatformConfig, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, platform, signing_secret, organizer_emails, is_active, created_at, updated_at
		FROM platform_configs
		WHERE organization_id = $1
		ORDER BY platform
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlatformConfig
	for rows.Next() {
		var row PlatformConfig
		if err := rows.Scan(
			&row.ID, &row.OrganizationID, &row.Platform, &row.SigningSecret,
			&row.OrganizerEmails, &row.IsActive, &row.CreatedAt, &row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeletePlatformConfig removes a platform config.
func (r *Repository) DeletePlatformConfig(ctx context.Context, configID, orgID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM platform_configs WHERE id = $1 AND organization_id = $2
	`, configID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPlatformConfigNotFound
	}
	return nil
}
