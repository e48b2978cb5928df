package organizations

import (
	"context"
	"strings"

	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
)

// ConfigSource is the read surface the resolver needs. Satisfied by Repository.
type ConfigSource interface {
	ListPlatformConfigs(ctx context.Context, platform string) ([]PlatformConfig, error)
	GetOrganization(ctx context.Context, orgID uuid.UUID) (Organization, error)
}

// Resolver determines the tenant for an inbound webhook payload.
type Resolver struct {
	source ConfigSource
}

// NewResolver creates a tenant resolver over the given config source.
func NewResolver(source ConfigSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve finds the organization for an inbound event, in order:
// an explicit tenant hint, the organizer email against configured organizer
// lists, and finally — only when exactly one tenant has the platform
// configured — that sole tenant. Anything else is unresolvable.
func (r *Resolver) Resolve(ctx context.Context, platform string, hint *uuid.UUID, organizerEmail string) (uuid.UUID, error) {
	if hint != nil {
		if _, err := r.source.GetOrganization(ctx, *hint); err != nil {
			return uuid.UUID{}, apperr.Unresolvable("organization hint does not exist")
		}
		return *hint, nil
	}

	configs, err := r.source.ListPlatformConfigs(ctx, platform)
	if err != nil {
		return uuid.UUID{}, apperr.Wrap(apperr.KindInternal, "failed to load platform configs", err)
	}

	if organizerEmail != "" {
		needle := strings.ToLower(strings.TrimSpace(organizerEmail))
		for _, cfg := range configs {
			for _, email := range cfg.OrganizerEmails {
				if strings.ToLower(strings.TrimSpace(email)) == needle {
					return cfg.OrganizationID, nil
				}
			}
		}
	}

	if len(configs) == 1 {
		return configs[0].OrganizationID, nil
	}

	return uuid.UUID{}, apperr.Unresolvable("no organization could be determined for payload")
}

// SigningSecret returns the webhook signing secret for (organization, platform).
func (r *Resolver) SigningSecret(ctx context.Context, platform string, orgID uuid.UUID) (string, error) {
	configs, err := r.source.ListPlatformConfigs(ctx, platform)
	if err != nil {
		return "", err
	}
	for _, cfg := range configs {
		if cfg.OrganizationID == orgID {
			return cfg.SigningSecret, nil
		}
	}
	return "", ErrPlatformConfigNotFound
}

// Secrets returns every active signing secret for a platform. Signature
// verification runs before tenant resolution, so the middleware tries each.
func (r *Resolver) Secrets(ctx context.Context, platform string) ([]string, error) {
	configs, err := r.source.ListPlatformConfigs(ctx, platform)
	if err != nil {
		return nil, err
	}
	secrets := make([]string, 0, len(configs))
	for _, cfg := range configs {
		if cfg.SigningSecret != "" {
			secrets = append(secrets, cfg.SigningSecret)
		}
	}
	return secrets, nil
}
