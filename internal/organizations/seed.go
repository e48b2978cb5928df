package organizations

import (
	"context"
	"fmt"
	"os"

	"salesops_backend/platform/logger"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// seedFile is the yaml shape for bootstrap platform configs. Used to stand up
// a fresh environment without clicking through the admin API.
type seedFile struct {
	Organizations []struct {
		ID        string `yaml:"id"`
		Name      string `yaml:"name"`
		Platforms []struct {
			Platform        string   `yaml:"platform"`
			SigningSecret   string   `yaml:"signingSecret"`
			OrganizerEmails []string `yaml:"organizerEmails"`
		} `yaml:"platforms"`
	} `yaml:"organizations"`
}

// SeedFromFile loads platform configs from a yaml file and upserts them.
// Missing file is not an error; a malformed file is.
func SeedFromFile(ctx context.Context, repo *Repository, path string, log *logger.Logger) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("platform seed file not found, skipping", "path", path)
			return nil
		}
		return err
	}

	var seeds seedFile
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}

	for _, org := range seeds.Organizations {
		orgID, err := uuid.Parse(org.ID)
		if err != nil {
			return fmt.Errorf("seed organization %q: invalid id: %w", org.Name, err)
		}

		if _, err := repo.GetOrganization(ctx, orgID); err == ErrOrganizationNotFound {
			if _, err := createOrganizationWithID(ctx, repo, orgID, org.Name); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		for _, p := range org.Platforms {
			_, err := repo.UpsertPlatformConfig(ctx, PlatformConfig{
				OrganizationID:  orgID,
				Platform:        p.Platform,
				SigningSecret:   p.SigningSecret,
				OrganizerEmails: p.OrganizerEmails,
				IsActive:        true,
			})
			if err != nil {
				return fmt.Errorf("seed platform config %s/%s: %w", org.Name, p.Platform, err)
			}
		}
		log.Info("seeded organization platform configs", "organization", org.Name, "platforms", len(org.Platforms))
	}

	return nil
}

func createOrganizationWithID(ctx context.Context, repo *Repository, orgID uuid.UUID, name string) (Organization, error) {
	var org Organization
	err := repo.pool.QueryRow(ctx, `
		INSERT INTO organizations (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = now()
		RETURNING id, name, created_at, updated_at
	`, orgID, name).Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	return org, err
}
