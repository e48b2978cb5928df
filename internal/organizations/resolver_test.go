package organizations

import (
	"context"
	"testing"

	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeConfigSource struct {
	configs []PlatformConfig
	orgs    map[uuid.UUID]Organization
}

func (f *fakeConfigSource) ListPlatformConfigs(_ context.Context, platform string) ([]PlatformConfig, error) {
	var out []PlatformConfig
	for _, cfg := range f.configs {
		if cfg.Platform == platform {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (f *fakeConfigSource) GetOrganization(_ context.Context, orgID uuid.UUID) (Organization, error) {
	org, ok := f.orgs[orgID]
	if !ok {
		return Organization{}, apperr.NotFound("organization not found")
	}
	return org, nil
}

func TestResolveHintWins(t *testing.T) {
	acme := uuid.New()
	other := uuid.New()
	src := &fakeConfigSource{
		orgs: map[uuid.UUID]Organization{acme: {ID: acme, Name: "Acme"}},
		configs: []PlatformConfig{
			{OrganizationID: other, Platform: "calcom", OrganizerEmails: []string{"closer@acme.test"}},
		},
	}
	resolver := NewResolver(src)

	got, err := resolver.Resolve(context.Background(), "calcom", &acme, "closer@acme.test")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != acme {
		t.Errorf("resolved %s, want the hinted organization %s", got, acme)
	}
}

func TestResolveUnknownHintIsUnresolvable(t *testing.T) {
	missing := uuid.New()
	resolver := NewResolver(&fakeConfigSource{orgs: map[uuid.UUID]Organization{}})

	_, err := resolver.Resolve(context.Background(), "calcom", &missing, "")
	if !apperr.Is(err, apperr.KindUnresolvable) {
		t.Errorf("err = %v, want unresolvable for unknown hint", err)
	}
}

func TestResolveByOrganizerEmail(t *testing.T) {
	acme, globex := uuid.New(), uuid.New()
	src := &fakeConfigSource{configs: []PlatformConfig{
		{OrganizationID: acme, Platform: "calcom", OrganizerEmails: []string{"closer@acme.test", "second@acme.test"}},
		{OrganizationID: globex, Platform: "calcom", OrganizerEmails: []string{"closer@globex.test"}},
	}}
	resolver := NewResolver(src)

	got, err := resolver.Resolve(context.Background(), "calcom", nil, "  Closer@Acme.Test ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != acme {
		t.Errorf("resolved %s, want %s via organizer email", got, acme)
	}
}

func TestResolveSoleConfigDefault(t *testing.T) {
	acme := uuid.New()
	src := &fakeConfigSource{configs: []PlatformConfig{
		{OrganizationID: acme, Platform: "calendly"},
	}}
	resolver := NewResolver(src)

	got, err := resolver.Resolve(context.Background(), "calendly", nil, "unknown@nowhere.test")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != acme {
		t.Errorf("resolved %s, want sole configured tenant %s", got, acme)
	}
}

func TestResolveAmbiguousIsUnresolvable(t *testing.T) {
	src := &fakeConfigSource{configs: []PlatformConfig{
		{OrganizationID: uuid.New(), Platform: "calcom", OrganizerEmails: []string{"a@acme.test"}},
		{OrganizationID: uuid.New(), Platform: "calcom", OrganizerEmails: []string{"b@globex.test"}},
	}}
	resolver := NewResolver(src)

	_, err := resolver.Resolve(context.Background(), "calcom", nil, "unknown@nowhere.test")
	if !apperr.Is(err, apperr.KindUnresolvable) {
		t.Errorf("err = %v, want unresolvable with multiple candidate tenants", err)
	}
}

func TestSecretsSkipsEmpty(t *testing.T) {
	src := &fakeConfigSource{configs: []PlatformConfig{
		{OrganizationID: uuid.New(), Platform: "calcom", SigningSecret: "whsec_a"},
		{OrganizationID: uuid.New(), Platform: "calcom"},
		{OrganizationID: uuid.New(), Platform: "calcom", SigningSecret: "whsec_b"},
	}}
	resolver := NewResolver(src)

	secrets, err := resolver.Secrets(context.Background(), "calcom")
	if err != nil {
		t.Fatalf("Secrets: %v", err)
	}
	if len(secrets) != 2 {
		t.Fatalf("got %d secrets, want 2", len(secrets))
	}
}
