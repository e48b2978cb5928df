// Package organizations provides the tenant bounded context module.
package organizations

import (
	apphttp "salesops_backend/internal/http"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the organizations bounded context module implementing http.Module.
type Module struct {
	handler  *Handler
	repo     *Repository
	resolver *Resolver
}

// NewModule creates and initializes the organizations module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := NewRepository(pool)
	return &Module{
		handler:  NewHandler(repo, val),
		repo:     repo,
		resolver: NewResolver(repo),
	}
}

// Repository exposes the repository for seeding.
func (m *Module) Repository() *Repository {
	return m.repo
}

// Resolver exposes the tenant resolver for the booking reconciler.
func (m *Module) Resolver() *Resolver {
	return m.resolver
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "organizations"
}

// RegisterRoutes mounts platform-config admin routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/platform-configs")
	group.PUT("", m.handler.HandleUpsertPlatformConfig)
	group.GET("", m.handler.HandleListPlatformConfigs)
	group.DELETE("/:configId", m.handler.HandleDeletePlatformConfig)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
