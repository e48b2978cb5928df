// Package aliases provides the alias bounded context module.
// This file defines the module that encapsulates setup and route registration.
package aliases

import (
	apphttp "salesops_backend/internal/http"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the aliases bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
}

// NewModule creates and initializes the aliases module with all its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := NewRepository(pool)
	handler := NewHandler(repo, val)

	return &Module{
		handler: handler,
		repo:    repo,
	}
}

// Repository exposes the repository for modules that load alias snapshots.
func (m *Module) Repository() *Repository {
	return m.repo
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "aliases"
}

// RegisterRoutes mounts alias admin routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	setters := ctx.Admin.Group("/aliases/setters")
	setters.POST("", m.handler.HandleCreateSetterAlias)
	setters.GET("", m.handler.HandleListSetterAliases)
	setters.DELETE("/:aliasId", m.handler.HandleDeleteSetterAlias)

	closers := ctx.Admin.Group("/aliases/closers")
	closers.PUT("", m.handler.HandleUpsertCloserAlias)
	closers.GET("", m.handler.HandleListCloserAliases)
	closers.DELETE("/:aliasId", m.handler.HandleDeleteCloserAlias)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
