package audit

import (
	apphttp "salesops_backend/internal/http"
	"salesops_backend/platform/logger"
)

// Module is the audit bounded context module implementing http.Module.
type Module struct {
	handler  *Handler
	repo     *Repository
	recorder *Recorder
}

// NewModule creates and initializes the audit module.
func NewModule(db DB, log *logger.Logger) *Module {
	repo := NewRepository(db)
	return &Module{
		handler:  NewHandler(repo),
		repo:     repo,
		recorder: NewRecorder(repo, log),
	}
}

// Recorder exposes the write-side facade for the webhook pipeline.
func (m *Module) Recorder() *Recorder {
	return m.recorder
}

// Repository exposes the repository for the retention worker.
func (m *Module) Repository() *Repository {
	return m.repo
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "audit"
}

// RegisterRoutes mounts the audit admin routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/audit", m.handler.HandleList)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
