package pcf

import (
	domainevents "salesops_backend/internal/events"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"
)

// Module is the post-call form bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates and initializes the post-call form module.
func NewModule(db DB, outcomes OutcomeApplier, bus domainevents.Bus, val *validator.Validator, log *logger.Logger) *Module {
	service := NewService(NewRepository(db), outcomes, bus, log)
	return &Module{handler: NewHandler(service, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pcf"
}

// RegisterRoutes mounts the post-call form routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/pcf")
	group.POST("", m.handler.HandleSubmit)
	group.GET("/:eventId", m.handler.HandleGet)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
