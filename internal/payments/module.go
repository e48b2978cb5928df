package payments

import (
	domainevents "salesops_backend/internal/events"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"
)

// Module is the payments bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates and initializes the payments module.
func NewModule(db DB, events EventSource, bus domainevents.Bus, val *validator.Validator, log *logger.Logger) *Module {
	service := NewService(NewRepository(db), events, bus, log)
	return &Module{handler: NewHandler(service, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "payments"
}

// RegisterRoutes mounts the payment routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/payments")
	group.POST("", m.handler.HandleRecord)
	group.GET("", m.handler.HandleList)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
