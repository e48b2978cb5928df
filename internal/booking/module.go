package booking

import (
	domainevents "salesops_backend/internal/events"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/platform/logger"
)

// Module is the booking bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
	repo    *Repository
	secrets SecretSource
	log     *logger.Logger
}

// ModuleDeps are the cross-context dependencies of the booking module.
// Replay and Enricher may be nil.
type ModuleDeps struct {
	DB       DB
	Tenants  TenantResolver
	Secrets  SecretSource
	Aliases  AliasSource
	Replay   *ReplayCache
	Auditor  Auditor
	Bus      domainevents.Bus
	Enricher EnrichmentEnqueuer
	Logger   *logger.Logger
}

// NewModule creates and initializes the booking module.
func NewModule(deps ModuleDeps) *Module {
	repo := NewRepository(deps.DB)
	service := NewService(repo, deps.Tenants, deps.Aliases, deps.Replay, deps.Auditor, deps.Bus, deps.Enricher, deps.Logger)
	return &Module{
		handler: NewHandler(service, repo),
		service: service,
		repo:    repo,
		secrets: deps.Secrets,
		log:     deps.Logger,
	}
}

// Service exposes the reconciler for the post-call form module.
func (m *Module) Service() *Service {
	return m.service
}

// Repository exposes the store for the enrichment worker.
func (m *Module) Repository() *Repository {
	return m.repo
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "booking"
}

// RegisterRoutes mounts the webhook ingestion and event read routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	webhooks := ctx.V1.Group("/webhook")
	webhooks.Use(ctx.WebhookRateLimiter.RateLimit())
	webhooks.POST("/calendly", VerifySignature(PlatformCalendly, m.secrets, m.log), m.handler.HandleCalendlyWebhook)
	webhooks.POST("/calcom", VerifySignature(PlatformCalCom, m.secrets, m.log), m.handler.HandleCalComWebhook)

	events := ctx.Protected.Group("/events")
	events.GET("", m.handler.HandleListEvents)
	events.GET("/:eventId", m.handler.HandleGetEvent)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
