package booking

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"salesops_backend/internal/aliases"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes the webhook ingestion and tracked-event read endpoints.
type Handler struct {
	service *Service
	store   Store
}

// NewHandler creates a new booking handler.
func NewHandler(service *Service, store Store) *Handler {
	return &Handler{service: service, store: store}
}

// WebhookResponse acknowledges a processed delivery.
type WebhookResponse struct {
	Status     string     `json:"status"`
	EventID    *uuid.UUID `json:"eventId,omitempty"`
	CallStatus string     `json:"callStatus,omitempty"`
}

// HandleCalendlyWebhook ingests a Calendly delivery.
// POST /api/v1/webhook/calendly
func (h *Handler) HandleCalendlyWebhook(c *gin.Context) {
	h.handleWebhook(c, PlatformCalendly)
}

// HandleCalComWebhook ingests a Cal.com delivery.
// POST /api/v1/webhook/calcom
func (h *Handler) HandleCalComWebhook(c *gin.Context) {
	h.handleWebhook(c, PlatformCalCom)
}

func (h *Handler) handleWebhook(c *gin.Context, platform Platform) {
	body, ok := c.Get(contextBodyKey)
	if !ok {
		httpkit.Error(c, http.StatusInternalServerError, "webhook body unavailable", nil)
		return
	}
	rawBody := body.([]byte)

	var ev InboundEvent
	var err error
	switch platform {
	case PlatformCalendly:
		ev, err = ParseCalendlyEvent(rawBody)
	default:
		ev, err = ParseCalComEvent(rawBody)
	}
	if httpkit.HandleError(c, err) {
		return
	}

	ev.DeliveryID = c.GetString(contextDeliveryIDKey)
	if hint := c.Query("org"); hint != "" {
		if orgID, err := uuid.Parse(hint); err == nil {
			ev.OrganizationHint = &orgID
		}
	}

	result, err := h.service.ProcessInboundEvent(c.Request.Context(), ev, rawBody, flattenHeaders(c.Request.Header))
	if err != nil {
		// Unattributable payloads are acknowledged so the platform stops
		// redelivering; the audit log and ops alert carry the follow-up.
		if apperr.Is(err, apperr.KindUnresolvable) {
			httpkit.JSON(c, http.StatusOK, WebhookResponse{Status: "dropped"})
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	resp := WebhookResponse{Status: "reconciled", CallStatus: string(result.CallStatus)}
	if result.Duplicate {
		resp = WebhookResponse{Status: "duplicate"}
	} else {
		eventID := result.EventID
		resp.EventID = &eventID
	}
	httpkit.OK(c, resp)
}

// EventResponse is the read view of a tracked event.
type EventResponse struct {
	ID               uuid.UUID         `json:"id"`
	LeadName         string            `json:"leadName"`
	LeadEmail        string            `json:"leadEmail"`
	LeadPhone        string            `json:"leadPhone,omitempty"`
	Platform         *Platform         `json:"platform"`
	EventTypeName    string            `json:"eventTypeName"`
	CloserName       string            `json:"closerName"`
	CloserEmail      string            `json:"closerEmail"`
	SetterName       *string           `json:"setterName"`
	ScheduledAt      time.Time         `json:"scheduledAt"`
	BookedAt         *time.Time        `json:"bookedAt"`
	CallStatus       CallStatus        `json:"callStatus"`
	EventOutcome     *EventOutcome     `json:"eventOutcome"`
	PCFOutcomeLabel  *string           `json:"pcfOutcomeLabel"`
	PCFSubmitted     bool              `json:"pcfSubmitted"`
	UTM              map[string]string `json:"utm,omitempty"`
	Responses        map[string]any    `json:"responses,omitempty"`
	RescheduledFrom  *string           `json:"rescheduledFrom"`
	RescheduledTo    *string           `json:"rescheduledTo"`
	CancelReason     *string           `json:"cancelReason"`
	CRMPipelineStage *string           `json:"crmPipelineStage"`
	CRMOwnerName     *string           `json:"crmOwnerName"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// HandleListEvents lists tracked events for the caller's organization.
// GET /api/v1/events
func (h *Handler) HandleListEvents(c *gin.Context) {
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.store.ListEvents(c.Request.Context(), tenantID, EventFilter{
		Status:    CallStatus(c.Query("status")),
		LeadEmail: c.Query("email"),
		Limit:     limit,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	snap := h.service.aliasSnapshot(c.Request.Context(), tenantID)
	result := make([]EventResponse, len(rows))
	for i := range rows {
		result[i] = toEventResponse(&rows[i], snap)
	}
	httpkit.OK(c, result)
}

// HandleGetEvent fetches one tracked event.
// GET /api/v1/events/:eventId
func (h *Handler) HandleGetEvent(c *gin.Context) {
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid event ID", nil)
		return
	}

	event, err := h.store.GetEvent(c.Request.Context(), tenantID, eventID)
	if err == ErrEventNotFound {
		httpkit.Error(c, http.StatusNotFound, "event not found", nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toEventResponse(&event, h.service.aliasSnapshot(c.Request.Context(), tenantID)))
}

// toEventResponse builds the read view. The stored setter spelling is passed
// through the organization's alias table here, so display names follow alias
// edits without rewriting rows.
func toEventResponse(e *TrackedEvent, snap aliases.Snapshot) EventResponse {
	resp := EventResponse{
		ID:               e.ID,
		LeadName:         e.LeadName,
		LeadEmail:        e.LeadEmail,
		LeadPhone:        e.LeadPhone,
		Platform:         e.Platform,
		EventTypeName:    e.EventTypeName,
		CloserName:       e.CloserName,
		CloserEmail:      e.CloserEmail,
		SetterName:       e.SetterName,
		ScheduledAt:      e.ScheduledAt,
		BookedAt:         e.BookedAt,
		CallStatus:       e.CallStatus,
		EventOutcome:     e.EventOutcome,
		PCFOutcomeLabel:  e.PCFOutcomeLabel,
		PCFSubmitted:     e.PCFSubmitted,
		UTM:              e.UTM,
		Responses:        e.Responses,
		RescheduledFrom:  e.RescheduledFrom,
		RescheduledTo:    e.RescheduledTo,
		CancelReason:     e.CancelReason,
		CRMPipelineStage: e.CRMPipelineStage,
		CRMOwnerName:     e.CRMOwnerName,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
	if e.SetterName != nil {
		display := snap.ResolveSetter(*e.SetterName)
		resp.SetterName = &display
	}
	return resp
}

func (h *Handler) getTenantID(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.UUID{}, false
	}
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusForbidden, "no organization context", nil)
		return uuid.UUID{}, false
	}
	return *tenantID, true
}

func flattenHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for k, v := range header {
		out[k] = strings.Join(v, ", ")
	}
	return out
}
