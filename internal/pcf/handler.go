package pcf

import (
	"net/http"
	"time"

	"salesops_backend/internal/booking"
	"salesops_backend/platform/httpkit"
	"salesops_backend/platform/sanitize"
	"salesops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles post-call form HTTP requests.
type Handler struct {
	service *Service
	val     *validator.Validator
}

// NewHandler creates a new post-call form handler.
func NewHandler(service *Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// SubmitRequest is the form submission body.
type SubmitRequest struct {
	EventID            uuid.UUID `json:"eventId" validate:"required"`
	LeadShowed         bool      `json:"leadShowed"`
	OfferMade          bool      `json:"offerMade"`
	DealClosed         bool      `json:"dealClosed"`
	PipelineStage      string    `json:"pipelineStage" validate:"max=120"`
	CashCollectedCents int64     `json:"cashCollectedCents" validate:"min=0"`
	Notes              string    `json:"notes" validate:"max=5000"`
}

// FormResponse is the read view of a submitted form.
type FormResponse struct {
	ID                 uuid.UUID `json:"id"`
	EventID            uuid.UUID `json:"eventId"`
	SubmittedBy        string    `json:"submittedBy"`
	LeadShowed         bool      `json:"leadShowed"`
	OfferMade          bool      `json:"offerMade"`
	DealClosed         bool      `json:"dealClosed"`
	PipelineStage      string    `json:"pipelineStage"`
	CashCollectedCents int64     `json:"cashCollectedCents"`
	Notes              string    `json:"notes"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// SubmitResponse pairs the stored form with the resulting event state.
type SubmitResponse struct {
	Form         FormResponse          `json:"form"`
	CallStatus   booking.CallStatus    `json:"callStatus"`
	EventOutcome *booking.EventOutcome `json:"eventOutcome"`
}

// HandleSubmit stores a form submission and recomputes the event outcome.
// POST /api/v1/pcf
func (h *Handler) HandleSubmit(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusForbidden, "no organization context", nil)
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	result, err := h.service.Submit(c.Request.Context(), *tenantID, SubmitInput{
		EventID:            req.EventID,
		SubmittedBy:        identity.UserID().String(),
		LeadShowed:         req.LeadShowed,
		OfferMade:          req.OfferMade,
		DealClosed:         req.DealClosed,
		PipelineStage:      sanitize.Text(req.PipelineStage),
		CashCollectedCents: req.CashCollectedCents,
		Notes:              sanitize.Text(req.Notes),
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, SubmitResponse{
		Form:         toFormResponse(result.Form),
		CallStatus:   result.Event.CallStatus,
		EventOutcome: result.Event.EventOutcome,
	})
}

// HandleGet fetches the form for one tracked event.
// GET /api/v1/pcf/:eventId
func (h *Handler) HandleGet(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusForbidden, "no organization context", nil)
		return
	}

	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid event ID", nil)
		return
	}

	form, err := h.service.Get(c.Request.Context(), *tenantID, eventID)
	if err == ErrFormNotFound {
		httpkit.Error(c, http.StatusNotFound, "form not found", nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toFormResponse(form))
}

func toFormResponse(f PostCallForm) FormResponse {
	return FormResponse{
		ID:                 f.ID,
		EventID:            f.EventID,
		SubmittedBy:        f.SubmittedBy,
		LeadShowed:         f.LeadShowed,
		OfferMade:          f.OfferMade,
		DealClosed:         f.DealClosed,
		PipelineStage:      f.PipelineStage,
		CashCollectedCents: f.CashCollectedCents,
		Notes:              f.Notes,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}
