package payments

import (
	"net/http"
	"strconv"
	"time"

	"salesops_backend/platform/httpkit"
	"salesops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles payment HTTP requests.
type Handler struct {
	service *Service
	val     *validator.Validator
}

// NewHandler creates a new payments handler.
func NewHandler(service *Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// RecordRequest is the payment ingestion body.
type RecordRequest struct {
	LeadEmail   string     `json:"leadEmail" validate:"required,email"`
	AmountCents int64      `json:"amountCents" validate:"required,gt=0"`
	Currency    string     `json:"currency" validate:"omitempty,len=3"`
	PaidAt      *time.Time `json:"paidAt"`
	ExternalRef string     `json:"externalRef" validate:"max=200"`
}

// PaymentResponse is the read view of a payment.
type PaymentResponse struct {
	ID          uuid.UUID  `json:"id"`
	EventID     *uuid.UUID `json:"eventId"`
	LeadEmail   string     `json:"leadEmail"`
	AmountCents int64      `json:"amountCents"`
	Currency    string     `json:"currency"`
	PaidAt      time.Time  `json:"paidAt"`
	ExternalRef string     `json:"externalRef,omitempty"`
	SetterName  string     `json:"setterName,omitempty"`
	CloserName  string     `json:"closerName,omitempty"`
	Source      string     `json:"source,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// HandleRecord records a payment with carried-forward attribution.
// POST /api/v1/payments
func (h *Handler) HandleRecord(c *gin.Context) {
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	in := RecordInput{
		LeadEmail:   req.LeadEmail,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		ExternalRef: req.ExternalRef,
	}
	if req.PaidAt != nil {
		in.PaidAt = *req.PaidAt
	}

	payment, err := h.service.Record(c.Request.Context(), tenantID, in)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, toPaymentResponse(payment))
}

// HandleList lists payments for the caller's organization.
// GET /api/v1/payments
func (h *Handler) HandleList(c *gin.Context) {
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	payments, err := h.service.List(c.Request.Context(), tenantID, ListFilter{
		LeadEmail: c.Query("email"),
		Limit:     limit,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	result := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		result[i] = toPaymentResponse(p)
	}
	httpkit.OK(c, result)
}

func toPaymentResponse(p Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		EventID:     p.EventID,
		LeadEmail:   p.LeadEmail,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		PaidAt:      p.PaidAt,
		ExternalRef: p.ExternalRef,
		SetterName:  p.SetterName,
		CloserName:  p.CloserName,
		Source:      p.Source,
		CreatedAt:   p.CreatedAt,
	}
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
