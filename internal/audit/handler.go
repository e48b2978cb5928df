package audit

import (
	"net/http"
	"strconv"
	"time"

	"salesops_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the audit log to tenant admins.
type Handler struct {
	repo *Repository
}

// NewHandler creates a new audit handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// EntryResponse is the admin view of one audit row. The raw payload is
// returned as-is; headers were redacted at write time.
type EntryResponse struct {
	ID              uuid.UUID         `json:"id"`
	OrganizationID  *uuid.UUID        `json:"organizationId"`
	Platform        string            `json:"platform"`
	EventType       string            `json:"eventType"`
	NativeID        string            `json:"nativeId"`
	AttendeeEmail   string            `json:"attendeeEmail"`
	OrganizerEmail  string            `json:"organizerEmail"`
	ScheduledAt     *time.Time        `json:"scheduledAt"`
	RescheduledFrom string            `json:"rescheduledFrom,omitempty"`
	Result          Result            `json:"result"`
	ErrorDetail     string            `json:"errorDetail,omitempty"`
	Headers         map[string]string `json:"headers"`
	Payload         string            `json:"payload"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// HandleList lists audit entries for the admin's organization.
// GET /api/v1/admin/audit
func (h *Handler) HandleList(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID := identity.TenantID()
	if tenantID == nil {
		httpkit.Error(c, http.StatusForbidden, "no organization context", nil)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.repo.List(c.Request.Context(), *tenantID, ListFilter{
		Result:   Result(c.Query("result")),
		Platform: c.Query("platform"),
		Limit:    limit,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	result := make([]EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryResponse{
			ID:              e.ID,
			OrganizationID:  e.OrganizationID,
			Platform:        e.Platform,
			EventType:       e.EventType,
			NativeID:        e.NativeID,
			AttendeeEmail:   e.AttendeeEmail,
			OrganizerEmail:  e.OrganizerEmail,
			ScheduledAt:     e.ScheduledAt,
			RescheduledFrom: e.RescheduledFrom,
			Result:          e.Result,
			ErrorDetail:     e.ErrorDetail,
			Headers:         e.Headers,
			Payload:         string(e.Payload),
			CreatedAt:       e.CreatedAt,
		}
	}
	httpkit.OK(c, result)
}
