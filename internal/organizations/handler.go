package organizations

import (
	"net/http"

	"salesops_backend/platform/httpkit"
	"salesops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles platform-config admin HTTP requests.
type Handler struct {
	repo *Repository
	val  *validator.Validator
}

// NewHandler creates a new organizations handler.
func NewHandler(repo *Repository, val *validator.Validator) *Handler {
	return &Handler{repo: repo, val: val}
}

// UpsertPlatformConfigRequest is the request body for configuring a platform.
type UpsertPlatformConfigRequest struct {
	Platform        string   `json:"platform" validate:"required,oneof=calendly calcom"`
	SigningSecret   string   `json:"signingSecret" validate:"required,min=8,max=200"`
	OrganizerEmails []string `json:"organizerEmails" validate:"max=50,dive,email"`
	IsActive        *bool    `json:"isActive"`
}

// PlatformConfigResponse is the admin view of a platform config. The signing
// secret is never echoed back.
type PlatformConfigResponse struct {
	ID              uuid.UUID `json:"id"`
	Platform        string    `json:"platform"`
	OrganizerEmails []string  `json:"organizerEmails"`
	IsActive        bool      `json:"isActive"`
}

// HandleUpsertPlatformConfig creates or updates a platform config.
// PUT /api/v1/admin/platform-configs
func (h *Handler) HandleUpsertPlatformConfig(c *gin.Context) {
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	var req UpsertPlatformConfigRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	row, err := h.repo.UpsertPlatformConfig(c.Request.Context(), PlatformConfig{
		OrganizationID:  tenantID,
		Platform:        req.Platform,
		SigningSecret:   req.SigningSecret,
		OrganizerEmails: req.OrganizerEmails,
		IsActive:        active,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toPlatformConfigResponse(row))
}

// HandleListPlatformConfigs lists the tenant's platform configs.
// GET /api/v1/admin/platform-configs
func (h *Handler) HandleListPlatformConfigs(c *gin.Context) {
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	rows, err := h.repo.ListPlatformConfigsByOrganization(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	result := make([]PlatformConfigResponse, len(rows))
	for i, row := range rows {
		result[i] = toPlatformConfigResponse(row)
	}
	httpkit.OK(c, result)
}

// HandleDeletePlatformConfig removes a platform config.
// DELETE /api/v1/admin/platform-configs/:configId
func (h *Handler) HandleDeletePlatformConfig(c *gin.Context) {
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	configID, err := uuid.Parse(c.Param("configId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid config ID", nil)
		return
	}

	if err := h.repo.DeletePlatformConfig(c.Request.Context(), configID, tenantID); err != nil {
		if err == ErrPlatformConfigNotFound {
			httpkit.Error(c, http.StatusNotFound, "config not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toPlatformConfigResponse(row PlatformConfig) PlatformConfigResponse {
	return PlatformConfigResponse{
		ID:              row.ID,
		Platform:        row.Platform,
		OrganizerEmails: row.OrganizerEmails,
		IsActive:        row.IsActive,
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

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return false
	}
	return true
}
