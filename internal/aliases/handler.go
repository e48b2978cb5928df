package aliases

import (
	"net/http"

	"salesops_backend/platform/httpkit"
	"salesops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles alias admin HTTP requests.
type Handler struct {
	repo *Repository
	val  *validator.Validator
}

// NewHandler creates a new aliases handler.
func NewHandler(repo *Repository, val *validator.Validator) *Handler {
	return &Handler{repo: repo, val: val}
}

// CreateSetterAliasRequest is the request body for creating a setter alias.
type CreateSetterAliasRequest struct {
	Alias         string `json:"alias" validate:"required,min=1,max=100"`
	CanonicalName string `json:"canonicalName" validate:"required,min=1,max=100"`
}

// UpsertCloserAliasRequest is the request body for mapping a closer email to a display name.
type UpsertCloserAliasRequest struct {
	CloserEmail string `json:"closerEmail" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"required,min=1,max=100"`
}

// HandleCreateSetterAlias creates or updates a setter alias.
// POST /api/v1/admin/aliases/setters
func (h *Handler) HandleCreateSetterAlias(c *gin.Context) {
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	var req CreateSetterAliasRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	row, err := h.repo.CreateSetterAlias(c.Request.Context(), tenantID, req.Alias, req.CanonicalName)
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, row)
}

// HandleListSetterAliases lists all setter aliases for the organization.
// GET /api/v1/admin/aliases/setters
func (h *Handler) HandleListSetterAliases(c *gin.Context) {
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	rows, err := h.repo.ListSetterAliases(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, rows)
}

// HandleDeleteSetterAlias removes a setter alias.
// DELETE /api/v1/admin/aliases/setters/:aliasId
func (h *Handler) HandleDeleteSetterAlias(c *gin.Context) {
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	aliasID, err := uuid.Parse(c.Param("aliasId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid alias ID", nil)
		return
	}

	if err := h.repo.DeleteSetterAlias(c.Request.Context(), aliasID, tenantID); err != nil {
		if err == ErrAliasNotFound {
			httpkit.Error(c, http.StatusNotFound, "alias not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleUpsertCloserAlias creates or updates a closer display name.
// PUT /api/v1/admin/aliases/closers
func (h *Handler) HandleUpsertCloserAlias(c *gin.Context) {
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	var req UpsertCloserAliasRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	row, err := h.repo.UpsertCloserAlias(c.Request.Context(), tenantID, req.CloserEmail, req.DisplayName)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, row)
}

// HandleListCloserAliases lists all closer aliases for the organization.
// GET /api/v1/admin/aliases/closers
func (h *Handler) HandleListCloserAliases(c *gin.Context) {
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	rows, err := h.repo.ListCloserAliases(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, rows)
}

// HandleDeleteCloserAlias removes a closer alias.
// DELETE /api/v1/admin/aliases/closers/:aliasId
func (h *Handler) HandleDeleteCloserAlias(c *gin.Context) {
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	aliasID, err := uuid.Parse(c.Param("aliasId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid alias ID", nil)
		return
	}

	if err := h.repo.DeleteCloserAlias(c.Request.Context(), aliasID, tenantID); err != nil {
		if err == ErrAliasNotFound {
			httpkit.Error(c, http.StatusNotFound, "alias not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
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
