package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gearstack/cmms-api/internal/service"
	appErrors "github.com/gearstack/cmms-api/pkg/errors"
	"github.com/gearstack/cmms-api/pkg/response"
)

// AuditHandler exposes the audit-trail read endpoint.
type AuditHandler struct {
	audits *service.AuditService
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(audits *service.AuditService) *AuditHandler {
	return &AuditHandler{audits: audits}
}

// ListByResource returns the newest audit entries for one resource.
func (h *AuditHandler) ListByResource(c *gin.Context) {
	resource := c.Query("resource")
	resourceID := c.Query("resourceId")
	if resource == "" || resourceID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "resource and resourceId are required"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.audits.ListByResource(c.Request.Context(), resource, resourceID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
