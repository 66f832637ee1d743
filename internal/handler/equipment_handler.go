package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gearstack/cmms-api/internal/models"
	"github.com/gearstack/cmms-api/internal/service"
	appErrors "github.com/gearstack/cmms-api/pkg/errors"
	"github.com/gearstack/cmms-api/pkg/response"
)

// EquipmentHandler exposes the asset-registry endpoints.
type EquipmentHandler struct {
	equipment *service.EquipmentService
}

// NewEquipmentHandler constructs an EquipmentHandler.
func NewEquipmentHandler(equipment *service.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{equipment: equipment}
}

// List returns equipment filtered by department, scrap state, or search.
func (h *EquipmentHandler) List(c *gin.Context) {
	var filter models.EquipmentFilter
	filter.Department = c.Query("department")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if raw := c.Query("scrapped"); raw != "" {
		if raw == "true" {
			v := true
			filter.IsScrapped = &v
		} else if raw == "false" {
			v := false
			filter.IsScrapped = &v
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	items, pagination, err := h.equipment.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get returns one equipment item.
func (h *EquipmentHandler) Get(c *gin.Context) {
	item, err := h.equipment.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create registers a new asset.
func (h *EquipmentHandler) Create(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input models.CreateEquipmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	item, err := h.equipment.Create(c.Request.Context(), claims, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update edits an asset.
func (h *EquipmentHandler) Update(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input models.UpdateEquipmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	item, err := h.equipment.Update(c.Request.Context(), claims, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete removes an asset when no open requests reference it.
func (h *EquipmentHandler) Delete(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.equipment.Delete(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
