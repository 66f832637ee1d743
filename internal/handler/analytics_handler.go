package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gearstack/cmms-api/internal/models"
	"github.com/gearstack/cmms-api/internal/service"
	appErrors "github.com/gearstack/cmms-api/pkg/errors"
	"github.com/gearstack/cmms-api/pkg/response"
)

// AnalyticsHandler exposes the board snapshot and reporting endpoints.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs an AnalyticsHandler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Kanban returns the grouped board snapshot.
func (h *AnalyticsHandler) Kanban(c *gin.Context) {
	filter := models.KanbanFilter{
		RequestType: models.RequestType(c.Query("type")),
		TeamID:      c.Query("teamId"),
	}
	board, err := h.analytics.KanbanBoard(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, board, nil)
}

// RequestsByTeam returns the per-team breakdown.
func (h *AnalyticsHandler) RequestsByTeam(c *gin.Context) {
	filter, err := parseDateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summaries, err := h.analytics.RequestsByTeam(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

// BreakdownsByEquipment returns the top equipment by corrective requests.
func (h *AnalyticsHandler) BreakdownsByEquipment(c *gin.Context) {
	filter, err := parseDateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	summaries, err := h.analytics.BreakdownsByEquipment(c.Request.Context(), filter, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

// EquipmentStats returns the per-asset counter set.
func (h *AnalyticsHandler) EquipmentStats(c *gin.Context) {
	stats, err := h.analytics.EquipmentStats(c.Request.Context(), c.Param("equipmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// WorkflowStatistics summarises the whole request population.
func (h *AnalyticsHandler) WorkflowStatistics(c *gin.Context) {
	stats, err := h.analytics.WorkflowStatistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

func parseDateRange(c *gin.Context) (models.DateRangeFilter, error) {
	var filter models.DateRangeFilter
	if raw := c.Query("startDate"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "startDate must be YYYY-MM-DD")
		}
		filter.StartDate = &parsed
	}
	if raw := c.Query("endDate"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "endDate must be YYYY-MM-DD")
		}
		end := parsed.Add(24*time.Hour - time.Nanosecond)
		filter.EndDate = &end
	}
	return filter, nil
}
