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

// RequestHandler exposes the maintenance-request endpoints.
type RequestHandler struct {
	requests *service.RequestService
	workflow *service.WorkflowService
}

// NewRequestHandler constructs a RequestHandler.
func NewRequestHandler(requests *service.RequestService, workflow *service.WorkflowService) *RequestHandler {
	return &RequestHandler{requests: requests, workflow: workflow}
}

// List returns requests filtered by status, type, team, equipment, or search.
func (h *RequestHandler) List(c *gin.Context) {
	var filter models.RequestFilter
	filter.Status = models.RequestStatus(c.Query("status"))
	filter.RequestType = models.RequestType(c.Query("type"))
	filter.TeamID = c.Query("teamId")
	filter.EquipmentID = c.Query("equipmentId")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	requests, pagination, err := h.requests.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get returns one request.
func (h *RequestHandler) Get(c *gin.Context) {
	request, err := h.requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// History returns the request's status log.
func (h *RequestHandler) History(c *gin.Context) {
	entries, err := h.requests.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// CreateCorrective files a new corrective (breakdown) request.
func (h *RequestHandler) CreateCorrective(c *gin.Context) {
	h.create(c, models.RequestTypeCorrective)
}

// CreatePreventive files a new preventive (scheduled) request.
func (h *RequestHandler) CreatePreventive(c *gin.Context) {
	h.create(c, models.RequestTypePreventive)
}

func (h *RequestHandler) create(c *gin.Context, requestType models.RequestType) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input models.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	input.RequestType = requestType

	request, err := h.requests.Create(c.Request.Context(), claims, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Update edits a request's free fields.
func (h *RequestHandler) Update(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input models.UpdateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.requests.Update(c.Request.Context(), claims, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Assign sets team/technician on a request.
func (h *RequestHandler) Assign(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input models.AssignRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.requests.Assign(c.Request.Context(), claims, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Delete removes a request.
func (h *RequestHandler) Delete(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.requests.Delete(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Transition moves a request through the standard status endpoint.
func (h *RequestHandler) Transition(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input models.TransitionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.workflow.TransitionStatus(c.Request.Context(), claims, c.Param("id"), input.Status, input.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// KanbanMove moves a request via board drag-and-drop, returning the minimal
// projection for a snappy UI update.
func (h *RequestHandler) KanbanMove(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var input models.KanbanMoveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.workflow.TransitionKanban(c.Request.Context(), claims, c.Param("id"), input.Status, input.Position)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
