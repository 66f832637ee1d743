package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gearstack/cmms-api/internal/models"
	appErrors "github.com/gearstack/cmms-api/pkg/errors"
)

// allowedTransitions is the request lifecycle. Scrap is terminal; Repaired
// can be reopened. Admins bypass the table entirely.
var allowedTransitions = map[models.RequestStatus][]models.RequestStatus{
	models.StatusNew:        {models.StatusInProgress},
	models.StatusInProgress: {models.StatusRepaired, models.StatusScrap},
	models.StatusRepaired:   {models.StatusInProgress},
	models.StatusScrap:      {},
}

// AllowedTransitions returns the statuses reachable from the given one for
// non-admin users. The slice must not be mutated.
func AllowedTransitions(from models.RequestStatus) []models.RequestStatus {
	return allowedTransitions[from]
}

type workflowRequestRepository interface {
	FindByID(ctx context.Context, id string) (*models.MaintenanceRequest, error)
	ApplyTransition(ctx context.Context, update models.TransitionUpdate) error
}

type workflowEquipmentRepository interface {
	MarkScrapped(ctx context.Context, id string) error
}

// WorkflowService owns every status mutation of a maintenance request. All
// other write paths leave status alone, so the transition rules here are the
// single authority on lifecycle movement.
type WorkflowService struct {
	requests  workflowRequestRepository
	equipment workflowEquipmentRepository
	events    *EventService
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewWorkflowService constructs a WorkflowService.
func NewWorkflowService(requests workflowRequestRepository, equipment workflowEquipmentRepository, events *EventService, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowService{
		requests:  requests,
		equipment: equipment,
		events:    events,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// TransitionStatus moves a request to a new status using the standard rules.
// CompletedAt is only stamped when entering Repaired or Scrap without one
// already set, so a request finished once keeps its original completion time.
func (s *WorkflowService) TransitionStatus(ctx context.Context, actor *models.JWTClaims, requestID string, newStatus models.RequestStatus, notes string) (*models.MaintenanceRequest, error) {
	return s.transition(ctx, actor, requestID, newStatus, notes, false)
}

// TransitionKanban moves a request between board columns. The history note is
// synthesised from the drag, and entering Repaired or Scrap always refreshes
// CompletedAt to the drop time.
func (s *WorkflowService) TransitionKanban(ctx context.Context, actor *models.JWTClaims, requestID string, newStatus models.RequestStatus, position *int) (*models.TransitionResult, error) {
	notes := "Status updated via Kanban drag & drop"
	if position != nil {
		notes = fmt.Sprintf("%s to position %d", notes, *position)
	}

	request, err := s.transition(ctx, actor, requestID, newStatus, notes, true)
	if err != nil {
		return nil, err
	}
	return &models.TransitionResult{
		ID:            request.ID,
		RequestNumber: request.RequestNumber,
		Status:        request.Status,
		StartedAt:     request.StartedAt,
		CompletedAt:   request.CompletedAt,
	}, nil
}

func (s *WorkflowService) transition(ctx context.Context, actor *models.JWTClaims, requestID string, newStatus models.RequestStatus, notes string, refreshCompletedAt bool) (*models.MaintenanceRequest, error) {
	if !newStatus.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", newStatus))
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	isAdmin := actor.Role == models.RoleAdmin
	if !isAdmin && !transitionAllowed(request.Status, newStatus) {
		if s.metrics != nil {
			s.metrics.RecordTransition(string(request.Status), string(newStatus), false)
		}
		rejection := appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move request from %s to %s", request.Status, newStatus))
		return nil, appErrors.WithDetails(rejection, map[string]interface{}{
			"current_status":   request.Status,
			"allowed_statuses": AllowedTransitions(request.Status),
		})
	}

	if newStatus == models.StatusRepaired && !isAdmin && actor.Role != models.RoleTechnician {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only technicians can mark a request as repaired")
	}

	previousStatus := request.Status
	now := s.now()

	startedAt := request.StartedAt
	completedAt := request.CompletedAt
	switch newStatus {
	case models.StatusInProgress:
		if startedAt == nil {
			startedAt = &now
		}
		completedAt = nil
	case models.StatusRepaired, models.StatusScrap:
		if refreshCompletedAt || completedAt == nil {
			completedAt = &now
		}
	}

	update := models.TransitionUpdate{
		RequestID:   request.ID,
		Status:      newStatus,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		History: models.StatusHistoryEntry{
			RequestID: request.ID,
			Status:    newStatus,
			ChangedBy: actor.UserID,
			ChangedAt: now,
			Notes:     notes,
		},
	}

	if err := s.requests.ApplyTransition(ctx, update); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
	}

	request.Status = newStatus
	request.StartedAt = startedAt
	request.CompletedAt = completedAt
	request.UpdatedAt = now

	if s.metrics != nil {
		s.metrics.RecordTransition(string(previousStatus), string(newStatus), true)
	}

	// Tail effects run after the committed transition. Failures here are
	// logged and never roll the status change back.
	if newStatus == models.StatusScrap {
		if err := s.equipment.MarkScrapped(ctx, request.EquipmentID); err != nil {
			s.logger.Error("failed to mark equipment scrapped after transition",
				zap.String("request_id", request.ID),
				zap.String("equipment_id", request.EquipmentID),
				zap.Error(err))
		}
	}

	s.emitTransitionEvents(actor, request, previousStatus)
	s.invalidateBoard(ctx)

	return request, nil
}

func (s *WorkflowService) emitTransitionEvents(actor *models.JWTClaims, request *models.MaintenanceRequest, previous models.RequestStatus) {
	if s.events == nil {
		return
	}

	s.events.EmitAudit(&models.AuditLog{
		UserID:      &actor.UserID,
		Action:      models.AuditActionStatusChange,
		Resource:    "maintenance_request",
		ResourceID:  &request.ID,
		Description: fmt.Sprintf("status changed from %s to %s", previous, request.Status),
	})

	if request.Status == models.StatusScrap {
		s.events.EmitAudit(&models.AuditLog{
			UserID:      &actor.UserID,
			Action:      models.AuditActionUpdate,
			Resource:    "equipment",
			ResourceID:  &request.EquipmentID,
			Description: fmt.Sprintf("equipment scrapped by request %s", request.RequestNumber),
		})
	}

	if request.TechnicianID != nil {
		s.events.EmitNotification(&models.Notification{
			RecipientID: *request.TechnicianID,
			Type:        models.NotificationRequestStatusChanged,
			Title:       "Request status updated",
			Message:     fmt.Sprintf("Request %s moved to %s", request.RequestNumber, request.Status),
			RequestID:   &request.ID,
			EquipmentID: &request.EquipmentID,
		})
	}
}

func (s *WorkflowService) invalidateBoard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "kanban:*"); err != nil {
		s.logger.Warn("failed to invalidate kanban cache", zap.Error(err))
	}
}

func transitionAllowed(from, to models.RequestStatus) bool {
	for _, status := range allowedTransitions[from] {
		if status == to {
			return true
		}
	}
	return false
}
