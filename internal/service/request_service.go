package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gearstack/cmms-api/internal/models"
	appErrors "github.com/gearstack/cmms-api/pkg/errors"
)

const (
	minPreventiveDuration float64 = 0.5
	maxPreventiveDuration float64 = 24
)

type requestRepository interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.MaintenanceRequest, int, error)
	FindByID(ctx context.Context, id string) (*models.MaintenanceRequest, error)
	Create(ctx context.Context, request *models.MaintenanceRequest, initialNote string) error
	History(ctx context.Context, requestID string) ([]models.StatusHistoryEntry, error)
	Update(ctx context.Context, request *models.MaintenanceRequest) error
	Assign(ctx context.Context, id string, teamID, technicianID *string) error
	Delete(ctx context.Context, id string) error
}

type requestCounterRepository interface {
	Next(ctx context.Context, prefix string) (int64, error)
}

type requestEquipmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Equipment, error)
}

// RequestService covers request creation and the non-lifecycle CRUD surface.
// Status never changes here; that is the workflow service's job.
type RequestService struct {
	requests  requestRepository
	counters  requestCounterRepository
	equipment requestEquipmentRepository
	events    *EventService
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRequestService constructs a RequestService.
func NewRequestService(requests requestRepository, counters requestCounterRepository, equipment requestEquipmentRepository, events *EventService, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		requests:  requests,
		counters:  counters,
		equipment: equipment,
		events:    events,
		cache:     cache,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create files a new request in status New, applying the type-specific rules
// and equipment default assignment before persisting.
func (s *RequestService) Create(ctx context.Context, actor *models.JWTClaims, input models.CreateRequestInput) (*models.MaintenanceRequest, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	if !input.RequestType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown request type %q", input.RequestType))
	}

	now := s.now()
	scheduledDate := now
	if input.ScheduledDate != nil {
		scheduledDate = input.ScheduledDate.UTC()
	}

	var duration float64
	switch input.RequestType {
	case models.RequestTypePreventive:
		if !actor.Role.CanOverrideAssignment() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only managers and admins can create preventive requests")
		}
		if input.ScheduledDate == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled_date is required for preventive requests")
		}
		if !scheduledDate.After(now) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled_date must be in the future")
		}
		if input.DurationHours == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duration_hours is required for preventive requests")
		}
		duration = *input.DurationHours
		if duration < minPreventiveDuration || duration > maxPreventiveDuration {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("duration_hours must be between %.1f and %.0f", minPreventiveDuration, maxPreventiveDuration))
		}
	case models.RequestTypeCorrective:
		if input.DurationHours != nil {
			duration = *input.DurationHours
			if duration < 0 {
				return nil, appErrors.Clone(appErrors.ErrValidation, "duration_hours cannot be negative")
			}
		}
	}

	equipment, err := s.equipment.FindByID(ctx, input.EquipmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "equipment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load equipment")
	}
	if equipment.IsScrapped {
		return nil, appErrors.Clone(appErrors.ErrValidation, "equipment is scrapped and cannot receive new requests")
	}

	teamID := input.TeamID
	technicianID := input.TechnicianID
	if !actor.Role.CanOverrideAssignment() {
		// Non-privileged creators always inherit the equipment defaults,
		// whatever they sent.
		teamID = equipment.TeamID
		technicianID = equipment.TechnicianID
	} else {
		if teamID == nil {
			teamID = equipment.TeamID
		}
		if technicianID == nil {
			technicianID = equipment.TechnicianID
		}
	}

	number, err := s.nextRequestNumber(ctx, input.RequestType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate request number")
	}

	request := &models.MaintenanceRequest{
		RequestNumber: number,
		Subject:       input.Subject,
		Description:   input.Description,
		RequestType:   input.RequestType,
		Status:        models.StatusNew,
		EquipmentID:   equipment.ID,
		TeamID:        teamID,
		TechnicianID:  technicianID,
		ScheduledDate: scheduledDate,
		DurationHours: duration,
		CreatedBy:     actor.UserID,
	}

	if err := s.requests.Create(ctx, request, "Request created"); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	if s.events != nil {
		s.events.EmitAudit(&models.AuditLog{
			UserID:      &actor.UserID,
			Action:      models.AuditActionCreate,
			Resource:    "maintenance_request",
			ResourceID:  &request.ID,
			Description: fmt.Sprintf("created request %s for equipment %s", request.RequestNumber, equipment.Name),
		})
		if request.TechnicianID != nil {
			s.events.EmitNotification(&models.Notification{
				RecipientID: *request.TechnicianID,
				Type:        models.NotificationRequestAssigned,
				Title:       "New request assigned",
				Message:     fmt.Sprintf("Request %s (%s) has been assigned to you", request.RequestNumber, request.Subject),
				RequestID:   &request.ID,
				EquipmentID: &request.EquipmentID,
			})
		}
	}
	s.invalidateBoard(ctx)

	return request, nil
}

// List returns requests matching the filter plus pagination metadata.
func (s *RequestService) List(ctx context.Context, filter models.RequestFilter) ([]models.MaintenanceRequest, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", filter.Status))
	}
	if filter.RequestType != "" && !filter.RequestType.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown request type %q", filter.RequestType))
	}

	requests, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return requests, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches a single request by id.
func (s *RequestService) Get(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}

// History returns the request's status log, oldest first.
func (s *RequestService) History(ctx context.Context, id string) ([]models.StatusHistoryEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.requests.History(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	return entries, nil
}

// Update edits a request's free fields. Only the creator, managers, and
// admins may edit.
func (s *RequestService) Update(ctx context.Context, actor *models.JWTClaims, id string, input models.UpdateRequestInput) (*models.MaintenanceRequest, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.CanOverrideAssignment() && request.CreatedBy != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the creator or a manager can edit this request")
	}

	if input.Subject != nil {
		request.Subject = *input.Subject
	}
	if input.Description != nil {
		request.Description = *input.Description
	}
	if input.ScheduledDate != nil {
		request.ScheduledDate = input.ScheduledDate.UTC()
	}
	if input.DurationHours != nil {
		request.DurationHours = *input.DurationHours
	}

	if err := s.requests.Update(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
	}

	if s.events != nil {
		s.events.EmitAudit(&models.AuditLog{
			UserID:      &actor.UserID,
			Action:      models.AuditActionUpdate,
			Resource:    "maintenance_request",
			ResourceID:  &request.ID,
			Description: fmt.Sprintf("updated request %s", request.RequestNumber),
		})
	}
	s.invalidateBoard(ctx)

	return request, nil
}

// Assign sets the team and/or technician on a request and notifies a newly
// assigned technician.
func (s *RequestService) Assign(ctx context.Context, actor *models.JWTClaims, id string, input models.AssignRequestInput) (*models.MaintenanceRequest, error) {
	if input.TeamID == nil && input.TechnicianID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to assign")
	}

	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.requests.Assign(ctx, id, input.TeamID, input.TechnicianID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign request")
	}

	if input.TeamID != nil {
		request.TeamID = input.TeamID
	}
	if input.TechnicianID != nil {
		request.TechnicianID = input.TechnicianID
	}

	if s.events != nil {
		s.events.EmitAudit(&models.AuditLog{
			UserID:      &actor.UserID,
			Action:      models.AuditActionAssignment,
			Resource:    "maintenance_request",
			ResourceID:  &request.ID,
			Description: fmt.Sprintf("reassigned request %s", request.RequestNumber),
		})
		if input.TechnicianID != nil {
			s.events.EmitNotification(&models.Notification{
				RecipientID: *input.TechnicianID,
				Type:        models.NotificationRequestAssigned,
				Title:       "New request assigned",
				Message:     fmt.Sprintf("Request %s (%s) has been assigned to you", request.RequestNumber, request.Subject),
				RequestID:   &request.ID,
				EquipmentID: &request.EquipmentID,
			})
		}
	}
	s.invalidateBoard(ctx)

	return request, nil
}

// Delete removes a request. Open work is deletable; the route layer limits
// this to admins and managers.
func (s *RequestService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	request, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.requests.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete request")
	}

	if s.events != nil {
		s.events.EmitAudit(&models.AuditLog{
			UserID:      &actor.UserID,
			Action:      models.AuditActionDelete,
			Resource:    "maintenance_request",
			ResourceID:  &request.ID,
			Description: fmt.Sprintf("deleted request %s", request.RequestNumber),
		})
	}
	s.invalidateBoard(ctx)

	return nil
}

func (s *RequestService) nextRequestNumber(ctx context.Context, requestType models.RequestType) (string, error) {
	prefix := requestType.NumberPrefix()
	value, err := s.counters.Next(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%06d", prefix, value), nil
}

func (s *RequestService) invalidateBoard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "kanban:*"); err != nil {
		s.logger.Warn("failed to invalidate kanban cache", zap.Error(err))
	}
}
