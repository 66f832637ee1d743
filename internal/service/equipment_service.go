package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gearstack/cmms-api/internal/models"
	appErrors "github.com/gearstack/cmms-api/pkg/errors"
)

type equipmentRepository interface {
	List(ctx context.Context, filter models.EquipmentFilter) ([]models.Equipment, int, error)
	FindByID(ctx context.Context, id string) (*models.Equipment, error)
	ExistsBySerial(ctx context.Context, serial string, excludeID string) (bool, error)
	Create(ctx context.Context, equipment *models.Equipment) error
	Update(ctx context.Context, equipment *models.Equipment) error
	Delete(ctx context.Context, id string) error
}

type equipmentRequestRepository interface {
	CountActiveByEquipment(ctx context.Context, equipmentID string) (int, error)
}

// EquipmentService manages the asset registry. The scrap flag is owned by the
// workflow service and never writable here.
type EquipmentService struct {
	equipment equipmentRepository
	requests  equipmentRequestRepository
	events    *EventService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEquipmentService constructs an EquipmentService.
func NewEquipmentService(equipment equipmentRepository, requests equipmentRequestRepository, events *EventService, validate *validator.Validate, logger *zap.Logger) *EquipmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EquipmentService{equipment: equipment, requests: requests, events: events, validator: validate, logger: logger}
}

// List returns equipment matching the filter plus pagination metadata.
func (s *EquipmentService) List(ctx context.Context, filter models.EquipmentFilter) ([]models.Equipment, *models.Pagination, error) {
	items, total, err := s.equipment.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list equipment")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches a single equipment item.
func (s *EquipmentService) Get(ctx context.Context, id string) (*models.Equipment, error) {
	item, err := s.equipment.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "equipment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load equipment")
	}
	return item, nil
}

// Create registers a new asset. Serial numbers are unique case-insensitively.
func (s *EquipmentService) Create(ctx context.Context, actor *models.JWTClaims, input models.CreateEquipmentInput) (*models.Equipment, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid equipment payload")
	}

	// Serials are stored uppercase so uniqueness ignores case.
	serial := strings.ToUpper(strings.TrimSpace(input.SerialNumber))
	exists, err := s.equipment.ExistsBySerial(ctx, serial, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check serial number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "serial number already registered")
	}

	item := &models.Equipment{
		Name:         input.Name,
		SerialNumber: serial,
		Department:   input.Department,
		Location:     input.Location,
		TeamID:       input.TeamID,
		TechnicianID: input.TechnicianID,
		Notes:        input.Notes,
		CreatedBy:    actor.UserID,
	}
	if input.PurchaseDate != nil {
		item.PurchaseDate = input.PurchaseDate.UTC()
	}
	if input.WarrantyExpiry != nil {
		item.WarrantyExpiry = input.WarrantyExpiry.UTC()
	}

	if err := s.equipment.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create equipment")
	}

	if s.events != nil {
		s.events.EmitAudit(&models.AuditLog{
			UserID:      &actor.UserID,
			Action:      models.AuditActionCreate,
			Resource:    "equipment",
			ResourceID:  &item.ID,
			Description: fmt.Sprintf("registered equipment %s (%s)", item.Name, item.SerialNumber),
		})
	}
	return item, nil
}

// Update edits an asset.
func (s *EquipmentService) Update(ctx context.Context, actor *models.JWTClaims, id string, input models.UpdateEquipmentInput) (*models.Equipment, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid equipment payload")
	}

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.SerialNumber != nil {
		serial := strings.ToUpper(strings.TrimSpace(*input.SerialNumber))
		if serial != item.SerialNumber {
			exists, err := s.equipment.ExistsBySerial(ctx, serial, id)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check serial number")
			}
			if exists {
				return nil, appErrors.Clone(appErrors.ErrConflict, "serial number already registered")
			}
			item.SerialNumber = serial
		}
	}
	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Department != nil {
		item.Department = *input.Department
	}
	if input.Location != nil {
		item.Location = *input.Location
	}
	if input.PurchaseDate != nil {
		item.PurchaseDate = input.PurchaseDate.UTC()
	}
	if input.WarrantyExpiry != nil {
		item.WarrantyExpiry = input.WarrantyExpiry.UTC()
	}
	if input.TeamID != nil {
		item.TeamID = input.TeamID
	}
	if input.TechnicianID != nil {
		item.TechnicianID = input.TechnicianID
	}
	if input.Notes != nil {
		item.Notes = *input.Notes
	}
	item.UpdatedAt = time.Now().UTC()

	if err := s.equipment.Update(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update equipment")
	}

	if s.events != nil {
		s.events.EmitAudit(&models.AuditLog{
			UserID:      &actor.UserID,
			Action:      models.AuditActionUpdate,
			Resource:    "equipment",
			ResourceID:  &item.ID,
			Description: fmt.Sprintf("updated equipment %s", item.Name),
		})
	}
	return item, nil
}

// Delete removes an asset, refusing while open requests still reference it.
func (s *EquipmentService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	active, err := s.requests.CountActiveByEquipment(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active requests")
	}
	if active > 0 {
		return appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("equipment has %d active requests and cannot be deleted", active))
	}

	if err := s.equipment.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete equipment")
	}

	if s.events != nil {
		s.events.EmitAudit(&models.AuditLog{
			UserID:      &actor.UserID,
			Action:      models.AuditActionDelete,
			Resource:    "equipment",
			ResourceID:  &item.ID,
			Description: fmt.Sprintf("deleted equipment %s (%s)", item.Name, item.SerialNumber),
		})
	}
	return nil
}
