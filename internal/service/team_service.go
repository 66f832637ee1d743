package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gearstack/cmms-api/internal/models"
	appErrors "github.com/gearstack/cmms-api/pkg/errors"
)

type teamRepository interface {
	List(ctx context.Context) ([]models.Team, error)
	FindByID(ctx context.Context, id string) (*models.Team, error)
	Create(ctx context.Context, team *models.Team) error
	Update(ctx context.Context, team *models.Team) error
	Delete(ctx context.Context, id string) error
}

// TeamService manages maintenance crews.
type TeamService struct {
	teams     teamRepository
	events    *EventService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeamService constructs a TeamService.
func NewTeamService(teams teamRepository, events *EventService, validate *validator.Validate, logger *zap.Logger) *TeamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeamService{teams: teams, events: events, validator: validate, logger: logger}
}

// List returns all teams.
func (s *TeamService) List(ctx context.Context) ([]models.Team, error) {
	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teams")
	}
	return teams, nil
}

// Get fetches one team.
func (s *TeamService) Get(ctx context.Context, id string) (*models.Team, error) {
	team, err := s.teams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "team not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
	}
	return team, nil
}

// Create adds a team.
func (s *TeamService) Create(ctx context.Context, actor *models.JWTClaims, input models.TeamInput) (*models.Team, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid team payload")
	}

	team := &models.Team{Name: input.Name, Description: input.Description}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create team")
	}

	if s.events != nil {
		s.events.EmitAudit(&models.AuditLog{
			UserID:      &actor.UserID,
			Action:      models.AuditActionCreate,
			Resource:    "team",
			ResourceID:  &team.ID,
			Description: fmt.Sprintf("created team %s", team.Name),
		})
	}
	return team, nil
}

// Update edits a team.
func (s *TeamService) Update(ctx context.Context, actor *models.JWTClaims, id string, input models.TeamInput) (*models.Team, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid team payload")
	}

	team, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	team.Name = input.Name
	team.Description = input.Description

	if err := s.teams.Update(ctx, team); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update team")
	}

	if s.events != nil {
		s.events.EmitAudit(&models.AuditLog{
			UserID:      &actor.UserID,
			Action:      models.AuditActionUpdate,
			Resource:    "team",
			ResourceID:  &team.ID,
			Description: fmt.Sprintf("updated team %s", team.Name),
		})
	}
	return team, nil
}

// Delete removes a team.
func (s *TeamService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	team, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.teams.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete team")
	}

	if s.events != nil {
		s.events.EmitAudit(&models.AuditLog{
			UserID:      &actor.UserID,
			Action:      models.AuditActionDelete,
			Resource:    "team",
			ResourceID:  &team.ID,
			Description: fmt.Sprintf("deleted team %s", team.Name),
		})
	}
	return nil
}
