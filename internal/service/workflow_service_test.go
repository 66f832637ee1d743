package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearstack/cmms-api/internal/models"
	appErrors "github.com/gearstack/cmms-api/pkg/errors"
)

type workflowRequestRepoStub struct {
	request    *models.MaintenanceRequest
	findErr    error
	applyErr   error
	applied    []models.TransitionUpdate
	applyCalls int
}

func (s *workflowRequestRepoStub) FindByID(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.request == nil {
		return nil, sql.ErrNoRows
	}
	copy := *s.request
	return &copy, nil
}

func (s *workflowRequestRepoStub) ApplyTransition(ctx context.Context, update models.TransitionUpdate) error {
	s.applyCalls++
	if s.applyErr != nil {
		return s.applyErr
	}
	s.applied = append(s.applied, update)
	return nil
}

type workflowEquipmentRepoStub struct {
	scrapped []string
	scrapErr error
}

func (s *workflowEquipmentRepoStub) MarkScrapped(ctx context.Context, id string) error {
	if s.scrapErr != nil {
		return s.scrapErr
	}
	s.scrapped = append(s.scrapped, id)
	return nil
}

func claimsWithRole(role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: role}
}

func newTestRequest(status models.RequestStatus) *models.MaintenanceRequest {
	tech := "tech-1"
	return &models.MaintenanceRequest{
		ID:            "req-1",
		RequestNumber: "CR-000001",
		Subject:       "Pump leaking",
		RequestType:   models.RequestTypeCorrective,
		Status:        status,
		EquipmentID:   "eq-1",
		TechnicianID:  &tech,
		CreatedBy:     "user-1",
	}
}

func newWorkflowService(requests *workflowRequestRepoStub, equipment *workflowEquipmentRepoStub) *WorkflowService {
	svc := NewWorkflowService(requests, equipment, nil, nil, nil, nil)
	fixed := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc
}

func TestTransitionStatusNewToInProgressSetsStartedAt(t *testing.T) {
	repo := &workflowRequestRepoStub{request: newTestRequest(models.StatusNew)}
	svc := newWorkflowService(repo, &workflowEquipmentRepoStub{})

	updated, err := svc.TransitionStatus(context.Background(), claimsWithRole(models.RoleTechnician), "req-1", models.StatusInProgress, "picking up")
	require.NoError(t, err)

	assert.Equal(t, models.StatusInProgress, updated.Status)
	require.NotNil(t, updated.StartedAt)
	assert.Nil(t, updated.CompletedAt)

	require.Len(t, repo.applied, 1)
	assert.Equal(t, models.StatusInProgress, repo.applied[0].History.Status)
	assert.Equal(t, "picking up", repo.applied[0].History.Notes)
	assert.Equal(t, "user-1", repo.applied[0].History.ChangedBy)
}

func TestTransitionStatusStartedAtIsSetOnce(t *testing.T) {
	started := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	request := newTestRequest(models.StatusRepaired)
	request.StartedAt = &started
	completed := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	request.CompletedAt = &completed

	repo := &workflowRequestRepoStub{request: request}
	svc := newWorkflowService(repo, &workflowEquipmentRepoStub{})

	updated, err := svc.TransitionStatus(context.Background(), claimsWithRole(models.RoleTechnician), "req-1", models.StatusInProgress, "reopening")
	require.NoError(t, err)

	require.NotNil(t, updated.StartedAt)
	assert.Equal(t, started, *updated.StartedAt)
	assert.Nil(t, updated.CompletedAt, "reopen must clear completed_at")
}

func TestTransitionStatusInvalidTransitionLeavesStateUnchanged(t *testing.T) {
	repo := &workflowRequestRepoStub{request: newTestRequest(models.StatusNew)}
	svc := newWorkflowService(repo, &workflowEquipmentRepoStub{})

	_, err := svc.TransitionStatus(context.Background(), claimsWithRole(models.RoleTechnician), "req-1", models.StatusRepaired, "")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
	assert.Equal(t, models.StatusNew, appErr.Details["current_status"])
	assert.Equal(t, []models.RequestStatus{models.StatusInProgress}, appErr.Details["allowed_statuses"])

	assert.Zero(t, repo.applyCalls, "no mutation on rejected transition")
}

func TestTransitionStatusScrapIsTerminalForNonAdmins(t *testing.T) {
	repo := &workflowRequestRepoStub{request: newTestRequest(models.StatusScrap)}
	svc := newWorkflowService(repo, &workflowEquipmentRepoStub{})

	_, err := svc.TransitionStatus(context.Background(), claimsWithRole(models.RoleManager), "req-1", models.StatusInProgress, "")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
	assert.Empty(t, appErr.Details["allowed_statuses"])
}

func TestTransitionStatusAdminBypassesTable(t *testing.T) {
	repo := &workflowRequestRepoStub{request: newTestRequest(models.StatusScrap)}
	svc := newWorkflowService(repo, &workflowEquipmentRepoStub{})

	updated, err := svc.TransitionStatus(context.Background(), claimsWithRole(models.RoleAdmin), "req-1", models.StatusInProgress, "forcing reopen")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
}

func TestTransitionStatusRepairedRequiresTechnicianRole(t *testing.T) {
	for _, role := range []models.UserRole{models.RoleManager, models.RoleUser} {
		repo := &workflowRequestRepoStub{request: newTestRequest(models.StatusInProgress)}
		svc := newWorkflowService(repo, &workflowEquipmentRepoStub{})

		_, err := svc.TransitionStatus(context.Background(), claimsWithRole(role), "req-1", models.StatusRepaired, "")
		require.Error(t, err, "role %s must not reach Repaired", role)

		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
		assert.Zero(t, repo.applyCalls)
	}
}

func TestTransitionStatusRepairedAllowedForTechnicianAndAdmin(t *testing.T) {
	for _, role := range []models.UserRole{models.RoleTechnician, models.RoleAdmin} {
		repo := &workflowRequestRepoStub{request: newTestRequest(models.StatusInProgress)}
		svc := newWorkflowService(repo, &workflowEquipmentRepoStub{})

		updated, err := svc.TransitionStatus(context.Background(), claimsWithRole(role), "req-1", models.StatusRepaired, "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusRepaired, updated.Status)
		require.NotNil(t, updated.CompletedAt)
	}
}

func TestTransitionStatusCompletedAtSetIfAbsent(t *testing.T) {
	completed := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	request := newTestRequest(models.StatusInProgress)
	request.CompletedAt = &completed

	repo := &workflowRequestRepoStub{request: request}
	svc := newWorkflowService(repo, &workflowEquipmentRepoStub{})

	updated, err := svc.TransitionStatus(context.Background(), claimsWithRole(models.RoleTechnician), "req-1", models.StatusRepaired, "")
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, completed, *updated.CompletedAt, "generic path keeps an existing completed_at")
}

func TestTransitionKanbanCompletedAtAlwaysOverwritten(t *testing.T) {
	completed := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	request := newTestRequest(models.StatusInProgress)
	request.CompletedAt = &completed

	repo := &workflowRequestRepoStub{request: request}
	svc := newWorkflowService(repo, &workflowEquipmentRepoStub{})

	result, err := svc.TransitionKanban(context.Background(), claimsWithRole(models.RoleTechnician), "req-1", models.StatusRepaired, nil)
	require.NoError(t, err)
	require.NotNil(t, result.CompletedAt)
	assert.Equal(t, svc.now(), *result.CompletedAt, "kanban path refreshes completed_at")
}

func TestTransitionKanbanSynthesisedNote(t *testing.T) {
	repo := &workflowRequestRepoStub{request: newTestRequest(models.StatusNew)}
	svc := newWorkflowService(repo, &workflowEquipmentRepoStub{})

	position := 2
	result, err := svc.TransitionKanban(context.Background(), claimsWithRole(models.RoleUser), "req-1", models.StatusInProgress, &position)
	require.NoError(t, err)

	assert.Equal(t, "req-1", result.ID)
	assert.Equal(t, "CR-000001", result.RequestNumber)
	assert.Equal(t, models.StatusInProgress, result.Status)

	require.Len(t, repo.applied, 1)
	assert.Equal(t, "Status updated via Kanban drag & drop to position 2", repo.applied[0].History.Notes)
}

func TestTransitionKanbanNoteWithoutPosition(t *testing.T) {
	repo := &workflowRequestRepoStub{request: newTestRequest(models.StatusNew)}
	svc := newWorkflowService(repo, &workflowEquipmentRepoStub{})

	_, err := svc.TransitionKanban(context.Background(), claimsWithRole(models.RoleUser), "req-1", models.StatusInProgress, nil)
	require.NoError(t, err)
	require.Len(t, repo.applied, 1)
	assert.Equal(t, "Status updated via Kanban drag & drop", repo.applied[0].History.Notes)
}

func TestTransitionStatusScrapMarksEquipment(t *testing.T) {
	repo := &workflowRequestRepoStub{request: newTestRequest(models.StatusInProgress)}
	equipment := &workflowEquipmentRepoStub{}
	svc := newWorkflowService(repo, equipment)

	updated, err := svc.TransitionStatus(context.Background(), claimsWithRole(models.RoleTechnician), "req-1", models.StatusScrap, "beyond repair")
	require.NoError(t, err)
	assert.Equal(t, models.StatusScrap, updated.Status)
	assert.Equal(t, []string{"eq-1"}, equipment.scrapped)
}

func TestTransitionStatusScrapFailureDoesNotRollBack(t *testing.T) {
	repo := &workflowRequestRepoStub{request: newTestRequest(models.StatusInProgress)}
	equipment := &workflowEquipmentRepoStub{scrapErr: errors.New("equipment store down")}
	svc := newWorkflowService(repo, equipment)

	updated, err := svc.TransitionStatus(context.Background(), claimsWithRole(models.RoleTechnician), "req-1", models.StatusScrap, "")
	require.NoError(t, err, "equipment failure is a tail effect, not a transition failure")
	assert.Equal(t, models.StatusScrap, updated.Status)
	assert.Equal(t, 1, repo.applyCalls)
}

func TestTransitionStatusUnknownStatusRejected(t *testing.T) {
	repo := &workflowRequestRepoStub{request: newTestRequest(models.StatusNew)}
	svc := newWorkflowService(repo, &workflowEquipmentRepoStub{})

	_, err := svc.TransitionStatus(context.Background(), claimsWithRole(models.RoleAdmin), "req-1", models.RequestStatus("Closed"), "")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Zero(t, repo.applyCalls)
}

func TestTransitionStatusRequestNotFound(t *testing.T) {
	repo := &workflowRequestRepoStub{}
	svc := newWorkflowService(repo, &workflowEquipmentRepoStub{})

	_, err := svc.TransitionStatus(context.Background(), claimsWithRole(models.RoleAdmin), "missing", models.StatusInProgress, "")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestTransitionStatusHistoryMatchesNewStatus(t *testing.T) {
	repo := &workflowRequestRepoStub{request: newTestRequest(models.StatusInProgress)}
	svc := newWorkflowService(repo, &workflowEquipmentRepoStub{})

	updated, err := svc.TransitionStatus(context.Background(), claimsWithRole(models.RoleTechnician), "req-1", models.StatusRepaired, "done")
	require.NoError(t, err)

	require.Len(t, repo.applied, 1)
	assert.Equal(t, updated.Status, repo.applied[0].History.Status,
		"history entry and request status must agree")
	assert.Equal(t, updated.Status, repo.applied[0].Status)
}
