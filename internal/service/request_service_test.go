package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearstack/cmms-api/internal/models"
	appErrors "github.com/gearstack/cmms-api/pkg/errors"
)

type requestRepoStub struct {
	created     []models.MaintenanceRequest
	createNotes []string
	createErr   error
	request     *models.MaintenanceRequest
	listItems   []models.MaintenanceRequest
	listTotal   int
	history     []models.StatusHistoryEntry
	updated     []models.MaintenanceRequest
	assigned    int
	deleted     []string
}

func (s *requestRepoStub) List(ctx context.Context, filter models.RequestFilter) ([]models.MaintenanceRequest, int, error) {
	return s.listItems, s.listTotal, nil
}

func (s *requestRepoStub) FindByID(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	if s.request == nil {
		return nil, sql.ErrNoRows
	}
	copy := *s.request
	return &copy, nil
}

func (s *requestRepoStub) Create(ctx context.Context, request *models.MaintenanceRequest, initialNote string) error {
	if s.createErr != nil {
		return s.createErr
	}
	request.ID = fmt.Sprintf("req-%d", len(s.created)+1)
	s.created = append(s.created, *request)
	s.createNotes = append(s.createNotes, initialNote)
	return nil
}

func (s *requestRepoStub) History(ctx context.Context, requestID string) ([]models.StatusHistoryEntry, error) {
	return s.history, nil
}

func (s *requestRepoStub) Update(ctx context.Context, request *models.MaintenanceRequest) error {
	s.updated = append(s.updated, *request)
	return nil
}

func (s *requestRepoStub) Assign(ctx context.Context, id string, teamID, technicianID *string) error {
	s.assigned++
	return nil
}

func (s *requestRepoStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type counterRepoStub struct {
	next map[string]int64
	err  error
}

func (s *counterRepoStub) Next(ctx context.Context, prefix string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.next == nil {
		s.next = map[string]int64{}
	}
	s.next[prefix]++
	return s.next[prefix], nil
}

type equipmentFinderStub struct {
	items map[string]*models.Equipment
	err   error
}

func (s *equipmentFinderStub) FindByID(ctx context.Context, id string) (*models.Equipment, error) {
	if s.err != nil {
		return nil, s.err
	}
	if item, ok := s.items[id]; ok {
		copy := *item
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func newRequestService(requests *requestRepoStub, counters *counterRepoStub, equipment *equipmentFinderStub) *RequestService {
	svc := NewRequestService(requests, counters, equipment, nil, nil, nil, nil)
	fixed := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc
}

func defaultEquipment() *equipmentFinderStub {
	team := "team-1"
	tech := "tech-1"
	return &equipmentFinderStub{items: map[string]*models.Equipment{
		"eq-1":     {ID: "eq-1", Name: "Lathe", SerialNumber: "SN-1", TeamID: &team, TechnicianID: &tech},
		"eq-scrap": {ID: "eq-scrap", Name: "Old press", SerialNumber: "SN-2", IsScrapped: true},
	}}
}

func correctiveInput() models.CreateRequestInput {
	return models.CreateRequestInput{
		Subject:     "Spindle vibration",
		RequestType: models.RequestTypeCorrective,
		EquipmentID: "eq-1",
	}
}

func TestCreateCorrectiveInheritsEquipmentDefaults(t *testing.T) {
	repo := &requestRepoStub{}
	svc := newRequestService(repo, &counterRepoStub{}, defaultEquipment())

	otherTeam := "team-9"
	input := correctiveInput()
	input.TeamID = &otherTeam // ignored for non-privileged creators

	request, err := svc.Create(context.Background(), claimsWithRole(models.RoleUser), input)
	require.NoError(t, err)

	assert.Equal(t, models.StatusNew, request.Status)
	require.NotNil(t, request.TeamID)
	assert.Equal(t, "team-1", *request.TeamID)
	require.NotNil(t, request.TechnicianID)
	assert.Equal(t, "tech-1", *request.TechnicianID)
	assert.Equal(t, "CR-000001", request.RequestNumber)

	require.Len(t, repo.createNotes, 1)
	assert.Equal(t, "Request created", repo.createNotes[0])
}

func TestCreateManagerMayOverrideAssignment(t *testing.T) {
	repo := &requestRepoStub{}
	svc := newRequestService(repo, &counterRepoStub{}, defaultEquipment())

	otherTeam := "team-9"
	input := correctiveInput()
	input.TeamID = &otherTeam

	request, err := svc.Create(context.Background(), claimsWithRole(models.RoleManager), input)
	require.NoError(t, err)

	require.NotNil(t, request.TeamID)
	assert.Equal(t, "team-9", *request.TeamID)
	require.NotNil(t, request.TechnicianID)
	assert.Equal(t, "tech-1", *request.TechnicianID, "blank fields still inherit defaults")
}

func TestCreatePreventiveRequiresManagerRole(t *testing.T) {
	svc := newRequestService(&requestRepoStub{}, &counterRepoStub{}, defaultEquipment())

	future := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	duration := 2.0
	input := correctiveInput()
	input.RequestType = models.RequestTypePreventive
	input.ScheduledDate = &future
	input.DurationHours = &duration

	for _, role := range []models.UserRole{models.RoleUser, models.RoleTechnician} {
		_, err := svc.Create(context.Background(), claimsWithRole(role), input)
		require.Error(t, err)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	}

	request, err := svc.Create(context.Background(), claimsWithRole(models.RoleManager), input)
	require.NoError(t, err)
	assert.Equal(t, "PM-000001", request.RequestNumber)
}

func TestCreatePreventiveRejectsPastScheduledDate(t *testing.T) {
	svc := newRequestService(&requestRepoStub{}, &counterRepoStub{}, defaultEquipment())

	past := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) // equal to now, not strictly future
	duration := 2.0
	input := correctiveInput()
	input.RequestType = models.RequestTypePreventive
	input.ScheduledDate = &past
	input.DurationHours = &duration

	_, err := svc.Create(context.Background(), claimsWithRole(models.RoleAdmin), input)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreatePreventiveDurationBounds(t *testing.T) {
	svc := newRequestService(&requestRepoStub{}, &counterRepoStub{}, defaultEquipment())
	future := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	for _, duration := range []float64{0.25, 25} {
		d := duration
		input := correctiveInput()
		input.RequestType = models.RequestTypePreventive
		input.ScheduledDate = &future
		input.DurationHours = &d

		_, err := svc.Create(context.Background(), claimsWithRole(models.RoleManager), input)
		require.Error(t, err, "duration %v must be rejected", duration)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "duration_hours must be between 0.5 and 24", appErr.Message)
	}
}

func TestCreateRejectsScrappedEquipment(t *testing.T) {
	svc := newRequestService(&requestRepoStub{}, &counterRepoStub{}, defaultEquipment())

	input := correctiveInput()
	input.EquipmentID = "eq-scrap"

	_, err := svc.Create(context.Background(), claimsWithRole(models.RoleUser), input)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreateRejectsUnknownEquipment(t *testing.T) {
	svc := newRequestService(&requestRepoStub{}, &counterRepoStub{}, defaultEquipment())

	input := correctiveInput()
	input.EquipmentID = "eq-missing"

	_, err := svc.Create(context.Background(), claimsWithRole(models.RoleUser), input)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestCreateNegativeCorrectiveDurationRejected(t *testing.T) {
	svc := newRequestService(&requestRepoStub{}, &counterRepoStub{}, defaultEquipment())

	bad := -1.0
	input := correctiveInput()
	input.DurationHours = &bad

	_, err := svc.Create(context.Background(), claimsWithRole(models.RoleUser), input)
	require.Error(t, err)
}

func TestRequestNumbersAreTypeScoped(t *testing.T) {
	counters := &counterRepoStub{}
	svc := newRequestService(&requestRepoStub{}, counters, defaultEquipment())

	first, err := svc.Create(context.Background(), claimsWithRole(models.RoleUser), correctiveInput())
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), claimsWithRole(models.RoleUser), correctiveInput())
	require.NoError(t, err)

	assert.Equal(t, "CR-000001", first.RequestNumber)
	assert.Equal(t, "CR-000002", second.RequestNumber)

	future := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	duration := 1.0
	preventive := correctiveInput()
	preventive.RequestType = models.RequestTypePreventive
	preventive.ScheduledDate = &future
	preventive.DurationHours = &duration

	third, err := svc.Create(context.Background(), claimsWithRole(models.RoleAdmin), preventive)
	require.NoError(t, err)
	assert.Equal(t, "PM-000001", third.RequestNumber, "preventive counter is independent")
}

func TestUpdateRequiresCreatorOrManager(t *testing.T) {
	request := newTestRequest(models.StatusNew)
	request.CreatedBy = "someone-else"
	repo := &requestRepoStub{request: request}
	svc := newRequestService(repo, &counterRepoStub{}, defaultEquipment())

	subject := "New subject line"
	_, err := svc.Update(context.Background(), claimsWithRole(models.RoleUser), "req-1", models.UpdateRequestInput{Subject: &subject})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	updated, err := svc.Update(context.Background(), claimsWithRole(models.RoleManager), "req-1", models.UpdateRequestInput{Subject: &subject})
	require.NoError(t, err)
	assert.Equal(t, "New subject line", updated.Subject)
}

func TestAssignRejectsEmptyPayload(t *testing.T) {
	repo := &requestRepoStub{request: newTestRequest(models.StatusNew)}
	svc := newRequestService(repo, &counterRepoStub{}, defaultEquipment())

	_, err := svc.Assign(context.Background(), claimsWithRole(models.RoleManager), "req-1", models.AssignRequestInput{})
	require.Error(t, err)
	assert.Zero(t, repo.assigned)
}

func TestListRejectsUnknownStatusFilter(t *testing.T) {
	svc := newRequestService(&requestRepoStub{}, &counterRepoStub{}, defaultEquipment())

	_, _, err := svc.List(context.Background(), models.RequestFilter{Status: "Done"})
	require.Error(t, err)
}
