package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearstack/cmms-api/internal/models"
	appErrors "github.com/gearstack/cmms-api/pkg/errors"
)

type equipmentRepoStub struct {
	items     map[string]*models.Equipment
	serials   map[string]bool
	created   []models.Equipment
	updated   []models.Equipment
	deleted   []string
	deleteErr error
}

func (s *equipmentRepoStub) List(ctx context.Context, filter models.EquipmentFilter) ([]models.Equipment, int, error) {
	return nil, 0, nil
}

func (s *equipmentRepoStub) FindByID(ctx context.Context, id string) (*models.Equipment, error) {
	if item, ok := s.items[id]; ok {
		copy := *item
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *equipmentRepoStub) ExistsBySerial(ctx context.Context, serial string, excludeID string) (bool, error) {
	return s.serials[serial], nil
}

func (s *equipmentRepoStub) Create(ctx context.Context, equipment *models.Equipment) error {
	equipment.ID = "eq-new"
	s.created = append(s.created, *equipment)
	return nil
}

func (s *equipmentRepoStub) Update(ctx context.Context, equipment *models.Equipment) error {
	s.updated = append(s.updated, *equipment)
	return nil
}

func (s *equipmentRepoStub) Delete(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type activeCounterStub struct {
	count int
}

func (s *activeCounterStub) CountActiveByEquipment(ctx context.Context, equipmentID string) (int, error) {
	return s.count, nil
}

func TestEquipmentCreateRejectsDuplicateSerial(t *testing.T) {
	repo := &equipmentRepoStub{serials: map[string]bool{"SN-1": true}}
	svc := NewEquipmentService(repo, &activeCounterStub{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), claimsWithRole(models.RoleManager), models.CreateEquipmentInput{
		Name:         "Lathe",
		SerialNumber: "SN-1",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.created)
}

func TestEquipmentCreateSetsCreator(t *testing.T) {
	repo := &equipmentRepoStub{}
	svc := NewEquipmentService(repo, &activeCounterStub{}, nil, nil, nil)

	item, err := svc.Create(context.Background(), claimsWithRole(models.RoleManager), models.CreateEquipmentInput{
		Name:         "Compressor",
		SerialNumber: "SN-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", item.CreatedBy)
	assert.False(t, item.IsScrapped)
}

func TestEquipmentCreateUppercasesSerial(t *testing.T) {
	repo := &equipmentRepoStub{serials: map[string]bool{"SN-1": true}}
	svc := NewEquipmentService(repo, &activeCounterStub{}, nil, nil, nil)

	// A lowercase duplicate collides with the stored uppercase serial.
	_, err := svc.Create(context.Background(), claimsWithRole(models.RoleManager), models.CreateEquipmentInput{
		Name:         "Lathe",
		SerialNumber: " sn-1 ",
	})
	require.Error(t, err)

	item, err := svc.Create(context.Background(), claimsWithRole(models.RoleManager), models.CreateEquipmentInput{
		Name:         "Press",
		SerialNumber: "sn-9",
	})
	require.NoError(t, err)
	assert.Equal(t, "SN-9", item.SerialNumber)
}

func TestEquipmentDeleteBlockedByActiveRequests(t *testing.T) {
	repo := &equipmentRepoStub{items: map[string]*models.Equipment{"eq-1": {ID: "eq-1", Name: "Lathe"}}}
	svc := NewEquipmentService(repo, &activeCounterStub{count: 2}, nil, nil, nil)

	err := svc.Delete(context.Background(), claimsWithRole(models.RoleAdmin), "eq-1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.deleted)
}

func TestEquipmentDeleteSucceedsWithoutActiveRequests(t *testing.T) {
	repo := &equipmentRepoStub{items: map[string]*models.Equipment{"eq-1": {ID: "eq-1", Name: "Lathe"}}}
	svc := NewEquipmentService(repo, &activeCounterStub{}, nil, nil, nil)

	err := svc.Delete(context.Background(), claimsWithRole(models.RoleAdmin), "eq-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"eq-1"}, repo.deleted)
}

func TestEquipmentUpdateUnknownID(t *testing.T) {
	svc := NewEquipmentService(&equipmentRepoStub{}, &activeCounterStub{}, nil, nil, nil)

	name := "Renamed"
	_, err := svc.Update(context.Background(), claimsWithRole(models.RoleManager), "missing", models.UpdateEquipmentInput{Name: &name})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
