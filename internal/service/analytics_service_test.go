package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearstack/cmms-api/internal/models"
)

type analyticsRepoStub struct {
	cards        []models.KanbanCard
	teamRows     []models.TeamRequestSummary
	breakdowns   []models.EquipmentBreakdownSummary
	stats        *models.EquipmentStats
	statusCounts []models.StatusCount
	typeCounts   []models.TypeCount
}

func (s *analyticsRepoStub) KanbanCards(ctx context.Context, filter models.KanbanFilter) ([]models.KanbanCard, error) {
	return s.cards, nil
}

func (s *analyticsRepoStub) RequestsByTeam(ctx context.Context, filter models.DateRangeFilter) ([]models.TeamRequestSummary, error) {
	return s.teamRows, nil
}

func (s *analyticsRepoStub) BreakdownsByEquipment(ctx context.Context, filter models.DateRangeFilter, limit int) ([]models.EquipmentBreakdownSummary, error) {
	return s.breakdowns, nil
}

func (s *analyticsRepoStub) EquipmentStats(ctx context.Context, equipmentID string) (*models.EquipmentStats, error) {
	if s.stats == nil {
		return &models.EquipmentStats{}, nil
	}
	return s.stats, nil
}

func (s *analyticsRepoStub) StatusCounts(ctx context.Context) ([]models.StatusCount, error) {
	return s.statusCounts, nil
}

func (s *analyticsRepoStub) TypeCounts(ctx context.Context) ([]models.TypeCount, error) {
	return s.typeCounts, nil
}

type analyticsEquipmentStub struct {
	known map[string]bool
}

func (s *analyticsEquipmentStub) FindByID(ctx context.Context, id string) (*models.Equipment, error) {
	if s.known[id] {
		return &models.Equipment{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

func TestKanbanBoardAlwaysHasAllColumns(t *testing.T) {
	svc := NewAnalyticsService(&analyticsRepoStub{}, &analyticsEquipmentStub{}, nil, 0, nil)

	board, err := svc.KanbanBoard(context.Background(), models.KanbanFilter{})
	require.NoError(t, err)

	require.Len(t, board, 4)
	for _, status := range models.KanbanColumns {
		column, ok := board[status]
		require.True(t, ok, "column %s must be present", status)
		assert.NotNil(t, column.Requests)
		assert.Empty(t, column.Requests)
		assert.Zero(t, column.Count)
	}
}

func TestKanbanBoardGroupsByStatus(t *testing.T) {
	repo := &analyticsRepoStub{cards: []models.KanbanCard{
		{ID: "r1", Status: models.StatusNew},
		{ID: "r2", Status: models.StatusNew},
		{ID: "r3", Status: models.StatusRepaired},
	}}
	svc := NewAnalyticsService(repo, &analyticsEquipmentStub{}, nil, 0, nil)

	board, err := svc.KanbanBoard(context.Background(), models.KanbanFilter{})
	require.NoError(t, err)

	assert.Equal(t, 2, board[models.StatusNew].Count)
	assert.Equal(t, 1, board[models.StatusRepaired].Count)
	assert.Zero(t, board[models.StatusInProgress].Count)
	assert.Zero(t, board[models.StatusScrap].Count)
}

func TestKanbanBoardRejectsUnknownType(t *testing.T) {
	svc := NewAnalyticsService(&analyticsRepoStub{}, &analyticsEquipmentStub{}, nil, 0, nil)

	_, err := svc.KanbanBoard(context.Background(), models.KanbanFilter{RequestType: "Predictive"})
	require.Error(t, err)
}

func TestEquipmentStatsZeroDefaults(t *testing.T) {
	svc := NewAnalyticsService(&analyticsRepoStub{}, &analyticsEquipmentStub{known: map[string]bool{"eq-1": true}}, nil, 0, nil)

	stats, err := svc.EquipmentStats(context.Background(), "eq-1")
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRequests)
	assert.Zero(t, stats.OpenRequests)
	assert.Zero(t, stats.CorrectiveRequests)
}

func TestEquipmentStatsUnknownEquipment(t *testing.T) {
	svc := NewAnalyticsService(&analyticsRepoStub{}, &analyticsEquipmentStub{}, nil, 0, nil)

	_, err := svc.EquipmentStats(context.Background(), "missing")
	require.Error(t, err)
}

func TestWorkflowStatisticsZeroBuckets(t *testing.T) {
	repo := &analyticsRepoStub{
		statusCounts: []models.StatusCount{{Status: models.StatusNew, Count: 3}},
		typeCounts:   []models.TypeCount{{RequestType: models.RequestTypeCorrective, Count: 3}},
	}
	svc := NewAnalyticsService(repo, &analyticsEquipmentStub{}, nil, 0, nil)

	stats, err := svc.WorkflowStatistics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalRequests)
	assert.Equal(t, 3, stats.StatusCounts[models.StatusNew])
	assert.Zero(t, stats.StatusCounts[models.StatusScrap], "absent buckets report zero")
	assert.Zero(t, stats.TypeCounts[models.RequestTypePreventive])
	assert.Len(t, stats.StatusCounts, 4)
	assert.Len(t, stats.TypeCounts, 2)
}

func TestDateRangeValidation(t *testing.T) {
	svc := NewAnalyticsService(&analyticsRepoStub{}, &analyticsEquipmentStub{}, nil, 0, nil)

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.Add(-24 * time.Hour)
	_, err := svc.RequestsByTeam(context.Background(), models.DateRangeFilter{StartDate: &start, EndDate: &end})
	require.Error(t, err)
}

func TestRequestsByTeamEmptyIsSliceNotNil(t *testing.T) {
	svc := NewAnalyticsService(&analyticsRepoStub{}, &analyticsEquipmentStub{}, nil, 0, nil)

	summaries, err := svc.RequestsByTeam(context.Background(), models.DateRangeFilter{})
	require.NoError(t, err)
	assert.NotNil(t, summaries)
	assert.Empty(t, summaries)
}
