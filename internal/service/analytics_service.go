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

type analyticsRepository interface {
	KanbanCards(ctx context.Context, filter models.KanbanFilter) ([]models.KanbanCard, error)
	RequestsByTeam(ctx context.Context, filter models.DateRangeFilter) ([]models.TeamRequestSummary, error)
	BreakdownsByEquipment(ctx context.Context, filter models.DateRangeFilter, limit int) ([]models.EquipmentBreakdownSummary, error)
	EquipmentStats(ctx context.Context, equipmentID string) (*models.EquipmentStats, error)
	StatusCounts(ctx context.Context) ([]models.StatusCount, error)
	TypeCounts(ctx context.Context) ([]models.TypeCount, error)
}

type analyticsEquipmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Equipment, error)
}

// AnalyticsService serves the board snapshot and the reporting projections.
// Everything here is read-only.
type AnalyticsService struct {
	repo      analyticsRepository
	equipment analyticsEquipmentRepository
	cache     *CacheService
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewAnalyticsService constructs an AnalyticsService.
func NewAnalyticsService(repo analyticsRepository, equipment analyticsEquipmentRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, equipment: equipment, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// KanbanBoard groups requests into the four fixed columns. Every column is
// present even when empty. Unfiltered and filtered snapshots cache under
// distinct keys.
func (s *AnalyticsService) KanbanBoard(ctx context.Context, filter models.KanbanFilter) (models.KanbanBoard, error) {
	if filter.RequestType != "" && !filter.RequestType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown request type %q", filter.RequestType))
	}

	key := fmt.Sprintf("kanban:%s:%s", filter.RequestType, filter.TeamID)
	if s.cache != nil {
		var cached models.KanbanBoard
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	cards, err := s.repo.KanbanCards(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load kanban board")
	}

	board := make(models.KanbanBoard, len(models.KanbanColumns))
	for _, status := range models.KanbanColumns {
		board[status] = models.KanbanColumn{Requests: []models.KanbanCard{}}
	}
	for _, card := range cards {
		column := board[card.Status]
		column.Requests = append(column.Requests, card)
		column.Count = len(column.Requests)
		board[card.Status] = column
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, board, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache kanban board", zap.Error(err))
		}
	}
	return board, nil
}

// RequestsByTeam reports per-team request counts in an optional creation-date
// window, largest teams first.
func (s *AnalyticsService) RequestsByTeam(ctx context.Context, filter models.DateRangeFilter) ([]models.TeamRequestSummary, error) {
	if err := validateDateRange(filter); err != nil {
		return nil, err
	}
	summaries, err := s.repo.RequestsByTeam(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate by team")
	}
	if summaries == nil {
		summaries = []models.TeamRequestSummary{}
	}
	return summaries, nil
}

// BreakdownsByEquipment reports the top-N equipment by corrective request
// count in an optional creation-date window.
func (s *AnalyticsService) BreakdownsByEquipment(ctx context.Context, filter models.DateRangeFilter, limit int) ([]models.EquipmentBreakdownSummary, error) {
	if err := validateDateRange(filter); err != nil {
		return nil, err
	}
	summaries, err := s.repo.BreakdownsByEquipment(ctx, filter, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate by equipment")
	}
	if summaries == nil {
		summaries = []models.EquipmentBreakdownSummary{}
	}
	return summaries, nil
}

// EquipmentStats computes the counter set for one equipment item. Equipment
// with no requests reports all zeros rather than an error.
func (s *AnalyticsService) EquipmentStats(ctx context.Context, equipmentID string) (*models.EquipmentStats, error) {
	if _, err := s.equipment.FindByID(ctx, equipmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "equipment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load equipment")
	}
	stats, err := s.repo.EquipmentStats(ctx, equipmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute equipment stats")
	}
	return stats, nil
}

// WorkflowStatistics summarises the whole request population by status and by
// type. Absent buckets report zero.
func (s *AnalyticsService) WorkflowStatistics(ctx context.Context) (*models.WorkflowStatistics, error) {
	statusCounts, err := s.repo.StatusCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count statuses")
	}
	typeCounts, err := s.repo.TypeCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count types")
	}

	stats := &models.WorkflowStatistics{
		StatusCounts: map[models.RequestStatus]int{
			models.StatusNew:        0,
			models.StatusInProgress: 0,
			models.StatusRepaired:   0,
			models.StatusScrap:      0,
		},
		TypeCounts: map[models.RequestType]int{
			models.RequestTypeCorrective: 0,
			models.RequestTypePreventive: 0,
		},
	}
	for _, c := range statusCounts {
		stats.StatusCounts[c.Status] = c.Count
		stats.TotalRequests += c.Count
	}
	for _, c := range typeCounts {
		stats.TypeCounts[c.RequestType] = c.Count
	}
	return stats, nil
}

func validateDateRange(filter models.DateRangeFilter) error {
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return appErrors.Clone(appErrors.ErrValidation, "end date must not precede start date")
	}
	return nil
}
