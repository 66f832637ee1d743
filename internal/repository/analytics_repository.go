package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gearstack/cmms-api/internal/models"
)

// QueryObserver records per-query latency. service.MetricsService satisfies
// it.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// AnalyticsRepository exposes read-optimised grouping queries for the Kanban
// board and the reporting endpoints.
type AnalyticsRepository struct {
	db      *sqlx.DB
	metrics QueryObserver
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// WithMetrics attaches a latency observer to every query method.
func (r *AnalyticsRepository) WithMetrics(metrics QueryObserver) *AnalyticsRepository {
	r.metrics = metrics
	return r
}

func (r *AnalyticsRepository) observe(label string, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

// KanbanCards returns the board card projection for all matching requests.
// Grouping into columns happens in the service layer.
func (r *AnalyticsRepository) KanbanCards(ctx context.Context, filter models.KanbanFilter) ([]models.KanbanCard, error) {
	defer r.observe("kanban_cards", time.Now())
	var builder strings.Builder
	builder.WriteString(`SELECT r.id, r.request_number, r.subject, r.request_type, r.status, r.scheduled_date,
        r.duration_hours, r.created_at,
        e.id AS equipment_id, e.name AS equipment_name, e.serial_number,
        t.id AS team_id, t.name AS team_name,
        u.id AS technician_id, u.full_name AS technician_name
        FROM maintenance_requests r
        JOIN equipment e ON e.id = r.equipment_id
        LEFT JOIN teams t ON t.id = r.team_id
        LEFT JOIN users u ON u.id = r.technician_id
        WHERE 1=1`)
	var args []interface{}
	if filter.RequestType != "" {
		args = append(args, filter.RequestType)
		builder.WriteString(fmt.Sprintf(" AND r.request_type = $%d", len(args)))
	}
	if filter.TeamID != "" {
		args = append(args, filter.TeamID)
		builder.WriteString(fmt.Sprintf(" AND r.team_id = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY r.created_at DESC")

	var cards []models.KanbanCard
	if err := r.db.SelectContext(ctx, &cards, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query kanban cards: %w", err)
	}
	return cards, nil
}

// RequestsByTeam groups requests per team with per-status and per-type
// counts, sorted by total descending.
func (r *AnalyticsRepository) RequestsByTeam(ctx context.Context, filter models.DateRangeFilter) ([]models.TeamRequestSummary, error) {
	defer r.observe("requests_by_team", time.Now())
	var builder strings.Builder
	builder.WriteString(`SELECT r.team_id, COALESCE(t.name, 'Unassigned') AS team_name,
        COUNT(*) AS total_requests,
        SUM(CASE WHEN r.status = 'New' THEN 1 ELSE 0 END) AS new_requests,
        SUM(CASE WHEN r.status = 'In Progress' THEN 1 ELSE 0 END) AS in_progress_requests,
        SUM(CASE WHEN r.status = 'Repaired' THEN 1 ELSE 0 END) AS repaired_requests,
        SUM(CASE WHEN r.status = 'Scrap' THEN 1 ELSE 0 END) AS scrapped_requests,
        SUM(CASE WHEN r.request_type = 'Corrective' THEN 1 ELSE 0 END) AS corrective_requests,
        SUM(CASE WHEN r.request_type = 'Preventive' THEN 1 ELSE 0 END) AS preventive_requests
        FROM maintenance_requests r
        LEFT JOIN teams t ON t.id = r.team_id
        WHERE 1=1`)
	var args []interface{}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		builder.WriteString(fmt.Sprintf(" AND r.created_at >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		builder.WriteString(fmt.Sprintf(" AND r.created_at <= $%d", len(args)))
	}
	builder.WriteString(" GROUP BY r.team_id, t.name ORDER BY total_requests DESC")

	var summaries []models.TeamRequestSummary
	if err := r.db.SelectContext(ctx, &summaries, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query requests by team: %w", err)
	}
	return summaries, nil
}

// BreakdownsByEquipment groups corrective requests per equipment, sorted by
// breakdown count descending and limited to the top N items.
func (r *AnalyticsRepository) BreakdownsByEquipment(ctx context.Context, filter models.DateRangeFilter, limit int) ([]models.EquipmentBreakdownSummary, error) {
	defer r.observe("breakdowns_by_equipment", time.Now())
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var builder strings.Builder
	builder.WriteString(`SELECT r.equipment_id, e.name AS equipment_name, e.serial_number, e.department, e.location, e.is_scrapped,
        COUNT(*) AS breakdown_count,
        SUM(CASE WHEN r.status = 'New' THEN 1 ELSE 0 END) AS new_breakdowns,
        SUM(CASE WHEN r.status = 'In Progress' THEN 1 ELSE 0 END) AS in_progress_breakdowns,
        SUM(CASE WHEN r.status = 'Repaired' THEN 1 ELSE 0 END) AS repaired_breakdowns,
        SUM(CASE WHEN r.status = 'Scrap' THEN 1 ELSE 0 END) AS scrapped_breakdowns,
        MAX(r.created_at) AS last_breakdown
        FROM maintenance_requests r
        JOIN equipment e ON e.id = r.equipment_id
        WHERE r.request_type = 'Corrective'`)
	var args []interface{}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		builder.WriteString(fmt.Sprintf(" AND r.created_at >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		builder.WriteString(fmt.Sprintf(" AND r.created_at <= $%d", len(args)))
	}
	builder.WriteString(" GROUP BY r.equipment_id, e.name, e.serial_number, e.department, e.location, e.is_scrapped")
	builder.WriteString(fmt.Sprintf(" ORDER BY breakdown_count DESC LIMIT %d", limit))

	var summaries []models.EquipmentBreakdownSummary
	if err := r.db.SelectContext(ctx, &summaries, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query breakdowns by equipment: %w", err)
	}
	return summaries, nil
}

// EquipmentStats computes the full counter set for one equipment item in a
// single pass. SUM over an empty set is NULL, hence the COALESCEs.
func (r *AnalyticsRepository) EquipmentStats(ctx context.Context, equipmentID string) (*models.EquipmentStats, error) {
	defer r.observe("equipment_stats", time.Now())
	const query = `SELECT COUNT(*) AS total_requests,
        COALESCE(SUM(CASE WHEN status IN ('New', 'In Progress') THEN 1 ELSE 0 END), 0) AS open_requests,
        COALESCE(SUM(CASE WHEN status = 'Repaired' THEN 1 ELSE 0 END), 0) AS repaired_requests,
        COALESCE(SUM(CASE WHEN status = 'Scrap' THEN 1 ELSE 0 END), 0) AS scrapped_requests,
        COALESCE(SUM(CASE WHEN request_type = 'Preventive' THEN 1 ELSE 0 END), 0) AS preventive_requests,
        COALESCE(SUM(CASE WHEN request_type = 'Corrective' THEN 1 ELSE 0 END), 0) AS corrective_requests
        FROM maintenance_requests WHERE equipment_id = $1`
	var stats models.EquipmentStats
	if err := r.db.GetContext(ctx, &stats, query, equipmentID); err != nil {
		return nil, fmt.Errorf("query equipment stats: %w", err)
	}
	return &stats, nil
}

// StatusCounts groups the whole request population by status.
func (r *AnalyticsRepository) StatusCounts(ctx context.Context) ([]models.StatusCount, error) {
	defer r.observe("status_counts", time.Now())
	const query = "SELECT status, COUNT(*) AS count FROM maintenance_requests GROUP BY status"
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("query status counts: %w", err)
	}
	return counts, nil
}

// TypeCounts groups the whole request population by request type.
func (r *AnalyticsRepository) TypeCounts(ctx context.Context) ([]models.TypeCount, error) {
	defer r.observe("type_counts", time.Now())
	const query = "SELECT request_type, COUNT(*) AS count FROM maintenance_requests GROUP BY request_type"
	var counts []models.TypeCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("query type counts: %w", err)
	}
	return counts, nil
}
