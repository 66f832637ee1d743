package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gearstack/cmms-api/internal/models"
)

// RequestRepository manages persistence for maintenance requests and their
// status history.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs a RequestRepository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// List returns requests matching the provided filters, newest first.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.MaintenanceRequest, int, error) {
	base := "FROM maintenance_requests r"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.RequestType != "" {
		conditions = append(conditions, fmt.Sprintf("r.request_type = $%d", len(args)+1))
		args = append(args, filter.RequestType)
	}
	if filter.TeamID != "" {
		conditions = append(conditions, fmt.Sprintf("r.team_id = $%d", len(args)+1))
		args = append(args, filter.TeamID)
	}
	if filter.EquipmentID != "" {
		conditions = append(conditions, fmt.Sprintf("r.equipment_id = $%d", len(args)+1))
		args = append(args, filter.EquipmentID)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(r.subject) LIKE $%d OR LOWER(r.request_number) LIKE $%d OR LOWER(r.description) LIKE $%d)", idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT r.* %s ORDER BY r.created_at DESC LIMIT %d OFFSET %d", base, size, offset)

	var requests []models.MaintenanceRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}
	return requests, total, nil
}

// FindByID fetches a single request.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	const query = "SELECT * FROM maintenance_requests WHERE id = $1"
	var request models.MaintenanceRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// Create inserts a request together with its initial status-history entry.
// The request number must already be assigned by the caller.
func (r *RequestRepository) Create(ctx context.Context, request *models.MaintenanceRequest, initialNote string) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	request.CreatedAt = now
	request.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create request: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertRequest = `INSERT INTO maintenance_requests
        (id, request_number, subject, description, request_type, status, equipment_id, team_id, technician_id,
         scheduled_date, duration_hours, started_at, completed_at, created_by, created_at, updated_at)
        VALUES (:id, :request_number, :subject, :description, :request_type, :status, :equipment_id, :team_id, :technician_id,
         :scheduled_date, :duration_hours, :started_at, :completed_at, :created_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertRequest, request); err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	entry := models.StatusHistoryEntry{
		ID:        uuid.NewString(),
		RequestID: request.ID,
		Status:    request.Status,
		ChangedBy: request.CreatedBy,
		ChangedAt: now,
		Notes:     initialNote,
	}
	const insertHistory = `INSERT INTO request_status_history (id, request_id, status, changed_by, changed_at, notes)
        VALUES (:id, :request_id, :status, :changed_by, :changed_at, :notes)`
	if _, err := tx.NamedExecContext(ctx, insertHistory, entry); err != nil {
		return fmt.Errorf("create request history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create request: %w", err)
	}
	return nil
}

// ApplyTransition appends the history entry and mutates the request's status
// and timestamps in a single transaction, keeping both in agreement.
func (r *RequestRepository) ApplyTransition(ctx context.Context, update models.TransitionUpdate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	entry := update.History
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	const insertHistory = `INSERT INTO request_status_history (id, request_id, status, changed_by, changed_at, notes)
        VALUES (:id, :request_id, :status, :changed_by, :changed_at, :notes)`
	if _, err := tx.NamedExecContext(ctx, insertHistory, entry); err != nil {
		return fmt.Errorf("append status history: %w", err)
	}

	const updateRequest = `UPDATE maintenance_requests
        SET status = $2, started_at = $3, completed_at = $4, updated_at = $5
        WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateRequest, update.RequestID, update.Status, update.StartedAt, update.CompletedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("update request status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

// History returns the append-only status log for a request, oldest first.
func (r *RequestRepository) History(ctx context.Context, requestID string) ([]models.StatusHistoryEntry, error) {
	const query = "SELECT * FROM request_status_history WHERE request_id = $1 ORDER BY changed_at ASC"
	var entries []models.StatusHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, requestID); err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	return entries, nil
}

// Update modifies the editable fields of a request. Status and its
// timestamps are deliberately excluded; those belong to ApplyTransition.
func (r *RequestRepository) Update(ctx context.Context, request *models.MaintenanceRequest) error {
	request.UpdatedAt = time.Now().UTC()
	const query = `UPDATE maintenance_requests
        SET subject = :subject, description = :description, scheduled_date = :scheduled_date,
            duration_hours = :duration_hours, team_id = :team_id, technician_id = :technician_id, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	return nil
}

// Assign sets the team and/or technician on a request.
func (r *RequestRepository) Assign(ctx context.Context, id string, teamID, technicianID *string) error {
	const query = `UPDATE maintenance_requests
        SET team_id = COALESCE($2, team_id), technician_id = COALESCE($3, technician_id), updated_at = $4
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, teamID, technicianID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign request: %w", err)
	}
	return nil
}

// Delete removes a request and its history.
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete request: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM request_status_history WHERE request_id = $1", id); err != nil {
		return fmt.Errorf("delete request history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM maintenance_requests WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete request: %w", err)
	}
	return nil
}

// CountActiveByEquipment counts New/In Progress requests pointing at an
// equipment item. Used to block equipment deletion while work is open.
func (r *RequestRepository) CountActiveByEquipment(ctx context.Context, equipmentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM maintenance_requests
        WHERE equipment_id = $1 AND status IN ($2, $3)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, equipmentID, models.StatusNew, models.StatusInProgress); err != nil {
		return 0, fmt.Errorf("count active requests: %w", err)
	}
	return count, nil
}

// ListPreventiveDueSoon returns preventive requests still in New whose
// scheduled date falls inside [from, to].
func (r *RequestRepository) ListPreventiveDueSoon(ctx context.Context, from, to time.Time) ([]models.MaintenanceRequest, error) {
	const query = `SELECT * FROM maintenance_requests
        WHERE request_type = $1 AND status = $2 AND scheduled_date >= $3 AND scheduled_date <= $4`
	var requests []models.MaintenanceRequest
	if err := r.db.SelectContext(ctx, &requests, query, models.RequestTypePreventive, models.StatusNew, from, to); err != nil {
		return nil, fmt.Errorf("list preventive due soon: %w", err)
	}
	return requests, nil
}

// ListOverdue returns open requests whose scheduled date has passed.
func (r *RequestRepository) ListOverdue(ctx context.Context, now time.Time) ([]models.MaintenanceRequest, error) {
	const query = `SELECT * FROM maintenance_requests
        WHERE status IN ($1, $2) AND scheduled_date < $3`
	var requests []models.MaintenanceRequest
	if err := r.db.SelectContext(ctx, &requests, query, models.StatusNew, models.StatusInProgress, now); err != nil {
		return nil, fmt.Errorf("list overdue requests: %w", err)
	}
	return requests, nil
}
