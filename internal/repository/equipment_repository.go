package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gearstack/cmms-api/internal/models"
)

// EquipmentRepository manages persistence for equipment records.
type EquipmentRepository struct {
	db *sqlx.DB
}

// NewEquipmentRepository constructs an EquipmentRepository.
func NewEquipmentRepository(db *sqlx.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

// List returns equipment matching the provided filters, newest first.
func (r *EquipmentRepository) List(ctx context.Context, filter models.EquipmentFilter) ([]models.Equipment, int, error) {
	base := "FROM equipment e"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("e.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.IsScrapped != nil {
		conditions = append(conditions, fmt.Sprintf("e.is_scrapped = $%d", len(args)+1))
		args = append(args, *filter.IsScrapped)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(e.name) LIKE $%d OR LOWER(e.serial_number) LIKE $%d)", idx, idx))
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

	query := fmt.Sprintf("SELECT e.* %s ORDER BY e.created_at DESC LIMIT %d OFFSET %d", base, size, offset)

	var equipment []models.Equipment
	if err := r.db.SelectContext(ctx, &equipment, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list equipment: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count equipment: %w", err)
	}
	return equipment, total, nil
}

// FindByID fetches a single equipment record.
func (r *EquipmentRepository) FindByID(ctx context.Context, id string) (*models.Equipment, error) {
	const query = "SELECT * FROM equipment WHERE id = $1"
	var equipment models.Equipment
	if err := r.db.GetContext(ctx, &equipment, query, id); err != nil {
		return nil, err
	}
	return &equipment, nil
}

// ExistsBySerial checks serial-number uniqueness, optionally excluding an ID.
func (r *EquipmentRepository) ExistsBySerial(ctx context.Context, serial string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM equipment WHERE serial_number = $1"
	args := []interface{}{serial}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check serial: %w", err)
	}
	return true, nil
}

// Create inserts a new equipment record.
func (r *EquipmentRepository) Create(ctx context.Context, equipment *models.Equipment) error {
	if equipment.ID == "" {
		equipment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	equipment.CreatedAt = now
	equipment.UpdatedAt = now
	const query = `INSERT INTO equipment
        (id, name, serial_number, department, location, purchase_date, warranty_expiry, team_id, technician_id,
         is_scrapped, notes, created_by, created_at, updated_at)
        VALUES (:id, :name, :serial_number, :department, :location, :purchase_date, :warranty_expiry, :team_id, :technician_id,
         :is_scrapped, :notes, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, equipment); err != nil {
		return fmt.Errorf("create equipment: %w", err)
	}
	return nil
}

// Update modifies an existing equipment record.
func (r *EquipmentRepository) Update(ctx context.Context, equipment *models.Equipment) error {
	equipment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE equipment
        SET name = :name, serial_number = :serial_number, department = :department, location = :location,
            purchase_date = :purchase_date, warranty_expiry = :warranty_expiry, team_id = :team_id,
            technician_id = :technician_id, notes = :notes, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, equipment); err != nil {
		return fmt.Errorf("update equipment: %w", err)
	}
	return nil
}

// MarkScrapped flips the one-way scrap flag.
func (r *EquipmentRepository) MarkScrapped(ctx context.Context, id string) error {
	const query = "UPDATE equipment SET is_scrapped = true, updated_at = $2 WHERE id = $1"
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark equipment scrapped: %w", err)
	}
	return nil
}

// Delete removes an equipment record.
func (r *EquipmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM equipment WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete equipment: %w", err)
	}
	return nil
}
