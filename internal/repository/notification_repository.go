package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gearstack/cmms-api/internal/models"
)

// NotificationRepository manages persistence for in-app notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications
        (id, recipient_id, type, title, message, request_id, equipment_id, is_read, read_at, created_at)
        VALUES (:id, :recipient_id, :type, :title, :message, :request_id, :equipment_id, :is_read, :read_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List returns a recipient's notifications, newest first.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	base := "FROM notifications WHERE recipient_id = $1"
	args := []interface{}{filter.RecipientID}
	if filter.UnreadOnly {
		base += " AND is_read = false"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT * %s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, size, offset)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return notifications, total, nil
}

// UnreadCount returns the number of unread notifications for a recipient.
func (r *NotificationRepository) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	const query = "SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = false"
	var count int
	if err := r.db.GetContext(ctx, &count, query, recipientID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification read, scoped to its recipient.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	const query = "UPDATE notifications SET is_read = true, read_at = $3 WHERE id = $1 AND recipient_id = $2"
	result, err := r.db.ExecContext(ctx, query, id, recipientID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkAllRead marks every unread notification for a recipient.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string) error {
	const query = "UPDATE notifications SET is_read = true, read_at = $2 WHERE recipient_id = $1 AND is_read = false"
	if _, err := r.db.ExecContext(ctx, query, recipientID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// Delete removes a notification, scoped to its recipient.
func (r *NotificationRepository) Delete(ctx context.Context, id, recipientID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = $1 AND recipient_id = $2", id, recipientID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExistsSince reports whether a notification of the given type for the given
// request was already sent to the recipient after the cutoff. Used by sweeps
// to avoid re-notifying every tick.
func (r *NotificationRepository) ExistsSince(ctx context.Context, recipientID, notificationType, requestID string, since time.Time) (bool, error) {
	const query = `SELECT 1 FROM notifications
        WHERE recipient_id = $1 AND type = $2 AND request_id = $3 AND created_at >= $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, recipientID, notificationType, requestID, since); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check notification exists: %w", err)
	}
	return true, nil
}
