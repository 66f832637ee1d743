package models

import "time"

// NotificationType constants mirror the events the workflow and sweeps emit.
const (
	NotificationRequestAssigned      = "request_assigned"
	NotificationRequestStatusChanged = "request_status_changed"
	NotificationMaintenanceDue       = "maintenance_due"
	NotificationRequestOverdue       = "request_overdue"
)

// Notification is an in-app message addressed to a single user.
type Notification struct {
	ID          string     `db:"id" json:"id"`
	RecipientID string     `db:"recipient_id" json:"recipient_id"`
	Type        string     `db:"type" json:"type"`
	Title       string     `db:"title" json:"title"`
	Message     string     `db:"message" json:"message"`
	RequestID   *string    `db:"request_id" json:"request_id,omitempty"`
	EquipmentID *string    `db:"equipment_id" json:"equipment_id,omitempty"`
	IsRead      bool       `db:"is_read" json:"is_read"`
	ReadAt      *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// NotificationFilter captures inbox listing criteria.
type NotificationFilter struct {
	RecipientID string
	UnreadOnly  bool
	Page        int
	PageSize    int
}
