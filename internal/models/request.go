package models

import "time"

// RequestType classifies a maintenance request. Immutable after creation.
type RequestType string

const (
	RequestTypeCorrective RequestType = "Corrective"
	RequestTypePreventive RequestType = "Preventive"
)

// Valid reports whether the type is a known constant.
func (t RequestType) Valid() bool {
	return t == RequestTypeCorrective || t == RequestTypePreventive
}

// NumberPrefix returns the request-number prefix for the type.
func (t RequestType) NumberPrefix() string {
	if t == RequestTypePreventive {
		return "PM"
	}
	return "CR"
}

// RequestStatus is one of the four fixed Kanban columns.
type RequestStatus string

const (
	StatusNew        RequestStatus = "New"
	StatusInProgress RequestStatus = "In Progress"
	StatusRepaired   RequestStatus = "Repaired"
	StatusScrap      RequestStatus = "Scrap"
)

// Valid reports whether the status is a known column.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusRepaired, StatusScrap:
		return true
	}
	return false
}

// KanbanColumns lists the board columns in display order. Snapshot responses
// always contain every column, even when empty.
var KanbanColumns = []RequestStatus{StatusNew, StatusInProgress, StatusRepaired, StatusScrap}

// MaintenanceRequest is a maintenance ticket. Status is only ever written
// through the workflow service; StartedAt is set once on first entry into
// In Progress and CompletedAt tracks entry into Repaired/Scrap.
type MaintenanceRequest struct {
	ID            string        `db:"id" json:"id"`
	RequestNumber string        `db:"request_number" json:"request_number"`
	Subject       string        `db:"subject" json:"subject"`
	Description   string        `db:"description" json:"description"`
	RequestType   RequestType   `db:"request_type" json:"request_type"`
	Status        RequestStatus `db:"status" json:"status"`
	EquipmentID   string        `db:"equipment_id" json:"equipment_id"`
	TeamID        *string       `db:"team_id" json:"team_id,omitempty"`
	TechnicianID  *string       `db:"technician_id" json:"technician_id,omitempty"`
	ScheduledDate time.Time     `db:"scheduled_date" json:"scheduled_date"`
	DurationHours float64       `db:"duration_hours" json:"duration_hours"`
	StartedAt     *time.Time    `db:"started_at" json:"started_at,omitempty"`
	CompletedAt   *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
	CreatedBy     string        `db:"created_by" json:"created_by"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// StatusHistoryEntry is one row of a request's append-only status log. The
// latest entry's status always matches the request's current status.
type StatusHistoryEntry struct {
	ID        string        `db:"id" json:"id"`
	RequestID string        `db:"request_id" json:"request_id"`
	Status    RequestStatus `db:"status" json:"status"`
	ChangedBy string        `db:"changed_by" json:"changed_by"`
	ChangedAt time.Time     `db:"changed_at" json:"changed_at"`
	Notes     string        `db:"notes" json:"notes"`
}

// RequestFilter captures filtering criteria for listing requests.
type RequestFilter struct {
	Status      RequestStatus
	RequestType RequestType
	TeamID      string
	EquipmentID string
	Search      string
	Page        int
	PageSize    int
}

// TransitionResult is the minimal projection returned by board drag moves.
type TransitionResult struct {
	ID            string        `json:"id"`
	RequestNumber string        `json:"request_number"`
	Status        RequestStatus `json:"status"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// TransitionUpdate carries the fully-computed outcome of a status transition.
// The repository persists the history entry and the request mutation in one
// transaction so the two can never disagree.
type TransitionUpdate struct {
	RequestID   string
	Status      RequestStatus
	StartedAt   *time.Time
	CompletedAt *time.Time
	History     StatusHistoryEntry
}
