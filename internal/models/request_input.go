package models

import "time"

// CreateRequestInput is the payload for filing a new maintenance request.
type CreateRequestInput struct {
	Subject       string      `json:"subject" validate:"required,min=3,max=200"`
	Description   string      `json:"description" validate:"max=2000"`
	RequestType   RequestType `json:"request_type" validate:"required"`
	EquipmentID   string      `json:"equipment_id" validate:"required"`
	TeamID        *string     `json:"team_id,omitempty"`
	TechnicianID  *string     `json:"technician_id,omitempty"`
	ScheduledDate *time.Time  `json:"scheduled_date,omitempty"`
	DurationHours *float64    `json:"duration_hours,omitempty"`
}

// UpdateRequestInput edits the free fields of a request. Status is absent on
// purpose: lifecycle movement goes through the workflow endpoints only.
type UpdateRequestInput struct {
	Subject       *string    `json:"subject,omitempty" validate:"omitempty,min=3,max=200"`
	Description   *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	DurationHours *float64   `json:"duration_hours,omitempty" validate:"omitempty,gte=0"`
}

// AssignRequestInput sets team and/or technician on a request.
type AssignRequestInput struct {
	TeamID       *string `json:"team_id,omitempty"`
	TechnicianID *string `json:"technician_id,omitempty"`
}

// TransitionInput is the payload for the generic status-change endpoint.
type TransitionInput struct {
	Status RequestStatus `json:"status" validate:"required"`
	Notes  string        `json:"notes,omitempty" validate:"max=1000"`
}

// KanbanMoveInput is the payload for a board drag-and-drop move.
type KanbanMoveInput struct {
	Status   RequestStatus `json:"status" validate:"required"`
	Position *int          `json:"position,omitempty" validate:"omitempty,gte=0"`
}
