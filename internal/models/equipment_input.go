package models

import "time"

// CreateEquipmentInput is the payload for registering an asset.
type CreateEquipmentInput struct {
	Name           string     `json:"name" validate:"required,min=2,max=200"`
	SerialNumber   string     `json:"serial_number" validate:"required,min=2,max=100"`
	Department     string     `json:"department" validate:"max=100"`
	Location       string     `json:"location" validate:"max=200"`
	PurchaseDate   *time.Time `json:"purchase_date,omitempty"`
	WarrantyExpiry *time.Time `json:"warranty_expiry,omitempty"`
	TeamID         *string    `json:"team_id,omitempty"`
	TechnicianID   *string    `json:"technician_id,omitempty"`
	Notes          string     `json:"notes" validate:"max=2000"`
}

// UpdateEquipmentInput edits an asset. IsScrapped is absent on purpose: the
// flag is only ever set by a Scrap transition.
type UpdateEquipmentInput struct {
	Name           *string    `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	SerialNumber   *string    `json:"serial_number,omitempty" validate:"omitempty,min=2,max=100"`
	Department     *string    `json:"department,omitempty" validate:"omitempty,max=100"`
	Location       *string    `json:"location,omitempty" validate:"omitempty,max=200"`
	PurchaseDate   *time.Time `json:"purchase_date,omitempty"`
	WarrantyExpiry *time.Time `json:"warranty_expiry,omitempty"`
	TeamID         *string    `json:"team_id,omitempty"`
	TechnicianID   *string    `json:"technician_id,omitempty"`
	Notes          *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// TeamInput creates or updates a team.
type TeamInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
}
