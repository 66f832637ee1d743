package models

import "time"

// Equipment is a maintained physical asset. TeamID and TechnicianID are the
// defaults copied onto new requests targeting this asset. IsScrapped is a
// one-way flag set when a request for the asset reaches Scrap.
type Equipment struct {
	ID             string     `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	SerialNumber   string     `db:"serial_number" json:"serial_number"`
	Department     string     `db:"department" json:"department"`
	Location       string     `db:"location" json:"location"`
	PurchaseDate   time.Time  `db:"purchase_date" json:"purchase_date"`
	WarrantyExpiry time.Time  `db:"warranty_expiry" json:"warranty_expiry"`
	TeamID         *string    `db:"team_id" json:"team_id,omitempty"`
	TechnicianID   *string    `db:"technician_id" json:"technician_id,omitempty"`
	IsScrapped     bool       `db:"is_scrapped" json:"is_scrapped"`
	Notes          string     `db:"notes" json:"notes"`
	CreatedBy      string     `db:"created_by" json:"created_by"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// EquipmentFilter captures filtering criteria for listing equipment.
type EquipmentFilter struct {
	Department string
	IsScrapped *bool
	Search     string
	Page       int
	PageSize   int
}
