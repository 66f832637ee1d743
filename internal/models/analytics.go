package models

import "time"

// KanbanCard is the lightweight request projection shown on a board column.
type KanbanCard struct {
	ID             string        `db:"id" json:"id"`
	RequestNumber  string        `db:"request_number" json:"request_number"`
	Subject        string        `db:"subject" json:"subject"`
	RequestType    RequestType   `db:"request_type" json:"request_type"`
	Status         RequestStatus `db:"status" json:"status"`
	ScheduledDate  time.Time     `db:"scheduled_date" json:"scheduled_date"`
	DurationHours  float64       `db:"duration_hours" json:"duration_hours"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	EquipmentID    string        `db:"equipment_id" json:"equipment_id"`
	EquipmentName  string        `db:"equipment_name" json:"equipment_name"`
	SerialNumber   string        `db:"serial_number" json:"serial_number"`
	TeamID         *string       `db:"team_id" json:"team_id,omitempty"`
	TeamName       *string       `db:"team_name" json:"team_name,omitempty"`
	TechnicianID   *string       `db:"technician_id" json:"technician_id,omitempty"`
	TechnicianName *string       `db:"technician_name" json:"technician_name,omitempty"`
}

// KanbanColumn is one board column with its cards and count.
type KanbanColumn struct {
	Requests []KanbanCard `json:"requests"`
	Count    int          `json:"count"`
}

// KanbanBoard maps every status column to its contents. All four columns are
// always present so clients never special-case missing keys.
type KanbanBoard map[RequestStatus]KanbanColumn

// KanbanFilter narrows the board snapshot.
type KanbanFilter struct {
	RequestType RequestType
	TeamID      string
}

// DateRangeFilter bounds analytics queries on request creation time.
type DateRangeFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
}

// TeamRequestSummary is the per-team breakdown of request counts.
type TeamRequestSummary struct {
	TeamID             *string `db:"team_id" json:"team_id,omitempty"`
	TeamName           string  `db:"team_name" json:"team_name"`
	TotalRequests      int     `db:"total_requests" json:"total_requests"`
	NewRequests        int     `db:"new_requests" json:"new_requests"`
	InProgressRequests int     `db:"in_progress_requests" json:"in_progress_requests"`
	RepairedRequests   int     `db:"repaired_requests" json:"repaired_requests"`
	ScrappedRequests   int     `db:"scrapped_requests" json:"scrapped_requests"`
	CorrectiveRequests int     `db:"corrective_requests" json:"corrective_requests"`
	PreventiveRequests int     `db:"preventive_requests" json:"preventive_requests"`
}

// EquipmentBreakdownSummary counts corrective requests per equipment item.
type EquipmentBreakdownSummary struct {
	EquipmentID          string     `db:"equipment_id" json:"equipment_id"`
	EquipmentName        string     `db:"equipment_name" json:"equipment_name"`
	SerialNumber         string     `db:"serial_number" json:"serial_number"`
	Department           string     `db:"department" json:"department"`
	Location             string     `db:"location" json:"location"`
	IsScrapped           bool       `db:"is_scrapped" json:"is_scrapped"`
	BreakdownCount       int        `db:"breakdown_count" json:"breakdown_count"`
	NewBreakdowns        int        `db:"new_breakdowns" json:"new_breakdowns"`
	InProgressBreakdowns int        `db:"in_progress_breakdowns" json:"in_progress_breakdowns"`
	RepairedBreakdowns   int        `db:"repaired_breakdowns" json:"repaired_breakdowns"`
	ScrappedBreakdowns   int        `db:"scrapped_breakdowns" json:"scrapped_breakdowns"`
	LastBreakdown        *time.Time `db:"last_breakdown" json:"last_breakdown,omitempty"`
}

// EquipmentStats is the single-equipment maintenance counter set. Every
// metric defaults to zero when the equipment has no requests.
type EquipmentStats struct {
	TotalRequests      int `db:"total_requests" json:"total_requests"`
	OpenRequests       int `db:"open_requests" json:"open_requests"`
	RepairedRequests   int `db:"repaired_requests" json:"repaired_requests"`
	ScrappedRequests   int `db:"scrapped_requests" json:"scrapped_requests"`
	PreventiveRequests int `db:"preventive_requests" json:"preventive_requests"`
	CorrectiveRequests int `db:"corrective_requests" json:"corrective_requests"`
}

// StatusCount is one bucket of a grouped count query.
type StatusCount struct {
	Status RequestStatus `db:"status" json:"status"`
	Count  int           `db:"count" json:"count"`
}

// TypeCount is one request-type bucket of a grouped count query.
type TypeCount struct {
	RequestType RequestType `db:"request_type" json:"request_type"`
	Count       int         `db:"count" json:"count"`
}

// WorkflowStatistics summarises the whole request population.
type WorkflowStatistics struct {
	TotalRequests int                   `json:"total_requests"`
	StatusCounts  map[RequestStatus]int `json:"status_counts"`
	TypeCounts    map[RequestType]int   `json:"type_counts"`
}
