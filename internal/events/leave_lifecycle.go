package events

import "time"

const (
	LeaveApprovedTopic  = "hr.leave.approved.v1"
	LeaveCancelledTopic = "hr.leave.cancelled.v1"
)

type LeaveApprovedEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id"`
	EmployeeID string    `json:"employee_id"`
	Category   string    `json:"category"`
	WorkYear   int       `json:"work_year"`
	TotalDays  int       `json:"total_days"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	ApprovedBy string    `json:"approved_by"`
	OccurredAt time.Time `json:"occurred_at"`
}

type LeaveCancelledEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id"`
	EmployeeID string    `json:"employee_id"`
	Category   string    `json:"category"`
	WorkYear   int       `json:"work_year"`
	TotalDays  int       `json:"total_days"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LeaveLifecycleEvent is the field subset shared by the approved and
// cancelled payloads that reconciliation consumers need.
type LeaveLifecycleEvent struct {
	EventType  string `json:"event_type"`
	RequestID  string `json:"request_id"`
	EmployeeID string `json:"employee_id"`
	WorkYear   int    `json:"work_year"`
}
