package balance

import (
	"context"

	"leaveledger/internal/leavetype"
)

// RequestStats summarizes an employee's leave requests in one work year.
type RequestStats struct {
	Total        int `json:"total"`
	Approved     int `json:"approved"`
	Pending      int `json:"pending"`
	Rejected     int `json:"rejected"`
	Cancelled    int `json:"cancelled"`
	DaysApproved int `json:"days_approved"`
}

// RequestSource reads the authoritative set of leave requests. It is a
// narrow view of the leave request repository so the store never depends
// on the lifecycle package.
//
//go:generate mockgen -source=request_source.go -destination=mock/request_source_mock.go -package=mock
type RequestSource interface {
	// ApprovedDaysByCategory sums totalDays of approved, active requests
	// for the work year, grouped by resolved balance category.
	ApprovedDaysByCategory(ctx context.Context, employeeID string, workYear int) (map[leavetype.Category]int, error)
	CountByStatus(ctx context.Context, employeeID string, workYear int) (RequestStats, error)
}
