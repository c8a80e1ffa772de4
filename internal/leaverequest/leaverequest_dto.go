package leaverequest

type CreateRequest struct {
	EmployeeID string `json:"employee_id" binding:"required,uuid"`
	LeaveType  string `json:"leave_type" binding:"required"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
	Reason     string `json:"reason"`
}

type RejectRequest struct {
	RejectionReason string `json:"rejection_reason" binding:"required"`
}

type CancelRequest struct {
	CancellationReason string `json:"cancellation_reason" binding:"required"`
}

type Response struct {
	ID              string  `json:"id"`
	EmployeeID      string  `json:"employee_id"`
	LeaveType       string  `json:"leave_type"`
	Category        string  `json:"category"`
	WorkYear        int     `json:"work_year"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	TotalDays       int     `json:"total_days"`
	Reason          string  `json:"reason"`
	Status          string  `json:"status"`
	IsActive        bool    `json:"is_active"`
	CreatedBy       string  `json:"created_by"`
	ApprovedBy      *string `json:"approved_by,omitempty"`
	ApprovedAt      *string `json:"approved_at,omitempty"`
	RejectionReason    *string `json:"rejection_reason,omitempty"`
	CancelledAt        *string `json:"cancelled_at,omitempty"`
	CancellationReason *string `json:"cancellation_reason,omitempty"`
}

func mapToResponse(l LeaveRequest) Response {
	resp := Response{
		ID:              l.ID.String(),
		EmployeeID:      l.EmployeeID.String(),
		LeaveType:       l.LeaveType,
		Category:        l.Category,
		WorkYear:        l.WorkYear,
		StartDate:       l.StartDate.Format("2006-01-02"),
		EndDate:         l.EndDate.Format("2006-01-02"),
		TotalDays:       l.TotalDays,
		Reason:          l.Reason,
		Status:          l.Status,
		IsActive:        l.IsActive,
		CreatedBy:          l.CreatedBy.String(),
		RejectionReason:    l.RejectionReason,
		CancellationReason: l.CancellationReason,
	}
	if l.ApprovedBy != nil {
		s := l.ApprovedBy.String()
		resp.ApprovedBy = &s
	}
	if l.ApprovedAt != nil {
		s := l.ApprovedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.ApprovedAt = &s
	}
	if l.CancelledAt != nil {
		s := l.CancelledAt.Format("2006-01-02T15:04:05Z07:00")
		resp.CancelledAt = &s
	}
	return resp
}

func mapToListResponse(requests []LeaveRequest) []Response {
	resp := make([]Response, len(requests))
	for i, l := range requests {
		resp[i] = mapToResponse(l)
	}
	return resp
}
