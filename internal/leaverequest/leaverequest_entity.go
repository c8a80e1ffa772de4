package leaverequest

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

// LeaveRequest is one employee's ask for a block of leave days.
// Category and WorkYear are resolved at creation time and frozen, so a
// later policy or hire-date edit never reinterprets past requests.
type LeaveRequest struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_requests_employee"`

	LeaveType string `gorm:"type:varchar(30);not null"`
	Category  string `gorm:"type:varchar(20);not null"`
	WorkYear  int    `gorm:"not null;index:idx_leave_requests_employee"`

	StartDate time.Time `gorm:"type:date;not null"`
	EndDate   time.Time `gorm:"type:date;not null"`
	TotalDays int       `gorm:"not null;default:1"`
	Reason    string    `gorm:"type:text"`

	Status string `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	// IsActive drops to false on cancellation so usage sync ignores the
	// request without losing its history.
	IsActive bool `gorm:"not null;default:true"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	// ApprovedBy holds the deciding actor for both outcomes: the
	// approver on approval, the rejecter on rejection.
	ApprovedBy         *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt         *time.Time
	RejectionReason    *string    `gorm:"type:text"`
	CancelledBy        *uuid.UUID `gorm:"type:uuid"`
	CancelledAt        *time.Time
	CancellationReason *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}
