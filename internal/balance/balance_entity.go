package balance

import (
	"time"

	"leaveledger/internal/leavetype"

	"github.com/google/uuid"
)

// CategoryBalance is one leave bucket inside a work-year balance.
// Remaining is derived (allocated + carriedForward - used) and may go
// negative; Advance mirrors the deficit for payroll reporting.
type CategoryBalance struct {
	Allocated      int `gorm:"not null;default:0"`
	Used           int `gorm:"not null;default:0"`
	CarriedForward int `gorm:"not null;default:0"`
	Remaining      int `gorm:"not null;default:0"`
	Advance        int `gorm:"not null;default:0"`
}

// Balance is the durable per-employee, per-work-year leave record.
// Exactly one row exists per (employee, work year).
type Balance struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_leave_balances_employee_work_year"`
	WorkYear   int       `gorm:"not null;uniqueIndex:idx_leave_balances_employee_work_year"`

	// Year labels the calendar year the work-year window ends in.
	Year             int        `gorm:"not null;index"`
	ExpirationDate   *time.Time `gorm:"type:date"`
	IsCarriedForward bool       `gorm:"not null;default:false"`

	Annual CategoryBalance `gorm:"embedded;embeddedPrefix:annual_"`
	Sick   CategoryBalance `gorm:"embedded;embeddedPrefix:sick_"`
	Casual CategoryBalance `gorm:"embedded;embeddedPrefix:casual_"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Balance) TableName() string {
	return "leave_balances"
}

// Category returns the bucket for a balance category. Medical has no
// bucket of its own; ParseCategory already maps it to sick.
func (b *Balance) Category(cat leavetype.Category) *CategoryBalance {
	switch cat {
	case leavetype.CategoryAnnual:
		return &b.Annual
	case leavetype.CategorySick, leavetype.CategoryMedical:
		return &b.Sick
	case leavetype.CategoryCasual:
		return &b.Casual
	}
	return nil
}

// Recalc restores the derived fields of every bucket. Remaining is left
// negative when used exceeds the entitlement; that state is reported by
// reconciliation, not hidden here.
func (b *Balance) Recalc() {
	for _, c := range []*CategoryBalance{&b.Annual, &b.Sick, &b.Casual} {
		c.Remaining = c.Allocated + c.CarriedForward - c.Used
		if c.Remaining < 0 {
			c.Advance = -c.Remaining
		} else {
			c.Advance = 0
		}
	}
	b.IsCarriedForward = b.Annual.CarriedForward > 0
}

// Consistent reports whether all derived fields match their inputs and
// no bucket is in an advance state.
func (b *Balance) Consistent() bool {
	for _, c := range []*CategoryBalance{&b.Annual, &b.Sick, &b.Casual} {
		if c.Remaining != c.Allocated+c.CarriedForward-c.Used {
			return false
		}
		if c.Remaining < 0 {
			return false
		}
	}
	return true
}
