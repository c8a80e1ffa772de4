package employee

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Employee struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EmployeeNumber string     `gorm:"type:varchar(30);uniqueIndex"`
	FullName       string     `gorm:"type:varchar(150);not null"`
	Email          string     `gorm:"type:varchar(150);uniqueIndex"`
	HireDate       *time.Time `gorm:"type:date;index"`
	JoiningDate    *time.Time `gorm:"type:date"`
	IsActive       bool       `gorm:"not null;default:true"`

	// Per-employee leave policy overrides; zero means use the defaults.
	AnnualLimit int `gorm:"not null;default:0"`
	SickLimit   int `gorm:"not null;default:0"`
	CasualLimit int `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Employee) TableName() string {
	return "employees"
}

// StartDate returns the hire date, falling back to the joining date for
// records imported before hire dates were tracked.
func (e *Employee) StartDate() (time.Time, bool) {
	if e.HireDate != nil {
		return *e.HireDate, true
	}
	if e.JoiningDate != nil {
		return *e.JoiningDate, true
	}
	return time.Time{}, false
}
