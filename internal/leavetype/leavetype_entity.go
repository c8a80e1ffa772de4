package leavetype

import (
	"time"

	"github.com/google/uuid"
)

type LeaveType struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code string    `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name string    `gorm:"type:varchar(100);not null"`
	// Category maps the catalog entry onto a balance bucket. Codes
	// without a row fall back to the alias table in ParseCategory.
	Category  string `gorm:"type:varchar(20);not null"`
	Color     string `gorm:"type:varchar(20)"`
	IsActive  bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LeaveType) TableName() string {
	return "leave_types"
}
