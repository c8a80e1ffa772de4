package balance

import (
	"time"

	"github.com/google/uuid"
)

// Transaction kinds recorded against a balance.
const (
	TxAllocation   = "ALLOCATION"
	TxUsage        = "USAGE"
	TxCancellation = "CANCELLATION"
	TxCarryForward = "CARRY_FORWARD"
	TxAdjustment   = "ADJUSTMENT"
)

// Transaction is the audit trail of balance mutations. Days is signed:
// positive grants entitlement or restores days, negative consumes them.
type Transaction struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EmployeeID uuid.UUID  `gorm:"type:uuid;not null;index:idx_leave_transactions_employee"`
	WorkYear   int        `gorm:"not null"`
	Category   string     `gorm:"type:varchar(20);not null"`
	Kind       string     `gorm:"type:varchar(20);not null"`
	Days       int        `gorm:"not null"`
	Remaining  int        `gorm:"not null"`
	Reason     string     `gorm:"type:text"`
	ActorID    *uuid.UUID `gorm:"type:uuid"`
	CreatedAt  time.Time  `gorm:"index:idx_leave_transactions_employee"`
}

func (Transaction) TableName() string {
	return "leave_transactions"
}
