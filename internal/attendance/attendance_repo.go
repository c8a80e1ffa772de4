package attendance

import (
	"context"
	"database/sql"
	"time"

	"leaveledger/internal/shared/connection"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:generate mockgen -source=attendance_repo.go -destination=mock/attendance_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	CreateForLeave(ctx context.Context, employeeID, leaveRequestID uuid.UUID, dates []time.Time, note string) ([]uuid.UUID, error)
	DeleteByLeaveRequest(ctx context.Context, leaveRequestID uuid.UUID) error
	ExistsOn(ctx context.Context, employeeID uuid.UUID, date time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: connection.BindTx(r.db, tx)}
}

func (r *repository) CreateForLeave(ctx context.Context, employeeID, leaveRequestID uuid.UUID, dates []time.Time, note string) ([]uuid.UUID, error) {
	records := make([]Attendance, 0, len(dates))
	ids := make([]uuid.UUID, 0, len(dates))

	for _, d := range dates {
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)

		exists, err := r.ExistsOn(ctx, employeeID, day)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		id := uuid.New()
		lrID := leaveRequestID
		noteCopy := note
		records = append(records, Attendance{
			ID:             id,
			EmployeeID:     employeeID,
			AttendanceDate: day,
			Status:         StatusOnLeave,
			Source:         SourceLeave,
			LeaveRequestID: &lrID,
			Notes:          &noteCopy,
		})
		ids = append(ids, id)
	}

	if len(records) == 0 {
		return ids, nil
	}

	err := r.db.WithContext(ctx).Create(&records).Error
	return ids, err
}

func (r *repository) DeleteByLeaveRequest(ctx context.Context, leaveRequestID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("leave_request_id = ?", leaveRequestID).
		Delete(&Attendance{}).Error
}

func (r *repository) ExistsOn(ctx context.Context, employeeID uuid.UUID, date time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Attendance{}).
		Where("employee_id = ?", employeeID).
		Where("attendance_date = ?", date).
		Count(&count).Error
	return count > 0, err
}
