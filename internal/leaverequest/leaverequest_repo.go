package leaverequest

import (
	"context"
	"database/sql"
	"time"

	"leaveledger/internal/balance"
	"leaveledger/internal/leavetype"
	"leaveledger/internal/shared/connection"

	"gorm.io/gorm"
)

//go:generate mockgen -source=leaverequest_repo.go -destination=mock/leaverequest_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, l *LeaveRequest) error
	Update(ctx context.Context, l *LeaveRequest) error
	FindByID(ctx context.Context, id string) (*LeaveRequest, error)
	FindAllByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error)
	FindAll(ctx context.Context, status string) ([]LeaveRequest, error)
	HasOverlappingPeriod(ctx context.Context, employeeID string, startDate, endDate time.Time, excludeID *string) (bool, error)

	// RequestSource view used by balance reconciliation.
	ApprovedDaysByCategory(ctx context.Context, employeeID string, workYear int) (map[leavetype.Category]int, error)
	CountByStatus(ctx context.Context, employeeID string, workYear int) (balance.RequestStats, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx returns a repository whose writes run on tx and roll back
// with it.
func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: connection.BindTx(r.db, tx)}
}

func (r *repository) Create(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *repository) Update(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveRequest, error) {
	var l LeaveRequest
	err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repository) FindAllByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	var requests []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("start_date DESC").
		Find(&requests).Error
	return requests, err
}

func (r *repository) FindAll(ctx context.Context, status string) ([]LeaveRequest, error) {
	q := r.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var requests []LeaveRequest
	err := q.Order("created_at DESC").Find(&requests).Error
	return requests, err
}

// HasOverlappingPeriod checks pending and approved active requests only;
// rejected and cancelled ones never block a new ask.
func (r *repository) HasOverlappingPeriod(ctx context.Context, employeeID string, startDate, endDate time.Time, excludeID *string) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Where("employee_id = ?", employeeID).
		Where("is_active = ?", true).
		Where("status IN ?", []string{StatusPending, StatusApproved}).
		Where("start_date <= ? AND end_date >= ?", endDate, startDate)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}

	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *repository) ApprovedDaysByCategory(ctx context.Context, employeeID string, workYear int) (map[leavetype.Category]int, error) {
	type row struct {
		Category string
		Days     int
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Select("category, COALESCE(SUM(total_days), 0) AS days").
		Where("employee_id = ?", employeeID).
		Where("work_year = ?", workYear).
		Where("status = ?", StatusApproved).
		Where("is_active = ?", true).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[leavetype.Category]int, len(rows))
	for _, r := range rows {
		out[leavetype.Category(r.Category)] = r.Days
	}
	return out, nil
}

func (r *repository) CountByStatus(ctx context.Context, employeeID string, workYear int) (balance.RequestStats, error) {
	type row struct {
		Status string
		Count  int
		Days   int
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_days), 0) AS days").
		Where("employee_id = ?", employeeID).
		Where("work_year = ?", workYear).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return balance.RequestStats{}, err
	}

	var stats balance.RequestStats
	for _, r := range rows {
		stats.Total += r.Count
		switch r.Status {
		case StatusApproved:
			stats.Approved = r.Count
			stats.DaysApproved = r.Days
		case StatusPending:
			stats.Pending = r.Count
		case StatusRejected:
			stats.Rejected = r.Count
		case StatusCancelled:
			stats.Cancelled = r.Count
		}
	}
	return stats, nil
}
