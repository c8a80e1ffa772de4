package employee

import (
	"context"
	"time"

	"gorm.io/gorm"
)

//go:generate mockgen -source=employee_repo.go -destination=mock/employee_repo_mock.go -package=mock
type Repository interface {
	FindByID(ctx context.Context, id string) (*Employee, error)
	FindAllActive(ctx context.Context) ([]Employee, error)
	FindWithAnniversaryOn(ctx context.Context, date time.Time) ([]Employee, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id string) (*Employee, error) {
	var e Employee
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	return &e, err
}

func (r *repository) FindAllActive(ctx context.Context) ([]Employee, error) {
	var employees []Employee
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("hire_date IS NOT NULL OR joining_date IS NOT NULL").
		Order("employee_number ASC").
		Find(&employees).Error
	return employees, err
}

func (r *repository) FindWithAnniversaryOn(ctx context.Context, date time.Time) ([]Employee, error) {
	var employees []Employee
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("hire_date IS NOT NULL").
		Where("EXTRACT(MONTH FROM hire_date) = ? AND EXTRACT(DAY FROM hire_date) = ?",
			int(date.Month()), date.Day()).
		Find(&employees).Error
	return employees, err
}
