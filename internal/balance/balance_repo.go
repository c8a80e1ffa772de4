package balance

import (
	"context"
	"database/sql"
	"errors"

	"leaveledger/internal/shared/connection"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

//go:generate mockgen -source=balance_repo.go -destination=mock/balance_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, b *Balance) error
	Save(ctx context.Context, b *Balance) error
	FindByEmployeeAndWorkYear(ctx context.Context, employeeID string, workYear int) (*Balance, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]Balance, error)
}

type TransactionRepository interface {
	WithTx(tx *sql.Tx) TransactionRepository
	Create(ctx context.Context, t *Transaction) error
	ListByEmployee(ctx context.Context, employeeID string, limit int) ([]Transaction, error)
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

func (r *repository) Create(ctx context.Context, b *Balance) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *repository) Save(ctx context.Context, b *Balance) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *repository) FindByEmployeeAndWorkYear(ctx context.Context, employeeID string, workYear int) (*Balance, error) {
	var b Balance
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Where("work_year = ?", workYear).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) ListByEmployee(ctx context.Context, employeeID string) ([]Balance, error) {
	var balances []Balance
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("work_year ASC").
		Find(&balances).Error
	return balances, err
}

// IsDuplicateKey reports a postgres unique violation, which the store
// treats as "balance already exists, fetch it instead".
func IsDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) WithTx(tx *sql.Tx) TransactionRepository {
	return &transactionRepository{db: connection.BindTx(r.db, tx)}
}

func (r *transactionRepository) Create(ctx context.Context, t *Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *transactionRepository) ListByEmployee(ctx context.Context, employeeID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txs []Transaction
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}
