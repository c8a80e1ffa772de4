package balance_test

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"leaveledger/internal/balance"
	balanceerrors "leaveledger/internal/balance/errors"
	"leaveledger/internal/employee"
	"leaveledger/internal/leavetype"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeBalanceRepository struct {
	mu       sync.Mutex
	rows     map[string]balance.Balance
	createFn func(ctx context.Context, b *balance.Balance) error
	saveFn   func(ctx context.Context, b *balance.Balance) error
}

func newFakeBalanceRepository() *fakeBalanceRepository {
	return &fakeBalanceRepository{rows: map[string]balance.Balance{}}
}

func balanceKey(employeeID string, workYear int) string {
	return fmt.Sprintf("%s:%d", employeeID, workYear)
}

func (f *fakeBalanceRepository) WithTx(tx *sql.Tx) balance.Repository {
	return f
}

func (f *fakeBalanceRepository) Create(ctx context.Context, b *balance.Balance) error {
	if f.createFn != nil {
		return f.createFn(ctx, b)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := balanceKey(b.EmployeeID.String(), b.WorkYear)
	if _, exists := f.rows[key]; exists {
		return gorm.ErrDuplicatedKey
	}
	f.rows[key] = *b
	return nil
}

func (f *fakeBalanceRepository) Save(ctx context.Context, b *balance.Balance) error {
	if f.saveFn != nil {
		return f.saveFn(ctx, b)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[balanceKey(b.EmployeeID.String(), b.WorkYear)] = *b
	return nil
}

func (f *fakeBalanceRepository) FindByEmployeeAndWorkYear(ctx context.Context, employeeID string, workYear int) (*balance.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[balanceKey(employeeID, workYear)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &b, nil
}

func (f *fakeBalanceRepository) ListByEmployee(ctx context.Context, employeeID string) ([]balance.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []balance.Balance
	for _, b := range f.rows {
		if b.EmployeeID.String() == employeeID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkYear < out[j].WorkYear })
	return out, nil
}

type fakeTransactionRepository struct {
	mu   sync.Mutex
	rows []balance.Transaction
}

func (f *fakeTransactionRepository) WithTx(tx *sql.Tx) balance.TransactionRepository {
	return f
}

func (f *fakeTransactionRepository) Create(ctx context.Context, t *balance.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *t)
	return nil
}

func (f *fakeTransactionRepository) ListByEmployee(ctx context.Context, employeeID string, limit int) ([]balance.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []balance.Transaction
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if f.rows[i].EmployeeID.String() == employeeID {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

func (f *fakeTransactionRepository) kinds(employeeID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, t := range f.rows {
		if t.EmployeeID.String() == employeeID {
			out = append(out, t.Kind)
		}
	}
	return out
}

type fakeEmployeeRepository struct {
	employees       map[string]*employee.Employee
	findAllActiveFn func(ctx context.Context) ([]employee.Employee, error)
	anniversaryFn   func(ctx context.Context, date time.Time) ([]employee.Employee, error)
}

func newFakeEmployeeRepository(emps ...*employee.Employee) *fakeEmployeeRepository {
	f := &fakeEmployeeRepository{employees: map[string]*employee.Employee{}}
	for _, e := range emps {
		f.employees[e.ID.String()] = e
	}
	return f
}

func (f *fakeEmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	e, ok := f.employees[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return e, nil
}

func (f *fakeEmployeeRepository) FindAllActive(ctx context.Context) ([]employee.Employee, error) {
	if f.findAllActiveFn != nil {
		return f.findAllActiveFn(ctx)
	}
	var out []employee.Employee
	for _, e := range f.employees {
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeEmployeeRepository) FindWithAnniversaryOn(ctx context.Context, date time.Time) ([]employee.Employee, error) {
	if f.anniversaryFn != nil {
		return f.anniversaryFn(ctx, date)
	}
	return nil, nil
}

type fakeRequestSource struct {
	approvedFn func(ctx context.Context, employeeID string, workYear int) (map[leavetype.Category]int, error)
	statsFn    func(ctx context.Context, employeeID string, workYear int) (balance.RequestStats, error)
}

func (f *fakeRequestSource) ApprovedDaysByCategory(ctx context.Context, employeeID string, workYear int) (map[leavetype.Category]int, error) {
	if f.approvedFn != nil {
		return f.approvedFn(ctx, employeeID, workYear)
	}
	return map[leavetype.Category]int{}, nil
}

func (f *fakeRequestSource) CountByStatus(ctx context.Context, employeeID string, workYear int) (balance.RequestStats, error) {
	if f.statsFn != nil {
		return f.statsFn(ctx, employeeID, workYear)
	}
	return balance.RequestStats{}, nil
}

type balanceServiceDeps struct {
	db        *sql.DB
	sqlMock   sqlmock.Sqlmock
	service   balance.Service
	repo      *fakeBalanceRepository
	txRepo    *fakeTransactionRepository
	employees *fakeEmployeeRepository
	requests  *fakeRequestSource
	locks     *balance.EmployeeLocks
}

func newEmployee(hireYearsAgo int) *employee.Employee {
	hire := time.Now().UTC().AddDate(-hireYearsAgo, 0, -30)
	return &employee.Employee{
		ID:             uuid.New(),
		EmployeeNumber: "EMP-0001",
		FullName:       "Dina Rahmawati",
		HireDate:       &hire,
		IsActive:       true,
	}
}

func setupBalanceServiceTest(t *testing.T, emps ...*employee.Employee) *balanceServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := newFakeBalanceRepository()
	txRepo := &fakeTransactionRepository{}
	empRepo := newFakeEmployeeRepository(emps...)
	requests := &fakeRequestSource{}
	locks := balance.NewEmployeeLocks()

	svc := balance.NewService(db, repo, txRepo, empRepo, requests, locks, nil)

	return &balanceServiceDeps{
		db:        db,
		sqlMock:   sqlMock,
		service:   svc,
		repo:      repo,
		txRepo:    txRepo,
		employees: empRepo,
		requests:  requests,
		locks:     locks,
	}
}

func TestBalanceService_EnsureWorkYearBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("work year zero gets no annual allocation and no carry forward", func(t *testing.T) {
		emp := newEmployee(3)
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		b, err := deps.service.EnsureWorkYearBalance(ctx, emp.ID.String(), 0)
		assert.NoError(t, err)
		assert.Equal(t, 0, b.Annual.Allocated)
		assert.Equal(t, 0, b.Annual.CarriedForward)
		assert.Equal(t, balance.DefaultSickAllocation, b.Sick.Allocated)
		assert.Equal(t, balance.DefaultCasualAllocation, b.Casual.Allocated)
		assert.Equal(t, emp.HireDate.Year()+1, b.Year)
		assert.NotNil(t, b.ExpirationDate)
		assert.Equal(t, b.Year+2, b.ExpirationDate.Year())
	})

	t.Run("creating a later year ensures the whole chain", func(t *testing.T) {
		emp := newEmployee(3)
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		b2, err := deps.service.EnsureWorkYearBalance(ctx, emp.ID.String(), 2)
		assert.NoError(t, err)

		// Year 0 remaining 0, year 1 untouched 20, so year 2 carries 20
		// into a 20-day allocation for 40 available.
		assert.Equal(t, 20, b2.Annual.Allocated)
		assert.Equal(t, 20, b2.Annual.CarriedForward)
		assert.Equal(t, 40, b2.Annual.Remaining)
		assert.True(t, b2.IsCarriedForward)

		b1, err := deps.repo.FindByEmployeeAndWorkYear(ctx, emp.ID.String(), 1)
		assert.NoError(t, err)
		assert.Equal(t, 0, b1.Annual.CarriedForward)

		b0, err := deps.repo.FindByEmployeeAndWorkYear(ctx, emp.ID.String(), 0)
		assert.NoError(t, err)
		assert.Equal(t, 0, b0.Annual.Allocated)
	})

	t.Run("existing balance is returned untouched", func(t *testing.T) {
		emp := newEmployee(2)
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		first, err := deps.service.EnsureWorkYearBalance(ctx, emp.ID.String(), 1)
		assert.NoError(t, err)

		again, err := deps.service.EnsureWorkYearBalance(ctx, emp.ID.String(), 1)
		assert.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	})

	t.Run("duplicate key race returns the winner's row", func(t *testing.T) {
		emp := newEmployee(2)
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		deps.repo.createFn = func(ctx context.Context, b *balance.Balance) error {
			// Simulate another writer landing first.
			deps.repo.createFn = nil
			winner := *b
			winner.ID = uuid.New()
			deps.repo.rows[balanceKey(b.EmployeeID.String(), b.WorkYear)] = winner
			return gorm.ErrDuplicatedKey
		}

		b, err := deps.service.EnsureWorkYearBalance(ctx, emp.ID.String(), 0)
		assert.NoError(t, err)
		assert.NotNil(t, b)
	})

	t.Run("per-employee overrides replace the default allocation", func(t *testing.T) {
		emp := newEmployee(2)
		emp.AnnualLimit = 25
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		b, err := deps.service.EnsureWorkYearBalance(ctx, emp.ID.String(), 1)
		assert.NoError(t, err)
		assert.Equal(t, 25, b.Annual.Allocated)
	})

	t.Run("negative work year is rejected", func(t *testing.T) {
		emp := newEmployee(2)
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		_, err := deps.service.EnsureWorkYearBalance(ctx, emp.ID.String(), -1)
		assert.ErrorIs(t, err, balanceerrors.ErrInvalidWorkYear)
	})

	t.Run("unknown employee", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.EnsureWorkYearBalance(ctx, uuid.New().String(), 0)
		assert.ErrorIs(t, err, balanceerrors.ErrEmployeeNotFound)
	})

	t.Run("employee without a hire date", func(t *testing.T) {
		emp := newEmployee(2)
		emp.HireDate = nil
		emp.JoiningDate = nil
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		_, err := deps.service.EnsureWorkYearBalance(ctx, emp.ID.String(), 0)
		assert.ErrorIs(t, err, balanceerrors.ErrEmployeeHasNoHireDate)
	})

	t.Run("invalid employee id", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.EnsureWorkYearBalance(ctx, "not-a-uuid", 0)
		assert.ErrorIs(t, err, balanceerrors.ErrInvalidEmployeeID)
	})
}

func TestBalanceService_ApplyUsage(t *testing.T) {
	ctx := context.Background()

	t.Run("approval moves used days and recomputes remaining", func(t *testing.T) {
		emp := newEmployee(2)
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		b, err := deps.service.ApplyUsage(ctx, emp.ID.String(), 1, leavetype.CategoryAnnual, 3)
		assert.NoError(t, err)
		assert.Equal(t, 3, b.Annual.Used)
		assert.Equal(t, 17, b.Annual.Remaining)
		assert.Contains(t, deps.txRepo.kinds(emp.ID.String()), balance.TxUsage)
	})

	t.Run("cancellation restores the days", func(t *testing.T) {
		emp := newEmployee(2)
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		_, err := deps.service.ApplyUsage(ctx, emp.ID.String(), 1, leavetype.CategorySick, 4)
		assert.NoError(t, err)

		b, err := deps.service.ApplyUsage(ctx, emp.ID.String(), 1, leavetype.CategorySick, -4)
		assert.NoError(t, err)
		assert.Equal(t, 0, b.Sick.Used)
		assert.Equal(t, balance.DefaultSickAllocation, b.Sick.Remaining)
		assert.Contains(t, deps.txRepo.kinds(emp.ID.String()), balance.TxCancellation)
	})

	t.Run("overuse goes negative instead of failing", func(t *testing.T) {
		emp := newEmployee(1)
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		// Work year 0 has no annual allocation at all.
		b, err := deps.service.ApplyUsage(ctx, emp.ID.String(), 0, leavetype.CategoryAnnual, 2)
		assert.NoError(t, err)
		assert.Equal(t, -2, b.Annual.Remaining)
		assert.Equal(t, 2, b.Annual.Advance)
	})

	t.Run("usage on a caller transaction writes the same math", func(t *testing.T) {
		emp := newEmployee(2)
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectRollback()

		tx, err := deps.db.Begin()
		assert.NoError(t, err)

		b, err := deps.service.ApplyUsageTx(ctx, tx, emp.ID.String(), 1, leavetype.CategoryAnnual, 3)
		assert.NoError(t, err)
		assert.Equal(t, 3, b.Annual.Used)
		assert.Equal(t, 17, b.Annual.Remaining)
		assert.Contains(t, deps.txRepo.kinds(emp.ID.String()), balance.TxUsage)
		assert.NoError(t, tx.Rollback())
	})

	t.Run("medical usage lands in the sick bucket", func(t *testing.T) {
		emp := newEmployee(2)
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		b, err := deps.service.ApplyUsage(ctx, emp.ID.String(), 1, leavetype.CategoryMedical, 2)
		assert.NoError(t, err)
		assert.Equal(t, 2, b.Sick.Used)
		assert.Equal(t, 0, b.Annual.Used)
	})
}

func TestBalanceService_GetSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("summary carries the current period and request stats", func(t *testing.T) {
		emp := newEmployee(2)
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		deps.requests.statsFn = func(ctx context.Context, employeeID string, workYear int) (balance.RequestStats, error) {
			return balance.RequestStats{Total: 3, Approved: 2, Pending: 1, DaysApproved: 5}, nil
		}

		resp, err := deps.service.GetSummary(ctx, emp.ID.String())
		assert.NoError(t, err)
		assert.Equal(t, emp.ID.String(), resp.Employee.ID)
		assert.Equal(t, 2, resp.WorkYear)
		assert.Len(t, resp.Balances, 3)
		assert.Equal(t, 2, resp.Statistics.Approved)
		assert.NotEmpty(t, resp.WorkYearPeriod.StartDate)
	})

	t.Run("invalid employee id", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.GetSummary(ctx, "bogus")
		assert.ErrorIs(t, err, balanceerrors.ErrInvalidEmployeeID)
	})
}

func TestBalanceService_GetCarryForwardSummary(t *testing.T) {
	ctx := context.Background()
	emp := newEmployee(3)
	deps := setupBalanceServiceTest(t, emp)
	defer deps.db.Close()

	_, err := deps.service.EnsureWorkYearBalance(ctx, emp.ID.String(), 3)
	assert.NoError(t, err)

	resp, err := deps.service.GetCarryForwardSummary(ctx, emp.ID.String())
	assert.NoError(t, err)
	assert.Len(t, resp.WorkYears, 4)

	// 0 carries into 1 nothing, 1 carries 20 into 2, 2 carries 20 into 3.
	assert.Equal(t, 40, resp.TotalCarriedForward)
}

func TestBalanceService_Adjust(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New().String()

	t.Run("bumps allocation inside a transaction", func(t *testing.T) {
		emp := newEmployee(2)
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		b, err := deps.service.Adjust(ctx, emp.ID.String(), balance.AdjustRequest{
			WorkYear: 1,
			Category: "annual",
			Days:     5,
			Reason:   "tenure award",
		}, actorID)
		assert.NoError(t, err)
		assert.Equal(t, 25, b.Annual.Allocated)
		assert.Equal(t, 25, b.Annual.Remaining)
		assert.Contains(t, deps.txRepo.kinds(emp.ID.String()), balance.TxAdjustment)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("zero days is rejected", func(t *testing.T) {
		emp := newEmployee(2)
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		_, err := deps.service.Adjust(ctx, emp.ID.String(), balance.AdjustRequest{
			WorkYear: 1,
			Category: "annual",
			Reason:   "noop",
		}, actorID)
		assert.ErrorIs(t, err, balanceerrors.ErrZeroAdjustment)
	})

	t.Run("reason is required", func(t *testing.T) {
		emp := newEmployee(2)
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		_, err := deps.service.Adjust(ctx, emp.ID.String(), balance.AdjustRequest{
			WorkYear: 1,
			Category: "annual",
			Days:     2,
		}, actorID)
		assert.ErrorIs(t, err, balanceerrors.ErrAdjustmentReasonRequired)
	})

	t.Run("unknown category is rejected", func(t *testing.T) {
		emp := newEmployee(2)
		deps := setupBalanceServiceTest(t, emp)
		defer deps.db.Close()

		_, err := deps.service.Adjust(ctx, emp.ID.String(), balance.AdjustRequest{
			WorkYear: 1,
			Category: "maternity",
			Days:     2,
			Reason:   "oops",
		}, actorID)
		assert.ErrorIs(t, err, balanceerrors.ErrUnknownCategory)
	})
}
