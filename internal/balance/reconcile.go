package balance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	balanceerrors "leaveledger/internal/balance/errors"
	"leaveledger/internal/employee"
	"leaveledger/internal/leavetype"
	"leaveledger/internal/workyear"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ChainAction records what one chain step did to a work year.
type ChainAction struct {
	WorkYear       int    `json:"work_year"`
	PrevRemaining  int    `json:"prev_remaining"`
	Allocation     int    `json:"allocation"`
	CarriedBefore  int    `json:"carried_before"`
	CarriedForward int    `json:"carried_forward"`
	Changed        bool   `json:"changed"`
	Reason         string `json:"reason"`
}

// ChainReport is the outcome of one carry-forward chain walk.
type ChainReport struct {
	EmployeeID string        `json:"employee_id"`
	Actions    []ChainAction `json:"actions"`
	Warnings   []string      `json:"warnings,omitempty"`
}

// EmployeeReport is the outcome of a full per-employee reconciliation.
type EmployeeReport struct {
	EmployeeID  string      `json:"employee_id"`
	SyncedYears int         `json:"synced_years"`
	Chain       ChainReport `json:"chain"`
}

// BulkReport aggregates a run over many employees.
type BulkReport struct {
	Processed int               `json:"processed"`
	Failed    int               `json:"failed"`
	Failures  map[string]string `json:"failures,omitempty"`
}

// AnniversaryDetail is one employee's outcome in an anniversary run.
type AnniversaryDetail struct {
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
	WorkYear   int    `json:"work_year,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// AnniversaryReport aggregates anniversary processing for one date.
type AnniversaryReport struct {
	Date      string              `json:"date"`
	Processed int                 `json:"processed"`
	Skipped   int                 `json:"skipped"`
	Failed    int                 `json:"failed"`
	Details   []AnniversaryDetail `json:"details"`
}

//go:generate mockgen -source=reconcile.go -destination=mock/reconcile_service_mock.go -package=mock
type ReconcileService interface {
	// SyncUsage rebuilds used days for one work year from approved,
	// active leave requests.
	SyncUsage(ctx context.Context, employeeID string, workYear int) (*Balance, error)
	// RecalculateChain ensures balances exist up to the current work
	// year, then rewrites every carry-forward link. Idempotent.
	RecalculateChain(ctx context.Context, employeeID string) (ChainReport, error)
	// CascadeFrom rewrites the chain suffix after a mutation in the
	// given work year. Carry-forward only flows forward in time, so
	// earlier years are untouched.
	CascadeFrom(ctx context.Context, employeeID string, fromWorkYear int) (ChainReport, error)
	// ReconcileEmployee syncs usage for every work year and then
	// recalculates the whole chain, under the employee lock.
	ReconcileEmployee(ctx context.Context, employeeID string) (EmployeeReport, error)
	// ReconcileAll runs ReconcileEmployee over every active employee
	// with bounded concurrency, continuing past individual failures.
	ReconcileAll(ctx context.Context, concurrency int) (BulkReport, error)
	// ProcessAnniversaries ensures the new work-year balance for every
	// employee whose hire anniversary falls on the date.
	ProcessAnniversaries(ctx context.Context, date time.Time) (AnniversaryReport, error)
}

type reconciler struct {
	db        *sql.DB
	repo      Repository
	store     Service
	employees employee.Repository
	requests  RequestSource
	locks     *EmployeeLocks
	logger    *zap.Logger
}

func NewReconcileService(
	db *sql.DB,
	repo Repository,
	store Service,
	employees employee.Repository,
	requests RequestSource,
	locks *EmployeeLocks,
	logger ...*zap.Logger,
) ReconcileService {
	l := zap.L().Named("balance.reconcile")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.reconcile")
	}
	return &reconciler{
		db:        db,
		repo:      repo,
		store:     store,
		employees: employees,
		requests:  requests,
		locks:     locks,
		logger:    l,
	}
}

func (r *reconciler) SyncUsage(ctx context.Context, employeeID string, workYear int) (*Balance, error) {
	b, err := r.store.EnsureWorkYearBalance(ctx, employeeID, workYear)
	if err != nil {
		return nil, err
	}

	used, err := r.requests.ApprovedDaysByCategory(ctx, employeeID, workYear)
	if err != nil {
		return nil, err
	}

	before := [3]int{b.Annual.Used, b.Sick.Used, b.Casual.Used}
	b.Annual.Used = used[leavetype.CategoryAnnual]
	b.Sick.Used = used[leavetype.CategorySick]
	b.Casual.Used = used[leavetype.CategoryCasual]
	b.Recalc()

	if before == [3]int{b.Annual.Used, b.Sick.Used, b.Casual.Used} {
		return b, nil
	}

	if err := r.repo.Save(ctx, b); err != nil {
		r.logger.Error("sync usage persist failed",
			zap.String("employee_id", employeeID),
			zap.Int("work_year", workYear),
			zap.Error(err),
		)
		return nil, err
	}
	r.store.InvalidateSummary(ctx, employeeID)

	r.logger.Info("usage resynced from approved requests",
		zap.String("employee_id", employeeID),
		zap.Int("work_year", workYear),
		zap.Int("annual_used", b.Annual.Used),
		zap.Int("sick_used", b.Sick.Used),
		zap.Int("casual_used", b.Casual.Used),
	)
	return b, nil
}

func (r *reconciler) RecalculateChain(ctx context.Context, employeeID string) (ChainReport, error) {
	return r.recalculateChain(ctx, employeeID, 0)
}

func (r *reconciler) CascadeFrom(ctx context.Context, employeeID string, fromWorkYear int) (ChainReport, error) {
	if fromWorkYear < 0 {
		fromWorkYear = 0
	}
	return r.recalculateChain(ctx, employeeID, fromWorkYear)
}

// recalculateChain loads the employee's balances once, walks consecutive
// pairs starting at fromWorkYear in memory, and persists only the rows
// whose carry-forward changed.
func (r *reconciler) recalculateChain(ctx context.Context, employeeID string, fromWorkYear int) (ChainReport, error) {
	report := ChainReport{EmployeeID: employeeID}

	emp, err := r.employees.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return report, balanceerrors.ErrEmployeeNotFound
		}
		return report, err
	}
	hireDate, ok := emp.StartDate()
	if !ok {
		return report, balanceerrors.ErrEmployeeHasNoHireDate
	}

	// Self-heal missing years so the chain has no gaps.
	currentWorkYear := workyear.Calc(hireDate, time.Now().UTC())
	for wy := 0; wy <= currentWorkYear; wy++ {
		if _, err := r.store.EnsureWorkYearBalance(ctx, employeeID, wy); err != nil {
			return report, err
		}
	}

	balances, err := r.repo.ListByEmployee(ctx, employeeID)
	if err != nil {
		return report, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("recalculate chain begin tx failed", zap.Error(err))
		return report, err
	}
	defer tx.Rollback()

	qtx := r.repo.WithTx(tx)
	changed := false

	for i := range balances {
		b := &balances[i]

		// Sick and casual never carry forward; clear drift.
		if b.Sick.CarriedForward != 0 || b.Casual.CarriedForward != 0 {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("work year %d: sick/casual carried forward reset to 0", b.WorkYear))
			b.Sick.CarriedForward = 0
			b.Casual.CarriedForward = 0
			b.Recalc()
			if err := qtx.Save(ctx, b); err != nil {
				return report, err
			}
			changed = true
		}

		if b.WorkYear == 0 {
			if b.Annual.CarriedForward != 0 {
				report.Warnings = append(report.Warnings,
					"work year 0: annual carried forward reset to 0")
				b.Annual.CarriedForward = 0
				b.Recalc()
				if err := qtx.Save(ctx, b); err != nil {
					return report, err
				}
				changed = true
			}
			continue
		}

		prev := findWorkYear(balances, b.WorkYear-1)
		if prev == nil || b.WorkYear <= fromWorkYear {
			continue
		}

		if prev.Annual.Remaining < 0 {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("work year %d: negative remaining %d (advance leave), treated as 0 for carry forward",
					prev.WorkYear, prev.Annual.Remaining))
		}

		transfer := CalculateCarryForward(prev.Annual, b.Annual.Allocated)
		action := ChainAction{
			WorkYear:       b.WorkYear,
			PrevRemaining:  prev.Annual.Remaining,
			Allocation:     b.Annual.Allocated,
			CarriedBefore:  b.Annual.CarriedForward,
			CarriedForward: transfer.Days,
			Reason:         transfer.Reason,
		}

		if b.Annual.CarriedForward != transfer.Days {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("work year %d: carried forward %d does not match expected %d, corrected",
					b.WorkYear, b.Annual.CarriedForward, transfer.Days))
			b.Annual.CarriedForward = transfer.Days
			b.Recalc()
			if err := qtx.Save(ctx, b); err != nil {
				r.logger.Error("recalculate chain persist failed",
					zap.String("employee_id", employeeID),
					zap.Int("work_year", b.WorkYear),
					zap.Error(err),
				)
				return report, err
			}
			action.Changed = true
			changed = true
		}
		report.Actions = append(report.Actions, action)
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("recalculate chain commit failed", zap.Error(err))
		return report, err
	}

	if changed {
		r.store.InvalidateSummary(ctx, employeeID)
	}
	for _, w := range report.Warnings {
		r.logger.Warn("carry forward chain corrected",
			zap.String("employee_id", employeeID),
			zap.String("finding", w),
		)
	}
	return report, nil
}

func findWorkYear(balances []Balance, workYear int) *Balance {
	for i := range balances {
		if balances[i].WorkYear == workYear {
			return &balances[i]
		}
	}
	return nil
}

func (r *reconciler) ReconcileEmployee(ctx context.Context, employeeID string) (EmployeeReport, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return EmployeeReport{}, balanceerrors.ErrInvalidEmployeeID
	}

	unlock := r.locks.Lock(employeeID)
	defer unlock()

	report := EmployeeReport{EmployeeID: employeeID}

	balances, err := r.repo.ListByEmployee(ctx, employeeID)
	if err != nil {
		return report, err
	}
	for _, b := range balances {
		if _, err := r.SyncUsage(ctx, employeeID, b.WorkYear); err != nil {
			return report, err
		}
		report.SyncedYears++
	}

	chain, err := r.RecalculateChain(ctx, employeeID)
	if err != nil {
		return report, err
	}
	report.Chain = chain
	return report, nil
}

func (r *reconciler) ReconcileAll(ctx context.Context, concurrency int) (BulkReport, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	employees, err := r.employees.FindAllActive(ctx)
	if err != nil {
		return BulkReport{}, err
	}

	var (
		mu     sync.Mutex
		report = BulkReport{Failures: map[string]string{}}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, emp := range employees {
		id := emp.ID.String()
		g.Go(func() error {
			_, err := r.ReconcileEmployee(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Failures[id] = err.Error()
				r.logger.Warn("reconcile employee failed",
					zap.String("employee_id", id),
					zap.Error(err),
				)
				// Keep going: one bad employee must not abort the run.
				return nil
			}
			report.Processed++
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	r.logger.Info("bulk reconciliation finished",
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (r *reconciler) ProcessAnniversaries(ctx context.Context, date time.Time) (AnniversaryReport, error) {
	report := AnniversaryReport{Date: date.Format("2006-01-02")}

	employees, err := r.employees.FindWithAnniversaryOn(ctx, date)
	if err != nil {
		return report, err
	}

	r.logger.Info("processing anniversaries",
		zap.String("date", report.Date),
		zap.Int("candidates", len(employees)),
	)

	for _, emp := range employees {
		id := emp.ID.String()
		detail := AnniversaryDetail{EmployeeID: id, FullName: emp.FullName}

		hireDate, ok := emp.StartDate()
		if !ok {
			report.Skipped++
			detail.Status = "skipped"
			detail.Error = "no hire date"
			report.Details = append(report.Details, detail)
			continue
		}

		wy := workyear.Calc(hireDate, date)
		if wy < 1 {
			// Hire date itself matches the month/day filter but is not
			// an anniversary yet.
			report.Skipped++
			detail.Status = "skipped"
			report.Details = append(report.Details, detail)
			continue
		}
		detail.WorkYear = wy

		err := func() error {
			unlock := r.locks.Lock(id)
			defer unlock()
			if _, err := r.store.EnsureWorkYearBalance(ctx, id, wy); err != nil {
				return err
			}
			_, err := r.CascadeFrom(ctx, id, wy-1)
			return err
		}()
		if err != nil {
			report.Failed++
			detail.Status = "error"
			detail.Error = err.Error()
			r.logger.Error("process anniversary failed",
				zap.String("employee_id", id),
				zap.Int("work_year", wy),
				zap.Error(err),
			)
		} else {
			report.Processed++
			detail.Status = "success"
		}
		report.Details = append(report.Details, detail)
	}

	r.logger.Info("anniversary processing complete",
		zap.String("date", report.Date),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}
