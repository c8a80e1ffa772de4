package balance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	balanceerrors "leaveledger/internal/balance/errors"
	"leaveledger/internal/employee"
	"leaveledger/internal/leavetype"
	"leaveledger/internal/workyear"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	summaryKeyPrefix = "leave:summary:"
	summaryCacheTTL  = 5 * time.Minute
)

func summaryCacheKey(employeeID string) string {
	return summaryKeyPrefix + employeeID
}

//go:generate mockgen -source=balance_service.go -destination=mock/balance_service_mock.go -package=mock
type Service interface {
	// EnsureWorkYearBalance returns the balance for the work year,
	// creating it (and any missing predecessors) with policy allocations
	// and carry-forward when absent. Idempotent under concurrency.
	EnsureWorkYearBalance(ctx context.Context, employeeID string, workYear int) (*Balance, error)
	// ApplyUsage moves used days on one category and recomputes the
	// derived fields. deltaDays is positive on approval, negative on
	// cancellation. Callers serialize per employee.
	ApplyUsage(ctx context.Context, employeeID string, workYear int, cat leavetype.Category, deltaDays int) (*Balance, error)
	// ApplyUsageTx is ApplyUsage on the caller's open transaction: the
	// balance write and its audit row commit or roll back with the
	// caller's other writes. The caller invalidates the summary cache
	// after commit.
	ApplyUsageTx(ctx context.Context, tx *sql.Tx, employeeID string, workYear int, cat leavetype.Category, deltaDays int) (*Balance, error)
	GetBalance(ctx context.Context, employeeID string, workYear int) (*Balance, error)
	ListBalances(ctx context.Context, employeeID string) ([]Balance, error)
	GetSummary(ctx context.Context, employeeID string) (SummaryResponse, error)
	GetCarryForwardSummary(ctx context.Context, employeeID string) (CarryForwardSummaryResponse, error)
	ListTransactions(ctx context.Context, employeeID string, limit int) ([]TransactionResponse, error)
	Adjust(ctx context.Context, employeeID string, req AdjustRequest, actorID string) (*Balance, error)
	// InvalidateSummary drops the cached summary after a mutation.
	InvalidateSummary(ctx context.Context, employeeID string)
}

type service struct {
	db        *sql.DB
	repo      Repository
	txRepo    TransactionRepository
	employees employee.Repository
	requests  RequestSource
	locks     *EmployeeLocks
	rdb       *redis.Client
	sf        *singleflight.Group
	logger    *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	txRepo TransactionRepository,
	employees employee.Repository,
	requests RequestSource,
	locks *EmployeeLocks,
	rdb *redis.Client,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("balance.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.service")
	}
	return &service{
		db:        db,
		repo:      repo,
		txRepo:    txRepo,
		employees: employees,
		requests:  requests,
		locks:     locks,
		rdb:       rdb,
		sf:        &singleflight.Group{},
		logger:    l,
	}
}

func (s *service) EnsureWorkYearBalance(ctx context.Context, employeeID string, workYear int) (*Balance, error) {
	if workYear < 0 {
		return nil, balanceerrors.ErrInvalidWorkYear
	}
	empUUID, err := uuid.Parse(employeeID)
	if err != nil {
		return nil, balanceerrors.ErrInvalidEmployeeID
	}

	b, err := s.repo.FindByEmployeeAndWorkYear(ctx, employeeID, workYear)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	emp, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, balanceerrors.ErrEmployeeNotFound
		}
		return nil, err
	}
	hireDate, ok := emp.StartDate()
	if !ok {
		return nil, balanceerrors.ErrEmployeeHasNoHireDate
	}

	alloc := AllocationFor(workYear, PolicyOverrides{
		AnnualLimit: emp.AnnualLimit,
		SickLimit:   emp.SickLimit,
		CasualLimit: emp.CasualLimit,
	})

	// Work year 0 has no predecessor; every later year pulls its
	// carry-forward from the freshly ensured previous year.
	transfer := Transfer{Days: 0, Reason: "work year 0 - no carry forward"}
	if workYear > 0 {
		prev, err := s.EnsureWorkYearBalance(ctx, employeeID, workYear-1)
		if err != nil {
			return nil, err
		}
		transfer = CalculateCarryForward(prev.Annual, alloc.Annual)
	}

	year := workyear.AnniversaryYear(hireDate, workYear)
	expiration := time.Date(year+2, time.December, 31, 0, 0, 0, 0, time.UTC)

	b = &Balance{
		ID:             uuid.New(),
		EmployeeID:     empUUID,
		WorkYear:       workYear,
		Year:           year,
		ExpirationDate: &expiration,
		Annual:         CategoryBalance{Allocated: alloc.Annual, CarriedForward: transfer.Days},
		Sick:           CategoryBalance{Allocated: alloc.Sick},
		Casual:         CategoryBalance{Allocated: alloc.Casual},
	}
	b.Recalc()

	if err := s.repo.Create(ctx, b); err != nil {
		if IsDuplicateKey(err) {
			// Lost the race: someone else created it. Fetch and return.
			s.logger.Debug("balance already exists, returning existing",
				zap.String("employee_id", employeeID),
				zap.Int("work_year", workYear),
			)
			return s.repo.FindByEmployeeAndWorkYear(ctx, employeeID, workYear)
		}
		s.logger.Error("create balance failed",
			zap.String("employee_id", employeeID),
			zap.Int("work_year", workYear),
			zap.Error(err),
		)
		return nil, err
	}

	s.recordAllocation(ctx, b, transfer)
	s.InvalidateSummary(ctx, employeeID)

	s.logger.Info("work year balance created",
		zap.String("employee_id", employeeID),
		zap.Int("work_year", workYear),
		zap.Int("annual_allocated", alloc.Annual),
		zap.Int("annual_carried_forward", transfer.Days),
	)
	return b, nil
}

func (s *service) recordAllocation(ctx context.Context, b *Balance, transfer Transfer) {
	entries := []struct {
		cat  leavetype.Category
		days int
	}{
		{leavetype.CategoryAnnual, b.Annual.Allocated},
		{leavetype.CategorySick, b.Sick.Allocated},
		{leavetype.CategoryCasual, b.Casual.Allocated},
	}
	for _, e := range entries {
		if e.days == 0 {
			continue
		}
		s.audit(ctx, &Transaction{
			ID:         uuid.New(),
			EmployeeID: b.EmployeeID,
			WorkYear:   b.WorkYear,
			Category:   string(e.cat),
			Kind:       TxAllocation,
			Days:       e.days,
			Remaining:  b.Category(e.cat).Remaining,
			Reason:     "work year allocation",
		})
	}
	if transfer.Days > 0 {
		s.audit(ctx, &Transaction{
			ID:         uuid.New(),
			EmployeeID: b.EmployeeID,
			WorkYear:   b.WorkYear,
			Category:   string(leavetype.CategoryAnnual),
			Kind:       TxCarryForward,
			Days:       transfer.Days,
			Remaining:  b.Annual.Remaining,
			Reason:     transfer.Reason,
		})
	}
}

// audit writes a transaction row; audit failures never fail the
// mutation they describe.
func (s *service) audit(ctx context.Context, t *Transaction) {
	if err := s.txRepo.Create(ctx, t); err != nil {
		s.logger.Warn("record leave transaction failed",
			zap.String("employee_id", t.EmployeeID.String()),
			zap.String("kind", t.Kind),
			zap.Error(err),
		)
	}
}

func (s *service) ApplyUsage(ctx context.Context, employeeID string, workYear int, cat leavetype.Category, deltaDays int) (*Balance, error) {
	b, err := s.EnsureWorkYearBalance(ctx, employeeID, workYear)
	if err != nil {
		return nil, err
	}

	bucket := b.Category(cat)
	if bucket == nil {
		return nil, balanceerrors.ErrUnknownCategory
	}

	bucket.Used += deltaDays
	b.Recalc()

	if err := s.repo.Save(ctx, b); err != nil {
		s.logger.Error("apply usage persist failed",
			zap.String("employee_id", employeeID),
			zap.Int("work_year", workYear),
			zap.Error(err),
		)
		return nil, err
	}

	kind := TxUsage
	if deltaDays < 0 {
		kind = TxCancellation
	}
	s.audit(ctx, &Transaction{
		ID:         uuid.New(),
		EmployeeID: b.EmployeeID,
		WorkYear:   workYear,
		Category:   string(cat),
		Kind:       kind,
		Days:       -deltaDays,
		Remaining:  bucket.Remaining,
	})
	s.InvalidateSummary(ctx, employeeID)

	if bucket.Remaining < 0 {
		s.logger.Warn("balance entered advance state",
			zap.String("employee_id", employeeID),
			zap.Int("work_year", workYear),
			zap.String("category", string(cat)),
			zap.Int("remaining", bucket.Remaining),
		)
	}
	return b, nil
}

func (s *service) ApplyUsageTx(ctx context.Context, tx *sql.Tx, employeeID string, workYear int, cat leavetype.Category, deltaDays int) (*Balance, error) {
	// Ensuring the row is idempotent creation and commits on its own;
	// only the usage mutation has to ride the caller's transaction.
	b, err := s.EnsureWorkYearBalance(ctx, employeeID, workYear)
	if err != nil {
		return nil, err
	}

	bucket := b.Category(cat)
	if bucket == nil {
		return nil, balanceerrors.ErrUnknownCategory
	}

	bucket.Used += deltaDays
	b.Recalc()

	if err := s.repo.WithTx(tx).Save(ctx, b); err != nil {
		s.logger.Error("apply usage persist failed",
			zap.String("employee_id", employeeID),
			zap.Int("work_year", workYear),
			zap.Error(err),
		)
		return nil, err
	}

	kind := TxUsage
	if deltaDays < 0 {
		kind = TxCancellation
	}
	// A failed write poisons the surrounding transaction, so the audit
	// row cannot be best-effort here.
	if err := s.txRepo.WithTx(tx).Create(ctx, &Transaction{
		ID:         uuid.New(),
		EmployeeID: b.EmployeeID,
		WorkYear:   workYear,
		Category:   string(cat),
		Kind:       kind,
		Days:       -deltaDays,
		Remaining:  bucket.Remaining,
	}); err != nil {
		s.logger.Error("record leave transaction failed",
			zap.String("employee_id", employeeID),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return nil, err
	}

	if bucket.Remaining < 0 {
		s.logger.Warn("balance entered advance state",
			zap.String("employee_id", employeeID),
			zap.Int("work_year", workYear),
			zap.String("category", string(cat)),
			zap.Int("remaining", bucket.Remaining),
		)
	}
	return b, nil
}

func (s *service) GetBalance(ctx context.Context, employeeID string, workYear int) (*Balance, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, balanceerrors.ErrInvalidEmployeeID
	}
	b, err := s.repo.FindByEmployeeAndWorkYear(ctx, employeeID, workYear)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, balanceerrors.ErrBalanceNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *service) ListBalances(ctx context.Context, employeeID string) ([]Balance, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, balanceerrors.ErrInvalidEmployeeID
	}
	return s.repo.ListByEmployee(ctx, employeeID)
}

func (s *service) GetSummary(ctx context.Context, employeeID string) (SummaryResponse, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return SummaryResponse{}, balanceerrors.ErrInvalidEmployeeID
	}

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, summaryCacheKey(employeeID)).Result(); err == nil {
			var resp SummaryResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return resp, nil
			}
		}
	}

	// Collapse concurrent rebuilds of the same summary.
	v, err, _ := s.sf.Do(summaryCacheKey(employeeID), func() (any, error) {
		return s.buildSummary(ctx, employeeID)
	})
	if err != nil {
		return SummaryResponse{}, err
	}
	resp := v.(SummaryResponse)

	if s.rdb != nil {
		if payload, err := json.Marshal(resp); err == nil {
			if err := s.rdb.Set(ctx, summaryCacheKey(employeeID), payload, summaryCacheTTL).Err(); err != nil {
				s.logger.Warn("cache summary failed", zap.String("employee_id", employeeID), zap.Error(err))
			}
		}
	}
	return resp, nil
}

func (s *service) buildSummary(ctx context.Context, employeeID string) (SummaryResponse, error) {
	emp, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SummaryResponse{}, balanceerrors.ErrEmployeeNotFound
		}
		return SummaryResponse{}, err
	}
	hireDate, ok := emp.StartDate()
	if !ok {
		return SummaryResponse{}, balanceerrors.ErrEmployeeHasNoHireDate
	}

	currentWorkYear := workyear.Calc(hireDate, time.Now().UTC())
	if _, err := s.EnsureWorkYearBalance(ctx, employeeID, currentWorkYear); err != nil {
		return SummaryResponse{}, err
	}

	balances, err := s.repo.ListByEmployee(ctx, employeeID)
	if err != nil {
		return SummaryResponse{}, err
	}

	stats, err := s.requests.CountByStatus(ctx, employeeID, currentWorkYear)
	if err != nil {
		s.logger.Warn("count requests for summary failed", zap.String("employee_id", employeeID), zap.Error(err))
	}

	start, end := workyear.Period(hireDate, currentWorkYear)
	return SummaryResponse{
		Employee: EmployeeInfo{
			ID:             emp.ID.String(),
			EmployeeNumber: emp.EmployeeNumber,
			FullName:       emp.FullName,
			HireDate:       hireDate.Format("2006-01-02"),
		},
		WorkYear: currentWorkYear,
		WorkYearPeriod: PeriodInfo{
			StartDate: start.Format("2006-01-02"),
			EndDate:   end.Format("2006-01-02"),
		},
		Balances:   mapToListResponse(balances),
		Statistics: stats,
	}, nil
}

func (s *service) GetCarryForwardSummary(ctx context.Context, employeeID string) (CarryForwardSummaryResponse, error) {
	balances, err := s.ListBalances(ctx, employeeID)
	if err != nil {
		return CarryForwardSummaryResponse{}, err
	}

	resp := CarryForwardSummaryResponse{EmployeeID: employeeID}
	for _, b := range balances {
		resp.WorkYears = append(resp.WorkYears, CarryForwardYear{
			WorkYear:       b.WorkYear,
			Year:           b.Year,
			CarriedForward: b.Annual.CarriedForward,
			Remaining:      b.Annual.Remaining,
			Used:           b.Annual.Used,
		})
		resp.TotalCarriedForward += b.Annual.CarriedForward
	}
	return resp, nil
}

func (s *service) ListTransactions(ctx context.Context, employeeID string, limit int) ([]TransactionResponse, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, balanceerrors.ErrInvalidEmployeeID
	}
	txs, err := s.txRepo.ListByEmployee(ctx, employeeID, limit)
	if err != nil {
		return nil, err
	}
	resp := make([]TransactionResponse, len(txs))
	for i, t := range txs {
		resp[i] = mapTransactionResponse(t)
	}
	return resp, nil
}

func (s *service) Adjust(ctx context.Context, employeeID string, req AdjustRequest, actorID string) (*Balance, error) {
	if req.Days == 0 {
		return nil, balanceerrors.ErrZeroAdjustment
	}
	if req.Reason == "" {
		return nil, balanceerrors.ErrAdjustmentReasonRequired
	}
	cat := leavetype.Category(req.Category)
	if !cat.Valid() {
		return nil, balanceerrors.ErrUnknownCategory
	}

	unlock := s.locks.Lock(employeeID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("adjust begin tx failed", zap.Error(err))
		return nil, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	b, err := s.EnsureWorkYearBalance(ctx, employeeID, req.WorkYear)
	if err != nil {
		return nil, err
	}

	bucket := b.Category(cat)
	bucket.Allocated += req.Days
	b.Recalc()

	if err := qtx.Save(ctx, b); err != nil {
		s.logger.Error("adjust persist failed",
			zap.String("employee_id", employeeID),
			zap.Int("work_year", req.WorkYear),
			zap.Error(err),
		)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("adjust commit failed", zap.Error(err))
		return nil, err
	}

	var actor *uuid.UUID
	if parsed, err := uuid.Parse(actorID); err == nil {
		actor = &parsed
	}
	s.audit(ctx, &Transaction{
		ID:         uuid.New(),
		EmployeeID: b.EmployeeID,
		WorkYear:   req.WorkYear,
		Category:   string(cat),
		Kind:       TxAdjustment,
		Days:       req.Days,
		Remaining:  bucket.Remaining,
		Reason:     req.Reason,
		ActorID:    actor,
	})
	s.InvalidateSummary(ctx, employeeID)

	s.logger.Info("balance adjusted",
		zap.String("employee_id", employeeID),
		zap.Int("work_year", req.WorkYear),
		zap.String("category", req.Category),
		zap.Int("days", req.Days),
	)
	return b, nil
}

func (s *service) InvalidateSummary(ctx context.Context, employeeID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, summaryCacheKey(employeeID)).Err(); err != nil {
		s.logger.Warn("invalidate summary cache failed",
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
	}
}
