package leaverequest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"leaveledger/internal/attendance"
	"leaveledger/internal/balance"
	"leaveledger/internal/employee"
	"leaveledger/internal/events"
	leaverequesterrors "leaveledger/internal/leaverequest/errors"
	"leaveledger/internal/leavetype"
	"leaveledger/internal/messaging/kafka"
	"leaveledger/internal/shared/contextutil"
	"leaveledger/internal/workyear"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=leaverequest_service.go -destination=mock/leaverequest_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, actorID string, req CreateRequest) (Response, error)
	GetAll(ctx context.Context, status string) ([]Response, error)
	GetByEmployee(ctx context.Context, employeeID string) ([]Response, error)
	GetByID(ctx context.Context, id string) (Response, error)
	// Approve moves a pending request to APPROVED, charges the balance,
	// writes ON_LEAVE attendance and cascades carry-forward.
	Approve(ctx context.Context, actorID, id string) (Response, error)
	Reject(ctx context.Context, actorID, id, rejectionReason string) (Response, error)
	// Cancel retires a pending or approved request, recording who
	// cancelled it and why. Approved days are returned to the balance
	// and the attendance rows are removed.
	Cancel(ctx context.Context, actorID, id, cancellationReason string) (Response, error)
}

type service struct {
	db         *sql.DB
	repo       Repository
	employees  employee.Repository
	leaveTypes leavetype.Repository
	balances   balance.Service
	reconciler balance.ReconcileService
	attendance attendance.Repository
	outbox     kafka.OutboxRepository
	locks      *balance.EmployeeLocks
	logger     *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	employees employee.Repository,
	leaveTypes leavetype.Repository,
	balances balance.Service,
	reconciler balance.ReconcileService,
	attendanceRepo attendance.Repository,
	outboxRepo kafka.OutboxRepository,
	locks *balance.EmployeeLocks,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leaverequest.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leaverequest.service")
	}
	return &service{
		db:         db,
		repo:       repo,
		employees:  employees,
		leaveTypes: leaveTypes,
		balances:   balances,
		reconciler: reconciler,
		attendance: attendanceRepo,
		outbox:     outboxRepo,
		locks:      locks,
		logger:     l,
	}
}

// resolveCategory prefers the leave type catalog; codes without an
// active catalog row go through the alias table.
func (s *service) resolveCategory(ctx context.Context, code string) leavetype.Category {
	if s.leaveTypes != nil {
		lt, err := s.leaveTypes.FindByCode(ctx, code)
		switch {
		case err == nil && lt.IsActive:
			if cat := leavetype.Category(lt.Category); cat.Valid() {
				return cat
			}
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			s.logger.Warn("leave type catalog lookup failed",
				zap.String("code", code),
				zap.Error(err),
			)
		}
	}
	return leavetype.ParseCategory(code, s.logger)
}

func parseDate(value string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, leaverequesterrors.ErrInvalidDateFormat
	}
	return d, nil
}

func (s *service) Create(ctx context.Context, actorID string, req CreateRequest) (Response, error) {
	s.logger.Debug("create leave request",
		zap.String("actor_id", actorID),
		zap.String("employee_id", req.EmployeeID),
		zap.String("leave_type", req.LeaveType),
	)

	createdBy, err := uuid.Parse(actorID)
	if err != nil {
		return Response{}, leaverequesterrors.ErrInvalidActorID
	}
	employeeUUID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		return Response{}, leaverequesterrors.ErrInvalidEmployeeID
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return Response{}, err
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return Response{}, err
	}
	if startDate.After(endDate) {
		return Response{}, leaverequesterrors.ErrInvalidDateRange
	}

	emp, err := s.employees.FindByID(ctx, req.EmployeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Response{}, leaverequesterrors.ErrInvalidEmployeeID
		}
		return Response{}, err
	}
	hireDate, ok := emp.StartDate()
	if !ok {
		return Response{}, leaverequesterrors.ErrInvalidEmployeeID
	}
	if startDate.Before(hireDate) {
		return Response{}, leaverequesterrors.ErrStartBeforeHire
	}

	// The start date decides which work year the request charges, even
	// when the leave straddles an anniversary.
	wy := workyear.Calc(hireDate, startDate)
	category := s.resolveCategory(ctx, req.LeaveType)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create leave request begin tx failed", zap.Error(err))
		return Response{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	overlap, err := qtx.HasOverlappingPeriod(ctx, req.EmployeeID, startDate, endDate, nil)
	if err != nil {
		s.logger.Error("create leave request overlap check failed", zap.Error(err))
		return Response{}, err
	}
	if overlap {
		s.logger.Warn("leave request overlap detected",
			zap.String("employee_id", req.EmployeeID),
			zap.String("start_date", req.StartDate),
			zap.String("end_date", req.EndDate),
		)
		return Response{}, leaverequesterrors.ErrOverlappingRequest
	}

	l := &LeaveRequest{
		ID:         uuid.New(),
		EmployeeID: employeeUUID,
		LeaveType:  req.LeaveType,
		Category:   string(category),
		WorkYear:   wy,
		StartDate:  startDate,
		EndDate:    endDate,
		TotalDays:  int(endDate.Sub(startDate).Hours()/24) + 1,
		Reason:     req.Reason,
		Status:     StatusPending,
		IsActive:   true,
		CreatedBy:  createdBy,
	}

	if err := qtx.Create(ctx, l); err != nil {
		s.logger.Error("create leave request persist failed", zap.Error(err))
		return Response{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create leave request commit failed", zap.Error(err))
		return Response{}, err
	}

	s.logger.Info("leave request created",
		zap.String("request_id", l.ID.String()),
		zap.String("employee_id", req.EmployeeID),
		zap.String("category", l.Category),
		zap.Int("work_year", wy),
		zap.Int("total_days", l.TotalDays),
	)
	return mapToResponse(*l), nil
}

func (s *service) GetAll(ctx context.Context, status string) ([]Response, error) {
	requests, err := s.repo.FindAll(ctx, status)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(requests), nil
}

func (s *service) GetByEmployee(ctx context.Context, employeeID string) ([]Response, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, leaverequesterrors.ErrInvalidEmployeeID
	}
	requests, err := s.repo.FindAllByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(requests), nil
}

func (s *service) GetByID(ctx context.Context, id string) (Response, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Response{}, leaverequesterrors.ErrInvalidRequestID
	}
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Response{}, leaverequesterrors.ErrRequestNotFound
		}
		return Response{}, err
	}
	return mapToResponse(*l), nil
}

func (s *service) Approve(ctx context.Context, actorID, id string) (Response, error) {
	approver, err := uuid.Parse(actorID)
	if err != nil {
		return Response{}, leaverequesterrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(id); err != nil {
		return Response{}, leaverequesterrors.ErrInvalidRequestID
	}

	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Response{}, leaverequesterrors.ErrRequestNotFound
		}
		return Response{}, err
	}
	if l.Status != StatusPending {
		return Response{}, leaverequesterrors.ErrNotPending
	}

	unlock := s.locks.Lock(l.EmployeeID.String())
	defer unlock()

	now := time.Now().UTC()
	l.Status = StatusApproved
	l.ApprovedBy = &approver
	l.ApprovedAt = &now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("approve leave request begin tx failed", zap.Error(err))
		return Response{}, err
	}
	defer tx.Rollback()

	// Status, staged event, balance charge and attendance land in one
	// transaction: a failure on any of them leaves the request PENDING.
	qtx := s.repo.WithTx(tx)
	if err := qtx.Update(ctx, l); err != nil {
		s.logger.Error("approve leave request persist failed", zap.Error(err))
		return Response{}, err
	}

	if err := s.stageEvent(ctx, tx, l, events.LeaveApprovedTopic, events.LeaveApprovedEvent{
		EventType:  "leave.approved",
		RequestID:  l.ID.String(),
		EmployeeID: l.EmployeeID.String(),
		Category:   l.Category,
		WorkYear:   l.WorkYear,
		TotalDays:  l.TotalDays,
		StartDate:  l.StartDate.Format("2006-01-02"),
		EndDate:    l.EndDate.Format("2006-01-02"),
		ApprovedBy: actorID,
		OccurredAt: now,
	}); err != nil {
		return Response{}, err
	}

	if _, err := s.balances.ApplyUsageTx(ctx, tx, l.EmployeeID.String(), l.WorkYear, leavetype.Category(l.Category), l.TotalDays); err != nil {
		s.logger.Error("charge balance on approval failed",
			zap.String("request_id", l.ID.String()),
			zap.Error(err),
		)
		return Response{}, err
	}
	if _, err := s.attendance.WithTx(tx).CreateForLeave(ctx, l.EmployeeID, l.ID, daysBetween(l.StartDate, l.EndDate), l.Reason); err != nil {
		s.logger.Error("write leave attendance failed",
			zap.String("request_id", l.ID.String()),
			zap.Error(err),
		)
		return Response{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("approve leave request commit failed", zap.Error(err))
		return Response{}, err
	}
	s.balances.InvalidateSummary(ctx, l.EmployeeID.String())

	// The chain walk is derived data; if this inline pass fails, the
	// staged event replays it on delivery.
	if _, err := s.reconciler.CascadeFrom(ctx, l.EmployeeID.String(), l.WorkYear); err != nil {
		s.logger.Error("cascade after approval failed",
			zap.String("request_id", l.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("leave request approved",
		zap.String("request_id", l.ID.String()),
		zap.String("employee_id", l.EmployeeID.String()),
		zap.Int("work_year", l.WorkYear),
		zap.Int("total_days", l.TotalDays),
	)
	return mapToResponse(*l), nil
}

func (s *service) Reject(ctx context.Context, actorID, id, rejectionReason string) (Response, error) {
	approver, err := uuid.Parse(actorID)
	if err != nil {
		return Response{}, leaverequesterrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(id); err != nil {
		return Response{}, leaverequesterrors.ErrInvalidRequestID
	}
	if rejectionReason == "" {
		return Response{}, leaverequesterrors.ErrRejectionReasonRequired
	}

	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Response{}, leaverequesterrors.ErrRequestNotFound
		}
		return Response{}, err
	}
	if l.Status != StatusPending {
		return Response{}, leaverequesterrors.ErrNotPending
	}

	l.Status = StatusRejected
	l.ApprovedBy = &approver
	l.RejectionReason = &rejectionReason

	if err := s.repo.Update(ctx, l); err != nil {
		s.logger.Error("reject leave request persist failed", zap.Error(err))
		return Response{}, err
	}

	s.logger.Info("leave request rejected",
		zap.String("request_id", l.ID.String()),
		zap.String("employee_id", l.EmployeeID.String()),
	)
	return mapToResponse(*l), nil
}

func (s *service) Cancel(ctx context.Context, actorID, id, cancellationReason string) (Response, error) {
	canceller, err := uuid.Parse(actorID)
	if err != nil {
		return Response{}, leaverequesterrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(id); err != nil {
		return Response{}, leaverequesterrors.ErrInvalidRequestID
	}
	if cancellationReason == "" {
		return Response{}, leaverequesterrors.ErrCancellationReasonRequired
	}

	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Response{}, leaverequesterrors.ErrRequestNotFound
		}
		return Response{}, err
	}
	if l.Status != StatusPending && l.Status != StatusApproved {
		return Response{}, leaverequesterrors.ErrNotCancellable
	}
	wasApproved := l.Status == StatusApproved

	unlock := s.locks.Lock(l.EmployeeID.String())
	defer unlock()

	now := time.Now().UTC()
	l.Status = StatusCancelled
	l.IsActive = false
	l.CancelledBy = &canceller
	l.CancelledAt = &now
	l.CancellationReason = &cancellationReason

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("cancel leave request begin tx failed", zap.Error(err))
		return Response{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if err := qtx.Update(ctx, l); err != nil {
		s.logger.Error("cancel leave request persist failed", zap.Error(err))
		return Response{}, err
	}

	if wasApproved {
		if err := s.stageEvent(ctx, tx, l, events.LeaveCancelledTopic, events.LeaveCancelledEvent{
			EventType:  "leave.cancelled",
			RequestID:  l.ID.String(),
			EmployeeID: l.EmployeeID.String(),
			Category:   l.Category,
			WorkYear:   l.WorkYear,
			TotalDays:  l.TotalDays,
			Reason:     cancellationReason,
			OccurredAt: now,
		}); err != nil {
			return Response{}, err
		}

		if _, err := s.balances.ApplyUsageTx(ctx, tx, l.EmployeeID.String(), l.WorkYear, leavetype.Category(l.Category), -l.TotalDays); err != nil {
			s.logger.Error("restore balance on cancel failed",
				zap.String("request_id", l.ID.String()),
				zap.Error(err),
			)
			return Response{}, err
		}
		if err := s.attendance.WithTx(tx).DeleteByLeaveRequest(ctx, l.ID); err != nil {
			s.logger.Error("delete leave attendance failed",
				zap.String("request_id", l.ID.String()),
				zap.Error(err),
			)
			return Response{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("cancel leave request commit failed", zap.Error(err))
		return Response{}, err
	}

	if wasApproved {
		s.balances.InvalidateSummary(ctx, l.EmployeeID.String())
		if _, err := s.reconciler.CascadeFrom(ctx, l.EmployeeID.String(), l.WorkYear); err != nil {
			s.logger.Error("cascade after cancel failed",
				zap.String("request_id", l.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("leave request cancelled",
		zap.String("request_id", l.ID.String()),
		zap.String("employee_id", l.EmployeeID.String()),
		zap.Bool("was_approved", wasApproved),
	)
	return mapToResponse(*l), nil
}

func (s *service) stageEvent(ctx context.Context, tx *sql.Tx, l *LeaveRequest, topic string, event any) error {
	if s.outbox == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	eventType := ""
	switch e := event.(type) {
	case events.LeaveApprovedEvent:
		eventType = e.EventType
	case events.LeaveCancelledEvent:
		eventType = e.EventType
	}

	if err := s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: "leave_request",
		AggregateID:   l.EmployeeID.String(),
		EventType:     eventType,
		Topic:         topic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}); err != nil {
		s.logger.Error("stage leave event failed",
			zap.String("request_id", l.ID.String()),
			zap.String("topic", topic),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func daysBetween(start, end time.Time) []time.Time {
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
