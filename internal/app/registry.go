package app

import (
	"database/sql"

	"leaveledger/internal/attendance"
	"leaveledger/internal/balance"
	"leaveledger/internal/employee"
	"leaveledger/internal/leaverequest"
	"leaveledger/internal/leavetype"
	"leaveledger/internal/messaging/kafka"
	"leaveledger/internal/rbac"
	"leaveledger/internal/rbac/infra"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	// --- Repositories ---
	rbacRepo := rbac.NewRepository(gormDB)
	employeeRepo := employee.NewRepository(gormDB)
	attendanceRepo := attendance.NewRepository(gormDB)
	leaveTypeRepo := leavetype.NewRepository(gormDB)
	balanceRepo := balance.NewRepository(gormDB)
	transactionRepo := balance.NewTransactionRepository(gormDB)
	requestRepo := leaverequest.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer()
	if err != nil {
		return err
	}
	rbacService := rbac.NewService(rbacRepo, enforcer)

	// --- Services ---
	// One lock set serializes every balance writer for an employee:
	// lifecycle, adjustments and reconciliation all share it.
	locks := balance.NewEmployeeLocks()
	balanceService := balance.NewService(db, balanceRepo, transactionRepo, employeeRepo, requestRepo, locks, rdb)
	reconciler := balance.NewReconcileService(db, balanceRepo, balanceService, employeeRepo, requestRepo, locks)
	requestService := leaverequest.NewService(
		db,
		requestRepo,
		employeeRepo,
		leaveTypeRepo,
		balanceService,
		reconciler,
		attendanceRepo,
		outboxRepo,
		locks,
	)

	// --- Handlers ---
	balanceHandler := balance.NewHandler(balanceService, reconciler)
	requestHandler := leaverequest.NewHandler(requestService)
	leaveTypeHandler := leavetype.NewHandler(leaveTypeRepo)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		balance.RegisterRoutes(api, balanceHandler, rbacService, rdb)
		leaverequest.RegisterRoutes(api, requestHandler, rbacService, rdb)
		leavetype.RegisterRoutes(api, leaveTypeHandler, rbacService)
	}

	return nil
}
