package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"leaveledger/internal/balance"
	"leaveledger/internal/employee"
	"leaveledger/internal/events"
	"leaveledger/internal/leaverequest"
	"leaveledger/internal/messaging/kafka/consumer"
	"leaveledger/internal/shared/connection"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RunConsumer seeds initial leave balances from employee lifecycle
// events and replays carry-forward cascades from leave lifecycle
// events.
func RunConsumer() error {
	logger := zap.L().Named("app.consumer")

	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	kafkaBroker := os.Getenv("KAFKA_BROKER")
	if kafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	employeeRepo := employee.NewRepository(gormDB)
	balanceRepo := balance.NewRepository(gormDB)
	transactionRepo := balance.NewTransactionRepository(gormDB)
	requestRepo := leaverequest.NewRepository(gormDB)
	locks := balance.NewEmployeeLocks()
	balanceService := balance.NewService(sqlDB, balanceRepo, transactionRepo, employeeRepo, requestRepo, locks, nil)
	reconcileService := balance.NewReconcileService(sqlDB, balanceRepo, balanceService, employeeRepo, requestRepo, locks)

	employeeReader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{kafkaBroker},
		Topic:          events.EmployeeCreatedTopic,
		GroupID:        "leaveledger-balance-seed",
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer employeeReader.Close()

	leaveReader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{kafkaBroker},
		GroupTopics:    []string{events.LeaveApprovedTopic, events.LeaveCancelledTopic},
		GroupID:        "leaveledger-leave-cascade",
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer leaveReader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consumer.ConsumeEmployeeCreated(ctx, employeeReader, balanceService, logger)
	go consumer.ConsumeLeaveLifecycle(ctx, leaveReader, reconcileService, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("consumer shutting down")
	cancel()

	return nil
}
