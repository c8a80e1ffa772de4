package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leaveledger/internal/balance"
	"leaveledger/internal/employee"
	"leaveledger/internal/leaverequest"
	"leaveledger/internal/messaging/kafka"
	"leaveledger/internal/messaging/kafka/producer"
	"leaveledger/internal/shared/connection"

	"go.uber.org/zap"
)

// RunWorker drains the outbox into Kafka and rolls work years over on
// hire anniversaries.
func RunWorker() error {
	logger := zap.L().Named("app.worker")

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

	kafkaWriter, err := connection.ConnectKafkaWithRetry(kafkaBroker, 5)
	if err != nil {
		return err
	}
	defer kafkaWriter.Close()

	outboxRepo := kafka.NewOutboxRepository(sqlDB)

	employeeRepo := employee.NewRepository(gormDB)
	balanceRepo := balance.NewRepository(gormDB)
	transactionRepo := balance.NewTransactionRepository(gormDB)
	requestRepo := leaverequest.NewRepository(gormDB)
	locks := balance.NewEmployeeLocks()
	balanceService := balance.NewService(sqlDB, balanceRepo, transactionRepo, employeeRepo, requestRepo, locks, nil)
	reconciler := balance.NewReconcileService(sqlDB, balanceRepo, balanceService, employeeRepo, requestRepo, locks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outboxWorker := producer.NewWorker(outboxRepo, kafkaWriter, 3*time.Second, logger)
	go outboxWorker.Run(ctx)
	go runAnniversaryLoop(ctx, reconciler, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("worker shutting down")
	cancel()

	return nil
}

// runAnniversaryLoop fires once per day shortly after midnight UTC.
// ProcessAnniversaries is idempotent, so a restart mid-day that runs it
// again is harmless.
func runAnniversaryLoop(ctx context.Context, reconciler balance.ReconcileService, logger *zap.Logger) {
	log := logger.Named("anniversary")

	for {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 5, 0, 0, time.UTC).AddDate(0, 0, 1)

		select {
		case <-ctx.Done():
			log.Info("anniversary loop stopped")
			return
		case <-time.After(time.Until(next)):
		}

		report, err := reconciler.ProcessAnniversaries(ctx, time.Now().UTC())
		if err != nil {
			log.Error("process anniversaries failed", zap.Error(err))
			continue
		}
		log.Info("anniversary run complete",
			zap.String("date", report.Date),
			zap.Int("processed", report.Processed),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed),
		)
	}
}
