package consumer

import (
	"context"
	"encoding/json"

	"leaveledger/internal/balance"
	"leaveledger/internal/events"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ConsumeEmployeeCreated seeds the first work-year balance the moment a
// hire is announced, so the first leave request never races balance
// creation. EnsureWorkYearBalance is idempotent, so redelivery is safe.
func ConsumeEmployeeCreated(
	ctx context.Context,
	reader *kafkago.Reader,
	balanceService balance.Service,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.employee_created")
	log.Info("employee created consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("employee created consumer stopped")
				return
			}
			log.Error("fetch employee created message failed", zap.Error(err))
			continue
		}

		var event events.EmployeeCreatedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode employee_created event failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		if _, err := balanceService.EnsureWorkYearBalance(ctx, event.EmployeeID, 0); err != nil {
			log.Error("seed initial balance failed",
				zap.String("employee_id", event.EmployeeID),
				zap.Error(err),
			)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit employee created message failed", zap.Error(err))
			continue
		}

		log.Info("initial balance seeded from employee_created event",
			zap.String("employee_id", event.EmployeeID),
		)
	}
}
