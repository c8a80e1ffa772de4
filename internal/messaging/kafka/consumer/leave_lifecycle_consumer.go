package consumer

import (
	"context"
	"encoding/json"

	"leaveledger/internal/balance"
	"leaveledger/internal/events"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ConsumeLeaveLifecycle replays the carry-forward cascade for approved
// and cancelled leave events. The event is staged in the same
// transaction as the request mutation, so a cascade that failed inline
// after commit runs again here on delivery. CascadeFrom is idempotent,
// so redelivery is safe.
func ConsumeLeaveLifecycle(
	ctx context.Context,
	reader *kafkago.Reader,
	reconciler balance.ReconcileService,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.leave_lifecycle")
	log.Info("leave lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("leave lifecycle consumer stopped")
				return
			}
			log.Error("fetch leave lifecycle message failed", zap.Error(err))
			continue
		}

		var event events.LeaveLifecycleEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode leave lifecycle event failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		if _, err := reconciler.CascadeFrom(ctx, event.EmployeeID, event.WorkYear); err != nil {
			log.Error("cascade from leave event failed",
				zap.String("employee_id", event.EmployeeID),
				zap.String("request_id", event.RequestID),
				zap.Int("work_year", event.WorkYear),
				zap.Error(err),
			)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit leave lifecycle message failed", zap.Error(err))
			continue
		}

		log.Info("carry forward cascade replayed from leave event",
			zap.String("employee_id", event.EmployeeID),
			zap.String("event_type", event.EventType),
			zap.Int("work_year", event.WorkYear),
		)
	}
}
