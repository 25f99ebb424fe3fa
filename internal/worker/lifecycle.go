package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sqs-event-poller/internal/catalog"
	"sqs-event-poller/internal/invoker"
	"sqs-event-poller/internal/logger"
	"sqs-event-poller/internal/metrics"
	"sqs-event-poller/internal/queue"
)

// Process hands a non-empty batch to the consumer and deletes it only when the
// invocation succeeded. A failed invocation is logged and leaves every message
// in the queue. Delete errors other than a missing queue are returned.
func Process(ctx context.Context, t queue.Transport, inv invoker.Invoker, def catalog.Definition, address string, batch queue.Batch) error {
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	err := inv.Invoke(ctx, def.Function, invoker.NewEvent(batch, def.Region, def.ARN))
	metrics.InvocationDuration.WithLabelValues(def.QueueName).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Invocations.WithLabelValues(def.QueueName, "failure").Inc()
		logger.WarnCtx(ctx, "Invocation failed, messages left for redelivery",
			zap.String("queue", def.QueueName), zap.String("function", def.Function),
			zap.Int("messages", len(batch)), zap.Error(err))
		return nil
	}
	metrics.Invocations.WithLabelValues(def.QueueName, "success").Inc()

	if err := t.DeleteBatch(ctx, address, batch); err != nil {
		if queue.IsNotFound(err) {
			logger.WarnCtx(ctx, "Queue vanished before delete, messages dropped",
				zap.String("queue", def.QueueName), zap.Error(err))
			return nil
		}
		return fmt.Errorf("delete batch: %w", err)
	}
	metrics.MessagesDeleted.WithLabelValues(def.QueueName).Add(float64(len(batch)))
	return nil
}
