package worker

import (
	"context"

	"go.uber.org/zap"

	"sqs-event-poller/internal/logger"
	"sqs-event-poller/internal/queue"
)

// Fetch accumulates up to size messages from the queue at address. It stops
// early when a receive returns nothing. A missing queue yields whatever was
// collected so far without error.
func Fetch(ctx context.Context, t queue.Transport, address string, size int) (queue.Batch, error) {
	batch := make(queue.Batch, 0, size)
	for remaining := size; remaining > 0; {
		n := remaining
		if n > queue.MaxReceive {
			n = queue.MaxReceive
		}
		msgs, err := t.Receive(ctx, address, n)
		if err != nil {
			if queue.IsNotFound(err) {
				logger.WarnCtx(ctx, "Queue does not exist yet", zap.String("address", address), zap.Error(err))
				return batch, nil
			}
			return batch, err
		}
		if len(msgs) == 0 {
			break
		}
		if len(msgs) > remaining {
			msgs = msgs[:remaining]
		}
		batch = append(batch, msgs...)
		remaining -= len(msgs)
	}
	return batch, nil
}
