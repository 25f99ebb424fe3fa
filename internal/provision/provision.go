// Package provision creates declared queues before polling starts.
package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"sqs-event-poller/internal/catalog"
	"sqs-event-poller/internal/logger"
	"sqs-event-poller/internal/metrics"
	"sqs-event-poller/internal/queue"
	"sqs-event-poller/internal/utils"
)

// PropertySource returns the declared properties of a queue, or nil.
type PropertySource interface {
	PropertiesFor(queueName string) map[string]any
}

type Provisioner struct {
	Transport  queue.Transport
	Catalog    PropertySource
	Endpoint   string
	Retries    int
	RetryDelay time.Duration
}

// Provision creates the queue named by def. An existing queue counts as
// success. Other failures are retried Retries times, then logged. Attributes
// that cannot be encoded are logged and the queue is not created. The returned
// error is non-nil only when ctx ends first.
func (p *Provisioner) Provision(ctx context.Context, def catalog.Definition) error {
	attrs, err := Attributes(p.properties(def.QueueName))
	if err != nil {
		metrics.ProvisionFailures.WithLabelValues(def.QueueName).Inc()
		logger.WarnCtx(ctx, "Queue attributes invalid, continuing without creating it",
			zap.String("queue", def.QueueName), zap.Error(err))
		return nil
	}

	_, err = utils.Retry(ctx, p.Retries+1, p.RetryDelay, func() (struct{}, error) {
		err := p.Transport.CreateQueue(ctx, p.Endpoint, def.QueueName, attrs)
		if queue.IsAlreadyExists(err) {
			logger.DebugCtx(ctx, "Queue already exists", zap.String("queue", def.QueueName))
			return struct{}{}, nil
		}
		return struct{}{}, err
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.ProvisionFailures.WithLabelValues(def.QueueName).Inc()
		logger.WarnCtx(ctx, "Queue creation failed, continuing without it",
			zap.String("queue", def.QueueName), zap.Error(err))
		return nil
	}

	logger.InfoCtx(ctx, "Queue provisioned", zap.String("queue", def.QueueName))
	return nil
}

func (p *Provisioner) properties(name string) map[string]any {
	if p.Catalog == nil {
		return nil
	}
	return p.Catalog.PropertiesFor(name)
}

// Attributes converts declared properties to queue attributes. QueueName is
// dropped; maps and slices are JSON encoded; scalars use their string form.
func Attributes(props map[string]any) (map[string]string, error) {
	keys := make([]string, 0, len(props))
	for k := range props {
		if k == "QueueName" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make(map[string]string, len(keys))
	for _, k := range keys {
		v := props[k]
		switch v.(type) {
		case nil:
			continue
		case map[string]any, []any:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode attribute %s: %w", k, err)
			}
			attrs[k] = string(b)
		default:
			s, err := cast.ToStringE(v)
			if err != nil {
				return nil, fmt.Errorf("encode attribute %s: %w", k, err)
			}
			attrs[k] = s
		}
	}
	return attrs, nil
}
