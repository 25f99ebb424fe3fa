// Package resolver computes the address a queue is polled at.
package resolver

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"sqs-event-poller/internal/logger"
	"sqs-event-poller/internal/queue"
	"sqs-event-poller/internal/utils"
)

// DefaultRetryInterval is the wait between failed lookups when no endpoint
// override is configured.
const DefaultRetryInterval = 10 * time.Second

type Resolver struct {
	Lookup        queue.URLLookup
	Endpoint      string // configured endpoint override, empty for real AWS
	Emulator      bool
	RetryInterval time.Duration
}

// Resolve returns the address of the named queue with connection details
// rewritten to the configured endpoint. Lookups against the native backend
// are retried until they succeed or ctx ends.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	addr, err := r.locate(ctx, name)
	if err != nil {
		return "", err
	}
	return r.Rewrite(addr)
}

func (r *Resolver) locate(ctx context.Context, name string) (string, error) {
	if r.Emulator {
		return r.synthesize(name), nil
	}

	interval := r.RetryInterval
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	for {
		addr, err := r.Lookup.GetQueueURL(ctx, name)
		if err == nil {
			return addr, nil
		}
		if r.Endpoint != "" {
			logger.DebugCtx(ctx, "Queue lookup failed, using endpoint address",
				zap.String("queue", name), zap.Error(err))
			return r.synthesize(name), nil
		}
		logger.WarnCtx(ctx, "Queue lookup failed, retrying",
			zap.String("queue", name), zap.Duration("interval", interval), zap.Error(err))
		if err := utils.Sleep(ctx, interval); err != nil {
			return "", err
		}
	}
}

func (r *Resolver) synthesize(name string) string {
	return r.Endpoint + "/queue/" + name
}

// Rewrite replaces the scheme, host, port and userinfo of addr with those of
// the configured endpoint. The path is kept. Without an endpoint addr is
// returned unchanged.
func (r *Resolver) Rewrite(addr string) (string, error) {
	if r.Endpoint == "" {
		return addr, nil
	}
	target, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("parse queue address %q: %w", addr, err)
	}
	ep, err := url.Parse(r.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", r.Endpoint, err)
	}
	target.Scheme = ep.Scheme
	target.Host = ep.Host
	target.User = ep.User
	return target.String(), nil
}
