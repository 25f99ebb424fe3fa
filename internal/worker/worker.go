package worker

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sqs-event-poller/configs"
	"sqs-event-poller/internal/catalog"
	"sqs-event-poller/internal/invoker"
	"sqs-event-poller/internal/logger"
	"sqs-event-poller/internal/metrics"
	"sqs-event-poller/internal/provision"
	"sqs-event-poller/internal/queue"
	"sqs-event-poller/internal/resolver"
	"sqs-event-poller/internal/scheduler"
	"sqs-event-poller/internal/utils"
)

// DefaultIdleDelay is the shortest period of a cycle that received nothing or failed.
const DefaultIdleDelay = time.Second

type Provisioner interface {
	Provision(ctx context.Context, def catalog.Definition) error
}

type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// EventSource polls every enabled queue and hands its batches to the invoker.
type EventSource struct {
	Transport   queue.Transport
	Provisioner Provisioner
	Resolver    Resolver
	Invoker     invoker.Invoker
	Scheduler   *scheduler.Scheduler

	AutoCreate  bool
	Emulator    bool
	SettleDelay time.Duration // wait after creating a queue on the emulator
	IdleDelay   time.Duration
}

// New wires an EventSource from cfg.
func New(cfg *configs.Config, t queue.Transport, lookup queue.URLLookup, props provision.PropertySource, inv invoker.Invoker, sched *scheduler.Scheduler) *EventSource {
	return &EventSource{
		Transport: t,
		Provisioner: &provision.Provisioner{
			Transport:  t,
			Catalog:    props,
			Endpoint:   cfg.Endpoint,
			Retries:    cfg.CreateRetries,
			RetryDelay: cfg.CreateRetryDuration,
		},
		Resolver: &resolver.Resolver{
			Lookup:        lookup,
			Endpoint:      cfg.Endpoint,
			Emulator:      cfg.IsEmulator(),
			RetryInterval: cfg.ResolveRetryDuration,
		},
		Invoker:     inv,
		Scheduler:   sched,
		AutoCreate:  cfg.AutoCreate,
		Emulator:    cfg.IsEmulator(),
		SettleDelay: cfg.EmulatorSettleDuration,
		IdleDelay:   DefaultIdleDelay,
	}
}

// Create provisions, resolves and schedules every enabled definition. Queues
// are prepared concurrently; a slow queue does not hold back the others.
// It returns once all queues are scheduled or ctx ends.
func (e *EventSource) Create(ctx context.Context, defs []catalog.Definition) error {
	var g errgroup.Group
	for _, def := range defs {
		if !def.Enabled {
			logger.Info("Event source disabled, not polling",
				zap.String("queue", def.QueueName), zap.String("function", def.Function))
			continue
		}
		g.Go(func() error {
			return e.prepare(ctx, def)
		})
	}
	return g.Wait()
}

func (e *EventSource) prepare(ctx context.Context, def catalog.Definition) error {
	if e.AutoCreate {
		if err := e.Provisioner.Provision(ctx, def); err != nil {
			return err
		}
		if e.Emulator {
			if err := utils.Sleep(ctx, e.SettleDelay); err != nil {
				return err
			}
		}
	}

	address, err := e.Resolver.Resolve(ctx, def.QueueName)
	if err != nil {
		return err
	}
	logger.InfoCtx(ctx, "Polling queue",
		zap.String("queue", def.QueueName), zap.String("address", address),
		zap.String("function", def.Function), zap.Int("batchSize", def.BatchSize))

	e.Scheduler.Add(e.loop(def, address))
	return nil
}

// Start resumes polling.
func (e *EventSource) Start() {
	e.Scheduler.Resume()
}

// Stop holds back the next cycle of every queue. Cycles already running finish.
func (e *EventSource) Stop() {
	e.Scheduler.Pause()
}

// loop returns a task that runs one cycle and schedules itself again.
func (e *EventSource) loop(def catalog.Definition, address string) scheduler.Task {
	var task scheduler.Task
	task = func(ctx context.Context) {
		start := time.Now()
		n, ok := e.cycle(ctx, def, address)
		if ctx.Err() != nil {
			return
		}
		if n == 0 || !ok {
			if err := utils.Sleep(ctx, e.IdleDelay-time.Since(start)); err != nil {
				return
			}
		}
		e.Scheduler.Add(task)
	}
	return task
}

// cycle fetches and processes one batch. It never panics and reports the
// number of messages received and whether the cycle completed cleanly.
func (e *EventSource) cycle(ctx context.Context, def catalog.Definition, address string) (n int, ok bool) {
	ctx = logger.WithTraceID(ctx, uuid.NewString())
	start := time.Now()
	defer func() {
		metrics.CycleDuration.WithLabelValues(def.QueueName).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			metrics.CycleErrors.WithLabelValues(def.QueueName).Inc()
			logger.ErrorCtx(ctx, "Polling cycle panic",
				zap.String("queue", def.QueueName), zap.Any("panic", r), zap.String("stack", string(debug.Stack())))
			ok = false
		}
	}()

	batch, err := Fetch(ctx, e.Transport, address, def.BatchSize)
	if err != nil {
		metrics.CycleErrors.WithLabelValues(def.QueueName).Inc()
		logger.WarnCtx(ctx, "Failed to receive messages", zap.String("queue", def.QueueName), zap.Error(err))
		return len(batch), false
	}
	if len(batch) == 0 {
		return 0, true
	}
	metrics.MessagesReceived.WithLabelValues(def.QueueName).Add(float64(len(batch)))
	logger.DebugCtx(ctx, "Received batch", zap.String("queue", def.QueueName), zap.Int("messages", len(batch)))

	if err := Process(ctx, e.Transport, e.Invoker, def, address, batch); err != nil {
		metrics.CycleErrors.WithLabelValues(def.QueueName).Inc()
		logger.WarnCtx(ctx, "Polling cycle failed", zap.String("queue", def.QueueName), zap.Error(err))
		return len(batch), false
	}
	return len(batch), true
}
