// Package scheduler runs queued tasks on a single shared dispatcher that can be
// paused and resumed as a whole.
//
// Pausing holds back tasks that have not been dispatched yet; tasks already
// running finish normally. There is no per-task cancellation.
package scheduler

import (
	"context"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"sqs-event-poller/internal/logger"
	"sqs-event-poller/internal/metrics"
)

// Task is a unit of work. It receives the scheduler's run context.
type Task func(ctx context.Context)

type Scheduler struct {
	mu      sync.Mutex
	paused  bool
	pending []Task
	wake    chan struct{}
	wg      sync.WaitGroup
}

// New returns a scheduler in the paused state.
func New() *Scheduler {
	return &Scheduler{
		paused: true,
		wake:   make(chan struct{}, 1),
	}
}

// Add enqueues t. It runs once the scheduler is resumed and Run is active.
func (s *Scheduler) Add(t Task) {
	s.mu.Lock()
	s.pending = append(s.pending, t)
	n := len(s.pending)
	s.mu.Unlock()
	metrics.PendingTasks.Set(float64(n))
	s.notify()
}

// Pause stops dispatching new tasks.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume dispatches pending tasks and every task added afterwards.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	s.notify()
}

// Paused reports whether dispatching is held back.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Pending returns the number of tasks waiting for dispatch.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Run dispatches tasks until ctx is done, then waits for running tasks to return.
func (s *Scheduler) Run(ctx context.Context) {
	defer s.wg.Wait()
	for {
		for _, t := range s.take() {
			s.wg.Add(1)
			go s.run(ctx, t)
		}
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}
	}
}

func (s *Scheduler) take() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused || len(s.pending) == 0 {
		return nil
	}
	tasks := s.pending
	s.pending = nil
	metrics.PendingTasks.Set(0)
	return tasks
}

func (s *Scheduler) run(ctx context.Context, t Task) {
	defer s.wg.Done()
	defer recoverTask()
	t(ctx)
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func recoverTask() {
	if r := recover(); r != nil {
		logger.Error("Scheduled task panic",
			zap.Any("panic", r), zap.String("stack", string(debug.Stack())))
	}
}
