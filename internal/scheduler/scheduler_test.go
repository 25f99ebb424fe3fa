package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startScheduler(t *testing.T) (*Scheduler, context.CancelFunc) {
	t.Helper()
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s, cancel
}

func TestScheduler_StartsPaused(t *testing.T) {
	s, _ := startScheduler(t)

	var ran atomic.Int32
	s.Add(func(context.Context) { ran.Add(1) })

	time.Sleep(50 * time.Millisecond)
	assert.True(t, s.Paused())
	assert.Equal(t, int32(0), ran.Load())
	assert.Equal(t, 1, s.Pending())
}

func TestScheduler_ResumeDispatchesPending(t *testing.T) {
	s, _ := startScheduler(t)

	done := make(chan struct{})
	s.Add(func(context.Context) { close(done) })
	s.Resume()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not dispatched after Resume")
	}
	assert.Equal(t, 0, s.Pending())
}

func TestScheduler_PauseHoldsNextTaskButNotRunningOne(t *testing.T) {
	s, _ := startScheduler(t)

	release := make(chan struct{})
	finished := make(chan struct{})
	var second atomic.Int32

	started := make(chan struct{})
	s.Add(func(context.Context) {
		close(started)
		<-release
		// re-enqueue like a polling cycle does
		s.Add(func(context.Context) { second.Add(1) })
		close(finished)
	})
	s.Resume()

	<-started
	s.Pause()
	close(release)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight task did not complete after Pause")
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), second.Load())
	assert.Equal(t, 1, s.Pending())

	s.Resume()
	require.Eventually(t, func() bool { return second.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_RecoversPanickingTask(t *testing.T) {
	s, _ := startScheduler(t)
	s.Resume()

	s.Add(func(context.Context) { panic("bad cycle") })

	done := make(chan struct{})
	s.Add(func(context.Context) { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler stopped dispatching after a panic")
	}
}
