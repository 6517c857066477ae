package host

import (
	"context"
	"sync"
)

// Task is a unit of deferred work run on the Loop.
type Task func(ctx context.Context)

// Loop runs tasks one at a time, in submission order, on a single goroutine.
//
// The queue is unbounded so CreateTask never blocks; event callbacks use it
// to defer anything that might take time. Once a task starts it runs to
// completion.
type Loop struct {
	mu      sync.Mutex
	queue   []Task
	wake    chan struct{}
	done    chan struct{}
	running bool
	logger  Logger
}

// NewLoop creates a stopped loop.
func NewLoop(logger Logger) *Loop {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Loop{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// CreateTask queues a task. Safe to call from any goroutine, including
// from inside a running task.
func (l *Loop) CreateTask(task Task) {
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Run processes tasks until ctx is cancelled. Tasks still queued at that
// point are dropped.
func (l *Loop) Run(ctx context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()
	defer close(l.done)

	for {
		l.RunPending(ctx)
		select {
		case <-ctx.Done():
			if n := l.Pending(); n > 0 {
				l.logger.Debug("task loop stopped with pending tasks", "pending", n)
			}
			return
		case <-l.wake:
		}
	}
}

// Wait blocks until Run has returned.
func (l *Loop) Wait() {
	<-l.done
}

// RunPending runs queued tasks on the caller's goroutine until the queue is
// empty, including tasks queued while it runs. It returns the number run.
func (l *Loop) RunPending(ctx context.Context) int {
	n := 0
	for {
		if ctx.Err() != nil {
			return n
		}
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.runTask(ctx, task)
		n++
	}
}

// runTask executes one task, recovering panics so one bad task cannot stop
// the loop.
func (l *Loop) runTask(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", "panic", r)
		}
	}()
	task(ctx)
}
