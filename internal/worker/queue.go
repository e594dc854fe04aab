package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/getsentry/sentry-go"

	"tilewalk/client/internal/telemetry"
)

const defaultCapacity = 64

// Task is a unit of work executed on the worker goroutine.
type Task func()

// Config tunes the queue.
type Config struct {
	InitialCapacity int
	// WarningStep logs a backlog warning every time the queue depth crosses a
	// multiple of this value. Zero disables the warning.
	WarningStep int
}

// Queue is a FIFO of tasks with many producers and exactly one consumer.
// Post never blocks: the ring grows instead of rejecting work, because every
// task carries state the consumer must observe in order.
type Queue struct {
	mu     sync.Mutex
	data   []Task
	head   int
	count  int
	closed bool
	wake   chan struct{}

	config  Config
	logger  telemetry.Logger
	metrics telemetry.Metrics
}

// New constructs a queue.
func New(cfg Config, logger telemetry.Logger, metrics telemetry.Metrics) *Queue {
	capacity := cfg.InitialCapacity
	if capacity < 1 {
		capacity = defaultCapacity
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics{}
	}
	return &Queue{
		data:    make([]Task, capacity),
		wake:    make(chan struct{}, 1),
		config:  cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Post stages a task for the consumer. It returns false once the queue is closed.
func (q *Queue) Post(task Task) bool {
	if q == nil || task == nil {
		return false
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if q.count == len(q.data) {
		q.growLocked()
	}
	q.data[(q.head+q.count)%len(q.data)] = task
	q.count++
	depth := q.count
	q.mu.Unlock()

	q.metrics.Store(telemetry.KeyWorkerQueueDepth, uint64(depth))
	if step := q.config.WarningStep; step > 0 && depth >= step && depth%step == 0 && q.logger != nil {
		q.logger.Printf("[worker] backlog depth=%d", depth)
	}

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

func (q *Queue) growLocked() {
	grown := make([]Task, len(q.data)*2)
	for i := 0; i < q.count; i++ {
		grown[i] = q.data[(q.head+i)%len(q.data)]
	}
	q.data = grown
	q.head = 0
}

// Len reports the number of staged tasks.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Drain returns all staged tasks in FIFO order and clears the queue.
func (q *Queue) Drain() []Task {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil
	}
	tasks := make([]Task, q.count)
	for i := 0; i < q.count; i++ {
		idx := (q.head + i) % len(q.data)
		tasks[i] = q.data[idx]
		q.data[idx] = nil
	}
	q.head = 0
	q.count = 0
	q.metrics.Store(telemetry.KeyWorkerQueueDepth, 0)
	return tasks
}

// RunPending executes staged tasks on the calling goroutine until the queue is
// empty, including tasks posted while running. The caller becomes the
// consumer for the duration of the call and must not race with Run.
func (q *Queue) RunPending() int {
	executed := 0
	for {
		tasks := q.Drain()
		if len(tasks) == 0 {
			return executed
		}
		for _, task := range tasks {
			q.execute(task)
			executed++
		}
	}
}

// Run consumes tasks until ctx is cancelled or the queue is closed.
func (q *Queue) Run(ctx context.Context) error {
	if q == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.wake:
			q.RunPending()
			if q.isClosed() {
				return nil
			}
		}
	}
}

// Close stops accepting tasks and wakes the consumer so it can exit after
// running what is already staged.
func (q *Queue) Close() {
	if q == nil {
		return
	}
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *Queue) execute(task Task) {
	defer func() {
		if r := recover(); r != nil {
			q.metrics.Add(telemetry.KeyWorkerPanics, 1)
			sentry.CurrentHub().Recover(r)
			if q.logger != nil {
				q.logger.Printf("[worker] task panicked: %v", fmt.Sprint(r))
			}
		}
	}()
	task()
}
