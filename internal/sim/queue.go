package sim

import (
	"context"
	"errors"

	"github.com/sasha-s/go-deadlock"

	"github.com/Alex1um/simple-unbalanced-game/internal/telemetry"
)

const (
	queueDepthMetricKey   = "sim_action_queue_depth"
	queueBlockedMetricKey = "sim_action_queue_blocked_total"
)

// ErrQueueClosed is returned to producers once the consumer side is gone.
var ErrQueueClosed = errors.New("sim: action queue closed")

// ActionQueue is a bounded FIFO ring shared by many producers and the single
// engine goroutine. Producers that find it full wait for the next drain.
type ActionQueue struct {
	mu      deadlock.Mutex
	data    []Action
	head    int
	count   int
	closed  bool
	space   chan struct{}
	metrics telemetry.Metrics
}

func NewActionQueue(capacity int, metrics telemetry.Metrics) *ActionQueue {
	if capacity < 1 {
		capacity = 1
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &ActionQueue{
		data:    make([]Action, capacity),
		space:   make(chan struct{}),
		metrics: metrics,
	}
}

func (q *ActionQueue) Capacity() int {
	return len(q.data)
}

// Send enqueues an action, blocking while the queue is full. It fails with
// ErrQueueClosed once the queue is closed or with the context's error.
func (q *ActionQueue) Send(ctx context.Context, action Action) error {
	blocked := false
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return ErrQueueClosed
		}
		if q.count < len(q.data) {
			q.data[(q.head+q.count)%len(q.data)] = action
			q.count++
			q.metrics.Store(queueDepthMetricKey, uint64(q.count))
			q.mu.Unlock()
			return nil
		}
		wait := q.space
		q.mu.Unlock()

		if !blocked {
			blocked = true
			q.metrics.Add(queueBlockedMetricKey, 1)
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Drain removes and returns everything queued at the moment of the call in
// FIFO order. It never waits. Actions sent while it runs are left for the
// next drain.
func (q *ActionQueue) Drain() []Action {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil
	}
	actions := make([]Action, q.count)
	for i := range actions {
		actions[i] = q.data[(q.head+i)%len(q.data)]
	}
	q.head = 0
	q.count = 0
	q.metrics.Store(queueDepthMetricKey, 0)
	if !q.closed {
		close(q.space)
		q.space = make(chan struct{})
	}
	return actions
}

func (q *ActionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Close wakes every waiting producer and fails later sends. Already queued
// actions can still be drained.
func (q *ActionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.space)
}

func (q *ActionQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
