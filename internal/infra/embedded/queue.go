package embedded

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/overcast-io/overcast/internal/interfaces"
)

const defaultQueueCapacity = 256

// Queue is a channel-backed OperationQueue for single-process deployments.
// Enqueue blocks while the buffer is full unless the context expires first.
type Queue struct {
	ch     chan *interfaces.QueuedOperation
	closed chan struct{}

	mu        sync.Mutex
	closeOnce sync.Once

	totalEnqueued int64
	totalDequeued int64
	waitTotal     time.Duration
	oldestWaiting time.Time
	waiting       map[string]time.Time // op id -> enqueue time
}

// NewQueue creates an embedded queue with the given buffer capacity;
// capacity <= 0 selects the default.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &Queue{
		ch:      make(chan *interfaces.QueuedOperation, capacity),
		closed:  make(chan struct{}),
		waiting: make(map[string]time.Time),
	}
}

// Enqueue implements interfaces.OperationQueue
func (q *Queue) Enqueue(ctx context.Context, qop *interfaces.QueuedOperation) error {
	if qop == nil || qop.Operation == nil {
		return fmt.Errorf("queued operation requires an operation record")
	}
	if qop.EnqueuedAt.IsZero() {
		qop.EnqueuedAt = time.Now()
	}

	select {
	case <-q.closed:
		return fmt.Errorf("operation queue is closed")
	default:
	}

	select {
	case q.ch <- qop:
		q.mu.Lock()
		q.totalEnqueued++
		q.waiting[qop.Operation.ID] = qop.EnqueuedAt
		q.mu.Unlock()
		return nil
	case <-q.closed:
		return fmt.Errorf("operation queue is closed")
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	}
}

// Dequeue returns the channel workers receive from. The channel is closed by
// Close after the buffer drains.
func (q *Queue) Dequeue() <-chan *interfaces.QueuedOperation {
	return q.ch
}

// MarkDequeued records that a worker picked up the operation
func (q *Queue) MarkDequeued(qop *interfaces.QueuedOperation) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.totalDequeued++
	if enqueued, ok := q.waiting[qop.Operation.ID]; ok {
		q.waitTotal += time.Since(enqueued)
		delete(q.waiting, qop.Operation.ID)
	}
}

// Close stops accepting new operations and closes the dequeue channel
func (q *Queue) Close() error {
	q.closeOnce.Do(func() {
		close(q.closed)
		close(q.ch)
	})
	return nil
}

// Metrics implements interfaces.OperationQueue
func (q *Queue) Metrics() interfaces.QueueMetrics {
	q.mu.Lock()
	defer q.mu.Unlock()

	m := interfaces.QueueMetrics{
		TotalEnqueued: q.totalEnqueued,
		TotalDequeued: q.totalDequeued,
		CurrentDepth:  len(q.ch),
	}
	if q.totalDequeued > 0 {
		m.AverageWaitTime = q.waitTotal / time.Duration(q.totalDequeued)
	}
	for _, enqueued := range q.waiting {
		if m.OldestEnqueued.IsZero() || enqueued.Before(m.OldestEnqueued) {
			m.OldestEnqueued = enqueued
		}
	}
	return m
}
