package interfaces

import (
	"context"
	"time"
)

// QueuedOperation is a detached update/destroy operation waiting for a
// worker. It carries only data so distributed queues can serialize it; the
// executing worker re-resolves the provider from the infrastructure record.
type QueuedOperation struct {
	Operation  *Operation   `json:"operation"`
	Patch      *UpdatePatch `json:"patch,omitempty"`
	EnqueuedAt time.Time    `json:"enqueued_at"`
}

// OperationQueue accepts detached operations for asynchronous execution
type OperationQueue interface {
	Enqueue(ctx context.Context, qop *QueuedOperation) error
	Close() error
	Metrics() QueueMetrics
}

// QueueMetrics reports queue throughput and depth
type QueueMetrics struct {
	TotalEnqueued   int64         `json:"total_enqueued"`
	TotalDequeued   int64         `json:"total_dequeued"`
	CurrentDepth    int           `json:"current_depth"`
	AverageWaitTime time.Duration `json:"average_wait_time"`
	OldestEnqueued  time.Time     `json:"oldest_enqueued,omitempty"`
}

// OperationExecutor runs one queued operation to its terminal status
type OperationExecutor func(ctx context.Context, qop *QueuedOperation) error

// WorkerPool drains an OperationQueue through an OperationExecutor
type WorkerPool interface {
	Start()
	Stop(ctx context.Context) error
}
