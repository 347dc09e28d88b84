// Package distributed provides the multi-process infrastructure backends:
// a Redis-backed operation queue and worker built on asynq, and a Redis
// mirror of operation records for cross-replica reads. Use these when more
// than one process serves the API or executes operations.
package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/pkg/logging"
)

// TaskTypeOperation is the asynq task type for detached operations
const TaskTypeOperation = "operation:execute"

// operationQueueName is the asynq queue operations are routed to
const operationQueueName = "operations"

// Queue is an asynq-backed OperationQueue. Payloads are the JSON form of
// QueuedOperation; the task id is the operation id, so redelivery of the same
// operation deduplicates at the broker.
type Queue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	logger    *logging.Logger
}

// NewQueue connects to Redis using an asynq URI (redis://host:port/db)
func NewQueue(redisURL string) (*Queue, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &Queue{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		logger:    logging.NewLogger("distributed-queue"),
	}, nil
}

// Enqueue implements interfaces.OperationQueue
func (q *Queue) Enqueue(ctx context.Context, qop *interfaces.QueuedOperation) error {
	if qop == nil || qop.Operation == nil {
		return fmt.Errorf("queued operation requires an operation record")
	}
	if qop.EnqueuedAt.IsZero() {
		qop.EnqueuedAt = time.Now()
	}

	payload, err := json.Marshal(qop)
	if err != nil {
		return fmt.Errorf("failed to encode queued operation: %w", err)
	}

	task := asynq.NewTask(TaskTypeOperation, payload)
	info, err := q.client.EnqueueContext(ctx, task,
		asynq.TaskID(qop.Operation.ID),
		asynq.Queue(operationQueueName),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue operation %s: %w", qop.Operation.ID, err)
	}

	q.logger.Debugf("Enqueued operation %s as task %s", qop.Operation.ID, info.ID)
	return nil
}

// Close implements interfaces.OperationQueue
func (q *Queue) Close() error {
	if err := q.inspector.Close(); err != nil {
		q.logger.Warnf("Failed to close inspector: %v", err)
	}
	return q.client.Close()
}

// Metrics implements interfaces.OperationQueue. Depth and throughput come
// from the broker's queue info; wait-time metrics are not tracked here.
func (q *Queue) Metrics() interfaces.QueueMetrics {
	info, err := q.inspector.GetQueueInfo(operationQueueName)
	if err != nil {
		q.logger.Warnf("Failed to read queue info: %v", err)
		return interfaces.QueueMetrics{}
	}

	return interfaces.QueueMetrics{
		TotalEnqueued:   int64(info.Processed + info.Pending + info.Active + info.Retry + info.Scheduled),
		TotalDequeued:   int64(info.Processed),
		CurrentDepth:    info.Pending,
		AverageWaitTime: info.Latency,
	}
}

// DecodeTask unpacks an asynq task back into a QueuedOperation
func DecodeTask(task *asynq.Task) (*interfaces.QueuedOperation, error) {
	if task.Type() != TaskTypeOperation {
		return nil, fmt.Errorf("unexpected task type %s", task.Type())
	}
	var qop interfaces.QueuedOperation
	if err := json.Unmarshal(task.Payload(), &qop); err != nil {
		return nil, fmt.Errorf("failed to decode queued operation: %w", err)
	}
	if qop.Operation == nil {
		return nil, fmt.Errorf("queued operation payload missing operation record")
	}
	return &qop, nil
}
