package distributed

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/pkg/logging"
)

// Worker consumes operation tasks from Redis and runs them through the
// executor. It implements interfaces.WorkerPool.
type Worker struct {
	server   *asynq.Server
	executor interfaces.OperationExecutor
	logger   *logging.Logger
}

// NewWorker builds a worker with the given concurrency; concurrency <= 0
// selects 4.
func NewWorker(redisURL string, executor interfaces.OperationExecutor, concurrency int) (*Worker, error) {
	if executor == nil {
		return nil, fmt.Errorf("worker requires an executor")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{operationQueueName: 1},
	})

	return &Worker{
		server:   server,
		executor: executor,
		logger:   logging.NewLogger("distributed-worker"),
	}, nil
}

// HandleTask processes one operation task. Exported so tests can drive it
// with a constructed asynq.Task.
func (w *Worker) HandleTask(ctx context.Context, task *asynq.Task) error {
	qop, err := DecodeTask(task)
	if err != nil {
		// A payload that cannot decode will never succeed; don't retry it.
		w.logger.Errorf("Dropping undecodable task: %v", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := w.executor(ctx, qop); err != nil {
		w.logger.Errorf("Operation %s failed: %v", qop.Operation.ID, err)
		return err
	}
	return nil
}

// Start implements interfaces.WorkerPool
func (w *Worker) Start() {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeOperation, w.HandleTask)

	go func() {
		if err := w.server.Run(mux); err != nil {
			w.logger.Errorf("Worker server stopped: %v", err)
		}
	}()
}

// Stop implements interfaces.WorkerPool. asynq drains in-flight tasks during
// shutdown; the context deadline is advisory here.
func (w *Worker) Stop(_ context.Context) error {
	w.server.Shutdown()
	return nil
}
