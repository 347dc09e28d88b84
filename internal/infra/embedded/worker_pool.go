package embedded

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/workerpool"

	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/internal/operation"
	"github.com/overcast-io/overcast/pkg/logging"
)

// WorkerPoolConfig wires a worker pool to its collaborators
type WorkerPoolConfig struct {
	Queue    *Queue
	Store    interfaces.Store
	Executor interfaces.OperationExecutor
	// MaxWorkers bounds concurrent operation execution; <= 0 selects 4.
	MaxWorkers int
}

// WorkerPool drains the embedded queue through the executor. Executor panics
// are recovered and turn into failed operations rather than crashing the
// process.
type WorkerPool struct {
	cfg    WorkerPoolConfig
	pool   *workerpool.WorkerPool
	logger *logging.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	inflight  atomic.Int64
}

// NewWorkerPool creates a stopped worker pool
func NewWorkerPool(cfg WorkerPoolConfig) (*WorkerPool, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("worker pool requires a queue")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("worker pool requires a store")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("worker pool requires an executor")
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	return &WorkerPool{
		cfg:    cfg,
		pool:   workerpool.New(cfg.MaxWorkers),
		logger: logging.NewLogger("worker-pool"),
		done:   make(chan struct{}),
	}, nil
}

// Start launches the dispatch loop
func (w *WorkerPool) Start() {
	w.startOnce.Do(func() {
		go w.dispatch()
	})
}

func (w *WorkerPool) dispatch() {
	defer close(w.done)
	for qop := range w.cfg.Queue.Dequeue() {
		w.cfg.Queue.MarkDequeued(qop)
		w.inflight.Add(1)
		qop := qop
		w.pool.Submit(func() {
			defer w.inflight.Add(-1)
			w.execute(qop)
		})
	}
}

func (w *WorkerPool) execute(qop *interfaces.QueuedOperation) {
	opID := qop.Operation.ID
	defer func() {
		if r := recover(); r != nil {
			w.logger.Errorf("Executor panicked on operation %s: %v", opID, r)
			w.failOperation(opID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := w.cfg.Executor(context.Background(), qop); err != nil {
		w.logger.Errorf("Operation %s failed: %v", opID, err)
	}
}

// failOperation marks a panicked operation failed so it does not hang in a
// non-terminal state forever
func (w *WorkerPool) failOperation(opID, message string) {
	op, err := w.cfg.Store.GetOperation(opID)
	if err != nil {
		w.logger.Errorf("Cannot load panicked operation %s: %v", opID, err)
		return
	}
	if op.Status.Terminal() {
		return
	}
	if err := operation.Fail(op, message); err != nil {
		w.logger.Errorf("Cannot fail panicked operation %s: %v", opID, err)
		return
	}
	if err := w.cfg.Store.PutOperation(op); err != nil {
		w.logger.Errorf("Cannot persist panicked operation %s: %v", opID, err)
	}
}

// Stop closes the queue, waits for in-flight operations, and honors the
// context deadline
func (w *WorkerPool) Stop(ctx context.Context) error {
	var err error
	w.stopOnce.Do(func() {
		_ = w.cfg.Queue.Close()

		finished := make(chan struct{})
		go func() {
			<-w.done
			w.pool.StopWait()
			close(finished)
		}()

		select {
		case <-finished:
		case <-ctx.Done():
			err = fmt.Errorf("worker pool shutdown timed out: %w", ctx.Err())
		}
	})
	return err
}

// WaitIdle blocks until the queue is empty and no operations are executing,
// or the timeout elapses. Intended for tests.
func (w *WorkerPool) WaitIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		m := w.cfg.Queue.Metrics()
		if m.CurrentDepth == 0 && m.TotalDequeued == m.TotalEnqueued && w.inflight.Load() == 0 {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
