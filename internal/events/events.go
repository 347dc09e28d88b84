// Package events provides a lightweight in-process event bus for operation
// lifecycle notifications. Subscribers are notified asynchronously by default;
// tests switch the bus to synchronous delivery for determinism.
package events

import (
	"sync"
	"time"

	"github.com/overcast-io/overcast/pkg/logging"
)

// EventType identifies a lifecycle event
type EventType string

// Lifecycle event types emitted by the orchestrator
const (
	EventOperationStarted   EventType = "operation_started"
	EventOperationCompleted EventType = "operation_completed"
	EventOperationFailed    EventType = "operation_failed"
	EventResourceCreated    EventType = "resource_created"
	EventResourceDeleted    EventType = "resource_deleted"
	EventRollbackStarted    EventType = "rollback_started"
)

// Event is one lifecycle notification
type Event struct {
	Type             EventType              `json:"type"`
	InfrastructureID string                 `json:"infrastructure_id"`
	OperationID      string                 `json:"operation_id,omitempty"`
	ResourceID       string                 `json:"resource_id,omitempty"`
	Details          map[string]interface{} `json:"details,omitempty"`
	Timestamp        time.Time              `json:"timestamp"`
}

// Handler receives events; it must not block for long in async mode and must
// never panic
type Handler func(Event)

// Bus fans events out to subscribers
type Bus struct {
	mu          sync.RWMutex
	handlers    []Handler
	synchronous bool

	wg     sync.WaitGroup
	logger *logging.Logger
}

// NewBus creates an asynchronous event bus
func NewBus() *Bus {
	return &Bus{logger: logging.NewLogger("event-bus")}
}

// NewSynchronousBus creates a bus that delivers events inline on the
// publishing goroutine. Used in tests.
func NewSynchronousBus() *Bus {
	b := NewBus()
	b.synchronous = true
	return b
}

// Subscribe registers a handler for all subsequent events
func (b *Bus) Subscribe(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish delivers the event to every subscriber. The timestamp is stamped
// here if the caller left it zero.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	synchronous := b.synchronous
	b.mu.RUnlock()

	for _, handler := range handlers {
		if synchronous {
			b.deliver(handler, event)
			continue
		}
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			b.deliver(h, event)
		}(handler)
	}
}

func (b *Bus) deliver(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("Event handler panicked on %s: %v", event.Type, r)
		}
	}()
	handler(event)
}

// Drain blocks until all in-flight asynchronous deliveries finish
func (b *Bus) Drain() {
	b.wg.Wait()
}
