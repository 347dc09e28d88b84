package distributed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/overcast-io/overcast/internal/events"
	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/pkg/logging"
)

// ErrNotMirrored is returned when Redis holds no copy of the operation
var ErrNotMirrored = errors.New("operation not mirrored")

const mirrorKeyPrefix = "overcast:operation:"

// Mirror keeps a Redis copy of operation records so API replicas that do not
// own the embedded store can still answer polling reads. It subscribes to the
// event bus and refreshes the copy whenever an operation changes state.
type Mirror struct {
	client *redis.Client
	store  interfaces.Store
	ttl    time.Duration
	logger *logging.Logger
}

// NewMirror connects to Redis and wires the mirror to the given record store
func NewMirror(redisURL string, store interfaces.Store) (*Mirror, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &Mirror{
		client: redis.NewClient(opt),
		store:  store,
		ttl:    24 * time.Hour,
		logger: logging.NewLogger("operation-mirror"),
	}, nil
}

// NewMirrorWithClient injects a prebuilt client; used by tests against
// miniredis or a local Redis.
func NewMirrorWithClient(client *redis.Client, store interfaces.Store) *Mirror {
	return &Mirror{
		client: client,
		store:  store,
		ttl:    24 * time.Hour,
		logger: logging.NewLogger("operation-mirror"),
	}
}

// Handle is the events.Handler to subscribe on the bus
func (m *Mirror) Handle(event events.Event) {
	switch event.Type {
	case events.EventOperationStarted, events.EventOperationCompleted, events.EventOperationFailed:
	default:
		return
	}
	if event.OperationID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	op, err := m.store.GetOperation(event.OperationID)
	if err != nil {
		m.logger.Warnf("Cannot load operation %s for mirroring: %v", event.OperationID, err)
		return
	}
	if err := m.Save(ctx, op); err != nil {
		m.logger.Warnf("Failed to mirror operation %s: %v", op.ID, err)
	}
}

// Save writes the operation's JSON copy with the mirror TTL
func (m *Mirror) Save(ctx context.Context, op *interfaces.Operation) error {
	payload, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to encode operation %s: %w", op.ID, err)
	}
	if err := m.client.Set(ctx, mirrorKeyPrefix+op.ID, payload, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write mirror key: %w", err)
	}
	return nil
}

// Load reads an operation's mirrored copy
func (m *Mirror) Load(ctx context.Context, operationID string) (*interfaces.Operation, error) {
	payload, err := m.client.Get(ctx, mirrorKeyPrefix+operationID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotMirrored, operationID)
		}
		return nil, fmt.Errorf("failed to read mirror key: %w", err)
	}
	var op interfaces.Operation
	if err := json.Unmarshal(payload, &op); err != nil {
		return nil, fmt.Errorf("failed to decode mirrored operation: %w", err)
	}
	return &op, nil
}

// Close releases the Redis connection
func (m *Mirror) Close() error {
	return m.client.Close()
}
