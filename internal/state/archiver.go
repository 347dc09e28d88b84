package state

import (
	"context"
	"time"

	"github.com/overcast-io/overcast/internal/events"
	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/pkg/logging"
)

// Archiver subscribes to operation lifecycle events and writes snapshots of
// the affected records whenever an operation reaches a terminal state.
// Archiving is best-effort; a snapshot failure never affects the operation.
type Archiver struct {
	store     interfaces.Store
	snapshots SnapshotStore
	timeout   time.Duration
	logger    *logging.Logger
}

// NewArchiver creates an archiver reading current records from the store
func NewArchiver(store interfaces.Store, snapshots SnapshotStore) *Archiver {
	return &Archiver{
		store:     store,
		snapshots: snapshots,
		timeout:   30 * time.Second,
		logger:    logging.NewLogger("archiver"),
	}
}

// Handle is the events.Handler to subscribe on the bus
func (a *Archiver) Handle(event events.Event) {
	switch event.Type {
	case events.EventOperationCompleted, events.EventOperationFailed:
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if infra, err := a.store.GetInfrastructure(event.InfrastructureID); err == nil {
		if err := a.snapshots.SaveInfrastructure(ctx, infra); err != nil {
			a.logger.Warnf("Failed to snapshot infrastructure %s: %v", infra.ID, err)
		}
	} else {
		a.logger.Warnf("Cannot load infrastructure %s for snapshot: %v", event.InfrastructureID, err)
	}

	if event.OperationID == "" {
		return
	}
	if op, err := a.store.GetOperation(event.OperationID); err == nil {
		if err := a.snapshots.SaveOperation(ctx, op); err != nil {
			a.logger.Warnf("Failed to snapshot operation %s: %v", op.ID, err)
		}
	} else {
		a.logger.Warnf("Cannot load operation %s for snapshot: %v", event.OperationID, err)
	}
}
