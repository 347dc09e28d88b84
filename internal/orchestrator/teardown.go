package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/overcast-io/overcast/internal/cost"
	"github.com/overcast-io/overcast/internal/events"
	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/internal/operation"
)

// executeDestroy tears down every live resource in reverse creation order.
// Unlike rollback, teardown aborts on the first delete failure: later
// resources may depend on the one that refused to go, so continuing past it
// would only pile up provider errors.
func (s *Service) executeDestroy(ctx context.Context, op *interfaces.Operation) error {
	infra, err := s.store.GetInfrastructure(op.InfrastructureID)
	if err != nil {
		return err
	}

	identity := interfaces.CallerIdentity{WorkspaceID: infra.WorkspaceID, UserID: infra.UserID}
	provider, err := s.registry.Resolve(ctx, infra.Provider, &identity)
	if err != nil {
		s.failDetached(infra, op, fmt.Sprintf("cannot resolve provider %s: %v", infra.Provider, err), interfaces.InfrastructureStatusError)
		return nil
	}

	s.mustBegin(infra, op)

	// The cost removed by a full teardown is everything still running now.
	preDestroy := cost.Monthly(infra.Resources)

	for i := len(infra.Resources) - 1; i >= 0; i-- {
		res := &infra.Resources[i]
		if res.Status == interfaces.ResourceStatusDeleted {
			continue
		}

		s.step(op, fmt.Sprintf("Deleting %s %s", res.Type, res.Name))

		// Only the provider call is gated on the provider id. A resource that
		// never got one has nothing provider-side to delete, but it is still
		// retired from the aggregate and counted like any other step.
		if res.ProviderID != "" {
			res.Status = interfaces.ResourceStatusDeleting
			res.UpdatedAt = time.Now()
			s.persistInfra(infra)

			if err := provider.DeleteResource(ctx, res.ProviderID); err != nil {
				s.logger.ResourceStepFailed(string(res.Type), res.Name, err)
				res.Status = interfaces.ResourceStatusError
				res.UpdatedAt = time.Now()
				s.persistInfra(infra)
				s.failDetached(infra, op,
					fmt.Sprintf("failed to delete %s %q: %v", res.Type, res.Name, err),
					interfaces.InfrastructureStatusError)
				return nil
			}
		}

		res.Status = interfaces.ResourceStatusDeleted
		res.UpdatedAt = time.Now()
		op.DeletedResources = append(op.DeletedResources, res.ID)
		s.completeStep(op)
		s.persistInfra(infra)
		s.logger.ResourceStepSuccess(string(res.Type), res.Name)

		s.events.Publish(events.Event{
			Type:             events.EventResourceDeleted,
			InfrastructureID: infra.ID,
			OperationID:      op.ID,
			ResourceID:       res.ID,
		})
	}

	now := time.Now()
	infra.Status = interfaces.InfrastructureStatusDestroyed
	if infra.DestroyedAt == nil {
		infra.DestroyedAt = &now
	}
	infra.UpdatedAt = now
	cost.Recalculate(infra)
	s.persistInfra(infra)

	if err := operation.Complete(op, preDestroy.Neg()); err != nil {
		s.logger.Errorf("Cannot complete operation %s: %v", op.ID, err)
		return nil
	}
	s.persistOp(op)

	s.logger.OperationSummary(op.ID, string(op.Type), string(op.Status), op.CompletedSteps, op.TotalSteps)
	s.events.Publish(events.Event{
		Type:             events.EventOperationCompleted,
		InfrastructureID: infra.ID,
		OperationID:      op.ID,
	})
	return nil
}

// failDetached fails a queued operation and parks the infrastructure in the
// given status
func (s *Service) failDetached(infra *interfaces.Infrastructure, op *interfaces.Operation, message string, status interfaces.InfrastructureStatus) {
	infra.Status = status
	infra.UpdatedAt = time.Now()
	s.persistInfra(infra)

	if err := operation.Fail(op, message); err != nil {
		s.logger.Errorf("Cannot fail operation %s: %v", op.ID, err)
		return
	}
	s.persistOp(op)

	s.events.Publish(events.Event{
		Type:             events.EventOperationFailed,
		InfrastructureID: infra.ID,
		OperationID:      op.ID,
		Details:          map[string]interface{}{"error": message},
	})
}
