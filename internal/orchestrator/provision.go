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

// runCreate provisions every requested resource in list order, appending each
// to the aggregate only after the provider confirms it, and rolling back on
// the first failure. The operation is terminal when this returns.
func (s *Service) runCreate(ctx context.Context, provider interfaces.CloudProvider, infra *interfaces.Infrastructure, op *interfaces.Operation, requests []interfaces.ResourceRequest) {
	infra.Status = interfaces.InfrastructureStatusProvisioning
	infra.UpdatedAt = time.Now()
	s.persistInfra(infra)

	s.mustBegin(infra, op)

	if len(requests) == 0 {
		// Nothing to provision: the create completes immediately and the
		// infrastructure is active with zero cost.
		s.finishCreate(infra, op)
		return
	}

	for _, rr := range requests {
		s.step(op, fmt.Sprintf("Creating %s %s", rr.Type, rr.Name))

		created, err := provider.CreateResource(ctx, rr.Type, providerSpec(rr.Spec, rr.Name, infra.Region))
		if err != nil {
			s.logger.ResourceStepFailed(string(rr.Type), rr.Name, err)
			s.rollbackCreate(ctx, provider, infra, op, rr, err)
			return
		}

		now := time.Now()
		infra.Resources = append(infra.Resources, interfaces.Resource{
			ID:          interfaces.NewID("res"),
			ProviderID:  created.ProviderID,
			Type:        rr.Type,
			Name:        rr.Name,
			Spec:        rr.Spec,
			Status:      interfaces.ResourceStatusActive,
			HourlyCost:  created.HourlyCost,
			MonthlyCost: created.MonthlyCost,
			DependsOn:   rr.DependsOn,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		res := &infra.Resources[len(infra.Resources)-1]
		op.CreatedResources = append(op.CreatedResources, res.ID)

		// The running estimate is kept consistent with the resource list at
		// every persisted intermediate state, not just at the end.
		cost.Recalculate(infra)
		s.completeStep(op)
		s.persistInfra(infra)
		s.logger.ResourceStepSuccess(string(res.Type), res.Name)

		s.events.Publish(events.Event{
			Type:             events.EventResourceCreated,
			InfrastructureID: infra.ID,
			OperationID:      op.ID,
			ResourceID:       res.ID,
		})
	}

	s.finishCreate(infra, op)
}

// providerSpec merges the resource name and the infrastructure region into a
// copy of the declared spec for the provider call. The declared spec itself is
// stored unchanged.
func providerSpec(declared map[string]interface{}, name, region string) map[string]interface{} {
	merged := make(map[string]interface{}, len(declared)+2)
	for k, v := range declared {
		merged[k] = v
	}
	merged["name"] = name
	merged["region"] = region
	return merged
}

func (s *Service) finishCreate(infra *interfaces.Infrastructure, op *interfaces.Operation) {
	now := time.Now()
	infra.Status = interfaces.InfrastructureStatusActive
	if infra.DeployedAt == nil {
		infra.DeployedAt = &now
	}
	infra.UpdatedAt = now
	costChange := cost.Recalculate(infra)
	s.persistInfra(infra)

	if err := operation.Complete(op, costChange); err != nil {
		s.logger.Errorf("Cannot complete operation %s: %v", op.ID, err)
		return
	}
	s.persistOp(op)

	s.logger.OperationSummary(op.ID, string(op.Type), string(op.Status), op.CompletedSteps, op.TotalSteps)
	s.events.Publish(events.Event{
		Type:             events.EventOperationCompleted,
		InfrastructureID: infra.ID,
		OperationID:      op.ID,
	})
}

// rollbackCreate deletes the resources provisioned before the failure, in the
// order they were created. Rollback is best-effort: a failed delete marks the
// resource as errored and the sweep continues. The failed request never became
// a list entry; only resources the provider confirmed (those holding a
// provider id) are ever passed to delete.
func (s *Service) rollbackCreate(ctx context.Context, provider interfaces.CloudProvider, infra *interfaces.Infrastructure, op *interfaces.Operation, failed interfaces.ResourceRequest, cause error) {
	s.events.Publish(events.Event{
		Type:             events.EventRollbackStarted,
		InfrastructureID: infra.ID,
		OperationID:      op.ID,
		Details: map[string]interface{}{
			"cause":           cause.Error(),
			"failed_resource": failed.Name,
		},
	})
	s.step(op, fmt.Sprintf("Rolling back after %s %s failed", failed.Type, failed.Name))

	for i := range infra.Resources {
		res := &infra.Resources[i]
		if res.ProviderID == "" {
			continue
		}

		res.Status = interfaces.ResourceStatusDeleting
		res.UpdatedAt = time.Now()
		s.persistInfra(infra)

		if err := provider.DeleteResource(ctx, res.ProviderID); err != nil {
			// The resource is left standing; mark it so operators can see
			// what survived the rollback.
			s.logger.Warnf("Rollback delete failed for %s %s (%s): %v", res.Type, res.Name, res.ProviderID, err)
			res.Status = interfaces.ResourceStatusError
			res.UpdatedAt = time.Now()
			continue
		}

		res.Status = interfaces.ResourceStatusDeleted
		res.UpdatedAt = time.Now()
		op.DeletedResources = append(op.DeletedResources, res.ID)
		s.events.Publish(events.Event{
			Type:             events.EventResourceDeleted,
			InfrastructureID: infra.ID,
			OperationID:      op.ID,
			ResourceID:       res.ID,
		})
	}

	infra.Status = interfaces.InfrastructureStatusError
	infra.UpdatedAt = time.Now()
	cost.Recalculate(infra)
	s.persistInfra(infra)

	message := fmt.Sprintf("failed to create %s %q: %v", failed.Type, failed.Name, cause)
	if err := operation.Fail(op, message); err != nil {
		s.logger.Errorf("Cannot fail operation %s: %v", op.ID, err)
		return
	}
	s.persistOp(op)

	s.logger.OperationSummary(op.ID, string(op.Type), string(op.Status), op.CompletedSteps, op.TotalSteps)
	s.events.Publish(events.Event{
		Type:             events.EventOperationFailed,
		InfrastructureID: infra.ID,
		OperationID:      op.ID,
		Details:          map[string]interface{}{"error": message},
	})

	// Remediation runs detached from the request context and never affects
	// the operation outcome.
	infraCopy := *infra
	opCopy := *op
	go s.remediation.OnCreateFailure(context.WithoutCancel(ctx), &infraCopy, &opCopy, cause)
}

func (s *Service) mustBegin(infra *interfaces.Infrastructure, op *interfaces.Operation) {
	if err := operation.Begin(op); err != nil {
		s.logger.Errorf("Cannot begin operation %s: %v", op.ID, err)
		return
	}
	s.persistOp(op)
	s.events.Publish(events.Event{
		Type:             events.EventOperationStarted,
		InfrastructureID: infra.ID,
		OperationID:      op.ID,
	})
}

func (s *Service) step(op *interfaces.Operation, description string) {
	if err := operation.Step(op, description); err != nil {
		s.logger.Errorf("Cannot record step on operation %s: %v", op.ID, err)
		return
	}
	s.persistOp(op)
}

func (s *Service) completeStep(op *interfaces.Operation) {
	if err := operation.CompleteStep(op); err != nil {
		s.logger.Errorf("Cannot advance operation %s: %v", op.ID, err)
		return
	}
	s.persistOp(op)
}

func (s *Service) persistInfra(infra *interfaces.Infrastructure) {
	if err := s.store.PutInfrastructure(infra); err != nil {
		s.logger.Errorf("Failed to persist infrastructure %s: %v", infra.ID, err)
	}
}

func (s *Service) persistOp(op *interfaces.Operation) {
	if err := s.store.PutOperation(op); err != nil {
		s.logger.Errorf("Failed to persist operation %s: %v", op.ID, err)
	}
}
