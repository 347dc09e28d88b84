package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/overcast-io/overcast/internal/events"
	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/internal/operation"
)

// executeUpdate merges an update patch into the infrastructure record. No
// provider call happens here: updates change the declared specification only,
// and the declared cost does not move until a future operation reconciles it.
func (s *Service) executeUpdate(_ context.Context, op *interfaces.Operation, patch *interfaces.UpdatePatch) error {
	infra, err := s.store.GetInfrastructure(op.InfrastructureID)
	if err != nil {
		return err
	}
	if patch == nil {
		s.failDetached(infra, op, "update patch was lost in transit", interfaces.InfrastructureStatusActive)
		return nil
	}

	s.mustBegin(infra, op)

	s.step(op, "Merging infrastructure metadata")
	mergeMetadata(infra, patch)
	s.completeStep(op)
	s.persistInfra(infra)

	for _, rp := range patch.Resources {
		s.step(op, fmt.Sprintf("Updating resource %s", rp.ResourceID))

		res := infra.FindResource(rp.ResourceID)
		if res == nil {
			// Merges applied so far stay applied; the infrastructure simply
			// returns to active with a failed operation on record.
			s.failDetached(infra, op,
				fmt.Sprintf("resource %s not found in infrastructure %s", rp.ResourceID, infra.ID),
				interfaces.InfrastructureStatusActive)
			return nil
		}

		if res.Spec == nil {
			res.Spec = make(map[string]interface{}, len(rp.Spec))
		}
		for k, v := range rp.Spec {
			res.Spec[k] = v
		}
		res.UpdatedAt = time.Now()
		op.UpdatedResources = append(op.UpdatedResources, res.ID)
		s.completeStep(op)
		s.persistInfra(infra)
	}

	infra.Status = interfaces.InfrastructureStatusActive
	infra.UpdatedAt = time.Now()
	s.persistInfra(infra)

	if err := operation.Complete(op, decimal.Zero); err != nil {
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

// mergeMetadata applies the patch's name, tag, and configuration changes.
// Maps merge shallowly with patch keys winning on conflict.
func mergeMetadata(infra *interfaces.Infrastructure, patch *interfaces.UpdatePatch) {
	if patch.Name != "" {
		infra.Name = patch.Name
	}

	if len(patch.Tags) > 0 {
		if infra.Tags == nil {
			infra.Tags = make(map[string]string, len(patch.Tags))
		}
		for k, v := range patch.Tags {
			infra.Tags[k] = v
		}
	}

	if patch.Config != nil {
		infra.Config.AutoScaling = mergeBlock(infra.Config.AutoScaling, patch.Config.AutoScaling)
		infra.Config.Backup = mergeBlock(infra.Config.Backup, patch.Config.Backup)
		infra.Config.Security = mergeBlock(infra.Config.Security, patch.Config.Security)
		infra.Config.Networking = mergeBlock(infra.Config.Networking, patch.Config.Networking)
		infra.Config.Monitoring = mergeBlock(infra.Config.Monitoring, patch.Config.Monitoring)
		infra.Config.CostControl = mergeBlock(infra.Config.CostControl, patch.Config.CostControl)
	}
}

func mergeBlock(dst, src map[string]interface{}) map[string]interface{} {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]interface{}, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
