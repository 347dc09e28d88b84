// Package orchestrator implements the deployment operation core: it turns
// declarative resource lists into ordered provider calls with progress
// tracking, cost accumulation, rollback on create failure, ordered teardown,
// and provider-free specification updates.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/overcast-io/overcast/internal/events"
	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/internal/operation"
	"github.com/overcast-io/overcast/internal/remediate"
	"github.com/overcast-io/overcast/pkg/logging"
)

// ServiceConfig wires the orchestrator's collaborators. Store, Registry, and
// Queue are required; Locker defaults to an in-process lock arena, Events to
// an asynchronous bus, and Remediation to a no-op.
type ServiceConfig struct {
	Store       interfaces.Store
	Registry    interfaces.ProviderRegistry
	Queue       interfaces.OperationQueue
	Locker      interfaces.InfrastructureLocker
	Events      *events.Bus
	Remediation remediate.Trigger
}

// Service implements interfaces.Orchestrator
type Service struct {
	store       interfaces.Store
	registry    interfaces.ProviderRegistry
	queue       interfaces.OperationQueue
	locker      interfaces.InfrastructureLocker
	events      *events.Bus
	remediation remediate.Trigger
	logger      *logging.Logger
}

// NewService creates the orchestrator service
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("orchestrator requires a store")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("orchestrator requires a provider registry")
	}
	if cfg.Queue == nil {
		return nil, fmt.Errorf("orchestrator requires an operation queue")
	}
	if cfg.Locker == nil {
		cfg.Locker = NewLockArena()
	}
	if cfg.Events == nil {
		cfg.Events = events.NewBus()
	}
	if cfg.Remediation == nil {
		cfg.Remediation = remediate.NoopTrigger{}
	}
	return &Service{
		store:       cfg.Store,
		registry:    cfg.Registry,
		queue:       cfg.Queue,
		locker:      cfg.Locker,
		events:      cfg.Events,
		remediation: cfg.Remediation,
		logger:      logging.NewLogger("orchestrator"),
	}, nil
}

// OpenCreate validates the request, resolves the provider, and runs the full
// create flow before returning. The returned operation is always terminal:
// completed when every resource provisioned, failed after rollback otherwise.
// Validation and provider resolution failures return an error with no records
// created at all.
func (s *Service) OpenCreate(ctx context.Context, req *interfaces.CreateRequest) (*interfaces.Infrastructure, *interfaces.Operation, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, nil, err
	}

	// Provider resolution happens before any record exists, so a
	// misconfigured provider cannot leave an empty infrastructure behind.
	identity := interfaces.CallerIdentity{WorkspaceID: req.WorkspaceID, UserID: req.UserID}
	provider, err := s.registry.Resolve(ctx, req.Provider, &identity)
	if err != nil {
		return nil, nil, err
	}

	// The resource list starts empty: a Resource enters the aggregate only
	// once the provider confirms it. Requested resources that never reach a
	// successful provider call never become list entries.
	now := time.Now()
	infra := &interfaces.Infrastructure{
		ID:          interfaces.NewID("infra"),
		WorkspaceID: req.WorkspaceID,
		UserID:      req.UserID,
		Name:        req.Name,
		Provider:    req.Provider,
		Region:      req.Region,
		Tags:        req.Tags,
		Config:      req.Config,
		Status:      interfaces.InfrastructureStatusPending,
		Resources:   make([]interfaces.Resource, 0, len(req.Resources)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	op := operation.New(infra.ID, interfaces.OperationTypeCreate, len(req.Resources))
	if err := s.store.PutInfrastructure(infra); err != nil {
		return nil, nil, fmt.Errorf("failed to persist infrastructure: %w", err)
	}
	if err := s.store.PutOperation(op); err != nil {
		return nil, nil, fmt.Errorf("failed to persist operation: %w", err)
	}

	release, err := s.locker.Lock(ctx, infra.ID)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	s.runCreate(ctx, provider, infra, op, req.Resources)

	return s.freshPair(infra.ID, op.ID)
}

// OpenUpdate records a spec-only update and detaches its execution. No
// provider call ever results from an update; the patch is merged by a worker
// while the infrastructure sits in updating state.
func (s *Service) OpenUpdate(ctx context.Context, infrastructureID string, patch *interfaces.UpdatePatch) (*interfaces.Infrastructure, *interfaces.Operation, error) {
	if patch == nil {
		return nil, nil, invalidRequest("update patch is required")
	}

	release, err := s.locker.Lock(ctx, infrastructureID)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	infra, err := s.store.GetInfrastructure(infrastructureID)
	if err != nil {
		return nil, nil, err
	}
	if infra.Status == interfaces.InfrastructureStatusDestroyed {
		return nil, nil, ErrInfrastructureDestroyed
	}
	if infra.Status != interfaces.InfrastructureStatusActive {
		return nil, nil, ErrInfrastructureNotActive
	}

	// One step for the metadata merge plus one per resource patch.
	op := operation.New(infrastructureID, interfaces.OperationTypeUpdate, len(patch.Resources)+1)

	infra.Status = interfaces.InfrastructureStatusUpdating
	infra.UpdatedAt = time.Now()
	if err := s.store.PutInfrastructure(infra); err != nil {
		return nil, nil, fmt.Errorf("failed to persist infrastructure: %w", err)
	}
	if err := s.store.PutOperation(op); err != nil {
		return nil, nil, fmt.Errorf("failed to persist operation: %w", err)
	}

	if err := s.queue.Enqueue(ctx, &interfaces.QueuedOperation{Operation: op, Patch: patch}); err != nil {
		return nil, nil, fmt.Errorf("failed to enqueue update: %w", err)
	}

	return infra, op, nil
}

// OpenDestroy records a destroy operation and detaches its execution. The
// provider is resolved eagerly so configuration errors surface before any
// record changes.
func (s *Service) OpenDestroy(ctx context.Context, infrastructureID string) (*interfaces.Operation, error) {
	release, err := s.locker.Lock(ctx, infrastructureID)
	if err != nil {
		return nil, err
	}
	defer release()

	infra, err := s.store.GetInfrastructure(infrastructureID)
	if err != nil {
		return nil, err
	}
	if infra.Status == interfaces.InfrastructureStatusDestroyed {
		return nil, ErrInfrastructureDestroyed
	}
	if infra.Status == interfaces.InfrastructureStatusDestroying {
		return nil, ErrDestroyInProgress
	}

	identity := interfaces.CallerIdentity{WorkspaceID: infra.WorkspaceID, UserID: infra.UserID}
	if _, err := s.registry.Resolve(ctx, infra.Provider, &identity); err != nil {
		return nil, err
	}

	op := operation.New(infrastructureID, interfaces.OperationTypeDestroy, remainingResourceCount(infra))

	infra.Status = interfaces.InfrastructureStatusDestroying
	infra.UpdatedAt = time.Now()
	if err := s.store.PutInfrastructure(infra); err != nil {
		return nil, fmt.Errorf("failed to persist infrastructure: %w", err)
	}
	if err := s.store.PutOperation(op); err != nil {
		return nil, fmt.Errorf("failed to persist operation: %w", err)
	}

	if err := s.queue.Enqueue(ctx, &interfaces.QueuedOperation{Operation: op}); err != nil {
		return nil, fmt.Errorf("failed to enqueue destroy: %w", err)
	}

	return op, nil
}

// ExecuteQueued is the worker-side entry point for detached operations. The
// queued payload is data only; current records are reloaded from the store and
// the provider is re-resolved from the infrastructure's identity.
func (s *Service) ExecuteQueued(ctx context.Context, qop *interfaces.QueuedOperation) error {
	if qop == nil || qop.Operation == nil {
		return fmt.Errorf("queued operation requires an operation record")
	}

	op, err := s.store.GetOperation(qop.Operation.ID)
	if err != nil {
		return err
	}
	if op.Status.Terminal() {
		// Duplicate delivery; the first execution already finished.
		return nil
	}

	release, err := s.locker.Lock(ctx, op.InfrastructureID)
	if err != nil {
		return err
	}
	defer release()

	switch op.Type {
	case interfaces.OperationTypeUpdate:
		return s.executeUpdate(ctx, op, qop.Patch)
	case interfaces.OperationTypeDestroy:
		return s.executeDestroy(ctx, op)
	default:
		return fmt.Errorf("operation %s has unexpected queued type %s", op.ID, op.Type)
	}
}

// GetOperation implements interfaces.Orchestrator
func (s *Service) GetOperation(id string) (*interfaces.Operation, error) {
	return s.store.GetOperation(id)
}

// ListOperations implements interfaces.Orchestrator
func (s *Service) ListOperations(infrastructureID string) ([]*interfaces.Operation, error) {
	return s.store.ListOperations(infrastructureID)
}

// GetInfrastructure implements interfaces.Orchestrator
func (s *Service) GetInfrastructure(id string) (*interfaces.Infrastructure, error) {
	return s.store.GetInfrastructure(id)
}

// ListInfrastructure implements interfaces.Orchestrator
func (s *Service) ListInfrastructure(workspaceID string) ([]*interfaces.Infrastructure, error) {
	return s.store.ListInfrastructure(workspaceID)
}

func (s *Service) freshPair(infraID, opID string) (*interfaces.Infrastructure, *interfaces.Operation, error) {
	infra, err := s.store.GetInfrastructure(infraID)
	if err != nil {
		return nil, nil, err
	}
	op, err := s.store.GetOperation(opID)
	if err != nil {
		return nil, nil, err
	}
	return infra, op, nil
}

func validateCreateRequest(req *interfaces.CreateRequest) error {
	if req == nil {
		return invalidRequest("create request is required")
	}
	if req.Name == "" {
		return invalidRequest("infrastructure name is required")
	}
	if req.Provider == "" {
		return invalidRequest("provider is required")
	}
	seen := make(map[string]struct{}, len(req.Resources))
	for i, rr := range req.Resources {
		if rr.Name == "" {
			return invalidRequest(fmt.Sprintf("resource %d requires a name", i))
		}
		if !interfaces.ValidResourceType(rr.Type) {
			return invalidRequest(fmt.Sprintf("resource %q has unknown type %q", rr.Name, rr.Type))
		}
		if _, dup := seen[rr.Name]; dup {
			return invalidRequest(fmt.Sprintf("duplicate resource name %q", rr.Name))
		}
		seen[rr.Name] = struct{}{}
	}
	return nil
}

// remainingResourceCount counts the resources a destroy still has to retire.
// Every non-deleted resource counts as one teardown step whether or not it
// holds a provider id; only the provider call itself is gated on the id.
func remainingResourceCount(infra *interfaces.Infrastructure) int {
	count := 0
	for i := range infra.Resources {
		if infra.Resources[i].Status != interfaces.ResourceStatusDeleted {
			count++
		}
	}
	return count
}
