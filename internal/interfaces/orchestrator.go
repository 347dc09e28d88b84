package interfaces

import (
	"context"
	"errors"
)

// Not-found sentinels. These are distinct signals, never conflated with
// provider call failures.
var (
	ErrInfrastructureNotFound = errors.New("infrastructure not found")
	ErrOperationNotFound      = errors.New("operation not found")
)

// CreateRequest describes a full create operation: a new infrastructure and
// the ordered list of resources to provision into it.
type CreateRequest struct {
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Region      string `json:"region"`

	Resources []ResourceRequest    `json:"resources"`
	Tags      map[string]string    `json:"tags,omitempty"`
	Config    InfrastructureConfig `json:"config"`
}

// ResourcePatch is a per-resource specification patch applied during update
type ResourcePatch struct {
	ResourceID string                 `json:"resource_id"`
	Spec       map[string]interface{} `json:"spec"`
}

// UpdatePatch describes an update operation. Tags and configuration are
// shallow-merged, new keys winning on conflict. Resource patches shallow-merge
// each resource's specification. No provider call results from any of it.
type UpdatePatch struct {
	Name      string                `json:"name,omitempty"`
	Tags      map[string]string     `json:"tags,omitempty"`
	Config    *InfrastructureConfig `json:"config,omitempty"`
	Resources []ResourcePatch       `json:"resources,omitempty"`
}

// Orchestrator is the caller-facing surface of the deployment operation core.
// OpenCreate runs the full create flow before returning: the returned
// Operation is always terminal, or the call fails before any records exist.
// OpenUpdate and OpenDestroy may return before their loops finish; callers
// poll the Operation by id.
type Orchestrator interface {
	OpenCreate(ctx context.Context, req *CreateRequest) (*Infrastructure, *Operation, error)
	OpenUpdate(ctx context.Context, infrastructureID string, patch *UpdatePatch) (*Infrastructure, *Operation, error)
	OpenDestroy(ctx context.Context, infrastructureID string) (*Operation, error)

	GetOperation(id string) (*Operation, error)
	ListOperations(infrastructureID string) ([]*Operation, error)
	GetInfrastructure(id string) (*Infrastructure, error)
	ListInfrastructure(workspaceID string) ([]*Infrastructure, error)
}

// Store holds Infrastructure and Operation records. Implementations must
// return copies so callers cannot mutate shared state, must reject writes to
// operations already in a terminal state, and must order listings
// most-recent-first (operations by StartedAt, infrastructure by CreatedAt).
type Store interface {
	PutInfrastructure(infra *Infrastructure) error
	GetInfrastructure(id string) (*Infrastructure, error)
	ListInfrastructure(workspaceID string) ([]*Infrastructure, error)

	PutOperation(op *Operation) error
	GetOperation(id string) (*Operation, error)
	ListOperations(infrastructureID string) ([]*Operation, error)
}

// InfrastructureLocker serializes operations against one infrastructure id.
// Lock blocks until the lock is held and returns the release function; the
// owner holds it for the duration of one operation.
type InfrastructureLocker interface {
	Lock(ctx context.Context, infrastructureID string) (release func(), err error)
}
