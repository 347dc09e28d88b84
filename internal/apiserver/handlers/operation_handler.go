package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/pkg/logging"
)

// OperationHandler serves the /operations and queue metric endpoints
type OperationHandler struct {
	orchestrator interfaces.Orchestrator
	queue        interfaces.OperationQueue
	logger       *logging.Logger
}

// NewOperationHandler creates the handler
func NewOperationHandler(orch interfaces.Orchestrator, queue interfaces.OperationQueue) *OperationHandler {
	return &OperationHandler{
		orchestrator: orch,
		queue:        queue,
		logger:       logging.NewLogger("operation-handler"),
	}
}

// Get handles GET /api/v1/operations/{id}
//
//	@Summary	Get operation
//	@Description	Callers poll this to follow a detached update or destroy
//	@Tags		operations
//	@Produce	json
//	@Param		id	path		string	true	"Operation ID"
//	@Success	200	{object}	interfaces.Operation
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/v1/operations/{id} [get]
func (h *OperationHandler) Get(w http.ResponseWriter, r *http.Request) {
	op, err := h.orchestrator.GetOperation(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

// ListForInfrastructure handles GET /api/v1/infrastructure/{id}/operations
//
//	@Summary	List operations for an infrastructure
//	@Tags		operations
//	@Produce	json
//	@Param		id	path	string	true	"Infrastructure ID"
//	@Success	200	{array}	interfaces.Operation
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/v1/infrastructure/{id}/operations [get]
func (h *OperationHandler) ListForInfrastructure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Listing against a missing infrastructure is a 404, not an empty list.
	if _, err := h.orchestrator.GetInfrastructure(id); err != nil {
		writeServiceError(w, err)
		return
	}

	ops, err := h.orchestrator.ListOperations(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ops)
}

// QueueMetrics handles GET /api/v1/system/queue
//
//	@Summary	Operation queue metrics
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	interfaces.QueueMetrics
//	@Router		/api/v1/system/queue [get]
func (h *OperationHandler) QueueMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.queue.Metrics())
}
