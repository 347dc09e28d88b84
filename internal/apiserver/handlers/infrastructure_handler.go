package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/pkg/logging"
)

// InfrastructureHandler serves the /infrastructure endpoints
type InfrastructureHandler struct {
	orchestrator interfaces.Orchestrator
	validate     *validator.Validate
	logger       *logging.Logger
}

// NewInfrastructureHandler creates the handler
func NewInfrastructureHandler(orch interfaces.Orchestrator) *InfrastructureHandler {
	return &InfrastructureHandler{
		orchestrator: orch,
		validate:     validator.New(),
		logger:       logging.NewLogger("infrastructure-handler"),
	}
}

// createInfrastructureRequest is the POST /infrastructure body
type createInfrastructureRequest struct {
	WorkspaceID string                         `json:"workspace_id" validate:"required"`
	UserID      string                         `json:"user_id" validate:"required"`
	Name        string                         `json:"name" validate:"required,max=128"`
	Provider    string                         `json:"provider" validate:"required"`
	Region      string                         `json:"region" validate:"required"`
	Resources   []resourceRequest              `json:"resources" validate:"dive"`
	Tags        map[string]string              `json:"tags,omitempty"`
	Config      interfaces.InfrastructureConfig `json:"config"`
}

type resourceRequest struct {
	Type      string                 `json:"type" validate:"required"`
	Name      string                 `json:"name" validate:"required,max=128"`
	Spec      map[string]interface{} `json:"spec"`
	DependsOn []string               `json:"depends_on,omitempty"`
}

// operationResponse pairs the affected infrastructure with its operation
type operationResponse struct {
	Infrastructure *interfaces.Infrastructure `json:"infrastructure,omitempty"`
	Operation      *interfaces.Operation      `json:"operation"`
}

// Create handles POST /api/v1/infrastructure
//
//	@Summary		Create infrastructure
//	@Description	Provisions the requested resources in list order and returns the terminal operation
//	@Tags			infrastructure
//	@Accept			json
//	@Produce		json
//	@Param			request	body		createInfrastructureRequest	true	"Create request"
//	@Success		201		{object}	operationResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/api/v1/infrastructure [post]
func (h *InfrastructureHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInfrastructureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", fmt.Sprintf("cannot decode request: %v", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	createReq := &interfaces.CreateRequest{
		WorkspaceID: req.WorkspaceID,
		UserID:      req.UserID,
		Name:        req.Name,
		Provider:    req.Provider,
		Region:      req.Region,
		Tags:        req.Tags,
		Config:      req.Config,
	}
	for _, rr := range req.Resources {
		resourceType := interfaces.ResourceType(rr.Type)
		if _, err := interfaces.DecodeSpec(resourceType, rr.Spec); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_spec", err.Error())
			return
		}
		createReq.Resources = append(createReq.Resources, interfaces.ResourceRequest{
			Type:      resourceType,
			Name:      rr.Name,
			Spec:      rr.Spec,
			DependsOn: rr.DependsOn,
		})
	}

	infra, op, err := h.orchestrator.OpenCreate(r.Context(), createReq)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, operationResponse{Infrastructure: infra, Operation: op})
}

// Get handles GET /api/v1/infrastructure/{id}
//
//	@Summary	Get infrastructure
//	@Tags		infrastructure
//	@Produce	json
//	@Param		id	path		string	true	"Infrastructure ID"
//	@Success	200	{object}	interfaces.Infrastructure
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/v1/infrastructure/{id} [get]
func (h *InfrastructureHandler) Get(w http.ResponseWriter, r *http.Request) {
	infra, err := h.orchestrator.GetInfrastructure(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infra)
}

// List handles GET /api/v1/infrastructure
//
//	@Summary	List infrastructure
//	@Tags		infrastructure
//	@Produce	json
//	@Param		workspace_id	query	string	false	"Filter by workspace"
//	@Success	200	{array}	interfaces.Infrastructure
//	@Router		/api/v1/infrastructure [get]
func (h *InfrastructureHandler) List(w http.ResponseWriter, r *http.Request) {
	infras, err := h.orchestrator.ListInfrastructure(r.URL.Query().Get("workspace_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infras)
}

// updateInfrastructureRequest is the PATCH /infrastructure/{id} body
type updateInfrastructureRequest struct {
	Name      string                           `json:"name,omitempty" validate:"omitempty,max=128"`
	Tags      map[string]string                `json:"tags,omitempty"`
	Config    *interfaces.InfrastructureConfig `json:"config,omitempty"`
	Resources []resourcePatchRequest           `json:"resources,omitempty" validate:"dive"`
}

type resourcePatchRequest struct {
	ResourceID string                 `json:"resource_id" validate:"required"`
	Spec       map[string]interface{} `json:"spec" validate:"required"`
}

// Update handles PATCH /api/v1/infrastructure/{id}
//
//	@Summary		Update infrastructure specification
//	@Description	Merges the patch into the declared specification; no provider call results
//	@Tags			infrastructure
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Infrastructure ID"
//	@Param			request	body		updateInfrastructureRequest	true	"Update patch"
//	@Success		202		{object}	operationResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		410		{object}	ErrorResponse
//	@Router			/api/v1/infrastructure/{id} [patch]
func (h *InfrastructureHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateInfrastructureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", fmt.Sprintf("cannot decode request: %v", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	patch := &interfaces.UpdatePatch{
		Name:   req.Name,
		Tags:   req.Tags,
		Config: req.Config,
	}
	for _, rp := range req.Resources {
		patch.Resources = append(patch.Resources, interfaces.ResourcePatch{
			ResourceID: rp.ResourceID,
			Spec:       rp.Spec,
		})
	}

	infra, op, err := h.orchestrator.OpenUpdate(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, operationResponse{Infrastructure: infra, Operation: op})
}

// Destroy handles DELETE /api/v1/infrastructure/{id}
//
//	@Summary		Destroy infrastructure
//	@Description	Tears down every live resource in reverse creation order
//	@Tags			infrastructure
//	@Produce		json
//	@Param			id	path		string	true	"Infrastructure ID"
//	@Success		202	{object}	operationResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Failure		410	{object}	ErrorResponse
//	@Router			/api/v1/infrastructure/{id} [delete]
func (h *InfrastructureHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	op, err := h.orchestrator.OpenDestroy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, operationResponse{Operation: op})
}
