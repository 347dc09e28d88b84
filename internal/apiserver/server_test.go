package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overcast-io/overcast/internal/config"
	"github.com/overcast-io/overcast/internal/events"
	"github.com/overcast-io/overcast/internal/infra/embedded"
	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/internal/mocks"
	"github.com/overcast-io/overcast/internal/orchestrator"
	"github.com/overcast-io/overcast/internal/registry"
)

type apiHarness struct {
	server   *httptest.Server
	svc      *orchestrator.Service
	queue    *embedded.Queue
	provider *mocks.MockCloudProvider
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	provider := mocks.NewMockCloudProvider()
	reg := registry.New()
	reg.BindFallback("digitalocean", provider)

	queue := embedded.NewQueue(16)
	t.Cleanup(func() { _ = queue.Close() })

	svc, err := orchestrator.NewService(orchestrator.ServiceConfig{
		Store:    embedded.NewStore(),
		Registry: reg,
		Queue:    queue,
		Events:   events.NewSynchronousBus(),
	})
	require.NoError(t, err)

	cfg := config.NewServerConfig()
	api := NewAPIServer(cfg, svc, queue)

	server := httptest.NewServer(api.Router())
	t.Cleanup(server.Close)

	return &apiHarness{server: server, svc: svc, queue: queue, provider: provider}
}

func (h *apiHarness) drainOne(t *testing.T) {
	t.Helper()
	select {
	case qop := <-h.queue.Dequeue():
		h.queue.MarkDequeued(qop)
		require.NoError(t, h.svc.ExecuteQueued(context.Background(), qop))
	case <-time.After(2 * time.Second):
		t.Fatal("no operation was enqueued")
	}
}

func (h *apiHarness) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func createBody() map[string]interface{} {
	return map[string]interface{}{
		"workspace_id": "ws-1",
		"user_id":      "u-1",
		"name":         "web-stack",
		"provider":     "digitalocean",
		"region":       "nyc3",
		"resources": []map[string]interface{}{
			{
				"type": "droplet",
				"name": "web-1",
				"spec": map[string]interface{}{"name": "web-1", "size": "s-1vcpu-1gb", "image": "ubuntu-24-04-x64"},
			},
			{
				"type": "volume",
				"name": "data-1",
				"spec": map[string]interface{}{"name": "data-1", "size_gib": 100},
			},
		},
	}
}

type operationEnvelope struct {
	Infrastructure *interfaces.Infrastructure `json:"infrastructure"`
	Operation      *interfaces.Operation      `json:"operation"`
}

func TestCreateEndpoint(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/infrastructure", createBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var envelope operationEnvelope
	decodeBody(t, resp, &envelope)
	require.NotNil(t, envelope.Infrastructure)
	require.NotNil(t, envelope.Operation)
	assert.Equal(t, interfaces.OperationStatusCompleted, envelope.Operation.Status)
	assert.Equal(t, interfaces.InfrastructureStatusActive, envelope.Infrastructure.Status)
	assert.Len(t, envelope.Infrastructure.Resources, 2)
}

func TestCreateEndpointValidation(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)

	body := createBody()
	delete(body, "name")

	resp := h.do(t, http.MethodPost, "/api/v1/infrastructure", body)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateEndpointRejectsBadSpec(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)

	body := createBody()
	body["resources"] = []map[string]interface{}{
		{"type": "volume", "name": "data-1", "spec": map[string]interface{}{"size_gib": 0}},
	}

	resp := h.do(t, http.MethodPost, "/api/v1/infrastructure", body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "invalid_spec", errResp.Error)
	assert.Contains(t, errResp.Message, "size_gib")
}

func TestCreateEndpointUnknownProvider(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)

	body := createBody()
	body["provider"] = "nimbus"

	resp := h.do(t, http.MethodPost, "/api/v1/infrastructure", body)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCreateEndpointReturnsFailedOperation(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)
	h.provider.FailCreateNamed("data-1", errors.New("volume quota exceeded"))

	resp := h.do(t, http.MethodPost, "/api/v1/infrastructure", createBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode, "a failed operation is still a created record")

	var envelope operationEnvelope
	decodeBody(t, resp, &envelope)
	assert.Equal(t, interfaces.OperationStatusFailed, envelope.Operation.Status)
	assert.Contains(t, envelope.Operation.ErrorMessage, "data-1")
	assert.Equal(t, interfaces.InfrastructureStatusError, envelope.Infrastructure.Status)
}

func TestGetAndListEndpoints(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/infrastructure", createBody())
	var envelope operationEnvelope
	decodeBody(t, resp, &envelope)
	infraID := envelope.Infrastructure.ID

	resp = h.do(t, http.MethodGet, "/api/v1/infrastructure/"+infraID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var infra interfaces.Infrastructure
	decodeBody(t, resp, &infra)
	assert.Equal(t, "web-stack", infra.Name)

	resp = h.do(t, http.MethodGet, "/api/v1/infrastructure?workspace_id=ws-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []interfaces.Infrastructure
	decodeBody(t, resp, &list)
	require.Len(t, list, 1)

	resp = h.do(t, http.MethodGet, "/api/v1/infrastructure?workspace_id=ws-other", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &list)
	assert.Empty(t, list)

	resp = h.do(t, http.MethodGet, "/api/v1/infrastructure/infra-missing", nil)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateEndpointLifecycle(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/infrastructure", createBody())
	var envelope operationEnvelope
	decodeBody(t, resp, &envelope)
	infraID := envelope.Infrastructure.ID

	patch := map[string]interface{}{
		"name": "web-stack-v2",
		"tags": map[string]string{"team": "platform"},
	}
	resp = h.do(t, http.MethodPatch, "/api/v1/infrastructure/"+infraID, patch)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var updateEnvelope operationEnvelope
	decodeBody(t, resp, &updateEnvelope)
	assert.Equal(t, interfaces.OperationStatusPending, updateEnvelope.Operation.Status)
	assert.Equal(t, interfaces.InfrastructureStatusUpdating, updateEnvelope.Infrastructure.Status)

	h.drainOne(t)

	// Poll the operation the way a real caller would.
	resp = h.do(t, http.MethodGet, "/api/v1/operations/"+updateEnvelope.Operation.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var op interfaces.Operation
	decodeBody(t, resp, &op)
	assert.Equal(t, interfaces.OperationStatusCompleted, op.Status)

	resp = h.do(t, http.MethodGet, "/api/v1/infrastructure/"+infraID, nil)
	var after interfaces.Infrastructure
	decodeBody(t, resp, &after)
	assert.Equal(t, "web-stack-v2", after.Name)
	assert.Equal(t, "platform", after.Tags["team"])
}

func TestDestroyEndpointLifecycle(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/infrastructure", createBody())
	var envelope operationEnvelope
	decodeBody(t, resp, &envelope)
	infraID := envelope.Infrastructure.ID

	resp = h.do(t, http.MethodDelete, "/api/v1/infrastructure/"+infraID, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var destroyEnvelope operationEnvelope
	decodeBody(t, resp, &destroyEnvelope)

	h.drainOne(t)

	resp = h.do(t, http.MethodGet, "/api/v1/infrastructure/"+infraID, nil)
	var after interfaces.Infrastructure
	decodeBody(t, resp, &after)
	assert.Equal(t, interfaces.InfrastructureStatusDestroyed, after.Status)

	// A destroyed infrastructure is gone for writes.
	resp = h.do(t, http.MethodDelete, "/api/v1/infrastructure/"+infraID, nil)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusGone, resp.StatusCode)

	resp2 := h.do(t, http.MethodPatch, "/api/v1/infrastructure/"+infraID, map[string]interface{}{"name": "zombie"})
	defer resp2.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusGone, resp2.StatusCode)
}

func TestOperationListEndpoint(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/infrastructure", createBody())
	var envelope operationEnvelope
	decodeBody(t, resp, &envelope)
	infraID := envelope.Infrastructure.ID

	resp = h.do(t, http.MethodPatch, "/api/v1/infrastructure/"+infraID, map[string]interface{}{"name": "v2"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close() //nolint:errcheck
	h.drainOne(t)

	resp = h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/infrastructure/%s/operations", infraID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ops []interfaces.Operation
	decodeBody(t, resp, &ops)
	require.Len(t, ops, 2)
	// Most recent first: the update precedes the create in the listing.
	assert.Equal(t, interfaces.OperationTypeUpdate, ops[0].Type)
	assert.Equal(t, interfaces.OperationTypeCreate, ops[1].Type)

	resp = h.do(t, http.MethodGet, "/api/v1/infrastructure/infra-missing/operations", nil)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestQueueMetricsAndHealthEndpoints(t *testing.T) {
	t.Parallel()
	h := newAPIHarness(t)

	resp := h.do(t, http.MethodGet, "/api/v1/system/queue", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var metrics interfaces.QueueMetrics
	decodeBody(t, resp, &metrics)
	assert.Zero(t, metrics.CurrentDepth)

	resp = h.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]string
	decodeBody(t, resp, &health)
	assert.Equal(t, "ok", health["status"])
}
