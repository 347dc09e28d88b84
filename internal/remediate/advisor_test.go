package remediate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/internal/operation"
)

func failureFixtures() (*interfaces.Infrastructure, *interfaces.Operation, error) {
	infra := &interfaces.Infrastructure{
		ID:       "infra-1",
		Provider: "digitalocean",
		Region:   "nyc3",
		Resources: []interfaces.Resource{
			{ID: "res-1", Type: interfaces.ResourceTypeDroplet, Name: "web-1", Status: interfaces.ResourceStatusActive},
			{ID: "res-2", Type: interfaces.ResourceTypeVolume, Name: "data-1", Status: interfaces.ResourceStatusError},
		},
	}
	op := operation.New("infra-1", interfaces.OperationTypeCreate, 2)
	op.CurrentStep = "Creating volume data-1"
	op.CompletedSteps = 1
	return infra, op, errors.New("volume quota exceeded in region nyc3")
}

func TestAdvisorDiagnose(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := chatResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message chatMessage `json:"message"`
		}{Message: chatMessage{
			Role:    "assistant",
			Content: `{"summary": "Volume quota exhausted in nyc3.", "commands": ["doctl compute volume list"]}`,
		}})
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	advisor := NewAdvisor(server.URL, "sk-test", "gpt-4o-mini")
	infra, op, cause := failureFixtures()

	advice, err := advisor.Diagnose(context.Background(), infra, op, cause)
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Contains(t, gotReq.Messages[1].Content, "volume quota exceeded")
	assert.Contains(t, gotReq.Messages[1].Content, "Creating volume data-1")

	assert.Equal(t, "Volume quota exhausted in nyc3.", advice.Summary)
	assert.Equal(t, []string{"doctl compute volume list"}, advice.Commands)
}

func TestAdvisorToleratesFencedJSON(t *testing.T) {
	t.Parallel()

	advice, err := parseAdvice("```json\n{\"summary\": \"quota issue\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "quota issue", advice.Summary)
	assert.Empty(t, advice.Commands)
}

func TestAdvisorRejectsNonAdviceResponse(t *testing.T) {
	t.Parallel()

	_, err := parseAdvice("I cannot help with that.")
	assert.Error(t, err)

	_, err = parseAdvice(`{"commands": ["ls"]}`)
	assert.Error(t, err, "advice without a summary is useless")
}

func TestAdvisorSurfacesServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	advisor := NewAdvisor(server.URL, "sk-test", "gpt-4o-mini")
	infra, op, cause := failureFixtures()

	_, err := advisor.Diagnose(context.Background(), infra, op, cause)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
