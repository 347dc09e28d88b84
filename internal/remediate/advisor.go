package remediate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/overcast-io/overcast/internal/interfaces"
)

// Advisor is a minimal client for an OpenAI-compatible chat completion
// endpoint. It sends a failure summary and expects structured JSON advice
// back.
type Advisor struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// Advice is the advisor's structured response
type Advice struct {
	Summary  string   `json:"summary"`
	Commands []string `json:"commands,omitempty"`
}

// NewAdvisor creates an advisor against an OpenAI-compatible API
func NewAdvisor(baseURL, apiKey, model string) *Advisor {
	return &Advisor{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 45 * time.Second},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const advisorSystemPrompt = `You are an infrastructure incident assistant. Given a failed cloud provisioning operation, respond with ONLY a JSON object: {"summary": "<one-paragraph diagnosis>", "commands": ["<safe read-only shell diagnostics>"]}. Never suggest destructive commands.`

// Diagnose asks the advisor about a failed operation
func (a *Advisor) Diagnose(ctx context.Context, infra *interfaces.Infrastructure, op *interfaces.Operation, cause error) (*Advice, error) {
	prompt := a.buildPrompt(infra, op, cause)

	body, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: advisorSystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode advisor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build advisor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("advisor request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("advisor returned %d: %s", resp.StatusCode, string(payload))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode advisor response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("advisor returned no choices")
	}

	return parseAdvice(chat.Choices[0].Message.Content)
}

func (a *Advisor) buildPrompt(infra *interfaces.Infrastructure, op *interfaces.Operation, cause error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provider: %s\nRegion: %s\nOperation: %s (%d/%d steps)\n",
		infra.Provider, infra.Region, op.Type, op.CompletedSteps, op.TotalSteps)
	fmt.Fprintf(&b, "Failed step: %s\nError: %v\n", op.CurrentStep, cause)
	fmt.Fprintf(&b, "Resources:\n")
	for i := range infra.Resources {
		res := &infra.Resources[i]
		fmt.Fprintf(&b, "- %s %q status=%s\n", res.Type, res.Name, res.Status)
	}
	return b.String()
}

// parseAdvice tolerates models that wrap JSON in markdown fences
func parseAdvice(content string) (*Advice, error) {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			content = content[start : end+1]
		}
	}

	var advice Advice
	if err := json.Unmarshal([]byte(content), &advice); err != nil {
		return nil, fmt.Errorf("advisor response is not valid advice JSON: %w", err)
	}
	if advice.Summary == "" {
		return nil, fmt.Errorf("advisor response missing summary")
	}
	return &advice, nil
}
