package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/windrun-ai/workflowcore/core"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	anthropicDefaultModel   = "claude-opus-4-5"
)

// AnthropicPlanner is the real LLM-fallback Planner: it asks the Anthropic
// Messages API to return a WorkflowSpec as JSON when no registered template
// matches the classified task type. It speaks the Messages request/response
// shape directly over net/http rather than a full provider SDK, mirroring
// only the request/response contract a multi-provider LLM client abstraction
// would expose for a single "complete to JSON" call.
type AnthropicPlanner struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

// NewAnthropicPlanner returns a planner using Model (anthropicDefaultModel if
// empty) against the public Anthropic API.
func NewAnthropicPlanner(apiKey string) *AnthropicPlanner {
	return &AnthropicPlanner{
		APIKey:  apiKey,
		Model:   anthropicDefaultModel,
		BaseURL: anthropicDefaultBaseURL,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string              `json:"model"`
	MaxTokens int                 `json:"max_tokens"`
	System    string              `json:"system,omitempty"`
	Messages  []anthropicMessage  `json:"messages"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Error   *anthropicError         `json:"error,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

const plannerSystemPrompt = `You translate a user's task description and extracted slots into a single
JSON object matching this system's WorkflowSpec schema: {"id", "metadata":
{"name","version"}, "nodes": [...], "edges": [...]}. Reply with the JSON
object only, no surrounding prose or code fences.`

// Plan sends prompt and slots to the configured model and decodes its reply
// as a core.WorkflowSpec.
func (p *AnthropicPlanner) Plan(ctx context.Context, prompt string, slots Slots) (core.WorkflowSpec, error) {
	if p.APIKey == "" {
		return core.WorkflowSpec{}, fmt.Errorf("compiler: anthropic planner: API key is required")
	}

	slotsJSON, err := json.Marshal(slots)
	if err != nil {
		return core.WorkflowSpec{}, fmt.Errorf("compiler: anthropic planner: marshaling slots: %w", err)
	}

	model := p.Model
	if model == "" {
		model = anthropicDefaultModel
	}
	reqBody := anthropicRequest{
		Model:     model,
		MaxTokens: 4096,
		System:    plannerSystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: fmt.Sprintf("Task: %s\nSlots: %s", prompt, slotsJSON)},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return core.WorkflowSpec{}, fmt.Errorf("compiler: anthropic planner: marshaling request: %w", err)
	}

	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return core.WorkflowSpec{}, fmt.Errorf("compiler: anthropic planner: building request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-api-key", p.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return core.WorkflowSpec{}, fmt.Errorf("compiler: anthropic planner: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.WorkflowSpec{}, fmt.Errorf("compiler: anthropic planner: reading response: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return core.WorkflowSpec{}, fmt.Errorf("compiler: anthropic planner: decoding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return core.WorkflowSpec{}, fmt.Errorf("compiler: anthropic planner: api error (%s): %s", parsed.Error.Type, parsed.Error.Message)
		}
		return core.WorkflowSpec{}, fmt.Errorf("compiler: anthropic planner: api returned status %d", resp.StatusCode)
	}
	if len(parsed.Content) == 0 {
		return core.WorkflowSpec{}, fmt.Errorf("compiler: anthropic planner: empty response content")
	}

	var spec core.WorkflowSpec
	if err := json.Unmarshal([]byte(parsed.Content[0].Text), &spec); err != nil {
		return core.WorkflowSpec{}, fmt.Errorf("compiler: anthropic planner: model reply is not a valid workflow spec: %w", err)
	}
	return spec, nil
}

var _ Planner = (*AnthropicPlanner)(nil)
