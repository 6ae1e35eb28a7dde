package compiler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicPlanner_ParsesWorkflowSpecFromResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-opus-4-5", req.Model)

		specJSON := `{"id":"planned-1","metadata":{"name":"Planned","version":"1.0.0"},"nodes":[{"id":"a","kind":"primitive","tool_ref":"core/a@1.0.0"}]}`
		resp := anthropicResponse{Content: []anthropicContentBlock{{Type: "text", Text: specJSON}}}
		w.Header().Set("content-type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	p := NewAnthropicPlanner("test-key")
	p.BaseURL = srv.URL

	spec, err := p.Plan(context.Background(), "summarize this document", Slots{"topic": "quarterly report"})
	require.NoError(t, err)
	assert.Equal(t, "planned-1", spec.ID)
	assert.Equal(t, "Planned", spec.Metadata.Name)
	require.Len(t, spec.Nodes, 1)
	assert.Equal(t, "core/a@1.0.0", spec.Nodes[0].ToolRef)
}

func TestAnthropicPlanner_SurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		resp := anthropicResponse{Error: &anthropicError{Type: "invalid_request_error", Message: "bad model"}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	p := NewAnthropicPlanner("test-key")
	p.BaseURL = srv.URL

	_, err := p.Plan(context.Background(), "prompt", Slots{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad model")
}

func TestAnthropicPlanner_RequiresAPIKey(t *testing.T) {
	p := NewAnthropicPlanner("")
	_, err := p.Plan(context.Background(), "prompt", Slots{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}
