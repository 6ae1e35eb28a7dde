package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windrun-ai/workflowcore/gateway"
)

func TestRemoteAdapter_RequiresEndpoint(t *testing.T) {
	a := gateway.NewRemoteAdapter(nil)
	_, err := a.Invoke(context.Background(), gateway.ToolInput{})
	require.Error(t, err)
}

func TestRemoteAdapter_PostsJSONRPCAndDecodesResult(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string         `json:"method"`
			Params map[string]any `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotMethod = req.Method
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"echo": req.Params["x"]},
		})
	}))
	defer srv.Close()

	a := gateway.NewRemoteAdapter(srv.Client())
	out, err := a.Invoke(context.Background(), gateway.ToolInput{
		ToolRef: "demo/tool@1.0.0",
		Inputs:  map[string]any{"x": "hi"},
		Config:  map[string]any{"__endpoint": srv.URL},
	})
	require.NoError(t, err)
	assert.Equal(t, "demo/tool@1.0.0", gotMethod)
	assert.Equal(t, "hi", out.Outputs["echo"])
}

func TestRemoteAdapter_RPCErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "bad input"},
		})
	}))
	defer srv.Close()

	a := gateway.NewRemoteAdapter(srv.Client())
	_, err := a.Invoke(context.Background(), gateway.ToolInput{
		ToolRef: "demo/tool@1.0.0",
		Config:  map[string]any{"__endpoint": srv.URL},
	})
	require.Error(t, err)
}
