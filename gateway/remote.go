package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// rpcRequest is a minimal JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
	ID      int            `json:"id"`
}

// rpcResponse is a minimal JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	Result map[string]any `json:"result"`
	Error  *rpcError      `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RemoteAdapter calls a remote service endpoint by id, exchanging
// JSON-RPC-shaped messages over HTTP. Unlike container/sandbox, this variant
// has a concrete default implementation: any configured HTTP endpoint can be
// dispatched to without further wiring.
type RemoteAdapter struct {
	client *http.Client
}

// NewRemoteAdapter returns an adapter using client, or http.DefaultClient if nil.
func NewRemoteAdapter(client *http.Client) *RemoteAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteAdapter{client: client}
}

// Invoke POSTs a JSON-RPC request to ToolInput.Config's "__endpoint" key,
// naming the method as the tool ref.
func (a *RemoteAdapter) Invoke(ctx context.Context, in ToolInput) (ToolOutput, error) {
	endpoint, _ := in.Config["__endpoint"].(string)
	if endpoint == "" {
		return ToolOutput{}, fmt.Errorf("gateway: remote adapter requires an endpoint")
	}

	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  in.ToolRef,
		Params:  in.Inputs,
		ID:      1,
	})
	if err != nil {
		return ToolOutput{}, fmt.Errorf("gateway: marshaling rpc request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return ToolOutput{}, fmt.Errorf("gateway: building rpc request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return ToolOutput{}, fmt.Errorf("gateway: calling remote endpoint %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return ToolOutput{}, fmt.Errorf("gateway: decoding rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return ToolOutput{}, fmt.Errorf("gateway: remote error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return ToolOutput{Outputs: rpcResp.Result}, nil
}

func marshalInputs(inputs map[string]any) ([]byte, error) {
	raw, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("gateway: marshaling inputs: %w", err)
	}
	return raw, nil
}

func unmarshalOutputs(raw []byte) (map[string]any, error) {
	var outputs map[string]any
	if err := json.Unmarshal(raw, &outputs); err != nil {
		return nil, fmt.Errorf("gateway: unmarshaling outputs: %w", err)
	}
	return outputs, nil
}
