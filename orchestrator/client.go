package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/denser-ai/toolfleet/mcp"
)

// ServerClient talks to one tool server over its HTTP endpoint.
type ServerClient struct {
	name    string
	baseURL string
	client  *http.Client
}

// NewServerClient creates a client for the named server.
func NewServerClient(name, baseURL string) *ServerClient {
	return &ServerClient{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Name returns the server identity this client targets.
func (c *ServerClient) Name() string { return c.name }

// Health performs a health check.
func (c *ServerClient) Health(ctx context.Context) (mcp.HealthResponse, error) {
	var health mcp.HealthResponse
	if err := c.getJSON(ctx, "/health", &health); err != nil {
		return mcp.HealthResponse{}, err
	}
	return health, nil
}

// ListTools fetches the server's descriptor list in registration order.
func (c *ServerClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	var listed mcp.ListToolsResponse
	if err := c.getJSON(ctx, "/mcp/tools", &listed); err != nil {
		return nil, err
	}
	return listed.Tools, nil
}

// CallTool invokes a tool. The returned error covers transport problems
// only; tool-level failures arrive as an unsuccessful CallResult.
func (c *ServerClient) CallTool(ctx context.Context, tool string, args map[string]any) (mcp.CallResult, error) {
	body, err := json.Marshal(mcp.CallRequest{ToolName: tool, Arguments: args})
	if err != nil {
		return mcp.CallResult{}, fmt.Errorf("marshal call request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/mcp/call_tool", bytes.NewReader(body))
	if err != nil {
		return mcp.CallResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return mcp.CallResult{}, fmt.Errorf("call %s on %s: %w", tool, c.name, err)
	}
	defer resp.Body.Close()

	var result mcp.CallResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return mcp.CallResult{}, fmt.Errorf("decode call result from %s: %w", c.name, err)
	}
	return result, nil
}

func (c *ServerClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s from %s: %w", path, c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s from %s: status %d", path, c.name, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
