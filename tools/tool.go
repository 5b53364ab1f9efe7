package tools

import (
	"context"

	"github.com/denser-ai/toolfleet/mcp"
)

// Tool is the contract every tool implementation satisfies. Implementations
// are expected to be stateless or internally synchronized; the server may
// invoke Execute concurrently.
type Tool interface {
	Name() string
	Description() string
	InputSchema() mcp.InputSchema
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// Descriptor builds the wire descriptor for a tool.
func Descriptor(t Tool) mcp.Tool {
	return mcp.Tool{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
	}
}
