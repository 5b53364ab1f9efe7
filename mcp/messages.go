package mcp

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Identity string `json:"identity"`
}

// ListToolsResponse is the body of GET /mcp/tools. Tools appear in
// registration order.
type ListToolsResponse struct {
	Tools []Tool `json:"tools"`
}

// CallRequest is the body of POST /mcp/call_tool.
type CallRequest struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

// CallResult is the tagged outcome of a tool call. Exactly one of Payload
// and Error is set.
type CallResult struct {
	Success bool       `json:"success"`
	Payload any        `json:"payload,omitempty"`
	Error   *CallError `json:"error,omitempty"`
}

// CallError is the failure half of a CallResult.
type CallError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *CallError) Error() string {
	if e == nil {
		return "tool call error"
	}
	if e.Message != "" {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind)
}

// Succeed wraps a tool implementation's return value.
func Succeed(payload any) CallResult {
	return CallResult{Success: true, Payload: payload}
}

// Fail builds a failure result with the given kind and message.
func Fail(kind ErrorKind, message string) CallResult {
	return CallResult{Success: false, Error: &CallError{Kind: kind, Message: message}}
}

// FailErr converts an error to a failure result, preserving the kind when
// err already is a *CallError.
func FailErr(kind ErrorKind, err error) CallResult {
	if ce, ok := err.(*CallError); ok && ce != nil {
		return CallResult{Success: false, Error: ce}
	}
	return Fail(kind, err.Error())
}
