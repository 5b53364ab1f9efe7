package mcp

import "errors"

// ErrorKind tags a tool call failure.
type ErrorKind string

const (
	// KindUnknownTool is returned when the requested tool is not registered.
	KindUnknownTool ErrorKind = "unknown_tool"
	// KindInvalidArguments is returned when the supplied arguments do not
	// satisfy the descriptor's parameter schema.
	KindInvalidArguments ErrorKind = "invalid_arguments"
	// KindExecutionError is returned when a tool implementation fails or
	// panics.
	KindExecutionError ErrorKind = "execution_error"
	// KindTimedOut is recorded by the orchestrator when a call exceeds its
	// deadline. Tool servers never produce it.
	KindTimedOut ErrorKind = "timed_out"
	// KindStartupFailure is recorded by the supervisor for a server that
	// failed to launch or become healthy.
	KindStartupFailure ErrorKind = "startup_failure"
)

// Registry errors.
var (
	ErrDuplicateTool = errors.New("tool already registered")
	ErrUnknownTool   = errors.New("unknown tool")
)

// IsUnknownTool reports whether err denotes an unregistered tool name.
func IsUnknownTool(err error) bool {
	return errors.Is(err, ErrUnknownTool)
}
