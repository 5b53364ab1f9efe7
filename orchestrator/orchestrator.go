// Package orchestrator is the consumer side of the tool-server protocol: it
// discovers tools across the fleet, routes calls, and degrades gracefully
// when a tool or server is unavailable.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/denser-ai/toolfleet/config"
	"github.com/denser-ai/toolfleet/logger"
	"github.com/denser-ai/toolfleet/mcp"
)

// Binding ties a discovered tool descriptor to the server that offers it.
// Tool names are namespaced by server identity, so two servers may offer
// tools with the same bare name.
type Binding struct {
	Server string
	Tool   mcp.Tool
}

// Qualified returns the namespaced tool name, e.g. "weather.get_current_weather".
func (b Binding) Qualified() string { return b.Server + "." + b.Tool.Name }

// CallStatus tracks an in-flight call: Pending → Completed | TimedOut.
type CallStatus string

const (
	CallPending   CallStatus = "pending"
	CallCompleted CallStatus = "completed"
	CallTimedOut  CallStatus = "timed_out"
)

// CallRecord is the orchestrator's view of one tool call.
type CallRecord struct {
	ID       string
	Server   string
	Tool     string
	Status   CallStatus
	Result   mcp.CallResult
	Started  time.Time
	Finished time.Time
}

// Stats summarizes the discovered fleet.
type Stats struct {
	Servers       int
	Tools         int
	ToolsByServer map[string][]string
}

// Orchestrator resolves intents to tool calls across a set of tool servers.
type Orchestrator struct {
	selector Selector

	mu          sync.RWMutex
	clients     map[string]*ServerClient
	callTimeout time.Duration
	index       map[string]Binding  // qualified name → binding
	bare        map[string][]string // bare name → qualified names
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSelector replaces the default keyword selector.
func WithSelector(s Selector) Option {
	return func(o *Orchestrator) { o.selector = s }
}

// New creates an orchestrator for the fleet described by the manifest.
func New(manifest *config.Manifest, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		selector: NewKeywordSelector(),
		index:    make(map[string]Binding),
		bare:     make(map[string][]string),
	}
	o.Reconfigure(manifest)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Reconfigure replaces the client set and call timeout with the manifest's.
// Existing bindings stay usable until the next Discover; bindings whose
// server was removed fail their calls instead of panicking.
func (o *Orchestrator) Reconfigure(manifest *config.Manifest) {
	clients := make(map[string]*ServerClient, len(manifest.Servers))
	for _, spec := range manifest.Servers {
		clients[spec.Name] = NewServerClient(spec.Name, spec.BaseURL())
	}

	o.mu.Lock()
	o.clients = clients
	o.callTimeout = manifest.CallTimeout.Std()
	o.mu.Unlock()
}

func (o *Orchestrator) clientSet() (map[string]*ServerClient, time.Duration) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.clients, o.callTimeout
}

// Discover queries every configured server for its tool list and rebuilds
// the index. A server that cannot be reached only removes its own tools
// from the available set; Discover fails only when no server answered.
func (o *Orchestrator) Discover(ctx context.Context) error {
	clients, _ := o.clientSet()
	index := make(map[string]Binding)
	bare := make(map[string][]string)
	answered := 0

	for name, client := range clients {
		tools, err := client.ListTools(ctx)
		if err != nil {
			logger.Warn("Tool discovery failed", "server", name, "error", err)
			continue
		}
		answered++
		for _, tool := range tools {
			binding := Binding{Server: name, Tool: tool}
			index[binding.Qualified()] = binding
			bare[tool.Name] = append(bare[tool.Name], binding.Qualified())
		}
		logger.Info("Discovered tools", "server", name, "count", len(tools))
	}

	if answered == 0 {
		return errors.New("no tool server answered discovery")
	}

	o.mu.Lock()
	o.index = index
	o.bare = bare
	o.mu.Unlock()
	return nil
}

// Bindings returns the discovered bindings sorted by qualified name.
func (o *Orchestrator) Bindings() []Binding {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]Binding, 0, len(o.index))
	for _, b := range o.index {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Qualified() < out[j].Qualified() })
	return out
}

// Resolve maps a tool name to its binding. Qualified names always work;
// bare names work only while exactly one server offers the tool.
func (o *Orchestrator) Resolve(name string) (Binding, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if binding, ok := o.index[name]; ok {
		return binding, nil
	}
	qualified, ok := o.bare[name]
	if !ok || len(qualified) == 0 {
		return Binding{}, fmt.Errorf("%w: %s", mcp.ErrUnknownTool, name)
	}
	if len(qualified) > 1 {
		return Binding{}, fmt.Errorf("tool name %q is ambiguous, use one of: %s",
			name, strings.Join(qualified, ", "))
	}
	return o.index[qualified[0]], nil
}

// Call invokes the named tool with a per-call timeout. The returned record
// is always Completed or TimedOut; a timed-out call is discarded from the
// caller's perspective even if the server later finishes it.
func (o *Orchestrator) Call(ctx context.Context, name string, args map[string]any) *CallRecord {
	record := &CallRecord{
		ID:      uuid.NewString(),
		Tool:    name,
		Status:  CallPending,
		Started: time.Now(),
	}

	binding, err := o.Resolve(name)
	if err != nil {
		record.Status = CallCompleted
		if mcp.IsUnknownTool(err) {
			record.Result = mcp.Fail(mcp.KindUnknownTool, err.Error())
		} else {
			record.Result = mcp.Fail(mcp.KindInvalidArguments, err.Error())
		}
		record.Finished = time.Now()
		return record
	}
	record.Server = binding.Server
	record.Tool = binding.Tool.Name

	clients, timeout := o.clientSet()
	client, ok := clients[binding.Server]
	if !ok {
		record.Status = CallCompleted
		record.Result = mcp.Fail(mcp.KindExecutionError,
			fmt.Sprintf("server %s is no longer configured", binding.Server))
		record.Finished = time.Now()
		return record
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := client.CallTool(callCtx, binding.Tool.Name, args)
	record.Finished = time.Now()

	switch {
	case err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded):
		record.Status = CallTimedOut
		record.Result = mcp.Fail(mcp.KindTimedOut,
			fmt.Sprintf("call to %s timed out after %s", binding.Qualified(), timeout))
	case err != nil:
		record.Status = CallCompleted
		record.Result = mcp.Fail(mcp.KindExecutionError, err.Error())
	default:
		record.Status = CallCompleted
		record.Result = result
	}

	logger.Debug("Tool call finished",
		"call_id", record.ID, "tool", binding.Qualified(),
		"status", record.Status, "success", record.Result.Success)
	return record
}

// caller is the invocation seam Handle routes through, so a decorator that
// wraps Call sees the calls Handle makes too.
type caller interface {
	Call(ctx context.Context, name string, args map[string]any) *CallRecord
}

// Handle answers one user intent: select a tool, call it, and render either
// the payload or a degraded message. One tool's failure never takes down
// the session.
func (o *Orchestrator) Handle(ctx context.Context, intent string) string {
	return o.handle(ctx, intent, o)
}

func (o *Orchestrator) handle(ctx context.Context, intent string, c caller) string {
	selection, ok := o.selector.Select(intent, o.Bindings())
	if !ok {
		return "I don't have a tool for that yet. Ask me about weather, meetings, or the product database."
	}

	record := c.Call(ctx, selection.Tool, selection.Arguments)
	if !record.Result.Success {
		return degradedMessage(record)
	}

	payload, err := json.MarshalIndent(record.Result.Payload, "", "  ")
	if err != nil {
		return degradedMessage(record)
	}
	return string(payload)
}

// degradedMessage renders a failure as a user-visible degradation. Timeouts
// read the same as execution errors.
func degradedMessage(record *CallRecord) string {
	server := record.Server
	if server == "" {
		server = "requested"
	}
	kind := mcp.KindExecutionError
	if record.Result.Error != nil {
		kind = record.Result.Error.Kind
	}
	switch kind {
	case mcp.KindUnknownTool:
		return fmt.Sprintf("The %s tool is not offered by any connected server.", record.Tool)
	case mcp.KindInvalidArguments:
		return fmt.Sprintf("I couldn't call %s: %s", record.Tool, record.Result.Error.Message)
	default:
		return fmt.Sprintf("The %s tool is unavailable right now. Please try again later.", server)
	}
}

// Stats returns totals for the discovered fleet.
func (o *Orchestrator) Stats() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()

	byServer := make(map[string][]string)
	for _, binding := range o.index {
		byServer[binding.Server] = append(byServer[binding.Server], binding.Tool.Name)
	}
	for _, names := range byServer {
		sort.Strings(names)
	}
	return Stats{
		Servers:       len(o.clients),
		Tools:         len(o.index),
		ToolsByServer: byServer,
	}
}
