// Package tools implements the tool registry (spec.md §4.3): register,
// definitions, and execute named tools with JSON-string arguments.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xonecas/heddle/internal/wire"
)

// Handler is the per-tool callback: parsed arguments in, a string result out.
// Handlers must never panic for recoverable errors — they should return a
// Go error, which the registry converts to an error string fed back to the
// model (spec.md §4.3's "error as data").
type Handler func(ctx context.Context, arguments json.RawMessage) (string, error)

// Tool pairs a ToolDefinition with its Handler.
type Tool struct {
	Definition wire.ToolDefinition
	Handle     Handler
}

// ErrUnknownTool is returned by Execute for a name not in the registry. This
// is the one tool-layer failure the agent loop treats as fatal (spec.md §7).
type ErrUnknownTool struct{ Name string }

func (e *ErrUnknownTool) Error() string { return fmt.Sprintf("unknown tool: %s", e.Name) }

// Registry is a name -> Tool map, grounded on the teacher's MCP proxy
// dispatch (internal/mcp/proxy.go's Proxy.RegisterTool/CallTool) trimmed of
// the upstream-MCP fallback — this registry only ever serves local tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Returns an error if the name already exists.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Definition.Name]; exists {
		return fmt.Errorf("tool %q already registered", t.Definition.Name)
	}
	r.tools[t.Definition.Name] = t
	r.order = append(r.order, t.Definition.Name)
	return nil
}

// Definitions projects the registry to tool definitions in registration
// order. The provider client wraps each as `{type:"function", function:{...}}`
// when building the wire request (wire.ToOpenAITools).
func (r *Registry) Definitions() []wire.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]wire.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Definition)
	}
	return out
}

// Filter returns a new Registry containing only the named tools, in the
// receiver's registration order. An empty or nil names list is treated as
// "unset" and returns a registry with every tool (spec.md §6.4).
func (r *Registry) Filter(names []string) *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(names) == 0 {
		out := NewRegistry()
		for _, name := range r.order {
			_ = out.Register(r.tools[name])
		}
		return out
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := NewRegistry()
	for _, name := range r.order {
		if want[name] {
			_ = out.Register(r.tools[name])
		}
	}
	return out
}

// Execute runs a tool by name (spec.md §4.3):
//   - unknown name: returns *ErrUnknownTool (hard failure, propagates out of
//     the agent loop).
//   - invalid JSON arguments: returns (errorString, nil) — recovered, fed
//     back to the model.
//   - handler error: returns (errorString, nil) — recovered.
//   - success: returns (result, nil).
func (r *Registry) Execute(ctx context.Context, name, argsJSON string) (string, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", &ErrUnknownTool{Name: name}
	}

	raw := json.RawMessage(argsJSON)
	if !json.Valid(raw) {
		return fmt.Sprintf("Error: Invalid JSON arguments: %s", argsJSON), nil
	}

	result, err := t.Handle(ctx, raw)
	if err != nil {
		return fmt.Sprintf("Error: %s", err.Error()), nil
	}
	return result, nil
}
