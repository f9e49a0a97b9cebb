// Package tooling provides the tool registry the engine dispatches into.
package tooling

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/switchboard-ai/switchboard/internal/engine"
)

// Tool is one executable capability. Implementations receive the fully
// resolved argument map; parameter sourcing already happened upstream.
type Tool interface {
	Key() string
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// Registry holds tools by key and satisfies the engine's invoker contract.
type Registry struct {
	tools  map[string]Tool
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: slog.Default().With("component", "tooling"),
	}
}

// Register adds a tool, replacing any previous tool with the same key.
func (r *Registry) Register(t Tool) {
	r.tools[t.Key()] = t
}

// Get returns a tool by key, or nil if not registered.
func (r *Registry) Get(key string) Tool {
	return r.tools[key]
}

// Keys returns the registered tool keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.tools))
	for k := range r.tools {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Invoke dispatches one engine tool call to the registered implementation.
func (r *Registry) Invoke(ctx context.Context, call engine.ToolCall) (any, error) {
	tool := r.tools[call.ToolKey]
	if tool == nil {
		return nil, fmt.Errorf("tool not registered: %s", call.ToolKey)
	}
	r.logger.Debug("invoking tool", "tool", call.ToolKey, "execution_id", call.ExecutionID)
	return tool.Execute(ctx, call.Arguments)
}

var _ engine.ToolInvoker = (*Registry)(nil)

// funcTool adapts a plain function into a Tool.
type funcTool struct {
	key string
	fn  func(ctx context.Context, args map[string]any) (any, error)
}

func (t *funcTool) Key() string { return t.key }

func (t *funcTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	return t.fn(ctx, args)
}

// NewFuncTool wraps fn as a registered-to-be tool under the given key.
func NewFuncTool(key string, fn func(ctx context.Context, args map[string]any) (any, error)) Tool {
	return &funcTool{key: key, fn: fn}
}
