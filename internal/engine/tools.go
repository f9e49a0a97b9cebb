package engine

import (
	"context"
	"time"
)

// ToolCall is one resolved tool invocation handed to the external tool
// collaborator.
type ToolCall struct {
	ExecutionID string
	Agent       string
	ToolKey     string
	Arguments   map[string]any
}

// ToolInvoker executes tool calls. Implementations live outside the engine
// (internal/tooling provides a registry); the engine only wraps the call in
// a timeout and records the outcome.
type ToolInvoker interface {
	Invoke(ctx context.Context, call ToolCall) (any, error)
}

// withToolTimeout bounds a tool invocation so a hung external call cannot
// stall the run. A shorter deadline already on the context wins.
func withToolTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
