// Package engine implements the deterministic run loop that drives an agent
// network: one externally produced decision per step, validated against the
// compiled permission graph, executed, and recorded in a two-tier log.
package engine

import (
	"context"
	"fmt"
)

// ActionType enumerates the closed set of effects a decision can request.
type ActionType string

const (
	ActionUseTool      ActionType = "USE_TOOL"
	ActionRouteToAgent ActionType = "ROUTE_TO_AGENT"
	ActionRespond      ActionType = "RESPOND"
)

// Action is the type-discriminated payload of a decision. Exactly the fields
// for its Type are meaningful; the engine's dispatch over Type is exhaustive.
type Action struct {
	Type ActionType `json:"type"`

	// USE_TOOL
	ToolKey   string         `json:"tool_key,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`

	// ROUTE_TO_AGENT
	TargetAgent string `json:"target_agent,omitempty"`

	// RESPOND
	Response string `json:"response,omitempty"`
}

// Decision is the structured choice produced externally for the current step.
// The engine consumes it as plain data; how it was obtained (LLM call,
// script, replay) is the producer's concern.
type Decision struct {
	Reasoning string `json:"reasoning,omitempty"`
	Action    Action `json:"action"`
}

// checkShape verifies the decision is well formed before it reaches the
// permission enforcer. Shape failures are treated as permission errors of
// kind PermissionMalformedDecision.
func (d Decision) checkShape() error {
	switch d.Action.Type {
	case ActionUseTool:
		if d.Action.ToolKey == "" {
			return fmt.Errorf("USE_TOOL decision is missing tool_key")
		}
	case ActionRouteToAgent:
		if d.Action.TargetAgent == "" {
			return fmt.Errorf("ROUTE_TO_AGENT decision is missing target_agent")
		}
	case ActionRespond:
		// An empty response payload is unusual but not malformed.
	default:
		return fmt.Errorf("unknown action type %q", d.Action.Type)
	}
	return nil
}

// summary renders a bounded one-line preview of the decision for the
// execution log.
func (d Decision) summary() string {
	switch d.Action.Type {
	case ActionUseTool:
		return fmt.Sprintf("use tool %s: %s", d.Action.ToolKey, d.Reasoning)
	case ActionRouteToAgent:
		return fmt.Sprintf("route to %s: %s", d.Action.TargetAgent, d.Reasoning)
	case ActionRespond:
		return fmt.Sprintf("respond: %s", d.Action.Response)
	default:
		return fmt.Sprintf("unknown action %q", d.Action.Type)
	}
}

// Producer supplies the non-deterministic half of the loop: given the
// assembled context for the current agent, it returns the next decision.
// Retry and timeout policy for the underlying call belong to the producer,
// not to the engine; the engine only needs a decision or a terminal error.
type Producer interface {
	Produce(ctx context.Context, pc PromptContext) (Decision, error)
}
