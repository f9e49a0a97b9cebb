package engine

import (
	"fmt"

	"github.com/switchboard-ai/switchboard/internal/snapshot"
)

// ResolvedAction is the outcome of a successful authorization: the action
// with every tool parameter resolved to its final value.
type ResolvedAction struct {
	Type        ActionType
	Tool        *snapshot.Tool
	Arguments   map[string]any
	TargetAgent string
	Response    string
}

// Authorize classifies a decision against the compiled permission graph and
// resolves parameter sourcing. It is pure: no side effects, no logging; it
// either returns a fully resolved action or a *PermissionError.
//
// System-sourced parameters are taken exclusively from systemParams. A
// same-named value in the decision's arguments is ignored, which is what
// keeps agent input from ever injecting into system-controlled fields.
func Authorize(snap *snapshot.Snapshot, agentKey string, d Decision, systemParams map[string]any) (ResolvedAction, error) {
	agent, ok := snap.Agent(agentKey)
	if !ok {
		return ResolvedAction{}, &PermissionError{
			Kind:   PermissionMalformedDecision,
			Agent:  agentKey,
			Detail: fmt.Sprintf("unknown deciding agent %q", agentKey),
		}
	}

	if err := d.checkShape(); err != nil {
		return ResolvedAction{}, &PermissionError{
			Kind:   PermissionMalformedDecision,
			Agent:  agentKey,
			Detail: err.Error(),
		}
	}

	switch d.Action.Type {
	case ActionUseTool:
		return authorizeToolUse(snap, agent, d, systemParams)

	case ActionRouteToAgent:
		target := d.Action.TargetAgent
		if !agent.CanRouteTo(target) {
			return ResolvedAction{}, &PermissionError{
				Kind:   PermissionUnauthorizedRoute,
				Agent:  agentKey,
				Detail: fmt.Sprintf("route to %q is not allowed", target),
			}
		}
		return ResolvedAction{Type: ActionRouteToAgent, TargetAgent: target}, nil

	case ActionRespond:
		if !agent.AllowRespond {
			return ResolvedAction{}, &PermissionError{
				Kind:   PermissionRespondNotAllowed,
				Agent:  agentKey,
				Detail: "agent cannot terminate the run",
			}
		}
		return ResolvedAction{Type: ActionRespond, Response: d.Action.Response}, nil
	}

	// checkShape rejects unknown types; this is unreachable.
	return ResolvedAction{}, &PermissionError{
		Kind:   PermissionMalformedDecision,
		Agent:  agentKey,
		Detail: fmt.Sprintf("unhandled action type %q", d.Action.Type),
	}
}

func authorizeToolUse(snap *snapshot.Snapshot, agent *snapshot.Agent, d Decision, systemParams map[string]any) (ResolvedAction, error) {
	key := d.Action.ToolKey
	if !agent.HasTool(key) {
		return ResolvedAction{}, &PermissionError{
			Kind:   PermissionToolNotEquipped,
			Agent:  agent.Key,
			Detail: fmt.Sprintf("tool %q is not equipped", key),
		}
	}
	tool, ok := snap.Tool(key)
	if !ok {
		// The validator rejects snapshots with dangling tool references, so
		// an equipped-but-missing tool means the snapshot was never
		// validated. Still refuse rather than panic.
		return ResolvedAction{}, &PermissionError{
			Kind:   PermissionToolNotEquipped,
			Agent:  agent.Key,
			Detail: fmt.Sprintf("tool %q is not part of the snapshot", key),
		}
	}

	resolved := make(map[string]any, len(tool.Params))
	for _, p := range tool.Params {
		switch p.Source {
		case snapshot.ParamSourceAgent:
			v, present := d.Action.Arguments[p.Name]
			if !present {
				if p.Required {
					return ResolvedAction{}, &PermissionError{
						Kind:   PermissionMissingParameter,
						Agent:  agent.Key,
						Detail: fmt.Sprintf("tool %q requires parameter %q", key, p.Name),
					}
				}
				continue
			}
			resolved[p.Name] = v

		case snapshot.ParamSourceSystem:
			v, present := systemParams[p.Name]
			if !present {
				if p.Required {
					return ResolvedAction{}, &PermissionError{
						Kind:   PermissionMissingParameter,
						Agent:  agent.Key,
						Detail: fmt.Sprintf("tool %q requires system parameter %q", key, p.Name),
					}
				}
				continue
			}
			resolved[p.Name] = v

		case snapshot.ParamSourceDefault:
			if v, present := d.Action.Arguments[p.Name]; present {
				resolved[p.Name] = v
			} else if p.Default != nil {
				resolved[p.Name] = p.Default
			} else if p.Required {
				return ResolvedAction{}, &PermissionError{
					Kind:   PermissionMissingParameter,
					Agent:  agent.Key,
					Detail: fmt.Sprintf("tool %q parameter %q has no value and no default", key, p.Name),
				}
			}
		}
	}

	return ResolvedAction{Type: ActionUseTool, Tool: tool, Arguments: resolved}, nil
}
