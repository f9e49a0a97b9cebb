package engine

import "fmt"

// PermissionKind discriminates authorization failures.
type PermissionKind string

const (
	// PermissionToolNotEquipped: the agent asked for a tool outside its
	// equipped set (or one that does not exist in the snapshot).
	PermissionToolNotEquipped PermissionKind = "tool_not_equipped"
	// PermissionMissingParameter: a required agent-sourced parameter was
	// absent from the decision's arguments.
	PermissionMissingParameter PermissionKind = "missing_parameter"
	// PermissionUnauthorizedRoute: the route target is not in the agent's
	// allowed routes.
	PermissionUnauthorizedRoute PermissionKind = "unauthorized_route"
	// PermissionRespondNotAllowed: the agent lacks the respond capability.
	PermissionRespondNotAllowed PermissionKind = "respond_not_allowed"
	// PermissionMalformedDecision: the decision failed shape checks before
	// reaching the enforcer proper.
	PermissionMalformedDecision PermissionKind = "malformed_decision"
)

// PermissionError reports a decision outside the declared contract. The
// engine fails fast on these by default; with Policy.TolerateDenials the
// denial is surfaced to the producer in the next context instead.
type PermissionError struct {
	Kind   PermissionKind
	Agent  string
	Detail string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied for agent %q (%s): %s", e.Agent, e.Kind, e.Detail)
}

// GuardKind names the termination guard that tripped.
type GuardKind string

const (
	GuardMaxSteps      GuardKind = "max_steps"
	GuardMaxToolErrors GuardKind = "max_tool_errors"
)

// GuardTrippedError terminates a run that exceeded a policy limit. The
// accumulated logs are always attached to the run result, never discarded.
type GuardTrippedError struct {
	Kind       GuardKind
	Steps      int
	ToolErrors int
}

func (e *GuardTrippedError) Error() string {
	switch e.Kind {
	case GuardMaxToolErrors:
		return fmt.Sprintf("guard tripped: %d consecutive tool failures at step %d", e.ToolErrors, e.Steps)
	default:
		return fmt.Sprintf("guard tripped: step limit %d reached", e.Steps)
	}
}

// ToolExecutionError wraps a failed tool invocation. These are recoverable:
// the loop continues with the same agent until the consecutive-failure guard
// trips.
type ToolExecutionError struct {
	ToolKey     string
	ExecutionID string
	Err         error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s (execution %s): %v", e.ToolKey, e.ExecutionID, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }
