package snapshot

import (
	"fmt"
	"strings"
)

// ErrorKind discriminates validation failures so publishers can report each
// violated invariant distinctly.
type ErrorKind string

const (
	// ErrDefaultAgentUniqueness: not exactly one agent marked default.
	ErrDefaultAgentUniqueness ErrorKind = "default_agent_uniqueness"
	// ErrRespondCapabilityExists: no agent may respond, so no run can end.
	ErrRespondCapabilityExists ErrorKind = "respond_capability_exists"
	// ErrRouteReferentialIntegrity: a route endpoint names a missing agent.
	ErrRouteReferentialIntegrity ErrorKind = "route_referential_integrity"
	// ErrToolReferentialIntegrity: an equipped tool names a missing tool.
	ErrToolReferentialIntegrity ErrorKind = "tool_referential_integrity"
	// ErrReachability: no path from the default agent to a responder.
	ErrReachability ErrorKind = "reachability"
)

// ValidationError is one violated publish-time invariant. Warnings report
// suspicious topology (agents trapped away from any responder) without
// blocking publication.
type ValidationError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Warning bool      `json:"warning,omitempty"`
}

func (e ValidationError) Error() string {
	if e.Warning {
		return fmt.Sprintf("%s (warning): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Fatal filters errs down to publication-blocking errors.
func Fatal(errs []ValidationError) []ValidationError {
	var out []ValidationError
	for _, e := range errs {
		if !e.Warning {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks every publish-time invariant and returns all violations.
// Checks are never short-circuited: a snapshot with three problems reports
// three errors. A snapshot is publishable iff Fatal(Validate(s)) is empty.
func Validate(s *Snapshot) []ValidationError {
	var errs []ValidationError

	agents := make(map[string]bool, len(s.Agents))
	for _, a := range s.Agents {
		agents[a.Key] = true
	}
	tools := make(map[string]bool, len(s.Tools))
	for _, t := range s.Tools {
		tools[t.Key] = true
	}

	// Exactly one default agent, and it must match DefaultAgentKey.
	var defaults []string
	for _, a := range s.Agents {
		if a.IsDefault {
			defaults = append(defaults, a.Key)
		}
	}
	switch len(defaults) {
	case 0:
		errs = append(errs, ValidationError{
			Kind:    ErrDefaultAgentUniqueness,
			Message: "no agent is marked default",
		})
	case 1:
		if s.DefaultAgentKey != "" && s.DefaultAgentKey != defaults[0] {
			errs = append(errs, ValidationError{
				Kind: ErrDefaultAgentUniqueness,
				Message: fmt.Sprintf("default_agent_key %q does not match default agent %q",
					s.DefaultAgentKey, defaults[0]),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Kind:    ErrDefaultAgentUniqueness,
			Message: fmt.Sprintf("multiple agents marked default: %s", strings.Join(defaults, ", ")),
		})
	}

	// At least one agent can respond.
	responders := make(map[string]bool)
	for _, a := range s.Agents {
		if a.AllowRespond {
			responders[a.Key] = true
		}
	}
	if len(responders) == 0 {
		errs = append(errs, ValidationError{
			Kind:    ErrRespondCapabilityExists,
			Message: "no agent has allow_respond set",
		})
	}

	// Every route endpoint must exist.
	for _, r := range s.Routes {
		if !agents[r.From] {
			errs = append(errs, ValidationError{
				Kind:    ErrRouteReferentialIntegrity,
				Message: fmt.Sprintf("route %s->%s: unknown source agent %q", r.From, r.To, r.From),
			})
		}
		if !agents[r.To] {
			errs = append(errs, ValidationError{
				Kind:    ErrRouteReferentialIntegrity,
				Message: fmt.Sprintf("route %s->%s: unknown target agent %q", r.From, r.To, r.To),
			})
		}
	}

	// Every equipped tool must exist.
	for _, a := range s.Agents {
		for _, tk := range a.EquippedTools {
			if !tools[tk] {
				errs = append(errs, ValidationError{
					Kind:    ErrToolReferentialIntegrity,
					Message: fmt.Sprintf("agent %q equips unknown tool %q", a.Key, tk),
				})
			}
		}
	}

	// Reachability runs even when earlier checks failed, so every violation
	// surfaces in one pass. It needs a start key and at least one responder
	// to be meaningful.
	start := s.DefaultAgentKey
	if start == "" && len(defaults) == 1 {
		start = defaults[0]
	}
	if start != "" && agents[start] && len(responders) > 0 {
		errs = append(errs, checkReachability(s, start, responders)...)
	}

	return errs
}

// checkReachability walks the route adjacency breadth-first from the default
// agent. The graph is valid when some responder is reachable; agents that are
// reachable but can never hand control to a responder (cycles with no exit)
// are reported as warnings only.
func checkReachability(s *Snapshot, start string, responders map[string]bool) []ValidationError {
	adj := s.adjacency()

	// Forward BFS from the start agent. Iterative with an explicit visited
	// set: route graphs may contain cycles.
	reachable := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	// Reverse BFS from every responder: the set of agents that can still
	// terminate a run.
	radj := make(map[string][]string)
	for _, r := range s.Routes {
		radj[r.To] = append(radj[r.To], r.From)
	}
	canTerminate := make(map[string]bool)
	for key := range responders {
		if canTerminate[key] {
			continue
		}
		canTerminate[key] = true
		queue = append(queue[:0], key)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, prev := range radj[cur] {
				if !canTerminate[prev] {
					canTerminate[prev] = true
					queue = append(queue, prev)
				}
			}
		}
	}

	var errs []ValidationError
	if !canTerminate[start] {
		errs = append(errs, ValidationError{
			Kind: ErrReachability,
			Message: fmt.Sprintf("no path from default agent %q to a respond-capable agent", start),
		})
	}
	for _, a := range s.Agents {
		if a.Key == start || !reachable[a.Key] || canTerminate[a.Key] {
			continue
		}
		errs = append(errs, ValidationError{
			Kind:    ErrReachability,
			Message: fmt.Sprintf("agent %q is reachable but cannot reach a respond-capable agent", a.Key),
			Warning: true,
		})
	}
	return errs
}
