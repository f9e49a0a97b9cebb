package engine

import (
	"github.com/switchboard-ai/switchboard/internal/snapshot"
)

// ToolDigest is one full tool result included in a prompt context, labeled
// by tool key and execution id.
type ToolDigest struct {
	ExecutionID string         `json:"execution_id"`
	ToolKey     string         `json:"tool_key"`
	Request     map[string]any `json:"request"`
	Response    any            `json:"response,omitempty"`
	Status      ToolStatus     `json:"status"`
	Error       string         `json:"error,omitempty"`
}

// PromptContext is everything a producer gets to see when asked for the next
// decision: the current agent's compiled prompt and capabilities, the full
// tool results of the agent's current control epoch, a truncated rendering
// of the whole execution log, and the user input.
//
// System parameter values are deliberately absent, and tool specs are
// filtered down to the parameters the agent is allowed to supply.
type PromptContext struct {
	Network      string          `json:"network"`
	Agent        string          `json:"agent"`
	Prompt       string          `json:"prompt,omitempty"`
	Tools        []snapshot.Tool `json:"tools,omitempty"`
	Routes       []string        `json:"routes,omitempty"`
	AllowRespond bool            `json:"allow_respond"`
	UserInput    string          `json:"user_input,omitempty"`
	ToolResults  []ToolDigest    `json:"tool_results,omitempty"`
	Transcript   []LogEntry      `json:"transcript,omitempty"`

	// Denial carries the previous step's permission error when the run
	// policy tolerates denials, giving the producer a chance to correct
	// itself.
	Denial string `json:"denial,omitempty"`
}

// BuildContext assembles the prompt context for the current agent at the
// current control epoch.
//
// Tool results are scoped to exactly (agentKey, epoch): outputs from another
// agent's epoch, or from an epoch before the most recent route switch into
// this agent, never appear. The epoch comes from the run state rather than
// from the log: right after a route switch the agent has no entries in its
// new epoch yet, and resolving the epoch from the log would resurrect its
// previous epoch's outputs across the leakage boundary. If the agent has no
// tool history in this epoch, only the user input and the static prompt
// fragment are included.
func BuildContext(snap *snapshot.Snapshot, agentKey string, epoch int, execLog *ExecutionLog, toolLog *ToolLog, userInput string) PromptContext {
	pc := PromptContext{
		Network:    snap.Name,
		Agent:      agentKey,
		UserInput:  userInput,
		Transcript: execLog.Snapshot(),
	}

	agent, ok := snap.Agent(agentKey)
	if !ok {
		return pc
	}
	pc.Prompt = agent.Prompt
	pc.Routes = append(pc.Routes, agent.AllowedRoutes...)
	pc.AllowRespond = agent.AllowRespond

	for _, key := range agent.EquippedTools {
		tool, ok := snap.Tool(key)
		if !ok {
			continue
		}
		pc.Tools = append(pc.Tools, agentVisibleSpec(tool))
	}

	for _, rec := range toolLog.CollectFor(agentKey, epoch) {
		pc.ToolResults = append(pc.ToolResults, ToolDigest{
			ExecutionID: rec.ExecutionID,
			ToolKey:     rec.ToolKey,
			Request:     rec.Request,
			Response:    rec.Response,
			Status:      rec.Status,
			Error:       rec.Error,
		})
	}
	return pc
}

// agentVisibleSpec strips system-sourced parameters from a tool spec. The
// producer never learns that system parameters exist, let alone their
// values.
func agentVisibleSpec(tool *snapshot.Tool) snapshot.Tool {
	out := snapshot.Tool{Key: tool.Key, Description: tool.Description}
	for _, p := range tool.Params {
		if p.Source == snapshot.ParamSourceSystem {
			continue
		}
		out.Params = append(out.Params, p)
	}
	return out
}
