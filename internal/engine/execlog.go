package engine

import (
	"time"
)

// Preview caps for the execution log. Truncation here is lossy on purpose:
// the summary log exists to be injected into prompts and rendered in
// transcripts without bloating either. Full payloads live only in the
// ToolLog.
const (
	reasoningPreviewLen = 120
	requestPreviewLen   = 50
	responsePreviewLen  = 100
)

// EntryKind discriminates execution log entries.
type EntryKind string

const (
	EntryAgent EntryKind = "agent"
	EntryTool  EntryKind = "tool"
)

// ToolStatus records how a tool invocation ended.
type ToolStatus string

const (
	ToolStatusOK    ToolStatus = "ok"
	ToolStatusError ToolStatus = "error"
)

// LogEntry is one compact, truncated step summary. Entries are append-only
// and never mutated: ordering equals append order equals step order.
type LogEntry struct {
	Kind  EntryKind `json:"kind"`
	Step  int       `json:"step"`
	Epoch int       `json:"epoch"`
	Agent string    `json:"agent"`

	// Agent-kind fields.
	ActionType ActionType `json:"action_type,omitempty"`
	Detail     string     `json:"detail,omitempty"`
	Denied     bool       `json:"denied,omitempty"`

	// Tool-kind fields.
	ToolKey         string        `json:"tool_key,omitempty"`
	ExecutionID     string        `json:"execution_id,omitempty"`
	RequestPreview  string        `json:"request_preview,omitempty"`
	ResponsePreview string        `json:"response_preview,omitempty"`
	Status          ToolStatus    `json:"status,omitempty"`
	Duration        time.Duration `json:"duration,omitempty"`
}

// ExecutionLog is the ordered sequence of step summaries for one run. It is
// owned exclusively by that run's engine; no locking is needed because steps
// are strictly sequential.
type ExecutionLog struct {
	entries []LogEntry
}

// NewExecutionLog returns an empty log.
func NewExecutionLog() *ExecutionLog {
	return &ExecutionLog{}
}

// AppendAgentStep records a routing or respond decision.
func (l *ExecutionLog) AppendAgentStep(step, epoch int, agent string, d Decision) {
	l.entries = append(l.entries, LogEntry{
		Kind:       EntryAgent,
		Step:       step,
		Epoch:      epoch,
		Agent:      agent,
		ActionType: d.Action.Type,
		Detail:     truncate(d.summary(), reasoningPreviewLen),
	})
}

// AppendDenied records a decision the permission enforcer rejected.
func (l *ExecutionLog) AppendDenied(step, epoch int, agent string, d Decision, err error) {
	l.entries = append(l.entries, LogEntry{
		Kind:       EntryAgent,
		Step:       step,
		Epoch:      epoch,
		Agent:      agent,
		ActionType: d.Action.Type,
		Detail:     truncate(err.Error(), reasoningPreviewLen),
		Denied:     true,
	})
}

// AppendToolStep records a completed tool invocation with bounded previews.
// The full request and response are recorded separately in the ToolLog under
// the same execution id.
func (l *ExecutionLog) AppendToolStep(step, epoch int, agent, toolKey, executionID, request, response string, status ToolStatus, duration time.Duration) {
	l.entries = append(l.entries, LogEntry{
		Kind:            EntryTool,
		Step:            step,
		Epoch:           epoch,
		Agent:           agent,
		ToolKey:         toolKey,
		ExecutionID:     executionID,
		RequestPreview:  truncate(request, requestPreviewLen),
		ResponsePreview: truncate(response, responsePreviewLen),
		Status:          status,
		Duration:        duration,
	})
}

// Snapshot returns a copy of the entries, safe to hand to callers and
// prompts without exposing the backing slice.
func (l *ExecutionLog) Snapshot() []LogEntry {
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *ExecutionLog) Len() int { return len(l.entries) }

// LatestEpochFor returns the most recent epoch in which the given agent
// held control, or false if the agent has no entries yet.
func (l *ExecutionLog) LatestEpochFor(agent string) (int, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Agent == agent {
			return l.entries[i].Epoch, true
		}
	}
	return 0, false
}

// truncate bounds s to max runes, marking the cut. Previews are summaries,
// not reversible encodings.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
