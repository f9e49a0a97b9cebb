package engine

import (
	"fmt"
	"time"
)

// ToolRecord is the full, untruncated payload of one tool invocation. One
// record per execution id; records are committed only once the underlying
// call fully resolves and are never overwritten.
type ToolRecord struct {
	ExecutionID string         `json:"execution_id"`
	Agent       string         `json:"agent"`
	Epoch       int            `json:"epoch"`
	Step        int            `json:"step"`
	ToolKey     string         `json:"tool_key"`
	Request     map[string]any `json:"request"`
	Response    any            `json:"response,omitempty"`
	Status      ToolStatus     `json:"status"`
	Error       string         `json:"error,omitempty"`
	Duration    time.Duration  `json:"duration"`
	StartedAt   time.Time      `json:"started_at"`
}

// ToolLog stores full tool records keyed by execution id, preserving
// insertion order. It is the replay-grade half of the two-tier log: the
// ExecutionLog holds the truncated previews, this holds everything.
type ToolLog struct {
	records map[string]ToolRecord
	order   []string
}

// NewToolLog returns an empty log.
func NewToolLog() *ToolLog {
	return &ToolLog{records: make(map[string]ToolRecord)}
}

// Put commits a record. Re-using an execution id is a programming error and
// is refused rather than silently overwriting history.
func (l *ToolLog) Put(rec ToolRecord) error {
	if rec.ExecutionID == "" {
		return fmt.Errorf("tool record has no execution id")
	}
	if _, exists := l.records[rec.ExecutionID]; exists {
		return fmt.Errorf("execution id %q already recorded", rec.ExecutionID)
	}
	l.records[rec.ExecutionID] = rec
	l.order = append(l.order, rec.ExecutionID)
	return nil
}

// Get returns the record for an execution id.
func (l *ToolLog) Get(executionID string) (ToolRecord, bool) {
	rec, ok := l.records[executionID]
	return rec, ok
}

// CollectFor returns every record owned by the given agent within the given
// control epoch, in original recording order. This is the context builder's
// leakage boundary: nothing outside (agent, epoch) is ever returned.
func (l *ToolLog) CollectFor(agent string, epoch int) []ToolRecord {
	var out []ToolRecord
	for _, id := range l.order {
		rec := l.records[id]
		if rec.Agent == agent && rec.Epoch == epoch {
			out = append(out, rec)
		}
	}
	return out
}

// Keys returns all execution ids in recording order.
func (l *ToolLog) Keys() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Records returns all records in recording order.
func (l *ToolLog) Records() []ToolRecord {
	out := make([]ToolRecord, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.records[id])
	}
	return out
}

// Len returns the number of committed records.
func (l *ToolLog) Len() int { return len(l.order) }
