package engine

import (
	"strings"
	"testing"
	"time"
)

func TestExecutionLog_TruncationCaps(t *testing.T) {
	log := NewExecutionLog()

	longReasoning := strings.Repeat("r", 500)
	log.AppendAgentStep(0, 0, "a", Decision{
		Reasoning: longReasoning,
		Action:    Action{Type: ActionRouteToAgent, TargetAgent: "b"},
	})

	longReq := strings.Repeat("q", 500)
	longResp := strings.Repeat("p", 500)
	log.AppendToolStep(1, 0, "a", "search", "exec-1", longReq, longResp, ToolStatusOK, time.Millisecond)

	entries := log.Snapshot()
	if got := len([]rune(entries[0].Detail)); got != reasoningPreviewLen+3 {
		t.Errorf("detail preview length = %d, want %d plus marker", got, reasoningPreviewLen)
	}
	if !strings.HasSuffix(entries[0].Detail, "...") {
		t.Error("truncated detail should end with marker")
	}
	if got := len([]rune(entries[1].RequestPreview)); got != requestPreviewLen+3 {
		t.Errorf("request preview length = %d, want %d plus marker", got, requestPreviewLen)
	}
	if got := len([]rune(entries[1].ResponsePreview)); got != responsePreviewLen+3 {
		t.Errorf("response preview length = %d, want %d plus marker", got, responsePreviewLen)
	}
}

func TestExecutionLog_ShortValuesUntouched(t *testing.T) {
	log := NewExecutionLog()
	log.AppendToolStep(0, 0, "a", "search", "exec-1", `{"q":"go"}`, `["ok"]`, ToolStatusOK, 0)

	e := log.Snapshot()[0]
	if e.RequestPreview != `{"q":"go"}` {
		t.Errorf("request preview = %q", e.RequestPreview)
	}
	if e.ResponsePreview != `["ok"]` {
		t.Errorf("response preview = %q", e.ResponsePreview)
	}
}

func TestExecutionLog_DeniedEntry(t *testing.T) {
	log := NewExecutionLog()
	perr := &PermissionError{Kind: PermissionToolNotEquipped, Agent: "a", Detail: "tool \"x\" is not equipped"}
	log.AppendDenied(2, 1, "a", Decision{Action: Action{Type: ActionUseTool, ToolKey: "x"}}, perr)

	e := log.Snapshot()[0]
	if !e.Denied {
		t.Error("entry should be marked denied")
	}
	if e.Step != 2 || e.Epoch != 1 {
		t.Errorf("step/epoch = %d/%d", e.Step, e.Epoch)
	}
	if !strings.Contains(e.Detail, "tool_not_equipped") {
		t.Errorf("detail should carry the denial kind: %q", e.Detail)
	}
}

func TestExecutionLog_SnapshotIsolated(t *testing.T) {
	log := NewExecutionLog()
	log.AppendAgentStep(0, 0, "a", Decision{Action: Action{Type: ActionRespond, Response: "x"}})

	snap := log.Snapshot()
	snap[0].Agent = "mutated"
	if log.Snapshot()[0].Agent != "a" {
		t.Error("snapshot should be a copy, not the backing slice")
	}
}

func TestExecutionLog_LatestEpochFor(t *testing.T) {
	log := NewExecutionLog()
	if _, ok := log.LatestEpochFor("a"); ok {
		t.Error("empty log should report no epoch")
	}

	log.AppendToolStep(0, 0, "a", "t", "e1", "", "", ToolStatusOK, 0)
	log.AppendAgentStep(1, 0, "a", Decision{Action: Action{Type: ActionRouteToAgent, TargetAgent: "b"}})
	log.AppendToolStep(2, 1, "b", "t", "e2", "", "", ToolStatusOK, 0)
	log.AppendAgentStep(3, 1, "b", Decision{Action: Action{Type: ActionRouteToAgent, TargetAgent: "a"}})
	log.AppendToolStep(4, 2, "a", "t", "e3", "", "", ToolStatusOK, 0)

	if epoch, ok := log.LatestEpochFor("a"); !ok || epoch != 2 {
		t.Errorf("latest epoch for a = %d (%v), want 2", epoch, ok)
	}
	if epoch, ok := log.LatestEpochFor("b"); !ok || epoch != 1 {
		t.Errorf("latest epoch for b = %d (%v), want 1", epoch, ok)
	}
}
