package engine

import (
	"testing"
)

// Context for an agent at an epoch holds exactly that agent's records from
// that epoch, even when the same agent held control earlier. This is the
// boundary that keeps one agent's raw tool output from leaking into another
// agent's prompt after a route switch.
func TestBuildContext_EpochBoundary(t *testing.T) {
	snap := permSnapshot()
	execLog := NewExecutionLog()
	toolLog := NewToolLog()

	// Epoch 0: researcher calls the tool twice, then routes away.
	mustPut(t, toolLog, ToolRecord{ExecutionID: "e1", Agent: "researcher", Epoch: 0, ToolKey: "web_search", Response: "first"})
	mustPut(t, toolLog, ToolRecord{ExecutionID: "e2", Agent: "researcher", Epoch: 0, ToolKey: "web_search", Response: "second"})
	execLog.AppendToolStep(0, 0, "researcher", "web_search", "e1", "", "", ToolStatusOK, 0)
	execLog.AppendToolStep(1, 0, "researcher", "web_search", "e2", "", "", ToolStatusOK, 0)
	execLog.AppendAgentStep(2, 0, "researcher", Decision{Action: Action{Type: ActionRouteToAgent, TargetAgent: "writer"}})

	// Epoch 1: writer sees no tool results at all.
	pc := BuildContext(snap, "writer", 1, execLog, toolLog, "write it up")
	if len(pc.ToolResults) != 0 {
		t.Errorf("writer should see no tool results, got %d", len(pc.ToolResults))
	}
	if len(pc.Transcript) != 3 {
		t.Errorf("transcript should carry the full log, got %d entries", len(pc.Transcript))
	}

	// Epoch 2: control routed back to researcher. Its epoch 0 outputs stay
	// behind the boundary.
	pc = BuildContext(snap, "researcher", 2, execLog, toolLog, "write it up")
	if len(pc.ToolResults) != 0 {
		t.Errorf("prior-epoch outputs leaked across a route switch: %+v", pc.ToolResults)
	}

	// Within its own epoch the agent sees everything, in order.
	pc = BuildContext(snap, "researcher", 0, execLog, toolLog, "write it up")
	if len(pc.ToolResults) != 2 {
		t.Fatalf("researcher epoch 0 should see 2 results, got %d", len(pc.ToolResults))
	}
	if pc.ToolResults[0].ExecutionID != "e1" || pc.ToolResults[1].ExecutionID != "e2" {
		t.Errorf("results out of order: %+v", pc.ToolResults)
	}
	if pc.ToolResults[1].Response != "second" {
		t.Errorf("full response missing: %+v", pc.ToolResults[1])
	}
}

func TestBuildContext_AgentCapabilities(t *testing.T) {
	snap := permSnapshot()
	pc := BuildContext(snap, "researcher", 0, NewExecutionLog(), NewToolLog(), "find sources")

	if pc.Network != "perm-test" || pc.Agent != "researcher" {
		t.Errorf("identity fields: %s / %s", pc.Network, pc.Agent)
	}
	if pc.UserInput != "find sources" {
		t.Errorf("user input = %q", pc.UserInput)
	}
	if len(pc.Tools) != 1 || pc.Tools[0].Key != "web_search" {
		t.Fatalf("tools = %+v", pc.Tools)
	}
	if len(pc.Routes) != 1 || pc.Routes[0] != "writer" {
		t.Errorf("routes = %v", pc.Routes)
	}
	if pc.AllowRespond {
		t.Error("researcher cannot respond")
	}
}

// System-sourced parameters are invisible to the producer: the tool spec in
// the context omits them entirely.
func TestBuildContext_SystemParamsHidden(t *testing.T) {
	snap := permSnapshot()
	pc := BuildContext(snap, "researcher", 0, NewExecutionLog(), NewToolLog(), "")

	for _, p := range pc.Tools[0].Params {
		if p.Name == "api_key" {
			t.Fatal("system parameter exposed in tool spec")
		}
	}
	if len(pc.Tools[0].Params) != 2 {
		t.Errorf("expected agent and default params only, got %+v", pc.Tools[0].Params)
	}
}

func mustPut(t *testing.T, log *ToolLog, rec ToolRecord) {
	t.Helper()
	if err := log.Put(rec); err != nil {
		t.Fatalf("put %s: %v", rec.ExecutionID, err)
	}
}
