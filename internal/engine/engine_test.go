package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/switchboard-ai/switchboard/internal/snapshot"
)

// scriptProducer returns a fixed sequence of decisions and records every
// context it was shown.
type scriptProducer struct {
	decisions []Decision
	calls     int
	seen      []PromptContext
	onProduce func(call int, pc PromptContext)
}

func (p *scriptProducer) Produce(_ context.Context, pc PromptContext) (Decision, error) {
	p.seen = append(p.seen, pc)
	if p.onProduce != nil {
		p.onProduce(p.calls, pc)
	}
	if p.calls >= len(p.decisions) {
		return Decision{}, fmt.Errorf("script exhausted after %d decisions", p.calls)
	}
	d := p.decisions[p.calls]
	p.calls++
	return d, nil
}

type funcInvoker func(ctx context.Context, call ToolCall) (any, error)

func (f funcInvoker) Invoke(ctx context.Context, call ToolCall) (any, error) {
	return f(ctx, call)
}

func okInvoker(response any) funcInvoker {
	return func(context.Context, ToolCall) (any, error) { return response, nil }
}

func route(target string) Decision {
	return Decision{Action: Action{Type: ActionRouteToAgent, TargetAgent: target}}
}

func respond(payload string) Decision {
	return Decision{Action: Action{Type: ActionRespond, Response: payload}}
}

// runnerSnapshot is a single agent equipped with one tool and the respond
// capability, for exercising the tool path.
func runnerSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Name: "runner-net",
		Agents: []snapshot.Agent{
			{
				Key:           "runner",
				IsDefault:     true,
				AllowRespond:  true,
				EquippedTools: []string{"fetch"},
			},
		},
		Tools: []snapshot.Tool{
			{
				Key: "fetch",
				Params: []snapshot.ParamSpec{
					{Name: "url", Source: snapshot.ParamSourceAgent},
				},
			},
		},
		DefaultAgentKey: "runner",
	}
}

// Route then respond: the run completes with the responder's payload, one
// epoch increment, and one log entry per step.
func TestRun_RouteThenRespond(t *testing.T) {
	snap := permSnapshot()
	prod := &scriptProducer{decisions: []Decision{route("writer"), respond("the answer")}}

	eng := New(snap, prod, okInvoker(nil), Policy{})
	res, err := eng.Run(context.Background(), "question")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.State != StateDone {
		t.Fatalf("state = %s", res.State)
	}
	if res.FinalPayload != "the answer" {
		t.Errorf("payload = %q", res.FinalPayload)
	}
	if res.Steps != 2 {
		t.Errorf("steps = %d", res.Steps)
	}
	if res.FinalEpoch != 1 || res.FinalAgent != "writer" {
		t.Errorf("final epoch/agent = %d/%s", res.FinalEpoch, res.FinalAgent)
	}
	if len(res.ExecutionLog) != 2 {
		t.Fatalf("log entries = %d", len(res.ExecutionLog))
	}
	if res.ExecutionLog[0].ActionType != ActionRouteToAgent || res.ExecutionLog[0].Agent != "researcher" {
		t.Errorf("entry 0 = %+v", res.ExecutionLog[0])
	}
	if res.ExecutionLog[1].ActionType != ActionRespond || res.ExecutionLog[1].Epoch != 1 {
		t.Errorf("entry 1 = %+v", res.ExecutionLog[1])
	}

	// The writer's context must not carry the researcher's user-facing
	// denial or tool history, only the shared transcript and input.
	if prod.seen[1].Agent != "writer" || prod.seen[1].UserInput != "question" {
		t.Errorf("second context = %+v", prod.seen[1])
	}
}

// An unequipped tool request fails the run immediately under the default
// fail-fast policy, and the denial is visible in the surfaced log.
func TestRun_DeniedToolFailsFast(t *testing.T) {
	snap := &snapshot.Snapshot{
		Name:            "bare",
		Agents:          []snapshot.Agent{{Key: "solo", IsDefault: true, AllowRespond: true}},
		DefaultAgentKey: "solo",
	}
	prod := &scriptProducer{decisions: []Decision{useTool("hammer", nil)}}

	eng := New(snap, prod, okInvoker(nil), Policy{})
	res, err := eng.Run(context.Background(), "")

	var perr *PermissionError
	if !errors.As(err, &perr) || perr.Kind != PermissionToolNotEquipped {
		t.Fatalf("expected tool_not_equipped, got %v", err)
	}
	if res.State != StateFailed {
		t.Errorf("state = %s", res.State)
	}
	if len(res.ExecutionLog) != 1 || !res.ExecutionLog[0].Denied {
		t.Errorf("denied entry missing: %+v", res.ExecutionLog)
	}
}

// With TolerateDenials the denial is fed back to the producer, which can
// correct itself and finish the run.
func TestRun_TolerateDenials(t *testing.T) {
	snap := permSnapshot()
	prod := &scriptProducer{decisions: []Decision{
		respond("too early"), // researcher cannot respond
		route("writer"),
		respond("done"),
	}}

	eng := New(snap, prod, okInvoker(nil), Policy{TolerateDenials: true})
	res, err := eng.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != StateDone || res.FinalPayload != "done" {
		t.Fatalf("result = %+v", res)
	}

	if prod.seen[0].Denial != "" {
		t.Error("first context should carry no denial")
	}
	if !strings.Contains(prod.seen[1].Denial, "respond_not_allowed") {
		t.Errorf("denial not fed back: %q", prod.seen[1].Denial)
	}
	if prod.seen[2].Denial != "" {
		t.Error("denial should be cleared after one step")
	}
	if !res.ExecutionLog[0].Denied {
		t.Errorf("denied entry missing: %+v", res.ExecutionLog[0])
	}
}

// Three consecutive tool failures trip the guard; the partial logs carry all
// three attempts.
func TestRun_ConsecutiveToolFailureGuard(t *testing.T) {
	snap := runnerSnapshot()
	prod := &scriptProducer{decisions: []Decision{
		useTool("fetch", nil), useTool("fetch", nil), useTool("fetch", nil),
	}}
	boom := funcInvoker(func(context.Context, ToolCall) (any, error) {
		return nil, errors.New("connection refused")
	})

	eng := New(snap, prod, boom, Policy{MaxToolErrors: 3})
	res, err := eng.Run(context.Background(), "")

	var guard *GuardTrippedError
	if !errors.As(err, &guard) || guard.Kind != GuardMaxToolErrors {
		t.Fatalf("expected max_tool_errors guard, got %v", err)
	}
	if guard.ToolErrors != 3 {
		t.Errorf("tool errors = %d", guard.ToolErrors)
	}
	if res.State != StateFailed {
		t.Errorf("state = %s", res.State)
	}
	if len(res.ExecutionLog) != 3 {
		t.Fatalf("log entries = %d", len(res.ExecutionLog))
	}
	for i, e := range res.ExecutionLog {
		if e.Kind != EntryTool || e.Status != ToolStatusError {
			t.Errorf("entry %d = %+v", i, e)
		}
	}
	if len(res.ToolRecords) != 3 {
		t.Errorf("tool records = %d", len(res.ToolRecords))
	}
}

// A success between failures resets the consecutive counter.
func TestRun_ToolFailureCounterResets(t *testing.T) {
	snap := runnerSnapshot()
	prod := &scriptProducer{decisions: []Decision{
		useTool("fetch", nil), useTool("fetch", nil), useTool("fetch", nil), respond("ok"),
	}}
	outcomes := []error{errors.New("flake"), nil, errors.New("flake")}
	call := 0
	flaky := funcInvoker(func(context.Context, ToolCall) (any, error) {
		err := outcomes[call]
		call++
		return "data", err
	})

	eng := New(snap, prod, flaky, Policy{MaxToolErrors: 2})
	res, err := eng.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run should survive non-consecutive failures: %v", err)
	}
	if res.State != StateDone || res.Steps != 4 {
		t.Errorf("result = state %s, steps %d", res.State, res.Steps)
	}
}

func TestRun_MaxStepsGuard(t *testing.T) {
	snap := &snapshot.Snapshot{
		Name: "looper",
		Agents: []snapshot.Agent{
			{Key: "a", IsDefault: true, AllowedRoutes: []string{"b"}},
			{Key: "b", AllowRespond: true, AllowedRoutes: []string{"a"}},
		},
		DefaultAgentKey: "a",
	}
	prod := &scriptProducer{decisions: []Decision{
		route("b"), route("a"), route("b"), route("a"),
	}}

	eng := New(snap, prod, okInvoker(nil), Policy{MaxSteps: 3})
	res, err := eng.Run(context.Background(), "")

	var guard *GuardTrippedError
	if !errors.As(err, &guard) || guard.Kind != GuardMaxSteps {
		t.Fatalf("expected max_steps guard, got %v", err)
	}
	if res.State != StateFailed || res.Steps != 3 {
		t.Errorf("state %s, steps %d", res.State, res.Steps)
	}
	if len(res.ExecutionLog) != 3 {
		t.Errorf("log entries = %d", len(res.ExecutionLog))
	}
}

// Every tool entry in the summary log resolves to a full record under the
// same execution id.
func TestRun_ExecutionIDRoundTrip(t *testing.T) {
	snap := runnerSnapshot()
	longResponse := strings.Repeat("x", 400)
	prod := &scriptProducer{decisions: []Decision{
		useTool("fetch", map[string]any{"url": "https://example.com"}),
		respond("done"),
	}}

	eng := New(snap, prod, okInvoker(longResponse), Policy{})
	res, err := eng.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var toolEntry *LogEntry
	for i := range res.ExecutionLog {
		if res.ExecutionLog[i].Kind == EntryTool {
			toolEntry = &res.ExecutionLog[i]
		}
	}
	if toolEntry == nil {
		t.Fatal("no tool entry recorded")
	}
	if toolEntry.ExecutionID == "" {
		t.Fatal("tool entry has no execution id")
	}
	if len([]rune(toolEntry.ResponsePreview)) > responsePreviewLen+3 {
		t.Errorf("preview not truncated: %d runes", len([]rune(toolEntry.ResponsePreview)))
	}

	var rec *ToolRecord
	for i := range res.ToolRecords {
		if res.ToolRecords[i].ExecutionID == toolEntry.ExecutionID {
			rec = &res.ToolRecords[i]
		}
	}
	if rec == nil {
		t.Fatalf("no full record for execution id %s", toolEntry.ExecutionID)
	}
	if rec.Response != longResponse {
		t.Error("full record should carry the untruncated response")
	}
	if rec.Request["url"] != "https://example.com" {
		t.Errorf("full request = %+v", rec.Request)
	}
}

// A tool that outlives its timeout is recorded as a failure, not hung on.
func TestRun_ToolTimeout(t *testing.T) {
	snap := runnerSnapshot()
	prod := &scriptProducer{decisions: []Decision{useTool("fetch", nil)}}
	hang := funcInvoker(func(ctx context.Context, _ ToolCall) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	eng := New(snap, prod, hang, Policy{ToolTimeout: 10 * time.Millisecond, MaxToolErrors: 1})
	res, err := eng.Run(context.Background(), "")

	var guard *GuardTrippedError
	if !errors.As(err, &guard) {
		t.Fatalf("expected guard after timeout failure, got %v", err)
	}
	if len(res.ToolRecords) != 1 {
		t.Fatalf("tool records = %d", len(res.ToolRecords))
	}
	rec := res.ToolRecords[0]
	if rec.Status != ToolStatusError || !strings.Contains(rec.Error, "deadline exceeded") {
		t.Errorf("record = %+v", rec)
	}
}

// Cancellation is honored at the next step boundary and the partial log
// survives in the result.
func TestRun_Cancellation(t *testing.T) {
	snap := permSnapshot()
	ctx, cancel := context.WithCancel(context.Background())
	prod := &scriptProducer{
		decisions: []Decision{route("writer"), respond("never reached")},
		onProduce: func(call int, _ PromptContext) {
			if call == 0 {
				cancel()
			}
		},
	}

	eng := New(snap, prod, okInvoker(nil), Policy{})
	res, err := eng.Run(ctx, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res == nil || res.State != StateFailed {
		t.Fatalf("result = %+v", res)
	}
	if len(res.ExecutionLog) != 1 {
		t.Errorf("partial log should carry the completed step, got %d entries", len(res.ExecutionLog))
	}
	if prod.calls != 1 {
		t.Errorf("producer called %d times after cancellation", prod.calls)
	}
}

// Routing to the current agent is a no-op for the epoch counter.
func TestRun_SelfRouteKeepsEpoch(t *testing.T) {
	snap := &snapshot.Snapshot{
		Name: "self",
		Agents: []snapshot.Agent{
			{Key: "a", IsDefault: true, AllowRespond: true, AllowedRoutes: []string{"a"}},
		},
		DefaultAgentKey: "a",
	}
	prod := &scriptProducer{decisions: []Decision{route("a"), respond("done")}}

	eng := New(snap, prod, okInvoker(nil), Policy{})
	res, err := eng.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.FinalEpoch != 0 {
		t.Errorf("self route should not advance the epoch, got %d", res.FinalEpoch)
	}
}

// Tool results produced before a route switch never reach the next agent's
// context, but remain visible to the producing agent within its epoch.
func TestRun_ContextLeakageBoundary(t *testing.T) {
	snap := &snapshot.Snapshot{
		Name: "boundary",
		Agents: []snapshot.Agent{
			{Key: "researcher", IsDefault: true, EquippedTools: []string{"fetch"}, AllowedRoutes: []string{"writer"}},
			{Key: "writer", AllowRespond: true},
		},
		Tools: []snapshot.Tool{
			{Key: "fetch", Params: []snapshot.ParamSpec{{Name: "url", Source: snapshot.ParamSourceAgent}}},
		},
		DefaultAgentKey: "researcher",
	}
	prod := &scriptProducer{decisions: []Decision{
		useTool("fetch", map[string]any{"url": "a"}),
		route("writer"),
		respond("done"),
	}}

	eng := New(snap, prod, okInvoker("secret payload"), Policy{})
	if _, err := eng.Run(context.Background(), ""); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Second researcher context (after its own tool call) sees the result.
	if len(prod.seen[1].ToolResults) != 1 {
		t.Fatalf("researcher should see its own result, got %d", len(prod.seen[1].ToolResults))
	}
	// The writer's context must not.
	if len(prod.seen[2].ToolResults) != 0 {
		t.Errorf("tool result leaked across the route switch: %+v", prod.seen[2].ToolResults)
	}
}

// Engine callbacks observe entries and records as they are committed.
func TestRun_Callbacks(t *testing.T) {
	snap := runnerSnapshot()
	prod := &scriptProducer{decisions: []Decision{
		useTool("fetch", nil), respond("done"),
	}}

	eng := New(snap, prod, okInvoker("data"), Policy{})
	var entries []LogEntry
	var records []ToolRecord
	eng.OnEntry = func(e LogEntry) { entries = append(entries, e) }
	eng.OnToolRecord = func(r ToolRecord) { records = append(records, r) }

	if _, err := eng.Run(context.Background(), ""); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("entry callbacks = %d", len(entries))
	}
	if len(records) != 1 || records[0].ToolKey != "fetch" {
		t.Errorf("record callbacks = %+v", records)
	}
}

func TestRun_UnknownStartAgent(t *testing.T) {
	snap := runnerSnapshot()
	eng := New(snap, &scriptProducer{}, okInvoker(nil), Policy{})
	eng.SetStartAgent("ghost")

	if _, err := eng.Run(context.Background(), ""); err == nil {
		t.Fatal("unknown start agent should be rejected before the loop")
	}
}
