package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/switchboard-ai/switchboard/internal/snapshot"
)

// State is the run lifecycle state.
type State string

const (
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Default policy limits, applied where the snapshot leaves them unset.
const (
	DefaultMaxSteps      = 16
	DefaultMaxToolErrors = 3
	DefaultToolTimeout   = 60 * time.Second
)

// Policy holds the run-level knobs the engine enforces.
type Policy struct {
	MaxSteps      int
	MaxToolErrors int
	ToolTimeout   time.Duration

	// TolerateDenials feeds permission errors back to the producer on the
	// next step instead of failing the run. Default is fail-fast: a denied
	// action means the producer stepped outside the declared contract.
	TolerateDenials bool
}

func (p Policy) withDefaults() Policy {
	if p.MaxSteps <= 0 {
		p.MaxSteps = DefaultMaxSteps
	}
	if p.MaxToolErrors <= 0 {
		p.MaxToolErrors = DefaultMaxToolErrors
	}
	if p.ToolTimeout <= 0 {
		p.ToolTimeout = DefaultToolTimeout
	}
	return p
}

// PolicyFromSnapshot lifts the snapshot's compiled limits into a run policy.
func PolicyFromSnapshot(s *snapshot.Snapshot) Policy {
	return Policy{
		MaxSteps:      s.Policy.MaxSteps,
		MaxToolErrors: s.Policy.MaxToolErrors,
	}.withDefaults()
}

// RunResult is the in-process outcome of a run. Both guard trips and
// failures carry the full accumulated logs so callers can inspect a partial
// trace.
type RunResult struct {
	RunID        string       `json:"run_id"`
	Network      string       `json:"network"`
	State        State        `json:"state"`
	FinalPayload string       `json:"final_payload,omitempty"`
	Steps        int          `json:"steps"`
	FinalEpoch   int          `json:"final_epoch"`
	FinalAgent   string       `json:"final_agent"`
	ExecutionLog []LogEntry   `json:"execution_log"`
	ToolLogIndex []string     `json:"tool_log_index,omitempty"`
	ToolRecords  []ToolRecord `json:"tool_records,omitempty"`
	Error        string       `json:"error,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	Duration     time.Duration `json:"duration"`
}

// Engine drives one or more runs over a validated snapshot. The snapshot is
// shared and read-only; every run owns its own state and logs, so engines
// for the same snapshot may run concurrently without coordination.
type Engine struct {
	snap    *snapshot.Snapshot
	prod    Producer
	invoker ToolInvoker
	policy  Policy
	logger  *slog.Logger

	systemParams map[string]any
	startAgent   string
	runID        string

	// Callbacks fire synchronously as entries are committed; the CLI uses
	// them to stream a trace file while the run progresses.
	OnEntry      func(LogEntry)
	OnToolRecord func(ToolRecord)
}

// New creates an engine for a validated snapshot. The policy is completed
// with defaults; zero-valued fields fall back to the snapshot's compiled
// limits.
func New(snap *snapshot.Snapshot, prod Producer, invoker ToolInvoker, policy Policy) *Engine {
	if policy.MaxSteps <= 0 {
		policy.MaxSteps = snap.Policy.MaxSteps
	}
	if policy.MaxToolErrors <= 0 {
		policy.MaxToolErrors = snap.Policy.MaxToolErrors
	}
	return &Engine{
		snap:    snap,
		prod:    prod,
		invoker: invoker,
		policy:  policy.withDefaults(),
		logger:  slog.Default().With("component", "engine"),
	}
}

// SetLogger replaces the engine's logger.
func (e *Engine) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l.With("component", "engine")
	}
}

// SetSystemParams supplies the caller-owned map consumed for system-sourced
// tool parameters. It is never exposed to the producer's context.
func (e *Engine) SetSystemParams(params map[string]any) {
	e.systemParams = params
}

// SetStartAgent overrides the snapshot's default agent for the next run.
func (e *Engine) SetStartAgent(key string) {
	e.startAgent = key
}

// SetRunID fixes the next run's id instead of generating one. The CLI uses
// this to name the trace file before the run starts.
func (e *Engine) SetRunID(id string) {
	e.runID = id
}

// run is the per-run mutable state, owned exclusively by one Run call.
type run struct {
	id        string
	agent     string
	step      int
	epoch     int
	toolFails int
	execLog   *ExecutionLog
	toolLog   *ToolLog
	denial    string
	startedAt time.Time
}

// Run executes the loop until the network responds, a guard trips, or the
// producer/permission layer fails the run. The returned result is non-nil in
// every case and always carries the accumulated logs.
func (e *Engine) Run(ctx context.Context, userInput string) (*RunResult, error) {
	start := e.startAgent
	if start == "" {
		start = e.snap.DefaultAgentKey
	}
	if _, ok := e.snap.Agent(start); !ok {
		return nil, fmt.Errorf("start agent %q is not in snapshot %q", start, e.snap.Name)
	}

	id := e.runID
	if id == "" {
		id = uuid.NewString()
	}
	r := &run{
		id:        id,
		agent:     start,
		execLog:   NewExecutionLog(),
		toolLog:   NewToolLog(),
		startedAt: time.Now(),
	}

	ctx, runSpan := startRunSpan(ctx, e.snap.Name, r.id)
	defer runSpan.End()

	logger := e.logger.With("run_id", r.id, "network", e.snap.Name)
	logger.Info("run started", "agent", r.agent, "max_steps", e.policy.MaxSteps)

	for {
		// Cancellation is honored at step boundaries; an in-flight tool
		// call is bounded by its own timeout.
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled", "step", r.step)
			return e.fail(r, runSpan, err), err
		}

		if r.step >= e.policy.MaxSteps {
			err := &GuardTrippedError{Kind: GuardMaxSteps, Steps: r.step}
			logger.Warn("step guard tripped", "step", r.step)
			return e.fail(r, runSpan, err), err
		}

		pc := BuildContext(e.snap, r.agent, r.epoch, r.execLog, r.toolLog, userInput)
		pc.Denial, r.denial = r.denial, ""

		decision, err := e.prod.Produce(ctx, pc)
		if err != nil {
			err = fmt.Errorf("decision producer: %w", err)
			logger.Error("producer failed", "step", r.step, "error", err)
			return e.fail(r, runSpan, err), err
		}

		resolved, err := Authorize(e.snap, r.agent, decision, e.systemParams)
		if err != nil {
			e.appendDenied(r, decision, err)
			logger.Warn("decision denied", "step", r.step, "agent", r.agent, "error", err)
			if e.policy.TolerateDenials {
				r.denial = err.Error()
				r.step++
				continue
			}
			return e.fail(r, runSpan, err), err
		}

		switch resolved.Type {
		case ActionUseTool:
			if tripped := e.executeTool(ctx, r, decision, resolved, logger); tripped != nil {
				r.step++
				return e.fail(r, runSpan, tripped), tripped
			}

		case ActionRouteToAgent:
			e.appendAgent(r, decision)
			logger.Info("routed", "step", r.step, "from", r.agent, "to", resolved.TargetAgent)
			if resolved.TargetAgent != r.agent {
				r.agent = resolved.TargetAgent
				r.epoch++
			}

		case ActionRespond:
			e.appendAgent(r, decision)
			r.step++
			logger.Info("run done", "steps", r.step, "epoch", r.epoch)
			res := e.result(r, StateDone)
			res.FinalPayload = resolved.Response
			endRunSpan(runSpan, string(StateDone), nil)
			return res, nil
		}

		r.step++
	}
}

// executeTool runs one authorized tool call and commits both log tiers. A
// non-nil return means the consecutive-failure guard tripped.
func (e *Engine) executeTool(ctx context.Context, r *run, decision Decision, resolved ResolvedAction, logger *slog.Logger) error {
	executionID := uuid.NewString()
	call := ToolCall{
		ExecutionID: executionID,
		Agent:       r.agent,
		ToolKey:     resolved.Tool.Key,
		Arguments:   resolved.Arguments,
	}

	tctx, cancel := withToolTimeout(ctx, e.policy.ToolTimeout)
	if cancel != nil {
		defer cancel()
	}
	tctx, span := startToolSpan(tctx, call)

	started := time.Now()
	response, err := e.invoker.Invoke(tctx, call)
	duration := time.Since(started)
	endToolSpan(span, err)
	if err != nil {
		err = &ToolExecutionError{ToolKey: call.ToolKey, ExecutionID: executionID, Err: err}
	}

	rec := ToolRecord{
		ExecutionID: executionID,
		Agent:       r.agent,
		Epoch:       r.epoch,
		Step:        r.step,
		ToolKey:     call.ToolKey,
		Request:     call.Arguments,
		Response:    response,
		Status:      ToolStatusOK,
		Duration:    duration,
		StartedAt:   started,
	}
	if err != nil {
		rec.Status = ToolStatusError
		rec.Error = err.Error()
		rec.Response = nil
	}

	// The record is committed only now that the call has fully resolved;
	// a cancelled run never leaves a half-written record behind.
	if putErr := r.toolLog.Put(rec); putErr != nil {
		return putErr
	}
	r.execLog.AppendToolStep(
		r.step, r.epoch, r.agent, call.ToolKey, executionID,
		compactJSON(call.Arguments), compactJSON(rec.Response),
		rec.Status, duration,
	)
	e.emit(r)
	if e.OnToolRecord != nil {
		e.OnToolRecord(rec)
	}

	if err != nil {
		r.toolFails++
		logger.Warn("tool failed", "step", r.step, "tool", call.ToolKey,
			"execution_id", executionID, "consecutive", r.toolFails, "error", err)
		if r.toolFails >= e.policy.MaxToolErrors {
			return &GuardTrippedError{Kind: GuardMaxToolErrors, Steps: r.step, ToolErrors: r.toolFails}
		}
		return nil
	}

	r.toolFails = 0
	logger.Info("tool ok", "step", r.step, "tool", call.ToolKey,
		"execution_id", executionID, "duration", duration)
	return nil
}

func (e *Engine) appendAgent(r *run, d Decision) {
	r.execLog.AppendAgentStep(r.step, r.epoch, r.agent, d)
	e.emit(r)
}

func (e *Engine) appendDenied(r *run, d Decision, err error) {
	r.execLog.AppendDenied(r.step, r.epoch, r.agent, d, err)
	e.emit(r)
}

// emit fires the entry callback for the most recently appended entry.
func (e *Engine) emit(r *run) {
	if e.OnEntry == nil {
		return
	}
	entries := r.execLog.Snapshot()
	e.OnEntry(entries[len(entries)-1])
}

func (e *Engine) result(r *run, state State) *RunResult {
	return &RunResult{
		RunID:        r.id,
		Network:      e.snap.Name,
		State:        state,
		Steps:        r.step,
		FinalEpoch:   r.epoch,
		FinalAgent:   r.agent,
		ExecutionLog: r.execLog.Snapshot(),
		ToolLogIndex: r.toolLog.Keys(),
		ToolRecords:  r.toolLog.Records(),
		StartedAt:    r.startedAt,
		Duration:     time.Since(r.startedAt),
	}
}

func (e *Engine) fail(r *run, span runSpanHandle, err error) *RunResult {
	res := e.result(r, StateFailed)
	res.Error = err.Error()
	endRunSpan(span, string(StateFailed), err)
	return res
}

// compactJSON renders a value for preview truncation. Previews never need to
// round-trip, so marshal failures degrade to fmt.
func compactJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
