package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/switchboard-ai/switchboard/internal/config"
	"github.com/switchboard-ai/switchboard/internal/engine"
	"github.com/switchboard-ai/switchboard/internal/eventing"
	"github.com/switchboard-ai/switchboard/internal/netfile"
	"github.com/switchboard-ai/switchboard/internal/producer"
	"github.com/switchboard-ai/switchboard/internal/producer/modelopenai"
	"github.com/switchboard-ai/switchboard/internal/snapshot"
	"github.com/switchboard-ai/switchboard/internal/telemetry"
	"github.com/switchboard-ai/switchboard/internal/tooling"
	"github.com/switchboard-ai/switchboard/internal/trace"
)

// Run executes one run: compile the network, wire the producer and tools,
// stream the trace, and print the outcome.
func (c *RunCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry.Endpoint, "switchboard", version, cfg.Telemetry.Insecure)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	snap, err := compileFile(c.File, os.Stderr)
	if err != nil {
		return err
	}

	prod, err := c.buildProducer(cfg)
	if err != nil {
		return err
	}

	registry := tooling.NewRegistry()
	if c.Fixtures != "" {
		if err := tooling.LoadFixtures(c.Fixtures, registry); err != nil {
			return err
		}
	}

	policy, err := c.buildPolicy(cfg)
	if err != nil {
		return err
	}

	eng := engine.New(snap, prod, registry, policy)
	if c.Start != "" {
		eng.SetStartAgent(c.Start)
	}
	if len(c.System) > 0 {
		params := make(map[string]any, len(c.System))
		for k, v := range c.System {
			params[k] = v
		}
		eng.SetSystemParams(params)
	}

	runID := uuid.NewString()
	eng.SetRunID(runID)

	var pub eventing.Publisher = eventing.Noop{}
	if cfg.Eventing.URL != "" {
		p, err := eventing.Connect(cfg.Eventing.URL, snap.Name, runID)
		if err != nil {
			return err
		}
		pub = p
	}
	defer pub.Close()

	var writer *trace.Writer
	if !c.NoTrace {
		path := c.Trace
		if path == "" {
			path = filepath.Join(cfg.Trace.Dir, runID+".jsonl")
		}
		writer, err = trace.NewWriter(path)
		if err != nil {
			return err
		}
		defer writer.Close()
		if err := writer.RunStart(runID, snap.Name, c.Input); err != nil {
			return err
		}
	}
	_ = pub.Publish(trace.Record{RecordType: trace.RecordHeader, RunID: runID, Network: snap.Name, Input: c.Input})

	eng.OnEntry = func(e engine.LogEntry) {
		if writer != nil {
			if err := writer.Entry(e); err != nil {
				fmt.Fprintf(os.Stderr, "trace write failed: %v\n", err)
			}
		}
		_ = pub.Publish(trace.Record{RecordType: trace.RecordEntry, Entry: &e})
	}
	eng.OnToolRecord = func(r engine.ToolRecord) {
		if writer != nil {
			if err := writer.ToolRecord(r); err != nil {
				fmt.Fprintf(os.Stderr, "trace write failed: %v\n", err)
			}
		}
		_ = pub.Publish(trace.Record{RecordType: trace.RecordTool, Record: &r})
	}

	res, runErr := eng.Run(ctx, c.Input)
	if res != nil {
		if writer != nil {
			if err := writer.RunEnd(res); err != nil {
				fmt.Fprintf(os.Stderr, "trace write failed: %v\n", err)
			}
		}
		_ = pub.Publish(trace.Record{
			RecordType:   trace.RecordFooter,
			State:        string(res.State),
			FinalPayload: res.FinalPayload,
			Steps:        res.Steps,
			Error:        res.Error,
		})
	}
	if res == nil {
		return runErr
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printResult(res, writer)
	}

	if res.State == engine.StateFailed {
		return fmt.Errorf("run %s failed after %d steps: %s", res.RunID, res.Steps, res.Error)
	}
	return nil
}

func printResult(res *engine.RunResult, writer *trace.Writer) {
	switch res.State {
	case engine.StateDone:
		fmt.Println(res.FinalPayload)
	default:
		fmt.Fprintf(os.Stderr, "run ended in state %s after %d steps\n", res.State, res.Steps)
	}
	if writer != nil {
		fmt.Fprintf(os.Stderr, "trace: %s\n", writer.Path())
	}
}

func (c *RunCmd) buildProducer(cfg *config.Config) (engine.Producer, error) {
	if c.Script != "" {
		return producer.LoadScript(c.Script)
	}
	if cfg.Producer.Kind == "script" {
		return nil, fmt.Errorf("producer kind %q requires --script", cfg.Producer.Kind)
	}
	return modelopenai.New(modelopenai.Config{
		APIKey:      cfg.APIKey(),
		Model:       cfg.Producer.Model,
		BaseURL:     cfg.Producer.BaseURL,
		Temperature: cfg.Producer.Temperature,
		MaxRetries:  cfg.Producer.MaxRetries,
	})
}

func (c *RunCmd) buildPolicy(cfg *config.Config) (engine.Policy, error) {
	p := engine.Policy{
		MaxSteps:        cfg.Policy.MaxSteps,
		MaxToolErrors:   cfg.Policy.MaxToolErrors,
		TolerateDenials: cfg.Policy.TolerateDenials || c.TolerateDenials,
	}
	timeout := cfg.Policy.ToolTimeout
	if c.ToolTimeout != "" {
		timeout = c.ToolTimeout
	}
	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return engine.Policy{}, fmt.Errorf("parse tool timeout %q: %w", timeout, err)
		}
		p.ToolTimeout = d
	}
	if c.MaxSteps > 0 {
		p.MaxSteps = c.MaxSteps
	}
	if c.MaxToolErrors > 0 {
		p.MaxToolErrors = c.MaxToolErrors
	}
	return p, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// compileFile loads, checks and compiles a definition, printing non-fatal
// warnings to w.
func compileFile(path string, w *os.File) (*snapshot.Snapshot, error) {
	f, err := netfile.LoadFile(path)
	if err != nil {
		return nil, err
	}
	snap, findings, err := netfile.Compile(f)
	if err != nil {
		return nil, err
	}
	for _, finding := range findings {
		if finding.Warning {
			fmt.Fprintf(w, "warning: %s\n", finding.Error())
		}
	}
	return snap, nil
}
