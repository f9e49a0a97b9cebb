package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/switchboard-ai/switchboard/internal/config"
)

func TestBuildPolicy_FlagsOverrideConfig(t *testing.T) {
	cfg := config.New()
	cfg.Policy.MaxSteps = 10
	cfg.Policy.ToolTimeout = "45s"

	cmd := &RunCmd{MaxSteps: 3, ToolTimeout: "5s", TolerateDenials: true}
	p, err := cmd.buildPolicy(cfg)
	if err != nil {
		t.Fatalf("buildPolicy: %v", err)
	}
	if p.MaxSteps != 3 {
		t.Errorf("flag should win over config, got max steps %d", p.MaxSteps)
	}
	if p.ToolTimeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", p.ToolTimeout)
	}
	if !p.TolerateDenials {
		t.Error("tolerate-denials flag not applied")
	}
}

func TestBuildPolicy_ConfigUsedWhenNoFlags(t *testing.T) {
	cfg := config.New()
	cfg.Policy.MaxSteps = 10
	cfg.Policy.ToolTimeout = "45s"

	p, err := (&RunCmd{}).buildPolicy(cfg)
	if err != nil {
		t.Fatalf("buildPolicy: %v", err)
	}
	if p.MaxSteps != 10 {
		t.Errorf("expected config max steps, got %d", p.MaxSteps)
	}
	if p.ToolTimeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %v", p.ToolTimeout)
	}
}

func TestBuildPolicy_BadTimeout(t *testing.T) {
	cmd := &RunCmd{ToolTimeout: "soon"}
	if _, err := cmd.buildPolicy(config.New()); err == nil {
		t.Fatal("expected an error for an unparseable timeout")
	}
}

func TestValidateOne(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.toml")
	writeFile(t, good, `
name = "solo"

[[agents]]
key = "only"
prompt = "Answer directly."
default = true
respond = true
`)
	findings, err := validateOne(good)
	if err != nil {
		t.Fatalf("validateOne: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("expected a clean definition, got %v", findings)
	}

	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, bad, `
name = "broken"

[[agents]]
key = "stuck"
prompt = "No way out."
default = true
`)
	findings, err = validateOne(bad)
	if err != nil {
		t.Fatalf("validateOne: %v", err)
	}
	fatal := false
	for _, f := range findings {
		if !f.Warning {
			fatal = true
		}
	}
	if !fatal {
		t.Fatalf("expected a fatal finding for a network with no responder, got %v", findings)
	}
}

func TestValidateOne_MissingFile(t *testing.T) {
	_, err := validateOne(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if !strings.Contains(err.Error(), "nope.toml") {
		t.Errorf("error should name the file, got %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
