package netfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/switchboard-ai/switchboard/internal/snapshot"
)

// ParseTOML parses a network definition from TOML source.
func ParseTOML(input string) (*File, error) {
	var f File
	if _, err := toml.Decode(input, &f); err != nil {
		return nil, fmt.Errorf("parse network definition: %w", err)
	}
	return &f, nil
}

// ParseYAML parses a network definition from YAML source.
func ParseYAML(input []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(input, &f); err != nil {
		return nil, fmt.Errorf("parse network definition: %w", err)
	}
	return &f, nil
}

// LoadFile loads a network definition, picking the format from the file
// extension, resolving prompt_file references relative to the file's
// directory, and checking the definition's internal consistency. Graph
// validation happens later, at Compile.
func LoadFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network definition: %w", err)
	}

	var f *File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		f, err = ParseTOML(string(content))
	case ".yaml", ".yml":
		f, err = ParseYAML(content)
	default:
		return nil, fmt.Errorf("unsupported network definition format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	f.BaseDir = filepath.Dir(path)

	if err := resolvePrompts(f); err != nil {
		return nil, err
	}
	if err := Check(f); err != nil {
		return nil, err
	}
	return f, nil
}

// resolvePrompts loads prompt_file contents relative to the netfile
// directory. An inline prompt and a prompt_file on the same agent is an
// authoring mistake.
func resolvePrompts(f *File) error {
	for i := range f.Agents {
		a := &f.Agents[i]
		if a.PromptFile == "" {
			continue
		}
		if a.Prompt != "" {
			return fmt.Errorf("agent %q: prompt and prompt_file are mutually exclusive", a.Key)
		}
		content, err := os.ReadFile(filepath.Join(f.BaseDir, a.PromptFile))
		if err != nil {
			return fmt.Errorf("agent %q: load prompt %q: %w", a.Key, a.PromptFile, err)
		}
		a.Prompt = strings.TrimSpace(string(content))
	}
	return nil
}

// Check verifies the definition's internal consistency: names present, keys
// unique, parameter sources recognized. All problems are collected before
// reporting so authors fix a file in one pass.
func Check(f *File) error {
	var errs []string

	if f.Name == "" {
		errs = append(errs, "name is required")
	}
	if len(f.Agents) == 0 {
		errs = append(errs, "at least one agent is required")
	}

	toolKeys := make(map[string]bool, len(f.Tools))
	for _, tool := range f.Tools {
		if tool.Key == "" {
			errs = append(errs, "tool with empty key")
			continue
		}
		if toolKeys[tool.Key] {
			errs = append(errs, fmt.Sprintf("duplicate tool key %q", tool.Key))
		}
		toolKeys[tool.Key] = true

		paramNames := make(map[string]bool, len(tool.Params))
		for _, p := range tool.Params {
			if p.Name == "" {
				errs = append(errs, fmt.Sprintf("tool %q: parameter with empty name", tool.Key))
				continue
			}
			if paramNames[p.Name] {
				errs = append(errs, fmt.Sprintf("tool %q: duplicate parameter %q", tool.Key, p.Name))
			}
			paramNames[p.Name] = true
			if p.Source != "" && !snapshot.ParamSource(p.Source).Valid() {
				errs = append(errs, fmt.Sprintf("tool %q: parameter %q has unknown source %q", tool.Key, p.Name, p.Source))
			}
		}
	}

	agentKeys := make(map[string]bool, len(f.Agents))
	for _, agent := range f.Agents {
		if agent.Key == "" {
			errs = append(errs, "agent with empty key")
			continue
		}
		if agentKeys[agent.Key] {
			errs = append(errs, fmt.Sprintf("duplicate agent key %q", agent.Key))
		}
		agentKeys[agent.Key] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid network definition:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Compile turns a checked definition into a snapshot and runs the graph
// validator over it. The returned findings include non-fatal warnings; the
// error is non-nil when any finding is fatal.
func Compile(f *File) (*snapshot.Snapshot, []snapshot.ValidationError, error) {
	snap := &snapshot.Snapshot{
		Name: f.Name,
		Policy: snapshot.Policy{
			MaxSteps:      f.Policy.MaxSteps,
			MaxToolErrors: f.Policy.MaxToolErrors,
		},
	}

	for _, tool := range f.Tools {
		t := snapshot.Tool{Key: tool.Key, Description: tool.Description}
		for _, p := range tool.Params {
			source := snapshot.ParamSource(p.Source)
			if p.Source == "" {
				source = snapshot.ParamSourceAgent
			}
			t.Params = append(t.Params, snapshot.ParamSpec{
				Name:     p.Name,
				Source:   source,
				Required: p.Required,
				Default:  p.Default,
			})
		}
		snap.Tools = append(snap.Tools, t)
	}

	for _, agent := range f.Agents {
		snap.Agents = append(snap.Agents, snapshot.Agent{
			Key:           agent.Key,
			Prompt:        agent.Prompt,
			IsDefault:     agent.Default,
			AllowRespond:  agent.Respond,
			EquippedTools: agent.Tools,
			AllowedRoutes: agent.Routes,
		})
		if agent.Default {
			snap.DefaultAgentKey = agent.Key
		}
		for _, target := range agent.Routes {
			snap.Routes = append(snap.Routes, snapshot.Route{From: agent.Key, To: target})
		}
	}

	findings := snapshot.Validate(snap)
	if fatal := snapshot.Fatal(findings); len(fatal) > 0 {
		msgs := make([]string, len(fatal))
		for i, f := range fatal {
			msgs[i] = f.Error()
		}
		return nil, findings, fmt.Errorf("invalid network graph:\n  %s", strings.Join(msgs, "\n  "))
	}
	return snap, findings, nil
}
