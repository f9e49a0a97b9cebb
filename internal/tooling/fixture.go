package tooling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// FixtureOutcome is one canned tool result. Exactly one of Response or Error
// is meaningful.
type FixtureOutcome struct {
	Response any    `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// fixtureTool replays canned outcomes in order, one per invocation. Once the
// script runs out, further calls fail: a run making more calls than its
// fixtures anticipate is a harness bug worth surfacing.
type fixtureTool struct {
	key      string
	outcomes []FixtureOutcome
	next     int
}

func (t *fixtureTool) Key() string { return t.key }

func (t *fixtureTool) Execute(_ context.Context, _ map[string]any) (any, error) {
	if t.next >= len(t.outcomes) {
		return nil, fmt.Errorf("fixture for %s exhausted after %d calls", t.key, t.next)
	}
	out := t.outcomes[t.next]
	t.next++
	if out.Error != "" {
		return nil, errors.New(out.Error)
	}
	return out.Response, nil
}

// NewFixtureTool returns a tool that replays the given outcomes in order.
func NewFixtureTool(key string, outcomes []FixtureOutcome) Tool {
	return &fixtureTool{key: key, outcomes: outcomes}
}

// LoadFixtures reads a JSON file mapping tool keys to outcome scripts and
// registers a fixture tool for each. Used by the CLI's scripted run mode.
func LoadFixtures(path string, r *Registry) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read tool fixtures: %w", err)
	}
	var fixtures map[string][]FixtureOutcome
	if err := json.Unmarshal(content, &fixtures); err != nil {
		return fmt.Errorf("parse tool fixtures: %w", err)
	}
	for key, outcomes := range fixtures {
		r.Register(NewFixtureTool(key, outcomes))
	}
	return nil
}
