// Package producer supplies decision producers for the run loop.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/switchboard-ai/switchboard/internal/engine"
)

// Scripted replays a fixed decision sequence. It backs the CLI's scripted
// run mode and deterministic tests: every run over the same script and the
// same tool fixtures produces the same logs.
type Scripted struct {
	decisions []engine.Decision
	next      int
}

// NewScripted returns a producer that yields the given decisions in order.
func NewScripted(decisions []engine.Decision) *Scripted {
	return &Scripted{decisions: decisions}
}

// LoadScript reads a JSON array of decisions from a file.
func LoadScript(path string) (*Scripted, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read decision script: %w", err)
	}
	var decisions []engine.Decision
	if err := json.Unmarshal(content, &decisions); err != nil {
		return nil, fmt.Errorf("parse decision script: %w", err)
	}
	return NewScripted(decisions), nil
}

// Produce returns the next scripted decision. Running past the end of the
// script is an error; the engine surfaces it as a failed run.
func (s *Scripted) Produce(_ context.Context, _ engine.PromptContext) (engine.Decision, error) {
	if s.next >= len(s.decisions) {
		return engine.Decision{}, fmt.Errorf("decision script exhausted after %d steps", s.next)
	}
	d := s.decisions[s.next]
	s.next++
	return d, nil
}

// Remaining reports how many scripted decisions are left unconsumed.
func (s *Scripted) Remaining() int {
	return len(s.decisions) - s.next
}

var _ engine.Producer = (*Scripted)(nil)
