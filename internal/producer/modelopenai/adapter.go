// Package modelopenai produces run-loop decisions from an OpenAI-compatible
// chat completion endpoint.
package modelopenai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/switchboard-ai/switchboard/internal/engine"
)

const (
	defaultModel      = "gpt-4o-mini"
	defaultMaxRetries = 2
	retryBackoff      = 500 * time.Millisecond
)

// Config configures the producer. APIKey falls back to OPENAI_API_KEY and
// BaseURL allows any compatible endpoint (local inference included).
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxRetries  int
}

// Producer asks a chat model for the next decision, requesting a JSON object
// response and parsing it into the engine's decision shape.
type Producer struct {
	client      *openai.Client
	model       string
	temperature float32
	maxRetries  int
	logger      *slog.Logger
}

// New creates a producer. The API key is required unless a custom BaseURL
// points at an endpoint that ignores authentication.
func New(cfg Config) (*Producer, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai producer: api key is required (set OPENAI_API_KEY)")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	return &Producer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
		maxRetries:  retries,
		logger:      slog.Default().With("component", "producer", "model", model),
	}, nil
}

// Produce renders the context into a chat request and parses the model's
// JSON reply. Transport failures are retried with a flat backoff; a reply
// that parses but makes no sense is handed to the engine as-is, where the
// permission enforcer classifies it as malformed.
func (p *Producer) Produce(ctx context.Context, pc engine.PromptContext) (engine.Decision, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: renderSystem(pc)},
			{Role: openai.ChatMessageRoleUser, Content: renderUser(pc)},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Warn("retrying completion", "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return engine.Decision{}, ctx.Err()
			case <-time.After(retryBackoff):
			}
		}

		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = fmt.Errorf("chat completion: %w", err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("chat completion: no choices returned")
			continue
		}
		return ParseDecision(resp.Choices[0].Message.Content), nil
	}
	return engine.Decision{}, lastErr
}

// ParseDecision turns raw model output into a decision. Output that is not
// the expected JSON object comes back with an empty action type; the shape
// check downstream reports it as a malformed decision rather than crashing
// the producer.
func ParseDecision(raw string) engine.Decision {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var d engine.Decision
	if err := json.Unmarshal([]byte(cleaned), &d); err != nil {
		return engine.Decision{Reasoning: fmt.Sprintf("unparseable model output: %v", err)}
	}
	return d
}

var _ engine.Producer = (*Producer)(nil)
