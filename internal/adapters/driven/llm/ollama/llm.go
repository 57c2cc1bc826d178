// Package ollama provides an LLM adapter for a local Ollama server.
package ollama

import (
	"context"
	"time"

	"github.com/custodia-labs/ras-cli/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.1:8b"
	DefaultTimeout = 300 * time.Second
)

// doneLength is the done_reason of a generation cut at num_predict.
const doneLength = "length"

// Config holds configuration for the Ollama LLM service.
type Config struct {
	BaseURL string
	Model   string

	// Timeout is generous by default: the first request loads the model.
	Timeout time.Duration

	MaxTries uint
}

// LLMService completes prompts with a model served by Ollama.
type LLMService struct {
	api   *httpapi.Client
	model string
}

type generateRequest struct {
	Model   string  `json:"model"`
	System  string  `json:"system,omitempty"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options options `json:"options"`
}

type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

type generateResponse struct {
	Response        string `json:"response"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// NewLLMService creates an Ollama LLM service.
func NewLLMService(cfg Config) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &LLMService{
		api: httpapi.New(httpapi.Config{
			Provider: "ollama",
			BaseURL:  cfg.BaseURL,
			Timeout:  cfg.Timeout,
			MaxTries: cfg.MaxTries,
		}),
		model: cfg.Model,
	}
}

// Complete runs a non-streaming /api/generate request.
func (s *LLMService) Complete(ctx context.Context, p driven.Prompt) (driven.Completion, error) {
	req := generateRequest{
		Model:  s.model,
		System: p.System,
		Prompt: p.User,
		Options: options{
			NumPredict:  p.MaxTokens,
			Temperature: p.Temperature,
			Stop:        p.Stop,
		},
	}

	var resp generateResponse
	if err := s.api.PostJSON(ctx, "/api/generate", req, &resp); err != nil {
		return driven.Completion{}, err
	}
	return driven.Completion{
		Text:         resp.Response,
		Truncated:    resp.DoneReason == doneLength,
		InputTokens:  resp.PromptEvalCount,
		OutputTokens: resp.EvalCount,
	}, nil
}

// ModelName returns the model name.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists local models, which checks the server is up.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/api/tags", nil)
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
