// Package anthropic provides an LLM adapter for the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/custodia-labs/ras-cli/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-haiku-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	apiVersion = "2023-06-01"

	// stopMaxTokens is the stop_reason of a completion cut at max_tokens.
	stopMaxTokens = "max_tokens"
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is required.
	APIKey string

	BaseURL string
	Model   string
	Timeout time.Duration

	// MaxTries bounds attempts on rate limiting, overload and server errors.
	MaxTries uint
}

// LLMService completes prompts with a Claude model.
type LLMService struct {
	api   *httpapi.Client
	model string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model         string    `json:"model"`
	System        string    `json:"system,omitempty"`
	Messages      []message `json:"messages"`
	MaxTokens     int       `json:"max_tokens"`
	Temperature   float64   `json:"temperature"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewLLMService creates an Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
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
			Provider: "anthropic",
			BaseURL:  cfg.BaseURL,
			Timeout:  cfg.Timeout,
			Header: map[string]string{
				"x-api-key":         cfg.APIKey,
				"anthropic-version": apiVersion,
			},
			MaxTries: cfg.MaxTries,
		}),
		model: cfg.Model,
	}, nil
}

// Complete sends the prompt as one user message. The API requires
// max_tokens, so a zero limit becomes DefaultMaxTokens.
func (s *LLMService) Complete(ctx context.Context, p driven.Prompt) (driven.Completion, error) {
	req := messagesRequest{
		Model:         s.model,
		System:        p.System,
		Messages:      []message{{Role: "user", Content: p.User}},
		MaxTokens:     p.MaxTokens,
		Temperature:   p.Temperature,
		StopSequences: p.Stop,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}

	var resp messagesResponse
	if err := s.api.PostJSON(ctx, "/v1/messages", req, &resp); err != nil {
		return driven.Completion{}, err
	}
	if len(resp.Content) == 0 {
		return driven.Completion{}, errors.New("anthropic: no content returned")
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return driven.Completion{
		Text:         text.String(),
		Truncated:    resp.StopReason == stopMaxTokens,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// ModelName returns the model name.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/v1/models", nil)
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
