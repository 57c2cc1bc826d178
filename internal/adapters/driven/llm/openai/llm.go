// Package openai provides an LLM adapter for the OpenAI chat completions
// API and compatible servers such as vLLM or LM Studio.
package openai

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/ras-cli/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second
)

// finishLength is the finish_reason of a completion cut at max_tokens.
const finishLength = "length"

// Config holds configuration for the OpenAI LLM service.
type Config struct {
	// APIKey is required unless BaseURL points at a compatible server.
	APIKey string

	// BaseURL defaults to the public API.
	BaseURL string

	Model   string
	Timeout time.Duration

	// MaxTries bounds attempts on rate limiting and server errors.
	MaxTries uint
}

// LLMService completes prompts with a chat model.
type LLMService struct {
	api   *httpapi.Client
	model string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// NewLLMService creates an OpenAI LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai: API key is required")
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

	header := map[string]string{}
	if cfg.APIKey != "" {
		header["Authorization"] = "Bearer " + cfg.APIKey
	}
	return &LLMService{
		api: httpapi.New(httpapi.Config{
			Provider: "openai",
			BaseURL:  cfg.BaseURL,
			Timeout:  cfg.Timeout,
			Header:   header,
			MaxTries: cfg.MaxTries,
		}),
		model: cfg.Model,
	}, nil
}

// Complete sends the prompt as a system and a user message.
func (s *LLMService) Complete(ctx context.Context, p driven.Prompt) (driven.Completion, error) {
	req := chatRequest{
		Model:       s.model,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Stop:        p.Stop,
	}
	if p.System != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: p.System})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: p.User})

	var resp chatResponse
	if err := s.api.PostJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return driven.Completion{}, err
	}
	if len(resp.Choices) == 0 {
		return driven.Completion{}, errors.New("openai: no choices returned")
	}

	choice := resp.Choices[0]
	return driven.Completion{
		Text:         choice.Message.Content,
		Truncated:    choice.FinishReason == finishLength,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// ModelName returns the model name.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/models", nil)
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
