package driven

import "context"

// LLMService runs single-turn completions for the LLM-backed stages
// (triple extraction and answering).
//
// Implementations exist for the OpenAI chat completions API and
// compatible servers, Anthropic and Ollama.
type LLMService interface {
	// Complete runs one prompt to completion.
	Complete(ctx context.Context, prompt Prompt) (Completion, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping checks that the service is reachable without running inference.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Prompt is a single-turn request.
type Prompt struct {
	// System carries standing instructions. Optional.
	System string

	// User is the request text.
	User string

	// MaxTokens caps the completion length. Zero uses the provider default.
	MaxTokens int

	// Temperature controls randomness; the pipeline uses 0.
	Temperature float64

	// Stop sequences end generation early.
	Stop []string
}

// Completion is the model output for a Prompt.
type Completion struct {
	Text string

	// Truncated reports that generation hit MaxTokens.
	Truncated bool

	// Token usage as reported by the provider; zero when not reported.
	InputTokens  int
	OutputTokens int
}
