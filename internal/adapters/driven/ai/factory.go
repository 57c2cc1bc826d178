// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/ras-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/ras-cli/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/ras-cli/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/ras-cli/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/ras-cli/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

var log = logger.New("ai")

// Services holds the model services of a run. Extractor and Answerer may
// share an underlying model; each is metered separately.
type Services struct {
	Extractor driven.LLMService
	Answerer  driven.LLMService
	Embedding driven.EmbeddingService // nil when no embedding model is configured

	meters []*MeteredLLM
	shared bool
}

// Usage returns the model usage per stage.
func (s *Services) Usage() map[string]Usage {
	out := make(map[string]Usage, len(s.meters))
	for _, m := range s.meters {
		out[m.Stage()] = m.Usage()
	}
	return out
}

// Close logs the usage of each stage and releases all resources.
func (s *Services) Close() {
	for _, m := range s.meters {
		u := m.Usage()
		if u.Calls == 0 {
			continue
		}
		log.Info("model usage", "stage", m.Stage(), "model", m.ModelName(),
			"calls", u.Calls, "failures", u.Failures, "truncated", u.Truncated,
			"input_tokens", u.InputTokens, "output_tokens", u.OutputTokens)
	}
	if s.Embedding != nil {
		s.Embedding.Close()
	}
	if s.Extractor != nil {
		s.Extractor.Close()
	}
	if s.Answerer != nil && !s.shared {
		s.Answerer.Close()
	}
}

// NewServices creates the model services described by settings, validates
// connectivity and applies the configured request rate limit. The
// limiter is shared by every service so the limit holds for the whole run.
func NewServices(ctx context.Context, settings *domain.RunSettings) (*Services, error) {
	svcs := &Services{}

	extractor, err := CreateAndValidateLLMService(ctx, &settings.Extractor)
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}
	answerer := extractor
	if settings.Answerer == settings.Extractor {
		svcs.shared = true
	} else {
		answerer, err = CreateAndValidateLLMService(ctx, &settings.Answerer)
		if err != nil {
			extractor.Close()
			return nil, fmt.Errorf("answerer: %w", err)
		}
	}

	if settings.RetrievalMode.RequiresEmbedding() || settings.Embedding.IsConfigured() {
		embedding, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
		if err != nil {
			extractor.Close()
			if !svcs.shared {
				answerer.Close()
			}
			return nil, err
		}
		svcs.Embedding = embedding
	}

	if rps := settings.Limits.RequestsPerSecond; rps > 0 {
		limiter := NewLimiter(rps)
		extractor = NewRateLimitedLLM(extractor, limiter)
		if svcs.shared {
			answerer = extractor
		} else {
			answerer = NewRateLimitedLLM(answerer, limiter)
		}
		if svcs.Embedding != nil {
			svcs.Embedding = NewRateLimitedEmbedding(svcs.Embedding, limiter)
		}
	}

	extractorMeter := NewMeteredLLM(extractor, "extractor")
	answererMeter := NewMeteredLLM(answerer, "answerer")
	svcs.meters = []*MeteredLLM{extractorMeter, answererMeter}
	svcs.Extractor = extractorMeter
	svcs.Answerer = answererMeter
	return svcs, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'ras config set embedding.provider ...' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil {
		return nil, domain.NewConfigurationError("llm", "", "is not configured")
	}
	if !settings.IsConfigured() {
		return nil, domain.NewConfigurationError("llm", settings.Model, "needs a model and a usable provider")
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w)", domain.ErrLLMUnavailable, settings.Provider, err)
	}

	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use ollama or openai",
			domain.ErrUnsupportedType)

	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("%w: LLM provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.Config{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
