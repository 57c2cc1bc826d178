package driven

import "github.com/custodia-labs/ras-cli/internal/core/domain"

// AIConfigValidator checks model settings against the live provider
// before they are saved. Settings that are not configured pass.
type AIConfigValidator interface {
	ValidateEmbedding(settings *domain.EmbeddingSettings) error
	ValidateLLM(settings *domain.LLMSettings) error
}
