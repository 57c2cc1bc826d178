package driving

import "github.com/custodia-labs/ras-cli/internal/core/domain"

// SettingsService manages run settings.
type SettingsService interface {
	// Get retrieves current run settings, defaults applied.
	Get() (*domain.RunSettings, error)

	// Save persists run settings.
	Save(settings *domain.RunSettings) error

	// Set updates a single setting by key, parsing value for its type.
	Set(key, value string) error

	// Keys returns the settable keys in display order.
	Keys() []string

	// GetDefaults returns default settings.
	GetDefaults() domain.RunSettings

	// ValidateLLMConfig validates an LLM configuration by pinging the provider.
	ValidateLLMConfig(settings *domain.LLMSettings) error

	// ValidateEmbeddingConfig validates the embedding configuration by pinging the provider.
	ValidateEmbeddingConfig() error
}
