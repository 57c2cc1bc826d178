package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator builds a throwaway service from settings and pings it.
// The config command runs it before saving model settings.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator creates a validator that waits pingTimeout per check.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

// ValidateEmbedding pings the embedding provider of settings.
func (v *ConfigValidator) ValidateEmbedding(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()
	return v.ping(svc.Ping, "embedding", settings.Model)
}

// ValidateLLM pings the LLM provider of settings.
func (v *ConfigValidator) ValidateLLM(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}
	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()
	return v.ping(svc.Ping, "llm", settings.Model)
}

func (v *ConfigValidator) ping(ping func(context.Context) error, kind, model string) error {
	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	if err := ping(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", kind, model, err)
	}
	return nil
}
