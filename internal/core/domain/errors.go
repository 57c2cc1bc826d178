package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider, format or mode.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrConfiguration indicates an invalid or incomplete run configuration.
	// Fatal: raised before any question is processed.
	ErrConfiguration = errors.New("configuration error")

	// ErrPolicyLoad indicates the planner checkpoint could not be loaded.
	// Fatal at startup; never falls back to the frozen policy.
	ErrPolicyLoad = errors.New("policy load error")

	// ErrStepFailure indicates a single leaf call failed inside a reasoning loop.
	// Recovered by the orchestrator.
	ErrStepFailure = errors.New("step failure")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Dense retrieval is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSearchUnavailable indicates the keyword index is not configured.
	ErrSearchUnavailable = errors.New("search engine unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrEmptyKnowledge indicates a knowledge source holds no passages.
	ErrEmptyKnowledge = errors.New("knowledge source is empty")

	// ErrEmptyAnswer indicates the answer generator returned no text.
	ErrEmptyAnswer = errors.New("empty answer")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ConfigurationError identifies the offending configuration value.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s=%q: %s", ErrConfiguration, e.Field, e.Value, e.Reason)
}

// Unwrap allows errors.Is(err, ErrConfiguration).
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(field, value, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

// PolicyLoadError reports an unreadable or mismatched planner checkpoint.
type PolicyLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *PolicyLoadError) Error() string {
	msg := fmt.Sprintf("%s: checkpoint %q: %s", ErrPolicyLoad, e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *PolicyLoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPolicyLoad}
	}
	return []error{ErrPolicyLoad, e.Err}
}

// StepFailure records a failed leaf call at one loop step.
type StepFailure struct {
	Step int
	Kind DecisionKind
	Err  error
}

func (e *StepFailure) Error() string {
	return fmt.Sprintf("%s: step %d (%s): %v", ErrStepFailure, e.Step, e.Kind, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *StepFailure) Unwrap() []error {
	return []error{ErrStepFailure, e.Err}
}
