package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API or any OpenAI-compatible server.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
// OpenAI-compatible servers on a custom base URL may run without one.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// SupportsEmbedding returns true if the provider offers an embedding API.
func (p AIProvider) SupportsEmbedding() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud or compatible server)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// LLMSettings holds the configuration of one LLM-backed stage.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the model identifier.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Model == "" {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" && l.BaseURL == "" {
		return false
	}
	return true
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbedding() || e.Model == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" && e.BaseURL == "" {
		return false
	}
	return true
}

// LengthUnit is the unit of the answer length budget.
type LengthUnit string

// Available length units.
const (
	LengthUnitChars  LengthUnit = "chars"
	LengthUnitTokens LengthUnit = "tokens"
)

// IsValid returns true if the unit is recognised.
func (u LengthUnit) IsValid() bool {
	return u == LengthUnitChars || u == LengthUnitTokens
}

// KnowledgeSettings locates the knowledge source.
type KnowledgeSettings struct {
	// Source is the knowledge source identifier.
	Source string

	// Path is the directory holding knowledge source databases.
	Path string

	// TopK is the number of passages per retrieval.
	TopK int
}

// PlannerSettings configures the planner policy.
type PlannerSettings struct {
	// Model is the planner model identifier. A trainable checkpoint must
	// have been produced for this model when both are set.
	Model string

	// Frozen selects the fixed policy. When false, Checkpoint is required.
	Frozen bool

	// Checkpoint is the trainable policy parameter file.
	Checkpoint string

	// MaxHops bounds the number of retrievals of the frozen policy.
	MaxHops int

	// ExtractPerHop is the number of passages extracted after each retrieval.
	ExtractPerHop int

	// StallPassageThreshold is the passage count above which two
	// retrievals without new triples make the planner answer.
	StallPassageThreshold int

	// StopRule is an optional expression replacing the stall rule.
	StopRule string
}

// LimitSettings bound the resources of a run.
type LimitSettings struct {
	// StepBudget is the maximum number of decisions per question,
	// including the final answer.
	StepBudget int

	// QuestionTimeout wraps one reasoning loop. Zero disables it.
	QuestionTimeout time.Duration

	// FinalizeTimeout bounds the forced answer after a timeout.
	FinalizeTimeout time.Duration

	// Concurrency is the number of questions processed at once.
	Concurrency int

	// RequestsPerSecond rate limits model calls. Zero disables it.
	RequestsPerSecond float64
}

// TracingSettings configures span export.
type TracingSettings struct {
	// Endpoint is the OTLP/HTTP collector endpoint. Empty disables tracing.
	Endpoint string

	// Insecure disables TLS towards the collector.
	Insecure bool
}

// RunSettings is the full configuration of a pipeline run.
type RunSettings struct {
	Datasets        []string
	DataDir         string
	OutputDir       string
	Knowledge       KnowledgeSettings
	RetrievalMode   RetrievalMode
	Planner         PlannerSettings
	Extractor       LLMSettings
	Answerer        LLMSettings
	Embedding       EmbeddingSettings
	MaxAnswerLength int
	LengthUnit      LengthUnit
	Limits          LimitSettings
	Tracing         TracingSettings
	Debug           bool
}

// DefaultRunSettings returns sensible defaults. Model and provider
// settings are left empty and must be configured.
func DefaultRunSettings() RunSettings {
	return RunSettings{
		DataDir:   "data",
		OutputDir: "results",
		Knowledge: KnowledgeSettings{
			Path: "knowledge",
			TopK: DefaultTopK,
		},
		RetrievalMode: RetrievalDenseOnly,
		Planner: PlannerSettings{
			Frozen:                true,
			MaxHops:               2,
			ExtractPerHop:         1,
			StallPassageThreshold: 20,
		},
		MaxAnswerLength: 100,
		LengthUnit:      LengthUnitTokens,
		Limits: LimitSettings{
			StepBudget:      10,
			QuestionTimeout: 2 * time.Minute,
			FinalizeTimeout: 30 * time.Second,
			Concurrency:     4,
		},
	}
}

// Validate checks the settings needed to answer questions. All problems
// are reported together; each is a *ConfigurationError.
func (s RunSettings) Validate() error {
	var errs []error
	bad := func(field, value, reason string) {
		errs = append(errs, NewConfigurationError(field, value, reason))
	}

	if s.Knowledge.Source == "" {
		bad("knowledge_source", "", "is required")
	}
	if s.Knowledge.TopK < 1 {
		bad("top_k", strconv.Itoa(s.Knowledge.TopK), "must be at least 1")
	}
	if !s.RetrievalMode.IsValid() {
		bad("retrieval_mode", string(s.RetrievalMode), "must be one of dense_only, hybrid, keyword_only")
	}
	if s.RetrievalMode == RetrievalDenseOnly && !s.Embedding.IsConfigured() {
		bad("embedding.provider", string(s.Embedding.Provider), "dense_only retrieval needs a configured embedding model")
	}
	if !s.Planner.Frozen && s.Planner.Checkpoint == "" {
		bad("planner_checkpoint", "", "is required when planner_frozen is false")
	}
	if s.Planner.MaxHops < 1 {
		bad("planner.max_hops", strconv.Itoa(s.Planner.MaxHops), "must be at least 1")
	}
	if s.Planner.ExtractPerHop < 1 {
		bad("planner.extract_per_hop", strconv.Itoa(s.Planner.ExtractPerHop), "must be at least 1")
	}
	if s.Planner.StallPassageThreshold < 0 {
		bad("planner.stall_passage_threshold", strconv.Itoa(s.Planner.StallPassageThreshold), "must not be negative")
	}
	if !s.Extractor.IsConfigured() {
		bad("text_to_triples_model", s.Extractor.Model, "needs a model and a usable provider")
	}
	if !s.Answerer.IsConfigured() {
		bad("answerer_model", s.Answerer.Model, "needs a model and a usable provider")
	}
	if s.MaxAnswerLength < 1 {
		bad("max_answer_length", strconv.Itoa(s.MaxAnswerLength), "must be at least 1")
	}
	if !s.LengthUnit.IsValid() {
		bad("length_unit", string(s.LengthUnit), "must be chars or tokens")
	}
	if s.Limits.StepBudget < 1 {
		bad("step_budget", strconv.Itoa(s.Limits.StepBudget), "must be at least 1")
	}
	if s.Limits.QuestionTimeout < 0 {
		bad("question_timeout", s.Limits.QuestionTimeout.String(), "must not be negative")
	}
	if s.Limits.Concurrency < 1 {
		bad("concurrency", strconv.Itoa(s.Limits.Concurrency), "must be at least 1")
	}
	if s.Limits.RequestsPerSecond < 0 || math.IsInf(s.Limits.RequestsPerSecond, 0) || math.IsNaN(s.Limits.RequestsPerSecond) {
		bad("requests_per_second", fmt.Sprint(s.Limits.RequestsPerSecond), "must be a finite non-negative number")
	}
	return errors.Join(errs...)
}

// ValidateBatch additionally checks the settings of a dataset run.
func (s RunSettings) ValidateBatch() error {
	err := s.Validate()
	if len(s.Datasets) == 0 {
		err = errors.Join(err, NewConfigurationError("dataset", "", "at least one dataset is required"))
	}
	if s.OutputDir == "" {
		err = errors.Join(err, NewConfigurationError("output", "", "is required"))
	}
	return err
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// DefaultLLMModels returns the suggested model per LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.1:8b",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
	}
}

// DefaultEmbeddingModels returns the suggested model per embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}
