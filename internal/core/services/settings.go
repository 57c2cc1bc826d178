package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDatasets              = "run.datasets"
	keyDataDir               = "run.data_dir"
	keyOutputDir             = "run.output_dir"
	keyDebug                 = "run.debug"
	keyKnowledgeSource       = "knowledge.source"
	keyKnowledgePath         = "knowledge.path"
	keyTopK                  = "knowledge.top_k"
	keyRetrievalMode         = "retrieval.mode"
	keyPlannerModel          = "planner.model"
	keyPlannerFrozen         = "planner.frozen"
	keyPlannerCheckpoint     = "planner.checkpoint"
	keyPlannerMaxHops        = "planner.max_hops"
	keyPlannerExtractPerHop  = "planner.extract_per_hop"
	keyPlannerStallThreshold = "planner.stall_passage_threshold"
	keyPlannerStopRule       = "planner.stop_rule"
	keyExtractorProvider     = "extractor.provider"
	keyExtractorModel        = "extractor.model"
	keyExtractorBaseURL      = "extractor.base_url"
	keyExtractorAPIKey       = "extractor.api_key"
	keyAnswererProvider      = "answerer.provider"
	keyAnswererModel         = "answerer.model"
	keyAnswererBaseURL       = "answerer.base_url"
	keyAnswererAPIKey        = "answerer.api_key"
	keyEmbedProvider         = "embedding.provider"
	keyEmbedModel            = "embedding.model"
	keyEmbedBaseURL          = "embedding.base_url"
	keyEmbedAPIKey           = "embedding.api_key"
	keyMaxAnswerLength       = "answer.max_length"
	keyLengthUnit            = "answer.length_unit"
	keyStepBudget            = "limits.step_budget"
	keyQuestionTimeout       = "limits.question_timeout"
	keyFinalizeTimeout       = "limits.finalize_timeout"
	keyConcurrency           = "limits.concurrency"
	keyRequestsPerSecond     = "limits.requests_per_second"
	keyTracingEndpoint       = "tracing.endpoint"
	keyTracingInsecure       = "tracing.insecure"
)

// settingKind is the stored type of a setting.
type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindBool
	kindFloat
	kindDuration
	kindStrings
)

// settingKinds lists every settable key in display order.
var settingKinds = []struct {
	key  string
	kind settingKind
}{
	{keyDatasets, kindStrings},
	{keyDataDir, kindString},
	{keyOutputDir, kindString},
	{keyDebug, kindBool},
	{keyKnowledgeSource, kindString},
	{keyKnowledgePath, kindString},
	{keyTopK, kindInt},
	{keyRetrievalMode, kindString},
	{keyPlannerModel, kindString},
	{keyPlannerFrozen, kindBool},
	{keyPlannerCheckpoint, kindString},
	{keyPlannerMaxHops, kindInt},
	{keyPlannerExtractPerHop, kindInt},
	{keyPlannerStallThreshold, kindInt},
	{keyPlannerStopRule, kindString},
	{keyExtractorProvider, kindString},
	{keyExtractorModel, kindString},
	{keyExtractorBaseURL, kindString},
	{keyExtractorAPIKey, kindString},
	{keyAnswererProvider, kindString},
	{keyAnswererModel, kindString},
	{keyAnswererBaseURL, kindString},
	{keyAnswererAPIKey, kindString},
	{keyEmbedProvider, kindString},
	{keyEmbedModel, kindString},
	{keyEmbedBaseURL, kindString},
	{keyEmbedAPIKey, kindString},
	{keyMaxAnswerLength, kindInt},
	{keyLengthUnit, kindString},
	{keyStepBudget, kindInt},
	{keyQuestionTimeout, kindDuration},
	{keyFinalizeTimeout, kindDuration},
	{keyConcurrency, kindInt},
	{keyRequestsPerSecond, kindFloat},
	{keyTracingEndpoint, kindString},
	{keyTracingInsecure, kindBool},
}

// SettingsService manages run settings stored in a ConfigStore.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
// aiValidator is optional; without it validation only checks the shape.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current run settings with defaults for missing keys.
func (s *SettingsService) Get() (*domain.RunSettings, error) {
	d := domain.DefaultRunSettings()

	questionTimeout, err := s.getDuration(keyQuestionTimeout, d.Limits.QuestionTimeout)
	if err != nil {
		return nil, err
	}
	finalizeTimeout, err := s.getDuration(keyFinalizeTimeout, d.Limits.FinalizeTimeout)
	if err != nil {
		return nil, err
	}
	rps, err := s.getFloat(keyRequestsPerSecond, d.Limits.RequestsPerSecond)
	if err != nil {
		return nil, err
	}

	settings := &domain.RunSettings{
		Datasets:  s.getStrings(keyDatasets, d.Datasets),
		DataDir:   s.getString(keyDataDir, d.DataDir),
		OutputDir: s.getString(keyOutputDir, d.OutputDir),
		Knowledge: domain.KnowledgeSettings{
			Source: s.getString(keyKnowledgeSource, d.Knowledge.Source),
			Path:   s.getString(keyKnowledgePath, d.Knowledge.Path),
			TopK:   s.getInt(keyTopK, d.Knowledge.TopK),
		},
		RetrievalMode: domain.RetrievalMode(s.getString(keyRetrievalMode, string(d.RetrievalMode))),
		Planner: domain.PlannerSettings{
			Model:                 s.getString(keyPlannerModel, d.Planner.Model),
			Frozen:                s.getBool(keyPlannerFrozen, d.Planner.Frozen),
			Checkpoint:            s.getString(keyPlannerCheckpoint, d.Planner.Checkpoint),
			MaxHops:               s.getInt(keyPlannerMaxHops, d.Planner.MaxHops),
			ExtractPerHop:         s.getInt(keyPlannerExtractPerHop, d.Planner.ExtractPerHop),
			StallPassageThreshold: s.getInt(keyPlannerStallThreshold, d.Planner.StallPassageThreshold),
			StopRule:              s.getString(keyPlannerStopRule, d.Planner.StopRule),
		},
		Extractor: s.getLLM(keyExtractorProvider, keyExtractorModel, keyExtractorBaseURL, keyExtractorAPIKey),
		Answerer:  s.getLLM(keyAnswererProvider, keyAnswererModel, keyAnswererBaseURL, keyAnswererAPIKey),
		Embedding: domain.EmbeddingSettings{
			Provider: domain.AIProvider(s.configStore.GetString(keyEmbedProvider)),
			Model:    s.configStore.GetString(keyEmbedModel),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		MaxAnswerLength: s.getInt(keyMaxAnswerLength, d.MaxAnswerLength),
		LengthUnit:      domain.LengthUnit(s.getString(keyLengthUnit, string(d.LengthUnit))),
		Limits: domain.LimitSettings{
			StepBudget:        s.getInt(keyStepBudget, d.Limits.StepBudget),
			QuestionTimeout:   questionTimeout,
			FinalizeTimeout:   finalizeTimeout,
			Concurrency:       s.getInt(keyConcurrency, d.Limits.Concurrency),
			RequestsPerSecond: rps,
		},
		Tracing: domain.TracingSettings{
			Endpoint: s.configStore.GetString(keyTracingEndpoint),
			Insecure: s.getBool(keyTracingInsecure, false),
		},
		Debug: s.getBool(keyDebug, false),
	}
	return settings, nil
}

// Save persists run settings. API keys are only written when set.
func (s *SettingsService) Save(st *domain.RunSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyDatasets, st.Datasets},
		{keyDataDir, st.DataDir},
		{keyOutputDir, st.OutputDir},
		{keyDebug, st.Debug},
		{keyKnowledgeSource, st.Knowledge.Source},
		{keyKnowledgePath, st.Knowledge.Path},
		{keyTopK, st.Knowledge.TopK},
		{keyRetrievalMode, string(st.RetrievalMode)},
		{keyPlannerModel, st.Planner.Model},
		{keyPlannerFrozen, st.Planner.Frozen},
		{keyPlannerCheckpoint, st.Planner.Checkpoint},
		{keyPlannerMaxHops, st.Planner.MaxHops},
		{keyPlannerExtractPerHop, st.Planner.ExtractPerHop},
		{keyPlannerStallThreshold, st.Planner.StallPassageThreshold},
		{keyPlannerStopRule, st.Planner.StopRule},
		{keyExtractorProvider, st.Extractor.Provider.String()},
		{keyExtractorModel, st.Extractor.Model},
		{keyExtractorBaseURL, st.Extractor.BaseURL},
		{keyAnswererProvider, st.Answerer.Provider.String()},
		{keyAnswererModel, st.Answerer.Model},
		{keyAnswererBaseURL, st.Answerer.BaseURL},
		{keyEmbedProvider, st.Embedding.Provider.String()},
		{keyEmbedModel, st.Embedding.Model},
		{keyEmbedBaseURL, st.Embedding.BaseURL},
		{keyMaxAnswerLength, st.MaxAnswerLength},
		{keyLengthUnit, string(st.LengthUnit)},
		{keyStepBudget, st.Limits.StepBudget},
		{keyQuestionTimeout, st.Limits.QuestionTimeout.String()},
		{keyFinalizeTimeout, st.Limits.FinalizeTimeout.String()},
		{keyConcurrency, st.Limits.Concurrency},
		{keyRequestsPerSecond, st.Limits.RequestsPerSecond},
		{keyTracingEndpoint, st.Tracing.Endpoint},
		{keyTracingInsecure, st.Tracing.Insecure},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	secrets := map[string]string{
		keyExtractorAPIKey: st.Extractor.APIKey,
		keyAnswererAPIKey:  st.Answerer.APIKey,
		keyEmbedAPIKey:     st.Embedding.APIKey,
	}
	for key, value := range secrets {
		if value == "" {
			continue
		}
		if err := s.configStore.Set(key, value); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// Set parses value for the key's type and stores it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := lookupKind(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var parsed any
	var err error
	switch kind {
	case kindInt:
		parsed, err = strconv.Atoi(value)
	case kindBool:
		parsed, err = strconv.ParseBool(value)
	case kindFloat:
		parsed, err = strconv.ParseFloat(value, 64)
	case kindDuration:
		_, err = time.ParseDuration(value)
		parsed = value
	case kindStrings:
		parsed = splitList(value)
	default:
		parsed = value
	}
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %v", domain.ErrInvalidInput, key, value, err)
	}

	switch key {
	case keyRetrievalMode:
		if !domain.RetrievalMode(value).IsValid() {
			return fmt.Errorf("%w: invalid retrieval mode: %s", domain.ErrInvalidInput, value)
		}
	case keyExtractorProvider, keyAnswererProvider, keyEmbedProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("%w: invalid provider: %s", domain.ErrInvalidInput, value)
		}
	case keyLengthUnit:
		if !domain.LengthUnit(value).IsValid() {
			return fmt.Errorf("%w: invalid length unit: %s", domain.ErrInvalidInput, value)
		}
	}
	return s.configStore.Set(key, parsed)
}

// Keys returns the settable keys in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingKinds))
	for i, k := range settingKinds {
		keys[i] = k.key
	}
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.RunSettings {
	return domain.DefaultRunSettings()
}

// ValidateLLMConfig validates an LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig(settings *domain.LLMSettings) error {
	if s.aiValidator == nil {
		return nil
	}
	return s.aiValidator.ValidateLLM(settings)
}

// ValidateEmbeddingConfig validates the embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

func lookupKind(key string) (settingKind, bool) {
	for _, k := range settingKinds {
		if k.key == key {
			return k.kind, true
		}
	}
	return 0, false
}

func (s *SettingsService) getLLM(providerKey, modelKey, baseURLKey, apiKeyKey string) domain.LLMSettings {
	return domain.LLMSettings{
		Provider: domain.AIProvider(s.configStore.GetString(providerKey)),
		Model:    s.configStore.GetString(modelKey),
		BaseURL:  s.configStore.GetString(baseURLKey),
		APIKey:   s.configStore.GetString(apiKeyKey),
	}
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getStrings(key string, defaultVal []string) []string {
	if v := s.configStore.GetStringSlice(key); len(v) > 0 {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) (float64, error) {
	val, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal, nil
	}
	switch v := val.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, domain.NewConfigurationError(key, v, "must be a number")
		}
		return f, nil
	default:
		return 0, domain.NewConfigurationError(key, fmt.Sprint(v), "must be a number")
	}
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal, nil
	}
	switch v := val.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, domain.NewConfigurationError(key, v, "must be a duration such as 90s")
		}
		return d, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case int:
		return time.Duration(v) * time.Second, nil
	default:
		return 0, domain.NewConfigurationError(key, fmt.Sprint(v), "must be a duration such as 90s")
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
