package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

// Flag names shared by the commands that answer questions.
const (
	flagDataset           = "dataset"
	flagKnowledgeSource   = "knowledge_source"
	flagKnowledgePath     = "knowledge_path"
	flagExtractorModel    = "text_to_triples_model"
	flagPlannerModel      = "planner_model"
	flagPlannerFrozen     = "planner_frozen"
	flagPlannerCkpt       = "planner_checkpoint"
	flagAnswererModel     = "answerer_model"
	flagRetrievalMode     = "retrieval_mode"
	flagMaxAnswerLength   = "max_answer_length"
	flagStepBudget        = "step_budget"
	flagQuestionTimeout   = "question_timeout"
	flagConcurrency       = "concurrency"
	flagTopK              = "top_k"
	flagOutput            = "output"
	flagDataDir           = "data_dir"
	flagRequestsPerSecond = "requests_per_second"
)

// Environment variables consulted for API keys missing from the config.
const (
	envOpenAIKey    = "OPENAI_API_KEY"
	envAnthropicKey = "ANTHROPIC_API_KEY"
)

// flagSet selects the groups of overrides a command accepts.
type flagSet int

const (
	knowledgeFlags flagSet = 1 << iota
	modelFlags
	batchFlags
)

func addSettingsFlags(cmd *cobra.Command, groups flagSet) {
	f := cmd.Flags()
	if groups&knowledgeFlags != 0 {
		f.String(flagKnowledgeSource, "", "knowledge source to retrieve from")
		f.String(flagKnowledgePath, "", "directory holding knowledge source databases")
		f.String(flagRetrievalMode, "", "retrieval mode: dense_only, hybrid or keyword_only")
		f.Int(flagTopK, 0, "passages per retrieval")
	}
	if groups&modelFlags != 0 {
		f.String(flagExtractorModel, "", "model used to extract triples")
		f.String(flagPlannerModel, "", "planner model a trainable checkpoint must match")
		f.Bool(flagPlannerFrozen, true, "use the fixed planner policy")
		f.String(flagPlannerCkpt, "", "trainable planner checkpoint (required when --planner_frozen=false)")
		f.String(flagAnswererModel, "", "model used to generate answers")
		f.Int(flagMaxAnswerLength, 0, "answer length budget")
		f.Int(flagStepBudget, 0, "maximum decisions per question, the answer included")
		f.Duration(flagQuestionTimeout, 0, "time budget per question (0 keeps the configured value)")
		f.Float64(flagRequestsPerSecond, 0, "rate limit for model calls")
	}
	if groups&batchFlags != 0 {
		f.StringArray(flagDataset, nil, "dataset to run (repeatable)")
		f.String(flagDataDir, "", "directory holding dataset files")
		f.String(flagOutput, "", "directory for result files")
		f.Int(flagConcurrency, 0, "questions processed at once")
	}
}

// loadSettings returns the stored settings with changed flags applied.
func loadSettings(cmd *cobra.Command) (*domain.RunSettings, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	s, err := settingsService.Get()
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd.Flags(), s); err != nil {
		return nil, err
	}
	applyEnvKeys(s)
	if debugFlag {
		s.Debug = true
	}
	if s.Debug {
		logger.SetVerbose(true)
	}
	return s, nil
}

func applyFlags(f *pflag.FlagSet, s *domain.RunSettings) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetInt(name)
		}
	}

	str(flagKnowledgeSource, &s.Knowledge.Source)
	str(flagKnowledgePath, &s.Knowledge.Path)
	num(flagTopK, &s.Knowledge.TopK)
	if err == nil && f.Changed(flagRetrievalMode) {
		var mode string
		mode, err = f.GetString(flagRetrievalMode)
		s.RetrievalMode = domain.RetrievalMode(mode)
	}

	str(flagExtractorModel, &s.Extractor.Model)
	str(flagAnswererModel, &s.Answerer.Model)
	str(flagPlannerModel, &s.Planner.Model)
	str(flagPlannerCkpt, &s.Planner.Checkpoint)
	if err == nil && f.Changed(flagPlannerFrozen) {
		s.Planner.Frozen, err = f.GetBool(flagPlannerFrozen)
	}
	num(flagMaxAnswerLength, &s.MaxAnswerLength)
	num(flagStepBudget, &s.Limits.StepBudget)
	if err == nil && f.Changed(flagQuestionTimeout) {
		s.Limits.QuestionTimeout, err = f.GetDuration(flagQuestionTimeout)
	}
	if err == nil && f.Changed(flagRequestsPerSecond) {
		s.Limits.RequestsPerSecond, err = f.GetFloat64(flagRequestsPerSecond)
	}

	if err == nil && f.Changed(flagDataset) {
		s.Datasets, err = f.GetStringArray(flagDataset)
	}
	str(flagDataDir, &s.DataDir)
	str(flagOutput, &s.OutputDir)
	num(flagConcurrency, &s.Limits.Concurrency)
	return err
}

// applyEnvKeys fills API keys the config leaves empty from the environment.
func applyEnvKeys(s *domain.RunSettings) {
	fill := func(p domain.AIProvider, key *string) {
		if *key != "" {
			return
		}
		switch p {
		case domain.AIProviderOpenAI:
			*key = os.Getenv(envOpenAIKey)
		case domain.AIProviderAnthropic:
			*key = os.Getenv(envAnthropicKey)
		}
	}
	fill(s.Extractor.Provider, &s.Extractor.APIKey)
	fill(s.Answerer.Provider, &s.Answerer.APIKey)
	fill(s.Embedding.Provider, &s.Embedding.APIKey)
}
