package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

func TestRunCmd_Use(t *testing.T) {
	assert.Equal(t, "run", runCmd.Use)
	for _, name := range []string{
		flagDataset, flagKnowledgeSource, flagKnowledgePath, flagExtractorModel, flagPlannerModel,
		flagPlannerFrozen, flagPlannerCkpt, flagAnswererModel, flagRetrievalMode, flagMaxAnswerLength,
		flagStepBudget, flagQuestionTimeout, flagConcurrency, flagTopK, flagOutput,
	} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), name)
	}
}

func TestRunCmd_AppliesFlagsAndPrintsSummaries(t *testing.T) {
	env := setupTestServices(t)
	configureValid(t)

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	env.batch.summaries = []domain.RunSummary{{
		RunID:       "run-1",
		Dataset:     "hotpotqa",
		Questions:   3,
		Answered:    2,
		Forced:      map[domain.TerminationReason]int{domain.TerminationStepBudget: 1},
		StartedAt:   start,
		CompletedAt: start.Add(1500 * time.Millisecond),
		OutputPath:  "out/hotpotqa_results.json",
	}}

	out, err := execute(t, "run",
		"--dataset", "hotpotqa", "--dataset", "2wikimultihop",
		"--step_budget", "4", "--output", "out", "--concurrency", "2", "--question_timeout", "30s")
	require.NoError(t, err)

	assert.Equal(t, []string{"hotpotqa", "2wikimultihop"}, env.batch.datasets)
	require.NotNil(t, env.settings)
	assert.Equal(t, 4, env.settings.Limits.StepBudget)
	assert.Equal(t, "out", env.settings.OutputDir)
	assert.Equal(t, 2, env.settings.Limits.Concurrency)
	assert.Equal(t, 30*time.Second, env.settings.Limits.QuestionTimeout)
	assert.Nil(t, env.batch.observer, "no progress view without a terminal")

	assert.Contains(t, out, "hotpotqa: 3 questions, 2 answered, 1 forced, 0 fallbacks, 0 errors (1.5s)")
	assert.Contains(t, out, "step_budget_exhausted: 1")
	assert.Contains(t, out, "results: out/hotpotqa_results.json")
	assert.Equal(t, 1, env.closed)
}

func TestRunCmd_ConfigurationErrorIsFatal(t *testing.T) {
	env := setupTestServices(t)
	configureValid(t)

	_, err := execute(t, "run")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Zero(t, env.built, "nothing is built for an invalid configuration")
}

func TestRunCmd_TrainableWithoutCheckpoint(t *testing.T) {
	env := setupTestServices(t)
	configureValid(t)

	_, err := execute(t, "run", "--dataset", "d", "--planner_frozen=false")
	require.Error(t, err)

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Zero(t, env.built)
}

func TestRunCmd_BatchErrorStillPrintsCompletedDatasets(t *testing.T) {
	env := setupTestServices(t)
	configureValid(t)
	env.batch.summaries = []domain.RunSummary{{RunID: "r", Dataset: "first", Questions: 1, Answered: 1}}
	env.batch.err = errors.New("dataset second: not found")

	out, err := execute(t, "run", "--dataset", "first", "--dataset", "second")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run: dataset second")
	assert.Contains(t, out, "first: 1 questions")
}

func TestUseProgressView_PlainOrBuffer(t *testing.T) {
	setupTestServices(t)
	// Output is a buffer, never a terminal.
	_, _ = execute(t, "version")
	assert.False(t, useProgressView(rootCmd))
}
