package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

func TestAskCmd_RequiresExactlyOneArg(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "ask")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestAskCmd_PrintsAnswer(t *testing.T) {
	env := setupTestServices(t)
	configureValid(t)

	out, err := execute(t, "ask", "--steps", "--max_answer_length", "20", "What is the capital of France?")
	require.NoError(t, err)

	require.Len(t, env.runner.questions, 1)
	q := env.runner.questions[0]
	assert.Equal(t, "What is the capital of France?", q.Text)
	assert.Equal(t, askDataset, q.Dataset)
	assert.Equal(t, 20, q.MaxAnswerLength)
	assert.NotEmpty(t, q.ID)

	lines := strings.Split(out, "\n")
	assert.Equal(t, "Paris", lines[0])
	assert.Contains(t, out, "Termination: answered")
	assert.Contains(t, out, "Steps: 2, triples: 0")
	assert.Contains(t, out, `retrieve`)
	assert.Contains(t, out, `"capital of France"`)
	assert.Equal(t, 1, env.closed)
}

func TestAskCmd_ChoicesAndJSON(t *testing.T) {
	env := setupTestServices(t)
	configureValid(t)
	env.runner.answer = &domain.Answer{
		Text:        "B",
		Termination: domain.TerminationStepBudget,
		Fallback:    true,
	}

	out, err := execute(t, "ask", "--json", "--choice", "Oxygen", "--choice", "Carbon dioxide", "Which gas do plants absorb?")
	require.NoError(t, err)

	require.Len(t, env.runner.questions, 1)
	assert.Equal(t, []string{"Oxygen", "Carbon dioxide"}, env.runner.questions[0].Choices)

	var row domain.QuestionResult
	require.NoError(t, json.Unmarshal([]byte(out), &row))
	assert.Equal(t, "B", row.Prediction)
	assert.Equal(t, domain.TerminationStepBudget, row.Termination)
	assert.True(t, row.Fallback)
	assert.Equal(t, askDataset, row.Dataset)
}

func TestAskCmd_BlankQuestion(t *testing.T) {
	env := setupTestServices(t)
	configureValid(t)

	_, err := execute(t, "ask", "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, env.built)
}

func TestAskCmd_InvalidSettings(t *testing.T) {
	env := setupTestServices(t)

	_, err := execute(t, "ask", "Who?")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Zero(t, env.built)
}
