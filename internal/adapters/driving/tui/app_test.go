package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ras-cli/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/ras-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

func send(t *testing.T, a *App, msgs ...tea.Msg) tea.Cmd {
	t.Helper()
	var cmd tea.Cmd
	for _, m := range msgs {
		var model tea.Model
		model, cmd = a.Update(m)
		require.Same(t, a, model)
	}
	return cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestApp_TracksProgress(t *testing.T) {
	a := NewApp(nil)

	send(t, a,
		tea.WindowSizeMsg{Width: 120, Height: 40},
		messages.DatasetStarted{Dataset: "hotpotqa", Total: 3},
		messages.QuestionDone{Result: domain.QuestionResult{ID: "q1", Dataset: "hotpotqa", Termination: domain.TerminationAnswered, Prediction: "Ohio"}},
		messages.QuestionDone{Result: domain.QuestionResult{ID: "q2", Dataset: "hotpotqa", Termination: domain.TerminationStepBudget}},
		messages.QuestionDone{Result: domain.QuestionResult{ID: "q3", Dataset: "hotpotqa", Error: "invalid input"}},
	)

	require.Len(t, a.datasets, 1)
	d := a.datasets[0]
	assert.Equal(t, 3, d.done)
	assert.Equal(t, 1, d.forced)
	assert.Equal(t, 1, d.errors)

	view := a.View()
	assert.Contains(t, view, "hotpotqa")
	assert.Contains(t, view, "3/3")
	assert.Contains(t, view, "1 forced")
	assert.Contains(t, view, "1 errors")
	assert.NotContains(t, view, "Recent questions")
}

func TestApp_DatasetDoneShowsOutput(t *testing.T) {
	a := NewApp(nil)

	send(t, a,
		messages.DatasetStarted{Dataset: "asqa", Total: 0},
		messages.DatasetDone{Summary: domain.RunSummary{Dataset: "asqa", OutputPath: "results/asqa_results.json"}},
	)

	assert.Contains(t, a.View(), "results/asqa_results.json")
}

func TestApp_DetailsToggle(t *testing.T) {
	a := NewApp(nil)
	send(t, a,
		messages.DatasetStarted{Dataset: "d", Total: 1},
		messages.QuestionDone{Result: domain.QuestionResult{ID: "q1", Dataset: "d", Termination: domain.TerminationAnswered, Prediction: "Cincinnati"}},
	)

	send(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	view := a.View()
	assert.Contains(t, view, "Recent questions")
	assert.Contains(t, view, "Cincinnati")

	send(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	assert.NotContains(t, a.View(), "Recent questions")
}

func TestApp_RecentIsBounded(t *testing.T) {
	a := NewApp(nil)
	send(t, a, messages.DatasetStarted{Dataset: "d", Total: 20})
	for i := 0; i < 20; i++ {
		send(t, a, messages.QuestionDone{Result: domain.QuestionResult{Dataset: "d"}})
	}

	assert.Len(t, a.recent, recentLimit)
	assert.Equal(t, 20, a.datasets[0].done)
}

func TestApp_CancelWhileRunning(t *testing.T) {
	cancelled := false
	a := NewApp(func() { cancelled = true })

	cmd := send(t, a, tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.True(t, cancelled)
	assert.False(t, isQuit(cmd), "the view waits for the run to return")
	assert.Equal(t, status.StateCancelling, a.status.State())
}

func TestApp_RunFinished(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		a := NewApp(nil)
		cmd := send(t, a, messages.RunFinished{})

		assert.True(t, isQuit(cmd))
		assert.True(t, a.Finished())
		assert.NoError(t, a.Err())
		assert.Equal(t, status.StateDone, a.status.State())
	})

	t.Run("failure", func(t *testing.T) {
		a := NewApp(nil)
		boom := errors.New("dataset missing")
		cmd := send(t, a, messages.RunFinished{Err: boom})

		assert.True(t, isQuit(cmd))
		assert.ErrorIs(t, a.Err(), boom)
		assert.Contains(t, a.View(), "dataset missing")
	})

	t.Run("quit key after finish exits", func(t *testing.T) {
		a := NewApp(nil)
		send(t, a, messages.RunFinished{})
		cmd := send(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		assert.True(t, isQuit(cmd))
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\n  b", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
