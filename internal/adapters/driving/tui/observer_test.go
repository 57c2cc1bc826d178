package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ras-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

func TestObserver_SendsMessages(t *testing.T) {
	var got []tea.Msg
	o := &Observer{send: func(m tea.Msg) { got = append(got, m) }}

	o.DatasetStarted("d", 2)
	o.QuestionDone(domain.QuestionResult{ID: "q1"})
	o.DatasetDone(domain.RunSummary{Dataset: "d"})

	assert.Equal(t, []tea.Msg{
		messages.DatasetStarted{Dataset: "d", Total: 2},
		messages.QuestionDone{Result: domain.QuestionResult{ID: "q1"}},
		messages.DatasetDone{Summary: domain.RunSummary{Dataset: "d"}},
	}, got)
}
