package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ras-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/services"
)

// Ensure Observer implements the interface.
var _ services.ProgressObserver = (*Observer)(nil)

// Observer forwards batch progress to a running program.
type Observer struct {
	send func(tea.Msg)
}

// NewObserver creates an observer sending to p.
func NewObserver(p *tea.Program) *Observer {
	return &Observer{send: p.Send}
}

// DatasetStarted implements services.ProgressObserver.
func (o *Observer) DatasetStarted(dataset string, total int) {
	o.send(messages.DatasetStarted{Dataset: dataset, Total: total})
}

// QuestionDone implements services.ProgressObserver.
func (o *Observer) QuestionDone(result domain.QuestionResult) {
	o.send(messages.QuestionDone{Result: result})
}

// DatasetDone implements services.ProgressObserver.
func (o *Observer) DatasetDone(summary domain.RunSummary) {
	o.send(messages.DatasetDone{Summary: summary})
}
