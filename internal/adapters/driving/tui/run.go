package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ras-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ras-cli/internal/core/services"
)

// Job is the work shown by the progress view.
type Job func(ctx context.Context, observer services.ProgressObserver) error

// Run shows the progress view while job runs and returns job's error.
// Cancelling from the view cancels the ctx passed to job.
func Run(ctx context.Context, in io.Reader, out io.Writer, job Job) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app := NewApp(cancel)
	p := tea.NewProgram(app, tea.WithInput(in), tea.WithOutput(out))

	done := make(chan error, 1)
	go func() {
		err := job(ctx, NewObserver(p))
		p.Send(messages.RunFinished{Err: err})
		done <- err
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("progress view: %w", err)
	}
	return <-done
}
