// Package tui renders the progress of a batch run on an interactive
// terminal. It implements a driving adapter following hexagonal
// architecture principles: the batch runner reports through an Observer
// and the App model only draws what it is told.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ras-cli/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/ras-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ras-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ras-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

const (
	// recentLimit is the number of finished questions kept for the details list.
	recentLimit = 8

	maxBarWidth    = 60
	predictionCols = 60
)

// datasetProgress tracks one dataset of the run.
type datasetProgress struct {
	name    string
	total   int
	done    int
	errors  int
	forced  int
	summary *domain.RunSummary
}

// App is the progress view following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	status *status.Bar
	bar    progress.Model

	// cancel stops the run when the user asks to.
	cancel context.CancelFunc

	datasets    []*datasetProgress
	recent      []domain.QuestionResult
	showDetails bool
	finished    bool
	err         error
	width       int
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a progress view. cancel is called when the user cancels
// the run; it may be nil.
func NewApp(cancel context.CancelFunc) *App {
	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	theme := s.Theme()
	return &App{
		styles: s,
		keymap: km,
		status: status.NewBar(s, km),
		bar: progress.New(
			progress.WithGradient(string(theme.Primary), string(theme.Secondary)),
			progress.WithWidth(40),
		),
		cancel: cancel,
		width:  80,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.bar.Width = min(maxBarWidth, max(10, msg.Width-40))
		a.status.SetWidth(msg.Width)

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.DatasetStarted:
		a.datasets = append(a.datasets, &datasetProgress{name: msg.Dataset, total: msg.Total})

	case messages.QuestionDone:
		if d := a.current(msg.Result.Dataset); d != nil {
			d.done++
			switch {
			case msg.Result.Error != "":
				d.errors++
			case msg.Result.Termination.IsForced():
				d.forced++
			}
		}
		a.recent = append(a.recent, msg.Result)
		if len(a.recent) > recentLimit {
			a.recent = a.recent[len(a.recent)-recentLimit:]
		}

	case messages.DatasetDone:
		if d := a.current(msg.Summary.Dataset); d != nil {
			summary := msg.Summary
			d.summary = &summary
		}

	case messages.RunFinished:
		a.finished = true
		a.err = msg.Err
		if msg.Err != nil {
			a.status.SetState(status.StateFailed)
			a.status.SetMessage(msg.Err.Error())
		} else {
			a.status.SetState(status.StateDone)
		}
		a.syncCounts()
		return a, tea.Quit
	}

	a.syncCounts()
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, a.keymap.Cancel):
		if a.finished {
			return a, tea.Quit
		}
		if a.cancel != nil {
			a.cancel()
		}
		a.status.SetState(status.StateCancelling)
	case keymap.Matches(k, a.keymap.Details):
		a.showDetails = !a.showDetails
	}
	return a, nil
}

// current returns the latest progress entry of a dataset.
func (a *App) current(dataset string) *datasetProgress {
	for i := len(a.datasets) - 1; i >= 0; i-- {
		if a.datasets[i].name == dataset {
			return a.datasets[i]
		}
	}
	return nil
}

func (a *App) syncCounts() {
	done, total := 0, 0
	for _, d := range a.datasets {
		done += d.done
		total += d.total
	}
	a.status.SetCounts(done, total)
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("ras batch run"))
	b.WriteString("\n")

	if len(a.datasets) == 0 {
		b.WriteString(a.styles.Muted.Render("Loading dataset..."))
		b.WriteString("\n")
	}
	for _, d := range a.datasets {
		b.WriteString(a.renderDataset(d))
		b.WriteString("\n")
	}

	if a.showDetails && len(a.recent) > 0 {
		b.WriteString("\n")
		b.WriteString(a.styles.Muted.Render("Recent questions"))
		b.WriteString("\n")
		for _, r := range a.recent {
			b.WriteString(a.renderResult(r))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(a.status.View())
	return b.String()
}

func (a *App) renderDataset(d *datasetProgress) string {
	pct := 1.0
	if d.total > 0 {
		pct = float64(d.done) / float64(d.total)
	}
	name := a.styles.Dataset.Width(16).Render(d.name)
	line := lipgloss.JoinHorizontal(lipgloss.Top,
		name, " ", a.bar.ViewAs(pct), " ",
		a.styles.Normal.Render(fmt.Sprintf("%d/%d", d.done, d.total)),
	)

	var notes []string
	if d.forced > 0 {
		notes = append(notes, a.styles.Warning.Render(fmt.Sprintf("%d forced", d.forced)))
	}
	if d.errors > 0 {
		notes = append(notes, a.styles.Error.Render(fmt.Sprintf("%d errors", d.errors)))
	}
	if d.summary != nil && d.summary.OutputPath != "" {
		notes = append(notes, a.styles.Muted.Render("-> "+d.summary.OutputPath))
	}
	if len(notes) > 0 {
		line += "  " + strings.Join(notes, "  ")
	}
	return line
}

func (a *App) renderResult(r domain.QuestionResult) string {
	id := a.styles.Muted.Render(truncate(r.ID, 12))
	if r.Error != "" {
		return fmt.Sprintf("  %s %s", id, a.styles.Error.Render(truncate(r.Error, predictionCols)))
	}
	style := a.styles.Success
	if r.Termination.IsForced() {
		style = a.styles.Warning
	}
	return fmt.Sprintf("  %s %s %s", id,
		style.Render(string(r.Termination)),
		a.styles.Normal.Render(truncate(r.Prediction, predictionCols)))
}

// truncate shortens s to at most n runes on one line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Err returns the error the run finished with.
func (a *App) Err() error {
	return a.err
}

// Finished reports whether the run has returned.
func (a *App) Finished() bool {
	return a.finished
}
