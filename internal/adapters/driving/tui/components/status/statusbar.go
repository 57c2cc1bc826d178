// Package status provides the status bar of the progress view.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ras-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ras-cli/internal/adapters/driving/tui/styles"
)

// State represents the phase of the run for display.
type State string

const (
	StateRunning    State = "running"
	StateCancelling State = "cancelling"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Bar displays the run phase, question counts and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	done    int
	total   int
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateRunning,
		width:  80,
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	counts := fmt.Sprintf("%d/%d questions", s.done, s.total)
	switch s.state {
	case StateCancelling:
		return s.styles.Warning.Render("Cancelling... " + counts)
	case StateDone:
		return s.styles.Success.Render("Done: " + counts)
	case StateFailed:
		if s.message != "" {
			return s.styles.Error.Render("Failed: " + s.message)
		}
		return s.styles.Error.Render("Failed")
	}
	return s.styles.Normal.Render("Running: " + counts)
}

func (s *Bar) renderRight() string {
	if s.state == StateDone || s.state == StateFailed {
		return ""
	}
	bindings := s.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets the failure message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// SetCounts sets the number of finished and expected questions.
func (s *Bar) SetCounts(done, total int) {
	s.done = done
	s.total = total
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}
