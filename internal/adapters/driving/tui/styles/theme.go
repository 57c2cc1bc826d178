// Package styles provides colour themes and styling for the progress view.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colour palette of the progress view.
type Theme struct {
	// Primary is the main accent colour, used for titles and the bar start.
	Primary lipgloss.Color

	// Secondary is used for dataset names and the bar end.
	Secondary lipgloss.Color

	// Foreground is the default text colour.
	Foreground lipgloss.Color

	// Muted is for less important text.
	Muted lipgloss.Color

	// Success marks answered questions.
	Success lipgloss.Color

	// Warning marks forced terminations and fallbacks.
	Warning lipgloss.Color

	// Error marks failed questions.
	Error lipgloss.Color

	// StatusBackground is the status bar background.
	StatusBackground lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:          lipgloss.Color("#7C3AED"), // Purple
		Secondary:        lipgloss.Color("#06B6D4"), // Cyan
		Foreground:       lipgloss.Color("#CDD6F4"), // Light gray
		Muted:            lipgloss.Color("#6C7086"), // Medium gray
		Success:          lipgloss.Color("#A6E3A1"), // Green
		Warning:          lipgloss.Color("#F9E2AF"), // Yellow
		Error:            lipgloss.Color("#F38BA8"), // Red
		StatusBackground: lipgloss.Color("#181825"),
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	Title     lipgloss.Style
	Dataset   lipgloss.Style
	Normal    lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	StatusBar lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary).
			MarginBottom(1),

		Dataset: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Normal:  lipgloss.NewStyle().Foreground(theme.Foreground),
		Muted:   lipgloss.NewStyle().Foreground(theme.Muted),
		Success: lipgloss.NewStyle().Foreground(theme.Success),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),
		Error:   lipgloss.NewStyle().Foreground(theme.Error),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Background(theme.StatusBackground).
			Padding(0, 1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}
