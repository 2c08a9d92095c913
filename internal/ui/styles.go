package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette for session summary output
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - success, checkmarks
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors, X marks
	WarningColor = lipgloss.Color("#FFA500") // Orange - warnings
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
)

// Shared styles
var (
	// SuccessTitleStyle is for the success summary title
	SuccessTitleStyle = lipgloss.NewStyle().
				Foreground(SuccessColor).
				Bold(true)

	// ErrorTitleStyle is for the failure summary title
	ErrorTitleStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	// StepOkStyle is for steps that completed
	StepOkStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// StepFailedStyle is for steps that errored
	StepFailedStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// StepSkippedStyle is for steps that never ran
	StepSkippedStyle = lipgloss.NewStyle().
				Foreground(MutedColor)

	// DetailKeyStyle is for detail keys (e.g., "Thing:")
	DetailKeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// DetailValueStyle is for detail values
	DetailValueStyle = lipgloss.NewStyle().
				Foreground(TextColor)
)

// Step status markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	SkippedMarker = "·"
)

// IsInteractive reports whether stdout is a terminal. Styled output is
// reserved for interactive runs; pipes get plain text.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}
