package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StepStatus is the rendered state of one summary step.
type StepStatus int

const (
	StepOk StepStatus = iota
	StepFailed
	StepSkipped
)

// Step is one line of the summary's step list.
type Step struct {
	Name   string
	Status StepStatus
	Note   string // error text or annotation, shown after the name
}

// Summary is a styled end-of-run report box.
type Summary struct {
	Success bool
	Title   string
	Steps   []Step
	Details [][2]string // ordered key-value pairs
	Width   int         // Terminal width for responsive rendering
}

// NewSummary creates a summary sized to the current terminal.
func NewSummary(success bool, title string) *Summary {
	return &Summary{
		Success: success,
		Title:   title,
		Width:   GetTerminalWidth(),
	}
}

// AddStep appends a step line
func (s *Summary) AddStep(name string, status StepStatus, note string) *Summary {
	s.Steps = append(s.Steps, Step{Name: name, Status: status, Note: note})
	return s
}

// AddDetail appends a detail key-value pair
func (s *Summary) AddDetail(key, value string) *Summary {
	s.Details = append(s.Details, [2]string{key, value})
	return s
}

// Render returns the styled summary box as a string
func (s *Summary) Render() string {
	width := s.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var lines []string

	title := SuccessTitleStyle.Render(fmt.Sprintf("   %s  SUCCESS  %s", SuccessMarker, s.Title))
	border := SuccessColor
	if !s.Success {
		title = ErrorTitleStyle.Render(fmt.Sprintf("   %s  FAILED  %s", FailureMarker, s.Title))
		border = ErrorColor
	}
	lines = append(lines, "", title, "")

	for _, step := range s.Steps {
		lines = append(lines, "   "+renderStep(step))
	}
	if len(s.Steps) > 0 {
		lines = append(lines, "")
	}

	for _, d := range s.Details {
		key := DetailKeyStyle.Render(fmt.Sprintf("   %s:", d[0]))
		value := DetailValueStyle.Render(d[1])
		lines = append(lines, key+" "+value)
	}
	lines = append(lines, "")

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(border).
		Width(width - 2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

// RenderPlain returns the summary as unstyled text for non-terminal
// output.
func (s *Summary) RenderPlain() string {
	var b strings.Builder

	status := "SUCCESS"
	if !s.Success {
		status = "FAILED"
	}
	fmt.Fprintf(&b, "%s: %s\n", status, s.Title)

	for _, step := range s.Steps {
		fmt.Fprintf(&b, "  %s %s", stepMarker(step.Status), step.Name)
		if step.Note != "" {
			fmt.Fprintf(&b, " (%s)", step.Note)
		}
		b.WriteString("\n")
	}

	for _, d := range s.Details {
		fmt.Fprintf(&b, "  %s: %s\n", d[0], d[1])
	}
	return b.String()
}

func renderStep(step Step) string {
	line := stepMarker(step.Status) + " " + step.Name
	if step.Note != "" {
		line += " (" + step.Note + ")"
	}
	switch step.Status {
	case StepFailed:
		return StepFailedStyle.Render(line)
	case StepSkipped:
		return StepSkippedStyle.Render(line)
	default:
		return StepOkStyle.Render(line)
	}
}

func stepMarker(status StepStatus) string {
	switch status {
	case StepFailed:
		return FailureMarker
	case StepSkipped:
		return SkippedMarker
	default:
		return SuccessMarker
	}
}
