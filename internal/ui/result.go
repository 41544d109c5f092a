package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType selects the color and title of a result box
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
	ResultInfo
)

// Detail is one key-value line in a box. Details render in slice order.
type Detail struct {
	Key   string
	Value string
}

// Result represents a result box
type Result struct {
	Type            ResultType // Success, failure, warning or info
	Title           string     // e.g., "Sketch folder created"
	Message         string     // Free text under the title, word-wrapped
	Details         []Detail   // Key-value details to display
	Error           error      // Error (for failure results)
	Troubleshooting []string   // Troubleshooting tips (for failure results)
	Width           int        // Terminal width
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details ...Detail) *Result {
	return &Result{Type: ResultSuccess, Title: title, Details: details, Width: GetTerminalWidth()}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details ...Detail) *Result {
	return &Result{Type: ResultWarning, Title: title, Details: details, Width: GetTerminalWidth()}
}

// NewInfoResult creates an information box carrying a message
func NewInfoResult(title, message string) *Result {
	return &Result{Type: ResultInfo, Title: title, Message: message, Width: GetTerminalWidth()}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail appends a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Detail{Key: key, Value: value})
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	color, style, label, marker := r.decoration()

	lines := []string{
		"",
		style.Render(fmt.Sprintf(" %s  %s  ─  %s", marker, label, r.Title)),
		"",
	}

	if r.Message != "" {
		wrapped := lipgloss.NewStyle().
			Foreground(TextColor).
			Width(width - 10).
			PaddingLeft(1).
			Render(r.Message)
		lines = append(lines, wrapped, "")
	}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render(" Error: "+r.Error.Error()), "")
	}

	if len(r.Details) > 0 {
		for _, d := range r.Details {
			keyStyled := ResultKeyStyle.Render(" " + d.Key + ":")
			lines = append(lines, keyStyled+" "+ResultValueStyle.Render(d.Value))
		}
		lines = append(lines, "")
	}

	if len(r.Troubleshooting) > 0 {
		lines = append(lines, r.renderTroubleshootingBox(width), "")
	}

	return boxStyle(color, width).Render(strings.Join(lines, "\n"))
}

func (r *Result) decoration() (lipgloss.Color, lipgloss.Style, string, string) {
	switch r.Type {
	case ResultFailure:
		return ErrorColor, ErrorTitleStyle, "FAILED", FailureMarker
	case ResultWarning:
		return WarningColor, WarningTitleStyle, "WARNING", WarningMarker
	case ResultInfo:
		return InfoColor, InfoTitleStyle, "INFO", InfoMarker
	default:
		return SuccessColor, SuccessTitleStyle, "SUCCESS", SuccessMarker
	}
}

// renderTroubleshootingBox renders the inner troubleshooting box
func (r *Result) renderTroubleshootingBox(width int) string {
	lines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
	for _, tip := range r.Troubleshooting {
		lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
	}

	innerWidth := width - 12
	if innerWidth < 40 {
		innerWidth = 40
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(innerWidth).
		Padding(0, 1).
		MarginLeft(1).
		Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
