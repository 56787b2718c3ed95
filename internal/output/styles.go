package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette. Never use inline lipgloss.Color literals elsewhere.
var (
	// ColorCyan is used for identifiable nouns: module names, bundle paths.
	ColorCyan = lipgloss.Color("14")

	// ColorGreen is used for the PASSED cache state and written bundles.
	ColorGreen = lipgloss.Color("82")

	// ColorYellow is used for the PENDING cache state and skipped bundles.
	ColorYellow = lipgloss.Color("220")

	// ColorBoldRed is used for the FAILED cache state.
	ColorBoldRed = lipgloss.Color("204")

	// ColorGreenCheck is used for the completion checkmark.
	ColorGreenCheck = lipgloss.Color("10")
)

// Semantic styles.
var (
	// StyleNoun styles identifiable nouns (module names, bundle paths).
	StyleNoun = lipgloss.NewStyle().Foreground(ColorCyan)

	// StyleDim styles structural chrome (prefixes, separators).
	StyleDim = lipgloss.NewStyle().Faint(true)

	// StyleSummary styles completion and summary lines.
	StyleSummary = lipgloss.NewStyle().Bold(true)
)

// StateStyle returns the style for a cache state name.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "PASSED":
		return lipgloss.NewStyle().Foreground(ColorGreen)
	case "PENDING":
		return lipgloss.NewStyle().Foreground(ColorYellow)
	case "FAILED":
		return lipgloss.NewStyle().Bold(true).Foreground(ColorBoldRed)
	default:
		return lipgloss.NewStyle().Faint(true)
	}
}

// minBundleColumnWidth keeps the kind suffix of bundle lines aligned.
const minBundleColumnWidth = 56

// FormatBundleLine renders a bundle path with a right-aligned kind suffix.
//
// Format: b:<path>  <kind>[ skip]
func FormatBundleLine(path, kind string, skip bool) string {
	padding := minBundleColumnWidth - len(path)
	if padding < 2 {
		padding = 2
	}

	suffix := kind
	style := lipgloss.NewStyle().Foreground(ColorGreen)
	if skip {
		suffix += " skip"
		style = lipgloss.NewStyle().Foreground(ColorYellow)
	}

	return StyleDim.Render("b:") + StyleNoun.Render(path) + strings.Repeat(" ", padding) + style.Render(suffix)
}

// FormatState renders "cache state: <STATE>" with the state colored.
func FormatState(state string, pid int) string {
	line := "cache state: " + StateStyle(state).Render(state)
	if pid > 0 {
		line += StyleDim.Render(fmt.Sprintf(" (pid %d)", pid))
	}
	return line
}

// FormatCheckmark renders a green checkmark with a message for stdout output.
func FormatCheckmark(msg string) string {
	check := lipgloss.NewStyle().Foreground(ColorGreenCheck).Render("✔")
	return check + " " + msg
}
