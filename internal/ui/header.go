package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HeaderInfo contains information to display in the header.
type HeaderInfo struct {
	Title   string // Command title (e.g., "snapshot")
	Version string // Version string (e.g., "v0.4.0")
	Source  string // Optional stream URL the output was taken from
}

// HeaderWidth is the default width of the header divider
const HeaderWidth = 50

// RenderHeader renders the branded header printed above text output.
func RenderHeader(info HeaderInfo) string {
	titleStyle := lipgloss.NewStyle().Foreground(ColorNeonPink).Bold(true)
	versionStyle := lipgloss.NewStyle().Foreground(ColorNeonCyan)
	dividerStyle := lipgloss.NewStyle().Foreground(ColorGlassBorder)

	var b strings.Builder
	b.WriteString(titleStyle.Render("fleetwatch"))
	if info.Title != "" {
		b.WriteString(" " + info.Title)
	}
	if info.Version != "" {
		b.WriteString(" " + versionStyle.Render(info.Version))
	}
	b.WriteString("\n")

	if info.Source != "" {
		b.WriteString(MutedStyle().Render(info.Source))
		b.WriteString("\n")
	}

	b.WriteString(dividerStyle.Render(strings.Repeat("━", HeaderWidth)))
	b.WriteString("\n")
	return b.String()
}
