package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
)

// Dashboard color palette
const (
	ColorDarkBg    = lipgloss.Color("#0A0A0F")
	ColorSurfaceBg = lipgloss.Color("#12121A")
	ColorBorder    = lipgloss.Color("#2A2A4A")

	ColorHealthy  = lipgloss.Color("#39FF14")
	ColorWarning  = lipgloss.Color("#FFAA00")
	ColorCritical = lipgloss.Color("#FF0055")

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	ColorAccent    = lipgloss.Color("#FF2E97")
	ColorAccentDim = lipgloss.Color("#BF40FF")

	ColorGraph = lipgloss.Color("#00FFFF")
)

// Base styles for the dashboard
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1).
			MarginRight(1)

	CardSelectedStyle = CardStyle.
				BorderForeground(ColorAccent)

	NameStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	ColumnHeaderStyle = lipgloss.NewStyle().
				Foreground(ColorTextMuted).
				Bold(true)

	SelectedRowStyle = lipgloss.NewStyle().
				Background(ColorBorder)

	GroupHeaderStyle = lipgloss.NewStyle().
				Foreground(ColorAccentDim).
				Bold(true)

	PausedStyle = lipgloss.NewStyle().
			Foreground(ColorDarkBg).
			Background(ColorWarning).
			Bold(true).
			Padding(0, 1)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorCritical)
)

// Status glyphs
const (
	GlyphReady        = "◉"
	GlyphStarting     = "◐"
	GlyphStopping     = "◔"
	GlyphDown         = "◌"
	GlyphUnknown      = "?"
	GlyphCueAppear    = "+"
	GlyphCuePulse     = "•"
	GlyphCueHighlight = "»"
)

// StatusColor returns the color of an instance status.
func StatusColor(s fleet.Status) lipgloss.Color {
	switch s {
	case fleet.StatusReady:
		return ColorHealthy
	case fleet.StatusInitializing, fleet.StatusShuttingDown:
		return ColorWarning
	case fleet.StatusError, fleet.StatusNoResponse:
		return ColorCritical
	case fleet.StatusTerminated:
		return ColorTextMuted
	default:
		return ColorTextSecondary
	}
}

// StatusGlyph returns the indicator character of an instance status.
func StatusGlyph(s fleet.Status) string {
	switch s {
	case fleet.StatusReady:
		return GlyphReady
	case fleet.StatusInitializing:
		return GlyphStarting
	case fleet.StatusShuttingDown:
		return GlyphStopping
	case fleet.StatusError, fleet.StatusNoResponse, fleet.StatusTerminated:
		return GlyphDown
	default:
		return GlyphUnknown
	}
}

// StatusStyle returns a style colored for status s.
func StatusStyle(s fleet.Status) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(StatusColor(s))
}

// StreamStateStyle returns the header style for a connection state.
func StreamStateStyle(s stream.State) lipgloss.Style {
	switch s {
	case stream.StateLive:
		return lipgloss.NewStyle().Foreground(ColorHealthy)
	case stream.StateConnecting, stream.StateReconnecting:
		return lipgloss.NewStyle().Foreground(ColorWarning)
	default:
		return lipgloss.NewStyle().Foreground(ColorCritical)
	}
}

// CueMarker renders the one-character attention marker for a cue.
func CueMarker(c fleet.Cue, active bool) string {
	if !active {
		return " "
	}
	switch c.Kind {
	case fleet.CueAppear:
		return lipgloss.NewStyle().Foreground(ColorHealthy).Bold(true).Render(GlyphCueAppear)
	case fleet.CueHighlight:
		return lipgloss.NewStyle().Foreground(StatusColor(c.Status)).Bold(true).Render(GlyphCueHighlight)
	case fleet.CuePulse:
		return lipgloss.NewStyle().Foreground(ColorGraph).Render(GlyphCuePulse)
	default:
		return " "
	}
}

// SectionHeader renders a section header with the title on the left and value on the right.
// Format: ╭─ Title ────────────────────────────────────── Value ╮
func SectionHeader(title, value string, width int) string {
	if width < 10 {
		width = 10
	}

	leftWidth := 3 + lipgloss.Width(title) + 1
	rightWidth := 1 + lipgloss.Width(value) + 2

	fillWidth := width - leftWidth - rightWidth
	if fillWidth < 1 {
		fillWidth = 1
	}

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	titleStyle := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(ColorGraph).Bold(true)

	return borderStyle.Render("╭─ ") +
		titleStyle.Render(title) +
		borderStyle.Render(" "+strings.Repeat("─", fillWidth)+" ") +
		valueStyle.Render(value) +
		borderStyle.Render(" ╮")
}

// SectionFooter renders the bottom border of a section.
func SectionFooter(width int) string {
	if width < 2 {
		width = 2
	}
	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	return borderStyle.Render("╰" + strings.Repeat("─", width-2) + "╯")
}

// SectionContentLine renders a content line with left and right borders, padded to width.
func SectionContentLine(content string, width int) string {
	if width < 4 {
		width = 4
	}

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	padding := width - 4 - lipgloss.Width(content)
	if padding < 0 {
		padding = 0
	}

	return borderStyle.Render("│") + " " + content + strings.Repeat(" ", padding) + " " + borderStyle.Render("│")
}

// fit pads or truncates s to exactly width display cells.
func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := lipgloss.Width(s)
	if w == width {
		return s
	}
	if w < width {
		return s + strings.Repeat(" ", width-w)
	}
	runes := []rune(s)
	if width == 1 {
		return "…"
	}
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width-1 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
