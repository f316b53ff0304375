package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with title and width. A zero width
// sizes the column to its widest cell.
type TableColumn struct {
	Title string
	Width int
}

// RenderTable renders a plain-text table: a bold header line followed by one
// line per row. Cells wider than their column are truncated with "…".
// Each line is prefixed with indent.
func RenderTable(columns []TableColumn, rows [][]string, indent string) string {
	if len(columns) == 0 {
		return ""
	}

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = c.Width
		if widths[i] > 0 {
			continue
		}
		widths[i] = lipgloss.Width(c.Title)
		for _, row := range rows {
			if i < len(row) && lipgloss.Width(row[i]) > widths[i] {
				widths[i] = lipgloss.Width(row[i])
			}
		}
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	var b strings.Builder
	titles := make([]string, len(columns))
	for i, c := range columns {
		titles[i] = padRight(truncate(c.Title, widths[i]), widths[i])
	}
	b.WriteString(indent + headerStyle.Render(strings.TrimRight(strings.Join(titles, "  "), " ")) + "\n")

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i := range columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = padRight(truncate(cell, widths[i]), widths[i])
		}
		b.WriteString(indent + strings.TrimRight(strings.Join(cells, "  "), " ") + "\n")
	}
	return b.String()
}

// RenderKeyValues renders aligned "key  value" lines.
func RenderKeyValues(pairs [][2]string, indent string) string {
	width := 0
	for _, p := range pairs {
		if w := lipgloss.Width(p[0]); w > width {
			width = w
		}
	}

	keyStyle := lipgloss.NewStyle().Foreground(ColorSecondary)
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(indent + keyStyle.Render(padRight(p[0], width)) + "  " + p[1] + "\n")
	}
	return b.String()
}

// padRight pads a string to the specified visible width.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

// truncate shortens s to width visible cells, marking the cut with "…".
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width-1 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
