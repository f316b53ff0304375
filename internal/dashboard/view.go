package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/rileyhilliard/fleetwatch/internal/view"
)

// defaultWidth is used before the first window size message.
const defaultWidth = 100

// Card widths for the grid (compact) and card (full) modes.
const (
	gridCardWidth = 28
	fullCardWidth = 40
)

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	if m.screen == ScreenDetail {
		return m.renderDetailScreen()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if line := m.renderSearchLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if picker := m.renderPicker(); picker != "" {
		b.WriteString(picker)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.renderBody())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// age renders how long ago t was, e.g. "3 minutes".
func (m Model) age(t time.Time) string {
	return strings.TrimSpace(humanize.RelTime(t, m.now(), "", ""))
}

// ago renders t relative to now, e.g. "3 minutes ago".
func (m Model) ago(t time.Time) string {
	if rel := m.age(t); rel != "now" {
		return rel + " ago"
	}
	return "just now"
}

func (m Model) contentWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return m.width
}

// renderHeader renders the title bar with connection state and counts.
func (m Model) renderHeader() string {
	state := m.StreamState()

	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("fleetwatch")

	indicator := StreamStateStyle(state).Render("● " + state.String())

	shown := len(m.rows)
	stats := fmt.Sprintf(" | %d instances", m.result.Total)
	if shown != m.result.Total {
		stats += fmt.Sprintf(" (%d shown)", shown)
	}
	if !m.lastChange.IsZero() {
		stats += " | changed " + m.ago(m.lastChange)
	}
	statsText := lipgloss.NewStyle().Foreground(ColorTextSecondary).Render(stats)

	out := HeaderStyle.Render(title + " " + indicator + statsText)
	if m.reconciler.Paused() {
		out += " " + PausedStyle.Render(fmt.Sprintf("PAUSED %d pending", m.reconciler.Pending()))
	}
	return out + "\n" + m.renderControls()
}

// renderControls summarizes the active view controls.
func (m Model) renderControls() string {
	group := "none"
	if len(m.prefs.GroupBy) > 0 {
		group = strings.Join(m.prefs.GroupBy, " > ")
	}
	parts := []string{
		"view " + m.prefs.ViewMode.String(),
		"group " + group,
		"sort " + m.result.Sort.String(),
	}
	if m.statusFilter != "" {
		parts = append(parts, "status "+string(m.statusFilter))
	}
	if len(m.filters) > 0 {
		parts = append(parts, "filter "+describeFilters(m.filters))
	}
	if m.search != "" && !m.searching {
		parts = append(parts, fmt.Sprintf("search %q", m.search))
	}
	return FooterStyle.Render(strings.Join(parts, " | "))
}

func (m Model) renderSearchLine() string {
	if !m.searching {
		return ""
	}
	return " " + m.searchInput.View()
}

// renderBody renders the fleet in the current view mode.
func (m Model) renderBody() string {
	if m.result.Total == 0 {
		return LabelStyle.Render("  Waiting for instances...")
	}
	if len(m.rows) == 0 {
		return LabelStyle.Render("  No instances match the current filters")
	}

	switch m.prefs.ViewMode {
	case view.ModeGrid, view.ModeCard:
		return m.renderCards()
	case view.ModeList:
		return m.window(m.renderLines(m.renderListRow))
	default:
		lines := m.renderLines(m.renderTableRow)
		header := "   " + m.renderColumnHeader()
		return header + "\n" + m.window(lines)
	}
}

// bodyLines is a rendered list plus the line holding the selection.
type bodyLines struct {
	lines    []string
	selected int
}

// renderLines renders the flat list or group tree one line per instance,
// with a header line per group.
func (m Model) renderLines(row func(inst fleet.Instance, depth int, selected bool) string) bodyLines {
	var out bodyLines
	index := 0
	emit := func(inst fleet.Instance, depth int) {
		sel := index == m.selected
		if sel {
			out.selected = len(out.lines)
		}
		out.lines = append(out.lines, row(inst, depth, sel))
		index++
	}

	if !m.result.Grouped() {
		for _, inst := range m.rows {
			emit(inst, 0)
		}
		return out
	}

	var walk func(nodes []*view.Node)
	walk = func(nodes []*view.Node) {
		for _, n := range nodes {
			out.lines = append(out.lines, renderGroupHeader(n))
			if n.Leaf() {
				for _, inst := range n.Instances {
					emit(inst, n.Level+1)
				}
				continue
			}
			walk(n.Children)
		}
	}
	walk(m.result.Groups)
	return out
}

func renderGroupHeader(n *view.Node) string {
	indent := strings.Repeat("  ", n.Level)
	name := GroupHeaderStyle.Render(fmt.Sprintf("▾ %s: %s", n.Field, n.DisplayName))
	return indent + name + MutedStyle.Render(fmt.Sprintf(" (%d)", n.Count))
}

// window trims lines to the terminal height keeping the selection visible.
func (m Model) window(b bodyLines) string {
	avail := m.height - 6
	if m.height <= 0 || avail <= 0 || len(b.lines) <= avail {
		return strings.Join(b.lines, "\n")
	}
	start := b.selected - avail/2
	if start < 0 {
		start = 0
	}
	if start+avail > len(b.lines) {
		start = len(b.lines) - avail
	}
	return strings.Join(b.lines[start:start+avail], "\n")
}

func (m Model) columns() []view.Column {
	cols := view.Columns(m.prefs.Columns)
	if m.LayoutMode() == LayoutMinimal && m.width > 0 && len(cols) > 3 {
		cols = cols[:3]
	}
	return cols
}

func (m Model) renderColumnHeader() string {
	var cells []string
	for _, c := range m.columns() {
		title := c.Title
		if c.Name == m.result.Sort.Field && m.prefs.ViewMode == view.ModeTable {
			if m.result.Sort.Desc {
				title += "↓"
			} else {
				title += "↑"
			}
		}
		cells = append(cells, fit(title, c.Width))
	}
	return ColumnHeaderStyle.Render(strings.Join(cells, " "))
}

// renderTableRow renders one instance as a table row.
func (m Model) renderTableRow(inst fleet.Instance, depth int, selected bool) string {
	cue, active := m.cueFor(inst.Identity())

	var cells []string
	for _, c := range m.columns() {
		text := fit(view.CellValue(inst, c.Name), c.Width)
		if c.Name == view.FieldStatus {
			text = m.statusCell(inst.Status, cue, active, c.Width)
		}
		cells = append(cells, text)
	}

	line := strings.Repeat("  ", depth) + CueMarker(cue, active) + StatusStyle(inst.Status).Render(StatusGlyph(inst.Status)) + " " + strings.Join(cells, " ")
	if selected {
		return SelectedRowStyle.Render(line)
	}
	return line
}

// statusCell colors the status text, emphasized while a highlight cue is active.
func (m Model) statusCell(status fleet.Status, cue fleet.Cue, active bool, width int) string {
	style := StatusStyle(status)
	if active && cue.Kind == fleet.CueHighlight {
		style = style.Bold(true).Underline(true)
	}
	return style.Render(fit(string(status), width))
}

// renderListRow renders one instance as a compact list line.
func (m Model) renderListRow(inst fleet.Instance, depth int, selected bool) string {
	cue, active := m.cueFor(inst.Identity())

	name := NameStyle.Render(inst.Identity().String())
	status := m.statusCell(inst.Status, cue, active, lipgloss.Width(string(inst.Status)))
	var extra []string
	if inst.Hostname != "" {
		extra = append(extra, inst.Hostname)
	}
	if !inst.CreatedAt.IsZero() {
		extra = append(extra, "up "+m.age(inst.CreatedAt))
	}

	line := strings.Repeat("  ", depth) + CueMarker(cue, active) + StatusStyle(inst.Status).Render(StatusGlyph(inst.Status)) + " " + name + " " + status
	if len(extra) > 0 {
		line += MutedStyle.Render("  " + strings.Join(extra, "  "))
	}
	if selected {
		return SelectedRowStyle.Render(line)
	}
	return line
}

// renderCards renders the grid or card layout, one card grid per leaf group.
func (m Model) renderCards() string {
	width := gridCardWidth
	if m.prefs.ViewMode == view.ModeCard {
		width = fullCardWidth
	}

	index := 0
	cardsFor := func(instances []fleet.Instance) string {
		cards := make([]string, 0, len(instances))
		for _, inst := range instances {
			cards = append(cards, m.renderCard(inst, width, index == m.selected))
			index++
		}
		return m.layoutCards(cards, width)
	}

	if !m.result.Grouped() {
		return cardsFor(m.rows)
	}

	var sections []string
	var walk func(nodes []*view.Node)
	walk = func(nodes []*view.Node) {
		for _, n := range nodes {
			sections = append(sections, renderGroupHeader(n))
			if n.Leaf() {
				sections = append(sections, cardsFor(n.Instances))
				continue
			}
			walk(n.Children)
		}
	}
	walk(m.result.Groups)
	return strings.Join(sections, "\n")
}

// layoutCards arranges cards in rows based on terminal width.
func (m Model) layoutCards(cards []string, cardWidth int) string {
	if len(cards) == 0 {
		return ""
	}

	// card width + border + margin
	perRow := m.contentWidth() / (cardWidth + 3)
	if perRow < 1 {
		perRow = 1
	}

	var rows []string
	for i := 0; i < len(cards); i += perRow {
		end := i + perRow
		if end > len(cards) {
			end = len(cards)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderCard renders one instance card. Full cards add labels, addresses
// and ports.
func (m Model) renderCard(inst fleet.Instance, width int, selected bool) string {
	cue, active := m.cueFor(inst.Identity())

	style := CardStyle.Width(width)
	if selected {
		style = CardSelectedStyle.Width(width)
	}
	if active && cue.Kind == fleet.CueAppear {
		style = style.BorderForeground(ColorHealthy)
	}
	inner := width - 2

	var lines []string
	lines = append(lines, CueMarker(cue, active)+NameStyle.Render(fit(inst.ID, inner-1)))
	lines = append(lines, LabelStyle.Render(fit(inst.Service(), inner)))
	lines = append(lines, StatusStyle(inst.Status).Render(StatusGlyph(inst.Status)+" ")+m.statusCell(inst.Status, cue, active, inner-2))

	if m.prefs.ViewMode == view.ModeCard {
		if inst.Hostname != "" {
			lines = append(lines, MutedStyle.Render(fit("host "+inst.Hostname, inner)))
		}
		if inst.ExternalAddress != "" {
			lines = append(lines, MutedStyle.Render(fit("ext  "+inst.ExternalAddress, inner)))
		}
		if inst.InternalAddress != "" {
			lines = append(lines, MutedStyle.Render(fit("int  "+inst.InternalAddress, inner)))
		}
		if ports := inst.PortPairs(); len(ports) > 0 {
			lines = append(lines, MutedStyle.Render(fit("port "+strings.Join(ports, ","), inner)))
		}
		for _, key := range sortedLabelKeys(inst) {
			if key == fleet.ServiceLabel {
				continue
			}
			lines = append(lines, MutedStyle.Render(fit(key+"="+inst.Labels[key], inner)))
		}
		if !inst.CreatedAt.IsZero() {
			lines = append(lines, MutedStyle.Render(fit("up "+m.age(inst.CreatedAt), inner)))
		}
	}

	return style.Render(strings.Join(lines, "\n"))
}

// renderFooter renders the keyboard hint footer.
func (m Model) renderFooter() string {
	pause := "p pause"
	if m.reconciler.Paused() {
		pause = "p resume"
	}
	hints := []string{
		"q quit",
		pause,
		"v view",
		"g group",
		"s/S sort",
		"f status",
		"F filter",
		"/ search",
		"enter detail",
		"? help",
	}
	return FooterStyle.Render(strings.Join(hints, " | "))
}
